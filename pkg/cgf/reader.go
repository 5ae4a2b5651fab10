package cgf

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/Faultbox/cryconv/pkg/encoding"
)

// Reader is a little-endian cursor over a byte buffer.
// It is not safe for concurrent use.
type Reader struct {
	data []byte
	pos  int
}

// NewReader returns a reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the current absolute offset.
func (r *Reader) Pos() int { return r.pos }

// Len returns the total buffer length.
func (r *Reader) Len() int { return len(r.data) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return newError(KindTruncatedBuffer, "seek to %d outside buffer of %d bytes", pos, len(r.data))
	}
	r.pos = pos
	return nil
}

// Skip moves the cursor by delta bytes.
func (r *Reader) Skip(delta int) error {
	return r.Seek(r.pos + delta)
}

// Align advances the cursor to the next multiple of n.
func (r *Reader) Align(n int) error {
	if rem := r.pos % n; rem != 0 {
		return r.Skip(n - rem)
	}
	return nil
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, newError(KindTruncatedBuffer, "read of %d bytes at offset %d exceeds buffer of %d bytes", n, r.pos, len(r.data))
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Bytes returns the next n bytes. The slice aliases the buffer.
func (r *Reader) Bytes(n int) ([]byte, error) {
	return r.take(n)
}

// U8 reads an unsigned byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// I8 reads a signed byte.
func (r *Reader) I8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

// U16 reads a uint16.
func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// I16 reads an int16.
func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

// U32 reads a uint32.
func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// I32 reads an int32.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// F32 reads a float32.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

// String reads a fixed-length field and trims it at the first NUL.
func (r *Reader) String(n int) (string, error) {
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	return encoding.FixedStringToUTF8(b), nil
}

// StringNT reads a null-terminated string, consuming the terminator.
// If max > 0 at most max bytes are consumed.
func (r *Reader) StringNT(max int) (string, error) {
	limit := len(r.data)
	if max > 0 && r.pos+max < limit {
		limit = r.pos + max
	}
	rest := r.data[r.pos:limit]
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		if max > 0 && len(rest) == max {
			r.pos += max
			return decodeName(rest), nil
		}
		return "", newError(KindTruncatedBuffer, "unterminated string at offset %d", r.pos)
	}
	r.pos += i + 1
	return decodeName(rest[:i]), nil
}

// F32s reads n float32 values.
func (r *Reader) F32s(n int) ([]float32, error) {
	b, err := r.take(n * 4)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// U16s reads n uint16 values.
func (r *Reader) U16s(n int) ([]uint16, error) {
	b, err := r.take(n * 2)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return out, nil
}

// U32s reads n uint32 values.
func (r *Reader) U32s(n int) ([]uint32, error) {
	b, err := r.take(n * 4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out, nil
}

// I32s reads n int32 values.
func (r *Reader) I32s(n int) ([]int32, error) {
	u, err := r.U32s(n)
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i, v := range u {
		out[i] = int32(v)
	}
	return out, nil
}

// ReadArray reads n elements with readOne.
func ReadArray[T any](r *Reader, n int, readOne func(*Reader) (T, error)) ([]T, error) {
	if n < 0 {
		return nil, newError(KindTruncatedBuffer, "negative element count %d", n)
	}
	out := make([]T, n)
	for i := range out {
		v, err := readOne(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// decodeName converts a Windows-1252 byte string to UTF-8.
func decodeName(b []byte) string {
	return encoding.Windows1252ToUTF8(b)
}
