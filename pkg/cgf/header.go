// Package cgf decodes CryEngine chunk files (.cgf, .cga, .chr, .skin, .caf).
package cgf

import (
	"fmt"
	"sort"
)

// File signatures.
const (
	SignatureCryTek = "CryTek\x00\x00"
	SignatureCrCh   = "CrCh"
)

// File format versions.
const (
	FormatVersion744 uint32 = 0x744
	FormatVersion745 uint32 = 0x745
	FormatVersion746 uint32 = 0x746
)

// FileType is the file type field of CryTek headers.
type FileType uint32

const (
	FileTypeGeometry  FileType = 0xFFFF0000
	FileTypeAnimation FileType = 0xFFFF0001
)

// String returns the file type name.
func (t FileType) String() string {
	switch t {
	case FileTypeGeometry:
		return "Geometry"
	case FileTypeAnimation:
		return "Animation"
	default:
		return fmt.Sprintf("Unknown(0x%X)", uint32(t))
	}
}

// embeddedHeaderSize is the per-chunk header copy stored in 0x744/0x745 payloads.
const embeddedHeaderSize = 16

// ChunkEntry is one row of the chunk table.
type ChunkEntry struct {
	Type    ChunkType
	Version uint32
	ID      int32
	Offset  uint32
	Size    uint32
}

// Header describes a chunk file container.
type Header struct {
	Signature   string
	Version     uint32
	FileType    FileType // CryTek files only
	TableOffset uint32
	HeaderSize  uint32
	Entries     []ChunkEntry

	// Embedded is set when chunk payloads start with a copy of their header.
	Embedded bool
}

// ReadHeader parses the file header and chunk table.
func ReadHeader(data []byte) (*Header, error) {
	r := NewReader(data)
	if len(data) >= 8 && string(data[:8]) == SignatureCryTek {
		return readCryTekHeader(r)
	}
	if len(data) >= 4 && string(data[:4]) == SignatureCrCh {
		return readCrChHeader(r)
	}
	n := len(data)
	if n > 8 {
		n = 8
	}
	return nil, newError(KindUnsupportedFormat, "unrecognized signature %q", data[:n])
}

func readCryTekHeader(r *Reader) (*Header, error) {
	h := &Header{Signature: SignatureCryTek, HeaderSize: 20, Embedded: true}
	if err := r.Skip(8); err != nil {
		return nil, err
	}
	ft, err := r.U32()
	if err != nil {
		return nil, err
	}
	h.FileType = FileType(ft)
	if h.Version, err = r.U32(); err != nil {
		return nil, err
	}
	if h.TableOffset, err = r.U32(); err != nil {
		return nil, err
	}

	var entrySize int
	switch h.Version {
	case FormatVersion744:
		entrySize = 16
	case FormatVersion745:
		entrySize = 20
	default:
		return nil, newError(KindUnsupportedFormat, "CryTek version 0x%X", h.Version)
	}

	if err := r.Seek(int(h.TableOffset)); err != nil {
		return nil, err
	}
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	if int(count)*entrySize > r.Remaining() {
		return nil, newError(KindTruncatedBuffer, "chunk table of %d entries does not fit", count)
	}

	h.Entries = make([]ChunkEntry, count)
	for i := range h.Entries {
		e := &h.Entries[i]
		rawType, _ := r.U32()
		e.Type = NormalizeType(rawType)
		e.Version, _ = r.U32()
		e.Offset, _ = r.U32()
		e.ID, _ = r.I32()
		if entrySize == 20 {
			e.Size, _ = r.U32()
		}
	}

	if h.Version == FormatVersion744 {
		computeImplicitSizes(h.Entries, uint32(r.Len()), h.TableOffset)
	}
	return h, nil
}

func readCrChHeader(r *Reader) (*Header, error) {
	h := &Header{Signature: SignatureCrCh, HeaderSize: 16}
	if err := r.Skip(4); err != nil {
		return nil, err
	}
	var err error
	if h.Version, err = r.U32(); err != nil {
		return nil, err
	}
	if h.Version != FormatVersion746 {
		return nil, newError(KindUnsupportedFormat, "CrCh version 0x%X", h.Version)
	}
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	if h.TableOffset, err = r.U32(); err != nil {
		return nil, err
	}

	if err := r.Seek(int(h.TableOffset)); err != nil {
		return nil, err
	}
	if int(count)*16 > r.Remaining() {
		return nil, newError(KindTruncatedBuffer, "chunk table of %d entries does not fit", count)
	}

	h.Entries = make([]ChunkEntry, count)
	for i := range h.Entries {
		e := &h.Entries[i]
		t, _ := r.U16()
		v, _ := r.U16()
		if v&0x8000 != 0 {
			return nil, newError(KindUnsupportedFormat, "big-endian chunk 0x%X", t)
		}
		e.Type = ChunkType(t)
		e.Version = uint32(v)
		e.ID, _ = r.I32()
		e.Size, _ = r.U32()
		e.Offset, _ = r.U32()
	}
	return h, nil
}

// computeImplicitSizes fills sizes for tables that do not store them:
// a chunk ends where the next one (by offset) starts, the last one at
// the chunk table or EOF, whichever comes first after it.
func computeImplicitSizes(entries []ChunkEntry, fileLen, tableOffset uint32) {
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return entries[order[a]].Offset < entries[order[b]].Offset
	})
	for k, idx := range order {
		end := fileLen
		if tableOffset > entries[idx].Offset && tableOffset < end {
			end = tableOffset
		}
		if k+1 < len(order) {
			if next := entries[order[k+1]].Offset; next < end {
				end = next
			}
		}
		if end > entries[idx].Offset {
			entries[idx].Size = end - entries[idx].Offset
		}
	}
}

// Validate checks that every chunk lies inside the file after the header.
func (h *Header) Validate(fileLen int) error {
	var total uint64
	for _, e := range h.Entries {
		if e.Offset < h.HeaderSize {
			return newError(KindTruncatedBuffer, "chunk id %d starts at %d inside the header", e.ID, e.Offset)
		}
		if uint64(e.Offset)+uint64(e.Size) > uint64(fileLen) {
			return newError(KindTruncatedBuffer, "chunk id %d [%d+%d] exceeds file length %d", e.ID, e.Offset, e.Size, fileLen)
		}
		total += uint64(e.Size)
	}
	if total > uint64(fileLen) {
		return newError(KindTruncatedBuffer, "chunk sizes total %d exceed file length %d", total, fileLen)
	}
	return nil
}

// Find returns the entry with the given id.
func (h *Header) Find(id int32) (ChunkEntry, bool) {
	for _, e := range h.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return ChunkEntry{}, false
}
