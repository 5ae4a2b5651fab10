package cgf

import (
	"errors"
	"fmt"
)

// Decode error sentinels. Every *DecodeError unwraps to one of these.
var (
	ErrUnsupportedFormat   = errors.New("unsupported file format")
	ErrUnknownChunk        = errors.New("unknown chunk type/version")
	ErrMissingReference    = errors.New("missing chunk reference")
	ErrCorruptSkeleton     = errors.New("corrupt skeleton")
	ErrTruncatedBuffer     = errors.New("truncated buffer")
	ErrUnsupportedEncoding = errors.New("unsupported data encoding")
)

// ErrorKind classifies a decode failure.
type ErrorKind int

const (
	KindUnsupportedFormat ErrorKind = iota
	KindUnknownChunk
	KindMissingReference
	KindCorruptSkeleton
	KindTruncatedBuffer
	KindUnsupportedEncoding
)

// String returns a human-readable kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	case KindUnknownChunk:
		return "UnknownChunk"
	case KindMissingReference:
		return "MissingReference"
	case KindCorruptSkeleton:
		return "CorruptSkeleton"
	case KindTruncatedBuffer:
		return "TruncatedBuffer"
	case KindUnsupportedEncoding:
		return "UnsupportedEncoding"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Fatal reports whether errors of this kind abandon the whole file.
func (k ErrorKind) Fatal() bool {
	switch k {
	case KindUnsupportedFormat, KindCorruptSkeleton, KindTruncatedBuffer:
		return true
	}
	return false
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindUnsupportedFormat:
		return ErrUnsupportedFormat
	case KindUnknownChunk:
		return ErrUnknownChunk
	case KindMissingReference:
		return ErrMissingReference
	case KindCorruptSkeleton:
		return ErrCorruptSkeleton
	case KindTruncatedBuffer:
		return ErrTruncatedBuffer
	default:
		return ErrUnsupportedEncoding
	}
}

// DecodeError describes a failure while decoding a file or one of its chunks.
type DecodeError struct {
	Kind    ErrorKind
	Type    ChunkType // zero when not chunk-specific
	Version uint32
	ChunkID int32
	Detail  string
}

func (e *DecodeError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Type != 0 {
		msg = fmt.Sprintf("%s: chunk %s v0x%X id %d", msg, e.Type, e.Version, e.ChunkID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap lets errors.Is match the kind sentinel.
func (e *DecodeError) Unwrap() error {
	return e.Kind.sentinel()
}

func newError(kind ErrorKind, format string, args ...any) *DecodeError {
	return &DecodeError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// withChunk attaches chunk identity to err if it is a *DecodeError without one.
func withChunk(err error, e ChunkEntry) error {
	var de *DecodeError
	if errors.As(err, &de) {
		if de.Type == 0 {
			de.Type = e.Type
			de.Version = e.Version
			de.ChunkID = e.ID
		}
		return de
	}
	return &DecodeError{
		Kind:    KindTruncatedBuffer,
		Type:    e.Type,
		Version: e.Version,
		ChunkID: e.ID,
		Detail:  err.Error(),
	}
}

// KindOf returns the kind of a decode error, or false if err is not one.
func KindOf(err error) (ErrorKind, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// Warning is a non-fatal problem found while decoding a file.
type Warning struct {
	Kind    ErrorKind
	Type    ChunkType
	Version uint32
	ChunkID int32
	Message string
}

func (w Warning) String() string {
	if w.Type != 0 {
		return fmt.Sprintf("%s: chunk %s v0x%X id %d: %s", w.Kind, w.Type, w.Version, w.ChunkID, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
