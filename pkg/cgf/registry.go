package cgf

import (
	"fmt"

	"go.uber.org/zap"
)

// DecodeContext is the per-chunk state handed to decoders.
type DecodeContext struct {
	Entry  ChunkEntry
	Reader *Reader // positioned at the chunk payload

	// End is the absolute offset where the chunk ends.
	End int
}

// DecodeFunc decodes one chunk payload.
type DecodeFunc func(ctx *DecodeContext) (Chunk, error)

type registryKey struct {
	t ChunkType
	v uint32
}

// Registry maps (chunk type, version) to decoders. It is immutable
// once built and may be shared between goroutines.
type Registry struct {
	decoders map[registryKey]DecodeFunc
}

// RegistryBuilder collects decoders before freezing them into a Registry.
type RegistryBuilder struct {
	decoders map[registryKey]DecodeFunc
}

// NewRegistryBuilder returns an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{decoders: make(map[registryKey]DecodeFunc)}
}

// Register adds fn under (t, version), replacing any previous decoder.
func (b *RegistryBuilder) Register(t ChunkType, version uint32, fn DecodeFunc) *RegistryBuilder {
	b.decoders[registryKey{t, version}] = fn
	return b
}

// Build freezes the builder.
func (b *RegistryBuilder) Build() *Registry {
	m := make(map[registryKey]DecodeFunc, len(b.decoders))
	for k, v := range b.decoders {
		m[k] = v
	}
	return &Registry{decoders: m}
}

// DefaultRegistry returns a registry with every built-in decoder.
func DefaultRegistry() *Registry {
	return NewRegistryBuilder().
		Register(ChunkMesh, 0x800, decodeMesh).
		Register(ChunkMesh, 0x801, decodeMesh).
		Register(ChunkMesh, 0x802, decodeMesh).
		Register(ChunkMeshSubsets, 0x800, decodeMeshSubsets).
		Register(ChunkDataStream, 0x800, decodeDataStream).
		Register(ChunkDataStream, 0x801, decodeDataStream).
		Register(ChunkCompiledBones, 0x800, decodeCompiledBones).
		Register(ChunkController, 0x827, decodeController827).
		Register(ChunkController, 0x831, decodeController831).
		Register(ChunkMotionParameters, 0x925, decodeMotionParameters).
		Register(ChunkTiming, 0x918, decodeTiming).
		Register(ChunkTiming, 0x919, decodeTiming).
		Register(ChunkMtlName, 0x800, decodeMtlName800).
		Register(ChunkMtlName, 0x802, decodeMtlName802).
		Register(ChunkNode, 0x823, decodeNode).
		Register(ChunkNode, 0x824, decodeNode).
		Register(ChunkHelper, 0x744, decodeHelper).
		Register(ChunkSourceInfo, 0x0, decodeSourceInfo).
		Register(ChunkExportFlags, 0x1, decodeExportFlags).
		Build()
}

// Lookup returns the decoder for (t, version).
func (reg *Registry) Lookup(t ChunkType, version uint32) (DecodeFunc, bool) {
	fn, ok := reg.decoders[registryKey{t, version}]
	return fn, ok
}

// Len returns the number of registered decoders.
func (reg *Registry) Len() int {
	return len(reg.decoders)
}

// Options configures a file decode.
type Options struct {
	Registry *Registry
	Logger   *zap.Logger
	// Name labels log lines, usually the source path.
	Name string
}

func (o Options) withDefaults() Options {
	if o.Registry == nil {
		o.Registry = DefaultRegistry()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// File is a decoded chunk file.
type File struct {
	Header   *Header
	Chunks   map[int32]Chunk
	Warnings []Warning
}

// Decode reads the header of data and dispatches every chunk.
// Unknown chunks and non-fatal decode problems become warnings; fatal
// errors abandon the file.
func Decode(data []byte, opts Options) (*File, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With(zap.String("file", opts.Name))

	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	if err := h.Validate(len(data)); err != nil {
		return nil, err
	}

	f := &File{Header: h, Chunks: make(map[int32]Chunk, len(h.Entries))}
	for _, e := range h.Entries {
		fn, ok := opts.Registry.Lookup(e.Type, e.Version)
		if !ok {
			f.warn(log, Warning{Kind: KindUnknownChunk, Type: e.Type, Version: e.Version, ChunkID: e.ID, Message: "no decoder registered"})
			continue
		}

		start := int(e.Offset)
		if h.Embedded {
			start += embeddedHeaderSize
		}
		end := int(e.Offset + e.Size)
		if start > end {
			f.warn(log, Warning{Kind: KindTruncatedBuffer, Type: e.Type, Version: e.Version, ChunkID: e.ID, Message: "chunk smaller than its header"})
			continue
		}

		// Each decoder sees only its own bytes.
		r := NewReader(data[:end])
		if err := r.Seek(start); err != nil {
			return nil, withChunk(err, e)
		}
		c, err := fn(&DecodeContext{Entry: e, Reader: r, End: end})
		if err != nil {
			err = withChunk(err, e)
			kind, _ := KindOf(err)
			if kind.Fatal() {
				return nil, err
			}
			f.warn(log, Warning{Kind: kind, Type: e.Type, Version: e.Version, ChunkID: e.ID, Message: err.Error()})
			continue
		}
		f.Chunks[e.ID] = c
	}
	return f, nil
}

func (f *File) warn(log *zap.Logger, w Warning) {
	f.Warnings = append(f.Warnings, w)
	log.Warn("chunk skipped",
		zap.Stringer("kind", w.Kind),
		zap.Stringer("type", w.Type),
		zap.String("version", hexVersion(w.Version)),
		zap.Int32("id", w.ChunkID),
		zap.String("reason", w.Message))
}

// Warn records a warning raised after decode (geometry assembly, lookups).
func (f *File) Warn(log *zap.Logger, w Warning) {
	if log == nil {
		log = zap.NewNop()
	}
	f.warn(log, w)
}

func hexVersion(v uint32) string {
	return fmt.Sprintf("0x%X", v)
}

// Entry returns the table entry of chunk id.
func (f *File) Entry(id int32) (ChunkEntry, bool) {
	return f.Header.Find(id)
}

// Get returns the chunk with the given id as type T.
func Get[T Chunk](f *File, id int32) (T, bool) {
	var zero T
	c, ok := f.Chunks[id]
	if !ok {
		return zero, false
	}
	t, ok := c.(T)
	return t, ok
}

// All returns every chunk of type T in table order.
func All[T Chunk](f *File) []T {
	var out []T
	for _, e := range f.Header.Entries {
		if c, ok := f.Chunks[e.ID]; ok {
			if t, ok := c.(T); ok {
				out = append(out, t)
			}
		}
	}
	return out
}

// First returns the first chunk of type T in table order.
func First[T Chunk](f *File) (T, bool) {
	var zero T
	all := All[T](f)
	if len(all) == 0 {
		return zero, false
	}
	return all[0], true
}
