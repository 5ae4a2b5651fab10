package cgf

// StreamType is the kind of data held by a DataStream chunk. Its value
// is also the mesh's stream slot index.
type StreamType uint32

const (
	StreamPositions StreamType = iota
	StreamNormals
	StreamTexCoords
	StreamColors
	StreamColors2
	StreamIndices
	StreamTangents
	StreamShCoeffs
	StreamShapeDeformation
	StreamBoneMapping
	StreamFaceMap
	StreamVertMats
	StreamQTangents
	StreamSkinData
	StreamPS3EdgeData
	StreamP3sC4bT2s

	numStreamSlots = 16
)

var streamTypeNames = [numStreamSlots]string{
	"Positions", "Normals", "TexCoords", "Colors", "Colors2", "Indices",
	"Tangents", "ShCoeffs", "ShapeDeformation", "BoneMapping", "FaceMap",
	"VertMats", "QTangents", "SkinData", "PS3EdgeData", "P3S_C4B_T2S",
}

// String returns the stream type name.
func (s StreamType) String() string {
	if int(s) < len(streamTypeNames) {
		return streamTypeNames[s]
	}
	return "Unknown"
}

// Mesh is a mesh chunk: counts, bounds and data stream references.
type Mesh struct {
	Flags       int32
	Flags2      int32
	NumVertices int32
	NumIndices  int32
	NumSubsets  int32
	SubsetsID   int32
	VertAnimID  int32

	// Streams holds the chunk ids per slot. 0x800/0x801 store one id
	// per slot, 0x802 stores eight.
	Streams    [numStreamSlots][]int32
	PhysicsIDs [4]int32
	BoundsMin  [3]float32
	BoundsMax  [3]float32
}

// StreamID returns the first non-zero chunk id recorded for slot.
func (m *Mesh) StreamID(slot StreamType) int32 {
	if int(slot) >= numStreamSlots {
		return 0
	}
	for _, id := range m.Streams[slot] {
		if id != 0 {
			return id
		}
	}
	return 0
}

func decodeMesh(ctx *DecodeContext) (Chunk, error) {
	r := ctx.Reader
	head, err := r.I32s(7)
	if err != nil {
		return nil, err
	}
	m := &Mesh{
		Flags:       head[0],
		Flags2:      head[1],
		NumVertices: head[2],
		NumIndices:  head[3],
		NumSubsets:  head[4],
		SubsetsID:   head[5],
		VertAnimID:  head[6],
	}

	perSlot := 1
	if ctx.Entry.Version == 0x802 {
		perSlot = 8
	}
	for slot := 0; slot < numStreamSlots; slot++ {
		if m.Streams[slot], err = r.I32s(perSlot); err != nil {
			return nil, err
		}
	}

	phys, err := r.I32s(4)
	if err != nil {
		return nil, err
	}
	copy(m.PhysicsIDs[:], phys)

	bounds, err := r.F32s(6)
	if err != nil {
		return nil, err
	}
	copy(m.BoundsMin[:], bounds[0:3])
	copy(m.BoundsMax[:], bounds[3:6])
	return m, nil
}

// MeshSubset is a contiguous index/vertex range drawn with one material.
type MeshSubset struct {
	FirstIndex  int32
	NumIndices  int32
	FirstVertex int32
	NumVertices int32
	MaterialID  int32
	Radius      float32
	Center      [3]float32
}

// MeshSubsets lists the subsets of a mesh.
type MeshSubsets struct {
	Flags   int32
	Subsets []MeshSubset
}

// meshSubsetSize is the on-disk size of one subset record: five int32
// fields, radius and center.
const meshSubsetSize = 5*4 + 4*4

func decodeMeshSubsets(ctx *DecodeContext) (Chunk, error) {
	r := ctx.Reader
	head, err := r.I32s(4) // flags, count, reserved x2
	if err != nil {
		return nil, err
	}
	count := int(head[1])
	if count < 0 || count*meshSubsetSize > r.Remaining() {
		return nil, newError(KindTruncatedBuffer, "%d subsets do not fit in %d bytes", count, r.Remaining())
	}

	subsets, err := ReadArray(r, count, func(r *Reader) (MeshSubset, error) {
		v, err := r.I32s(5)
		if err != nil {
			return MeshSubset{}, err
		}
		f, err := r.F32s(4)
		if err != nil {
			return MeshSubset{}, err
		}
		return MeshSubset{
			FirstIndex:  v[0],
			NumIndices:  v[1],
			FirstVertex: v[2],
			NumVertices: v[3],
			MaterialID:  v[4],
			Radius:      f[0],
			Center:      [3]float32{f[1], f[2], f[3]},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &MeshSubsets{Flags: head[0], Subsets: subsets}, nil
}

// DataStream is a raw vertex or index stream.
type DataStream struct {
	Flags       int32
	StreamType  StreamType
	StreamIndex int32
	Count       int32
	ElementSize int32
	Data        []byte
}

func decodeDataStream(ctx *DecodeContext) (Chunk, error) {
	r := ctx.Reader
	s := &DataStream{}
	var err error
	if s.Flags, err = r.I32(); err != nil {
		return nil, err
	}
	st, err := r.U32()
	if err != nil {
		return nil, err
	}
	s.StreamType = StreamType(st)
	if ctx.Entry.Version == 0x801 {
		if s.StreamIndex, err = r.I32(); err != nil {
			return nil, err
		}
	}
	if s.Count, err = r.I32(); err != nil {
		return nil, err
	}
	if s.ElementSize, err = r.I32(); err != nil {
		return nil, err
	}
	if err := r.Skip(8); err != nil {
		return nil, err
	}
	if s.Count < 0 || s.ElementSize < 0 {
		return nil, newError(KindTruncatedBuffer, "stream count %d element size %d", s.Count, s.ElementSize)
	}
	if s.Data, err = r.Bytes(int(s.Count) * int(s.ElementSize)); err != nil {
		return nil, err
	}
	return s, nil
}
