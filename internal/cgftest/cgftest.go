// Package cgftest builds small synthetic chunk files for tests.
package cgftest

import (
	"bytes"
	"encoding/binary"

	"github.com/Faultbox/cryconv/pkg/encoding"
)

// Chunk type ids in 0x746 numbering.
const (
	TypeMesh             uint16 = 0x1000
	TypeHelper           uint16 = 0x1001
	TypeNode             uint16 = 0x100B
	TypeController       uint16 = 0x100D
	TypeMtlName          uint16 = 0x1014
	TypeDataStream       uint16 = 0x1016
	TypeMeshSubsets      uint16 = 0x1017
	TypeCompiledBones    uint16 = 0x2000
	TypeMotionParameters uint16 = 0x3002
)

// Stream slots used by the mesh builder.
const (
	StreamPositions   = 0
	StreamNormals     = 1
	StreamTexCoords   = 2
	StreamColors      = 3
	StreamColors2     = 4
	StreamIndices     = 5
	StreamTangents    = 6
	StreamBoneMapping = 9
)

// Buf is a little-endian byte builder.
type Buf struct {
	bytes.Buffer
}

// Put writes fixed-size values.
func (b *Buf) Put(vs ...any) *Buf {
	for _, v := range vs {
		if err := binary.Write(&b.Buffer, binary.LittleEndian, v); err != nil {
			panic(err)
		}
	}
	return b
}

// Str writes s into a zero-padded field of n bytes.
func (b *Buf) Str(s string, n int) *Buf {
	b.Write(encoding.UTF8ToFixedString(s, n))
	return b
}

// Zeros writes n zero bytes.
func (b *Buf) Zeros(n int) *Buf {
	b.Write(make([]byte, n))
	return b
}

// Chunk is one chunk of a synthetic file.
type Chunk struct {
	Type    uint16
	Version uint16
	ID      int32
	Payload []byte
}

// CrCh lays out a 0x746 file.
func CrCh(chunks ...Chunk) []byte {
	const headerSize = 16
	var out Buf
	out.WriteString("CrCh")
	out.Put(uint32(0x746), uint32(len(chunks)), uint32(headerSize))
	offset := uint32(headerSize + 16*len(chunks))
	for _, c := range chunks {
		out.Put(c.Type, c.Version, c.ID, uint32(len(c.Payload)), offset)
		offset += uint32(len(c.Payload))
	}
	for _, c := range chunks {
		out.Write(c.Payload)
	}
	return out.Bytes()
}

// CryTek lays out a 0x744 or 0x745 file: embedded chunk headers before
// each payload and the chunk table at the end.
func CryTek(version uint32, chunks ...Chunk) []byte {
	const (
		headerSize   = 20
		embeddedSize = 16
		geometry     = uint32(0xFFFF0000)
	)
	var body Buf
	offsets := make([]uint32, len(chunks))
	for i, c := range chunks {
		offsets[i] = uint32(headerSize + body.Len())
		body.Put(uint32(c.Type), uint32(c.Version), offsets[i], c.ID)
		body.Write(c.Payload)
	}
	tableOffset := uint32(headerSize + body.Len())

	var out Buf
	out.WriteString("CryTek\x00\x00")
	out.Put(geometry, version, tableOffset)
	out.Write(body.Bytes())
	out.Put(uint32(len(chunks)))
	for i, c := range chunks {
		out.Put(uint32(c.Type), uint32(c.Version), offsets[i], c.ID)
		if version == 0x745 {
			out.Put(uint32(embeddedSize + len(c.Payload)))
		}
	}
	return out.Bytes()
}

// Mesh builds a 0x801 mesh chunk; streams maps slot to chunk id.
func Mesh(numVerts, numIndices, numSubsets, subsetsID int32, streams map[int]int32) []byte {
	var b Buf
	b.Put(int32(0), int32(0), numVerts, numIndices, numSubsets, subsetsID, int32(0))
	for slot := 0; slot < 16; slot++ {
		b.Put(streams[slot])
	}
	b.Zeros(16)
	b.Put([6]float32{})
	return b.Bytes()
}

// MeshV802 builds a 0x802 mesh chunk with eight chunk ids per slot.
func MeshV802(numVerts, numIndices, numSubsets, subsetsID int32, streams map[int][8]int32) []byte {
	var b Buf
	b.Put(int32(0), int32(0), numVerts, numIndices, numSubsets, subsetsID, int32(0))
	for slot := 0; slot < 16; slot++ {
		b.Put(streams[slot])
	}
	b.Zeros(16)
	b.Put([6]float32{})
	return b.Bytes()
}

// Stream builds a 0x800 data stream chunk.
func Stream(streamType uint32, count, elemSize int32, data any) []byte {
	var b Buf
	b.Put(int32(0), streamType, count, elemSize, int32(0), int32(0))
	b.Put(data)
	return b.Bytes()
}

// StreamV801 builds a 0x801 data stream chunk, which adds a stream index.
func StreamV801(streamType uint32, index, count, elemSize int32, data any) []byte {
	var b Buf
	b.Put(int32(0), streamType, index, count, elemSize, int32(0), int32(0))
	b.Put(data)
	return b.Bytes()
}

// Subset is one mesh subset record.
type Subset struct {
	FirstIndex  int32
	NumIndices  int32
	FirstVertex int32
	NumVertices int32
	MaterialID  int32
	Radius      float32
	Center      [3]float32
}

// Subsets builds a 0x800 mesh subsets chunk.
func Subsets(subs ...Subset) []byte {
	var b Buf
	b.Put(int32(0), int32(len(subs)), int32(0), int32(0))
	for _, s := range subs {
		b.Put(s.FirstIndex, s.NumIndices, s.FirstVertex, s.NumVertices, s.MaterialID, s.Radius, s.Center)
	}
	return b.Bytes()
}

// Bone is one compiled bone.
type Bone struct {
	Name         string
	ControllerID uint32
	OffsetParent int32
	Bind         [12]float32 // row-major 3x4, model space
}

// Bones builds a 0x800 compiled bones chunk.
func Bones(bones ...Bone) []byte {
	var b Buf
	b.Zeros(32)
	for _, bone := range bones {
		b.Put(bone.ControllerID)
		b.Zeros(208)
		b.Put(float32(1), bone.Bind, bone.Bind)
		b.Str(bone.Name, 256)
		b.Put(uint32(0), bone.OffsetParent, uint32(0), int32(0))
	}
	return b.Bytes()
}

// Translation returns a row-major 3x4 translation.
func Translation(x, y, z float32) [12]float32 {
	return [12]float32{1, 0, 0, x, 0, 1, 0, y, 0, 0, 1, z}
}

// Identity44 is the identity node transform.
var Identity44 = [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// Node builds a 0x824 node chunk. tm is row-major with the translation
// in the last row.
func Node(name string, objectID, parentID, materialID int32, tm [16]float32) []byte {
	var b Buf
	b.Str(name, 64)
	b.Put(objectID, parentID, int32(0), materialID)
	b.Zeros(4)
	b.Put(tm)
	b.Put([10]float32{})
	b.Put([4]int32{})
	return b.Bytes()
}

// MtlName builds a 0x802 material name chunk.
func MtlName(name string) []byte {
	var b Buf
	b.Str(name, 128)
	b.Put(int32(0))
	return b.Bytes()
}

// Controller builds an unaligned 0x831 controller with raw keys, f32
// times, and positions sharing the rotation times.
func Controller(id uint32, rots [][4]float32, pos [][3]float32, ticks []float32) []byte {
	var b Buf
	b.Put(id, uint32(0), uint16(len(rots)), uint16(len(pos)))
	b.Put([6]uint8{1, 0, 2, 0, 0, 0})
	b.Put(rots, ticks, pos)
	return b.Bytes()
}

// MotionParameters builds a 0x925 motion parameters chunk.
func MotionParameters(ticksPerFrame int32, secsPerTick float32) []byte {
	var b Buf
	b.Put(uint32(0), uint32(0), ticksPerFrame, secsPerTick, int32(0), int32(0))
	b.Put([5]float32{})
	return b.Bytes()
}

// Quad returns a one-node model holding a two-triangle square with one
// subset using material 0. extra chunks are appended to the table.
func Quad(extra ...Chunk) []byte {
	positions := [4][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	normals := [4][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	uvs := [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	indices := [6]uint16{0, 1, 2, 0, 2, 3}
	chunks := []Chunk{
		{TypeNode, 0x824, 10, Node("quad", 1, -1, 20, Identity44)},
		{TypeMesh, 0x801, 1, Mesh(4, 6, 1, 2, map[int]int32{
			StreamPositions: 3, StreamNormals: 4, StreamTexCoords: 5, StreamIndices: 6,
		})},
		{TypeMeshSubsets, 0x800, 2, Subsets(Subset{NumIndices: 6, NumVertices: 4})},
		{TypeDataStream, 0x800, 3, Stream(StreamPositions, 4, 12, positions)},
		{TypeDataStream, 0x800, 4, Stream(StreamNormals, 4, 12, normals)},
		{TypeDataStream, 0x800, 5, Stream(StreamTexCoords, 4, 8, uvs)},
		{TypeDataStream, 0x800, 6, Stream(StreamIndices, 6, 2, indices)},
		{TypeMtlName, 0x802, 20, MtlName("quad")},
	}
	return CrCh(append(chunks, extra...)...)
}

// Character returns a skinned two-bone model without Node chunks: a
// triangle weighted to bone 1, controller ids 100 and 101.
func Character() []byte {
	positions := [3][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}}
	indices := [3]uint16{0, 1, 2}
	type mapping struct {
		Joints  [4]uint16
		Weights [4]uint8
	}
	skin := [3]mapping{
		{Joints: [4]uint16{0}, Weights: [4]uint8{255}},
		{Joints: [4]uint16{1}, Weights: [4]uint8{255}},
		{Joints: [4]uint16{1, 0}, Weights: [4]uint8{128, 127}},
	}
	return CrCh(
		Chunk{TypeCompiledBones, 0x800, 1, Bones(
			Bone{Name: "root", ControllerID: 100, Bind: Translation(0, 0, 0)},
			Bone{Name: "arm", ControllerID: 101, OffsetParent: -1, Bind: Translation(0, 0, 1)},
		)},
		Chunk{TypeMesh, 0x801, 2, Mesh(3, 3, 1, 3, map[int]int32{
			StreamPositions: 4, StreamIndices: 5, StreamBoneMapping: 6,
		})},
		Chunk{TypeMeshSubsets, 0x800, 3, Subsets(Subset{NumIndices: 3, NumVertices: 3})},
		Chunk{TypeDataStream, 0x800, 4, Stream(StreamPositions, 3, 12, positions)},
		Chunk{TypeDataStream, 0x800, 5, Stream(StreamIndices, 3, 2, indices)},
		Chunk{TypeDataStream, 0x800, 6, Stream(StreamBoneMapping, 3, 12, skin)},
	)
}

// Animation returns an animation file with one rotation+position track
// per controller id, keyed at ticks 0 and 30 with a 1/30 s tick.
func Animation(ids ...uint32) []byte {
	chunks := []Chunk{{TypeMotionParameters, 0x925, 1, MotionParameters(30, 1.0/30)}}
	for i, id := range ids {
		chunks = append(chunks, Chunk{TypeController, 0x831, int32(10 + i), Controller(id,
			[][4]float32{{0, 0, 0, 1}, {0, 0, 0.7071068, 0.7071068}},
			[][3]float32{{0, 0, 0}, {0, 1, 0}},
			[]float32{0, 30},
		)})
	}
	return CrCh(chunks...)
}
