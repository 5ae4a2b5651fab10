package cgf

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"

	xmath "github.com/Faultbox/cryconv/pkg/math"
)

// Primitive is the geometry of one mesh subset with zero-based indices.
// Values are in the source axis convention.
type Primitive struct {
	MaterialID int32
	Indices    []uint32
	Positions  [][3]float32
	Normals    [][3]float32
	TexCoords  [][2]float32
	Tangents   [][4]float32
	Colors     [][4]uint8
	Colors2    [][4]uint8
	Joints     [][4]uint16
	Weights    [][4]float32
}

// streams holds whole-mesh attribute arrays before they are split by subset.
type streams struct {
	positions [][3]float32
	normals   [][3]float32
	texCoords [][2]float32
	tangents  [][4]float32
	derived   [][3]float32 // normals rebuilt from tangent frames
	colors    [][4]uint8
	colors2   [][4]uint8
	joints    [][4]uint16
	weights   [][4]float32
	indices   []uint32
}

// DecodeGeometry turns mesh chunk meshID into one primitive per subset.
// Problems with individual streams or subsets are returned as warnings.
// A missing subsets chunk is a KindMissingReference error.
func DecodeGeometry(f *File, meshID int32) ([]Primitive, []Warning, error) {
	mesh, ok := Get[*Mesh](f, meshID)
	if !ok {
		return nil, nil, newError(KindMissingReference, "mesh chunk id %d", meshID)
	}
	subsets, ok := Get[*MeshSubsets](f, mesh.SubsetsID)
	if !ok {
		return nil, nil, newError(KindMissingReference, "mesh %d references subsets chunk id %d", meshID, mesh.SubsetsID)
	}

	var warns []Warning
	warn := func(kind ErrorKind, id int32, format string, args ...any) {
		w := Warning{Kind: kind, ChunkID: id, Message: fmt.Sprintf(format, args...)}
		if e, ok := f.Entry(id); ok {
			w.Type, w.Version = e.Type, e.Version
		}
		warns = append(warns, w)
	}

	var s streams
	for slot := StreamType(0); slot < numStreamSlots; slot++ {
		id := mesh.StreamID(slot)
		if id == 0 {
			continue
		}
		ds, ok := Get[*DataStream](f, id)
		if !ok {
			warn(KindMissingReference, id, "mesh %d %s stream chunk missing", meshID, slot)
			continue
		}
		if err := s.decode(ds); err != nil {
			warn(KindUnsupportedEncoding, id, "%v", err)
		}
	}

	prims := make([]Primitive, 0, len(subsets.Subsets))
	for i, sub := range subsets.Subsets {
		p, err := s.primitive(sub)
		if err != nil {
			warn(KindMissingReference, mesh.SubsetsID, "subset %d dropped: %v", i, err)
			continue
		}
		prims = append(prims, p)
	}
	return prims, warns, nil
}

func (s *streams) decode(ds *DataStream) error {
	n := int(ds.Count)
	size := int(ds.ElementSize)
	b := ds.Data
	le := binary.LittleEndian

	switch {
	case ds.StreamType == StreamPositions && size == 12:
		s.positions = readVec3s(b, n, 12)
	case ds.StreamType == StreamPositions && size == 8:
		s.positions = make([][3]float32, n)
		for i := range s.positions {
			o := i * 8
			s.positions[i] = [3]float32{half(le.Uint16(b[o:])), half(le.Uint16(b[o+2:])), half(le.Uint16(b[o+4:]))}
		}
	case ds.StreamType == StreamNormals && size == 12:
		s.normals = readVec3s(b, n, 12)
	case ds.StreamType == StreamTexCoords && size == 8:
		s.texCoords = make([][2]float32, n)
		for i := range s.texCoords {
			o := i * 8
			s.texCoords[i] = [2]float32{f32(le.Uint32(b[o:])), f32(le.Uint32(b[o+4:]))}
		}
	case ds.StreamType == StreamTangents && size == 16:
		s.tangents = make([][4]float32, n)
		s.derived = make([][3]float32, n)
		for i := range s.tangents {
			o := i * 16
			var t, bt [4]float32
			for k := 0; k < 4; k++ {
				t[k] = float32(int16(le.Uint16(b[o+k*2:]))) / 32767
				bt[k] = float32(int16(le.Uint16(b[o+8+k*2:]))) / 32767
			}
			s.tangents[i] = t
			n := xmath.Normalize(xmath.Cross([3]float32(t[:3]), [3]float32(bt[:3])))
			s.derived[i] = [3]float32{n[0] * t[3], n[1] * t[3], n[2] * t[3]}
		}
	case ds.StreamType == StreamColors && size == 4:
		s.colors = readRGBA(b, n)
	case ds.StreamType == StreamColors2 && size == 4:
		s.colors2 = readRGBA(b, n)
	case ds.StreamType == StreamBoneMapping && size == 8:
		s.joints = make([][4]uint16, n)
		s.weights = make([][4]float32, n)
		for i := 0; i < n; i++ {
			o := i * 8
			for k := 0; k < 4; k++ {
				s.joints[i][k] = uint16(b[o+k])
				s.weights[i][k] = float32(b[o+4+k]) / 255
			}
		}
	case ds.StreamType == StreamBoneMapping && size == 12:
		s.joints = make([][4]uint16, n)
		s.weights = make([][4]float32, n)
		for i := 0; i < n; i++ {
			o := i * 12
			for k := 0; k < 4; k++ {
				s.joints[i][k] = le.Uint16(b[o+k*2:])
				s.weights[i][k] = float32(b[o+8+k]) / 255
			}
		}
	case ds.StreamType == StreamP3sC4bT2s && size == 16:
		s.positions = make([][3]float32, n)
		s.colors = make([][4]uint8, n)
		s.texCoords = make([][2]float32, n)
		for i := 0; i < n; i++ {
			o := i * 16
			s.positions[i] = [3]float32{half(le.Uint16(b[o:])), half(le.Uint16(b[o+2:])), half(le.Uint16(b[o+4:]))}
			s.colors[i] = bgraToRGBA(b[o+8 : o+12])
			s.texCoords[i] = [2]float32{half(le.Uint16(b[o+12:])), half(le.Uint16(b[o+14:]))}
		}
	case ds.StreamType == StreamIndices && size == 2:
		s.indices = make([]uint32, n)
		for i := range s.indices {
			s.indices[i] = uint32(le.Uint16(b[i*2:]))
		}
	case ds.StreamType == StreamIndices && size == 4:
		s.indices = make([]uint32, n)
		for i := range s.indices {
			s.indices[i] = le.Uint32(b[i*4:])
		}
	default:
		return fmt.Errorf("%s stream with element size %d not supported", ds.StreamType, size)
	}
	return nil
}

// primitive slices the whole-mesh streams to one subset and rebases
// its indices on the subset's first vertex.
func (s *streams) primitive(sub MeshSubset) (Primitive, error) {
	p := Primitive{MaterialID: sub.MaterialID}
	if s.indices == nil {
		return p, fmt.Errorf("no decoded index stream")
	}
	first, count := int(sub.FirstIndex), int(sub.NumIndices)
	if first < 0 || count < 0 || first+count > len(s.indices) {
		return p, fmt.Errorf("index range [%d,+%d) outside %d indices", first, count, len(s.indices))
	}
	v0, nv := int(sub.FirstVertex), int(sub.NumVertices)
	if v0 < 0 || nv < 0 {
		return p, fmt.Errorf("negative vertex range [%d,+%d)", v0, nv)
	}

	p.Indices = make([]uint32, count)
	for i, idx := range s.indices[first : first+count] {
		rel := int64(idx) - int64(v0)
		if rel < 0 || rel >= int64(nv) {
			return p, fmt.Errorf("index %d outside subset vertex range [%d,+%d)", idx, v0, nv)
		}
		p.Indices[i] = uint32(rel)
	}

	p.Positions = sliceRange(s.positions, v0, nv)
	if p.Positions == nil {
		return p, fmt.Errorf("no positions for vertex range [%d,+%d)", v0, nv)
	}
	p.Normals = sliceRange(s.normals, v0, nv)
	if p.Normals == nil {
		p.Normals = sliceRange(s.derived, v0, nv)
	}
	p.TexCoords = sliceRange(s.texCoords, v0, nv)
	p.Tangents = sliceRange(s.tangents, v0, nv)
	p.Colors = sliceRange(s.colors, v0, nv)
	p.Colors2 = sliceRange(s.colors2, v0, nv)
	p.Joints = sliceRange(s.joints, v0, nv)
	p.Weights = sliceRange(s.weights, v0, nv)
	if p.Joints == nil || p.Weights == nil {
		p.Joints, p.Weights = nil, nil
	}
	return p, nil
}

// sliceRange copies src[start:start+n], or returns nil if the range is not covered.
func sliceRange[T any](src []T, start, n int) []T {
	if src == nil || start+n > len(src) {
		return nil
	}
	out := make([]T, n)
	copy(out, src[start:start+n])
	return out
}

func readVec3s(b []byte, n, stride int) [][3]float32 {
	le := binary.LittleEndian
	out := make([][3]float32, n)
	for i := range out {
		o := i * stride
		out[i] = [3]float32{f32(le.Uint32(b[o:])), f32(le.Uint32(b[o+4:])), f32(le.Uint32(b[o+8:]))}
	}
	return out
}

func readRGBA(b []byte, n int) [][4]uint8 {
	out := make([][4]uint8, n)
	for i := range out {
		copy(out[i][:], b[i*4:i*4+4])
	}
	return out
}

// bgraToRGBA reorders a packed BGRA colour.
func bgraToRGBA(b []byte) [4]uint8 {
	return [4]uint8{b[2], b[1], b[0], b[3]}
}

func f32(bits uint32) float32 {
	return math.Float32frombits(bits)
}

func half(bits uint16) float32 {
	return float16.Frombits(bits).Float32()
}
