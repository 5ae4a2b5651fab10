package cgf

import "github.com/Faultbox/cryconv/internal/cgftest"

type (
	buf      = cgftest.Buf
	testBone = cgftest.Bone
)

type testChunk struct {
	typ     ChunkType
	ver     uint16
	id      int32
	payload []byte
}

func rawChunks(chunks []testChunk) []cgftest.Chunk {
	out := make([]cgftest.Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = cgftest.Chunk{Type: uint16(c.typ), Version: c.ver, ID: c.id, Payload: c.payload}
	}
	return out
}

// buildCrCh lays out a 0x746 file: header, chunk table, then payloads.
func buildCrCh(chunks ...testChunk) []byte {
	return cgftest.CrCh(rawChunks(chunks)...)
}

// buildCryTek lays out a 0x744 or 0x745 file with embedded chunk headers
// and the chunk table at the end.
func buildCryTek(version uint32, chunks ...testChunk) []byte {
	return cgftest.CryTek(version, rawChunks(chunks)...)
}

// meshPayload builds a 0x801 mesh chunk. streams maps slot to chunk id.
func meshPayload(numVerts, numIndices, numSubsets, subsetsID int32, streams map[StreamType]int32) []byte {
	slots := make(map[int]int32, len(streams))
	for st, id := range streams {
		slots[int(st)] = id
	}
	return cgftest.Mesh(numVerts, numIndices, numSubsets, subsetsID, slots)
}

func streamPayload(st StreamType, count, elemSize int32, data any) []byte {
	return cgftest.Stream(uint32(st), count, elemSize, data)
}

func subsetsPayload(subs ...MeshSubset) []byte {
	out := make([]cgftest.Subset, len(subs))
	for i, s := range subs {
		out[i] = cgftest.Subset{
			FirstIndex:  s.FirstIndex,
			NumIndices:  s.NumIndices,
			FirstVertex: s.FirstVertex,
			NumVertices: s.NumVertices,
			MaterialID:  s.MaterialID,
			Radius:      s.Radius,
			Center:      s.Center,
		}
	}
	return cgftest.Subsets(out...)
}

// quadFile is a two-triangle square without normals: 4 vertices, 6
// indices, one subset.
func quadFile() []byte {
	positions := [4][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	uvs := [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	indices := [6]uint16{0, 1, 2, 0, 2, 3}
	return buildCrCh(
		testChunk{ChunkMesh, 0x801, 1, meshPayload(4, 6, 1, 2, map[StreamType]int32{
			StreamPositions: 3, StreamTexCoords: 4, StreamIndices: 5,
		})},
		testChunk{ChunkMeshSubsets, 0x800, 2, subsetsPayload(MeshSubset{NumIndices: 6, NumVertices: 4})},
		testChunk{ChunkDataStream, 0x800, 3, streamPayload(StreamPositions, 4, 12, positions)},
		testChunk{ChunkDataStream, 0x800, 4, streamPayload(StreamTexCoords, 4, 8, uvs)},
		testChunk{ChunkDataStream, 0x800, 5, streamPayload(StreamIndices, 6, 2, indices)},
	)
}
