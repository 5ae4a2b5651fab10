package cgf

import "fmt"

// ChunkType identifies a chunk kind using the 16-bit numbering of 0x746 files.
type ChunkType uint32

// Chunk types.
const (
	ChunkMesh            ChunkType = 0x1000
	ChunkHelper          ChunkType = 0x1001
	ChunkVertAnim        ChunkType = 0x1002
	ChunkBoneAnim        ChunkType = 0x1003
	ChunkGeomNameList    ChunkType = 0x1004
	ChunkBoneNameList    ChunkType = 0x1005
	ChunkMtlList         ChunkType = 0x1006
	ChunkMRM             ChunkType = 0x1007
	ChunkSceneProps      ChunkType = 0x1008
	ChunkLight           ChunkType = 0x1009
	ChunkPatchMesh       ChunkType = 0x100A
	ChunkNode            ChunkType = 0x100B
	ChunkMtl             ChunkType = 0x100C
	ChunkController      ChunkType = 0x100D
	ChunkTiming          ChunkType = 0x100E
	ChunkBoneMesh        ChunkType = 0x100F
	ChunkBoneLightBind   ChunkType = 0x1010
	ChunkMeshMorphTarget ChunkType = 0x1011
	ChunkBoneInitialPos  ChunkType = 0x1012
	ChunkSourceInfo      ChunkType = 0x1013
	ChunkMtlName         ChunkType = 0x1014
	ChunkExportFlags     ChunkType = 0x1015
	ChunkDataStream      ChunkType = 0x1016
	ChunkMeshSubsets     ChunkType = 0x1017
	ChunkMeshPhysicsData ChunkType = 0x1018

	ChunkCompiledBones         ChunkType = 0x2000
	ChunkCompiledPhysicalBones ChunkType = 0x2001
	ChunkCompiledMorphTargets  ChunkType = 0x2002
	ChunkCompiledPhysicalProxy ChunkType = 0x2003
	ChunkCompiledIntFaces      ChunkType = 0x2004
	ChunkCompiledIntSkinVerts  ChunkType = 0x2005
	ChunkCompiledExt2IntMap    ChunkType = 0x2006
	ChunkBreakablePhysics      ChunkType = 0x3000
	ChunkFaceMap               ChunkType = 0x3001
	ChunkMotionParameters      ChunkType = 0x3002
	ChunkFootPlantInfo         ChunkType = 0x3003
	ChunkBonesBoxes            ChunkType = 0x3004
	ChunkFoliageInfo           ChunkType = 0x3005
	ChunkTimestamp             ChunkType = 0x3006
	ChunkGlobalAnimHeaderCAF   ChunkType = 0x3007
	ChunkGlobalAnimHeaderAIM   ChunkType = 0x3008
	ChunkBspTreeData           ChunkType = 0x3009
)

var chunkTypeNames = map[ChunkType]string{
	ChunkMesh:                  "Mesh",
	ChunkHelper:                "Helper",
	ChunkVertAnim:              "VertAnim",
	ChunkBoneAnim:              "BoneAnim",
	ChunkGeomNameList:          "GeomNameList",
	ChunkBoneNameList:          "BoneNameList",
	ChunkMtlList:               "MtlList",
	ChunkMRM:                   "MRM",
	ChunkSceneProps:            "SceneProps",
	ChunkLight:                 "Light",
	ChunkPatchMesh:             "PatchMesh",
	ChunkNode:                  "Node",
	ChunkMtl:                   "Mtl",
	ChunkController:            "Controller",
	ChunkTiming:                "Timing",
	ChunkBoneMesh:              "BoneMesh",
	ChunkBoneLightBind:         "BoneLightBinding",
	ChunkMeshMorphTarget:       "MeshMorphTarget",
	ChunkBoneInitialPos:        "BoneInitialPos",
	ChunkSourceInfo:            "SourceInfo",
	ChunkMtlName:               "MtlName",
	ChunkExportFlags:           "ExportFlags",
	ChunkDataStream:            "DataStream",
	ChunkMeshSubsets:           "MeshSubsets",
	ChunkMeshPhysicsData:       "MeshPhysicsData",
	ChunkCompiledBones:         "CompiledBones",
	ChunkCompiledPhysicalBones: "CompiledPhysicalBones",
	ChunkCompiledMorphTargets:  "CompiledMorphTargets",
	ChunkCompiledPhysicalProxy: "CompiledPhysicalProxies",
	ChunkCompiledIntFaces:      "CompiledIntFaces",
	ChunkCompiledIntSkinVerts:  "CompiledIntSkinVertices",
	ChunkCompiledExt2IntMap:    "CompiledExt2IntMap",
	ChunkBreakablePhysics:      "BreakablePhysics",
	ChunkFaceMap:               "FaceMap",
	ChunkMotionParameters:      "MotionParameters",
	ChunkFootPlantInfo:         "FootPlantInfo",
	ChunkBonesBoxes:            "BonesBoxes",
	ChunkFoliageInfo:           "FoliageInfo",
	ChunkTimestamp:             "Timestamp",
	ChunkGlobalAnimHeaderCAF:   "GlobalAnimationHeaderCAF",
	ChunkGlobalAnimHeaderAIM:   "GlobalAnimationHeaderAIM",
	ChunkBspTreeData:           "BspTreeData",
}

// String returns the chunk type name, or its hex value if unknown.
func (t ChunkType) String() string {
	if name, ok := chunkTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("0x%X", uint32(t))
}

// NormalizeType maps 32-bit chunk types of 0x744/0x745 files
// (0xCCCC00xx, 0xACDC00xx, 0xAAFC00xx) onto the 16-bit numbering.
func NormalizeType(raw uint32) ChunkType {
	switch raw & 0xFFFF0000 {
	case 0xCCCC0000:
		return ChunkType(0x1000 + raw&0xFFFF)
	case 0xACDC0000:
		return ChunkType(0x2000 + raw&0xFFFF)
	case 0xAAFC0000:
		return ChunkType(0x3000 + raw&0xFFFF)
	}
	return ChunkType(raw)
}

// Chunk is a decoded chunk. The set of implementations is closed.
type Chunk interface {
	chunk()
}

func (*Mesh) chunk()             {}
func (*MeshSubsets) chunk()      {}
func (*DataStream) chunk()       {}
func (*CompiledBones) chunk()    {}
func (*Controller) chunk()       {}
func (*MotionParameters) chunk() {}
func (*Timing) chunk()           {}
func (*MtlName) chunk()          {}
func (*Node) chunk()             {}
func (*Helper) chunk()           {}
func (*SourceInfo) chunk()       {}
func (*ExportFlags) chunk()      {}

// Node is a scene node chunk.
type Node struct {
	Name          string
	ObjectID      int32 // id of the mesh or helper chunk
	ParentID      int32 // -1 for roots
	NumChildren   int32
	MaterialID    int32 // id of the MtlName chunk
	IsGroupHead   bool
	IsGroupMember bool
	Transform     [16]float32 // row-major, translation in the last row
	Position      [3]float32
	Rotation      [4]float32
	Scale         [3]float32
	PosCtrlID     int32
	RotCtrlID     int32
	ScaleCtrlID   int32
	Properties    string
}

// HelperType is the kind of a helper object.
type HelperType uint32

const (
	HelperPoint HelperType = iota
	HelperDummy
	HelperXRef
	HelperCamera
	HelperGeometry
)

// Helper is a non-geometry node payload.
type Helper struct {
	HelperType HelperType
	Size       [3]float32
}

// MtlName names the material file (or material) used by a node.
type MtlName struct {
	Name            string
	PhysicsType     uint32
	NumSubMaterials int32
	SubMaterialIDs  []int32 // 0x800 only
	SubPhysics      []uint32
}

// MotionParameters carries the time base and motion info of an animation.
type MotionParameters struct {
	AssetFlags    uint32
	Compression   uint32
	TicksPerFrame int32
	SecsPerTick   float32
	Start         int32
	End           int32
	MoveSpeed     float32
	TurnSpeed     float32
	AssetTurn     float32
	Distance      float32
	Slope         float32
}

// Timing is the legacy time base chunk.
type Timing struct {
	SecsPerTick   float32
	TicksPerFrame int32
	RangeName     string
	Start         int32
	End           int32
}

// SourceInfo is the exporter's source file note.
type SourceInfo struct {
	Text string
}

// ExportFlags holds exporter flags.
type ExportFlags struct {
	Flags         uint32
	RCVersion     [4]uint32
	RCVersionText string
}
