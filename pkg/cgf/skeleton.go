package cgf

import (
	"github.com/go-gl/mathgl/mgl32"

	xmath "github.com/Faultbox/cryconv/pkg/math"
)

const (
	compiledBonesReserved = 32
	compiledBoneSize      = 584
	physicsGeometrySize   = 104
)

// Bone is one compiled bone record. Bones form an arena: the parent of
// bone i is bone i+OffsetParent, and OffsetParent 0 marks a root.
type Bone struct {
	ControllerID uint32
	Mass         float32

	// BoneToWorld and WorldToBone are row-major 3x4 matrices in file
	// order. WorldToBone holds the bind pose placement of the bone in
	// model space.
	BoneToWorld [12]float32
	WorldToBone [12]float32

	Name         string
	LimbID       uint32
	OffsetParent int32
	NumChildren  uint32
	OffsetChild  int32
}

// CompiledBones is the skeleton chunk of .chr files.
type CompiledBones struct {
	Bones []Bone
}

func decodeCompiledBones(ctx *DecodeContext) (Chunk, error) {
	r := ctx.Reader
	if err := r.Skip(compiledBonesReserved); err != nil {
		return nil, err
	}
	n := r.Remaining() / compiledBoneSize

	bones, err := ReadArray(r, n, readBone)
	if err != nil {
		return nil, err
	}
	cb := &CompiledBones{Bones: bones}
	if _, err := NewSkeleton(cb); err != nil {
		return nil, err
	}
	return cb, nil
}

func readBone(r *Reader) (Bone, error) {
	var b Bone
	var err error
	if b.ControllerID, err = r.U32(); err != nil {
		return b, err
	}
	if err = r.Skip(2 * physicsGeometrySize); err != nil {
		return b, err
	}
	if b.Mass, err = r.F32(); err != nil {
		return b, err
	}
	m, err := r.F32s(24)
	if err != nil {
		return b, err
	}
	copy(b.BoneToWorld[:], m[:12])
	copy(b.WorldToBone[:], m[12:])
	if b.Name, err = r.String(256); err != nil {
		return b, err
	}
	if b.LimbID, err = r.U32(); err != nil {
		return b, err
	}
	if b.OffsetParent, err = r.I32(); err != nil {
		return b, err
	}
	if b.NumChildren, err = r.U32(); err != nil {
		return b, err
	}
	if b.OffsetChild, err = r.I32(); err != nil {
		return b, err
	}
	return b, nil
}

// Skeleton is a validated view over a bone arena.
type Skeleton struct {
	Bones   []Bone
	parents []int // -1 for roots
}

// NewSkeleton validates parent offsets. Every parent must lie in [0, N)
// and every parent chain must reach a root within N steps.
func NewSkeleton(cb *CompiledBones) (*Skeleton, error) {
	n := len(cb.Bones)
	s := &Skeleton{Bones: cb.Bones, parents: make([]int, n)}
	for i, b := range cb.Bones {
		if b.OffsetParent == 0 {
			s.parents[i] = -1
			continue
		}
		p := i + int(b.OffsetParent)
		if p < 0 || p >= n {
			return nil, newError(KindCorruptSkeleton, "bone %d %q has parent index %d outside [0,%d)", i, b.Name, p, n)
		}
		s.parents[i] = p
	}
	for i := range s.parents {
		j, steps := i, 0
		for s.parents[j] >= 0 {
			j = s.parents[j]
			steps++
			if steps > n {
				return nil, newError(KindCorruptSkeleton, "bone %d %q is part of a parent cycle", i, s.Bones[i].Name)
			}
		}
	}
	return s, nil
}

// Len returns the bone count.
func (s *Skeleton) Len() int { return len(s.Bones) }

// Parent returns the parent index of bone i, or -1 for a root.
func (s *Skeleton) Parent(i int) int { return s.parents[i] }

// Roots returns the indices of root bones in arena order.
func (s *Skeleton) Roots() []int {
	var roots []int
	for i, p := range s.parents {
		if p < 0 {
			roots = append(roots, i)
		}
	}
	return roots
}

// Children builds the child adjacency lists in arena order.
func (s *Skeleton) Children() [][]int {
	children := make([][]int, len(s.parents))
	for i, p := range s.parents {
		if p >= 0 {
			children[p] = append(children[p], i)
		}
	}
	return children
}

// BindMatrix returns the model-space bind pose of bone i in target axes.
func (s *Skeleton) BindMatrix(i int) mgl32.Mat4 {
	return xmath.SwapMat4(xmath.Mat34ToMat4(s.Bones[i].WorldToBone))
}

// InverseBindMatrix returns the inverse of BindMatrix(i).
func (s *Skeleton) InverseBindMatrix(i int) mgl32.Mat4 {
	return s.BindMatrix(i).Inv()
}

// LocalMatrix returns the transform of bone i relative to its parent,
// inverse(parent bind) * bind, in target axes. Roots return their bind.
func (s *Skeleton) LocalMatrix(i int) mgl32.Mat4 {
	m := s.BindMatrix(i)
	if p := s.parents[i]; p >= 0 {
		return s.BindMatrix(p).Inv().Mul4(m)
	}
	return m
}

// IndexByController maps controller ids to bone indices.
func (s *Skeleton) IndexByController() map[uint32]int {
	m := make(map[uint32]int, len(s.Bones))
	for i, b := range s.Bones {
		if _, dup := m[b.ControllerID]; !dup {
			m[b.ControllerID] = i
		}
	}
	return m
}
