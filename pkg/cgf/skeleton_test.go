package cgf

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/cryconv/internal/cgftest"
	xmath "github.com/Faultbox/cryconv/pkg/math"
)

func skeletonFile(bones ...testBone) []byte {
	return buildCrCh(testChunk{ChunkCompiledBones, 0x800, 1, cgftest.Bones(bones...)})
}

func TestCompiledBones_ParentWalk(t *testing.T) {
	data := skeletonFile(
		testBone{Name: "Bip01", ControllerID: 100, OffsetParent: 0, Bind: cgftest.Translation(0, 0, 0)},
		testBone{Name: "Bip01 Pelvis", ControllerID: 101, OffsetParent: -1, Bind: cgftest.Translation(0, 0, 1)},
		testBone{Name: "Bip01 Spine", ControllerID: 102, OffsetParent: -1, Bind: cgftest.Translation(0, 0, 2)},
		testBone{Name: "Bip01 L Thigh", ControllerID: 103, OffsetParent: -2, Bind: cgftest.Translation(1, 0, 1)},
	)
	f, err := Decode(data, Options{})
	if err != nil {
		t.Fatal(err)
	}
	cb, ok := First[*CompiledBones](f)
	if !ok {
		t.Fatalf("no bones chunk, warnings %v", f.Warnings)
	}
	if len(cb.Bones) != 4 {
		t.Fatalf("got %d bones, want 4", len(cb.Bones))
	}
	if cb.Bones[3].Name != "Bip01 L Thigh" || cb.Bones[3].ControllerID != 103 {
		t.Errorf("bone 3 = %+v", cb.Bones[3])
	}

	s, err := NewSkeleton(cb)
	if err != nil {
		t.Fatal(err)
	}
	wantParents := []int{-1, 0, 1, 1}
	for i, want := range wantParents {
		if got := s.Parent(i); got != want {
			t.Errorf("parent of %d = %d, want %d", i, got, want)
		}
	}
	// Every walk from a bone reaches a root in at most N steps.
	for i := 0; i < s.Len(); i++ {
		j, steps := i, 0
		for s.Parent(j) >= 0 {
			j = s.Parent(j)
			steps++
		}
		if steps > s.Len() {
			t.Errorf("bone %d took %d steps", i, steps)
		}
	}
	if roots := s.Roots(); len(roots) != 1 || roots[0] != 0 {
		t.Errorf("roots = %v", roots)
	}
	if kids := s.Children()[1]; len(kids) != 2 || kids[0] != 2 || kids[1] != 3 {
		t.Errorf("children of pelvis = %v", kids)
	}
	if idx := s.IndexByController()[102]; idx != 2 {
		t.Errorf("controller 102 -> bone %d", idx)
	}
}

func TestCompiledBones_Corrupt(t *testing.T) {
	tests := []struct {
		name  string
		bones []testBone
	}{
		{
			name: "parent below zero",
			bones: []testBone{
				{Name: "a", OffsetParent: -1},
			},
		},
		{
			name: "parent past end",
			bones: []testBone{
				{Name: "a"},
				{Name: "b", OffsetParent: 5},
			},
		},
		{
			name: "cycle",
			bones: []testBone{
				{Name: "a", OffsetParent: 1},
				{Name: "b", OffsetParent: -1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(skeletonFile(tt.bones...), Options{})
			if !errors.Is(err, ErrCorruptSkeleton) {
				t.Errorf("got %v, want ErrCorruptSkeleton", err)
			}
		})
	}
}

func TestSkeleton_LocalMatrix(t *testing.T) {
	cb := &CompiledBones{Bones: []Bone{
		{Name: "root", WorldToBone: cgftest.Translation(1, 0, 0)},
		{Name: "child", OffsetParent: -1, WorldToBone: cgftest.Translation(1, 2, 0)},
	}}
	s, err := NewSkeleton(cb)
	if err != nil {
		t.Fatal(err)
	}

	root := s.LocalMatrix(0)
	if got := [3]float32{root[12], root[13], root[14]}; got != xmath.SwapVec3([3]float32{1, 0, 0}) {
		t.Errorf("root translation = %v", got)
	}

	local := s.LocalMatrix(1)
	want := xmath.SwapVec3([3]float32{0, 2, 0})
	got := [3]float32{local[12], local[13], local[14]}
	for k := range got {
		if d := got[k] - want[k]; d > 1e-5 || d < -1e-5 {
			t.Fatalf("child local translation = %v, want %v", got, want)
		}
	}

	// Parent bind times child local gives the child bind.
	composed := s.BindMatrix(0).Mul4(local)
	if !composed.ApproxEqualThreshold(s.BindMatrix(1), 1e-5) {
		t.Errorf("parent * local = %v, want %v", composed, s.BindMatrix(1))
	}
	if !s.BindMatrix(1).Mul4(s.InverseBindMatrix(1)).ApproxEqualThreshold(mgl32.Ident4(), 1e-5) {
		t.Error("bind * inverse bind is not identity")
	}
}
