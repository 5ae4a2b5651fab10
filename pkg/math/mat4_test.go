package math

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestSwapVec3Convention(t *testing.T) {
	tests := []struct {
		in   [3]float32
		want [3]float32
	}{
		{[3]float32{1, 0, 0}, [3]float32{-1, 0, 0}},
		{[3]float32{0, 1, 0}, [3]float32{0, 0, 1}},
		{[3]float32{0, 0, 1}, [3]float32{0, 1, 0}},
		{[3]float32{1, 2, 3}, [3]float32{-1, 3, 2}},
	}

	for _, tt := range tests {
		if got := SwapVec3(tt.in); got != tt.want {
			t.Errorf("SwapVec3(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSwapMat4MatchesConjugation(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3).
		Mul4(mgl32.HomogRotate3DZ(0.7)).
		Mul4(mgl32.HomogRotate3DX(-0.3)).
		Mul4(mgl32.Scale3D(1, 2, 0.5))

	tm := axisMatrix()
	want := tm.Mul4(m).Mul4(tm.Inv())
	got := SwapMat4(m)

	for i := range got {
		if abs(got[i]-want[i]) > 1e-5 {
			t.Fatalf("SwapMat4 element %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestSwapMat4TransformsPointsLikeSwapVec3(t *testing.T) {
	m := mgl32.Translate3D(5, -2, 7).Mul4(mgl32.HomogRotate3DY(1.1))
	p := mgl32.Vec3{0.5, 1.5, -2}

	viaSource := SwapVec3([3]float32(mgl32.TransformCoordinate(p, m)))
	viaTarget := mgl32.TransformCoordinate(mgl32.Vec3(SwapVec3([3]float32(p))), SwapMat4(m))

	for i := 0; i < 3; i++ {
		if abs(viaSource[i]-viaTarget[i]) > 1e-5 {
			t.Errorf("component %d: %f vs %f", i, viaSource[i], viaTarget[i])
		}
	}
}

func TestMat34ToMat4(t *testing.T) {
	m := Mat34ToMat4([12]float32{
		1, 0, 0, 10,
		0, 1, 0, 20,
		0, 0, 1, 30,
	})

	// Translation should be in column 4 (indices 12, 13, 14)
	if m[12] != 10 || m[13] != 20 || m[14] != 30 {
		t.Errorf("translation: got (%f, %f, %f), want (10, 20, 30)", m[12], m[13], m[14])
	}
	if m[15] != 1 || m[3] != 0 || m[7] != 0 || m[11] != 0 {
		t.Error("bottom row should be (0, 0, 0, 1)")
	}
}

func TestDecompose(t *testing.T) {
	rot := mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{0, 1, 0})
	m := mgl32.Translate3D(1, 2, 3).Mul4(rot.Mat4()).Mul4(mgl32.Scale3D(2, 3, 4))

	tr, r, s, ok := Decompose(m)
	if !ok {
		t.Fatal("Decompose() rejected a TRS matrix")
	}
	if tr != [3]float32{1, 2, 3} {
		t.Errorf("translation = %v", tr)
	}
	for i, want := range [3]float32{2, 3, 4} {
		if abs(s[i]-want) > 1e-5 {
			t.Errorf("scale[%d] = %f, want %f", i, s[i], want)
		}
	}
	want := FromMgl(rot)
	dot := r[0]*want[0] + r[1]*want[1] + r[2]*want[2] + r[3]*want[3]
	if abs(abs(dot)-1) > 1e-4 {
		t.Errorf("rotation = %v, want %v", r, want)
	}
}

func TestDecomposeRejects(t *testing.T) {
	shear := mgl32.Ident4()
	shear.Set(0, 1, 1)
	tests := []struct {
		name string
		m    mgl32.Mat4
	}{
		{"zero", mgl32.Mat4{}},
		{"flat axis", mgl32.Scale3D(1, 0, 1)},
		{"shear", shear},
	}
	for _, tt := range tests {
		if _, _, _, ok := Decompose(tt.m); ok {
			t.Errorf("Decompose(%s) succeeded", tt.name)
		}
	}
}

func TestDecomposeMirror(t *testing.T) {
	m := mgl32.Translate3D(0, 1, 0).Mul4(mgl32.Scale3D(-2, 1, 1))
	_, r, s, ok := Decompose(m)
	if !ok {
		t.Fatal("Decompose() rejected a mirrored matrix")
	}
	if s != [3]float32{-2, 1, 1} {
		t.Errorf("scale = %v, want (-2,1,1)", s)
	}
	if abs(abs(r[3])-1) > 1e-5 {
		t.Errorf("rotation = %v, want identity", r)
	}
}

// axisMatrix returns the source->target axis matrix T.
func axisMatrix() mgl32.Mat4 {
	var t mgl32.Mat4
	for row := 0; row < 4; row++ {
		t.Set(row, axisPerm[row], axisSign[row])
	}
	return t
}
