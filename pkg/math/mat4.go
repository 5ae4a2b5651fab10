package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// axisPerm and axisSign describe T, the source->target axis matrix:
// row i of T has axisSign[i] at column axisPerm[i]. T is its own inverse.
var (
	axisPerm = [4]int{0, 2, 1, 3}
	axisSign = [4]float32{-1, 1, 1, 1}
)

// swapIndex/swapSign remap the 16 entries of a column-major matrix so
// that SwapMat4(M) equals T*M*T^-1.
var (
	swapIndex [16]int
	swapSign  [16]float32
)

func init() {
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			swapIndex[col*4+row] = axisPerm[col]*4 + axisPerm[row]
			swapSign[col*4+row] = axisSign[row] * axisSign[col]
		}
	}
}

// SwapMat4 converts a source-space transform to target space.
func SwapMat4(m mgl32.Mat4) mgl32.Mat4 {
	var out mgl32.Mat4
	for i := range out {
		out[i] = swapSign[i] * m[swapIndex[i]]
	}
	return out
}

// Mat34ToMat4 expands a row-major 3x4 matrix (rotation | translation per
// row) into a column-major 4x4.
func Mat34ToMat4(m [12]float32) mgl32.Mat4 {
	out := mgl32.Ident4()
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			out.Set(row, col, m[row*4+col])
		}
	}
	return out
}

// RowMajor44 reads a row-vector 4x4 matrix (translation in the last
// row). Its memory layout is already column-major for column vectors.
func RowMajor44(m [16]float32) mgl32.Mat4 {
	return mgl32.Mat4(m)
}

// Decompose splits an affine matrix into translation, rotation (xyzw)
// and scale. A negative determinant is folded into the X scale. ok is
// false for a zero-length axis or a sheared basis, which TRS cannot
// express.
func Decompose(m mgl32.Mat4) (t [3]float32, r [4]float32, s [3]float32, ok bool) {
	t = [3]float32{m[12], m[13], m[14]}
	c0 := mgl32.Vec3{m[0], m[1], m[2]}
	c1 := mgl32.Vec3{m[4], m[5], m[6]}
	c2 := mgl32.Vec3{m[8], m[9], m[10]}
	s = [3]float32{c0.Len(), c1.Len(), c2.Len()}
	if s[0] < 1e-6 || s[1] < 1e-6 || s[2] < 1e-6 {
		return t, [4]float32{0, 0, 0, 1}, s, false
	}
	c0, c1, c2 = c0.Mul(1/s[0]), c1.Mul(1/s[1]), c2.Mul(1/s[2])
	if c0.Cross(c1).Dot(c2) < 0 {
		s[0] = -s[0]
		c0 = c0.Mul(-1)
	}
	const shearEps = 1e-3
	if abs(c0.Dot(c1)) > shearEps || abs(c0.Dot(c2)) > shearEps || abs(c1.Dot(c2)) > shearEps {
		return t, [4]float32{0, 0, 0, 1}, s, false
	}
	rot := mgl32.Mat4{
		c0[0], c0[1], c0[2], 0,
		c1[0], c1[1], c1[2], 0,
		c2[0], c2[1], c2[2], 0,
		0, 0, 0, 1,
	}
	r = NormalizeQuat(FromMgl(mgl32.Mat4ToQuat(rot)))
	return t, r, s, true
}

func abs(f float32) float32 {
	return float32(math.Abs(float64(f)))
}
