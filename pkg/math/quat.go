package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// SwapQuat maps a source-space rotation (x,y,z,w) to (-x,z,y,w).
func SwapQuat(q [4]float32) [4]float32 {
	return [4]float32{-q[0], q[2], q[1], q[3]}
}

// QuatLen returns the quaternion norm.
func QuatLen(q [4]float32) float32 {
	return float32(math.Sqrt(float64(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])))
}

// NormalizeQuat returns q with unit length, or identity for a zero quaternion.
func NormalizeQuat(q [4]float32) [4]float32 {
	l := QuatLen(q)
	if l < 1e-6 {
		return [4]float32{0, 0, 0, 1}
	}
	return [4]float32{q[0] / l, q[1] / l, q[2] / l, q[3] / l}
}

// ToMgl converts an xyzw array to an mgl32 quaternion.
func ToMgl(q [4]float32) mgl32.Quat {
	return mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
}

// FromMgl converts an mgl32 quaternion to an xyzw array.
func FromMgl(q mgl32.Quat) [4]float32 {
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}
