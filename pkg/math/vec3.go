// Package math converts transforms between the CryEngine axis convention
// and the glTF one and holds the small matrix helpers the decoders share.
package math

import "github.com/go-gl/mathgl/mgl32"

// SwapVec3 maps a source-space vector to target space: (x,y,z) -> (-x,z,y).
func SwapVec3(v [3]float32) [3]float32 {
	return [3]float32{-v[0], v[2], v[1]}
}

// SwapVec3s converts a slice of vectors in place and returns it.
func SwapVec3s(vs [][3]float32) [][3]float32 {
	for i, v := range vs {
		vs[i] = SwapVec3(v)
	}
	return vs
}

// SwapTangents converts tangent xyz in place, keeping the handedness in w.
func SwapTangents(ts [][4]float32) [][4]float32 {
	for i, t := range ts {
		ts[i] = [4]float32{-t[0], t[2], t[1], t[3]}
	}
	return ts
}

// Cross returns a x b.
func Cross(a, b [3]float32) [3]float32 {
	return mgl32.Vec3(a).Cross(mgl32.Vec3(b))
}

// Normalize returns v scaled to unit length, or v unchanged if it is zero.
func Normalize(v [3]float32) [3]float32 {
	l := mgl32.Vec3(v).Len()
	if l == 0 {
		return v
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}
