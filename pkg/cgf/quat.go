package cgf

import "math"

// Small-tree quaternion compression stores three components as fixed
// point values in [-smallTreeRange, smallTreeRange] and the index of the
// dropped (largest) one; that component is rebuilt from the unit norm.
const smallTreeRange = 0.707107

const (
	max15Bit = 1<<15 - 1
	max20Bit = 1<<20 - 1
	max21Bit = 1<<21 - 1
)

// DecodeSmallTree48 unpacks a 48-bit small-tree quaternion (x,y,z,w).
// Bits 46-47 hold the dropped component index; three 15-bit values are
// packed from bit 0, assigned to components from w down to x.
func DecodeSmallTree48(m1, m2, m3 uint16) [4]float32 {
	comp := uint64(m1) | uint64(m2)<<16 | uint64(m3)<<32
	index := int(comp >> 46 & 3)
	var q [4]float32
	var sum float64
	shift := uint(0)
	for i := 3; i >= 0; i-- {
		if i == index {
			continue
		}
		v := (comp >> shift) & max15Bit
		q[i] = unpackFixed(v, max15Bit)
		sum += float64(q[i]) * float64(q[i])
		shift += 15
	}
	q[index] = float32(math.Sqrt(math.Max(0, 1-sum)))
	return q
}

// DecodeSmallTree64 unpacks a 64-bit small-tree quaternion: a 2-bit index
// in bits 62-63, two 21-bit components followed by one 20-bit component.
func DecodeSmallTree64(lo, hi uint32) [4]float32 {
	comp := uint64(lo) | uint64(hi)<<32
	index := int(comp >> 62)
	var q [4]float32
	var sum float64
	shift := uint(0)
	decoded := 0
	for i := 3; i >= 0; i-- {
		if i == index {
			continue
		}
		if decoded < 2 {
			q[i] = unpackFixed((comp>>shift)&max21Bit, max21Bit)
			shift += 21
		} else {
			q[i] = unpackFixed((comp>>shift)&max20Bit, max20Bit)
		}
		decoded++
		sum += float64(q[i]) * float64(q[i])
	}
	q[index] = float32(math.Sqrt(math.Max(0, 1-sum)))
	return q
}

func unpackFixed(v uint64, max uint64) float32 {
	return float32(float64(v)/float64(max)*(2*smallTreeRange) - smallTreeRange)
}
