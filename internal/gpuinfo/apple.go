package gpuinfo

import "strings"

// AppleGPU is an Apple GPU generation.
type AppleGPU int

// Apple GPU generations.
const (
	AppleUnknown AppleGPU = iota
	AppleA7
	AppleA8
	AppleA9
	AppleA10
	AppleA11
	AppleA12
	AppleA13
	AppleA14
	AppleA15
	AppleM1
	AppleM1Pro
	AppleM1Max
)

// appleNames is ordered so that longer names match before their prefixes.
var appleNames = []struct {
	token string
	gpu   AppleGPU
}{
	{"m1 max", AppleM1Max},
	{"m1 pro", AppleM1Pro},
	{"m1", AppleM1},
	{"a15", AppleA15},
	{"a14", AppleA14},
	{"a13", AppleA13},
	{"a12", AppleA12},
	{"a11", AppleA11},
	{"a10", AppleA10},
	{"a9", AppleA9},
	{"a8", AppleA8},
	{"a7", AppleA7},
}

// ParseAppleGPU identifies the generation from a device description such as
// "Apple A12 GPU". Unrecognised descriptions yield AppleUnknown.
func ParseAppleGPU(description string) AppleGPU {
	lower := strings.ToLower(description)
	for _, n := range appleNames {
		if strings.Contains(lower, n.token) {
			return n.gpu
		}
	}
	return AppleUnknown
}

// ComputeUnits returns the GPU core count, or 1 when unknown.
func (g AppleGPU) ComputeUnits() int {
	switch g {
	case AppleA7, AppleA8:
		return 4
	case AppleA9, AppleA10:
		return 6
	case AppleA11:
		return 3
	case AppleA12, AppleA13, AppleA14:
		return 4
	case AppleA15:
		return 5
	case AppleM1:
		return 8
	case AppleM1Pro:
		return 16
	case AppleM1Max:
		return 32
	default:
		return 1
	}
}

// LocalMemoryPreferred reports whether threadgroup memory is faster than
// global reads for weights on this generation.
func (g AppleGPU) LocalMemoryPreferred() bool {
	return g == AppleA7 || g == AppleA8
}

// Bionic reports whether the generation is A11 or newer.
func (g AppleGPU) Bionic() bool {
	return g >= AppleA11
}
