// Package conv generates Metal compute kernels for 2-D convolution together
// with their dispatch geometry and the matching weight and bias layouts.
//
// Every output is derived from a single Params value. The selector picks it
// once per operator from the hardware profile and shapes; the generator, the
// weight reorderer and the dispatcher then consume the same value, so the
// byte layout of the weights always agrees with the fetch code in the kernel.
package conv

import (
	"fmt"
	"strings"

	"github.com/born-ml/convgen/internal/tensor"
)

// WeightsUploadType selects how the kernel fetches filter weights.
type WeightsUploadType int

// Weight upload strategies.
const (
	PrivateMemSIMD8Broadcast WeightsUploadType = iota
	PrivateMemSIMD16Broadcast
	PrivateMemSIMD32Broadcast
	LocalMemByThreads
	GlobalMem
	ConstantMem
)

// String returns the strategy name.
func (w WeightsUploadType) String() string {
	switch w {
	case PrivateMemSIMD8Broadcast:
		return "simd8-broadcast"
	case PrivateMemSIMD16Broadcast:
		return "simd16-broadcast"
	case PrivateMemSIMD32Broadcast:
		return "simd32-broadcast"
	case LocalMemByThreads:
		return "local-mem"
	case GlobalMem:
		return "global-mem"
	case ConstantMem:
		return "constant-mem"
	default:
		return "unknown"
	}
}

// SIMDSize returns the broadcast width, or 1 for non-broadcast strategies.
func (w WeightsUploadType) SIMDSize() int {
	switch w {
	case PrivateMemSIMD8Broadcast:
		return 8
	case PrivateMemSIMD16Broadcast:
		return 16
	case PrivateMemSIMD32Broadcast:
		return 32
	default:
		return 1
	}
}

// IsSIMDBroadcast reports whether w is one of the broadcast strategies.
func (w WeightsUploadType) IsSIMDBroadcast() bool {
	return w.SIMDSize() > 1
}

// WeightsLayout is the ordering of the innermost 4x4 channel block.
type WeightsLayout int

// Inner block layouts.
const (
	// O4I4 is output-major, input-minor: each FLT4 holds four input lanes
	// of one output channel and is consumed with dot().
	O4I4 WeightsLayout = iota
	// I4O4 is input-major, output-minor: each FLT4 holds four output lanes
	// of one input channel and is consumed with a scaled add.
	I4O4
)

// String returns the layout name.
func (l WeightsLayout) String() string {
	if l == I4O4 {
		return "I4O4"
	}
	return "O4I4"
}

// Params is the tiling configuration of one generated kernel variant.
type Params struct {
	// BlockSize is the output tile per thread; Z counts 4-channel slices.
	BlockSize     tensor.Int3
	WorkGroupSize tensor.Int3
	// LaunchOrder maps logical axes to physical dispatch axes.
	LaunchOrder      tensor.Int3
	SrcDepthLoopSize int
	NeedSrcLoop      bool
	NeedDstLoop      bool
	LinearWH         bool
	LinearWHS        bool
	WeightsUpload    WeightsUploadType
	WeightLayout     WeightsLayout
	// DifferentWeightsForHeight offsets the weights by output row (Winograd).
	DifferentWeightsForHeight bool
	XKernelIs1                bool
	YKernelIs1                bool
}

// UseFilterConstants reports whether the kernel has no loops at all, so
// every weight is addressed by a compile-time offset.
func (p Params) UseFilterConstants() bool {
	return !p.NeedDstLoop && !p.NeedSrcLoop && p.XKernelIs1 && p.YKernelIs1
}

// WeightsPerIteration is the number of FLT4 weights consumed by one pass of
// the source-slice loop.
func (p Params) WeightsPerIteration() int {
	return p.BlockSize.Z * 4 * p.SrcDepthLoopSize
}

// Validate checks the structural invariants of the configuration.
func (p Params) Validate() error {
	for i := 0; i < 3; i++ {
		if p.BlockSize.At(i) < 1 {
			return fmt.Errorf("conv: block size %v has a component < 1", p.BlockSize)
		}
		if p.WorkGroupSize.At(i) < 1 {
			return fmt.Errorf("conv: work group size %v has a component < 1", p.WorkGroupSize)
		}
	}
	var seen [3]bool
	for i := 0; i < 3; i++ {
		o := p.LaunchOrder.At(i)
		if o < 0 || o > 2 || seen[o] {
			return fmt.Errorf("conv: launch order %v is not a permutation", p.LaunchOrder)
		}
		seen[o] = true
	}
	if p.SrcDepthLoopSize < 1 {
		return fmt.Errorf("conv: source depth loop size %d < 1", p.SrcDepthLoopSize)
	}
	if p.LinearWH && p.LinearWHS {
		return fmt.Errorf("conv: linear WH and linear WHS are exclusive")
	}
	if p.UseFilterConstants() && p.WeightsUpload != ConstantMem {
		return fmt.Errorf("conv: loop-free kernel must use constant memory, got %s", p.WeightsUpload)
	}
	return nil
}

// String formats the configuration for logs.
func (p Params) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "block=%v wg=%v order=%v unroll=%d upload=%s layout=%s",
		p.BlockSize, p.WorkGroupSize, p.LaunchOrder, p.SrcDepthLoopSize, p.WeightsUpload, p.WeightLayout)
	switch {
	case p.LinearWHS:
		b.WriteString(" linear=whs")
	case p.LinearWH:
		b.WriteString(" linear=wh")
	}
	if !p.NeedSrcLoop {
		b.WriteString(" no-src-loop")
	}
	if !p.NeedDstLoop {
		b.WriteString(" no-dst-loop")
	}
	if p.XKernelIs1 && p.YKernelIs1 {
		b.WriteString(" pointwise")
	}
	return b.String()
}
