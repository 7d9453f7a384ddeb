package conv

import (
	"k8s.io/klog/v2"

	"github.com/born-ml/convgen/internal/gpuinfo"
	"github.com/born-ml/convgen/internal/tensor"
)

// Work-group shapes shared by the heuristics.
var (
	wg8x4  = tensor.Int3{X: 8, Y: 4, Z: 1}
	wg4x8  = tensor.Int3{X: 4, Y: 8, Z: 1}
	wg8x2  = tensor.Int3{X: 8, Y: 2, Z: 1}
	wg32x1 = tensor.Int3{X: 32, Y: 1, Z: 1}
	wg16x1 = tensor.Int3{X: 16, Y: 1, Z: 1}

	orderXYZ = tensor.Int3{X: 0, Y: 1, Z: 2}
	orderZXY = tensor.Int3{X: 2, Y: 0, Z: 1}
	orderYXZ = tensor.Int3{X: 1, Y: 0, Z: 2}

	block111 = tensor.Int3{X: 1, Y: 1, Z: 1}
)

// gridSize returns the number of tiles along each axis of dst.
func gridSize(dst tensor.BHWC, block tensor.Int3) tensor.Int3 {
	return tensor.Int3{
		X: tensor.DivideRoundUp(dst.W, block.X),
		Y: tensor.DivideRoundUp(dst.H, block.Y),
		Z: tensor.DivideRoundUp(dst.Slices(), block.Z),
	}
}

// GroupsCount is the number of launch groups of a plain 3-D dispatch.
func GroupsCount(dst tensor.BHWC, wg, block tensor.Int3) int {
	g := gridSize(dst, block)
	return tensor.DivideRoundUp(g.X, wg.X) * tensor.DivideRoundUp(g.Y, wg.Y) *
		tensor.DivideRoundUp(g.Z, wg.Z)
}

// GroupsCountLinearWH is the number of launch groups when width and height
// are folded into the first dispatch axis and slices use the second.
func GroupsCountLinearWH(dst tensor.BHWC, wg, block tensor.Int3) int {
	g := gridSize(dst, block)
	return tensor.DivideRoundUp(g.X*g.Y, wg.X) * tensor.DivideRoundUp(g.Z, wg.Y)
}

// GroupsCountLinearWHS is the number of launch groups when all three axes
// are folded into one.
func GroupsCountLinearWHS(dst tensor.BHWC, wg, block tensor.Int3) int {
	g := gridSize(dst, block)
	return tensor.DivideRoundUp(g.X*g.Y*g.Z, wg.X)
}

func maximumWavesCount(profile gpuinfo.Profile, dst tensor.BHWC) int {
	if profile.LocalMemoryPreferred {
		return GroupsCountLinearWH(dst, wg32x1, block111)
	}
	return GroupsCountLinearWHS(dst, wg32x1, block111)
}

// recommendedBlockSize returns the total tile budget (1, 2, 4 or 8) from the
// ratio of available waves to compute units.
func recommendedBlockSize(profile gpuinfo.Profile, dst tensor.BHWC) int {
	waves := maximumWavesCount(profile, dst)
	cu := profile.Units()
	switch {
	case waves >= cu*64:
		return 8
	case waves >= cu*32:
		return 4
	case waves >= cu*16:
		return 2
	default:
		return 1
	}
}

// SelectParams picks the tiling configuration for one convolution. It is
// pure and deterministic.
func SelectParams(profile gpuinfo.Profile, attr Attributes, precision tensor.Precision, dst tensor.BHWC) Params {
	var p Params
	switch profile.Family() {
	case gpuinfo.FamilyLocalMemory:
		p = paramsLocalMemory(profile, attr, dst)
	case gpuinfo.FamilyGlobalMemory:
		p = paramsGlobalMemory(profile, attr, dst)
	case gpuinfo.FamilySIMDBroadcast:
		p = paramsSIMDBroadcast(attr, precision, dst)
	default:
		p = paramsGeneric(attr, precision)
	}
	finalize(&p, attr, dst)
	klog.V(2).InfoS("conv: selected params", "profile", profile, "dst", dst, "params", p)
	return p
}

// finalize drops loops whose whole range fits in one unrolled block and
// moves loop-free kernels onto constant memory.
func finalize(p *Params, attr Attributes, dst tensor.BHWC) {
	srcSlices := tensor.Slices(attr.Weights.Shape.I)
	if p.SrcDepthLoopSize == srcSlices {
		p.NeedSrcLoop = false
	}
	if p.BlockSize.Z >= dst.Slices() {
		p.NeedDstLoop = false
	}
	if p.UseFilterConstants() {
		p.WeightsUpload = ConstantMem
	}
}

func baseParams(attr Attributes) Params {
	return Params{
		BlockSize:        block111,
		WorkGroupSize:    wg8x4,
		LaunchOrder:      orderZXY,
		SrcDepthLoopSize: 1,
		NeedSrcLoop:      true,
		NeedDstLoop:      true,
		WeightsUpload:    GlobalMem,
		WeightLayout:     O4I4,
		XKernelIs1:       KernelXIs1(attr),
		YKernelIs1:       KernelYIs1(attr),
	}
}

func layoutForPrecision(precision tensor.Precision) WeightsLayout {
	if precision == tensor.F32F16 {
		return O4I4
	}
	return I4O4
}

func paramsLocalMemory(profile gpuinfo.Profile, attr Attributes, dst tensor.BHWC) Params {
	dstSlices := dst.Slices()
	p := baseParams(attr)
	p.WeightsUpload = LocalMemByThreads
	p.LaunchOrder = orderXYZ

	budget := recommendedBlockSize(profile, dst)
	switch {
	case budget >= 4 && (dstSlices%4 == 0 || dstSlices >= 16):
		p.BlockSize.Z = 4
		budget /= 4
	case budget >= 2 && (dstSlices%2 == 0 || dstSlices >= 4):
		p.BlockSize.Z = 2
		budget /= 2
	}
	switch {
	case budget >= 4:
		p.BlockSize.X = 2
		p.BlockSize.Y = 2
	case budget >= 2:
		if dst.W%2 != 0 && dst.H%2 == 0 {
			p.BlockSize.Y = 2
		} else {
			p.BlockSize.X = 2
		}
	}

	if p.BlockSize.X <= p.BlockSize.Y {
		p.WorkGroupSize = wg8x4
	} else {
		p.WorkGroupSize = wg4x8
	}

	g1 := GroupsCount(dst, p.WorkGroupSize, p.BlockSize)
	g2 := GroupsCountLinearWH(dst, wg32x1, p.BlockSize)
	g3 := GroupsCountLinearWHS(dst, wg32x1, p.BlockSize)
	if g2 < g1 {
		p.LinearWH = true
		p.WorkGroupSize = wg32x1
		p.LaunchOrder = orderXYZ
	}
	if float32(g2)/float32(g3) > 3.1 {
		p.LinearWH = false
		p.LinearWHS = true
		p.WorkGroupSize = wg32x1
		p.WeightsUpload = GlobalMem
	}
	return p
}

func paramsGlobalMemory(profile gpuinfo.Profile, attr Attributes, dst tensor.BHWC) Params {
	dstSlices := dst.Slices()
	srcSlices := tensor.Slices(attr.Weights.Shape.I)
	p := baseParams(attr)

	budget := recommendedBlockSize(profile, dst)
	if budget >= 2 && profile.Bionic {
		if dst.H%2 != 0 && dst.W%2 == 0 {
			p.BlockSize.X = 2
		} else {
			p.BlockSize.Y = 2
		}
		budget /= 2
	}
	switch {
	case budget >= 4 && (dstSlices%4 == 0 || dstSlices >= 16):
		p.BlockSize.Z = 4
		budget /= 4
	case budget >= 2 && (dstSlices%2 == 0 || dstSlices >= 4):
		p.BlockSize.Z = 2
		budget /= 2
	}
	if budget >= 4 && dstSlices == 3 {
		p.BlockSize.Z = 3
	}

	g1 := GroupsCount(dst, wg8x4, p.BlockSize)
	g2 := GroupsCountLinearWH(dst, wg32x1, p.BlockSize)
	g3 := GroupsCountLinearWHS(dst, wg32x1, p.BlockSize)
	if g2 < g1 {
		p.LinearWH = true
		p.WorkGroupSize = wg32x1
		p.LaunchOrder = orderXYZ
	}
	threshold := float32(1.04)
	if profile.Bionic {
		threshold = 1.0
	}
	if float32(g2)/float32(g3) > threshold {
		p.LinearWH = false
		p.LinearWHS = true
		p.WorkGroupSize = wg32x1
	}

	switch p.BlockSize.Product() {
	case 1:
		if srcSlices%4 == 0 {
			p.SrcDepthLoopSize = 4
		} else if srcSlices%2 == 0 {
			p.SrcDepthLoopSize = 2
		}
	case 2:
		if srcSlices%2 == 0 {
			p.SrcDepthLoopSize = 2
		}
	}
	return p
}

func paramsSIMDBroadcast(attr Attributes, precision tensor.Precision, dst tensor.BHWC) Params {
	dstSlices := dst.Slices()
	srcSlices := tensor.Slices(attr.Weights.Shape.I)
	p := baseParams(attr)
	p.WeightsUpload = PrivateMemSIMD8Broadcast
	p.WorkGroupSize = wg8x2
	p.WeightLayout = layoutForPrecision(precision)

	switch {
	case dstSlices%4 == 0 || dstSlices >= 8:
		p.BlockSize.Z = 4
	case dstSlices%2 == 0 || dstSlices >= 4:
		p.BlockSize.Z = 2
	}
	if srcSlices%2 == 0 {
		p.SrcDepthLoopSize = 2
	}

	g1 := GroupsCount(dst, p.WorkGroupSize, p.BlockSize)
	g2 := GroupsCountLinearWH(dst, wg16x1, p.BlockSize)
	if g2 < g1 {
		p.LinearWH = true
		p.WorkGroupSize = wg16x1
		p.LaunchOrder = orderYXZ
	}
	return p
}

func paramsGeneric(attr Attributes, precision tensor.Precision) Params {
	p := baseParams(attr)
	p.BlockSize = tensor.Int3{X: 1, Y: 1, Z: 4}
	p.WeightLayout = layoutForPrecision(precision)
	return p
}
