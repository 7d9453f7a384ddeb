package conv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convgen/internal/mslgen"
	"github.com/born-ml/convgen/internal/tensor"
)

func doWhileConds(prog *mslgen.Program) []string {
	var conds []string
	mslgen.Walk(prog, func(g mslgen.Gen) bool {
		if loop, ok := g.(mslgen.DoWhile); ok {
			conds = append(conds, mslgen.Render(loop.Cond))
		}
		return true
	})
	return conds
}

func pointwiseParams() Params {
	return Params{
		BlockSize:        tensor.Int3{X: 1, Y: 1, Z: 4},
		WorkGroupSize:    wg8x4,
		LaunchOrder:      orderZXY,
		SrcDepthLoopSize: 1,
		WeightsUpload:    ConstantMem,
		WeightLayout:     I4O4,
		XKernelIs1:       true,
		YKernelIs1:       true,
	}
}

func TestGenerateSource_Pointwise(t *testing.T) {
	src := GenerateSource(pointwiseParams())

	for _, want := range []string{
		"#include <metal_stdlib>\nusing namespace metal;\n",
		"struct uniforms {\n  int4 task_sizes;\n};\n$0\n",
		"kernel void ComputeFunction(\n",
		"$1\n",
		"uint tid[[thread_index_in_threadgroup]],\n",
		"uint3 ugid[[thread_position_in_grid]]) {\n",
		"int X = (group_id.y * lsize.x + tid3d.x) * 1;\n",
		"int Y = (group_id.z * lsize.y + tid3d.y) * 1;\n",
		"int Z = (group_id.x * lsize.z + tid3d.z) * 4;\n",
		"if (Z >= args.dst_tensor.Slices()) return;\n",
		"if (X >= args.dst_tensor.Width() || Y >= args.dst_tensor.Height()) return;\n",
		"ACCUM_FLT4 r300 = ACCUM_FLT4(0.0f, 0.0f, 0.0f, 0.0f);\n",
		"int c_y0 = clamp(Y + 0, 0, args.src_tensor.Height() - 1);\n",
		"int c_x0 = clamp(X + 0, 0, args.src_tensor.Width() - 1);\n",
		"device FLT4* src_loc_00 = args.src_tensor.GetHandle() + args.src_tensor.GetWHOffset(c_x0, c_y0);\n",
		"src00 = *src_loc_00;\n",
		"r000 += args.weights.GetPtr()[0] * src00.x;\n",
		"r300 += args.weights.GetPtr()[15] * src00.w;\n",
		"args.dst_tensor.GetAddress(offset_00, X + 0, Y + 0, Z);\n",
		"r000 += TO_ACCUM4_TYPE(args.biases.GetPtr()[0]);\n",
		"if (Z + 3 < args.dst_tensor.Slices()) {\n",
		"FLT4 value = FLT4(r300);\n",
		"int linear_index = offset_00 + args.dst_tensor.SliceStride() * 3;\n",
		"args.dst_tensor.Linking(value, X + 0, Y + 0, Z + 3);\n",
		"args.dst_tensor.WriteLinear(value, linear_index);\n",
	} {
		assert.Contains(t, src, want)
	}
	for _, absent := range []string{"tmp", "do {", "m00", "simd_id", "bias_loc", "weights_cache"} {
		assert.NotContains(t, src, absent)
	}
}

func TestBuildKernel_LoopStructure(t *testing.T) {
	p := Params{
		BlockSize:        tensor.Int3{X: 1, Y: 1, Z: 4},
		WorkGroupSize:    wg8x4,
		LaunchOrder:      orderZXY,
		SrcDepthLoopSize: 1,
		NeedSrcLoop:      true,
		NeedDstLoop:      true,
		WeightsUpload:    GlobalMem,
		WeightLayout:     O4I4,
	}
	assert.Equal(t, []string{
		"y < args.kernel_size_y",
		"x < args.kernel_size_x",
		"s < args.src_tensor.Slices()",
	}, doWhileConds(BuildKernel(p)))

	p.NeedSrcLoop = false
	assert.Equal(t, []string{"y < args.kernel_size_y", "x < args.kernel_size_x"}, doWhileConds(BuildKernel(p)))

	p.XKernelIs1 = true
	assert.Equal(t, []string{"y < args.kernel_size_y"}, doWhileConds(BuildKernel(p)))
}

func TestGenerateSource_MaskedGeneric(t *testing.T) {
	p := Params{
		BlockSize:        tensor.Int3{X: 2, Y: 2, Z: 1},
		WorkGroupSize:    wg8x4,
		LaunchOrder:      orderXYZ,
		SrcDepthLoopSize: 2,
		NeedSrcLoop:      true,
		NeedDstLoop:      true,
		WeightsUpload:    GlobalMem,
		WeightLayout:     O4I4,
	}
	src := GenerateSource(p)

	for _, want := range []string{
		"int X = ugid.x * 2;\n",
		"int Y = ugid.y * 2;\n",
		"int Z = ugid.z * 1;\n",
		"device FLT4* tmp = args.weights.GetPtr() + Z * 4 * args.src_tensor.Slices() * args.kernel_size_x * args.kernel_size_y;\n",
		"int x1 = (X + 1) * args.stride_x + args.padding_x;\n",
		"int y0 = (Y + 0) * args.stride_y + args.padding_y;\n",
		"int c_y1 = y * args.dilation_y + y1;\n",
		"bool y1_out = c_y1 < 0 || c_y1 >= args.src_tensor.Height();\n",
		"c_y1 = clamp(c_y1, 0, args.src_tensor.Height() - 1);\n",
		"FLT m10 = !(y1_out || x0_out);\n",
		"src11 = *src_loc_11 * m11;\n",
		"r011.x += dot(tmp[0], src11);\n",
		"r011.w += dot(tmp[7], src11);\n",
		"tmp += 8;\n",
		"device FLT4* bias_loc = args.biases.GetPtr() + Z;\n",
		"r011 += TO_ACCUM4_TYPE(bias_loc[0]);\n",
		"if ((X + 1) < args.dst_tensor.Width() && (Y + 1) < args.dst_tensor.Height()) {\n",
		"if ((Y + 1) < args.dst_tensor.Height()) {\n",
		"if ((X + 1) < args.dst_tensor.Width()) {\n",
		"x++;\n",
		"} while (x < args.kernel_size_x);\n",
	} {
		assert.Contains(t, src, want)
	}
	// The second unrolled slice reads ahead before accumulating.
	assert.Equal(t, 2, strings.Count(src, "s += 1;\n"))
}

func TestGenerateSource_LocalMemory(t *testing.T) {
	p := Params{
		BlockSize:        tensor.Int3{X: 1, Y: 1, Z: 2},
		WorkGroupSize:    tensor.Int3{X: 4, Y: 1, Z: 1},
		LaunchOrder:      orderXYZ,
		SrcDepthLoopSize: 1,
		NeedSrcLoop:      true,
		NeedDstLoop:      true,
		WeightsUpload:    LocalMemByThreads,
		WeightLayout:     O4I4,
	}
	src := GenerateSource(p)

	assert.Contains(t, src, "threadgroup FLT4 weights_cache[8];\n")
	assert.Contains(t, src, "SIMDGROUP_BARRIER(mem_flags::mem_none);\n")
	assert.Contains(t, src, "weights_cache[tid + 0] = tmp[tid + 0];\n")
	assert.Contains(t, src, "weights_cache[tid + 4] = tmp[tid + 4];\n")
	assert.Contains(t, src, "SIMDGROUP_BARRIER(mem_flags::mem_threadgroup);\n")
	assert.Contains(t, src, "r100.w += dot(weights_cache[7], src00);\n")

	// Every thread must reach the barriers, so the spatial range check
	// comes after the loops.
	check := "if (X >= args.dst_tensor.Width() || Y >= args.dst_tensor.Height()) return;"
	require.Equal(t, 1, strings.Count(src, check))
	assert.Greater(t, strings.Index(src, check), strings.LastIndex(src, "} while ("))
}

func TestGenerateSource_LocalMemoryRemainder(t *testing.T) {
	p := Params{
		BlockSize:        tensor.Int3{X: 1, Y: 1, Z: 1},
		WorkGroupSize:    tensor.Int3{X: 3, Y: 1, Z: 1},
		LaunchOrder:      orderXYZ,
		SrcDepthLoopSize: 1,
		NeedSrcLoop:      true,
		NeedDstLoop:      true,
		WeightsUpload:    LocalMemByThreads,
		XKernelIs1:       true,
		YKernelIs1:       true,
	}
	src := GenerateSource(p)
	assert.Contains(t, src, "weights_cache[tid + 0] = tmp[tid + 0];\n")
	assert.Contains(t, src, "if (tid < 1) {\n")
	assert.Contains(t, src, "weights_cache[tid + 3] = tmp[tid + 3];\n")
}

func TestGenerateSource_SIMDBroadcast(t *testing.T) {
	p := Params{
		BlockSize:        tensor.Int3{X: 1, Y: 1, Z: 4},
		WorkGroupSize:    wg16x1,
		LaunchOrder:      orderYXZ,
		SrcDepthLoopSize: 2,
		NeedSrcLoop:      true,
		NeedDstLoop:      true,
		LinearWH:         true,
		WeightsUpload:    PrivateMemSIMD8Broadcast,
		WeightLayout:     I4O4,
	}
	src := GenerateSource(p)

	for _, want := range []string{
		"uint simd_id[[thread_index_in_simdgroup]],\n",
		"int linear_wh = group_id.y * lsize.x + tid3d.x;\n",
		"int Y = (linear_wh / args.task_size_x) * 1;\n",
		"int X = (linear_wh % args.task_size_x) * 1;\n",
		"int Z = (group_id.x * lsize.y + tid3d.y) * 4;\n",
		"FLT4 simd_w0 = tmp[simd_id + 0];\n",
		"FLT4 simd_w3 = tmp[simd_id + 24];\n",
		"r000 += simd_broadcast(simd_w0, 0u) * src00.x;\n",
		"r300 += simd_broadcast(simd_w3, 7u) * src00.w;\n",
		"tmp += 32;\n",
	} {
		assert.Contains(t, src, want)
	}
	assert.NotContains(t, src, "simd_w4")
	assert.Greater(t,
		strings.Index(src, "if (X >= args.dst_tensor.Width()"),
		strings.LastIndex(src, "} while ("))
}

func TestGenerateSource_SIMDBroadcastRemainder(t *testing.T) {
	p := Params{
		BlockSize:        tensor.Int3{X: 1, Y: 1, Z: 1},
		WorkGroupSize:    wg8x2,
		LaunchOrder:      orderZXY,
		SrcDepthLoopSize: 1,
		NeedSrcLoop:      true,
		NeedDstLoop:      true,
		WeightsUpload:    PrivateMemSIMD16Broadcast,
		WeightLayout:     O4I4,
		XKernelIs1:       true,
		YKernelIs1:       true,
	}
	src := GenerateSource(p)
	assert.Contains(t, src, "FLT4 simd_w0;\n")
	assert.Contains(t, src, "if (simd_id < 4) {\n")
	assert.Contains(t, src, "simd_w0 = tmp[simd_id + 0];\n")
	assert.Contains(t, src, "r000.w += dot(simd_broadcast(simd_w0, 3u), src00);\n")
}

func TestGenerateSource_LinearWHS(t *testing.T) {
	p := Params{
		BlockSize:        tensor.Int3{X: 2, Y: 1, Z: 2},
		WorkGroupSize:    wg32x1,
		LaunchOrder:      orderXYZ,
		SrcDepthLoopSize: 1,
		NeedSrcLoop:      true,
		NeedDstLoop:      true,
		LinearWHS:        true,
		WeightsUpload:    GlobalMem,
		WeightLayout:     O4I4,
	}
	src := GenerateSource(p)

	assert.Contains(t, src, "int linear_whs = ugid.x;\n")
	assert.Contains(t, src, "int Z = (linear_whs / args.task_size_y) * 2;\n")
	assert.Contains(t, src, "int linear_wh = linear_whs % args.task_size_y;\n")
	assert.Contains(t, src, "int X = (linear_wh % args.task_size_x) * 2;\n")
	assert.NotContains(t, src, "if (X >= args.dst_tensor.Width()")
}

func TestGenerateSource_HeightVaryingWeights(t *testing.T) {
	p := winogradParams(profileA12)
	src := GenerateSource(p)
	assert.Contains(t, src,
		"device FLT4* tmp = args.weights.GetPtr() + (Z * args.src_tensor.Height() + Y * 4) * 4 * args.src_tensor.Slices();\n")
}

func TestGenerateSource_ConstantAddressSpace(t *testing.T) {
	// Constant memory with a remaining source loop still walks tmp.
	p := pointwiseParams()
	p.NeedSrcLoop = true
	src := GenerateSource(p)
	assert.Contains(t, src, "constant FLT4* tmp = args.weights.GetPtr();\n")
	assert.Contains(t, src, "r000 += tmp[0] * src00.x;\n")
}
