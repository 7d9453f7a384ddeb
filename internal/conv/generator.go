package conv

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/born-ml/convgen/internal/mslgen"
)

// Names bound by the host runtime. The generated source must use exactly
// these spellings.
const (
	argSrcHandle   = "args.src_tensor.GetHandle()"
	argSrcWHOffset = "args.src_tensor.GetWHOffset"
	argSrcSlices   = "args.src_tensor.Slices()"
	argSrcWidth    = "args.src_tensor.Width()"
	argSrcHeight   = "args.src_tensor.Height()"
	argSrcStride   = "args.src_tensor.SliceStride()"
	argDstSlices   = "args.dst_tensor.Slices()"
	argDstWidth    = "args.dst_tensor.Width()"
	argDstHeight   = "args.dst_tensor.Height()"
	argDstStride   = "args.dst_tensor.SliceStride()"
	argDstAddress  = "args.dst_tensor.GetAddress"
	argDstLinking  = "args.dst_tensor.Linking"
	argDstWrite    = "args.dst_tensor.WriteLinear"
	argWeights     = "args.weights.GetPtr()"
	argBiases      = "args.biases.GetPtr()"
	argKernelX     = "args.kernel_size_x"
	argKernelY     = "args.kernel_size_y"
	argDilationX   = "args.dilation_x"
	argDilationY   = "args.dilation_y"
	argStrideX     = "args.stride_x"
	argStrideY     = "args.stride_y"
	argPaddingX    = "args.padding_x"
	argPaddingY    = "args.padding_y"
	argTaskSizeX   = "args.task_size_x"
	argTaskSizeY   = "args.task_size_y"
)

func vb(s string) mslgen.Gen {
	return mslgen.Vb(s)
}

func il(i int) mslgen.Gen {
	return mslgen.IntLit(i)
}

// KernelName is the entry point of every generated program.
const KernelName = "ComputeFunction"

var (
	lanes     = [4]string{"x", "y", "z", "w"}
	globalIDs = [3]mslgen.Gen{vb("ugid.x"), vb("ugid.y"), vb("ugid.z")}
	groupIDs  = [3]mslgen.Gen{vb("group_id.x"), vb("group_id.y"), vb("group_id.z")}
	localIDs  = [3]mslgen.Gen{vb("tid3d.x"), vb("tid3d.y"), vb("tid3d.z")}
	localSize = [3]mslgen.Gen{vb("lsize.x"), vb("lsize.y"), vb("lsize.z")}

	typeInt  = vb("int")
	typeBool = vb("bool")
	typeFLT  = vb("FLT")
	typeFLT4 = vb("FLT4")
)

type generator struct {
	p            Params
	useLocalMem  bool
	useSIMD      bool
	simdSize     int
	useConstants bool
	// lateXYCheck defers the spatial early return past the upload barriers.
	lateXYCheck bool
}

func newGenerator(p Params) *generator {
	useLocalMem := p.WeightsUpload == LocalMemByThreads
	useSIMD := p.WeightsUpload.IsSIMDBroadcast()
	return &generator{
		p:            p,
		useLocalMem:  useLocalMem,
		useSIMD:      useSIMD,
		simdSize:     p.WeightsUpload.SIMDSize(),
		useConstants: p.UseFilterConstants(),
		lateXYCheck:  useLocalMem || useSIMD,
	}
}

// BuildKernel returns the kernel program for p as a statement tree.
func BuildKernel(p Params) *mslgen.Program {
	g := newGenerator(p)
	return &mslgen.Program{
		Header: mslgen.Stmts{
			mslgen.Directive("include <metal_stdlib>"),
			vb("using namespace metal"),
			mslgen.StructDef{Name: "uniforms", Fields: mslgen.Stmts{mslgen.Var{Type: vb("int4"), What: vb("task_sizes")}}},
			mslgen.Placeholder("$0\n"),
		},
		Kernel: mslgen.Kernel{
			Name:   KernelName,
			Params: g.kernelParams(),
			Body:   g.body(),
		},
	}
}

// GenerateSource renders the kernel program for p.
func GenerateSource(p Params) string {
	return mslgen.Render(BuildKernel(p))
}

func (g *generator) kernelParams() []mslgen.Gen {
	params := []mslgen.Gen{
		mslgen.Placeholder("$1"),
		mslgen.Param{Type: vb("uint"), Name: "tid", Attr: "thread_index_in_threadgroup"},
		mslgen.Param{Type: vb("uint3"), Name: "group_id", Attr: "threadgroup_position_in_grid"},
		mslgen.Param{Type: vb("uint3"), Name: "tid3d", Attr: "thread_position_in_threadgroup"},
		mslgen.Param{Type: vb("uint3"), Name: "lsize", Attr: "threads_per_threadgroup"},
	}
	if g.useSIMD {
		params = append(params, mslgen.Param{Type: vb("uint"), Name: "simd_id", Attr: "thread_index_in_simdgroup"})
	}
	return append(params, mslgen.Param{Type: vb("uint3"), Name: "ugid", Attr: "thread_position_in_grid"})
}

func (g *generator) body() mslgen.Stmts {
	p := g.p
	var s mslgen.Stmts
	s = append(s, g.tileOrigin()...)
	s = append(s, mslgen.If1{Cond: mslgen.CmpGE{Expr1: vb("Z"), Expr2: vb(argDstSlices)}, Then: mslgen.Return{}})
	if !g.lateXYCheck && !p.LinearWHS {
		s = append(s, xyCheck())
	}
	s = append(s, g.accumulators()...)
	s = append(s, g.weightsPointer()...)
	s = append(s, g.strideOrigins()...)
	if g.useLocalMem {
		s = append(s, mslgen.Var{Type: vb("threadgroup FLT4"), What: mslgen.Elem{Arr: vb("weights_cache"), Index: il(p.WeightsPerIteration())}})
	}
	s = append(s, g.kernelLoops()...)
	if g.lateXYCheck && !p.LinearWHS {
		s = append(s, xyCheck())
	}
	g.forEachYX(func(y, x int) {
		s = append(s, mslgen.Call{Func: vb(argDstAddress), Args: mslgen.CommaSpaced{
			vb("offset_" + yx(y, x)), mslgen.Add{Expr1: vb("X"), Expr2: il(x)}, mslgen.Add{Expr1: vb("Y"), Expr2: il(y)}, vb("Z"),
		}})
	})
	s = append(s, g.bias()...)
	s = append(s, g.writes()...)
	return s
}

func yx(y, x int) string {
	return fmt.Sprintf("%d%d", y, x)
}

func zyx(z, y, x int) string {
	return fmt.Sprintf("%d%d%d", z, y, x)
}

func (g *generator) forEachYX(fn func(y, x int)) {
	for y := 0; y < g.p.BlockSize.Y; y++ {
		for x := 0; x < g.p.BlockSize.X; x++ {
			fn(y, x)
		}
	}
}

func xyCheck() mslgen.Gen {
	return mslgen.If1{Cond: mslgen.Lor{Expr1: mslgen.CmpGE{Expr1: vb("X"), Expr2: vb(argDstWidth)}, Expr2: mslgen.CmpGE{Expr1: vb("Y"), Expr2: vb(argDstHeight)}}, Then: mslgen.Return{}}
}

func declInt(name string, init mslgen.Gen) mslgen.Gen {
	return mslgen.Var{Type: typeInt, What: vb(name), Init: init}
}

// tileOrigin decodes the tile origin X, Y, Z from the thread identifiers
// according to the linearization and launch order.
func (g *generator) tileOrigin() mslgen.Stmts {
	p := g.p
	var remap [3]int
	for i := 0; i < 3; i++ {
		remap[p.LaunchOrder.At(i)] = i
	}
	// logical returns the thread index along logical axis i.
	logical := func(i int) mslgen.Gen {
		if p.LaunchOrder.At(i) == i {
			return globalIDs[i]
		}
		return mslgen.Paren{Inner: mslgen.Add{Expr1: mslgen.Mul{Expr1: groupIDs[remap[i]], Expr2: localSize[i]}, Expr2: localIDs[i]}}
	}
	scaled := func(e mslgen.Gen, block int) mslgen.Gen {
		return mslgen.Mul{Expr1: e, Expr2: il(block)}
	}
	taskW, taskWH := vb(argTaskSizeX), vb(argTaskSizeY)
	switch {
	case p.LinearWHS:
		return mslgen.Stmts{
			declInt("linear_whs", globalIDs[0]),
			declInt("Z", mslgen.Mul{Expr1: mslgen.Paren{Inner: mslgen.Quo{Expr1: vb("linear_whs"), Expr2: taskWH}}, Expr2: il(p.BlockSize.Z)}),
			declInt("linear_wh", mslgen.Rem{Expr1: vb("linear_whs"), Expr2: taskWH}),
			declInt("Y", mslgen.Mul{Expr1: mslgen.Paren{Inner: mslgen.Quo{Expr1: vb("linear_wh"), Expr2: taskW}}, Expr2: il(p.BlockSize.Y)}),
			declInt("X", mslgen.Mul{Expr1: mslgen.Paren{Inner: mslgen.Rem{Expr1: vb("linear_wh"), Expr2: taskW}}, Expr2: il(p.BlockSize.X)}),
		}
	case p.LinearWH:
		linear := logical(0)
		if pe, ok := linear.(mslgen.Paren); ok {
			linear = pe.Inner
		}
		return mslgen.Stmts{
			declInt("linear_wh", linear),
			declInt("Y", mslgen.Mul{Expr1: mslgen.Paren{Inner: mslgen.Quo{Expr1: vb("linear_wh"), Expr2: taskW}}, Expr2: il(p.BlockSize.Y)}),
			declInt("X", mslgen.Mul{Expr1: mslgen.Paren{Inner: mslgen.Rem{Expr1: vb("linear_wh"), Expr2: taskW}}, Expr2: il(p.BlockSize.X)}),
			declInt("Z", scaled(logical(1), p.BlockSize.Z)),
		}
	default:
		return mslgen.Stmts{
			declInt("X", scaled(logical(0), p.BlockSize.X)),
			declInt("Y", scaled(logical(1), p.BlockSize.Y)),
			declInt("Z", scaled(logical(2), p.BlockSize.Z)),
		}
	}
}

func (g *generator) accumulators() mslgen.Stmts {
	var s mslgen.Stmts
	zero := mslgen.CommaSpaced{vb("0.0f"), vb("0.0f"), vb("0.0f"), vb("0.0f")}
	for z := 0; z < g.p.BlockSize.Z; z++ {
		g.forEachYX(func(y, x int) {
			s = append(s, mslgen.Var{Type: vb("ACCUM_FLT4"), What: vb("r" + zyx(z, y, x)), Init: mslgen.Call{Func: vb("ACCUM_FLT4"), Args: zero}})
		})
	}
	return s
}

// weightsPointer declares tmp, the first weight of this thread's slice block.
func (g *generator) weightsPointer() mslgen.Stmts {
	p := g.p
	if g.useConstants {
		return nil
	}
	addrSpace := lo.Ternary(p.WeightsUpload == ConstantMem, "constant", "device")
	ptrType := vb(addrSpace + " FLT4*")
	switch {
	case !p.NeedDstLoop:
		return mslgen.Stmts{mslgen.Var{Type: ptrType, What: vb("tmp"), Init: vb(argWeights)}}
	case p.DifferentWeightsForHeight:
		row := mslgen.Paren{Inner: mslgen.Add{Expr1: mslgen.Mul{Expr1: vb("Z"), Expr2: vb(argSrcHeight)}, Expr2: mslgen.Mul{Expr1: vb("Y"), Expr2: il(p.BlockSize.Z)}}}
		return mslgen.Stmts{mslgen.Var{Type: ptrType, What: vb("tmp"), Init: mslgen.Add{Expr1: vb(argWeights), Expr2: mslgen.Mul{Expr1: mslgen.Mul{Expr1: row, Expr2: il(4)}, Expr2: vb(argSrcSlices)}}}}
	default:
		var offset mslgen.Gen = mslgen.Mul{Expr1: mslgen.Mul{Expr1: vb("Z"), Expr2: il(4)}, Expr2: vb(argSrcSlices)}
		if !p.XKernelIs1 {
			offset = mslgen.Mul{Expr1: offset, Expr2: vb(argKernelX)}
		}
		if !p.YKernelIs1 {
			offset = mslgen.Mul{Expr1: offset, Expr2: vb(argKernelY)}
		}
		return mslgen.Stmts{mslgen.Var{Type: ptrType, What: vb("tmp"), Init: mslgen.Add{Expr1: vb(argWeights), Expr2: offset}}}
	}
}

// strideOrigins declares the unpadded source coordinate of every tile
// column and row along non-pointwise axes.
func (g *generator) strideOrigins() mslgen.Stmts {
	var s mslgen.Stmts
	if !g.p.XKernelIs1 {
		for x := 0; x < g.p.BlockSize.X; x++ {
			s = append(s, declInt(fmt.Sprintf("x%d", x),
				mslgen.Add{Expr1: mslgen.Mul{Expr1: mslgen.Paren{Inner: mslgen.Add{Expr1: vb("X"), Expr2: il(x)}}, Expr2: vb(argStrideX)}, Expr2: vb(argPaddingX)}))
		}
	}
	if !g.p.YKernelIs1 {
		for y := 0; y < g.p.BlockSize.Y; y++ {
			s = append(s, declInt(fmt.Sprintf("y%d", y),
				mslgen.Add{Expr1: mslgen.Mul{Expr1: mslgen.Paren{Inner: mslgen.Add{Expr1: vb("Y"), Expr2: il(y)}}, Expr2: vb(argStrideY)}, Expr2: vb(argPaddingY)}))
		}
	}
	return s
}

// axisCoords computes the clamped source coordinate c_<axis><i> for each
// tile index along one axis, plus the out-of-range flag on non-pointwise axes.
func axisCoords(axis string, n int, pointwise bool, origin, dilation, extent string) mslgen.Stmts {
	var s mslgen.Stmts
	maxCoord := mslgen.Sub{Expr1: vb(extent), Expr2: il(1)}
	for i := 0; i < n; i++ {
		c := vb(fmt.Sprintf("c_%s%d", axis, i))
		if pointwise {
			s = append(s, mslgen.Var{Type: typeInt, What: c, Init: mslgen.Call{Func: vb("clamp"), Args: mslgen.CommaSpaced{mslgen.Add{Expr1: vb(origin), Expr2: il(i)}, il(0), maxCoord}}})
			continue
		}
		out := vb(fmt.Sprintf("%s%d_out", axis, i))
		s = append(s,
			mslgen.Var{Type: typeInt, What: c, Init: mslgen.Add{Expr1: mslgen.Mul{Expr1: vb(axis), Expr2: vb(dilation)}, Expr2: vb(fmt.Sprintf("%s%d", axis, i))}},
			mslgen.Var{Type: typeBool, What: out, Init: mslgen.Lor{Expr1: mslgen.CmpL{Expr1: c, Expr2: il(0)}, Expr2: mslgen.CmpGE{Expr1: c, Expr2: vb(extent)}}},
			mslgen.Assign{Expr1: c, Expr2: mslgen.Call{Func: vb("clamp"), Args: mslgen.CommaSpaced{c, il(0), maxCoord}}},
		)
	}
	return s
}

// kernelLoops nests the kernel-y loop, the kernel-x loop and the source
// slice loop, omitting the spatial loops on pointwise axes.
func (g *generator) kernelLoops() mslgen.Stmts {
	p := g.p
	inner := g.tileSources()

	xPart := axisCoords("x", p.BlockSize.X, p.XKernelIs1, "X", argDilationX, argSrcWidth)
	if p.XKernelIs1 {
		xPart = append(xPart, inner...)
	} else {
		body := append(xPart, inner...)
		body = append(body, mslgen.IncPost{Expr: vb("x")})
		xPart = mslgen.Stmts{declInt("x", il(0)), mslgen.DoWhile{Body: body, Cond: mslgen.CmpL{Expr1: vb("x"), Expr2: vb(argKernelX)}}}
	}

	yPart := axisCoords("y", p.BlockSize.Y, p.YKernelIs1, "Y", argDilationY, argSrcHeight)
	if p.YKernelIs1 {
		return append(yPart, xPart...)
	}
	body := append(yPart, xPart...)
	body = append(body, mslgen.IncPost{Expr: vb("y")})
	return mslgen.Stmts{declInt("y", il(0)), mslgen.DoWhile{Body: body, Cond: mslgen.CmpL{Expr1: vb("y"), Expr2: vb(argKernelY)}}}
}

// tileSources declares masks and source pointers, then the slice loop.
func (g *generator) tileSources() mslgen.Stmts {
	p := g.p
	var s mslgen.Stmts
	g.forEachYX(func(y, x int) {
		yOut := vb(fmt.Sprintf("y%d_out", y))
		xOut := vb(fmt.Sprintf("x%d_out", x))
		var mask mslgen.Gen
		switch {
		case !p.YKernelIs1 && !p.XKernelIs1:
			mask = mslgen.Not{Expr: mslgen.Paren{Inner: mslgen.Lor{Expr1: yOut, Expr2: xOut}}}
		case !p.YKernelIs1:
			mask = mslgen.Not{Expr: yOut}
		case !p.XKernelIs1:
			mask = mslgen.Not{Expr: xOut}
		default:
			return
		}
		s = append(s, mslgen.Var{Type: typeFLT, What: vb("m" + yx(y, x)), Init: mask})
	})
	g.forEachYX(func(y, x int) {
		offset := mslgen.Call{Func: vb(argSrcWHOffset), Args: mslgen.CommaSpaced{vb(fmt.Sprintf("c_x%d", x)), vb(fmt.Sprintf("c_y%d", y))}}
		s = append(s, mslgen.Var{Type: vb("device FLT4*"), What: vb("src_loc_" + yx(y, x)), Init: mslgen.Add{Expr1: vb(argSrcHandle), Expr2: offset}})
	})
	s = append(s, declInt("s", il(0)))
	iteration := g.sliceIteration()
	if p.NeedSrcLoop {
		return append(s, mslgen.DoWhile{Body: iteration, Cond: mslgen.CmpL{Expr1: vb("s"), Expr2: vb(argSrcSlices)}})
	}
	return append(s, iteration...)
}

// sliceIteration is one pass over SrcDepthLoopSize source slices.
func (g *generator) sliceIteration() mslgen.Stmts {
	p := g.p
	var s mslgen.Stmts
	switch {
	case g.useLocalMem:
		s = append(s, mslgen.Call{Func: vb("SIMDGROUP_BARRIER"), Args: mslgen.CommaSpaced{vb("mem_flags::mem_none")}})
		s = append(s, uploadByThreads("weights_cache", "tmp", "tid", p.WorkGroupSize.Product(), p.WeightsPerIteration())...)
		s = append(s, mslgen.Call{Func: vb("SIMDGROUP_BARRIER"), Args: mslgen.CommaSpaced{vb("mem_flags::mem_threadgroup")}})
	case g.useSIMD:
		s = append(s, g.simdLoads()...)
	}
	g.forEachYX(func(y, x int) {
		s = append(s, mslgen.Var{Type: typeFLT4, What: vb("src" + yx(y, x))})
	})
	s = append(s, g.readSources()...)
	s = append(s, mslgen.AddAssign{Expr1: vb("s"), Expr2: il(1)})
	s = append(s, g.convCore(0)...)
	for i := 1; i < p.SrcDepthLoopSize; i++ {
		s = append(s, g.readSources()...)
		s = append(s, g.convCore(i*p.BlockSize.Z*4)...)
		s = append(s, mslgen.AddAssign{Expr1: vb("s"), Expr2: il(1)})
	}
	if !g.useConstants {
		s = append(s, mslgen.AddAssign{Expr1: vb("tmp"), Expr2: il(p.WeightsPerIteration())})
	}
	return s
}

// uploadByThreads copies n elements from global to group-shared memory,
// each of the total threads taking a strided share.
func uploadByThreads(localPtr, globalPtr, lid string, total, n int) mslgen.Stmts {
	var s mslgen.Stmts
	copyAt := func(base int) mslgen.Gen {
		idx := mslgen.Add{Expr1: vb(lid), Expr2: il(base)}
		return mslgen.Assign{Expr1: mslgen.Elem{Arr: vb(localPtr), Index: idx}, Expr2: mslgen.Elem{Arr: vb(globalPtr), Index: idx}}
	}
	groups := n / total
	remainder := n % total
	for i := 0; i < groups; i++ {
		s = append(s, copyAt(total*i))
	}
	if remainder != 0 {
		s = append(s, mslgen.If{Cond: mslgen.CmpL{Expr1: vb(lid), Expr2: il(remainder)}, Then: mslgen.Stmts{copyAt(total * groups)}})
	}
	return s
}

// simdLoads has each lane of a SIMD group load one weight vector; the
// others read it back with simd_broadcast.
func (g *generator) simdLoads() mslgen.Stmts {
	var s mslgen.Stmts
	n := g.p.WeightsPerIteration()
	parts := n / g.simdSize
	remainder := n % g.simdSize
	load := func(part int) mslgen.Gen {
		return mslgen.Elem{Arr: vb("tmp"), Index: mslgen.Add{Expr1: vb("simd_id"), Expr2: il(part * g.simdSize)}}
	}
	for i := 0; i < parts; i++ {
		s = append(s, mslgen.Var{Type: typeFLT4, What: vb(fmt.Sprintf("simd_w%d", i)), Init: load(i)})
	}
	if remainder != 0 {
		w := vb(fmt.Sprintf("simd_w%d", parts))
		s = append(s,
			mslgen.Var{Type: typeFLT4, What: w},
			mslgen.If{Cond: mslgen.CmpL{Expr1: vb("simd_id"), Expr2: il(remainder)}, Then: mslgen.Stmts{mslgen.Assign{Expr1: w, Expr2: load(parts)}}},
		)
	}
	return s
}

func (g *generator) readSources() mslgen.Stmts {
	var s mslgen.Stmts
	masked := !g.p.YKernelIs1 || !g.p.XKernelIs1
	g.forEachYX(func(y, x int) {
		var value mslgen.Gen = mslgen.Deref{Expr: vb("src_loc_" + yx(y, x))}
		if masked {
			value = mslgen.Mul{Expr1: value, Expr2: vb("m" + yx(y, x))}
		}
		s = append(s, mslgen.Assign{Expr1: vb("src" + yx(y, x)), Expr2: value})
	})
	g.forEachYX(func(y, x int) {
		s = append(s, mslgen.AddAssign{Expr1: vb("src_loc_" + yx(y, x)), Expr2: vb(argSrcStride)})
	})
	return s
}

// convCore accumulates one source slice against BlockSize.Z*4 weight
// vectors starting at offset.
func (g *generator) convCore(offset int) mslgen.Stmts {
	p := g.p
	name := "tmp"
	switch {
	case g.useConstants:
		name = argWeights
	case g.useLocalMem:
		name = "weights_cache"
	}
	var s mslgen.Stmts
	for z := 0; z < p.BlockSize.Z; z++ {
		for ch := 0; ch < 4; ch++ {
			idx := z*4 + ch + offset
			var w mslgen.Gen = mslgen.Elem{Arr: vb(name), Index: il(idx)}
			if g.useSIMD {
				w = mslgen.Call{Func: vb("simd_broadcast"), Args: mslgen.CommaSpaced{
					vb(fmt.Sprintf("simd_w%d", idx/g.simdSize)), mslgen.UintLit(idx % g.simdSize),
				}}
			}
			g.forEachYX(func(y, x int) {
				src := vb("src" + yx(y, x))
				r := vb("r" + zyx(z, y, x))
				if p.WeightLayout == O4I4 {
					s = append(s, mslgen.AddAssign{Expr1: mslgen.Field{Expr: r, Name: lanes[ch]}, Expr2: mslgen.Call{Func: vb("dot"), Args: mslgen.CommaSpaced{w, src}}})
				} else {
					s = append(s, mslgen.AddAssign{Expr1: r, Expr2: mslgen.Mul{Expr1: w, Expr2: mslgen.Field{Expr: src, Name: lanes[ch]}}})
				}
			})
		}
	}
	return s
}

func (g *generator) bias() mslgen.Stmts {
	var s mslgen.Stmts
	name := argBiases
	if g.p.NeedDstLoop {
		s = append(s, mslgen.Var{Type: vb("device FLT4*"), What: vb("bias_loc"), Init: mslgen.Add{Expr1: vb(argBiases), Expr2: vb("Z")}})
		name = "bias_loc"
	}
	g.forEachYX(func(y, x int) {
		for z := 0; z < g.p.BlockSize.Z; z++ {
			s = append(s, mslgen.AddAssign{Expr1: vb("r" + zyx(z, y, x)), Expr2: mslgen.Call{Func: vb("TO_ACCUM4_TYPE"), Args: mslgen.CommaSpaced{mslgen.Elem{Arr: vb(name), Index: il(z)}}}})
		}
	})
	return s
}

// writes stores every accumulator that lies inside the destination. The
// first tile position is already known to be in range.
func (g *generator) writes() mslgen.Stmts {
	var s mslgen.Stmts
	for z := 0; z < g.p.BlockSize.Z; z++ {
		var inner mslgen.Stmts
		g.forEachYX(func(y, x int) {
			body := mslgen.Stmts{
				mslgen.Var{Type: typeFLT4, What: vb("value"), Init: mslgen.Call{Func: typeFLT4, Args: mslgen.CommaSpaced{vb("r" + zyx(z, y, x))}}},
				declInt("linear_index", mslgen.Add{Expr1: vb("offset_" + yx(y, x)), Expr2: mslgen.Mul{Expr1: vb(argDstStride), Expr2: il(z)}}),
				mslgen.Call{Func: vb(argDstLinking), Args: mslgen.CommaSpaced{
					vb("value"), mslgen.Add{Expr1: vb("X"), Expr2: il(x)}, mslgen.Add{Expr1: vb("Y"), Expr2: il(y)}, mslgen.Add{Expr1: vb("Z"), Expr2: il(z)},
				}},
				mslgen.Call{Func: vb(argDstWrite), Args: mslgen.CommaSpaced{vb("value"), vb("linear_index")}},
			}
			var check mslgen.Gen
			if x >= 1 {
				check = mslgen.CmpL{Expr1: mslgen.Paren{Inner: mslgen.Add{Expr1: vb("X"), Expr2: il(x)}}, Expr2: vb(argDstWidth)}
			}
			if y >= 1 {
				cy := mslgen.CmpL{Expr1: mslgen.Paren{Inner: mslgen.Add{Expr1: vb("Y"), Expr2: il(y)}}, Expr2: vb(argDstHeight)}
				if check == nil {
					check = cy
				} else {
					check = mslgen.Land{Expr1: check, Expr2: cy}
				}
			}
			if check == nil {
				inner = append(inner, mslgen.Block{Inner: body})
			} else {
				inner = append(inner, mslgen.If{Cond: check, Then: body})
			}
		})
		s = append(s, mslgen.If{Cond: mslgen.CmpL{Expr1: mslgen.Add{Expr1: vb("Z"), Expr2: il(z)}, Expr2: vb(argDstSlices)}, Then: inner})
	}
	return s
}
