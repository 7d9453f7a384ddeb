package conv

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/born-ml/convgen/internal/gpuinfo"
	"github.com/born-ml/convgen/internal/task"
	"github.com/born-ml/convgen/internal/tensor"
	"github.com/born-ml/convgen/internal/winograd"
)

// ErrUnsuitableForWinograd is returned by Winograd4x4To6x6 for attributes
// other than a 3x3 kernel with unit stride and dilation.
var ErrUnsuitableForWinograd = errors.New("convolution unsuitable for winograd 4x4 to 6x6")

// scalarArgs are the geometry arguments declared by every variant, in
// declaration order.
type scalarArgs struct {
	kernelX, kernelY     int
	dilationX, dilationY int
	strideX, strideY     int
	paddingX, paddingY   int
}

// Generic assembles the direct convolution task for attr producing dst.
func Generic(def task.OperationDef, dst tensor.BHWC, attr Attributes, profile gpuinfo.Profile) (*task.Descriptor, error) {
	if err := validate(dst, attr); err != nil {
		return nil, err
	}
	p := SelectParams(profile, attr, def.Precision, dst)
	args := scalarArgs{
		kernelX:   attr.Weights.Shape.W,
		kernelY:   attr.Weights.Shape.H,
		dilationX: attr.Dilations.W,
		dilationY: attr.Dilations.H,
		strideX:   attr.Strides.W,
		strideY:   attr.Strides.H,
		paddingX:  -attr.Padding.Prepended.W,
		paddingY:  -attr.Padding.Prepended.H,
	}
	weights := ReorderWeights(attr.Weights, p)
	biasMemory := lo.Ternary(p.WeightsUpload == ConstantMem, task.MemoryConstant, task.MemoryGlobal)
	return assemble(def, p, args, weights, attr.Bias.Data, PaddedBiasLen(dst.C, p), biasMemory), nil
}

// WeightsTransform maps a 3x3 OHWI filter to its Winograd domain form,
// OHWI(o, 36, 1, i), one row per element of the 6x6 tile.
type WeightsTransform func(tensor.Weights) tensor.Weights

// Winograd4x4To6x6 assembles the convolution stage of the Winograd path. It
// multiplies 6x6 transformed input tiles by transformed 3x3 filters, so the
// kernel is pointwise and the weights vary by tile row. Filters are
// transformed with winograd.Rearrange4x4To6x6.
func Winograd4x4To6x6(def task.OperationDef, dst tensor.BHWC, attr Attributes, profile gpuinfo.Profile) (*task.Descriptor, error) {
	return Winograd4x4To6x6WithTransform(def, dst, attr, profile, winograd.Rearrange4x4To6x6)
}

// Winograd4x4To6x6WithTransform is Winograd4x4To6x6 with a caller supplied
// filter transform. The transform must match the interpolation points of
// the host's input and output tile transforms.
func Winograd4x4To6x6WithTransform(def task.OperationDef, dst tensor.BHWC, attr Attributes, profile gpuinfo.Profile, transform WeightsTransform) (*task.Descriptor, error) {
	if err := validate(dst, attr); err != nil {
		return nil, err
	}
	if !IsSuitableForWinograd4x4To6x6(attr) {
		return nil, errors.Wrapf(ErrUnsuitableForWinograd, "kernel %dx%d strides %+v dilations %+v",
			attr.Weights.Shape.H, attr.Weights.Shape.W, attr.Strides, attr.Dilations)
	}
	p := winogradParams(profile)
	klog.V(2).InfoS("conv: winograd params", "profile", profile, "dst", dst, "params", p)

	src := attr.Weights.Shape
	rearranged := transform(attr.Weights)
	want := tensor.OHWI{O: src.O, H: winograd.TileSize * winograd.TileSize, W: 1, I: src.I}
	if rearranged.Shape != want || len(rearranged.Data) != want.NumElements() {
		return nil, errors.Errorf("conv: winograd transform produced %v with %d values, want %v",
			rearranged.Shape, len(rearranged.Data), want)
	}

	weights := ReorderWeights(rearranged, p)
	args := scalarArgs{kernelX: 1, kernelY: 1, dilationX: 1, dilationY: 1, strideX: 1, strideY: 1}
	return assemble(def, p, args, weights, nil, PaddedBiasLen(dst.C, p), task.MemoryGlobal), nil
}

func winogradParams(profile gpuinfo.Profile) Params {
	p := Params{
		LaunchOrder:               orderZXY,
		SrcDepthLoopSize:          1,
		NeedSrcLoop:               true,
		NeedDstLoop:               true,
		DifferentWeightsForHeight: true,
		XKernelIs1:                true,
		YKernelIs1:                true,
	}
	switch profile.Family() {
	case gpuinfo.FamilyLocalMemory:
		p.WeightsUpload = LocalMemByThreads
		p.WorkGroupSize = wg32x1
		p.BlockSize = tensor.Int3{X: 4, Y: 1, Z: 4}
		p.WeightLayout = O4I4
	case gpuinfo.FamilyGlobalMemory:
		p.WeightsUpload = GlobalMem
		p.WorkGroupSize = wg8x4
		p.BlockSize = tensor.Int3{X: 4, Y: 1, Z: 4}
		p.WeightLayout = O4I4
	case gpuinfo.FamilySIMDBroadcast:
		p.WeightsUpload = PrivateMemSIMD8Broadcast
		p.WorkGroupSize = wg16x1
		p.BlockSize = tensor.Int3{X: 1, Y: 1, Z: 4}
		p.WeightLayout = I4O4
	default:
		p.WeightsUpload = GlobalMem
		p.WorkGroupSize = wg32x1
		p.BlockSize = tensor.Int3{X: 2, Y: 1, Z: 4}
		p.WeightLayout = I4O4
	}
	return p
}

func validate(dst tensor.BHWC, attr Attributes) error {
	if err := attr.Validate(); err != nil {
		return err
	}
	if err := dst.Validate(); err != nil {
		return errors.Wrap(err, "conv: destination")
	}
	if dst.C != attr.Weights.Shape.O {
		return errors.Wrapf(ErrInvalidAttributes, "destination has %d channels, weights produce %d", dst.C, attr.Weights.Shape.O)
	}
	return nil
}

// assemble fills a descriptor from one Params value so that the kernel
// text, the buffer layouts and the dispatch geometry always agree.
// The bias is zero-extended to biasLen.
func assemble(def task.OperationDef, p Params, args scalarArgs, weights, bias []float32, biasLen int, biasMemory task.MemoryType) *task.Descriptor {
	d := task.NewDescriptor(def)
	d.ShaderSource = GenerateSource(p)

	if len(def.SrcTensors) > 0 {
		d.AddSrcTensor("src_tensor", def.SrcTensors[0])
	}
	if len(def.DstTensors) > 0 {
		d.AddDstTensor("dst_tensor", def.DstTensors[0])
	}

	d.Args.AddInt("kernel_size_x", args.kernelX)
	d.Args.AddInt("kernel_size_y", args.kernelY)
	d.Args.AddInt("dilation_x", args.dilationX)
	d.Args.AddInt("dilation_y", args.dilationY)
	d.Args.AddInt("stride_x", args.strideX)
	d.Args.AddInt("stride_y", args.strideY)
	d.Args.AddInt("padding_x", args.paddingX)
	d.Args.AddInt("padding_y", args.paddingY)

	dataType := def.Precision.DataType()
	weightsMemory := lo.Ternary(p.WeightsUpload == ConstantMem, task.MemoryConstant, task.MemoryGlobal)
	d.Args.AddBuffer("weights", &task.BufferDescriptor{
		ElementType: dataType,
		ElementSize: 4,
		MemoryType:  weightsMemory,
		Data:        task.ConvertFloats(weights, dataType),
	})
	d.Args.AddBuffer("biases", &task.BufferDescriptor{
		ElementType: dataType,
		ElementSize: 4,
		MemoryType:  biasMemory,
		Data:        task.ConvertFloatsResized(bias, dataType, biasLen),
	})
	d.Args.AddInt("task_size_x")
	d.Args.AddInt("task_size_y")

	dispatcher := Dispatcher{Params: p}
	d.Update = dispatcher
	d.Resize = dispatcher

	klog.V(4).InfoS("conv: assembled task",
		"weightFloats", len(weights), "biasFloats", biasLen,
		"dataType", dataType, "weightsMemory", weightsMemory)
	return d
}

// Request is one operator to compile with CompileAll.
type Request struct {
	Def  task.OperationDef
	Dst  tensor.BHWC
	Attr Attributes
	// Winograd selects the Winograd 4x4 to 6x6 variant.
	Winograd bool
	// WinogradTransform overrides the filter transform of the Winograd
	// variant. Nil means winograd.Rearrange4x4To6x6.
	WinogradTransform WeightsTransform
}

// Compile assembles the task for r.
func (r Request) Compile(profile gpuinfo.Profile) (*task.Descriptor, error) {
	if r.Winograd {
		transform := r.WinogradTransform
		if transform == nil {
			transform = winograd.Rearrange4x4To6x6
		}
		return Winograd4x4To6x6WithTransform(r.Def, r.Dst, r.Attr, profile, transform)
	}
	return Generic(r.Def, r.Dst, r.Attr, profile)
}

// CompileAll compiles independent operators concurrently. Results keep the
// order of reqs. The first failure cancels the compilations not yet started.
func CompileAll(ctx context.Context, profile gpuinfo.Profile, reqs []Request) ([]*task.Descriptor, error) {
	out := make([]*task.Descriptor, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, r := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := r.Compile(profile)
			if err != nil {
				return errors.Wrapf(err, "conv: request %d", i)
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
