package conv

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convgen/internal/task"
	"github.com/born-ml/convgen/internal/tensor"
)

func opDef(precision tensor.Precision) task.OperationDef {
	dt := precision.DataType()
	return task.OperationDef{
		Precision:  precision,
		SrcTensors: []task.TensorDescriptor{{DataType: dt}},
		DstTensors: []task.TensorDescriptor{{DataType: dt}},
	}
}

func TestGeneric(t *testing.T) {
	attr := newAttr(8, 3, 3, 8)
	attr.Padding = Padding{Prepended: tensor.HW{H: 1, W: 2}, Appended: tensor.HW{H: 1, W: 2}}
	attr.Strides = tensor.HW{H: 1, W: 2}
	attr.Bias = tensor.Linear{Data: []float32{1, 2, 3, 4, 5, 6, 7, 8}}
	dst := tensor.BHWC{B: 1, H: 16, W: 16, C: 8}

	d, err := Generic(opDef(tensor.F32), dst, attr, profileAMD)
	require.NoError(t, err)

	p := SelectParams(profileAMD, attr, tensor.F32, dst)
	assert.Equal(t, GenerateSource(p), d.ShaderSource)
	assert.Equal(t, "src_tensor", d.SrcTensors[0].Name)
	assert.Equal(t, "dst_tensor", d.DstTensors[0].Name)

	assert.Equal(t, []string{
		"kernel_size_x", "kernel_size_y", "dilation_x", "dilation_y",
		"stride_x", "stride_y", "padding_x", "padding_y",
		"task_size_x", "task_size_y",
	}, d.Args.IntNames())
	want := map[string]int{
		"kernel_size_x": 3, "kernel_size_y": 3,
		"dilation_x": 1, "dilation_y": 1,
		"stride_x": 2, "stride_y": 1,
		"padding_x": -2, "padding_y": -1,
	}
	for name, v := range want {
		got, ok := d.Args.Int(name)
		require.True(t, ok, name)
		assert.Equal(t, v, got, name)
	}

	assert.Equal(t, []string{"weights", "biases"}, d.Args.BufferNames())
	weights, ok := d.Args.Buffer("weights")
	require.True(t, ok)
	assert.Equal(t, tensor.Float32, weights.ElementType)
	assert.Equal(t, 4, weights.ElementSize)
	assert.Equal(t, task.MemoryGlobal, weights.MemoryType)
	assert.Equal(t, task.ConvertFloats(ReorderWeights(attr.Weights, p), tensor.Float32), weights.Data)

	biases, ok := d.Args.Buffer("biases")
	require.True(t, ok)
	assert.Equal(t, PaddedBiasLen(8, p)*4, biases.Size())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 0, 0, 0, 0, 0, 0, 0, 0}, task.DecodeFloats(biases.Data, tensor.Float32))
	assert.Equal(t, task.ConvertFloatsResized(attr.Bias.Data, tensor.Float32, PaddedBiasLen(8, p)), biases.Data)
	assert.Equal(t, PadBias(attr.Bias, 8, p), task.DecodeFloats(biases.Data, tensor.Float32))

	assert.Equal(t, Dispatcher{Params: p}, d.Update)
	assert.Equal(t, Dispatcher{Params: p}, d.Resize)

	require.NoError(t, d.Update.Update(nil, []tensor.BHWC{dst}, &d.Args))
	x, _ := d.Args.Int("task_size_x")
	y, _ := d.Args.Int("task_size_y")
	assert.Equal(t, 16, x)
	assert.Equal(t, 256, y)
}

func TestGeneric_PointwiseUsesConstantMemory(t *testing.T) {
	attr := newAttr(4, 1, 1, 4)
	dst := tensor.BHWC{B: 1, H: 8, W: 8, C: 4}

	d, err := Generic(opDef(tensor.F16), dst, attr, profileAMD)
	require.NoError(t, err)

	weights, _ := d.Args.Buffer("weights")
	biases, _ := d.Args.Buffer("biases")
	assert.Equal(t, task.MemoryConstant, weights.MemoryType)
	assert.Equal(t, task.MemoryConstant, biases.MemoryType)
	assert.Equal(t, tensor.Float16, weights.ElementType)
	// 1 slice block of 4 slices, 16 floats each, 2 bytes per half.
	assert.Equal(t, 4*16*2, weights.Size())
	assert.NotContains(t, d.ShaderSource, "do {")

	// No bias: one zero-filled slice block of halves.
	p := SelectParams(profileAMD, attr, tensor.F16, dst)
	assert.Equal(t, PaddedBiasLen(4, p)*2, biases.Size())
	assert.Equal(t, make([]float32, PaddedBiasLen(4, p)), task.DecodeFloats(biases.Data, tensor.Float16))
}

func TestGeneric_InvalidInputs(t *testing.T) {
	dst := tensor.BHWC{B: 1, H: 8, W: 8, C: 4}
	tests := []struct {
		name   string
		attr   Attributes
		dst    tensor.BHWC
		target error
	}{
		{
			name: "zero stride",
			attr: func() Attributes {
				a := newAttr(4, 3, 3, 4)
				a.Strides.H = 0
				return a
			}(),
			dst:    dst,
			target: ErrInvalidAttributes,
		},
		{
			name: "short weight data",
			attr: func() Attributes {
				a := newAttr(4, 3, 3, 4)
				a.Weights.Data = a.Weights.Data[:10]
				return a
			}(),
			dst:    dst,
			target: ErrInvalidAttributes,
		},
		{
			name: "bias too long",
			attr: func() Attributes {
				a := newAttr(4, 3, 3, 4)
				a.Bias = tensor.Linear{Data: make([]float32, 5)}
				return a
			}(),
			dst:    dst,
			target: ErrInvalidAttributes,
		},
		{
			name:   "channel mismatch",
			attr:   newAttr(8, 3, 3, 4),
			dst:    dst,
			target: ErrInvalidAttributes,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Generic(opDef(tensor.F32), tt.dst, tt.attr, profileA12)
			assert.Nil(t, d)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, tt.target, errors.Cause(err))
		})
	}

	_, err := Generic(opDef(tensor.F32), tensor.BHWC{B: 1, H: 0, W: 8, C: 4}, newAttr(4, 1, 1, 4), profileA12)
	assert.Error(t, err)
}

func TestWinograd4x4To6x6(t *testing.T) {
	attr := samePadding(newAttr(8, 3, 3, 6), 1)
	// Destination of the Winograd multiply: 36 tile rows by tile count.
	dst := tensor.BHWC{B: 1, H: 36, W: 16, C: 8}

	for _, profile := range allProfiles {
		t.Run(profile.String(), func(t *testing.T) {
			d, err := Winograd4x4To6x6(opDef(tensor.F32), dst, attr, profile)
			require.NoError(t, err)

			p := winogradParams(profile)
			require.NoError(t, p.Validate())
			assert.True(t, p.DifferentWeightsForHeight)
			assert.Equal(t, d.ShaderSource, GenerateSource(p))

			for _, name := range []string{"kernel_size_x", "kernel_size_y", "dilation_x", "stride_y"} {
				v, _ := d.Args.Int(name)
				assert.Equal(t, 1, v, name)
			}
			for _, name := range []string{"padding_x", "padding_y"} {
				v, _ := d.Args.Int(name)
				assert.Zero(t, v, name)
			}

			weights, _ := d.Args.Buffer("weights")
			wino := tensor.OHWI{O: 8, H: 36, W: 1, I: 6}
			assert.Equal(t, ReorderedWeightsLen(wino, p)*4, weights.Size())

			biases, _ := d.Args.Buffer("biases")
			assert.Equal(t, task.MemoryGlobal, biases.MemoryType)
			for _, v := range task.DecodeFloats(biases.Data, tensor.Float32) {
				assert.Zero(t, v)
			}
		})
	}
}

func TestWinograd4x4To6x6_Unsuitable(t *testing.T) {
	dst := tensor.BHWC{B: 1, H: 36, W: 4, C: 4}

	strided := newAttr(4, 3, 3, 4)
	strided.Strides = tensor.HW{H: 2, W: 2}
	for _, attr := range []Attributes{newAttr(4, 5, 5, 4), newAttr(4, 1, 1, 4), strided} {
		d, err := Winograd4x4To6x6(opDef(tensor.F32), dst, attr, profileA12)
		assert.Nil(t, d)
		assert.ErrorIs(t, err, ErrUnsuitableForWinograd)
	}

	assert.True(t, IsSuitableForWinograd4x4To6x6(newAttr(4, 3, 3, 4)))
}

func TestWinograd4x4To6x6WithTransform(t *testing.T) {
	attr := newAttr(4, 3, 3, 4)
	dst := tensor.BHWC{B: 1, H: 36, W: 4, C: 4}

	var calls int
	custom := func(w tensor.Weights) tensor.Weights {
		calls++
		out := tensor.NewWeights(tensor.OHWI{O: w.Shape.O, H: 36, W: 1, I: w.Shape.I})
		for i := range out.Data {
			out.Data[i] = float32(i)
		}
		return out
	}

	d, err := Winograd4x4To6x6WithTransform(opDef(tensor.F32), dst, attr, profileA12, custom)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	p := winogradParams(profileA12)
	weights, _ := d.Args.Buffer("weights")
	assert.Equal(t, task.ConvertFloats(ReorderWeights(custom(attr.Weights), p), tensor.Float32), weights.Data)

	req := Request{Def: opDef(tensor.F32), Dst: dst, Attr: attr, Winograd: true, WinogradTransform: custom}
	viaRequest, err := req.Compile(profileA12)
	require.NoError(t, err)
	got, _ := viaRequest.Args.Buffer("weights")
	assert.Equal(t, weights.Data, got.Data)

	req.WinogradTransform = nil
	builtin, err := req.Compile(profileA12)
	require.NoError(t, err)
	got, _ = builtin.Args.Buffer("weights")
	assert.NotEqual(t, weights.Data, got.Data)
}

func TestWinograd4x4To6x6WithTransform_BadShape(t *testing.T) {
	attr := newAttr(4, 3, 3, 4)
	dst := tensor.BHWC{B: 1, H: 36, W: 4, C: 4}
	identity := func(w tensor.Weights) tensor.Weights { return w }

	d, err := Winograd4x4To6x6WithTransform(opDef(tensor.F32), dst, attr, profileA12, identity)
	assert.Nil(t, d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "winograd transform produced")
}

func TestCompileAll(t *testing.T) {
	reqs := []Request{
		{Def: opDef(tensor.F32), Dst: tensor.BHWC{B: 1, H: 8, W: 8, C: 4}, Attr: newAttr(4, 1, 1, 4)},
		{Def: opDef(tensor.F16), Dst: tensor.BHWC{B: 1, H: 16, W: 16, C: 8}, Attr: samePadding(newAttr(8, 3, 3, 8), 1)},
		{Def: opDef(tensor.F32F16), Dst: tensor.BHWC{B: 1, H: 36, W: 4, C: 8}, Attr: newAttr(8, 3, 3, 8), Winograd: true},
	}

	got, err := CompileAll(context.Background(), profileIntel, reqs)
	require.NoError(t, err)
	require.Len(t, got, len(reqs))

	for i, r := range reqs {
		want, err := r.Compile(profileIntel)
		require.NoError(t, err)
		assert.Equal(t, want.ShaderSource, got[i].ShaderSource, "request %d", i)
		assert.Equal(t, r.Def, got[i].Def)
	}
}

func TestCompileAll_Error(t *testing.T) {
	bad := newAttr(4, 3, 3, 4)
	bad.Dilations.W = 0
	reqs := []Request{
		{Def: opDef(tensor.F32), Dst: tensor.BHWC{B: 1, H: 8, W: 8, C: 4}, Attr: newAttr(4, 1, 1, 4)},
		{Def: opDef(tensor.F32), Dst: tensor.BHWC{B: 1, H: 8, W: 8, C: 4}, Attr: bad},
	}

	got, err := CompileAll(context.Background(), profileA8, reqs)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrInvalidAttributes)
	assert.Contains(t, err.Error(), "request 1")
}

func TestCompileAll_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reqs := []Request{{Def: opDef(tensor.F32), Dst: tensor.BHWC{B: 1, H: 8, W: 8, C: 4}, Attr: newAttr(4, 1, 1, 4)}}
	_, err := CompileAll(ctx, profileA8, reqs)
	assert.ErrorIs(t, err, context.Canceled)
}
