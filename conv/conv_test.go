// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package conv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convgen/conv"
	"github.com/born-ml/convgen/tensor"
)

func attr3x3(channels int) conv.Attributes {
	w := tensor.NewWeights(tensor.OHWI{O: channels, H: 3, W: 3, I: channels})
	for i := range w.Data {
		w.Data[i] = float32(i%7) * 0.25
	}
	return conv.Attributes{
		Weights:   w,
		Strides:   tensor.HW{H: 1, W: 1},
		Dilations: tensor.HW{H: 1, W: 1},
		Padding: conv.Padding{
			Prepended: tensor.HW{H: 1, W: 1},
			Appended:  tensor.HW{H: 1, W: 1},
		},
	}
}

func TestGeneric(t *testing.T) {
	profile := conv.ProfileFromDevice(conv.VendorApple, "Apple A12 GPU")
	attr := attr3x3(8)
	dst := tensor.BHWC{B: 1, H: 16, W: 16, C: 8}

	task, err := conv.Generic(conv.NewOperationDef(tensor.F16), dst, attr, profile)
	require.NoError(t, err)

	p := conv.SelectParams(profile, attr, tensor.F16, dst)
	assert.Equal(t, conv.GenerateSource(p), task.ShaderSource)
	assert.Contains(t, task.ShaderSource, "kernel void ComputeFunction(")

	group, groups := task.Resize.DispatchSizes(nil, []tensor.BHWC{dst})
	assert.Equal(t, p.WorkGroupSize.X, int(group.X))
	assert.NotZero(t, groups.Product())
}

func TestWinograd(t *testing.T) {
	profile := conv.ProfileFromDevice(conv.ParseVendor("intel"), "Intel(R) Iris(R) Xe Graphics")
	attr := attr3x3(4)
	require.True(t, conv.IsSuitableForWinograd4x4To6x6(attr))

	_, err := conv.Winograd4x4To6x6(conv.NewOperationDef(tensor.F32), tensor.BHWC{B: 1, H: 36, W: 4, C: 4}, attr, profile)
	require.NoError(t, err)

	attr.Strides = tensor.HW{H: 2, W: 2}
	_, err = conv.Winograd4x4To6x6(conv.NewOperationDef(tensor.F32), tensor.BHWC{B: 1, H: 36, W: 4, C: 4}, attr, profile)
	assert.ErrorIs(t, err, conv.ErrUnsuitableForWinograd)
}

func TestCompileAll(t *testing.T) {
	profile := conv.ProfileFromDevice(conv.VendorNvidia, "NVIDIA GeForce RTX 3080")
	reqs := []conv.Request{
		{Def: conv.NewOperationDef(tensor.F32), Dst: tensor.BHWC{B: 1, H: 8, W: 8, C: 8}, Attr: attr3x3(8)},
		{Def: conv.NewOperationDef(tensor.F32F16), Dst: tensor.BHWC{B: 1, H: 36, W: 2, C: 8}, Attr: attr3x3(8), Winograd: true},
	}

	tasks, err := conv.CompileAll(context.Background(), profile, reqs)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.NotEqual(t, tasks[0].ShaderSource, tasks[1].ShaderSource)
}
