// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package conv

import (
	"context"

	"github.com/born-ml/convgen/internal/conv"
	"github.com/born-ml/convgen/internal/task"
	"github.com/born-ml/convgen/tensor"
)

// Attributes describe one 2-D convolution operator.
type Attributes = conv.Attributes

// Padding is the zero padding added before and after each spatial axis.
type Padding = conv.Padding

// Params is the tiling configuration of one generated kernel.
type Params = conv.Params

// WeightsUploadType selects how the kernel fetches filter weights.
type WeightsUploadType = conv.WeightsUploadType

// Weight upload strategies.
const (
	PrivateMemSIMD8Broadcast  = conv.PrivateMemSIMD8Broadcast
	PrivateMemSIMD16Broadcast = conv.PrivateMemSIMD16Broadcast
	PrivateMemSIMD32Broadcast = conv.PrivateMemSIMD32Broadcast
	LocalMemByThreads         = conv.LocalMemByThreads
	GlobalMem                 = conv.GlobalMem
	ConstantMem               = conv.ConstantMem
)

// WeightsLayout is the ordering of the innermost 4x4 channel block.
type WeightsLayout = conv.WeightsLayout

// Inner block layouts.
const (
	O4I4 = conv.O4I4
	I4O4 = conv.I4O4
)

// Dispatcher maps runtime shapes to launch geometry and scalar arguments.
type Dispatcher = conv.Dispatcher

// Request is one operator to compile with CompileAll.
type Request = conv.Request

// Task is the compiled operator handed to the host runtime.
type Task = task.Descriptor

// OperationDef describes the operation being compiled.
type OperationDef = task.OperationDef

// ArgumentsBinder sets scalar arguments at bind time.
type ArgumentsBinder = task.ArgumentsBinder

// Errors returned by the assemblers.
var (
	ErrInvalidAttributes     = conv.ErrInvalidAttributes
	ErrUnsuitableForWinograd = conv.ErrUnsuitableForWinograd
)

// NewOperationDef returns a one-input, one-output definition whose tensors
// use the storage type of precision.
func NewOperationDef(precision tensor.Precision) OperationDef {
	desc := task.TensorDescriptor{DataType: precision.DataType()}
	return OperationDef{
		Precision:  precision,
		SrcTensors: []task.TensorDescriptor{desc},
		DstTensors: []task.TensorDescriptor{desc},
	}
}

// SelectParams picks the tiling configuration for one convolution.
func SelectParams(profile Profile, attr Attributes, precision tensor.Precision, dst tensor.BHWC) Params {
	return conv.SelectParams(profile, attr, precision, dst)
}

// GenerateSource renders the kernel for p.
func GenerateSource(p Params) string {
	return conv.GenerateSource(p)
}

// ReorderWeights rearranges OHWI weights into the layout read by the kernel.
func ReorderWeights(w tensor.Weights, p Params) []float32 {
	return conv.ReorderWeights(w, p)
}

// PadBias zero-extends the bias to whole slice blocks.
func PadBias(b tensor.Linear, dstChannels int, p Params) []float32 {
	return conv.PadBias(b, dstChannels, p)
}

// Generic assembles the direct convolution task.
func Generic(def OperationDef, dst tensor.BHWC, attr Attributes, profile Profile) (*Task, error) {
	return conv.Generic(def, dst, attr, profile)
}

// Winograd4x4To6x6 assembles the multiply stage of the Winograd path.
func Winograd4x4To6x6(def OperationDef, dst tensor.BHWC, attr Attributes, profile Profile) (*Task, error) {
	return conv.Winograd4x4To6x6(def, dst, attr, profile)
}

// WeightsTransform maps a 3x3 filter to its Winograd domain form.
type WeightsTransform = conv.WeightsTransform

// Winograd4x4To6x6WithTransform assembles the Winograd multiply stage with a
// caller supplied filter transform.
func Winograd4x4To6x6WithTransform(def OperationDef, dst tensor.BHWC, attr Attributes, profile Profile, transform WeightsTransform) (*Task, error) {
	return conv.Winograd4x4To6x6WithTransform(def, dst, attr, profile, transform)
}

// IsSuitableForWinograd4x4To6x6 reports whether Winograd4x4To6x6 accepts attr.
func IsSuitableForWinograd4x4To6x6(attr Attributes) bool {
	return conv.IsSuitableForWinograd4x4To6x6(attr)
}

// CompileAll compiles independent operators concurrently, preserving order.
func CompileAll(ctx context.Context, profile Profile, reqs []Request) ([]*Task, error) {
	return conv.CompileAll(ctx, profile, reqs)
}

