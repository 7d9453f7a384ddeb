// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/convgen/internal/tensor"
)

// DataType is the storage type of a device buffer element.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float16 DataType = tensor.Float16
)

// Precision selects storage and accumulation types of a generated kernel.
type Precision = tensor.Precision

// Precision constants.
const (
	F32    Precision = tensor.F32
	F32F16 Precision = tensor.F32F16
	F16    Precision = tensor.F16
)

// ParsePrecision parses "f32", "f32_f16" or "f16".
func ParsePrecision(s string) (Precision, bool) {
	return tensor.ParsePrecision(s)
}

// Shapes and integer triples.
type (
	// BHWC is a channel-last activation shape.
	BHWC = tensor.BHWC
	// OHWI is a filter shape.
	OHWI = tensor.OHWI
	// HW is a height/width pair for strides, dilations and padding.
	HW = tensor.HW
	// Int3 is a signed x, y, z triple.
	Int3 = tensor.Int3
	// Uint3 is the unsigned triple used for dispatch geometry.
	Uint3 = tensor.Uint3
)

// Data containers.
type (
	// Weights is a dense float32 OHWI filter tensor.
	Weights = tensor.Weights
	// Linear is a bias vector.
	Linear = tensor.Linear
	// Activations is a dense float32 BHWC tensor.
	Activations = tensor.Activations
)

// NewWeights allocates a zero-filled filter tensor.
func NewWeights(shape OHWI) Weights {
	return tensor.NewWeights(shape)
}

// NewActivations allocates a zero-filled activation tensor.
func NewActivations(shape BHWC) Activations {
	return tensor.NewActivations(shape)
}

// Slices returns the number of 4-channel groups needed for c channels.
func Slices(c int) int {
	return tensor.Slices(c)
}

// DivideRoundUp returns ceil(n / divisor) for non-negative n.
func DivideRoundUp(n, divisor int) int {
	return tensor.DivideRoundUp(n, divisor)
}
