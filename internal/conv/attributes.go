package conv

import (
	"github.com/pkg/errors"

	"github.com/born-ml/convgen/internal/tensor"
)

// ErrInvalidAttributes is the cause of every attribute validation failure.
var ErrInvalidAttributes = errors.New("invalid convolution attributes")

// Padding is the zero padding added before and after each spatial axis.
type Padding struct {
	Prepended tensor.HW
	Appended  tensor.HW
}

// Attributes describe one 2-D convolution operator.
type Attributes struct {
	Weights   tensor.Weights
	Bias      tensor.Linear
	Strides   tensor.HW
	Dilations tensor.HW
	Padding   Padding
}

// Validate checks that the attributes describe a well-formed convolution.
func (a Attributes) Validate() error {
	if err := a.Weights.Shape.Validate(); err != nil {
		return errors.Wrapf(ErrInvalidAttributes, "weights %v: %v", a.Weights.Shape, err)
	}
	if got, want := len(a.Weights.Data), a.Weights.Shape.NumElements(); got != want {
		return errors.Wrapf(ErrInvalidAttributes, "weights %v hold %d values, want %d", a.Weights.Shape, got, want)
	}
	if len(a.Bias.Data) > a.Weights.Shape.O {
		return errors.Wrapf(ErrInvalidAttributes, "bias has %d values for %d output channels", len(a.Bias.Data), a.Weights.Shape.O)
	}
	if a.Strides.H < 1 || a.Strides.W < 1 {
		return errors.Wrapf(ErrInvalidAttributes, "strides %+v must be positive", a.Strides)
	}
	if a.Dilations.H < 1 || a.Dilations.W < 1 {
		return errors.Wrapf(ErrInvalidAttributes, "dilations %+v must be positive", a.Dilations)
	}
	p := a.Padding
	if p.Prepended.H < 0 || p.Prepended.W < 0 || p.Appended.H < 0 || p.Appended.W < 0 {
		return errors.Wrapf(ErrInvalidAttributes, "padding %+v must be non-negative", p)
	}
	return nil
}

// KernelXIs1 reports whether the horizontal axis reduces to a pointwise
// access: width 1, stride 1, dilation 1 and no padding.
func KernelXIs1(a Attributes) bool {
	return a.Weights.Shape.W == 1 && a.Strides.W == 1 && a.Dilations.W == 1 &&
		a.Padding.Prepended.W == 0 && a.Padding.Appended.W == 0
}

// KernelYIs1 is the vertical counterpart of KernelXIs1.
func KernelYIs1(a Attributes) bool {
	return a.Weights.Shape.H == 1 && a.Strides.H == 1 && a.Dilations.H == 1 &&
		a.Padding.Prepended.H == 0 && a.Padding.Appended.H == 0
}

// IsSuitableForWinograd4x4To6x6 reports whether the Winograd path applies:
// a 3x3 kernel with unit stride and dilation.
func IsSuitableForWinograd4x4To6x6(a Attributes) bool {
	return a.Weights.Shape.W == 3 && a.Weights.Shape.H == 3 &&
		a.Strides.W == 1 && a.Strides.H == 1 &&
		a.Dilations.W == 1 && a.Dilations.H == 1
}
