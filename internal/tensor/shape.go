package tensor

import "fmt"

// DivideRoundUp returns ceil(n / d) for positive d.
func DivideRoundUp(n, d int) int {
	return (n + d - 1) / d
}

// AlignByN rounds n up to the next multiple of a.
func AlignByN(n, a int) int {
	return DivideRoundUp(n, a) * a
}

// Slices returns the number of 4-channel groups needed for c channels.
func Slices(c int) int {
	return DivideRoundUp(c, 4)
}

// Int3 is a signed integer triple indexed as x, y, z.
type Int3 struct {
	X, Y, Z int
}

// At returns the component with index i (0 = x, 1 = y, 2 = z).
func (v Int3) At(i int) int {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	default:
		panic(fmt.Sprintf("int3: index %d out of range", i))
	}
}

// Set assigns the component with index i.
func (v *Int3) Set(i, value int) {
	switch i {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	case 2:
		v.Z = value
	default:
		panic(fmt.Sprintf("int3: index %d out of range", i))
	}
}

// Product returns x*y*z.
func (v Int3) Product() int {
	return v.X * v.Y * v.Z
}

// String formats the triple as (x, y, z).
func (v Int3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}

// Uint3 is an unsigned triple used for dispatch geometry.
type Uint3 struct {
	X, Y, Z uint32
}

// Product returns x*y*z.
func (v Uint3) Product() uint64 {
	return uint64(v.X) * uint64(v.Y) * uint64(v.Z)
}

// String formats the triple as (x, y, z).
func (v Uint3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}

// HW is a height/width pair used for strides, dilations and padding.
type HW struct {
	H, W int
}

// BHWC describes a channel-last activation tensor.
type BHWC struct {
	B, H, W, C int
}

// Slices returns ceil(C/4).
func (s BHWC) Slices() int {
	return Slices(s.C)
}

// Validate checks that every dimension is positive.
func (s BHWC) Validate() error {
	for i, dim := range [...]int{s.B, s.H, s.W, s.C} {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// String formats the shape as BHWC(b, h, w, c).
func (s BHWC) String() string {
	return fmt.Sprintf("BHWC(%d, %d, %d, %d)", s.B, s.H, s.W, s.C)
}

// OHWI describes a weight tensor: output channels, kernel height, kernel
// width, input channels.
type OHWI struct {
	O, H, W, I int
}

// NumElements returns the total number of elements.
func (s OHWI) NumElements() int {
	return s.O * s.H * s.W * s.I
}

// LinearIndex returns the row-major offset of (o, h, w, i).
func (s OHWI) LinearIndex(o, h, w, i int) int {
	return ((o*s.H+h)*s.W+w)*s.I + i
}

// Validate checks that every dimension is positive.
func (s OHWI) Validate() error {
	for i, dim := range [...]int{s.O, s.H, s.W, s.I} {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// String formats the shape as OHWI(o, h, w, i).
func (s OHWI) String() string {
	return fmt.Sprintf("OHWI(%d, %d, %d, %d)", s.O, s.H, s.W, s.I)
}

// Weights is a dense float32 OHWI weight tensor.
type Weights struct {
	Shape OHWI
	Data  []float32
}

// NewWeights allocates a zero-filled weight tensor.
func NewWeights(shape OHWI) Weights {
	return Weights{Shape: shape, Data: make([]float32, shape.NumElements())}
}

// At returns the element at (o, h, w, i).
func (t Weights) At(o, h, w, i int) float32 {
	return t.Data[t.Shape.LinearIndex(o, h, w, i)]
}

// Set assigns the element at (o, h, w, i).
func (t Weights) Set(o, h, w, i int, v float32) {
	t.Data[t.Shape.LinearIndex(o, h, w, i)] = v
}

// Linear is a one-dimensional float32 tensor, used for biases.
type Linear struct {
	Data []float32
}

// Activations is a dense float32 BHWC tensor, used by host-side reference code.
type Activations struct {
	Shape BHWC
	Data  []float32
}

// NewActivations allocates a zero-filled activation tensor.
func NewActivations(shape BHWC) Activations {
	return Activations{Shape: shape, Data: make([]float32, shape.B*shape.H*shape.W*shape.C)}
}

// Index returns the row-major offset of (b, h, w, c).
func (t Activations) Index(b, h, w, c int) int {
	return ((b*t.Shape.H+h)*t.Shape.W+w)*t.Shape.C + c
}
