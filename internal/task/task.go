// Package task holds the compute-task descriptor that a kernel generator
// fills in for the host runtime: shader source, named scalar arguments,
// constant buffers and the shape-driven update and dispatch hooks.
package task

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/born-ml/convgen/internal/tensor"
)

// ErrUnknownArgument is returned when binding a scalar that was never declared.
var ErrUnknownArgument = errors.New("unknown argument")

// MemoryType is the residency class of a constant buffer.
type MemoryType int

// Buffer residency classes.
const (
	MemoryGlobal MemoryType = iota
	MemoryConstant
)

// String returns the Metal address space of the memory type.
func (m MemoryType) String() string {
	if m == MemoryConstant {
		return "constant"
	}
	return "device"
}

// BufferDescriptor is a CPU-side buffer to be uploaded before dispatch.
type BufferDescriptor struct {
	ElementType tensor.DataType
	// ElementSize is the vector width of one element (4 for FLT4).
	ElementSize int
	MemoryType  MemoryType
	Data        []byte
}

// Size returns the buffer length in bytes.
func (b *BufferDescriptor) Size() int {
	return len(b.Data)
}

// ArgumentsBinder sets scalar arguments at bind time.
type ArgumentsBinder interface {
	SetInt(name string, value int) error
}

type intArg struct {
	name  string
	value int
}

type bufferArg struct {
	name string
	desc *BufferDescriptor
}

// Arguments is an ordered set of named scalar and buffer arguments.
// The zero value is ready to use.
type Arguments struct {
	ints    []intArg
	buffers []bufferArg
}

// AddInt declares a scalar argument with an optional initial value.
func (a *Arguments) AddInt(name string, value ...int) {
	v := 0
	if len(value) > 0 {
		v = value[0]
	}
	a.ints = append(a.ints, intArg{name: name, value: v})
}

// SetInt updates a declared scalar argument.
func (a *Arguments) SetInt(name string, value int) error {
	for i := range a.ints {
		if a.ints[i].name == name {
			a.ints[i].value = value
			return nil
		}
	}
	return fmt.Errorf("set %q: %w", name, ErrUnknownArgument)
}

// Int returns the value of a scalar argument.
func (a *Arguments) Int(name string) (int, bool) {
	arg, ok := lo.Find(a.ints, func(arg intArg) bool { return arg.name == name })
	return arg.value, ok
}

// IntNames returns scalar argument names in declaration order.
func (a *Arguments) IntNames() []string {
	return lo.Map(a.ints, func(arg intArg, _ int) string { return arg.name })
}

// AddBuffer declares a buffer argument.
func (a *Arguments) AddBuffer(name string, desc *BufferDescriptor) {
	a.buffers = append(a.buffers, bufferArg{name: name, desc: desc})
}

// Buffer returns a declared buffer argument.
func (a *Arguments) Buffer(name string) (*BufferDescriptor, bool) {
	arg, ok := lo.Find(a.buffers, func(arg bufferArg) bool { return arg.name == name })
	return arg.desc, ok
}

// BufferNames returns buffer argument names in declaration order.
func (a *Arguments) BufferNames() []string {
	return lo.Map(a.buffers, func(arg bufferArg, _ int) string { return arg.name })
}

// OperationDef describes the operation being compiled.
type OperationDef struct {
	Precision  tensor.Precision
	SrcTensors []TensorDescriptor
	DstTensors []TensorDescriptor
}

// TensorDescriptor describes a tensor bound to the kernel.
type TensorDescriptor struct {
	DataType tensor.DataType
}

// TensorRef binds a tensor descriptor to its name in the kernel source.
type TensorRef struct {
	Name string
	Desc TensorDescriptor
}

// Updater recomputes shape-dependent scalar arguments. It is re-invoked by
// the host whenever tensor shapes change.
type Updater interface {
	Update(src, dst []tensor.BHWC, args ArgumentsBinder) error
}

// Resizer maps current shapes to (work-group size, launch-group count).
type Resizer interface {
	DispatchSizes(src, dst []tensor.BHWC) (groupSize, groupsCount tensor.Uint3)
}

// Descriptor is everything the host needs to run one generated kernel.
type Descriptor struct {
	Def          OperationDef
	ShaderSource string
	SrcTensors   []TensorRef
	DstTensors   []TensorRef
	Args         Arguments
	Update       Updater
	Resize       Resizer
}

// NewDescriptor returns an empty descriptor for def.
func NewDescriptor(def OperationDef) *Descriptor {
	return &Descriptor{Def: def}
}

// AddSrcTensor binds the i-th source tensor of the definition to name.
func (d *Descriptor) AddSrcTensor(name string, desc TensorDescriptor) {
	d.SrcTensors = append(d.SrcTensors, TensorRef{Name: name, Desc: desc})
}

// AddDstTensor binds the i-th destination tensor of the definition to name.
func (d *Descriptor) AddDstTensor(name string, desc TensorDescriptor) {
	d.DstTensors = append(d.DstTensors, TensorRef{Name: name, Desc: desc})
}
