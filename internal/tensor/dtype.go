// Package tensor provides the shape and data descriptors shared by the
// convolution generator: channel-last activation shapes, OHWI weight tensors,
// bias vectors, storage data types and precision modes.
package tensor

// DataType represents the storage type of a device buffer element.
type DataType int

// Supported storage data types.
const (
	Float32 DataType = iota
	Float16
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float16:
		return 2
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	default:
		return "unknown"
	}
}

// Precision selects storage and accumulation types of a generated kernel.
type Precision int

// Supported precision modes.
const (
	// F32 stores and accumulates in float32.
	F32 Precision = iota
	// F32F16 stores in float16 and accumulates in float32.
	F32F16
	// F16 stores and accumulates in float16.
	F16
)

// DataType returns the storage type used for buffers under this precision.
func (p Precision) DataType() DataType {
	if p == F32 {
		return Float32
	}
	return Float16
}

// String returns a human-readable name for the precision mode.
func (p Precision) String() string {
	switch p {
	case F32:
		return "f32"
	case F32F16:
		return "f32_f16"
	case F16:
		return "f16"
	default:
		return "unknown"
	}
}

// ParsePrecision parses the names produced by Precision.String.
func ParsePrecision(s string) (Precision, bool) {
	switch s {
	case "f32":
		return F32, true
	case "f32_f16":
		return F32F16, true
	case "f16":
		return F16, true
	default:
		return F32, false
	}
}
