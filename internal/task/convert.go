package task

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"

	"github.com/born-ml/convgen/internal/tensor"
)

// ConvertFloats encodes data as little-endian elements of type dt.
func ConvertFloats(data []float32, dt tensor.DataType) []byte {
	out := make([]byte, len(data)*dt.Size())
	switch dt {
	case tensor.Float32:
		for i, v := range data {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
	case tensor.Float16:
		for i, v := range data {
			binary.LittleEndian.PutUint16(out[i*2:], float16.Fromfloat32(v).Bits())
		}
	default:
		panic("convert: unsupported data type " + dt.String())
	}
	return out
}

// ConvertFloatsResized encodes data as ConvertFloats does, truncated or
// zero-extended to exactly n elements.
func ConvertFloatsResized(data []float32, dt tensor.DataType, n int) []byte {
	resized := make([]float32, n)
	copy(resized, data)
	return ConvertFloats(resized, dt)
}

// DecodeFloats is the inverse of ConvertFloats.
func DecodeFloats(data []byte, dt tensor.DataType) []float32 {
	out := make([]float32, len(data)/dt.Size())
	switch dt {
	case tensor.Float32:
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	case tensor.Float16:
		for i := range out {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(data[i*2:])).Float32()
		}
	default:
		panic("convert: unsupported data type " + dt.String())
	}
	return out
}
