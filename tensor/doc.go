// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the shape and data descriptors used by the
// convolution kernel generator.
//
// # Overview
//
// Activations are channel-last (BHWC) and grouped into slices of four
// channels, the vector width of the generated kernels. Filters are OHWI:
// output channels, kernel height, kernel width, input channels.
//
// # Basic Usage
//
//	import "github.com/born-ml/convgen/tensor"
//
//	func main() {
//	    w := tensor.NewWeights(tensor.OHWI{O: 16, H: 3, W: 3, I: 8})
//	    w.Set(0, 1, 1, 0, 1.0)
//
//	    dst := tensor.BHWC{B: 1, H: 32, W: 32, C: 16}
//	    fmt.Println(dst.Slices()) // 4
//	}
//
// # Precision
//
// A Precision selects both the storage type of uploaded buffers and the
// accumulation type of the kernel:
//   - F32: float32 storage and accumulation
//   - F32F16: float16 storage, float32 accumulation
//   - F16: float16 storage and accumulation
package tensor
