// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package conv generates Metal compute kernels for 2-D convolution.
//
// # Overview
//
// For one convolution operator the package produces:
//   - the kernel source, with host placeholders $0 and $1 and args.* bindings
//   - the weights and biases, re-laid out and converted to the storage type
//   - the dispatch geometry and the per-shape scalar arguments
//
// All of them derive from one Params value chosen per GPU family, so the
// weight layout always matches the fetch code in the kernel.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/convgen/conv"
//	    "github.com/born-ml/convgen/tensor"
//	)
//
//	func main() {
//	    profile := conv.ProfileFromDevice(conv.VendorApple, "Apple A12 GPU")
//	    attr := conv.Attributes{
//	        Weights:   tensor.NewWeights(tensor.OHWI{O: 8, H: 3, W: 3, I: 8}),
//	        Strides:   tensor.HW{H: 1, W: 1},
//	        Dilations: tensor.HW{H: 1, W: 1},
//	    }
//	    dst := tensor.BHWC{B: 1, H: 16, W: 16, C: 8}
//	    task, err := conv.Generic(conv.NewOperationDef(tensor.F32), dst, attr, profile)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(task.ShaderSource)
//	}
//
// # Winograd
//
// 3x3 convolutions with unit stride and dilation can instead run through
// the Winograd F(4x4, 3x3) path; Winograd4x4To6x6 assembles its multiply
// stage.
package conv
