// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go reference backend for 2-D convolution.
//
// # Overview
//
// The backend evaluates convolutions on the host with two paths:
//   - Conv2D, a direct im2col evaluation on OHWI weights
//   - Conv2DBlocked, which walks the reordered weight buffer exactly as a
//     generated kernel does
//
// Comparing the two validates a tiling configuration without a GPU.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/convgen/backend/cpu"
//	    "github.com/born-ml/convgen/conv"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    p := conv.SelectParams(profile, attr, tensor.F32, dst)
//	    want := backend.Conv2D(src, attr)
//	    got := backend.Conv2DBlocked(src, attr, p)
//	}
package cpu
