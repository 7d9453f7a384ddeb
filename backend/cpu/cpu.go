// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"github.com/born-ml/convgen/conv"
	internalcpu "github.com/born-ml/convgen/internal/backend/cpu"
	"github.com/born-ml/convgen/internal/parallel"
	"github.com/born-ml/convgen/tensor"
)

// Backend is the CPU reference implementation of 2-D convolution.
type Backend = internalcpu.CPUBackend

// Config controls how the backend splits work across goroutines.
type Config = parallel.Config

// New creates a CPU backend that uses every available core.
//
// Example:
//
//	import (
//	    "github.com/born-ml/convgen/backend/cpu"
//	    "github.com/born-ml/convgen/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    out := backend.Conv2D(src, attr)
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with an explicit parallelism setup.
func NewWithConfig(cfg Config) *Backend {
	return internalcpu.NewWithConfig(cfg)
}

// Sequential returns a config that runs every operation on the caller.
func Sequential() Config {
	return parallel.Sequential()
}

// OutputShape returns the destination shape of attr applied to src.
func OutputShape(src tensor.BHWC, attr conv.Attributes) tensor.BHWC {
	return internalcpu.OutputShape(src, attr)
}
