// Package cpu evaluates convolutions on the host. It is the reference the
// generated kernels and weight layouts are checked against.
package cpu

import (
	"github.com/born-ml/convgen/internal/parallel"
)

// CPUBackend runs reference convolutions on the host.
type CPUBackend struct {
	parallel parallel.Config
}

// New creates a CPU backend that uses every available core.
func New() *CPUBackend {
	return &CPUBackend{
		parallel: parallel.DefaultConfig(),
	}
}

// NewWithConfig creates a CPU backend with explicit parallelism settings.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{parallel: cfg}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}
