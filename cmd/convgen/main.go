// Package main provides the convgen developer CLI.
//
// It prints generated Metal kernels, the tiling and dispatch plan chosen for
// a GPU, and checks a plan against the CPU reference convolution.
package main

import (
	"os"

	"k8s.io/klog/v2"
)

const version = "v0.1.0-dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		klog.ErrorS(err, "convgen failed")
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}
