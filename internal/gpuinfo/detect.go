package gpuinfo

import "github.com/pkg/errors"

// ErrDetectUnsupported is returned by Detect on platforms without a WebGPU
// adapter query.
var ErrDetectUnsupported = errors.New("gpuinfo: adapter detection is only available on windows")
