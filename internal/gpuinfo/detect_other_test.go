//go:build !windows

package gpuinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect_Unsupported(t *testing.T) {
	p, err := Detect()
	assert.ErrorIs(t, err, ErrDetectUnsupported)
	assert.Equal(t, Profile{}, p)
}
