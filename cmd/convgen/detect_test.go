//go:build !windows

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/convgen/conv"
)

func TestDetectUnsupported(t *testing.T) {
	_, err := run(t, "plan", "--detect")
	assert.ErrorIs(t, err, conv.ErrDetectUnsupported)

	cfg := defaultConfig()
	cfg.Detect = true
	_, err = cfg.profile()
	assert.ErrorIs(t, err, conv.ErrDetectUnsupported)
	assert.ErrorIs(t, verify(cfg, false, 1e-4, nil), conv.ErrDetectUnsupported)
}
