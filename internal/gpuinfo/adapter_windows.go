//go:build windows

package gpuinfo

import (
	"fmt"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/pkg/errors"
)

// FromAdapter builds a profile from the adapter information reported by
// WebGPU. A nil adapter yields the generic profile.
func FromAdapter(info *wgpu.AdapterInfo) Profile {
	if info == nil {
		return Profile{ComputeUnits: 1}
	}
	return FromPCI(info.VendorID, info.Device)
}

// Detect queries the high-performance WebGPU adapter and returns its
// profile.
func Detect() (profile Profile, err error) {
	// wgpu panics when the native library cannot be loaded.
	defer func() {
		if r := recover(); r != nil {
			profile = Profile{}
			err = errors.Wrap(fmt.Errorf("%v", r), "gpuinfo: webgpu native library not available")
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return Profile{}, errors.Wrap(err, "gpuinfo: request adapter")
	}
	defer adapter.Release()

	info := adapter.GetInfo()
	return FromAdapter(&info), nil
}
