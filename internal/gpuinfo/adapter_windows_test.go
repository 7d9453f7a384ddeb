//go:build windows

package gpuinfo

import (
	"testing"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestFromAdapter(t *testing.T) {
	tests := []struct {
		name   string
		info   *wgpu.AdapterInfo
		vendor Vendor
		family Family
	}{
		{"nil adapter", nil, VendorUnknown, FamilyGeneric},
		{"intel", &wgpu.AdapterInfo{VendorID: 0x8086, Device: "Intel(R) UHD Graphics 630"}, VendorIntel, FamilySIMDBroadcast},
		{"nvidia", &wgpu.AdapterInfo{VendorID: 0x10DE, Device: "NVIDIA GeForce RTX 3080"}, VendorNvidia, FamilyGeneric},
		{"amd", &wgpu.AdapterInfo{VendorID: 0x1002, Device: "AMD Radeon RX 6800"}, VendorAMD, FamilyGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromAdapter(tt.info)
			assert.Equal(t, tt.vendor, p.Vendor)
			assert.Equal(t, tt.family, p.Family())
			assert.Equal(t, 1, p.Units())
		})
	}
}
