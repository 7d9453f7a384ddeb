// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package conv

import "github.com/born-ml/convgen/internal/gpuinfo"

// Profile describes the target GPU.
type Profile = gpuinfo.Profile

// Vendor identifies the GPU manufacturer.
type Vendor = gpuinfo.Vendor

// Known vendors.
const (
	VendorUnknown  = gpuinfo.VendorUnknown
	VendorApple    = gpuinfo.VendorApple
	VendorIntel    = gpuinfo.VendorIntel
	VendorAMD      = gpuinfo.VendorAMD
	VendorNvidia   = gpuinfo.VendorNvidia
	VendorQualcomm = gpuinfo.VendorQualcomm
	VendorArm      = gpuinfo.VendorArm
)

// ProfileFromDevice builds a profile from a vendor and the driver's device
// name, e.g. "Apple A12 GPU".
func ProfileFromDevice(vendor Vendor, device string) Profile {
	return gpuinfo.FromDevice(vendor, device)
}

// ParseVendor maps a vendor name such as "apple" or "intel" to a Vendor.
func ParseVendor(name string) Vendor {
	return gpuinfo.ParseVendor(name)
}

// ErrDetectUnsupported is returned by DetectProfile on platforms without a
// WebGPU adapter query.
var ErrDetectUnsupported = gpuinfo.ErrDetectUnsupported

// DetectProfile queries the system's high-performance GPU adapter.
func DetectProfile() (Profile, error) {
	return gpuinfo.Detect()
}
