// Package gpuinfo describes the hardware profile consumed by the convolution
// parameter selector: GPU vendor, Apple GPU generation and the derived
// heuristic family.
package gpuinfo

import (
	"fmt"
	"strings"
)

// Vendor identifies the GPU manufacturer.
type Vendor int

// Known vendors. Anything not listed maps to VendorUnknown.
const (
	VendorUnknown Vendor = iota
	VendorApple
	VendorIntel
	VendorAMD
	VendorNvidia
	VendorQualcomm
	VendorArm
)

// PCI vendor identifiers reported by graphics adapters.
const (
	pciVendorAMD      = 0x1002
	pciVendorApple    = 0x106B
	pciVendorArm      = 0x13B5
	pciVendorIntel    = 0x8086
	pciVendorNvidia   = 0x10DE
	pciVendorQualcomm = 0x5143
)

// String returns the vendor name.
func (v Vendor) String() string {
	switch v {
	case VendorApple:
		return "apple"
	case VendorIntel:
		return "intel"
	case VendorAMD:
		return "amd"
	case VendorNvidia:
		return "nvidia"
	case VendorQualcomm:
		return "qualcomm"
	case VendorArm:
		return "arm"
	default:
		return "unknown"
	}
}

// ParseVendor maps a vendor name (case-insensitive) to a Vendor.
func ParseVendor(name string) Vendor {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "apple":
		return VendorApple
	case "intel":
		return VendorIntel
	case "amd", "ati":
		return VendorAMD
	case "nvidia":
		return VendorNvidia
	case "qualcomm", "adreno":
		return VendorQualcomm
	case "arm", "mali":
		return VendorArm
	default:
		return VendorUnknown
	}
}

// VendorFromPCI maps a PCI vendor ID to a Vendor.
func VendorFromPCI(id uint32) Vendor {
	switch id {
	case pciVendorApple:
		return VendorApple
	case pciVendorIntel:
		return VendorIntel
	case pciVendorAMD:
		return VendorAMD
	case pciVendorNvidia:
		return VendorNvidia
	case pciVendorQualcomm:
		return VendorQualcomm
	case pciVendorArm:
		return VendorArm
	default:
		return VendorUnknown
	}
}

// Family is the closed set of heuristic families the selector dispatches on.
type Family int

// Heuristic families.
const (
	// FamilyGeneric is the conservative default, also used for AMD.
	FamilyGeneric Family = iota
	// FamilyLocalMemory prefers group-shared staged weights (Apple A7/A8).
	FamilyLocalMemory
	// FamilyGlobalMemory prefers plain global reads (Apple A9 and newer).
	FamilyGlobalMemory
	// FamilySIMDBroadcast prefers per-thread loads with SIMD broadcast (Intel).
	FamilySIMDBroadcast
)

// String returns the family name.
func (f Family) String() string {
	switch f {
	case FamilyLocalMemory:
		return "local-memory"
	case FamilyGlobalMemory:
		return "global-memory"
	case FamilySIMDBroadcast:
		return "simd-broadcast"
	default:
		return "generic"
	}
}

// Profile is the opaque hardware description delivered by the host.
type Profile struct {
	Vendor Vendor
	// ComputeUnits is the number of GPU cores; values below 1 are treated as 1.
	ComputeUnits int
	// LocalMemoryPreferred is set for GPUs where threadgroup memory beats
	// global reads.
	LocalMemoryPreferred bool
	// Bionic marks the newest Apple sub-family (A11 and later).
	Bionic bool
}

// Family returns the heuristic family for the profile.
func (p Profile) Family() Family {
	switch p.Vendor {
	case VendorApple:
		if p.LocalMemoryPreferred {
			return FamilyLocalMemory
		}
		return FamilyGlobalMemory
	case VendorIntel:
		return FamilySIMDBroadcast
	default:
		return FamilyGeneric
	}
}

// Units returns ComputeUnits clamped to at least 1.
func (p Profile) Units() int {
	if p.ComputeUnits < 1 {
		return 1
	}
	return p.ComputeUnits
}

// String formats the profile for logs.
func (p Profile) String() string {
	return fmt.Sprintf("%s/%s cu=%d", p.Vendor, p.Family(), p.Units())
}

// FromDevice builds a profile from a vendor and a device name as reported by
// the driver, e.g. "Apple A12 GPU".
func FromDevice(vendor Vendor, device string) Profile {
	if vendor == VendorUnknown && strings.Contains(strings.ToLower(device), "apple") {
		vendor = VendorApple
	}
	if vendor != VendorApple {
		return Profile{Vendor: vendor, ComputeUnits: 1}
	}
	gpu := ParseAppleGPU(device)
	return Profile{
		Vendor:               VendorApple,
		ComputeUnits:         gpu.ComputeUnits(),
		LocalMemoryPreferred: gpu.LocalMemoryPreferred(),
		Bionic:               gpu.Bionic(),
	}
}

// FromPCI builds a profile from a PCI vendor ID and a device name.
func FromPCI(vendorID uint32, device string) Profile {
	return FromDevice(VendorFromPCI(vendorID), device)
}
