//go:build !windows

package gpuinfo

// Detect returns ErrDetectUnsupported.
func Detect() (Profile, error) {
	return Profile{}, ErrDetectUnsupported
}
