//go:build !linux

package led

import "fmt"

// Stub for non-Linux development hosts.
func openRGB(cfg Config) (rgbDriver, error) {
	return nil, fmt.Errorf("led: gpio unsupported on this platform")
}
