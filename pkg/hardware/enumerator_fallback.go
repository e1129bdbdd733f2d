//go:build !linux || !cgo

package hardware

import "fmt"

// NewPlatformEnumerator returns the enumerator for this platform.
// Without udev there is no discovery; the filter bank falls straight
// into simulation mode.
func NewPlatformEnumerator() Enumerator {
	return nullEnumerator{}
}

type nullEnumerator struct{}

func (nullEnumerator) Discover() ([]string, error) {
	return nil, nil
}

func (nullEnumerator) Configure(url string) (Actuator, error) {
	return nil, fmt.Errorf("no hardware backend on this platform")
}
