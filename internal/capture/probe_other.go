//go:build !linux

package capture

import (
	"errors"

	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
)

// SystemProber reports that device discovery is unavailable on this platform.
type SystemProber struct{}

// Devices always fails outside Linux.
func (SystemProber) Devices() ([]v4l2.DeviceInfo, error) {
	return nil, errors.ErrUnsupported
}

// Formats always fails outside Linux.
func (SystemProber) Formats(string) ([]FormatInfo, error) {
	return nil, errors.ErrUnsupported
}
