//go:build !linux

package hotplug

import (
	"context"
	"errors"
)

// Monitor is unavailable outside Linux.
type Monitor struct{}

// NewMonitor always fails outside Linux.
func NewMonitor(...string) (*Monitor, error) {
	return nil, errors.ErrUnsupported
}

// Close does nothing.
func (*Monitor) Close() error { return nil }

// Run closes out and fails.
func (*Monitor) Run(_ context.Context, out chan<- Event) error {
	close(out)
	return errors.ErrUnsupported
}
