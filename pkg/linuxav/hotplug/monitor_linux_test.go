//go:build linux

package hotplug

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestMonitor(t *testing.T, subsystems ...string) *Monitor {
	t.Helper()
	m, err := NewMonitor(subsystems...)
	if err != nil {
		t.Skipf("netlink uevent socket unavailable: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestNewMonitorDefaultsToVideo(t *testing.T) {
	m := newTestMonitor(t)
	if m.fd <= 0 {
		t.Errorf("expected valid fd, got %d", m.fd)
	}
	if !m.subsystems[SubsystemVideo4Linux] || len(m.subsystems) != 1 {
		t.Errorf("subsystems = %v, want only video4linux", m.subsystems)
	}
}

func TestNewMonitorSubsystems(t *testing.T) {
	m := newTestMonitor(t, SubsystemVideo4Linux, "usb")
	if !m.subsystems["usb"] || !m.subsystems[SubsystemVideo4Linux] {
		t.Errorf("subsystems = %v", m.subsystems)
	}
}

func TestMonitorRunCancelled(t *testing.T) {
	m := newTestMonitor(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan Event, 1)
	if err := m.Run(ctx, out); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, ok := <-out; ok {
		t.Error("out not closed")
	}
}

func TestMonitorRunStopsOnDeadline(t *testing.T) {
	m := newTestMonitor(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	out := make(chan Event, 16)
	err := m.Run(ctx, out)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Run took %v to notice the deadline", elapsed)
	}
}

func TestMonitorClose(t *testing.T) {
	m, err := NewMonitor()
	if err != nil {
		t.Skipf("netlink uevent socket unavailable: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := m.Close(); err == nil {
		t.Error("expected error on second Close()")
	}
}
