//go:build linux

package hotplug

import (
	"context"
	"errors"

	"golang.org/x/sys/unix"
)

const (
	// kernelGroup is the netlink multicast group the kernel sends uevents to.
	kernelGroup = 1
	pollSlice   = 1000 // ms
	maxUEvent   = 8192
)

// Monitor reads kernel uevents for a set of subsystems.
type Monitor struct {
	fd         int
	subsystems map[string]bool
}

// NewMonitor opens a uevent socket. Events from subsystems other than the
// given ones are discarded; with none given, video4linux is watched.
func NewMonitor(subsystems ...string) (*Monitor, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, err
	}
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: kernelGroup}); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	if len(subsystems) == 0 {
		subsystems = []string{SubsystemVideo4Linux}
	}
	m := &Monitor{fd: fd, subsystems: make(map[string]bool, len(subsystems))}
	for _, s := range subsystems {
		m.subsystems[s] = true
	}
	return m, nil
}

// Close releases the socket. Call it after Run has returned.
func (m *Monitor) Close() error {
	return unix.Close(m.fd)
}

// Run delivers matching events to out until ctx is cancelled or the socket
// fails. out is closed when Run returns.
func (m *Monitor) Run(ctx context.Context, out chan<- Event) error {
	defer close(out)

	buf := make([]byte, maxUEvent)
	fds := []unix.PollFd{{Fd: int32(m.fd), Events: unix.POLLIN}}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := unix.Poll(fds, pollSlice)
		if errors.Is(err, unix.EINTR) || n == 0 {
			continue
		}
		if err != nil {
			return err
		}

		size, _, err := unix.Recvfrom(m.fd, buf, unix.MSG_DONTWAIT)
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return err
		}

		ev := ParseUEvent(buf[:size])
		if ev == nil || !m.subsystems[ev.Subsystem] {
			continue
		}

		select {
		case out <- *ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
