package capture

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/smazurov/v4lcap/internal/events"
	"github.com/smazurov/v4lcap/pkg/linuxav/hotplug"
)

// WatchDevices consumes hotplug events until ch is closed or ctx ends. Video
// node arrivals and removals are published on bus. When the runner's device
// comes back, a loop that ended with it is resumed.
func WatchDevices(ctx context.Context, ch <-chan hotplug.Event, r *Runner, bus Publisher, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			handleDeviceEvent(ev, r, bus, logger)
		}
	}
}

func handleDeviceEvent(ev hotplug.Event, r *Runner, bus Publisher, logger *slog.Logger) {
	if !ev.IsVideoNode() {
		return
	}
	if ev.Action != hotplug.ActionAdd && ev.Action != hotplug.ActionRemove {
		return
	}

	node := ev.DeviceNode()
	logger.Info("Video device changed", "action", ev.Action, "device", node)
	publish(bus, events.DeviceChangedEvent{
		Action:     ev.Action,
		DevicePath: node,
		KObj:       ev.KObj,
		Timestamp:  events.Timestamp(time.Now()),
	})

	if r == nil || ev.Action != hotplug.ActionAdd || !sameNode(r.Status().Device, node) {
		return
	}
	if r.Resume() {
		logger.Info("Capture device returned, resuming", "device", node)
	}
}

// sameNode compares device paths, following symlinks such as
// /dev/v4l/by-id/... so a configured alias matches the kernel name.
func sameNode(configured, node string) bool {
	if configured == node {
		return true
	}
	resolved, err := filepath.EvalSymlinks(configured)
	return err == nil && resolved == node
}
