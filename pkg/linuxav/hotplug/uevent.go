// Package hotplug reports video device arrival and removal from kernel
// uevents read over a netlink socket.
package hotplug

import (
	"bytes"
	"path"
	"strings"
)

// Kernel uevent actions.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
	ActionBind   = "bind"
	ActionUnbind = "unbind"
)

// SubsystemVideo4Linux is the uevent subsystem of /dev/video* nodes.
const SubsystemVideo4Linux = "video4linux"

// Event is one kernel uevent.
type Event struct {
	Action    string
	KObj      string // kernel object path, /devices/...
	Subsystem string
	DevName   string // node name relative to /dev, e.g. "video0"
	Major     string
	Minor     string
	Env       map[string]string
}

// DeviceNode returns the /dev path of the event's node, or "" when the event
// carries no DEVNAME.
func (e Event) DeviceNode() string {
	if e.DevName == "" {
		return ""
	}
	if strings.HasPrefix(e.DevName, "/") {
		return path.Clean(e.DevName)
	}
	return path.Join("/dev", e.DevName)
}

// IsVideoNode reports whether the event concerns a video4linux device node.
func (e Event) IsVideoNode() bool {
	return e.Subsystem == SubsystemVideo4Linux && e.DevName != ""
}

var libudevMagic = []byte("libudev\x00")

// ParseUEvent decodes "ACTION@KOBJ\0KEY=VALUE\0...". It returns nil for
// anything that is not a kernel uevent, including libudev rebroadcasts.
func ParseUEvent(data []byte) *Event {
	if len(data) == 0 || bytes.HasPrefix(data, libudevMagic) {
		return nil
	}

	fields := bytes.Split(data, []byte{0})
	action, kobj, ok := strings.Cut(string(fields[0]), "@")
	if !ok || action == "" {
		return nil
	}

	ev := &Event{Action: action, KObj: kobj, Env: make(map[string]string)}
	for _, f := range fields[1:] {
		key, value, ok := strings.Cut(string(f), "=")
		if !ok || key == "" {
			continue
		}
		ev.Env[key] = value
		switch key {
		case "SUBSYSTEM":
			ev.Subsystem = value
		case "DEVNAME":
			ev.DevName = value
		case "MAJOR":
			ev.Major = value
		case "MINOR":
			ev.Minor = value
		}
	}
	return ev
}
