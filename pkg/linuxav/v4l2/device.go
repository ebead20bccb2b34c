//go:build linux

package v4l2

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Device is an open V4L2 device node. It owns the file descriptor and is not
// safe for concurrent use. Once closed, every operation fails.
type Device struct {
	path string
	fd   int
}

// Open opens the device node at path for reading and writing.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeOpen, "open", path, err)
	}
	return &Device{path: path, fd: fd}, nil
}

// Path returns the path the device was opened with.
func (d *Device) Path() string {
	return d.path
}

// Fd returns the file descriptor, or -1 after Close.
func (d *Device) Fd() int {
	return d.fd
}

// Close releases the file descriptor. Calling Close more than once is a no-op.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	fd := d.fd
	d.fd = -1
	if err := unix.Close(fd); err != nil {
		return controlError("close", err)
	}
	return nil
}

// ioctl issues req and wraps a failure as a control error named after req.
func (d *Device) ioctl(req uintptr, arg unsafe.Pointer) error {
	if d.fd < 0 {
		return controlError(requestName(req), os.ErrClosed)
	}
	if err := ioctl(d.fd, req, arg); err != nil {
		return controlError(requestName(req), err)
	}
	return nil
}

// Capability queries the driver identity and capabilities.
func (d *Device) Capability() (Capability, error) {
	var c v4l2Capability
	if err := d.ioctl(vidiocQuerycap, unsafe.Pointer(&c)); err != nil {
		return Capability{}, err
	}
	return c.toCapability(), nil
}

// Input returns the index of the current video input.
func (d *Device) Input() (int, error) {
	var index int32
	if err := d.ioctl(vidiocGInput, unsafe.Pointer(&index)); err != nil {
		return 0, err
	}
	return int(index), nil
}

// SetInput selects the video input by index.
func (d *Device) SetInput(index int) error {
	i := int32(index)
	return d.ioctl(vidiocSInput, unsafe.Pointer(&i))
}

// FindDevices finds all V4L2 video capture devices on the system.
func FindDevices() ([]DeviceInfo, error) {
	entries, err := os.ReadDir("/sys/class/video4linux")
	if err != nil {
		if os.IsNotExist(err) {
			return []DeviceInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read video4linux directory: %w", err)
	}

	logger := slog.With("component", "linuxav")
	var devices []DeviceInfo

	for _, entry := range entries {
		devicePath := "/dev/" + entry.Name()

		dev, err := Open(devicePath)
		if err != nil {
			logger.Debug("failed to open video device", "path", devicePath, "error", err)
			continue
		}
		c, err := dev.Capability()
		dev.Close()
		if err != nil {
			logger.Debug("failed to query device capabilities", "path", devicePath, "error", err)
			continue
		}

		// Metadata nodes share the driver but cannot capture images.
		if !c.IsCapture() {
			continue
		}

		indexPath := filepath.Join("/sys/class/video4linux", entry.Name(), "index")
		indexValue := readSysfsInt(indexPath)

		stableID := findStableID(entry.Name(), indexValue)
		if stableID == "" {
			stableID = syntheticID(c.BusInfo, indexValue)
		}

		devices = append(devices, DeviceInfo{
			DevicePath: devicePath,
			DeviceName: c.Card,
			DeviceID:   stableID,
			Driver:     c.Driver,
			BusInfo:    c.BusInfo,
			Caps:       c.Caps(),
		})
	}

	return devices, nil
}

// GetDevicePathByID finds the device path for a given stable device ID.
func GetDevicePathByID(deviceID string) (string, error) {
	devices, err := FindDevices()
	if err != nil {
		return "", fmt.Errorf("failed to find devices: %w", err)
	}

	for _, device := range devices {
		if device.DeviceID == deviceID {
			return device.DevicePath, nil
		}
	}

	return "", fmt.Errorf("device with ID %s not found", deviceID)
}

// syntheticID builds an identifier for devices without a by-id symlink.
func syntheticID(busInfo string, index int) string {
	if strings.HasPrefix(busInfo, "usb-") {
		return fmt.Sprintf("%s-video-index%d", busInfo, index)
	}
	return fmt.Sprintf("platform-%s-video-index%d", busInfo, index)
}

// findStableID looks for a stable ID symlink in /dev/v4l/by-id/
func findStableID(deviceName string, indexValue int) string {
	byIDDir := "/dev/v4l/by-id"
	entries, err := os.ReadDir(byIDDir)
	if err != nil {
		return ""
	}

	expectedSuffix := fmt.Sprintf("-video-index%d", indexValue)

	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 {
			continue
		}

		target, err := os.Readlink(filepath.Join(byIDDir, entry.Name()))
		if err != nil {
			continue
		}

		if filepath.Base(target) == deviceName && strings.HasSuffix(entry.Name(), expectedSuffix) {
			return entry.Name()
		}
	}

	return ""
}

// readSysfsInt reads an integer value from a sysfs file.
func readSysfsInt(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	val, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return val
}

// cstr converts a null-terminated byte slice to a Go string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
