//go:build linux

package capture

import (
	"fmt"

	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
)

// SystemProber queries the devices under /dev.
type SystemProber struct{}

// Devices lists the capture devices on the system.
func (SystemProber) Devices() ([]v4l2.DeviceInfo, error) {
	return v4l2.FindDevices()
}

// Formats enumerates formats, sizes and frame rates of the device at path.
func (SystemProber) Formats(path string) ([]FormatInfo, error) {
	dev, err := v4l2.Open(path)
	if err != nil {
		return nil, err
	}
	defer dev.Close()

	descs, err := dev.Formats(v4l2.BufTypeVideoCapture)
	if err != nil {
		return nil, fmt.Errorf("enumerate formats of %s: %w", path, err)
	}

	out := make([]FormatInfo, 0, len(descs))
	for _, desc := range descs {
		info := describe(desc)
		sizes, err := dev.FrameSizes(desc.PixelFormat)
		if err != nil {
			return nil, fmt.Errorf("enumerate sizes of %s: %w", info.FourCC, err)
		}
		for _, res := range v4l2.Resolutions(sizes) {
			intervals, err := dev.FrameIntervals(desc.PixelFormat, res.Width, res.Height)
			if err != nil {
				return nil, fmt.Errorf("enumerate intervals of %s %s: %w", info.FourCC, res, err)
			}
			info.Sizes = append(info.Sizes, SizeInfo{
				Width:  res.Width,
				Height: res.Height,
				FPS:    rates(v4l2.Periods(intervals)),
			})
		}
		out = append(out, info)
	}
	return out, nil
}
