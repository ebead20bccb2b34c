//go:build linux

package v4l2

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Formats enumerates the pixel formats the device offers for direction t.
func (d *Device) Formats(t BufType) ([]FormatDesc, error) {
	var formats []FormatDesc

	for i := uint32(0); ; i++ {
		desc := v4l2Fmtdesc{index: i, typ: uint32(t)}

		if err := d.ioctl(vidiocEnumFmt, unsafe.Pointer(&desc)); err != nil {
			if errors.Is(err, unix.EINVAL) {
				break // End of enumeration
			}
			return nil, err
		}

		formats = append(formats, FormatDesc{
			Index:       desc.index,
			Type:        BufType(desc.typ),
			Flags:       desc.flags,
			Description: cstr(desc.description[:]),
			PixelFormat: desc.pixelformat,
		})
	}

	return formats, nil
}

// FrameSizes enumerates the frame sizes supported for a pixel format. Devices
// without frame size enumeration return an empty list.
func (d *Device) FrameSizes(pixelFormat uint32) ([]FrameSize, error) {
	var sizes []FrameSize

	for i := uint32(0); ; i++ {
		e := v4l2Frmsizeenum{index: i, pixelFormat: pixelFormat}

		if err := d.ioctl(vidiocEnumFramesizes, unsafe.Pointer(&e)); err != nil {
			if errors.Is(err, unix.EINVAL) {
				break
			}
			if errors.Is(err, unix.ENOTTY) {
				return []FrameSize{}, nil
			}
			return nil, err
		}

		switch FrameSizeType(e.typ) {
		case FrameSizeDiscrete:
			ds := e.discrete()
			sizes = append(sizes, FrameSize{
				Type:     FrameSizeDiscrete,
				Discrete: Resolution{Width: ds.width, Height: ds.height},
			})
		case FrameSizeContinuous, FrameSizeStepwise:
			sw := e.stepwise()
			// Only one range entry is ever reported.
			return append(sizes, FrameSize{
				Type: FrameSizeType(e.typ),
				Min:  Resolution{Width: sw.minWidth, Height: sw.minHeight},
				Max:  Resolution{Width: sw.maxWidth, Height: sw.maxHeight},
				Step: Resolution{Width: sw.stepWidth, Height: sw.stepHeight},
			}), nil
		}
	}

	return sizes, nil
}

// FrameIntervals enumerates the frame periods supported for a pixel format at
// the given size.
func (d *Device) FrameIntervals(pixelFormat, width, height uint32) ([]FrameInterval, error) {
	var intervals []FrameInterval

	for i := uint32(0); ; i++ {
		e := v4l2Frmivalenum{index: i, pixelFormat: pixelFormat, width: width, height: height}

		if err := d.ioctl(vidiocEnumFrameintervals, unsafe.Pointer(&e)); err != nil {
			if errors.Is(err, unix.EINVAL) {
				break
			}
			if errors.Is(err, unix.ENOTTY) {
				return []FrameInterval{}, nil
			}
			return nil, err
		}

		switch FrameSizeType(e.typ) {
		case FrameSizeDiscrete:
			intervals = append(intervals, FrameInterval{
				Type:     FrameSizeDiscrete,
				Discrete: toFract(*e.discrete()),
			})
		case FrameSizeContinuous, FrameSizeStepwise:
			sw := e.stepwise()
			return append(intervals, FrameInterval{
				Type: FrameSizeType(e.typ),
				Min:  toFract(sw.min),
				Max:  toFract(sw.max),
				Step: toFract(sw.step),
			}), nil
		}
	}

	return intervals, nil
}

// Format returns the current image format of direction t.
func (d *Device) Format(t BufType) (PixFormat, error) {
	f := v4l2Format{typ: uint32(t)}
	if err := d.ioctl(vidiocGFmt, unsafe.Pointer(&f)); err != nil {
		return PixFormat{}, err
	}
	return f.pix.toPixFormat(), nil
}

// SetFormat requests an image format for direction t and returns the format
// the driver actually applied, which may differ from the request.
func (d *Device) SetFormat(t BufType, pix PixFormat) (PixFormat, error) {
	f := v4l2Format{typ: uint32(t), pix: fromPixFormat(pix)}
	if err := d.ioctl(vidiocSFmt, unsafe.Pointer(&f)); err != nil {
		return PixFormat{}, err
	}
	return f.pix.toPixFormat(), nil
}

// StreamParm returns the streaming parameters of direction t.
func (d *Device) StreamParm(t BufType) (StreamParm, error) {
	p := v4l2Streamparm{typ: uint32(t)}
	if err := d.ioctl(vidiocGParm, unsafe.Pointer(&p)); err != nil {
		return nil, err
	}
	return decodeStreamParm(&p), nil
}

// SetStreamParm applies streaming parameters to the direction of sp and
// returns the parameters the driver applied.
func (d *Device) SetStreamParm(sp StreamParm) (StreamParm, error) {
	p := encodeStreamParm(sp)
	if err := d.ioctl(vidiocSParm, unsafe.Pointer(&p)); err != nil {
		return nil, err
	}
	return decodeStreamParm(&p), nil
}
