package capture

import (
	"fmt"
	"log/slog"

	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
)

// negotiate applies cfg to dev in the order drivers expect: input, stream
// parameters, then image format.
func negotiate(dev Device, cfg Config, logger *slog.Logger) (v4l2.PixFormat, v4l2.CaptureParm, error) {
	formats, err := dev.Formats(v4l2.BufTypeVideoCapture)
	if err != nil {
		return v4l2.PixFormat{}, v4l2.CaptureParm{}, err
	}
	if !offers(formats, cfg.PixelFormat) {
		return v4l2.PixFormat{}, v4l2.CaptureParm{}, v4l2.NewError(v4l2.ErrCodeUnsupportedFormat, "negotiate",
			fmt.Sprintf("pixel format %q not offered by %s", v4l2.FormatFourCC(cfg.PixelFormat), dev.Path()))
	}

	if cfg.Input != nil {
		if err := dev.SetInput(*cfg.Input); err != nil {
			return v4l2.PixFormat{}, v4l2.CaptureParm{}, err
		}
	}

	parm, err := applyCaptureParm(dev, cfg)
	if err != nil {
		return v4l2.PixFormat{}, v4l2.CaptureParm{}, err
	}
	logger.Debug("Stream parameters applied",
		"read_buffers", parm.ReadBuffers,
		"capture_mode", parm.CaptureMode,
		"time_per_frame", parm.TimePerFrame.String())

	requested := cfg.requestedFormat()
	format, err := dev.SetFormat(v4l2.BufTypeVideoCapture, requested)
	if err != nil {
		return v4l2.PixFormat{}, v4l2.CaptureParm{}, err
	}
	if format.Width != requested.Width || format.Height != requested.Height {
		logger.Warn("Driver adjusted frame size",
			"requested", fmt.Sprintf("%dx%d", requested.Width, requested.Height),
			"applied", fmt.Sprintf("%dx%d", format.Width, format.Height))
	}
	logger.Info("Format negotiated",
		"format", v4l2.FormatFourCC(format.PixelFormat),
		"width", format.Width,
		"height", format.Height,
		"field", format.Field.String(),
		"size_image", format.SizeImage)

	return format, parm, nil
}

func offers(formats []v4l2.FormatDesc, pixelFormat uint32) bool {
	for _, f := range formats {
		if f.PixelFormat == pixelFormat {
			return true
		}
	}
	return false
}

// applyCaptureParm reads the current capture parameters, overwrites the
// capture mode and, when the driver supports it, the frame period.
func applyCaptureParm(dev Device, cfg Config) (v4l2.CaptureParm, error) {
	current, err := dev.StreamParm(v4l2.BufTypeVideoCapture)
	if err != nil {
		return v4l2.CaptureParm{}, err
	}
	parm, ok := current.(v4l2.CaptureParm)
	if !ok {
		return v4l2.CaptureParm{}, v4l2.NewError(v4l2.ErrCodeControl, "VIDIOC_G_PARM",
			fmt.Sprintf("driver returned %s parameters for capture", current.BufType()))
	}

	parm.CaptureMode = cfg.CaptureMode
	if parm.HasTimePerFrame() {
		parm.TimePerFrame = cfg.TimePerFrame
	}

	applied, err := dev.SetStreamParm(parm)
	if err != nil {
		return v4l2.CaptureParm{}, err
	}
	if p, ok := applied.(v4l2.CaptureParm); ok {
		return p, nil
	}
	return parm, nil
}
