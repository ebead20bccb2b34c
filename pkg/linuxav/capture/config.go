package capture

import (
	"fmt"
	"log/slog"

	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
)

// DefaultDevicePath is the device opened when no path is configured.
const DefaultDevicePath = "/dev/video0"

// MappingPolicy decides what Prepare does when a granted buffer cannot be
// mapped.
type MappingPolicy int

const (
	// MapStrict fails Prepare and releases every mapping made so far.
	MapStrict MappingPolicy = iota
	// MapTruncate keeps the buffers mapped before the first failure. The pool
	// then holds fewer buffers than the driver granted.
	MapTruncate
)

func (p MappingPolicy) String() string {
	switch p {
	case MapStrict:
		return "strict"
	case MapTruncate:
		return "truncate"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseMappingPolicy parses "strict" or "truncate". An empty string is strict.
func ParseMappingPolicy(s string) (MappingPolicy, error) {
	switch s {
	case "", "strict":
		return MapStrict, nil
	case "truncate":
		return MapTruncate, nil
	default:
		return MapStrict, fmt.Errorf("unknown mapping policy %q", s)
	}
}

// Config is the full description of a capture session. It is applied to the
// device once, when the session is opened.
type Config struct {
	Path string
	// Input selects a video input. Nil leaves the driver's current input.
	Input         *int
	CaptureMode   uint32
	Width         uint32
	Height        uint32
	PixelFormat   uint32
	Field         v4l2.Field
	Colorspace    v4l2.Colorspace
	TimePerFrame  v4l2.Fract
	MappingPolicy MappingPolicy
	Logger        *slog.Logger
}

// DefaultConfig returns the configuration a new Builder starts from.
func DefaultConfig() Config {
	return Config{
		Path:         DefaultDevicePath,
		Field:        v4l2.FieldAny,
		Colorspace:   v4l2.ColorspaceJPEG,
		TimePerFrame: v4l2.Fract{Numerator: 1, Denominator: 30},
	}
}

// Validate checks the values that can be rejected without touching the device.
func (c Config) Validate() error {
	if c.Path == "" {
		return v4l2.NewError(v4l2.ErrCodeInvalidConfig, "validate", "device path is empty")
	}
	if c.TimePerFrame.Denominator == 0 {
		return v4l2.NewError(v4l2.ErrCodeInvalidConfig, "validate",
			fmt.Sprintf("time per frame %s has a zero denominator", c.TimePerFrame))
	}
	if c.Input != nil && *c.Input < 0 {
		return v4l2.NewError(v4l2.ErrCodeInvalidConfig, "validate", fmt.Sprintf("negative input index %d", *c.Input))
	}
	return nil
}

func (c Config) requestedFormat() v4l2.PixFormat {
	return v4l2.PixFormat{
		Width:       c.Width,
		Height:      c.Height,
		PixelFormat: c.PixelFormat,
		Field:       c.Field,
		Colorspace:  c.Colorspace,
	}
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.With("component", "capture")
}

// Builder accumulates a Config. Open applies it.
type Builder struct {
	cfg Config
}

// New returns a builder for the default device.
func New() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// WithDevice returns a builder for the device at path.
func WithDevice(path string) *Builder {
	return New().Device(path)
}

// FromConfig returns a builder starting from cfg.
func FromConfig(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

// Device sets the device node path.
func (b *Builder) Device(path string) *Builder {
	b.cfg.Path = path
	return b
}

// Input selects the video input to switch to before negotiation.
func (b *Builder) Input(index int) *Builder {
	b.cfg.Input = &index
	return b
}

// HighQuality requests the driver's high quality still capture mode.
func (b *Builder) HighQuality() *Builder {
	b.cfg.CaptureMode = v4l2.ModeHighQuality
	return b
}

// CaptureMode sets the raw capture mode bits.
func (b *Builder) CaptureMode(mode uint32) *Builder {
	b.cfg.CaptureMode = mode
	return b
}

// VideoSize sets the requested frame size.
func (b *Builder) VideoSize(width, height uint32) *Builder {
	b.cfg.Width = width
	b.cfg.Height = height
	return b
}

// PixelFormat sets the requested pixel format code.
func (b *Builder) PixelFormat(format uint32) *Builder {
	b.cfg.PixelFormat = format
	return b
}

// Progressive requests non-interlaced frames.
func (b *Builder) Progressive() *Builder {
	b.cfg.Field = v4l2.FieldNone
	return b
}

// Field sets the requested field order.
func (b *Builder) Field(f v4l2.Field) *Builder {
	b.cfg.Field = f
	return b
}

// Colorspace sets the requested colorspace.
func (b *Builder) Colorspace(c v4l2.Colorspace) *Builder {
	b.cfg.Colorspace = c
	return b
}

// TimePerFrame sets the requested frame period. Drivers without frame period
// control ignore it.
func (b *Builder) TimePerFrame(numerator, denominator uint32) *Builder {
	b.cfg.TimePerFrame = v4l2.Fract{Numerator: numerator, Denominator: denominator}
	return b
}

// MappingPolicy sets how buffer mapping failures are handled.
func (b *Builder) MappingPolicy(p MappingPolicy) *Builder {
	b.cfg.MappingPolicy = p
	return b
}

// Logger sets the logger used by the session.
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.cfg.Logger = l
	return b
}

// Config returns a copy of the accumulated configuration.
func (b *Builder) Config() Config {
	return b.cfg
}

// OpenDevice negotiates cfg on an already open device and returns a session in
// the Opened state. The device is closed if negotiation fails.
func OpenDevice(dev Device, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		dev.Close()
		return nil, err
	}
	logger := cfg.logger().With("device", dev.Path())

	format, parm, err := negotiate(dev, cfg, logger)
	if err != nil {
		dev.Close()
		return nil, err
	}
	return newSession(dev, cfg, logger, format, parm), nil
}
