package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/v4lcap/pkg/linuxav/capture"
	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
)

// Defaults applied when the [capture] table leaves a key out.
const (
	DefaultBufferCount = 4
	DefaultPixelFormat = "YUYV"
)

// CaptureFile is the on-disk form of a capture configuration.
type CaptureFile struct {
	Capture CaptureSection `toml:"capture"`
}

// CaptureSection is the [capture] table.
type CaptureSection struct {
	Device        string `toml:"device"`
	Input         *int   `toml:"input,omitempty"`
	Width         uint32 `toml:"width,omitempty"`
	Height        uint32 `toml:"height,omitempty"`
	Format        string `toml:"format,omitempty"`
	Field         string `toml:"field,omitempty"`
	TimePerFrame  string `toml:"time_per_frame,omitempty"`
	FPS           uint32 `toml:"fps,omitempty"`
	HighQuality   bool   `toml:"high_quality,omitempty"`
	Buffers       int    `toml:"buffers,omitempty"`
	MappingPolicy string `toml:"mapping_policy,omitempty"`
}

// CaptureSettings is a parsed [capture] table.
type CaptureSettings struct {
	Session capture.Config
	Buffers int
}

// DefaultCaptureFile returns the file written by `config init`.
func DefaultCaptureFile() CaptureFile {
	def := capture.DefaultConfig()
	return CaptureFile{Capture: CaptureSection{
		Device:        def.Path,
		Format:        DefaultPixelFormat,
		Field:         def.Field.String(),
		TimePerFrame:  def.TimePerFrame.String(),
		Buffers:       DefaultBufferCount,
		MappingPolicy: def.MappingPolicy.String(),
	}}
}

// LoadCaptureConfig reads the [capture] table from path. A missing file yields
// the defaults.
func LoadCaptureConfig(path string) (CaptureSettings, error) {
	file, err := ReadCaptureFile(path)
	if err != nil {
		return CaptureSettings{}, err
	}
	return file.Settings()
}

// ReadCaptureFile decodes path without interpreting it. A missing file yields
// an empty CaptureFile.
func ReadCaptureFile(path string) (CaptureFile, error) {
	var file CaptureFile
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return file, nil
	}
	if err != nil {
		return file, fmt.Errorf("read capture config: %w", err)
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return file, nil
}

// SaveCaptureConfig writes file to path as TOML.
func SaveCaptureConfig(path string, file CaptureFile) error {
	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode capture config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write capture config: %w", err)
	}
	return nil
}

// Settings converts the file form into a session configuration. Unset keys
// keep the capture package defaults.
func (f CaptureFile) Settings() (CaptureSettings, error) {
	s := f.Capture
	b := capture.New()

	if s.Device != "" {
		b.Device(s.Device)
	}
	if s.Input != nil {
		b.Input(*s.Input)
	}
	if s.Width != 0 || s.Height != 0 {
		b.VideoSize(s.Width, s.Height)
	}
	format := s.Format
	if format == "" {
		format = DefaultPixelFormat
	}
	code, err := v4l2.ParseFourCC(format)
	if err != nil {
		return CaptureSettings{}, fmt.Errorf("capture.format: %w", err)
	}
	b.PixelFormat(code)

	if s.Field != "" {
		field, err := v4l2.ParseField(s.Field)
		if err != nil {
			return CaptureSettings{}, fmt.Errorf("capture.field: %w", err)
		}
		b.Field(field)
	}
	switch {
	case s.TimePerFrame != "" && s.FPS != 0:
		return CaptureSettings{}, errors.New("capture: time_per_frame and fps are mutually exclusive")
	case s.TimePerFrame != "":
		num, den, err := ParseFraction(s.TimePerFrame)
		if err != nil {
			return CaptureSettings{}, fmt.Errorf("capture.time_per_frame: %w", err)
		}
		b.TimePerFrame(num, den)
	case s.FPS != 0:
		b.TimePerFrame(1, s.FPS)
	}
	if s.HighQuality {
		b.HighQuality()
	}
	policy, err := capture.ParseMappingPolicy(s.MappingPolicy)
	if err != nil {
		return CaptureSettings{}, fmt.Errorf("capture.mapping_policy: %w", err)
	}
	b.MappingPolicy(policy)

	buffers := s.Buffers
	if buffers == 0 {
		buffers = DefaultBufferCount
	}
	if buffers < 0 {
		return CaptureSettings{}, fmt.Errorf("capture.buffers: negative count %d", buffers)
	}

	cfg := b.Config()
	if err := cfg.Validate(); err != nil {
		return CaptureSettings{}, err
	}
	return CaptureSettings{Session: cfg, Buffers: buffers}, nil
}

// ParseFraction parses "num/den". A bare integer n means 1/n.
func ParseFraction(s string) (uint32, uint32, error) {
	numStr, denStr, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found {
		den, err := strconv.ParseUint(numStr, 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid fraction %q", s)
		}
		return 1, uint32(den), nil
	}
	num, err := strconv.ParseUint(strings.TrimSpace(numStr), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid numerator in %q", s)
	}
	den, err := strconv.ParseUint(strings.TrimSpace(denStr), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid denominator in %q", s)
	}
	return uint32(num), uint32(den), nil
}
