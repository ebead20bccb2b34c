package v4l2

import (
	"fmt"
	"time"
)

// BufType selects the stream direction of a buffer, format or parameter set.
type BufType uint32

// Buffer types.
const (
	BufTypeVideoCapture BufType = 1
	BufTypeVideoOutput  BufType = 2
)

func (t BufType) String() string {
	switch t {
	case BufTypeVideoCapture:
		return "capture"
	case BufTypeVideoOutput:
		return "output"
	default:
		return fmt.Sprintf("buftype(%d)", uint32(t))
	}
}

// Memory is the buffer memory model. Only memory-mapped buffers are supported.
type Memory uint32

// MemoryMMAP selects driver-allocated buffers mapped into the process.
const MemoryMMAP Memory = 1

// Field is the interlacing order of an image.
type Field uint32

// Field orders.
const (
	FieldAny Field = iota
	FieldNone
	FieldTop
	FieldBottom
	FieldInterlaced
	FieldSeqTB
	FieldSeqBT
	FieldAlternate
	FieldInterlacedTB
	FieldInterlacedBT
)

var fieldNames = [...]string{
	"any", "none", "top", "bottom", "interlaced",
	"seq-tb", "seq-bt", "alternate", "interlaced-tb", "interlaced-bt",
}

func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return fmt.Sprintf("field(%d)", uint32(f))
}

// ParseField parses the names produced by Field.String.
func ParseField(s string) (Field, error) {
	for i, name := range fieldNames {
		if name == s {
			return Field(i), nil
		}
	}
	return FieldAny, fmt.Errorf("unknown field order %q", s)
}

// Colorspace identifies the color encoding of an image.
type Colorspace uint32

// Colorspaces.
const (
	ColorspaceDefault     Colorspace = 0
	ColorspaceSMPTE170M   Colorspace = 1
	ColorspaceSMPTE240M   Colorspace = 2
	ColorspaceRec709      Colorspace = 3
	ColorspaceBT878       Colorspace = 4
	Colorspace470SystemM  Colorspace = 5
	Colorspace470SystemBG Colorspace = 6
	ColorspaceJPEG        Colorspace = 7
	ColorspaceSRGB        Colorspace = 8
	ColorspaceOpRGB       Colorspace = 9
	ColorspaceBT2020      Colorspace = 10
	ColorspaceRaw         Colorspace = 11
	ColorspaceDCIP3       Colorspace = 12
)

// Device capability bits.
const (
	CapVideoCapture = 0x00000001
	CapVideoOutput  = 0x00000002
	CapReadWrite    = 0x01000000
	CapStreaming    = 0x04000000
	CapDeviceCaps   = 0x80000000
)

// Stream parameter capability and mode bits.
const (
	CapTimePerFrame = 0x1000
	ModeHighQuality = 0x0001
)

// Buffer flags.
const (
	BufFlagMapped             = 0x00000001
	BufFlagQueued             = 0x00000002
	BufFlagDone               = 0x00000004
	BufFlagKeyFrame           = 0x00000008
	BufFlagError              = 0x00000040
	BufFlagTimestampMonotonic = 0x00002000
)

// Format description flags.
const (
	FmtFlagCompressed = 0x0001
	FmtFlagEmulated   = 0x0002
)

// Capability is the result of VIDIOC_QUERYCAP.
type Capability struct {
	Driver       string
	Card         string
	BusInfo      string
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
}

// Caps returns the capabilities of the opened node, falling back to the
// physical device capabilities for drivers that do not report per-node caps.
func (c Capability) Caps() uint32 {
	if c.Capabilities&CapDeviceCaps != 0 {
		return c.DeviceCaps
	}
	return c.Capabilities
}

// IsCapture reports whether the node can capture video.
func (c Capability) IsCapture() bool {
	return c.Caps()&CapVideoCapture != 0
}

// CanStream reports whether the node supports streaming I/O.
func (c Capability) CanStream() bool {
	return c.Caps()&CapStreaming != 0
}

// VersionString formats the kernel version field as major.minor.patch.
func (c Capability) VersionString() string {
	return fmt.Sprintf("%d.%d.%d", c.Version>>16, (c.Version>>8)&0xff, c.Version&0xff)
}

// DeviceInfo contains information about a V4L2 device.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DeviceID   string // Stable identifier (from /dev/v4l/by-id/ or synthetic)
	Driver     string
	BusInfo    string
	Caps       uint32
}

// FormatDesc is one entry of the pixel format enumeration.
type FormatDesc struct {
	Index       uint32
	Type        BufType
	Flags       uint32
	Description string
	PixelFormat uint32
}

// Emulated reports whether the format is converted in software by libv4l.
func (d FormatDesc) Emulated() bool {
	return d.Flags&FmtFlagEmulated != 0
}

// Compressed reports whether the format is a compressed bitstream.
func (d FormatDesc) Compressed() bool {
	return d.Flags&FmtFlagCompressed != 0
}

// PixFormat is the single-planar image format of a stream.
type PixFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	Field        Field
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   Colorspace
	Priv         uint32
	Flags        uint32
	YCbCrEnc     uint32
	Quantization uint32
	XferFunc     uint32
}

func (f PixFormat) String() string {
	return fmt.Sprintf("%dx%d %s %s", f.Width, f.Height, FormatFourCC(f.PixelFormat), f.Field)
}

// Fract is a rational number, used for frame periods.
type Fract struct {
	Numerator   uint32
	Denominator uint32
}

// FPS returns the rate corresponding to the period f.
func (f Fract) FPS() float64 {
	if f.Numerator == 0 {
		return 0
	}
	return float64(f.Denominator) / float64(f.Numerator)
}

// Duration returns the period f as a duration.
func (f Fract) Duration() time.Duration {
	if f.Denominator == 0 {
		return 0
	}
	return time.Duration(uint64(f.Numerator) * uint64(time.Second) / uint64(f.Denominator))
}

func (f Fract) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// StreamParm is the streaming parameter set of one direction. It is either a
// CaptureParm or an OutputParm.
type StreamParm interface {
	BufType() BufType
	isStreamParm()
}

// CaptureParm holds the capture direction streaming parameters.
type CaptureParm struct {
	Capability   uint32
	CaptureMode  uint32
	TimePerFrame Fract
	ExtendedMode uint32
	ReadBuffers  uint32
}

// BufType implements StreamParm.
func (CaptureParm) BufType() BufType { return BufTypeVideoCapture }
func (CaptureParm) isStreamParm()    {}

// HasTimePerFrame reports whether the driver honors a requested frame period.
func (p CaptureParm) HasTimePerFrame() bool {
	return p.Capability&CapTimePerFrame != 0
}

// OutputParm holds the output direction streaming parameters.
type OutputParm struct {
	Capability   uint32
	OutputMode   uint32
	TimePerFrame Fract
	ExtendedMode uint32
	WriteBuffers uint32
}

// BufType implements StreamParm.
func (OutputParm) BufType() BufType { return BufTypeVideoOutput }
func (OutputParm) isStreamParm()    {}

// Timecode is the SMPTE timecode attached to a buffer, when the driver sets one.
type Timecode struct {
	Type     uint32
	Flags    uint32
	Frames   uint8
	Seconds  uint8
	Minutes  uint8
	Hours    uint8
	UserBits [4]uint8
}

// Buffer describes one kernel buffer. Values are snapshots: the kernel owns the
// buffer state and a Buffer is only valid until the next queue operation on
// its index.
type Buffer struct {
	Index     uint32
	Type      BufType
	BytesUsed uint32
	Flags     uint32
	Field     Field
	// Timestamp is taken from the driver's clock, usually CLOCK_MONOTONIC.
	Timestamp time.Duration
	Timecode  Timecode
	Sequence  uint32
	Memory    Memory
	Offset    uint32
	Length    uint32
}

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  uint32
	Height uint32
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// FrameSizeType distinguishes discrete sizes from ranges.
type FrameSizeType uint32

// Frame size types.
const (
	FrameSizeDiscrete   FrameSizeType = 1
	FrameSizeContinuous FrameSizeType = 2
	FrameSizeStepwise   FrameSizeType = 3
)

// FrameSize is one entry of the frame size enumeration. Discrete is set for
// FrameSizeDiscrete, Min, Max and Step otherwise.
type FrameSize struct {
	Type     FrameSizeType
	Discrete Resolution
	Min      Resolution
	Max      Resolution
	Step     Resolution
}

// Contains reports whether r is a valid size for this entry.
func (s FrameSize) Contains(r Resolution) bool {
	if s.Type == FrameSizeDiscrete {
		return s.Discrete == r
	}
	if r.Width < s.Min.Width || r.Width > s.Max.Width || r.Height < s.Min.Height || r.Height > s.Max.Height {
		return false
	}
	if s.Step.Width > 1 && (r.Width-s.Min.Width)%s.Step.Width != 0 {
		return false
	}
	if s.Step.Height > 1 && (r.Height-s.Min.Height)%s.Step.Height != 0 {
		return false
	}
	return true
}

var commonResolutions = []Resolution{
	{320, 240},  // QVGA
	{640, 480},  // VGA
	{800, 600},  // SVGA
	{1024, 768}, // XGA
	{1280, 720}, // HD
	{1280, 960},
	{1280, 1024}, // SXGA
	{1920, 1080}, // Full HD
	{1920, 1200}, // WUXGA
	{2560, 1440}, // QHD
	{3840, 2160}, // 4K UHD
	{4096, 2160}, // 4K DCI
}

// Resolutions flattens a frame size enumeration. Ranges are expanded to the
// common resolutions they contain.
func Resolutions(sizes []FrameSize) []Resolution {
	var out []Resolution
	for _, s := range sizes {
		if s.Type == FrameSizeDiscrete {
			out = append(out, s.Discrete)
			continue
		}
		for _, r := range commonResolutions {
			if s.Contains(r) {
				out = append(out, r)
			}
		}
	}
	return out
}

// FrameInterval is one entry of the frame interval enumeration. Discrete is set
// for discrete entries, Min, Max and Step otherwise.
type FrameInterval struct {
	Type     FrameSizeType
	Discrete Fract
	Min      Fract
	Max      Fract
	Step     Fract
}

var commonFrameRates = []uint32{60, 50, 30, 25, 20, 15, 10, 5}

// Periods flattens a frame interval enumeration. Ranges are expanded to the
// common frame rates they contain.
func Periods(intervals []FrameInterval) []Fract {
	var out []Fract
	for _, iv := range intervals {
		if iv.Type == FrameSizeDiscrete {
			out = append(out, iv.Discrete)
			continue
		}
		lo, hi := iv.Max.FPS(), iv.Min.FPS()
		for _, fps := range commonFrameRates {
			if f := float64(fps); f >= lo && f <= hi {
				out = append(out, Fract{Numerator: 1, Denominator: fps})
			}
		}
	}
	return out
}
