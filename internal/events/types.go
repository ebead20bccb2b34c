package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeSessionStateChanged uint32 = iota + 1
	TypeFormatNegotiated
	TypeFrameCaptured
	TypeCaptureError
	TypeDeviceChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// Timestamp formats t the way every event carries it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// SessionStateChangedEvent is published on every capture session transition.
type SessionStateChangedEvent struct {
	DevicePath string `json:"device_path" example:"/dev/video0" doc:"Path to the video device"`
	From       string `json:"from" example:"prepared" doc:"Previous session state"`
	To         string `json:"to" example:"streaming" doc:"New session state"`
	Timestamp  string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for SessionStateChangedEvent.
func (e SessionStateChangedEvent) Type() uint32 { return TypeSessionStateChanged }

// FormatNegotiatedEvent reports the format the driver accepted.
type FormatNegotiatedEvent struct {
	DevicePath  string  `json:"device_path" example:"/dev/video0" doc:"Path to the video device"`
	PixelFormat string  `json:"pixel_format" example:"YUYV" doc:"Negotiated pixel format"`
	Width       uint32  `json:"width" example:"640" doc:"Negotiated width"`
	Height      uint32  `json:"height" example:"480" doc:"Negotiated height"`
	SizeImage   uint32  `json:"size_image" example:"614400" doc:"Bytes per frame"`
	FPS         float64 `json:"fps" example:"30" doc:"Negotiated frame rate"`
	BufferCount int     `json:"buffer_count" example:"4" doc:"Mapped buffers"`
	Timestamp   string  `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Negotiation timestamp"`
}

// Type returns the event type identifier for FormatNegotiatedEvent.
func (e FormatNegotiatedEvent) Type() uint32 { return TypeFormatNegotiated }

// FrameCapturedEvent is published for every dequeued frame.
type FrameCapturedEvent struct {
	DevicePath string        `json:"device_path" example:"/dev/video0" doc:"Path to the video device"`
	Index      uint32        `json:"index" example:"2" doc:"Buffer index"`
	Sequence   uint32        `json:"sequence" example:"118" doc:"Driver frame sequence number"`
	BytesUsed  uint32        `json:"bytes_used" example:"614400" doc:"Payload size"`
	Dropped    uint32        `json:"dropped" example:"0" doc:"Frames skipped since the previous one"`
	KernelTime time.Duration `json:"kernel_time" doc:"Driver timestamp"`
	Timestamp  string        `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Dequeue timestamp"`
}

// Type returns the event type identifier for FrameCapturedEvent.
func (e FrameCapturedEvent) Type() uint32 { return TypeFrameCaptured }

// CaptureErrorEvent reports a failed capture operation.
type CaptureErrorEvent struct {
	DevicePath string `json:"device_path" example:"/dev/video0" doc:"Path to the video device"`
	Code       string `json:"code" example:"CONTROL_FAILED" doc:"Error category"`
	Op         string `json:"op" example:"VIDIOC_DQBUF" doc:"Failed operation"`
	Error      string `json:"error" example:"no such device" doc:"Detailed error description"`
	Timestamp  string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Error timestamp"`
}

// Type returns the event type identifier for CaptureErrorEvent.
func (e CaptureErrorEvent) Type() uint32 { return TypeCaptureError }

// DeviceChangedEvent reports a video device node appearing or disappearing.
type DeviceChangedEvent struct {
	Action     string `json:"action" example:"add" doc:"Kernel action (add, remove)"`
	DevicePath string `json:"device_path" example:"/dev/video0" doc:"Path to the video device"`
	KObj       string `json:"kobj" doc:"Kernel object path"`
	Timestamp  string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceChangedEvent.
func (e DeviceChangedEvent) Type() uint32 { return TypeDeviceChanged }
