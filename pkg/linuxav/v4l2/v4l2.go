// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) API for
// device enumeration, format negotiation and memory-mapped streaming I/O.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm). Request numbers are
// computed from the struct layouts of the target architecture.
//
// # Device Enumeration
//
// Use FindDevices to discover all V4L2 video capture devices:
//
//	devices, err := v4l2.FindDevices()
//	for _, dev := range devices {
//	    fmt.Printf("%s: %s\n", dev.DevicePath, dev.DeviceName)
//	}
//
// # Format Queries
//
// Query supported formats, frame sizes and frame periods of an open device:
//
//	dev, _ := v4l2.Open("/dev/video0")
//	defer dev.Close()
//	formats, _ := dev.Formats(v4l2.BufTypeVideoCapture)
//	for _, f := range formats {
//	    sizes, _ := dev.FrameSizes(f.PixelFormat)
//	    for _, r := range v4l2.Resolutions(sizes) {
//	        intervals, _ := dev.FrameIntervals(f.PixelFormat, r.Width, r.Height)
//	    }
//	}
//
// # Streaming
//
// Device exposes the individual buffer operations (RequestBuffers,
// QueryBuffer, Map, QueueBuffer, DequeueBuffer, StreamOn, StreamOff). The
// capture package drives them as a state machine and should normally be used
// instead.
//
// # Errors
//
// Every failure is an *Error carrying an ErrorCode. The underlying errno stays
// reachable:
//
//	if errors.Is(err, v4l2.ErrControl) && errors.Is(err, unix.ENODEV) {
//	    // device unplugged
//	}
package v4l2
