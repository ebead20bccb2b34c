//go:build linux

package v4l2

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestOpenMissingDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video99")

	_, err := Open(path)
	if err == nil {
		t.Fatal("expected error opening missing device")
	}
	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected open error, got %v", err)
	}
	if !errors.Is(err, syscall.ENOENT) {
		t.Errorf("expected ENOENT cause, got %v", err)
	}
}

func TestOpenPathWithNUL(t *testing.T) {
	if _, err := Open("/dev/video\x000"); !errors.Is(err, ErrOpen) {
		t.Errorf("expected open error for path with NUL, got %v", err)
	}
}

// TestNonV4L2Node uses /dev/null, which accepts open but rejects every
// video ioctl.
func TestNonV4L2Node(t *testing.T) {
	dev, err := Open("/dev/null")
	if err != nil {
		t.Skipf("/dev/null not available: %v", err)
	}
	defer dev.Close()

	_, err = dev.Capability()
	if !errors.Is(err, ErrControl) {
		t.Fatalf("expected control error, got %v", err)
	}
	if !errors.Is(err, syscall.ENOTTY) {
		t.Errorf("expected ENOTTY, got %v", err)
	}

	var e *Error
	if errors.As(err, &e) && e.Op != "VIDIOC_QUERYCAP" {
		t.Errorf("Op = %q, want VIDIOC_QUERYCAP", e.Op)
	}

	sizes, err := dev.FrameSizes(PixFmtYUYV)
	if err != nil || len(sizes) != 0 {
		t.Errorf("FrameSizes on non-v4l2 node = %v, %v; want empty", sizes, err)
	}
}

func TestClosedDevice(t *testing.T) {
	dev, err := Open("/dev/null")
	if err != nil {
		t.Skipf("/dev/null not available: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if dev.Fd() != -1 {
		t.Errorf("Fd() after close = %d, want -1", dev.Fd())
	}

	checks := map[string]error{}
	_, checks["capability"] = dev.Capability()
	_, checks["formats"] = dev.Formats(BufTypeVideoCapture)
	_, checks["dequeue"] = dev.DequeueBuffer(BufTypeVideoCapture)
	checks["streamon"] = dev.StreamOn(BufTypeVideoCapture)
	_, checks["wait"] = dev.Wait(0)

	for name, err := range checks {
		if !errors.Is(err, ErrControl) || !errors.Is(err, os.ErrClosed) {
			t.Errorf("%s after close: got %v, want closed control error", name, err)
		}
	}

	if _, err := dev.Map(Buffer{Length: 4096}); !errors.Is(err, ErrMapping) {
		t.Errorf("Map after close: got %v, want mapping error", err)
	}
}

func TestStreamParmUnion(t *testing.T) {
	capture := CaptureParm{
		Capability:   CapTimePerFrame,
		CaptureMode:  ModeHighQuality,
		TimePerFrame: Fract{1, 30},
		ReadBuffers:  4,
	}
	raw := encodeStreamParm(capture)
	if BufType(raw.typ) != BufTypeVideoCapture {
		t.Fatalf("typ = %d, want capture", raw.typ)
	}
	// capability, capturemode, numerator, denominator in host order.
	if raw.parm[0] != 0x00 || raw.parm[1] != 0x10 || raw.parm[4] != 1 || raw.parm[12] != 30 {
		t.Errorf("unexpected capture union bytes % x", raw.parm[:24])
	}
	if got, ok := decodeStreamParm(&raw).(CaptureParm); !ok || got != capture {
		t.Errorf("decoded %#v, want %#v", got, capture)
	}

	output := OutputParm{OutputMode: 1, TimePerFrame: Fract{1001, 60000}, WriteBuffers: 2}
	raw = encodeStreamParm(output)
	if got, ok := decodeStreamParm(&raw).(OutputParm); !ok || got != output {
		t.Errorf("decoded %#v, want %#v", got, output)
	}
}

func TestPixFormatConversion(t *testing.T) {
	pix := PixFormat{
		Width:       1920,
		Height:      1080,
		PixelFormat: PixFmtNV12,
		Field:       FieldNone,
		Colorspace:  ColorspaceJPEG,
	}
	raw := fromPixFormat(pix)
	if raw.field != 1 || raw.colorspace != 7 {
		t.Errorf("field/colorspace = %d/%d, want 1/7", raw.field, raw.colorspace)
	}
	if got := raw.toPixFormat(); got != pix {
		t.Errorf("toPixFormat() = %+v, want %+v", got, pix)
	}
}

func TestIOCEncoding(t *testing.T) {
	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{name: "none", got: ioc(iocNone, 'V', 1, 0), want: 0x00005601},
		{name: "read", got: ior('V', 0, 104), want: 0x80685600},
		{name: "write", got: iow('V', 18, 4), want: 0x40045612},
		{name: "read write", got: iowr('V', 2, 64), want: 0xc0405602},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got 0x%08x, want 0x%08x", tt.got, tt.want)
			}
		})
	}
}

func TestRequestNamesUnique(t *testing.T) {
	if len(requestNames) != 16 {
		t.Errorf("request table has %d distinct numbers, want 16", len(requestNames))
	}
	if requestName(vidiocDqbuf) != "VIDIOC_DQBUF" {
		t.Errorf("requestName(DQBUF) = %q", requestName(vidiocDqbuf))
	}
}

func TestPollTimeout(t *testing.T) {
	tests := []struct {
		timeout time.Duration
		want    int
	}{
		{0, 0},
		{time.Nanosecond, 1},
		{500 * time.Microsecond, 1},
		{time.Millisecond, 1},
		{time.Millisecond + time.Nanosecond, 2},
		{1500 * time.Millisecond, 1500},
	}
	for _, tt := range tests {
		t.Run(tt.timeout.String(), func(t *testing.T) {
			if got := pollTimeout(tt.timeout); got != tt.want {
				t.Errorf("pollTimeout(%v) = %d, want %d", tt.timeout, got, tt.want)
			}
		})
	}
}
