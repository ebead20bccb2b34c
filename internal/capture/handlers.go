package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	vcap "github.com/smazurov/v4lcap/pkg/linuxav/capture"
	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
)

// PrintHandler writes one metadata line per frame to w.
func PrintHandler(w io.Writer) Handler {
	return func(_ context.Context, f vcap.Frame) error {
		b := f.Buffer
		_, err := fmt.Fprintf(w, "frame %6d  buffer %d  %8d/%d bytes  field %-9s  ts %s  flags %#x\n",
			b.Sequence, b.Index, b.BytesUsed, b.Length, b.Field, b.Timestamp, b.Flags)
		return err
	}
}

// SaveHandler writes each frame's payload to dir as frame-<sequence>.<ext>.
// The extension is derived from the pixel format.
func SaveHandler(dir string, pixelFormat uint32) (Handler, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	ext := FrameExtension(pixelFormat)
	return func(_ context.Context, f vcap.Frame) error {
		name := filepath.Join(dir, fmt.Sprintf("frame-%06d.%s", f.Buffer.Sequence, ext))
		if err := os.WriteFile(name, f.Bytes(), 0o644); err != nil {
			return fmt.Errorf("save frame %d: %w", f.Buffer.Sequence, err)
		}
		return nil
	}, nil
}

// FrameExtension returns the file extension used for frames of a pixel format.
func FrameExtension(pixelFormat uint32) string {
	switch pixelFormat {
	case v4l2.PixFmtMJPEG, v4l2.PixFmtJPEG:
		return "jpg"
	case v4l2.PixFmtH264, v4l2.PixFmtAVC1:
		return "h264"
	case v4l2.PixFmtHEVC:
		return "hevc"
	default:
		return "raw"
	}
}

// Chain calls each handler in order and stops at the first error.
func Chain(handlers ...Handler) Handler {
	return func(ctx context.Context, f vcap.Frame) error {
		for _, h := range handlers {
			if err := h(ctx, f); err != nil {
				return err
			}
		}
		return nil
	}
}

// LastFrame keeps a copy of the most recent frame payload.
type LastFrame struct {
	mu   sync.Mutex
	data []byte
	seq  uint32
}

// Handler returns a Handler that records into l.
func (l *LastFrame) Handler() Handler {
	return func(_ context.Context, f vcap.Frame) error {
		l.mu.Lock()
		l.data = append(l.data[:0], f.Bytes()...)
		l.seq = f.Buffer.Sequence
		l.mu.Unlock()
		return nil
	}
}

// Bytes returns a copy of the last frame and its sequence number.
func (l *LastFrame) Bytes() ([]byte, uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.data == nil {
		return nil, 0
	}
	return append([]byte(nil), l.data...), l.seq
}
