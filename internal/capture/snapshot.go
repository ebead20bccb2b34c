package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// CaptureToBytes captures skip+1 frames and returns a copy of the last one.
// Skipping a few frames lets devices settle exposure, or show their "no
// signal" screen, before the still is taken.
func CaptureToBytes(ctx context.Context, opts Options, skip int) ([]byte, error) {
	if skip < 0 {
		skip = 0
	}
	opts.Frames = skip + 1

	var last LastFrame
	if err := NewRunner(opts).Run(ctx, last.Handler()); err != nil {
		return nil, err
	}
	data, _ := last.Bytes()
	if data == nil {
		return nil, errors.New("capture ended before a frame arrived")
	}
	return data, nil
}

// CaptureScreenshot captures a still like CaptureToBytes and writes it to
// outputPath.
func CaptureScreenshot(ctx context.Context, opts Options, outputPath string, skip int) error {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	data, err := CaptureToBytes(ctx, opts, skip)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}
