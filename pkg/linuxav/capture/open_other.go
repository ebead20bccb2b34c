//go:build !linux

package capture

import (
	"errors"

	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
)

// Open always fails: V4L2 devices only exist on Linux.
func (b *Builder) Open() (*Session, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	return nil, v4l2.NewErrorWithCause(v4l2.ErrCodeOpen, "open", b.cfg.Path, errors.ErrUnsupported)
}
