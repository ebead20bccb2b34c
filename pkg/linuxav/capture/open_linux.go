//go:build linux

package capture

import "github.com/smazurov/v4lcap/pkg/linuxav/v4l2"

// Open validates the configuration, opens the device and negotiates the
// format. On failure nothing stays open.
func (b *Builder) Open() (*Session, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	dev, err := v4l2.Open(b.cfg.Path)
	if err != nil {
		return nil, err
	}
	return OpenDevice(dev, b.cfg)
}
