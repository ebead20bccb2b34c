package capture

import (
	"time"

	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
)

// Device is the set of device operations a Session needs. *v4l2.Device
// implements it.
type Device interface {
	Path() string
	Close() error

	Formats(t v4l2.BufType) ([]v4l2.FormatDesc, error)
	SetInput(index int) error
	Format(t v4l2.BufType) (v4l2.PixFormat, error)
	SetFormat(t v4l2.BufType, pix v4l2.PixFormat) (v4l2.PixFormat, error)
	StreamParm(t v4l2.BufType) (v4l2.StreamParm, error)
	SetStreamParm(sp v4l2.StreamParm) (v4l2.StreamParm, error)

	RequestBuffers(t v4l2.BufType, count int) (int, error)
	QueryBuffer(t v4l2.BufType, index int) (v4l2.Buffer, error)
	Map(b v4l2.Buffer) ([]byte, error)
	Unmap(data []byte) error
	QueueBuffer(b v4l2.Buffer) error
	DequeueBuffer(t v4l2.BufType) (v4l2.Buffer, error)
	StreamOn(t v4l2.BufType) error
	StreamOff(t v4l2.BufType) error
	Wait(timeout time.Duration) (bool, error)
}
