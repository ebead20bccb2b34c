package capture

import (
	"errors"
	"sync"
	"time"

	vcap "github.com/smazurov/v4lcap/pkg/linuxav/capture"
	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
)

// memDevice is an in-memory capture device that fills every queued buffer
// immediately.
type memDevice struct {
	mu sync.Mutex

	path    string
	bufLen  uint32
	seqStep uint32
	// idle makes Wait report no frame.
	idle bool
	// dqErr is returned by DequeueBuffer once dequeued reaches dqErrAfter.
	dqErr      error
	dqErrAfter int

	granted  int
	queued   []uint32
	sequence uint32
	dequeued int
	live     int
	closed   bool
	streamed bool
}

func newMemDevice() *memDevice {
	return &memDevice{path: "/dev/video9", bufLen: 64, seqStep: 1}
}

func (d *memDevice) opener() Opener {
	return func(cfg vcap.Config) (*vcap.Session, error) {
		return vcap.OpenDevice(d, cfg)
	}
}

func (d *memDevice) Path() string { return d.path }

func (d *memDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *memDevice) Formats(t v4l2.BufType) ([]v4l2.FormatDesc, error) {
	return []v4l2.FormatDesc{
		{Type: t, Description: "YUYV 4:2:2", PixelFormat: v4l2.PixFmtYUYV},
		{Index: 1, Type: t, Description: "Motion-JPEG", PixelFormat: v4l2.PixFmtMJPEG, Flags: v4l2.FmtFlagCompressed},
	}, nil
}

func (d *memDevice) SetInput(int) error { return nil }

func (d *memDevice) Format(v4l2.BufType) (v4l2.PixFormat, error) { return v4l2.PixFormat{}, nil }

func (d *memDevice) SetFormat(_ v4l2.BufType, pix v4l2.PixFormat) (v4l2.PixFormat, error) {
	pix.BytesPerLine = pix.Width * 2
	pix.SizeImage = pix.Width * pix.Height * 2
	return pix, nil
}

func (d *memDevice) StreamParm(v4l2.BufType) (v4l2.StreamParm, error) {
	return v4l2.CaptureParm{Capability: v4l2.CapTimePerFrame, TimePerFrame: v4l2.Fract{Numerator: 1, Denominator: 30}}, nil
}

func (d *memDevice) SetStreamParm(sp v4l2.StreamParm) (v4l2.StreamParm, error) { return sp, nil }

func (d *memDevice) RequestBuffers(_ v4l2.BufType, count int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.granted = count
	return count, nil
}

func (d *memDevice) QueryBuffer(t v4l2.BufType, index int) (v4l2.Buffer, error) {
	return v4l2.Buffer{Index: uint32(index), Type: t, Memory: v4l2.MemoryMMAP, Length: d.bufLen}, nil
}

func (d *memDevice) Map(b v4l2.Buffer) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.live++
	data := make([]byte, b.Length)
	for i := range data {
		data[i] = byte(b.Index)
	}
	return data, nil
}

func (d *memDevice) Unmap([]byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.live--
	return nil
}

func (d *memDevice) QueueBuffer(b v4l2.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queued = append(d.queued, b.Index)
	return nil
}

func (d *memDevice) DequeueBuffer(t v4l2.BufType) (v4l2.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dqErr != nil && d.dequeued >= d.dqErrAfter {
		return v4l2.Buffer{}, d.dqErr
	}
	if len(d.queued) == 0 {
		return v4l2.Buffer{}, errors.New("no buffer queued")
	}
	index := d.queued[0]
	d.queued = d.queued[1:]
	seq := d.sequence
	d.sequence += d.seqStep
	d.dequeued++
	return v4l2.Buffer{
		Index:     index,
		Type:      t,
		BytesUsed: d.bufLen / 2,
		Field:     v4l2.FieldNone,
		Timestamp: time.Duration(seq) * time.Millisecond,
		Sequence:  seq,
		Memory:    v4l2.MemoryMMAP,
		Length:    d.bufLen,
	}, nil
}

func (d *memDevice) StreamOn(v4l2.BufType) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streamed = true
	return nil
}

func (d *memDevice) StreamOff(v4l2.BufType) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queued = nil
	return nil
}

func (d *memDevice) Wait(timeout time.Duration) (bool, error) {
	d.mu.Lock()
	idle := d.idle || len(d.queued) == 0
	d.mu.Unlock()
	if idle {
		time.Sleep(timeout)
		return false, nil
	}
	return true, nil
}

func (d *memDevice) state() (closed bool, live int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed, d.live
}
