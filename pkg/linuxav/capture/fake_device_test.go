package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
)

var errWouldBlock = errors.New("no filled buffer")

// fakeDevice emulates the driver side of memory-mapped streaming.
type fakeDevice struct {
	path    string
	formats []v4l2.FormatDesc
	parm    v4l2.CaptureParm
	// grant maps a requested count to the granted count. Nil grants all.
	grant     func(count int) int
	bufLen    uint32
	mapFail   map[int]bool
	queueFail map[int]bool
	fail      map[string]error

	calls     []string
	setParm   *v4l2.CaptureParm
	setFormat *v4l2.PixFormat
	granted   int
	queued    []uint32
	inKernel  map[uint32]bool
	streaming bool
	live      int
	closed    bool
	// liveAtClose is the number of mappings still held when Close ran.
	liveAtClose int
	sequence    uint32
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		path: "/dev/video0",
		formats: []v4l2.FormatDesc{
			{Index: 0, Type: v4l2.BufTypeVideoCapture, Description: "YUYV 4:2:2", PixelFormat: v4l2.PixFmtYUYV},
			{Index: 1, Type: v4l2.BufTypeVideoCapture, Description: "Motion-JPEG", PixelFormat: v4l2.PixFmtMJPEG, Flags: v4l2.FmtFlagCompressed},
		},
		parm:      v4l2.CaptureParm{Capability: v4l2.CapTimePerFrame, TimePerFrame: v4l2.Fract{Numerator: 1, Denominator: 60}, ReadBuffers: 2},
		bufLen:    4096,
		mapFail:   map[int]bool{},
		queueFail: map[int]bool{},
		fail:      map[string]error{},
		inKernel:  map[uint32]bool{},
	}
}

func (d *fakeDevice) record(format string, args ...any) error {
	call := fmt.Sprintf(format, args...)
	d.calls = append(d.calls, call)
	if err, ok := d.fail[call]; ok {
		return err
	}
	return nil
}

func (d *fakeDevice) einval(op string) error {
	return v4l2.NewError(v4l2.ErrCodeControl, op, "invalid argument")
}

func (d *fakeDevice) Path() string { return d.path }

func (d *fakeDevice) Close() error {
	d.calls = append(d.calls, "CLOSE")
	d.liveAtClose = d.live
	d.closed = true
	return nil
}

func (d *fakeDevice) Formats(t v4l2.BufType) ([]v4l2.FormatDesc, error) {
	if err := d.record("ENUM_FMT"); err != nil {
		return nil, err
	}
	return d.formats, nil
}

func (d *fakeDevice) SetInput(index int) error {
	return d.record("S_INPUT %d", index)
}

func (d *fakeDevice) Format(t v4l2.BufType) (v4l2.PixFormat, error) {
	if err := d.record("G_FMT %s", t); err != nil {
		return v4l2.PixFormat{}, err
	}
	if d.setFormat != nil && t == v4l2.BufTypeVideoCapture {
		return *d.setFormat, nil
	}
	return v4l2.PixFormat{}, nil
}

func (d *fakeDevice) SetFormat(t v4l2.BufType, pix v4l2.PixFormat) (v4l2.PixFormat, error) {
	if err := d.record("S_FMT"); err != nil {
		return v4l2.PixFormat{}, err
	}
	applied := pix
	applied.BytesPerLine = pix.Width * 2
	applied.SizeImage = pix.Width * pix.Height * 2
	if applied.Field == v4l2.FieldAny {
		applied.Field = v4l2.FieldNone
	}
	d.setFormat = &applied
	return applied, nil
}

func (d *fakeDevice) StreamParm(t v4l2.BufType) (v4l2.StreamParm, error) {
	if err := d.record("G_PARM"); err != nil {
		return nil, err
	}
	if t == v4l2.BufTypeVideoOutput {
		return v4l2.OutputParm{}, nil
	}
	return d.parm, nil
}

func (d *fakeDevice) SetStreamParm(sp v4l2.StreamParm) (v4l2.StreamParm, error) {
	if err := d.record("S_PARM"); err != nil {
		return nil, err
	}
	p := sp.(v4l2.CaptureParm)
	d.setParm = &p
	return p, nil
}

func (d *fakeDevice) RequestBuffers(t v4l2.BufType, count int) (int, error) {
	if err := d.record("REQBUFS %d", count); err != nil {
		return 0, err
	}
	if d.live > 0 {
		return 0, v4l2.NewError(v4l2.ErrCodeControl, "VIDIOC_REQBUFS", "buffers still mapped")
	}
	d.granted = count
	if d.grant != nil {
		d.granted = d.grant(count)
	}
	return d.granted, nil
}

func (d *fakeDevice) QueryBuffer(t v4l2.BufType, index int) (v4l2.Buffer, error) {
	if err := d.record("QUERYBUF %d", index); err != nil {
		return v4l2.Buffer{}, err
	}
	if index >= d.granted {
		return v4l2.Buffer{}, d.einval("VIDIOC_QUERYBUF")
	}
	return v4l2.Buffer{
		Index:  uint32(index),
		Type:   t,
		Memory: v4l2.MemoryMMAP,
		Offset: uint32(index) * d.bufLen,
		Length: d.bufLen,
	}, nil
}

func (d *fakeDevice) Map(b v4l2.Buffer) ([]byte, error) {
	d.calls = append(d.calls, fmt.Sprintf("MMAP %d", b.Index))
	if d.mapFail[int(b.Index)] {
		return nil, v4l2.NewError(v4l2.ErrCodeMapping, "mmap", fmt.Sprintf("buffer %d", b.Index))
	}
	d.live++
	return make([]byte, b.Length), nil
}

func (d *fakeDevice) Unmap(data []byte) error {
	d.calls = append(d.calls, "MUNMAP")
	d.live--
	return nil
}

func (d *fakeDevice) QueueBuffer(b v4l2.Buffer) error {
	if err := d.record("QBUF %d", b.Index); err != nil {
		return err
	}
	if d.queueFail[int(b.Index)] || int(b.Index) >= d.granted || d.inKernel[b.Index] {
		return d.einval("VIDIOC_QBUF")
	}
	d.inKernel[b.Index] = true
	d.queued = append(d.queued, b.Index)
	return nil
}

func (d *fakeDevice) DequeueBuffer(t v4l2.BufType) (v4l2.Buffer, error) {
	if err := d.record("DQBUF"); err != nil {
		return v4l2.Buffer{}, err
	}
	if !d.streaming || len(d.queued) == 0 {
		return v4l2.Buffer{}, errWouldBlock
	}
	index := d.queued[0]
	d.queued = d.queued[1:]
	delete(d.inKernel, index)
	d.sequence++
	return v4l2.Buffer{
		Index:     index,
		Type:      t,
		BytesUsed: d.bufLen / 2,
		Flags:     v4l2.BufFlagMapped | v4l2.BufFlagDone,
		Field:     v4l2.FieldNone,
		Timestamp: time.Duration(d.sequence) * 33 * time.Millisecond,
		Sequence:  d.sequence - 1,
		Memory:    v4l2.MemoryMMAP,
		Offset:    index * d.bufLen,
		Length:    d.bufLen,
	}, nil
}

func (d *fakeDevice) StreamOn(t v4l2.BufType) error {
	if err := d.record("STREAMON"); err != nil {
		return err
	}
	d.streaming = true
	return nil
}

func (d *fakeDevice) StreamOff(t v4l2.BufType) error {
	if err := d.record("STREAMOFF"); err != nil {
		return err
	}
	d.streaming = false
	d.queued = nil
	d.inKernel = map[uint32]bool{}
	return nil
}

func (d *fakeDevice) Wait(timeout time.Duration) (bool, error) {
	return d.streaming && len(d.queued) > 0, nil
}

// callsSince returns the calls recorded after the first n.
func (d *fakeDevice) callsSince(n int) []string {
	return append([]string(nil), d.calls[n:]...)
}
