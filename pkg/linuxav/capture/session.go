package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
)

// State is the lifecycle state of a Session.
type State int

// Session states.
const (
	StateClosed State = iota
	StateOpened
	StatePrepared
	StateStreaming
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpened:
		return "opened"
	case StatePrepared:
		return "prepared"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Frame is a filled buffer taken from the driver. Its memory stays valid
// until the frame is returned, streaming stops or the pool is released;
// after that Bytes returns nil.
type Frame struct {
	Buffer v4l2.Buffer

	pool   *Pool
	gen    uint64
	serial uint64
}

// Index returns the pool index of the frame's buffer.
func (f Frame) Index() int {
	return int(f.Buffer.Index)
}

// Valid reports whether the frame still owns its buffer.
func (f Frame) Valid() bool {
	p := f.pool
	if p == nil || f.serial == 0 || p.gen != f.gen {
		return false
	}
	i := f.Index()
	return i < len(p.slots) && p.slots[i].owner == f.serial
}

// Bytes returns the payload written by the driver. The slice aliases driver
// memory and must not be retained after ReturnFrame.
func (f Frame) Bytes() []byte {
	data := f.Region()
	if n := int(f.Buffer.BytesUsed); n < len(data) {
		return data[:n]
	}
	return data
}

// Region returns the whole mapped buffer, including any unused tail.
func (f Frame) Region() []byte {
	if !f.Valid() {
		return nil
	}
	return f.pool.slots[f.Index()].data
}

// Session owns an open device and its buffer pool.
type Session struct {
	dev    Device
	cfg    Config
	logger *slog.Logger
	state  State
	format v4l2.PixFormat
	parm   v4l2.CaptureParm
	pool   *Pool
	serial uint64
}

func newSession(dev Device, cfg Config, logger *slog.Logger, format v4l2.PixFormat, parm v4l2.CaptureParm) *Session {
	return &Session{
		dev:    dev,
		cfg:    cfg,
		logger: logger,
		state:  StateOpened,
		format: format,
		parm:   parm,
		pool:   newPool(dev, v4l2.BufTypeVideoCapture, cfg.MappingPolicy, logger),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Path returns the device node path.
func (s *Session) Path() string {
	return s.dev.Path()
}

// Config returns the configuration the session was opened with.
func (s *Session) Config() Config {
	return s.cfg
}

// Format returns the capture format the driver applied during negotiation.
func (s *Session) Format() v4l2.PixFormat {
	return s.format
}

// StreamParm returns the capture parameters the driver applied.
func (s *Session) StreamParm() v4l2.CaptureParm {
	return s.parm
}

// Pool returns the buffer pool. It is empty outside Prepared, Streaming and
// Stopped.
func (s *Session) Pool() *Pool {
	return s.pool
}

// QueryFormat reads the current format of either direction from the driver.
func (s *Session) QueryFormat(t v4l2.BufType) (v4l2.PixFormat, error) {
	if s.state == StateClosed {
		return v4l2.PixFormat{}, s.invalidState("query format")
	}
	return s.dev.Format(t)
}

// QueryStreamParm reads the current streaming parameters of either direction.
func (s *Session) QueryStreamParm(t v4l2.BufType) (v4l2.StreamParm, error) {
	if s.state == StateClosed {
		return nil, s.invalidState("query stream parameters")
	}
	return s.dev.StreamParm(t)
}

func (s *Session) invalidState(op string) error {
	return v4l2.NewError(v4l2.ErrCodeInvalidState, op, fmt.Sprintf("session is %s", s.state))
}

// Prepare requests count buffers and maps them. From Stopped the previous
// pool is released first. The driver may grant a different count; see
// Pool.Len and Pool.Granted.
func (s *Session) Prepare(count int) error {
	switch s.state {
	case StateOpened, StateStopped:
	default:
		return s.invalidState("prepare")
	}
	if count < 0 {
		return v4l2.NewError(v4l2.ErrCodeInvalidConfig, "prepare", fmt.Sprintf("negative buffer count %d", count))
	}
	if s.state == StateStopped {
		err := s.pool.release()
		s.state = StateOpened
		if err != nil {
			return err
		}
	}

	if err := s.pool.prepare(count); err != nil {
		return err
	}
	s.state = StatePrepared
	s.logger.Info("Buffer pool prepared", "requested", count, "granted", s.pool.Granted(), "mapped", s.pool.Len())
	return nil
}

// Unprepare releases the buffer pool and returns to Opened. It does nothing
// when no pool is held.
func (s *Session) Unprepare() error {
	switch s.state {
	case StatePrepared, StateStopped:
		err := s.pool.release()
		s.state = StateOpened
		return err
	case StateStreaming:
		return s.invalidState("unprepare")
	default:
		return nil
	}
}

// Start queues every pool buffer in index order and turns streaming on. If a
// queue operation fails, streaming is not started and the buffers already
// queued stay with the driver.
func (s *Session) Start() error {
	if s.state != StatePrepared {
		return s.invalidState("start")
	}
	for i := range s.pool.slots {
		if err := s.dev.QueueBuffer(s.pool.slots[i].buf); err != nil {
			return err
		}
	}
	if err := s.dev.StreamOn(v4l2.BufTypeVideoCapture); err != nil {
		return err
	}
	s.state = StateStreaming
	s.logger.Debug("Streaming started", "buffers", s.pool.Len())
	return nil
}

// TakeFrame blocks until the driver delivers a filled buffer. The frame must
// be handed back with ReturnFrame.
func (s *Session) TakeFrame() (Frame, error) {
	if s.state != StateStreaming {
		return Frame{}, s.invalidState("take frame")
	}
	buf, err := s.dev.DequeueBuffer(v4l2.BufTypeVideoCapture)
	if err != nil {
		return Frame{}, err
	}
	i := int(buf.Index)
	if i >= s.pool.Len() {
		return Frame{}, v4l2.NewError(v4l2.ErrCodeControl, "VIDIOC_DQBUF",
			fmt.Sprintf("driver returned buffer %d outside pool of %d", i, s.pool.Len()))
	}
	s.serial++
	s.pool.slots[i].owner = s.serial
	return Frame{Buffer: buf, pool: s.pool, gen: s.pool.gen, serial: s.serial}, nil
}

// ReturnFrame queues the frame's buffer again. A frame that was already
// returned, or was taken before the last Stop, is rejected.
func (s *Session) ReturnFrame(f Frame) error {
	if s.state != StateStreaming {
		return s.invalidState("return frame")
	}
	if f.pool != s.pool || !f.Valid() {
		return v4l2.NewError(v4l2.ErrCodeInvalidState, "return frame",
			fmt.Sprintf("buffer %d is not held by this frame", f.Buffer.Index))
	}
	i := f.Index()
	if err := s.dev.QueueBuffer(s.pool.slots[i].buf); err != nil {
		return err
	}
	s.pool.slots[i].owner = 0
	return nil
}

// Stop turns streaming off. Frames still held become invalid.
func (s *Session) Stop() error {
	if s.state != StateStreaming {
		return s.invalidState("stop")
	}
	if err := s.dev.StreamOff(v4l2.BufTypeVideoCapture); err != nil {
		return err
	}
	s.pool.disown()
	s.state = StateStopped
	s.logger.Debug("Streaming stopped")
	return nil
}

// Wait blocks until a frame is ready to be taken or the timeout expires.
func (s *Session) Wait(timeout time.Duration) (bool, error) {
	if s.state != StateStreaming {
		return false, s.invalidState("wait")
	}
	return s.dev.Wait(timeout)
}

// Close releases the pool and closes the device from any state. Mappings are
// removed before the descriptor is closed. Calling Close again is a no-op.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}
	if s.state == StateStreaming {
		if err := s.dev.StreamOff(v4l2.BufTypeVideoCapture); err != nil {
			s.logger.Debug("Stream off during close failed", "error", err)
		}
	}
	err := errors.Join(s.pool.release(), s.dev.Close())
	s.state = StateClosed
	return err
}
