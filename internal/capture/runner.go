package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/v4lcap/internal/events"
	vcap "github.com/smazurov/v4lcap/pkg/linuxav/capture"
	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
)

const (
	// DefaultBuffers is the pool size requested when Options.Buffers is zero.
	DefaultBuffers = 4
	// DefaultFrameTimeout bounds the wait for a single frame.
	DefaultFrameTimeout = 5 * time.Second

	pollSlice = 100 * time.Millisecond
)

var (
	// ErrFrameTimeout is returned when the device delivers no frame in time.
	ErrFrameTimeout = errors.New("no frame before timeout")
	// ErrStopCapture may be returned by a Handler to end the run cleanly.
	ErrStopCapture = errors.New("stop capture")
)

// Handler consumes one frame. The frame's bytes are only valid during the call.
type Handler func(ctx context.Context, f vcap.Frame) error

// Publisher is the part of the event bus the runner publishes to.
type Publisher interface {
	Publish(ev events.Event)
}

// Opener creates a session from a configuration.
type Opener func(cfg vcap.Config) (*vcap.Session, error)

// Options configures a Runner.
type Options struct {
	Session vcap.Config
	// Buffers is the pool size to request.
	Buffers int
	// Frames stops the run after that many frames. Zero runs until cancelled.
	Frames int
	// FrameTimeout bounds the wait for each frame.
	FrameTimeout time.Duration
	Open         Opener
	Bus          Publisher
	Logger       *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Buffers == 0 {
		o.Buffers = DefaultBuffers
	}
	if o.FrameTimeout <= 0 {
		o.FrameTimeout = DefaultFrameTimeout
	}
	if o.Open == nil {
		o.Open = func(cfg vcap.Config) (*vcap.Session, error) {
			return vcap.FromConfig(cfg).Open()
		}
	}
	if o.Logger == nil {
		o.Logger = slog.With("component", "capture")
	}
	return o
}

// Status is a snapshot of a runner's session.
type Status struct {
	Device       string    `json:"device" example:"/dev/video0" doc:"Device path"`
	State        string    `json:"state" example:"streaming" doc:"Session state"`
	Running      bool      `json:"running" doc:"Whether a capture loop is active"`
	PixelFormat  string    `json:"pixel_format,omitempty" example:"YUYV" doc:"Negotiated pixel format"`
	Width        uint32    `json:"width,omitempty" example:"1920" doc:"Negotiated width"`
	Height       uint32    `json:"height,omitempty" example:"1080" doc:"Negotiated height"`
	SizeImage    uint32    `json:"size_image,omitempty" doc:"Bytes per frame"`
	FPS          float64   `json:"fps,omitempty" example:"30" doc:"Negotiated frame rate"`
	Buffers      int       `json:"buffers" doc:"Mapped buffers"`
	Granted      int       `json:"granted" doc:"Buffers granted by the driver"`
	Frames       uint64    `json:"frames" doc:"Frames captured in this run"`
	Dropped      uint64    `json:"dropped" doc:"Frames skipped by the driver in this run"`
	LastSequence uint32    `json:"last_sequence" doc:"Sequence number of the last frame"`
	LastError    string    `json:"last_error,omitempty" doc:"Most recent error"`
	StartedAt    time.Time `json:"started_at,omitzero" doc:"Start of the current run"`
}

// Runner drives one capture session at a time on its own goroutine.
type Runner struct {
	// life serializes Start, Stop, Restart and Resume.
	life    sync.Mutex
	mu      sync.Mutex
	opts    Options
	status  Status
	parent  context.Context
	handler Handler
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRunner creates a runner. Nothing is opened until Run or Start.
func NewRunner(opts Options) *Runner {
	return &Runner{
		opts:   opts,
		status: Status{Device: opts.Session.Path, State: vcap.StateClosed.String()},
	}
}

// Status returns a snapshot of the current run.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Start runs the capture loop in the background until ctx is cancelled or
// Stop is called. A running loop is stopped first.
func (r *Runner) Start(ctx context.Context, h Handler) {
	r.life.Lock()
	defer r.life.Unlock()
	r.stopLocked()
	r.startLocked(ctx, h)
}

// startLocked spawns the loop. r.life must be held.
func (r *Runner) startLocked(ctx context.Context, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.parent, r.handler, r.cancel, r.done = ctx, h, cancel, done

	go func() {
		defer close(done)
		if err := r.Run(runCtx, h); err != nil {
			r.logger().Error("Capture stopped", "error", err)
		}
	}()
}

// Stop cancels the background loop and waits for it to release the device.
func (r *Runner) Stop() {
	r.life.Lock()
	defer r.life.Unlock()
	r.stopLocked()
}

// stopLocked cancels and waits for the current loop. r.life must be held.
func (r *Runner) stopLocked() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Done is closed when the current background loop exits. It is nil when no
// loop was started.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Restart applies a new session configuration and buffer count. A loop that
// was started with Start is restarted with the same handler.
func (r *Runner) Restart(cfg vcap.Config, buffers int) {
	r.life.Lock()
	defer r.life.Unlock()

	r.mu.Lock()
	parent, h, running := r.parent, r.handler, r.cancel != nil
	r.mu.Unlock()

	r.stopLocked()

	r.mu.Lock()
	r.opts.Session = cfg
	r.opts.Buffers = buffers
	r.status.Device = cfg.Path
	r.mu.Unlock()

	r.logger().Info("Capture configuration changed", "device", cfg.Path, "buffers", buffers)
	if running && parent != nil && parent.Err() == nil {
		r.startLocked(parent, h)
	}
}

// Resume restarts a background loop that has exited on its own, for example
// after its device was unplugged. It reports whether a loop was started.
func (r *Runner) Resume() bool {
	r.life.Lock()
	defer r.life.Unlock()

	r.mu.Lock()
	parent, h, done := r.parent, r.handler, r.done
	r.mu.Unlock()

	if done == nil || parent == nil || parent.Err() != nil {
		return false
	}
	select {
	case <-done:
	default:
		return false
	}
	r.stopLocked()
	r.startLocked(parent, h)
	return true
}

func (r *Runner) options() Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts.withDefaults()
}

func (r *Runner) logger() *slog.Logger {
	return r.options().Logger
}

// Run opens the session, streams frames into h and tears everything down
// before returning. Cancelling ctx ends the run without error.
func (r *Runner) Run(ctx context.Context, h Handler) (err error) {
	opts := r.options()
	logger := opts.Logger.With("device", opts.Session.Path)

	r.update(func(s *Status) {
		*s = Status{Device: opts.Session.Path, State: vcap.StateClosed.String(), Running: true, StartedAt: time.Now()}
	})
	defer r.update(func(s *Status) { s.Running = false })

	sess, err := opts.Open(opts.Session)
	if err != nil {
		return r.fail(opts, fmt.Errorf("open %s: %w", opts.Session.Path, err))
	}
	r.observe(opts, sess)

	defer func() {
		if sess.State() == vcap.StateStreaming {
			err = errors.Join(err, sess.Stop())
			r.observe(opts, sess)
		}
		if closeErr := sess.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		r.observe(opts, sess)
		if err != nil {
			err = r.fail(opts, err)
		}
	}()

	if err := sess.Prepare(opts.Buffers); err != nil {
		return err
	}
	r.observe(opts, sess)
	r.negotiated(opts, sess)

	if err := sess.Start(); err != nil {
		return err
	}
	r.observe(opts, sess)
	logger.Info("Capture started", "buffers", sess.Pool().Len(), "frames", opts.Frames)

	for n := 0; opts.Frames == 0 || n < opts.Frames; n++ {
		if err := waitFrame(ctx, sess, opts.FrameTimeout); err != nil {
			if ctx.Err() != nil {
				logger.Info("Capture cancelled", "frames", n)
				return nil
			}
			return err
		}

		frame, err := sess.TakeFrame()
		if err != nil {
			return err
		}
		r.recordFrame(opts, frame)

		herr := h(ctx, frame)
		if err := sess.ReturnFrame(frame); err != nil {
			return errors.Join(herr, err)
		}
		if errors.Is(herr, ErrStopCapture) {
			logger.Info("Capture stopped by handler", "frames", n+1)
			return nil
		}
		if herr != nil {
			return fmt.Errorf("frame handler: %w", herr)
		}
	}

	logger.Info("Capture finished", "frames", opts.Frames)
	return nil
}

// waitFrame polls in short slices so cancellation is noticed promptly.
func waitFrame(ctx context.Context, sess *vcap.Session, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w after %s", ErrFrameTimeout, timeout)
		}
		ready, err := sess.Wait(min(pollSlice, remaining))
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
	}
}

func (r *Runner) update(fn func(*Status)) {
	r.mu.Lock()
	fn(&r.status)
	r.mu.Unlock()
}

// observe publishes a state change if the session moved since the last call.
func (r *Runner) observe(opts Options, sess *vcap.Session) {
	to := sess.State().String()
	var from string
	r.update(func(s *Status) {
		from = s.State
		s.State = to
	})
	if from == to {
		return
	}
	opts.Logger.Debug("Session state changed", "device", opts.Session.Path, "from", from, "to", to)
	publish(opts.Bus, events.SessionStateChangedEvent{
		DevicePath: opts.Session.Path,
		From:       from,
		To:         to,
		Timestamp:  events.Timestamp(time.Now()),
	})
}

func (r *Runner) negotiated(opts Options, sess *vcap.Session) {
	format := sess.Format()
	fps := sess.StreamParm().TimePerFrame.FPS()
	pool := sess.Pool()
	r.update(func(s *Status) {
		s.PixelFormat = v4l2.FormatFourCC(format.PixelFormat)
		s.Width = format.Width
		s.Height = format.Height
		s.SizeImage = format.SizeImage
		s.FPS = fps
		s.Buffers = pool.Len()
		s.Granted = pool.Granted()
	})
	publish(opts.Bus, events.FormatNegotiatedEvent{
		DevicePath:  opts.Session.Path,
		PixelFormat: v4l2.FormatFourCC(format.PixelFormat),
		Width:       format.Width,
		Height:      format.Height,
		SizeImage:   format.SizeImage,
		FPS:         fps,
		BufferCount: pool.Len(),
		Timestamp:   events.Timestamp(time.Now()),
	})
}

func (r *Runner) recordFrame(opts Options, f vcap.Frame) {
	seq := f.Buffer.Sequence
	var dropped uint32
	r.update(func(s *Status) {
		if s.Frames > 0 && seq > s.LastSequence+1 {
			dropped = seq - s.LastSequence - 1
		}
		s.Frames++
		s.Dropped += uint64(dropped)
		s.LastSequence = seq
	})
	if dropped > 0 {
		opts.Logger.Debug("Sequence gap", "device", opts.Session.Path, "dropped", dropped, "sequence", seq)
	}
	publish(opts.Bus, events.FrameCapturedEvent{
		DevicePath: opts.Session.Path,
		Index:      f.Buffer.Index,
		Sequence:   seq,
		BytesUsed:  f.Buffer.BytesUsed,
		Dropped:    dropped,
		KernelTime: f.Buffer.Timestamp,
		Timestamp:  events.Timestamp(time.Now()),
	})
}

// fail records err in the status and publishes it. It returns err unchanged.
func (r *Runner) fail(opts Options, err error) error {
	code, op := "INTERNAL", ""
	var verr *v4l2.Error
	if errors.As(err, &verr) {
		code, op = string(verr.Code), verr.Op
	} else if errors.Is(err, ErrFrameTimeout) {
		code = "TIMEOUT"
	}
	r.update(func(s *Status) { s.LastError = err.Error() })
	publish(opts.Bus, events.CaptureErrorEvent{
		DevicePath: opts.Session.Path,
		Code:       code,
		Op:         op,
		Error:      err.Error(),
		Timestamp:  events.Timestamp(time.Now()),
	})
	return err
}

func publish(bus Publisher, ev events.Event) {
	if bus != nil {
		bus.Publish(ev)
	}
}
