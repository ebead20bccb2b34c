package exporters

import (
	"context"
	"sync"
	"time"

	"github.com/smazurov/v4lcap/internal/metrics"
)

// RateSampler periodically derives the observed frame rate of every device
// from its frame counter.
type RateSampler struct {
	interval time.Duration
	now      func() time.Time
	last     map[string]sample
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type sample struct {
	frames uint64
	at     time.Time
}

// NewRateSampler creates a sampler. A non-positive interval means one second.
func NewRateSampler(interval time.Duration) *RateSampler {
	if interval <= 0 {
		interval = time.Second
	}
	return &RateSampler{
		interval: interval,
		now:      time.Now,
		last:     make(map[string]sample),
	}
}

// Start begins the sampling loop.
func (s *RateSampler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run()
}

// Stop stops the sampler and waits for the goroutine to finish.
func (s *RateSampler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *RateSampler) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *RateSampler) sample() {
	now := s.now()
	all := metrics.GetAll()
	for device, m := range all {
		prev, ok := s.last[device]
		s.last[device] = sample{frames: m.Frames, at: now}
		if !ok || m.Frames < prev.frames {
			continue
		}
		elapsed := now.Sub(prev.at).Seconds()
		if elapsed <= 0 {
			continue
		}
		metrics.SetMeasuredFPS(device, float64(m.Frames-prev.frames)/elapsed)
	}
	for device := range s.last {
		if _, ok := all[device]; !ok {
			delete(s.last, device)
		}
	}
}
