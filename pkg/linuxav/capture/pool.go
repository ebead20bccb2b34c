package capture

import (
	"errors"
	"log/slog"

	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
)

type slot struct {
	buf  v4l2.Buffer
	data []byte
	// owner is the serial of the frame holding the buffer, 0 while the
	// buffer belongs to the driver or is idle.
	owner uint64
}

// Pool holds the mapped buffers of a session. Slot i always maps kernel
// buffer i, so the pool indices are exactly [0, Len()).
type Pool struct {
	dev     Device
	typ     v4l2.BufType
	policy  MappingPolicy
	logger  *slog.Logger
	slots   []slot
	granted int
	// gen changes every time the pool is cleared, invalidating frames.
	gen uint64
}

func newPool(dev Device, typ v4l2.BufType, policy MappingPolicy, logger *slog.Logger) *Pool {
	return &Pool{dev: dev, typ: typ, policy: policy, logger: logger}
}

// Len returns the number of mapped buffers.
func (p *Pool) Len() int {
	return len(p.slots)
}

// Granted returns the number of buffers the driver allocated on the last
// prepare.
func (p *Pool) Granted() int {
	return p.granted
}

// Truncated reports whether fewer buffers are mapped than were granted.
func (p *Pool) Truncated() bool {
	return len(p.slots) < p.granted
}

// BufferLength returns the mapped size of buffer i.
func (p *Pool) BufferLength(i int) int {
	if i < 0 || i >= len(p.slots) {
		return 0
	}
	return len(p.slots[i].data)
}

// prepare requests count buffers and maps every granted one.
func (p *Pool) prepare(count int) error {
	granted, err := p.dev.RequestBuffers(p.typ, count)
	if err != nil {
		return err
	}
	p.granted = granted
	p.logger.Debug("Buffers requested", "requested", count, "granted", granted)

	for i := 0; i < granted; i++ {
		buf, err := p.dev.QueryBuffer(p.typ, i)
		if err != nil {
			return errors.Join(err, p.release())
		}

		data, err := p.dev.Map(buf)
		if err != nil {
			if p.policy == MapTruncate && len(p.slots) > 0 {
				p.logger.Warn("Buffer mapping failed, continuing with fewer buffers",
					"index", i, "granted", granted, "mapped", len(p.slots), "error", err)
				break
			}
			return errors.Join(err, p.release())
		}

		p.slots = append(p.slots, slot{buf: buf, data: data})
	}

	return nil
}

// release unmaps every buffer and empties the pool. It is safe to call on an
// empty pool.
func (p *Pool) release() error {
	var errs []error
	for i := range p.slots {
		if err := p.dev.Unmap(p.slots[i].data); err != nil {
			errs = append(errs, err)
		}
		p.slots[i].data = nil
	}
	p.slots = nil
	p.granted = 0
	p.gen++
	return errors.Join(errs...)
}

// disown returns every slot to the driver side after streaming stops.
func (p *Pool) disown() {
	for i := range p.slots {
		p.slots[i].owner = 0
	}
}
