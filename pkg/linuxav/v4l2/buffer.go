//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

var errPollError = errors.New("device not streaming or no buffers queued")

// RequestBuffers asks the driver for count memory-mapped buffers of direction
// t and returns how many it granted. A count of zero releases all buffers.
func (d *Device) RequestBuffers(t BufType, count int) (int, error) {
	req := v4l2Requestbuffers{
		count:  uint32(count),
		typ:    uint32(t),
		memory: uint32(MemoryMMAP),
	}
	if err := d.ioctl(vidiocReqbufs, unsafe.Pointer(&req)); err != nil {
		return 0, err
	}
	return int(req.count), nil
}

// QueryBuffer returns the descriptor of buffer index, including the offset and
// length needed to map it.
func (d *Device) QueryBuffer(t BufType, index int) (Buffer, error) {
	b := v4l2Buffer{index: uint32(index), typ: uint32(t), memory: uint32(MemoryMMAP)}
	if err := d.ioctl(vidiocQuerybuf, unsafe.Pointer(&b)); err != nil {
		return Buffer{}, err
	}
	return b.toBuffer(), nil
}

// QueueBuffer hands buffer b.Index to the driver for filling.
func (d *Device) QueueBuffer(b Buffer) error {
	raw := v4l2Buffer{index: b.Index, typ: uint32(b.Type), memory: uint32(MemoryMMAP)}
	return d.ioctl(vidiocQbuf, unsafe.Pointer(&raw))
}

// DequeueBuffer blocks until the driver has filled a buffer of direction t and
// returns its descriptor.
func (d *Device) DequeueBuffer(t BufType) (Buffer, error) {
	b := v4l2Buffer{typ: uint32(t), memory: uint32(MemoryMMAP)}
	if err := d.ioctl(vidiocDqbuf, unsafe.Pointer(&b)); err != nil {
		return Buffer{}, err
	}
	return b.toBuffer(), nil
}

// StreamOn starts streaming on direction t.
func (d *Device) StreamOn(t BufType) error {
	typ := int32(t)
	return d.ioctl(vidiocStreamon, unsafe.Pointer(&typ))
}

// StreamOff stops streaming on direction t. The driver returns every queued
// buffer to the dequeued state.
func (d *Device) StreamOff(t BufType) error {
	typ := int32(t)
	return d.ioctl(vidiocStreamoff, unsafe.Pointer(&typ))
}

// Map maps the memory of buffer b into the process. The mapping is shared with
// the driver and must be released with Unmap before the device is closed.
func (d *Device) Map(b Buffer) ([]byte, error) {
	if d.fd < 0 {
		return nil, NewErrorWithCause(ErrCodeMapping, "mmap", fmt.Sprintf("buffer %d", b.Index), os.ErrClosed)
	}
	data, err := unix.Mmap(d.fd, int64(b.Offset), int(b.Length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeMapping, "mmap", fmt.Sprintf("buffer %d", b.Index), err)
	}
	return data, nil
}

// Unmap releases a mapping returned by Map.
func (d *Device) Unmap(data []byte) error {
	if err := unix.Munmap(data); err != nil {
		return NewErrorWithCause(ErrCodeMapping, "munmap", "", err)
	}
	return nil
}

// Wait blocks until a filled buffer can be dequeued without blocking or the
// timeout expires. A negative timeout waits indefinitely.
func (d *Device) Wait(timeout time.Duration) (bool, error) {
	if d.fd < 0 {
		return false, controlError("poll", os.ErrClosed)
	}
	ms := -1
	if timeout >= 0 {
		ms = pollTimeout(timeout)
	}
	fds := []unix.PollFd{{Fd: int32(d.fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, controlError("poll", err)
		}
		if n == 0 {
			return false, nil
		}
		if fds[0].Revents&unix.POLLERR != 0 {
			return false, controlError("poll", errPollError)
		}
		return fds[0].Revents&unix.POLLIN != 0, nil
	}
}

// pollTimeout converts a non-negative timeout to poll(2) milliseconds,
// rounding up so a sub-millisecond wait still blocks.
func pollTimeout(timeout time.Duration) int {
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}

func (b *v4l2Buffer) toBuffer() Buffer {
	return Buffer{
		Index:     b.index,
		Type:      BufType(b.typ),
		BytesUsed: b.bytesused,
		Flags:     b.flags,
		Field:     Field(b.field),
		Timestamp: time.Duration(b.timestamp.Nano()),
		Timecode:  b.timecode.toTimecode(),
		Sequence:  b.sequence,
		Memory:    Memory(b.memory),
		Offset:    b.offset,
		Length:    b.length,
	}
}
