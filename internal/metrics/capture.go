// Package metrics provides Prometheus metrics for capture sessions.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/smazurov/v4lcap/internal/events"
)

const (
	namespace = "v4lcap"
	subsystem = "capture"
)

var (
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "frames_total",
		Help:      "Frames dequeued from the device",
	}, []string{"device"})

	bytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "bytes_total",
		Help:      "Payload bytes dequeued from the device",
	}, []string{"device"})

	sequenceGapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sequence_gaps_total",
		Help:      "Frames skipped by the driver according to sequence numbers",
	}, []string{"device"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "errors_total",
		Help:      "Capture errors by category",
	}, []string{"device", "code"})

	poolBuffers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "pool_buffers",
		Help:      "Mapped buffers in the session pool",
	}, []string{"device"})

	sessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "session_state",
		Help:      "Session state: 0 closed, 1 opened, 2 prepared, 3 streaming, 4 stopped",
	}, []string{"device"})

	negotiatedFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "negotiated_fps",
		Help:      "Frame rate accepted by the driver",
	}, []string{"device"})

	measuredFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "measured_fps",
		Help:      "Frame rate observed over the last sampling interval",
	}, []string{"device"})

	// Local cache for exporters and the status API.
	cache   = make(map[string]*DeviceMetrics)
	cacheMu sync.RWMutex
)

var stateValues = map[string]float64{
	"closed":    0,
	"opened":    1,
	"prepared":  2,
	"streaming": 3,
	"stopped":   4,
}

// DeviceMetrics holds current metric values for a device.
type DeviceMetrics struct {
	Frames       uint64
	Bytes        uint64
	SequenceGaps uint64
	Errors       uint64
	PoolBuffers  int
	State        string
	FPS          float64
	MeasuredFPS  float64
	LastSequence uint32
}

// RecordFrame counts one dequeued frame.
func RecordFrame(device string, bytes, dropped, sequence uint32) {
	framesTotal.WithLabelValues(device).Inc()
	bytesTotal.WithLabelValues(device).Add(float64(bytes))
	if dropped > 0 {
		sequenceGapsTotal.WithLabelValues(device).Add(float64(dropped))
	}
	updateCache(device, func(m *DeviceMetrics) {
		m.Frames++
		m.Bytes += uint64(bytes)
		m.SequenceGaps += uint64(dropped)
		m.LastSequence = sequence
	})
}

// RecordError counts one capture error.
func RecordError(device, code string) {
	errorsTotal.WithLabelValues(device, code).Inc()
	updateCache(device, func(m *DeviceMetrics) { m.Errors++ })
}

// SetState records the session state of a device.
func SetState(device, state string) {
	if v, ok := stateValues[state]; ok {
		sessionState.WithLabelValues(device).Set(v)
	}
	updateCache(device, func(m *DeviceMetrics) { m.State = state })
}

// SetFormat records the pool size and negotiated frame rate of a device.
func SetFormat(device string, buffers int, fps float64) {
	poolBuffers.WithLabelValues(device).Set(float64(buffers))
	negotiatedFPS.WithLabelValues(device).Set(fps)
	updateCache(device, func(m *DeviceMetrics) {
		m.PoolBuffers = buffers
		m.FPS = fps
	})
}

// SetMeasuredFPS records the observed frame rate of a device.
func SetMeasuredFPS(device string, fps float64) {
	measuredFPS.WithLabelValues(device).Set(fps)
	updateCache(device, func(m *DeviceMetrics) { m.MeasuredFPS = fps })
}

// DeleteDevice removes all metrics for a device.
func DeleteDevice(device string) {
	framesTotal.DeleteLabelValues(device)
	bytesTotal.DeleteLabelValues(device)
	sequenceGapsTotal.DeleteLabelValues(device)
	errorsTotal.DeletePartialMatch(prometheus.Labels{"device": device})
	poolBuffers.DeleteLabelValues(device)
	sessionState.DeleteLabelValues(device)
	negotiatedFPS.DeleteLabelValues(device)
	measuredFPS.DeleteLabelValues(device)

	cacheMu.Lock()
	delete(cache, device)
	cacheMu.Unlock()
}

// Get returns current metric values for a device.
func Get(device string) *DeviceMetrics {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	if m, ok := cache[device]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// GetAll returns metrics for all known devices.
func GetAll() map[string]*DeviceMetrics {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	result := make(map[string]*DeviceMetrics, len(cache))
	for device, m := range cache {
		dup := *m
		result[device] = &dup
	}
	return result
}

func updateCache(device string, update func(*DeviceMetrics)) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	m, ok := cache[device]
	if !ok {
		m = &DeviceMetrics{}
		cache[device] = m
	}
	update(m)
}

// Subscriber is the part of the event bus metrics listens on.
type Subscriber interface {
	Subscribe(handler any) func()
}

// Subscribe feeds capture events from bus into the metrics. The returned
// function detaches every handler.
func Subscribe(bus Subscriber) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.FrameCapturedEvent) {
			RecordFrame(e.DevicePath, e.BytesUsed, e.Dropped, e.Sequence)
		}),
		bus.Subscribe(func(e events.SessionStateChangedEvent) {
			SetState(e.DevicePath, e.To)
		}),
		bus.Subscribe(func(e events.FormatNegotiatedEvent) {
			SetFormat(e.DevicePath, e.BufferCount, e.FPS)
		}),
		bus.Subscribe(func(e events.CaptureErrorEvent) {
			RecordError(e.DevicePath, e.Code)
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
