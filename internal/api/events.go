package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/v4lcap/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint. Frame events are
// left out; they arrive at frame rate and are summarized by the metrics.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time capture session state changes, negotiated formats, errors and device hotplug",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"session-state":     events.SessionStateChangedEvent{},
		"format-negotiated": events.FormatNegotiatedEvent{},
		"capture-error":     events.CaptureErrorEvent{},
		"device-changed":    events.DeviceChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		bus := s.options.EventBus
		unsubscribers := []func(){
			events.SubscribeToChannel[events.SessionStateChangedEvent](bus, eventCh),
			events.SubscribeToChannel[events.FormatNegotiatedEvent](bus, eventCh),
			events.SubscribeToChannel[events.CaptureErrorEvent](bus, eventCh),
			events.SubscribeToChannel[events.DeviceChangedEvent](bus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Connection confirmation carries the current state.
		hello := events.SessionStateChangedEvent{DevicePath: "system", To: "connected", Timestamp: events.Timestamp(time.Now())}
		if s.options.Runner != nil {
			st := s.options.Runner.Status()
			hello = events.SessionStateChangedEvent{DevicePath: st.Device, From: st.State, To: st.State, Timestamp: hello.Timestamp}
		}
		if err := send.Data(hello); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
