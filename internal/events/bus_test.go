package events

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan FrameCapturedEvent, 1)

	unsub := bus.Subscribe(func(e FrameCapturedEvent) {
		received <- e
	})
	defer unsub()

	ev := FrameCapturedEvent{
		DevicePath: "/dev/video0",
		Index:      2,
		Sequence:   41,
		BytesUsed:  614400,
	}
	bus.Publish(ev)

	got := <-received
	if got != ev {
		t.Errorf("got %+v, want %+v", got, ev)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan SessionStateChangedEvent, 1)
	received2 := make(chan SessionStateChangedEvent, 1)

	unsub1 := bus.Subscribe(func(e SessionStateChangedEvent) { received1 <- e })
	defer unsub1()
	unsub2 := bus.Subscribe(func(e SessionStateChangedEvent) { received2 <- e })
	defer unsub2()

	bus.Publish(SessionStateChangedEvent{From: "prepared", To: "streaming"})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan CaptureErrorEvent, 1)

	unsub := bus.Subscribe(func(e CaptureErrorEvent) { received <- e })

	bus.Publish(CaptureErrorEvent{DevicePath: "/dev/video0"})
	<-received

	unsub()

	bus.Publish(CaptureErrorEvent{DevicePath: "/dev/video1"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	frameReceived := make(chan bool, 1)
	stateReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(FrameCapturedEvent) { frameReceived <- true })
	defer unsub1()
	unsub2 := bus.Subscribe(func(SessionStateChangedEvent) { stateReceived <- true })
	defer unsub2()

	bus.Publish(FrameCapturedEvent{DevicePath: "/dev/video0"})
	<-frameReceived

	select {
	case <-stateReceived:
		t.Fatal("state subscriber should not receive FrameCapturedEvent")
	case <-time.After(10 * time.Millisecond):
	}

	bus.Publish(SessionStateChangedEvent{To: "stopped"})
	<-stateReceived

	select {
	case <-frameReceived:
		t.Fatal("frame subscriber should not receive SessionStateChangedEvent")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_OrderPreserved(t *testing.T) {
	bus := New()
	const n = 200
	got := make(chan uint32, n)

	unsub := bus.Subscribe(func(e FrameCapturedEvent) { got <- e.Sequence })
	defer unsub()

	for i := range uint32(n) {
		bus.Publish(FrameCapturedEvent{Sequence: i})
	}
	for i := range uint32(n) {
		if seq := <-got; seq != i {
			t.Fatalf("event %d has sequence %d", i, seq)
		}
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)
	unsub := bus.Subscribe(func(CaptureErrorEvent) { receivedCh <- true })
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(CaptureErrorEvent{
					Code:      "CONTROL_FAILED",
					Timestamp: Timestamp(time.Now()),
				})
			}
		}()
	}

	wg.Wait()
	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"SessionStateChanged", SessionStateChangedEvent{To: "opened"}},
		{"FormatNegotiated", FormatNegotiatedEvent{PixelFormat: "YUYV"}},
		{"FrameCaptured", FrameCapturedEvent{Index: 1}},
		{"CaptureError", CaptureErrorEvent{Code: "MAPPING_FAILED"}},
		{"DeviceChanged", DeviceChangedEvent{Action: "add"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			received := make(chan Event, 1)

			var unsub func()
			switch tt.event.(type) {
			case SessionStateChangedEvent:
				unsub = bus.Subscribe(func(e SessionStateChangedEvent) { received <- e })
			case FormatNegotiatedEvent:
				unsub = bus.Subscribe(func(e FormatNegotiatedEvent) { received <- e })
			case FrameCapturedEvent:
				unsub = bus.Subscribe(func(e FrameCapturedEvent) { received <- e })
			case CaptureErrorEvent:
				unsub = bus.Subscribe(func(e CaptureErrorEvent) { received <- e })
			case DeviceChangedEvent:
				unsub = bus.Subscribe(func(e DeviceChangedEvent) { received <- e })
			}
			defer unsub()

			bus.Publish(tt.event)
			if got := <-received; got.Type() != tt.event.Type() {
				t.Errorf("Type() = %d, want %d", got.Type(), tt.event.Type())
			}
		})
	}
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	if unsub == nil {
		t.Fatal("expected no-op unsubscribe")
	}
	unsub()
}

func TestBus_NilPublish(_ *testing.T) {
	var bus *Bus
	bus.Publish(FrameCapturedEvent{})
}

func TestEventTypesUnique(t *testing.T) {
	seen := map[uint32]string{}
	for name, ev := range map[string]Event{
		"state":  SessionStateChangedEvent{},
		"format": FormatNegotiatedEvent{},
		"frame":  FrameCapturedEvent{},
		"error":  CaptureErrorEvent{},
		"device": DeviceChangedEvent{},
	} {
		if prev, ok := seen[ev.Type()]; ok {
			t.Errorf("%s and %s share type %d", name, prev, ev.Type())
		}
		seen[ev.Type()] = name
	}
}

func TestEventJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(CaptureErrorEvent{
		DevicePath: "/dev/video0",
		Code:       "CONTROL_FAILED",
		Op:         "VIDIOC_DQBUF",
		Error:      "no such device",
		Timestamp:  "2026-01-27T10:30:00Z",
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"device_path"`, `"code"`, `"op"`, `"error"`, `"timestamp"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("JSON %s missing key %s", data, key)
		}
	}
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2026, 1, 27, 10, 30, 0, 500, time.FixedZone("X", 3600))
	if got, want := Timestamp(ts), "2026-01-27T09:30:00.0000005Z"; got != want {
		t.Errorf("Timestamp = %q, want %q", got, want)
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)
	unsub := SubscribeToChannel[FrameCapturedEvent](bus, ch)
	defer unsub()

	bus.Publish(FrameCapturedEvent{Sequence: 1})
	select {
	case ev := <-ch:
		if e, ok := ev.(FrameCapturedEvent); !ok || e.Sequence != 1 {
			t.Errorf("got %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event on channel")
	}

	// A full channel drops instead of blocking the dispatcher.
	bus.Publish(FrameCapturedEvent{Sequence: 2})
	bus.Publish(FrameCapturedEvent{Sequence: 3})
	time.Sleep(20 * time.Millisecond)
	if ev := <-ch; ev.(FrameCapturedEvent).Sequence != 2 {
		t.Errorf("got %#v, want sequence 2", ev)
	}
}
