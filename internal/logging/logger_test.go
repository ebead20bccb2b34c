package logging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

func resetState() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"capture": "debug",
			"api":     "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"capture", true, true, true},
		{"api", false, false, true},
		{"other", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	loggerBefore := GetLogger("capture")
	handlerBefore := loggerBefore.Handler()
	if handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Logger created before Initialize should NOT have debug enabled")
	}

	Initialize(Config{
		Level:   "info",
		Format:  "text",
		Modules: map[string]string{"capture": "debug"},
	})

	// Same format, so the cached logger is kept and its LevelVar updated.
	if loggerBefore != GetLogger("capture") {
		t.Error("Logger should be cached - same pointer before and after Initialize")
	}
	if !handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Cached logger should have debug enabled after Initialize updates LevelVar")
	}
}

func TestReinitializeChangesLevels(t *testing.T) {
	resetState()

	Initialize(Config{Level: "info", Format: "text"})
	logger := GetLogger("runner")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug enabled at info level")
	}

	Initialize(Config{Level: "debug", Format: "text"})
	if !GetLogger("runner").Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("reloaded level not applied to existing module")
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info", Format: "text"})

	if SetModuleLevel("capture", "verbose") {
		t.Error("SetModuleLevel accepted an unknown level")
	}
	if !SetModuleLevel("capture", "error") {
		t.Fatal("SetModuleLevel rejected a valid level")
	}
	h := GetLogger("capture").Handler()
	if h.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn enabled after lowering capture to error")
	}
	if !GetLogger("other").Handler().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("other modules affected by SetModuleLevel")
	}
}

func TestMultiHandlerDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")

	output := buf.String()
	if count := strings.Count(output, "debug only message"); count != 1 {
		t.Errorf("Expected 1 debug message, got %d. Output: %s", count, output)
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandlerContinuesAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	text := slog.NewTextHandler(&buf, nil)
	multi := NewMultiHandler(failingHandler{text}, text)

	err := multi.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0))
	if err == nil || !strings.Contains(err.Error(), "sink down") {
		t.Errorf("Handle() error = %v, want sink failure", err)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Error("second handler did not receive the record")
	}
}

func TestBufferHandler(t *testing.T) {
	rb := NewRingBuffer(10)
	logger := slog.New(NewBufferHandler(rb, slog.LevelInfo)).With("module", "capture")

	logger.Debug("dropped")
	logger.WithGroup("frame").Info("Frame captured", "index", 2, "latency", 5*time.Millisecond, "error", errors.New("late"))

	entries := rb.ReadAll()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Module != "capture" || e.Level != "info" || e.Message != "Frame captured" {
		t.Errorf("entry = %+v", e)
	}
	if e.Attributes["frame.index"] != int64(2) {
		t.Errorf("frame.index = %v (%T)", e.Attributes["frame.index"], e.Attributes["frame.index"])
	}
	if e.Attributes["frame.latency"] != "5ms" || e.Attributes["frame.error"] != "late" {
		t.Errorf("attributes = %v", e.Attributes)
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)
	if rb.ReadAll() != nil {
		t.Error("empty buffer should return nil")
	}
	for i := 0; i < 5; i++ {
		rb.Write(LogEntry{Message: fmt.Sprint(i)})
	}
	if rb.Count() != 3 {
		t.Errorf("Count() = %d, want 3", rb.Count())
	}

	var got []string
	for _, e := range rb.ReadAll() {
		got = append(got, e.Message)
	}
	if strings.Join(got, ",") != "2,3,4" {
		t.Errorf("ReadAll() = %v, want [2 3 4]", got)
	}

	recent := rb.Recent(2)
	if len(recent) != 2 || recent[0].Message != "3" || recent[1].Message != "4" {
		t.Errorf("Recent(2) = %v", recent)
	}
	if len(rb.Recent(0)) != 3 {
		t.Error("Recent(0) should return everything")
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			if tt.isNil {
				if got != nil {
					t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
				}
				return
			}
			if got == nil {
				t.Errorf("parseLevel(%q) = nil, want %v", tt.input, tt.want)
			} else if *got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, tt.want)
			}
		})
	}
}

func TestJournalField(t *testing.T) {
	tests := []struct{ key, want string }{
		{"device", "DEVICE"},
		{"buffer.index", "BUFFER_INDEX"},
		{"bytes-used", "BYTES_USED"},
		{"_private", "PRIVATE"},
		{"9lives", "LIVES"},
		{"x9", "X9"},
		{"trailing.", "TRAILING"},
		{"日本", ""},
	}
	for _, tt := range tests {
		if got := journalField(tt.key); got != tt.want {
			t.Errorf("journalField(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestJournalHandlerFields(t *testing.T) {
	var gotMsg string
	var gotPri journal.Priority
	var gotFields map[string]string

	h := NewJournalHandler(slog.LevelDebug)
	h.send = func(msg string, pri journal.Priority, fields map[string]string) error {
		gotMsg, gotPri, gotFields = msg, pri, fields
		return nil
	}

	logger := slog.New(h).With("module", "capture").WithGroup("buffer")
	logger.Warn("requeue failed", "index", 3, "err", errors.New("EBUSY"))

	if gotMsg != "requeue failed" {
		t.Errorf("message = %q", gotMsg)
	}
	if gotPri != journal.PriWarning {
		t.Errorf("priority = %v, want warning", gotPri)
	}
	want := map[string]string{
		"SYSLOG_IDENTIFIER": SyslogIdentifier,
		"MODULE":            "capture",
		"BUFFER_INDEX":      "3",
		"BUFFER_ERR":        "EBUSY",
	}
	for k, v := range want {
		if gotFields[k] != v {
			t.Errorf("field %s = %q, want %q", k, gotFields[k], v)
		}
	}
}
