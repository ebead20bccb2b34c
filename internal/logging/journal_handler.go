package logging

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// SyslogIdentifier tags every journal entry, for journalctl -t.
const SyslogIdentifier = "v4lcap"

// JournalHandler is a slog.Handler that sends records to the systemd journal.
// Attributes become journal fields: "device" is DEVICE, a "buffer" group's
// "index" is BUFFER_INDEX.
type JournalHandler struct {
	level slog.Leveler
	// preset holds attributes from WithAttrs, already flattened under the
	// groups open at the time.
	preset map[string]any
	groups []string
	send   func(message string, priority journal.Priority, fields map[string]string) error
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level, send: journal.Send}
}

// Enabled implements slog.Handler.
func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	flat := make(map[string]any, len(h.preset)+r.NumAttrs())
	maps.Copy(flat, h.preset)
	r.Attrs(func(a slog.Attr) bool {
		flattenAttr(flat, h.groups, a)
		return true
	})

	fields := make(map[string]string, len(flat)+1)
	for k, v := range flat {
		if name := journalField(k); name != "" {
			fields[name] = fmt.Sprint(v)
		}
	}
	fields["SYSLOG_IDENTIFIER"] = SyslogIdentifier

	if err := h.send(r.Message, journalPriority(r.Level), fields); err != nil {
		return fmt.Errorf("journal send: %w", err)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = maps.Clone(h.preset)
	if clone.preset == nil {
		clone.preset = make(map[string]any, len(attrs))
	}
	for _, a := range attrs {
		flattenAttr(clone.preset, h.groups, a)
	}
	return &clone
}

// WithGroup implements slog.Handler.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// journalField turns a flattened attribute key into a valid journal field
// name: uppercase ASCII letters, digits and underscores, not starting with an
// underscore or digit. Keys with nothing usable map to "".
func journalField(key string) string {
	var b strings.Builder
	for _, c := range strings.ToUpper(key) {
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9' && b.Len() > 0:
			b.WriteRune(c)
		case b.Len() > 0:
			b.WriteByte('_')
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// IsJournalAvailable checks if systemd journal is available.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
