package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// consoleHandler writes one human-readable line per record:
//
//	15:04:05 INFO  composite[clip01]: rendered tiles=2
//
// The component and case attributes are lifted into the subject. Attributes
// added through WithAttrs are rendered once and reused.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Leveler
	addSource bool

	component string
	caseID    string
	group     string
	preset    []byte
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	component, caseID := h.component, h.caseID
	var attrs []byte
	record.Attrs(func(attr slog.Attr) bool {
		attrs = appendAttr(attrs, h.group, attr, &component, &caseID)
		return true
	})

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	line := make([]byte, 0, 96+len(h.preset)+len(attrs))
	line = ts.AppendFormat(line, time.TimeOnly)
	line = append(line, ' ')
	line = fmt.Appendf(line, "%-5s ", levelLabel(record.Level))
	if subject := subjectOf(component, caseID); subject != "" {
		line = append(line, subject...)
		line = append(line, ": "...)
	}
	if record.Message == "" {
		line = append(line, "(no message)"...)
	} else {
		line = append(line, record.Message...)
	}
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			line = fmt.Appendf(line, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	line = append(line, h.preset...)
	line = append(line, attrs...)
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(line)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.preset = append([]byte(nil), h.preset...)
	for _, attr := range attrs {
		clone.preset = appendAttr(clone.preset, clone.group, attr, &clone.component, &clone.caseID)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.group + name + "."
	return &clone
}

// appendAttr renders attr as " key=value". Top-level component and case
// attributes fill the subject instead when it is still empty.
func appendAttr(dst []byte, group string, attr slog.Attr, component, caseID *string) []byte {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			group += attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			dst = appendAttr(dst, group, member, component, caseID)
		}
		return dst
	}
	if group == "" {
		switch {
		case attr.Key == FieldComponent && *component == "":
			*component = valueText(attr.Value)
			return dst
		case attr.Key == FieldCaseID && *caseID == "":
			*caseID = valueText(attr.Value)
			return dst
		}
	}
	dst = append(dst, ' ')
	dst = append(dst, group...)
	dst = append(dst, attr.Key...)
	dst = append(dst, '=')
	text := valueText(attr.Value)
	if needsQuotes(text) {
		return strconv.AppendQuote(dst, text)
	}
	return append(dst, text...)
}

func valueText(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}

// subjectOf renders "component[case]" with either half optional.
func subjectOf(component, caseID string) string {
	switch {
	case caseID == "":
		return component
	case component == "":
		return "[" + caseID + "]"
	default:
		return component + "[" + caseID + "]"
	}
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
