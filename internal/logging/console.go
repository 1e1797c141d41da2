package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler writes one human-readable line per record:
//
//	2024-05-01 20:14:03 INFO  differ [lost]: show reconciled missing=2 scan=1a2b3c4d
//
// The component, show, and queue attributes form the subject instead of
// being repeated as key=value pairs. Attributes bound with WithAttrs are
// rendered once and reused.
type consoleHandler struct {
	out       *syncWriter
	level     *slog.LevelVar
	addSource bool

	subject subject
	bound   string
	groups  string
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(p)
	return err
}

type subject struct {
	component string
	show      string
	queue     string
	scan      string
}

// absorb claims subject keys and reports whether key was one of them.
func (s *subject) absorb(key string, v slog.Value) bool {
	var dst *string
	switch key {
	case FieldComponent:
		dst = &s.component
	case FieldShow:
		dst = &s.show
	case FieldQueue:
		dst = &s.queue
	case FieldCorrelationID:
		dst = &s.scan
	default:
		return false
	}
	if *dst == "" {
		*dst = strings.TrimSpace(plainValue(v))
	}
	return true
}

func (s subject) String() string {
	name := s.component
	if s.queue != "" {
		if name != "" {
			name += "/"
		}
		name += s.queue
	}
	switch {
	case name != "" && s.show != "":
		return name + " [" + s.show + "]"
	case s.show != "":
		return "[" + s.show + "]"
	default:
		return name
	}
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{out: &syncWriter{w: w}, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	subj := h.subject
	var attrs strings.Builder
	attrs.WriteString(h.bound)
	record.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&attrs, &subj, h.groups, a)
		return true
	})

	var line strings.Builder
	line.Grow(96 + attrs.Len())
	line.WriteString(ts.Local().Format(time.DateTime))
	line.WriteByte(' ')
	fmt.Fprintf(&line, "%-5s ", levelLabel(record.Level))
	if s := subj.String(); s != "" {
		line.WriteString(s)
		line.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		line.WriteString(msg)
	} else {
		line.WriteString("(no message)")
	}
	if h.addSource {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&line, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}
	line.WriteString(attrs.String())
	if subj.scan != "" {
		line.WriteString(" scan=")
		line.WriteString(shortID(subj.scan))
	}
	line.WriteByte('\n')
	return h.out.write([]byte(line.String()))
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	var b strings.Builder
	b.WriteString(h.bound)
	for _, a := range attrs {
		h.appendAttr(&b, &clone.subject, h.groups, a)
	}
	clone.bound = b.String()
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = h.groups + name + "."
	return &clone
}

// appendAttr renders a as " key=value", flattening groups into dotted keys.
// Top-level subject keys are absorbed into subj instead.
func (h *consoleHandler) appendAttr(b *strings.Builder, subj *subject, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		next := prefix
		if a.Key != "" {
			next = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.appendAttr(b, subj, next, ga)
		}
		return
	}
	if prefix == "" && subj.absorb(a.Key, a.Value) {
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(quoteIfNeeded(plainValue(a.Value)))
}

func plainValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

// shortID trims scan identifiers to their first block for console output.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
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
