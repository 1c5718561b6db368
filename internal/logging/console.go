package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

// Keys hoisted out of the key=value tail into the line prefix. Order is
// the order they appear inside the brackets.
var tagKeys = []string{FieldTask, FieldStage, FieldEntryID}

var levelColors = map[slog.Level]text.Colors{
	slog.LevelError: {text.FgRed, text.Bold},
	slog.LevelWarn:  {text.FgYellow},
	slog.LevelInfo:  {text.FgCyan},
	slog.LevelDebug: {text.FgHiBlack},
}

// lineHandler writes human-oriented log lines:
//
//	2026-01-02T15:04:05Z INFO [process summarize #12] advancer: summary stored words=180
//
// The bracketed tag only appears when task, stage or entry fields are set.
type lineHandler struct {
	sinks  []*sink
	level  *slog.LevelVar
	preset []field
	prefix string
	source bool
}

// sink is one output. Terminal sinks may be coloured; files never are.
type sink struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

func (s *sink) write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(p)
	return err
}

type field struct {
	key   string
	value slog.Value
}

func newLineHandler(sinks []*sink, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &lineHandler{sinks: sinks, level: lvl, source: addSource}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *lineHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}

	fields := append([]field(nil), h.preset...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = collect(fields, h.prefix, attr)
		return true
	})

	var component string
	tags := make(map[string]string, len(tagKeys))
	rest := fields[:0]
	for _, f := range fields {
		switch {
		case f.key == FieldComponent:
			if component == "" {
				component = render(f.value, false)
			}
		case isTagKey(f.key):
			tags[f.key] = render(f.value, false)
		default:
			rest = append(rest, f)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var plain, colored []byte
	var errs []error
	for _, s := range h.sinks {
		var out []byte
		if s.color {
			if colored == nil {
				colored = h.format(record, ts, component, tags, rest, true)
			}
			out = colored
		} else {
			if plain == nil {
				plain = h.format(record, ts, component, tags, rest, false)
			}
			out = plain
		}
		if err := s.write(out); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *lineHandler) format(record slog.Record, ts time.Time, component string, tags map[string]string, rest []field, color bool) []byte {
	var line strings.Builder
	line.WriteString(ts.UTC().Format(time.RFC3339))
	line.WriteByte(' ')
	line.WriteString(levelLabel(record.Level, color))
	if tag := formatTag(tags); tag != "" {
		line.WriteString(" [")
		line.WriteString(tag)
		line.WriteByte(']')
	}
	line.WriteByte(' ')
	if component != "" {
		line.WriteString(component)
		line.WriteString(": ")
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	line.WriteString(msg)

	if h.source {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&line, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}

	for _, f := range rest {
		if f.key == "" {
			continue
		}
		line.WriteByte(' ')
		key := f.key
		if color {
			key = text.FgHiBlack.Sprint(key)
		}
		line.WriteString(key)
		line.WriteByte('=')
		line.WriteString(render(f.value, true))
	}
	line.WriteByte('\n')
	return []byte(line.String())
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = append([]field(nil), h.preset...)
	for _, attr := range attrs {
		next.preset = collect(next.preset, h.prefix, attr)
	}
	return &next
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = joinKey(h.prefix, name)
	return &next
}

func levelLabel(level slog.Level, color bool) string {
	var name string
	var bucket slog.Level
	switch {
	case level >= slog.LevelError:
		name, bucket = "ERROR", slog.LevelError
	case level >= slog.LevelWarn:
		name, bucket = "WARN", slog.LevelWarn
	case level >= slog.LevelInfo:
		name, bucket = "INFO", slog.LevelInfo
	default:
		name, bucket = "DEBUG", slog.LevelDebug
	}
	if !color {
		return name
	}
	return levelColors[bucket].Sprint(name)
}

// collect appends attr to dst, expanding groups into dotted keys.
func collect(dst []field, prefix string, attr slog.Attr) []field {
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		inner := prefix
		if attr.Key != "" {
			inner = joinKey(prefix, attr.Key)
		}
		for _, member := range value.Group() {
			dst = collect(dst, inner, member)
		}
		return dst
	}
	if attr.Key == "" && value.Any() == nil {
		return dst
	}
	return append(dst, field{key: joinKey(prefix, attr.Key), value: value})
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func isTagKey(key string) bool {
	for _, k := range tagKeys {
		if k == key {
			return true
		}
	}
	return false
}

func formatTag(tags map[string]string) string {
	parts := make([]string, 0, len(tags))
	for _, key := range tagKeys {
		v, ok := tags[key]
		if !ok || v == "" {
			continue
		}
		if key == FieldEntryID {
			v = "#" + v
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

// render formats a value for the console. quote wraps strings that would
// break key=value parsing.
func render(v slog.Value, quote bool) string {
	var s string
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			s = x.Error()
		case fmt.Stringer:
			s = x.String()
		default:
			s = fmt.Sprint(x)
		}
	case slog.KindString:
		s = v.String()
	default:
		return v.String()
	}
	if quote && (s == "" || strings.ContainsFunc(s, unsafeRune)) {
		return strconv.Quote(s)
	}
	return s
}

func unsafeRune(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
