package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	switch format {
	case "json":
		return slog.New(newJSONHandler(out, levelVar)), nil
	case "console":
		return slog.New(newConsoleHandler(out, levelVar)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewNop returns a logger that discards every record.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// WithComponent tags a logger with the component field used by the
// console handler as a message prefix.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar) slog.Handler {
	opts := slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	}
	return slog.NewJSONHandler(w, &opts)
}

type consoleHandler struct {
	mu     sync.Mutex
	writer io.Writer
	level  *slog.LevelVar
	attrs  []slog.Attr
	groups []string
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar) slog.Handler {
	return &consoleHandler{writer: w, level: lvl}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		flattenAttr(&kvs, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})

	var component string
	filtered := kvs[:0]
	for _, pair := range kvs {
		if pair.key == FieldComponent && component == "" {
			component = pair.value.String()
			continue
		}
		filtered = append(filtered, pair)
	}
	kvs = filtered

	var buf bytes.Buffer
	buf.WriteString(timestamp.UTC().Format(time.RFC3339))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	buf.WriteByte(' ')
	if component != "" {
		buf.WriteString(component)
		buf.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		buf.WriteString(msg)
	} else {
		buf.WriteString("(no message)")
	}
	for _, pair := range kvs {
		if pair.key == "" {
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(pair.key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(pair.value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	clone := &consoleHandler{writer: h.writer, level: h.level}
	clone.attrs = append(clone.attrs, h.attrs...)
	clone.groups = append(clone.groups, h.groups...)
	return clone
}

type kv struct {
	key   string
	value slog.Value
}

func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append([]string{}, prefix...), attr.Key)
		}
		for _, nested := range attr.Value.Group() {
			flattenAttr(dst, next, nested)
		}
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(append(append([]string{}, prefix...), attr.Key), ".")
	}
	*dst = append(*dst, kv{key: key, value: attr.Value})
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return maybeQuote(v.String())
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return maybeQuote(err.Error())
		}
		return maybeQuote(fmt.Sprint(v.Any()))
	default:
		return maybeQuote(v.String())
	}
}

func maybeQuote(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
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
