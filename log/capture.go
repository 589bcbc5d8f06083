package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Attr is a flattened slog attribute.
type Attr struct {
	Key   string `json:"key"`
	Type  string `json:"type"`  // "string", "int64", "bool", "float64", "time", "error", "json", "any"
	Value string `json:"value"` // String representation of the value
}

// Entry is one captured record.
type Entry struct {
	Level   slog.Level `json:"level"`
	Message string     `json:"message"`
	Attrs   []Attr     `json:"attrs,omitempty"`
}

// Attr returns the value of the attribute named key.
func (e Entry) Attr(key string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Capture is a slog.Handler keeping every record in memory, for asserting
// on what a component logged.
type Capture struct {
	level slog.Level
	attrs []Attr
	group string
	sink  *captureSink
}

type captureSink struct {
	mu      sync.Mutex
	entries []Entry
}

// NewCapture creates a Capture recording records at level and above.
func NewCapture(level slog.Level) *Capture {
	return &Capture{level: level, sink: &captureSink{}}
}

// Logger returns a logger writing to c.
func (c *Capture) Logger() *slog.Logger {
	return slog.New(c)
}

// Entries returns a snapshot of the captured records.
func (c *Capture) Entries() []Entry {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	return append([]Entry(nil), c.sink.entries...)
}

// Messages returns the message of every captured record.
func (c *Capture) Messages() []string {
	var out []string
	for _, e := range c.Entries() {
		out = append(out, e.Message)
	}
	return out
}

// Enabled reports whether the handler handles records at the given level.
func (c *Capture) Enabled(_ context.Context, level slog.Level) bool {
	return level >= c.level
}

// Handle implements slog.Handler.
func (c *Capture) Handle(_ context.Context, record slog.Record) error {
	entry := Entry{Level: record.Level, Message: record.Message}
	entry.Attrs = append(entry.Attrs, c.attrs...)
	record.Attrs(func(a slog.Attr) bool {
		entry.Attrs = append(entry.Attrs, toAttr(c.group, a))
		return true
	})

	c.sink.mu.Lock()
	c.sink.entries = append(c.sink.entries, entry)
	c.sink.mu.Unlock()
	return nil
}

// WithAttrs implements slog.Handler.
func (c *Capture) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *c
	next.attrs = append([]Attr(nil), c.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, toAttr(c.group, a))
	}
	return &next
}

// WithGroup implements slog.Handler. Group names prefix keys with a dot.
func (c *Capture) WithGroup(name string) slog.Handler {
	next := *c
	if c.group != "" {
		name = c.group + "." + name
	}
	next.group = name
	return &next
}

// toAttr flattens attr, prefixing its key with group.
func toAttr(group string, attr slog.Attr) Attr {
	key := attr.Key
	if group != "" {
		key = group + "." + key
	}
	out := Attr{Key: key}
	attr.Value = attr.Value.Resolve()

	switch attr.Value.Kind() {
	case slog.KindString:
		out.Type = "string"
		out.Value = attr.Value.String()
	case slog.KindInt64:
		out.Type = "int64"
		out.Value = fmt.Sprintf("%d", attr.Value.Int64())
	case slog.KindUint64:
		out.Type = "uint64"
		out.Value = fmt.Sprintf("%d", attr.Value.Uint64())
	case slog.KindBool:
		out.Type = "bool"
		out.Value = fmt.Sprintf("%t", attr.Value.Bool())
	case slog.KindFloat64:
		out.Type = "float64"
		out.Value = fmt.Sprintf("%g", attr.Value.Float64())
	case slog.KindTime:
		out.Type = "time"
		out.Value = attr.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		out.Type = "duration"
		out.Value = attr.Value.Duration().String()
	case slog.KindAny:
		v := attr.Value.Any()
		switch {
		case v == nil:
			out.Type = "any"
			out.Value = "<nil>"
		default:
			if err, isErr := v.(error); isErr {
				out.Type = "error"
				out.Value = err.Error()
			} else if data, marshalErr := json.Marshal(v); marshalErr == nil {
				out.Type = "json"
				out.Value = string(data)
			} else {
				out.Type = "any"
				out.Value = fmt.Sprintf("%v", v)
			}
		}
	default:
		out.Type = "any"
		out.Value = fmt.Sprintf("%v", attr.Value.Any())
	}
	return out
}
