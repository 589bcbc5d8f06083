package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
)

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithJSON writes one JSON object per message instead of plain lines.
func WithJSON() WriterOption {
	return func(w *Writer) {
		w.json = true
	}
}

// Writer is a ports.Deliverer printing messages to a stream. Log lines
// and result lines are printed as they are; in JSON mode each message is
// one object carrying the caller.
type Writer struct {
	json bool

	mu  sync.Mutex
	out io.Writer
}

var _ ports.Deliverer = (*Writer)(nil)

// NewWriter creates a Writer over out.
func NewWriter(out io.Writer, opts ...WriterOption) *Writer {
	w := &Writer{out: out}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type jsonMessage struct {
	User    string   `json:"user"`
	Log     []string `json:"log,omitempty"`
	Results []string `json:"results,omitempty"`
}

// Deliver implements ports.Deliverer.
func (w *Writer) Deliver(_ context.Context, userID string, msg entities.ConsoleMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.json {
		return json.NewEncoder(w.out).Encode(jsonMessage{User: userID, Log: msg.Log, Results: msg.Results})
	}
	for _, line := range msg.Log {
		if _, err := fmt.Fprintln(w.out, line); err != nil {
			return err
		}
	}
	for _, line := range msg.Results {
		if _, err := fmt.Fprintln(w.out, line); err != nil {
			return err
		}
	}
	return nil
}
