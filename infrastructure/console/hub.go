// Package console implements output transports: a Hub that retains each
// caller's recent console messages for polling, and a Writer that prints
// them to a stream.
package console

import (
	"context"
	"sync"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
)

// DefaultRetention is how many messages a Hub keeps per caller.
const DefaultRetention = 500

// Entry is one retained message with its per-caller sequence number.
type Entry struct {
	Seq     int64                   `json:"seq"`
	Message entities.ConsoleMessage `json:"message"`
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithRetention sets how many messages are kept per caller.
func WithRetention(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.retention = n
		}
	}
}

// Hub is an in-memory ports.Deliverer. Sequence numbers start at 1 and
// grow by one per message; older messages are evicted past the retention.
type Hub struct {
	retention int

	mu       sync.Mutex
	consoles map[string]*userConsole
}

type userConsole struct {
	last    int64
	entries []Entry
	// changed is closed and replaced on every delivery.
	changed chan struct{}
}

var _ ports.Deliverer = (*Hub)(nil)

// NewHub creates an empty Hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{retention: DefaultRetention, consoles: map[string]*userConsole{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) console(userID string) *userConsole {
	c, ok := h.consoles[userID]
	if !ok {
		c = &userConsole{changed: make(chan struct{})}
		h.consoles[userID] = c
	}
	return c
}

// Deliver implements ports.Deliverer.
func (h *Hub) Deliver(_ context.Context, userID string, msg entities.ConsoleMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.console(userID)
	c.last++
	c.entries = append(c.entries, Entry{Seq: c.last, Message: msg})
	if over := len(c.entries) - h.retention; over > 0 {
		c.entries = append([]Entry(nil), c.entries[over:]...)
	}
	close(c.changed)
	c.changed = make(chan struct{})
	return nil
}

// Since returns the retained messages of userID with a sequence number
// greater than after.
func (h *Hub) Since(userID string, after int64) []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries, _ := h.since(userID, after)
	return entries
}

func (h *Hub) since(userID string, after int64) ([]Entry, <-chan struct{}) {
	c := h.console(userID)
	var out []Entry
	for _, e := range c.entries {
		if e.Seq > after {
			out = append(out, e)
		}
	}
	return out, c.changed
}

// Wait blocks until userID has messages newer than after, then returns
// them. It returns ctx's error if ctx ends first.
func (h *Hub) Wait(ctx context.Context, userID string, after int64) ([]Entry, error) {
	for {
		h.mu.Lock()
		entries, changed := h.since(userID, after)
		h.mu.Unlock()
		if len(entries) > 0 {
			return entries, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
