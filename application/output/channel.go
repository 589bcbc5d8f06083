// Package output delivers an execution's lines to the caller as they are
// produced, bounded by a per-execution line budget.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/reglet-dev/cligate/domain/entities"
	domainerrors "github.com/reglet-dev/cligate/domain/errors"
	"github.com/reglet-dev/cligate/domain/ports"
)

type channelConfig struct {
	logger *slog.Logger
}

// Option configures a Channel.
type Option func(*channelConfig)

// WithLogger sets the logger that records delivery failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *channelConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Channel is the output of one execution. Lines are delivered immediately
// and in order; once the budget is spent further lines are dropped and
// Close reports the truncation once.
type Channel struct {
	deliverer ports.Deliverer
	userID    string
	limit     int
	config    channelConfig

	mu      sync.Mutex
	lines   []entities.OutputLine
	emitted int
	dropped int
	closed  bool
}

// New creates a Channel delivering to userID. A non-positive limit means
// no budget.
func New(deliverer ports.Deliverer, userID string, limit int, opts ...Option) *Channel {
	cfg := channelConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Channel{deliverer: deliverer, userID: userID, limit: limit, config: cfg}
}

// Emit delivers one line. It reports false when the line was dropped
// because the budget is spent or the channel is closed.
func (c *Channel) Emit(ctx context.Context, line string, isResult bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	if c.limit > 0 && c.emitted >= c.limit {
		c.dropped++
		return false
	}
	c.emitted++
	c.send(ctx, line, isResult)
	return true
}

// Close ends the execution's output, emitting the truncation notice as a
// result line when lines were dropped. The notice is not counted against
// the budget. Close is idempotent.
func (c *Channel) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.dropped > 0 {
		c.send(ctx, fmt.Sprintf("[cli] output truncated (>%d lines)", c.limit), true)
	}
}

// send must be called with mu held so lines reach the transport in order.
func (c *Channel) send(ctx context.Context, line string, isResult bool) {
	c.lines = append(c.lines, entities.OutputLine{Text: line, Result: isResult})
	if c.deliverer == nil {
		return
	}

	msg := entities.ConsoleMessage{Log: []string{}, Results: []string{}}
	if isResult {
		msg.Results = append(msg.Results, line)
	} else {
		msg.Log = append(msg.Log, line)
	}
	if err := c.deliverer.Deliver(ctx, c.userID, msg); err != nil {
		derr := &domainerrors.DeliveryError{Err: err, UserID: c.userID}
		c.config.logger.WarnContext(ctx, "cligate: console delivery failed",
			"user", c.userID,
			"error", derr,
		)
	}
}

// Lines returns every line sent, including the truncation notice.
func (c *Channel) Lines() []entities.OutputLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entities.OutputLine(nil), c.lines...)
}

// Truncated reports whether any line was dropped.
func (c *Channel) Truncated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped > 0
}
