// Package gateway plugs command execution into a session host. Callers
// submit commands through an entry point injected into their session; the
// entry point returns immediately and the command runs later on a bounded
// pool of workers, with its output delivered to the caller's console.
package gateway

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sync"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/errors"
	"github.com/reglet-dev/cligate/domain/ports"
)

// Lines returned by Submit.
const (
	QueuedLine = "[cli] queued"
	BusyLine   = "[cli] busy"
)

// ErrNoSessionHost is returned by Install when there is no host to plug into.
var ErrNoSessionHost = stdErrors.New("no session host available")

// Runner executes one command for one caller.
type Runner interface {
	Run(ctx context.Context, userID, code string) entities.ExecutionResult
}

type job struct {
	userID string
	code   string
}

// Gateway queues submitted commands for execution.
type Gateway struct {
	runner Runner
	config gatewayConfig

	ctx    context.Context
	cancel context.CancelFunc
	jobs   chan job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New creates a Gateway and starts its workers. Close stops them.
func New(runner Runner, opts ...Option) *Gateway {
	cfg := defaultGatewayConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &Gateway{
		runner: runner,
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan job, cfg.queueSize),
	}
	for i := 0; i < cfg.workers; i++ {
		g.wg.Add(1)
		go g.work()
	}
	return g
}

// Install registers a hook that injects the entry point into every new
// session of host. It fails when host is missing, in which case nothing is
// installed.
func (g *Gateway) Install(host ports.SessionHost) error {
	if host == nil {
		return &errors.ConfigError{Field: "host", Err: ErrNoSessionHost}
	}
	err := host.OnSession(func(s ports.Session, userID string) {
		if err := s.Inject(g.config.entryPoint, g.EntryPoint(userID)); err != nil {
			g.config.logger.Error("cligate: session injection failed",
				"user", userID,
				"entry_point", g.config.entryPoint,
				"error", err,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("install session hook: %w", err)
	}
	return nil
}

// EntryPoint returns the submit function bound to userID.
func (g *Gateway) EntryPoint(userID string) ports.SubmitFunc {
	return func(code string) string {
		return g.Submit(userID, code)
	}
}

// Submit queues code for execution on behalf of userID and returns without
// waiting. It returns BusyLine when the queue is full or the gateway is
// closed.
func (g *Gateway) Submit(userID, code string) string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return BusyLine
	}
	select {
	case g.jobs <- job{userID: userID, code: code}:
		return QueuedLine
	default:
		g.config.logger.Warn("cligate: submit queue full",
			"user", userID,
			"queue_size", g.config.queueSize,
		)
		return BusyLine
	}
}

func (g *Gateway) work() {
	defer g.wg.Done()
	for j := range g.jobs {
		g.run(j)
	}
}

func (g *Gateway) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			g.config.logger.Error("cligate: execution panicked",
				"user", j.userID,
				"panic", r,
			)
		}
	}()
	g.runner.Run(g.ctx, j.userID, j.code)
}

// Close stops accepting commands and waits for queued ones to finish. If
// ctx ends first, running executions are cancelled and ctx's error is
// returned.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	if !g.closed {
		g.closed = true
		close(g.jobs)
	}
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.cancel()
		return nil
	case <-ctx.Done():
		g.cancel()
		<-done
		return ctx.Err()
	}
}
