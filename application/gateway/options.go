package gateway

import (
	"log/slog"

	"github.com/reglet-dev/cligate/domain/entities"
)

// DefaultEntryPoint is the name the submit function is injected under.
const DefaultEntryPoint = "exec"

// gatewayConfig holds configuration for a Gateway.
type gatewayConfig struct {
	logger     *slog.Logger
	workers    int
	queueSize  int
	entryPoint string
}

func defaultGatewayConfig() gatewayConfig {
	defaults := entities.DefaultSettings()
	return gatewayConfig{
		logger:     slog.Default(),
		workers:    defaults.WorkerCount,
		queueSize:  defaults.QueueSize,
		entryPoint: DefaultEntryPoint,
	}
}

// Option configures a Gateway.
type Option func(*gatewayConfig)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *gatewayConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithWorkers sets how many executions run at once.
func WithWorkers(n int) Option {
	return func(c *gatewayConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithQueueSize sets how many submitted commands may wait for a worker.
func WithQueueSize(n int) Option {
	return func(c *gatewayConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithSettings takes the worker count and queue size from s.
func WithSettings(s entities.Settings) Option {
	return func(c *gatewayConfig) {
		WithWorkers(s.WorkerCount)(c)
		WithQueueSize(s.QueueSize)(c)
	}
}

// WithEntryPoint sets the name the submit function is injected under.
func WithEntryPoint(name string) Option {
	return func(c *gatewayConfig) {
		if name != "" {
			c.entryPoint = name
		}
	}
}
