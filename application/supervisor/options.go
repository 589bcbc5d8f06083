package supervisor

import (
	"log/slog"

	"github.com/reglet-dev/cligate/domain/policy"
	"github.com/reglet-dev/cligate/domain/ports"
	"github.com/reglet-dev/cligate/host"
	"github.com/reglet-dev/cligate/hostfuncs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of execution spans.
const TracerName = "cligate/supervisor"

// supervisorConfig holds configuration for a Supervisor.
type supervisorConfig struct {
	logger        *slog.Logger
	tracer        trace.Tracer
	identities    ports.IdentityStore
	denialHandler ports.DenialHandler
	capabilities  *hostfuncs.HandlerRegistry
	executor      *host.Executor
}

func defaultSupervisorConfig() supervisorConfig {
	return supervisorConfig{
		logger: slog.Default(),
		tracer: otel.Tracer(TracerName),
	}
}

// Option configures a Supervisor.
type Option func(*supervisorConfig)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *supervisorConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracerProvider takes the execution tracer from tp instead of the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *supervisorConfig) {
		if tp != nil {
			c.tracer = tp.Tracer(TracerName)
		}
	}
}

// WithIdentityStore sets the store consulted by name-based allow rules.
func WithIdentityStore(s ports.IdentityStore) Option {
	return func(c *supervisorConfig) {
		c.identities = s
	}
}

// WithDenialHandler reports admission, authorization and permission
// denials to h. Defaults to a slog-backed handler.
func WithDenialHandler(h ports.DenialHandler) Option {
	return func(c *supervisorConfig) {
		c.denialHandler = h
	}
}

// WithCapabilities exposes the administrative capabilities of r to
// Elevated callers.
func WithCapabilities(r *hostfuncs.HandlerRegistry) Option {
	return func(c *supervisorConfig) {
		c.capabilities = r
	}
}

// WithExecutor replaces the command executor.
func WithExecutor(e *host.Executor) Option {
	return func(c *supervisorConfig) {
		if e != nil {
			c.executor = e
		}
	}
}

func (c *supervisorConfig) denials() ports.DenialHandler {
	if c.denialHandler != nil {
		return c.denialHandler
	}
	return &policy.SlogDenialHandler{Logger: c.logger}
}
