package hostfuncs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Middleware wraps a ByteHandler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
type Middleware func(next ByteHandler) ByteHandler

// RegistryOption is a functional option for configuring a HandlerRegistry.
type RegistryOption func(*registryBuilder)

// PanicRecoveryMiddleware returns a middleware that catches panics and converts
// them to structured ErrorResponse JSON instead of crashing the gateway.
func PanicRecoveryMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp = NewPanicError(r).ToJSON()
					err = nil
				}
			}()
			return next(ctx, payload)
		}
	}
}

// LoggingMiddleware returns a middleware that records every capability call
// with its caller, duration and outcome. Completed calls log at info level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			funcName, caller := "unknown", ""
			if hc, ok := ctx.(HostContext); ok {
				funcName = hc.FunctionName()
				caller = hc.Caller()
			}

			start := time.Now()
			resp, err := next(ctx, payload)
			attrs := []any{
				"capability", funcName,
				"user", caller,
				"duration", time.Since(start),
			}

			switch {
			case err != nil:
				logger.ErrorContext(ctx, "cligate: capability failed", append(attrs, "error", err)...)
			case isErrorReply(resp):
				logger.WarnContext(ctx, "cligate: capability rejected", attrs...)
			default:
				logger.InfoContext(ctx, "cligate: capability invoked", attrs...)
			}
			return resp, err
		}
	}
}

func isErrorReply(resp []byte) bool {
	var probe struct {
		Error string `json:"error"`
	}
	return json.Unmarshal(resp, &probe) == nil && probe.Error != ""
}
