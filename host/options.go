package host

import (
	"log/slog"
)

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithLogger sets the logger for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCallStackSize bounds Lua call depth, which bounds runaway recursion.
func WithCallStackSize(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.callStackSize = n
		}
	}
}

// WithStackTraces appends the interpreter traceback to command errors.
func WithStackTraces(enabled bool) Option {
	return func(e *Executor) {
		e.stackTraces = enabled
	}
}
