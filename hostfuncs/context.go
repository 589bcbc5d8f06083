package hostfuncs

import (
	"context"
)

// HostContext is the context a capability handler runs under. It names
// the capability being invoked and the identity that invoked it.
type HostContext interface {
	context.Context

	// FunctionName returns the qualified capability name, e.g.
	// "system.getTickDuration".
	FunctionName() string

	// Module returns the part of FunctionName before the dot.
	Module() string

	// Caller returns the identity that issued the call, empty when unknown.
	Caller() string
}

type hostContext struct {
	context.Context
	funcName string
	caller   string
}

// NewHostContext creates a HostContext for funcName over ctx. The caller is
// taken from WithCaller.
func NewHostContext(ctx context.Context, funcName string) HostContext {
	return &hostContext{
		Context:  ctx,
		funcName: funcName,
		caller:   CallerFrom(ctx),
	}
}

func (c *hostContext) FunctionName() string { return c.funcName }

func (c *hostContext) Module() string {
	module, _ := SplitName(c.funcName)
	return module
}

func (c *hostContext) Caller() string { return c.caller }

// HostContextFrom returns ctx itself when it already is a HostContext.
func HostContextFrom(ctx context.Context, funcName string) HostContext {
	if hc, ok := ctx.(HostContext); ok {
		return hc
	}
	return NewHostContext(ctx, funcName)
}

type callerKey struct{}

// WithCaller records the calling identity on ctx.
func WithCaller(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, callerKey{}, userID)
}

// CallerFrom returns the identity recorded by WithCaller.
func CallerFrom(ctx context.Context) string {
	id, _ := ctx.Value(callerKey{}).(string)
	return id
}
