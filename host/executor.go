package host

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"time"

	"github.com/reglet-dev/cligate/domain/errors"
	"github.com/reglet-dev/cligate/domain/ports"
	"github.com/reglet-dev/cligate/hostfuncs"
	lua "github.com/yuin/gopher-lua"
)

// Environment is what one execution may reach.
type Environment struct {
	// Database is exposed as storage.db. Nil installs no storage global.
	Database ports.Database

	// Capabilities are exposed as one global per module, plus help().
	// Nil installs none of them.
	Capabilities *hostfuncs.HandlerRegistry

	// Print receives log lines produced by print(...). Nil discards them.
	Print func(line string)

	// UserID is the caller, passed to capabilities for auditing.
	UserID string
}

// Executor evaluates commands in fresh interpreter states.
type Executor struct {
	logger        *slog.Logger
	callStackSize int
	stackTraces   bool
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		logger:        slog.Default(),
		callStackSize: lua.CallStackSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type session struct {
	L   *lua.LState
	ctx context.Context
	env Environment
}

// Run evaluates code against env. Code is compiled as an expression
// ("return <code>") when possible and as a statement chunk otherwise.
//
// The synchronous phase is bounded by timeout; exceeding it aborts the
// interpreter and returns a *errors.TimeoutError of phase PhaseSync. A
// Future result is returned as a Pending outcome without waiting. Any
// failure raised by the command is returned as *errors.ExecError, or as
// the typed error it raised (for example *errors.PermissionError).
func (e *Executor) Run(ctx context.Context, env Environment, code string, timeout time.Duration) (Outcome, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: e.callStackSize,
	})
	defer L.Close()

	s := &session{L: L, ctx: ctx, env: env}
	openLibs(L)
	registerTypes(L)
	s.bindBuiltins()
	if env.Database != nil {
		s.bindDatabase(env.Database)
	}
	if env.Capabilities != nil {
		s.bindCapabilities(env.Capabilities)
	}

	fn, err := compile(L, code)
	if err != nil {
		return Outcome{}, &errors.ExecError{Err: err}
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	L.SetContext(runCtx)

	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		if stdErrors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Outcome{}, &errors.TimeoutError{Phase: errors.PhaseSync, Duration: timeout}
		}
		return Outcome{}, e.commandError(err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	if f, ok := futureOf(ret); ok {
		return Pending(f), nil
	}
	v, err := ToGo(ret)
	if err != nil {
		e.logger.DebugContext(ctx, "cligate: result not convertible", "error", err)
		return Immediate(L.ToStringMeta(ret).String()), nil
	}
	return Immediate(v), nil
}

func compile(L *lua.LState, code string) (*lua.LFunction, error) {
	if fn, err := L.LoadString("return " + code); err == nil {
		return fn, nil
	}
	return L.LoadString(code)
}

// commandError recovers the Go error a binding raised, or wraps the Lua
// error the command raised itself.
func (e *Executor) commandError(err error) error {
	var apiErr *lua.ApiError
	if !stdErrors.As(err, &apiErr) {
		return &errors.ExecError{Err: err}
	}
	if ud, ok := apiErr.Object.(*lua.LUserData); ok {
		if goErr, ok := ud.Value.(error); ok {
			return goErr
		}
	}
	msg := apiErr.Error()
	if apiErr.Object != nil {
		msg = apiErr.Object.String()
	}
	execErr := &errors.ExecError{Err: stdErrors.New(msg)}
	if e.stackTraces {
		execErr.Trace = apiErr.StackTrace
	}
	return execErr
}
