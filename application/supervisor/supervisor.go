// Package supervisor runs one command for one caller: it checks the
// command, resolves the caller's role, builds the execution context the
// role allows and executes the command under the synchronous and
// asynchronous budgets, delivering output as it is produced.
package supervisor

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/reglet-dev/cligate/application/output"
	"github.com/reglet-dev/cligate/application/views"
	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/errors"
	"github.com/reglet-dev/cligate/domain/policy"
	"github.com/reglet-dev/cligate/domain/ports"
	"github.com/reglet-dev/cligate/host"
	"github.com/reglet-dev/cligate/internal/inspect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// LinePrefix starts every line the gateway produces itself.
const LinePrefix = "[cli] "

// Supervisor executes commands. It holds no per-execution state and is
// safe for concurrent use.
type Supervisor struct {
	settings  entities.Settings
	db        ports.Database
	ids       ports.IDAdapter
	deliverer ports.Deliverer
	gate      *policy.Gate
	resolver  *policy.Resolver
	executor  *host.Executor
	config    supervisorConfig
}

// New creates a Supervisor over the full store db. ids describes how db
// represents ownership identifiers; output goes to deliverer.
func New(settings entities.Settings, db ports.Database, ids ports.IDAdapter, deliverer ports.Deliverer, opts ...Option) *Supervisor {
	cfg := defaultSupervisorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	executor := cfg.executor
	if executor == nil {
		executor = host.NewExecutor(host.WithLogger(cfg.logger))
	}

	resolverOpts := []policy.ResolverOption{
		policy.WithDenialHandler(cfg.denials()),
		policy.WithLogger(cfg.logger),
	}
	if cfg.identities != nil {
		resolverOpts = append(resolverOpts, policy.WithIdentityStore(cfg.identities))
	}

	return &Supervisor{
		settings:  settings,
		db:        db,
		ids:       ids,
		deliverer: deliverer,
		gate:      policy.NewGate(settings),
		resolver:  policy.NewResolver(entities.NewAllowList(settings), resolverOpts...),
		executor:  executor,
		config:    cfg,
	}
}

// execution is the state of one Run.
type execution struct {
	userID string
	out    *output.Channel
	result entities.ExecutionResult
}

// Run executes code on behalf of userID. It never fails: every outcome,
// including rejection, timeouts and command errors, is reported as lines
// delivered to the caller and summarized in the returned result.
func (s *Supervisor) Run(ctx context.Context, userID, code string) entities.ExecutionResult {
	if id, ok := entities.NormalizeToken(userID); ok {
		userID = id
	}
	ctx, span := s.config.tracer.Start(ctx, "cligate.execute",
		trace.WithAttributes(
			attribute.String("cligate.user", userID),
			attribute.Int("cligate.code_length", len(code)),
		),
	)
	defer span.End()

	started := time.Now()
	x := &execution{
		userID: userID,
		out:    output.New(s.deliverer, userID, s.settings.MaxOutputLines, output.WithLogger(s.config.logger)),
		result: entities.ExecutionResult{Role: entities.RoleDenied},
	}

	s.run(ctx, x, code)

	x.out.Close(ctx)
	x.result.Lines = x.out.Lines()
	x.result.Truncated = x.out.Truncated()

	span.SetAttributes(
		attribute.String("cligate.role", x.result.Role.String()),
		attribute.String("cligate.state", string(x.result.State)),
		attribute.Bool("cligate.truncated", x.result.Truncated),
	)
	if x.result.Errored {
		span.SetStatus(codes.Error, "execution failed")
	}

	s.config.logger.DebugContext(ctx, "cligate: execution finished",
		"user", userID,
		"role", x.result.Role.String(),
		"state", x.result.State,
		"lines", len(x.result.Lines),
		"duration", time.Since(started),
	)
	return x.result
}

func (s *Supervisor) run(ctx context.Context, x *execution, code string) {
	if adm := s.gate.Check(code); !adm.OK {
		s.config.denials().OnDenial(policy.DenialAdmission, x.userID, adm.Reason)
		s.reject(ctx, x, &errors.AdmissionError{Reason: adm.Reason})
		return
	}

	x.result.State = entities.StateResolving
	role := s.resolver.Resolve(ctx, x.userID)
	if !role.Allowed() {
		s.reject(ctx, x, &errors.AuthorizationError{UserID: x.userID})
		return
	}
	x.result.Role = role

	x.result.State = entities.StateRunning
	outcome, err := s.executor.Run(ctx, s.environment(ctx, x, role), code, s.settings.EvalTimeout())
	switch {
	case err != nil:
		s.fail(ctx, x, err)
	case outcome.IsPending():
		x.result.State = entities.StateAwaitingAsyncResult
		s.await(ctx, x, outcome.Future())
	default:
		s.emitValue(ctx, x, outcome.Value())
	}
	x.result.State = entities.StateCompleted
}

// environment builds what the command may reach for role.
func (s *Supervisor) environment(ctx context.Context, x *execution, role entities.Role) host.Environment {
	env := host.Environment{
		UserID: x.userID,
		Print: func(line string) {
			x.out.Emit(ctx, line, false)
		},
	}

	factory := views.NewFactory(s.db, s.ids, x.userID, views.WithDenialHandler(s.config.denials()))
	switch role {
	case entities.RoleElevated:
		env.Database = s.db
		if s.settings.SuperAdminUsersCodeSelfOnly {
			env.Database = factory.PrivacyGuarded(s.db)
		}
		env.Capabilities = s.config.capabilities
	default:
		env.Database = factory.Database()
	}
	return env
}

// await races f against the asynchronous budget. Losing the race abandons
// f without cancelling the operation behind it.
func (s *Supervisor) await(ctx context.Context, x *execution, f *host.Future) {
	budget := s.settings.PromiseTimeout()
	waitCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	v, err := f.Wait(waitCtx)
	if err == nil {
		s.emitValue(ctx, x, v)
		return
	}
	if ctx.Err() == nil && stdErrors.Is(err, context.DeadlineExceeded) && waitCtx.Err() != nil {
		x.result.Errored = true
		timeout := &errors.TimeoutError{Phase: errors.PhaseAsync, Duration: budget}
		s.config.logger.InfoContext(ctx, "cligate: asynchronous result abandoned",
			"user", x.userID,
			"timeout", budget,
		)
		x.out.Emit(ctx, LinePrefix+timeout.Error(), true)
		return
	}
	s.fail(ctx, x, err)
}

func (s *Supervisor) reject(ctx context.Context, x *execution, err error) {
	x.result.State = entities.StateRejected
	x.result.Errored = true
	x.out.Emit(ctx, LinePrefix+err.Error(), true)
}

func (s *Supervisor) fail(ctx context.Context, x *execution, err error) {
	x.result.Errored = true
	if detail := errors.ToErrorDetail(err); detail != nil && detail.Type == entities.ErrorTypeInternal {
		s.config.logger.WarnContext(ctx, "cligate: command failed",
			"user", x.userID,
			"error", err,
		)
	}
	x.out.Emit(ctx, LinePrefix+"Error: "+err.Error(), true)
}

// emitValue delivers a command's value. A nil value means "no value" and
// produces no line.
func (s *Supervisor) emitValue(ctx context.Context, x *execution, v any) {
	if v == nil {
		return
	}
	line, ok := v.(string)
	if !ok {
		line = inspect.Format(v)
	}
	x.out.Emit(ctx, line, true)
}

// Settings returns the settings the supervisor enforces.
func (s *Supervisor) Settings() entities.Settings {
	return s.settings
}
