package policy

import (
	"context"
	"log/slog"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
)

// resolverConfig holds configuration for the Resolver.
type resolverConfig struct {
	identities    ports.IdentityStore
	denialHandler ports.DenialHandler
	logger        *slog.Logger
}

func defaultResolverConfig() resolverConfig {
	return resolverConfig{
		denialHandler: &SlogDenialHandler{},
		logger:        slog.Default(),
	}
}

// ResolverOption configures the Resolver.
type ResolverOption func(*resolverConfig)

// WithIdentityStore sets the store consulted for name-based rules. Without
// one, name rules never match.
func WithIdentityStore(s ports.IdentityStore) ResolverOption {
	return func(c *resolverConfig) {
		c.identities = s
	}
}

// WithDenialHandler sets the denial handler.
func WithDenialHandler(h ports.DenialHandler) ResolverOption {
	return func(c *resolverConfig) {
		c.denialHandler = h
	}
}

// WithLogger sets the logger used to report identity lookup failures.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(c *resolverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Resolver maps a caller identity to a Role. It is stateless apart from the
// immutable allow list and safe for concurrent use.
type Resolver struct {
	allow  *entities.AllowList
	config resolverConfig
}

// NewResolver creates a Resolver over allow.
func NewResolver(allow *entities.AllowList, opts ...ResolverOption) *Resolver {
	cfg := defaultResolverConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Resolver{allow: allow, config: cfg}
}

// Resolve returns the caller's role. It never fails: a lookup error or a
// missing record is treated as an absent name.
func (r *Resolver) Resolve(ctx context.Context, rawID any) entities.Role {
	id, ok := entities.NormalizeToken(rawID)
	if !ok {
		r.deny("", "invalid identity")
		return entities.RoleDenied
	}
	if entities.IsNonPlayer(id) {
		r.deny(id, "non-player identity")
		return entities.RoleDenied
	}
	if r.allow.Elevated.IDs.Has(id) {
		return entities.RoleElevated
	}
	if r.allow.Standard.IDs.Has(id) {
		return entities.RoleStandard
	}

	fallback := r.allow.DefaultRole()
	if !r.allow.HasNameRules() || r.config.identities == nil {
		return r.finish(id, fallback)
	}

	name := r.lookupName(ctx, id)
	switch {
	case name == "":
	case r.allow.Elevated.Names.Has(name):
		return entities.RoleElevated
	case r.allow.Standard.Names.Has(name):
		return entities.RoleStandard
	}
	return r.finish(id, fallback)
}

func (r *Resolver) lookupName(ctx context.Context, id string) string {
	user, err := r.config.identities.FindUserByID(ctx, id)
	if err != nil {
		r.config.logger.WarnContext(ctx, "cligate: identity lookup failed",
			"user", id,
			"error", err,
		)
		return ""
	}
	if user == nil {
		return ""
	}
	name, _ := entities.NormalizeToken(user.Name)
	return name
}

func (r *Resolver) finish(id string, role entities.Role) entities.Role {
	if role == entities.RoleDenied {
		r.deny(id, "not allowed user")
	}
	return role
}

func (r *Resolver) deny(id, reason string) {
	if r.config.denialHandler != nil {
		r.config.denialHandler.OnDenial(DenialAuthorization, id, reason)
	}
}
