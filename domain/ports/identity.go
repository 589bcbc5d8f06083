package ports

import (
	"context"

	"github.com/reglet-dev/cligate/domain/entities"
)

// IdentityStore reads caller records for name-based authorization rules.
type IdentityStore interface {
	// FindUserByID returns the identity or nil when no record exists.
	FindUserByID(ctx context.Context, id string) (*entities.Identity, error)
}
