package ports

import (
	"context"

	"github.com/reglet-dev/cligate/domain/entities"
)

// Deliverer is the progressive output primitive of the host.
type Deliverer interface {
	// Deliver hands log and result lines to userID's console.
	Deliver(ctx context.Context, userID string, msg entities.ConsoleMessage) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, userID string, msg entities.ConsoleMessage) error

// Deliver implements Deliverer.
func (f DelivererFunc) Deliver(ctx context.Context, userID string, msg entities.ConsoleMessage) error {
	return f(ctx, userID, msg)
}
