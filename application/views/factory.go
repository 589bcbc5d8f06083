// Package views builds the per-execution restricted views that confine a
// Standard-tier caller to the documents it owns, and the privacy overlay
// that confines an Elevated-tier caller's code collection to its own
// records.
//
// Every operation is rewritten at the query layer: results are never
// filtered after the fact, so paging and counting cannot leak documents of
// other owners.
package views

import (
	"context"
	"fmt"
	"sync"

	"github.com/reglet-dev/cligate/domain/entities"
	domainerrors "github.com/reglet-dev/cligate/domain/errors"
	"github.com/reglet-dev/cligate/domain/ports"
)

// factoryConfig holds configuration for a Factory.
type factoryConfig struct {
	denialHandler ports.DenialHandler
}

// Option configures a Factory.
type Option func(*factoryConfig)

// WithDenialHandler reports every refused operation to h.
func WithDenialHandler(h ports.DenialHandler) Option {
	return func(c *factoryConfig) {
		c.denialHandler = h
	}
}

// Factory builds the views of one caller for one execution. It must not be
// shared across executions: the owned room snapshot it memoizes would go
// stale.
type Factory struct {
	db      ports.Database
	adapter ports.IDAdapter
	userID  string
	config  factoryConfig

	roomsMu    sync.Mutex
	roomsReady bool
	roomIDs    []any
}

// NewFactory creates a Factory for userID over db.
func NewFactory(db ports.Database, adapter ports.IDAdapter, userID string, opts ...Option) *Factory {
	var cfg factoryConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Factory{db: db, adapter: adapter, userID: userID, config: cfg}
}

// UserID returns the caller the views are scoped to.
func (f *Factory) UserID() string {
	return f.userID
}

func (f *Factory) forbid(op, reason string) error {
	err := domainerrors.Forbid(op, reason)
	if f.config.denialHandler != nil {
		f.config.denialHandler.OnDenial("permission", f.userID, err.Error())
	}
	return err
}

func (f *Factory) base(name string) ports.Collection {
	if c, ok := f.db.Collection(name); ok {
		return c
	}
	return unavailable{name: name}
}

// ownedRoomIDs returns the rooms whose controller the caller owns. The
// first successful lookup is memoized for the factory's lifetime; a failed
// lookup is returned as an error and retried on the next call, so failure
// is never mistaken for owning no rooms.
func (f *Factory) ownedRoomIDs(ctx context.Context) ([]any, error) {
	f.roomsMu.Lock()
	defer f.roomsMu.Unlock()
	if f.roomsReady {
		return f.roomIDs, nil
	}

	objects := f.base(entities.CollectionRoomObjects)
	controllers, err := objects.Find(ctx, entities.Query{
		entities.FieldType: entities.TypeController,
		entities.FieldUser: f.userID,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("lookup owned rooms: %w", err)
	}
	// A zero-row success may only mean the backend stores the owner in
	// another representation.
	for _, alt := range f.adapter.Alternates(f.userID) {
		if len(controllers) > 0 {
			break
		}
		controllers, err = objects.Find(ctx, entities.Query{
			entities.FieldType: entities.TypeController,
			entities.FieldUser: alt,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("lookup owned rooms: %w", err)
		}
	}

	ids := make([]any, 0, len(controllers))
	seen := map[string]bool{}
	for _, c := range controllers {
		room, ok := entities.NormalizeToken(c[entities.FieldRoom])
		if !ok || seen[room] {
			continue
		}
		seen[room] = true
		ids = append(ids, room)
	}
	f.roomIDs = ids
	f.roomsReady = true
	return ids, nil
}

// Rooms returns the rooms view.
func (f *Factory) Rooms() ports.Collection {
	return &roomsView{f: f, col: f.base(entities.CollectionRooms)}
}

// Objects returns the room objects view.
func (f *Factory) Objects() ports.Collection {
	return &ownedView{f: f, col: f.base(entities.CollectionRoomObjects), name: entities.CollectionObjectsAlias}
}

// Creeps returns the room objects view narrowed to creeps.
func (f *Factory) Creeps() ports.Collection {
	return &ownedView{
		f:     f,
		col:   f.base(entities.CollectionRoomObjects),
		name:  entities.CollectionCreepsAlias,
		extra: entities.Query{entities.FieldType: entities.TypeCreep},
	}
}

// Codes returns the caller's code view.
func (f *Factory) Codes() ports.Collection {
	return &codesView{f: f, col: f.base(entities.CollectionUsersCode)}
}
