// Package memstore provides an in-memory document store. Identifiers are
// plain strings, as in the single-process server storage.
package memstore

import (
	"sort"

	"github.com/google/uuid"
	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
)

// DefaultCollections are created by New unless overridden.
var DefaultCollections = []string{
	entities.CollectionRooms,
	entities.CollectionRoomObjects,
	entities.CollectionUsers,
	entities.CollectionUsersCode,
}

type storeConfig struct {
	collections []string
	newID       func() any
}

func defaultStoreConfig() storeConfig {
	return storeConfig{
		collections: DefaultCollections,
		newID:       func() any { return uuid.NewString() },
	}
}

// Option configures a Store.
type Option func(*storeConfig)

// WithCollections sets the collection names the store holds.
func WithCollections(names ...string) Option {
	return func(c *storeConfig) {
		c.collections = names
	}
}

// WithIDGenerator sets the generator for identifiers of inserted documents
// that carry none.
func WithIDGenerator(fn func() any) Option {
	return func(c *storeConfig) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// Store is an in-memory ports.Database. Safe for concurrent use.
type Store struct {
	collections map[string]*Collection
}

var _ ports.Database = (*Store)(nil)

// New creates an empty store.
func New(opts ...Option) *Store {
	cfg := defaultStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Store{collections: make(map[string]*Collection, len(cfg.collections))}
	for _, name := range cfg.collections {
		s.collections[name] = newCollection(name, cfg.newID)
	}
	return s
}

// Collection implements ports.Database.
func (s *Store) Collection(name string) (ports.Collection, bool) {
	c, ok := s.collections[name]
	if !ok {
		return nil, false
	}
	return c, true
}

// Raw returns the concrete collection, for seeding and tests.
func (s *Store) Raw(name string) *Collection {
	return s.collections[name]
}

// Names implements ports.Database.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.collections))
	for n := range s.collections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
