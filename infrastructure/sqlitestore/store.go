// Package sqlitestore provides a SQLite-backed document store. Documents are
// stored as JSON with ObjectIDs in extended JSON form, so ownership values
// keep their ObjectID type across a round trip.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schemaSQL string

type storeConfig struct {
	collections []string
	newID       func() any
}

func defaultStoreConfig() storeConfig {
	return storeConfig{
		collections: []string{
			entities.CollectionRooms,
			entities.CollectionRoomObjects,
			entities.CollectionUsers,
			entities.CollectionUsersCode,
		},
		newID: func() any { return entities.NewObjectID() },
	}
}

// Option configures a Store.
type Option func(*storeConfig)

// WithCollections sets the collection names the store exposes.
func WithCollections(names ...string) Option {
	return func(c *storeConfig) {
		c.collections = names
	}
}

// WithIDGenerator sets the generator for identifiers of inserted documents
// that carry none. Defaults to new ObjectIDs.
func WithIDGenerator(fn func() any) Option {
	return func(c *storeConfig) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// Store persists collections in one SQLite table.
type Store struct {
	sqlDB       *sql.DB
	collections map[string]*Collection
}

var _ ports.Database = (*Store)(nil)

// Open opens a SQLite document store and ensures its schema.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cfg := defaultStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes writers; read-then-write transactions would
	// otherwise fail to upgrade their snapshot under contention.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	s := &Store{sqlDB: sqlDB, collections: make(map[string]*Collection, len(cfg.collections))}
	for _, name := range cfg.collections {
		s.collections[name] = &Collection{db: sqlDB, name: name, newID: cfg.newID}
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Collection implements ports.Database.
func (s *Store) Collection(name string) (ports.Collection, bool) {
	c, ok := s.collections[name]
	if !ok {
		return nil, false
	}
	return c, true
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

// Indexes returns the fields declared with EnsureIndex for collection.
func (s *Store) Indexes(ctx context.Context, collection string) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT field FROM document_indexes WHERE collection = ? ORDER BY field`, collection)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	defer rows.Close()

	var fields []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func isConstraintViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
