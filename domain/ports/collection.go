package ports

import (
	"context"

	"github.com/reglet-dev/cligate/domain/entities"
)

// Collection is the operation set shared by raw store collections and every
// restricted view over them.
type Collection interface {
	// Find returns all documents matching query. A nil or empty query
	// matches every document.
	Find(ctx context.Context, query entities.Query, opts *entities.FindOptions) ([]entities.Document, error)

	// FindOne returns the first match, or nil when nothing matches.
	FindOne(ctx context.Context, query entities.Query, opts *entities.FindOptions) (entities.Document, error)

	// Count returns the number of matching documents.
	Count(ctx context.Context, query entities.Query) (int, error)

	// FindEx is Find with mandatory paging semantics (sort, offset, limit).
	FindEx(ctx context.Context, query entities.Query, opts *entities.FindOptions) ([]entities.Document, error)

	// Update applies update to matching documents.
	Update(ctx context.Context, query entities.Query, update entities.UpdateDoc, params *entities.UpdateParams) (entities.UpdateResult, error)

	// Insert stores docs, assigning identifiers where absent, and returns
	// the stored copies.
	Insert(ctx context.Context, docs ...entities.Document) ([]entities.Document, error)

	// RemoveWhere deletes matching documents.
	RemoveWhere(ctx context.Context, query entities.Query) (entities.RemoveResult, error)

	// Clear deletes every document.
	Clear(ctx context.Context) error

	// By returns the document with the given identifier, or nil.
	By(ctx context.Context, id any) (entities.Document, error)

	// EnsureIndex declares an index on field.
	EnsureIndex(ctx context.Context, field string) error

	// Bulk applies ops in order.
	Bulk(ctx context.Context, ops []entities.BulkOp) (entities.BulkResult, error)
}

// Database is a named set of collections.
type Database interface {
	// Collection returns the named collection.
	Collection(name string) (Collection, bool)

	// Names returns the collection names in sorted order.
	Names() []string
}

// IDAdapter adapts ownership identifiers to one backend's representation so
// that view rewriting stays backend-agnostic.
type IDAdapter interface {
	// OwnerMatch returns the predicate selecting documents owned by userID.
	OwnerMatch(userID string) entities.Query

	// Alternates returns other stored representations of userID to retry a
	// lookup with when the plain form matched nothing.
	Alternates(userID string) []any

	// SameOwner reports whether a stored ownership value denotes userID.
	SameOwner(stored any, userID string) bool
}
