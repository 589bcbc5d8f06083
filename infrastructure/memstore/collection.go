package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/reglet-dev/cligate/domain/entities"
	domainerrors "github.com/reglet-dev/cligate/domain/errors"
	"github.com/reglet-dev/cligate/domain/ports"
	"github.com/reglet-dev/cligate/internal/docquery"
)

// Collection is one named in-memory collection. Documents are deep-copied
// on the way in and out so callers never alias stored state.
type Collection struct {
	mu      sync.RWMutex
	docs    []entities.Document
	name    string
	newID   func() any
	indexes map[string]struct{}
}

var _ ports.Collection = (*Collection)(nil)

func newCollection(name string, newID func() any) *Collection {
	return &Collection{name: name, newID: newID, indexes: map[string]struct{}{}}
}

func (c *Collection) fail(op string, err error) error {
	return &domainerrors.StoreError{Collection: c.name, Op: op, Err: err}
}

func cloneAll(docs []entities.Document) []entities.Document {
	out := make([]entities.Document, len(docs))
	for i, d := range docs {
		out[i] = entities.CloneDocument(d)
	}
	return out
}

// Find implements ports.Collection.
func (c *Collection) Find(ctx context.Context, query entities.Query, opts *entities.FindOptions) ([]entities.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out, err := docquery.Select(c.docs, query, opts)
	if err != nil {
		return nil, c.fail("find", err)
	}
	return cloneAll(out), nil
}

// FindOne implements ports.Collection.
func (c *Collection) FindOne(ctx context.Context, query entities.Query, opts *entities.FindOptions) (entities.Document, error) {
	o := entities.FindOptions{Limit: 1}
	if opts != nil {
		o.Sort = opts.Sort
		o.Offset = opts.Offset
	}
	docs, err := c.Find(ctx, query, &o)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

// FindEx implements ports.Collection.
func (c *Collection) FindEx(ctx context.Context, query entities.Query, opts *entities.FindOptions) ([]entities.Document, error) {
	if opts == nil {
		opts = &entities.FindOptions{}
	}
	return c.Find(ctx, query, opts)
}

// Count implements ports.Collection.
func (c *Collection) Count(ctx context.Context, query entities.Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out, err := docquery.Filter(c.docs, query)
	if err != nil {
		return 0, c.fail("count", err)
	}
	return len(out), nil
}

// By implements ports.Collection.
func (c *Collection) By(ctx context.Context, id any) (entities.Document, error) {
	return c.FindOne(ctx, entities.Query{entities.FieldID: id}, nil)
}

// Insert implements ports.Collection.
func (c *Collection) Insert(ctx context.Context, docs ...entities.Document) ([]entities.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(docs)
}

func (c *Collection) insertLocked(docs []entities.Document) ([]entities.Document, error) {
	stored := make([]entities.Document, 0, len(docs))
	for _, d := range docs {
		doc := entities.CloneDocument(d)
		if doc == nil {
			doc = entities.Document{}
		}
		if id, ok := doc[entities.FieldID]; !ok || id == nil {
			doc[entities.FieldID] = c.newID()
		} else if c.indexOfLocked(id) >= 0 {
			return nil, c.fail("insert", fmt.Errorf("duplicate %s %v", entities.FieldID, id))
		}
		c.docs = append(c.docs, doc)
		stored = append(stored, entities.CloneDocument(doc))
	}
	return stored, nil
}

func (c *Collection) indexOfLocked(id any) int {
	for i, d := range c.docs {
		if docquery.Equal(d[entities.FieldID], id) {
			return i
		}
	}
	return -1
}

// Update implements ports.Collection.
func (c *Collection) Update(ctx context.Context, query entities.Query, update entities.UpdateDoc, params *entities.UpdateParams) (entities.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return entities.UpdateResult{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// Compute every change before committing any, so a failing update
	// leaves the collection untouched.
	res := entities.UpdateResult{OK: 1}
	changes := map[int]entities.Document{}
	for i, d := range c.docs {
		ok, err := docquery.Match(d, query)
		if err != nil {
			return entities.UpdateResult{}, c.fail("update", err)
		}
		if !ok {
			continue
		}
		next, changed, err := docquery.Apply(d, update)
		if err != nil {
			return entities.UpdateResult{}, c.fail("update", err)
		}
		res.N++
		if changed {
			changes[i] = next
		}
	}
	for i, next := range changes {
		c.docs[i] = next
	}
	res.NModified = len(changes)

	if res.N == 0 && params != nil && params.Upsert {
		doc, _, err := docquery.Apply(docquery.SeedFromQuery(query), update)
		if err != nil {
			return entities.UpdateResult{}, c.fail("update", err)
		}
		if _, err := c.insertLocked([]entities.Document{doc}); err != nil {
			return entities.UpdateResult{}, err
		}
		res.N = 1
	}
	return res, nil
}

// RemoveWhere implements ports.Collection.
func (c *Collection) RemoveWhere(ctx context.Context, query entities.Query) (entities.RemoveResult, error) {
	if err := ctx.Err(); err != nil {
		return entities.RemoveResult{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make([]entities.Document, 0, len(c.docs))
	for _, d := range c.docs {
		ok, err := docquery.Match(d, query)
		if err != nil {
			return entities.RemoveResult{}, c.fail("removeWhere", err)
		}
		if !ok {
			kept = append(kept, d)
		}
	}
	removed := len(c.docs) - len(kept)
	c.docs = kept
	return entities.RemoveResult{N: removed, OK: 1}, nil
}

// Clear implements ports.Collection.
func (c *Collection) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = nil
	return nil
}

// EnsureIndex records the index. Lookups stay linear.
func (c *Collection) EnsureIndex(ctx context.Context, field string) error {
	if field == "" {
		return c.fail("ensureIndex", fmt.Errorf("empty field"))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexes[field] = struct{}{}
	return ctx.Err()
}

// Bulk implements ports.Collection. Operations apply in order under one
// lock; the first failure stops the batch.
func (c *Collection) Bulk(ctx context.Context, ops []entities.BulkOp) (entities.BulkResult, error) {
	if err := ctx.Err(); err != nil {
		return entities.BulkResult{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var res entities.BulkResult
	for _, op := range ops {
		switch op.Op {
		case "insert":
			if _, err := c.insertLocked([]entities.Document{op.Data}); err != nil {
				return res, err
			}
			res.Inserted++
		case "update":
			i := c.indexOfLocked(op.ID)
			if i < 0 {
				continue
			}
			next, _, err := docquery.Apply(c.docs[i], op.Update)
			if err != nil {
				return res, c.fail("bulk", err)
			}
			c.docs[i] = next
			res.Updated++
		case "remove":
			i := c.indexOfLocked(op.ID)
			if i < 0 {
				continue
			}
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			res.Removed++
		default:
			return res, c.fail("bulk", fmt.Errorf("unknown bulk op %q", op.Op))
		}
	}
	res.OK = 1
	return res, nil
}
