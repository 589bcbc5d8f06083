package views

import (
	"context"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
	"github.com/reglet-dev/cligate/internal/docquery"
)

// ownedView confines room objects, optionally narrowed by extra, to the
// caller's own.
type ownedView struct {
	f     *Factory
	col   ports.Collection
	name  string
	extra entities.Query
}

var _ ports.Collection = (*ownedView)(nil)

func (v *ownedView) predicate() entities.Query {
	return conjoin(v.extra, v.f.adapter.OwnerMatch(v.f.userID))
}

func (v *ownedView) Find(ctx context.Context, q entities.Query, opts *entities.FindOptions) ([]entities.Document, error) {
	return v.col.Find(ctx, conjoin(q, v.predicate()), opts)
}

func (v *ownedView) FindOne(ctx context.Context, q entities.Query, opts *entities.FindOptions) (entities.Document, error) {
	return v.col.FindOne(ctx, conjoin(q, v.predicate()), opts)
}

func (v *ownedView) Count(ctx context.Context, q entities.Query) (int, error) {
	return v.col.Count(ctx, conjoin(q, v.predicate()))
}

func (v *ownedView) FindEx(ctx context.Context, q entities.Query, opts *entities.FindOptions) ([]entities.Document, error) {
	return v.col.FindEx(ctx, conjoin(q, v.predicate()), opts)
}

// Update is restricted to one document named by a scalar _id. Compound
// ownership predicates do not behave the same on every backend, so
// ownership is verified by reading the target first and the write is then
// issued by _id alone.
func (v *ownedView) Update(ctx context.Context, q entities.Query, u entities.UpdateDoc, params *entities.UpdateParams) (entities.UpdateResult, error) {
	op := v.name + ".update"
	if changesOwner(u, v.f.userID, v.f.adapter) {
		return entities.UpdateResult{}, v.f.forbid(op, "denied: cannot change user field")
	}
	id, ok := scalarID(q)
	if !ok {
		return entities.UpdateResult{}, v.f.forbid(op, "denied: normal users must update by _id")
	}

	byID := entities.Query{entities.FieldID: id}
	target, err := v.col.FindOne(ctx, byID, nil)
	if err != nil {
		return entities.UpdateResult{}, err
	}
	if target == nil {
		return entities.UpdateResult{N: 0, NModified: 0, OK: 1}, nil
	}
	if !v.f.adapter.SameOwner(target[entities.FieldUser], v.f.userID) {
		return entities.UpdateResult{}, v.f.forbid(op, "denied: not owner")
	}
	for field, want := range v.extra {
		if !docquery.Equal(target[field], want) {
			return entities.UpdateResult{}, v.f.forbid(op, "denied: wrong type")
		}
	}
	return v.col.Update(ctx, byID, u, nil)
}

func (v *ownedView) RemoveWhere(ctx context.Context, q entities.Query) (entities.RemoveResult, error) {
	return v.col.RemoveWhere(ctx, conjoin(q, v.predicate()))
}

// Insert stamps the caller as owner, rejecting documents that name another.
func (v *ownedView) Insert(ctx context.Context, docs ...entities.Document) ([]entities.Document, error) {
	stamped, err := stampOwner(docs, v.f.userID, v.f.adapter, func() error {
		return v.f.forbid(v.name+".insert", "denied: user mismatch")
	})
	if err != nil {
		return nil, err
	}
	return v.col.Insert(ctx, stamped...)
}

func (v *ownedView) Clear(context.Context) error {
	return v.f.forbid(v.name+".clear", notForNormalUsers)
}

func (v *ownedView) By(context.Context, any) (entities.Document, error) {
	return nil, v.f.forbid(v.name+".by", notForNormalUsers)
}

func (v *ownedView) EnsureIndex(context.Context, string) error {
	return v.f.forbid(v.name+".ensureIndex", notForNormalUsers)
}

func (v *ownedView) Bulk(context.Context, []entities.BulkOp) (entities.BulkResult, error) {
	return entities.BulkResult{}, v.f.forbid(v.name+".bulk", notForNormalUsers)
}

// stampOwner copies docs with the ownership field set to userID. A document
// already naming a different owner fails the whole batch with mismatch().
func stampOwner(docs []entities.Document, userID string, adapter ports.IDAdapter, mismatch func() error) ([]entities.Document, error) {
	out := make([]entities.Document, 0, len(docs))
	for _, d := range docs {
		doc := entities.CloneDocument(d)
		if doc == nil {
			doc = entities.Document{}
		}
		if _, set := entities.NormalizeToken(doc[entities.FieldUser]); set && !adapter.SameOwner(doc[entities.FieldUser], userID) {
			return nil, mismatch()
		}
		doc[entities.FieldUser] = userID
		out = append(out, doc)
	}
	return out, nil
}
