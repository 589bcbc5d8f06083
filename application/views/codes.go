package views

import (
	"context"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
)

// codesView confines users.code to the caller's records by plain equality
// on the ownership field.
type codesView struct {
	f   *Factory
	col ports.Collection
}

var _ ports.Collection = (*codesView)(nil)

const codesDisabled = "is not allowed"

func (v *codesView) predicate() entities.Query {
	return entities.Query{entities.FieldUser: v.f.userID}
}

func (v *codesView) Find(ctx context.Context, q entities.Query, opts *entities.FindOptions) ([]entities.Document, error) {
	return v.col.Find(ctx, conjoin(q, v.predicate()), opts)
}

func (v *codesView) FindOne(ctx context.Context, q entities.Query, opts *entities.FindOptions) (entities.Document, error) {
	return v.col.FindOne(ctx, conjoin(q, v.predicate()), opts)
}

func (v *codesView) Count(ctx context.Context, q entities.Query) (int, error) {
	return v.col.Count(ctx, conjoin(q, v.predicate()))
}

func (v *codesView) FindEx(ctx context.Context, q entities.Query, opts *entities.FindOptions) ([]entities.Document, error) {
	return v.col.FindEx(ctx, conjoin(q, v.predicate()), opts)
}

func (v *codesView) Update(ctx context.Context, q entities.Query, u entities.UpdateDoc, params *entities.UpdateParams) (entities.UpdateResult, error) {
	if changesOwner(u, v.f.userID, v.f.adapter) {
		return entities.UpdateResult{}, v.f.forbid(entities.CollectionUsersCode+".update", "denied: cannot change user field")
	}
	scoped := conjoin(q, v.predicate())
	if params != nil && params.Upsert {
		if _, plain := scoped[entities.FieldUser]; !plain {
			// The upserted document would not carry the owner.
			params = nil
		}
	}
	return v.col.Update(ctx, scoped, u, params)
}

func (v *codesView) Insert(ctx context.Context, docs ...entities.Document) ([]entities.Document, error) {
	stamped, err := stampOwner(docs, v.f.userID, v.f.adapter, func() error {
		return v.f.forbid(entities.CollectionUsersCode+".insert", "denied: cannot set user != self")
	})
	if err != nil {
		return nil, err
	}
	return v.col.Insert(ctx, stamped...)
}

func (v *codesView) RemoveWhere(ctx context.Context, q entities.Query) (entities.RemoveResult, error) {
	return v.col.RemoveWhere(ctx, conjoin(q, v.predicate()))
}

func (v *codesView) Clear(context.Context) error {
	return v.f.forbid(entities.CollectionUsersCode+".clear", codesDisabled)
}

func (v *codesView) By(context.Context, any) (entities.Document, error) {
	return nil, v.f.forbid(entities.CollectionUsersCode+".by", codesDisabled)
}

func (v *codesView) EnsureIndex(context.Context, string) error {
	return v.f.forbid(entities.CollectionUsersCode+".ensureIndex", codesDisabled)
}

func (v *codesView) Bulk(context.Context, []entities.BulkOp) (entities.BulkResult, error) {
	return entities.BulkResult{}, v.f.forbid(entities.CollectionUsersCode+".bulk", codesDisabled)
}
