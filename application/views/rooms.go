package views

import (
	"context"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
)

// roomsView confines rooms to those whose controller the caller owns.
type roomsView struct {
	f   *Factory
	col ports.Collection
}

var _ ports.Collection = (*roomsView)(nil)

const notForNormalUsers = "is not allowed for normal users"

func (v *roomsView) scope(ctx context.Context, q entities.Query) (entities.Query, error) {
	ids, err := v.f.ownedRoomIDs(ctx)
	if err != nil {
		return nil, err
	}
	return conjoin(q, entities.Query{entities.FieldID: map[string]any{"$in": ids}}), nil
}

func (v *roomsView) Find(ctx context.Context, q entities.Query, opts *entities.FindOptions) ([]entities.Document, error) {
	scoped, err := v.scope(ctx, q)
	if err != nil {
		return nil, err
	}
	return v.col.Find(ctx, scoped, opts)
}

func (v *roomsView) FindOne(ctx context.Context, q entities.Query, opts *entities.FindOptions) (entities.Document, error) {
	scoped, err := v.scope(ctx, q)
	if err != nil {
		return nil, err
	}
	return v.col.FindOne(ctx, scoped, opts)
}

func (v *roomsView) Count(ctx context.Context, q entities.Query) (int, error) {
	scoped, err := v.scope(ctx, q)
	if err != nil {
		return 0, err
	}
	return v.col.Count(ctx, scoped)
}

func (v *roomsView) FindEx(ctx context.Context, q entities.Query, opts *entities.FindOptions) ([]entities.Document, error) {
	scoped, err := v.scope(ctx, q)
	if err != nil {
		return nil, err
	}
	return v.col.FindEx(ctx, scoped, opts)
}

func (v *roomsView) Update(ctx context.Context, q entities.Query, u entities.UpdateDoc, params *entities.UpdateParams) (entities.UpdateResult, error) {
	if changesOwner(u, v.f.userID, v.f.adapter) {
		return entities.UpdateResult{}, v.f.forbid(entities.CollectionRooms+".update", "denied: cannot change user field")
	}
	scoped, err := v.scope(ctx, q)
	if err != nil {
		return entities.UpdateResult{}, err
	}
	// An upsert would create a room outside the owned set.
	return v.col.Update(ctx, scoped, u, nil)
}

func (v *roomsView) Insert(context.Context, ...entities.Document) ([]entities.Document, error) {
	return nil, v.f.forbid(entities.CollectionRooms+".insert", notForNormalUsers)
}

func (v *roomsView) RemoveWhere(context.Context, entities.Query) (entities.RemoveResult, error) {
	return entities.RemoveResult{}, v.f.forbid(entities.CollectionRooms+".removeWhere", notForNormalUsers)
}

func (v *roomsView) Clear(context.Context) error {
	return v.f.forbid(entities.CollectionRooms+".clear", notForNormalUsers)
}

func (v *roomsView) By(context.Context, any) (entities.Document, error) {
	return nil, v.f.forbid(entities.CollectionRooms+".by", notForNormalUsers)
}

func (v *roomsView) EnsureIndex(context.Context, string) error {
	return v.f.forbid(entities.CollectionRooms+".ensureIndex", notForNormalUsers)
}

func (v *roomsView) Bulk(context.Context, []entities.BulkOp) (entities.BulkResult, error) {
	return entities.BulkResult{}, v.f.forbid(entities.CollectionRooms+".bulk", notForNormalUsers)
}
