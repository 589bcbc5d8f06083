package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/infrastructure/sqlitestore"
	"github.com/reglet-dev/cligate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	s, err := sqlitestore.Open(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func objects(t *testing.T, s *sqlitestore.Store) *sqlitestore.Collection {
	t.Helper()
	c, ok := s.Collection(entities.CollectionRoomObjects)
	require.True(t, ok)
	return c.(*sqlitestore.Collection)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := sqlitestore.Open("  ")
	assert.Error(t, err)
}

func TestStore_ObjectIDRoundTrip(t *testing.T) {
	s := openStore(t)
	col := objects(t, s)
	ctx := context.Background()
	owner := entities.NewObjectID()

	stored, err := col.Insert(ctx, entities.Document{"type": "controller", "room": "W1N1", "user": owner})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	id, ok := stored[0]["_id"].(entities.ObjectID)
	require.True(t, ok, "generated identifiers are ObjectIDs")

	docs, err := col.Find(ctx, entities.Query{"user": owner}, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, owner, docs[0]["user"])
	assert.Equal(t, id, docs[0]["_id"])

	docs, err = col.Find(ctx, entities.Query{"user": owner.Hex()}, nil)
	require.NoError(t, err)
	assert.Empty(t, docs, "string form does not match a stored ObjectID")

	byID, err := col.By(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "W1N1", byID["room"])
}

func TestCollection_CRUD(t *testing.T) {
	s := openStore(t)
	col := objects(t, s)
	ctx := context.Background()

	_, err := col.Insert(ctx,
		entities.Document{"_id": "a", "user": "5", "type": "creep", "hits": 10},
		entities.Document{"_id": "b", "user": "9", "type": "creep", "hits": 20},
	)
	require.NoError(t, err)

	_, err = col.Insert(ctx, entities.Document{"_id": "a"})
	require.Error(t, err)

	n, err := col.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := col.Update(ctx, entities.Query{"_id": "a"}, entities.UpdateDoc{"$inc": map[string]any{"hits": 5}}, nil)
	require.NoError(t, err)
	assert.Equal(t, entities.UpdateResult{N: 1, NModified: 1, OK: 1}, res)

	doc, err := col.FindOne(ctx, entities.Query{"_id": "a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 15.0, doc["hits"])

	res, err = col.Update(ctx, entities.Query{"_id": "z"}, entities.UpdateDoc{"$set": map[string]any{"user": "5"}}, &entities.UpdateParams{Upsert: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.N)

	docs, err := col.FindEx(ctx, entities.Query{"user": "5"}, &entities.FindOptions{
		Sort: []entities.SortKey{{Field: "_id", Desc: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a"}, testutil.IDs(docs))

	removed, err := col.RemoveWhere(ctx, entities.Query{"user": "9"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed.N)

	require.NoError(t, col.Clear(ctx))
	n, err = col.Count(ctx, entities.Query{"user": "5"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCollection_UpdateRollsBack(t *testing.T) {
	s := openStore(t)
	col := objects(t, s)
	ctx := context.Background()

	_, err := col.Insert(ctx,
		entities.Document{"_id": "a", "n": 1},
		entities.Document{"_id": "b", "n": "text"},
	)
	require.NoError(t, err)

	_, err = col.Update(ctx, entities.Query{}, entities.UpdateDoc{"$inc": map[string]any{"n": 1}}, nil)
	require.Error(t, err)

	doc, err := col.By(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, doc["n"])
}

func TestCollection_BulkAndIndexes(t *testing.T) {
	s := openStore(t)
	col := objects(t, s)
	ctx := context.Background()

	res, err := col.Bulk(ctx, []entities.BulkOp{
		{Op: "insert", Data: entities.Document{"_id": "a", "v": 1}},
		{Op: "insert", Data: entities.Document{"_id": "b", "v": 1}},
		{Op: "update", ID: "a", Update: entities.UpdateDoc{"$set": map[string]any{"v": 2}}},
		{Op: "remove", ID: "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, entities.BulkResult{Inserted: 2, Updated: 1, Removed: 1, OK: 1}, res)

	_, err = col.Bulk(ctx, []entities.BulkOp{{Op: "insert", Data: entities.Document{"_id": "c"}}, {Op: "bogus"}})
	require.Error(t, err)
	c, err := col.By(ctx, "c")
	require.NoError(t, err)
	assert.Nil(t, c, "failed batch is rolled back")

	require.NoError(t, col.EnsureIndex(ctx, "room"))
	require.NoError(t, col.EnsureIndex(ctx, "room"))
	fields, err := s.Indexes(ctx, entities.CollectionRoomObjects)
	require.NoError(t, err)
	assert.Equal(t, []string{"room"}, fields)
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.db")
	s, err := sqlitestore.Open(path)
	require.NoError(t, err)
	c, _ := s.Collection(entities.CollectionUsers)
	_, err = c.Insert(context.Background(), entities.Document{"_id": "5", "username": "alice"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = sqlitestore.Open(path)
	require.NoError(t, err)
	defer s.Close()
	c, _ = s.Collection(entities.CollectionUsers)
	doc, err := c.By(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, "alice", doc["username"])
}
