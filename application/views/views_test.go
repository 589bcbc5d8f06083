package views_test

import (
	"context"
	"testing"

	"github.com/reglet-dev/cligate/application/views"
	"github.com/reglet-dev/cligate/domain/entities"
	domainerrors "github.com/reglet-dev/cligate/domain/errors"
	"github.com/reglet-dev/cligate/domain/ports"
	"github.com/reglet-dev/cligate/infrastructure/idformat"
	"github.com/reglet-dev/cligate/infrastructure/memstore"
	"github.com/reglet-dev/cligate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorld(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()

	_, err := s.Raw(entities.CollectionRooms).Insert(ctx,
		entities.Document{"_id": "W1N1", "status": "normal"},
		entities.Document{"_id": "W2N2", "status": "normal"},
		entities.Document{"_id": "W3N3", "status": "out of borders"},
	)
	require.NoError(t, err)

	_, err = s.Raw(entities.CollectionRoomObjects).Insert(ctx,
		entities.Document{"_id": "c1", "type": "controller", "room": "W1N1", "user": "5", "level": 2},
		entities.Document{"_id": "c2", "type": "controller", "room": "W2N2", "user": "9", "level": 3},
		entities.Document{"_id": "k1", "type": "creep", "room": "W1N1", "user": "5"},
		entities.Document{"_id": "k2", "type": "creep", "room": "W2N2", "user": "9"},
		entities.Document{"_id": "s1", "type": "spawn", "room": "W1N1", "user": "5"},
	)
	require.NoError(t, err)

	_, err = s.Raw(entities.CollectionUsersCode).Insert(ctx,
		entities.Document{"_id": "code5", "user": "5", "branch": "default"},
		entities.Document{"_id": "code9", "user": "9", "branch": "default"},
	)
	require.NoError(t, err)
	return s
}

func requirePermission(t *testing.T, err error, message string) {
	t.Helper()
	var perm *domainerrors.PermissionError
	require.ErrorAs(t, err, &perm)
	assert.Equal(t, message, perm.Error())
}

func TestRooms_ScopedToControllerOwnership(t *testing.T) {
	s := newWorld(t)
	f := views.NewFactory(s, idformat.Plain{}, "5")
	rooms := f.Rooms()
	ctx := context.Background()

	docs, err := rooms.Find(ctx, entities.Query{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"W1N1"}, testutil.IDs(docs))

	n, err := rooms.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	other, err := rooms.FindOne(ctx, entities.Query{"_id": "W2N2"}, nil)
	require.NoError(t, err)
	assert.Nil(t, other)

	docs, err = rooms.FindEx(ctx, entities.Query{"_id": map[string]any{"$in": []any{"W1N1", "W2N2"}}}, &entities.FindOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"W1N1"}, testutil.IDs(docs))
}

func TestRooms_UpdateScoped(t *testing.T) {
	s := newWorld(t)
	rooms := views.NewFactory(s, idformat.Plain{}, "5").Rooms()
	ctx := context.Background()

	res, err := rooms.Update(ctx, entities.Query{}, entities.UpdateDoc{"$set": map[string]any{"status": "closed"}}, &entities.UpdateParams{Upsert: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.N)

	n, err := s.Raw(entities.CollectionRooms).Count(ctx, entities.Query{"status": "closed"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = rooms.Update(ctx, entities.Query{}, entities.UpdateDoc{"$set": map[string]any{"user": "9"}}, nil)
	requirePermission(t, err, "rooms.update denied: cannot change user field")
}

func TestRooms_DisabledOperations(t *testing.T) {
	rooms := views.NewFactory(newWorld(t), idformat.Plain{}, "5").Rooms()
	ctx := context.Background()

	_, err := rooms.Insert(ctx, entities.Document{"_id": "W9N9"})
	requirePermission(t, err, "rooms.insert is not allowed for normal users")
	_, err = rooms.RemoveWhere(ctx, nil)
	requirePermission(t, err, "rooms.removeWhere is not allowed for normal users")
	requirePermission(t, rooms.Clear(ctx), "rooms.clear is not allowed for normal users")
	_, err = rooms.By(ctx, "W1N1")
	requirePermission(t, err, "rooms.by is not allowed for normal users")
	requirePermission(t, rooms.EnsureIndex(ctx, "status"), "rooms.ensureIndex is not allowed for normal users")
	_, err = rooms.Bulk(ctx, nil)
	requirePermission(t, err, "rooms.bulk is not allowed for normal users")
}

func countingWorld(t *testing.T) (*memstore.Store, *testutil.CountingCollection, testutil.MapDatabase) {
	t.Helper()
	s := newWorld(t)
	counting := &testutil.CountingCollection{Collection: s.Raw(entities.CollectionRoomObjects)}
	db := testutil.MapDatabase{
		entities.CollectionRooms:       s.Raw(entities.CollectionRooms),
		entities.CollectionRoomObjects: counting,
	}
	return s, counting, db
}

func TestRooms_OwnedRoomsMemoizedPerFactory(t *testing.T) {
	_, counting, db := countingWorld(t)
	ctx := context.Background()

	f := views.NewFactory(db, idformat.Plain{}, "5")
	for i := 0; i < 3; i++ {
		_, err := f.Rooms().Find(ctx, nil, nil)
		require.NoError(t, err)
	}
	_, err := f.Rooms().Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, counting.Finds())

	_, err = views.NewFactory(db, idformat.Plain{}, "5").Rooms().Find(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, counting.Finds(), "a new execution takes a new snapshot")
}

func TestRooms_LookupFailureIsNotZeroRooms(t *testing.T) {
	_, counting, db := countingWorld(t)
	ctx := context.Background()
	f := views.NewFactory(db, idformat.Plain{}, "5")

	counting.FindErr = testutil.ErrInjected
	_, err := f.Rooms().Find(ctx, nil, nil)
	require.ErrorIs(t, err, testutil.ErrInjected)

	counting.FindErr = nil
	docs, err := f.Rooms().Find(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"W1N1"}, testutil.IDs(docs), "failure must not be memoized")
}

func TestRooms_AlternateOwnerRepresentation(t *testing.T) {
	s := newWorld(t)
	ctx := context.Background()
	owner := entities.NewObjectID()
	_, err := s.Raw(entities.CollectionRoomObjects).Insert(ctx,
		entities.Document{"_id": "c3", "type": "controller", "room": "W3N3", "user": owner})
	require.NoError(t, err)

	counting := &testutil.CountingCollection{Collection: s.Raw(entities.CollectionRoomObjects)}
	db := testutil.MapDatabase{
		entities.CollectionRooms:       s.Raw(entities.CollectionRooms),
		entities.CollectionRoomObjects: counting,
	}

	docs, err := views.NewFactory(db, idformat.ObjectID{}, owner.Hex()).Rooms().Find(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"W3N3"}, testutil.IDs(docs))
	assert.Equal(t, 2, counting.Finds(), "retried with the ObjectID form after zero rows")
}

func TestRooms_NoControllersMeansNoRooms(t *testing.T) {
	docs, err := views.NewFactory(newWorld(t), idformat.Plain{}, "42").Rooms().Find(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestObjects_ReadsScoped(t *testing.T) {
	f := views.NewFactory(newWorld(t), idformat.Plain{}, "5")
	ctx := context.Background()

	docs, err := f.Objects().Find(ctx, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "k1", "s1"}, testutil.IDs(docs))
	testutil.AssertAllOwnedBy(t, "5", docs)

	docs, err = f.Creeps().Find(ctx, entities.Query{"room": "W1N1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1"}, testutil.IDs(docs))

	n, err := f.Objects().Count(ctx, entities.Query{"user": "9"})
	require.NoError(t, err)
	assert.Zero(t, n, "a query naming another owner still sees nothing")

	n, err = f.Objects().Count(ctx, entities.Query{"$or": []any{map[string]any{"user": "9"}, map[string]any{"type": "creep"}}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	one, err := f.Creeps().FindOne(ctx, entities.Query{"_id": "k2"}, nil)
	require.NoError(t, err)
	assert.Nil(t, one)
}

func TestObjects_Insert(t *testing.T) {
	s := newWorld(t)
	f := views.NewFactory(s, idformat.Plain{}, "5")
	ctx := context.Background()

	out, err := f.Objects().Insert(ctx, entities.Document{"_id": "n1", "type": "flag"}, entities.Document{"_id": "n2", "user": "5"})
	require.NoError(t, err)
	testutil.AssertAllOwnedBy(t, "5", out)

	_, err = f.Creeps().Insert(ctx, entities.Document{"_id": "n3"}, entities.Document{"_id": "n4", "user": "9"})
	requirePermission(t, err, "creeps.insert denied: user mismatch")

	n, err := s.Raw(entities.CollectionRoomObjects).Count(ctx, entities.Query{"_id": map[string]any{"$in": []any{"n3", "n4"}}})
	require.NoError(t, err)
	assert.Zero(t, n, "a rejected batch inserts nothing")
}

func TestObjects_UpdateOwnershipChangeRejected(t *testing.T) {
	s := newWorld(t)
	objects := views.NewFactory(s, idformat.Plain{}, "5").Objects()
	ctx := context.Background()

	tests := []struct {
		name   string
		update entities.UpdateDoc
	}{
		{"$set other owner", entities.UpdateDoc{"$set": map[string]any{"user": "9"}}},
		{"plain other owner", entities.UpdateDoc{"user": "9"}},
		{"$merge other owner", entities.UpdateDoc{"$merge": map[string]any{"user": "9"}}},
		{"$unset", entities.UpdateDoc{"$unset": map[string]any{"user": true}}},
		{"$inc", entities.UpdateDoc{"$inc": map[string]any{"user": 4}}},
		{"$rename from", entities.UpdateDoc{"$rename": map[string]any{"user": "owner"}}},
		{"$rename to", entities.UpdateDoc{"$rename": map[string]any{"owner": "user"}}},
		{"nested path", entities.UpdateDoc{"$set": map[string]any{"user.id": "9"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := objects.Update(ctx, entities.Query{"_id": "k1"}, tt.update, nil)
			requirePermission(t, err, "objects.update denied: cannot change user field")
		})
	}

	doc, err := s.Raw(entities.CollectionRoomObjects).By(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "5", doc["user"])
}

func TestObjects_UpdateByID(t *testing.T) {
	s := newWorld(t)
	f := views.NewFactory(s, idformat.Plain{}, "5")
	raw := s.Raw(entities.CollectionRoomObjects)
	ctx := context.Background()

	res, err := f.Objects().Update(ctx, entities.Query{"_id": "c1"}, entities.UpdateDoc{"$set": map[string]any{"level": 8, "user": "5"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, entities.UpdateResult{N: 1, NModified: 1, OK: 1}, res)

	res, err = f.Objects().Update(ctx, entities.Query{"_id": "ghost"}, entities.UpdateDoc{"$set": map[string]any{"level": 8}}, &entities.UpdateParams{Upsert: true})
	require.NoError(t, err)
	assert.Equal(t, entities.UpdateResult{N: 0, NModified: 0, OK: 1}, res)
	ghost, err := raw.By(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, ghost)

	_, err = f.Objects().Update(ctx, entities.Query{"type": "creep"}, entities.UpdateDoc{"$set": map[string]any{"hits": 1}}, nil)
	requirePermission(t, err, "objects.update denied: normal users must update by _id")

	_, err = f.Objects().Update(ctx, entities.Query{"_id": map[string]any{"$in": []any{"k1", "k2"}}}, entities.UpdateDoc{"$set": map[string]any{"hits": 1}}, nil)
	requirePermission(t, err, "objects.update denied: normal users must update by _id")

	_, err = f.Objects().Update(ctx, entities.Query{"_id": "k2"}, entities.UpdateDoc{"$set": map[string]any{"hits": 1}}, nil)
	requirePermission(t, err, "objects.update denied: not owner")
	k2, err := raw.By(ctx, "k2")
	require.NoError(t, err)
	assert.NotContains(t, k2, "hits")

	_, err = f.Creeps().Update(ctx, entities.Query{"_id": "s1"}, entities.UpdateDoc{"$set": map[string]any{"hits": 1}}, nil)
	requirePermission(t, err, "creeps.update denied: wrong type")
}

func TestObjects_RemoveWhereScoped(t *testing.T) {
	s := newWorld(t)
	f := views.NewFactory(s, idformat.Plain{}, "5")
	ctx := context.Background()

	res, err := f.Creeps().RemoveWhere(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.N)

	res, err = f.Objects().RemoveWhere(ctx, entities.Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.N)

	left, err := s.Raw(entities.CollectionRoomObjects).Find(ctx, nil, nil)
	require.NoError(t, err)
	testutil.AssertAllOwnedBy(t, "9", left)
	assert.Len(t, left, 2)
}

func TestObjects_DisabledOperations(t *testing.T) {
	f := views.NewFactory(newWorld(t), idformat.Plain{}, "5")
	ctx := context.Background()

	for _, view := range []struct {
		name string
		col  ports.Collection
	}{{"objects", f.Objects()}, {"creeps", f.Creeps()}} {
		requirePermission(t, view.col.Clear(ctx), view.name+".clear is not allowed for normal users")
		_, err := view.col.By(ctx, "k1")
		requirePermission(t, err, view.name+".by is not allowed for normal users")
		requirePermission(t, view.col.EnsureIndex(ctx, "x"), view.name+".ensureIndex is not allowed for normal users")
		_, err = view.col.Bulk(ctx, []entities.BulkOp{{Op: "remove", ID: "k2"}})
		requirePermission(t, err, view.name+".bulk is not allowed for normal users")
	}
}

func TestObjects_ObjectIDOwners(t *testing.T) {
	s := newWorld(t)
	ctx := context.Background()
	owner := entities.NewObjectID()
	_, err := s.Raw(entities.CollectionRoomObjects).Insert(ctx,
		entities.Document{"_id": "o1", "type": "creep", "user": owner},
		entities.Document{"_id": "o2", "type": "creep", "user": owner.Hex()},
	)
	require.NoError(t, err)

	f := views.NewFactory(s, idformat.ObjectID{}, owner.Hex())
	docs, err := f.Creeps().Find(ctx, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"o1", "o2"}, testutil.IDs(docs))

	res, err := f.Creeps().Update(ctx, entities.Query{"_id": "o1"}, entities.UpdateDoc{"$set": map[string]any{"hits": 7}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NModified)

	_, err = f.Creeps().Update(ctx, entities.Query{"_id": "o1"}, entities.UpdateDoc{"$set": map[string]any{"user": owner}}, nil)
	require.NoError(t, err, "setting the owner to itself in ObjectID form is not a change")
}

func TestCodes_ScopedToCaller(t *testing.T) {
	s := newWorld(t)
	codes := views.NewFactory(s, idformat.Plain{}, "5").Codes()
	ctx := context.Background()

	docs, err := codes.Find(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"code5"}, testutil.IDs(docs))

	_, err = codes.Insert(ctx, entities.Document{"user": "9"})
	requirePermission(t, err, "users.code.insert denied: cannot set user != self")

	_, err = codes.Update(ctx, entities.Query{"branch": "default"}, entities.UpdateDoc{"$set": map[string]any{"user": "9"}}, nil)
	requirePermission(t, err, "users.code.update denied: cannot change user field")

	res, err := codes.Update(ctx, entities.Query{"branch": "default"}, entities.UpdateDoc{"$set": map[string]any{"modules": map[string]any{"main": ""}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.N, "only the caller's branch is updated")

	res, err = codes.Update(ctx, entities.Query{"branch": "sim"}, entities.UpdateDoc{"$set": map[string]any{"modules": map[string]any{}}}, &entities.UpdateParams{Upsert: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.N)
	created, err := s.Raw(entities.CollectionUsersCode).FindOne(ctx, entities.Query{"branch": "sim"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "5", created["user"], "upserted code is owned by the caller")

	removed, err := codes.RemoveWhere(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, removed.N)
	n, err := s.Raw(entities.CollectionUsersCode).Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	requirePermission(t, codes.Clear(ctx), "users.code.clear is not allowed")
	_, err = codes.By(ctx, "code9")
	requirePermission(t, err, "users.code.by is not allowed")
}

func TestDatabase_StandardTier(t *testing.T) {
	f := views.NewFactory(newWorld(t), idformat.Plain{}, "5")
	db := f.Database()

	assert.Equal(t, []string{"creeps", "objects", "rooms", "rooms.objects"}, db.Names())
	_, ok := db.Collection(entities.CollectionUsers)
	assert.False(t, ok)
	_, ok = db.Collection(entities.CollectionUsersCode)
	assert.False(t, ok)

	objects, _ := db.Collection("objects")
	alias, _ := db.Collection("rooms.objects")
	assert.Same(t, objects, alias)
}

func TestPrivacyGuarded_DoesNotMutateBase(t *testing.T) {
	s := newWorld(t)
	ctx := context.Background()

	guarded := views.NewFactory(s, idformat.Plain{}, "1").PrivacyGuarded(s)
	code, ok := guarded.Collection(entities.CollectionUsersCode)
	require.True(t, ok)
	docs, err := code.Find(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)

	rooms, _ := guarded.Collection(entities.CollectionRooms)
	assert.Same(t, s.Raw(entities.CollectionRooms), rooms)
	assert.Equal(t, s.Names(), guarded.Names())

	// Another execution on the shared handle still sees every owner's code.
	base, _ := s.Collection(entities.CollectionUsersCode)
	all, err := base.Find(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	other := views.NewFactory(s, idformat.Plain{}, "9").PrivacyGuarded(s)
	code, _ = other.Collection(entities.CollectionUsersCode)
	docs, err = code.Find(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"code9"}, testutil.IDs(docs))
}

func TestFactory_ReportsDenials(t *testing.T) {
	h := &testutil.RecordingDenialHandler{}
	f := views.NewFactory(newWorld(t), idformat.Plain{}, "5", views.WithDenialHandler(h))

	_, err := f.Rooms().Insert(context.Background(), entities.Document{})
	require.Error(t, err)
	require.Len(t, h.Denials(), 1)
	assert.Equal(t, testutil.Denial{Kind: "permission", Subject: "5", Reason: "rooms.insert is not allowed for normal users"}, h.Denials()[0])
}

func TestFactory_MissingCollection(t *testing.T) {
	f := views.NewFactory(memstore.New(memstore.WithCollections()), idformat.Plain{}, "5")
	_, err := f.Objects().Find(context.Background(), nil, nil)
	assert.Error(t, err)
	_, err = f.Rooms().Count(context.Background(), nil)
	assert.Error(t, err)
}
