package views

import (
	"context"
	"fmt"
	"sort"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
)

// restrictedDB is the Standard-tier database: only the scoped views exist.
type restrictedDB struct {
	views map[string]ports.Collection
}

// Database returns the Standard-tier database. rooms.objects is an alias
// of objects.
func (f *Factory) Database() ports.Database {
	objects := f.Objects()
	return &restrictedDB{views: map[string]ports.Collection{
		entities.CollectionRooms:        f.Rooms(),
		entities.CollectionObjectsAlias: objects,
		entities.CollectionRoomObjects:  objects,
		entities.CollectionCreepsAlias:  f.Creeps(),
	}}
}

func (d *restrictedDB) Collection(name string) (ports.Collection, bool) {
	c, ok := d.views[name]
	return c, ok
}

func (d *restrictedDB) Names() []string {
	names := make([]string, 0, len(d.views))
	for n := range d.views {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// guardedDB overlays one substituted collection on a shared database.
type guardedDB struct {
	base  ports.Database
	name  string
	local ports.Collection
}

// PrivacyGuarded returns a database that reads through to base except for
// users.code, which is replaced by the caller's code view. base is shared
// with other executions and is never modified.
func (f *Factory) PrivacyGuarded(base ports.Database) ports.Database {
	if _, ok := base.Collection(entities.CollectionUsersCode); !ok {
		return base
	}
	return &guardedDB{base: base, name: entities.CollectionUsersCode, local: f.Codes()}
}

func (d *guardedDB) Collection(name string) (ports.Collection, bool) {
	if name == d.name {
		return d.local, true
	}
	return d.base.Collection(name)
}

func (d *guardedDB) Names() []string {
	return d.base.Names()
}

// unavailable stands in for a collection the database lacks.
type unavailable struct {
	name string
}

func (u unavailable) err() error {
	return fmt.Errorf("collection %s is not available", u.name)
}

func (u unavailable) Find(context.Context, entities.Query, *entities.FindOptions) ([]entities.Document, error) {
	return nil, u.err()
}

func (u unavailable) FindOne(context.Context, entities.Query, *entities.FindOptions) (entities.Document, error) {
	return nil, u.err()
}

func (u unavailable) Count(context.Context, entities.Query) (int, error) {
	return 0, u.err()
}

func (u unavailable) FindEx(context.Context, entities.Query, *entities.FindOptions) ([]entities.Document, error) {
	return nil, u.err()
}

func (u unavailable) Update(context.Context, entities.Query, entities.UpdateDoc, *entities.UpdateParams) (entities.UpdateResult, error) {
	return entities.UpdateResult{}, u.err()
}

func (u unavailable) Insert(context.Context, ...entities.Document) ([]entities.Document, error) {
	return nil, u.err()
}

func (u unavailable) RemoveWhere(context.Context, entities.Query) (entities.RemoveResult, error) {
	return entities.RemoveResult{}, u.err()
}

func (u unavailable) Clear(context.Context) error {
	return u.err()
}

func (u unavailable) By(context.Context, any) (entities.Document, error) {
	return nil, u.err()
}

func (u unavailable) EnsureIndex(context.Context, string) error {
	return u.err()
}

func (u unavailable) Bulk(context.Context, []entities.BulkOp) (entities.BulkResult, error) {
	return entities.BulkResult{}, u.err()
}
