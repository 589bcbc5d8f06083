// Package userdir reads caller identities from the users collection.
package userdir

import (
	"context"
	"fmt"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
)

// NameField holds a user's display name.
const NameField = "username"

// Directory is a ports.IdentityStore over a users collection.
type Directory struct {
	users ports.Collection
}

var _ ports.IdentityStore = (*Directory)(nil)

// New returns a Directory reading from users.
func New(users ports.Collection) *Directory {
	return &Directory{users: users}
}

// FromDatabase returns a Directory over db's users collection.
func FromDatabase(db ports.Database) (*Directory, error) {
	users, ok := db.Collection(entities.CollectionUsers)
	if !ok {
		return nil, fmt.Errorf("database has no %s collection", entities.CollectionUsers)
	}
	return New(users), nil
}

// FindUserByID implements ports.IdentityStore.
func (d *Directory) FindUserByID(ctx context.Context, id string) (*entities.Identity, error) {
	doc, err := d.users.FindOne(ctx, entities.Query{entities.FieldID: id}, nil)
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	if doc == nil {
		return nil, nil
	}
	ident := &entities.Identity{ID: id}
	if name, ok := entities.NormalizeToken(doc[NameField]); ok {
		ident.Name = name
	}
	return ident, nil
}
