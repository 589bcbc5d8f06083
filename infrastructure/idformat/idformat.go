// Package idformat adapts ownership identifiers to a backend's stored
// representation.
package idformat

import (
	"fmt"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
)

var (
	_ ports.IDAdapter = Plain{}
	_ ports.IDAdapter = ObjectID{}
)

// Plain is for backends that store ownership as strings.
type Plain struct{}

// OwnerMatch implements ports.IDAdapter.
func (Plain) OwnerMatch(userID string) entities.Query {
	return entities.Query{entities.FieldUser: userID}
}

// Alternates implements ports.IDAdapter.
func (Plain) Alternates(string) []any {
	return nil
}

// SameOwner implements ports.IDAdapter.
func (Plain) SameOwner(stored any, userID string) bool {
	return stored != nil && fmt.Sprint(stored) == userID
}

// ObjectID is for backends that may store ownership either as a string or
// as an ObjectID.
type ObjectID struct{}

// OwnerMatch implements ports.IDAdapter. An id in ObjectID hex form matches
// both representations.
func (ObjectID) OwnerMatch(userID string) entities.Query {
	oid, err := entities.ParseObjectID(userID)
	if err != nil {
		return entities.Query{entities.FieldUser: userID}
	}
	return entities.Query{"$or": []any{
		map[string]any{entities.FieldUser: userID},
		map[string]any{entities.FieldUser: oid},
	}}
}

// Alternates implements ports.IDAdapter.
func (ObjectID) Alternates(userID string) []any {
	oid, err := entities.ParseObjectID(userID)
	if err != nil {
		return nil
	}
	return []any{oid}
}

// SameOwner implements ports.IDAdapter.
func (ObjectID) SameOwner(stored any, userID string) bool {
	switch v := stored.(type) {
	case nil:
		return false
	case entities.ObjectID:
		return v.Hex() == userID
	}
	return fmt.Sprint(stored) == userID
}

// For returns the adapter named by kind ("plain" or "objectid").
func For(kind string) (ports.IDAdapter, error) {
	switch kind {
	case "", "plain":
		return Plain{}, nil
	case "objectid":
		return ObjectID{}, nil
	}
	return nil, fmt.Errorf("unknown id format %q", kind)
}
