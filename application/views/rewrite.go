package views

import (
	"strings"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
	"github.com/reglet-dev/cligate/internal/docquery"
)

// conjoin returns a query matching documents that satisfy both q and pred.
// Disjoint top-level keys are merged so upserts still see plain equality
// fields; otherwise the two are combined with $and. Neither input is
// modified.
func conjoin(q, pred entities.Query) entities.Query {
	if len(q) == 0 {
		return pred
	}
	if len(pred) == 0 {
		return q
	}
	for k := range pred {
		if _, clash := q[k]; clash {
			return entities.Query{"$and": []any{map[string]any(q), map[string]any(pred)}}
		}
	}
	out := make(entities.Query, len(q)+len(pred))
	for k, v := range q {
		out[k] = v
	}
	for k, v := range pred {
		out[k] = v
	}
	return out
}

func touchesOwner(path string) bool {
	return path == entities.FieldUser || strings.HasPrefix(path, entities.FieldUser+".")
}

// changesOwner reports whether update would alter the ownership field of a
// document owned by userID. Setting the field to the caller's own identity
// is allowed; any other operator touching it is not.
func changesOwner(update entities.UpdateDoc, userID string, adapter ports.IDAdapter) bool {
	if !docquery.HasOperator(update) {
		return setsOtherOwner(update, userID, adapter)
	}
	for op, raw := range update {
		part, ok := raw.(map[string]any)
		if !ok {
			if touchesOwner(op) {
				return true
			}
			continue
		}
		switch op {
		case "$set", "$merge":
			if setsOtherOwner(part, userID, adapter) {
				return true
			}
		case "$rename":
			for from, to := range part {
				if touchesOwner(from) {
					return true
				}
				if s, ok := to.(string); ok && touchesOwner(s) {
					return true
				}
			}
		default:
			for path := range part {
				if touchesOwner(path) {
					return true
				}
			}
		}
	}
	return false
}

func setsOtherOwner(fields map[string]any, userID string, adapter ports.IDAdapter) bool {
	for path, v := range fields {
		if path == entities.FieldUser {
			if !adapter.SameOwner(v, userID) {
				return true
			}
			continue
		}
		if touchesOwner(path) {
			return true
		}
	}
	return false
}

// scalarID returns the identifier of a single-document query, rejecting
// operator documents and lists that could select more than one document.
func scalarID(query entities.Query) (any, bool) {
	id, ok := query[entities.FieldID]
	if !ok || id == nil {
		return nil, false
	}
	switch id.(type) {
	case string, entities.ObjectID, float64, int, int64:
		return id, true
	}
	return nil, false
}
