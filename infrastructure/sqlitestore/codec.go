package sqlitestore

import (
	"encoding/json"
	"fmt"

	"github.com/reglet-dev/cligate/domain/entities"
)

// docKey is the stored form of an identifier. ObjectIDs and their hex
// strings share a key, so an identifier is unique in either form.
func docKey(id any) string {
	switch v := id.(type) {
	case entities.ObjectID:
		return v.Hex()
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprint(int64(v))
		}
	}
	return fmt.Sprint(id)
}

func encode(doc entities.Document) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

func decode(body string) (entities.Document, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return revive(raw).(map[string]any), nil
}

// revive turns {"$oid": hex} objects back into ObjectIDs.
func revive(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 1 {
			if hex, ok := t["$oid"].(string); ok {
				if id, err := entities.ParseObjectID(hex); err == nil {
					return id
				}
			}
		}
		for k, val := range t {
			t[k] = revive(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = revive(val)
		}
		return t
	}
	return v
}
