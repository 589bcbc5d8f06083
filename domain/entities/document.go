package entities

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"sync/atomic"
	"time"
)

// Well-known document fields.
const (
	FieldID   = "_id"
	FieldUser = "user"
	FieldRoom = "room"
	FieldType = "type"
)

// Well-known collection names.
const (
	CollectionRooms        = "rooms"
	CollectionRoomObjects  = "rooms.objects"
	CollectionUsers        = "users"
	CollectionUsersCode    = "users.code"
	CollectionObjectsAlias = "objects"
	CollectionCreepsAlias  = "creeps"
)

// Object types referenced by the ownership model and the gateway helpers.
const (
	TypeController       = "controller"
	TypeCreep            = "creep"
	TypeConstructionSite = "constructionSite"
)

// Document is a schemaless record. Values are nil, bool, float64, int,
// int64, string, ObjectID, []any or map[string]any.
type Document = map[string]any

// Query is a Mongo-style predicate document.
type Query = map[string]any

// UpdateDoc is a Mongo-style update document ($set, $unset, $inc, $merge,
// $push, $pull, or a plain field map treated as $set).
type UpdateDoc = map[string]any

// SortKey orders results by one field.
type SortKey struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

// FindOptions controls ordering and paging of find results.
type FindOptions struct {
	Sort   []SortKey `json:"sort,omitempty"`
	Offset int       `json:"offset,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

// SortFromMap converts a {field: 1|-1} map into sort keys ordered by field
// name, since map iteration order is unspecified.
func SortFromMap(m map[string]any) []SortKey {
	fields := make([]string, 0, len(m))
	for k := range m {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	keys := make([]SortKey, 0, len(fields))
	for _, f := range fields {
		desc := false
		switch v := m[f].(type) {
		case float64:
			desc = v < 0
		case int:
			desc = v < 0
		case int64:
			desc = v < 0
		case string:
			desc = v == "desc" || v == "-1"
		}
		keys = append(keys, SortKey{Field: f, Desc: desc})
	}
	return keys
}

// UpdateParams controls update behavior. Updates always apply to every
// matching document; Upsert inserts one seeded from the query when nothing
// matches.
type UpdateParams struct {
	Upsert bool `json:"upsert,omitempty"`
}

// UpdateResult reports the effect of an update.
type UpdateResult struct {
	N         int `json:"n"`
	NModified int `json:"nModified"`
	OK        int `json:"ok"`
}

// RemoveResult reports the effect of a removal.
type RemoveResult struct {
	N  int `json:"n"`
	OK int `json:"ok"`
}

// BulkOp is one operation of a bulk request.
type BulkOp struct {
	Op     string    `json:"op"` // "insert", "update", "remove"
	ID     any       `json:"id,omitempty"`
	Update UpdateDoc `json:"update,omitempty"`
	Data   Document  `json:"data,omitempty"`
}

// BulkResult reports the effect of a bulk request.
type BulkResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Removed  int `json:"removed"`
	OK       int `json:"ok"`
}

// ObjectID is a 12 byte backend identifier. Some backends store ownership
// references as ObjectIDs rather than strings.
type ObjectID [12]byte

var objectIDPattern = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)

var objectIDCounter atomic.Uint32

// LooksLikeObjectID reports whether s is the hex form of an ObjectID.
func LooksLikeObjectID(s string) bool {
	return objectIDPattern.MatchString(s)
}

// ParseObjectID parses the 24 character hex form.
func ParseObjectID(s string) (ObjectID, error) {
	var id ObjectID
	if !LooksLikeObjectID(s) {
		return id, fmt.Errorf("invalid object id %q", s)
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("invalid object id %q: %w", s, err)
	}
	return id, nil
}

// NewObjectID returns a time-ordered identifier.
func NewObjectID() ObjectID {
	var id ObjectID
	binary.BigEndian.PutUint32(id[0:4], uint32(time.Now().Unix()))
	_, _ = rand.Read(id[4:9])
	c := objectIDCounter.Add(1)
	id[9] = byte(c >> 16)
	id[10] = byte(c >> 8)
	id[11] = byte(c)
	return id
}

// Hex returns the 24 character hex form.
func (id ObjectID) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id ObjectID) String() string {
	return id.Hex()
}

// MarshalJSON encodes the id in extended JSON form {"$oid": "..."}.
func (id ObjectID) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"$oid": id.Hex()})
}

// UnmarshalJSON accepts the extended JSON form or a bare hex string.
func (id *ObjectID) UnmarshalJSON(data []byte) error {
	var wrapped map[string]string
	if err := json.Unmarshal(data, &wrapped); err == nil {
		parsed, err := ParseObjectID(wrapped["$oid"])
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseObjectID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// CloneDocument deep-copies a document so callers never share nested maps
// or slices with a store.
func CloneDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	return CloneValue(doc).(Document)
}

// CloneValue deep-copies maps and slices; scalars are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = CloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = CloneValue(val)
		}
		return out
	case []Document:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = CloneValue(val)
		}
		return out
	default:
		return v
	}
}
