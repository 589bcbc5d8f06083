package entities

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectID_ParseAndHex(t *testing.T) {
	id, err := ParseObjectID("5f1a2b3c4d5e6f7a8b9c0d1e")
	require.NoError(t, err)
	assert.Equal(t, "5f1a2b3c4d5e6f7a8b9c0d1e", id.Hex())

	_, err = ParseObjectID("not-an-id")
	assert.Error(t, err)
}

func TestObjectID_JSON(t *testing.T) {
	id := NewObjectID()
	data, err := json.Marshal(Document{"user": id})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"$oid"`)

	var back struct {
		User ObjectID `json:"user"`
	}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, id, back.User)
}

func TestNewObjectID_Unique(t *testing.T) {
	a, b := NewObjectID(), NewObjectID()
	assert.NotEqual(t, a, b)
	assert.True(t, LooksLikeObjectID(a.Hex()))
}

func TestCloneDocument_Deep(t *testing.T) {
	orig := Document{"store": map[string]any{"energy": 1.0}, "tags": []any{"a"}}
	clone := CloneDocument(orig)
	clone["store"].(map[string]any)["energy"] = 2.0
	clone["tags"].([]any)[0] = "b"

	assert.Equal(t, 1.0, orig["store"].(map[string]any)["energy"])
	assert.Equal(t, "a", orig["tags"].([]any)[0])
}

func TestSortFromMap(t *testing.T) {
	keys := SortFromMap(map[string]any{"b": -1.0, "a": 1.0})
	assert.Equal(t, []SortKey{{Field: "a"}, {Field: "b", Desc: true}}, keys)
}

func TestSettings_Defaults(t *testing.T) {
	s := NewSettings(WithEvalTimeout(50*time.Millisecond), WithMaxOutputLines(3))
	assert.Equal(t, 50*time.Millisecond, s.EvalTimeout())
	assert.Equal(t, 5*time.Second, s.PromiseTimeout())
	assert.Equal(t, 3, s.MaxOutputLines)
	assert.Equal(t, 2000, s.MaxCodeLength)
	assert.True(t, s.SuperAdminUsersCodeSelfOnly)
	assert.False(t, s.AllowAllUsers)
}

func TestExecutionResult_Texts(t *testing.T) {
	r := ExecutionResult{Lines: []OutputLine{{Text: "log"}, {Text: "res", Result: true}}}
	assert.Equal(t, []string{"res"}, r.ResultTexts())
	assert.Equal(t, []string{"log"}, r.LogTexts())
}
