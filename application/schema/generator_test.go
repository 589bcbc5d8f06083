package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema(t *testing.T) {
	type listener struct {
		Addr string `json:"addr"`
	}
	type config struct {
		Listener listener          `json:"listener"`
		Prefixes []string          `json:"prefixes"`
		Labels   map[string]string `json:"labels,omitempty"`
		Timeout  *int              `json:"timeout_ms,omitempty"`
	}

	raw, err := GenerateSchema(config{})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	properties, ok := decoded["properties"].(map[string]any)
	require.True(t, ok, "properties should be a map")
	assert.Len(t, properties, 4)
	assert.Contains(t, string(raw), "addr")

	required, ok := decoded["required"].([]any)
	require.True(t, ok, "required should be an array")
	assert.ElementsMatch(t, []any{"listener", "prefixes"}, required)
}

func TestSettingsSchema(t *testing.T) {
	raw, err := SettingsSchema()
	require.NoError(t, err)

	var decoded struct {
		Title      string                    `json:"title"`
		Required   []string                  `json:"required"`
		Properties map[string]map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, SettingsTitle, decoded.Title)
	assert.Empty(t, decoded.Required, "every settings key is optional")

	for _, key := range []string{
		"allow_all_users", "normal_user_ids", "normal_usernames",
		"super_admin_user_ids", "super_admin_usernames",
		"super_admin_users_code_self_only", "allowed_code_prefixes",
		"max_code_length", "max_output_lines", "eval_timeout_ms",
		"promise_timeout_ms", "worker_count", "queue_size",
	} {
		assert.Contains(t, decoded.Properties, key)
	}

	assert.Equal(t, 2000.0, decoded.Properties["max_code_length"]["default"])
	assert.Equal(t, 60.0, decoded.Properties["max_output_lines"]["default"])
	assert.Equal(t, true, decoded.Properties["super_admin_users_code_self_only"]["default"])
	assert.Equal(t, "array", decoded.Properties["normal_user_ids"]["type"])
	assert.NotContains(t, decoded.Properties["normal_user_ids"], "default")
}
