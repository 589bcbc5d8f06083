// Package schema generates the JSON schema of the settings file.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/reglet-dev/cligate/domain/entities"
)

// SettingsTitle names the settings schema.
const SettingsTitle = "cligate settings"

// GenerateSchema creates a JSON schema from a Go struct.
// It uses the `invopop/jsonschema` library to reflect on the struct
// and generate a standard JSON Schema (Draft 2020-12).
func GenerateSchema(v interface{}) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true, // Expand struct definitions inline
	}
	return marshal(reflector.Reflect(v))
}

// SettingsSchema describes the settings file. Every key is optional and
// carries the value DefaultSettings gives it.
func SettingsSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}
	s := reflector.Reflect(entities.Settings{})
	s.Title = SettingsTitle
	s.Description = "Allow-list, limits and queue sizing of the command gateway."

	if err := applyDefaults(s, entities.DefaultSettings()); err != nil {
		return nil, err
	}
	return marshal(s)
}

func applyDefaults(s *jsonschema.Schema, defaults any) error {
	raw, err := json.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("failed to marshal defaults: %w", err)
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("failed to decode defaults: %w", err)
	}
	if s.Properties == nil {
		return nil
	}
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		if v, ok := values[pair.Key]; ok {
			pair.Value.Default = v
		}
	}
	return nil
}

func marshal(s *jsonschema.Schema) ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonBytes, nil
}
