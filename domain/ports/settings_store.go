package ports

import "github.com/reglet-dev/cligate/domain/entities"

// SettingsStore provides persistence for operator settings.
type SettingsStore interface {
	// Load retrieves the settings. Returns defaults (not error) if none exist.
	Load() (entities.Settings, error)

	// Save persists the settings.
	Save(settings entities.Settings) error

	// ConfigPath returns the path to the backing store (for user messaging).
	ConfigPath() string
}
