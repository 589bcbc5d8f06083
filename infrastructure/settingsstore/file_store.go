// Package settingsstore persists operator settings as a YAML file, with
// CLIGATE_* environment variables taking precedence over the file.
package settingsstore

import (
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/errors"
	"github.com/reglet-dev/cligate/domain/ports"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CLIGATE_"

// validate is shared; building a validator caches struct metadata.
var validate = validator.New()

// fileStoreConfig holds configuration for the FileStore.
type fileStoreConfig struct {
	path        string            // Path to the settings file
	dirPerm     os.FileMode       // Permission for created directories
	filePerm    os.FileMode       // Permission for the settings file
	environment map[string]string // Overrides os.Environ when set
}

func defaultFileStoreConfig() fileStoreConfig {
	return fileStoreConfig{
		path:     filepath.Join(os.Getenv("HOME"), ".cligate", "settings.yaml"),
		dirPerm:  0o755,
		filePerm: 0o600, // allow lists are operator-only
	}
}

// FileStoreOption configures a FileStore instance.
type FileStoreOption func(*fileStoreConfig)

// WithPath sets the path to the settings file.
func WithPath(path string) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.path = path
	}
}

// WithFilePermissions sets the file permissions for the settings file.
// Default is 0o600 (user-only).
func WithFilePermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.filePerm = perm
	}
}

// WithDirPermissions sets the permissions of created directories.
// Default is 0o755.
func WithDirPermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.dirPerm = perm
	}
}

// WithEnvironment reads overrides from vars instead of the process
// environment. Keys include EnvPrefix.
func WithEnvironment(vars map[string]string) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.environment = vars
	}
}

// FileStore provides file-based persistence for settings.
type FileStore struct {
	config fileStoreConfig
}

var _ ports.SettingsStore = (*FileStore)(nil)

// NewFileStore creates a new FileStore with the given options.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	cfg := defaultFileStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &FileStore{config: cfg}
}

// Load reads the settings file over the defaults, applies environment
// overrides and validates the result. A missing file yields the defaults.
func (s *FileStore) Load() (entities.Settings, error) {
	settings := entities.DefaultSettings()

	data, err := os.ReadFile(s.config.path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return entities.Settings{}, fmt.Errorf("failed to read settings: %w", err)
	default:
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return entities.Settings{}, &errors.ConfigError{Err: fmt.Errorf("parse %s: %w", s.config.path, err)}
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if s.config.environment != nil {
		opts.Environment = s.config.environment
	}
	if err := env.ParseWithOptions(&settings, opts); err != nil {
		return entities.Settings{}, &errors.ConfigError{Err: fmt.Errorf("parse env: %w", err)}
	}

	if err := Validate(settings); err != nil {
		return entities.Settings{}, err
	}
	return settings, nil
}

// Save validates and persists settings.
func (s *FileStore) Save(settings entities.Settings) error {
	if err := Validate(settings); err != nil {
		return err
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	dir := filepath.Dir(s.config.path)
	if err := os.MkdirAll(dir, s.config.dirPerm); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	if err := os.WriteFile(s.config.path, data, s.config.filePerm); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// ConfigPath returns the path to the backing store.
func (s *FileStore) ConfigPath() string {
	return s.config.path
}

// Validate checks the bounds of settings. The first violated field is
// reported as a *errors.ConfigError.
func Validate(settings entities.Settings) error {
	err := validate.Struct(settings)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if stdErrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &errors.ConfigError{
			Field: fe.Field(),
			Err:   fmt.Errorf("must satisfy %s=%s, got %v", fe.Tag(), fe.Param(), fe.Value()),
		}
	}
	return &errors.ConfigError{Err: err}
}
