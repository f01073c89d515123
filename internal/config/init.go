package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
)

const initHeader = `# mdconvert configuration.
# Precedence: defaults < this file < MDCONVERT_* environment variables < flags.
# ${VAR} references are expanded from the environment.
`

// Init creates a new configuration file with the default settings.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}

	example := Defaults()
	example.Profile = DefaultProfile
	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.InternalError("failed to marshal config").WithCause(err).Build()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.IOError("failed to create config directory").
				WithContext("path", path).
				WithCause(err).
				Build()
		}
	}
	if err := os.WriteFile(path, append([]byte(initHeader), data...), 0o600); err != nil {
		return errors.IOError("failed to write config file").
			WithContext("path", path).
			WithCause(err).
			Build()
	}
	return nil
}
