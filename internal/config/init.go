package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrConfigExists is returned by WriteDefault when a config file is
// already present and force is not set.
var ErrConfigExists = errors.New("config file already exists")

// DefaultYAML is the config file written by `sqlint init`.
const DefaultYAML = `# sqlint configuration
files:
  - "**/*.sql"

# Rule settings: off | on | error | warning | info
# or a list: [severity, {option: value}]
rules:
  no-select-star: warning
  table-naming-convention: warning
  require-primary-key: off
  column-naming-convention: off

parser:
  database: mysql # mysql | postgres | sqlite | mssql

# Values exposed to rules and plugins.
env: {}

# Starlark rule plugins, as glob patterns.
plugins: []

output: auto # auto | stylish | compact | json | markdown
max_warnings: -1
history: "" # path to the lint history database; empty disables
`

// WriteDefault writes DefaultYAML to dir and returns the file path.
func WriteDefault(dir string, force bool) (string, error) {
	path := filepath.Join(dir, ConfigFileName)
	if !force {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return "", fmt.Errorf("%w: %s", ErrConfigExists, filepath.Join(dir, name))
			}
		}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(DefaultYAML), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
