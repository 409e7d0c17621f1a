// Package config loads sqlint configuration.
//
// Values are layered, lowest precedence first: built-in defaults, the
// sqlint.yaml file, SQLINT_ environment variables, then command-line flags.
// The rules section is decoded separately so its order is preserved.
package config

import (
	"time"

	"github.com/leapstack-labs/sqlint/pkg/lint"
	"github.com/leapstack-labs/sqlint/pkg/sqlparser"
)

// Config file names, in lookup order.
const (
	ConfigFileName    = "sqlint.yaml"
	ConfigFileNameAlt = "sqlint.yml"
)

// Default configuration values.
const (
	DefaultFiles       = "**/*.sql"
	DefaultOutput      = "auto"
	DefaultMaxWarnings = -1
	DefaultHistoryPath = ".sqlint/history.db"
	DefaultServeAddr   = "127.0.0.1:7878"
)

// FileConfig is the user-facing configuration as loaded from all sources.
type FileConfig struct {
	Files       []string       `koanf:"files"`
	Parser      ParserConfig   `koanf:"parser"`
	Env         map[string]any `koanf:"env"`
	Plugins     []string       `koanf:"plugins"`
	Output      string         `koanf:"output"`
	MaxWarnings int            `koanf:"max_warnings"`
	History     string         `koanf:"history"`
	Verbose     bool           `koanf:"verbose"`
	Serve       ServeConfig    `koanf:"serve"`

	// Rules is the ordered rules section. It is nil when no source set it.
	Rules lint.RuleSettings `koanf:"-"`

	// Path is the config file that was read, if any.
	Path string `koanf:"-"`
	// Root is the directory file patterns are relative to: the config
	// file's directory, or the working directory without one.
	Root string `koanf:"-"`
}

// ParserConfig selects the SQL dialect.
type ParserConfig struct {
	Database string `koanf:"database"`
}

// ServeConfig configures the HTTP lint server.
type ServeConfig struct {
	Addr    string        `koanf:"addr"`
	Timeout time.Duration `koanf:"timeout"`
}

// Input converts the file config into a lint.ConfigInput. Dialect names
// are matched case-insensitively; unknown names are passed through for
// validation to reject.
func (c *FileConfig) Input() lint.ConfigInput {
	dialect := sqlparser.Dialect(c.Parser.Database)
	if d, err := sqlparser.ParseDialect(c.Parser.Database); err == nil {
		dialect = d
	}
	return lint.ConfigInput{
		Files:  c.Files,
		Rules:  lint.RuleMap(c.Rules...),
		Parser: lint.ParserOptions{Database: dialect},
		Env:    c.Env,
	}
}

// Resolve looks up the configured rules in reg and validates the result.
func (c *FileConfig) Resolve(reg *lint.Registry) (*lint.Config, error) {
	return lint.ResolveConfig(reg, c.Input())
}
