package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlint/internal/cli/output"
	"github.com/leapstack-labs/sqlint/internal/config"
	"github.com/leapstack-labs/sqlint/internal/plugin"
	"github.com/leapstack-labs/sqlint/internal/state"
	"github.com/leapstack-labs/sqlint/pkg/lint"
	"github.com/leapstack-labs/sqlint/pkg/lint/rules"
)

// ErrLintFailed is returned when a lint run found errors or too many
// warnings. The CLI maps it to exit code 1.
var ErrLintFailed = errors.New("lint failed")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.FileConfig
	Logger   *slog.Logger
	Registry *lint.Registry
	Renderer *output.Renderer
}

// NewCommandContext loads the configuration for cmd, registers built-in
// and plugin rules in a fresh registry and freezes it.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := config.GetLogger(cmd.Context())

	reg := lint.NewRegistry()
	if err := rules.RegisterRecommended(reg); err != nil {
		return nil, err
	}
	loaded, err := plugin.NewLoader(plugin.WithLogger(logger)).Register(reg, cfg.Root, cfg.Plugins)
	if err != nil {
		return nil, err
	}
	if len(loaded) > 0 {
		logger.Debug("loaded plugin rules", "count", len(loaded))
	}
	reg.Freeze()

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Registry: reg,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}, nil
}

// NewCommandContextWithoutRules creates a CommandContext without loading
// plugins. Useful for commands that never lint.
func NewCommandContextWithoutRules(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}, nil
}

// Resolve returns the lint configuration for the loaded rules.
func (c *CommandContext) Resolve() (*lint.Config, error) {
	return c.Cfg.Resolve(c.Registry)
}

// Linter creates a linter logging through the command logger.
func (c *CommandContext) Linter(opts ...lint.Option) *lint.Linter {
	return lint.NewLinter(append([]lint.Option{lint.WithLogger(c.Logger)}, opts...)...)
}

// HistoryPath returns the configured history database, or the default
// location under the project root when fallback is set.
func (c *CommandContext) HistoryPath(fallback bool) string {
	path := c.Cfg.History
	if path == "" {
		if !fallback {
			return ""
		}
		path = config.DefaultHistoryPath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.Cfg.Root, path)
	}
	return path
}

// OpenHistory opens and migrates the history store at path. The caller
// closes it.
func (c *CommandContext) OpenHistory(path string) (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate history: %w", err)
	}
	return store, nil
}

// loadConfig loads the configuration with cmd's flags overlaid. The
// --config flag, when set, names the file explicitly.
func loadConfig(cmd *cobra.Command) (*config.FileConfig, error) {
	opts := config.LoadOptions{Flags: cmd.Flags()}
	if f := cmd.Flags().Lookup("config"); f != nil {
		opts.File = f.Value.String()
	}
	if opts.File != "" {
		if _, err := os.Stat(opts.File); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}
	return config.Load(opts)
}

// displayPath returns path relative to the working directory when it is
// below it.
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return path
	}
	return rel
}
