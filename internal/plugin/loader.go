// Package plugin loads lint rules written in Starlark.
//
// A plugin file declares rules by calling the rule() builtin:
//
//	def check_create(ctx, node):
//	    if node.table and len(node.table.columns) > 50:
//	        ctx.report("Table '{{table_name}}' has too many columns.")
//
//	rule(
//	    name = "max-columns",
//	    description = "Limit the number of columns per table",
//	    category = "design",
//	    create = check_create,
//	)
//
// Handlers are keyword arguments named after the statement kind they
// listen to: create, select, insert, update, delete, alter, drop and use.
package plugin

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/sqlint/internal/loader"
	"github.com/leapstack-labs/sqlint/pkg/lint"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Extension is the file extension of rule plugins.
const Extension = ".star"

// Loader executes plugin files and turns their rule() calls into rules.
type Loader struct {
	logger   *slog.Logger
	maxSteps uint64
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for plugin print() output.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithMaxSteps sets the per-invocation execution step budget. Zero
// disables the limit.
func WithMaxSteps(n uint64) Option {
	return func(l *Loader) { l.maxSteps = n }
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		logger:   slog.New(slog.DiscardHandler),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadError represents an error loading a plugin file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("plugin %s: %s", e.File, e.Message)
}

// LoadFile executes one plugin file and returns the rules it declares,
// in declaration order.
func (l *Loader) LoadFile(path string) ([]lint.Rule, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: plugin paths come from the user's config
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}
	return l.LoadSource(path, content)
}

// LoadSource executes plugin source registered under filename.
func (l *Loader) LoadSource(filename string, src []byte) ([]lint.Rule, error) {
	var specs []*ruleSpec
	predeclared := starlark.StringDict{
		"rule": ruleBuiltin(filename, &specs),
	}

	thread := &starlark.Thread{
		Name: fmt.Sprintf("load:%s", filepath.Base(filename)),
		Print: func(_ *starlark.Thread, msg string) {
			l.logger.Debug("plugin print", "file", filename, "msg", msg)
		},
	}
	if l.maxSteps > 0 {
		thread.SetMaxExecutionSteps(l.maxSteps)
	}

	// ExecFileOptions freezes the module globals, which makes handler
	// functions safe to call from concurrent lint runs.
	if _, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, filename, src, predeclared); err != nil {
		return nil, &LoadError{File: filename, Message: fmt.Sprintf("Starlark execution error: %v", err)}
	}

	rules := make([]lint.Rule, 0, len(specs))
	for _, spec := range specs {
		rules = append(rules, spec.toRule(l.logger, l.maxSteps))
	}
	if err := lint.ValidateRules(rules); err != nil {
		return nil, &LoadError{File: filename, Message: err.Error()}
	}

	l.logger.Debug("loaded plugin", "file", filename, "rules", len(rules))
	return rules, nil
}

// Load resolves patterns against root and loads every matching plugin
// file. A pattern naming a directory loads the .star files directly in it.
func (l *Loader) Load(root string, patterns []string) ([]lint.Rule, error) {
	expanded := make([]string, 0, len(patterns))
	for _, p := range patterns {
		full := p
		if !filepath.IsAbs(full) {
			full = filepath.Join(root, p)
		}
		if info, err := os.Stat(full); err == nil && info.IsDir() {
			p = filepath.Join(p, "*"+Extension)
		}
		expanded = append(expanded, p)
	}

	paths, err := loader.Discover(root, expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to discover plugins: %w", err)
	}

	var rules []lint.Rule
	for _, path := range paths {
		if !strings.HasSuffix(path, Extension) {
			continue
		}
		loaded, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		rules = append(rules, loaded...)
	}
	if err := lint.ValidateRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// Register loads the plugins matched by patterns into reg.
func (l *Loader) Register(reg *lint.Registry, root string, patterns []string) ([]lint.Rule, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	rules, err := l.Load(root, patterns)
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		if reg.Has(r.Name) {
			return nil, fmt.Errorf("plugin rule %s: %w", r.Name, lint.ErrDuplicateRule)
		}
	}
	if err := reg.RegisterMany(rules...); err != nil {
		return nil, err
	}
	return rules, nil
}
