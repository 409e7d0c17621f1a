package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlint/internal/cli/output"
	"github.com/leapstack-labs/sqlint/internal/loader"
	"github.com/leapstack-labs/sqlint/internal/watch"
	"github.com/leapstack-labs/sqlint/pkg/lint"
)

// LintOptions holds options for the lint command.
type LintOptions struct {
	Paths    []string // Files, directories or globs; config files when empty
	Watch    bool     // Re-lint changed files until interrupted
	Parallel int      // Files linted at once; 0 means one per CPU
	Record   bool     // Store the run in the history database
}

// NewLintCommand creates the lint command.
func NewLintCommand() *cobra.Command {
	opts := &LintOptions{}
	cmd := &cobra.Command{
		Use:   "lint [paths...]",
		Short: "Lint SQL files",
		Long: `Lint SQL files with the configured rules.

Without arguments the files matched by the "files" patterns of sqlint.yaml
are linted. Arguments may be files, directories or glob patterns; "**"
matches any number of directories.

A file can override its configuration with a frontmatter comment:

  /*---
  rules:
    no-select-star: off
  dialect: postgres
  ---*/

Exit status is 1 when errors are found or --max-warnings is exceeded.`,
		Example: `  # Lint the files configured in sqlint.yaml
  sqlint lint

  # Lint a directory with postgres quoting
  sqlint lint models/ --dialect postgres

  # Promote a rule to error for this run
  sqlint lint --rule no-select-star=error

  # Fail on any warning, machine readable
  sqlint lint --max-warnings 0 --format json

  # Re-lint on every save
  sqlint lint --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Paths = args
			return runLint(cmd, opts)
		},
	}

	cmd.Flags().StringP("format", "f", "", "Output format: auto, stylish, compact, json, markdown")
	cmd.Flags().StringArray("rule", nil, "Rule setting as name=severity (repeatable)")
	cmd.Flags().String("dialect", "", "SQL dialect: mysql, postgres, sqlite, mssql")
	cmd.Flags().Int("max-warnings", -1, "Number of warnings to trigger a failing exit status (-1 disables)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Watch files and re-lint on change")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 1, "Files to lint concurrently; --parallel alone uses one per CPU")
	cmd.Flags().Lookup("parallel").NoOptDefVal = "0"
	cmd.Flags().BoolVar(&opts.Record, "record", false, "Record the run in the history database")

	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
	_ = cmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"mysql", "postgres", "sqlite", "mssql"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func completeFormats(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	modes := make([]string, len(output.Modes))
	for i, m := range output.Modes {
		modes[i] = string(m)
	}
	return modes, cobra.ShellCompDirectiveNoFileComp
}

func runLint(cmd *cobra.Command, opts *LintOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if !output.ValidMode(cmdCtx.Cfg.Output) {
		return fmt.Errorf("invalid output format %q", cmdCtx.Cfg.Output)
	}

	base, err := cmdCtx.Resolve()
	if err != nil {
		return err
	}
	cmdCtx.Logger.Debug("resolved config", "rules", base.RuleNames(), "dialect", base.Dialect())

	run := &lintRun{
		ctx:      cmdCtx,
		linter:   cmdCtx.Linter(lint.WithConcurrency(opts.Parallel)),
		input:    cmdCtx.Cfg.Input(),
		base:     base,
		parallel: opts.Parallel != 1,
	}
	root, patterns := lintTargets(cmdCtx, opts.Paths)

	paths, err := loader.Discover(root, patterns)
	if err != nil {
		return err
	}
	if len(paths) == 0 && !opts.Watch {
		return fmt.Errorf("no files match %s", strings.Join(patterns, ", "))
	}

	results, err := run.lint(cmd.Context(), paths)
	if err != nil {
		return err
	}
	runErr := run.report(cmd.Context(), results, opts.Record)

	if !opts.Watch {
		return runErr
	}
	return run.watch(cmd.Context(), root, patterns, opts.Record)
}

// lintTargets returns the discovery root and patterns: the arguments
// relative to the working directory, or the configured files relative to
// the project root.
func lintTargets(cmdCtx *CommandContext, args []string) (string, []string) {
	if len(args) > 0 {
		wd, err := os.Getwd()
		if err != nil {
			wd = "."
		}
		return wd, args
	}
	return cmdCtx.Cfg.Root, cmdCtx.Cfg.Files
}

// lintRun lints files with per-file frontmatter configuration.
type lintRun struct {
	ctx      *CommandContext
	linter   *lint.Linter
	input    lint.ConfigInput
	base     *lint.Config
	parallel bool
}

// lint reads and lints paths. Files with skip: true in their frontmatter
// are left out. Files sharing a configuration are linted as one batch;
// results keep the order of paths.
func (l *lintRun) lint(ctx context.Context, paths []string) ([]lint.LintResult, error) {
	files, err := loader.ReadAll(paths)
	if err != nil {
		return nil, err
	}

	type batch struct {
		cfg     *lint.Config
		sources []lint.SourceFile
		index   []int
	}
	var (
		batches []*batch
		byCfg   = make(map[*lint.Config]*batch)
		n       int
	)
	for _, f := range files {
		if f.Frontmatter.Skip {
			l.ctx.Logger.Debug("skipping file", "file", f.Path)
			continue
		}
		cfg, err := f.Config(l.ctx.Registry, l.input, l.base)
		if err != nil {
			return nil, err
		}
		b, ok := byCfg[cfg]
		if !ok {
			b = &batch{cfg: cfg}
			byCfg[cfg] = b
			batches = append(batches, b)
		}
		src := f.Source()
		src.Filename = displayPath(f.Path)
		b.sources = append(b.sources, src)
		b.index = append(b.index, n)
		n++
	}

	results := make([]lint.LintResult, n)
	for _, b := range batches {
		var out []lint.LintResult
		if l.parallel {
			out, err = l.linter.LintFilesParallel(ctx, b.sources, b.cfg)
			if err != nil {
				return nil, err
			}
		} else {
			out = l.linter.LintFiles(b.sources, b.cfg)
		}
		for i, res := range out {
			results[b.index[i]] = res
		}
	}
	return results, nil
}

// report renders results, records them when asked and returns
// ErrLintFailed when the run fails.
func (l *lintRun) report(ctx context.Context, results []lint.LintResult, record bool) error {
	var runID string
	if record {
		id, err := l.record(ctx, results)
		if err != nil {
			return err
		}
		runID = id
	}

	if err := l.ctx.Renderer.LintResults(results, runID); err != nil {
		return err
	}
	return lintOutcome(lint.Summarize(results), l.ctx.Cfg.MaxWarnings)
}

func (l *lintRun) record(ctx context.Context, results []lint.LintResult) (string, error) {
	store, err := l.ctx.OpenHistory(l.ctx.HistoryPath(true))
	if err != nil {
		return "", err
	}
	defer func() { _ = store.Close() }()

	summary := fmt.Sprintf("dialect=%s rules=%s", l.base.Dialect(), strings.Join(l.base.RuleNames(), ","))
	run, err := store.RecordRun(ctx, results, summary)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// lintOutcome decides the exit status of a run.
func lintOutcome(s lint.Summary, maxWarnings int) error {
	if s.TotalErrors > 0 {
		return fmt.Errorf("%w: %d %s", ErrLintFailed, s.TotalErrors, pluralize(s.TotalErrors, "error"))
	}
	if maxWarnings >= 0 && s.TotalWarnings > maxWarnings {
		return fmt.Errorf("%w: too many warnings (%d, maximum: %d)", ErrLintFailed, s.TotalWarnings, maxWarnings)
	}
	return nil
}

// watch re-lints changed files that match the targets until ctx is done.
func (l *lintRun) watch(ctx context.Context, root string, patterns []string, record bool) error {
	dirs := watchDirs(root, patterns)
	r := l.ctx.Renderer
	r.Muted(fmt.Sprintf("Watching %s for changes...", strings.Join(dirs, ", ")))

	w := watch.New(dirs, func(ctx context.Context, changed []string) {
		matched, err := loader.Discover(root, patterns)
		if err != nil {
			l.ctx.Logger.Error("failed to discover files", "error", err)
			return
		}
		var paths []string
		for _, p := range changed {
			if _, err := os.Stat(p); err == nil && slices.Contains(matched, filepath.Clean(p)) {
				paths = append(paths, p)
			}
		}
		if len(paths) == 0 {
			return
		}

		results, err := l.lint(ctx, paths)
		if err != nil {
			r.Warning(err.Error())
			return
		}
		if err := l.report(ctx, results, record); err != nil && !isLintFailure(err) {
			r.Warning(err.Error())
		}
	}, watch.WithLogger(l.ctx.Logger))

	return w.Run(ctx)
}

// watchDirs returns the directories to watch for patterns: the static
// prefix of each glob, or the directory of a plain file.
func watchDirs(root string, patterns []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, p := range patterns {
		full := p
		if !filepath.IsAbs(full) {
			full = filepath.Join(root, p)
		}
		dir := staticPrefix(full)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			dir = filepath.Dir(dir)
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	slices.Sort(dirs)
	return dirs
}

// staticPrefix strips the path segments from the first glob meta
// character on.
func staticPrefix(pattern string) string {
	i := strings.IndexAny(pattern, "*?[")
	if i < 0 {
		return pattern
	}
	return filepath.Dir(pattern[:i+1])
}

func isLintFailure(err error) bool {
	return errors.Is(err, ErrLintFailed)
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
