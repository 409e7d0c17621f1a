package lint

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqlint/pkg/normalize"
	"github.com/leapstack-labs/sqlint/pkg/sqlparser"
)

// Parser produces loose statement nodes from SQL text. Syntax errors are
// reported in the result; a returned error or a panic is treated as a
// single parse failure of the whole input.
type Parser interface {
	Parse(sql string, opts ParseOptions) (*ParseResult, error)
}

// Parser contract types.
type (
	ParseOptions = sqlparser.Options
	ParseResult  = sqlparser.Result
	ParseError   = sqlparser.ParseError
)

// binaryKeyword is blanked out before parsing since parsers commonly
// reject MySQL's BINARY modifier. Spaces keep later positions intact.
var binaryKeyword = regexp.MustCompile(`\bBINARY\b`)

const binaryBlank = "      "

// Linter runs resolved rules over SQL inputs. A Linter holds no per-run
// state and is safe for concurrent use.
type Linter struct {
	parser      Parser
	logger      *slog.Logger
	locator     Locator
	normalize   bool
	concurrency int
}

// Option configures a Linter.
type Option func(*Linter)

// WithParser replaces the default parser.
func WithParser(p Parser) Option {
	return func(l *Linter) { l.parser = p }
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Linter) { l.logger = logger }
}

// WithLocator sets how findings are mapped to positions.
func WithLocator(loc Locator) Option {
	return func(l *Linter) { l.locator = loc }
}

// WithNormalization enables or disables lifting CREATE TABLE statements
// into Statement.Table. It is enabled by default.
func WithNormalization(enabled bool) Option {
	return func(l *Linter) { l.normalize = enabled }
}

// WithConcurrency bounds the number of files LintFilesParallel lints at
// once. Values below 1 mean runtime.GOMAXPROCS(0).
func WithConcurrency(n int) Option {
	return func(l *Linter) { l.concurrency = n }
}

// NewLinter creates a linter.
func NewLinter(opts ...Option) *Linter {
	l := &Linter{
		parser:    sqlparser.New(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		locator:   FixedLocator{},
		normalize: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.concurrency < 1 {
		l.concurrency = runtime.GOMAXPROCS(0)
	}
	return l
}

// Lint lints one input. It never fails: parse problems and failing rules
// are reported as messages.
func (l *Linter) Lint(sql string, cfg *Config, filename string) LintResult {
	if filename == "" {
		filename = "<input>"
	}
	if cfg == nil {
		cfg = &Config{}
	}
	result := LintResult{Filename: filename, Messages: []LintMessage{}}

	nodes := l.parse(sql, cfg, &result)
	stmts := l.statements(nodes, &result)

	for _, rule := range cfg.Rules {
		for _, stmt := range stmts {
			result.add(l.runRule(rule, stmt, sql, cfg, filename)...)
		}
	}

	l.logger.Debug("linted",
		slog.String("file", filename),
		slog.Int("statements", len(stmts)),
		slog.Int("rules", len(cfg.Rules)),
		slog.Int("messages", len(result.Messages)))
	return result
}

// LintFiles lints files sequentially, returning one result per file in
// input order.
func (l *Linter) LintFiles(files []SourceFile, cfg *Config) []LintResult {
	results := make([]LintResult, len(files))
	for i, f := range files {
		results[i] = l.Lint(f.Content, cfg, f.Filename)
	}
	return results
}

// LintFilesParallel lints files concurrently and returns results in input
// order. The only error is the context's.
func (l *Linter) LintFilesParallel(ctx context.Context, files []SourceFile, cfg *Config) ([]LintResult, error) {
	results := make([]LintResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = l.Lint(f.Content, cfg, f.Filename)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("lint files: %w", err)
	}
	return results, nil
}

// parse runs the parser and records its errors. A parser that fails
// outright yields no statements.
func (l *Linter) parse(sql string, cfg *Config, result *LintResult) (nodes []sqlparser.Node) {
	defer func() {
		if r := recover(); r != nil {
			nodes = nil
			result.add(parseErrorMessage(fmt.Sprint(r), 1, 1))
		}
	}()

	res, err := l.parser.Parse(binaryKeyword.ReplaceAllLiteralString(sql, binaryBlank), ParseOptions{Database: cfg.Dialect()})
	if err != nil {
		result.add(parseErrorMessage(err.Error(), 1, 1))
		return nil
	}
	if res == nil {
		return nil
	}
	for _, pe := range res.Errors {
		result.add(parseErrorMessage(pe.Message, pe.Line, pe.Column))
	}
	return res.Statements
}

func parseErrorMessage(msg string, line, col int) LintMessage {
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	return LintMessage{
		RuleID:   ParseErrorRuleID,
		Severity: SeverityError,
		Message:  "Parse error: " + msg,
		Line:     line,
		Column:   col,
		NodeType: NodeTypeParseError,
	}
}

// statements wraps parser nodes and normalizes CREATE TABLE statements.
// A statement that fails normalization is still dispatched, with a nil
// Table.
func (l *Linter) statements(nodes []sqlparser.Node, result *LintResult) []*Statement {
	stmts := make([]*Statement, 0, len(nodes))
	for i, n := range nodes {
		if n == nil {
			continue
		}
		kind, _ := ParseStatementKind(n.Type())
		stmt := &Statement{Kind: kind, Type: n.Type(), Raw: n, Index: i}

		if l.normalize && kind == KindCreate {
			table, err := normalize.CreateTable(n)
			if err != nil {
				line, col := 1, 1
				if span, ok := n.Span(); ok {
					line, col = span.Start.Line, span.Start.Column
				}
				result.add(LintMessage{
					RuleID:   ParseErrorRuleID,
					Severity: SeverityError,
					Message:  "Normalization error: " + err.Error(),
					Line:     line,
					Column:   col,
					NodeType: NodeTypeNormalizationError,
				})
				l.logger.Debug("normalization failed", slog.Int("statement", i), slog.Any("error", err))
			}
			stmt.Table = table
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}

// runRule runs one rule against one statement with a fresh Context. A
// failing rule yields exactly one RuleError message and its partial
// findings are dropped.
func (l *Linter) runRule(rule Rule, stmt *Statement, sql string, cfg *Config, filename string) []LintMessage {
	ctx := &Context{
		rule:     rule.Name,
		filename: filename,
		source:   sql,
		env:      cfg.Env,
		stmt:     stmt,
		locator:  l.locator,
		options:  cfg.Options[rule.Name],
	}
	if sev, ok := cfg.Severities[rule.Name]; ok {
		ctx.override = &sev
	}

	if err := invoke(rule, ctx, stmt); err != nil {
		rerr := &RuleError{Rule: rule.Name, Err: err}
		l.logger.Debug("rule failed",
			slog.String("file", filename),
			slog.String("rule", rule.Name),
			slog.Int("statement", stmt.Index),
			slog.Any("error", rerr))
		return []LintMessage{{
			RuleID:   rule.Name,
			Severity: SeverityError,
			Message:  "Rule execution error: " + err.Error(),
			Line:     1,
			Column:   1,
			NodeType: NodeTypeRuleError,
		}}
	}
	return ctx.messages
}

func invoke(rule Rule, ctx *Context, stmt *Statement) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	listener := rule.Create(ctx)
	if h := listener.Handler(stmt.Kind); h != nil {
		return h(stmt)
	}
	return nil
}
