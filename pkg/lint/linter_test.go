package lint_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlint/internal/testutil"
	"github.com/leapstack-labs/sqlint/pkg/ast"
	"github.com/leapstack-labs/sqlint/pkg/lint"
	"github.com/leapstack-labs/sqlint/pkg/sqlparser"
)

func TestLint_NoRulesOnlyParseErrors(t *testing.T) {
	linter := lint.NewLinter()
	cfg := mustConfig()

	for _, sql := range []string{
		"SELECT * FROM users",
		"CREATE TABLE t (id BIGINT); SELEC nope",
		"DROP TABLE x; ((",
	} {
		result := linter.Lint(sql, cfg, "q.sql")
		for _, m := range result.Messages {
			assert.Equal(t, lint.ParseErrorRuleID, m.RuleID, sql)
		}
	}
}

func TestLint_UnparsableSQL(t *testing.T) {
	linter := lint.NewLinter()
	cfg := mustConfig(reportingRule("r1", lint.SeverityWarning))

	result := linter.Lint("SELEC * FORM users", cfg, "bad.sql")
	require.GreaterOrEqual(t, result.ErrorCount, 1)
	for _, m := range result.Messages {
		assert.Equal(t, lint.ParseErrorRuleID, m.RuleID)
		assert.Equal(t, lint.NodeTypeParseError, m.NodeType)
		assert.Equal(t, lint.SeverityError, m.Severity)
	}
	assert.Contains(t, result.Messages[0].Message, "Parse error: ")
}

func TestLint_EmptySQL(t *testing.T) {
	linter := lint.NewLinter()
	cfg := mustConfig(reportingRule("r1", lint.SeverityWarning))

	for _, sql := range []string{"", "  \n", "-- nothing here"} {
		result := linter.Lint(sql, cfg, "empty.sql")
		assert.Empty(t, result.Messages)
		assert.Zero(t, result.ErrorCount)
		assert.Zero(t, result.WarningCount)
		assert.Zero(t, result.InfoCount)
	}
}

func TestLint_DefaultFilename(t *testing.T) {
	result := lint.NewLinter().Lint("", mustConfig(), "")
	assert.Equal(t, "<input>", result.Filename)
}

func TestLint_RuleOuterStatementInner(t *testing.T) {
	linter := lint.NewLinter()
	cfg := mustConfig(
		reportingRule("r1", lint.SeverityWarning),
		reportingRule("r2", lint.SeverityInfo),
	)

	result := linter.Lint("SELECT a FROM t; SELECT b FROM t", cfg, "order.sql")
	assert.Equal(t, []string{"r1@0", "r1@1", "r2@0", "r2@1"}, messageTexts(result.Messages))
	assert.Equal(t, 2, result.WarningCount)
	assert.Equal(t, 2, result.InfoCount)
}

func TestLint_PartialParseStillRunsRules(t *testing.T) {
	linter := lint.NewLinter()
	cfg := mustConfig(reportingRule("r1", lint.SeverityWarning))

	result := linter.Lint("SELECT a FROM t; SELEC oops; SELECT b FROM t", cfg, "partial.sql")
	require.Len(t, result.Messages, 3)
	assert.Equal(t, lint.ParseErrorRuleID, result.Messages[0].RuleID)
	assert.Equal(t, []string{"r1@0", "r1@1"}, messageTexts(result.Messages[1:]))
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 2, result.WarningCount)
}

func TestLint_FailingHandlerIsIsolated(t *testing.T) {
	tests := []struct {
		name string
		fail func() error
	}{
		{"returned error", func() error { return errors.New("boom") }},
		{"panic", func() error { panic("boom") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flaky := newRule("flaky", func(ctx *lint.Context) lint.Listener {
				return lint.Listener{Select: func(stmt *lint.Statement) error {
					if stmt.Index == 0 {
						ctx.Report(lint.Descriptor{Node: stmt, Message: "partial", Severity: lint.SeverityWarning})
						return tt.fail()
					}
					ctx.Report(lint.Descriptor{Node: stmt, Message: "flaky ok", Severity: lint.SeverityWarning})
					return nil
				}}
			})
			cfg := mustConfig(flaky, reportingRule("steady", lint.SeverityInfo))

			result := lint.NewLinter().Lint("SELECT a FROM t; SELECT b FROM t", cfg, "f.sql")
			require.Len(t, result.Messages, 4)

			ruleErr := result.Messages[0]
			assert.Equal(t, "flaky", ruleErr.RuleID)
			assert.Equal(t, lint.SeverityError, ruleErr.Severity)
			assert.Equal(t, lint.NodeTypeRuleError, ruleErr.NodeType)
			assert.Contains(t, ruleErr.Message, "Rule execution error: ")
			assert.Contains(t, ruleErr.Message, "boom")

			assert.Equal(t, []string{"flaky ok", "steady@0", "steady@1"}, messageTexts(result.Messages[1:]))
			assert.Equal(t, 1, result.ErrorCount)
			assert.Equal(t, 1, result.WarningCount)
			assert.Equal(t, 2, result.InfoCount)
		})
	}
}

func TestLint_PanicInCreateIsIsolated(t *testing.T) {
	broken := newRule("broken", func(*lint.Context) lint.Listener {
		panic("no listener")
	})
	cfg := mustConfig(broken)

	result := lint.NewLinter().Lint("USE app", cfg, "u.sql")
	require.Len(t, result.Messages, 1)
	assert.Equal(t, lint.NodeTypeRuleError, result.Messages[0].NodeType)
}

func TestLint_UnknownKindsAreSkipped(t *testing.T) {
	cfg := mustConfig(reportingRule("r1", lint.SeverityWarning))

	result := lint.NewLinter().Lint("SHOW TABLES; BEGIN", cfg, "s.sql")
	assert.Empty(t, result.Messages)
}

func TestLint_DispatchByKind(t *testing.T) {
	var seen []lint.StatementKind
	rule := newRule("kinds", func(*lint.Context) lint.Listener {
		record := func(stmt *lint.Statement) error {
			seen = append(seen, stmt.Kind)
			return nil
		}
		return lint.Listener{Create: record, Insert: record, Drop: record}
	})

	sql := "CREATE TABLE t (id BIGINT); SELECT 1; INSERT INTO t (id) VALUES (1); DROP TABLE t; USE db"
	lint.NewLinter().Lint(sql, mustConfig(rule), "k.sql")
	assert.Equal(t, []lint.StatementKind{lint.KindCreate, lint.KindInsert, lint.KindDrop}, seen)
}

func TestLint_NormalizesCreateTable(t *testing.T) {
	var table *ast.CreateTableNode
	rule := newRule("grab", func(*lint.Context) lint.Listener {
		return lint.Listener{Create: func(stmt *lint.Statement) error {
			table = stmt.Table
			return nil
		}}
	})

	lint.NewLinter().Lint("CREATE TABLE users (id BIGINT UNSIGNED AUTO_INCREMENT)", mustConfig(rule), "c.sql")
	require.NotNil(t, table)
	assert.Equal(t, "users", table.TableName)
	require.Len(t, table.Columns(), 1)

	// normalization can be turned off
	table = nil
	lint.NewLinter(lint.WithNormalization(false)).Lint("CREATE TABLE users (id BIGINT)", mustConfig(rule), "c.sql")
	assert.Nil(t, table)
}

func TestLint_NormalizationFailure(t *testing.T) {
	var dispatched bool
	rule := newRule("grab", func(*lint.Context) lint.Listener {
		return lint.Listener{Create: func(stmt *lint.Statement) error {
			dispatched = true
			assert.Nil(t, stmt.Table)
			return nil
		}}
	})

	node := sqlparser.Node{
		"type":               "create",
		"keyword":            "table",
		"table":              []any{sqlparser.TableRef("", "t")},
		"create_definitions": []any{sqlparser.Node{"resource": "column", "definition": sqlparser.Node{"dataType": "BIGINT"}}},
	}
	linter := lint.NewLinter(lint.WithParser(stubParser{result: &lint.ParseResult{Statements: []sqlparser.Node{node}}}))

	result := linter.Lint("whatever", mustConfig(rule), "n.sql")
	require.Len(t, result.Messages, 1)
	assert.Equal(t, lint.ParseErrorRuleID, result.Messages[0].RuleID)
	assert.Equal(t, lint.NodeTypeNormalizationError, result.Messages[0].NodeType)
	assert.True(t, dispatched)
}

func TestLint_ParserFailure(t *testing.T) {
	tests := []struct {
		name   string
		parser lint.Parser
	}{
		{"error", stubParser{err: errors.New("exploded")}},
		{"panic", panicParser{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			linter := lint.NewLinter(lint.WithParser(tt.parser))
			result := linter.Lint("SELECT 1", mustConfig(reportingRule("r1", lint.SeverityInfo)), "p.sql")
			require.Len(t, result.Messages, 1)
			assert.Equal(t, lint.ParseErrorRuleID, result.Messages[0].RuleID)
			assert.Equal(t, 1, result.Messages[0].Line)
			assert.Equal(t, 1, result.Messages[0].Column)
			assert.Contains(t, result.Messages[0].Message, "exploded")
		})
	}
}

func TestLint_StripsBinaryKeyword(t *testing.T) {
	parser := &capturingParser{}
	linter := lint.NewLinter(lint.WithParser(parser))

	linter.Lint("SELECT BINARY name FROM t WHERE BINARYX = 1", mustConfig(), "b.sql")
	assert.Equal(t, "SELECT        name FROM t WHERE BINARYX = 1", parser.sql)
}

func TestLint_PassesDialect(t *testing.T) {
	parser := &capturingParser{}
	linter := lint.NewLinter(lint.WithParser(parser))

	cfg, err := lint.ResolveConfig(nil, lint.ConfigInput{
		Files:  []string{"*.sql"},
		Rules:  lint.RuleList(),
		Parser: lint.ParserOptions{Database: sqlparser.Postgres},
	})
	require.NoError(t, err)

	linter.Lint("SELECT 1", cfg, "d.sql")
	assert.Equal(t, sqlparser.Postgres, parser.opts.Database)
}

func TestLint_SeverityOverride(t *testing.T) {
	reg := lint.NewRegistry()
	require.NoError(t, reg.Register(reportingRule("r1", lint.SeverityInfo)))

	cfg, err := lint.ResolveConfig(reg, lint.ConfigInput{
		Files: []string{"*.sql"},
		Rules: lint.RuleMap(lint.RuleSetting{Name: "r1", Value: "error"}),
	})
	require.NoError(t, err)

	result := lint.NewLinter().Lint("SELECT 1", cfg, "o.sql")
	require.Len(t, result.Messages, 1)
	assert.Equal(t, lint.SeverityError, result.Messages[0].Severity)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Zero(t, result.InfoCount)
}

func TestLint_SpanLocator(t *testing.T) {
	cfg := mustConfig(reportingRule("r1", lint.SeverityWarning))
	linter := lint.NewLinter(lint.WithLocator(lint.SpanLocator{}))

	result := linter.Lint("SELECT 1;\n\n  SELECT 2", cfg, "loc.sql")
	require.Len(t, result.Messages, 2)
	assert.Equal(t, 1, result.Messages[0].Line)
	assert.Equal(t, 3, result.Messages[1].Line)
	assert.Equal(t, 3, result.Messages[1].Column)

	fixed := lint.NewLinter().Lint("SELECT 1;\n\n  SELECT 2", cfg, "loc.sql")
	assert.Equal(t, 1, fixed.Messages[1].Line)
	assert.Equal(t, 1, fixed.Messages[1].Column)
}

func TestLint_Logs(t *testing.T) {
	logger := testutil.NewTestLogger(t)
	linter := lint.NewLinter(lint.WithLogger(logger))

	result := linter.Lint("SELECT 1", mustConfig(reportingRule("r1", lint.SeverityInfo)), "log.sql")
	assert.Len(t, result.Messages, 1)
}

func TestLintFiles_PreservesOrder(t *testing.T) {
	files := []lint.SourceFile{
		{Filename: "a.sql", Content: "SELECT 1"},
		{Filename: "b.sql", Content: "SELEC"},
		{Filename: "c.sql", Content: ""},
	}
	cfg := mustConfig(reportingRule("r1", lint.SeverityWarning))
	linter := lint.NewLinter(lint.WithConcurrency(2))

	sequential := linter.LintFiles(files, cfg)
	require.Len(t, sequential, 3)
	assert.Equal(t, "a.sql", sequential[0].Filename)
	assert.Equal(t, 1, sequential[0].WarningCount)
	assert.Equal(t, 1, sequential[1].ErrorCount)
	assert.Empty(t, sequential[2].Messages)

	parallel, err := linter.LintFilesParallel(context.Background(), files, cfg)
	require.NoError(t, err)
	assert.Equal(t, sequential, parallel)
}

func TestLintFilesParallel_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lint.NewLinter().LintFilesParallel(ctx, []lint.SourceFile{{Filename: "a.sql", Content: "SELECT 1"}}, mustConfig())
	require.ErrorIs(t, err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	results := []lint.LintResult{
		{Filename: "a", Messages: []lint.LintMessage{{}, {}}, ErrorCount: 1, WarningCount: 1},
		{Filename: "b"},
		{Filename: "c", Messages: []lint.LintMessage{{}}, InfoCount: 1},
	}
	s := lint.Summarize(results)
	assert.Equal(t, lint.Summary{
		TotalFiles:      3,
		TotalErrors:     1,
		TotalWarnings:   1,
		TotalInfos:      1,
		FilesWithIssues: 2,
	}, s)
	assert.Equal(t, 3, s.Problems())
}

// ---------- Parser stubs ----------

type stubParser struct {
	result *lint.ParseResult
	err    error
}

func (s stubParser) Parse(string, lint.ParseOptions) (*lint.ParseResult, error) {
	return s.result, s.err
}

type panicParser struct{}

func (panicParser) Parse(string, lint.ParseOptions) (*lint.ParseResult, error) {
	panic("exploded")
}

type capturingParser struct {
	sql  string
	opts lint.ParseOptions
}

func (c *capturingParser) Parse(sql string, opts lint.ParseOptions) (*lint.ParseResult, error) {
	c.sql = sql
	c.opts = opts
	return &lint.ParseResult{}, nil
}
