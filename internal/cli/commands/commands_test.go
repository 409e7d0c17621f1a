package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlint/internal/cli/testutil"
	fsutil "github.com/leapstack-labs/sqlint/internal/testutil"
	"github.com/leapstack-labs/sqlint/pkg/lint"
)

func TestCommandDefinitions(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewLintCommand(), "lint [paths...]", []string{"format", "rule", "dialect", "max-warnings", "watch", "parallel", "record"}},
		{NewRulesCommand(), "rules [rule-name]", []string{"format", "rule", "category", "recommended", "enabled"}},
		{NewInitCommand(), "init [directory]", []string{"force"}},
		{NewHistoryCommand(), "history [run-id]", []string{"format", "history", "limit"}},
		{NewServeCommand(), "serve", []string{"addr", "history"}},
		{NewLSPCommand("1.0"), "lsp", nil},
		{NewVersionCommand("1.0", "abc", "today"), "version", nil},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestLintOutcome(t *testing.T) {
	tests := []struct {
		name        string
		summary     lint.Summary
		maxWarnings int
		wantErr     string
	}{
		{"clean", lint.Summary{}, -1, ""},
		{"warnings unlimited", lint.Summary{TotalWarnings: 5}, -1, ""},
		{"warnings at limit", lint.Summary{TotalWarnings: 2}, 2, ""},
		{"warnings over limit", lint.Summary{TotalWarnings: 3}, 2, "too many warnings (3, maximum: 2)"},
		{"one error", lint.Summary{TotalErrors: 1}, -1, "1 error"},
		{"errors", lint.Summary{TotalErrors: 2, TotalWarnings: 9}, 0, "2 errors"},
		{"infos never fail", lint.Summary{TotalInfos: 4}, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := lintOutcome(tt.summary, tt.maxWarnings)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrLintFailed)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, isLintFailure(err))
		})
	}
}

func TestWatchDirs(t *testing.T) {
	root := t.TempDir()
	fsutil.WriteFiles(t, root, map[string]string{
		"models/a.sql":     "",
		"models/sub/b.sql": "",
		"other.sql":        "",
	})

	assert.Equal(t, []string{root}, watchDirs(root, []string{"**/*.sql"}))
	assert.Equal(t,
		[]string{root, filepath.Join(root, "models")},
		watchDirs(root, []string{"models/**/*.sql", "other.sql", "models"}))
	assert.Equal(t, []string{filepath.Join(root, "models", "sub")}, watchDirs(root, []string{"models/sub/b.sql"}))
}

func TestStaticPrefix(t *testing.T) {
	assert.Equal(t, "/a/b", staticPrefix("/a/b/**/*.sql"))
	assert.Equal(t, "/a", staticPrefix("/a/b*/c.sql"))
	assert.Equal(t, "/a/b.sql", staticPrefix("/a/b.sql"))
}

func TestFilterRules(t *testing.T) {
	views := []RuleView{
		{RuleInfo: lint.RuleInfo{Name: "a", Category: "x", Recommended: true}, Enabled: true},
		{RuleInfo: lint.RuleInfo{Name: "b", Category: "x"}},
		{RuleInfo: lint.RuleInfo{Name: "c", Category: "y", Recommended: true}},
	}
	names := func(vs []RuleView) []string {
		out := make([]string, len(vs))
		for i, v := range vs {
			out[i] = v.Name
		}
		return out
	}

	assert.Equal(t, []string{"a", "b", "c"}, names(filterRules(views, &RulesOptions{})))
	assert.Equal(t, []string{"a", "b"}, names(filterRules(views, &RulesOptions{Category: "x"})))
	assert.Equal(t, []string{"a", "c"}, names(filterRules(views, &RulesOptions{Recommended: true})))
	assert.Equal(t, []string{"a"}, names(filterRules(views, &RulesOptions{Enabled: true})))
	assert.Len(t, views, 3, "filtering must not modify the input")

	assert.Equal(t, "no", enabledLabel(views[1]))
	assert.Equal(t, "yes", enabledLabel(views[0]))
	assert.Equal(t, "yes (error)", enabledLabel(RuleView{Enabled: true, Severity: "error"}))
}

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLintCommand_Watch(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	cmd := NewLintCommand()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--watch"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Watching ")
	}, 5*time.Second, 10*time.Millisecond)

	// Rewrite until the watcher has picked the change up.
	target := filepath.Join("models", "new_table.sql")
	i := 0
	require.Eventually(t, func() bool {
		i++
		sql := fmt.Sprintf("CREATE TABLE NewTable%d (id bigint);", i)
		_ = os.WriteFile(target, []byte(sql), 0o600)
		return strings.Contains(out.String(), "(table-naming-convention)")
	}, 10*time.Second, 200*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestLintCommand_Standalone(t *testing.T) {
	t.Chdir(testutil.SetupTestProject(t))

	var out bytes.Buffer
	cmd := NewLintCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--format", "markdown", "--dialect", "postgres"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "## Lint Results")
	assert.Contains(t, out.String(), "`no-select-star`")
}
