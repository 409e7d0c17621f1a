package loader_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlint/internal/loader"
	"github.com/leapstack-labs/sqlint/internal/testutil"
	"github.com/leapstack-labs/sqlint/pkg/lint"
	"github.com/leapstack-labs/sqlint/pkg/lint/rules"
	"github.com/leapstack-labs/sqlint/pkg/sqlparser"
)

func setupTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"a.sql":                 "SELECT 1;",
		"models/b.sql":          "SELECT 2;",
		"models/staging/c.sql":  "SELECT 3;",
		"models/staging/d.txt":  "not sql",
		"models/.hidden/e.sql":  "SELECT 5;",
		"models/.f.sql":         "SELECT 6;",
		"migrations/001_up.sql": "CREATE TABLE t (id BIGINT);",
	})
	return dir
}

func rel(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out[i] = filepath.ToSlash(r)
	}
	return out
}

func TestDiscover(t *testing.T) {
	root := setupTree(t)

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{"double star", []string{"**/*.sql"}, []string{"a.sql", "migrations/001_up.sql", "models/b.sql", "models/staging/c.sql"}},
		{"single level", []string{"models/*.sql"}, []string{"models/b.sql"}},
		{"nested double star", []string{"models/**/*.sql"}, []string{"models/b.sql", "models/staging/c.sql"}},
		{"directory", []string{"models/staging"}, []string{"models/staging/c.sql"}},
		{"file", []string{"a.sql"}, []string{"a.sql"}},
		{"dedup", []string{"a.sql", "*.sql", "a.sql"}, []string{"a.sql"}},
		{"no match", []string{"nothing/**/*.sql"}, []string{}},
		{"character class", []string{"migrations/[0-9]*_up.sql"}, []string{"migrations/001_up.sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loader.Discover(root, tt.patterns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rel(t, root, got))
		})
	}
}

func TestDiscover_Errors(t *testing.T) {
	root := setupTree(t)

	_, err := loader.Discover(root, []string{"missing.sql"})
	require.Error(t, err)

	_, err = loader.Discover(root, []string{"models/[.sql"})
	require.Error(t, err)
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"plain.sql": "SELECT 1;",
		"fm.sql":    "/*---\nrules:\n  no-select-star: off\n---*/\nSELECT * FROM t;",
		"bad.sql":   "/*---\nowner: me\n---*/\nSELECT 1;",
	})

	f, err := loader.Read(filepath.Join(dir, "plain.sql"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", f.Content)
	assert.True(t, f.Frontmatter.IsEmpty())
	assert.Equal(t, lint.SourceFile{Filename: f.Path, Content: "SELECT 1;"}, f.Source())

	f, err = loader.Read(filepath.Join(dir, "fm.sql"))
	require.NoError(t, err)
	assert.Len(t, f.Frontmatter.Rules, 1)

	_, err = loader.Read(filepath.Join(dir, "bad.sql"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.sql")

	_, err = loader.ReadAll([]string{filepath.Join(dir, "plain.sql"), filepath.Join(dir, "missing.sql")})
	require.Error(t, err)
}

func TestFile_Config(t *testing.T) {
	reg := lint.NewRegistry()
	require.NoError(t, rules.RegisterRecommended(reg))

	input := lint.ConfigInput{
		Files: []string{"**/*.sql"},
		Rules: lint.RuleMap(
			lint.RuleSetting{Name: "no-select-star", Value: "warning"},
			lint.RuleSetting{Name: "table-naming-convention", Value: "warning"},
		),
		Parser: lint.ParserOptions{Database: sqlparser.MySQL},
	}
	base, err := lint.ResolveConfig(reg, input)
	require.NoError(t, err)

	t.Run("no frontmatter shares base", func(t *testing.T) {
		f := &loader.File{Path: "a.sql", Frontmatter: &loader.Frontmatter{}}
		cfg, err := f.Config(reg, input, base)
		require.NoError(t, err)
		assert.Same(t, base, cfg)
	})

	t.Run("rules and dialect override", func(t *testing.T) {
		f := &loader.File{Path: "b.sql", Frontmatter: &loader.Frontmatter{
			Rules:   lint.RuleSettings{{Name: "no-select-star", Value: "off"}, {Name: "require-primary-key", Value: "error"}},
			Dialect: "postgres",
		}}
		cfg, err := f.Config(reg, input, base)
		require.NoError(t, err)
		assert.Equal(t, []string{"table-naming-convention", "require-primary-key"}, cfg.RuleNames())
		assert.Equal(t, sqlparser.Postgres, cfg.Dialect())
	})

	t.Run("invalid override", func(t *testing.T) {
		f := &loader.File{Path: "c.sql", Frontmatter: &loader.Frontmatter{Dialect: "oracle"}}
		_, err := f.Config(reg, input, base)
		require.ErrorIs(t, err, lint.ErrUnsupportedDialect)
		assert.Contains(t, err.Error(), "c.sql")
	})
}
