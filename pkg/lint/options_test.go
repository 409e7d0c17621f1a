package lint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/sqlint/pkg/lint"
)

func TestOptions(t *testing.T) {
	opts := lint.Options{
		"style":    "snake",
		"strict":   true,
		"maxInt":   10,
		"maxFloat": float64(20),
		"maxInt64": int64(30),
		"prefixes": []any{"tbl_", 3, "t_"},
		"names":    []string{"a"},
	}

	assert.Equal(t, "snake", opts.String("style", "camel"))
	assert.Equal(t, "camel", opts.String("missing", "camel"))
	assert.Equal(t, "x", opts.String("strict", "x"))

	assert.True(t, opts.Bool("strict", false))
	assert.False(t, opts.Bool("style", false))

	assert.Equal(t, 10, opts.Int("maxInt", 0))
	assert.Equal(t, 20, opts.Int("maxFloat", 0))
	assert.Equal(t, 30, opts.Int("maxInt64", 0))
	assert.Equal(t, 5, opts.Int("style", 5))

	assert.Equal(t, []string{"tbl_", "t_"}, opts.Strings("prefixes", nil))
	assert.Equal(t, []string{"a"}, opts.Strings("names", nil))
	assert.Equal(t, []string{"d"}, opts.Strings("missing", []string{"d"}))

	var nilOpts lint.Options
	assert.Equal(t, 7, lint.GetOption(nilOpts, "k", 7))
}
