package rules

import (
	"github.com/leapstack-labs/sqlint/pkg/lint"
)

func init() {
	if err := RegisterRecommended(lint.DefaultRegistry()); err != nil {
		panic(err)
	}
}

// All returns every built-in rule in registration order.
func All() []lint.Rule {
	return []lint.Rule{
		NoSelectStar,
		TableNamingConvention,
		RequirePrimaryKey,
		ColumnNamingConvention,
	}
}

// RecommendedRules returns the built-in rules marked recommended.
func RecommendedRules() []lint.Rule {
	var out []lint.Rule
	for _, r := range All() {
		if r.Meta.IsRecommended() {
			out = append(out, r)
		}
	}
	return out
}

// RegisterRecommended registers every built-in rule with reg, so that
// configurations can enable any of them by name.
func RegisterRecommended(reg *lint.Registry) error {
	return reg.RegisterMany(All()...)
}

// RecommendedConfig returns a resolved configuration running the
// recommended rules on all .sql files with the MySQL dialect.
func RecommendedConfig() *lint.Config {
	input := lint.DefaultConfigInput()
	input.Rules = lint.RuleList(RecommendedRules()...)
	cfg, err := lint.DefineConfig(nil, input)
	if err != nil {
		panic(err)
	}
	return cfg
}
