package lint_test

import (
	"github.com/leapstack-labs/sqlint/pkg/lint"
)

// reportingRule reports one message per statement of any kind, tagged with
// the statement index so tests can check dispatch order.
func reportingRule(name string, sev lint.Severity) lint.Rule {
	return lint.Rule{
		Name: name,
		Meta: lint.Meta{Description: name + " description", Category: "Testing"},
		Create: func(ctx *lint.Context) lint.Listener {
			h := func(stmt *lint.Statement) error {
				ctx.Report(lint.Descriptor{
					Node:     stmt,
					Message:  name + "@" + string(rune('0'+stmt.Index)),
					Severity: sev,
				})
				return nil
			}
			return lint.Listener{
				Create: h, Select: h, Insert: h, Update: h,
				Delete: h, Alter: h, Drop: h, Use: h,
			}
		},
	}
}

// newRule builds a valid rule with the given listener.
func newRule(name string, listener func(ctx *lint.Context) lint.Listener) lint.Rule {
	return lint.Rule{
		Name:   name,
		Meta:   lint.Meta{Description: name + " description", Category: "Testing"},
		Create: listener,
	}
}

func mustConfig(rules ...lint.Rule) *lint.Config {
	cfg, err := lint.ResolveConfig(nil, lint.ConfigInput{
		Files: []string{"**/*.sql"},
		Rules: lint.RuleList(rules...),
	})
	if err != nil {
		panic(err)
	}
	return cfg
}

func messageTexts(msgs []lint.LintMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Message
	}
	return out
}
