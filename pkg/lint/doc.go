// Package lint runs rules against parsed SQL and collects their findings.
//
// # Architecture
//
//  1. Registry: name-keyed rule store, frozen once startup registration ends
//  2. Config resolution: settings mapping or rule list -> validated Config
//  3. Linter: parse -> normalize CREATE TABLE -> dispatch -> aggregate
//  4. Context: per (rule, statement) accumulator with message templates
//
// # Rules
//
// A rule returns a Listener with a handler for each statement kind it
// cares about:
//
//	var NoDrop = lint.Rule{
//		Name: "no-drop",
//		Meta: lint.Meta{Description: "Disallow DROP", Category: "Safety"},
//		Create: func(ctx *lint.Context) lint.Listener {
//			return lint.Listener{
//				Drop: func(stmt *lint.Statement) error {
//					ctx.Report(lint.Descriptor{
//						Node:     stmt,
//						Message:  "Dropping {{table_name}} is not allowed.",
//						Severity: lint.SeverityError,
//					})
//					return nil
//				},
//			}
//		},
//	}
//
// # Configuration
//
//	reg := lint.NewRegistry()
//	_ = reg.Register(NoDrop)
//	cfg, err := lint.ResolveConfig(reg, lint.ConfigInput{
//		Files: []string{"**/*.sql"},
//		Rules: lint.RuleMap(lint.RuleSetting{Name: "no-drop", Value: "error"}),
//	})
//
// # Ordering
//
// Rules run in configuration order, and each rule sees every statement
// before the next rule starts. Messages therefore appear grouped by rule,
// then by statement, after any parse errors.
package lint
