package rules

import (
	"github.com/leapstack-labs/sqlint/pkg/lint"
	"github.com/leapstack-labs/sqlint/pkg/normalize"
)

const selectStarMessage = "Unexpected SELECT *. Specify explicit column names instead."

// NoSelectStar reports SELECT * and t.* projections, once per star.
var NoSelectStar = lint.Rule{
	Name: "no-select-star",
	Meta: lint.Meta{
		Description: "Disallow SELECT * statements",
		Category:    "Best Practices",
		Recommended: lint.Bool(true),
	},
	Create: func(ctx *lint.Context) lint.Listener {
		return lint.Listener{
			Select: func(stmt *lint.Statement) error {
				for _, col := range normalize.SelectColumns(stmt.Raw) {
					if !col.Star {
						continue
					}
					var data map[string]string
					if col.Table != "" {
						data = map[string]string{"table": col.Table}
					}
					ctx.Report(lint.Descriptor{
						Node:     stmt,
						Message:  selectStarMessage,
						Severity: lint.SeverityWarning,
						Data:     data,
					})
				}
				return nil
			},
		}
	},
}
