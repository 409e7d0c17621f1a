package rules

import (
	"fmt"

	"github.com/leapstack-labs/sqlint/pkg/lint"
	"github.com/leapstack-labs/sqlint/pkg/normalize"
)

// TableNamingConvention requires snake_case table names in CREATE TABLE.
//
// Options:
//   - ignore: table names to skip
var TableNamingConvention = lint.Rule{
	Name: "table-naming-convention",
	Meta: lint.Meta{
		Description: "Enforce consistent table naming conventions (snake_case)",
		Category:    "Stylistic Issues",
		Recommended: lint.Bool(true),
	},
	Create: func(ctx *lint.Context) lint.Listener {
		skip := ctx.Options().Strings("ignore", nil)

		return lint.Listener{
			Create: func(stmt *lint.Statement) error {
				if stmt.Raw.String("keyword") != "table" {
					return nil
				}
				tables := normalize.Tables(stmt.Raw)
				if len(tables) == 0 {
					return nil
				}
				name := tables[0].Table
				if isSnakeCase(name) || ignored(skip, name) {
					return nil
				}

				suggested := toSnakeCase(name)
				ctx.Report(lint.Descriptor{
					Node:     stmt,
					Severity: lint.SeverityWarning,
					Message: fmt.Sprintf("Table name '%s' should use snake_case convention. Consider '%s'.",
						name, suggested),
					Data: map[string]string{
						"tableName":     name,
						"suggestedName": suggested,
					},
				})
				return nil
			},
		}
	},
}
