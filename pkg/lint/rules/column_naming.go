package rules

import (
	"github.com/leapstack-labs/sqlint/pkg/lint"
)

// ColumnNamingConvention requires snake_case column names in CREATE TABLE.
// It needs the normalized table, so columns of types the normalizer does
// not model are not checked.
//
// Options:
//   - ignore: column names to skip
var ColumnNamingConvention = lint.Rule{
	Name: "column-naming-convention",
	Meta: lint.Meta{
		Description: "Enforce snake_case column names",
		Category:    "Stylistic Issues",
	},
	Create: func(ctx *lint.Context) lint.Listener {
		skip := ctx.Options().Strings("ignore", nil)

		return lint.Listener{
			Create: func(stmt *lint.Statement) error {
				if stmt.Table == nil {
					return nil
				}
				for _, def := range stmt.Table.Columns() {
					name := def.Column.Base().Name()
					if isSnakeCase(name) || ignored(skip, name) {
						continue
					}
					ctx.Report(lint.Descriptor{
						Node:     def,
						Severity: lint.SeverityInfo,
						Message:  "Column '{{column_name}}' of table '{{table_name}}' should use snake_case.",
						Data: map[string]string{
							"columnName":    name,
							"suggestedName": toSnakeCase(name),
						},
					})
				}
				return nil
			},
		}
	},
}
