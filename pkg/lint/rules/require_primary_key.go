package rules

import (
	"github.com/leapstack-labs/sqlint/pkg/lint"
	"github.com/leapstack-labs/sqlint/pkg/sqlparser"
)

// RequirePrimaryKey reports CREATE TABLE statements without a primary key,
// declared either as a table constraint or inline on a column. Tables
// created from a query (CREATE TABLE ... AS SELECT / LIKE) are skipped.
var RequirePrimaryKey = lint.Rule{
	Name: "require-primary-key",
	Meta: lint.Meta{
		Description: "Require a primary key on every table",
		Category:    "Best Practices",
		Recommended: lint.Bool(false),
	},
	Create: func(ctx *lint.Context) lint.Listener {
		return lint.Listener{
			Create: func(stmt *lint.Statement) error {
				if stmt.Raw.String("keyword") != "table" || stmt.Raw["create_definitions"] == nil {
					return nil
				}
				if hasPrimaryKey(stmt) {
					return nil
				}
				ctx.Report(lint.Descriptor{
					Node:     stmt,
					Severity: lint.SeverityWarning,
					Message:  "Table '{{table_name}}' has no primary key.",
				})
				return nil
			},
		}
	},
}

func hasPrimaryKey(stmt *lint.Statement) bool {
	if stmt.Table != nil && stmt.Table.PrimaryKey() != nil {
		return true
	}
	for _, raw := range stmt.Raw.List("create_definitions") {
		def := sqlparser.AsNode(raw)
		if def == nil {
			continue
		}
		switch def.String("resource") {
		case "column":
			if def.Truthy("primary_key") {
				return true
			}
		case "constraint":
			if def.String("constraint_type") == "primary key" {
				return true
			}
		}
	}
	return false
}
