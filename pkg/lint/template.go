package lint

import (
	"strings"

	"github.com/leapstack-labs/sqlint/pkg/ast"
	"github.com/leapstack-labs/sqlint/pkg/normalize"
	"github.com/leapstack-labs/sqlint/pkg/sqlparser"
)

const unknownValue = "unknown"

var placeholders = []struct {
	key     string
	extract func(node any) string
}{
	{"{{database_name}}", databaseName},
	{"{{table_name}}", tableName},
	{"{{column_name}}", columnName},
}

// expandTemplate replaces the known placeholders in msg. Values come from
// node first and from the current statement second; "unknown" is used
// when neither has one.
func expandTemplate(msg string, node any, stmt *Statement) string {
	if !strings.Contains(msg, "{{") {
		return msg
	}
	for _, p := range placeholders {
		if !strings.Contains(msg, p.key) {
			continue
		}
		v := p.extract(node)
		if v == "" && stmt != nil && node != any(stmt) {
			v = p.extract(stmt)
		}
		if v == "" {
			v = unknownValue
		}
		msg = strings.ReplaceAll(msg, p.key, v)
	}
	return msg
}

func databaseName(node any) string {
	switch n := node.(type) {
	case *Statement:
		if n == nil {
			return ""
		}
		if n.Table != nil {
			return n.Table.DB
		}
		return normalize.Database(n.Raw)
	case *ast.CreateTableNode:
		if n == nil {
			return ""
		}
		return n.DB
	case sqlparser.Node:
		return normalize.Database(n)
	}
	return ""
}

func tableName(node any) string {
	switch n := node.(type) {
	case *Statement:
		if n == nil {
			return ""
		}
		if n.Table != nil {
			return n.Table.TableName
		}
		return tableName(n.Raw)
	case *ast.CreateTableNode:
		if n == nil {
			return ""
		}
		return n.TableName
	case sqlparser.Node:
		if tables := normalize.Tables(n); len(tables) > 0 {
			return tables[0].Table
		}
	}
	return ""
}

func columnName(node any) string {
	switch n := node.(type) {
	case *ast.ColumnDefinition:
		if n == nil || n.Column == nil {
			return ""
		}
		return n.Column.Base().Name()
	case ast.Column:
		if n == nil {
			return ""
		}
		return n.Base().Name()
	case sqlparser.Node:
		if name, ok := normalize.ColumnName(n); ok {
			return name
		}
	}
	return ""
}
