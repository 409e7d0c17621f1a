package normalize

import (
	"github.com/leapstack-labs/sqlint/pkg/sqlparser"
)

// TableIdent is a possibly database-qualified table name.
type TableIdent struct {
	DB    string
	Table string
}

// ColumnName resolves a column name from either a plain string, a
// column_ref node whose column is a string, or the structured
// {expr:{value}} form used for quoted identifiers.
func ColumnName(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, x != ""
	case nil:
		return "", false
	}
	n := sqlparser.AsNode(v)
	if n == nil {
		return "", false
	}
	if n.Type() == "column_ref" || n.Has("column") {
		return ColumnName(n["column"])
	}
	if expr := n.Node("expr"); expr != nil {
		if s, ok := expr["value"].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func firstTable(list []any) (db, table string, ok bool) {
	if len(list) == 0 {
		return "", "", false
	}
	n := sqlparser.AsNode(list[0])
	if n == nil {
		return "", "", false
	}
	table = n.String("table")
	return n.String("db"), table, table != ""
}

// Tables returns the tables a statement node targets: the created,
// altered or dropped table, the DML target, or the FROM list of a SELECT.
func Tables(node sqlparser.Node) []TableIdent {
	var list []any
	switch node.Type() {
	case "select":
		list = node.List("from")
	case "drop":
		list = node.List("name")
	default:
		list = node.List("table")
	}

	var out []TableIdent
	for _, raw := range list {
		n := sqlparser.AsNode(raw)
		if n == nil || n.String("table") == "" {
			continue
		}
		out = append(out, TableIdent{DB: n.String("db"), Table: n.String("table")})
	}
	return out
}

// Database returns the database a statement refers to: the USE target, or
// the database qualifier of its first table.
func Database(node sqlparser.Node) string {
	if node.Type() == "use" {
		return node.String("db")
	}
	for _, t := range Tables(node) {
		if t.DB != "" {
			return t.DB
		}
	}
	return ""
}

// SelectColumn is one entry of a SELECT list.
type SelectColumn struct {
	Table  string
	Column string // "" for expressions
	Alias  string
	Star   bool
}

// SelectColumns returns the select list of a SELECT node. A bare "*"
// column list is reported as a single star column.
func SelectColumns(node sqlparser.Node) []SelectColumn {
	if node.Type() != "select" {
		return nil
	}
	if s, ok := node["columns"].(string); ok {
		if s == "*" {
			return []SelectColumn{{Column: "*", Star: true}}
		}
		return nil
	}

	var out []SelectColumn
	for _, raw := range node.List("columns") {
		item := sqlparser.AsNode(raw)
		if item == nil {
			continue
		}
		col := SelectColumn{Alias: item.String("as")}
		expr := item.Node("expr")
		switch expr.Type() {
		case "column_ref":
			col.Table = expr.String("table")
			col.Column, _ = ColumnName(expr["column"])
			col.Star = col.Column == "*" && expr.String("column") == "*"
		case "star":
			col.Column = "*"
			col.Star = true
		}
		out = append(out, col)
	}
	return out
}

// HasSelectStar reports whether a SELECT node selects "*" or "t.*".
func HasSelectStar(node sqlparser.Node) bool {
	for _, c := range SelectColumns(node) {
		if c.Star {
			return true
		}
	}
	return false
}
