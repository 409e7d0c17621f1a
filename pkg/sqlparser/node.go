package sqlparser

import (
	"fmt"

	"github.com/leapstack-labs/sqlint/pkg/token"
)

// Node is one node of the loosely-typed syntax tree produced by the parser.
// Every statement node carries a "type" discriminator ("create", "select",
// ...). Children are Node values, []any lists, strings, numbers, bools or
// nil. Consumers that need strict shapes go through package normalize.
type Node map[string]any

// Type returns the discriminator tag of the node, or "" when absent.
func (n Node) Type() string {
	return n.String("type")
}

// Has reports whether key is present with a non-nil value.
func (n Node) Has(key string) bool {
	v, ok := n[key]
	return ok && v != nil
}

// String returns the string value at key, or "" when absent or not a string.
func (n Node) String(key string) string {
	if s, ok := n[key].(string); ok {
		return s
	}
	return ""
}

// Truthy reports whether the value at key is set in the loose sense used by
// flag fields: non-nil, not false, not "".
func (n Node) Truthy(key string) bool {
	switch v := n[key].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	default:
		return true
	}
}

// Node returns the child node at key, or nil.
func (n Node) Node(key string) Node {
	return AsNode(n[key])
}

// List returns the list at key, or nil.
func (n Node) List(key string) []any {
	if l, ok := n[key].([]any); ok {
		return l
	}
	return nil
}

// AsNode converts a loose value to a Node when it is one.
func AsNode(v any) Node {
	switch m := v.(type) {
	case Node:
		return m
	case map[string]any:
		return Node(m)
	default:
		return nil
	}
}

// Span returns the source range recorded under "loc", if any.
func (n Node) Span() (token.Span, bool) {
	loc := n.Node("loc")
	if loc == nil {
		return token.Span{}, false
	}
	start, ok1 := positionFrom(loc.Node("start"))
	end, ok2 := positionFrom(loc.Node("end"))
	if !ok1 || !ok2 {
		return token.Span{}, false
	}
	return token.Span{Start: start, End: end}, true
}

func positionFrom(n Node) (token.Position, bool) {
	if n == nil {
		return token.Position{}, false
	}
	line, ok1 := n["line"].(int)
	col, ok2 := n["column"].(int)
	off, _ := n["offset"].(int)
	if !ok1 || !ok2 {
		return token.Position{}, false
	}
	return token.Position{Line: line, Column: col, Offset: off}, true
}

func locNode(span token.Span) Node {
	return Node{
		"start": Node{"line": span.Start.Line, "column": span.Start.Column, "offset": span.Start.Offset},
		"end":   Node{"line": span.End.Line, "column": span.End.Column, "offset": span.End.Offset},
	}
}

// TableRef builds the {db, table} node used in "table" and "from" lists.
func TableRef(db, table string) Node {
	var dbVal any
	if db != "" {
		dbVal = db
	}
	return Node{"db": dbVal, "table": table}
}

// ColumnRef builds a column_ref node. A quoted identifier uses the
// structured {expr:{type, value}} form for the column field.
func ColumnRef(table, column string, quote string) Node {
	var tableVal any
	if table != "" {
		tableVal = table
	}
	var colVal any = column
	if quote != "" {
		colVal = Node{"expr": Node{"type": quote, "value": column}}
	}
	return Node{"type": "column_ref", "table": tableVal, "column": colVal}
}

// Value builds a typed literal node.
func Value(kind string, v any) Node {
	return Node{"type": kind, "value": v}
}

// ParseError describes a syntax error. Line and Column are 1-based.
type ParseError struct {
	Message string `json:"message"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s (line %d, column %d)", e.Message, e.Line, e.Column)
}
