// Package normalize lifts the parser's loose CREATE TABLE nodes into the
// strict tree of package ast.
//
// It is the only package that reads the shape of sqlparser.Node beyond
// the "type" tag; swapping the parser means rewriting this package and
// nothing else.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlint/pkg/ast"
	"github.com/leapstack-labs/sqlint/pkg/sqlparser"
)

// ErrMissingColumnName is returned when a column or key reference has no
// resolvable name.
var ErrMissingColumnName = errors.New("missing column name")

// CreateTable normalizes a CREATE TABLE node. It returns (nil, nil) for
// nodes that are not CREATE TABLE, such as CREATE INDEX or a SELECT.
func CreateTable(node sqlparser.Node) (*ast.CreateTableNode, error) {
	if node.Type() != "create" || !strings.EqualFold(node.String("keyword"), "table") {
		return nil, nil
	}

	out := &ast.CreateTableNode{
		Temporary:   node.Truthy("temporary"),
		IfNotExists: node.Truthy("if_not_exists"),
	}
	if db, table, ok := firstTable(node.List("table")); ok {
		out.DB = db
		out.TableName = table
	}

	for i, raw := range node.List("create_definitions") {
		def := sqlparser.AsNode(raw)
		if def == nil {
			continue
		}
		switch def.String("resource") {
		case "column":
			col, err := column(def)
			if err != nil {
				return nil, fmt.Errorf("table %s: definition %d: %w", out.TableName, i+1, err)
			}
			if col == nil {
				name, _ := ColumnName(def["column"])
				out.Unsupported = append(out.Unsupported, ast.UnsupportedColumn{
					Name:     name,
					DataType: strings.ToLower(def.Node("definition").String("dataType")),
				})
				continue
			}
			out.Definitions = append(out.Definitions, &ast.ColumnDefinition{Column: col})
		case "constraint":
			c, err := constraint(def)
			if err != nil {
				return nil, fmt.Errorf("table %s: definition %d: %w", out.TableName, i+1, err)
			}
			if c != nil {
				out.Definitions = append(out.Definitions, &ast.ConstraintDefinition{Constraint: c})
			}
		}
	}
	return out, nil
}

// Statements normalizes every CREATE TABLE node in nodes. Failing
// statements are left out of the result and reported together in the
// returned error.
func Statements(nodes []sqlparser.Node) ([]*ast.CreateTableNode, error) {
	var (
		out  []*ast.CreateTableNode
		errs []error
	)
	for i, n := range nodes {
		t, err := CreateTable(n)
		if err != nil {
			errs = append(errs, fmt.Errorf("statement %d: %w", i+1, err))
			continue
		}
		if t != nil {
			out = append(out, t)
		}
	}
	return out, errors.Join(errs...)
}

// ---------- Columns ----------

// column builds the Column variant for a column definition. A nil Column
// with a nil error means the data type is unsupported.
func column(def sqlparser.Node) (ast.Column, error) {
	name, ok := ColumnName(def["column"])
	if !ok {
		return nil, ErrMissingColumnName
	}

	base := ast.ColumnBase{
		ColumnRef: ast.ColumnRef{Column: name},
		Nullable:  !isNotNull(def.Node("nullable")),
		Comment:   comment(def.Node("comment")),
	}
	if dv := def.Node("default_val"); dv != nil {
		if v := dv.Node("value"); v != nil {
			val := value(v)
			base.DefaultVal = &val
		}
	}

	typeDef := def.Node("definition")
	switch ast.DataType(strings.ToLower(typeDef.String("dataType"))) {
	case ast.Bigint:
		return &ast.BigintColumn{
			ColumnBase:    base,
			Unsigned:      firstSuffix(typeDef) == "UNSIGNED",
			AutoIncrement: def.Truthy("auto_increment"),
		}, nil
	case ast.Varchar:
		return &ast.VarcharColumn{
			ColumnBase:  base,
			Length:      intValue(typeDef["length"]),
			Parentheses: typeDef.Truthy("parentheses"),
		}, nil
	case ast.Tinyint:
		return &ast.TinyintColumn{ColumnBase: base}, nil
	case ast.Enum:
		expr := typeDef.Node("expr")
		list := ast.ExpressionList{Parentheses: expr.Truthy("parentheses")}
		for _, raw := range expr.List("value") {
			if v := sqlparser.AsNode(raw); v != nil {
				list.Values = append(list.Values, value(v))
			}
		}
		return &ast.EnumColumn{ColumnBase: base, ExpressionList: list}, nil
	case ast.Datetime:
		return &ast.DatetimeColumn{ColumnBase: base}, nil
	}
	return nil, nil
}

func isNotNull(n sqlparser.Node) bool {
	return n != nil && strings.EqualFold(n.String("type"), "not null")
}

func firstSuffix(typeDef sqlparser.Node) string {
	suffix := typeDef.List("suffix")
	if len(suffix) == 0 {
		return ""
	}
	s, _ := suffix[0].(string)
	return s
}

func comment(n sqlparser.Node) *ast.Comment {
	if n == nil {
		return nil
	}
	v := n.Node("value")
	if v == nil {
		return nil
	}
	quote := ast.DoubleQuoteString
	if v.Type() == string(ast.SingleQuoteString) {
		quote = ast.SingleQuoteString
	}
	return &ast.Comment{Quote: quote, Text: stringify(v["value"])}
}

// value maps a literal node onto one of the three value kinds. Unknown
// kinds fall back to a single-quoted string holding the stringified value.
func value(n sqlparser.Node) ast.Value {
	switch kind := ast.ValueKind(n.Type()); kind {
	case ast.Number, ast.SingleQuoteString, ast.DoubleQuoteString:
		return ast.Value{Kind: kind, Value: n["value"]}
	}
	if n.Type() == "function" && !n.Has("value") {
		name := stringify(n["name"])
		if args, ok := n["args"].(string); ok {
			name += "(" + args + ")"
		}
		return ast.Value{Kind: ast.SingleQuoteString, Value: name}
	}
	return ast.Value{Kind: ast.SingleQuoteString, Value: stringify(n["value"])}
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func intValue(v any) *int {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		n = int(x)
	default:
		return nil
	}
	return &n
}

// ---------- Constraints ----------

func constraint(def sqlparser.Node) (ast.Constraint, error) {
	switch strings.ToLower(def.String("constraint_type")) {
	case "primary key":
		cols, err := columnRefs(def.List("definition"))
		if err != nil {
			return nil, fmt.Errorf("primary key: %w", err)
		}
		return &ast.PrimaryKeyConstraint{Columns: cols}, nil
	case "foreign key":
		return &ast.ForeignKeyConstraint{
			Name:      def.String("constraint"),
			Reference: referenceDefinition(def.Node("reference_definition")),
		}, nil
	}
	return nil, nil
}

func columnRefs(list []any) ([]ast.ColumnRef, error) {
	refs := make([]ast.ColumnRef, 0, len(list))
	for _, raw := range list {
		name, ok := ColumnName(raw)
		if !ok {
			return nil, ErrMissingColumnName
		}
		refs = append(refs, ast.ColumnRef{Column: name})
	}
	return refs, nil
}

// referenceDefinition converts a REFERENCES clause. A shape that fails
// validation yields the empty reference definition.
func referenceDefinition(n sqlparser.Node) ast.ReferenceDefinition {
	if !validReference(n) {
		return ast.ReferenceDefinition{}
	}

	db, table, _ := firstTable(n.List("table"))
	ref := ast.ReferenceDefinition{TableName: table}
	if db != "" {
		ref.DB = &db
	}
	if cols := n.List("definition"); len(cols) > 0 {
		name, _ := ColumnName(cols[0])
		ref.Column = ast.ColumnRef{Column: name}
	}
	for _, raw := range n.List("on_action") {
		a := sqlparser.AsNode(raw)
		ref.OnAction = append(ref.OnAction, ast.OnAction{
			Phase:  phase(a.String("type")),
			Action: action(a.Node("value").String("value")),
		})
	}
	return ref
}

func validReference(n sqlparser.Node) bool {
	if n == nil {
		return false
	}
	if _, _, ok := firstTable(n.List("table")); !ok {
		return false
	}
	if cols, ok := n["definition"]; ok && cols != nil {
		list, isList := cols.([]any)
		if !isList {
			return false
		}
		if len(list) > 0 {
			if _, ok := ColumnName(list[0]); !ok {
				return false
			}
		}
	}
	if actions, ok := n["on_action"]; ok && actions != nil {
		list, isList := actions.([]any)
		if !isList {
			return false
		}
		for _, raw := range list {
			a := sqlparser.AsNode(raw)
			if a == nil || a.String("type") == "" || a.Node("value") == nil {
				return false
			}
		}
	}
	return true
}

func phase(s string) ast.Phase {
	if strings.EqualFold(s, "on update") {
		return ast.OnUpdate
	}
	return ast.OnDelete
}

func action(s string) ast.Action {
	switch strings.ToLower(s) {
	case "restrict":
		return ast.Restrict
	case "cascade":
		return ast.Cascade
	case "set null":
		return ast.SetNull
	case "no action":
		return ast.NoAction
	}
	return ast.SetDefault
}
