package plugin

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/sqlint/pkg/ast"
	"github.com/leapstack-labs/sqlint/pkg/sqlparser"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// GoToStarlark converts a Go value to a Starlark value.
// Supported types: string, int, int64, float64, bool, []string, []any,
// map[string]any and sqlparser.Node. Dict keys are inserted in sorted
// order so iteration inside a plugin is deterministic.
func GoToStarlark(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case string:
		return starlark.String(val), nil

	case int:
		return starlark.MakeInt(val), nil

	case int64:
		return starlark.MakeInt64(val), nil

	case float64:
		return starlark.Float(val), nil

	case bool:
		return starlark.Bool(val), nil

	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil

	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := GoToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case []sqlparser.Node:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := GoToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case sqlparser.Node:
		return mapToDict(val)

	case map[string]any:
		return mapToDict(val)

	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func mapToDict(m map[string]any) (*starlark.Dict, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dict := starlark.NewDict(len(m))
	for _, k := range keys {
		sv, err := GoToStarlark(m[k])
		if err != nil {
			return nil, fmt.Errorf("dict key %q: %w", k, err)
		}
		if err := dict.SetKey(starlark.String(k), sv); err != nil {
			return nil, fmt.Errorf("dict setkey %q: %w", k, err)
		}
	}
	return dict, nil
}

// ToGo converts a Starlark value back to a Go value.
// Returns: string, int64, float64, bool, []any, map[string]any, or nil
func ToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil

	case starlark.String:
		return string(val), nil

	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			return val.String(), nil
		}
		return i64, nil

	case starlark.Float:
		return float64(val), nil

	case starlark.Bool:
		return bool(val), nil

	case *starlark.List:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := ToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			result[i] = gv
		}
		return result, nil

	case starlark.Tuple:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := ToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("tuple index %d: %w", i, err)
			}
			result[i] = gv
		}
		return result, nil

	case *starlark.Dict:
		result := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			gv, err := ToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", string(key), err)
			}
			result[string(key)] = gv
		}
		return result, nil

	default:
		return val.String(), nil
	}
}

// tableToStarlark exposes a normalized CREATE TABLE as nested structs:
//
//	table.name, table.db, table.temporary, table.if_not_exists
//	table.columns[i].name / .data_type / .nullable / .comment / .default
//	table.primary_key       (list of column names, or None)
//	table.foreign_keys[i].name / .table / .column
//	table.unsupported[i].name / .data_type
func tableToStarlark(t *ast.CreateTableNode) starlark.Value {
	if t == nil {
		return starlark.None
	}

	cols := make([]starlark.Value, 0, len(t.Definitions))
	for _, def := range t.Columns() {
		cols = append(cols, columnToStarlark(def.Column))
	}

	var pk starlark.Value = starlark.None
	if p := t.PrimaryKey(); p != nil {
		names := make([]starlark.Value, len(p.Columns))
		for i, c := range p.Columns {
			names[i] = starlark.String(c.Column)
		}
		pk = starlark.NewList(names)
	}

	var fks []starlark.Value
	for _, c := range t.Constraints() {
		fk, ok := c.Constraint.(*ast.ForeignKeyConstraint)
		if !ok {
			continue
		}
		fks = append(fks, starlarkstruct.FromStringDict(starlark.String("foreign_key"), starlark.StringDict{
			"name":   starlark.String(fk.Name),
			"table":  starlark.String(fk.Reference.TableName),
			"column": starlark.String(fk.Reference.Column.Column),
		}))
	}

	unsupported := make([]starlark.Value, len(t.Unsupported))
	for i, u := range t.Unsupported {
		unsupported[i] = starlarkstruct.FromStringDict(starlark.String("unsupported_column"), starlark.StringDict{
			"name":      starlark.String(u.Name),
			"data_type": starlark.String(u.DataType),
		})
	}

	return starlarkstruct.FromStringDict(starlark.String("table"), starlark.StringDict{
		"name":          starlark.String(t.TableName),
		"db":            optionalString(t.DB),
		"temporary":     starlark.Bool(t.Temporary),
		"if_not_exists": starlark.Bool(t.IfNotExists),
		"columns":       starlark.NewList(cols),
		"primary_key":   pk,
		"foreign_keys":  starlark.NewList(fks),
		"unsupported":   starlark.NewList(unsupported),
	})
}

func columnToStarlark(col ast.Column) starlark.Value {
	base := col.Base()

	var comment starlark.Value = starlark.None
	if base.Comment != nil {
		comment = starlark.String(base.Comment.Text)
	}

	var def starlark.Value = starlark.None
	if base.DefaultVal != nil {
		if v, err := GoToStarlark(base.DefaultVal.Value); err == nil {
			def = v
		} else {
			def = starlark.String(fmt.Sprint(base.DefaultVal.Value))
		}
	}

	return starlarkstruct.FromStringDict(starlark.String("column"), starlark.StringDict{
		"name":      starlark.String(base.Name()),
		"data_type": starlark.String(string(col.DataType())),
		"nullable":  starlark.Bool(base.Nullable),
		"comment":   comment,
		"default":   def,
	})
}

func optionalString(s string) starlark.Value {
	if s == "" {
		return starlark.None
	}
	return starlark.String(s)
}
