package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/leapstack-labs/sqlint/pkg/ast"
	"github.com/leapstack-labs/sqlint/pkg/sqlparser"
)

func TestGoToStarlark(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantStr string
		wantErr bool
	}{
		{name: "string", input: "hello", wantStr: `"hello"`},
		{name: "int", input: 42, wantStr: "42"},
		{name: "int64", input: int64(123456789), wantStr: "123456789"},
		{name: "float64", input: 3.14, wantStr: "3.14"},
		{name: "bool", input: true, wantStr: "True"},
		{name: "nil", input: nil, wantStr: "None"},
		{name: "string slice", input: []string{"a", "b"}, wantStr: `["a", "b"]`},
		{name: "any slice", input: []any{"a", 1, nil}, wantStr: `["a", 1, None]`},
		{name: "map sorted", input: map[string]any{"b": 2, "a": 1}, wantStr: `{"a": 1, "b": 2}`},
		{
			name:    "node",
			input:   sqlparser.TableRef("", "users"),
			wantStr: `{"db": None, "table": "users"}`,
		},
		{
			name:    "nested node in list",
			input:   []any{sqlparser.Value("number", 5)},
			wantStr: `[{"type": "number", "value": 5}]`,
		},
		{name: "unsupported", input: struct{}{}, wantErr: true},
		{name: "unsupported nested", input: map[string]any{"x": []int{1}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GoToStarlark(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStr, got.String())
		})
	}
}

func TestToGo(t *testing.T) {
	dict := starlark.NewDict(2)
	require.NoError(t, dict.SetKey(starlark.String("k"), starlark.MakeInt(1)))
	require.NoError(t, dict.SetKey(starlark.String("l"), starlark.NewList([]starlark.Value{starlark.String("x")})))

	tests := []struct {
		name  string
		input starlark.Value
		want  any
	}{
		{"none", starlark.None, nil},
		{"string", starlark.String("s"), "s"},
		{"int", starlark.MakeInt(7), int64(7)},
		{"float", starlark.Float(1.5), 1.5},
		{"bool", starlark.True, true},
		{"tuple", starlark.Tuple{starlark.MakeInt(1), starlark.String("a")}, []any{int64(1), "a"}},
		{"dict", dict, map[string]any{"k": int64(1), "l": []any{"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToGo(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("non-string key", func(t *testing.T) {
		d := starlark.NewDict(1)
		require.NoError(t, d.SetKey(starlark.MakeInt(1), starlark.None))
		_, err := ToGo(d)
		require.Error(t, err)
	})
}

func TestTableToStarlark(t *testing.T) {
	assert.Equal(t, starlark.None, tableToStarlark(nil))

	length := 20
	table := &ast.CreateTableNode{
		DB:        "shop",
		TableName: "orders",
		Definitions: []ast.TableDefinition{
			&ast.ColumnDefinition{Column: &ast.BigintColumn{ColumnBase: ast.ColumnBase{ColumnRef: ast.ColumnRef{Column: "id"}}}},
			&ast.ColumnDefinition{Column: &ast.VarcharColumn{
				ColumnBase: ast.ColumnBase{
					ColumnRef: ast.ColumnRef{Column: "note"},
					Nullable:  true,
					Comment:   &ast.Comment{Quote: ast.SingleQuoteString, Text: "free text"},
				},
				Length: &length,
			}},
			&ast.ConstraintDefinition{Constraint: &ast.PrimaryKeyConstraint{Columns: []ast.ColumnRef{{Column: "id"}}}},
			&ast.ConstraintDefinition{Constraint: &ast.ForeignKeyConstraint{
				Name:      "fk_user",
				Reference: ast.ReferenceDefinition{TableName: "users", Column: ast.ColumnRef{Column: "id"}},
			}},
		},
		Unsupported: []ast.UnsupportedColumn{{Name: "total", DataType: "decimal"}},
	}

	v := tableToStarlark(table)
	s, ok := v.(*starlarkstruct.Struct)
	require.True(t, ok)

	attr := func(v starlark.Value, name string) starlark.Value {
		t.Helper()
		st, ok := v.(*starlarkstruct.Struct)
		require.True(t, ok, "not a struct: %s", v.Type())
		got, err := st.Attr(name)
		require.NoError(t, err)
		return got
	}

	assert.Equal(t, starlark.String("orders"), attr(s, "name"))
	assert.Equal(t, starlark.String("shop"), attr(s, "db"))
	assert.Equal(t, starlark.False, attr(s, "temporary"))
	assert.Equal(t, `["id"]`, attr(s, "primary_key").String())

	cols := attr(s, "columns").(*starlark.List)
	require.Equal(t, 2, cols.Len())
	note := cols.Index(1)
	assert.Equal(t, starlark.String("note"), attr(note, "name"))
	assert.Equal(t, starlark.String("varchar"), attr(note, "data_type"))
	assert.Equal(t, starlark.True, attr(note, "nullable"))
	assert.Equal(t, starlark.String("free text"), attr(note, "comment"))
	assert.Equal(t, starlark.None, attr(note, "default"))

	fks := attr(s, "foreign_keys").(*starlark.List)
	require.Equal(t, 1, fks.Len())
	assert.Equal(t, starlark.String("users"), attr(fks.Index(0), "table"))

	unsupported := attr(s, "unsupported").(*starlark.List)
	require.Equal(t, 1, unsupported.Len())
	assert.Equal(t, starlark.String("decimal"), attr(unsupported.Index(0), "data_type"))
}
