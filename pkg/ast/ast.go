// Package ast defines the strict syntax tree for CREATE TABLE statements.
//
// The tree is built by package normalize from the parser's loose nodes.
// Every variant is a distinct Go type behind a sealed interface, so a
// type switch over TableDefinition, Column or Constraint is exhaustive.
// Nodes are immutable once built.
package ast

// CreateTableNode is a normalized CREATE TABLE statement.
type CreateTableNode struct {
	DB          string
	TableName   string
	Temporary   bool
	IfNotExists bool
	Definitions []TableDefinition

	// Unsupported lists columns whose data type has no Column variant.
	// They are not part of Definitions.
	Unsupported []UnsupportedColumn
}

// Columns returns the column definitions in declaration order.
func (n *CreateTableNode) Columns() []*ColumnDefinition {
	var cols []*ColumnDefinition
	for _, def := range n.Definitions {
		if c, ok := def.(*ColumnDefinition); ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// Constraints returns the table-level constraints in declaration order.
func (n *CreateTableNode) Constraints() []*ConstraintDefinition {
	var cons []*ConstraintDefinition
	for _, def := range n.Definitions {
		if c, ok := def.(*ConstraintDefinition); ok {
			cons = append(cons, c)
		}
	}
	return cons
}

// PrimaryKey returns the first PRIMARY KEY constraint, or nil.
func (n *CreateTableNode) PrimaryKey() *PrimaryKeyConstraint {
	for _, c := range n.Constraints() {
		if pk, ok := c.Constraint.(*PrimaryKeyConstraint); ok {
			return pk
		}
	}
	return nil
}

// UnsupportedColumn records a column skipped during normalization.
type UnsupportedColumn struct {
	Name     string
	DataType string
}

// TableDefinition is one entry of a table body: *ColumnDefinition or
// *ConstraintDefinition.
type TableDefinition interface {
	tableDefinition()
}

// ColumnDefinition wraps a column variant.
type ColumnDefinition struct {
	Column Column
}

func (*ColumnDefinition) tableDefinition() {}

// ConstraintDefinition wraps a constraint variant.
type ConstraintDefinition struct {
	Constraint Constraint
}

func (*ConstraintDefinition) tableDefinition() {}

// ---------- Columns ----------

// DataType is the lower-case data type tag that selects a Column variant.
type DataType string

// Supported data types.
const (
	Bigint   DataType = "bigint"
	Varchar  DataType = "varchar"
	Tinyint  DataType = "tinyint"
	Enum     DataType = "enum"
	Datetime DataType = "datetime"
)

// Column is a column variant. The concrete type is fixed by DataType:
// *BigintColumn, *VarcharColumn, *TinyintColumn, *EnumColumn or
// *DatetimeColumn.
type Column interface {
	DataType() DataType
	Base() *ColumnBase
}

// ColumnRef names a column.
type ColumnRef struct {
	Column string
}

// ColumnBase holds the fields shared by every column variant.
type ColumnBase struct {
	ColumnRef  ColumnRef
	Nullable   bool
	Comment    *Comment
	DefaultVal *Value
}

// Base returns the shared fields.
func (b *ColumnBase) Base() *ColumnBase { return b }

// Name returns the column name.
func (b *ColumnBase) Name() string { return b.ColumnRef.Column }

// BigintColumn is a BIGINT column.
type BigintColumn struct {
	ColumnBase
	Unsigned      bool
	AutoIncrement bool
}

// DataType implements Column.
func (*BigintColumn) DataType() DataType { return Bigint }

// VarcharColumn is a VARCHAR column.
type VarcharColumn struct {
	ColumnBase
	Length      *int
	Parentheses bool
}

// DataType implements Column.
func (*VarcharColumn) DataType() DataType { return Varchar }

// TinyintColumn is a TINYINT column.
type TinyintColumn struct {
	ColumnBase
}

// DataType implements Column.
func (*TinyintColumn) DataType() DataType { return Tinyint }

// EnumColumn is an ENUM column.
type EnumColumn struct {
	ColumnBase
	ExpressionList ExpressionList
}

// DataType implements Column.
func (*EnumColumn) DataType() DataType { return Enum }

// DatetimeColumn is a DATETIME column.
type DatetimeColumn struct {
	ColumnBase
}

// DataType implements Column.
func (*DatetimeColumn) DataType() DataType { return Datetime }

// ExpressionList is the value list of an ENUM.
type ExpressionList struct {
	Values      []Value
	Parentheses bool
}

// ---------- Values ----------

// ValueKind classifies a literal value.
type ValueKind string

// Value kinds. Anything the parser reports with another kind is
// normalized to SingleQuoteString.
const (
	Number            ValueKind = "number"
	SingleQuoteString ValueKind = "single_quote_string"
	DoubleQuoteString ValueKind = "double_quote_string"
)

// Value is a literal. Value holds a number for Number and a string
// otherwise.
type Value struct {
	Kind  ValueKind
	Value any
}

// Comment is a column comment with its quoting.
type Comment struct {
	Quote ValueKind
	Text  string
}

// ---------- Constraints ----------

// Constraint is a constraint variant: *PrimaryKeyConstraint or
// *ForeignKeyConstraint.
type Constraint interface {
	constraint()
}

// PrimaryKeyConstraint is a table-level PRIMARY KEY.
type PrimaryKeyConstraint struct {
	Columns []ColumnRef
}

func (*PrimaryKeyConstraint) constraint() {}

// ForeignKeyConstraint is a table-level FOREIGN KEY.
type ForeignKeyConstraint struct {
	Name      string
	Reference ReferenceDefinition
}

func (*ForeignKeyConstraint) constraint() {}

// ReferenceDefinition is the REFERENCES part of a foreign key. The zero
// value is the empty reference definition.
type ReferenceDefinition struct {
	Column    ColumnRef
	TableName string
	DB        *string
	OnAction  []OnAction
}

// IsEmpty reports whether the reference carries no target.
func (r ReferenceDefinition) IsEmpty() bool {
	return r.TableName == "" && r.Column.Column == "" && r.DB == nil && len(r.OnAction) == 0
}

// Phase is the event a referential action applies to.
type Phase string

// Phases.
const (
	OnUpdate Phase = "on_update"
	OnDelete Phase = "on_delete"
)

// Action is a referential action.
type Action string

// Actions.
const (
	Cascade    Action = "cascade"
	SetNull    Action = "set_null"
	SetDefault Action = "set_default"
	Restrict   Action = "restrict"
	NoAction   Action = "no_action"
)

// OnAction pairs a phase with its action.
type OnAction struct {
	Phase  Phase
	Action Action
}
