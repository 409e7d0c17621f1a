package sqlparser

import (
	"fmt"
	"strings"
)

// Dialect is the target SQL flavor. It controls identifier quoting and a
// few lexical details.
type Dialect string

// Supported dialects.
const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
	MSSQL    Dialect = "mssql"
)

// DefaultDialect is used when no dialect is configured.
const DefaultDialect = MySQL

// Dialects returns all supported dialects in a stable order.
func Dialects() []Dialect {
	return []Dialect{MySQL, Postgres, SQLite, MSSQL}
}

// DialectNames returns the supported dialect names.
func DialectNames() []string {
	ds := Dialects()
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = string(d)
	}
	return names
}

// ParseDialect converts a name to a Dialect. Matching is case-insensitive.
func ParseDialect(name string) (Dialect, error) {
	d := Dialect(strings.ToLower(strings.TrimSpace(name)))
	if d.Valid() {
		return d, nil
	}
	return "", fmt.Errorf("unsupported database: %s. Supported: %s", name, strings.Join(DialectNames(), ", "))
}

// Valid reports whether d is one of the supported dialects.
func (d Dialect) Valid() bool {
	switch d {
	case MySQL, Postgres, SQLite, MSSQL:
		return true
	default:
		return false
	}
}

// String returns the dialect name.
func (d Dialect) String() string {
	return string(d)
}

// DoubleQuoteIsString reports whether "..." is a string literal rather
// than a quoted identifier.
func (d Dialect) DoubleQuoteIsString() bool {
	return d == MySQL
}

// AllowsBacktick reports whether `...` quotes identifiers.
func (d Dialect) AllowsBacktick() bool {
	return d == MySQL || d == SQLite
}

// AllowsBracket reports whether [...] quotes identifiers.
func (d Dialect) AllowsBracket() bool {
	return d == MSSQL || d == SQLite
}

// quoteKind names the quoting style of an identifier, in the vocabulary of
// the node tree.
func (d Dialect) quoteKind() string {
	switch d {
	case MySQL:
		return "backticks_quote_string"
	case MSSQL:
		return "bracket_quote_string"
	default:
		return "double_quote_string"
	}
}
