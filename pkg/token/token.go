// Package token defines the token types produced by the SQL lexer.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT    // identifier, including quoted identifiers
	NUMBER   // 123, 45.67
	STRING   // 'hello'
	DQSTRING // "hello" where the dialect treats double quotes as strings

	// Punctuation and operators
	STAR      // *
	COMMA     // ,
	DOT       // .
	LPAREN    // (
	RPAREN    // )
	SEMICOLON // ;
	EQ        // =
	OPERATOR  // any other operator character run (+, -, <>, ...)

	// Keywords (alphabetical)
	ACTION
	ALTER
	AS
	AUTO_INCREMENT
	CASCADE
	COMMENT
	CONSTRAINT
	CREATE
	DATABASE
	DEFAULT
	DELETE
	DISTINCT
	DROP
	EXISTS
	FOREIGN
	FROM
	IF
	INDEX
	INSERT
	INTO
	KEY
	NO
	NOT
	NULL
	ON
	PRIMARY
	REFERENCES
	RESTRICT
	SELECT
	SET
	TABLE
	TEMPORARY
	UNIQUE
	UNSIGNED
	UPDATE
	USE
	VIEW
	WHERE
	WITH
	ZEROFILL
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF:      "EOF",
	ILLEGAL:  "ILLEGAL",
	IDENT:    "IDENT",
	NUMBER:   "NUMBER",
	STRING:   "STRING",
	DQSTRING: "DQSTRING",

	STAR:      "*",
	COMMA:     ",",
	DOT:       ".",
	LPAREN:    "(",
	RPAREN:    ")",
	SEMICOLON: ";",
	EQ:        "=",
	OPERATOR:  "OPERATOR",

	ACTION:         "ACTION",
	ALTER:          "ALTER",
	AS:             "AS",
	AUTO_INCREMENT: "AUTO_INCREMENT",
	CASCADE:        "CASCADE",
	COMMENT:        "COMMENT",
	CONSTRAINT:     "CONSTRAINT",
	CREATE:         "CREATE",
	DATABASE:       "DATABASE",
	DEFAULT:        "DEFAULT",
	DELETE:         "DELETE",
	DISTINCT:       "DISTINCT",
	DROP:           "DROP",
	EXISTS:         "EXISTS",
	FOREIGN:        "FOREIGN",
	FROM:           "FROM",
	IF:             "IF",
	INDEX:          "INDEX",
	INSERT:         "INSERT",
	INTO:           "INTO",
	KEY:            "KEY",
	NO:             "NO",
	NOT:            "NOT",
	NULL:           "NULL",
	ON:             "ON",
	PRIMARY:        "PRIMARY",
	REFERENCES:     "REFERENCES",
	RESTRICT:       "RESTRICT",
	SELECT:         "SELECT",
	SET:            "SET",
	TABLE:          "TABLE",
	TEMPORARY:      "TEMPORARY",
	UNIQUE:         "UNIQUE",
	UNSIGNED:       "UNSIGNED",
	UPDATE:         "UPDATE",
	USE:            "USE",
	VIEW:           "VIEW",
	WHERE:          "WHERE",
	WITH:           "WITH",
	ZEROFILL:       "ZEROFILL",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"action":         ACTION,
	"alter":          ALTER,
	"as":             AS,
	"auto_increment": AUTO_INCREMENT,
	"autoincrement":  AUTO_INCREMENT,
	"cascade":        CASCADE,
	"comment":        COMMENT,
	"constraint":     CONSTRAINT,
	"create":         CREATE,
	"database":       DATABASE,
	"default":        DEFAULT,
	"delete":         DELETE,
	"distinct":       DISTINCT,
	"drop":           DROP,
	"exists":         EXISTS,
	"foreign":        FOREIGN,
	"from":           FROM,
	"if":             IF,
	"index":          INDEX,
	"insert":         INSERT,
	"into":           INTO,
	"key":            KEY,
	"no":             NO,
	"not":            NOT,
	"null":           NULL,
	"on":             ON,
	"primary":        PRIMARY,
	"references":     REFERENCES,
	"restrict":       RESTRICT,
	"select":         SELECT,
	"set":            SET,
	"table":          TABLE,
	"temp":           TEMPORARY,
	"temporary":      TEMPORARY,
	"unique":         UNIQUE,
	"unsigned":       UNSIGNED,
	"update":         UPDATE,
	"use":            USE,
	"view":           VIEW,
	"where":          WHERE,
	"with":           WITH,
	"zerofill":       ZEROFILL,
}

// LookupIdent returns the token type for the given lowercase identifier.
// If the identifier is a keyword, the keyword token type is returned.
// Otherwise, IDENT is returned.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= ACTION && t <= ZEROFILL
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
	Quoted  bool // identifier was written with quotes, so it is never a keyword
}

// Is reports whether the token has the given type.
func (t Token) Is(tt TokenType) bool {
	return t.Type == tt
}

// IsWord reports whether the token is an identifier or a keyword, i.e.
// something that can be used as a name in a lenient context.
func (t Token) IsWord() bool {
	return t.Type == IDENT || IsKeyword(t.Type)
}
