// Package sqlparser is the default statement reader behind lint.Parser.
//
// It is not a SQL grammar. It tokenizes the input, splits it into
// statements on top-level semicolons and builds a loosely-typed Node tree
// for each one: full detail for CREATE TABLE, the select list and FROM
// tables for SELECT, and the target tables for the other statement kinds.
// The shape follows the tag-discriminated trees of common JavaScript SQL
// parsers, so the rest of sqlint treats it as an external collaborator:
//
//	statement  → create | select | insert | update | delete | alter | drop | use | other
//	create     → CREATE [TEMPORARY] TABLE [IF NOT EXISTS] name '(' create_def {',' create_def} ')' [options]
//	create_def → column_def | [CONSTRAINT name] (PRIMARY KEY | FOREIGN KEY | UNIQUE | KEY | INDEX) ...
//	column_def → name data_type [column_option ...]
//
// Syntax errors are collected per statement; reading resumes at the next
// statement so the caller gets partial results.
package sqlparser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlint/pkg/token"
)

// Options controls parsing.
type Options struct {
	Database Dialect
}

// Result holds the statements that parsed and the errors for the ones
// that did not.
type Result struct {
	Statements []Node
	Errors     []ParseError
}

// Parser is the default implementation of the lint.Parser contract.
type Parser struct{}

// New creates a parser.
func New() *Parser {
	return &Parser{}
}

// Parse reads sql into statement nodes. The returned error is reserved for
// invalid options; syntax errors are reported in Result.Errors.
func (p *Parser) Parse(sql string, opts Options) (*Result, error) {
	d := opts.Database
	if d == "" {
		d = DefaultDialect
	}
	if !d.Valid() {
		return nil, fmt.Errorf("unsupported database: %s", d)
	}
	return Parse(sql, d), nil
}

// Parse reads sql using dialect d.
func Parse(sql string, d Dialect) *Result {
	toks := NewLexer(sql, d).Tokenize()
	res := &Result{}

	for _, stmtToks := range splitStatements(toks) {
		sp := &stmtParser{toks: stmtToks, dialect: d}
		node := sp.parseStatement()
		if sp.err != nil {
			res.Errors = append(res.Errors, *sp.err)
			continue
		}
		if node != nil {
			first := stmtToks[0].Pos
			last := stmtToks[len(stmtToks)-1]
			end := last.Pos
			end.Column += len(last.Literal)
			end.Offset += len(last.Literal)
			node["loc"] = locNode(token.Span{Start: first, End: end})
			res.Statements = append(res.Statements, node)
		}
	}
	return res
}

// splitStatements splits the token stream on semicolons outside
// parentheses. Empty statements are dropped. The EOF token is not included.
func splitStatements(toks []token.Token) [][]token.Token {
	var (
		out   [][]token.Token
		cur   []token.Token
		depth int
	)
	for _, tok := range toks {
		switch tok.Type {
		case token.EOF:
			if len(cur) > 0 {
				out = append(out, cur)
			}
			return out
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		case token.SEMICOLON:
			if depth <= 0 {
				if len(cur) > 0 {
					out = append(out, cur)
				}
				cur = nil
				depth = 0
				continue
			}
		}
		cur = append(cur, tok)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// stmtParser parses the tokens of a single statement.
type stmtParser struct {
	toks    []token.Token
	pos     int
	dialect Dialect
	err     *ParseError
}

// ---------- Token Helpers ----------

func (p *stmtParser) token() token.Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	t := token.Token{Type: token.EOF}
	if n := len(p.toks); n > 0 {
		last := p.toks[n-1]
		t.Pos = last.Pos
		t.Pos.Column += len(last.Literal)
	}
	return t
}

func (p *stmtParser) peekAt(n int) token.Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return token.Token{Type: token.EOF}
}

func (p *stmtParser) atEnd() bool {
	return p.pos >= len(p.toks)
}

func (p *stmtParser) next() token.Token {
	t := p.token()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

// check reports whether the current token is of type t and not a quoted
// identifier masquerading as a keyword.
func (p *stmtParser) check(t token.TokenType) bool {
	tok := p.token()
	return tok.Type == t && !tok.Quoted
}

func (p *stmtParser) match(t token.TokenType) bool {
	if p.check(t) {
		p.pos++
		return true
	}
	return false
}

// matchSeq consumes the token sequence ts if it is next in the input.
func (p *stmtParser) matchSeq(ts ...token.TokenType) bool {
	for i, t := range ts {
		tok := p.peekAt(i)
		if tok.Type != t || tok.Quoted {
			return false
		}
	}
	p.pos += len(ts)
	return true
}

func (p *stmtParser) expect(t token.TokenType) bool {
	if p.match(t) {
		return true
	}
	p.errorf("expected %s but found %s", t, describe(p.token()))
	return false
}

// checkWord reports whether the current token is an identifier or
// keyword spelled w (case-insensitive).
func (p *stmtParser) checkWord(w string) bool {
	tok := p.token()
	return tok.IsWord() && !tok.Quoted && strings.EqualFold(tok.Literal, w)
}

func (p *stmtParser) matchWord(w string) bool {
	if p.checkWord(w) {
		p.pos++
		return true
	}
	return false
}

// errorf records the first error of the statement at the current token.
func (p *stmtParser) errorf(format string, args ...any) {
	if p.err != nil {
		return
	}
	tok := p.token()
	p.err = &ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Pos.Line,
		Column:  tok.Pos.Column,
	}
}

func (p *stmtParser) failed() bool {
	return p.err != nil
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.ILLEGAL:
		return fmt.Sprintf("illegal input %q", tok.Literal)
	default:
		return fmt.Sprintf("%q", tok.Literal)
	}
}

// ---------- Statement Dispatch ----------

// passthrough lists statement keywords that are accepted but not analysed.
// They produce a node carrying only the type tag.
var passthrough = map[string]bool{
	"set": true, "show": true, "replace": true, "truncate": true,
	"rename": true, "grant": true, "revoke": true, "begin": true,
	"commit": true, "rollback": true, "start": true, "lock": true,
	"unlock": true, "explain": true, "describe": true, "desc": true,
	"call": true, "analyze": true, "optimize": true, "vacuum": true,
	"pragma": true, "declare": true, "go": true, "exec": true,
}

func (p *stmtParser) parseStatement() Node {
	if illegal, ok := p.firstIllegal(); ok {
		p.err = &ParseError{Message: illegal.Literal, Line: illegal.Pos.Line, Column: illegal.Pos.Column}
		if !strings.HasPrefix(illegal.Literal, "unterminated") {
			p.err.Message = fmt.Sprintf("unexpected character %q", illegal.Literal)
		}
		return nil
	}
	if !p.balanced() {
		return nil
	}
	return p.dispatch()
}

func (p *stmtParser) dispatch() Node {
	tok := p.token()
	switch {
	case p.check(token.WITH):
		return p.parseWith()
	case p.check(token.CREATE):
		return p.parseCreate()
	case p.check(token.SELECT), tok.Type == token.LPAREN:
		return p.parseSelect()
	case p.check(token.INSERT):
		return p.parseInsert()
	case p.check(token.UPDATE):
		return p.parseUpdate()
	case p.check(token.DELETE):
		return p.parseDelete()
	case p.check(token.ALTER):
		return p.parseAlter()
	case p.check(token.DROP):
		return p.parseDrop()
	case p.check(token.USE):
		return p.parseUse()
	case p.check(token.SET), tok.Type == token.IDENT && !tok.Quoted && passthrough[strings.ToLower(tok.Literal)]:
		return Node{"type": strings.ToLower(tok.Literal)}
	default:
		p.errorf("unexpected %s at start of statement", describe(tok))
		return nil
	}
}

func (p *stmtParser) firstIllegal() (token.Token, bool) {
	for _, t := range p.toks {
		if t.Type == token.ILLEGAL {
			return t, true
		}
	}
	return token.Token{}, false
}

// balanced verifies parentheses pair up within the statement.
func (p *stmtParser) balanced() bool {
	var open []token.Token
	for _, t := range p.toks {
		switch t.Type {
		case token.LPAREN:
			open = append(open, t)
		case token.RPAREN:
			if len(open) == 0 {
				p.err = &ParseError{Message: `unexpected ")"`, Line: t.Pos.Line, Column: t.Pos.Column}
				return false
			}
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		t := open[len(open)-1]
		p.err = &ParseError{Message: `unclosed "("`, Line: t.Pos.Line, Column: t.Pos.Column}
		return false
	}
	return true
}

// ---------- Shared Productions ----------

// parseName reads an identifier (quoted or not) and reports whether it was
// quoted. Unquoted keywords are accepted as names in lenient positions.
func (p *stmtParser) parseName(what string) (string, bool, bool) {
	tok := p.token()
	if tok.IsWord() {
		p.pos++
		return tok.Literal, tok.Quoted, true
	}
	p.errorf("expected %s but found %s", what, describe(tok))
	return "", false, false
}

// parseTableName reads [db '.'] table.
func (p *stmtParser) parseTableName() (Node, bool) {
	first, _, ok := p.parseName("table name")
	if !ok {
		return nil, false
	}
	if p.match(token.DOT) {
		second, _, ok := p.parseName("table name")
		if !ok {
			return nil, false
		}
		return TableRef(first, second), true
	}
	return TableRef("", first), true
}

// parseColumnRef reads [table '.'] column as a column_ref node.
func (p *stmtParser) parseColumnRef() (Node, bool) {
	name, quoted, ok := p.parseName("column name")
	if !ok {
		return nil, false
	}
	table := ""
	if p.check(token.DOT) {
		p.pos++
		table = name
		if name, quoted, ok = p.parseName("column name"); !ok {
			return nil, false
		}
	}
	return ColumnRef(table, name, p.quoteFor(quoted)), true
}

// parseColumnList reads '(' column_ref {',' column_ref} ')'.
func (p *stmtParser) parseColumnList() ([]any, bool) {
	if !p.expect(token.LPAREN) {
		return nil, false
	}
	var cols []any
	for {
		ref, ok := p.parseColumnRef()
		if !ok {
			return nil, false
		}
		// index prefix length or ordering, e.g. name(10) DESC
		if p.check(token.LPAREN) {
			p.skipParens()
		}
		if p.checkWord("asc") || p.checkWord("desc") {
			p.pos++
		}
		cols = append(cols, ref)
		if !p.match(token.COMMA) {
			break
		}
	}
	if !p.expect(token.RPAREN) {
		return nil, false
	}
	return cols, true
}

func (p *stmtParser) quoteFor(quoted bool) string {
	if !quoted {
		return ""
	}
	return p.dialect.quoteKind()
}

// skipParens consumes a balanced parenthesised group starting at the
// current '(' and returns the raw literals inside it.
func (p *stmtParser) skipParens() []token.Token {
	if !p.check(token.LPAREN) {
		return nil
	}
	depth := 0
	start := p.pos
	for !p.atEnd() {
		switch p.next().Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				return p.toks[start+1 : p.pos-1]
			}
		}
	}
	return p.toks[start+1:]
}

// rawText renders tokens back into a compact SQL-ish string.
func rawText(toks []token.Token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && needsSpace(toks[i-1], t) {
			b.WriteByte(' ')
		}
		switch t.Type {
		case token.STRING:
			b.WriteString("'" + strings.ReplaceAll(t.Literal, "'", "''") + "'")
		case token.DQSTRING:
			b.WriteString(`"` + strings.ReplaceAll(t.Literal, `"`, `""`) + `"`)
		default:
			b.WriteString(t.Literal)
		}
	}
	return b.String()
}

func needsSpace(prev, cur token.Token) bool {
	switch {
	case prev.Type == token.DOT || cur.Type == token.DOT:
		return false
	case prev.Type == token.LPAREN || cur.Type == token.RPAREN || cur.Type == token.COMMA:
		return false
	case cur.Type == token.LPAREN && prev.IsWord():
		return false
	default:
		return true
	}
}
