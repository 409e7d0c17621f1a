package sqlparser

import (
	"strings"

	"github.com/leapstack-labs/sqlint/pkg/token"
)

// clauseEnd lists keywords that close a FROM list.
var clauseEnd = map[string]bool{
	"where": true, "group": true, "order": true, "limit": true,
	"having": true, "union": true, "intersect": true, "except": true,
	"window": true, "offset": true, "fetch": true, "for": true,
	"into": true, "returning": true,
}

func isClauseEnd(tok token.Token) bool {
	return tok.IsWord() && !tok.Quoted && clauseEnd[strings.ToLower(tok.Literal)]
}

// joinWords may appear between table references.
var joinWords = map[string]bool{
	"join": true, "inner": true, "left": true, "right": true, "full": true,
	"outer": true, "cross": true, "natural": true, "straight_join": true,
}

// parseWith parses WITH name AS (...) [, ...] followed by a statement.
func (p *stmtParser) parseWith() Node {
	p.expect(token.WITH)
	p.matchWord("recursive")

	var names []any
	for {
		name, _, ok := p.parseName("CTE name")
		if !ok {
			return nil
		}
		if p.check(token.LPAREN) {
			p.skipParens()
		}
		if !p.expect(token.AS) {
			return nil
		}
		p.matchWord("materialized")
		if !p.check(token.LPAREN) {
			p.errorf(`expected "(" but found %s`, describe(p.token()))
			return nil
		}
		p.skipParens()
		names = append(names, name)
		if !p.match(token.COMMA) {
			break
		}
	}

	node := p.dispatch()
	if node != nil {
		node["with"] = names
	}
	return node
}

// parseSelect parses the select list and the FROM tables. Everything after
// the FROM list is skipped.
func (p *stmtParser) parseSelect() Node {
	// (SELECT ...) UNION (SELECT ...)
	for p.match(token.LPAREN) {
	}
	if !p.expect(token.SELECT) {
		return nil
	}

	node := Node{"type": "select", "distinct": nil, "from": nil}
	if p.match(token.DISTINCT) {
		node["distinct"] = "DISTINCT"
	} else {
		p.matchWord("all")
	}

	var columns []any
	for {
		col := p.parseSelectItem()
		if p.failed() {
			return nil
		}
		columns = append(columns, col)
		if !p.match(token.COMMA) {
			break
		}
	}
	node["columns"] = columns

	if p.match(token.FROM) {
		from := p.parseFromList()
		if p.failed() {
			return nil
		}
		node["from"] = from
	}

	if p.matchWord("where") {
		node["where"] = rawText(p.restUntilClause())
	}
	p.pos = len(p.toks)
	return node
}

// parseSelectItem reads one entry of the select list.
func (p *stmtParser) parseSelectItem() Node {
	if p.atEnd() || p.check(token.FROM) || p.check(token.COMMA) {
		p.errorf("expected select expression but found %s", describe(p.token()))
		return nil
	}

	if p.match(token.STAR) {
		return Node{"expr": Node{"type": "column_ref", "table": nil, "column": "*"}, "as": nil}
	}

	// table.*
	if p.token().IsWord() && p.peekAt(1).Type == token.DOT && p.peekAt(2).Type == token.STAR {
		table := p.next().Literal
		p.pos += 2
		return Node{"expr": Node{"type": "column_ref", "table": table, "column": "*"}, "as": nil}
	}

	toks := p.restOfItem()
	alias, body := splitAlias(toks)
	if len(body) == 0 {
		p.errorf("expected select expression but found %s", describe(p.token()))
		return nil
	}

	item := Node{"as": alias}
	if ref, ok := p.columnRefFrom(body); ok {
		item["expr"] = ref
	} else {
		item["expr"] = Node{"type": "expr", "value": rawText(body)}
	}
	return item
}

// restOfItem consumes tokens up to the next top-level comma, FROM, or
// clause keyword.
func (p *stmtParser) restOfItem() []token.Token {
	start := p.pos
	depth := 0
	for !p.atEnd() {
		tok := p.token()
		if depth == 0 {
			if tok.Type == token.COMMA || (tok.Type == token.FROM && !tok.Quoted) {
				break
			}
			if isClauseEnd(tok) {
				break
			}
		}
		switch tok.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			if depth == 0 {
				return p.toks[start:p.pos]
			}
			depth--
		}
		p.next()
	}
	return p.toks[start:p.pos]
}

// splitAlias separates a trailing [AS] alias from an expression.
func splitAlias(toks []token.Token) (any, []token.Token) {
	n := len(toks)
	if n >= 3 && toks[n-2].Type == token.AS && !toks[n-2].Quoted && toks[n-1].IsWord() {
		return toks[n-1].Literal, toks[:n-2]
	}
	if n >= 2 && toks[n-1].Type == token.IDENT {
		prev := toks[n-2]
		switch prev.Type {
		case token.RPAREN, token.NUMBER, token.STRING, token.IDENT:
			return toks[n-1].Literal, toks[:n-1]
		}
	}
	return nil, toks
}

// columnRefFrom recognises `name` and `table.name` token runs.
func (p *stmtParser) columnRefFrom(toks []token.Token) (Node, bool) {
	switch {
	case len(toks) == 1 && toks[0].Type == token.IDENT:
		return ColumnRef("", toks[0].Literal, p.quoteFor(toks[0].Quoted)), true
	case len(toks) == 3 && toks[0].IsWord() && toks[1].Type == token.DOT && toks[2].IsWord():
		return ColumnRef(toks[0].Literal, toks[2].Literal, p.quoteFor(toks[2].Quoted)), true
	}
	return nil, false
}

// parseFromList reads table references separated by commas or joins.
func (p *stmtParser) parseFromList() []any {
	var from []any
	for !p.atEnd() {
		tok := p.token()
		if isClauseEnd(tok) {
			break
		}
		if tok.Type == token.RPAREN {
			break
		}

		var ref Node
		if tok.Type == token.LPAREN {
			ref = Node{"expr": Node{"type": "subquery", "value": rawText(p.skipParens())}}
		} else {
			table, ok := p.parseTableName()
			if !ok {
				return nil
			}
			ref = table
			if p.check(token.LPAREN) {
				// table-valued function
				p.skipParens()
			}
		}
		ref["as"] = p.parseTableAlias()
		from = append(from, ref)

		// ON / USING conditions and anything else up to the next table
		if !p.skipToNextTable() {
			break
		}
	}
	if len(from) == 0 {
		p.errorf("expected table after FROM but found %s", describe(p.token()))
	}
	return from
}

func (p *stmtParser) parseTableAlias() any {
	if p.match(token.AS) {
		name, _, _ := p.parseName("alias")
		return name
	}
	tok := p.token()
	if tok.Type == token.IDENT && (tok.Quoted || (!clauseEnd[strings.ToLower(tok.Literal)] &&
		!joinWords[strings.ToLower(tok.Literal)] && !strings.EqualFold(tok.Literal, "using"))) {
		p.next()
		return tok.Literal
	}
	return nil
}

// skipToNextTable advances past join conditions to the next table
// reference. It reports false when the FROM list is finished.
func (p *stmtParser) skipToNextTable() bool {
	for !p.atEnd() {
		tok := p.token()
		switch {
		case tok.Type == token.COMMA:
			p.next()
			return true
		case tok.Type == token.LPAREN:
			p.skipParens()
			continue
		case tok.Type == token.RPAREN:
			return false
		case isClauseEnd(tok):
			return false
		case tok.Type == token.IDENT && !tok.Quoted:
			if word := strings.ToLower(tok.Literal); joinWords[word] {
				p.next()
				if word == "join" || word == "straight_join" {
					return true
				}
				continue
			}
		}
		p.next()
	}
	return false
}

// restUntilClause returns the tokens up to the next clause keyword.
func (p *stmtParser) restUntilClause() []token.Token {
	start := p.pos
	depth := 0
	for !p.atEnd() {
		tok := p.token()
		if depth == 0 && isClauseEnd(tok) {
			break
		}
		switch tok.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		}
		p.next()
	}
	return p.toks[start:p.pos]
}

// parseInsert parses INSERT [IGNORE] [INTO] table [(columns)] ...
func (p *stmtParser) parseInsert() Node {
	p.expect(token.INSERT)
	for p.matchWord("ignore") || p.matchWord("low_priority") || p.matchWord("delayed") || p.matchWord("high_priority") {
	}
	p.match(token.INTO)

	table, ok := p.parseTableName()
	if !ok {
		return nil
	}
	node := Node{"type": "insert", "table": []any{table}, "columns": nil}

	if p.check(token.LPAREN) && p.peekAt(1).Type != token.SELECT {
		cols, ok := p.parseColumnList()
		if !ok {
			return nil
		}
		names := make([]any, 0, len(cols))
		for _, c := range cols {
			names = append(names, columnName(AsNode(c)))
		}
		node["columns"] = names
	}
	if p.check(token.SELECT) || (p.check(token.LPAREN) && p.peekAt(1).Type == token.SELECT) {
		node["select"] = true
	}
	p.pos = len(p.toks)
	return node
}

// parseUpdate parses UPDATE table [alias] SET ... [WHERE ...].
func (p *stmtParser) parseUpdate() Node {
	p.expect(token.UPDATE)
	for p.matchWord("low_priority") || p.matchWord("ignore") {
	}
	table, ok := p.parseTableName()
	if !ok {
		return nil
	}
	table["as"] = p.parseTableAlias()
	node := Node{"type": "update", "table": []any{table}, "where": nil}

	if !p.expect(token.SET) {
		return nil
	}
	var set []any
	for !p.atEnd() && !p.checkWord("where") {
		if ref, ok := p.parseColumnRef(); ok && p.match(token.EQ) {
			set = append(set, Node{"column": columnName(ref), "table": ref["table"]})
		}
		if p.failed() {
			return nil
		}
		// skip the value expression
		depth := 0
		for !p.atEnd() {
			tok := p.token()
			if depth == 0 && (tok.Type == token.COMMA || (tok.Type == token.WHERE && !tok.Quoted)) {
				break
			}
			switch tok.Type {
			case token.LPAREN:
				depth++
			case token.RPAREN:
				depth--
			}
			p.next()
		}
		p.match(token.COMMA)
	}
	node["set"] = set

	if p.matchWord("where") {
		node["where"] = rawText(p.restUntilClause())
	}
	p.pos = len(p.toks)
	return node
}

// parseDelete parses DELETE [FROM] table [WHERE ...].
func (p *stmtParser) parseDelete() Node {
	p.expect(token.DELETE)
	for p.matchWord("low_priority") || p.matchWord("quick") || p.matchWord("ignore") {
	}
	p.match(token.FROM)

	table, ok := p.parseTableName()
	if !ok {
		return nil
	}
	table["as"] = p.parseTableAlias()
	node := Node{"type": "delete", "table": []any{table}, "from": []any{table}, "where": nil}

	for !p.atEnd() && !p.checkWord("where") {
		p.next()
	}
	if p.matchWord("where") {
		node["where"] = rawText(p.restUntilClause())
	}
	p.pos = len(p.toks)
	return node
}

// parseAlter parses ALTER TABLE name followed by any alter specification.
func (p *stmtParser) parseAlter() Node {
	p.expect(token.ALTER)
	node := Node{"type": "alter"}

	if !p.match(token.TABLE) {
		if !p.token().IsWord() {
			p.errorf("expected object type after ALTER but found %s", describe(p.token()))
			return nil
		}
		node["keyword"] = strings.ToLower(p.next().Literal)
		p.pos = len(p.toks)
		return node
	}
	node["keyword"] = "table"
	p.matchSeq(token.IF, token.EXISTS)
	p.matchWord("only")

	table, ok := p.parseTableName()
	if !ok {
		return nil
	}
	node["table"] = []any{table}
	node["expr"] = rawText(p.toks[p.pos:])
	p.pos = len(p.toks)
	return node
}

// parseDrop parses DROP object [IF EXISTS] name [, name ...].
func (p *stmtParser) parseDrop() Node {
	p.expect(token.DROP)
	p.match(token.TEMPORARY)

	tok := p.token()
	if !tok.IsWord() {
		p.errorf("expected object type after DROP but found %s", describe(tok))
		return nil
	}
	p.next()
	keyword := strings.ToLower(tok.Literal)
	if keyword == "schema" {
		keyword = "database"
	}
	node := Node{"type": "drop", "keyword": keyword, "prefix": nil}
	if p.matchSeq(token.IF, token.EXISTS) {
		node["prefix"] = "if exists"
	}

	var names []any
	for {
		ref, ok := p.parseTableName()
		if !ok {
			return nil
		}
		names = append(names, ref)
		if !p.match(token.COMMA) {
			break
		}
	}
	node["name"] = names
	if keyword == "table" {
		node["table"] = names
	}
	p.pos = len(p.toks)
	return node
}

// parseUse parses USE database.
func (p *stmtParser) parseUse() Node {
	p.expect(token.USE)
	name, _, ok := p.parseName("database name")
	if !ok {
		return nil
	}
	if !p.atEnd() {
		p.errorf("unexpected %s after USE %s", describe(p.token()), name)
		return nil
	}
	return Node{"type": "use", "db": name}
}

// columnName extracts the column name from a column_ref node.
func columnName(ref Node) string {
	if ref == nil {
		return ""
	}
	if s, ok := ref["column"].(string); ok {
		return s
	}
	if expr := ref.Node("column").Node("expr"); expr != nil {
		return expr.String("value")
	}
	return ""
}
