package sqlparser

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqlint/pkg/token"
)

// parseCreate parses CREATE statements. Only CREATE TABLE is read in
// detail; other objects produce a node with their keyword and name.
func (p *stmtParser) parseCreate() Node {
	p.expect(token.CREATE)
	node := Node{"type": "create"}

	// CREATE OR REPLACE ...
	if p.matchWord("or") {
		if !p.matchWord("replace") {
			p.errorf("expected REPLACE but found %s", describe(p.token()))
			return nil
		}
		node["replace"] = true
	}

	temporary := p.match(token.TEMPORARY)
	if temporary {
		node["temporary"] = "temporary"
	} else {
		node["temporary"] = nil
	}

	switch {
	case p.check(token.TABLE):
		p.next()
		node["keyword"] = "table"
		p.parseCreateTable(node)
	case p.check(token.UNIQUE), p.check(token.INDEX):
		p.match(token.UNIQUE)
		p.expect(token.INDEX)
		node["keyword"] = "index"
		node["index"] = p.restName()
	case p.check(token.VIEW):
		p.next()
		node["keyword"] = "view"
		node["view"] = p.restName()
	case p.check(token.DATABASE), p.checkWord("schema"):
		p.next()
		node["keyword"] = "database"
		node["database"] = p.restName()
	case p.token().IsWord():
		// trigger, function, procedure, sequence, type, ...
		node["keyword"] = strings.ToLower(p.next().Literal)
	default:
		p.errorf("expected object type after CREATE but found %s", describe(p.token()))
	}

	if p.failed() {
		return nil
	}
	return node
}

// restName reads an optional IF NOT EXISTS and the object name, ignoring
// anything after it.
func (p *stmtParser) restName() string {
	p.matchSeq(token.IF, token.NOT, token.EXISTS)
	name, _, ok := p.parseName("name")
	if !ok {
		return ""
	}
	if p.match(token.DOT) {
		name, _, _ = p.parseName("name")
	}
	p.pos = len(p.toks)
	return name
}

func (p *stmtParser) parseCreateTable(node Node) {
	if p.matchSeq(token.IF, token.NOT, token.EXISTS) {
		node["if_not_exists"] = "if not exists"
	} else {
		node["if_not_exists"] = nil
	}

	ref, ok := p.parseTableName()
	if !ok {
		return
	}
	node["table"] = []any{ref}

	// CREATE TABLE t AS SELECT ... and CREATE TABLE t LIKE other
	if p.check(token.AS) || p.checkWord("like") {
		node["create_definitions"] = nil
		p.pos = len(p.toks)
		return
	}

	if !p.expect(token.LPAREN) {
		return
	}

	var defs []any
	for {
		def := p.parseCreateDefinition()
		if p.failed() {
			return
		}
		if def != nil {
			defs = append(defs, def)
		}
		if !p.match(token.COMMA) {
			break
		}
	}
	if !p.expect(token.RPAREN) {
		return
	}
	node["create_definitions"] = defs

	if opts := p.parseTableOptions(); len(opts) > 0 {
		node["table_options"] = opts
	}
}

// parseCreateDefinition parses one entry of the table body.
func (p *stmtParser) parseCreateDefinition() Node {
	var constraintName any
	if p.match(token.CONSTRAINT) {
		if !p.check(token.PRIMARY) && !p.check(token.FOREIGN) && !p.check(token.UNIQUE) && !p.checkWord("check") {
			name, _, ok := p.parseName("constraint name")
			if !ok {
				return nil
			}
			constraintName = name
		}
	}

	switch {
	case p.matchSeq(token.PRIMARY, token.KEY):
		cols, ok := p.parseColumnList()
		if !ok {
			return nil
		}
		p.skipIndexOptions()
		return Node{
			"resource":        "constraint",
			"constraint":      constraintName,
			"constraint_type": "primary key",
			"definition":      cols,
		}
	case p.matchSeq(token.FOREIGN, token.KEY):
		return p.parseForeignKey(constraintName)
	case p.check(token.UNIQUE):
		p.next()
		if !p.match(token.KEY) {
			p.match(token.INDEX)
		}
		index := p.optionalIndexName()
		cols, ok := p.parseColumnList()
		if !ok {
			return nil
		}
		p.skipIndexOptions()
		return Node{
			"resource":        "constraint",
			"constraint":      constraintName,
			"constraint_type": "unique",
			"index":           index,
			"definition":      cols,
		}
	case p.checkWord("check"):
		p.next()
		raw := p.skipParens()
		return Node{
			"resource":        "constraint",
			"constraint":      constraintName,
			"constraint_type": "check",
			"definition":      []any{rawText(raw)},
		}
	case constraintName == nil && (p.check(token.KEY) || p.check(token.INDEX) ||
		p.checkWord("fulltext") || p.checkWord("spatial")):
		kind := strings.ToLower(p.next().Literal)
		if kind == "fulltext" || kind == "spatial" {
			if !p.match(token.KEY) {
				p.match(token.INDEX)
			}
		}
		index := p.optionalIndexName()
		cols, ok := p.parseColumnList()
		if !ok {
			return nil
		}
		p.skipIndexOptions()
		return Node{
			"resource":   "index",
			"keyword":    kind,
			"index":      index,
			"definition": cols,
		}
	case constraintName != nil:
		p.errorf("expected constraint after CONSTRAINT %s but found %s", constraintName, describe(p.token()))
		return nil
	}

	return p.parseColumnDefinition()
}

func (p *stmtParser) optionalIndexName() any {
	if p.check(token.LPAREN) {
		return nil
	}
	name, _, ok := p.parseName("index name")
	if !ok {
		return nil
	}
	// USING BTREE between the name and the column list
	if p.matchWord("using") {
		p.next()
	}
	return name
}

// skipIndexOptions consumes trailing index options up to the next comma or
// closing parenthesis of the table body.
func (p *stmtParser) skipIndexOptions() {
	for !p.atEnd() && !p.check(token.COMMA) && !p.check(token.RPAREN) {
		if p.check(token.LPAREN) {
			p.skipParens()
			continue
		}
		p.next()
	}
}

func (p *stmtParser) parseForeignKey(constraintName any) Node {
	var index any
	if !p.check(token.LPAREN) {
		name, _, ok := p.parseName("index name")
		if !ok {
			return nil
		}
		index = name
	}
	cols, ok := p.parseColumnList()
	if !ok {
		return nil
	}
	ref := p.parseReferenceDefinition()
	if p.failed() {
		return nil
	}
	return Node{
		"resource":             "constraint",
		"constraint":           constraintName,
		"constraint_type":      "FOREIGN KEY",
		"keyword":              "constraint",
		"index":                index,
		"definition":           cols,
		"reference_definition": ref,
	}
}

// parseReferenceDefinition parses REFERENCES table [(cols)] [MATCH ...]
// [ON DELETE action] [ON UPDATE action].
func (p *stmtParser) parseReferenceDefinition() Node {
	if !p.expect(token.REFERENCES) {
		return nil
	}
	table, ok := p.parseTableName()
	if !ok {
		return nil
	}
	ref := Node{
		"keyword":    "references",
		"table":      []any{table},
		"definition": []any{},
		"on_action":  []any{},
	}
	if p.check(token.LPAREN) {
		cols, ok := p.parseColumnList()
		if !ok {
			return nil
		}
		ref["definition"] = cols
	}
	if p.matchWord("match") {
		ref["match"] = strings.ToLower(p.next().Literal)
	}

	var actions []any
	for p.check(token.ON) && (p.peekAt(1).Type == token.DELETE || p.peekAt(1).Type == token.UPDATE) {
		p.next()
		phase := "on " + strings.ToLower(p.next().Literal)
		action, ok := p.parseReferenceOption()
		if !ok {
			return nil
		}
		actions = append(actions, Node{
			"type":  phase,
			"value": Node{"type": "origin", "value": action},
		})
	}
	if actions != nil {
		ref["on_action"] = actions
	}
	return ref
}

func (p *stmtParser) parseReferenceOption() (string, bool) {
	switch {
	case p.match(token.RESTRICT):
		return "restrict", true
	case p.match(token.CASCADE):
		return "cascade", true
	case p.matchSeq(token.SET, token.NULL):
		return "set null", true
	case p.matchSeq(token.SET, token.DEFAULT):
		return "set default", true
	case p.matchSeq(token.NO, token.ACTION):
		return "no action", true
	}
	p.errorf("expected referential action but found %s", describe(p.token()))
	return "", false
}

// parseColumnDefinition parses name data_type [column options].
func (p *stmtParser) parseColumnDefinition() Node {
	name, quoted, ok := p.parseName("column name")
	if !ok {
		return nil
	}
	def := Node{
		"resource": "column",
		"column":   ColumnRef("", name, p.quoteFor(quoted)),
	}

	dataType := p.parseDataType()
	if p.failed() {
		return nil
	}
	def["definition"] = dataType

	p.parseColumnOptions(def)
	if p.failed() {
		return nil
	}
	return def
}

// multiWordTypes lists second words that extend a data type name.
var multiWordTypes = map[string]string{
	"double":    "precision",
	"character": "varying",
	"national":  "char",
}

func (p *stmtParser) parseDataType() Node {
	tok := p.token()
	if !tok.IsWord() || tok.Quoted {
		p.errorf("expected data type but found %s", describe(tok))
		return nil
	}
	p.next()
	name := strings.ToUpper(tok.Literal)
	if second, ok := multiWordTypes[strings.ToLower(tok.Literal)]; ok && p.checkWord(second) {
		name += " " + strings.ToUpper(p.next().Literal)
	}

	def := Node{"dataType": name}

	if p.check(token.LPAREN) {
		lower := strings.ToLower(name)
		if lower == "enum" || lower == "set" {
			values, ok := p.parseValueList()
			if !ok {
				return nil
			}
			def["expr"] = Node{"type": "expr_list", "value": values, "parentheses": true}
		} else {
			p.parseLength(def)
		}
		if p.failed() {
			return nil
		}
	}

	// TIMESTAMP WITH TIME ZONE and friends
	if p.check(token.WITH) || p.checkWord("without") {
		if p.peekAt(1).IsWord() && strings.EqualFold(p.peekAt(1).Literal, "time") {
			p.pos += 2
			p.matchWord("zone")
		}
	}

	var suffix []any
	for {
		switch {
		case p.match(token.UNSIGNED):
			suffix = append(suffix, "UNSIGNED")
			continue
		case p.matchWord("signed"):
			suffix = append(suffix, "SIGNED")
			continue
		case p.match(token.ZEROFILL):
			suffix = append(suffix, "ZEROFILL")
			continue
		}
		break
	}
	if suffix != nil {
		def["suffix"] = suffix
	}
	return def
}

// parseLength reads '(' n [',' m] ')' into length and scale.
func (p *stmtParser) parseLength(def Node) {
	p.expect(token.LPAREN)
	def["parentheses"] = true
	if p.check(token.NUMBER) {
		def["length"] = numberValue(p.next().Literal)
	} else if p.checkWord("max") {
		def["length"] = strings.ToLower(p.next().Literal)
	} else {
		p.errorf("expected length but found %s", describe(p.token()))
		return
	}
	if p.match(token.COMMA) {
		if !p.check(token.NUMBER) {
			p.errorf("expected scale but found %s", describe(p.token()))
			return
		}
		def["scale"] = numberValue(p.next().Literal)
	}
	p.expect(token.RPAREN)
}

// parseValueList reads a parenthesised list of literal values.
func (p *stmtParser) parseValueList() ([]any, bool) {
	if !p.expect(token.LPAREN) {
		return nil, false
	}
	var values []any
	for {
		v := p.parseLiteral()
		if v == nil {
			p.errorf("expected value but found %s", describe(p.token()))
			return nil, false
		}
		values = append(values, v)
		if !p.match(token.COMMA) {
			break
		}
	}
	if !p.expect(token.RPAREN) {
		return nil, false
	}
	return values, true
}

// parseLiteral reads a literal value node or returns nil without
// consuming input.
func (p *stmtParser) parseLiteral() Node {
	tok := p.token()
	switch {
	case tok.Type == token.STRING:
		p.next()
		return Value("single_quote_string", tok.Literal)
	case tok.Type == token.DQSTRING:
		p.next()
		return Value("double_quote_string", tok.Literal)
	case tok.Type == token.NUMBER:
		p.next()
		return Value("number", numberValue(tok.Literal))
	case tok.Type == token.OPERATOR && (tok.Literal == "-" || tok.Literal == "+") && p.peekAt(1).Type == token.NUMBER:
		p.next()
		n := p.next()
		return Value("number", numberValue(tok.Literal+n.Literal))
	case tok.Type == token.NULL && !tok.Quoted:
		p.next()
		return Value("null", nil)
	case tok.Type == token.IDENT && !tok.Quoted && (strings.EqualFold(tok.Literal, "true") || strings.EqualFold(tok.Literal, "false")):
		p.next()
		return Value("bool", strings.EqualFold(tok.Literal, "true"))
	}
	return nil
}

func numberValue(lit string) any {
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return f
	}
	return lit
}

// parseColumnOptions reads column attributes until the next comma or the
// end of the table body.
func (p *stmtParser) parseColumnOptions(def Node) {
	for !p.failed() && !p.atEnd() && !p.check(token.COMMA) && !p.check(token.RPAREN) {
		switch {
		case p.matchSeq(token.NOT, token.NULL):
			def["nullable"] = Node{"type": "not null", "value": "not null"}
		case p.match(token.NULL):
			def["nullable"] = Node{"type": "null", "value": "null"}
		case p.match(token.DEFAULT):
			v := p.parseDefaultValue()
			if v != nil {
				def["default_val"] = Node{"type": "default", "value": v}
			}
		case p.match(token.AUTO_INCREMENT), p.matchWord("identity"), p.matchWord("serial"):
			def["auto_increment"] = "auto_increment"
			if p.check(token.LPAREN) {
				p.skipParens()
			}
		case p.matchSeq(token.PRIMARY, token.KEY):
			def["primary_key"] = "primary key"
			if p.checkWord("asc") || p.checkWord("desc") {
				p.next()
			}
		case p.match(token.UNIQUE):
			p.match(token.KEY)
			def["unique"] = "unique"
		case p.match(token.KEY):
			def["primary_key"] = "key"
		case p.match(token.COMMENT):
			tok := p.token()
			switch tok.Type {
			case token.STRING:
				def["comment"] = commentNode("single_quote_string", tok.Literal)
			case token.DQSTRING:
				def["comment"] = commentNode("double_quote_string", tok.Literal)
			default:
				p.errorf("expected comment string but found %s", describe(tok))
				return
			}
			p.next()
		case p.check(token.REFERENCES):
			ref := p.parseReferenceDefinition()
			if ref != nil {
				def["reference_definition"] = ref
			}
		case p.match(token.CONSTRAINT):
			// named inline constraint; the constraint itself follows
			p.parseName("constraint name")
		case p.matchWord("collate"):
			if p.token().IsWord() || p.check(token.STRING) {
				def["collate"] = p.next().Literal
			}
		case p.matchWord("character"):
			p.match(token.SET)
			if p.token().IsWord() || p.check(token.STRING) {
				def["character_set"] = p.next().Literal
			}
		case p.matchWord("charset"):
			if p.token().IsWord() || p.check(token.STRING) {
				def["character_set"] = p.next().Literal
			}
		case p.match(token.ON):
			// ON UPDATE CURRENT_TIMESTAMP
			if p.match(token.UPDATE) {
				if v := p.parseDefaultValue(); v != nil {
					def["on_update"] = v
				}
			}
		case p.matchWord("check"):
			def["check"] = rawText(p.skipParens())
		case p.matchWord("generated"):
			p.matchWord("always")
			if p.match(token.AS) {
				def["generated"] = rawText(p.skipParens())
			}
		case p.check(token.AS):
			p.next()
			def["generated"] = rawText(p.skipParens())
		case p.check(token.LPAREN):
			p.skipParens()
		default:
			// VIRTUAL, STORED, INVISIBLE, COLUMN_FORMAT, ...
			p.next()
		}
	}
}

func commentNode(kind, text string) Node {
	return Node{
		"type":    "comment",
		"keyword": "comment",
		"value":   Value(kind, text),
	}
}

// parseDefaultValue reads the value of a DEFAULT clause.
func (p *stmtParser) parseDefaultValue() Node {
	if v := p.parseLiteral(); v != nil {
		return v
	}
	tok := p.token()
	switch {
	case tok.Type == token.LPAREN:
		return Node{"type": "expr", "value": rawText(p.skipParens())}
	case tok.IsWord():
		p.next()
		fn := Node{"type": "function", "name": strings.ToUpper(tok.Literal)}
		if p.check(token.LPAREN) {
			fn["args"] = rawText(p.skipParens())
		}
		return fn
	}
	p.errorf("expected default value but found %s", describe(tok))
	return nil
}

// parseTableOptions reads trailing table options such as ENGINE=InnoDB.
func (p *stmtParser) parseTableOptions() []any {
	var opts []any
	for !p.atEnd() {
		tok := p.token()
		if !tok.IsWord() {
			p.next()
			continue
		}
		key := strings.ToLower(p.next().Literal)
		if key == "default" {
			continue
		}
		if key == "character" && p.match(token.SET) {
			key = "character set"
		}
		p.match(token.EQ)
		var value any
		switch t := p.token(); {
		case t.Type == token.STRING, t.Type == token.DQSTRING, t.Type == token.NUMBER, t.IsWord():
			p.next()
			value = t.Literal
		}
		opts = append(opts, Node{"keyword": key, "symbol": "=", "value": value})
	}
	return opts
}
