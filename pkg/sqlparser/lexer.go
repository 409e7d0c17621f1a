package sqlparser

import (
	"strings"

	"github.com/leapstack-labs/sqlint/pkg/token"
)

// Lexer tokenizes SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	dialect Dialect
}

// NewLexer creates a new Lexer for the given input and dialect.
func NewLexer(input string, d Dialect) *Lexer {
	l := &Lexer{
		input:   input,
		line:    1,
		col:     0,
		dialect: d,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// Tokenize returns every token up to and including EOF.
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	var tok token.Token
	tok.Pos = pos

	switch l.ch {
	case 0:
		tok.Type = token.EOF
		// EOF sits one past the last character
		if pos.Offset >= len(l.input) {
			tok.Pos.Offset = len(l.input)
		}
		return tok
	case '*':
		tok = l.newToken(token.STAR, "*")
	case ',':
		tok = l.newToken(token.COMMA, ",")
	case '.':
		if isDigit(l.peekChar()) {
			tok.Type = token.NUMBER
			tok.Literal = l.readNumber()
			return tok
		}
		tok = l.newToken(token.DOT, ".")
	case '(':
		tok = l.newToken(token.LPAREN, "(")
	case ')':
		tok = l.newToken(token.RPAREN, ")")
	case ';':
		tok = l.newToken(token.SEMICOLON, ";")
	case '=':
		tok = l.newToken(token.EQ, "=")
	case '\'':
		lit, ok := l.readDelimited('\'')
		if !ok {
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated string literal", Pos: pos}
		}
		return token.Token{Type: token.STRING, Literal: lit, Pos: pos}
	case '"':
		lit, ok := l.readDelimited('"')
		if !ok {
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated quoted string", Pos: pos}
		}
		if l.dialect.DoubleQuoteIsString() {
			return token.Token{Type: token.DQSTRING, Literal: lit, Pos: pos}
		}
		return token.Token{Type: token.IDENT, Literal: lit, Pos: pos, Quoted: true}
	case '`':
		if !l.dialect.AllowsBacktick() {
			tok = l.newToken(token.ILLEGAL, "`")
			break
		}
		lit, ok := l.readDelimited('`')
		if !ok {
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated quoted identifier", Pos: pos}
		}
		return token.Token{Type: token.IDENT, Literal: lit, Pos: pos, Quoted: true}
	case '[':
		if !l.dialect.AllowsBracket() {
			tok = l.newToken(token.ILLEGAL, "[")
			break
		}
		lit, ok := l.readDelimited(']')
		if !ok {
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated quoted identifier", Pos: pos}
		}
		return token.Token{Type: token.IDENT, Literal: lit, Pos: pos, Quoted: true}
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_' || l.ch >= 0x80:
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(strings.ToLower(tok.Literal))
			return tok
		case isDigit(l.ch):
			tok.Type = token.NUMBER
			tok.Literal = l.readNumber()
			return tok
		case isOperatorChar(l.ch):
			tok.Type = token.OPERATOR
			tok.Literal = l.readOperator()
			return tok
		default:
			tok = l.newToken(token.ILLEGAL, string(l.ch))
		}
	}

	l.readChar()
	return tok
}

func (l *Lexer) newToken(tokenType token.TokenType, literal string) token.Token {
	return token.Token{Type: tokenType, Literal: literal, Pos: l.currentPos()}
}

// skipWhitespaceAndComments skips whitespace, line comments (-- and #)
// and block comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			l.skipLine()
			continue
		}
		if l.ch == '#' && l.dialect == MySQL {
			l.skipLine()
			continue
		}
		if l.ch == '/' && l.peekChar() == '*' {
			l.skipBlockComment()
			continue
		}

		break
	}
}

func (l *Lexer) skipLine() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) skipBlockComment() {
	l.readChar() // skip '/'
	l.readChar() // skip '*'
	for l.ch != 0 {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return
		}
		l.readChar()
	}
}

// readDelimited reads a quoted run ending with closing. A doubled closing
// character is an escaped literal; MySQL also honours backslash escapes
// inside string literals. Returns false when the input ends first.
func (l *Lexer) readDelimited(closing byte) (string, bool) {
	opening := l.ch
	l.readChar() // skip opening quote

	var result strings.Builder
	for l.ch != 0 {
		switch {
		case l.ch == '\\' && l.dialect == MySQL && opening != '`':
			l.readChar()
			if l.ch == 0 {
				return "", false
			}
			result.WriteByte(unescape(l.ch))
			l.readChar()
		case l.ch == closing && l.peekChar() == closing:
			result.WriteByte(closing)
			l.readChar()
			l.readChar()
		case l.ch == closing:
			l.readChar()
			return result.String(), true
		default:
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
	return "", false
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$' || l.ch >= 0x80 {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) || l.ch == '.' && start == l.pos {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar()
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readOperator() string {
	start := l.pos
	for isOperatorChar(l.ch) {
		// comments take precedence over operator runs
		if l.ch == '-' && l.peekChar() == '-' || l.ch == '/' && l.peekChar() == '*' {
			break
		}
		l.readChar()
	}
	if start == l.pos {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func unescape(ch byte) byte {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return ch
	}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isOperatorChar(ch byte) bool {
	return strings.IndexByte("+-/%<>!|&^~:@?", ch) >= 0
}
