package lint

import (
	"github.com/leapstack-labs/sqlint/pkg/token"
)

// Descriptor describes a finding passed to Context.Report. Node is the
// subject of the finding and feeds message templates and the Locator;
// it may be a *Statement, *ast.CreateTableNode, *ast.ColumnDefinition,
// an ast.Column or a sqlparser.Node.
type Descriptor struct {
	Node     any
	Message  string
	Severity Severity
	Data     map[string]string
}

// Context collects the findings of one rule for one statement. It is
// created fresh for every invocation and must not be retained.
type Context struct {
	rule     string
	filename string
	source   string
	env      map[string]any
	stmt     *Statement
	locator  Locator
	override *Severity
	options  Options
	messages []LintMessage
}

// Report records a finding. Message placeholders {{database_name}},
// {{table_name}} and {{column_name}} are expanded from d.Node.
func (c *Context) Report(d Descriptor) {
	pos := c.locator.Locate(d.Node, c.stmt)
	sev := d.Severity
	if c.override != nil {
		sev = *c.override
	}

	var data map[string]string
	if d.Data != nil {
		data = make(map[string]string, len(d.Data))
		for k, v := range d.Data {
			data[k] = v
		}
	}

	c.messages = append(c.messages, LintMessage{
		RuleID:   c.rule,
		Severity: sev,
		Message:  expandTemplate(d.Message, d.Node, c.stmt),
		Line:     pos.Line,
		Column:   pos.Column,
		Data:     data,
	})
}

// Messages returns a copy of the findings reported so far.
func (c *Context) Messages() []LintMessage {
	return append([]LintMessage(nil), c.messages...)
}

// Filename returns the name of the input being linted.
func (c *Context) Filename() string { return c.filename }

// Source returns the SQL text being linted.
func (c *Context) Source() string { return c.source }

// RuleName returns the name of the rule being run.
func (c *Context) RuleName() string { return c.rule }

// Env returns the env mapping of the resolved config.
func (c *Context) Env() map[string]any { return c.env }

// Options returns the rule's configured options. It is never nil.
func (c *Context) Options() Options {
	if c.options == nil {
		return Options{}
	}
	return c.options
}

// Statement returns the statement being linted.
func (c *Context) Statement() *Statement { return c.stmt }

// Locator maps a reported node to a source position.
type Locator interface {
	Locate(node any, stmt *Statement) token.Position
}

// FixedLocator reports every finding at line 1, column 1.
type FixedLocator struct{}

// Locate implements Locator.
func (FixedLocator) Locate(any, *Statement) token.Position {
	return token.Position{Line: 1, Column: 1}
}

// SpanLocator reports findings at the start of their statement, using the
// location the parser records on statement nodes. It falls back to 1:1.
type SpanLocator struct{}

// Locate implements Locator.
func (SpanLocator) Locate(_ any, stmt *Statement) token.Position {
	if stmt != nil {
		if span, ok := stmt.Raw.Span(); ok && span.Start.IsValid() {
			return span.Start
		}
	}
	return token.Position{Line: 1, Column: 1}
}
