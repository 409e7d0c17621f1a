package lsp

import (
	"errors"

	"github.com/leapstack-labs/sqlint/internal/loader"
	"github.com/leapstack-labs/sqlint/pkg/lint"
)

// diagnosticSource is reported as the source of every diagnostic.
const diagnosticSource = "sqlint"

// severityToLSP maps a lint severity to its LSP counterpart.
func severityToLSP(s lint.Severity) DiagnosticSeverity {
	switch s {
	case lint.SeverityError:
		return DiagnosticSeverityError
	case lint.SeverityWarning:
		return DiagnosticSeverityWarning
	case lint.SeverityInfo:
		return DiagnosticSeverityInformation
	default:
		return DiagnosticSeverityHint
	}
}

// toDiagnostics converts lint messages to diagnostics. Lint positions are
// 1-based; LSP positions are zero-based.
func toDiagnostics(doc *Document, msgs []lint.LintMessage) []Diagnostic {
	diags := make([]Diagnostic, 0, len(msgs))
	for _, m := range msgs {
		d := Diagnostic{
			Range:    messageRange(doc, m.Line, m.Column),
			Severity: severityToLSP(m.Severity),
			Code:     m.RuleID,
			Source:   diagnosticSource,
			Message:  m.Message,
		}
		if m.NodeType == "" && m.RuleID != lint.ParseErrorRuleID {
			d.CodeDescription = &CodeDescription{Href: lint.DocURL(m.RuleID)}
		}
		diags = append(diags, d)
	}
	return diags
}

// frontmatterDiagnostic reports a broken frontmatter block as an error on
// the line it was found.
func frontmatterDiagnostic(doc *Document, err error) Diagnostic {
	line := 1
	var parseErr *loader.FrontmatterParseError
	if errors.As(err, &parseErr) && parseErr.Line > 0 {
		line = parseErr.Line
	}
	return Diagnostic{
		Range:    messageRange(doc, line, 1),
		Severity: DiagnosticSeverityError,
		Code:     "frontmatter",
		Source:   diagnosticSource,
		Message:  err.Error(),
	}
}

func messageRange(doc *Document, line, column int) Range {
	start := Position{}
	if line > 0 {
		start.Line = uint32(line - 1)
	}
	if column > 0 {
		start.Character = uint32(column - 1)
	}
	if doc == nil {
		return Range{Start: start, End: start}
	}
	return doc.WordRange(start)
}
