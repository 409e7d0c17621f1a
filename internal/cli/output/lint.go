package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sqlint/pkg/lint"
)

// LintOutput is the JSON document written for a lint run.
type LintOutput struct {
	Results []lint.LintResult `json:"results"`
	Summary lint.Summary      `json:"summary"`
	RunID   string            `json:"runId,omitempty"`
}

// LintResults renders results in the renderer's effective mode.
func (r *Renderer) LintResults(results []lint.LintResult, runID string) error {
	summary := lint.Summarize(results)
	switch r.EffectiveMode() {
	case ModeJSON:
		if results == nil {
			results = []lint.LintResult{}
		}
		return r.JSON(LintOutput{Results: results, Summary: summary, RunID: runID})
	case ModeMarkdown:
		r.lintMarkdown(results, summary)
	case ModeCompact:
		r.lintCompact(results, summary)
	default:
		r.lintStylish(results, summary)
	}
	if runID != "" {
		r.Muted("Recorded run " + runID)
	}
	return nil
}

func (r *Renderer) lintStylish(results []lint.LintResult, summary lint.Summary) {
	if summary.Problems() == 0 {
		r.Success(fmt.Sprintf("No problems found in %d files", summary.TotalFiles))
		return
	}

	s := r.styles
	for _, res := range results {
		if len(res.Messages) == 0 {
			continue
		}
		r.Println(s.FilePath.Render(res.Filename))

		locWidth, msgWidth := 0, 0
		for _, m := range res.Messages {
			locWidth = max(locWidth, len(location(m)))
			msgWidth = max(msgWidth, lipgloss.Width(m.Message))
		}
		for _, m := range res.Messages {
			r.Printf("  %s  %s  %s  %s\n",
				s.Muted.Render(padRight(location(m), locWidth)),
				r.severityLabel(m.Severity),
				padRight(m.Message, msgWidth),
				s.Muted.Render(m.RuleID),
			)
		}
		r.Println()
	}

	style := s.Warning
	if summary.TotalErrors > 0 {
		style = s.Error
	}
	r.Println(style.Bold(true).Render(summaryLine(summary)))
}

func (r *Renderer) lintCompact(results []lint.LintResult, summary lint.Summary) {
	for _, res := range results {
		for _, m := range res.Messages {
			r.Printf("%s: line %d, col %d, %s - %s (%s)\n",
				res.Filename, m.Line, m.Column, capitalize(m.Severity.String()), m.Message, m.RuleID)
		}
	}
	if n := summary.Problems(); n > 0 {
		r.Println()
		r.Printf("%d %s\n", n, plural(n, "problem"))
	}
}

func (r *Renderer) lintMarkdown(results []lint.LintResult, summary lint.Summary) {
	r.Println(FormatHeader("Lint Results", 2))
	r.Println()

	if summary.Problems() == 0 {
		r.Printf("No problems found in %d files.\n", summary.TotalFiles)
		return
	}

	for _, res := range results {
		if len(res.Messages) == 0 {
			continue
		}
		r.Println(FormatHeader("`"+res.Filename+"`", 3))
		r.Println()
		r.Println("| Line | Column | Severity | Rule | Message |")
		r.Println("|---:|---:|---|---|---|")
		for _, m := range res.Messages {
			r.Printf("| %d | %d | %s | `%s` | %s |\n",
				m.Line, m.Column, m.Severity, m.RuleID, escapeCell(m.Message))
		}
		r.Println()
	}

	r.Println(FormatKeyValue("Files", fmt.Sprintf("%d (%d with issues)", summary.TotalFiles, summary.FilesWithIssues)))
	r.Println(FormatKeyValue("Errors", fmt.Sprint(summary.TotalErrors)))
	r.Println(FormatKeyValue("Warnings", fmt.Sprint(summary.TotalWarnings)))
	r.Println(FormatKeyValue("Infos", fmt.Sprint(summary.TotalInfos)))
}

func (r *Renderer) severityLabel(sev lint.Severity) string {
	label := padRight(sev.String(), len("warning"))
	switch sev {
	case lint.SeverityError:
		return r.styles.Error.Render(label)
	case lint.SeverityWarning:
		return r.styles.Warning.Render(label)
	default:
		return r.styles.Info.Render(label)
	}
}

// summaryLine formats the stylish footer.
func summaryLine(s lint.Summary) string {
	n := s.Problems()
	return fmt.Sprintf("✖ %d %s (%d %s, %d %s, %d %s)",
		n, plural(n, "problem"),
		s.TotalErrors, plural(s.TotalErrors, "error"),
		s.TotalWarnings, plural(s.TotalWarnings, "warning"),
		s.TotalInfos, plural(s.TotalInfos, "info"),
	)
}

func location(m lint.LintMessage) string {
	return fmt.Sprintf("%d:%d", m.Line, m.Column)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// capitalize title-cases a severity label. Casers are stateful, so each
// call gets its own.
func capitalize(s string) string {
	return cases.Title(language.English).String(s)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
