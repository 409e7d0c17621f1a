package lint

// Rule IDs and node types used for messages the engine produces itself.
const (
	ParseErrorRuleID = "parse-error"

	NodeTypeParseError         = "ParseError"
	NodeTypeNormalizationError = "NormalizationError"
	NodeTypeRuleError          = "RuleError"
)

// LintMessage is a single finding.
type LintMessage struct {
	RuleID   string            `json:"ruleId"`
	Severity Severity          `json:"severity"`
	Message  string            `json:"message"`
	Line     int               `json:"line"`
	Column   int               `json:"column"`
	Data     map[string]string `json:"data,omitempty"`
	NodeType string            `json:"nodeType,omitempty"`
}

// LintResult holds the messages for one input.
type LintResult struct {
	Filename     string        `json:"filename"`
	Messages     []LintMessage `json:"messages"`
	ErrorCount   int           `json:"errorCount"`
	WarningCount int           `json:"warningCount"`
	InfoCount    int           `json:"infoCount"`
}

func (r *LintResult) add(msgs ...LintMessage) {
	for _, m := range msgs {
		r.Messages = append(r.Messages, m)
		switch m.Severity {
		case SeverityError:
			r.ErrorCount++
		case SeverityWarning:
			r.WarningCount++
		case SeverityInfo:
			r.InfoCount++
		}
	}
}

// HasErrors reports whether the result holds at least one error.
func (r LintResult) HasErrors() bool {
	return r.ErrorCount > 0
}

// SourceFile is one input to LintFiles.
type SourceFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Summary aggregates a batch of results.
type Summary struct {
	TotalFiles      int `json:"totalFiles"`
	TotalErrors     int `json:"totalErrors"`
	TotalWarnings   int `json:"totalWarnings"`
	TotalInfos      int `json:"totalInfos"`
	FilesWithIssues int `json:"filesWithIssues"`
}

// Problems returns the total number of messages.
func (s Summary) Problems() int {
	return s.TotalErrors + s.TotalWarnings + s.TotalInfos
}

// Summarize totals the counters of results.
func Summarize(results []LintResult) Summary {
	s := Summary{TotalFiles: len(results)}
	for _, r := range results {
		s.TotalErrors += r.ErrorCount
		s.TotalWarnings += r.WarningCount
		s.TotalInfos += r.InfoCount
		if len(r.Messages) > 0 {
			s.FilesWithIssues++
		}
	}
	return s
}
