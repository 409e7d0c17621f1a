// Package loader finds SQL files and reads their per-file settings.
package loader

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sqlint/internal/config"
	"github.com/leapstack-labs/sqlint/pkg/lint"
)

// Frontmatter holds per-file settings from a leading /*--- ... ---*/
// block. Unknown fields are errors.
type Frontmatter struct {
	Rules   lint.RuleSettings
	Dialect string
	Env     map[string]any
	// Skip excludes the file from linting.
	Skip bool
}

// IsEmpty reports whether the frontmatter changes nothing.
func (f *Frontmatter) IsEmpty() bool {
	return f == nil || (len(f.Rules) == 0 && f.Dialect == "" && len(f.Env) == 0 && !f.Skip)
}

// FrontmatterResult holds the result of frontmatter extraction.
type FrontmatterResult struct {
	Config  *Frontmatter
	HasYAML bool // Whether frontmatter was found
}

// frontmatterPattern matches a /*--- ... ---*/ block at the start of a file.
var frontmatterPattern = regexp.MustCompile(`(?s)^\s*/\*---\s*\n(.*?)\s*---\*/`)

// ExtractFrontmatter parses the frontmatter of content, if any. The SQL is
// left untouched: the block is a comment, so positions stay stable.
func ExtractFrontmatter(content string) (*FrontmatterResult, error) {
	result := &FrontmatterResult{Config: &Frontmatter{}}

	matches := frontmatterPattern.FindStringSubmatch(content)
	if len(matches) < 2 {
		return result, nil
	}
	result.HasYAML = true

	// The block starts on line 1 plus any leading blank lines.
	line := 1 + strings.Count(content[:strings.Index(content, "/*---")], "\n") + 1

	cfg, err := parseFrontmatterYAML(matches[1], line)
	if err != nil {
		return nil, err
	}
	result.Config = cfg
	return result, nil
}

var knownFields = map[string]bool{
	"rules":   true,
	"dialect": true,
	"env":     true,
	"skip":    true,
}

func parseFrontmatterYAML(content string, firstLine int) (*Frontmatter, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, &FrontmatterParseError{Line: firstLine, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	cfg := &Frontmatter{}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return cfg, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &FrontmatterParseError{Line: firstLine + root.Line - 1, Message: "frontmatter must be a mapping"}
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if !knownFields[key.Value] {
			return nil, &UnknownFieldError{Field: key.Value}
		}

		var err error
		switch key.Value {
		case "rules":
			cfg.Rules, err = config.DecodeRuleSettings(val)
		case "dialect":
			err = val.Decode(&cfg.Dialect)
		case "env":
			err = val.Decode(&cfg.Env)
		case "skip":
			err = val.Decode(&cfg.Skip)
		}
		if err != nil {
			return nil, &FrontmatterParseError{
				Line:    firstLine + val.Line - 1,
				Message: fmt.Sprintf("%s: %v", key.Value, err),
			}
		}
	}
	return cfg, nil
}

// FrontmatterParseError represents a frontmatter parsing error.
type FrontmatterParseError struct {
	File    string
	Line    int
	Message string
}

func (e *FrontmatterParseError) Error() string {
	if e.File != "" {
		if e.Line > 0 {
			return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// UnknownFieldError represents an error for unknown frontmatter fields.
type UnknownFieldError struct {
	File  string
	Field string
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("unknown field %q in frontmatter (known: dialect, env, rules, skip)", e.Field)
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}
