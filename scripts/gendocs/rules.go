package main

import (
	"cmp"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"

	"github.com/leapstack-labs/sqlint/pkg/lint"
	"github.com/leapstack-labs/sqlint/pkg/lint/rules"
)

// categoryDescriptions describe the built-in rule categories.
var categoryDescriptions = map[string]string{
	"Best Practices":   "Rules about statements that are legal but error prone.",
	"Stylistic Issues": "Rules about naming and formatting conventions.",
}

// generateRuleDocs writes the rules overview page and one page per rule.
func generateRuleDocs(outDir string) error {
	log.Printf("Generating rule docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	reg := lint.NewRegistry()
	if err := rules.RegisterRecommended(reg); err != nil {
		return err
	}
	all := reg.GetAll()
	slices.SortFunc(all, func(a, b lint.Rule) int {
		if c := cmp.Compare(a.Meta.Category, b.Meta.Category); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	if err := generateRulesIndex(outDir, all); err != nil {
		return err
	}
	log.Printf("  Generated index.md")

	for _, r := range all {
		if err := generateRulePage(outDir, r); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", r.Name, err)
		}
		log.Printf("  Generated %s.md", r.Name)
	}
	return nil
}

// generateRulesIndex generates the rules overview page.
func generateRulesIndex(outDir string, all []lint.Rule) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Rules", "Built-in lint rules of sqlint")
	w.GeneratedMarker()

	w.Header(1, "Rules")
	w.Paragraph(fmt.Sprintf("sqlint ships with %d built-in rules. Rules marked recommended are enabled by `sqlint init`.", len(all)))

	w.Header(2, "Severity Levels")
	w.Table(
		[]string{"Setting", "Effect"},
		[][]string{
			{InlineCode("error"), "Enable the rule and report its findings as errors"},
			{InlineCode("warning"), "Enable the rule and report its findings as warnings"},
			{InlineCode("info"), "Enable the rule and report its findings as infos"},
			{InlineCode("on"), "Enable the rule with the severity it reports"},
			{InlineCode("off"), "Disable the rule"},
		},
	)

	w.Header(2, "Configuration")
	w.Paragraph("Rules are configured in `sqlint.yaml`, in a file's frontmatter or with `--rule`:")
	w.CodeBlock("yaml", `rules:
  no-select-star: error           # enable with severity
  table-naming-convention: off    # disable
  column-naming-convention:       # severity with options
    - warning
    - ignore: ["ID"]`)

	var category string
	var rows [][]string
	flush := func() {
		if len(rows) == 0 {
			return
		}
		w.Header(2, category)
		if desc, ok := categoryDescriptions[category]; ok {
			w.Paragraph(desc)
		}
		w.Table([]string{"Rule", "Recommended", "Description"}, rows)
		rows = nil
	}
	for _, r := range all {
		if r.Meta.Category != category {
			flush()
			category = r.Meta.Category
		}
		link := fmt.Sprintf("[%s](/rules/%s)", InlineCode(r.Name), r.Name)
		rows = append(rows, []string{link, recommended(r), cleanDescription(r.Meta.Description)})
	}
	flush()

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}

// generateRulePage generates the page of a single rule.
func generateRulePage(outDir string, r lint.Rule) error {
	info := r.Info()
	w := NewMarkdownWriter()

	w.Frontmatter(info.Name, cleanDescription(info.Description))
	w.GeneratedMarker()

	w.Header(1, info.Name)
	w.Paragraph(info.Description)
	w.BulletList([]string{
		Bold("Category") + ": " + info.Category,
		Bold("Recommended") + ": " + recommended(r),
	})

	w.Header(2, "Configuration")
	w.CodeBlock("yaml", fmt.Sprintf("rules:\n  %s: warning", info.Name))

	if ex, ok := ruleExamples[info.Name]; ok {
		w.Header(2, "Bad")
		w.CodeBlock("sql", ex.bad)
		w.Header(2, "Good")
		w.CodeBlock("sql", ex.good)
	}

	return os.WriteFile(filepath.Join(outDir, info.Name+".md"), w.Bytes(), 0600)
}

type example struct {
	bad, good string
}

// ruleExamples holds SQL examples for the built-in rules.
var ruleExamples = map[string]example{
	"no-select-star": {
		bad:  "SELECT * FROM orders;",
		good: "SELECT id, customer_id, total FROM orders;",
	},
	"table-naming-convention": {
		bad:  "CREATE TABLE UserAccounts (id bigint);",
		good: "CREATE TABLE user_accounts (id bigint);",
	},
	"require-primary-key": {
		bad:  "CREATE TABLE events (id bigint, name text);",
		good: "CREATE TABLE events (id bigint PRIMARY KEY, name text);",
	},
	"column-naming-convention": {
		bad:  "CREATE TABLE events (EventName text);",
		good: "CREATE TABLE events (event_name text);",
	},
}

func recommended(r lint.Rule) string {
	if r.Meta.IsRecommended() {
		return "yes"
	}
	return "no"
}
