package commands

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlint/internal/cli/output"
	"github.com/leapstack-labs/sqlint/pkg/lint"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Category    string // Filter by category
	Recommended bool   // Only recommended rules
	Enabled     bool   // Only rules enabled by the configuration
}

// RuleView describes a rule and whether the configuration enables it.
type RuleView struct {
	lint.RuleInfo
	Enabled  bool   `json:"enabled"`
	Severity string `json:"severity,omitempty"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [rule-name]",
		Short: "List available lint rules",
		Long: `List the built-in and plugin rules with their metadata.

The "enabled" column reflects the loaded configuration, including
--rule overrides.`,
		Example: `  # List all rules
  sqlint rules

  # Show one rule
  sqlint rules no-select-star

  # Recommended rules as JSON
  sqlint rules --recommended --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			views, err := ruleViews(cmdCtx)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				return showRule(cmdCtx.Renderer, views, args[0])
			}
			return listRules(cmdCtx.Renderer, filterRules(views, opts))
		},
	}

	cmd.Flags().StringP("format", "f", "", "Output format: auto, stylish, compact, json, markdown")
	cmd.Flags().StringArray("rule", nil, "Rule setting as name=severity (repeatable)")
	cmd.Flags().StringVarP(&opts.Category, "category", "c", "", "Filter by category")
	cmd.Flags().BoolVar(&opts.Recommended, "recommended", false, "Only list recommended rules")
	cmd.Flags().BoolVar(&opts.Enabled, "enabled", false, "Only list enabled rules")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

// ruleViews describes every registered rule, sorted by category then name.
func ruleViews(cmdCtx *CommandContext) ([]RuleView, error) {
	cfg, err := cmdCtx.Resolve()
	if err != nil {
		return nil, err
	}
	enabled := make(map[string]bool)
	for _, name := range cfg.RuleNames() {
		enabled[name] = true
	}

	all := cmdCtx.Registry.GetAll()
	views := make([]RuleView, 0, len(all))
	for _, r := range all {
		v := RuleView{RuleInfo: r.Info(), Enabled: enabled[r.Name]}
		if sev, ok := cfg.Severities[r.Name]; ok {
			v.Severity = sev.String()
		}
		views = append(views, v)
	}
	slices.SortFunc(views, func(a, b RuleView) int {
		if c := cmp.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return views, nil
}

func filterRules(views []RuleView, opts *RulesOptions) []RuleView {
	out := views[:0:0]
	for _, v := range views {
		if opts.Category != "" && v.Category != opts.Category {
			continue
		}
		if opts.Recommended && !v.Recommended {
			continue
		}
		if opts.Enabled && !v.Enabled {
			continue
		}
		out = append(out, v)
	}
	return out
}

func listRules(r *output.Renderer, views []RuleView) error {
	if r.EffectiveMode() == output.ModeJSON {
		if views == nil {
			views = []RuleView{}
		}
		return r.JSON(views)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Rule", "Category", "Recommended", "Enabled", "Description"})
	for _, v := range views {
		t.AppendRow(table.Row{v.Name, v.Category, yesNo(v.Recommended), enabledLabel(v), v.Description})
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader("Lint Rules", 2))
		r.Println()
		t.RenderMarkdown()
		return nil
	}

	r.Header("Lint Rules")
	t.Render()
	r.Muted(fmt.Sprintf("%d rules", len(views)))
	return nil
}

func showRule(r *output.Renderer, views []RuleView, name string) error {
	idx := slices.IndexFunc(views, func(v RuleView) bool { return v.Name == name })
	if idx < 0 {
		return fmt.Errorf("%w: %s", lint.ErrRuleNotFound, name)
	}
	v := views[idx]

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(v)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(v.Name, 2))
		r.Println()
		r.Println(v.Description)
		r.Println()
		r.Println(output.FormatKeyValue("Category", v.Category))
		r.Println(output.FormatKeyValue("Recommended", yesNo(v.Recommended)))
		r.Println(output.FormatKeyValue("Enabled", enabledLabel(v)))
		r.Println(output.FormatKeyValue("Docs", v.DocURL))
	default:
		s := r.Styles()
		r.Println(s.Header1.Render(v.Name))
		r.Println(v.Description)
		r.Println()
		r.Printf("%s %s\n", s.Bold.Render("Category:   "), v.Category)
		r.Printf("%s %s\n", s.Bold.Render("Recommended:"), yesNo(v.Recommended))
		r.Printf("%s %s\n", s.Bold.Render("Enabled:    "), enabledLabel(v))
		r.Printf("%s %s\n", s.Bold.Render("Docs:       "), s.Muted.Render(v.DocURL))
	}
	return nil
}

func enabledLabel(v RuleView) string {
	if !v.Enabled {
		return "no"
	}
	if v.Severity != "" {
		return "yes (" + v.Severity + ")"
	}
	return "yes"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
