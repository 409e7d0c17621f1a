package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlint/internal/cli/output"
	"github.com/leapstack-labs/sqlint/internal/state"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded lint runs",
		Long: `List lint runs recorded with "sqlint lint --record", or show the
messages of one run.`,
		Example: `  # Latest runs
  sqlint history

  # Messages of one run
  sqlint history 6f1c2e9a-...

  # As JSON
  sqlint history --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContextWithoutRules(cmd)
			if err != nil {
				return err
			}
			path := cmdCtx.HistoryPath(true)
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("no history at %s; record runs with sqlint lint --record", path)
			}
			store, err := cmdCtx.OpenHistory(path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if len(args) > 0 {
				return showRun(cmd, cmdCtx.Renderer, store, args[0])
			}
			return listRuns(cmd, cmdCtx.Renderer, store, limit)
		},
	}

	cmd.Flags().StringP("format", "f", "", "Output format: auto, stylish, compact, json, markdown")
	cmd.Flags().String("history", "", "History database path")
	cmd.Flags().IntVarP(&limit, "limit", "n", state.DefaultListLimit, "Number of runs to list")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

func listRuns(cmd *cobra.Command, r *output.Renderer, store state.Store, limit int) error {
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []state.Run{}
		}
		return r.JSON(runs)
	}
	if len(runs) == 0 {
		r.Muted("No recorded runs.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Files", "Errors", "Warnings", "Infos"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID, run.StartedAt.Local().Format(time.DateTime),
			run.Files, run.Errors, run.Warnings, run.Infos,
		})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader("Lint History", 2))
		r.Println()
		t.RenderMarkdown()
		return nil
	}
	r.Header("Lint History")
	t.Render()
	return nil
}

func showRun(cmd *cobra.Command, r *output.Renderer, store state.Store, id string) error {
	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	msgs, err := store.GetRunMessages(cmd.Context(), id)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		if msgs == nil {
			msgs = []state.StoredMessage{}
		}
		return r.JSON(struct {
			*state.Run
			Messages []state.StoredMessage `json:"messages"`
		}{run, msgs})
	}

	r.Header("Run " + run.ID)
	r.Printf("Started %s with %s\n", run.StartedAt.Local().Format(time.DateTime), run.Config)
	r.Printf("%d files, %d errors, %d warnings, %d infos\n\n", run.Files, run.Errors, run.Warnings, run.Infos)
	if len(msgs) == 0 {
		r.Success("No problems recorded")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Line", "Col", "Severity", "Rule", "Message"})
	for _, m := range msgs {
		t.AppendRow(table.Row{m.Filename, m.Line, m.Column, m.Severity.String(), m.RuleID, m.Message})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	return nil
}
