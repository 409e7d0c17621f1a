package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlint/internal/server"
	"github.com/leapstack-labs/sqlint/internal/state"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lint HTTP API",
		Long: `Start an HTTP server exposing the linter.

Endpoints:
  POST /v1/lint         lint one SQL document
  POST /v1/lint/batch   lint several documents
  GET  /v1/rules        list rules
  GET  /v1/runs         recorded runs (requires history)
  GET  /healthz         liveness

Batch runs are recorded when a history database is configured.`,
		Example: `  # Serve on the default address
  sqlint serve

  # Serve on all interfaces with history
  sqlint serve --addr :7878 --history .sqlint/history.db`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default from config)")
	cmd.Flags().String("history", "", "History database path; empty disables recording")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cmdCtx.Resolve()
	if err != nil {
		return err
	}

	var store state.Store
	if path := cmdCtx.HistoryPath(false); path != "" {
		s, err := cmdCtx.OpenHistory(path)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		store = s
	}

	srv := server.New(server.Config{
		Addr:     cmdCtx.Cfg.Serve.Addr,
		Linter:   cmdCtx.Linter(),
		Registry: cmdCtx.Registry,
		Lint:     cfg,
		Store:    store,
		Timeout:  cmdCtx.Cfg.Serve.Timeout,
		Logger:   cmdCtx.Logger,
	})
	cmdCtx.Renderer.Muted("Serving on http://" + cmdCtx.Cfg.Serve.Addr)
	return srv.Serve(cmd.Context())
}
