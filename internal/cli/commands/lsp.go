package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlint/internal/lsp"
)

// NewLSPCommand creates the lsp command.
func NewLSPCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the LSP server for editor integration.

The server communicates over stdin/stdout using JSON-RPC and publishes
lint diagnostics for open SQL documents. The project config is looked up
from the client's rootUri.`,
		Example: `  # Start LSP server (usually called by an editor)
  sqlint lsp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			cfg, err := cmdCtx.Resolve()
			if err != nil {
				return err
			}
			server := lsp.NewServer(os.Stdin, os.Stdout, lsp.Options{
				Linter:   cmdCtx.Linter(),
				Registry: cmdCtx.Registry,
				Input:    cmdCtx.Cfg.Input(),
				Config:   cfg,
				Logger:   cmdCtx.Logger,
				Version:  version,
			})
			return server.Run()
		},
	}

	return cmd
}
