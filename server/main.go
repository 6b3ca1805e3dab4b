// Command server runs the flowagent HTTP service and offline conversion tools.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/flowagent/config"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "flowagent",
		Short: "Turn diagrams and instructions into n8n workflows",
		Long: `flowagent is a chat service that builds n8n workflows from mermaid
flowchart diagrams or natural-language instructions.

Without a subcommand it runs the HTTP server (same as "flowagent serve").
Settings come from the environment; see "flowagent serve --help".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	opts.bind(cmd)

	cmd.AddCommand(serveCmd(), convertCmd())
	return cmd
}

// newLogger builds the root slog logger from cfg.
func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}
