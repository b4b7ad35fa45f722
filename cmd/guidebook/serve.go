package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/guidebook/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [leaves]",
	Short: "Start the HTTP server",
	Long: `Exposes the plan, graph and choices of a profile as a JSON API over HTTP,
with lifecycle events streamed as server-sent events and prometheus metrics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return cli.Serve(ctx, runOptions(cmd, args), addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
}
