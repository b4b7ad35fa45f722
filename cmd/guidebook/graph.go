package main

import (
	"os"

	"github.com/aretw0/guidebook/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [leaves]",
	Short: "Export the decision tree visualization",
	Long:  `Optimizes the guidebook against the profile and outputs a Mermaid diagram (graph TD) colored by status.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.PrintGraph(cmd.Context(), runOptions(cmd, args), os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
