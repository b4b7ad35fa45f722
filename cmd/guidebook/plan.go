package main

import (
	"os"

	"github.com/aretw0/guidebook/internal/cli"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan [leaves]",
	Short: "Show the open decisions without running anything",
	Long: `Optimizes the guidebook against the profile and prints the decisions that
are still open, in the order they would be asked. Validation commands run,
leaves do not.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOptions(cmd, args)
		opts.JSON, _ = cmd.Flags().GetBool("json")
		return cli.PrintPlan(cmd.Context(), opts, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().Bool("json", false, "Print the plan as JSON")
}
