package main

import (
	"fmt"
	"os"

	"github.com/aretw0/guidebook/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [leaves]",
	Short: "Check the leaves for consistency",
	Long: `Reports duplicate ids, choice groups with conflicting titles or modes,
cleanup tasks for unknown imports and malformed expand() groups.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOptions(cmd, args)
		if err := cli.Validate(cmd.Context(), opts.LeavesPath, os.Stdout); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
