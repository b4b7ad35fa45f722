package main

import (
	"github.com/aretw0/guidebook/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [leaves]",
	Short: "Ask the open decisions and run the guidebook",
	Long: `Loads the leaves, asks every decision the profile does not answer yet and
runs the chosen leaves. Answers are saved as they are given, so an
interrupted run resumes where it stopped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOptions(cmd, args)
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.Fresh, _ = cmd.Flags().GetBool("fresh")
		opts.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		return cli.Execute(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("json", false, "Run in JSON mode (JSON-Lines decisions and events)")
	runCmd.Flags().BoolP("watch", "w", false, "Run in development mode, restarting on leaf changes")
	runCmd.Flags().Bool("fresh", false, "Forget the answers of the profile before running")
	runCmd.Flags().String("metrics-addr", "", "Expose prometheus metrics on this address while running")

	// 'run' is the default when no command is given.
	rootCmd.Args = cobra.MaximumNArgs(1)
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
	rootCmd.RunE = runCmd.RunE
}
