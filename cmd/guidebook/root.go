package main

import (
	"fmt"
	"os"

	"github.com/aretw0/guidebook/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "guidebook",
	Short: "Guidebook turns leaf scripts into an interactive, resumable runbook",
	Long: `Guidebook compiles a list of leaves (scripts tagged with the choices,
imports and wizard steps they belong to) into a decision tree, asks the
decisions that are still open and runs what was chosen. Answers are kept in
profiles so a run can be resumed or replayed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	f := rootCmd.PersistentFlags()
	f.StringP("leaves", "l", ".", "Leaves file or directory")
	f.StringP("profile", "p", cli.DefaultProfile, "Profile holding the answers")
	f.String("store", cli.StoreFile, "Profile store: file, memory, redis or sqlite")
	f.String("profile-dir", "", "Directory of the file store (default .guidebook/profiles)")
	f.String("redis", cli.DefaultRedisURL, "Redis URL of the redis store")
	f.String("sqlite", "", "Database path of the sqlite store (default .guidebook/profiles.db)")
	f.StringSlice("redact", nil, "Regexps of answer keys never written to the store")
	f.StringArrayP("assert", "a", nil, "Pre-seed an answer (key=value), repeatable")
	f.StringArray("no-validate", nil, "Skip validation of nodes whose provenance matches a regexp, repeatable")
	f.String("runtimes", "", "Runtimes config (default runtimes.yaml next to the leaves)")
	f.Bool("debug", false, "Log debug output to stderr")
}

// runOptions collects the persistent flags. A positional argument names the
// leaves unless --leaves was given.
func runOptions(cmd *cobra.Command, args []string) cli.RunOptions {
	f := cmd.Flags()
	leaves, _ := f.GetString("leaves")
	if !f.Changed("leaves") && len(args) > 0 {
		leaves = args[0]
	}
	profile, _ := f.GetString("profile")
	assertions, _ := f.GetStringArray("assert")
	noValidate, _ := f.GetStringArray("no-validate")
	runtimes, _ := f.GetString("runtimes")
	debug, _ := f.GetBool("debug")

	return cli.RunOptions{
		LeavesPath:   leaves,
		Profile:      profile,
		Store:        storeOptions(cmd),
		Assertions:   assertions,
		NoValidate:   noValidate,
		RuntimesPath: runtimes,
		Debug:        debug,
	}
}

func storeOptions(cmd *cobra.Command) cli.StoreOptions {
	f := cmd.Flags()
	kind, _ := f.GetString("store")
	dir, _ := f.GetString("profile-dir")
	redisURL, _ := f.GetString("redis")
	sqlitePath, _ := f.GetString("sqlite")
	redact, _ := f.GetStringSlice("redact")
	return cli.StoreOptions{
		Kind:       kind,
		Dir:        dir,
		RedisURL:   redisURL,
		SQLitePath: sqlitePath,
		Redact:     redact,
	}
}
