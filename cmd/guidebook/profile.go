package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/guidebook/internal/cli"
	"github.com/aretw0/guidebook/internal/logging"
	"github.com/aretw0/guidebook/pkg/session"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage stored profiles",
	Long:  `List, inspect, copy, compare and remove the profiles holding guidebook answers.`,
}

var profileLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProfiles(cmd, func(m *session.Manager) error {
			names, err := m.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing profiles: %w", err)
			}
			if len(names) == 0 {
				fmt.Println("No profiles found.")
				return nil
			}
			fmt.Println("Profiles:")
			for _, n := range names {
				fmt.Println("- " + n)
			}
			return nil
		})
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <profile>",
	Short: "Print the answers of a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProfiles(cmd, func(m *session.Manager) error {
			state, err := m.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("loading profile '%s': %w", args[0], err)
			}
			return printJSON(state)
		})
	},
}

var profileRmCmd = &cobra.Command{
	Use:   "rm <profile>...",
	Short: "Remove one or more profiles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProfiles(cmd, func(m *session.Manager) error {
			failed := 0
			for _, name := range args {
				if err := m.Delete(cmd.Context(), name); err != nil {
					fmt.Fprintf(os.Stderr, "Error removing '%s': %v\n", name, err)
					failed++
					continue
				}
				fmt.Printf("Removed profile '%s'\n", name)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d profiles not removed", failed, len(args))
			}
			return nil
		})
	},
}

var profileCloneCmd = &cobra.Command{
	Use:   "clone <from> <to>",
	Short: "Copy the answers of a profile into another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProfiles(cmd, func(m *session.Manager) error {
			if _, err := m.Clone(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Cloned profile '%s' into '%s'\n", args[0], args[1])
			return nil
		})
	},
}

var profileRejectCmd = &cobra.Command{
	Use:   "reject <profile> <key>...",
	Short: "Forget answers so they are asked again",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProfiles(cmd, func(m *session.Manager) error {
			if _, err := m.Reject(cmd.Context(), args[0], args[1:]...); err != nil {
				return err
			}
			fmt.Printf("Rejected %d answers in profile '%s'\n", len(args)-1, args[0])
			return nil
		})
	},
}

var profileDiffCmd = &cobra.Command{
	Use:   "diff <from> <to>",
	Short: "Show the answers that differ between two profiles",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProfiles(cmd, func(m *session.Manager) error {
			diff, err := m.Diff(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if diff == nil {
				fmt.Println("Profiles are identical.")
				return nil
			}
			return printJSON(diff)
		})
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileLsCmd, profileShowCmd, profileRmCmd, profileCloneCmd, profileRejectCmd, profileDiffCmd)
}

func withProfiles(cmd *cobra.Command, fn func(*session.Manager) error) error {
	m, closeStore, err := cli.OpenProfiles(storeOptions(cmd), logging.NewNop())
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(m)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
