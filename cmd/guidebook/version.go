package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/guidebook"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of guidebook",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("guidebook version %s\n", strings.TrimSpace(guidebook.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
