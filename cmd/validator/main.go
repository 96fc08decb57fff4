package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"
	commit  = "dev"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "validator",
	Short: "Partner CSV batch validator",
	Long: `validator checks every partner CSV stored for one business date and records
an accuracy summary per file.

Examples:
  validator validate
  validator validate --date 2026-02-03 --workers 8
  validator validate --date 2026-02-03 --partner-id 10 --dry-run
  validator version`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
