package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"ruleforge-hq/anvil/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "anvil",
	Short: "Anvil - design rule checks with an embeddable expression language",
	Long: `Anvil compiles design rules written in a small expression language and
checks them against board descriptions.

Rules are YAML files whose condition, assert and message fields are
expressions over the items of a board:

  - name: min-clearance
    condition: A.Type == 'pad'
    assert: A.Clearance >= 0.15mm

Exit codes:
  0  success, nothing found
  1  violations or rule errors found
  2  invalid input or internal failure`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code of its error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ve *cli.ViolationsError
		if errors.As(err, &ve) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
