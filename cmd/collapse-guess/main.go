// Command collapse-guess peeks at its input, dispatches to whichever
// format's collapser matches, and folds it into the canonical folded-
// stack format (spec §4.3 "guess", §6).
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/perfdiag/flamekit/pkg/cliutil"
	"github.com/perfdiag/flamekit/pkg/collapse/guess"
	"github.com/perfdiag/flamekit/pkg/maxprocs"
	"github.com/perfdiag/flamekit/pkg/xlog"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "collapse-guess [INPUT]",
	Short:         "Detect a sampler format and fold it into folded stacks",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(_ *cobra.Command, args []string) error {
		logger, err := xlog.NewCLI(logLevel)
		if err != nil {
			return err
		}
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		in, err := cliutil.OpenInput(path)
		if err != nil {
			return err
		}
		defer in.Close()
		return guess.Dispatch(in, os.Stdout, guess.Options{Logger: logger})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
}

func main() {
	maxprocs.Adjust()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cliutil.Fatal(err))
	}
}
