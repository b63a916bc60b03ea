// Command collapse-recursive merges recursive calls out of an
// already-folded stack stream (spec §4.3 "recursive", §6).
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/perfdiag/flamekit/pkg/cliutil"
	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/collapse/recursive"
	"github.com/perfdiag/flamekit/pkg/maxprocs"
	"github.com/perfdiag/flamekit/pkg/xlog"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "collapse-recursive [INPUT]",
	Short:         "Merge recursive calls out of an already-folded stack stream",
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
		return collapse.CollapseWithLogger(in, os.Stdout, recursive.New(recursive.Options{}), logger)
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
