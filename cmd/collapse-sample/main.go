// Command collapse-sample folds macOS `sample` call-tree dumps into the
// canonical folded-stack format (spec §4.3 "sample", §6).
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/perfdiag/flamekit/pkg/cliutil"
	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/collapse/sample"
	"github.com/perfdiag/flamekit/pkg/maxprocs"
	"github.com/perfdiag/flamekit/pkg/xlog"
)

var (
	noModules bool
	logLevel  string

	rootCmd = &cobra.Command{
		Use:           "collapse-sample [INPUT]",
		Short:         "Fold macOS sample call-tree dumps into folded stacks",
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
			return collapse.CollapseWithLogger(in, os.Stdout, sample.New(sample.Options{NoModules: noModules}), logger)
		},
	}
)

func init() {
	rootCmd.Flags().BoolVar(&noModules, "no-modules", false, "Drop the module` prefix on function names")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
}

func main() {
	maxprocs.Adjust()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cliutil.Fatal(err))
	}
}
