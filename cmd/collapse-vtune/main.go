// Command collapse-vtune folds Intel VTune "Bottom-up" CSV exports into
// the canonical folded-stack format (spec §4.3 "vtune", §6).
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/perfdiag/flamekit/pkg/cliutil"
	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/collapse/vtune"
	"github.com/perfdiag/flamekit/pkg/maxprocs"
	"github.com/perfdiag/flamekit/pkg/xlog"
)

var (
	hasHeader bool
	logLevel  string

	rootCmd = &cobra.Command{
		Use:           "collapse-vtune [INPUT]",
		Short:         "Fold Intel VTune bottom-up CSV exports into folded stacks",
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
			return collapse.CollapseWithLogger(in, os.Stdout, vtune.New(vtune.Options{HasHeader: hasHeader}), logger)
		},
	}
)

func init() {
	rootCmd.Flags().BoolVar(&hasHeader, "has-header", true, "Skip the first non-blank row as a column header")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
}

func main() {
	maxprocs.Adjust()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cliutil.Fatal(err))
	}
}
