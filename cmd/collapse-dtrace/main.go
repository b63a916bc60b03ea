// Command collapse-dtrace folds DTrace user-stack aggregation dumps into
// the canonical folded-stack format (spec §4.3 "dtrace", §6).
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/perfdiag/flamekit/pkg/cliutil"
	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/collapse/dtrace"
	"github.com/perfdiag/flamekit/pkg/maxprocs"
	"github.com/perfdiag/flamekit/pkg/xlog"
)

var (
	includeOffset bool
	nthreads      int
	logLevel      string

	rootCmd = &cobra.Command{
		Use:           "collapse-dtrace [INPUT]",
		Short:         "Fold DTrace user-stack dumps into folded stacks",
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
			opt := dtrace.Options{IncludeOffset: includeOffset}
			if path != "" && nthreads > 1 {
				return collapse.CollapseFileParallelNWithLogger(context.Background(), path, os.Stdout, dtrace.New(opt), nthreads, logger)
			}
			in, err := cliutil.OpenInput(path)
			if err != nil {
				return err
			}
			defer in.Close()
			return collapse.CollapseWithLogger(in, os.Stdout, dtrace.New(opt), logger)
		},
	}
)

func init() {
	rootCmd.Flags().BoolVar(&includeOffset, "includeoffset", false, "Keep trailing +0x... address offsets in frame names")
	rootCmd.Flags().IntVarP(&nthreads, "nthreads", "n", 1, "Number of worker threads (requires a file INPUT)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
}

func main() {
	maxprocs.Adjust()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cliutil.Fatal(err))
	}
}
