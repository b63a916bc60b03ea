// Command collapse-perf folds Linux `perf script` output into the
// canonical folded-stack format (spec §4.3 "perf", §6).
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/perfdiag/flamekit/pkg/cliutil"
	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/collapse/perf"
	"github.com/perfdiag/flamekit/pkg/maxprocs"
	"github.com/perfdiag/flamekit/pkg/xlog"
)

var (
	includePID   bool
	includeTID   bool
	annotateKernel bool
	annotateJIT    bool
	showAddrs      bool
	allEvents      bool
	eventFilter    string
	nthreads       int
	logLevel       string

	rootCmd = &cobra.Command{
		Use:           "collapse-perf [INPUT]",
		Short:         "Fold Linux perf script output into folded stacks",
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
			opt := perf.Options{
				IncludePID:     includePID,
				IncludeTID:     includeTID,
				AnnotateKernel: annotateKernel,
				AnnotateJIT:    annotateJIT,
				ShowAddrs:      showAddrs,
				All:            allEvents,
				EventFilter:    eventFilter,
			}
			if path != "" && nthreads > 1 {
				return collapse.CollapseFileParallelNWithLogger(context.Background(), path, os.Stdout, perf.New(opt), nthreads, logger)
			}
			in, err := cliutil.OpenInput(path)
			if err != nil {
				return err
			}
			defer in.Close()
			return collapse.CollapseWithLogger(in, os.Stdout, perf.New(opt), logger)
		},
	}
)

func init() {
	rootCmd.Flags().BoolVar(&includePID, "pid", false, "Include PID with process names")
	rootCmd.Flags().BoolVar(&includeTID, "tid", false, "Include TID and PID with process names")
	rootCmd.Flags().BoolVar(&annotateKernel, "kernel", false, "Annotate kernel functions with a _[k] suffix")
	rootCmd.Flags().BoolVar(&annotateJIT, "jit", false, "Annotate JIT functions with a _[j] suffix")
	rootCmd.Flags().BoolVar(&showAddrs, "addrs", false, "Show raw address offsets")
	rootCmd.Flags().BoolVar(&allEvents, "all", false, "Disable event-type filtering")
	rootCmd.Flags().StringVar(&eventFilter, "event-filter", "", "Only include samples for this event")
	rootCmd.Flags().IntVarP(&nthreads, "nthreads", "n", 1, "Number of worker threads (requires a file INPUT)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
}

func main() {
	maxprocs.Adjust()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cliutil.Fatal(err))
	}
}
