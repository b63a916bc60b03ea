// Command collapse-pprof folds a github.com/google/pprof binary profile
// into the canonical folded-stack format (spec §4.3's format list,
// extended with pprof as a domain-stack addition; see spec §6).
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/perfdiag/flamekit/pkg/cliutil"
	"github.com/perfdiag/flamekit/pkg/collapse/pprofcollapse"
	"github.com/perfdiag/flamekit/pkg/maxprocs"
	"github.com/perfdiag/flamekit/pkg/xlog"
)

var (
	sampleIndex int
	logLevel    string

	rootCmd = &cobra.Command{
		Use:           "collapse-pprof [INPUT]",
		Short:         "Fold a pprof binary profile into folded stacks",
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
			return pprofcollapse.Collapse(in, os.Stdout, pprofcollapse.Options{SampleIndex: sampleIndex, Logger: logger})
		},
	}
)

func init() {
	rootCmd.Flags().IntVar(&sampleIndex, "sample-index", -1, "Sample-type index to use as the frame count; -1 uses the profile's default")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
}

func main() {
	maxprocs.Adjust()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cliutil.Fatal(err))
	}
}
