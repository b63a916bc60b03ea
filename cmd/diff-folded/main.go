// Command diff-folded joins two folded-stack files by stack key into the
// two-count differential format the flame-graph renderer treats as diff
// mode (spec §4.4, §6).
package main

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"

	"github.com/perfdiag/flamekit/pkg/cliutil"
	"github.com/perfdiag/flamekit/pkg/foldeddiff"
	"github.com/perfdiag/flamekit/pkg/maxprocs"
	"github.com/perfdiag/flamekit/pkg/stackerr"
	"github.com/perfdiag/flamekit/pkg/xlog"
)

var (
	normalize bool
	stripHex  bool
	logLevel  string

	rootCmd = &cobra.Command{
		Use:           "diff-folded BEFORE.folded AFTER.folded",
		Short:         "Combine two folded-stack files into a differential folded stream",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			logger, err := xlog.NewCLI(logLevel)
			if err != nil {
				return err
			}

			before, err := os.Open(args[0])
			if err != nil {
				return stackerr.IO(args[0], err)
			}
			defer before.Close()

			after, err := os.Open(args[1])
			if err != nil {
				return stackerr.IO(args[1], err)
			}
			defer after.Close()

			out := bufio.NewWriter(os.Stdout)
			if err := foldeddiff.Combine(before, after, out, foldeddiff.Options{
				Normalize: normalize,
				StripHex:  stripHex,
				Logger:    logger,
			}); err != nil {
				return err
			}
			return out.Flush()
		},
	}
)

func init() {
	rootCmd.Flags().BoolVar(&normalize, "normalize", false, "Scale before-counts so before/after totals match")
	rootCmd.Flags().BoolVar(&stripHex, "strip-hex", false, "Collapse 0x... addresses before matching stacks")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
}

func main() {
	maxprocs.Adjust()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cliutil.Fatal(err))
	}
}
