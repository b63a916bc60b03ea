// Command collapse-ghcprof folds GHC .prof cost-centre reports into the
// canonical folded-stack format (spec §4.3 "ghcprof", §6).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/perfdiag/flamekit/pkg/cliutil"
	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/collapse/ghcprof"
	"github.com/perfdiag/flamekit/pkg/maxprocs"
	"github.com/perfdiag/flamekit/pkg/xlog"
)

var (
	sourceFlag string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:           "collapse-ghcprof [INPUT]",
		Short:         "Fold GHC .prof cost-centre reports into folded stacks",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			source, err := parseSource(sourceFlag)
			if err != nil {
				return err
			}
			logger, err := xlog.NewCLI(logLevel)
			if err != nil {
				return err
			}
			in, ioerr := cliutil.OpenInput(path)
			if ioerr != nil {
				return ioerr
			}
			defer in.Close()
			return collapse.CollapseWithLogger(in, os.Stdout, ghcprof.New(ghcprof.Options{Source: source}), logger)
		},
	}
)

func parseSource(s string) (ghcprof.Source, error) {
	switch s {
	case "", "time":
		return ghcprof.SourcePercentTime, nil
	case "ticks":
		return ghcprof.SourceTicks, nil
	case "bytes":
		return ghcprof.SourceBytes, nil
	default:
		return 0, fmt.Errorf("unknown --source %q, want time|ticks|bytes", s)
	}
}

func init() {
	rootCmd.Flags().StringVar(&sourceFlag, "source", "time", "Weight column: time|ticks|bytes")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
}

func main() {
	maxprocs.Adjust()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cliutil.Fatal(err))
	}
}
