// Command flamegraph renders a folded-stack stream (optionally in
// differential two-count form) into a self-contained interactive SVG
// flame graph (spec §4.5, §6).
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/perfdiag/flamekit/pkg/cliutil"
	"github.com/perfdiag/flamekit/pkg/color"
	"github.com/perfdiag/flamekit/pkg/flamegraph"
	"github.com/perfdiag/flamekit/pkg/maxprocs"
	"github.com/perfdiag/flamekit/pkg/xlog"
)

var (
	title          string
	subtitle       string
	notes          string
	width          int
	height         int
	fontSize       int
	fontType       string
	minWidth       float64
	colorsFlag     string
	bgColorsFlag   string
	hash           bool
	deterministic  bool
	colorDiffusion bool
	flameChart     bool
	inverted       bool
	reverse        bool
	noSort         bool
	negate         bool
	paletteFile    string
	countName      string
	logLevel       string

	rootCmd = &cobra.Command{
		Use:           "flamegraph [INPUT]",
		Short:         "Render a folded-stack stream as an SVG flame graph",
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

			palette, err := color.Parse(colorsFlag)
			if err != nil {
				return err
			}

			opt := flamegraph.DefaultOptions()
			opt.Logger = logger
			opt.Title = title
			opt.Subtitle = subtitle
			opt.Notes = notes
			opt.ImageWidth = width
			opt.FrameHeight = height
			opt.FontSize = fontSize
			opt.FontType = fontType
			opt.MinWidth = minWidth
			opt.Colors = palette
			opt.Hash = hash
			opt.Deterministic = deterministic
			opt.ColorDiffusion = colorDiffusion
			opt.FlameChart = flameChart
			opt.Inverted = inverted
			opt.Reverse = reverse
			opt.NoSort = noSort
			opt.Negate = negate
			if countName != "" {
				opt.CountName = countName
			}
			if bgColorsFlag != "" {
				top, bottom, err := parseBgColors(bgColorsFlag)
				if err != nil {
					return err
				}
				opt.BgColorTop, opt.BgColorBottom = top, bottom
			}

			var pm *color.PaletteMap
			if paletteFile != "" {
				pm, err = color.LoadPaletteMap(paletteFile)
				if err != nil {
					return err
				}
				opt.PaletteMap = pm
			}

			in, err := cliutil.OpenInput(path)
			if err != nil {
				return err
			}
			defer in.Close()

			renderErr := flamegraph.Render(in, os.Stdout, opt)

			if pm != nil {
				if err := pm.SaveTo(paletteFile); err != nil {
					return err
				}
			}
			return renderErr
		},
	}
)

func parseBgColors(s string) (top, bottom string, err error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("--bgcolors wants C1,C2, got %q", s)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

func init() {
	rootCmd.Flags().StringVar(&title, "title", "Flame Graph", "Title text for the flame graph")
	rootCmd.Flags().StringVar(&subtitle, "subtitle", "", "Subtitle text for the flame graph")
	rootCmd.Flags().StringVar(&notes, "notes", "", "Notes text shown in the bottom-left corner")
	rootCmd.Flags().IntVar(&width, "width", 1200, "Image width, in pixels")
	rootCmd.Flags().IntVar(&height, "height", 16, "Frame height, in pixels")
	rootCmd.Flags().IntVar(&fontSize, "fontsize", 12, "Font size for frame labels")
	rootCmd.Flags().StringVar(&fontType, "fonttype", "Verdana", "Font family for frame labels")
	rootCmd.Flags().Float64Var(&minWidth, "minwidth", 0.1, "Minimum drawable frame width, in image units")
	rootCmd.Flags().StringVar(&colorsFlag, "colors", "hot", "Color palette (hot, mem, io, java, js, perl, python, rust, red, green, blue, aqua, yellow, purple, orange, grey, wakeup, multi)")
	rootCmd.Flags().StringVar(&bgColorsFlag, "bgcolors", "", "Background gradient as C1,C2, overriding the palette default")
	rootCmd.Flags().BoolVar(&hash, "hash", false, "Color by function name hash consistently across runs")
	rootCmd.Flags().BoolVar(&deterministic, "deterministic", false, "Use only the name hash for color, ignoring width weighting")
	rootCmd.Flags().BoolVar(&colorDiffusion, "color-diffusion", false, "Scale redness by a frame's width percentile")
	rootCmd.Flags().BoolVar(&flameChart, "flamechart", false, "Order siblings by first-seen time instead of alphabetically")
	rootCmd.Flags().BoolVar(&inverted, "inverted", false, "Render as an icicle graph, growing top-down")
	rootCmd.Flags().BoolVar(&reverse, "reverse", false, "Reverse each stack before merging (leaf-to-root view)")
	rootCmd.Flags().BoolVar(&noSort, "no-sort", false, "Assume input lines are already sorted")
	rootCmd.Flags().BoolVar(&negate, "negate", false, "Diff mode: swap which count drives width and delta sign")
	rootCmd.Flags().StringVar(&paletteFile, "palette-file", "", "Persisted function-name to color map")
	rootCmd.Flags().StringVar(&countName, "countname", "samples", "Label for the sample count in each frame's title")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
}

func main() {
	maxprocs.Adjust()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cliutil.Fatal(err))
	}
}
