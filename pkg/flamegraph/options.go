// Package flamegraph implements the streaming SVG flame-graph renderer
// from spec §4.5: it merges a folded-stack stream into a trie, lays out
// each frame's x/y/width, colors it, and streams self-contained SVG to a
// writer. It supports flame-chart mode (time-ordered siblings) and
// differential mode (two-count input, red/blue delta coloring).
package flamegraph

import (
	"github.com/perfdiag/flamekit/pkg/color"
	"github.com/perfdiag/flamekit/pkg/xlog"
)

// Direction controls whether frames grow from the bottom of the image
// upward (the default flame graph) or from the top down (icicle /
// inverted, spec glossary).
type Direction int

const (
	DirectionBottomUp Direction = iota
	DirectionTopDown
)

// Options configures one render, mirroring the `flamegraph` CLI flags in
// spec §6.
type Options struct {
	Title    string
	Subtitle string
	Notes    string

	ImageWidth  int
	FrameHeight int
	MinWidth    float64

	FontType  string
	FontSize  int
	FontWidth float64

	CountName string
	NameType  string

	Colors         color.Palette
	BgColorTop     string // overrides the palette's default gradient when non-empty
	BgColorBottom  string
	Hash           bool
	Deterministic  bool
	ColorDiffusion bool
	SearchColor    color.RGB

	PaletteMap *color.PaletteMap

	FlameChart bool // siblings in first-seen order instead of alphabetical
	Inverted   bool // icicle: grow top-down
	Reverse    bool // reverse each stack before merging (leaf-to-root view)
	NoSort     bool // caller guarantees input lines are already sorted
	Negate     bool // diff mode: swap which count drives width/sign

	UTF8Lossy bool

	// Logger receives a warning naming the number of malformed lines
	// readRecords skipped. Nil means don't log (used by tests and by
	// callers that don't care).
	Logger xlog.Logger
}

const (
	defaultXPad        = 10
	defaultFramePad    = 1
	minTruncateChars   = 3
	rootFrameName      = "all"
	defaultFontType    = "Verdana"
	defaultCountName   = "samples"
	defaultNameType    = "Function:"
	defaultImageWidth  = 1200
	defaultFrameHeight = 16
	defaultMinWidth    = 0.1
	defaultFontSize    = 12
	defaultFontWidth   = 0.59
)

// DefaultOptions returns the CLI's zero-flag defaults (spec §4.5, §6).
func DefaultOptions() Options {
	return Options{
		Title:       "Flame Graph",
		ImageWidth:  defaultImageWidth,
		FrameHeight: defaultFrameHeight,
		MinWidth:    defaultMinWidth,
		FontType:    defaultFontType,
		FontSize:    defaultFontSize,
		FontWidth:   defaultFontWidth,
		CountName:   defaultCountName,
		NameType:    defaultNameType,
		Colors:      color.Hot,
		SearchColor: color.RGB{R: 230, G: 0, B: 230},
	}
}

func (o Options) withDefaults() Options {
	if o.ImageWidth == 0 {
		o.ImageWidth = defaultImageWidth
	}
	if o.FrameHeight == 0 {
		o.FrameHeight = defaultFrameHeight
	}
	if o.MinWidth == 0 {
		o.MinWidth = defaultMinWidth
	}
	if o.FontType == "" {
		o.FontType = defaultFontType
	}
	if o.FontSize == 0 {
		o.FontSize = defaultFontSize
	}
	if o.FontWidth == 0 {
		o.FontWidth = defaultFontWidth
	}
	if o.CountName == "" {
		o.CountName = defaultCountName
	}
	if o.NameType == "" {
		o.NameType = defaultNameType
	}
	if o.Title == "" {
		o.Title = "Flame Graph"
	}
	if o.SearchColor == (color.RGB{}) {
		o.SearchColor = color.RGB{R: 230, G: 0, B: 230}
	}
	return o
}
