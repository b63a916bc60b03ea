package flamegraph

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/perfdiag/flamekit/pkg/color"
	"github.com/perfdiag/flamekit/pkg/stackerr"
)

// Render reads a folded-stack stream from r and writes a self-contained
// SVG flame graph to w, per spec §4.5. Lines with two trailing sample
// counts switch the whole render into differential mode; a malformed
// line is skipped (spec §4.5 "Failure semantics"); an input with no
// stacks produces the minimal "no stacks" SVG and also returns a
// KindRender error.
func Render(r io.Reader, w io.Writer, opt Options) error {
	opt = opt.withDefaults()

	records, skipped, err := readRecords(r, opt.Reverse)
	if err != nil {
		return err
	}
	if skipped > 0 && opt.Logger != nil {
		opt.Logger.Warn("skipped malformed folded lines", zap.Int("count", skipped))
	}
	if opt.Reverse {
		opt.NoSort = false // reversed stacks must always be re-sorted
	}

	root, isDiff := buildTrie(records, opt.FlameChart, opt.NoSort)
	if root.total == 0 && root.after == 0 {
		return renderEmpty(w, opt)
	}

	lay := layout(root, opt, isDiff)
	return renderSVG(w, opt, lay)
}

// renderEmpty emits the minimal error SVG spec §4.5 requires for an
// empty or all-zero input, and returns a *stackerr.Error of KindRender
// so callers can still choose to exit 0 with a warning per spec §7.
func renderEmpty(w io.Writer, opt Options) error {
	sw := newSVGWriter(w)
	height := opt.FontSize * 5
	sw.header(opt.ImageWidth, height)
	sw.text(textOpts{
		x: float64(opt.ImageWidth) / 2, y: float64(opt.FontSize * 2),
		size: opt.FontSize, anchor: "middle", color: "rgb(0,0,0)",
		text: "ERROR: No stack counts found",
	})
	sw.raw("</svg>\n")
	if err := sw.flush(); err != nil {
		return err
	}
	return stackerr.Render(fmt.Errorf("no stack counts found"))
}

func renderSVG(w io.Writer, opt Options, lay layoutResult) error {
	ypadTop := opt.FontSize*2 + 10
	if opt.Subtitle != "" {
		ypadTop += opt.FontSize + 5
	}
	ypadBottom := opt.FontSize*2 + 10
	imageHeight := (lay.maxDepth+1)*opt.FrameHeight + ypadTop + ypadBottom

	sw := newSVGWriter(w)
	sw.header(opt.ImageWidth, imageHeight)

	bgTop, bgBottom := opt.BgColorTop, opt.BgColorBottom
	if bgTop == "" || bgBottom == "" {
		bgTop, bgBottom = color.BackgroundGradient(opt.Colors)
	}
	sw.prelude(opt, imageHeight, bgTop, bgBottom)

	sw.raw(`<g id="frames">` + "\n")
	for _, f := range lay.frames {
		sw.frameGroup(opt, f, lay, imageHeight, ypadTop, ypadBottom)
	}
	sw.raw("</g>\n")
	sw.raw("</svg>\n")
	return sw.flush()
}

// svgWriter buffers SVG output and tracks the first write error, mirroring
// pkg/collapse's writeFolded error-tracking idiom so callers only need to
// check once at flush.
type svgWriter struct {
	bw  *bufio.Writer
	err error
}

func newSVGWriter(w io.Writer) *svgWriter {
	return &svgWriter{bw: bufio.NewWriter(w)}
}

func (s *svgWriter) raw(str string) {
	if s.err != nil {
		return
	}
	_, s.err = s.bw.WriteString(str)
}

func (s *svgWriter) printf(format string, args ...any) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.bw, format, args...)
}

func (s *svgWriter) flush() error {
	if s.err != nil {
		return stackerr.IO("<output>", s.err)
	}
	if err := s.bw.Flush(); err != nil {
		return stackerr.IO("<output>", err)
	}
	return nil
}

func (s *svgWriter) header(width, height int) {
	s.raw(`<?xml version="1.0" standalone="no"?>` + "\n")
	s.raw(`<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN" "http://www.w3.org/Graphics/SVG/1.1/DTD/svg11.dtd">` + "\n")
	s.printf(
		`<svg version="1.1" width="%d" height="%d" onload="init(evt)" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink">`+"\n",
		width, height, width, height,
	)
	s.raw("<!-- Flame graph stack visualization. -->\n")
}

func (s *svgWriter) prelude(opt Options, imageHeight int, bgTop, bgBottom string) {
	s.raw(`<defs><linearGradient id="background" y1="0" y2="1" x1="0" x2="0">`)
	s.printf(`<stop stop-color="%s" offset="5%%"/>`, bgTop)
	s.printf(`<stop stop-color="%s" offset="95%%"/>`, bgBottom)
	s.raw("</linearGradient></defs>\n")

	s.raw(`<style type="text/css">`)
	s.raw(".func_g:hover { stroke:black; stroke-width:0.5; cursor:pointer; } .func_g text { pointer-events:none; }")
	s.raw("</style>\n")

	s.raw(`<script type="text/ecmascript"><![CDATA[` + "\n")
	s.printf("var nametype = %s;\n", jsString(opt.NameType))
	s.printf("var fontsize = %d;\n", opt.FontSize)
	s.printf("var fontwidth = %s;\n", trimFloat(opt.FontWidth))
	s.printf("var xpad = %d;\n", defaultXPad)
	s.printf("var inverted = %s;\n", boolJS(opt.Inverted))
	s.printf("var searchcolor = %s;\n", jsString(opt.SearchColor.String()))
	s.raw("var searching = 0;\n")
	s.raw(embeddedJS)
	s.raw("]]></script>\n")

	s.printf(`<rect x="0" y="0" width="%d" height="%d" fill="url(#background)"/>`+"\n", opt.ImageWidth, imageHeight)

	title := opt.Title
	if opt.Inverted {
		title += " (inverted)"
	}
	s.text(textOpts{
		x: float64(opt.ImageWidth) / 2, y: float64(opt.FontSize * 2),
		size: opt.FontSize + 5, anchor: "middle", color: "rgb(0,0,0)", text: title,
	})
	if opt.Subtitle != "" {
		s.text(textOpts{
			x: float64(opt.ImageWidth) / 2, y: float64(opt.FontSize*2 + opt.FontSize + 5),
			size: opt.FontSize, anchor: "middle", color: "rgb(160,160,160)", text: opt.Subtitle,
		})
	}
	s.text(textOpts{
		x: defaultXPad, y: float64(imageHeight - defaultXPad),
		size: opt.FontSize, color: "rgb(0,0,0)", text: " ", id: "details",
	})
	s.text(textOpts{
		x: defaultXPad, y: float64(opt.FontSize * 2), size: opt.FontSize,
		color: "rgb(0,0,0)", text: "Reset Zoom", id: "unzoom",
		extra: `onclick="unzoom()" style="opacity:0.0;cursor:pointer"`,
	})
	s.text(textOpts{
		x: float64(opt.ImageWidth - defaultXPad - 100), y: float64(opt.FontSize * 2),
		size: opt.FontSize, color: "rgb(0,0,0)", text: "Search", id: "search",
		extra: `onmouseover="searchover()" onmouseout="searchout()" onclick="search_prompt()" style="opacity:0.1;cursor:pointer"`,
	})
	s.text(textOpts{
		x: float64(opt.ImageWidth - defaultXPad - 100), y: float64(imageHeight - defaultXPad),
		size: opt.FontSize, color: "rgb(0,0,0)", text: " ", id: "matched",
	})
	if opt.Notes != "" {
		s.text(textOpts{
			x: defaultXPad, y: float64(imageHeight - defaultXPad - opt.FontSize - 2),
			size: opt.FontSize - 2, color: "rgb(0,0,0)", text: opt.Notes,
		})
	}
}

type textOpts struct {
	x, y   float64
	size   int
	anchor string
	color  string
	text   string
	id     string
	extra  string
}

func (s *svgWriter) text(o textOpts) {
	anchor := o.anchor
	if anchor == "" {
		anchor = "left"
	}
	s.printf(`<text text-anchor="%s" x="%.2f" y="%.2f" font-size="%d" font-family="Verdana" fill="%s"`,
		anchor, o.x, o.y, o.size, o.color)
	if o.id != "" {
		s.printf(` id="%s"`, o.id)
	}
	if o.extra != "" {
		s.printf(" %s", o.extra)
	}
	s.raw(">")
	s.raw(escapeXML(o.text))
	s.raw("</text>\n")
}

// frameGroup emits one <g class="func_g"> per spec §4.5/§6.
func (s *svgWriter) frameGroup(opt Options, f frame, lay layoutResult, imageHeight, ypadTop, ypadBottom int) {
	x := f.x0
	width := f.x1 - f.x0
	var y float64
	if opt.Inverted {
		y = float64(ypadTop + f.depth*opt.FrameHeight)
	} else {
		y = float64(imageHeight - ypadBottom - (f.depth+1)*opt.FrameHeight)
	}

	fill, title := frameColorAndTitle(opt, f, lay)

	s.raw(`<g class="func_g" onmouseover="s(this)" onmouseout="c()">` + "\n")
	s.printf("<title>%s</title>\n", escapeXML(title))
	s.printf(`<rect x="%.4f" y="%.4f" width="%.4f" height="%d" fill="%s" rx="2" ry="2"/>`+"\n",
		x, y, width, opt.FrameHeight-defaultFramePad, fill)

	label := truncateLabel(f.name, width, opt.FontSize, opt.FontWidth)
	s.text(textOpts{
		x: x + 3, y: y + float64(opt.FrameHeight) - 4,
		size: opt.FontSize, color: "rgb(0,0,0)", text: label,
	})
	s.raw("</g>\n")
}

// frameColorAndTitle computes a frame's fill color and its <title> text.
// The title always encodes the full root-to-here stack path so that
// re-parsing every <title> recovers the same multiset of stacks the
// input folded stream held (spec §8 property 3 "Round-trip stability").
func frameColorAndTitle(opt Options, f frame, lay layoutResult) (fill, title string) {
	if f.diff {
		c := color.DiffScale(f.deltaSign, lay.maxAbsDelta)
		pct := deltaPercent(f.self, f.after)
		title = fmt.Sprintf("%s (%d %s, %+.2f%%)", f.path, f.after, opt.CountName, pct)
		return c.Hex(), title
	}

	pct := 0.0
	if lay.totalWidth > 0 {
		pct = float64(f.self) / float64(lay.totalWidth) * 100
	}
	title = fmt.Sprintf("%s (%d %s, %.2f%%)", f.path, f.self, opt.CountName, pct)

	widthFraction := 0.0
	if lay.totalWidth > 0 {
		widthFraction = float64(f.self) / float64(lay.totalWidth)
	}
	if opt.PaletteMap != nil {
		if rgb, ok := opt.PaletteMap.Get(f.name); ok {
			return rgb.Hex(), title
		}
	}
	rgb := color.ForFrame(opt.Colors, f.name, color.HashOptions{
		Deterministic:  opt.Deterministic,
		WidthFraction:  widthFraction,
		ColorDiffusion: opt.ColorDiffusion,
	})
	if opt.PaletteMap != nil {
		opt.PaletteMap.Set(f.name, rgb)
	}
	return rgb.Hex(), title
}

func deltaPercent(before, after uint64) float64 {
	if before == 0 {
		if after == 0 {
			return 0
		}
		return 100
	}
	return (float64(after) - float64(before)) / float64(before) * 100
}

// truncateLabel shortens text to fit width image units at the configured
// font metrics, ending in ".." once it no longer fits verbatim (spec
// §4.5 "Emit": "Text is truncated to ... if it exceeds the rect width").
// Where at most minTruncateChars characters fit, the label is cut to that
// many characters with no ".."; where not even one fits, it is dropped.
func truncateLabel(text string, width float64, fontSize int, fontWidth float64) string {
	charWidth := float64(fontSize) * fontWidth
	if charWidth <= 0 {
		return text
	}
	maxChars := int(width / charWidth)
	if maxChars < 1 {
		return ""
	}
	if len(text) <= maxChars {
		return text
	}
	if maxChars <= minTruncateChars {
		return text[:maxChars]
	}
	return text[:maxChars-2] + ".."
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

func jsString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
}

func boolJS(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	return s
}
