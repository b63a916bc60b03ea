package flamegraph

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/perfdiag/flamekit/pkg/color"
)

func TestRenderEmptyInputProducesErrorSVG(t *testing.T) {
	var buf bytes.Buffer
	err := Render(strings.NewReader(""), &buf, DefaultOptions())
	require.Error(t, err)
	require.Contains(t, buf.String(), "No stack counts found")
	require.Contains(t, buf.String(), "<svg")
}

func TestRenderBasicStackProducesFrames(t *testing.T) {
	var buf bytes.Buffer
	err := Render(strings.NewReader("a;b 10\na;c 5\n"), &buf, DefaultOptions())
	require.NoError(t, err)
	out := buf.String()
	require.Contains(t, out, `<g id="frames">`)
	require.Contains(t, out, `class="func_g"`)
	require.Contains(t, out, "<title>a")
}

func TestRenderTitleContainsFullStackPath(t *testing.T) {
	var buf bytes.Buffer
	err := Render(strings.NewReader("a;b;c 10\n"), &buf, DefaultOptions())
	require.NoError(t, err)
	require.Contains(t, buf.String(), "<title>a;b;c (10 samples, 100.00%)</title>")
}

func TestRenderDiffModeTitleShowsPercentDelta(t *testing.T) {
	var buf bytes.Buffer
	err := Render(strings.NewReader("a;b 10 20\n"), &buf, DefaultOptions())
	require.NoError(t, err)
	require.Contains(t, buf.String(), "+100.00%")
}

func TestRenderEscapesFrameNames(t *testing.T) {
	var buf bytes.Buffer
	err := Render(strings.NewReader("a<b>&\"c\";leaf 5\n"), &buf, DefaultOptions())
	require.NoError(t, err)
	require.Contains(t, buf.String(), "&lt;b&gt;&amp;&quot;c&quot;")
	require.NotContains(t, buf.String(), "a<b>&\"c\"")
}

func TestRenderEmbedsInteractiveScript(t *testing.T) {
	var buf bytes.Buffer
	err := Render(strings.NewReader("a 1\n"), &buf, DefaultOptions())
	require.NoError(t, err)
	out := buf.String()
	require.Contains(t, out, "function zoom(node)")
	require.Contains(t, out, "var fontsize = 12;")
}

func TestRenderRespectsPaletteMap(t *testing.T) {
	opt := DefaultOptions()
	pm := color.NewPaletteMap()
	opt.PaletteMap = pm
	pm.Set("a", color.RGB{R: 1, G: 2, B: 3})

	var buf bytes.Buffer
	err := Render(strings.NewReader("a 5\n"), &buf, opt)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "#010203")
}

func TestTruncateLabelShortensLongNames(t *testing.T) {
	got := truncateLabel("a_very_long_function_name_indeed", 40, 12, 0.59)
	require.LessOrEqual(t, len(got), 6)
}

func TestTruncateLabelKeepsShortNames(t *testing.T) {
	got := truncateLabel("f", 200, 12, 0.59)
	require.Equal(t, "f", got)
}
