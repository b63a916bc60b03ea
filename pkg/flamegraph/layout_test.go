package flamegraph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildForLayout(t *testing.T, input string, opt Options) (*node, layoutResult) {
	t.Helper()
	records, _, err := readRecords(strings.NewReader(input), opt.Reverse)
	require.NoError(t, err)
	root, isDiff := buildTrie(records, opt.FlameChart, opt.NoSort)
	return root, layout(root, opt.withDefaults(), isDiff)
}

func TestLayoutAssignsFullWidthToSingleStack(t *testing.T) {
	_, lay := buildForLayout(t, "a;b 100\n", Options{ImageWidth: 1200})
	require.Len(t, lay.frames, 2)
	require.Equal(t, "a", lay.frames[0].name)
	require.InDelta(t, defaultXPad, lay.frames[0].x0, 0.001)
	require.InDelta(t, float64(defaultImageWidth-defaultXPad), lay.frames[0].x1, 0.001)
}

func TestLayoutSkipsNarrowSubtrees(t *testing.T) {
	input := "a;wide 999\na;tiny 1\n"
	_, lay := buildForLayout(t, input, Options{ImageWidth: 1200, MinWidth: 50})
	var names []string
	for _, f := range lay.frames {
		names = append(names, f.name)
	}
	require.Contains(t, names, "wide")
	require.NotContains(t, names, "tiny")
}

func TestLayoutFramePathIsFullStack(t *testing.T) {
	_, lay := buildForLayout(t, "a;b;c 10\n", Options{ImageWidth: 1200})
	byName := map[string]frame{}
	for _, f := range lay.frames {
		byName[f.name] = f
	}
	require.Equal(t, "a", byName["a"].path)
	require.Equal(t, "a;b", byName["b"].path)
	require.Equal(t, "a;b;c", byName["c"].path)
}

func TestLayoutTracksMaxDepth(t *testing.T) {
	_, lay := buildForLayout(t, "a;b;c 10\nx 5\n", Options{ImageWidth: 1200})
	require.Equal(t, 3, lay.maxDepth)
}

func TestLayoutDiffModeTracksMaxAbsDelta(t *testing.T) {
	_, lay := buildForLayout(t, "a 10 40\nb 10 5\n", Options{ImageWidth: 1200})
	require.Equal(t, int64(30), lay.maxAbsDelta)
}
