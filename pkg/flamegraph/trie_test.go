package flamegraph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFoldedLineSingleCount(t *testing.T) {
	frames, before, after, isDiff, err := parseFoldedLine("a;b;c 42")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, frames)
	require.Equal(t, uint64(42), before)
	require.Equal(t, uint64(42), after)
	require.False(t, isDiff)
}

func TestParseFoldedLineDiffCounts(t *testing.T) {
	frames, before, after, isDiff, err := parseFoldedLine("a;b 10 20")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, frames)
	require.Equal(t, uint64(10), before)
	require.Equal(t, uint64(20), after)
	require.True(t, isDiff)
}

func TestParseFoldedLineNamesWithSpaces(t *testing.T) {
	frames, before, after, isDiff, err := parseFoldedLine("do the thing;another one 5")
	require.NoError(t, err)
	require.Equal(t, []string{"do the thing", "another one"}, frames)
	require.Equal(t, uint64(5), before)
	require.Equal(t, uint64(5), after)
	require.False(t, isDiff)
}

func TestParseFoldedLineMissingCount(t *testing.T) {
	_, _, _, _, err := parseFoldedLine("a;b;c")
	require.Error(t, err)
}

func TestParseFoldedLineEmpty(t *testing.T) {
	_, _, _, _, err := parseFoldedLine("")
	require.Error(t, err)
}

func TestReadRecordsSkipsMalformed(t *testing.T) {
	input := "a;b 10\nnocount\nc;d 5\n"
	records, skipped, err := readRecords(strings.NewReader(input), false)
	require.NoError(t, err)
	require.Equal(t, 1, skipped)
	require.Len(t, records, 2)
}

func TestReadRecordsReverse(t *testing.T) {
	records, _, err := readRecords(strings.NewReader("a;b;c 10\n"), true)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b", "a"}, records[0].frames)
}

func TestBuildTrieMergesSharedPrefixes(t *testing.T) {
	records, _, err := readRecords(strings.NewReader("a;b 10\na;c 20\n"), false)
	require.NoError(t, err)

	root, isDiff := buildTrie(records, false, false)
	require.False(t, isDiff)
	require.Equal(t, uint64(30), root.total)

	a := root.children["a"]
	require.NotNil(t, a)
	require.Equal(t, uint64(30), a.total)
	require.Equal(t, uint64(10), a.children["b"].total)
	require.Equal(t, uint64(20), a.children["c"].total)
}

func TestBuildTrieDetectsDiffMode(t *testing.T) {
	records, _, err := readRecords(strings.NewReader("a;b 10 20\n"), false)
	require.NoError(t, err)

	root, isDiff := buildTrie(records, false, false)
	require.True(t, isDiff)
	require.Equal(t, uint64(10), root.total)
	require.Equal(t, uint64(20), root.after)
}

func TestSortedChildrenFlameChartPreservesOrder(t *testing.T) {
	root := newNode(rootFrameName)
	root.child("zebra")
	root.child("apple")
	require.Equal(t, []string{"zebra", "apple"}, root.sortedChildren(true))
	require.Equal(t, []string{"apple", "zebra"}, root.sortedChildren(false))
}
