package foldeddiff

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCombineJoinsMatchingStacks(t *testing.T) {
	before := "a;b 10\na;c 5\n"
	after := "a;b 20\na;c 5\n"

	var buf bytes.Buffer
	require.NoError(t, Combine(strings.NewReader(before), strings.NewReader(after), &buf, Options{}))
	require.Equal(t, "a;b 10 20\na;c 5 5\n", buf.String())
}

func TestCombineIncludesAfterOnlyStacks(t *testing.T) {
	before := "a;b 10\n"
	after := "a;b 10\na;new 7\n"

	var buf bytes.Buffer
	require.NoError(t, Combine(strings.NewReader(before), strings.NewReader(after), &buf, Options{}))
	require.Equal(t, "a;b 10 10\na;new 0 7\n", buf.String())
}

func TestCombineNormalizeScalesBeforeToAfterTotal(t *testing.T) {
	before := "a 50\n"
	after := "a 100\n"

	var buf bytes.Buffer
	require.NoError(t, Combine(strings.NewReader(before), strings.NewReader(after), &buf, Options{Normalize: true}))
	require.Equal(t, "a 100 100\n", buf.String())
}

func TestCombineStripHexMergesAddresses(t *testing.T) {
	before := "a;0xdeadbeef 10\n"
	after := "a;0xfeedface 10\n"

	var buf bytes.Buffer
	require.NoError(t, Combine(strings.NewReader(before), strings.NewReader(after), &buf, Options{StripHex: true}))
	require.Equal(t, "a;0x... 10 10\n", buf.String())
}

func TestCombineSkipsMalformedLines(t *testing.T) {
	before := "a 10\nnotanumber\n"
	after := "a 10\n"

	var buf bytes.Buffer
	require.NoError(t, Combine(strings.NewReader(before), strings.NewReader(after), &buf, Options{}))
	require.Equal(t, "a 10 10\n", buf.String())
}
