package dtrace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/perfdiag/flamekit/pkg/collapse"
)

func TestLeafFirstInput(t *testing.T) {
	input := "\n  c\n  b\n  a\n  2\n"

	var out strings.Builder
	err := collapse.Collapse(strings.NewReader(input), &out, New(Options{}))
	require.NoError(t, err)
	require.Equal(t, "a;b;c 2\n", out.String())
}

func TestMultipleRecords(t *testing.T) {
	input := strings.Join([]string{
		"",
		"  c",
		"  b",
		"  a",
		"  2",
		"",
		"  b",
		"  a",
		"  1",
		"",
	}, "\n")

	var out strings.Builder
	err := collapse.Collapse(strings.NewReader(input), &out, New(Options{}))
	require.NoError(t, err)
	require.Equal(t, "a;b 1\na;b;c 2\n", out.String())
}
