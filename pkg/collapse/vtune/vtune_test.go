package vtune

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/perfdiag/flamekit/pkg/collapse"
)

func collapseString(t *testing.T, input string, opt Options) string {
	t.Helper()
	var out strings.Builder
	err := collapse.Collapse(strings.NewReader(input), &out, New(opt))
	require.NoError(t, err)
	return out.String()
}

func TestLeafFirstRowsReversed(t *testing.T) {
	input := "c;b;a,1\nb;a,1\n"
	got := collapseString(t, input, Options{})
	require.Equal(t, "a;b 1\na;b;c 1\n", got)
}

func TestHeaderRowSkipped(t *testing.T) {
	input := "Stack,CPU Time:Self\nc;b;a,5\n"
	got := collapseString(t, input, Options{HasHeader: true})
	require.Equal(t, "a;b;c 5\n", got)
}

func TestMalformedRowFails(t *testing.T) {
	var out strings.Builder
	err := collapse.Collapse(strings.NewReader("not-a-valid-row\n"), &out, New(Options{}))
	require.Error(t, err)
}
