package recursive

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/perfdiag/flamekit/pkg/collapse"
)

func doCollapse(t *testing.T, input string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, collapse.Collapse(strings.NewReader(input), &buf, New(Options{})))
	return buf.String()
}

func TestCollapsesConsecutiveRepeats(t *testing.T) {
	require.Equal(t, "a;b;c 5\n", doCollapse(t, "a;b;b;b;c 5\n"))
}

func TestLeavesNonRecursiveStacksAlone(t *testing.T) {
	require.Equal(t, "a;b;c 5\n", doCollapse(t, "a;b;c 5\n"))
}

func TestDoesNotMergeNonConsecutiveRepeats(t *testing.T) {
	require.Equal(t, "a;b;a 5\n", doCollapse(t, "a;b;a 5\n"))
}

func TestMergesAcrossMultipleRuns(t *testing.T) {
	require.Equal(t, "a;b;c;b 5\n", doCollapse(t, "a;a;b;b;c;b;b 5\n"))
}
