package vsprof

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/perfdiag/flamekit/pkg/collapse"
)

func collapseString(t *testing.T, input string) string {
	t.Helper()
	var out strings.Builder
	err := collapse.Collapse(strings.NewReader(input), &out, New())
	require.NoError(t, err)
	return out.String()
}

func TestChildCallsSubtractedFromParent(t *testing.T) {
	input := strings.Join([]string{
		startLine,
		`1,"A",100,0.00,0.00,0.00,0.00,"app.dll",`,
		`2,"B",60,0.00,0.00,0.00,0.00,"app.dll",`,
		`1,"C",5,0.00,0.00,0.00,0.00,"app.dll",`,
	}, "\n") + "\n"

	got := collapseString(t, input)
	require.Equal(t, "A 40\nA;B 60\nC 5\n", got)
}

func TestRejectsWrongHeader(t *testing.T) {
	var out strings.Builder
	err := collapse.Collapse(strings.NewReader("not,the,header\n"), &out, New())
	require.Error(t, err)
}
