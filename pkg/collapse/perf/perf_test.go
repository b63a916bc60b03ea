package perf

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

func TestMinimalTwoSamples(t *testing.T) {
	input := strings.Join([]string{
		"a 1 1000: 1 cycles:",
		"           1000 c (/bin/a)",
		"           1000 b (/bin/a)",
		"",
		"a 1 1001: 1 cycles:",
		"           1000 b (/bin/a)",
		"",
		"",
	}, "\n")

	got := collapseString(t, input, Options{})
	require.Equal(t, "a;b 1\na;b;c 1\n", got)
}

func TestEventFilterKeepsFirstEvent(t *testing.T) {
	input := strings.Join([]string{
		"a 1 1000: 1 cycles:",
		"           1000 b (/bin/a)",
		"",
		"a 1 1001: 1 instructions:",
		"           1000 c (/bin/a)",
		"",
		"",
	}, "\n")

	got := collapseString(t, input, Options{})
	require.Equal(t, "a;b 1\n", got)

	gotAll := collapseString(t, input, Options{All: true})
	require.Equal(t, "a;b 1\na;c 1\n", gotAll)
}

func TestKernelAnnotation(t *testing.T) {
	input := strings.Join([]string{
		"a 1 1000: 1 cycles:",
		"           1000 do_syscall ([kernel.kallsyms])",
		"",
		"",
	}, "\n")

	got := collapseString(t, input, Options{AnnotateKernel: true})
	require.Equal(t, "a;do_syscall_[k] 1\n", got)
}

func TestWouldEndStackIsBlankLine(t *testing.T) {
	p := &parser{}
	require.True(t, p.WouldEndStack([]byte("")))
	require.True(t, p.WouldEndStack([]byte("   ")))
	require.False(t, p.WouldEndStack([]byte("not blank")))
}
