package sample

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

func TestTwoLeavesShareCommonPrefix(t *testing.T) {
	input := strings.Join([]string{
		"Call graph:",
		"    5130 Thread_1",
		"    + 4282 A  (in mod)",
		"    +   2000 B1  (in mod)",
		"    +   1000 B2  (in mod)",
		"Total number in stack (recursive guard: 1):",
	}, "\n")

	got := collapseString(t, input, Options{})
	require.Equal(t, "Thread_1;mod`A;mod`B1 2000\nThread_1;mod`A;mod`B2 1000\n", got)
}

func TestDylibSuffixStripped(t *testing.T) {
	input := strings.Join([]string{
		"Call graph:",
		"    100 Thread_1",
		"    + 100 start  (in libdyld.dylib)",
		"Total number in stack (recursive guard: 1):",
	}, "\n")

	got := collapseString(t, input, Options{})
	require.Equal(t, "Thread_1;libdyld`start 100\n", got)
}

func TestNoModulesOption(t *testing.T) {
	input := strings.Join([]string{
		"Call graph:",
		"    100 Thread_1",
		"    + 100 start  (in libdyld.dylib)",
		"Total number in stack (recursive guard: 1):",
	}, "\n")

	got := collapseString(t, input, Options{NoModules: true})
	require.Equal(t, "Thread_1;start 100\n", got)
}

func TestIgnoredLeafSymbolIsDropped(t *testing.T) {
	input := strings.Join([]string{
		"Call graph:",
		"    100 Thread_1",
		"    + 100 read  (in libsystem_kernel.dylib)",
		"Total number in stack (recursive guard: 1):",
	}, "\n")

	got := collapseString(t, input, Options{})
	require.Equal(t, "", got)
}

func TestLinesBeforeCallGraphAreIgnored(t *testing.T) {
	input := strings.Join([]string{
		"Sampling process 1234 for 1 second",
		"Call graph:",
		"    100 Thread_1",
		"Total number in stack (recursive guard: 1):",
	}, "\n")

	got := collapseString(t, input, Options{})
	require.Equal(t, "Thread_1 100\n", got)
}
