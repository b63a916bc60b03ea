package guess

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatchDetectsPerf(t *testing.T) {
	input := "swapper 0 [000] 1.234: cycles:\n\tffffffff addr (module)\n\n"
	var buf bytes.Buffer
	require.NoError(t, Dispatch(strings.NewReader(input), &buf, Options{}))
	require.Contains(t, buf.String(), "addr")
}

func TestDispatchDetectsDtrace(t *testing.T) {
	input := "\n  c\n  b\n  a\n  2\n"
	var buf bytes.Buffer
	require.NoError(t, Dispatch(strings.NewReader(input), &buf, Options{}))
	require.Equal(t, "a;b;c 2\n", buf.String())
}

func TestDispatchDetectsSample(t *testing.T) {
	input := "Call graph:\n    2000 Thread_1\n      2000 start  (in app)  [1]\n\nTotal number in stack:\n"
	var buf bytes.Buffer
	require.NoError(t, Dispatch(strings.NewReader(input), &buf, Options{}))
	require.Contains(t, buf.String(), "start")
}

func TestDispatchDetectsVsprof(t *testing.T) {
	input := "Level,Function Name,Number of Calls,Elapsed Inclusive Time %,Elapsed Exclusive Time %,Avg Elapsed Inclusive Time,Avg Elapsed Exclusive Time,Module Name,\n1,\"main\",1,100,0,0,0,app,\n"
	var buf bytes.Buffer
	require.NoError(t, Dispatch(strings.NewReader(input), &buf, Options{}))
}

func TestDispatchDetectsRecursiveFoldedInput(t *testing.T) {
	input := "a;b;b;c 5\n"
	var buf bytes.Buffer
	require.NoError(t, Dispatch(strings.NewReader(input), &buf, Options{}))
	require.Equal(t, "a;b;c 5\n", buf.String())
}

func TestDispatchUnknownFormat(t *testing.T) {
	input := "this is not any known profiler format at all just prose\n"
	var buf bytes.Buffer
	err := Dispatch(strings.NewReader(input), &buf, Options{})
	require.Error(t, err)
}
