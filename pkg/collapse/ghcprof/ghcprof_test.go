package ghcprof

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/perfdiag/flamekit/pkg/collapse"
)

// Indentation here is literal: each nesting level adds exactly one
// leading space, since onLine compares the raw leading-space count
// against the current stack depth rather than dividing by a fixed
// column width.
const sampleProf = "" +
	"\tThu Jan  1 00:00 1970 Time and Allocation Profiling Report  (Final)\n" +
	"\n" +
	"\tprog +RTS -p -RTS\n" +
	"\n" +
	"COST CENTRE MODULE SRC no. entries %time %alloc ticks bytes\n" +
	"\n" +
	"MAIN MAIN src 0 0 40.0 50.0 4 512\n" +
	" foo Main src 1 1 25.0 30.0 3 256\n" +
	"  bar Main src 2 1 25.0 30.0 3 256\n" +
	" baz Main src 3 1 35.0 20.0 1 128\n"

func collapseWith(t *testing.T, opt Options) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, collapse.Collapse(bytes.NewReader([]byte(sampleProf)), &out, New(opt)))
	return out.String()
}

func TestCollapseBuildsStackFromIndentation(t *testing.T) {
	out := collapseWith(t, Options{Source: SourcePercentTime})
	require.Contains(t, out, "MAIN.MAIN 400\n")
	require.Contains(t, out, "MAIN.MAIN;Main.foo 250\n")
	require.Contains(t, out, "MAIN.MAIN;Main.foo;Main.bar 250\n")
	require.Contains(t, out, "MAIN.MAIN;Main.baz 350\n")
}

func TestCollapseWeighsByTicksColumn(t *testing.T) {
	out := collapseWith(t, Options{Source: SourceTicks})
	require.Contains(t, out, "MAIN.MAIN 4\n")
	require.Contains(t, out, "MAIN.MAIN;Main.foo 3\n")
}

func TestCollapseWeighsByBytesColumn(t *testing.T) {
	out := collapseWith(t, Options{Source: SourceBytes})
	require.Contains(t, out, "MAIN.MAIN 512\n")
	require.Contains(t, out, "MAIN.MAIN;Main.baz 128\n")
}

func TestCollapseIsNotChunkable(t *testing.T) {
	p := New(Options{})()
	cp, ok := p.(collapse.Chunkable)
	require.True(t, ok)
	require.False(t, cp.Chunkable())
}
