package collapse_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/collapse/ghcprof"
	"github.com/perfdiag/flamekit/pkg/collapse/perf"
)

func syntheticPerfInput(nsamples int) string {
	var b strings.Builder
	stacks := [][]string{
		{"0 a (app)", "0 b (app)", "0 c (app)"},
		{"0 a (app)", "0 b (app)"},
		{"0 a (app)", "0 d (app)"},
	}
	for i := 0; i < nsamples; i++ {
		stack := stacks[i%len(stacks)]
		fmt.Fprintf(&b, "prog %d/%d 100.%03d: 1 cycles:\n", 1000+i%7, 2000+i%7, i)
		for _, frame := range stack {
			b.WriteString(frame)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func TestCollapseFileParallelIsDeterministicAcrossThreadCounts(t *testing.T) {
	input := syntheticPerfInput(200)
	dir := t.TempDir()
	path := dir + "/samples.perf"
	require.NoError(t, os.WriteFile(path, []byte(input), 0o644))

	var baseline bytes.Buffer
	require.NoError(t, collapse.Collapse(strings.NewReader(input), &baseline, perf.New(perf.Options{})))

	for _, n := range []int{1, 2, 4, 8} {
		var out bytes.Buffer
		err := collapse.CollapseFileParallelN(context.Background(), path, &out, perf.New(perf.Options{}), n)
		require.NoError(t, err)
		require.Equal(t, baseline.String(), out.String(), "nthreads=%d produced different output", n)
	}
}

func TestCollapseFileParallelFoldingCorrectness(t *testing.T) {
	input := syntheticPerfInput(50)
	dir := t.TempDir()
	path := dir + "/samples.perf"
	require.NoError(t, os.WriteFile(path, []byte(input), 0o644))

	var out bytes.Buffer
	require.NoError(t, collapse.CollapseFileParallelN(context.Background(), path, &out, perf.New(perf.Options{}), 4))

	var total uint64
	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		idx := strings.LastIndexByte(line, ' ')
		require.NotEqual(t, -1, idx)
		var n uint64
		_, err := fmt.Sscanf(line[idx+1:], "%d", &n)
		require.NoError(t, err)
		total += n
	}
	require.Equal(t, uint64(50), total)
}

func TestCollapseFileParallelFallsBackForNonChunkableFormat(t *testing.T) {
	input := "COST CENTRE MODULE SRC no. entries %time %alloc ticks bytes\n" +
		"\n" +
		"MAIN MAIN src 0 0 100.0 100.0 10 1024\n"
	dir := t.TempDir()
	path := dir + "/samples.prof"
	require.NoError(t, os.WriteFile(path, []byte(input), 0o644))

	var singleThreaded bytes.Buffer
	require.NoError(t, collapse.Collapse(strings.NewReader(input), &singleThreaded, ghcprof.New(ghcprof.Options{})))

	var parallel bytes.Buffer
	require.NoError(t, collapse.CollapseFileParallelN(context.Background(), path, &parallel, ghcprof.New(ghcprof.Options{}), 8))

	require.Equal(t, singleThreaded.String(), parallel.String())
}
