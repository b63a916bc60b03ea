package xctrace

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/perfdiag/flamekit/pkg/collapse"
)

const sampleXML = `<?xml version="1.0"?>
<trace-query-result>
<node xpath='//trace-toc[1]/run[1]/data[1]/table[11]'>
    <row>
        <backtrace id="10">
            <frame id="11" name="foo" addr="0x1"></frame>
            <frame id="13" name="start" addr="0x2"></frame>
        </backtrace>
    </row>
    <row>
        <backtrace ref="10"/>
    </row>
</node>
</trace-query-result>
`

func TestCollapseMergesIdenticalBacktraces(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, collapse.Collapse(strings.NewReader(sampleXML), &buf, New(Options{})))
	require.Equal(t, "start;foo 2\n", buf.String())
}

func TestCollapseResolvesFrameRefs(t *testing.T) {
	input := `<?xml version="1.0"?>
<trace-query-result>
<node xpath="x">
    <row>
        <backtrace id="1">
            <frame id="2" name="bar" addr="0x1"></frame>
            <frame id="3" name="main" addr="0x2"></frame>
        </backtrace>
    </row>
    <row>
        <backtrace id="4">
            <frame ref="2"/>
            <frame id="5" name="other" addr="0x3"></frame>
        </backtrace>
    </row>
</node>
</trace-query-result>
`
	var buf bytes.Buffer
	require.NoError(t, collapse.Collapse(strings.NewReader(input), &buf, New(Options{})))
	out := buf.String()
	require.Contains(t, out, "main;bar 1\n")
	require.Contains(t, out, "other;bar 1\n")
}

func TestIsApplicableDetectsXctraceXML(t *testing.T) {
	require.True(t, IsApplicable([]byte(sampleXML)))
	require.False(t, IsApplicable([]byte("comm 123/456 ts cycles:\n")))
}
