// Package guess implements the format-dispatcher collapser: it peeks at
// up to 64 KiB of input, matches it against each format's header
// signature in priority order, and delegates to that format's collapser
// (spec §4.3 "guess"). It never buffers the whole input: the peeked
// bytes are stitched back onto the reader for whichever collapser ends
// up handling it.
package guess

import (
	"bytes"
	"io"
	"regexp"

	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/collapse/dtrace"
	"github.com/perfdiag/flamekit/pkg/collapse/ghcprof"
	"github.com/perfdiag/flamekit/pkg/collapse/perf"
	"github.com/perfdiag/flamekit/pkg/collapse/recursive"
	"github.com/perfdiag/flamekit/pkg/collapse/sample"
	"github.com/perfdiag/flamekit/pkg/collapse/vsprof"
	"github.com/perfdiag/flamekit/pkg/collapse/vtune"
	"github.com/perfdiag/flamekit/pkg/stackerr"
	"github.com/perfdiag/flamekit/pkg/xlog"
)

// peekLimit bounds how much of the input is buffered while guessing the
// format, per spec §4.3 "Peek up to 64 KiB".
const peekLimit = 64 * 1024

// Options carries each candidate format's own options, since the guess
// dispatcher must be able to construct any of them once it decides which
// one applies.
type Options struct {
	Perf      perf.Options
	Dtrace    dtrace.Options
	Vtune     vtune.Options
	Ghcprof   ghcprof.Options
	Recursive recursive.Options

	// Logger receives one Warn per malformed line the chosen collapser
	// skips. Nil means don't log.
	Logger xlog.Logger
}

var perfHeaderRe = regexp.MustCompile(
	`(?m)^\S.*?\s+\d+(?:/\d+)?\s*(?:\[\d+\]\s*)?(?:[\d.]+:)?\s*(?:\d+\s+)?[^\s:]+:\s*$`,
)

var foldedLineRe = regexp.MustCompile(`(?m)^[^,\s][^,]*;[^,]*\s+\d+\s*$`)

// isPerf matches perf script's "comm pid/tid ts: period event:" header.
func isPerf(peek []byte) bool {
	return perfHeaderRe.Match(peek)
}

// isSample matches macOS `sample`'s fixed "Call graph:" section header.
func isSample(peek []byte) bool {
	return bytes.Contains(peek, []byte("Call graph:"))
}

// isGhcprof matches GHC .prof's fixed column-header row.
func isGhcprof(peek []byte) bool {
	return bytes.Contains(peek, []byte("COST CENTRE")) && bytes.Contains(peek, []byte("MODULE"))
}

// isVsprof matches Visual Studio's fixed CSV header row.
func isVsprof(peek []byte) bool {
	return bytes.Contains(peek, []byte("Level,Function Name,Number of Calls"))
}

// isVtune matches Intel VTune's CSV export by its distinctive header
// columns. Dispatch checks it before vsprof and ghcprof.
func isVtune(peek []byte) bool {
	return bytes.Contains(peek, []byte("Function Stack")) && bytes.Contains(peek, []byte("CPU Time"))
}

// isDtrace matches DTrace's leaf-first, blank-line-separated stacks: an
// indented frame line followed eventually by a line that is only digits.
func isDtrace(peek []byte) bool {
	lines := bytes.Split(peek, []byte("\n"))
	sawIndented := false
	for _, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		if sawIndented && isAllDigits(trimmed) {
			return true
		}
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			sawIndented = true
			continue
		}
		sawIndented = false
	}
	return false
}

func isAllDigits(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// isRecursive matches input that is already in folded-stack form: at
// least one semicolon-joined stack line ending in a bare count. This is
// checked last since every real sampler format's raw output looks
// nothing like this, but a folded stream fed back through guess should
// still resolve to the recursive-call collapser (spec §4.3 "recursive").
func isRecursive(peek []byte) bool {
	return foldedLineRe.Match(peek)
}

// Dispatch peeks at r, matches the peeked bytes against each format's
// signature in the priority order perf -> dtrace -> sample -> vtune ->
// vsprof -> ghcprof -> recursive, and runs the first match's collapser
// against the full stream (peeked bytes plus the remainder of r). It
// returns stackerr.UnknownFormat() if nothing matches.
func Dispatch(r io.Reader, w io.Writer, opt Options) error {
	peek := make([]byte, peekLimit)
	n, err := io.ReadFull(r, peek)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return stackerr.IO("<input>", err)
	}
	peek = peek[:n]
	full := io.MultiReader(bytes.NewReader(peek), r)

	logger := opt.Logger
	if logger == nil {
		logger = xlog.NewNop()
	}

	switch {
	case isPerf(peek):
		return collapse.CollapseWithLogger(full, w, perf.New(opt.Perf), logger)
	case isDtrace(peek):
		return collapse.CollapseWithLogger(full, w, dtrace.New(opt.Dtrace), logger)
	case isSample(peek):
		return collapse.CollapseWithLogger(full, w, sample.New(sample.Options{}), logger)
	case isVtune(peek):
		return collapse.CollapseWithLogger(full, w, vtune.New(opt.Vtune), logger)
	case isVsprof(peek):
		return collapse.CollapseWithLogger(full, w, vsprof.New(), logger)
	case isGhcprof(peek):
		return collapse.CollapseWithLogger(full, w, ghcprof.New(opt.Ghcprof), logger)
	case isRecursive(peek):
		return collapse.CollapseWithLogger(full, w, recursive.New(opt.Recursive), logger)
	default:
		return stackerr.UnknownFormat()
	}
}
