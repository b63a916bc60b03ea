// Package collapse implements the shared parallel collapse framework that
// every per-format state machine plugs into (spec §4.2). A format commits
// to the framework by implementing Parser: a record-boundary detector, a
// per-line step, and a per-record finalizer. The framework itself owns
// chunking, worker fan-out, and the deterministic merge that makes
// collapse_file_parallel byte-identical to the single-threaded path for a
// fixed input regardless of worker count.
package collapse

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/perfdiag/flamekit/pkg/occurrences"
	"github.com/perfdiag/flamekit/pkg/stackerr"
	"github.com/perfdiag/flamekit/pkg/xlog"
)

// Parser drives one format's state machine. Implementations are NOT
// required to be safe for concurrent use; the framework gives every
// worker goroutine (and the single-threaded path) its own instance via
// Factory.
type Parser interface {
	// WouldEndStack reports whether line is a safe chunk-split point, i.e.
	// the boundary between two records (spec: "chunkable" declaration).
	// It must be a pure function of line: the framework calls it from a
	// throwaway instance while computing chunk boundaries.
	WouldEndStack(line []byte) bool

	// Step processes one line, accumulating completed stacks into occ.
	// Step is also responsible for emitting a *stackerr.Error of kind
	// KindParse (logged and skipped by the caller) for malformed lines,
	// per the per-format policy in spec §7.
	Step(line []byte, occ occurrences.Map) error

	// Finalize flushes whatever record is still buffered at end of
	// input. It returns a *stackerr.Error of kind KindIncompleteRecord if
	// the chunk ended mid-record in a way WouldEndStack should have
	// prevented; the framework's chunker treats that as a defensive
	// signal to re-extend the chunk boundary.
	Finalize(occ occurrences.Map) error
}

// Factory builds a fresh, zero-state Parser. The framework calls it once
// per worker (and once for the single-threaded path, and transiently
// while probing chunk boundaries).
type Factory func() Parser

// Chunkable is implemented by factories whose format declares itself safe
// to split, per spec §4.2. A format that does not implement it can still
// be driven single-threaded via Collapse.
type Chunkable interface {
	Chunkable() bool
}

// StrictParser opts a format out of the default skip-and-log policy for
// KindParse errors: one bad record aborts the whole run instead of being
// logged and dropped. Spec §7 calls this out explicitly for vtune, whose
// CSV rows rarely go wrong in isolation — a malformed row usually means the
// export itself is truncated or using an unexpected column layout.
type StrictParser interface {
	Strict() bool
}

// Options names the settings of a collapse run. No function in this
// package takes an Options value: Collapse is always single-threaded, the
// worker count is passed to CollapseFileParallelN directly, and no
// collapser reads UTF8Lossy. The framework never validates UTF-8.
type Options struct {
	// UTF8Lossy names the lossy UTF-8 mode (spec §6 --utf8-mode=lossy).
	UTF8Lossy bool

	// NThreads names the worker count; 0 or 1 means single-threaded.
	NThreads int
}

// Collapse drives newParser()'s state machine line by line over r and
// writes "stack count\n" records to w sorted by stack key (see
// writeFolded).
// This is the baseline every parallel run must reproduce byte-for-byte.
// Malformed lines are dropped silently; use CollapseWithLogger to have
// them logged and skipped instead.
func Collapse(r io.Reader, w io.Writer, newParser Factory) error {
	return CollapseWithLogger(r, w, newParser, xlog.NewNop())
}

// CollapseWithLogger is Collapse with a logger that receives one Warn per
// malformed line the skip-and-log policy drops (spec §4.5/§7 "logged and
// skipped"), instead of the framework simply refusing to abort the whole
// run over one bad record.
func CollapseWithLogger(r io.Reader, w io.Writer, newParser Factory, logger xlog.Logger) error {
	parser := newParser()
	occ := occurrences.NewOrdered()

	strict := isStrict(parser)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<30)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := trimCR(scanner.Bytes())
		if err := parser.Step(line, occ); err != nil {
			if isParseErr(err) && !strict {
				logger.Warn("skipping malformed line", zap.Int("line", lineNo), zap.Error(err))
				continue
			}
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return stackerr.IO("<input>", err)
	}
	if err := parser.Finalize(occ); err != nil && !isIncompleteErr(err) {
		return err
	}

	return writeFolded(occ, w)
}

// CollapseFileParallel implements spec §4.2's chunked multithreaded path
// with one worker per CPU (runtime.NumCPU()). It reads path into memory,
// splits it into approximately that many byte ranges extended to the
// nearest WouldEndStack boundary, parses each range with an independent
// worker and a private occurrences map, then merges the results in chunk
// order: summed counts, with duplicates removed from later chunks but the
// first-seen position preserved (spec §5 "Ordering"). On a single CPU, for
// a format that is not Chunkable, or for an input too small to usefully
// split, it degrades to Collapse.
func CollapseFileParallel(ctx context.Context, path string, w io.Writer, newParser Factory) error {
	return collapseFileParallel(ctx, path, w, newParser, runtime.NumCPU(), xlog.NewNop())
}

// CollapseFileParallelN is CollapseFileParallel with an explicit worker
// count, used directly by tests that verify determinism across thread
// counts (spec §8 property 1).
func CollapseFileParallelN(ctx context.Context, path string, w io.Writer, newParser Factory, nthreads int) error {
	return collapseFileParallel(ctx, path, w, newParser, nthreads, xlog.NewNop())
}

// CollapseFileParallelWithLogger is CollapseFileParallel with a logger
// that receives one Warn per malformed line any worker's chunk skips.
func CollapseFileParallelWithLogger(ctx context.Context, path string, w io.Writer, newParser Factory, logger xlog.Logger) error {
	return collapseFileParallel(ctx, path, w, newParser, runtime.NumCPU(), logger)
}

// CollapseFileParallelNWithLogger combines CollapseFileParallelN's
// explicit worker count with CollapseFileParallelWithLogger's logging.
func CollapseFileParallelNWithLogger(ctx context.Context, path string, w io.Writer, newParser Factory, nthreads int, logger xlog.Logger) error {
	return collapseFileParallel(ctx, path, w, newParser, nthreads, logger)
}

func collapseFileParallel(ctx context.Context, path string, w io.Writer, newParser Factory, nthreads int, logger xlog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return stackerr.IO(path, err)
	}

	if nthreads <= 1 || !isChunkable(newParser()) {
		return CollapseWithLogger(bytes.NewReader(data), w, newParser, logger)
	}

	chunks := splitChunksSafe(data, newParser, nthreads)
	results := make([]*occurrences.Ordered, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			local := occurrences.NewOrdered()
			if err := processChunk(newParser(), chunk, local, logger); err != nil && !isIncompleteErr(err) {
				return err
			}
			results[i] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	merged := occurrences.NewOrdered()
	for _, local := range results {
		local.Each(merged.Add)
	}
	return writeFolded(merged, w)
}

// processChunk runs one worker's parser over its byte range.
func processChunk(parser Parser, chunk []byte, occ occurrences.Map, logger xlog.Logger) error {
	strict := isStrict(parser)
	scanner := bufio.NewScanner(bytes.NewReader(chunk))
	scanner.Buffer(make([]byte, 64*1024), 1<<30)
	for scanner.Scan() {
		line := trimCR(scanner.Bytes())
		if err := parser.Step(line, occ); err != nil {
			if isParseErr(err) && !strict {
				logger.Warn("skipping malformed line", zap.Error(err))
				continue
			}
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return stackerr.IO("<chunk>", err)
	}
	return parser.Finalize(occ)
}

// splitChunksSafe computes chunk boundaries with splitChunks and then
// verifies each one parses cleanly. A chunk whose Finalize reports
// KindIncompleteRecord (i.e. would_end_stack missed a boundary) is merged
// into its successor and re-verified, satisfying the "defensive check"
// and "boundary re-extension" behavior from spec §4.2/§7.
func splitChunksSafe(data []byte, newParser Factory, n int) [][]byte {
	chunks := splitChunks(data, newParser(), n)

	for i := 0; i < len(chunks)-1; i++ {
		if len(chunks[i]) == 0 {
			continue
		}
		scratch := occurrences.NewOrdered()
		if err := processChunk(newParser(), chunks[i], scratch, xlog.NewNop()); err != nil && isIncompleteErr(err) {
			merged := make([]byte, 0, len(chunks[i])+len(chunks[i+1]))
			merged = append(merged, chunks[i]...)
			merged = append(merged, chunks[i+1]...)
			chunks[i+1] = merged
			chunks[i] = nil
		}
	}

	out := chunks[:0]
	for _, c := range chunks {
		if len(c) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// splitChunks divides data into up to n byte ranges whose boundaries fall
// immediately after a line for which parser.WouldEndStack returns true, so
// that no worker ever receives a partial record (spec §4.2 steps 1-2).
func splitChunks(data []byte, parser Parser, n int) [][]byte {
	if n <= 1 || len(data) == 0 {
		return [][]byte{data}
	}

	approx := len(data) / n
	if approx == 0 {
		return [][]byte{data}
	}

	var chunks [][]byte
	start := 0
	for i := 0; i < n-1; i++ {
		target := start + approx
		if target >= len(data) {
			break
		}
		boundary := nextBoundary(data, target, parser)
		if boundary <= start {
			continue
		}
		chunks = append(chunks, data[start:boundary])
		start = boundary
	}
	chunks = append(chunks, data[start:])
	return chunks
}

// nextBoundary scans forward from pos to the end of the current line (so
// we never start mid-line), then tests each following line against
// WouldEndStack until one matches, returning the offset just past its
// terminator. If none match before EOF, the whole remaining input is
// returned as a single final boundary.
func nextBoundary(data []byte, pos int, parser Parser) int {
	i := pos
	for i < len(data) && data[i] != '\n' {
		i++
	}
	if i < len(data) {
		i++
	}

	lineStart := i
	for lineStart <= len(data) {
		lineEnd := lineStart
		for lineEnd < len(data) && data[lineEnd] != '\n' {
			lineEnd++
		}
		line := trimCR(data[lineStart:lineEnd])

		end := lineEnd
		if end < len(data) {
			end++
		}
		if parser.WouldEndStack(line) {
			return end
		}
		if lineEnd >= len(data) {
			return len(data)
		}
		lineStart = end
	}
	return len(data)
}

// writeFolded emits "stack count\n" lines sorted lexically by stack key,
// not insertion order: spec §8's perf-minimal scenario ("a;b 1" before
// "a;b;c 1" for input seen in the reverse order) and
// original_source/src/collapse/common.rs's write_and_clear both sort
// before writing. occ's insertion order remains what §5 uses to make the
// parallel merge deterministic; sorting the final output is itself
// deterministic and independent of chunk count.
func writeFolded(occ *occurrences.Ordered, w io.Writer) error {
	type record struct {
		key   occurrences.Key
		count uint64
	}
	records := make([]record, 0, occ.Len())
	occ.Each(func(key occurrences.Key, count uint64) {
		records = append(records, record{key, count})
	})
	sort.Slice(records, func(i, j int) bool {
		return records[i].key < records[j].key
	})

	bw := bufio.NewWriter(w)
	var werr error
	for _, r := range records {
		if werr != nil {
			break
		}
		_, werr = fmt.Fprintf(bw, "%s %d\n", r.key, r.count)
	}
	if werr != nil {
		return stackerr.IO("<output>", werr)
	}
	if err := bw.Flush(); err != nil {
		return stackerr.IO("<output>", err)
	}
	return nil
}

func trimCR(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}

func isParseErr(err error) bool {
	serr, ok := err.(*stackerr.Error)
	return ok && serr.Kind == stackerr.KindParse
}

func isIncompleteErr(err error) bool {
	serr, ok := err.(*stackerr.Error)
	return ok && serr.Kind == stackerr.KindIncompleteRecord
}

func isStrict(p Parser) bool {
	sp, ok := p.(StrictParser)
	return ok && sp.Strict()
}

// isChunkable reports whether p opts into the chunked parallel path.
// Formats that never implement the Chunkable interface (perf, dtrace)
// are chunkable by default; a format only needs to implement it to opt
// out, per spec §4.2's "a format declares chunkability" framing.
func isChunkable(p Parser) bool {
	cp, ok := p.(Chunkable)
	return !ok || cp.Chunkable()
}
