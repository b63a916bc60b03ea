// Package dtrace collapses DTrace user-stack aggregation dumps: records
// separated by whitespace-only lines, frames indented and leaf-first, with
// a trailing bare integer giving the sample count (spec §4.3 "dtrace").
package dtrace

import (
	"errors"
	"strconv"
	"strings"

	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/occurrences"
	"github.com/perfdiag/flamekit/pkg/stackerr"
	"github.com/perfdiag/flamekit/pkg/symbols"
)

// Options mirrors the `collapse-dtrace` CLI flags from spec §6.
type Options struct {
	// IncludeOffset keeps a trailing "+0x..." address offset in the frame
	// name instead of stripping it.
	IncludeOffset bool
}

type parser struct {
	opt Options

	// frames accumulate leaf-first, the order DTrace prints them in.
	frames []string
}

// New builds a Factory bound to opt.
func New(opt Options) collapse.Factory {
	return func() collapse.Parser {
		return &parser{opt: opt}
	}
}

var _ collapse.Parser = (*parser)(nil)

// WouldEndStack reports a whitespace-only line: DTrace separates
// aggregation records with a blank line.
func (p *parser) WouldEndStack(line []byte) bool {
	return len(strings.TrimSpace(string(line))) == 0
}

func (p *parser) Step(line []byte, occ occurrences.Map) error {
	text := string(line)
	trimmed := strings.TrimSpace(text)

	if trimmed == "" {
		// A blank line with no buffered frames is just the separator
		// before the next record; one with buffered frames but no count
		// yet is left alone, Finalize will catch a truly dangling record.
		return nil
	}

	if count, ok := parseCount(trimmed); ok {
		return p.finish(count, occ)
	}

	frame := trimmed
	if !p.opt.IncludeOffset {
		frame = symbols.FixName(frame)
	}
	p.frames = append(p.frames, frame)
	return nil
}

func parseCount(trimmed string) (uint64, bool) {
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (p *parser) finish(count uint64, occ occurrences.Map) error {
	if len(p.frames) == 0 {
		return stackerr.Parse("dtrace", 0, errEmptyRecord)
	}

	root := make([]string, len(p.frames))
	for i, f := range p.frames {
		root[len(root)-1-i] = f
	}
	occ.Add(occurrences.Key(strings.Join(root, ";")), count)
	p.frames = p.frames[:0]
	return nil
}

var errEmptyRecord = errors.New("count with no preceding frames")

func (p *parser) Finalize(occ occurrences.Map) error {
	if len(p.frames) == 0 {
		return nil
	}
	// Frames buffered with no trailing count: the chunk split mid-record.
	return stackerr.IncompleteRecord(0)
}
