// Package vsprof collapses the CSV export of the Visual Studio built-in
// profiler: a fixed header row, then one row per call-tree node holding a
// depth, a quoted function name and a call count (spec §4.3 "vsprof").
//
// The profiler reports *calls*, not samples, and a parent's call count
// double-counts time spent in already-counted children. Following each
// child's contribution is subtracted from the parent's count before the
// parent itself is folded, so a function that calls another 100% of the
// time isn't misread as spending 200% of its own calls in itself.
package vsprof

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/occurrences"
	"github.com/perfdiag/flamekit/pkg/stackerr"
)

const startLine = "Level,Function Name,Number of Calls,Elapsed Inclusive Time %,Elapsed Exclusive Time %,Avg Elapsed Inclusive Time,Avg Elapsed Exclusive Time,Module Name,"

type node struct {
	name  string
	calls uint64
}

type parser struct {
	sawHeader bool
	stack     []node
}

// New builds a Factory for the vsprof format.
func New() collapse.Factory {
	return func() collapse.Parser {
		return &parser{}
	}
}

var _ collapse.Parser = (*parser)(nil)

func (p *parser) WouldEndStack(line []byte) bool { return false }
func (p *parser) Chunkable() bool                { return false }

func (p *parser) Step(line []byte, occ occurrences.Map) error {
	text := strings.TrimRight(string(line), "\r")
	if !p.sawHeader {
		p.sawHeader = true
		header := strings.TrimPrefix(strings.TrimSpace(text), "\xef\xbb\xbf")
		if header != startLine {
			// Not a skippable malformed line: without the fixed header the
			// input is not a vsprof export at all, so the run fails.
			return stackerr.UnknownFormat()
		}
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return p.onLine(text, occ)
}

// onLine parses "<depth>,"<name>",<calls>,..." and maintains p.stack
// following the three cases from the reference algorithm: descend, sibling
// at the same depth, or ascend back out through one or more leaves.
func (p *parser) onLine(line string, occ occurrences.Map) error {
	depth, rest, err := nextNumber(line)
	if err != nil {
		return stackerr.Parse("vsprof", 0, err)
	}

	rest = strings.TrimPrefix(rest, ",")
	rest = strings.TrimPrefix(rest, `"`)
	name, rest, ok := strings.Cut(rest, `"`)
	if !ok {
		return stackerr.Parse("vsprof", 0, fmt.Errorf("unable to parse function name from line: %q", line))
	}

	calls, _, err := nextNumber(rest)
	if err != nil {
		return stackerr.Parse("vsprof", 0, err)
	}

	prevDepth := len(p.stack)
	switch {
	case int(depth) > prevDepth:
		p.stack = append(p.stack, node{name: name, calls: calls})
	case int(depth) == prevDepth:
		p.writeStack(occ)
		p.stack = p.stack[:len(p.stack)-1]
		p.stack = append(p.stack, node{name: name, calls: calls})
	default:
		prevCalls := uint64(0)
		for i := 0; i <= prevDepth-int(depth); i++ {
			top := p.stack[len(p.stack)-1]
			if prevCalls != top.calls {
				p.writeStack(occ)
			}
			prevCalls = top.calls
			p.stack = p.stack[:len(p.stack)-1]
			if len(p.stack) == 0 {
				break
			}
			parent := &p.stack[len(p.stack)-1]
			if prevCalls < parent.calls {
				parent.calls -= prevCalls
			}
		}
		p.stack = append(p.stack, node{name: name, calls: calls})
	}
	return nil
}

func (p *parser) writeStack(occ occurrences.Map) {
	if len(p.stack) == 0 {
		return
	}
	n := p.stack[len(p.stack)-1].calls
	if n == 0 {
		return
	}
	names := make([]string, len(p.stack))
	for i, f := range p.stack {
		names[i] = f.name
	}
	occ.Add(occurrences.Key(strings.Join(names, ";")), n)
}

func (p *parser) Finalize(occ occurrences.Map) error {
	p.writeStack(occ)
	return nil
}

// nextNumber strips a leading comma, then reads a (possibly comma-grouped,
// possibly double-quoted) integer from the front of line, returning it and
// whatever follows.
func nextNumber(line string) (uint64, string, error) {
	line = strings.TrimPrefix(line, ",")

	quoted := strings.HasPrefix(line, `"`)
	var field, remainder string
	if quoted {
		rest := strings.TrimPrefix(line, `"`)
		f, r, ok := strings.Cut(rest, `"`)
		if !ok {
			return 0, "", fmt.Errorf("unterminated quoted number in %q", line)
		}
		field, remainder = f, strings.TrimPrefix(r, ",")
	} else {
		f, r, ok := strings.Cut(line, ",")
		if !ok {
			f, r = line, ""
		}
		field, remainder = f, r
	}

	field = strings.ReplaceAll(field, ",", "")
	n, err := strconv.ParseUint(strings.TrimSpace(field), 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid number in line %q: %w", line, err)
	}
	return n, remainder, nil
}
