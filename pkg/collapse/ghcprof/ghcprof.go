// Package ghcprof collapses GHC's `.prof` cost-centre reports: an indented
// call tree following a fixed "COST CENTRE MODULE ..." header, one line per
// node, weighted by a configurable column (spec §4.3 "ghcprof").
package ghcprof

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/occurrences"
	"github.com/perfdiag/flamekit/pkg/stackerr"
)

// startLine is matched against the first len(startLine) whitespace-split
// tokens of the header row.
var startLine = []string{"COST", "CENTRE", "MODULE", "SRC", "no.", "entries", "%time", "%alloc"}

// Source selects which column a node's weight is read from.
type Source int

const (
	// SourcePercentTime weighs nodes by the %time column, scaled by 10 to
	// keep one decimal place of precision as an integer.
	SourcePercentTime Source = iota
	// SourceTicks weighs nodes by the raw `ticks` column.
	SourceTicks
	// SourceBytes weighs nodes by the raw `bytes` column.
	SourceBytes
)

// Options mirrors the `collapse-ghcprof` CLI flags from spec §6.
type Options struct {
	Source Source
}

type parser struct {
	opt       Options
	sawHeader bool
	skipNext  bool
	stack     []string
}

// New builds a Factory bound to opt.
func New(opt Options) collapse.Factory {
	return func() collapse.Parser {
		return &parser{opt: opt}
	}
}

var _ collapse.Parser = (*parser)(nil)

func (p *parser) WouldEndStack(line []byte) bool { return false }
func (p *parser) Chunkable() bool                { return false }

func (p *parser) Step(line []byte, occ occurrences.Map) error {
	text := strings.TrimRight(string(line), "\r")

	if !p.sawHeader {
		if isHeaderLine(text) {
			p.sawHeader = true
			p.skipNext = true
		}
		return nil
	}
	if p.skipNext {
		p.skipNext = false
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return p.onLine(text, occ)
}

func isHeaderLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < len(startLine) {
		return false
	}
	for i, tok := range startLine {
		if fields[i] != tok {
			return false
		}
	}
	return true
}

func (p *parser) onLine(line string, occ occurrences.Map) error {
	indent := 0
	for indent < len(line) && line[indent] == ' ' {
		indent++
	}
	if indent == len(line) {
		return stackerr.Parse("ghcprof", 0, fmt.Errorf("blank indent line: %q", line))
	}

	prevLen := len(p.stack)
	depth := indent
	switch {
	case depth < prevLen:
		p.stack = p.stack[:depth]
	case depth != prevLen:
		return stackerr.Parse("ghcprof", 0, fmt.Errorf("skipped indentation level at line: %q", line))
	}

	fields := strings.Fields(line)
	if len(fields) < 9 {
		return stackerr.Parse("ghcprof", 0, fmt.Errorf("too few columns in line: %q", line))
	}
	costCentre, module := fields[0], fields[1]

	var raw float64
	var err error
	switch p.opt.Source {
	case SourceTicks:
		raw, err = strconv.ParseFloat(fields[7], 64)
	case SourceBytes:
		raw, err = strconv.ParseFloat(fields[8], 64)
	default:
		raw, err = strconv.ParseFloat(fields[5], 64)
	}
	if err != nil {
		return stackerr.Parse("ghcprof", 0, fmt.Errorf("invalid cost field: %w", err))
	}

	cost := raw
	if p.opt.Source == SourcePercentTime {
		cost *= 10
	}

	p.stack = append(p.stack, module+"."+costCentre)
	occ.Add(occurrences.Key(strings.Join(p.stack, ";")), uint64(cost))
	return nil
}

func (p *parser) Finalize(occ occurrences.Map) error {
	return nil
}
