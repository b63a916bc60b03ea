// Package vtune collapses Intel VTune "Bottom-up" CSV exports: one row per
// already-resolved stack, a semicolon-joined leaf-first path in the first
// column and a sample count in the second (spec §4.3 "vtune"). Unlike
// perf/dtrace, a malformed vtune row is NOT skip-and-logged: spec §7 marks
// vtune's parse-error policy as "fails", since a CSV with a broken row
// usually means the whole export is truncated or the wrong column layout.
package vtune

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/occurrences"
	"github.com/perfdiag/flamekit/pkg/stackerr"
	"github.com/perfdiag/flamekit/pkg/symbols"
)

// Options mirrors the `collapse-vtune` CLI flags from spec §6.
type Options struct {
	// HasHeader skips the first non-blank row as a column header.
	HasHeader bool
}

type parser struct {
	opt       Options
	sawHeader bool
}

// New builds a Factory bound to opt.
func New(opt Options) collapse.Factory {
	return func() collapse.Parser {
		return &parser{opt: opt}
	}
}

var _ collapse.Parser = (*parser)(nil)

// WouldEndStack reports true after every line: vtune's CSV has one complete
// record per row, so any line boundary is a safe chunk split.
func (p *parser) WouldEndStack(line []byte) bool {
	return true
}

func (p *parser) Chunkable() bool { return true }

// Strict opts vtune out of the default skip-and-log parse policy (spec §7).
func (p *parser) Strict() bool { return true }

func (p *parser) Step(line []byte, occ occurrences.Map) error {
	text := strings.TrimSpace(string(line))
	if text == "" {
		return nil
	}
	if p.opt.HasHeader && !p.sawHeader {
		p.sawHeader = true
		return nil
	}

	stack, count, err := splitRow(text)
	if err != nil {
		return stackerr.Parse("vtune", 0, err)
	}

	frames := strings.Split(stack, ";")
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	for i, f := range frames {
		frames[i] = symbols.FixName(strings.TrimSpace(f))
	}

	occ.Add(occurrences.Key(strings.Join(frames, ";")), count)
	return nil
}

// splitRow parses "stack,count" (optionally quoted) from one CSV row,
// tolerant of a trailing comma and embedded double quotes.
func splitRow(line string) (stack string, count uint64, err error) {
	idx := strings.LastIndexByte(line, ',')
	if idx < 0 {
		return "", 0, fmt.Errorf("row missing count column: %q", line)
	}
	stack = strings.Trim(line[:idx], `"`)
	countField := strings.TrimSpace(line[idx+1:])
	countField = strings.ReplaceAll(countField, ",", "")
	n, err := strconv.ParseUint(countField, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid count field %q: %w", countField, err)
	}
	if stack == "" {
		return "", 0, fmt.Errorf("row has empty stack column: %q", line)
	}
	return stack, n, nil
}

func (p *parser) Finalize(occ occurrences.Map) error {
	return nil
}
