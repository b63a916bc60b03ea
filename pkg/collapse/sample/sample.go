// Package sample collapses the call-tree dump produced by macOS's `sample`
// tool: an indented forest between a "Call graph:" header and a "Total
// number in stack" trailer, one root per sampled thread (spec §4.3
// "sample"). Depth is carried by a run of indent characters ('+', '|',
// ':', '!', ' ') rather than by a fixed-width unit, so a frame's depth is
// (run-length / 2) + 1.
package sample

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/occurrences"
	"github.com/perfdiag/flamekit/pkg/stackerr"
	"github.com/perfdiag/flamekit/pkg/symbols"
)

const (
	startLine = "Call graph:"
	endLine   = "Total number in stack"
)

// ignoreLeaves hides threads parked in a handful of well-known waiting
// syscalls, so the flame graph isn't dominated by idle workers.
var ignoreLeaves = []string{
	"__psynch_cvwait",
	"__select",
	"__semwait_signal",
	"__ulock_wait",
	"__wait4",
	"__workq_kernreturn",
	"kevent",
	"mach_msg_trap",
	"read",
	"semaphore_wait_trap",
}

// Options mirrors the `collapse-sample` CLI flags from spec §6.
type Options struct {
	// NoModules drops the "module`" prefix collapse normally adds to
	// function names.
	NoModules bool
}

type phase int

const (
	phaseBeforeGraph phase = iota
	phaseInGraph
	phaseDone
)

type parser struct {
	opt   Options
	phase phase

	// stack holds the current root-to-leaf path; it is rewritten in
	// place as the indentation run-length rises and falls.
	stack          []string
	currentSamples uint64
}

// New builds a Factory bound to opt.
func New(opt Options) collapse.Factory {
	return func() collapse.Parser {
		return &parser{opt: opt}
	}
}

var _ collapse.Parser = (*parser)(nil)

// WouldEndStack always reports false: the sample format has no line that is,
// on its own, a safe chunk boundary (a new thread's root line looks
// identical to any other line until its indentation is measured against the
// one before it, which WouldEndStack cannot see). The framework's chunker
// then degrades to a single chunk, which is always correct, just not
// parallel.
func (p *parser) WouldEndStack(line []byte) bool {
	return false
}

// Chunkable reports this format opts out of chunked parallel collapse.
func (p *parser) Chunkable() bool {
	return false
}

func (p *parser) Step(line []byte, occ occurrences.Map) error {
	text := string(line)

	switch p.phase {
	case phaseBeforeGraph:
		if strings.HasPrefix(text, startLine) {
			p.phase = phaseInGraph
		}
		return nil
	case phaseDone:
		return nil
	}

	trimmed := strings.TrimRight(text, " \t")
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, endLine) {
		p.phase = phaseDone
		return p.writeStack(occ)
	}
	if !strings.HasPrefix(trimmed, "    ") {
		return stackerr.Parse("sample", 0, fmt.Errorf("stack line missing 4-space indent: %q", trimmed))
	}
	return p.onLine(trimmed, occ)
}

func (p *parser) onLine(line string, occ occurrences.Map) error {
	rest := line[4:]

	i := 0
	for i < len(rest) && isIndentChar(rest[i]) {
		i++
	}
	if i == len(rest) {
		return stackerr.Parse("sample", 0, fmt.Errorf("stack line has only indent characters: %q", line))
	}

	prevDepth := len(p.stack)
	depth := i/2 + 1

	if depth <= prevDepth {
		if err := p.writeStack(occ); err != nil {
			return err
		}
		pop := prevDepth - depth + 1
		p.stack = p.stack[:len(p.stack)-pop]
	}

	samples, fn, module, ok := p.lineParts(rest[i:])
	if !ok {
		return stackerr.Parse("sample", 0, fmt.Errorf("unable to parse stack line: %q", line))
	}
	n, err := strconv.ParseUint(samples, 10, 64)
	if err != nil {
		return stackerr.Parse("sample", 0, fmt.Errorf("invalid samples field %q", samples))
	}
	p.currentSamples = n

	fn = symbols.FixName(fn)
	if module == "" {
		p.stack = append(p.stack, fn)
	} else {
		p.stack = append(p.stack, module+"`"+fn)
	}
	return nil
}

// lineParts splits "<samples> <func>  (in <module>) ..." into its fields.
// The trailing "+0x... [0x...]" noise, if present, is simply ignored: func
// is cut at the first '(' and nothing after the module is consulted.
func (p *parser) lineParts(s string) (samples, fn, module string, ok bool) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, " ", 2)
	if len(parts) < 2 {
		return "", "", "", false
	}
	samples = strings.TrimSpace(parts[0])

	rem := parts[1]
	fn = rem
	if idx := strings.IndexByte(rem, '('); idx >= 0 {
		fn = rem[:idx]
	}
	fn = strings.TrimSpace(fn)

	if !p.opt.NoModules {
		if idx := strings.LastIndex(rem, "(in "); idx >= 0 {
			tail := rem[idx+len("(in "):]
			if close := strings.IndexByte(tail, ')'); close >= 0 {
				module = strings.TrimSuffix(tail[:close], ".dylib")
			}
		}
	}
	return samples, fn, module, true
}

// writeStack emits the current path as a leaf, unless the leaf itself is
// one of the well-known idle-wait symbols.
func (p *parser) writeStack(occ occurrences.Map) error {
	if len(p.stack) == 0 {
		return nil
	}
	leaf := p.stack[len(p.stack)-1]
	for _, ignore := range ignoreLeaves {
		if strings.HasSuffix(leaf, ignore) {
			return nil
		}
	}
	occ.Add(occurrences.Key(strings.Join(p.stack, ";")), p.currentSamples)
	return nil
}

func (p *parser) Finalize(occ occurrences.Map) error {
	if p.phase != phaseInGraph {
		return nil
	}
	return p.writeStack(occ)
}

func isIndentChar(c byte) bool {
	switch c {
	case ' ', '+', '|', ':', '!':
		return true
	default:
		return false
	}
}
