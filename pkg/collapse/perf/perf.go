// Package perf collapses "perf script" output: Linux's linear-format dump
// of sampled call stacks, one header line per sample followed by
// leaf-first frame lines and a blank-line terminator (spec §4.3 "perf").
package perf

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/occurrences"
	"github.com/perfdiag/flamekit/pkg/stackerr"
	"github.com/perfdiag/flamekit/pkg/symbols"
)

// headerRe matches a perf script sample header:
//
//	comm pid/tid ts: period event:
//
// pid, tid and period are all optional in the wild, so they are captured
// loosely; only comm and event are required.
var headerRe = regexp.MustCompile(
	`^(?P<comm>\S.*?)\s+(?P<pid>\d+)(?:/(?P<tid>\d+))?\s*(?:\[\d+\]\s*)?(?P<time>[\d.]+:)?\s*(?:(?P<period>\d+)\s+)?(?P<event>[^\s:]+):\s*$`,
)

// frameRe matches a stack frame line: "<addr> <symbol> (<module>)".
var frameRe = regexp.MustCompile(`^\s*(?P<addr>[0-9a-fA-F]+)\s+(?P<rest>.*)$`)

const (
	kernelAnnotation = "_[k]"
	jitAnnotation    = "_[j]"
)

// Options mirrors the `collapse-perf` CLI flags from spec §6.
type Options struct {
	IncludePID   bool
	IncludeTID   bool
	AnnotateKernel bool
	AnnotateJIT    bool
	ShowAddrs      bool
	All            bool // disable event-type filtering
	EventFilter    string
}

type state int

const (
	stateAwaitHeader state = iota
	stateInStack
)

type parser struct {
	opt Options

	st state

	comm string
	pid  string
	tid  string
	period uint64
	event  string
	skip   bool // true when this sample's event != accepted event

	// frames accumulate leaf-first as read; reversed at finalize time.
	frames []string

	acceptedEvent string
	haveAccepted  bool
}

// New builds a Factory bound to opt, for use with pkg/collapse.
func New(opt Options) collapse.Factory {
	return func() collapse.Parser {
		return &parser{opt: opt}
	}
}

var _ collapse.Parser = (*parser)(nil)

// WouldEndStack reports a blank line: perf script separates samples with
// exactly one blank line.
func (p *parser) WouldEndStack(line []byte) bool {
	return len(bytes.TrimSpace(line)) == 0
}

func (p *parser) Step(line []byte, occ occurrences.Map) error {
	text := strings.TrimRight(string(line), " \t")
	if strings.HasPrefix(strings.TrimSpace(text), "#") {
		return nil
	}

	if strings.TrimSpace(text) == "" {
		return p.flush(occ)
	}

	if p.st == stateAwaitHeader {
		return p.onHeader(text)
	}
	return p.onFrame(text)
}

func (p *parser) onHeader(text string) error {
	m := headerRe.FindStringSubmatch(text)
	if m == nil {
		return stackerr.Parse("perf", 0, fmt.Errorf("malformed header %q", text))
	}
	names := headerRe.SubexpNames()
	fields := map[string]string{}
	for i, name := range names {
		if i == 0 || name == "" {
			continue
		}
		fields[name] = m[i]
	}

	p.comm = fields["comm"]
	p.pid = fields["pid"]
	p.tid = fields["tid"]
	p.event = fields["event"]
	if fields["period"] != "" {
		period, err := strconv.ParseUint(fields["period"], 10, 64)
		if err != nil {
			return stackerr.Parse("perf", 0, err)
		}
		p.period = period
	} else {
		p.period = 1
	}

	// First observed event (even a zero-sample artifact) wins and is kept
	// for the rest of the run; spec §9 open question (a).
	if !p.haveAccepted {
		p.acceptedEvent = p.event
		p.haveAccepted = true
	}
	if p.opt.EventFilter != "" {
		p.skip = p.event != p.opt.EventFilter
	} else if !p.opt.All {
		p.skip = p.event != p.acceptedEvent
	} else {
		p.skip = false
	}

	p.st = stateInStack
	p.frames = p.frames[:0]
	return nil
}

func (p *parser) onFrame(text string) error {
	m := frameRe.FindStringSubmatch(text)
	if m == nil {
		return stackerr.Parse("perf", 0, fmt.Errorf("malformed frame %q", text))
	}
	rest := m[2]

	symbol, module := splitSymbolModule(rest)
	symbol = symbols.FixName(symbol)
	if symbol == "" {
		if p.opt.ShowAddrs {
			symbol = "0x" + m[1]
		} else {
			symbol = "[unknown]"
		}
	}

	if isKernelModule(module) {
		if p.opt.AnnotateKernel {
			symbol += kernelAnnotation
		}
	} else if isJITModule(module) {
		if p.opt.AnnotateJIT {
			symbol += jitAnnotation
		}
	}

	p.frames = append(p.frames, symbol)
	return nil
}

func (p *parser) Finalize(occ occurrences.Map) error {
	return p.flush(occ)
}

func (p *parser) flush(occ occurrences.Map) error {
	if p.st != stateInStack {
		return nil
	}
	defer func() {
		p.st = stateAwaitHeader
		p.frames = nil
	}()

	if p.skip {
		return nil
	}

	root := make([]string, 0, len(p.frames)+2)
	if p.opt.IncludePID || p.opt.IncludeTID {
		root = append(root, fmt.Sprintf("%s-%s", p.comm, p.pid))
	} else {
		root = append(root, p.comm)
	}
	if p.opt.IncludeTID && p.tid != "" {
		root[len(root)-1] = fmt.Sprintf("%s/%s", root[len(root)-1], p.tid)
	}

	// Frames were collected leaf-first; reverse to root-first per spec.
	for i := len(p.frames) - 1; i >= 0; i-- {
		root = append(root, p.frames[i])
	}

	occ.Add(occurrences.Key(strings.Join(root, ";")), p.period)
	return nil
}

func splitSymbolModule(rest string) (symbol, module string) {
	i := strings.LastIndexByte(rest, '(')
	j := strings.LastIndexByte(rest, ')')
	if i != -1 && j == len(rest)-1 && j > i {
		return strings.TrimSpace(rest[:i]), rest[i+1 : j]
	}
	return strings.TrimSpace(rest), ""
}

func isKernelModule(module string) bool {
	return module == "[kernel.kallsyms]" || strings.HasPrefix(module, "vmlinux-") || strings.Contains(module, "kernel")
}

func isJITModule(module string) bool {
	return strings.Contains(module, "/perf-") && strings.HasSuffix(module, ".map")
}
