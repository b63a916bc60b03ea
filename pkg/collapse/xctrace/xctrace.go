// Package xctrace collapses Xcode Instruments' `xctrace export` XML: a
// <trace-query-result> of <row><backtrace>...</backtrace></row> entries,
// each backtrace a list of <frame> elements (leaf-first) that may instead
// be a <frame ref="..."/> or a whole <backtrace ref="..."/> pointing back
// at an earlier one, since Instruments dedupes identical backtraces by
// address before exporting (spec §4.3 "xctrace").
//
// This format is not chunkable: an id can be referenced from anywhere
// later in the document, so a single instance must see the whole file.
package xctrace

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/occurrences"
	"github.com/perfdiag/flamekit/pkg/stackerr"
	"github.com/perfdiag/flamekit/pkg/symbols"
)

// Options mirrors the `collapse-xctrace` CLI flags from spec §6.
type Options struct{}

type xmlFrame struct {
	ID   string `xml:"id,attr"`
	Ref  string `xml:"ref,attr"`
	Name string `xml:"name,attr"`
}

type xmlBacktrace struct {
	ID     string     `xml:"id,attr"`
	Ref    string     `xml:"ref,attr"`
	Frames []xmlFrame `xml:"frame"`
}

type xmlRow struct {
	Backtrace *xmlBacktrace `xml:"backtrace"`
}

type xmlNode struct {
	Rows []xmlRow `xml:"row"`
}

type xmlResult struct {
	Nodes []xmlNode `xml:"node"`
}

type parser struct {
	buf bytes.Buffer
}

// New builds a Factory bound to opt.
func New(_ Options) collapse.Factory {
	return func() collapse.Parser {
		return &parser{}
	}
}

var _ collapse.Parser = (*parser)(nil)
var _ collapse.Chunkable = (*parser)(nil)

// WouldEndStack always reports false: xctrace's ref graph can point
// anywhere in the document, so the framework must never split it.
func (p *parser) WouldEndStack(line []byte) bool { return false }

func (p *parser) Chunkable() bool { return false }

// Step buffers every line; the whole document is parsed at Finalize once
// the framework has handed over the complete (single-chunk) input.
func (p *parser) Step(line []byte, occ occurrences.Map) error {
	p.buf.Write(line)
	p.buf.WriteByte('\n')
	return nil
}

func (p *parser) Finalize(occ occurrences.Map) error {
	var result xmlResult
	dec := xml.NewDecoder(&p.buf)
	dec.Strict = false
	if err := dec.Decode(&result); err != nil {
		return stackerr.Parse("xctrace", 0, fmt.Errorf("decode xctrace xml: %w", err))
	}

	frameNames := make(map[string]string)
	backtraces := make(map[string]*xmlBacktrace)
	for _, node := range result.Nodes {
		for _, row := range node.Rows {
			if row.Backtrace == nil {
				continue
			}
			collectFrameNames(row.Backtrace, frameNames)
			if row.Backtrace.ID != "" {
				backtraces[row.Backtrace.ID] = row.Backtrace
			}
		}
	}

	for _, node := range result.Nodes {
		for _, row := range node.Rows {
			if row.Backtrace == nil {
				continue
			}
			stack, err := resolveStack(row.Backtrace, backtraces, frameNames)
			if err != nil {
				return stackerr.Parse("xctrace", 0, err)
			}
			if len(stack) == 0 {
				continue
			}
			occ.Add(occurrences.Key(joinFrames(stack)), 1)
		}
	}
	return nil
}

func collectFrameNames(bt *xmlBacktrace, out map[string]string) {
	for _, f := range bt.Frames {
		if f.ID != "" && f.Name != "" {
			out[f.ID] = symbols.FixName(f.Name)
		}
	}
}

// resolveStack follows a possible backtrace ref, then reverses xctrace's
// leaf-to-root frame order into the folded stream's root-first order.
func resolveStack(bt *xmlBacktrace, backtraces map[string]*xmlBacktrace, names map[string]string) ([]string, error) {
	if bt.Ref != "" {
		target, ok := backtraces[bt.Ref]
		if !ok {
			return nil, fmt.Errorf("backtrace ref %q not found", bt.Ref)
		}
		bt = target
	}

	stack := make([]string, 0, len(bt.Frames))
	for _, f := range bt.Frames {
		var name string
		switch {
		case f.Name != "":
			name = symbols.FixName(f.Name)
		case f.Ref != "":
			resolved, ok := names[f.Ref]
			if !ok {
				return nil, fmt.Errorf("frame ref %q not found", f.Ref)
			}
			name = resolved
		default:
			return nil, fmt.Errorf("frame has neither name nor ref")
		}
		stack = append(stack, name)
	}
	for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
		stack[i], stack[j] = stack[j], stack[i]
	}
	return stack, nil
}

func joinFrames(frames []string) string {
	var buf bytes.Buffer
	for i, f := range frames {
		if i > 0 {
			buf.WriteByte(';')
		}
		buf.WriteString(f)
	}
	return buf.String()
}

// IsApplicable peeks at the first bytes of an input to detect xctrace's
// XML export. The guess dispatcher does not call it: guess never selects
// xctrace.
func IsApplicable(peek []byte) bool {
	return bytes.Contains(peek, []byte("<?xml")) && bytes.Contains(peek, []byte("<trace-query-result"))
}
