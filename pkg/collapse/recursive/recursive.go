// Package recursive collapses recursive calls out of an already-folded
// stack stream: consecutive repeats of the same frame name are merged
// into one, so `a;b;b;b;c 5` becomes `a;b;c 5` (spec §4.3 "recursive").
// This is a post-processor over folded input rather than a raw sampler
// format, so its record boundary is simply "one folded line".
package recursive

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/perfdiag/flamekit/pkg/collapse"
	"github.com/perfdiag/flamekit/pkg/occurrences"
	"github.com/perfdiag/flamekit/pkg/stackerr"
)

// Options mirrors the `collapse-recursive` CLI flags from spec §6.
type Options struct{}

type parser struct{}

// New builds a Factory. There is no per-run state to configure yet, but
// New keeps the same shape as every other format's constructor.
func New(_ Options) collapse.Factory {
	return func() collapse.Parser {
		return &parser{}
	}
}

var _ collapse.Parser = (*parser)(nil)

// WouldEndStack reports true after every line: each folded line is
// already a complete record.
func (p *parser) WouldEndStack(line []byte) bool {
	return true
}

func (p *parser) Chunkable() bool { return true }

func (p *parser) Step(line []byte, occ occurrences.Map) error {
	text := strings.TrimSpace(string(line))
	if text == "" {
		return nil
	}

	idx := strings.LastIndexByte(text, ' ')
	if idx < 0 {
		return stackerr.Parse("recursive", 0, fmt.Errorf("line missing sample count: %q", text))
	}
	count, err := strconv.ParseUint(strings.TrimSpace(text[idx+1:]), 10, 64)
	if err != nil {
		return stackerr.Parse("recursive", 0, err)
	}

	frames := strings.Split(text[:idx], ";")
	collapsed := collapseRepeats(frames)
	occ.Add(occurrences.Key(strings.Join(collapsed, ";")), count)
	return nil
}

// collapseRepeats merges every run of consecutive identical frame names
// into a single occurrence, preserving the first occurrence's position.
func collapseRepeats(frames []string) []string {
	if len(frames) == 0 {
		return frames
	}
	out := make([]string, 0, len(frames))
	out = append(out, frames[0])
	for _, f := range frames[1:] {
		if f == out[len(out)-1] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (p *parser) Finalize(occ occurrences.Map) error {
	return nil
}
