package flamegraph

import (
	"bufio"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/perfdiag/flamekit/pkg/stackerr"
)

// record is one parsed folded-stack line: a root-first frame path and
// either one sample count, or two (before/after) in differential mode
// (spec §4.4, §4.5 "Trie build").
type record struct {
	frames []string
	before uint64
	after  uint64
	diff   bool
}

// node is one level of the merged trie built from a folded-stack stream
// (spec §4.5 "Trie build"). Children are kept both in a map, for O(1)
// descent while merging, and in first-seen order, so flame-chart mode
// doesn't need a second pass.
type node struct {
	name     string
	children map[string]*node
	order    []string
	total    uint64 // cumulative "before" (or only) count through this node
	after    uint64 // cumulative "after" count, in diff mode
}

func newNode(name string) *node {
	return &node{name: name, children: make(map[string]*node)}
}

func (n *node) child(name string) *node {
	if c, ok := n.children[name]; ok {
		return c
	}
	c := newNode(name)
	n.children[name] = c
	n.order = append(n.order, name)
	return c
}

// sortedChildren returns this node's child names in the order frames
// should be emitted: first-seen for flame-chart mode, alphabetical
// otherwise (spec §4.5 "Sibling order").
func (n *node) sortedChildren(flameChart bool) []string {
	if flameChart {
		return n.order
	}
	out := make([]string, len(n.order))
	copy(out, n.order)
	sort.Strings(out)
	return out
}

// parseFoldedLine splits "f0;f1;...;fn count [count2]" into frames and
// one or two counts. The stack is separated from its trailing count
// field(s) by the last (or last two) whitespace runs, since frame names
// themselves may contain spaces but never semicolons (spec §3).
func parseFoldedLine(line string) (frames []string, before, after uint64, isDiff bool, err error) {
	line = strings.TrimRight(line, " \t")
	if line == "" {
		return nil, 0, 0, false, stackerr.Parse("flamegraph", 0, errEmptyLine)
	}

	idx := strings.LastIndexByte(line, ' ')
	if idx < 0 {
		return nil, 0, 0, false, stackerr.Parse("flamegraph", 0, errNoCount)
	}
	last, err1 := strconv.ParseUint(strings.TrimSpace(line[idx+1:]), 10, 64)
	if err1 != nil {
		return nil, 0, 0, false, stackerr.Parse("flamegraph", 0, err1)
	}
	stackPart := line[:idx]

	// Look for a second trailing number: differential folded format is
	// "stack before after" (spec §4.4).
	if idx2 := strings.LastIndexByte(stackPart, ' '); idx2 >= 0 {
		if second, err2 := strconv.ParseUint(strings.TrimSpace(stackPart[idx2+1:]), 10, 64); err2 == nil {
			frames = strings.Split(stackPart[:idx2], ";")
			return frames, second, last, true, nil
		}
	}

	frames = strings.Split(stackPart, ";")
	return frames, last, last, false, nil
}

var errEmptyLine = errors.New("empty line")
var errNoCount = errors.New("missing trailing sample count")

// readRecords reads every folded line from r, parsing each with
// parseFoldedLine. Malformed lines are logged and skipped (spec §4.5
// "Failure semantics"); the count of skipped lines is returned so the
// caller can warn once instead of per-line.
func readRecords(r io.Reader, reverse bool) (records []record, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<30)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		frames, before, after, isDiff, perr := parseFoldedLine(line)
		if perr != nil {
			skipped++
			continue
		}
		if reverse {
			frames = reversed(frames)
		}
		records = append(records, record{frames: frames, before: before, after: after, diff: isDiff})
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, stackerr.IO("<input>", err)
	}
	return records, skipped, nil
}

func reversed(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

// buildTrie merges every record into a single rooted trie, accumulating
// "before"/"after" counts at every node along its stack path so a node's
// total is the cumulative sample count of every stack passing through it
// (spec §4.5 "Trie build"). Lines are sorted lexicographically first
// unless noSort or flameChart preserve arrival order (spec §4.5 "Sibling
// order", mirroring the reference implementation's default stack sort).
func buildTrie(records []record, flameChart, noSort bool) (*node, bool) {
	if !flameChart && !noSort {
		sort.SliceStable(records, func(i, j int) bool {
			return strings.Join(records[i].frames, ";") < strings.Join(records[j].frames, ";")
		})
	}

	root := newNode(rootFrameName)
	anyDiff := false
	for _, rec := range records {
		if rec.diff {
			anyDiff = true
		}
		cur := root
		cur.total += rec.before
		cur.after += rec.after
		for _, f := range rec.frames {
			cur = cur.child(f)
			cur.total += rec.before
			cur.after += rec.after
		}
	}
	return root, anyDiff
}
