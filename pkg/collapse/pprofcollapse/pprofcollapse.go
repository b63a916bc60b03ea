// Package pprofcollapse folds a github.com/google/pprof binary profile
// (gzip or raw protobuf) into the canonical folded-stack format, giving
// pprof-format CPU and heap profiles a path into the same flame-graph
// pipeline as the text-based samplers.
//
// pprof's wire format is a length-prefixed, often gzip-compressed
// protobuf: unlike the newline-delimited formats in package collapse it
// cannot be scanned line by line or safely split into byte-range chunks,
// so this package reads the whole profile up front instead of
// implementing collapse.Parser.
package pprofcollapse

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/google/pprof/profile"
	"go.uber.org/zap"

	"github.com/perfdiag/flamekit/pkg/occurrences"
	"github.com/perfdiag/flamekit/pkg/stackerr"
	"github.com/perfdiag/flamekit/pkg/xlog"
)

// Options mirrors the `collapse-pprof` CLI flags.
type Options struct {
	// SampleIndex selects which of the profile's sample types to use as
	// the frame count. -1 (the default) picks the profile's own
	// DefaultSampleType.
	SampleIndex int

	// Logger receives a warning naming the number of samples dropped for
	// having a non-positive value or an empty stack. Nil means don't log.
	Logger xlog.Logger
}

// Collapse reads a pprof profile from r and writes "stack count\n" folded
// records to w, one accumulated line per distinct root-to-leaf stack,
// sorted by stack key, matching every other collapser's output contract.
func Collapse(r io.Reader, w io.Writer, opt Options) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return stackerr.IO("<input>", err)
	}

	prof, err := profile.ParseData(data)
	if err != nil {
		return stackerr.Parse("pprof", 0, fmt.Errorf("parse pprof profile: %w", err))
	}

	idx := opt.SampleIndex
	if idx < 0 || idx >= len(prof.SampleType) {
		idx = defaultSampleIndex(prof)
	}

	occ := occurrences.NewOrdered()
	var skipped int
	for _, sample := range prof.Sample {
		if idx >= len(sample.Value) {
			skipped++
			continue
		}
		count := sample.Value[idx]
		if count <= 0 {
			skipped++
			continue
		}
		stack := stackFrames(sample)
		if len(stack) == 0 {
			skipped++
			continue
		}
		occ.Add(occurrences.Key(joinFrames(stack)), uint64(count))
	}
	if skipped > 0 && opt.Logger != nil {
		opt.Logger.Warn("skipped pprof samples with no usable value or stack", zap.Int("count", skipped))
	}

	return writeFolded(occ, w)
}

func defaultSampleIndex(prof *profile.Profile) int {
	for i, st := range prof.SampleType {
		if st.Type == prof.DefaultSampleType {
			return i
		}
	}
	return 0
}

// stackFrames converts a sample's leaf-to-root Location list into the
// folded stream's root-to-leaf frame names, expanding inlined lines
// within a single location and falling back to a bare address when a
// location carries no symbol information.
func stackFrames(sample *profile.Sample) []string {
	var stack []string
	for _, loc := range sample.Location {
		if len(loc.Line) == 0 {
			stack = append(stack, addressName(loc))
			continue
		}
		for j := len(loc.Line) - 1; j >= 0; j-- {
			line := loc.Line[j]
			name := functionName(line)
			if j != 0 {
				name += " (inlined)"
			}
			stack = append(stack, name)
		}
	}
	reverse(stack)
	return stack
}

func functionName(line profile.Line) string {
	if line.Function == nil {
		return "?"
	}
	if line.Function.Name != "" {
		return line.Function.Name
	}
	if line.Function.SystemName != "" {
		return line.Function.SystemName
	}
	return "?"
}

func addressName(loc *profile.Location) string {
	if loc.Mapping == nil {
		return fmt.Sprintf("0x%x", loc.Address)
	}
	return fmt.Sprintf("0x%x @%s", loc.Address, loc.Mapping.File)
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
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

// writeFolded emits "stack count\n" lines sorted lexically by stack key,
// matching pkg/collapse's writeFolded and spec §8's sorted-output
// scenario.
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

	var werr error
	for _, r := range records {
		if werr != nil {
			break
		}
		_, werr = fmt.Fprintf(w, "%s %d\n", r.key, r.count)
	}
	if werr != nil {
		return stackerr.IO("<output>", werr)
	}
	return nil
}
