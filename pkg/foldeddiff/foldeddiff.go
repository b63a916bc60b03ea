// Package foldeddiff combines a "before" and an "after" folded-stack
// stream into the two-count differential format the flame-graph renderer
// treats as diff mode (spec §4.4, §4.5).
package foldeddiff

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/perfdiag/flamekit/pkg/occurrences"
	"github.com/perfdiag/flamekit/pkg/stackerr"
	"github.com/perfdiag/flamekit/pkg/xlog"
)

// Options configures one combine, mirroring the `diff-folded` CLI flags
// (spec §6).
type Options struct {
	// Normalize scales every before-count so the before and after totals
	// match, so differential coloring isn't dominated by an overall load
	// change between the two profiles (spec §4.4 "Normalize").
	Normalize bool

	// StripHex replaces every "0xdeadbeef"-shaped substring in a stack
	// with "0x..." before using it as a merge key, so two profiles taken
	// with ASLR-randomized addresses still line up (spec §4.4 "StripHex").
	StripHex bool

	// Logger receives a warning naming the number of malformed lines
	// skipped in each of the two input streams. Nil means don't log.
	Logger xlog.Logger
}

var hexAddrRe = regexp.MustCompile(`0x[0-9a-fA-F]+`)

func stripHexAddresses(stack string) string {
	return hexAddrRe.ReplaceAllString(stack, "0x...")
}

// parseLine splits "stack count" into its stack key and count, applying
// StripHex to the key when requested. Malformed lines return ok=false so
// the caller can skip-and-warn (spec §4.5 "Failure semantics").
func parseLine(line string, stripHex bool) (stack string, count uint64, ok bool) {
	line = strings.TrimRight(line, "\r\n")
	idx := strings.LastIndexByte(line, ' ')
	if idx < 0 {
		return "", 0, false
	}
	n, err := strconv.ParseUint(strings.TrimSpace(line[idx+1:]), 10, 64)
	if err != nil {
		return "", 0, false
	}
	stack = strings.TrimRight(line[:idx], " \t")
	if stack == "" {
		return "", 0, false
	}
	if stripHex {
		stack = stripHexAddresses(stack)
	}
	return stack, n, true
}

// accumulate reads every folded line from r into an insertion-ordered
// occurrences map, returning the sum of every count seen.
func accumulate(r io.Reader, opt Options) (*occurrences.Ordered, uint64, error) {
	m := occurrences.NewOrdered()
	var total uint64
	var skipped int

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<30)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		stack, count, ok := parseLine(line, opt.StripHex)
		if !ok {
			skipped++
			continue
		}
		m.Add(occurrences.Key(stack), count)
		total += count
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, stackerr.IO("<input>", err)
	}
	if skipped > 0 && opt.Logger != nil {
		opt.Logger.Warn("skipped malformed folded lines", zap.Int("count", skipped))
	}
	return m, total, nil
}

// Combine reads before from r1 and after from r2, joins them by stack
// key, and writes "stack before after" lines to w. Output order is the
// insertion order of before's stacks, followed by any stack seen only in
// after, in the order after saw them (spec §4.4 "Output order").
func Combine(r1, r2 io.Reader, w io.Writer, opt Options) error {
	before, totalBefore, err := accumulate(r1, opt)
	if err != nil {
		return err
	}
	after, totalAfter, err := accumulate(r2, opt)
	if err != nil {
		return err
	}

	scale := 1.0
	if opt.Normalize && totalBefore > 0 && totalBefore != totalAfter {
		scale = float64(totalAfter) / float64(totalBefore)
	}

	bw := bufio.NewWriter(w)
	seen := make(map[occurrences.Key]bool, before.Len())

	writeErr := error(nil)
	before.Each(func(key occurrences.Key, count uint64) {
		if writeErr != nil {
			return
		}
		seen[key] = true
		afterCount, _ := after.Get(key)
		beforeCount := scaleCount(count, scale)
		if _, err := fmt.Fprintf(bw, "%s %d %d\n", key, beforeCount, afterCount); err != nil {
			writeErr = err
		}
	})
	if writeErr == nil {
		after.Each(func(key occurrences.Key, count uint64) {
			if writeErr != nil || seen[key] {
				return
			}
			if _, err := fmt.Fprintf(bw, "%s %d %d\n", key, 0, count); err != nil {
				writeErr = err
			}
		})
	}
	if writeErr != nil {
		return stackerr.IO("<output>", writeErr)
	}
	if err := bw.Flush(); err != nil {
		return stackerr.IO("<output>", err)
	}
	return nil
}

func scaleCount(count uint64, scale float64) uint64 {
	if scale == 1.0 {
		return count
	}
	return uint64(float64(count) * scale)
}
