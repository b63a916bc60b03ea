package flamegraph

// frame is one laid-out rectangle: a node's position and extent in image
// units plus its counts, ready to be colored and emitted (spec §4.5
// "Layout").
type frame struct {
	name      string
	path      string // full root-to-here stack, semicolon-joined
	depth     int
	x0, x1    float64
	self      uint64 // this node's before/only count
	after     uint64 // this node's after count, in diff mode
	diff      bool
	deltaSign int64 // after - self, precomputed for coloring
}

// layoutResult carries everything the SVG emitter needs about the merged
// trie: pruned frames left-to-right, the depth of the deepest surviving
// frame, and the total sample count layout was scaled against.
type layoutResult struct {
	frames      []frame
	maxDepth    int
	totalWidth  uint64
	maxAbsDelta int64
	isDiff      bool
}

// layout walks the trie depth-first, assigning each surviving node an
// x-range proportional to its share of totalSamples and skipping
// subtrees narrower than minWidth image units (spec §4.5 "Layout":
// "skip subtrees with width < min_width").
func layout(root *node, opt Options, isDiff bool) layoutResult {
	visualTotal := root.total
	if isDiff {
		visualTotal = root.after
		if opt.Negate {
			visualTotal = root.total
		}
	}
	if visualTotal == 0 {
		visualTotal = root.total
	}

	widthPerSample := 0.0
	if visualTotal > 0 {
		widthPerSample = (float64(opt.ImageWidth) - 2*float64(defaultXPad)) / float64(visualTotal)
	}

	res := layoutResult{totalWidth: visualTotal, isDiff: isDiff}
	var walk func(n *node, depth int, x0 float64, parentPath string, flameChart bool) float64
	walk = func(n *node, depth int, x0 float64, parentPath string, flameChart bool) float64 {
		x := x0
		for _, name := range n.sortedChildren(flameChart) {
			c := n.children[name]
			visual := c.total
			if isDiff {
				visual = c.after
				if opt.Negate {
					visual = c.total
				}
			}
			width := float64(visual) * widthPerSample
			path := c.name
			if parentPath != "" {
				path = parentPath + ";" + c.name
			}
			if width >= opt.MinWidth {
				delta := int64(c.after) - int64(c.total)
				if opt.Negate {
					delta = -delta
				}
				if abs64(delta) > res.maxAbsDelta {
					res.maxAbsDelta = abs64(delta)
				}
				f := frame{
					name:      c.name,
					path:      path,
					depth:     depth,
					x0:        x,
					x1:        x + width,
					self:      c.total,
					after:     c.after,
					diff:      isDiff,
					deltaSign: delta,
				}
				res.frames = append(res.frames, f)
				if depth+1 > res.maxDepth {
					res.maxDepth = depth + 1
				}
				walk(c, depth+1, x, path, flameChart)
			}
			x += width
		}
		return x
	}
	walk(root, 0, float64(defaultXPad), "", opt.FlameChart)
	return res
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
