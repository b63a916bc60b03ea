package color

import (
	"fmt"
	"hash/fnv"
	"math"
)

// RGB is a single 8-bit-per-channel color, formatted as `rgb(R,G,B)` or
// `#RRGGBB` depending on where the renderer needs it.
type RGB struct {
	R, G, B uint8
}

func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// Hex formats c as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// HashOptions configures ForFrame's deterministic per-frame hue
// perturbation (spec §4.6).
type HashOptions struct {
	// Deterministic uses only the name hash, ignoring WidthFraction, per
	// spec §4.5 "when deterministic is set, use only the hash (no width
	// weighting)".
	Deterministic bool

	// WidthFraction is this frame's share of the total sample count. In
	// ColorDiffusion mode v1 is multiplied by it, so a narrower frame gets
	// a smaller v1 (for Hot: less green, so a deeper red).
	WidthFraction float64

	// ColorDiffusion enables width-weighted v1, per spec §4.6 "Width-
	// weighted mode multiplies v1 by sample-width fraction".
	ColorDiffusion bool
}

// fnv32 computes the standard FNV-1a 32-bit hash of data.
func fnv32(data []byte) uint32 {
	h := fnv.New32a()
	_, _ = h.Write(data)
	return h.Sum32()
}

// normalize maps a raw 32-bit hash to [0, 1).
func normalize(h uint32) float64 {
	return float64(h) / float64(math.MaxUint32+1.0)
}

// reverseBytes returns a reversed copy of s, used to derive a second,
// decorrelated hash from the same frame name (spec §4.6, mirroring the
// "hash the name forwards and backwards" idiom every reference flame
// grapher uses to avoid two colors being driven by the same few bytes).
func reverseBytes(s string) []byte {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

// ForFrame computes the RGB color for name under palette, resolving any
// Multi-family palette to a plain hue first, then perturbing that hue's
// base color by a deterministic hash of the name (spec §4.6).
func ForFrame(palette Palette, name string, opt HashOptions) RGB {
	basic := resolve(palette, name)

	hashA := normalize(fnv32([]byte(name)))
	hashB := normalize(fnv32(reverseBytes(name)))
	hashC := normalize(fnv32(append(reverseBytes(name), 0xa5)))

	// v2 and v3 are independent perturbations of the same base color; a
	// salted variant of hashB keeps them from moving in lockstep.
	v1 := 1 - hashA*0.5
	v2 := 1 - hashB*0.4
	v3 := 1 - hashC*0.4

	if opt.ColorDiffusion && !opt.Deterministic {
		v1 *= clamp01(opt.WidthFraction)
	}

	return baseColor(basic, v1, v2, v3)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// t applies the "base + weight*v" tint used by every basic palette, per
// spec §4.6.
func t(base, weight, v float64) uint8 {
	x := base + weight*v
	if x < 0 {
		x = 0
	}
	if x > 255 {
		x = 255
	}
	return uint8(x)
}

// baseColor computes the tinted RGB triple for one plain hue, following
// the constants of the reference flame grapher (spec §9 grounds coloring
// in "the reference implementation").
func baseColor(p Palette, v1, v2, v3 float64) RGB {
	switch p {
	case Hot:
		return RGB{t(205, 50, v3), t(0, 230, v1), t(0, 55, v2)}
	case Mem:
		return RGB{t(0, 0, v3), t(190, 50, v2), t(0, 210, v1)}
	case IO:
		return RGB{t(80, 60, v1), t(80, 60, v1), t(190, 55, v2)}
	case Red:
		return RGB{t(200, 55, v1), t(50, 80, v1), t(50, 80, v1)}
	case Green:
		return RGB{t(50, 60, v1), t(200, 55, v1), t(50, 60, v1)}
	case Blue:
		return RGB{t(80, 60, v1), t(80, 60, v1), t(205, 50, v1)}
	case Yellow:
		return RGB{t(175, 55, v1), t(175, 55, v1), t(50, 20, v1)}
	case Purple:
		return RGB{t(190, 65, v1), t(80, 60, v1), t(190, 65, v1)}
	case Aqua:
		return RGB{t(50, 60, v1), t(165, 55, v1), t(165, 55, v1)}
	case Orange:
		return RGB{t(190, 65, v1), t(90, 65, v1), t(0, 0, v1)}
	case Grey:
		return RGB{t(175, 15, v1), t(175, 15, v1), t(175, 15, v1)}
	default:
		return RGB{t(205, 50, v3), t(0, 230, v1), t(0, 55, v2)}
	}
}

// DiffScale computes the differential mode fill color for a frame whose
// sample count changed by delta out of a run's maxAbsDelta, per spec
// §4.5: red for growth, blue for shrinkage, white for no change.
func DiffScale(delta int64, maxAbsDelta int64) RGB {
	if delta == 0 || maxAbsDelta == 0 {
		return RGB{255, 255, 255}
	}
	if delta > 0 {
		c := uint8(210 * (maxAbsDelta - delta) / maxAbsDelta)
		return RGB{255, c, c}
	}
	c := uint8(210 * (maxAbsDelta + delta) / maxAbsDelta)
	return RGB{c, c, 255}
}

// Background gradients, keyed by palette, per spec §4.5 "inline <defs>
// with background gradient".
var backgroundGradients = map[Palette][2]string{
	Mem:    {"#eef2ee", "#e0ffe0"},
	IO:     {"#eeeeee", "#e0e0ff"},
	Wakeup: {"#eeeeee", "#e0e0ff"},
}

var greyGradient = [2]string{"#f8f8f8", "#e8e8e8"}
var yellowGradient = [2]string{"#eeeeee", "#eeeeb0"}

// BackgroundGradient picks the two-stop gradient used by <linearGradient
// id="background">, defaulting by palette semantics (spec §9: mem is
// green-tinted, io/wakeup blue-tinted, hue palettes grey, everything
// else the default yellow).
func BackgroundGradient(p Palette) (top, bottom string) {
	if g, ok := backgroundGradients[p]; ok {
		return g[0], g[1]
	}
	switch p {
	case Red, Green, Blue, Aqua, Yellow, Purple, Orange, Grey:
		return greyGradient[0], greyGradient[1]
	default:
		return yellowGradient[0], yellowGradient[1]
	}
}
