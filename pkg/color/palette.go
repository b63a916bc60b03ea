// Package color implements the flame-graph color engine from spec §4.6:
// a palette selector with 17 hue variants plus an automatic
// language-heuristic mode, a deterministic per-frame hash, and the
// differential red/blue scale used by diff mode.
package color

import (
	"fmt"
	"strings"
)

// Palette selects how a frame's base hue is chosen. The Multi variants
// (Wakeup, Java, JS, Perl, Python, Rust, Auto) inspect the frame name for
// language markers and resolve to one of the plain hues before hashing;
// the plain hues color every frame the same way regardless of name.
type Palette int

const (
	Hot Palette = iota
	Mem
	IO
	Red
	Green
	Blue
	Aqua
	Yellow
	Purple
	Orange
	Grey
	Wakeup
	Java
	JS
	Perl
	Python
	Rust
	Auto // "Multi": auto-detect by frame-name heuristic (spec §4.5 "Coloring")
)

var names = map[Palette]string{
	Hot:    "hot",
	Mem:    "mem",
	IO:     "io",
	Red:    "red",
	Green:  "green",
	Blue:   "blue",
	Aqua:   "aqua",
	Yellow: "yellow",
	Purple: "purple",
	Orange: "orange",
	Grey:   "grey",
	Wakeup: "wakeup",
	Java:   "java",
	JS:     "js",
	Perl:   "perl",
	Python: "python",
	Rust:   "rust",
	Auto:   "multi",
}

func (p Palette) String() string {
	if s, ok := names[p]; ok {
		return s
	}
	return "hot"
}

// Parse resolves a `--colors` flag value (spec §6) to a Palette.
func Parse(s string) (Palette, error) {
	for p, name := range names {
		if name == s {
			return p, nil
		}
	}
	return Hot, fmt.Errorf("unknown color palette: %q", s)
}

// resolve maps a Multi-family palette down to the plain hue that a given
// frame should actually be rendered with. Plain hues resolve to
// themselves regardless of name.
func resolve(p Palette, name string) Palette {
	switch p {
	case Wakeup:
		return resolveWakeup(name)
	case Java:
		return resolveJava(name)
	case JS:
		return resolveJS(name)
	case Perl:
		return resolvePerl(name)
	case Python:
		return resolvePython(name)
	case Rust:
		return resolveRust(name)
	case Auto:
		return resolveAuto(name)
	default:
		return p
	}
}

// annotation reports which of perf's trailing "_[k]"/"_[i]"/"_[j]"
// markers (kernel, inline, JIT) a frame name carries, if any, as
// returned by the byte after '['.
func annotation(name string) byte {
	if len(name) < 4 || name[len(name)-1] != ']' {
		return 0
	}
	i := strings.LastIndex(name, "_[")
	if i < 0 || len(name)-i != 4 {
		return 0
	}
	return name[i+2]
}

func resolveWakeup(name string) Palette {
	return Aqua
}

func resolveJava(name string) Palette {
	switch annotation(name) {
	case 'k':
		return Orange
	case 'i':
		return Aqua
	case 'j':
		return Green
	}
	javaName := strings.TrimPrefix(name, "L")
	switch {
	case strings.Contains(name, "::") || strings.HasPrefix(name, "-[") || strings.HasPrefix(name, "+["):
		return Yellow // C++ or Objective-C
	case strings.Contains(javaName, "/") ||
		(strings.Contains(javaName, ".") && !strings.HasPrefix(javaName, "[")) ||
		startsUpper(javaName):
		return Green // Java
	default:
		return Red // system
	}
}

func resolveJS(name string) Palette {
	switch annotation(name) {
	case 'k':
		return Orange
	case 'j':
		if strings.Contains(name, "/") {
			return Green
		}
		return Aqua
	}
	switch {
	case name != "" && strings.TrimSpace(name) == "":
		return Green
	case strings.Contains(name, "::"):
		return Yellow
	case strings.Contains(name, ":"):
		return Aqua
	case strings.Contains(name, "/") && strings.Contains(afterFirst(name, "/"), ".js"):
		return Green
	default:
		return Red
	}
}

func resolvePerl(name string) Palette {
	switch {
	case annotation(name) == 'k':
		return Orange
	case strings.Contains(name, "Perl") || strings.Contains(name, ".pl"):
		return Green
	case strings.Contains(name, "::"):
		return Yellow
	default:
		return Red
	}
}

// resolvePython recognizes the "<file>.py:<lineno>:<function>" frame
// shape emitted by py-spy/pyflame style tools.
func resolvePython(name string) Palette {
	switch {
	case annotation(name) == 'k':
		return Orange
	case strings.Contains(name, ".py:"):
		return Green
	case strings.Contains(name, "::"):
		return Yellow
	default:
		return Red
	}
}

func resolveRust(name string) Palette {
	switch {
	case annotation(name) == 'k':
		return Orange
	case strings.Contains(name, "::") && !strings.Contains(name, "std::") && !strings.Contains(name, "__rust"):
		return Orange
	case strings.Contains(name, "::"):
		return Yellow
	default:
		return Red
	}
}

// resolveAuto is Palette=Multi's dispatcher: inspect the name for
// whichever language marker matches first, per spec §4.5.
func resolveAuto(name string) Palette {
	switch {
	case annotation(name) == 'k':
		return Grey
	case annotation(name) == 'j':
		return Green
	case annotation(name) == 'i':
		return Aqua
	case strings.Contains(name, ".py:"):
		return resolvePython(name)
	case strings.Contains(name, "::"):
		return Yellow
	default:
		return Hot
	}
}

func afterFirst(s, sub string) string {
	i := strings.Index(s, sub)
	if i < 0 {
		return ""
	}
	return s[i+len(sub):]
}

func startsUpper(s string) bool {
	if s == "" {
		return false
	}
	return s[0] >= 'A' && s[0] <= 'Z'
}
