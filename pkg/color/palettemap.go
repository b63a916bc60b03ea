package color

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"github.com/perfdiag/flamekit/pkg/stackerr"
)

// PaletteMap is the persisted function_name -> color mapping used to keep
// coloring stable across runs (spec §3 "Palette map", §6 "Palette-map
// file format"). Entries loaded from disk override the hash-computed
// color for a name; any name colored for the first time during a render
// is appended before the map is rewritten.
type PaletteMap struct {
	entries   map[string]RGB
	preserved []string
}

// NewPaletteMap returns an empty palette map.
func NewPaletteMap() *PaletteMap {
	return &PaletteMap{entries: make(map[string]RGB)}
}

// Get returns the persisted color for name, if any.
func (m *PaletteMap) Get(name string) (RGB, bool) {
	c, ok := m.entries[name]
	return c, ok
}

// Set records the color chosen for name, so it can be persisted back to
// disk when the render finishes (spec §3 "rewritten at render end").
func (m *PaletteMap) Set(name string, c RGB) {
	if m.entries == nil {
		m.entries = make(map[string]RGB)
	}
	m.entries[name] = c
}

var lineRe = "%s->rgb(%d,%d,%d)"

// parseLine parses one "function_name->rgb(R,G,B)" record. Lines that
// don't match are reported via ok=false so the caller can drop and
// continue per spec §7's PaletteMap error policy.
func parseLine(line string) (name string, c RGB, ok bool) {
	name, rest, found := strings.Cut(line, "->rgb(")
	if !found || name == "" {
		return "", RGB{}, false
	}
	rest = strings.TrimSuffix(rest, ")")
	parts := strings.Split(rest, ",")
	if len(parts) != 3 {
		return "", RGB{}, false
	}
	vals := make([]uint8, 3)
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return "", RGB{}, false
		}
		vals[i] = uint8(n)
	}
	return name, RGB{vals[0], vals[1], vals[2]}, true
}

// LoadPaletteMap reads a palette-map file, tolerating a missing file
// (spec §3: it is "loaded at render start"; a first run has none yet).
// Lines that don't match the format are not parsed into entries; their
// raw text is kept alongside the parsed entries and written back by
// SaveTo.
func LoadPaletteMap(path string) (*PaletteMap, error) {
	m := NewPaletteMap()
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, stackerr.IO(path, err)
	}
	defer f.Close()

	var unparsed []string
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, c, ok := parseLine(line)
		if !ok {
			unparsed = append(unparsed, line)
			continue
		}
		m.entries[name] = c
	}
	if err := scanner.Err(); err != nil {
		return nil, stackerr.IO(path, err)
	}
	m.preserved = unparsed
	return m, nil
}

// SaveTo rewrites the palette map to path under an exclusive advisory
// lock (spec §5 "Shared resources" / §9 "Palette-map file race"), so two
// concurrent renders sharing a --palette-file never clobber each other's
// new entries. Entries are written sorted by name, matching the
// reference implementation's byte-stable output.
func (m *PaletteMap) SaveTo(path string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return stackerr.PaletteMap(path, 0, fmt.Errorf("acquire lock: %w", err))
	}
	defer lock.Unlock()

	// Re-read the file under the lock so entries another render saved
	// since this map was loaded are kept.
	onDisk, err := LoadPaletteMap(path)
	if err != nil {
		return err
	}
	for name, c := range onDisk.entries {
		if _, ok := m.entries[name]; !ok {
			m.Set(name, c)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return stackerr.IO(path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range m.preserved {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return stackerr.IO(path, err)
		}
	}

	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := m.entries[name]
		if _, err := fmt.Fprintf(w, lineRe+"\n", name, c.R, c.G, c.B); err != nil {
			return stackerr.IO(path, err)
		}
	}
	return w.Flush()
}
