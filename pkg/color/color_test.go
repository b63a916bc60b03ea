package color

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForFrameDeterministic(t *testing.T) {
	a := ForFrame(Hot, "do_work", HashOptions{})
	b := ForFrame(Hot, "do_work", HashOptions{})
	require.Equal(t, a, b)
}

func TestForFrameVariesByName(t *testing.T) {
	a := ForFrame(Hot, "do_work", HashOptions{})
	b := ForFrame(Hot, "do_other_work", HashOptions{})
	require.NotEqual(t, a, b)
}

func TestAutoDetectsCppByColonColon(t *testing.T) {
	require.Equal(t, Yellow, resolve(Auto, "std::vector<int>::push_back"))
}

func TestAutoDetectsJavaJIT(t *testing.T) {
	require.Equal(t, Green, resolve(Auto, "com.foo.Bar.baz_[j]"))
}

func TestAutoDetectsPython(t *testing.T) {
	require.Equal(t, Green, resolve(Auto, "app.py:42:handler"))
}

func TestDiffScaleSymmetry(t *testing.T) {
	up := DiffScale(10, 20)
	down := DiffScale(-10, 20)
	require.Equal(t, up.R, down.B)
	require.Equal(t, up.G, down.G)
	require.Equal(t, up.B, down.R)
}

func TestDiffScaleZero(t *testing.T) {
	require.Equal(t, RGB{255, 255, 255}, DiffScale(0, 100))
}

func TestPaletteMapRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "palette.map")

	m := NewPaletteMap()
	m.Set("do_work", RGB{205, 30, 30})
	require.NoError(t, m.SaveTo(path))

	loaded, err := LoadPaletteMap(path)
	require.NoError(t, err)
	c, ok := loaded.Get("do_work")
	require.True(t, ok)
	require.Equal(t, RGB{205, 30, 30}, c)
}

func TestPaletteMapMissingFileIsEmpty(t *testing.T) {
	m, err := LoadPaletteMap(filepath.Join(t.TempDir(), "missing.map"))
	require.NoError(t, err)
	require.Equal(t, 0, len(m.entries))
}

func TestPaletteMapPreservesUnparsedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "palette.map")
	require.NoError(t, os.WriteFile(path, []byte("not a valid line\nfoo->rgb(1,2,3)\n"), 0o644))

	m, err := LoadPaletteMap(path)
	require.NoError(t, err)
	c, ok := m.Get("foo")
	require.True(t, ok)
	require.Equal(t, RGB{1, 2, 3}, c)

	require.NoError(t, m.SaveTo(path))
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "not a valid line")
}
