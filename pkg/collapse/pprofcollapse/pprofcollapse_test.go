package pprofcollapse

import (
	"bytes"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/require"
)

func buildProfile(t *testing.T) *profile.Profile {
	t.Helper()
	fnMain := &profile.Function{ID: 1, Name: "main"}
	fnFoo := &profile.Function{ID: 2, Name: "foo"}
	locMain := &profile.Location{ID: 1, Line: []profile.Line{{Function: fnMain}}}
	locFoo := &profile.Location{ID: 2, Line: []profile.Line{{Function: fnFoo}}}
	return &profile.Profile{
		SampleType:        []*profile.ValueType{{Type: "cpu", Unit: "nanoseconds"}},
		DefaultSampleType: "cpu",
		Function:          []*profile.Function{fnMain, fnFoo},
		Location:          []*profile.Location{locMain, locFoo},
		Sample: []*profile.Sample{
			{Value: []int64{5}, Location: []*profile.Location{locFoo, locMain}},
			{Value: []int64{3}, Location: []*profile.Location{locFoo, locMain}},
		},
	}
}

func encode(t *testing.T, prof *profile.Profile) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, prof.WriteUncompressed(&buf))
	return buf.Bytes()
}

func TestCollapseFoldsRootToLeafStacks(t *testing.T) {
	prof := buildProfile(t)
	var out bytes.Buffer
	require.NoError(t, Collapse(bytes.NewReader(encode(t, prof)), &out, Options{SampleIndex: -1}))
	require.Equal(t, "main;foo 8\n", out.String())
}

func TestCollapseSkipsZeroValueSamples(t *testing.T) {
	prof := buildProfile(t)
	prof.Sample = append(prof.Sample, &profile.Sample{
		Value:    []int64{0},
		Location: prof.Location,
	})
	var out bytes.Buffer
	require.NoError(t, Collapse(bytes.NewReader(encode(t, prof)), &out, Options{SampleIndex: -1}))
	require.Equal(t, "main;foo 8\n", out.String())
}

func TestCollapseFallsBackToAddressForUnsymbolizedLocation(t *testing.T) {
	fnMain := &profile.Function{ID: 1, Name: "main"}
	locMain := &profile.Location{ID: 1, Line: []profile.Line{{Function: fnMain}}}
	locBare := &profile.Location{ID: 2, Address: 0xdead}
	prof := &profile.Profile{
		SampleType:        []*profile.ValueType{{Type: "cpu", Unit: "nanoseconds"}},
		DefaultSampleType: "cpu",
		Function:          []*profile.Function{fnMain},
		Location:          []*profile.Location{locMain, locBare},
		Sample: []*profile.Sample{
			{Value: []int64{1}, Location: []*profile.Location{locBare, locMain}},
		},
	}
	var out bytes.Buffer
	require.NoError(t, Collapse(bytes.NewReader(encode(t, prof)), &out, Options{SampleIndex: -1}))
	require.Equal(t, "main;0xdead 1\n", out.String())
}

func TestCollapseRejectsGarbageInput(t *testing.T) {
	var out bytes.Buffer
	err := Collapse(bytes.NewReader([]byte("not a pprof profile")), &out, Options{SampleIndex: -1})
	require.Error(t, err)
}
