package cod

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "testdata/haeuser.cod"

func TestParseFixture(t *testing.T) {
	doc, err := NewParser().ParseFile(fixture)
	require.NoError(t, err)
	assert.Equal(t, fixture, doc.Source)

	require.Equal(t, 2, doc.Len())
	haus := doc.Object("HAUS")
	require.NotNil(t, haus)
	require.Equal(t, 4, haus.NumChildren())
	for i, name := range []string{"0", "1", "2", "3"} {
		assert.Equal(t, name, haus.ChildAt(i).Name)
	}

	first := haus.Child("0")
	assert.Equal(t, 404, intVar(t, first, "Gfx"))
	assert.Equal(t, []int{1, 1}, intArray(t, first, "Size"))
	assert.Equal(t, 20506, intVar(t, first, "Id"))
	assert.Equal(t, []int{0, 42}, intArray(t, first, "Pos"))
	kind, ok := first.Variable("Kind")
	require.True(t, ok)
	assert.Equal(t, String("WOHNUNG"), kind.Value)

	second := haus.Child("1")
	assert.Equal(t, 404, intVar(t, second, "Gfx"))
	assert.Equal(t, []int{2, 2}, intArray(t, second, "Size"))
	assert.Equal(t, 20507, intVar(t, second, "Id"))
	cost := second.Child("BAUKOST")
	require.NotNil(t, cost)
	assert.Equal(t, 100, intVar(t, cost, "Money"))
	assert.Equal(t, 4, intVar(t, cost, "Holz"))

	third := haus.Child("2")
	assert.Equal(t, 20508, intVar(t, third, "Id"))
	assert.Equal(t, []int{1, 1}, intArray(t, third, "Size"))
	rotate, ok := third.Variable("Rotate")
	require.True(t, ok)
	assert.Equal(t, Float(1.5), rotate.Value)

	// The fill range stops at MAX, so the last entry is not seeded.
	last := haus.Child("3")
	assert.Equal(t, 1, last.NumVariables())
	assert.Equal(t, 20510, intVar(t, last, "Id"))

	figur := doc.Find("FIGUR", "0")
	require.NotNil(t, figur)
	assert.Equal(t, 404, intVar(t, figur, "Gfx"))
	assert.Equal(t, 20506, intVar(t, figur, "Id"))
	assert.Equal(t, []int{0, 42}, intArray(t, figur, "Pos"))
	assert.Equal(t, 7, intVar(t, figur, "Speed"))

	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, 31, doc.Diagnostics[0].Line)
	assert.Equal(t, "Unknown directive here", doc.Diagnostics[0].Text)
	assert.Equal(t, ReasonUnrecognized, doc.Diagnostics[0].Reason)

	assert.Same(t, first, doc.ObjectByID(20506))
}

func TestLoadFixture_Idempotent(t *testing.T) {
	data, err := os.ReadFile(fixture)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "haeuser.cod")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	p := NewParser()
	parsed, err := p.Load(path)
	require.NoError(t, err)
	cached, err := p.Load(path)
	require.NoError(t, err)
	require.True(t, cached.FromCache)
	assert.True(t, Equal(parsed, cached), Diff(parsed, cached))

	type house struct {
		ID   int    `cod:"Id,required"`
		Gfx  int    `cod:"Gfx"`
		Size []int  `cod:"Size"`
		Kind string `cod:"Kind"`
	}
	var houses struct {
		All []house `cod:"*"`
	}
	require.NoError(t, Unmarshal(cached.Object("HAUS"), &houses))
	require.Len(t, houses.All, 4)
	assert.Equal(t, house{ID: 20507, Gfx: 404, Size: []int{2, 2}, Kind: "WOHNUNG"}, houses.All[1])
}
