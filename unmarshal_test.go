package cod

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCost struct {
	Money int `cod:"Money"`
	Wood  int `cod:"Holz"`
}

type testHouse struct {
	ID      int       `cod:"Id,required"`
	Gfx     uint16    `cod:"Gfx"`
	Size    []int     `cod:"Size"`
	Kind    string    `cod:"Kind"`
	Scale   float64   `cod:"Scale"`
	Ruin    bool      `cod:"Ruin"`
	Costs   testCost  `cod:"BAUKOST"`
	Upkeep  *testCost `cod:"UNTERHALT"`
	Label   *string   `cod:"Label"`
	Raw     Value     `cod:"Kind"`
	Ignored string    `cod:"-"`
	Speed   int
}

func TestUnmarshal(t *testing.T) {
	doc := NewParser().ParseText(strings.Join([]string{
		"Objekt: HAUS",
		"  Nummer: 0",
		"    Id: 20101",
		"    Gfx: 4",
		"    Size: 2, 3",
		"    Kind: WOHNUNG",
		"    Scale: 0.5",
		"    Ruin: 1",
		"    Speed: 9",
		"    Ignored: x",
		"    Objekt: BAUKOST",
		"      Money: 100",
		"      Holz: 4",
		"    EndObj",
		"EndObj",
	}, "\n"))

	var h testHouse
	require.NoError(t, Unmarshal(doc.Find("HAUS", "0"), &h))

	assert.Equal(t, 20101, h.ID)
	assert.Equal(t, uint16(4), h.Gfx)
	assert.Equal(t, []int{2, 3}, h.Size)
	assert.Equal(t, "WOHNUNG", h.Kind)
	assert.Equal(t, 0.5, h.Scale)
	assert.True(t, h.Ruin)
	assert.Equal(t, testCost{Money: 100, Wood: 4}, h.Costs)
	assert.Nil(t, h.Upkeep)
	assert.Nil(t, h.Label)
	assert.Equal(t, String("WOHNUNG"), h.Raw)
	assert.Empty(t, h.Ignored)
	assert.Equal(t, 9, h.Speed)
}

func TestUnmarshal_Children(t *testing.T) {
	doc := NewParser().ParseText(strings.Join([]string{
		"Objekt: HAUS",
		"  Nummer: 0",
		"    Id: 1",
		"  Nummer: +1",
		"    Id: 2",
		"EndObj",
	}, "\n"))

	var all struct {
		Entries []testHouse  `cod:"*"`
		First   *testHouse   `cod:"0"`
		Ptrs    []*testHouse `cod:"1"`
	}
	require.NoError(t, Unmarshal(doc.Object("HAUS"), &all))
	require.Len(t, all.Entries, 2)
	assert.Equal(t, 2, all.Entries[1].ID)
	require.NotNil(t, all.First)
	assert.Equal(t, 1, all.First.ID)
	require.Len(t, all.Ptrs, 1)
	assert.Equal(t, 2, all.Ptrs[0].ID)
}

func TestUnmarshal_Errors(t *testing.T) {
	obj := &Object{Name: "X", Variables: []Variable{{Name: "Kind", Value: String("WOHNUNG")}}}

	var h testHouse
	assert.Error(t, Unmarshal(obj, h), "non-pointer target")
	assert.Error(t, Unmarshal(nil, &h), "nil source")

	var n int
	assert.Error(t, Unmarshal(obj, &n), "pointer to non-struct")

	err := Unmarshal(obj, &h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required field Id")

	var wrong struct {
		Kind int `cod:"Kind"`
	}
	err = Unmarshal(obj, &wrong)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field Kind")
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
		wantErr  bool
	}{
		{"true", true, false},
		{"Ja", true, false},
		{"nein", false, false},
		{"0", false, false},
		{"2", true, false},
		{"maybe", false, true},
	}

	for _, test := range tests {
		got, err := parseBool(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("parseBool(%q): unexpected error state: %v", test.input, err)
			continue
		}
		if got != test.expected {
			t.Errorf("parseBool(%q): expected %v, got %v", test.input, test.expected, got)
		}
	}
}
