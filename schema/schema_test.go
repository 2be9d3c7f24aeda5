package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamlab/dms/dmserr"
)

const beamSchema = `{
  "Beam": {
    "length": {"dtype": "f", "unit": "m"},
    "height": {"dtype": "f", "unit": "m"},
    "density": {"dtype": "f", "unit": "kg/m3"},
    "name": {"dtype": "str"},
    "cs": {"link": "CrossSection"}
  },
  "CrossSection": {
    "width": {"dtype": "f", "unit": "m"},
    "points": {"dtype": "f", "shape": [-1, 2], "unit": "m"}
  },
  "BeamState": {
    "npointz": {"dtype": "i"},
    "beam": {"link": "Beam"},
    "csState": {"link": "CrossSection", "shape": [-1]}
  }
}`

func TestParseValid(t *testing.T) {
	s, err := Parse([]byte(beamSchema))
	require.NoError(t, err)

	assert.Equal(t, []string{"Beam", "BeamState", "CrossSection"}, s.Types())

	a, err := s.Attr("Beam", "length")
	require.NoError(t, err)
	assert.Equal(t, "f", a.DType)
	assert.Equal(t, "m", a.Unit)
	assert.Empty(t, a.Shape)
	assert.False(t, a.IsLink())
	assert.True(t, a.IsQuantity())

	cs, err := s.Attr("Beam", "cs")
	require.NoError(t, err)
	assert.True(t, cs.IsLink())
	assert.False(t, cs.IsListLink())

	csState, err := s.Attr("BeamState", "csState")
	require.NoError(t, err)
	assert.True(t, csState.IsListLink())
}

func TestParseDefaults(t *testing.T) {
	s, err := Parse([]byte(`{"T": {"x": {}}}`))
	require.NoError(t, err)
	a, err := s.Attr("T", "x")
	require.NoError(t, err)
	assert.Equal(t, "f", a.DType)
	assert.Equal(t, []int{}, a.Shape)
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"not an object", `[1, 2]`},
		{"bad type name", `{"2Beam": {}}`},
		{"bad attr name", `{"Beam": {"my-attr": {}}}`},
		{"bad dtype", `{"Beam": {"x": {"dtype": "float64"}}}`},
		{"unknown descriptor key", `{"Beam": {"x": {"dtype": "f", "units": "m"}}}`},
		{"rank above 5", `{"Beam": {"x": {"shape": [1, 1, 1, 1, 1, 1]}}}`},
		{"undefined link target", `{"Beam": {"cs": {"link": "CrossSection"}}}`},
		{"2d link", `{"Beam": {"cs": {"link": "Beam", "shape": [2, 2]}}}`},
		{"unit on link", `{"Beam": {"cs": {"link": "Beam", "unit": "m"}}}`},
		{"unit on str", `{"Beam": {"name": {"dtype": "str", "unit": "m"}}}`},
		{"invalid unit", `{"Beam": {"x": {"unit": "furlong"}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.raw))
			require.Error(t, err)
			assert.Equal(t, dmserr.KindSchemaError, dmserr.KindOf(err))
		})
	}
}

func TestLookupErrors(t *testing.T) {
	s, err := Parse([]byte(beamSchema))
	require.NoError(t, err)

	_, err = s.Type("Column")
	assert.Equal(t, dmserr.KindUnknownType, dmserr.KindOf(err))

	_, err = s.Attr("Beam", "width")
	assert.Equal(t, dmserr.KindUnknownAttr, dmserr.KindOf(err))
}

func TestAttrsSorted(t *testing.T) {
	s, err := Parse([]byte(beamSchema))
	require.NoError(t, err)
	typ, err := s.Type("Beam")
	require.NoError(t, err)
	assert.Equal(t, []string{"cs", "density", "height", "length", "name"}, typ.Attrs())
}
