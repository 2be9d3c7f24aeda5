package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimple(t *testing.T) {
	cases := []struct {
		expr   string
		factor float64
	}{
		{"m", 1},
		{"mm", 1e-3},
		{"cm", 1e-2},
		{"km", 1e3},
		{"g", 1e-3},
		{"kg", 1},
		{"s", 1},
		{"min", 60},
		{"h", 3600},
		{"N", 1},
		{"kN", 1e3},
		{"Pa", 1},
		{"MPa", 1e6},
		{"none", 1},
	}
	for _, tc := range cases {
		u, err := Parse(tc.expr)
		require.NoError(t, err, tc.expr)
		assert.InEpsilon(t, tc.factor, u.factor, 1e-12, tc.expr)
	}
}

func TestParseCompound(t *testing.T) {
	knm, err := Parse("kN*m")
	require.NoError(t, err)
	nm, err := Parse("N*m")
	require.NoError(t, err)
	assert.True(t, Compatible(knm, nm))

	f, err := Factor(knm, nm)
	require.NoError(t, err)
	assert.InEpsilon(t, 1e3, f, 1e-12)

	j, err := Parse("J")
	require.NoError(t, err)
	assert.True(t, Compatible(nm, j))
}

func TestParseExponents(t *testing.T) {
	for _, expr := range []string{"m2", "m**2", "m^2"} {
		u, err := Parse(expr)
		require.NoError(t, err, expr)
		m, _ := Parse("m")
		assert.False(t, Compatible(u, m), expr)
	}

	m3, err := Parse("m3")
	require.NoError(t, err)
	l, err := Parse("L")
	require.NoError(t, err)
	f, err := Factor(l, m3)
	require.NoError(t, err)
	assert.InEpsilon(t, 1e-3, f, 1e-12)
}

func TestDensityConversion(t *testing.T) {
	from := MustParse("g/cm3")
	to := MustParse("kg/m3")
	f, err := Factor(from, to)
	require.NoError(t, err)
	assert.InEpsilon(t, 1000, f, 1e-9)
}

func TestDimensionlessRatio(t *testing.T) {
	from := MustParse("um/m")
	to := MustParse("none")
	f, err := Factor(from, to)
	require.NoError(t, err)
	assert.InEpsilon(t, 1e-6, f, 1e-12)
}

func TestLengthConversions(t *testing.T) {
	cases := []struct {
		from, to string
		factor   float64
	}{
		{"mm", "m", 1e-3},
		{"cm", "m", 1e-2},
		{"m", "mm", 1e3},
		{"MPa", "Pa", 1e6},
		{"kN*m", "N*m", 1e3},
		{"g/cm3", "kg/m3", 1e3},
	}
	for _, tc := range cases {
		v, err := Convert(1, MustParse(tc.from), MustParse(tc.to))
		require.NoError(t, err, "%s -> %s", tc.from, tc.to)
		assert.InEpsilon(t, tc.factor, v, 1e-9, "%s -> %s", tc.from, tc.to)
	}
}

func TestIncompatible(t *testing.T) {
	m := MustParse("m")
	s := MustParse("s")
	assert.False(t, Compatible(m, s))
	_, err := Factor(m, s)
	assert.Error(t, err)

	pa := MustParse("Pa")
	n := MustParse("N")
	_, err = Factor(pa, n)
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	for _, expr := range []string{"xyz", "m/", "/m", "m**", "foo*bar", "m//s"} {
		_, err := Parse(expr)
		assert.Error(t, err, "%q should not parse", expr)
	}
}

func TestMicroAliases(t *testing.T) {
	u1, err := Parse("um")
	require.NoError(t, err)
	u2, err := Parse("µm")
	require.NoError(t, err)
	f, err := Factor(u1, u2)
	require.NoError(t, err)
	assert.InEpsilon(t, 1, f, 1e-12)
}
