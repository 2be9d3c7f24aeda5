// Package units parses physical unit expressions and converts values
// between compatible units.
//
// The accepted grammar follows the spelling conventions of the producers
// that populate the database: product terms joined by "*", each "/" opening
// a denominator term, an optional integer exponent suffixed to a symbol
// ("m3", "s2") or written as "**n" or "^n", and SI prefixes on base symbols
// ("mm", "kN", "MPa"). The empty string, "none" and "1" denote the
// dimensionless unit.
//
// A Unit is a seven-component dimension exponent vector (length, mass,
// time, current, temperature, amount, luminous intensity) together with a
// linear factor to SI base units. Only linear scales are supported; offset
// scales such as degree Celsius are rejected at the table level by not
// being in the table.
package units

import (
	"math"
	"strconv"
	"strings"

	"github.com/beamlab/dms/dmserr"
)

// Unit is a parsed unit expression.
type Unit struct {
	expr   string
	dims   [7]int
	factor float64
}

// String returns the original expression the unit was parsed from.
func (u Unit) String() string { return u.expr }

// Dimensionless reports whether the unit has no physical dimension.
func (u Unit) Dimensionless() bool { return u.dims == [7]int{} }

type baseUnit struct {
	dims   [7]int
	factor float64
}

// Dimension vector order: m, kg, s, A, K, mol, cd.
var baseUnits = map[string]baseUnit{
	"m":   {dims: [7]int{1, 0, 0, 0, 0, 0, 0}, factor: 1},
	"g":   {dims: [7]int{0, 1, 0, 0, 0, 0, 0}, factor: 1e-3},
	"s":   {dims: [7]int{0, 0, 1, 0, 0, 0, 0}, factor: 1},
	"A":   {dims: [7]int{0, 0, 0, 1, 0, 0, 0}, factor: 1},
	"K":   {dims: [7]int{0, 0, 0, 0, 1, 0, 0}, factor: 1},
	"mol": {dims: [7]int{0, 0, 0, 0, 0, 1, 0}, factor: 1},
	"cd":  {dims: [7]int{0, 0, 0, 0, 0, 0, 1}, factor: 1},

	"N":  {dims: [7]int{1, 1, -2, 0, 0, 0, 0}, factor: 1},
	"Pa": {dims: [7]int{-1, 1, -2, 0, 0, 0, 0}, factor: 1},
	"J":  {dims: [7]int{2, 1, -2, 0, 0, 0, 0}, factor: 1},
	"W":  {dims: [7]int{2, 1, -3, 0, 0, 0, 0}, factor: 1},
	"Hz": {dims: [7]int{0, 0, -1, 0, 0, 0, 0}, factor: 1},
	"L":  {dims: [7]int{3, 0, 0, 0, 0, 0, 0}, factor: 1e-3},
	"eV": {dims: [7]int{2, 1, -2, 0, 0, 0, 0}, factor: 1.602176634e-19},

	"min": {dims: [7]int{0, 0, 1, 0, 0, 0, 0}, factor: 60},
	"h":   {dims: [7]int{0, 0, 1, 0, 0, 0, 0}, factor: 3600},

	"rad":  {factor: 1},
	"none": {factor: 1},
}

var prefixes = map[string]float64{
	"f": 1e-15,
	"p": 1e-12,
	"n": 1e-9,
	"u": 1e-6,
	"µ": 1e-6,
	"m": 1e-3,
	"c": 1e-2,
	"d": 1e-1,
	"k": 1e3,
	"M": 1e6,
	"G": 1e9,
	"T": 1e12,
}

// Parse parses a unit expression. It fails with a SchemaError kind so that
// invalid schema units surface uniformly; callers validating user input
// re-wrap as needed.
func Parse(expr string) (Unit, error) {
	s := strings.ReplaceAll(expr, " ", "")
	u := Unit{expr: expr, factor: 1}
	if s == "" || s == "1" {
		return u, nil
	}
	var term []byte
	sign := 1
	flush := func(nextSign int) error {
		if len(term) == 0 {
			return dmserr.New(dmserr.KindSchemaError, "invalid unit %q: empty term", expr)
		}
		if err := applyTerm(&u, string(term), sign, expr); err != nil {
			return err
		}
		term, sign = term[:0], nextSign
		return nil
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*':
			// "**" introduces an exponent and stays inside the term.
			if i+1 < len(s) && s[i+1] == '*' {
				term = append(term, '*', '*')
				i++
				continue
			}
			if err := flush(1); err != nil {
				return Unit{}, err
			}
		case '/':
			if err := flush(-1); err != nil {
				return Unit{}, err
			}
		default:
			term = append(term, s[i])
		}
	}
	if err := flush(1); err != nil {
		return Unit{}, err
	}
	return u, nil
}

func applyTerm(u *Unit, term string, sign int, expr string) error {
	sym, exp, err := splitExponent(term, expr)
	if err != nil {
		return err
	}
	b, pf, err := lookup(sym, expr)
	if err != nil {
		return err
	}
	exp *= sign
	for k := range u.dims {
		u.dims[k] += b.dims[k] * exp
	}
	u.factor *= math.Pow(pf*b.factor, float64(exp))
	return nil
}

func splitExponent(term, expr string) (string, int, error) {
	if i := strings.Index(term, "**"); i >= 0 {
		n, err := strconv.Atoi(term[i+2:])
		if err != nil {
			return "", 0, dmserr.New(dmserr.KindSchemaError, "invalid unit %q: bad exponent in %q", expr, term)
		}
		return term[:i], n, nil
	}
	if i := strings.IndexByte(term, '^'); i >= 0 {
		n, err := strconv.Atoi(term[i+1:])
		if err != nil {
			return "", 0, dmserr.New(dmserr.KindSchemaError, "invalid unit %q: bad exponent in %q", expr, term)
		}
		return term[:i], n, nil
	}
	// Trailing digits form the exponent: "m3", "s2".
	j := len(term)
	for j > 0 && term[j-1] >= '0' && term[j-1] <= '9' {
		j--
	}
	if j == len(term) {
		return term, 1, nil
	}
	if j == 0 {
		return "", 0, dmserr.New(dmserr.KindSchemaError, "invalid unit %q: numeric term %q", expr, term)
	}
	n, err := strconv.Atoi(term[j:])
	if err != nil || n == 0 {
		return "", 0, dmserr.New(dmserr.KindSchemaError, "invalid unit %q: bad exponent in %q", expr, term)
	}
	return term[:j], n, nil
}

func lookup(sym, expr string) (baseUnit, float64, error) {
	if b, ok := baseUnits[sym]; ok {
		return b, 1, nil
	}
	for pl := 2; pl >= 1; pl-- {
		if len(sym) <= pl {
			continue
		}
		pf, ok := prefixes[sym[:pl]]
		if !ok {
			continue
		}
		if b, ok := baseUnits[sym[pl:]]; ok {
			return b, pf, nil
		}
	}
	return baseUnit{}, 0, dmserr.New(dmserr.KindSchemaError, "invalid unit %q: unknown symbol %q", expr, sym)
}

// MustParse parses expr and panics on failure. Intended for tests and
// static tables.
func MustParse(expr string) Unit {
	u, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return u
}

// Compatible reports whether two units measure the same dimension.
func Compatible(a, b Unit) bool { return a.dims == b.dims }

// Factor returns the multiplier that converts a value in from-units to
// to-units. It fails with UnitIncompatible when the dimensions differ.
func Factor(from, to Unit) (float64, error) {
	if !Compatible(from, to) {
		return 0, dmserr.New(dmserr.KindUnitIncompatible, "unit %q is not convertible to %q", from.expr, to.expr)
	}
	return from.factor / to.factor, nil
}

// Convert converts a single value from one unit to another.
func Convert(v float64, from, to Unit) (float64, error) {
	f, err := Factor(from, to)
	if err != nil {
		return 0, err
	}
	return v * f, nil
}
