// Package quantity validates numeric attribute values against their schema
// descriptor and converts them to the canonical schema unit.
//
// Accepted input forms: a bare number or nested sequence, {"value": ...}
// when the schema declares no unit, or {"value": ..., "unit": "..."} when
// it does. The canonical stored form is {"value": ..., "unit": <schema
// unit>} with the unit key omitted for unitless attributes. On read the
// engine is the identity: stored canonical values are returned unchanged.
//
// Element kinds are strict: booleans only into "?", integers only into
// "i", integers or floats into "f". Floats are never truncated into
// integer attributes.
package quantity

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/beamlab/dms/dmserr"
	"github.com/beamlab/dms/schema"
	"github.com/beamlab/dms/units"
)

// Canonical is the stored form of a quantity.
type Canonical = map[string]any

// Validate checks data against the descriptor and returns the canonical
// record. data is decoded JSON with numbers kept as json.Number.
func Validate(attr schema.Attr, data any) (Canonical, error) {
	value, unit, hasUnit, err := destructure(data)
	if err != nil {
		return nil, err
	}

	schemaHasUnit := attr.Unit != ""
	if hasUnit && !schemaHasUnit {
		return nil, dmserr.New(dmserr.KindUnitExtra, "unit %q given but the schema declares none", unit)
	}
	if !hasUnit && schemaHasUnit {
		return nil, dmserr.New(dmserr.KindUnitMissing, "schema declares unit %q but none was given", attr.Unit)
	}

	factor := 1.0
	if hasUnit {
		from, err := units.Parse(unit)
		if err != nil {
			return nil, dmserr.New(dmserr.KindUnitIncompatible, "cannot parse unit %q", unit)
		}
		to, err := units.Parse(attr.Unit)
		if err != nil {
			return nil, err
		}
		if factor, err = units.Factor(from, to); err != nil {
			return nil, err
		}
	}

	converted, err := convert(value, attr.Shape, 0, attr.DType, factor)
	if err != nil {
		return nil, err
	}

	out := Canonical{"value": converted}
	if schemaHasUnit {
		out["unit"] = attr.Unit
	}
	return out, nil
}

// Read maps a stored canonical value to its wire form. The write-time
// conversion makes this the identity.
func Read(stored any) any { return stored }

func destructure(data any) (value any, unit string, hasUnit bool, err error) {
	m, ok := data.(map[string]any)
	if !ok {
		return data, "", false, nil
	}
	var extras []string
	for k := range m {
		if k != "value" && k != "unit" {
			extras = append(extras, k)
		}
	}
	if len(extras) > 0 {
		return nil, "", false, dmserr.New(dmserr.KindExtraKeys,
			"quantity has extra keys: %s (only value, unit allowed)", strings.Join(extras, ", "))
	}
	value, ok = m["value"]
	if !ok {
		return nil, "", false, dmserr.New(dmserr.KindBadRequest, "quantity dict is missing 'value'")
	}
	if u, ok := m["unit"]; ok {
		s, ok := u.(string)
		if !ok {
			return nil, "", false, dmserr.New(dmserr.KindTypeMismatch, "quantity unit must be a string")
		}
		return value, s, true, nil
	}
	return value, "", false, nil
}

// convert walks the nested value, checking rank and extents against dims
// and converting each scalar.
func convert(v any, dims []int, axis int, dtype string, factor float64) (any, error) {
	list, isList := v.([]any)
	if len(dims) == 0 {
		if isList {
			return nil, dmserr.New(dmserr.KindDimensionMismatch,
				"value nests deeper than the declared rank %d", axis)
		}
		return convertScalar(v, dtype, factor)
	}
	if !isList {
		return nil, dmserr.New(dmserr.KindDimensionMismatch,
			"value has rank %d, schema declares %d", axis, axis+len(dims))
	}
	if dims[0] > 0 && len(list) != dims[0] {
		return nil, dmserr.New(dmserr.KindShapeMismatch,
			"axis %d has extent %d, should be %d", axis, len(list), dims[0])
	}
	out := make([]any, len(list))
	for i, el := range list {
		c, err := convert(el, dims[1:], axis+1, dtype, factor)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func convertScalar(v any, dtype string, factor float64) (any, error) {
	if b, ok := v.(bool); ok {
		if dtype != schema.DTypeBool {
			return nil, dmserr.New(dmserr.KindTypeMismatch, "boolean %v cannot be cast to dtype %q", b, dtype)
		}
		return b, nil
	}
	if dtype == schema.DTypeBool {
		return nil, dmserr.New(dmserr.KindTypeMismatch, "value %v is not a boolean", v)
	}
	f, isInt, err := numeric(v)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case schema.DTypeInt:
		if !isInt {
			return nil, dmserr.New(dmserr.KindTypeMismatch,
				"float %v cannot be cast to integer dtype (same-kind rule)", v)
		}
		y := f * factor
		// Unit conversion may leave the integer domain; astropy promotes to
		// float in that case and so do we.
		if y == math.Trunc(y) {
			return int64(y), nil
		}
		return y, nil
	case schema.DTypeFloat:
		return f * factor, nil
	}
	return nil, dmserr.New(dmserr.KindTypeMismatch, "dtype %q does not accept numeric values", dtype)
}

// numeric extracts a scalar number, reporting whether it is integer-kind.
func numeric(v any) (float64, bool, error) {
	switch n := v.(type) {
	case json.Number:
		s := n.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := n.Int64(); err == nil {
				return float64(i), true, nil
			}
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false, dmserr.New(dmserr.KindTypeMismatch, "invalid number %q", s)
		}
		return f, false, nil
	case float64:
		return n, n == math.Trunc(n) && !math.IsInf(n, 0), nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	}
	return 0, false, dmserr.New(dmserr.KindTypeMismatch, "value %v is not numeric", v)
}
