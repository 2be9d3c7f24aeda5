// Package schema models the schema-of-schemas: the per-database document
// that declares object types, their attributes, numeric shapes, physical
// units and inter-object links.
//
// The schema is data, not code. Parse validates a raw schema document
// against an embedded JSON meta-schema, decodes it into typed descriptors
// and enforces the semantic invariants (declared link targets, link shape
// rank, unit legality).
package schema

import (
	"encoding/json"
	"sort"

	"github.com/beamlab/dms/dmserr"
	"github.com/beamlab/dms/units"
)

// Attribute dtypes. The quantity dtypes (f, i, ?) may carry a unit; the
// remaining ones may not.
const (
	DTypeFloat  = "f"
	DTypeInt    = "i"
	DTypeBool   = "?"
	DTypeString = "str"
	DTypeBytes  = "bytes"
	DTypeObject = "object"
)

// Attr describes a single attribute of a type: how it is shaped, typed and
// linked.
type Attr struct {
	DType string `json:"dtype"`
	Unit  string `json:"unit,omitempty"`
	Shape []int  `json:"shape"`
	Link  string `json:"link,omitempty"`
}

// UnmarshalJSON applies the descriptor defaults: dtype "f", scalar shape.
func (a *Attr) UnmarshalJSON(data []byte) error {
	type plain Attr
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.DType == "" {
		p.DType = DTypeFloat
	}
	if p.Shape == nil {
		p.Shape = []int{}
	}
	*a = Attr(p)
	return nil
}

// IsLink reports whether the attribute references other objects.
func (a Attr) IsLink() bool { return a.Link != "" }

// IsListLink reports whether the attribute holds a list of references.
func (a Attr) IsListLink() bool { return a.Link != "" && len(a.Shape) == 1 }

// IsQuantity reports whether the attribute holds numeric data validated by
// the quantity engine.
func (a Attr) IsQuantity() bool {
	switch a.DType {
	case DTypeFloat, DTypeInt, DTypeBool:
		return !a.IsLink()
	}
	return false
}

// Type maps attribute names to their descriptors.
type Type map[string]Attr

// Schema maps type names to their attribute sets.
type Schema map[string]Type

// Parse validates and decodes a raw schema document.
func Parse(raw []byte) (Schema, error) {
	if err := validateMeta(raw); err != nil {
		return nil, err
	}
	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, dmserr.Wrap(dmserr.KindSchemaError, err, "schema is not valid JSON")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate enforces the schema invariants.
func (s Schema) Validate() error {
	for tn, t := range s {
		for an, a := range t {
			switch a.DType {
			case DTypeFloat, DTypeInt, DTypeBool, DTypeString, DTypeBytes, DTypeObject:
			default:
				return dmserr.New(dmserr.KindSchemaError, "%s.%s: invalid dtype %q", tn, an, a.DType)
			}
			if len(a.Shape) > 5 {
				return dmserr.New(dmserr.KindSchemaError, "%s.%s: shape rank %d exceeds 5", tn, an, len(a.Shape))
			}
			if a.IsLink() {
				if _, ok := s[a.Link]; !ok {
					return dmserr.New(dmserr.KindSchemaError, "%s.%s: link to undefined type %q", tn, an, a.Link)
				}
				if len(a.Shape) > 1 {
					return dmserr.New(dmserr.KindSchemaError, "%s.%s: links must be scalar (shape=[]) or 1d (shape=[n])", tn, an)
				}
				if a.Unit != "" {
					return dmserr.New(dmserr.KindSchemaError, "%s.%s: unit not permitted on links", tn, an)
				}
				continue
			}
			if a.Unit != "" {
				if !a.IsQuantity() {
					return dmserr.New(dmserr.KindSchemaError, "%s.%s: unit not permitted on dtype %q", tn, an, a.DType)
				}
				if _, err := units.Parse(a.Unit); err != nil {
					return dmserr.Wrap(dmserr.KindSchemaError, err, "%s.%s: invalid unit %q", tn, an, a.Unit)
				}
			}
		}
	}
	return nil
}

// Types returns the declared type names, sorted.
func (s Schema) Types() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Type returns the attribute set of a declared type.
func (s Schema) Type(name string) (Type, error) {
	t, ok := s[name]
	if !ok {
		return nil, dmserr.New(dmserr.KindUnknownType, "unknown type %q", name)
	}
	return t, nil
}

// Attr returns one attribute descriptor.
func (s Schema) Attr(typeName, attrName string) (Attr, error) {
	t, err := s.Type(typeName)
	if err != nil {
		return Attr{}, err
	}
	a, ok := t[attrName]
	if !ok {
		return Attr{}, dmserr.New(dmserr.KindUnknownAttr, "type %q has no attribute %q", typeName, attrName)
	}
	return a, nil
}

// Attrs returns the attribute names of a type, sorted. Rendering and clone
// both iterate in this order so that back-references land deterministically.
func (t Type) Attrs() []string {
	names := make([]string, 0, len(t))
	for n := range t {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
