package docs

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/beamlab/dms/dmserr"
	"github.com/beamlab/dms/dpath"
	"github.com/beamlab/dms/quantity"
	"github.com/beamlab/dms/schema"
	"github.com/beamlab/dms/store"
)

// Patch replaces the attribute each resolved path points at. Every
// resolved path must end in a tail of exactly one unsubscripted non-link
// attribute. For a plain path data is a single value; for a non-plain path
// data is a list applied positionally to the resolved set. Each write is a
// single-document atomic update; failures carry the offending path.
func (s *Service) Patch(ctx context.Context, db, typ, id, pathStr string, data json.RawMessage) error {
	sch, err := s.Schema(ctx, db)
	if err != nil {
		return err
	}
	p, err := dpath.Parse(pathStr)
	if err != nil {
		return err
	}
	rs, err := s.resolve(ctx, db, sch, typ, id, p)
	if err != nil {
		return err
	}

	var values []any
	if p.Plain() {
		v, err := decodeNumbers(data)
		if err != nil {
			return dmserr.Wrap(dmserr.KindBadRequest, err, "patch data is not valid JSON")
		}
		values = []any{v}
	} else {
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			return dmserr.New(dmserr.KindBadRequest,
				"path %q is not plain; patch data must be a list", pathStr)
		}
		if len(elems) != len(rs) {
			return dmserr.New(dmserr.KindBadRequest,
				"path %q resolves to %d targets but patch data has %d entries", pathStr, len(rs), len(elems))
		}
		values = make([]any, len(elems))
		for i, el := range elems {
			if values[i], err = decodeNumbers(el); err != nil {
				return dmserr.Wrap(dmserr.KindBadRequest, err, "patch data[%d] is not valid JSON", i)
			}
		}
	}

	for i, r := range rs {
		if err := s.patchOne(ctx, db, sch, r, values[i]); err != nil {
			return dmserr.Wrap(dmserr.KindOf(err), err, "patching %q", r.At.String()+"."+r.Tail.String())
		}
	}
	return nil
}

func (s *Service) patchOne(ctx context.Context, db string, sch schema.Schema, r Resolved, value any) error {
	if len(r.Tail) == 0 {
		return dmserr.New(dmserr.KindPathTooLong, "path leads to an object, not an attribute")
	}
	if len(r.Tail) > 1 {
		return dmserr.New(dmserr.KindPathTooLong, "tail %q is too long", r.Tail.String())
	}
	seg := r.Tail[0]
	if seg.Sub != nil {
		return dmserr.New(dmserr.KindIndexedAttribute,
			"attribute %q cannot be subscripted; patch the whole attribute", seg.Attr)
	}
	attr, err := sch.Attr(r.Type, seg.Attr)
	if err != nil {
		return err
	}
	stored, err := validateAttrValue(attr, value)
	if err != nil {
		return err
	}
	if err := s.st.SetAttr(ctx, db, r.Type, r.ID, seg.Attr, stored); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return dmserr.New(dmserr.KindUnknownID, "no object %s with id=%s", r.Type, r.ID)
		}
		return err
	}
	return nil
}

// validateAttrValue checks a replacement value against the descriptor and
// returns its stored form.
func validateAttrValue(attr schema.Attr, value any) (any, error) {
	switch {
	case attr.IsLink():
		return nil, dmserr.New(dmserr.KindBadRequest, "link attributes cannot be patched")
	case attr.DType == schema.DTypeString || attr.DType == schema.DTypeBytes:
		sv, ok := value.(string)
		if !ok {
			return nil, dmserr.New(dmserr.KindTypeMismatch, "value must be a %s", attr.DType)
		}
		return sv, nil
	case attr.DType == schema.DTypeObject:
		return value, nil
	}
	return quantity.Validate(attr, value)
}
