package docs

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/beamlab/dms/dmserr"
	"github.com/beamlab/dms/dpath"
	"github.com/beamlab/dms/quantity"
	"github.com/beamlab/dms/schema"
	"github.com/beamlab/dms/store"
)

// Post creates an object tree from a raw JSON body and returns the root's
// new ID. Link attributes may hold existing IDs, nested objects (created
// recursively) or relative-path strings referring to objects created
// earlier in the same request. Attributes are processed in document order;
// children are inserted before their parents so stored records only ever
// reference existing IDs.
func (s *Service) Post(ctx context.Context, db, typ string, raw []byte) (string, error) {
	sch, err := s.Schema(ctx, db)
	if err != nil {
		return "", err
	}
	if _, err := sch.Type(typ); err != nil {
		return "", err
	}
	return s.create(ctx, db, sch, typ, raw, dpath.Path{}, newTracker())
}

func (s *Service) create(ctx context.Context, db string, sch schema.Schema, typ string, raw json.RawMessage, at dpath.Path, tr *tracker) (string, error) {
	t, err := sch.Type(typ)
	if err != nil {
		return "", err
	}
	attrs := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(raw, attrs); err != nil {
		return "", dmserr.Wrap(dmserr.KindBadRequest, err, "%s body must be a JSON object", typ)
	}

	rec := store.Doc{}
	for pair := attrs.Oldest(); pair != nil; pair = pair.Next() {
		key, rawVal := pair.Key, pair.Value
		if key == "_meta" {
			// Only the source id survives, as provenance; everything else
			// in a posted _meta block is synthesized output and dropped.
			var meta struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(rawVal, &meta); err == nil && meta.ID != "" {
				rec["_meta"] = map[string]any{"upstream": meta.ID}
			}
			continue
		}
		attr, ok := t[key]
		if !ok {
			return "", dmserr.New(dmserr.KindUnknownAttr,
				"invalid attribute %s.%s (hint: %s defines: %s)", typ, key, typ, strings.Join(t.Attrs(), ", "))
		}
		switch {
		case attr.IsLink():
			v, err := s.createLinks(ctx, db, sch, typ, key, attr, rawVal, at, tr)
			if err != nil {
				return "", err
			}
			rec[key] = v
		case attr.DType == schema.DTypeString || attr.DType == schema.DTypeBytes:
			var sv string
			if err := json.Unmarshal(rawVal, &sv); err != nil {
				return "", dmserr.New(dmserr.KindTypeMismatch, "%s.%s must be a %s", typ, key, attr.DType)
			}
			rec[key] = sv
		case attr.DType == schema.DTypeObject:
			// Decoding is the defensive copy; anything non-JSON was already
			// rejected by the decoder.
			var v any
			if err := json.Unmarshal(rawVal, &v); err != nil {
				return "", dmserr.Wrap(dmserr.KindBadRequest, err, "%s.%s is not valid JSON", typ, key)
			}
			rec[key] = v
		default:
			v, err := decodeNumbers(rawVal)
			if err != nil {
				return "", dmserr.Wrap(dmserr.KindBadRequest, err, "%s.%s is not valid JSON", typ, key)
			}
			can, err := quantity.Validate(attr, v)
			if err != nil {
				return "", dmserr.Wrap(dmserr.KindOf(err), err, "%s.%s", typ, key)
			}
			rec[key] = can
		}
	}

	id, err := s.st.Insert(ctx, db, typ, rec)
	if err != nil {
		return "", err
	}
	tr.add(at, id)
	return id, nil
}

// createLinks materializes the value of one link attribute: a single ID
// for scalar links, a list of IDs for list links.
func (s *Service) createLinks(ctx context.Context, db string, sch schema.Schema, typ, key string, attr schema.Attr, raw json.RawMessage, at dpath.Path, tr *tracker) (any, error) {
	isList := bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
	if !attr.IsListLink() {
		if isList {
			return nil, dmserr.New(dmserr.KindLinkShapeMismatch, "%s.%s is a scalar link, got a list", typ, key)
		}
		return s.createLinkSlot(ctx, db, sch, attr, raw, extend(at, dpath.Entry{Attr: key}), tr)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, dmserr.New(dmserr.KindLinkShapeMismatch, "%s.%s is a list link, expected a list", typ, key)
	}
	out := make([]any, len(elems))
	for i, el := range elems {
		slot := extend(at, dpath.Entry{Attr: key, Sub: &dpath.Subscript{Kind: dpath.KindIndex, Index: i}})
		id, err := s.createLinkSlot(ctx, db, sch, attr, el, slot, tr)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

// createLinkSlot fills one reference slot: existing ID kept as-is,
// relative path resolved against the tracker, nested object created
// recursively.
func (s *Service) createLinkSlot(ctx context.Context, db string, sch schema.Schema, attr schema.Attr, raw json.RawMessage, slot dpath.Path, tr *tracker) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if bytes.HasPrefix(trimmed, []byte(`"`)) {
		var sv string
		if err := json.Unmarshal(trimmed, &sv); err != nil {
			return "", dmserr.Wrap(dmserr.KindBadRequest, err, "invalid link value at %q", slot)
		}
		if dpath.IsRelative(sv) {
			return tr.resolveRelative(sv, slot)
		}
		if isObjectID(sv) {
			return sv, nil
		}
		return "", dmserr.New(dmserr.KindBadRequest,
			"link value %q at %q is neither an id, a relative path, nor an object", sv, slot)
	}
	if bytes.HasPrefix(trimmed, []byte("{")) {
		return s.create(ctx, db, sch, attr.Link, raw, slot, tr)
	}
	return "", dmserr.New(dmserr.KindBadRequest, "link value at %q must be an id string or an object", slot)
}

// isObjectID reports whether o looks like a stored ID (24 opaque chars in
// the reference store).
func isObjectID(o string) bool { return len(o) == 24 }

// decodeNumbers decodes JSON keeping numbers as json.Number so the
// quantity engine can tell integer from float literals.
func decodeNumbers(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
