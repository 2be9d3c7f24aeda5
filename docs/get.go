package docs

import (
	"context"

	"github.com/beamlab/dms/dmserr"
	"github.com/beamlab/dms/dpath"
	"github.com/beamlab/dms/quantity"
	"github.com/beamlab/dms/schema"
	"github.com/beamlab/dms/store"
)

// GetOptions controls tree materialization.
type GetOptions struct {
	// Path addresses an attribute or linked object below the root; empty
	// means the root itself.
	Path string
	// MaxLevel limits link descent; -1 means unlimited. Link attributes at
	// the boundary level are omitted entirely.
	MaxLevel int
	// Tracking emits relative back-references for objects already
	// materialized in this request, preserving sharing.
	Tracking bool
	// Meta includes the synthesized _meta block (id, type, parent,
	// upstream).
	Meta bool
	// Shallow lists IDs whose subtrees are not descended into; the bare ID
	// is emitted instead.
	Shallow map[string]bool
}

// Get materializes an object tree or reads a single attribute. The result
// is a single value for plain paths and a list, in resolver order, for
// non-plain ones.
func (s *Service) Get(ctx context.Context, db, typ, id string, opt GetOptions) (any, error) {
	sch, err := s.Schema(ctx, db)
	if err != nil {
		return nil, err
	}
	p, err := dpath.Parse(opt.Path)
	if err != nil {
		return nil, err
	}
	rs, err := s.resolve(ctx, db, sch, typ, id, p)
	if err != nil {
		return nil, err
	}

	tr := newTracker()
	results := make([]any, 0, len(rs))
	for _, r := range rs {
		var v any
		switch {
		case len(r.Tail) == 0:
			v, err = s.render(ctx, db, sch, r.Type, r.ID, r.Parent, r.Obj, 0, r.At, opt, tr)
			if err != nil {
				return nil, err
			}
		case len(r.Tail) > 1:
			return nil, dmserr.New(dmserr.KindPathTooLong,
				"path %q has a tail %q below attribute %q", opt.Path, r.Tail.String(), r.Tail[0].Attr)
		case r.Tail[0].Sub != nil:
			return nil, dmserr.New(dmserr.KindIndexedAttribute,
				"path %q subscripts attribute %q; attributes cannot be indexed", opt.Path, r.Tail[0].Attr)
		default:
			val, ok := r.Obj[r.Tail[0].Attr]
			if !ok {
				return nil, dmserr.New(dmserr.KindPathNotFound,
					"%s/%s has no value for %q", r.Type, r.ID, r.Tail[0].Attr)
			}
			v = quantity.Read(val)
		}
		results = append(results, v)
	}

	if p.Plain() {
		return results[0], nil
	}
	return results, nil
}

// render materializes one object at the given depth and slot path.
func (s *Service) render(ctx context.Context, db string, sch schema.Schema, typ, id, parent string, obj store.Doc, depth int, at dpath.Path, opt GetOptions, tr *tracker) (any, error) {
	if opt.Tracking {
		if rel, ok := tr.relativize(id, at); ok {
			return rel, nil
		}
	}
	if opt.MaxLevel >= 0 && depth > opt.MaxLevel {
		return map[string]any{}, nil
	}

	t, err := sch.Type(typ)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if opt.Meta {
		meta := map[string]any{"id": id, "type": typ}
		if parent != "" {
			meta["parent"] = parent
		}
		if m, ok := obj["_meta"].(map[string]any); ok {
			if up, ok := m["upstream"]; ok {
				meta["upstream"] = up
			}
		}
		out["_meta"] = meta
	}

	for _, name := range t.Attrs() {
		attr := t[name]
		val, ok := obj[name]
		if !ok {
			continue
		}
		if !attr.IsLink() {
			out[name] = quantity.Read(val)
			continue
		}
		if opt.MaxLevel >= 0 && depth == opt.MaxLevel {
			continue
		}
		if attr.IsListLink() {
			list, ok := val.([]any)
			if !ok {
				return nil, dmserr.New(dmserr.KindLinkShapeMismatch, "%s.%s does not hold a list of ids", typ, name)
			}
			rendered := make([]any, len(list))
			for i, c := range list {
				cid, ok := c.(string)
				if !ok {
					return nil, dmserr.New(dmserr.KindLinkShapeMismatch, "%s.%s[%d] does not hold an id", typ, name, i)
				}
				slot := extend(at, dpath.Entry{Attr: name, Sub: &dpath.Subscript{Kind: dpath.KindIndex, Index: i}})
				rendered[i], err = s.renderLink(ctx, db, sch, attr.Link, cid, id, depth+1, slot, opt, tr)
				if err != nil {
					return nil, err
				}
			}
			out[name] = rendered
		} else {
			cid, ok := val.(string)
			if !ok {
				return nil, dmserr.New(dmserr.KindLinkShapeMismatch, "%s.%s does not hold an id", typ, name)
			}
			out[name], err = s.renderLink(ctx, db, sch, attr.Link, cid, id, depth+1, extend(at, dpath.Entry{Attr: name}), opt, tr)
			if err != nil {
				return nil, err
			}
		}
	}

	tr.add(at, id)
	return out, nil
}

// renderLink materializes one reference slot: the bare ID for shallow
// stops, a relative back-reference for already-emitted targets, the
// rendered child otherwise.
func (s *Service) renderLink(ctx context.Context, db string, sch schema.Schema, typ, id, parent string, depth int, slot dpath.Path, opt GetOptions, tr *tracker) (any, error) {
	if opt.Shallow[id] {
		return id, nil
	}
	if opt.Tracking {
		if rel, ok := tr.relativize(id, slot); ok {
			return rel, nil
		}
	}
	obj, err := s.find(ctx, db, typ, id)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, db, sch, typ, id, parent, obj, depth, slot, opt, tr)
}
