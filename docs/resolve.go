package docs

import (
	"context"

	"github.com/beamlab/dms/dmserr"
	"github.com/beamlab/dms/dpath"
	"github.com/beamlab/dms/schema"
	"github.com/beamlab/dms/store"
)

// Resolved is one terminal of a path walk: the object the path reached, any
// unconsumed tail, and the concrete path that was taken to get there.
// Downstream callers decide whether a non-empty tail is acceptable.
type Resolved struct {
	Obj    store.Doc
	Type   string
	ID     string
	Parent string     // immediate parent ID, empty at the root
	Tail   dpath.Path // unconsumed non-link suffix
	At     dpath.Path // consumed path with subscripts concretized
}

// resolve walks p from (typ, id), descending only through link attributes
// and expanding subscripts. The result has exactly one element iff p is
// plain.
func (s *Service) resolve(ctx context.Context, db string, sch schema.Schema, typ, id string, p dpath.Path) ([]Resolved, error) {
	return s.descend(ctx, db, sch, typ, id, "", nil, p)
}

func (s *Service) descend(ctx context.Context, db string, sch schema.Schema, typ, id, parent string, at, rest dpath.Path) ([]Resolved, error) {
	obj, err := s.find(ctx, db, typ, id)
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		return []Resolved{{Obj: obj, Type: typ, ID: id, Parent: parent, At: at}}, nil
	}

	seg := rest[0]
	attr, err := sch.Attr(typ, seg.Attr)
	if err != nil {
		return nil, err
	}
	if !attr.IsLink() {
		// Resolution stops at the first non-link attribute.
		return []Resolved{{Obj: obj, Type: typ, ID: id, Parent: parent, Tail: rest, At: at}}, nil
	}

	val, ok := obj[seg.Attr]
	if !ok {
		return nil, dmserr.New(dmserr.KindPathNotFound, "%s/%s has no value for %q", typ, id, seg.Attr)
	}

	if !attr.IsListLink() {
		if seg.Sub != nil {
			return nil, dmserr.New(dmserr.KindIndexedScalar, "%s.%s is scalar, but was subscripted", typ, seg.Attr)
		}
		child, ok := val.(string)
		if !ok {
			return nil, dmserr.New(dmserr.KindLinkShapeMismatch, "%s.%s does not hold an id", typ, seg.Attr)
		}
		return s.descend(ctx, db, sch, attr.Link, child, id, extend(at, seg), rest[1:])
	}

	if seg.Sub == nil {
		return nil, dmserr.New(dmserr.KindUnindexedList, "%s.%s is a list, but was not subscripted", typ, seg.Attr)
	}
	list, ok := val.([]any)
	if !ok {
		return nil, dmserr.New(dmserr.KindLinkShapeMismatch, "%s.%s does not hold a list of ids", typ, seg.Attr)
	}
	idxs, err := seg.Sub.Apply(len(list))
	if err != nil {
		return nil, err
	}

	var out []Resolved
	for _, idx := range idxs {
		child, ok := list[idx].(string)
		if !ok {
			return nil, dmserr.New(dmserr.KindLinkShapeMismatch, "%s.%s[%d] does not hold an id", typ, seg.Attr, idx)
		}
		at2 := extend(at, dpath.Entry{Attr: seg.Attr, Sub: &dpath.Subscript{Kind: dpath.KindIndex, Index: idx}})
		rs, err := s.descend(ctx, db, sch, attr.Link, child, id, at2, rest[1:])
		if err != nil {
			return nil, err
		}
		out = append(out, rs...)
	}
	return out, nil
}

// extend appends an entry to a path without aliasing the input slice.
func extend(p dpath.Path, e dpath.Entry) dpath.Path {
	out := make(dpath.Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, e)
}
