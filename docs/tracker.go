package docs

import (
	"github.com/beamlab/dms/dmserr"
	"github.com/beamlab/dms/dpath"
)

// tracker is the request-scoped bidirectional map between absolute slot
// paths and stored IDs. POST uses it to resolve relative sibling
// references; GET with tracking uses it to emit back-references for
// objects already materialized.
type tracker struct {
	byPath map[string]string
	byID   map[string]dpath.Path // first emission wins
}

func newTracker() *tracker {
	return &tracker{
		byPath: make(map[string]string),
		byID:   make(map[string]dpath.Path),
	}
}

// add records that the object with the given id lives at path p.
func (t *tracker) add(p dpath.Path, id string) {
	t.byPath[p.String()] = id
	if _, ok := t.byID[id]; !ok {
		t.byID[id] = p
	}
}

// resolveRelative maps a relative reference found at slot path cur to the
// ID it denotes: strip k leading dots, ascend k levels from cur, apply the
// suffix and look the absolute path up.
func (t *tracker) resolveRelative(rel string, cur dpath.Path) (string, error) {
	up, suffix, err := dpath.ParseRelative(rel)
	if err != nil {
		return "", err
	}
	if up > len(cur) {
		return "", dmserr.New(dmserr.KindRelativeRefUnresolved,
			"relative reference %q ascends %d levels above the root (at %q)", rel, up-len(cur), cur)
	}
	abs := append(append(dpath.Path{}, cur[:len(cur)-up]...), suffix...)
	id, ok := t.byPath[abs.String()]
	if !ok {
		return "", dmserr.New(dmserr.KindRelativeRefUnresolved,
			"relative reference %q (at %q) points to %q, which was not defined earlier in this request",
			rel, cur, abs)
	}
	return id, nil
}

// relativize returns the shortest back-reference from slot path cur to the
// tracked emission path of id, or false when id was never emitted. The dot
// count is len(cur) - len(common prefix).
func (t *tracker) relativize(id string, cur dpath.Path) (string, bool) {
	p, ok := t.byID[id]
	if !ok {
		return "", false
	}
	common := commonPrefix(cur, p)
	return dpath.Relative(len(cur)-common, p[common:]), true
}

func commonPrefix(a, b dpath.Path) int {
	n := 0
	for n < len(a) && n < len(b) && a[n].String() == b[n].String() {
		n++
	}
	return n
}
