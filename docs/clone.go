package docs

import (
	"context"
	"encoding/json"
)

// Clone deep-copies the object tree rooted at id: a tracked, meta-carrying
// GET followed by a POST of the emitted tree. Sharing is preserved
// (objects reachable more than once re-enter as relative references), IDs
// in shallow are reused in place, and every copied object records its
// original in _meta.upstream.
func (s *Service) Clone(ctx context.Context, db, typ, id string, shallow map[string]bool) (string, error) {
	tree, err := s.Get(ctx, db, typ, id, GetOptions{
		MaxLevel: -1,
		Tracking: true,
		Meta:     true,
		Shallow:  shallow,
	})
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(tree)
	if err != nil {
		return "", err
	}
	return s.Post(ctx, db, typ, raw)
}
