// Package docs implements the document operations: POST (create-tree), GET
// (materialize-tree or read-attribute), PATCH (replace attribute), CLONE
// (deep re-post with provenance) and the link-graph queries feeding
// safe-links.
//
// The package is the only writer and reader of stored objects; it drives
// everything off the per-database schema: attribute descriptors decide how
// each value is validated, stored and rendered. Objects are plain
// attribute-keyed maps, never generated types.
package docs

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/beamlab/dms/dmserr"
	"github.com/beamlab/dms/schema"
	"github.com/beamlab/dms/store"
)

// Service executes document operations against a store. It is safe for
// concurrent use; all per-request state (trackers, resolved paths) is local
// to each call.
type Service struct {
	st      store.Store
	schemas *schema.Cache
}

// New builds a Service on top of a document store.
func New(st store.Store) *Service {
	s := &Service{st: st}
	s.schemas = schema.NewCache(func(ctx context.Context, db string) ([]byte, error) {
		raw, _, err := st.LoadSchema(ctx, db)
		if errors.Is(err, store.ErrNotFound) {
			return nil, dmserr.New(dmserr.KindSchemaError, "no schema defined for database %q", db)
		}
		return raw, err
	})
	return s
}

// Schema returns the parsed schema of db.
func (s *Service) Schema(ctx context.Context, db string) (schema.Schema, error) {
	return s.schemas.Get(ctx, db)
}

// PostSchema validates and stores the schema document of db, invalidating
// the cached parse. An existing schema is only replaced when force is set.
func (s *Service) PostSchema(ctx context.Context, db string, raw []byte, force bool) error {
	if _, err := schema.Parse(raw); err != nil {
		return err
	}
	if err := s.st.SaveSchema(ctx, db, raw, force); err != nil {
		if errors.Is(err, store.ErrSchemaExists) {
			return dmserr.New(dmserr.KindConflict,
				"schema already defined for database %q (use force=true if you are sure)", db)
		}
		return err
	}
	s.schemas.Invalidate(db)
	return nil
}

// GetSchema returns the raw schema document, optionally with its stored ID.
func (s *Service) GetSchema(ctx context.Context, db string, includeID bool) (map[string]any, error) {
	raw, id, err := s.st.LoadSchema(ctx, db)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dmserr.New(dmserr.KindSchemaError, "no schema defined for database %q", db)
		}
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if includeID && id != "" {
		doc["_id"] = id
	}
	return doc, nil
}

// ListTypes returns the type names declared by the schema of db.
func (s *Service) ListTypes(ctx context.Context, db string) ([]string, error) {
	sch, err := s.Schema(ctx, db)
	if err != nil {
		return nil, err
	}
	return sch.Types(), nil
}

// ListIDs returns the IDs of all stored objects of one type.
func (s *Service) ListIDs(ctx context.Context, db, typ string) ([]string, error) {
	sch, err := s.Schema(ctx, db)
	if err != nil {
		return nil, err
	}
	if _, err := sch.Type(typ); err != nil {
		return nil, err
	}
	return s.st.ListIDs(ctx, db, typ)
}

// find loads one object, mapping a store miss to UnknownId.
func (s *Service) find(ctx context.Context, db, typ, id string) (store.Doc, error) {
	obj, err := s.st.Find(ctx, db, typ, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dmserr.New(dmserr.KindUnknownID, "no object %s with id=%s in database %q", typ, id, db)
		}
		return nil, err
	}
	return obj, nil
}
