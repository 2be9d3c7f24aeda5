// Package memory provides an in-memory implementation of the document
// store.
//
// It is suitable for development, testing and single-node experiments
// where persistence across restarts is not required. IDs have the same
// 24-character hex shape as the MongoDB implementation so that code
// treating them as opaque ObjectID strings behaves identically.
package memory

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/beamlab/dms/store"
)

// Store is an in-memory implementation of store.Store. It is safe for
// concurrent use.
type Store struct {
	mu  sync.RWMutex
	dbs map[string]*database
}

type database struct {
	colls    map[string]*collection
	schema   []byte
	schemaID string
}

type collection struct {
	docs map[string]store.Doc
	ids  []string // insertion order
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{dbs: make(map[string]*database)}
}

func (s *Store) db(name string) *database {
	d, ok := s.dbs[name]
	if !ok {
		d = &database{colls: make(map[string]*collection)}
		s.dbs[name] = d
	}
	return d
}

func (d *database) coll(name string) *collection {
	c, ok := d.colls[name]
	if !ok {
		c = &collection{docs: make(map[string]store.Doc)}
		d.colls[name] = c
	}
	return c
}

// Insert stores a deep copy of doc and returns the new ID.
func (s *Store) Insert(ctx context.Context, db, typ string, doc store.Doc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.db(db).coll(typ)
	id := bson.NewObjectID().Hex()
	c.docs[id] = copyDoc(doc)
	c.ids = append(c.ids, id)
	return id, nil
}

// Find loads a deep copy of one document.
func (s *Store) Find(ctx context.Context, db, typ, id string) (store.Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dbs[db]
	if !ok {
		return nil, store.ErrNotFound
	}
	c, ok := d.colls[typ]
	if !ok {
		return nil, store.ErrNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyDoc(doc), nil
}

// SetAttr replaces one attribute of a stored document.
func (s *Store) SetAttr(ctx context.Context, db, typ, id, attr string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dbs[db]
	if !ok {
		return store.ErrNotFound
	}
	c, ok := d.colls[typ]
	if !ok {
		return store.ErrNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	doc[attr] = copyValue(value)
	return nil
}

// ListIDs returns the collection's IDs in insertion order.
func (s *Store) ListIDs(ctx context.Context, db, typ string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dbs[db]
	if !ok {
		return []string{}, nil
	}
	c, ok := d.colls[typ]
	if !ok {
		return []string{}, nil
	}
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out, nil
}

// LoadSchema returns the stored schema document of db.
func (s *Store) LoadSchema(ctx context.Context, db string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dbs[db]
	if !ok || d.schema == nil {
		return nil, "", store.ErrNotFound
	}
	raw := make([]byte, len(d.schema))
	copy(raw, d.schema)
	return raw, d.schemaID, nil
}

// SaveSchema stores the schema document of db.
func (s *Store) SaveSchema(ctx context.Context, db string, raw []byte, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.db(db)
	if d.schema != nil && !force {
		return store.ErrSchemaExists
	}
	d.schema = make([]byte, len(raw))
	copy(d.schema, raw)
	d.schemaID = bson.NewObjectID().Hex()
	return nil
}

// Ping implements the health pinger contract; the memory store is always
// reachable.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Name identifies the store in health reports.
func (s *Store) Name() string { return "memory-store" }

func copyDoc(doc store.Doc) store.Doc {
	out := make(store.Doc, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyDoc(t)
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = copyValue(el)
		}
		return out
	}
	return v
}
