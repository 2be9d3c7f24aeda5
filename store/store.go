// Package store defines the document persistence layer.
//
// The Store interface abstracts the handful of single-document operations
// the service needs: insert, find by ID, atomic single-attribute update and
// collection listing, plus storage for the per-database schema document.
// Available implementations:
//
//   - memory: in-memory store for development and testing
//   - mongo: MongoDB store for production persistence
//
// IDs are opaque collision-free strings assigned at insert time; both
// implementations use 24-character hex ObjectIDs. Implementations must be
// safe for concurrent use and must return ErrNotFound for missing
// documents so callers can map it to their own error kinds.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document or schema does not exist.
var ErrNotFound = errors.New("document not found")

// ErrSchemaExists is returned by SaveSchema when a schema is already
// present and force was not set.
var ErrSchemaExists = errors.New("schema already defined")

// Doc is a stored record: one entry per schema attribute plus the optional
// _meta sub-record.
type Doc = map[string]any

// Store is the persistence layer of the document service.
type Store interface {
	// Insert stores a new document in the collection of typ and returns
	// its assigned ID.
	Insert(ctx context.Context, db, typ string, doc Doc) (string, error)

	// Find loads one document by ID. Returns ErrNotFound when the ID is
	// absent or malformed.
	Find(ctx context.Context, db, typ, id string) (Doc, error)

	// SetAttr atomically replaces a single top-level attribute of one
	// document. Returns ErrNotFound when the document does not exist.
	SetAttr(ctx context.Context, db, typ, id, attr string, value any) error

	// ListIDs returns the IDs of every document in the collection of typ.
	ListIDs(ctx context.Context, db, typ string) ([]string, error)

	// LoadSchema returns the raw schema document of db and its stored ID.
	LoadSchema(ctx context.Context, db string) (raw []byte, id string, err error)

	// SaveSchema stores the schema document of db. An existing schema is
	// only replaced when force is set; otherwise ErrSchemaExists.
	SaveSchema(ctx context.Context, db string, raw []byte, force bool) error
}
