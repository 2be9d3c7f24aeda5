// Package mongo provides the MongoDB implementation of the document store.
//
// Each logical database maps to a MongoDB database (optionally prefixed),
// each declared type to a collection, and the schema document lives in the
// reserved "schema" collection. Document IDs are ObjectID hex strings.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/beamlab/dms/store"
)

const schemaCollection = "schema"

// Options configures the store.
type Options struct {
	// Client is a connected MongoDB client.
	Client *mongodriver.Client
	// Prefix is prepended to logical database names, keeping service
	// databases apart from anything else on the deployment.
	Prefix string
}

// Store is the MongoDB implementation of store.Store.
type Store struct {
	client *mongodriver.Client
	prefix string
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New builds a Store from a connected client.
func New(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	return &Store{client: opts.Client, prefix: opts.Prefix}, nil
}

func (s *Store) coll(db, name string) *mongodriver.Collection {
	return s.client.Database(s.prefix + db).Collection(name)
}

// Insert stores a new document and returns its ObjectID hex.
func (s *Store) Insert(ctx context.Context, db, typ string, doc store.Doc) (string, error) {
	res, err := s.coll(db, typ).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("mongodb insert %s.%s: %w", db, typ, err)
	}
	oid, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return "", fmt.Errorf("mongodb insert %s.%s: unexpected id type %T", db, typ, res.InsertedID)
	}
	return oid.Hex(), nil
}

// Find loads one document by ID.
func (s *Store) Find(ctx context.Context, db, typ, id string) (store.Doc, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	var raw bson.D
	err = s.coll(db, typ).FindOne(ctx, bson.M{"_id": oid}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("mongodb find %s.%s/%s: %w", db, typ, id, err)
	}
	doc, _ := normalize(raw).(map[string]any)
	delete(doc, "_id")
	return doc, nil
}

// SetAttr atomically replaces one attribute via $set.
func (s *Store) SetAttr(ctx context.Context, db, typ, id, attr string, value any) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	res, err := s.coll(db, typ).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{attr: value}},
	)
	if err != nil {
		return fmt.Errorf("mongodb update %s.%s/%s: %w", db, typ, id, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListIDs returns the IDs of every document of a type.
func (s *Store) ListIDs(ctx context.Context, db, typ string) ([]string, error) {
	cursor, err := s.coll(db, typ).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("mongodb list %s.%s: %w", db, typ, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	ids := []string{}
	for cursor.Next(ctx) {
		var doc struct {
			ID bson.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongodb list %s.%s decode: %w", db, typ, err)
		}
		ids = append(ids, doc.ID.Hex())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongodb list %s.%s: %w", db, typ, err)
	}
	return ids, nil
}

// LoadSchema returns the schema document of db as raw JSON plus its ID.
func (s *Store) LoadSchema(ctx context.Context, db string) ([]byte, string, error) {
	var raw bson.D
	err := s.coll(db, schemaCollection).FindOne(ctx, bson.M{}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, "", store.ErrNotFound
		}
		return nil, "", fmt.Errorf("mongodb load schema %s: %w", db, err)
	}
	doc, _ := normalize(raw).(map[string]any)
	id, _ := doc["_id"].(string)
	delete(doc, "_id")
	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("mongodb load schema %s: %w", db, err)
	}
	return buf, id, nil
}

// SaveSchema stores the schema document of db.
func (s *Store) SaveSchema(ctx context.Context, db string, raw []byte, force bool) error {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("mongodb save schema %s: %w", db, err)
	}
	coll := s.coll(db, schemaCollection)
	var existing bson.D
	err := coll.FindOne(ctx, bson.M{}).Decode(&existing)
	switch {
	case err == nil:
		if !force {
			return store.ErrSchemaExists
		}
		if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("mongodb save schema %s: %w", db, err)
		}
	case errors.Is(err, mongodriver.ErrNoDocuments):
	default:
		return fmt.Errorf("mongodb save schema %s: %w", db, err)
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongodb save schema %s: %w", db, err)
	}
	return nil
}

// Ping implements the health pinger contract.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Name identifies the store in health reports.
func (s *Store) Name() string { return "mongo-store" }

// normalize converts decoded BSON values to the plain JSON-ish form the
// rest of the service works with: bson.D/bson.A become maps and slices,
// ObjectIDs become hex strings, int32 widens to int64.
func normalize(v any) any {
	switch t := v.(type) {
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalize(val)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = normalize(el)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = normalize(el)
		}
		return out
	case bson.ObjectID:
		return t.Hex()
	case int32:
		return int64(t)
	}
	return v
}
