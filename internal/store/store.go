package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"swapscan/internal/models"
)

// Storage is the versioned write surface the event handlers run
// against. *Session implements it for Mongo and *Memory implements it
// in process.
type Storage interface {
	Block() int64
	FindOne(ctx context.Context, coll string, filter bson.M) (bson.M, error)
	Find(ctx context.Context, coll string, filter bson.M, q FindQuery) ([]bson.M, error)
	InsertOne(ctx context.Context, coll string, doc bson.M) error
	FindOneAndUpdate(ctx context.Context, coll string, filter, update bson.M) (bson.M, error)
	FindOneAndReplace(ctx context.Context, coll string, filter, replacement bson.M, upsert bool) (bson.M, error)
	DeleteOne(ctx context.Context, coll string, filter bson.M) error
}

// Reader is the query surface the GraphQL server resolves against.
type Reader interface {
	FindDocs(ctx context.Context, coll string, filter bson.M, block *int64, q FindQuery) ([]bson.M, error)
	FindOneDoc(ctx context.Context, coll string, filter bson.M, block *int64) (bson.M, error)
	FindPlain(ctx context.Context, coll string, filter bson.M, q FindQuery) ([]bson.M, error)
	FindOnePlain(ctx context.Context, coll string, filter bson.M) (bson.M, error)
	Distinct(ctx context.Context, coll, field string, filter bson.M) ([]interface{}, error)
	Aggregate(ctx context.Context, coll string, pipeline interface{}) ([]bson.M, error)
}

// PlainWriter writes to the non-versioned contest collections.
type PlainWriter interface {
	InsertPlain(ctx context.Context, coll string, doc bson.M) error
	ReplacePlain(ctx context.Context, coll string, filter, doc bson.M, upsert bool) error
}

// ReadWriter is the surface the contest aggregation workers need.
type ReadWriter interface {
	Reader
	PlainWriter
}

// FindQuery carries the sort and paging options for a find.
type FindQuery struct {
	OrderBy string
	Desc    bool
	Skip    int64
	Limit   int64
}

func (q FindQuery) options() *options.FindOptions {
	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return opts
}

// WithBlock narrows filter to the version alive at block. A nil block
// selects the current version.
func WithBlock(filter bson.M, block *int64) bson.M {
	merged := copyDoc(filter)
	if block == nil {
		merged["_chain.valid_to"] = nil
		return merged
	}
	b := *block
	merged["$or"] = bson.A{
		bson.M{"$and": bson.A{
			bson.M{"_chain.valid_to": nil},
			bson.M{"_chain.valid_from": bson.M{"$lte": b}},
		}},
		bson.M{"$and": bson.A{
			bson.M{"_chain.valid_to": bson.M{"$gt": b}},
			bson.M{"_chain.valid_from": bson.M{"$lte": b}},
		}},
	}
	return merged
}

// Store wraps the Mongo client for one indexer database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens a client for the given database and verifies the
// connection.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().ApplyURI(uri).SetRegistry(Registry())
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("unable to ping mongo: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Database exposes the raw database handle for tooling.
func (s *Store) Database() *mongo.Database {
	return s.db
}

// Ping verifies the server connection. The health endpoint uses it.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Session returns a versioned write session for block.
func (s *Store) Session(block int64) *Session {
	return &Session{db: s.db, block: block}
}

// Drop removes the whole database. Used by the indexer restart flag.
func (s *Store) Drop(ctx context.Context) error {
	if err := s.db.Drop(ctx); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}
	return nil
}

const cursorKey = "indexer"

// Cursor returns the last block the indexer finished, or 0 when the
// database has no checkpoint yet.
func (s *Store) Cursor(ctx context.Context) (int64, error) {
	var doc bson.M
	err := s.db.Collection(models.CollStatus).FindOne(ctx, bson.M{"service": cursorKey}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cursor: %w", err)
	}
	return models.Int64(doc, "last_block"), nil
}

// SaveCursor records block as the last block finished.
func (s *Store) SaveCursor(ctx context.Context, block int64) error {
	doc := bson.M{
		"service":    cursorKey,
		"last_block": block,
		"updated_at": time.Now().UTC(),
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.db.Collection(models.CollStatus).ReplaceOne(ctx, bson.M{"service": cursorKey}, doc, opts); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

// ResetCursor deletes the checkpoint so the next run starts from the
// configured start block. Indexed data stays in place.
func (s *Store) ResetCursor(ctx context.Context) error {
	if _, err := s.db.Collection(models.CollStatus).DeleteOne(ctx, bson.M{"service": cursorKey}); err != nil {
		return fmt.Errorf("reset cursor: %w", err)
	}
	return nil
}

// FindDocs returns the versions alive at block that match filter.
func (s *Store) FindDocs(ctx context.Context, coll string, filter bson.M, block *int64, q FindQuery) ([]bson.M, error) {
	cur, err := s.db.Collection(coll).Find(ctx, WithBlock(filter, block), q.options())
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("find %s: %w", coll, err)
	}
	return docs, nil
}

// FindOneDoc returns the version alive at block that matches filter,
// or nil when there is none.
func (s *Store) FindOneDoc(ctx context.Context, coll string, filter bson.M, block *int64) (bson.M, error) {
	var doc bson.M
	err := s.db.Collection(coll).FindOne(ctx, WithBlock(filter, block)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll, err)
	}
	return doc, nil
}

// FindPlain queries a collection without version constraints.
func (s *Store) FindPlain(ctx context.Context, coll string, filter bson.M, q FindQuery) ([]bson.M, error) {
	cur, err := s.db.Collection(coll).Find(ctx, filter, q.options())
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("find %s: %w", coll, err)
	}
	return docs, nil
}

// FindOnePlain returns one document without version constraints, or
// nil when there is none.
func (s *Store) FindOnePlain(ctx context.Context, coll string, filter bson.M) (bson.M, error) {
	var doc bson.M
	err := s.db.Collection(coll).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll, err)
	}
	return doc, nil
}

// Distinct returns the distinct values of field across the documents
// matching filter, all versions included.
func (s *Store) Distinct(ctx context.Context, coll, field string, filter bson.M) ([]interface{}, error) {
	vals, err := s.db.Collection(coll).Distinct(ctx, field, filter)
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", coll, field, err)
	}
	return vals, nil
}

// Aggregate runs a pipeline and collects the results.
func (s *Store) Aggregate(ctx context.Context, coll string, pipeline interface{}) ([]bson.M, error) {
	cur, err := s.db.Collection(coll).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", coll, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", coll, err)
	}
	return docs, nil
}

// InsertPlain inserts into a non-versioned collection.
func (s *Store) InsertPlain(ctx context.Context, coll string, doc bson.M) error {
	if _, err := s.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert %s: %w", coll, err)
	}
	return nil
}

// ReplacePlain replaces a document in a non-versioned collection.
func (s *Store) ReplacePlain(ctx context.Context, coll string, filter, doc bson.M, upsert bool) error {
	opts := options.Replace().SetUpsert(upsert)
	if _, err := s.db.Collection(coll).ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("replace %s: %w", coll, err)
	}
	return nil
}
