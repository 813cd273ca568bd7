package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Session performs versioned writes for a single block. Updates close
// the current version at the session block and insert a replacement
// valid from that block; a second write in the same block collapses
// into the open version instead of leaving an empty interval behind.
type Session struct {
	db    *mongo.Database
	block int64
}

// Block returns the block the session writes at.
func (s *Session) Block() int64 {
	return s.block
}

// FindOne returns the current version matching filter, or nil when
// there is none.
func (s *Session) FindOne(ctx context.Context, coll string, filter bson.M) (bson.M, error) {
	var doc bson.M
	err := s.db.Collection(coll).FindOne(ctx, withCurrent(filter)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll, err)
	}
	return doc, nil
}

// Find returns the current versions matching filter.
func (s *Session) Find(ctx context.Context, coll string, filter bson.M, q FindQuery) ([]bson.M, error) {
	cur, err := s.db.Collection(coll).Find(ctx, withCurrent(filter), q.options())
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("find %s: %w", coll, err)
	}
	return docs, nil
}

// InsertOne inserts doc as a new version valid from the session block.
func (s *Session) InsertOne(ctx context.Context, coll string, doc bson.M) error {
	stamped := copyDoc(doc)
	delete(stamped, "_id")
	stamp(stamped, s.block)
	if _, err := s.db.Collection(coll).InsertOne(ctx, stamped); err != nil {
		return fmt.Errorf("insert %s: %w", coll, err)
	}
	return nil
}

// FindOneAndUpdate applies a $set/$inc update to the current version
// matching filter and returns the document as it was before the
// update. It returns nil, nil when no document matches.
func (s *Session) FindOneAndUpdate(ctx context.Context, coll string, filter, update bson.M) (bson.M, error) {
	prev, err := s.FindOne(ctx, coll, filter)
	if err != nil || prev == nil {
		return prev, err
	}
	next, err := applyUpdate(prev, update)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", coll, err)
	}
	if err := s.writeVersion(ctx, coll, prev, next); err != nil {
		return nil, err
	}
	return prev, nil
}

// FindOneAndReplace swaps the current version matching filter for
// replacement and returns the previous document. With upsert set a
// missing document is inserted; without it nil, nil is returned.
func (s *Session) FindOneAndReplace(ctx context.Context, coll string, filter, replacement bson.M, upsert bool) (bson.M, error) {
	prev, err := s.FindOne(ctx, coll, filter)
	if err != nil {
		return nil, err
	}
	next := copyDoc(replacement)
	delete(next, "_id")
	if prev == nil {
		if !upsert {
			return nil, nil
		}
		return nil, s.InsertOne(ctx, coll, next)
	}
	if err := s.writeVersion(ctx, coll, prev, next); err != nil {
		return nil, err
	}
	return prev, nil
}

// DeleteOne closes the current version matching filter. Deleting a
// version opened in the same block removes it entirely.
func (s *Session) DeleteOne(ctx context.Context, coll string, filter bson.M) error {
	prev, err := s.FindOne(ctx, coll, filter)
	if err != nil || prev == nil {
		return err
	}
	if validFrom(prev) == s.block {
		if _, err := s.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": prev["_id"]}); err != nil {
			return fmt.Errorf("delete %s: %w", coll, err)
		}
		return nil
	}
	if err := s.closeVersion(ctx, coll, prev); err != nil {
		return err
	}
	return nil
}

// writeVersion retires prev and installs next as the current version.
func (s *Session) writeVersion(ctx context.Context, coll string, prev, next bson.M) error {
	stamp(next, s.block)
	if validFrom(prev) == s.block {
		next["_chain"] = copyValue(prev["_chain"])
		if _, err := s.db.Collection(coll).ReplaceOne(ctx, bson.M{"_id": prev["_id"]}, next); err != nil {
			return fmt.Errorf("replace %s: %w", coll, err)
		}
		return nil
	}
	if err := s.closeVersion(ctx, coll, prev); err != nil {
		return err
	}
	if _, err := s.db.Collection(coll).InsertOne(ctx, next); err != nil {
		return fmt.Errorf("insert %s: %w", coll, err)
	}
	return nil
}

func (s *Session) closeVersion(ctx context.Context, coll string, prev bson.M) error {
	update := bson.M{"$set": bson.M{"_chain.valid_to": s.block}}
	if _, err := s.db.Collection(coll).UpdateOne(ctx, bson.M{"_id": prev["_id"]}, update); err != nil {
		return fmt.Errorf("close %s version: %w", coll, err)
	}
	return nil
}

func withCurrent(filter bson.M) bson.M {
	merged := copyDoc(filter)
	merged["_chain.valid_to"] = nil
	return merged
}

func stamp(doc bson.M, block int64) {
	doc["_chain"] = bson.M{"valid_from": block, "valid_to": nil}
}

func validFrom(doc bson.M) int64 {
	return asInt64(lookupPath(doc, "_chain.valid_from"))
}
