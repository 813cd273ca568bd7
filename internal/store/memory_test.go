package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/models"
)

func blockAt(n int64) *int64 {
	return &n
}

func TestMemoryVersioning(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := NewMemory()
	m.SetBlock(10)
	if err := m.InsertOne(ctx, "pairs", bson.M{"id": "0xa", "reserve0": models.D(decimal.NewFromInt(1))}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	m.SetBlock(20)
	prev, err := m.FindOneAndUpdate(ctx, "pairs", bson.M{"id": "0xa"}, bson.M{"$set": bson.M{"reserve0": models.D(decimal.NewFromInt(2))}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if prev == nil {
		t.Fatalf("update returned nil previous doc")
	}
	if got := models.Dec(prev, "reserve0"); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("previous reserve0 = %s, want 1", got)
	}
	if vt := lookupPath(prev, "_chain.valid_to"); vt != nil {
		t.Fatalf("previous doc returned with closed interval: %v", vt)
	}

	// Every version is visible at its own block and only there.
	at10, err := m.FindOneDoc(ctx, "pairs", bson.M{"id": "0xa"}, blockAt(10))
	if err != nil {
		t.Fatalf("find at 10: %v", err)
	}
	if got := models.Dec(at10, "reserve0"); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("reserve0 at block 10 = %s, want 1", got)
	}
	at19, err := m.FindOneDoc(ctx, "pairs", bson.M{"id": "0xa"}, blockAt(19))
	if err != nil || at19 == nil {
		t.Fatalf("find at 19: doc=%v err=%v", at19, err)
	}
	if got := models.Dec(at19, "reserve0"); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("reserve0 at block 19 = %s, want 1", got)
	}
	at20, err := m.FindOneDoc(ctx, "pairs", bson.M{"id": "0xa"}, blockAt(20))
	if err != nil {
		t.Fatalf("find at 20: %v", err)
	}
	if got := models.Dec(at20, "reserve0"); !got.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("reserve0 at block 20 = %s, want 2", got)
	}
	before, err := m.FindOneDoc(ctx, "pairs", bson.M{"id": "0xa"}, blockAt(9))
	if err != nil {
		t.Fatalf("find at 9: %v", err)
	}
	if before != nil {
		t.Fatalf("doc visible before first version: %v", before)
	}

	current, err := m.FindOne(ctx, "pairs", bson.M{"id": "0xa"})
	if err != nil {
		t.Fatalf("find current: %v", err)
	}
	if got := models.Dec(current, "reserve0"); !got.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("current reserve0 = %s, want 2", got)
	}

	all, err := m.FindPlain(ctx, "pairs", bson.M{"id": "0xa"}, FindQuery{})
	if err != nil {
		t.Fatalf("find plain: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("stored versions = %d, want 2", len(all))
	}
}

func TestMemorySameBlockUpdateCollapses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := NewMemory()
	m.SetBlock(5)
	if err := m.InsertOne(ctx, "factories", bson.M{"id": "0xf", "pair_count": int64(1)}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := m.FindOneAndUpdate(ctx, "factories", bson.M{"id": "0xf"}, bson.M{"$inc": bson.M{"pair_count": 1}}); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	all, err := m.FindPlain(ctx, "factories", bson.M{}, FindQuery{})
	if err != nil {
		t.Fatalf("find plain: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("same-block updates left %d versions, want 1", len(all))
	}
	if got := models.Int64(all[0], "pair_count"); got != 4 {
		t.Fatalf("pair_count = %d, want 4", got)
	}
	if vf := asInt64(lookupPath(all[0], "_chain.valid_from")); vf != 5 {
		t.Fatalf("valid_from = %d, want 5", vf)
	}
}

func TestMemoryReplaceAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := NewMemory()
	m.SetBlock(7)

	// Replace with upsert inserts when nothing matches.
	prev, err := m.FindOneAndReplace(ctx, "mints", bson.M{"transaction_hash": "0x1", "index": 0}, bson.M{
		"transaction_hash": "0x1", "index": int64(0), "pair_id": "0xa",
	}, true)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if prev != nil {
		t.Fatalf("upsert of missing doc returned %v", prev)
	}

	// Replace without upsert returns nil when nothing matches.
	prev, err = m.FindOneAndReplace(ctx, "mints", bson.M{"transaction_hash": "0x2"}, bson.M{"transaction_hash": "0x2"}, false)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if prev != nil {
		t.Fatalf("replace of missing doc returned %v", prev)
	}
	if doc, _ := m.FindOne(ctx, "mints", bson.M{"transaction_hash": "0x2"}); doc != nil {
		t.Fatalf("replace without upsert inserted %v", doc)
	}

	m.SetBlock(9)
	prev, err = m.FindOneAndReplace(ctx, "mints", bson.M{"transaction_hash": "0x1", "index": 0}, bson.M{
		"transaction_hash": "0x1", "index": int64(0), "pair_id": "0xa", "zap_in": true,
	}, false)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if prev == nil || models.Bool(prev, "zap_in") {
		t.Fatalf("previous doc = %v, want zap_in false", prev)
	}

	// Soft delete closes the interval but keeps history readable.
	m.SetBlock(12)
	if err := m.DeleteOne(ctx, "mints", bson.M{"transaction_hash": "0x1", "index": 0}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if doc, _ := m.FindOne(ctx, "mints", bson.M{"transaction_hash": "0x1"}); doc != nil {
		t.Fatalf("deleted doc still current: %v", doc)
	}
	at11, err := m.FindOneDoc(ctx, "mints", bson.M{"transaction_hash": "0x1"}, blockAt(11))
	if err != nil || at11 == nil {
		t.Fatalf("history gone after delete: doc=%v err=%v", at11, err)
	}

	// Delete in the insert block removes the version outright.
	m.SetBlock(30)
	if err := m.InsertOne(ctx, "mints", bson.M{"transaction_hash": "0x3", "index": int64(0)}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := m.DeleteOne(ctx, "mints", bson.M{"transaction_hash": "0x3"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, err := m.FindPlain(ctx, "mints", bson.M{"transaction_hash": "0x3"}, FindQuery{})
	if err != nil {
		t.Fatalf("find plain: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("same-block delete left %d versions", len(all))
	}
}

func TestMemoryFindQueryOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := NewMemory()
	m.SetBlock(1)
	for i := int64(0); i < 5; i++ {
		if err := m.InsertOne(ctx, "swaps", bson.M{"id": i, "log_index": 4 - i}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	docs, err := m.Find(ctx, "swaps", bson.M{}, FindQuery{OrderBy: "log_index", Skip: 1, Limit: 2})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len = %d, want 2", len(docs))
	}
	if models.Int64(docs[0], "log_index") != 1 || models.Int64(docs[1], "log_index") != 2 {
		t.Fatalf("wrong page: %v", docs)
	}

	docs, err = m.Find(ctx, "swaps", bson.M{}, FindQuery{OrderBy: "log_index", Desc: true, Limit: 1})
	if err != nil {
		t.Fatalf("find desc: %v", err)
	}
	if len(docs) != 1 || models.Int64(docs[0], "log_index") != 4 {
		t.Fatalf("desc page wrong: %v", docs)
	}
}

func TestMemoryDistinct(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := NewMemory()
	m.SetBlock(3)
	for _, u := range []string{"0xa", "0xb", "0xa", "0xc"} {
		if err := m.InsertOne(ctx, "liquidity_position_snapshots", bson.M{"user": u, "block": int64(3)}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	vals, err := m.Distinct(ctx, "liquidity_position_snapshots", "user", bson.M{"block": bson.M{"$lte": int64(5)}})
	if err != nil {
		t.Fatalf("distinct: %v", err)
	}
	if len(vals) != 3 {
		t.Fatalf("distinct users = %v, want 3", vals)
	}
}
