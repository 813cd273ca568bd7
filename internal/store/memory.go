package store

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ Storage    = (*Session)(nil)
	_ Storage    = (*Memory)(nil)
	_ Reader     = (*Store)(nil)
	_ ReadWriter = (*Memory)(nil)
)

// Memory is an in-process store with the same versioning semantics as
// the Mongo-backed Session and Store. It backs the handler and server
// tests.
type Memory struct {
	mu    sync.Mutex
	colls map[string][]bson.M
	block int64
}

// NewMemory returns an empty in-process store writing at block 0.
func NewMemory() *Memory {
	return &Memory{colls: make(map[string][]bson.M)}
}

// SetBlock moves the write position to block.
func (m *Memory) SetBlock(block int64) {
	m.mu.Lock()
	m.block = block
	m.mu.Unlock()
}

// Block returns the current write position.
func (m *Memory) Block() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.block
}

func (m *Memory) FindOne(ctx context.Context, coll string, filter bson.M) (bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.indexLocked(coll, filter, nil)
	if err != nil || i < 0 {
		return nil, err
	}
	return copyDoc(m.colls[coll][i]), nil
}

func (m *Memory) Find(ctx context.Context, coll string, filter bson.M, q FindQuery) ([]bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(coll, filter, currentOnly, q)
}

func (m *Memory) InsertOne(ctx context.Context, coll string, doc bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := copyDoc(doc)
	delete(d, "_id")
	stamp(d, m.block)
	m.appendLocked(coll, d)
	return nil
}

func (m *Memory) FindOneAndUpdate(ctx context.Context, coll string, filter, update bson.M) (bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.indexLocked(coll, filter, nil)
	if err != nil || i < 0 {
		return nil, err
	}
	prev := copyDoc(m.colls[coll][i])
	next, err := applyUpdate(m.colls[coll][i], update)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", coll, err)
	}
	m.writeLocked(coll, i, next)
	return prev, nil
}

func (m *Memory) FindOneAndReplace(ctx context.Context, coll string, filter, replacement bson.M, upsert bool) (bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := copyDoc(replacement)
	delete(next, "_id")
	i, err := m.indexLocked(coll, filter, nil)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		if !upsert {
			return nil, nil
		}
		stamp(next, m.block)
		m.appendLocked(coll, next)
		return nil, nil
	}
	prev := copyDoc(m.colls[coll][i])
	m.writeLocked(coll, i, next)
	return prev, nil
}

func (m *Memory) DeleteOne(ctx context.Context, coll string, filter bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.indexLocked(coll, filter, nil)
	if err != nil || i < 0 {
		return err
	}
	doc := m.colls[coll][i]
	if validFrom(doc) == m.block {
		m.colls[coll] = append(m.colls[coll][:i], m.colls[coll][i+1:]...)
		return nil
	}
	doc["_chain"].(bson.M)["valid_to"] = m.block
	return nil
}

func (m *Memory) FindDocs(ctx context.Context, coll string, filter bson.M, block *int64, q FindQuery) ([]bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(coll, filter, versionAt(block), q)
}

func (m *Memory) FindOneDoc(ctx context.Context, coll string, filter bson.M, block *int64) (bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.indexLocked(coll, filter, block)
	if err != nil || i < 0 {
		return nil, err
	}
	return copyDoc(m.colls[coll][i]), nil
}

func (m *Memory) FindPlain(ctx context.Context, coll string, filter bson.M, q FindQuery) ([]bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(coll, filter, everyVersion, q)
}

func (m *Memory) FindOnePlain(ctx context.Context, coll string, filter bson.M) (bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.colls[coll] {
		ok, err := matchFilter(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			return copyDoc(doc), nil
		}
	}
	return nil, nil
}

func (m *Memory) Distinct(ctx context.Context, coll, field string, filter bson.M) ([]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[interface{}]struct{})
	var vals []interface{}
	for _, doc := range m.colls[coll] {
		ok, err := matchFilter(doc, filter)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		v := lookupPath(doc, field)
		if v == nil {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		vals = append(vals, v)
	}
	return vals, nil
}

func (m *Memory) Aggregate(ctx context.Context, coll string, pipeline interface{}) ([]bson.M, error) {
	return nil, fmt.Errorf("aggregate is not supported by the memory store")
}

func (m *Memory) InsertPlain(ctx context.Context, coll string, doc bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := copyDoc(doc)
	m.appendLocked(coll, d)
	return nil
}

func (m *Memory) ReplacePlain(ctx context.Context, coll string, filter, doc bson.M, upsert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := copyDoc(doc)
	for i, cur := range m.colls[coll] {
		ok, err := matchFilter(cur, filter)
		if err != nil {
			return err
		}
		if ok {
			d["_id"] = cur["_id"]
			m.colls[coll][i] = d
			return nil
		}
	}
	if upsert {
		m.appendLocked(coll, d)
	}
	return nil
}

// version selectors for findLocked and indexLocked. currentOnly picks
// the open version, everyVersion skips the check entirely.
var (
	currentOnly  *int64
	everyVersion = new(int64)
)

func versionAt(block *int64) *int64 {
	if block == nil {
		return currentOnly
	}
	return block
}

func (m *Memory) findLocked(coll string, filter bson.M, at *int64, q FindQuery) ([]bson.M, error) {
	var docs []bson.M
	for _, doc := range m.colls[coll] {
		if at != everyVersion && !aliveAt(doc, at) {
			continue
		}
		ok, err := matchFilter(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, copyDoc(doc))
		}
	}
	if q.OrderBy != "" {
		sortDocs(docs, q.OrderBy, q.Desc)
	}
	if q.Skip > 0 {
		if q.Skip >= int64(len(docs)) {
			return nil, nil
		}
		docs = docs[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < int64(len(docs)) {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func (m *Memory) indexLocked(coll string, filter bson.M, at *int64) (int, error) {
	for i, doc := range m.colls[coll] {
		if at != everyVersion && !aliveAt(doc, at) {
			continue
		}
		ok, err := matchFilter(doc, filter)
		if err != nil {
			return -1, err
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}

func (m *Memory) appendLocked(coll string, doc bson.M) {
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	m.colls[coll] = append(m.colls[coll], doc)
}

func (m *Memory) writeLocked(coll string, i int, next bson.M) {
	prev := m.colls[coll][i]
	stamp(next, m.block)
	if validFrom(prev) == m.block {
		next["_id"] = prev["_id"]
		next["_chain"] = copyValue(prev["_chain"])
		m.colls[coll][i] = next
		return
	}
	prev["_chain"].(bson.M)["valid_to"] = m.block
	m.appendLocked(coll, next)
}

// aliveAt reports whether doc is the version visible at block; a nil
// block means the open version.
func aliveAt(doc bson.M, block *int64) bool {
	vt := lookupPath(doc, "_chain.valid_to")
	if block == nil {
		return vt == nil
	}
	vf := lookupPath(doc, "_chain.valid_from")
	if vf == nil {
		return false
	}
	if asInt64(vf) > *block {
		return false
	}
	return vt == nil || asInt64(vt) > *block
}
