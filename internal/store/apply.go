package store

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swapscan/internal/models"
)

// applyUpdate returns a copy of doc with the update document applied.
// Only the $set and $inc operators are supported; that is all the
// indexer ever issues. The _id of the source doc is dropped so the
// result can be inserted as a new version.
func applyUpdate(doc bson.M, update bson.M) (bson.M, error) {
	out := copyDoc(doc)
	delete(out, "_id")

	for op, fields := range update {
		m, err := asM(fields)
		if err != nil {
			return nil, fmt.Errorf("update operator %s: %w", op, err)
		}
		switch op {
		case "$set":
			for k, v := range m {
				out[k] = v
			}
		case "$inc":
			for k, v := range m {
				next, err := incValue(out[k], v)
				if err != nil {
					return nil, fmt.Errorf("$inc %s: %w", k, err)
				}
				out[k] = next
			}
		default:
			return nil, fmt.Errorf("unsupported update operator %s", op)
		}
	}
	return out, nil
}

// incValue adds delta to cur, keeping integer counters integral and
// widening everything else to Decimal128.
func incValue(cur, delta interface{}) (interface{}, error) {
	if cur == nil {
		return delta, nil
	}
	if isInt(cur) && isInt(delta) {
		return asInt64(cur) + asInt64(delta), nil
	}
	a, ok := asDecimal(cur)
	if !ok {
		return nil, fmt.Errorf("existing value %T is not numeric", cur)
	}
	b, ok := asDecimal(delta)
	if !ok {
		return nil, fmt.Errorf("delta %T is not numeric", delta)
	}
	return models.D(a.Add(b)), nil
}

func copyDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		return copyDoc(t)
	case map[string]interface{}:
		return copyDoc(bson.M(t))
	case bson.A:
		out := make(bson.A, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// matchFilter reports whether doc satisfies filter. It understands
// plain equality, the comparison operators $lt/$lte/$gt/$gte/$ne, $in,
// and dotted paths into subdocuments.
func matchFilter(doc bson.M, filter bson.M) (bool, error) {
	for key, cond := range filter {
		val := lookupPath(doc, key)
		ok, err := matchValue(val, cond)
		if err != nil {
			return false, fmt.Errorf("filter %s: %w", key, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchValue(val, cond interface{}) (bool, error) {
	if ops, err := asM(cond); err == nil && isOperatorDoc(ops) {
		for op, arg := range ops {
			ok, err := matchOperator(val, op, arg)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
	return equalValues(val, cond), nil
}

func matchOperator(val interface{}, op string, arg interface{}) (bool, error) {
	switch op {
	case "$in":
		items, err := asSlice(arg)
		if err != nil {
			return false, err
		}
		for _, item := range items {
			if equalValues(val, item) {
				return true, nil
			}
		}
		return false, nil
	case "$ne":
		return !equalValues(val, arg), nil
	case "$lt", "$lte", "$gt", "$gte":
		c, ok := compareValues(val, arg)
		if !ok {
			return false, nil
		}
		switch op {
		case "$lt":
			return c < 0, nil
		case "$lte":
			return c <= 0, nil
		case "$gt":
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	default:
		return false, fmt.Errorf("unsupported operator %s", op)
	}
}

func isOperatorDoc(m bson.M) bool {
	for k := range m {
		return strings.HasPrefix(k, "$")
	}
	return false
}

func lookupPath(doc bson.M, path string) interface{} {
	parts := strings.Split(path, ".")
	var cur interface{} = doc
	for _, p := range parts {
		m, err := asM(cur)
		if err != nil {
			return nil
		}
		cur = m[p]
	}
	return cur
}

// sortDocs orders docs by a single field. Missing values sort first in
// ascending order.
func sortDocs(docs []bson.M, field string, desc bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		a := lookupPath(docs[i], field)
		b := lookupPath(docs[j], field)
		c, ok := compareValues(a, b)
		if !ok {
			return false
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func equalValues(a, b interface{}) bool {
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	return a == b
}

// compareValues compares two BSON leaf values of compatible kinds.
func compareValues(a, b interface{}) (int, bool) {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0, true
		}
		if a == nil {
			return -1, true
		}
		return 1, true
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), true
		}
		return 0, false
	}
	if at, ok := asTime(a); ok {
		bt, ok := asTime(b)
		if !ok {
			return 0, false
		}
		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		default:
			return 0, true
		}
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case ab == bb:
			return 0, true
		case !ab:
			return -1, true
		default:
			return 1, true
		}
	}
	ad, ok := asDecimal(a)
	if !ok {
		return 0, false
	}
	bd, ok := asDecimal(b)
	if !ok {
		return 0, false
	}
	return ad.Cmp(bd), true
}

func asM(v interface{}) (bson.M, error) {
	switch t := v.(type) {
	case bson.M:
		return t, nil
	case map[string]interface{}:
		return bson.M(t), nil
	case bson.D:
		out := make(bson.M, len(t))
		for _, e := range t {
			out[e.Key] = e.Value
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected document, got %T", v)
	}
}

func asSlice(v interface{}) ([]interface{}, error) {
	switch t := v.(type) {
	case bson.A:
		return t, nil
	case []interface{}:
		return t, nil
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	case []int64:
		out := make([]interface{}, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected array, got %T", v)
	}
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	default:
		return time.Time{}, false
	}
}

func asDecimal(v interface{}) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case primitive.Decimal128:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case decimal.Decimal:
		return t, true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int32:
		return decimal.NewFromInt32(t), true
	case int64:
		return decimal.NewFromInt(t), true
	case float64:
		return decimal.NewFromFloat(t), true
	default:
		return decimal.Zero, false
	}
}

func isInt(v interface{}) bool {
	switch v.(type) {
	case int, int32, int64:
		return true
	default:
		return false
	}
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	default:
		return 0
	}
}
