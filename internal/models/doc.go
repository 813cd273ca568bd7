package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// D converts a decimal into its Decimal128 storage form. Values are
// rounded to the 34 significant digits Decimal128 can carry.
func D(d decimal.Decimal) primitive.Decimal128 {
	if n := int32(d.NumDigits()); n > 34 {
		d = d.Round(-d.Exponent() - (n - 34))
	}
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}
	}
	return v
}

// Dec reads a numeric field from a raw document. Missing fields and
// nulls read as zero, so window counters accumulate from nothing.
func Dec(doc bson.M, key string) decimal.Decimal {
	switch v := doc[key].(type) {
	case primitive.Decimal128:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case decimal.Decimal:
		return v
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case float64:
		return decimal.NewFromFloat(v)
	default:
		return decimal.Zero
	}
}

// Int64 reads an integer field from a raw document.
func Int64(doc bson.M, key string) int64 {
	switch v := doc[key].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case primitive.Decimal128:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return 0
		}
		return d.IntPart()
	default:
		return 0
	}
}

// Str reads a string field from a raw document.
func Str(doc bson.M, key string) string {
	s, _ := doc[key].(string)
	return s
}

// StrPtr reads an optional string field. Missing and null both read
// as nil.
func StrPtr(doc bson.M, key string) *string {
	if s, ok := doc[key].(string); ok {
		return &s
	}
	return nil
}

// Bool reads a boolean field from a raw document.
func Bool(doc bson.M, key string) bool {
	b, _ := doc[key].(bool)
	return b
}

// Time reads a timestamp field from a raw document, normalized to UTC.
func Time(doc bson.M, key string) time.Time {
	switch v := doc[key].(type) {
	case time.Time:
		return v.UTC()
	case primitive.DateTime:
		return v.Time().UTC()
	default:
		return time.Time{}
	}
}

// DecMap reads a sub-document of numeric values keyed by pair id, the
// shape of the contest balance maps.
func DecMap(doc bson.M, key string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	switch m := doc[key].(type) {
	case bson.M:
		for k := range m {
			out[k] = Dec(m, k)
		}
	case map[string]interface{}:
		for k := range m {
			out[k] = Dec(bson.M(m), k)
		}
	}
	return out
}
