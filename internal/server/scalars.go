package server

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"swapscan/internal/felt"
)

// Decimal carries fixed-point amounts, serialized as JSON strings so
// no precision is lost on the wire.
type Decimal struct {
	decimal.Decimal
}

// ImplementsGraphQLType maps the type onto the Decimal scalar.
func (Decimal) ImplementsGraphQLType(name string) bool { return name == "Decimal" }

// UnmarshalGraphQL decodes string or numeric literals.
func (d *Decimal) UnmarshalGraphQL(input interface{}) error {
	switch v := input.(type) {
	case string:
		parsed, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		d.Decimal = parsed
		return nil
	case int32:
		d.Decimal = decimal.NewFromInt32(v)
		return nil
	case int64:
		d.Decimal = decimal.NewFromInt(v)
		return nil
	case float64:
		d.Decimal = decimal.NewFromFloat(v)
		return nil
	default:
		return fmt.Errorf("cannot decode %T as Decimal", input)
	}
}

// Time is an instant serialized as unix seconds. Inputs also accept
// RFC 3339 strings.
type Time struct {
	time.Time
}

// ImplementsGraphQLType maps the type onto the Time scalar.
func (Time) ImplementsGraphQLType(name string) bool { return name == "Time" }

// UnmarshalGraphQL decodes unix seconds or an RFC 3339 string.
func (t *Time) UnmarshalGraphQL(input interface{}) error {
	switch v := input.(type) {
	case int32:
		t.Time = time.Unix(int64(v), 0).UTC()
		return nil
	case int64:
		t.Time = time.Unix(v, 0).UTC()
		return nil
	case float64:
		t.Time = time.Unix(int64(v), 0).UTC()
		return nil
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return err
		}
		t.Time = parsed.UTC()
		return nil
	default:
		return fmt.Errorf("cannot decode %T as Time", input)
	}
}

// MarshalJSON renders the instant as unix seconds.
func (t Time) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, t.Unix(), 10), nil
}

// FieldElement is a field element rendered as 0x-prefixed minimal
// hex, the form every document id is stored under. Inputs accept any
// hex spelling and are canonicalized before they reach a filter.
type FieldElement string

// ImplementsGraphQLType maps the type onto the FieldElement scalar.
func (FieldElement) ImplementsGraphQLType(name string) bool { return name == "FieldElement" }

// UnmarshalGraphQL decodes and canonicalizes a hex string.
func (f *FieldElement) UnmarshalGraphQL(input interface{}) error {
	s, ok := input.(string)
	if !ok {
		return fmt.Errorf("cannot decode %T as FieldElement", input)
	}
	parsed, err := felt.Parse(s)
	if err != nil {
		return err
	}
	*f = FieldElement(parsed.Hex())
	return nil
}

// Long is a 64-bit integer; the built-in Int caps at 32 bits.
type Long int64

// ImplementsGraphQLType maps the type onto the Long scalar.
func (Long) ImplementsGraphQLType(name string) bool { return name == "Long" }

// UnmarshalGraphQL decodes numeric or string literals.
func (l *Long) UnmarshalGraphQL(input interface{}) error {
	switch v := input.(type) {
	case int32:
		*l = Long(v)
		return nil
	case int64:
		*l = Long(v)
		return nil
	case float64:
		*l = Long(int64(v))
		return nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*l = Long(n)
		return nil
	default:
		return fmt.Errorf("cannot decode %T as Long", input)
	}
}

// Map is a flat object of decimal values keyed by hex address. It only
// appears in output positions.
type Map map[string]Decimal

// ImplementsGraphQLType maps the type onto the Map scalar.
func (Map) ImplementsGraphQLType(name string) bool { return name == "Map" }

// UnmarshalGraphQL rejects input use.
func (m *Map) UnmarshalGraphQL(input interface{}) error {
	return fmt.Errorf("Map is an output-only scalar")
}

func toMap(vals map[string]decimal.Decimal) Map {
	m := make(Map, len(vals))
	for k, v := range vals {
		m[k] = Decimal{v}
	}
	return m
}
