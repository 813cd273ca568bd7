// Package store implements the bitemporal document store shared by the
// indexer, the contest workers and the GraphQL server.
//
// Documents move through the package as bson.M. Versioned collections
// carry a _chain subdocument {valid_from, valid_to}; the current
// version has a null valid_to. Typed models convert through ToDoc and
// FromDoc using a registry that maps decimal.Decimal to Decimal128.
package store

import (
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"swapscan/internal/models"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

var registry = newRegistry()

// Registry returns the BSON registry used for every Mongo connection
// in the module.
func Registry() *bsoncodec.Registry {
	return registry
}

func newRegistry() *bsoncodec.Registry {
	reg := bson.NewRegistry()
	reg.RegisterTypeEncoder(decimalType, bsoncodec.ValueEncoderFunc(encodeDecimal))
	reg.RegisterTypeDecoder(decimalType, bsoncodec.ValueDecoderFunc(decodeDecimal))
	return reg
}

func encodeDecimal(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != decimalType {
		return bsoncodec.ValueEncoderError{
			Name:     "DecimalEncodeValue",
			Types:    []reflect.Type{decimalType},
			Received: val,
		}
	}
	d := val.Interface().(decimal.Decimal)
	return vw.WriteDecimal128(models.D(d))
}

func decodeDecimal(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != decimalType {
		return bsoncodec.ValueDecoderError{
			Name:     "DecimalDecodeValue",
			Types:    []reflect.Type{decimalType},
			Received: val,
		}
	}

	var d decimal.Decimal
	switch vr.Type() {
	case bsontype.Decimal128:
		v, err := vr.ReadDecimal128()
		if err != nil {
			return err
		}
		d, err = decimal.NewFromString(v.String())
		if err != nil {
			return err
		}
	case bsontype.Int32:
		v, err := vr.ReadInt32()
		if err != nil {
			return err
		}
		d = decimal.NewFromInt32(v)
	case bsontype.Int64:
		v, err := vr.ReadInt64()
		if err != nil {
			return err
		}
		d = decimal.NewFromInt(v)
	case bsontype.Double:
		v, err := vr.ReadDouble()
		if err != nil {
			return err
		}
		d = decimal.NewFromFloat(v)
	case bsontype.Null:
		if err := vr.ReadNull(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cannot decode %v into decimal.Decimal", vr.Type())
	}

	val.Set(reflect.ValueOf(d))
	return nil
}

// ToDoc converts a typed model into its raw document form.
func ToDoc(v interface{}) (bson.M, error) {
	data, err := bson.MarshalWithRegistry(registry, v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc bson.M
	if err := bson.UnmarshalWithRegistry(registry, data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// FromDoc converts a raw document into a typed model.
func FromDoc(doc bson.M, out interface{}) error {
	data, err := bson.MarshalWithRegistry(registry, doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := bson.UnmarshalWithRegistry(registry, data, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
