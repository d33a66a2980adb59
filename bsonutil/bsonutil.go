// Package bsonutil inspects and converts values of the MongoDB driver's native
// BSON tree (bson.D, bson.A and scalars).
package bsonutil

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned by typed accessors when a key is absent.
var ErrNotFound = errors.New("key not found")

type TypeError struct {
	Key   string
	Want  string
	Value any
}

func typeErr(key, want string, v any) error {
	return &TypeError{key, want, v}
}

func (e *TypeError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("expected %s, got %T (%v)", e.Want, e.Value, e.Value)
	}
	return fmt.Sprintf("%s: expected %s, got %T (%v)", e.Key, e.Want, e.Value, e.Value)
}

// IsNull reports whether v is an absent or null wire value.
func IsNull(v any) bool {
	switch v.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return true
	default:
		return false
	}
}

func IsDocument(v any) bool {
	switch v.(type) {
	case bson.D, bson.M, map[string]any:
		return true
	default:
		return false
	}
}

func IsArray(v any) bool {
	switch v.(type) {
	case bson.A, []any:
		return true
	default:
		return false
	}
}

// AsDocument returns v as an ordered document. Unordered maps are converted
// with their keys sorted.
func AsDocument(v any) (bson.D, bool) {
	switch v := v.(type) {
	case bson.D:
		return v, true
	case bson.M:
		return sortedDoc(v), true
	case map[string]any:
		return sortedDoc(v), true
	default:
		return nil, false
	}
}

func sortedDoc(m map[string]any) bson.D {
	doc := make(bson.D, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		doc = append(doc, bson.E{Key: k, Value: m[k]})
	}
	return doc
}

func AsArray(v any) (bson.A, bool) {
	switch v := v.(type) {
	case bson.A:
		return v, true
	case []any:
		return bson.A(v), true
	default:
		return nil, false
	}
}

// Lookup finds the first element with the given key.
func Lookup(doc bson.D, key string) (any, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Entries iterates a document in its stored order. Non-documents yield nothing.
func Entries(v any) iter.Seq2[string, any] {
	doc, _ := AsDocument(v)
	return func(yield func(string, any) bool) {
		for _, e := range doc {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Embedded follows keys through nested documents.
func Embedded(doc bson.D, keys ...string) (any, bool) {
	var cur any = doc
	for _, k := range keys {
		d, ok := AsDocument(cur)
		if !ok {
			return nil, false
		}
		cur, ok = Lookup(d, k)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// EmbeddedDocument is Embedded that requires a document at the end of the chain.
func EmbeddedDocument(doc bson.D, keys ...string) (bson.D, bool) {
	v, ok := Embedded(doc, keys...)
	if !ok {
		return nil, false
	}
	return AsDocument(v)
}

func value(doc bson.D, key string) (any, error) {
	v, ok := Lookup(doc, key)
	if !ok || IsNull(v) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return v, nil
}

func IntValue(doc bson.D, key string) (int, error) {
	v, err := value(doc, key)
	if err != nil {
		return 0, err
	}
	n, err := ToInt64(v)
	if err != nil {
		return 0, typeErr(key, "number", v)
	}
	return int(n), nil
}

func Int64Value(doc bson.D, key string) (int64, error) {
	v, err := value(doc, key)
	if err != nil {
		return 0, err
	}
	n, err := ToInt64(v)
	if err != nil {
		return 0, typeErr(key, "number", v)
	}
	return n, nil
}

func Float64Value(doc bson.D, key string) (float64, error) {
	v, err := value(doc, key)
	if err != nil {
		return 0, err
	}
	f, err := ToFloat64(v)
	if err != nil {
		return 0, typeErr(key, "number", v)
	}
	return f, nil
}

func StringValue(doc bson.D, key string) (string, error) {
	v, err := value(doc, key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", typeErr(key, "string", v)
	}
	return s, nil
}

func BoolValue(doc bson.D, key string) (bool, error) {
	v, err := value(doc, key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, typeErr(key, "bool", v)
	}
	return b, nil
}

func DateTimeValue(doc bson.D, key string) (time.Time, error) {
	v, err := value(doc, key)
	if err != nil {
		return time.Time{}, err
	}
	switch v := v.(type) {
	case primitive.DateTime:
		return v.Time().UTC(), nil
	case time.Time:
		return v, nil
	default:
		return time.Time{}, typeErr(key, "datetime", v)
	}
}

func DocumentValue(doc bson.D, key string) (bson.D, error) {
	v, err := value(doc, key)
	if err != nil {
		return nil, err
	}
	d, ok := AsDocument(v)
	if !ok {
		return nil, typeErr(key, "document", v)
	}
	return d, nil
}

func ArrayValue(doc bson.D, key string) (bson.A, error) {
	v, err := value(doc, key)
	if err != nil {
		return nil, err
	}
	a, ok := AsArray(v)
	if !ok {
		return nil, typeErr(key, "array", v)
	}
	return a, nil
}
