package bsonutil

import (
	"encoding/json"
	"math"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ToInt64 converts any Go or BSON number to int64. Floats must be integral.
func ToInt64(v any) (int64, error) {
	switch v := v.(type) {
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return floatToInt64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, typeErr("", "number", v)
		}
		return floatToInt64(f)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, typeErr("", "int64", v)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return floatToInt64(rv.Float())
	default:
		return 0, typeErr("", "number", v)
	}
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= 1<<63 {
		return 0, typeErr("", "integral number", f)
	}
	return int64(f), nil
}

// ToFloat64 converts any Go or BSON number to float64.
func ToFloat64(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, typeErr("", "number", v)
		}
		return f, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	default:
		return 0, typeErr("", "number", v)
	}
}

// ToPlain converts a wire tree into maps, slices and Go scalars.
func ToPlain(v any) any {
	switch v := v.(type) {
	case bson.D:
		m := make(map[string]any, len(v))
		for _, e := range v {
			m[e.Key] = ToPlain(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[k] = ToPlain(e)
		}
		return m
	case bson.A:
		a := make([]any, len(v))
		for i, e := range v {
			a[i] = ToPlain(e)
		}
		return a
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.Null, primitive.Undefined:
		return nil
	default:
		return v
	}
}

// FromPlain is the inverse of ToPlain. Map keys come out sorted.
func FromPlain(v any) any {
	switch v := v.(type) {
	case map[string]any:
		doc := sortedDoc(v)
		for i := range doc {
			doc[i].Value = FromPlain(doc[i].Value)
		}
		return doc
	case []any:
		a := make(bson.A, len(v))
		for i, e := range v {
			a[i] = FromPlain(e)
		}
		return a
	case time.Time:
		return primitive.NewDateTimeFromTime(v)
	default:
		return v
	}
}

// DateNumber encodes the calendar date of t as yyyymmdd.
func DateNumber(t time.Time) int32 {
	y, m, d := t.Date()
	return int32(y*10000 + int(m)*100 + d)
}

// DateFromNumber decodes a yyyymmdd number into midnight UTC of that date.
func DateFromNumber(n int64) (time.Time, error) {
	y, m, d := int(n/10000), int(n/100%100), int(n%100)
	if n <= 0 || m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, typeErr("", "yyyymmdd date", n)
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, typeErr("", "yyyymmdd date", n)
	}
	return t, nil
}
