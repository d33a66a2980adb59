package docmodel

import (
	"errors"
	"math"
	"time"

	"github.com/andreyvit/docmodel/bsonutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValueType converts one scalar type between Go values, wire values and
// plain values. Implementations are stateless and shared.
type ValueType[V any] interface {
	Name() string
	// Parse converts a wire value. A wire null yields the zero value.
	Parse(wire any) (V, error)
	// ToBSON converts to a wire value; null values become nil.
	ToBSON(v V) any
	// Cast converts a loosely typed plain value, e.g. from JSON.
	Cast(src any) (V, error)
	// ToStorage is the value written by update operations and plain snapshots.
	ToStorage(v V) any
	IsNull(v V) bool
	Equal(a, b V) bool
}

// ValueFuncs defines a custom ValueType. Parse and ToBSON are required.
type ValueFuncs[V any] struct {
	Parse     func(wire any) (V, error)
	ToBSON    func(v V) any
	Cast      func(src any) (V, error)
	ToStorage func(v V) any
	IsNull    func(v V) bool
	Equal     func(a, b V) bool
}

// NewValueType builds a ValueType from funcs. Missing Cast accepts V itself
// and falls back to Parse, missing ToStorage is identity, missing Equal is ==.
func NewValueType[V comparable](name string, f ValueFuncs[V]) ValueType[V] {
	if f.Equal == nil {
		f.Equal = func(a, b V) bool { return a == b }
	}
	return newValueType(name, f)
}

func newValueType[V any](name string, f ValueFuncs[V]) *valueType[V] {
	if f.Parse == nil || f.ToBSON == nil || f.Equal == nil {
		panic("docmodel: value type " + name + " needs Parse, ToBSON and Equal")
	}
	return &valueType[V]{name, f}
}

type valueType[V any] struct {
	name string
	f    ValueFuncs[V]
}

func (vt *valueType[V]) Name() string { return vt.name }

func (vt *valueType[V]) Parse(wire any) (V, error) {
	var zero V
	if bsonutil.IsNull(wire) {
		return zero, nil
	}
	v, err := vt.f.Parse(wire)
	if err != nil {
		return zero, vt.wrap(wire, err)
	}
	return v, nil
}

func (vt *valueType[V]) ToBSON(v V) any {
	if vt.IsNull(v) {
		return nil
	}
	return vt.f.ToBSON(v)
}

func (vt *valueType[V]) Cast(src any) (V, error) {
	var zero V
	if src == nil {
		return zero, nil
	}
	var v V
	var err error
	if vt.f.Cast != nil {
		v, err = vt.f.Cast(src)
	} else if tv, ok := src.(V); ok {
		return tv, nil
	} else {
		v, err = vt.f.Parse(src)
	}
	if err != nil {
		return zero, vt.wrap(src, err)
	}
	return v, nil
}

func (vt *valueType[V]) ToStorage(v V) any {
	if vt.IsNull(v) {
		return nil
	}
	if vt.f.ToStorage != nil {
		return vt.f.ToStorage(v)
	}
	return v
}

func (vt *valueType[V]) IsNull(v V) bool {
	return vt.f.IsNull != nil && vt.f.IsNull(v)
}

func (vt *valueType[V]) Equal(a, b V) bool {
	return vt.f.Equal(a, b)
}

func (vt *valueType[V]) wrap(value any, err error) error {
	var ve *ValueError
	if errors.As(err, &ve) {
		return err
	}
	return valueErrf(vt.name, value, err, "cannot convert")
}

type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

type Float interface {
	~float32 | ~float64
}

// Int32Type is a ValueType for integers stored as BSON int32.
func Int32Type[T Integer](name string) ValueType[T] {
	return intType[T](name, math.MinInt32, math.MaxInt32, func(v T) any { return int32(v) })
}

// Int64Type is a ValueType for integers stored as BSON int64.
func Int64Type[T Integer](name string) ValueType[T] {
	return intType[T](name, math.MinInt64, math.MaxInt64, func(v T) any { return int64(v) })
}

func intType[T Integer](name string, lo, hi int64, toBSON func(T) any) ValueType[T] {
	conv := func(src any) (T, error) {
		n, err := bsonutil.ToInt64(src)
		if err != nil {
			return 0, err
		}
		if n < lo || n > hi || int64(T(n)) != n || (n < 0 && ^T(0) > 0) {
			return 0, valueErrf(name, src, nil, "out of range")
		}
		return T(n), nil
	}
	return NewValueType(name, ValueFuncs[T]{
		Parse: func(wire any) (T, error) {
			switch wire.(type) {
			case int32, int64, float64:
				return conv(wire)
			default:
				return 0, valueErrf(name, wire, nil, "not a number")
			}
		},
		ToBSON: toBSON,
		Cast:   conv,
	})
}

// FloatType is a ValueType for floats stored as BSON double.
func FloatType[T Float](name string) ValueType[T] {
	conv := func(src any) (T, error) {
		f, err := bsonutil.ToFloat64(src)
		return T(f), err
	}
	return NewValueType(name, ValueFuncs[T]{
		Parse: func(wire any) (T, error) {
			switch wire.(type) {
			case int32, int64, float64:
				return conv(wire)
			default:
				return 0, valueErrf(name, wire, nil, "not a number")
			}
		},
		ToBSON: func(v T) any { return float64(v) },
		Cast:   conv,
	})
}

var (
	Int     = Int32Type[int]("int")
	Int64   = Int64Type[int64]("int64")
	Float64 = FloatType[float64]("float64")

	String = NewValueType("string", ValueFuncs[string]{
		Parse: func(wire any) (string, error) {
			s, ok := wire.(string)
			if !ok {
				return "", valueErrf("string", wire, nil, "not a string")
			}
			return s, nil
		},
		ToBSON: func(v string) any { return v },
	})

	Bool = NewValueType("bool", ValueFuncs[bool]{
		Parse: func(wire any) (bool, error) {
			b, ok := wire.(bool)
			if !ok {
				return false, valueErrf("bool", wire, nil, "not a bool")
			}
			return b, nil
		},
		ToBSON: func(v bool) any { return v },
	})

	// DateTime maps time.Time to a BSON datetime. The zero time is null.
	DateTime ValueType[time.Time] = newValueType("datetime", ValueFuncs[time.Time]{
		Parse: func(wire any) (time.Time, error) {
			switch v := wire.(type) {
			case primitive.DateTime:
				return v.Time().UTC(), nil
			case time.Time:
				return v, nil
			default:
				return time.Time{}, valueErrf("datetime", wire, nil, "not a datetime")
			}
		},
		ToBSON: func(v time.Time) any { return primitive.NewDateTimeFromTime(v) },
		Cast: func(src any) (time.Time, error) {
			switch v := src.(type) {
			case time.Time:
				return v, nil
			case primitive.DateTime:
				return v.Time().UTC(), nil
			case string:
				return time.Parse(time.RFC3339Nano, v)
			}
			ms, err := bsonutil.ToInt64(src)
			if err != nil {
				return time.Time{}, err
			}
			return time.UnixMilli(ms).UTC(), nil
		},
		IsNull: time.Time.IsZero,
		// stored with millisecond precision
		Equal: func(a, b time.Time) bool {
			return primitive.NewDateTimeFromTime(a) == primitive.NewDateTimeFromTime(b)
		},
	})

	// Date maps the calendar date of a time.Time to a yyyymmdd int32. The zero
	// time is null.
	Date ValueType[time.Time] = newValueType("date", ValueFuncs[time.Time]{
		Parse: func(wire any) (time.Time, error) {
			switch wire.(type) {
			case int32, int64, float64:
				n, err := bsonutil.ToInt64(wire)
				if err != nil {
					return time.Time{}, err
				}
				return bsonutil.DateFromNumber(n)
			default:
				return time.Time{}, valueErrf("date", wire, nil, "not a number")
			}
		},
		ToBSON: func(v time.Time) any { return bsonutil.DateNumber(v) },
		Cast: func(src any) (time.Time, error) {
			switch v := src.(type) {
			case time.Time:
				return time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC), nil
			case string:
				return time.Parse(time.DateOnly, v)
			}
			n, err := bsonutil.ToInt64(src)
			if err != nil {
				return time.Time{}, err
			}
			return bsonutil.DateFromNumber(n)
		},
		ToStorage: func(v time.Time) any { return bsonutil.DateNumber(v) },
		IsNull:    time.Time.IsZero,
		Equal: func(a, b time.Time) bool {
			return a.IsZero() == b.IsZero() && bsonutil.DateNumber(a) == bsonutil.DateNumber(b)
		},
	})
)

// Nullable wraps vt into a pointer type where nil is null.
func Nullable[V any](vt ValueType[V]) ValueType[*V] {
	return newValueType("*"+vt.Name(), ValueFuncs[*V]{
		Parse: func(wire any) (*V, error) {
			v, err := vt.Parse(wire)
			if err != nil {
				return nil, err
			}
			return &v, nil
		},
		ToBSON: func(p *V) any { return vt.ToBSON(*p) },
		Cast: func(src any) (*V, error) {
			if p, ok := src.(*V); ok {
				return p, nil
			}
			v, err := vt.Cast(src)
			if err != nil {
				return nil, err
			}
			return &v, nil
		},
		ToStorage: func(p *V) any { return vt.ToStorage(*p) },
		IsNull:    func(p *V) bool { return p == nil },
		Equal: func(a, b *V) bool {
			if a == nil || b == nil {
				return a == b
			}
			return vt.Equal(*a, *b)
		},
	})
}
