package bsonutil

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPredicates(t *testing.T) {
	eq(t, IsNull(nil), true)
	eq(t, IsNull(primitive.Null{}), true)
	eq(t, IsNull(0), false)
	eq(t, IsDocument(bson.D{}), true)
	eq(t, IsDocument(map[string]any{}), true)
	eq(t, IsDocument(bson.A{}), false)
	eq(t, IsArray(bson.A{}), true)
	eq(t, IsArray([]any{}), true)
	eq(t, IsArray("x"), false)
}

func TestAsDocumentSortsMaps(t *testing.T) {
	doc, ok := AsDocument(bson.M{"b": 2, "a": 1})
	eq(t, ok, true)
	if diff := cmp.Diff(bson.D{{Key: "a", Value: 1}, {Key: "b", Value: 2}}, doc); diff != "" {
		t.Errorf("** AsDocument mismatch (-want +got):\n%s", diff)
	}
}

func TestEmbedded(t *testing.T) {
	doc := bson.D{
		{Key: "cs", Value: bson.D{
			{Key: "stg", Value: bson.D{{Key: "1", Value: int32(3)}}},
		}},
	}
	v, ok := Embedded(doc, "cs", "stg", "1")
	eq(t, ok, true)
	eq(t, v, any(int32(3)))

	_, ok = Embedded(doc, "cs", "nope", "1")
	eq(t, ok, false)
	_, ok = Embedded(doc, "cs", "stg", "1", "deeper")
	eq(t, ok, false)

	sub, ok := EmbeddedDocument(doc, "cs", "stg")
	eq(t, ok, true)
	eq(t, len(sub), 1)
}

func TestTypedAccessors(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	doc := bson.D{
		{Key: "i", Value: int32(5)},
		{Key: "l", Value: int64(1) << 40},
		{Key: "f", Value: 2.5},
		{Key: "s", Value: "hi"},
		{Key: "b", Value: true},
		{Key: "t", Value: primitive.NewDateTimeFromTime(now)},
		{Key: "d", Value: bson.D{}},
		{Key: "a", Value: bson.A{1}},
		{Key: "n", Value: nil},
	}
	eq(t, must(IntValue(doc, "i")), 5)
	eq(t, must(Int64Value(doc, "l")), int64(1)<<40)
	eq(t, must(Float64Value(doc, "i")), 5.0)
	eq(t, must(Float64Value(doc, "f")), 2.5)
	eq(t, must(StringValue(doc, "s")), "hi")
	eq(t, must(BoolValue(doc, "b")), true)
	eq(t, must(DateTimeValue(doc, "t")).Equal(now), true)
	eq(t, len(must(DocumentValue(doc, "d"))), 0)
	eq(t, len(must(ArrayValue(doc, "a"))), 1)

	_, err := IntValue(doc, "missing")
	eq(t, errors.Is(err, ErrNotFound), true)
	_, err = IntValue(doc, "n")
	eq(t, errors.Is(err, ErrNotFound), true)

	_, err = IntValue(doc, "s")
	var te *TypeError
	eq(t, errors.As(err, &te), true)
	eq(t, te.Key, "s")

	_, err = IntValue(doc, "f")
	eq(t, errors.As(err, &te), true)
	_, err = StringValue(doc, "i")
	eq(t, errors.As(err, &te), true)
}

func TestToInt64(t *testing.T) {
	type Level uint8
	eq(t, must(ToInt64(int32(-3))), int64(-3))
	eq(t, must(ToInt64(Level(7))), int64(7))
	eq(t, must(ToInt64(4.0)), int64(4))
	eq(t, must(ToInt64(json.Number("12"))), int64(12))
	_, err := ToInt64(4.5)
	eq(t, err != nil, true)
	_, err = ToInt64("4")
	eq(t, err != nil, true)
	_, err = ToInt64(float64(1 << 63))
	eq(t, err != nil, true)
	_, err = ToInt64(math.NaN())
	eq(t, err != nil, true)
	eq(t, must(ToInt64(float64(-1<<63))), int64(math.MinInt64))
	eq(t, must(ToFloat64(json.Number("1.5"))), 1.5)
	eq(t, must(ToFloat64(uint16(2))), 2.0)
}

func TestPlainRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	wire := bson.D{
		{Key: "a", Value: bson.A{int32(1), "x"}},
		{Key: "m", Value: bson.D{{Key: "t", Value: primitive.NewDateTimeFromTime(now)}}},
	}
	plain := ToPlain(wire)
	want := map[string]any{
		"a": []any{int32(1), "x"},
		"m": map[string]any{"t": now},
	}
	if diff := cmp.Diff(want, plain); diff != "" {
		t.Errorf("** ToPlain mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(any(wire), FromPlain(plain)); diff != "" {
		t.Errorf("** FromPlain mismatch (-want +got):\n%s", diff)
	}
}

func TestDateNumber(t *testing.T) {
	d := time.Date(2021, 3, 9, 15, 0, 0, 0, time.UTC)
	eq(t, DateNumber(d), int32(20210309))
	eq(t, must(DateFromNumber(20210309)), time.Date(2021, 3, 9, 0, 0, 0, 0, time.UTC))
	_, err := DateFromNumber(20210230)
	eq(t, err != nil, true)
	_, err = DateFromNumber(7)
	eq(t, err != nil, true)
}

func eq[T comparable](t testing.TB, a, e T) {
	if a != e {
		t.Helper()
		t.Fatalf("** got %v, wanted %v", a, e)
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
