package store

import (
	"errors"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func mustMarshal(t testing.TB, doc bson.D) []byte {
	t.Helper()
	data, err := bson.Marshal(doc)
	ok(t, err)
	return data
}

func TestValueRoundTrip(t *testing.T) {
	data := mustMarshal(t, bson.D{{Key: "a", Value: int32(1)}})
	raw := encodeValue(42, data)

	var vle value
	ok(t, vle.decode(raw))
	eq(t, vle.Flags.ver(), vfVer1)
	eq(t, vle.ModCount, uint64(42))
	eq(t, string(vle.Data), string(data))
	eq(t, vle.Meta(), Meta{ModCount: 42, Size: len(data)})

	doc, meta, err := decodeDoc(raw)
	ok(t, err)
	eq(t, meta.ModCount, uint64(42))
	deepEqual(t, doc, bson.D{{Key: "a", Value: int32(1)}})
}

func TestValueCorruption(t *testing.T) {
	data := mustMarshal(t, bson.D{{Key: "a", Value: "hello"}})
	raw := encodeValue(1, data)

	tests := []struct {
		name string
		raw  []byte
		msg  string
	}{
		{"short", raw[:4], "at least"},
		{"flags", append([]byte{0x40}, raw[1:]...), "unsupported flags"},
		{"truncated", raw[:len(raw)-1], "expected"},
		{"flipped", append(raw[:len(raw)-2:len(raw)-2], raw[len(raw)-2]^0xFF, raw[len(raw)-1]), "checksum"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var vle value
			err := vle.decode(tt.raw)
			var de *DataError
			if !errors.As(err, &de) {
				t.Fatalf("** got %v, wanted *DataError", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("** error %q does not mention %q", err, tt.msg)
			}
		})
	}

	var vle value
	ok(t, vle.decode(raw))
}

func TestDataError(t *testing.T) {
	inner := errors.New("inner")
	err := dataErrf([]byte{0xAA, 0xBB}, 1, inner, "oops")
	if !errors.Is(err, inner) {
		t.Fatalf("** errors.Is(err, inner) = false")
	}
	eq(t, err.Error(), "oops: inner: (2) aabb")

	long := make([]byte, 200)
	s := dataErrf(long, 0, nil, "oops").Error()
	if !strings.Contains(s, "(200)") || !strings.Contains(s, "...") {
		t.Errorf("** got %q, wanted (200) and ...", s)
	}
}
