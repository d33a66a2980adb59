package update

import (
	"errors"
	"testing"

	"github.com/andreyvit/docmodel/dotpath"
	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"
)

func TestListBuilding(t *testing.T) {
	var ops List
	ops.Set(dotpath.Of("wt", "ct"), int64(10))
	ops.Unset(dotpath.Of("itm", "2001"))
	ops.Append(Set(dotpath.Of("cs", "cs"), bson.A{1, 2}))

	eq(t, ops.Len(), 3)
	eq(t, ops[0].Kind, OpSet)
	eq(t, ops[1].Kind, OpUnset)
	eq(t, ops[1].Value, nil)
	eq(t, ops.String(), "[set wt.ct=10, unset itm.2001, set cs.cs=[1 2]]")
	if diff := cmp.Diff([]string{"wt.ct", "itm.2001", "cs.cs"}, ops.Paths()); diff != "" {
		t.Errorf("** Paths mismatch (-want +got):\n%s", diff)
	}
}

func TestKindString(t *testing.T) {
	eq(t, OpSet.String(), "set")
	eq(t, OpUnset.String(), "unset")
	eq(t, OpNone.String(), "none")
	eq(t, Kind(9).String(), "invalid op 9")
}

func TestDocument(t *testing.T) {
	var ops List
	eq(t, len(ops.Document()), 0)

	ops.Set(dotpath.Of("a"), 1)
	ops.Unset(dotpath.Of("b", "c"))
	ops.Set(dotpath.Of("d"), "x")
	ops.Set(dotpath.Of("a"), 2)

	want := bson.D{
		{Key: "$set", Value: bson.D{{Key: "a", Value: 2}, {Key: "d", Value: "x"}}},
		{Key: "$unset", Value: bson.D{{Key: "b.c", Value: ""}}},
	}
	if diff := cmp.Diff(want, ops.Document()); diff != "" {
		t.Errorf("** Document mismatch (-want +got):\n%s", diff)
	}
}

func TestApply(t *testing.T) {
	doc := bson.D{
		{Key: "_id", Value: 1},
		{Key: "itm", Value: bson.D{{Key: "2001", Value: 5}, {Key: "2002", Value: 6}}},
		{Key: "cs", Value: bson.D{{Key: "ois", Value: bson.A{1}}}},
	}
	var ops List
	ops.Set(dotpath.Of("itm", "2002"), 7)
	ops.Unset(dotpath.Of("itm", "2001"))
	ops.Unset(dotpath.Of("cs", "ois"))
	ops.Set(dotpath.Of("eqm", "e1", "atk"), 10)
	ops.Unset(dotpath.Of("nope", "deeper"))

	got, err := Apply(doc, ops)
	if err != nil {
		t.Fatal(err)
	}
	want := bson.D{
		{Key: "_id", Value: 1},
		{Key: "itm", Value: bson.D{{Key: "2002", Value: 7}}},
		{Key: "cs", Value: bson.D{}},
		{Key: "eqm", Value: bson.D{{Key: "e1", Value: bson.D{{Key: "atk", Value: 10}}}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("** Apply mismatch (-want +got):\n%s", diff)
	}

	// the source document is left untouched
	eq(t, len(doc[1].Value.(bson.D)), 2)
}

func TestApplyThroughScalarFails(t *testing.T) {
	doc := bson.D{{Key: "a", Value: 5}}
	_, err := Apply(doc, List{Set(dotpath.Of("a", "b"), 1)})
	var pe *PathError
	eq(t, errors.As(err, &pe), true)
	eq(t, pe.Segment, "a")

	_, err = Apply(doc, List{Set(dotpath.Root(), 1)})
	eq(t, errors.As(err, &pe), true)
}

func eq[T comparable](t testing.TB, a, e T) {
	if a != e {
		t.Helper()
		t.Fatalf("** got %v, wanted %v", a, e)
	}
}
