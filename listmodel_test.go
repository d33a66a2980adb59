package docmodel

import (
	"strings"
	"testing"

	"github.com/andreyvit/docmodel/dotpath"
	"github.com/andreyvit/docmodel/update"
	"go.mongodb.org/mongo-driver/bson"
)

func TestListModelSetValues(t *testing.T) {
	l := NewListModel(nil, "cs", Int)
	eq(t, l.IsNil(), true)
	eq(t, l.IsDirty(), false)

	eq(t, l.SetValues([]int{1, 2, 3}), true)
	eq(t, l.IsDirty(), true)
	ops, n := emit(l)
	eq(t, n, 1)
	deepEqual(t, ops, update.List{update.Set(dotpath.Of("cs"), bson.A{int32(1), int32(2), int32(3)})})
	deepEqual(t, l.ToUpdate(), []any{1, 2, 3})
	eq(t, l.ToDelete(), nil)
}

func TestListModelEqualAssignmentStaysClean(t *testing.T) {
	l := NewListModel(nil, "cs", Int)
	l.SetValues([]int{1, 2, 3})
	l.Reset()

	eq(t, l.SetValues([]int{1, 2, 3}), false)
	eq(t, l.IsDirty(), false)
	_, n := emit(l)
	eq(t, n, 0)

	eq(t, l.SetValues([]int{1, 2}), true)
	eq(t, l.IsDirty(), true)
}

func TestListModelNilDiffersFromEmpty(t *testing.T) {
	l := NewListModel(nil, "cs", Int)
	eq(t, l.SetValues(nil), false)
	eq(t, l.SetValues([]int{}), true)
	deepEqual(t, l.ToBSON(), bson.A{})
	l.Reset()
	eq(t, l.SetValues([]int{}), false)
}

func TestListModelClear(t *testing.T) {
	l := NewListModel(nil, "ois", Int)
	l.SetValues([]int{1})
	l.Reset()

	l.Clear()
	eq(t, l.IsNil(), true)
	eq(t, l.IsDirty(), true)
	eq(t, l.DeletedSize(), 1)
	eq(t, l.ToUpdate(), nil)
	eq(t, l.ToDelete(), any(1))
	ops, n := emit(l)
	eq(t, n, 1)
	deepEqual(t, ops, update.List{update.Unset(dotpath.Of("ois"))})

	l.Reset()
	eq(t, l.DeletedSize(), 0)
	eq(t, l.IsDirty(), false)

	l.Clear()
	eq(t, l.IsDirty(), true)
}

func TestListModelAppend(t *testing.T) {
	l := NewListModel(nil, "cs", String)
	l.Append("a")
	l.Append("b", "c")
	deepEqual(t, l.Values(), []string{"a", "b", "c"})
	eq(t, l.Len(), 3)
	eq(t, l.At(1), "b")

	vals := l.Values()
	vals[0] = "z"
	eq(t, l.At(0), "a")
}

func TestListModelTolerantLoad(t *testing.T) {
	logs := captureLog(t)
	l := NewListModel(nil, "cs", Int)
	l.SetValues([]int{7})

	l.LoadBSON(bson.A{int32(1), "x", int64(3)})
	deepEqual(t, l.Values(), []int{1, 3})
	eq(t, l.IsDirty(), false)
	eq(t, strings.Contains(logs.String(), "path=cs.1"), true)

	l.LoadBSON(nil)
	eq(t, l.IsNil(), true)

	l.LoadBSON(bson.D{})
	eq(t, l.IsNil(), true)
	eq(t, strings.Contains(logs.String(), "not an array"), true)

	l.LoadPlain([]any{1.0, 2.0})
	deepEqual(t, l.Values(), []int{1, 2})
}
