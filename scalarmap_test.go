package docmodel

import (
	"fmt"
	"strings"
	"testing"

	"github.com/andreyvit/docmodel/dotpath"
	"github.com/andreyvit/docmodel/update"
	"go.mongodb.org/mongo-driver/bson"
)

func emit(n Node) (update.List, int) {
	var ops update.List
	c := n.AppendUpdates(&ops)
	return ops, c
}

func TestScalarMapPutGet(t *testing.T) {
	m := NewScalarMap(nil, "stg", StringKeys, Int)
	eq(t, m.IsDirty(), false)

	old, replaced := m.Put("a", 1)
	eq(t, old, 0)
	eq(t, replaced, false)
	eq(t, m.Value("a"), 1)
	eq(t, m.IsDirty(), true)
	eq(t, m.Len(), 1)
	eq(t, m.ContainsKey("a"), true)

	old, replaced = m.Put("a", 2)
	eq(t, old, 1)
	eq(t, replaced, true)
	v, ok := m.Get("a")
	eq(t, ok, true)
	eq(t, v, 2)
}

func TestScalarMapRemoveAfterPut(t *testing.T) {
	m := NewScalarMap(nil, "stg", StringKeys, Int)
	m.Put("a", 1)
	deepEqual(t, m.ToUpdate(), map[string]any{"a": 1})
	deepEqual(t, m.ToDelete(), map[string]any{})

	ops, n := emit(m)
	eq(t, n, 1)
	deepEqual(t, ops, update.List{update.Set(dotpath.Of("stg", "a"), 1)})

	m.Remove("a")
	deepEqual(t, m.ToDelete(), map[string]any{"a": 1})
	deepEqual(t, m.ToUpdate(), map[string]any{})
	ops, n = emit(m)
	eq(t, n, 1)
	deepEqual(t, ops, update.List{update.Unset(dotpath.Of("stg", "a"))})
}

func TestScalarMapReset(t *testing.T) {
	m := NewScalarMap(nil, "itm", IntKeys, Int)
	m.Put(1, 10)
	m.Put(2, 20)
	m.Remove(1)
	eq(t, m.IsDirty(), true)

	m.Reset()
	eq(t, m.IsDirty(), false)
	ops, n := emit(m)
	eq(t, n, 0)
	eq(t, len(ops), 0)
	eq(t, m.Value(2), 20)
}

func TestScalarMapKeySetsStayDisjoint(t *testing.T) {
	m := NewScalarMap(nil, "itm", IntKeys, Int)
	check := func() {
		t.Helper()
		removed := map[int]bool{}
		for _, k := range m.RemovedKeys() {
			removed[k] = true
		}
		for _, k := range m.UpdatedKeys() {
			if removed[k] {
				t.Fatalf("** key %d is both updated and removed", k)
			}
		}
	}

	m.Put(1, 1)
	check()
	m.Remove(1)
	check()
	deepEqual(t, m.UpdatedKeys(), []int{})
	deepEqual(t, m.RemovedKeys(), []int{1})

	m.Put(1, 2)
	check()
	deepEqual(t, m.UpdatedKeys(), []int{1})
	deepEqual(t, m.RemovedKeys(), []int{})

	m.Put(2, 2)
	m.Put(3, 3)
	m.Clear()
	check()
	m.Put(2, 5)
	check()
	deepEqual(t, m.UpdatedKeys(), []int{2})
	deepEqual(t, m.RemovedKeys(), []int{1, 3})
}

func TestScalarMapEmitCount(t *testing.T) {
	m := NewScalarMap(nil, "itm", IntKeys, Int)
	m.Put(1, 1)
	m.Put(2, 2)
	m.Put(3, 3)
	m.Reset()

	m.Put(4, 4)
	m.Put(1, 10)
	m.Remove(2)
	m.Remove(3)
	want := len(m.UpdatedKeys()) + len(m.RemovedKeys())

	ops, n := emit(m)
	eq(t, n, want)
	eq(t, n, 4)
	eq(t, strings.Join(ops.Paths(), " "), "itm.4 itm.1 itm.2 itm.3")
	eq(t, ops[1].Value, any(10))
	eq(t, ops[2].Kind, update.OpUnset)
}

func TestScalarMapPutEqualValueIsNoop(t *testing.T) {
	m := NewScalarMap(nil, "itm", IntKeys, Int)
	m.Put(1, 5)
	m.Reset()
	old, ok := m.Put(1, 5)
	eq(t, old, 5)
	eq(t, ok, true)
	eq(t, m.IsDirty(), false)
}

func TestScalarMapPutNullRemoves(t *testing.T) {
	m := NewScalarMap(nil, "opt", StringKeys, Nullable(String))
	s := "x"
	m.Put("k", &s)
	m.Reset()

	old, ok := m.Put("k", nil)
	eq(t, ok, true)
	eq(t, *old, "x")
	eq(t, m.ContainsKey("k"), false)
	deepEqual(t, m.RemovedKeys(), []string{"k"})
}

func TestScalarMapRemoveValue(t *testing.T) {
	m := NewScalarMap(nil, "itm", IntKeys, Int)
	m.Put(1, 5)
	eq(t, m.RemoveValue(1, 6), false)
	eq(t, m.ContainsKey(1), true)
	eq(t, m.RemoveValue(1, 5), true)
	eq(t, m.ContainsKey(1), false)
	eq(t, m.RemoveValue(7, 5), false)

	_, ok := m.Remove(42)
	eq(t, ok, false)
	deepEqual(t, m.RemovedKeys(), []int{1})
}

func TestScalarMapClearMarksCleanKeysRemoved(t *testing.T) {
	m := NewScalarMap(nil, "c", StringKeys, Int)
	m.Put("x", 1)
	m.Put("y", 2)
	m.Reset()

	eq(t, m.Clear(), m)
	eq(t, m.IsEmpty(), true)
	deepEqual(t, m.RemovedKeys(), []string{"x", "y"})
	deepEqual(t, m.UpdatedKeys(), []string{})

	ops, n := emit(m)
	eq(t, n, 2)
	deepEqual(t, ops, update.List{
		update.Unset(dotpath.Of("c", "x")),
		update.Unset(dotpath.Of("c", "y")),
	})
}

func TestScalarMapTolerantLoad(t *testing.T) {
	logs := captureLog(t)
	m := NewScalarMap(nil, "stg", IntKeys, Int)
	m.Put(9, 9)

	m.LoadBSON(bson.D{
		{Key: "1", Value: int32(3)},
		{Key: "2", Value: "three"},
		{Key: "x", Value: int32(4)},
		{Key: "5", Value: nil},
		{Key: "6", Value: int64(6)},
	})
	deepEqual(t, m.ToBSON(), bson.D{{Key: "1", Value: int32(3)}, {Key: "6", Value: int32(6)}})
	eq(t, m.IsDirty(), false)
	eq(t, m.ContainsKey(9), false)
	eq(t, strings.Contains(logs.String(), "path=stg.2"), true)
	eq(t, strings.Contains(logs.String(), "path=stg.x"), true)
	eq(t, strings.Contains(logs.String(), "level=WARN"), true)

	m.LoadBSON("garbage")
	eq(t, m.Len(), 0)
	m.LoadBSON(nil)
	eq(t, m.Len(), 0)
}

func TestScalarMapLoadPlain(t *testing.T) {
	m := NewScalarMap(nil, "tdm", IntKeys, Date)
	m.LoadPlain(map[string]any{"1": 20240102, "2": "2024-03-04", "3": true})
	eq(t, m.Len(), 2)
	eq(t, m.Value(1).Month().String(), "January")
	eq(t, m.Value(2).Day(), 4)
	deepEqual(t, m.ToPlain(), map[string]any{"1": int32(20240102), "2": int32(20240304)})
}

func TestScalarMapPath(t *testing.T) {
	m := NewScalarMap(nil, "", StringKeys, Int)
	eq(t, m.Path().IsRoot(), true)
	m.Put("a", 1)
	ops, _ := emit(m)
	eq(t, ops[0].Path.Value(), "a")
	eq(t, m.Parent(), Node(nil))
}

func TestScalarMapRejectsInvalidKeys(t *testing.T) {
	m := NewScalarMap(nil, "stg", StringKeys, Int)
	m.Put("a", 1)
	for _, k := range []string{"", "a.b", "$set"} {
		reason := mustPanic(t, func() { m.Put(k, 2) })
		eq(t, strings.Contains(fmt.Sprint(reason), "invalid key"), true)
		eq(t, m.ContainsKey(k), false)
	}
	deepEqual(t, m.UpdatedKeys(), []string{"a"})

	ops, n := emit(m)
	eq(t, n, 1)
	deepEqual(t, ops, update.List{update.Set(dotpath.Of("stg", "a"), 1)})
}

func TestScalarMapLoadSkipsInvalidKeys(t *testing.T) {
	logs := captureLog(t)
	m := NewScalarMap(nil, "stg", StringKeys, Int)
	m.LoadBSON(bson.D{
		{Key: "a", Value: int32(1)},
		{Key: "", Value: int32(2)},
		{Key: "b.c", Value: int32(3)},
		{Key: "$d", Value: int32(4)},
	})
	deepEqual(t, m.ToBSON(), bson.D{{Key: "a", Value: int32(1)}})
	eq(t, strings.Contains(logs.String(), "key contains '.'"), true)
	eq(t, strings.Contains(logs.String(), "key starts with '$'"), true)
}
