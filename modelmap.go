package docmodel

import (
	"fmt"
	"reflect"

	"github.com/andreyvit/docmodel/bsonutil"
	"github.com/andreyvit/docmodel/update"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.mongodb.org/mongo-driver/bson"
)

// ModelMap is a dynamically keyed sub-document whose values are models.
// Values are attached to the map while stored in it, and a change inside a
// value marks its key as updated.
type ModelMap[K comparable, V MapValue[K]] struct {
	mapModel[K, V]
	newValue func() V
}

// NewModelMap creates a map. newValue constructs empty values during loads.
func NewModelMap[K comparable, V MapValue[K]](parent Node, name string, keys KeyCodec[K], newValue func() V) *ModelMap[K, V] {
	m := &ModelMap[K, V]{newValue: newValue}
	m.init(parent, name, keys)
	return m
}

// Put stores v at k and returns the previous value, which is detached.
// A nil v removes k. Putting the value already stored at k is a no-op.
// Panics if v is attached elsewhere or if k is not a valid field name.
func (m *ModelMap[K, V]) Put(k K, v V) (V, bool) {
	m.checkKey(k)
	if isNilValue(v) {
		return m.Remove(k)
	}
	old, ok := m.entries.Get(k)
	if ok && any(old) == any(v) {
		return old, true
	}
	if v.owner() != nil {
		panic(fmt.Errorf("docmodel: value is already attached at %v", v.Path()))
	}
	if ok {
		old.detach()
	}
	m.entries.Set(k, v)
	m.attach(k, v)
	m.markUpdated(k)
	m.changed()
	return old, ok
}

func (m *ModelMap[K, V]) attach(k K, v V) {
	v.attach(m, k, m.checkKey(k), func() {
		m.markUpdated(k)
		m.changed()
	})
}

func (m *ModelMap[K, V]) Remove(k K) (V, bool) {
	old, ok := m.entries.Delete(k)
	if !ok {
		return old, false
	}
	old.detach()
	m.markRemoved(k)
	m.changed()
	return old, true
}

// RemoveValue removes k only if it currently holds v itself.
func (m *ModelMap[K, V]) RemoveValue(k K, v V) bool {
	old, ok := m.entries.Get(k)
	if !ok || any(old) != any(v) {
		return false
	}
	m.Remove(k)
	return true
}

// Clear detaches and removes every value.
func (m *ModelMap[K, V]) Clear() *ModelMap[K, V] {
	if m.entries.Len() == 0 {
		return m
	}
	for p := m.entries.Oldest(); p != nil; p = p.Next() {
		p.Value.detach()
		m.markRemoved(p.Key)
	}
	m.entries = orderedmap.New[K, V]()
	m.changed()
	return m
}

// AppendUpdates lets every updated value append its own operations, then
// unsets removed keys. Returns the number of updated and removed keys.
func (m *ModelMap[K, V]) AppendUpdates(ops *update.List) int {
	for p := m.updated.Oldest(); p != nil; p = p.Next() {
		v, _ := m.entries.Get(p.Key)
		v.AppendUpdates(ops)
	}
	path := m.Path()
	for p := m.removed.Oldest(); p != nil; p = p.Next() {
		ops.Unset(path.Resolve(m.format(p.Key)))
	}
	return m.updated.Len() + m.removed.Len()
}

func (m *ModelMap[K, V]) Reset() {
	resetNode(m)
}

// resetChildren resets exactly the values whose keys are marked updated.
func (m *ModelMap[K, V]) resetChildren() {
	for p := m.updated.Oldest(); p != nil; p = p.Next() {
		v, _ := m.entries.Get(p.Key)
		v.Reset()
	}
}

func (m *ModelMap[K, V]) ToBSON() any {
	doc := make(bson.D, 0, m.entries.Len())
	for p := m.entries.Oldest(); p != nil; p = p.Next() {
		doc = append(doc, bson.E{Key: m.format(p.Key), Value: p.Value.ToBSON()})
	}
	return doc
}

func (m *ModelMap[K, V]) ToPlain() any {
	out := make(map[string]any, m.entries.Len())
	for p := m.entries.Oldest(); p != nil; p = p.Next() {
		out[m.format(p.Key)] = p.Value.ToPlain()
	}
	return out
}

func (m *ModelMap[K, V]) ToUpdate() any {
	upd := make(map[string]any, m.updated.Len())
	for p := m.updated.Oldest(); p != nil; p = p.Next() {
		v, _ := m.entries.Get(p.Key)
		upd[m.format(p.Key)] = v.ToUpdate()
	}
	return upd
}

// ToDelete maps removed keys to 1 and updated values with deletions of their
// own to their delete snapshots.
func (m *ModelMap[K, V]) ToDelete() any {
	del := m.mapModel.ToDelete().(map[string]any)
	for p := m.updated.Oldest(); p != nil; p = p.Next() {
		v, _ := m.entries.Get(p.Key)
		if v.DeletedSize() > 0 {
			if d := v.ToDelete(); !isEmptySnapshot(d) {
				del[m.format(p.Key)] = d
			}
		}
	}
	return del
}

func (m *ModelMap[K, V]) LoadBSON(src any) {
	m.load(src, false)
}

func (m *ModelMap[K, V]) LoadPlain(src any) {
	m.load(src, true)
}

// load replaces all values. Entries that are not documents are skipped.
func (m *ModelMap[K, V]) load(src any, plain bool) {
	for p := m.entries.Oldest(); p != nil; p = p.Next() {
		p.Value.detach()
	}
	m.entries = orderedmap.New[K, V]()
	m.resetStates()

	base := m.Path().Value()
	doc, ok := bsonutil.AsDocument(src)
	if !ok {
		if !bsonutil.IsNull(src) {
			warnSkipped(base, src, errNotDocument)
		}
		return
	}
	for _, e := range doc {
		if !bsonutil.IsDocument(e.Value) {
			debugSkipped(joinPath(base, e.Key), e.Value, "not a document")
			continue
		}
		k, err := m.parseKey(e.Key)
		if err != nil {
			warnSkipped(joinPath(base, e.Key), e.Value, err)
			continue
		}
		v := m.newValue()
		m.attach(k, v)
		if plain {
			v.LoadPlain(e.Value)
		} else {
			v.LoadBSON(e.Value)
		}
		if old, ok := m.entries.Get(k); ok {
			old.detach()
		}
		m.entries.Set(k, v)
	}
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
