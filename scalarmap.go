package docmodel

import (
	"github.com/andreyvit/docmodel/bsonutil"
	"github.com/andreyvit/docmodel/update"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.mongodb.org/mongo-driver/bson"
)

// ScalarMap is a dynamically keyed sub-document of scalar values. Each
// updated key is written whole.
type ScalarMap[K comparable, V any] struct {
	mapModel[K, V]
	vt ValueType[V]
}

func NewScalarMap[K comparable, V any](parent Node, name string, keys KeyCodec[K], vt ValueType[V]) *ScalarMap[K, V] {
	m := &ScalarMap[K, V]{vt: vt}
	m.init(parent, name, keys)
	return m
}

// Put stores v at k and returns the previous value. Putting a null value
// removes k. Putting a value equal to the current one changes nothing.
// Panics if k does not format to a valid field name.
func (m *ScalarMap[K, V]) Put(k K, v V) (V, bool) {
	m.checkKey(k)
	if m.vt.IsNull(v) {
		return m.Remove(k)
	}
	old, ok := m.entries.Get(k)
	if ok && m.vt.Equal(old, v) {
		return old, true
	}
	m.entries.Set(k, v)
	m.markUpdated(k)
	m.changed()
	return old, ok
}

// PutAll puts every entry of src in insertion order.
func (m *ScalarMap[K, V]) PutAll(src *ScalarMap[K, V]) {
	src.ForEach(func(k K, v V) {
		m.Put(k, v)
	})
}

func (m *ScalarMap[K, V]) Remove(k K) (V, bool) {
	old, ok := m.entries.Delete(k)
	if !ok {
		return old, false
	}
	m.markRemoved(k)
	m.changed()
	return old, true
}

// RemoveValue removes k only if it currently holds a value equal to v.
func (m *ScalarMap[K, V]) RemoveValue(k K, v V) bool {
	old, ok := m.entries.Get(k)
	if !ok || !m.vt.Equal(old, v) {
		return false
	}
	m.Remove(k)
	return true
}

// Clear removes every present key, including keys that were clean.
func (m *ScalarMap[K, V]) Clear() *ScalarMap[K, V] {
	if m.entries.Len() == 0 {
		return m
	}
	for p := m.entries.Oldest(); p != nil; p = p.Next() {
		m.markRemoved(p.Key)
	}
	m.entries = orderedmap.New[K, V]()
	m.changed()
	return m
}

// AppendUpdates writes one set per updated key and one unset per removed key.
func (m *ScalarMap[K, V]) AppendUpdates(ops *update.List) int {
	path := m.Path()
	for p := m.updated.Oldest(); p != nil; p = p.Next() {
		v, _ := m.entries.Get(p.Key)
		ops.Set(path.Resolve(m.format(p.Key)), m.vt.ToStorage(v))
	}
	for p := m.removed.Oldest(); p != nil; p = p.Next() {
		ops.Unset(path.Resolve(m.format(p.Key)))
	}
	return m.updated.Len() + m.removed.Len()
}

func (m *ScalarMap[K, V]) Reset() {
	resetNode(m)
}

func (m *ScalarMap[K, V]) resetChildren() {}

func (m *ScalarMap[K, V]) ToBSON() any {
	doc := make(bson.D, 0, m.entries.Len())
	for p := m.entries.Oldest(); p != nil; p = p.Next() {
		doc = append(doc, bson.E{Key: m.format(p.Key), Value: m.vt.ToBSON(p.Value)})
	}
	return doc
}

func (m *ScalarMap[K, V]) ToPlain() any {
	out := make(map[string]any, m.entries.Len())
	for p := m.entries.Oldest(); p != nil; p = p.Next() {
		out[m.format(p.Key)] = m.vt.ToStorage(p.Value)
	}
	return out
}

func (m *ScalarMap[K, V]) ToUpdate() any {
	upd := make(map[string]any, m.updated.Len())
	for p := m.updated.Oldest(); p != nil; p = p.Next() {
		v, _ := m.entries.Get(p.Key)
		upd[m.format(p.Key)] = m.vt.ToStorage(v)
	}
	return upd
}

func (m *ScalarMap[K, V]) LoadBSON(src any) {
	m.load(src, m.vt.Parse)
}

func (m *ScalarMap[K, V]) LoadPlain(src any) {
	m.load(src, m.vt.Cast)
}

func (m *ScalarMap[K, V]) load(src any, conv func(any) (V, error)) {
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
		if bsonutil.IsNull(e.Value) {
			continue
		}
		k, err := m.parseKey(e.Key)
		if err != nil {
			warnSkipped(joinPath(base, e.Key), e.Value, err)
			continue
		}
		v, err := conv(e.Value)
		if err != nil {
			warnSkipped(joinPath(base, e.Key), e.Value, err)
			continue
		}
		if m.vt.IsNull(v) {
			continue
		}
		m.entries.Set(k, v)
	}
}
