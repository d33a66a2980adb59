package docmodel

import (
	"fmt"
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// mapModel is the shared core of keyed containers: an insertion-ordered
// mapping plus two disjoint insertion-ordered key sets.
type mapModel[K comparable, V any] struct {
	binding
	keys    KeyCodec[K]
	entries *orderedmap.OrderedMap[K, V]
	updated *orderedmap.OrderedMap[K, struct{}]
	removed *orderedmap.OrderedMap[K, struct{}]
}

func (m *mapModel[K, V]) init(parent Node, name string, keys KeyCodec[K]) {
	m.bind(parent, name)
	m.keys = keys
	m.entries = orderedmap.New[K, V]()
	m.updated = orderedmap.New[K, struct{}]()
	m.removed = orderedmap.New[K, struct{}]()
}

// Parent returns the owner node.
func (m *mapModel[K, V]) Parent() Node {
	return m.parent
}

func (m *mapModel[K, V]) markUpdated(k K) {
	m.removed.Delete(k)
	m.updated.Set(k, struct{}{})
}

func (m *mapModel[K, V]) markRemoved(k K) {
	m.updated.Delete(k)
	m.removed.Set(k, struct{}{})
}

// Get returns the value stored at k.
func (m *mapModel[K, V]) Get(k K) (V, bool) {
	return m.entries.Get(k)
}

// Value returns the value stored at k, or the zero value.
func (m *mapModel[K, V]) Value(k K) V {
	v, _ := m.entries.Get(k)
	return v
}

func (m *mapModel[K, V]) ContainsKey(k K) bool {
	_, ok := m.entries.Get(k)
	return ok
}

func (m *mapModel[K, V]) Len() int {
	return m.entries.Len()
}

func (m *mapModel[K, V]) IsEmpty() bool {
	return m.entries.Len() == 0
}

// All iterates entries in insertion order.
func (m *mapModel[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for p := m.entries.Oldest(); p != nil; p = p.Next() {
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}
}

func (m *mapModel[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for p := m.entries.Oldest(); p != nil; p = p.Next() {
			if !yield(p.Key) {
				return
			}
		}
	}
}

func (m *mapModel[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for p := m.entries.Oldest(); p != nil; p = p.Next() {
			if !yield(p.Value) {
				return
			}
		}
	}
}

func (m *mapModel[K, V]) ForEach(f func(k K, v V)) {
	for p := m.entries.Oldest(); p != nil; p = p.Next() {
		f(p.Key, p.Value)
	}
}

// UpdatedKeys lists keys whose values are pending a write, in the order they
// were first updated.
func (m *mapModel[K, V]) UpdatedKeys() []K {
	return keysOf(m.updated)
}

// RemovedKeys lists keys pending an unset.
func (m *mapModel[K, V]) RemovedKeys() []K {
	return keysOf(m.removed)
}

func keysOf[K comparable](set *orderedmap.OrderedMap[K, struct{}]) []K {
	keys := make([]K, 0, set.Len())
	for p := set.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

func (m *mapModel[K, V]) IsDirty() bool {
	return m.updated.Len() > 0 || m.DeletedSize() > 0
}

func (m *mapModel[K, V]) DeletedSize() int {
	return m.removed.Len()
}

func (m *mapModel[K, V]) resetStates() {
	m.updated = orderedmap.New[K, struct{}]()
	m.removed = orderedmap.New[K, struct{}]()
}

func (m *mapModel[K, V]) format(k K) string {
	return m.keys.Format(k)
}

// checkKey returns the field name of k, panicking if k cannot be stored.
func (m *mapModel[K, V]) checkKey(k K) string {
	name := m.keys.Format(k)
	if err := checkFieldName(name); err != nil {
		panic(fmt.Errorf("docmodel: invalid key %q in %v: %w", name, m.Path(), err))
	}
	return name
}

// parseKey parses a loaded field name, applying the same rules as checkKey.
func (m *mapModel[K, V]) parseKey(s string) (K, error) {
	k, err := m.keys.Parse(s)
	if err != nil {
		return k, err
	}
	if err := checkFieldName(m.keys.Format(k)); err != nil {
		var zero K
		return zero, err
	}
	return k, nil
}

// ToDelete maps every removed key to 1.
func (m *mapModel[K, V]) ToDelete() any {
	del := make(map[string]any, m.removed.Len())
	for p := m.removed.Oldest(); p != nil; p = p.Next() {
		del[m.format(p.Key)] = 1
	}
	return del
}
