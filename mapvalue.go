package docmodel

import (
	"github.com/andreyvit/docmodel/update"
)

// MapValue is a model stored under a key of a ModelMap. Embed MapValueModel
// to implement it.
type MapValue[K comparable] interface {
	Child
	Key() K

	attach(owner Node, key K, name string, onChange func())
	detach()
	owner() Node
}

// MapValueModel is embedded by fixed-shape models that live in a ModelMap.
type MapValueModel[K comparable] struct {
	objectCore
	key        K
	fullUpdate bool
}

// Init declares the model's fields. The owner and key are assigned when the
// value is put into a map.
func (m *MapValueModel[K]) Init(fields ...Field) {
	m.initFields(fields)
}

func (m *MapValueModel[K]) Parent() Node {
	return m.parent
}

// Key is the key of the value in its map, or the zero key when detached.
func (m *MapValueModel[K]) Key() K {
	return m.key
}

// SetFullUpdate makes the next flush write the whole value at its path
// instead of individual fields.
func (m *MapValueModel[K]) SetFullUpdate(full bool) {
	m.fullUpdate = full
	if full {
		m.changed()
	}
}

func (m *MapValueModel[K]) IsFullUpdate() bool {
	return m.fullUpdate
}

func (m *MapValueModel[K]) IsDirty() bool {
	return m.fullUpdate || m.objectCore.IsDirty()
}

func (m *MapValueModel[K]) AppendUpdates(ops *update.List) int {
	if m.fullUpdate {
		ops.Set(m.Path(), m.ToBSON())
		return 1
	}
	return m.objectCore.AppendUpdates(ops)
}

func (m *MapValueModel[K]) ToUpdate() any {
	if m.fullUpdate {
		return m.data()
	}
	return m.objectCore.ToUpdate()
}

func (m *MapValueModel[K]) Reset() {
	m.objectCore.Reset()
	m.fullUpdate = false
}

func (m *MapValueModel[K]) LoadBSON(src any) {
	m.objectCore.LoadBSON(src)
	m.fullUpdate = false
}

func (m *MapValueModel[K]) LoadPlain(src any) {
	m.objectCore.LoadPlain(src)
	m.fullUpdate = false
}

func (m *MapValueModel[K]) attach(owner Node, key K, name string, onChange func()) {
	m.bind(owner, name)
	m.key = key
	m.onChange = onChange
}

func (m *MapValueModel[K]) detach() {
	var zero K
	m.key = zero
	m.unbind()
}

func (m *MapValueModel[K]) owner() Node {
	return m.parent
}
