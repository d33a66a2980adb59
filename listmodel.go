package docmodel

import (
	"slices"
	"strconv"

	"github.com/andreyvit/docmodel/bsonutil"
	"github.com/andreyvit/docmodel/update"
	"go.mongodb.org/mongo-driver/bson"
)

// ListModel is an array field written as a whole. A nil list is absent from
// the document; an empty list is stored as [].
type ListModel[E any] struct {
	binding
	vt     ValueType[E]
	values []E
	dirty  bool
}

func NewListModel[E any](parent Node, name string, vt ValueType[E]) *ListModel[E] {
	l := &ListModel[E]{vt: vt}
	l.bind(parent, name)
	return l
}

func (l *ListModel[E]) Parent() Node {
	return l.parent
}

// Values returns a copy of the current list, or nil when absent.
func (l *ListModel[E]) Values() []E {
	return slices.Clone(l.values)
}

func (l *ListModel[E]) IsNil() bool {
	return l.values == nil
}

func (l *ListModel[E]) Len() int {
	return len(l.values)
}

func (l *ListModel[E]) At(i int) E {
	return l.values[i]
}

// SetValues replaces the list unless it is element-wise equal to the current
// one. Reports whether anything changed.
func (l *ListModel[E]) SetValues(values []E) bool {
	if l.equal(values) {
		return false
	}
	l.values = slices.Clone(values)
	l.dirty = true
	l.changed()
	return true
}

// Append adds elements to the end of the list.
func (l *ListModel[E]) Append(values ...E) {
	next := make([]E, 0, len(l.values)+len(values))
	next = append(append(next, l.values...), values...)
	l.SetValues(next)
}

// Clear makes the list absent.
func (l *ListModel[E]) Clear() {
	l.values = nil
	l.dirty = true
	l.changed()
}

func (l *ListModel[E]) equal(values []E) bool {
	if (l.values == nil) != (values == nil) {
		return false
	}
	return slices.EqualFunc(l.values, values, l.vt.Equal)
}

func (l *ListModel[E]) AppendUpdates(ops *update.List) int {
	if !l.dirty {
		return 0
	}
	if l.values == nil {
		ops.Unset(l.Path())
	} else {
		ops.Set(l.Path(), l.ToBSON())
	}
	return 1
}

func (l *ListModel[E]) IsDirty() bool {
	return l.dirty
}

func (l *ListModel[E]) DeletedSize() int {
	if l.dirty && l.values == nil {
		return 1
	}
	return 0
}

func (l *ListModel[E]) Reset() {
	resetNode(l)
}

func (l *ListModel[E]) resetChildren() {}

func (l *ListModel[E]) resetStates() {
	l.dirty = false
}

func (l *ListModel[E]) ToBSON() any {
	if l.values == nil {
		return nil
	}
	arr := make(bson.A, len(l.values))
	for i, v := range l.values {
		arr[i] = l.vt.ToBSON(v)
	}
	return arr
}

func (l *ListModel[E]) ToPlain() any {
	if l.values == nil {
		return nil
	}
	arr := make([]any, len(l.values))
	for i, v := range l.values {
		arr[i] = l.vt.ToStorage(v)
	}
	return arr
}

func (l *ListModel[E]) ToUpdate() any {
	if !l.dirty || l.values == nil {
		return nil
	}
	return l.ToPlain()
}

func (l *ListModel[E]) ToDelete() any {
	if l.DeletedSize() == 0 {
		return nil
	}
	return 1
}

func (l *ListModel[E]) LoadBSON(src any) {
	l.load(src, l.vt.Parse)
}

func (l *ListModel[E]) LoadPlain(src any) {
	l.load(src, l.vt.Cast)
}

func (l *ListModel[E]) load(src any, conv func(any) (E, error)) {
	l.values, l.dirty = nil, false
	if bsonutil.IsNull(src) {
		return
	}
	arr, ok := bsonutil.AsArray(src)
	if !ok {
		warnSkipped(l.Path().Value(), src, errNotArray)
		return
	}
	l.values = make([]E, 0, len(arr))
	for i, e := range arr {
		v, err := conv(e)
		if err != nil {
			warnSkipped(joinPath(l.Path().Value(), strconv.Itoa(i)), e, err)
			continue
		}
		l.values = append(l.values, v)
	}
}
