package docmodel

import (
	"fmt"

	"github.com/andreyvit/docmodel/bsonutil"
	"github.com/andreyvit/docmodel/update"
	"go.mongodb.org/mongo-driver/bson"
)

// Field declares one named slot of a fixed-shape model: either a scalar bound
// to a Go variable, or a composite node.
type Field struct {
	name string
	prop string
	node Node

	toBSON    func() any
	toStorage func() any
	isNull    func() bool
	loadBSON  func(src any) error
	loadPlain func(src any) error
}

// ScalarField binds a field stored under name to *ptr. prop names the field
// in update and delete snapshots; empty means name.
func ScalarField[V any](name, prop string, ptr *V, vt ValueType[V]) Field {
	load := func(conv func(any) (V, error)) func(any) error {
		return func(src any) error {
			v, err := conv(src)
			*ptr = v
			return err
		}
	}
	return Field{
		name:      name,
		prop:      prop,
		toBSON:    func() any { return vt.ToBSON(*ptr) },
		toStorage: func() any { return vt.ToStorage(*ptr) },
		isNull:    func() bool { return vt.IsNull(*ptr) },
		loadBSON:  load(vt.Parse),
		loadPlain: load(vt.Cast),
	}
}

// NodeField declares a composite field whose dirty state is tracked by n.
func NodeField(name, prop string, n Node) Field {
	if n == nil {
		panic("docmodel: nil node for field " + name)
	}
	return Field{name: name, prop: prop, node: n}
}

func (f *Field) Name() string {
	return f.name
}

func (f *Field) Prop() string {
	if f.prop == "" {
		return f.name
	}
	return f.prop
}

func (f *Field) IsComposite() bool {
	return f.node != nil
}

// objectCore implements fixed-shape models. Scalar fields are tracked by
// one bit each, composite fields by their own nodes.
type objectCore struct {
	binding
	fields []Field
	dirty  FieldSet
}

func (o *objectCore) initFields(fields []Field) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.name] {
			panic(fmt.Errorf("docmodel: duplicate field %q", f.name))
		}
		seen[f.name] = true
	}
	o.fields = fields
	o.dirty = nil
}

// MarkField marks scalar field i as changed.
func (o *objectCore) MarkField(i int) {
	if o.fields[i].node != nil {
		panic(fmt.Errorf("docmodel: field %q is composite", o.fields[i].name))
	}
	o.dirty.Set(i)
	o.changed()
}

// FieldChanged reports whether scalar field i is pending a write.
func (o *objectCore) FieldChanged(i int) bool {
	return o.dirty.Has(i)
}

func (o *objectCore) Fields() []Field {
	return o.fields
}

func (o *objectCore) childChanged() {
	o.changed()
}

func (o *objectCore) ToBSON() any {
	doc := make(bson.D, 0, len(o.fields))
	for _, f := range o.fields {
		var v any
		if f.node != nil {
			v = f.node.ToBSON()
		} else {
			v = f.toBSON()
		}
		if v != nil {
			doc = append(doc, bson.E{Key: f.name, Value: v})
		}
	}
	return doc
}

func (o *objectCore) ToPlain() any {
	out := make(map[string]any, len(o.fields))
	for _, f := range o.fields {
		var v any
		if f.node != nil {
			v = f.node.ToPlain()
		} else {
			v = f.toStorage()
		}
		if v != nil {
			out[f.name] = v
		}
	}
	return out
}

func (o *objectCore) LoadBSON(src any) {
	o.load(src, false)
}

func (o *objectCore) LoadPlain(src any) {
	o.load(src, true)
}

func (o *objectCore) load(src any, plain bool) {
	doc, ok := bsonutil.AsDocument(src)
	if !ok && !bsonutil.IsNull(src) {
		warnSkipped(o.Path().Value(), src, errNotDocument)
	}
	for _, f := range o.fields {
		v, _ := bsonutil.Lookup(doc, f.name)
		if f.node != nil {
			if plain {
				f.node.LoadPlain(v)
			} else {
				f.node.LoadBSON(v)
			}
			continue
		}
		var err error
		if plain {
			err = f.loadPlain(v)
		} else {
			err = f.loadBSON(v)
		}
		if err != nil {
			warnSkipped(joinPath(o.Path().Value(), f.name), v, err)
		}
	}
	o.dirty.Clear()
}

func (o *objectCore) AppendUpdates(ops *update.List) int {
	path := o.Path()
	n := 0
	for i, f := range o.fields {
		if f.node != nil {
			if f.node.IsDirty() {
				n += f.node.AppendUpdates(ops)
			}
		} else if o.dirty.Has(i) {
			if f.isNull() {
				ops.Unset(path.Resolve(f.name))
			} else {
				ops.Set(path.Resolve(f.name), f.toStorage())
			}
			n++
		}
	}
	return n
}

func (o *objectCore) IsDirty() bool {
	if !o.dirty.IsEmpty() {
		return true
	}
	for _, f := range o.fields {
		if f.node != nil && f.node.IsDirty() {
			return true
		}
	}
	return false
}

// DeletedSize counts changed scalar fields that became null plus the
// deletions pending in composite fields.
func (o *objectCore) DeletedSize() int {
	n := 0
	for i, f := range o.fields {
		if f.node != nil {
			n += f.node.DeletedSize()
		} else if o.dirty.Has(i) && f.isNull() {
			n++
		}
	}
	return n
}

func (o *objectCore) Reset() {
	resetNode(o)
}

func (o *objectCore) resetChildren() {
	for _, f := range o.fields {
		if f.node != nil {
			f.node.Reset()
		}
	}
}

func (o *objectCore) resetStates() {
	o.dirty.Clear()
}

func (o *objectCore) ToUpdate() any {
	upd := make(map[string]any)
	for i, f := range o.fields {
		if f.node != nil {
			if f.node.IsDirty() {
				if u := f.node.ToUpdate(); !isEmptySnapshot(u) {
					upd[f.Prop()] = u
				}
			}
		} else if o.dirty.Has(i) && !f.isNull() {
			upd[f.Prop()] = f.toStorage()
		}
	}
	return upd
}

func (o *objectCore) ToDelete() any {
	del := make(map[string]any)
	for i, f := range o.fields {
		if f.node != nil {
			if f.node.DeletedSize() > 0 {
				if d := f.node.ToDelete(); !isEmptySnapshot(d) {
					del[f.Prop()] = d
				}
			}
		} else if o.dirty.Has(i) && f.isNull() {
			del[f.Prop()] = 1
		}
	}
	return del
}

// data is a full snapshot keyed by property names.
func (o *objectCore) data() map[string]any {
	out := make(map[string]any, len(o.fields))
	for _, f := range o.fields {
		var v any
		if f.node != nil {
			v = f.node.ToPlain()
		} else {
			v = f.toStorage()
		}
		if v != nil {
			out[f.Prop()] = v
		}
	}
	return out
}

type fieldMarker interface {
	MarkField(i int)
}

// Set assigns v to *ptr and marks field i of m when the value changes.
func Set[V comparable](m fieldMarker, i int, ptr *V, v V) bool {
	if *ptr == v {
		return false
	}
	*ptr = v
	m.MarkField(i)
	return true
}

// SetValue is Set for values compared by vt.
func SetValue[V any](m fieldMarker, i int, ptr *V, v V, vt ValueType[V]) bool {
	if vt.Equal(*ptr, v) {
		return false
	}
	*ptr = v
	m.MarkField(i)
	return true
}

// ObjectModel is embedded by fixed-shape models nested inside another model.
type ObjectModel struct {
	objectCore
}

// Init names the model within parent and declares its fields. Field indices
// passed to MarkField follow declaration order.
func (o *ObjectModel) Init(parent Node, name string, fields ...Field) {
	o.bind(parent, name)
	o.initFields(fields)
}

func (o *ObjectModel) Parent() Node {
	return o.parent
}
