package docmodel

import (
	"github.com/andreyvit/docmodel/update"
)

// RootModel is embedded by the top-level model of a document. It sits at the
// root path and has no Parent method.
type RootModel struct {
	objectCore
}

// Init declares the root's fields.
func (r *RootModel) Init(fields ...Field) {
	r.bind(nil, "")
	r.initFields(fields)
}

// ToUpdates collects the pending operations of the whole tree.
func (r *RootModel) ToUpdates() update.List {
	var ops update.List
	r.AppendUpdates(&ops)
	return ops
}

// Flush runs one emit, ship, reset cycle. The tree is reset only when ship
// succeeds, and nothing is shipped when the tree is clean. Callers must not
// mutate the tree concurrently.
func (r *RootModel) Flush(ship func(ops update.List) error) error {
	ops := r.ToUpdates()
	if len(ops) == 0 {
		r.Reset()
		return nil
	}
	if err := ship(ops); err != nil {
		return err
	}
	r.Reset()
	return nil
}
