package docmodel

import (
	"errors"

	"github.com/andreyvit/docmodel/dotpath"
	"github.com/andreyvit/docmodel/update"
)

// ErrRootHasNoParent is the panic value of ParentOf for a root node.
var ErrRootHasNoParent = errors.New("docmodel: root has no parent")

// Node is implemented by every tree node: objects, roots, maps and lists.
type Node interface {
	// ToBSON serializes the current state: bson.D, bson.A, a scalar or nil.
	ToBSON() any
	// ToPlain serializes into maps, slices and Go scalars.
	ToPlain() any
	// LoadBSON repopulates the subtree from a wire value and leaves it clean.
	// Malformed entries are logged and skipped.
	LoadBSON(src any)
	// LoadPlain is LoadBSON for values produced by ToPlain or a generic decoder.
	LoadPlain(src any)

	// AppendUpdates appends the pending set/unset operations of the subtree.
	AppendUpdates(ops *update.List) int
	// Reset marks the subtree clean.
	Reset()
	IsDirty() bool
	// DeletedSize is the number of pending deletions.
	DeletedSize() int

	Path() dotpath.Path

	// ToUpdate returns a plain snapshot of changed values, keyed by property name.
	ToUpdate() any
	// ToDelete returns a plain snapshot of removed keys, each mapped to 1.
	ToDelete() any
}

// Child is a node that lives under an owner.
type Child interface {
	Node
	Parent() Node
}

// ParentOf returns the owner of n. Panics with ErrRootHasNoParent when n is a root.
func ParentOf(n Node) Node {
	if c, ok := n.(Child); ok {
		return c.Parent()
	}
	panic(ErrRootHasNoParent)
}

// changeListener is implemented by containers that want to hear about
// mutations of their children.
type changeListener interface {
	childChanged()
}

// binding is a node's non-owning link to its owner.
type binding struct {
	parent   Node
	name     string
	onChange func()

	cached bool
	base   string
	path   dotpath.Path
}

func (b *binding) bind(parent Node, name string) {
	b.parent, b.name, b.cached = parent, name, false
}

func (b *binding) unbind() {
	b.parent, b.name, b.onChange, b.cached = nil, "", nil, false
}

// Path resolves the node's name against its owner's path. The result is
// cached until the owner's path changes.
func (b *binding) Path() dotpath.Path {
	if b.parent == nil {
		if b.name == "" {
			return dotpath.Root()
		}
		return dotpath.Of(b.name)
	}
	pp := b.parent.Path()
	if !b.cached || pp.Value() != b.base {
		b.path, b.base, b.cached = pp.Resolve(b.name), pp.Value(), true
	}
	return b.path
}

// Name is the node's field name or formatted key within its owner.
func (b *binding) Name() string {
	return b.name
}

func (b *binding) changed() {
	if b.onChange != nil {
		b.onChange()
		return
	}
	if l, ok := b.parent.(changeListener); ok {
		l.childChanged()
	}
}

type resetter interface {
	resetChildren()
	resetStates()
}

func resetNode(n resetter) {
	n.resetChildren()
	n.resetStates()
}

func isEmptySnapshot(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}
