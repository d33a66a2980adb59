// Package update holds ordered lists of path-addressed persistence operations
// and renders them as MongoDB update documents.
package update

import (
	"fmt"
	"strings"

	"github.com/andreyvit/docmodel/dotpath"
	"go.mongodb.org/mongo-driver/bson"
)

type Kind int

const (
	OpNone  Kind = 0
	OpSet   Kind = 1
	OpUnset Kind = 2
)

func (v Kind) String() string {
	switch v {
	case OpNone:
		return "none"
	case OpSet:
		return "set"
	case OpUnset:
		return "unset"
	default:
		return fmt.Sprintf("invalid op %d", int(v))
	}
}

// Op is a single "set value at path" or "unset at path" operation.
type Op struct {
	Kind  Kind
	Path  dotpath.Path
	Value any
}

func Set(path dotpath.Path, value any) Op {
	return Op{Kind: OpSet, Path: path, Value: value}
}

func Unset(path dotpath.Path) Op {
	return Op{Kind: OpUnset, Path: path}
}

func (op Op) String() string {
	if op.Kind == OpSet {
		return fmt.Sprintf("set %s=%v", op.Path.Value(), op.Value)
	}
	return fmt.Sprintf("%v %s", op.Kind, op.Path.Value())
}

// List is an ordered operation list. The zero value is ready to use.
type List []Op

func (l *List) Set(path dotpath.Path, value any) {
	*l = append(*l, Set(path, value))
}

func (l *List) Unset(path dotpath.Path) {
	*l = append(*l, Unset(path))
}

func (l *List) Append(ops ...Op) {
	*l = append(*l, ops...)
}

func (l List) Len() int {
	return len(l)
}

func (l List) IsEmpty() bool {
	return len(l) == 0
}

// Paths lists the target path of every operation, in order.
func (l List) Paths() []string {
	paths := make([]string, len(l))
	for i, op := range l {
		paths[i] = op.Path.Value()
	}
	return paths
}

func (l List) String() string {
	var buf strings.Builder
	buf.WriteByte('[')
	for i, op := range l {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(op.String())
	}
	buf.WriteByte(']')
	return buf.String()
}

// Document combines the list into a MongoDB update document with $set and
// $unset sections. A path written twice keeps its position and takes the
// later value. Returns nil for an empty list.
func (l List) Document() bson.D {
	var set, unset bson.D
	for _, op := range l {
		switch op.Kind {
		case OpSet:
			set = putElem(set, op.Path.Value(), op.Value)
		case OpUnset:
			unset = putElem(unset, op.Path.Value(), "")
		}
	}
	var doc bson.D
	if len(set) > 0 {
		doc = append(doc, bson.E{Key: "$set", Value: set})
	}
	if len(unset) > 0 {
		doc = append(doc, bson.E{Key: "$unset", Value: unset})
	}
	return doc
}

func putElem(doc bson.D, key string, value any) bson.D {
	for i := range doc {
		if doc[i].Key == key {
			doc[i].Value = value
			return doc
		}
	}
	return append(doc, bson.E{Key: key, Value: value})
}
