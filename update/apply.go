package update

import (
	"fmt"

	"github.com/andreyvit/docmodel/bsonutil"
	"go.mongodb.org/mongo-driver/bson"
)

type PathError struct {
	Op      Op
	Segment string
	Msg     string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%v: at %q: %s", e.Op, e.Segment, e.Msg)
}

// Apply evaluates ops against doc in order, the way a document store applies
// $set and $unset with dot-notation paths. Missing intermediate documents are
// created by sets and ignored by unsets. The input document is not modified.
func Apply(doc bson.D, ops List) (bson.D, error) {
	doc = cloneDoc(doc)
	for _, op := range ops {
		segs := op.Path.Segments()
		if len(segs) == 0 {
			return nil, &PathError{op, "", "root path is not addressable"}
		}
		var err error
		switch op.Kind {
		case OpSet:
			doc, err = setPath(doc, segs, op, op.Value)
		case OpUnset:
			doc, err = unsetPath(doc, segs, op)
		default:
			err = &PathError{op, segs[0], "unsupported operation"}
		}
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func setPath(doc bson.D, segs []string, op Op, value any) (bson.D, error) {
	key := segs[0]
	if len(segs) == 1 {
		return putElem(doc, key, value), nil
	}
	idx := indexOf(doc, key)
	var sub bson.D
	if idx >= 0 && !bsonutil.IsNull(doc[idx].Value) {
		var ok bool
		sub, ok = bsonutil.AsDocument(doc[idx].Value)
		if !ok {
			return nil, &PathError{op, key, fmt.Sprintf("cannot create field in %T", doc[idx].Value)}
		}
	}
	sub, err := setPath(sub, segs[1:], op, value)
	if err != nil {
		return nil, err
	}
	return putElem(doc, key, sub), nil
}

func unsetPath(doc bson.D, segs []string, op Op) (bson.D, error) {
	key := segs[0]
	idx := indexOf(doc, key)
	if idx < 0 {
		return doc, nil
	}
	if len(segs) == 1 {
		return append(doc[:idx], doc[idx+1:]...), nil
	}
	sub, ok := bsonutil.AsDocument(doc[idx].Value)
	if !ok {
		return doc, nil
	}
	sub, err := unsetPath(sub, segs[1:], op)
	if err != nil {
		return nil, err
	}
	doc[idx].Value = sub
	return doc, nil
}

func indexOf(doc bson.D, key string) int {
	for i, e := range doc {
		if e.Key == key {
			return i
		}
	}
	return -1
}

func cloneDoc(doc bson.D) bson.D {
	out := make(bson.D, len(doc))
	for i, e := range doc {
		if sub, ok := e.Value.(bson.D); ok {
			e.Value = cloneDoc(sub)
		}
		out[i] = e
	}
	return out
}
