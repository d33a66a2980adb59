package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andreyvit/docmodel/bsonutil"
	"github.com/andreyvit/docmodel/update"
	"github.com/vmihailenco/msgpack/v5"
)

type Encoding int

const (
	MsgPack Encoding = iota
	JSON

	defaultEventEncoding = MsgPack
)

func (enc Encoding) String() string {
	switch enc {
	case MsgPack:
		return "msgpack"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("encoding(%d)", int(enc))
	}
}

type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// ChangeEvent describes one committed write.
type ChangeEvent struct {
	Kind       EventKind `msgpack:"k" json:"kind"`
	Collection string    `msgpack:"c" json:"collection"`
	Key        string    `msgpack:"key" json:"key"`
	ModCount   uint64    `msgpack:"mc" json:"modCount"`
	Time       time.Time `msgpack:"t" json:"time"`

	// Ops are the applied operations of an update.
	Ops []EventOp `msgpack:"ops,omitempty" json:"ops,omitempty"`

	// Doc is the full plain document of an insert.
	Doc map[string]any `msgpack:"doc,omitempty" json:"doc,omitempty"`
}

type EventOp struct {
	Op    string `msgpack:"op" json:"op"`
	Path  string `msgpack:"p" json:"path"`
	Value any    `msgpack:"v,omitempty" json:"value,omitempty"`
}

func eventOps(ops update.List) []EventOp {
	out := make([]EventOp, len(ops))
	for i, op := range ops {
		out[i] = EventOp{
			Op:    op.Kind.String(),
			Path:  op.Path.Value(),
			Value: bsonutil.ToPlain(op.Value),
		}
	}
	return out
}

func EncodeEvent(enc Encoding, ev *ChangeEvent) ([]byte, error) {
	switch enc {
	case MsgPack:
		var buf bytes.Buffer
		e := msgpack.GetEncoder()
		e.Reset(&buf)
		e.SetSortMapKeys(true)
		err := e.Encode(ev)
		msgpack.PutEncoder(e)
		if err != nil {
			return nil, fmt.Errorf("store: failed to encode event using MsgPack: %w", err)
		}
		return buf.Bytes(), nil
	case JSON:
		raw, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("store: failed to encode event to JSON: %w", err)
		}
		return raw, nil
	default:
		panic("unsupported encoding")
	}
}

func DecodeEvent(enc Encoding, data []byte) (*ChangeEvent, error) {
	ev := new(ChangeEvent)
	switch enc {
	case MsgPack:
		dec := msgpack.GetDecoder()
		dec.Reset(bytes.NewReader(data))
		err := dec.Decode(ev)
		msgpack.PutDecoder(dec)
		if err != nil {
			return nil, dataErrf(data, 0, err, "failed to decode msgpack event")
		}
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(ev); err != nil {
			return nil, dataErrf(data, 0, err, "failed to decode JSON event")
		}
	default:
		panic("unsupported encoding")
	}
	return ev, nil
}
