package docmodel

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Containers serialize to JSON and MessagePack through their plain form.
// Decoding behaves like LoadPlain and leaves the node clean.

func marshalJSON(n Node) ([]byte, error) {
	return json.Marshal(n.ToPlain())
}

func unmarshalJSON(n Node, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	n.LoadPlain(v)
	return nil
}

func encodeMsgpack(enc *msgpack.Encoder, n Node) error {
	return enc.Encode(n.ToPlain())
}

func decodeMsgpack(dec *msgpack.Decoder, n Node) error {
	v, err := dec.DecodeInterface()
	if err != nil {
		return err
	}
	n.LoadPlain(v)
	return nil
}

func (o *objectCore) MarshalJSON() ([]byte, error) { return marshalJSON(o) }
func (o *objectCore) UnmarshalJSON(data []byte) error { return unmarshalJSON(o, data) }
func (o *objectCore) EncodeMsgpack(enc *msgpack.Encoder) error { return encodeMsgpack(enc, o) }
func (o *objectCore) DecodeMsgpack(dec *msgpack.Decoder) error { return decodeMsgpack(dec, o) }
func (m *ScalarMap[K, V]) MarshalJSON() ([]byte, error) { return marshalJSON(m) }
func (m *ScalarMap[K, V]) UnmarshalJSON(data []byte) error { return unmarshalJSON(m, data) }
func (m *ScalarMap[K, V]) EncodeMsgpack(enc *msgpack.Encoder) error { return encodeMsgpack(enc, m) }
func (m *ScalarMap[K, V]) DecodeMsgpack(dec *msgpack.Decoder) error { return decodeMsgpack(dec, m) }
func (m *ModelMap[K, V]) MarshalJSON() ([]byte, error) { return marshalJSON(m) }
func (m *ModelMap[K, V]) UnmarshalJSON(data []byte) error { return unmarshalJSON(m, data) }
func (m *ModelMap[K, V]) EncodeMsgpack(enc *msgpack.Encoder) error { return encodeMsgpack(enc, m) }
func (m *ModelMap[K, V]) DecodeMsgpack(dec *msgpack.Decoder) error { return decodeMsgpack(dec, m) }
func (l *ListModel[E]) MarshalJSON() ([]byte, error) { return marshalJSON(l) }
func (l *ListModel[E]) UnmarshalJSON(data []byte) error { return unmarshalJSON(l, data) }
func (l *ListModel[E]) EncodeMsgpack(enc *msgpack.Encoder) error { return encodeMsgpack(enc, l) }
func (l *ListModel[E]) DecodeMsgpack(dec *msgpack.Decoder) error { return decodeMsgpack(dec, l) }

// Decode copies the plain form of n into out, matching fields by their bson
// struct tags.
func Decode(n Node, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "bson",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("docmodel: %w", err)
	}
	if err := dec.Decode(n.ToPlain()); err != nil {
		return fmt.Errorf("docmodel: decoding %v into %T: %w", n.Path(), out, err)
	}
	return nil
}
