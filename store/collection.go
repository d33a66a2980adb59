package store

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/andreyvit/docmodel"
	"github.com/andreyvit/docmodel/bsonutil"
	"github.com/andreyvit/docmodel/update"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/multierr"
)

// Root is a document model that can be flushed; *docmodel.RootModel
// embedders satisfy it.
type Root interface {
	docmodel.Node
	Flush(ship func(ops update.List) error) error
}

// Collection is a set of documents keyed by string. It is a lightweight
// handle; all state lives in the store.
type Collection struct {
	store *Store
	name  string
}

func (c *Collection) Name() string {
	return c.name
}

// Insert stores the full document under key and resets its change state.
// Fails with ErrExists if key is taken.
func (c *Collection) Insert(key string, doc Root) error {
	if key == "" {
		return docErr(c.name, key, fmt.Errorf("empty key"))
	}
	d, ok := bsonutil.AsDocument(doc.ToBSON())
	if !ok {
		return docErr(c.name, key, fmt.Errorf("%T is not a document", doc.ToBSON()))
	}
	data, err := bson.Marshal(d)
	if err != nil {
		return docErr(c.name, key, err)
	}
	c.store.commitLock.Lock()
	defer c.store.commitLock.Unlock()
	err = c.store.write(func(tx storageTx) error {
		b, err := tx.CreateBucket(c.name)
		if err != nil {
			return err
		}
		if b.Get([]byte(key)) != nil {
			return ErrExists
		}
		return b.Put([]byte(key), encodeValue(1, data))
	})
	if err != nil {
		return docErr(c.name, key, err)
	}
	doc.Reset()
	plain, _ := bsonutil.ToPlain(d).(map[string]any)
	c.store.publish(&ChangeEvent{
		Kind:       EventInsert,
		Collection: c.name,
		Key:        key,
		ModCount:   1,
		Time:       time.Now(),
		Doc:        plain,
	})
	return nil
}

// Get returns the stored document as BSON.
func (c *Collection) Get(key string) (bson.D, Meta, error) {
	var doc bson.D
	var meta Meta
	err := c.store.read(func(tx storageTx) error {
		raw := c.get(tx, key)
		if raw == nil {
			return ErrNotFound
		}
		var err error
		doc, meta, err = decodeDoc(raw)
		return err
	})
	if err != nil {
		return nil, Meta{}, docErr(c.name, key, err)
	}
	return doc, meta, nil
}

// Load replaces the contents of doc with the stored document. Malformed
// fields are skipped the way docmodel loads always do; doc ends up clean.
func (c *Collection) Load(key string, doc docmodel.Node) (Meta, error) {
	d, meta, err := c.Get(key)
	if err != nil {
		return Meta{}, err
	}
	doc.LoadBSON(d)
	return meta, nil
}

// Flush applies the pending operations of doc to the stored copy, bumps the
// mod count and resets doc. A clean doc is a no-op. On failure doc keeps its
// pending changes.
func (c *Collection) Flush(key string, doc Root) error {
	var applied update.List
	var modCount uint64
	c.store.commitLock.Lock()
	defer c.store.commitLock.Unlock()
	err := doc.Flush(func(ops update.List) error {
		return c.store.write(func(tx storageTx) error {
			raw := c.get(tx, key)
			if raw == nil {
				return ErrNotFound
			}
			cur, meta, err := decodeDoc(raw)
			if err != nil {
				return err
			}
			next, err := update.Apply(cur, ops)
			if err != nil {
				return err
			}
			data, err := bson.Marshal(next)
			if err != nil {
				return err
			}
			modCount = meta.ModCount + 1
			applied = ops
			return tx.Bucket(c.name).Put([]byte(key), encodeValue(modCount, data))
		})
	})
	if err != nil {
		return docErr(c.name, key, err)
	}
	if applied == nil {
		return nil
	}
	c.store.publish(&ChangeEvent{
		Kind:       EventUpdate,
		Collection: c.name,
		Key:        key,
		ModCount:   modCount,
		Time:       time.Now(),
		Ops:        eventOps(applied),
	})
	return nil
}

// FlushAll flushes every document in key order and reports all failures.
func (c *Collection) FlushAll(docs map[string]Root) error {
	var err error
	for _, key := range slices.Sorted(maps.Keys(docs)) {
		err = multierr.Append(err, c.Flush(key, docs[key]))
	}
	return err
}

func (c *Collection) Delete(key string) error {
	var modCount uint64
	c.store.commitLock.Lock()
	defer c.store.commitLock.Unlock()
	err := c.store.write(func(tx storageTx) error {
		raw := c.get(tx, key)
		if raw == nil {
			return ErrNotFound
		}
		var vle value
		if err := vle.decode(raw); err == nil {
			modCount = vle.ModCount
		}
		return tx.Bucket(c.name).Delete([]byte(key))
	})
	if err != nil {
		return docErr(c.name, key, err)
	}
	c.store.publish(&ChangeEvent{
		Kind:       EventDelete,
		Collection: c.name,
		Key:        key,
		ModCount:   modCount,
		Time:       time.Now(),
	})
	return nil
}

// Keys lists stored keys in byte order.
func (c *Collection) Keys() ([]string, error) {
	var keys []string
	err := c.store.read(func(tx storageTx) error {
		b := tx.Bucket(c.name)
		if b == nil {
			return nil
		}
		cur := b.Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

func (c *Collection) Count() (int, error) {
	var n int
	err := c.store.read(func(tx storageTx) error {
		if b := tx.Bucket(c.name); b != nil {
			n = b.KeyCount()
		}
		return nil
	})
	return n, err
}

func (c *Collection) get(tx storageTx, key string) []byte {
	b := tx.Bucket(c.name)
	if b == nil {
		return nil
	}
	return b.Get([]byte(key))
}
