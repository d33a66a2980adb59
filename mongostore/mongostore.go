// Package mongostore ships docmodel update lists to MongoDB collections.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/andreyvit/docmodel"
	"github.com/andreyvit/docmodel/update"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotMatched is returned when an update's filter matches no document.
var ErrNotMatched = errors.New("mongostore: no document matched")

// Root is a flushable document model.
type Root interface {
	docmodel.Node
	Flush(ship func(ops update.List) error) error
}

// Updater is the subset of *mongo.Collection used by Flush.
type Updater interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// BulkWriter is the subset of *mongo.Collection used by FlushAll.
type BulkWriter interface {
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
}

// Finder is the subset of *mongo.Collection used by Load.
type Finder interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
}

// Flush sends the pending changes of root as a single $set/$unset update and
// resets root on success. Clean documents are not sent.
func Flush(ctx context.Context, coll Updater, filter any, root Root) error {
	return root.Flush(func(ops update.List) error {
		res, err := coll.UpdateOne(ctx, filter, ops.Document())
		if err != nil {
			return fmt.Errorf("mongostore: update %v: %w", filter, err)
		}
		if res != nil && res.MatchedCount == 0 {
			return fmt.Errorf("%w: %v", ErrNotMatched, filter)
		}
		return nil
	})
}

// WriteModel returns an update model for root's pending changes, or nil if
// it has none. The caller resets root after the write succeeds.
func WriteModel(filter any, root docmodel.Node) mongo.WriteModel {
	ops := rootOps(root)
	if ops.IsEmpty() {
		return nil
	}
	return mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(ops.Document())
}

// Entry pairs a document with the filter that selects it.
type Entry struct {
	Filter any
	Root   Root
}

// FlushAll writes the changes of all entries as one ordered bulk write and
// resets every flushed document on success.
func FlushAll(ctx context.Context, coll BulkWriter, entries []Entry) error {
	var models []mongo.WriteModel
	var flushed []Root
	for _, e := range entries {
		if m := WriteModel(e.Filter, e.Root); m != nil {
			models = append(models, m)
			flushed = append(flushed, e.Root)
		}
	}
	if len(models) == 0 {
		return nil
	}
	_, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("mongostore: bulk write of %d updates: %w", len(models), err)
	}
	for _, r := range flushed {
		r.Reset()
	}
	return nil
}

// Load finds one document and loads it into root, which ends up clean.
// Returns mongo.ErrNoDocuments if nothing matches.
func Load(ctx context.Context, coll Finder, filter any, root docmodel.Node) error {
	var doc bson.D
	err := coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		return err
	}
	root.LoadBSON(doc)
	return nil
}

func rootOps(n docmodel.Node) update.List {
	var ops update.List
	n.AppendUpdates(&ops)
	return ops
}
