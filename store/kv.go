package store

import (
	"context"

	"github.com/brain2labs/docstore/value"
)

// KV is the thin key-value facade spec.md §4.6 permits over a document or
// object-store backend ("a document-store-backed or object-store-backed KV
// adapter is permitted"). It encodes each (key, blob) pair as a one-field
// document `{blob: <bytes>}` under a fixed collection, the same way the
// teacher layers ports.Cache over its repository ports rather than giving
// caching its own storage engine.
type KV struct {
	ds         *DocumentStore
	collection string
}

// NewKV wraps ds, storing every key under collection.
func NewKV(ds *DocumentStore, collection string) *KV {
	return &KV{ds: ds, collection: collection}
}

const kvBlobField = "blob"

func (kv *KV) keyOf(k string) Key { return Key{PK: k, ID: k} }

// Put stores blob under key, replacing any existing value.
func (kv *KV) Put(ctx context.Context, key string, blob []byte) error {
	_, err := kv.ds.Execute(ctx, Operation{
		Verb:       VerbPut,
		Key:        ptr(kv.keyOf(key)),
		Value:      value.Map().Set(kvBlobField, value.Bytes(blob)).Build(),
		HasValue:   true,
		Collection: kv.collection,
	})
	return err
}

// Get returns the blob stored under key, or docerrors.NotFound.
func (kv *KV) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := kv.ds.Execute(ctx, Operation{
		Verb:       VerbGet,
		Key:        ptr(kv.keyOf(key)),
		Collection: kv.collection,
	})
	if err != nil {
		return nil, err
	}
	field, ok := resp.Item.Value.Field(kvBlobField)
	if !ok {
		return nil, nil
	}
	b, _ := field.BytesValue()
	return b, nil
}

// Delete removes key, succeeding even if it was already absent.
func (kv *KV) Delete(ctx context.Context, key string) error {
	_, err := kv.ds.Execute(ctx, Operation{
		Verb:       VerbDelete,
		Key:        ptr(kv.keyOf(key)),
		Collection: kv.collection,
	})
	return err
}

func ptr[T any](v T) *T { return &v }
