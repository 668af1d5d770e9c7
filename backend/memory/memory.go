// Package memory is the reference backend (C11): an in-process map guarded
// by a RWMutex, evaluating WHERE/SET directly through the eval package. It
// is the semantics every other adapter must match observably (spec.md
// §4.3), grounded on the teacher's InMemoryOperationStore
// (infrastructure/persistence/memory/operation_store.go) map-plus-mutex
// layering, generalized from a TTL cache to a full document store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/brain2labs/docstore/docerrors"
	"github.com/brain2labs/docstore/eval"
	"github.com/brain2labs/docstore/lang"
	"github.com/brain2labs/docstore/store"
	"github.com/brain2labs/docstore/value"
)

type record struct {
	value value.Value
	etag  string
}

// Backend is the in-memory store.Adapter.
type Backend struct {
	mu          sync.RWMutex
	collections map[string]map[string]*record // collection -> "pk\x00id" -> record
}

// New returns an empty in-memory backend.
func New() *Backend {
	return &Backend{collections: make(map[string]map[string]*record)}
}

func (b *Backend) Name() string { return "memory" }

func (b *Backend) Supports(f store.Feature) bool {
	return store.CapabilityTable["memory"].Has(f)
}

func recKey(k store.Key) string { return k.PK + "\x00" + k.ID }

// withEtag exposes a record's current etag as a synthetic "etag" field so
// $etag in a WHERE clause (spec.md §4.2's system-path family) resolves
// against the value actually stored, not the document body alone.
func withEtag(doc value.Value, etag string) value.Value {
	return doc.WithField("etag", value.String(etag))
}

func (b *Backend) coll(name string, create bool) map[string]*record {
	c, ok := b.collections[name]
	if !ok && create {
		c = make(map[string]*record)
		b.collections[name] = c
	}
	return c
}

func (b *Backend) CreateCollection(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.collections[name]; ok {
		return docerrors.NewConflict("COLLECTION_EXISTS", "collection "+name+" already exists")
	}
	b.collections[name] = make(map[string]*record)
	return nil
}

func (b *Backend) DropCollection(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.collections, name)
	return nil
}

func (b *Backend) ListCollections(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.collections))
	for n := range b.collections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (b *Backend) HasCollection(ctx context.Context, name string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.collections[name]
	return ok, nil
}

// Indexes are a no-op bookkeeping layer: every query scans the collection,
// since spec.md's index operations govern planning hints other backends
// need but the reference evaluator does not.
func (b *Backend) CreateIndex(ctx context.Context, collection string, idx store.IndexSpec) error {
	return nil
}
func (b *Backend) DropIndex(ctx context.Context, collection, name string) error { return nil }
func (b *Backend) ListIndexes(ctx context.Context, collection string) ([]store.IndexSpec, error) {
	return nil, nil
}

func (b *Backend) Get(ctx context.Context, bs store.BoundStatement) (*store.Item, error) {
	if bs.Key == nil {
		return nil, docerrors.NewBadRequest("MISSING_KEY", "get requires KEY(pk, id)")
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	c := b.coll(bs.Collection, false)
	rec, ok := c[recKey(*bs.Key)]
	if !ok {
		return nil, docerrors.NewNotFound("NOT_FOUND", "no document for key")
	}
	doc := rec.value
	if bs.Stmt != nil && bs.Stmt.Select != nil {
		var err error
		doc, err = project(doc, bs.Stmt.Select)
		if err != nil {
			return nil, err
		}
	}
	return &store.Item{Key: *bs.Key, Value: doc, HasValue: true, Etag: rec.etag, HasEtag: true, Collection: bs.Collection}, nil
}

func (b *Backend) Put(ctx context.Context, bs store.BoundStatement) (*store.Item, error) {
	if bs.Key == nil {
		return nil, docerrors.NewBadRequest("MISSING_KEY", "put requires KEY(pk, id)")
	}
	if !bs.HasValue {
		return nil, docerrors.NewBadRequest("MISSING_VALUE", "put requires VALUE(...)")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.coll(bs.Collection, true)
	k := recKey(*bs.Key)
	if bs.Stmt != nil && bs.Stmt.Where != nil {
		existing, ok := c[k]
		var doc value.Value
		if ok {
			doc = withEtag(existing.value, existing.etag)
		}
		hold, err := eval.EvalWhere(bs.Stmt.Where, doc)
		if err != nil {
			return nil, docerrors.Wrap(err, "put", "")
		}
		if !hold {
			return nil, docerrors.NewPreconditionFailed("PRECONDITION_FAILED", "WHERE clause did not hold")
		}
	}
	rec := &record{value: bs.Value, etag: uuid.NewString()}
	c[k] = rec

	item := &store.Item{Key: *bs.Key, Etag: rec.etag, HasEtag: true, Collection: bs.Collection}
	if bs.Returning == store.ReturningNew || bs.Returning == "" {
		item.Value = rec.value
		item.HasValue = true
	}
	return item, nil
}

func (b *Backend) Update(ctx context.Context, bs store.BoundStatement) (*store.Item, error) {
	if bs.Key == nil {
		return nil, docerrors.NewBadRequest("MISSING_KEY", "update requires KEY(pk, id)")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.coll(bs.Collection, true)
	k := recKey(*bs.Key)
	rec, ok := c[k]
	if !ok {
		return nil, docerrors.NewNotFound("NOT_FOUND", "no document for key")
	}
	if bs.Stmt != nil && bs.Stmt.Where != nil {
		hold, err := eval.EvalWhere(bs.Stmt.Where, withEtag(rec.value, rec.etag))
		if err != nil {
			return nil, docerrors.Wrap(err, "update", "")
		}
		if !hold {
			return nil, docerrors.NewPreconditionFailed("PRECONDITION_FAILED", "WHERE clause did not hold")
		}
	}
	old := rec.value
	next := old
	if bs.Stmt != nil && len(bs.Stmt.Assignments) > 0 {
		var err error
		next, err = eval.ApplySet(bs.Stmt.Assignments, old)
		if err != nil {
			return nil, docerrors.Wrap(err, "update", "")
		}
	}
	rec.value = next
	rec.etag = uuid.NewString()

	item := &store.Item{Key: *bs.Key, Etag: rec.etag, HasEtag: true, Collection: bs.Collection}
	switch bs.Returning {
	case store.ReturningOld:
		item.Value, item.HasValue = old, true
	case store.ReturningNew:
		item.Value, item.HasValue = next, true
	}
	return item, nil
}

func (b *Backend) Delete(ctx context.Context, bs store.BoundStatement) error {
	if bs.Key == nil {
		return docerrors.NewBadRequest("MISSING_KEY", "delete requires KEY(pk, id)")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.coll(bs.Collection, false)
	k := recKey(*bs.Key)
	rec, ok := c[k]
	if !ok {
		return nil // delete of an absent key is a no-op, not an error
	}
	if bs.Stmt != nil && bs.Stmt.Where != nil {
		hold, err := eval.EvalWhere(bs.Stmt.Where, withEtag(rec.value, rec.etag))
		if err != nil {
			return docerrors.Wrap(err, "delete", "")
		}
		if !hold {
			return docerrors.NewPreconditionFailed("PRECONDITION_FAILED", "WHERE clause did not hold")
		}
	}
	delete(c, k)
	return nil
}

func (b *Backend) Query(ctx context.Context, bs store.BoundStatement) ([]store.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c := b.coll(bs.Collection, false)

	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var items []store.Item
	for _, k := range keys {
		rec := c[k]
		if bs.Stmt != nil && bs.Stmt.Where != nil {
			hold, err := eval.EvalWhere(bs.Stmt.Where, withEtag(rec.value, rec.etag))
			if err != nil {
				return nil, docerrors.Wrap(err, "query", "")
			}
			if !hold {
				continue
			}
		}
		doc := rec.value
		if bs.Stmt != nil && bs.Stmt.Select != nil {
			var err error
			doc, err = project(doc, bs.Stmt.Select)
			if err != nil {
				return nil, err
			}
		}
		pk, id := splitRecKey(k)
		items = append(items, store.Item{
			Key: store.Key{PK: pk, ID: id}, Value: doc, HasValue: true,
			Etag: rec.etag, HasEtag: true, Collection: bs.Collection,
		})
	}

	if bs.Stmt != nil && bs.Stmt.OrderBy != nil {
		sortItems(items, bs.Stmt.OrderBy)
	}
	if bs.Stmt != nil && bs.Stmt.Offset != nil && *bs.Stmt.Offset < len(items) {
		items = items[*bs.Stmt.Offset:]
	} else if bs.Stmt != nil && bs.Stmt.Offset != nil {
		items = nil
	}
	if bs.Stmt != nil && bs.Stmt.Limit != nil && *bs.Stmt.Limit < len(items) {
		items = items[:*bs.Stmt.Limit]
	}
	return items, nil
}

func (b *Backend) Count(ctx context.Context, bs store.BoundStatement) (int64, error) {
	items, err := b.Query(ctx, bs)
	if err != nil {
		return 0, err
	}
	return int64(len(items)), nil
}

// Batch applies each operation independently: one slot's failure does not
// affect the others (spec.md §4.2).
func (b *Backend) Batch(ctx context.Context, collection string, ops []store.BoundStatement) ([]store.OperationResult, error) {
	results := make([]store.OperationResult, len(ops))
	for i, op := range ops {
		results[i] = b.applyOne(ctx, op)
	}
	return results, nil
}

// Transact applies every operation's WHERE against the pre-commit state and
// only commits if all hold; otherwise nothing is written (spec.md §4.2).
func (b *Backend) Transact(ctx context.Context, collection string, ops []store.BoundStatement) ([]store.OperationResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var causes []*docerrors.Error
	for _, op := range ops {
		if op.Stmt == nil || op.Key == nil {
			continue
		}
		if op.Stmt.Verb != lang.VerbUpdate && op.Stmt.Where == nil {
			continue
		}
		c := b.coll(op.Collection, false)
		rec, ok := c[recKey(*op.Key)]
		if op.Stmt.Verb == lang.VerbUpdate && !ok {
			causes = append(causes, docerrors.NewNotFound("NOT_FOUND", "no document for key").WithOp(string(op.Stmt.Verb)))
			continue
		}
		if op.Stmt.Where == nil {
			continue
		}
		var doc value.Value
		if ok {
			doc = withEtag(rec.value, rec.etag)
		}
		hold, err := eval.EvalWhere(op.Stmt.Where, doc)
		if err != nil {
			causes = append(causes, docerrors.Wrap(err, "transact", "").WithOp(string(op.Stmt.Verb)))
			continue
		}
		if !hold {
			causes = append(causes, docerrors.NewPreconditionFailed("PRECONDITION_FAILED", "WHERE clause did not hold").WithOp(string(op.Stmt.Verb)))
		}
	}
	if len(causes) > 0 {
		return nil, docerrors.Abort(causes)
	}

	results := make([]store.OperationResult, len(ops))
	for i, op := range ops {
		results[i] = b.applyOneLocked(op)
	}
	return results, nil
}

func (b *Backend) applyOne(ctx context.Context, op store.BoundStatement) store.OperationResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applyOneLocked(op)
}

func (b *Backend) applyOneLocked(op store.BoundStatement) store.OperationResult {
	if op.Stmt == nil || op.Key == nil {
		return store.OperationResult{OK: false, Err: docerrors.NewBadRequest("MISSING_KEY", "batch/transact item requires a key")}
	}
	c := b.coll(op.Collection, true)
	k := recKey(*op.Key)

	switch op.Stmt.Verb {
	case lang.VerbPut:
		existing, ok := c[k]
		if op.Stmt.Where != nil {
			var doc value.Value
			if ok {
				doc = withEtag(existing.value, existing.etag)
			}
			hold, err := eval.EvalWhere(op.Stmt.Where, doc)
			if err != nil {
				return store.OperationResult{OK: false, Err: docerrors.Wrap(err, "put", "")}
			}
			if !hold {
				return store.OperationResult{OK: false, Err: docerrors.NewPreconditionFailed("PRECONDITION_FAILED", "WHERE clause did not hold")}
			}
		}
		rec := &record{value: op.Value, etag: uuid.NewString()}
		c[k] = rec
		return store.OperationResult{OK: true, Item: &store.Item{Key: *op.Key, Value: rec.value, HasValue: true, Etag: rec.etag, HasEtag: true}}
	case lang.VerbUpdate:
		rec, ok := c[k]
		if !ok {
			return store.OperationResult{OK: false, Err: docerrors.NewNotFound("NOT_FOUND", "no document for key")}
		}
		if op.Stmt.Where != nil {
			hold, err := eval.EvalWhere(op.Stmt.Where, withEtag(rec.value, rec.etag))
			if err != nil {
				return store.OperationResult{OK: false, Err: docerrors.Wrap(err, "update", "")}
			}
			if !hold {
				return store.OperationResult{OK: false, Err: docerrors.NewPreconditionFailed("PRECONDITION_FAILED", "WHERE clause did not hold")}
			}
		}
		next, err := eval.ApplySet(op.Stmt.Assignments, rec.value)
		if err != nil {
			return store.OperationResult{OK: false, Err: docerrors.Wrap(err, "update", "")}
		}
		rec.value = next
		rec.etag = uuid.NewString()
		return store.OperationResult{OK: true, Item: &store.Item{Key: *op.Key, Value: rec.value, HasValue: true, Etag: rec.etag, HasEtag: true}}
	case lang.VerbDelete:
		if rec, ok := c[k]; ok && op.Stmt.Where != nil {
			hold, err := eval.EvalWhere(op.Stmt.Where, withEtag(rec.value, rec.etag))
			if err != nil {
				return store.OperationResult{OK: false, Err: docerrors.Wrap(err, "delete", "")}
			}
			if !hold {
				return store.OperationResult{OK: false, Err: docerrors.NewPreconditionFailed("PRECONDITION_FAILED", "WHERE clause did not hold")}
			}
		}
		delete(c, k)
		return store.OperationResult{OK: true, Item: nil}
	default:
		return store.OperationResult{OK: false, Err: docerrors.NewBadRequest("UNSUPPORTED_IN_BLOCK", "only PUT/UPDATE/DELETE are valid in BATCH/TRANSACT")}
	}
}

func (b *Backend) Close(ctx context.Context) error { return nil }

func splitRecKey(k string) (pk, id string) {
	for i := 0; i < len(k); i++ {
		if k[i] == 0 {
			return k[:i], k[i+1:]
		}
	}
	return k, ""
}
