// Package sqlite implements the SQLite backend (C12) over database/sql and
// github.com/mattn/go-sqlite3, the driver the pack's codenerd repository
// uses for its local corpus/vector store (cmd/tools/corpus_builder). Each
// collection is one table keyed by (pk, id) storing the document as a JSON
// blob plus a version counter standing in for the etag. WHERE, SET and
// ORDER BY are not translated to SQL: rows are read by key or by
// collection and evaluated in-process with the reference eval package.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brain2labs/docstore/docerrors"
	"github.com/brain2labs/docstore/eval"
	"github.com/brain2labs/docstore/lang"
	"github.com/brain2labs/docstore/store"
	"github.com/brain2labs/docstore/value"
)

// Backend is the database/sql-backed store.Adapter.
type Backend struct {
	db *sql.DB
}

// Open opens (creating if absent) a SQLite database file at dsn.
func Open(dsn string) (*Backend, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, docerrors.NewInternal("SQLITE_OPEN_FAILED", err.Error())
	}
	if err := db.Ping(); err != nil {
		return nil, docerrors.NewInternal("SQLITE_PING_FAILED", err.Error())
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Name() string { return "sqlite" }

func (b *Backend) Supports(f store.Feature) bool {
	return store.CapabilityTable["sqlite"].Has(f)
}

func tableName(collection string) string { return "docstore_" + collection }

// withEtag exposes the row's version-derived etag as a synthetic "etag"
// field so $etag in a WHERE clause resolves against the value actually
// stored, matching backend/memory's withEtag.
func withEtag(doc value.Value, version int64) value.Value {
	return doc.WithField("etag", value.String(etagOf(version)))
}

func (b *Backend) CreateCollection(ctx context.Context, name string) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		pk TEXT NOT NULL,
		id TEXT NOT NULL,
		body TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (pk, id)
	)`, tableName(name))
	_, err := b.db.ExecContext(ctx, stmt)
	if err != nil {
		return docerrors.NewInternal("SQLITE_CREATE_COLLECTION_FAILED", err.Error())
	}
	return nil
}

func (b *Backend) DropCollection(ctx context.Context, name string) error {
	_, err := b.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, tableName(name)))
	if err != nil {
		return docerrors.NewInternal("SQLITE_DROP_COLLECTION_FAILED", err.Error())
	}
	return nil
}

func (b *Backend) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name LIKE 'docstore_%'`)
	if err != nil {
		return nil, docerrors.NewInternal("SQLITE_LIST_COLLECTIONS_FAILED", err.Error())
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, docerrors.NewInternal("SQLITE_SCAN_FAILED", err.Error())
		}
		names = append(names, strings.TrimPrefix(n, "docstore_"))
	}
	return names, nil
}

func (b *Backend) HasCollection(ctx context.Context, name string) (bool, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master WHERE type='table' AND name = ?`, tableName(name)).Scan(&n)
	if err != nil {
		return false, docerrors.NewInternal("SQLITE_HAS_COLLECTION_FAILED", err.Error())
	}
	return n > 0, nil
}

func (b *Backend) CreateIndex(ctx context.Context, collection string, idx store.IndexSpec) error {
	if len(idx.Paths) == 0 {
		return docerrors.NewBadRequest("INVALID_INDEX", "index requires at least one path")
	}
	unique := ""
	if idx.Unique {
		unique = "UNIQUE"
	}
	col := "json_extract(body, '$." + strings.Join(idx.Paths, ".") + "')"
	stmt := fmt.Sprintf(`CREATE %s INDEX IF NOT EXISTS %q ON %q (%s)`, unique, idx.Name, tableName(collection), col)
	_, err := b.db.ExecContext(ctx, stmt)
	if err != nil {
		return docerrors.NewInternal("SQLITE_CREATE_INDEX_FAILED", err.Error())
	}
	return nil
}

func (b *Backend) DropIndex(ctx context.Context, collection, name string) error {
	_, err := b.db.ExecContext(ctx, fmt.Sprintf(`DROP INDEX IF EXISTS %q`, name))
	if err != nil {
		return docerrors.NewInternal("SQLITE_DROP_INDEX_FAILED", err.Error())
	}
	return nil
}

func (b *Backend) ListIndexes(ctx context.Context, collection string) ([]store.IndexSpec, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type='index' AND tbl_name = ? AND sql IS NOT NULL`, tableName(collection))
	if err != nil {
		return nil, docerrors.NewInternal("SQLITE_LIST_INDEXES_FAILED", err.Error())
	}
	defer rows.Close()
	var out []store.IndexSpec
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, docerrors.NewInternal("SQLITE_SCAN_FAILED", err.Error())
		}
		out = append(out, store.IndexSpec{Name: n})
	}
	return out, nil
}

func (b *Backend) Get(ctx context.Context, bs store.BoundStatement) (*store.Item, error) {
	if bs.Key == nil {
		return nil, docerrors.NewBadRequest("MISSING_KEY", "get requires KEY(pk, id)")
	}
	doc, version, err := b.loadRow(ctx, bs.Collection, *bs.Key)
	if err != nil {
		return nil, err
	}
	if bs.Stmt != nil && bs.Stmt.Select != nil {
		doc, err = project(doc, bs.Stmt.Select)
		if err != nil {
			return nil, err
		}
	}
	return &store.Item{Key: *bs.Key, Value: doc, HasValue: true, Etag: etagOf(version), HasEtag: true, Collection: bs.Collection}, nil
}

func (b *Backend) loadRow(ctx context.Context, collection string, key store.Key) (value.Value, int64, error) {
	var body string
	var version int64
	err := b.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT body, version FROM %q WHERE pk = ? AND id = ?`, tableName(collection)), key.PK, key.ID).Scan(&body, &version)
	if err == sql.ErrNoRows {
		return value.Value{}, 0, docerrors.NewNotFound("NOT_FOUND", "no document for key")
	}
	if err != nil {
		return value.Value{}, 0, docerrors.NewInternal("SQLITE_GET_FAILED", err.Error())
	}
	doc, err := decodeBody(body)
	if err != nil {
		return value.Value{}, 0, err
	}
	return doc, version, nil
}

func (b *Backend) Put(ctx context.Context, bs store.BoundStatement) (*store.Item, error) {
	if bs.Key == nil {
		return nil, docerrors.NewBadRequest("MISSING_KEY", "put requires KEY(pk, id)")
	}
	if !bs.HasValue {
		return nil, docerrors.NewBadRequest("MISSING_VALUE", "put requires VALUE(...)")
	}
	if bs.Stmt != nil && bs.Stmt.Where != nil {
		var doc value.Value
		if existing, version, err := b.loadRow(ctx, bs.Collection, *bs.Key); err == nil {
			doc = withEtag(existing, version)
		} else if !docerrors.Is(err, docerrors.NotFound) {
			return nil, err
		}
		hold, err := eval.EvalWhere(bs.Stmt.Where, doc)
		if err != nil {
			return nil, docerrors.Wrap(err, "put", "")
		}
		if !hold {
			return nil, docerrors.NewPreconditionFailed("PRECONDITION_FAILED", "WHERE clause did not hold")
		}
	}
	body, err := encodeBody(bs.Value)
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf(`INSERT INTO %q (pk, id, body, version) VALUES (?, ?, ?, 1)
		ON CONFLICT(pk, id) DO UPDATE SET body = excluded.body, version = version + 1`, tableName(bs.Collection))
	if _, err := b.db.ExecContext(ctx, stmt, bs.Key.PK, bs.Key.ID, body); err != nil {
		return nil, docerrors.NewInternal("SQLITE_PUT_FAILED", err.Error())
	}
	_, version, err := b.loadRow(ctx, bs.Collection, *bs.Key)
	if err != nil {
		return nil, err
	}
	item := &store.Item{Key: *bs.Key, Etag: etagOf(version), HasEtag: true, Collection: bs.Collection}
	if bs.Returning == store.ReturningNew || bs.Returning == "" {
		item.Value, item.HasValue = bs.Value, true
	}
	return item, nil
}

func (b *Backend) Update(ctx context.Context, bs store.BoundStatement) (*store.Item, error) {
	if bs.Key == nil {
		return nil, docerrors.NewBadRequest("MISSING_KEY", "update requires KEY(pk, id)")
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, docerrors.NewInternal("SQLITE_TX_FAILED", err.Error())
	}
	defer tx.Rollback()

	var body string
	var version int64
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT body, version FROM %q WHERE pk = ? AND id = ?`, tableName(bs.Collection)), bs.Key.PK, bs.Key.ID).Scan(&body, &version)
	if err == sql.ErrNoRows {
		return nil, docerrors.NewNotFound("NOT_FOUND", "no document for key")
	}
	if err != nil {
		return nil, docerrors.NewInternal("SQLITE_UPDATE_READ_FAILED", err.Error())
	}
	old, err := decodeBody(body)
	if err != nil {
		return nil, err
	}
	if bs.Stmt != nil && bs.Stmt.Where != nil {
		hold, err := eval.EvalWhere(bs.Stmt.Where, withEtag(old, version))
		if err != nil {
			return nil, docerrors.Wrap(err, "update", "")
		}
		if !hold {
			return nil, docerrors.NewPreconditionFailed("PRECONDITION_FAILED", "WHERE clause did not hold")
		}
	}
	next := old
	if bs.Stmt != nil && len(bs.Stmt.Assignments) > 0 {
		next, err = eval.ApplySet(bs.Stmt.Assignments, old)
		if err != nil {
			return nil, docerrors.Wrap(err, "update", "")
		}
	}
	newBody, err := encodeBody(next)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %q SET body = ?, version = version + 1 WHERE pk = ? AND id = ?`, tableName(bs.Collection)), newBody, bs.Key.PK, bs.Key.ID); err != nil {
		return nil, docerrors.NewInternal("SQLITE_UPDATE_WRITE_FAILED", err.Error())
	}
	if err := tx.Commit(); err != nil {
		return nil, docerrors.NewInternal("SQLITE_COMMIT_FAILED", err.Error())
	}

	item := &store.Item{Key: *bs.Key, Etag: etagOf(version + 1), HasEtag: true, Collection: bs.Collection}
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
	if bs.Stmt != nil && bs.Stmt.Where != nil {
		doc, version, err := b.loadRow(ctx, bs.Collection, *bs.Key)
		if err != nil {
			if docerrors.Is(err, docerrors.NotFound) {
				return nil
			}
			return err
		}
		hold, err := eval.EvalWhere(bs.Stmt.Where, withEtag(doc, version))
		if err != nil {
			return docerrors.Wrap(err, "delete", "")
		}
		if !hold {
			return docerrors.NewPreconditionFailed("PRECONDITION_FAILED", "WHERE clause did not hold")
		}
	}
	_, err := b.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q WHERE pk = ? AND id = ?`, tableName(bs.Collection)), bs.Key.PK, bs.Key.ID)
	if err != nil {
		return docerrors.NewInternal("SQLITE_DELETE_FAILED", err.Error())
	}
	return nil
}

// Query always falls back to in-process evaluation of WHERE/ORDER BY over
// every row in the collection; the native-SQL fast path (WHERE translated
// to a json_extract predicate) is left as future work for the common
// single-field-equality case. Correctness matches the reference evaluator
// exactly, which is what spec.md §4.3 requires of every backend.
func (b *Backend) Query(ctx context.Context, bs store.BoundStatement) ([]store.Item, error) {
	rows, err := b.db.QueryContext(ctx, fmt.Sprintf(`SELECT pk, id, body, version FROM %q ORDER BY pk, id`, tableName(bs.Collection)))
	if err != nil {
		if isNoSuchTable(err) {
			return nil, nil
		}
		return nil, docerrors.NewInternal("SQLITE_QUERY_FAILED", err.Error())
	}
	defer rows.Close()

	var items []store.Item
	for rows.Next() {
		var pk, id, body string
		var version int64
		if err := rows.Scan(&pk, &id, &body, &version); err != nil {
			return nil, docerrors.NewInternal("SQLITE_SCAN_FAILED", err.Error())
		}
		doc, err := decodeBody(body)
		if err != nil {
			return nil, err
		}
		if bs.Stmt != nil && bs.Stmt.Where != nil {
			hold, err := eval.EvalWhere(bs.Stmt.Where, withEtag(doc, version))
			if err != nil {
				return nil, docerrors.Wrap(err, "query", "")
			}
			if !hold {
				continue
			}
		}
		if bs.Stmt != nil && bs.Stmt.Select != nil {
			doc, err = project(doc, bs.Stmt.Select)
			if err != nil {
				return nil, err
			}
		}
		items = append(items, store.Item{
			Key: store.Key{PK: pk, ID: id}, Value: doc, HasValue: true,
			Etag: etagOf(version), HasEtag: true, Collection: bs.Collection,
		})
	}

	if bs.Stmt != nil && bs.Stmt.OrderBy != nil {
		sortItems(items, bs.Stmt.OrderBy)
	}
	if bs.Stmt != nil && bs.Stmt.Offset != nil {
		if *bs.Stmt.Offset < len(items) {
			items = items[*bs.Stmt.Offset:]
		} else {
			items = nil
		}
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

func (b *Backend) Batch(ctx context.Context, collection string, ops []store.BoundStatement) ([]store.OperationResult, error) {
	results := make([]store.OperationResult, len(ops))
	for i, op := range ops {
		results[i] = b.applyOne(ctx, op)
	}
	return results, nil
}

func (b *Backend) Transact(ctx context.Context, collection string, ops []store.BoundStatement) ([]store.OperationResult, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, docerrors.NewInternal("SQLITE_TX_FAILED", err.Error())
	}
	defer tx.Rollback()

	var causes []*docerrors.Error
	for _, op := range ops {
		if op.Stmt == nil || op.Key == nil {
			continue
		}
		if op.Stmt.Verb != lang.VerbUpdate && op.Stmt.Where == nil {
			continue
		}
		var body string
		var version int64
		err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT body, version FROM %q WHERE pk = ? AND id = ?`, tableName(op.Collection)), op.Key.PK, op.Key.ID).Scan(&body, &version)
		found := err == nil
		if op.Stmt.Verb == lang.VerbUpdate && !found {
			causes = append(causes, docerrors.NewNotFound("NOT_FOUND", "no document for key").WithOp(string(op.Stmt.Verb)))
			continue
		}
		if op.Stmt.Where == nil {
			continue
		}
		var doc value.Value
		if found {
			if decoded, decErr := decodeBody(body); decErr == nil {
				doc = withEtag(decoded, version)
			}
		}
		hold, evalErr := eval.EvalWhere(op.Stmt.Where, doc)
		if evalErr != nil {
			causes = append(causes, docerrors.Wrap(evalErr, "transact", "").WithOp(string(op.Stmt.Verb)))
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
		results[i] = b.applyOneTx(ctx, tx, op)
	}
	if err := tx.Commit(); err != nil {
		return nil, docerrors.NewInternal("SQLITE_COMMIT_FAILED", err.Error())
	}
	return results, nil
}

func (b *Backend) applyOne(ctx context.Context, op store.BoundStatement) store.OperationResult {
	if op.Stmt == nil || op.Key == nil {
		return store.OperationResult{OK: false, Err: docerrors.NewBadRequest("MISSING_KEY", "batch item requires a key")}
	}
	switch op.Stmt.Verb {
	case lang.VerbPut:
		item, err := b.Put(ctx, op)
		if err != nil {
			return store.OperationResult{OK: false, Err: err}
		}
		return store.OperationResult{OK: true, Item: item}
	case lang.VerbUpdate:
		item, err := b.Update(ctx, op)
		if err != nil {
			return store.OperationResult{OK: false, Err: err}
		}
		return store.OperationResult{OK: true, Item: item}
	case lang.VerbDelete:
		if err := b.Delete(ctx, op); err != nil {
			return store.OperationResult{OK: false, Err: err}
		}
		return store.OperationResult{OK: true}
	default:
		return store.OperationResult{OK: false, Err: docerrors.NewBadRequest("UNSUPPORTED_IN_BLOCK", "only PUT/UPDATE/DELETE are valid in BATCH/TRANSACT")}
	}
}

func (b *Backend) applyOneTx(ctx context.Context, tx *sql.Tx, op store.BoundStatement) store.OperationResult {
	if op.Stmt == nil || op.Key == nil {
		return store.OperationResult{OK: false, Err: docerrors.NewBadRequest("MISSING_KEY", "transact item requires a key")}
	}
	switch op.Stmt.Verb {
	case lang.VerbPut:
		body, err := encodeBody(op.Value)
		if err != nil {
			return store.OperationResult{OK: false, Err: err}
		}
		stmt := fmt.Sprintf(`INSERT INTO %q (pk, id, body, version) VALUES (?, ?, ?, 1)
			ON CONFLICT(pk, id) DO UPDATE SET body = excluded.body, version = version + 1`, tableName(op.Collection))
		if _, err := tx.ExecContext(ctx, stmt, op.Key.PK, op.Key.ID, body); err != nil {
			return store.OperationResult{OK: false, Err: docerrors.NewInternal("SQLITE_PUT_FAILED", err.Error())}
		}
		return store.OperationResult{OK: true, Item: &store.Item{Key: *op.Key, Value: op.Value, HasValue: true}}
	case lang.VerbUpdate:
		var body string
		err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT body FROM %q WHERE pk = ? AND id = ?`, tableName(op.Collection)), op.Key.PK, op.Key.ID).Scan(&body)
		if err != nil {
			return store.OperationResult{OK: false, Err: docerrors.NewNotFound("NOT_FOUND", "no document for key")}
		}
		old, err := decodeBody(body)
		if err != nil {
			return store.OperationResult{OK: false, Err: err}
		}
		next, err := eval.ApplySet(op.Stmt.Assignments, old)
		if err != nil {
			return store.OperationResult{OK: false, Err: docerrors.Wrap(err, "update", "")}
		}
		newBody, err := encodeBody(next)
		if err != nil {
			return store.OperationResult{OK: false, Err: err}
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %q SET body = ?, version = version + 1 WHERE pk = ? AND id = ?`, tableName(op.Collection)), newBody, op.Key.PK, op.Key.ID); err != nil {
			return store.OperationResult{OK: false, Err: docerrors.NewInternal("SQLITE_UPDATE_FAILED", err.Error())}
		}
		return store.OperationResult{OK: true, Item: &store.Item{Key: *op.Key, Value: next, HasValue: true}}
	case lang.VerbDelete:
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q WHERE pk = ? AND id = ?`, tableName(op.Collection)), op.Key.PK, op.Key.ID); err != nil {
			return store.OperationResult{OK: false, Err: docerrors.NewInternal("SQLITE_DELETE_FAILED", err.Error())}
		}
		return store.OperationResult{OK: true}
	default:
		return store.OperationResult{OK: false, Err: docerrors.NewBadRequest("UNSUPPORTED_IN_BLOCK", "only PUT/UPDATE/DELETE are valid in BATCH/TRANSACT")}
	}
}

func (b *Backend) Close(ctx context.Context) error { return b.db.Close() }

func isNoSuchTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
