package store

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/brain2labs/docstore/docerrors"
	"github.com/brain2labs/docstore/internal/logging"
	"github.com/brain2labs/docstore/lang"
	"github.com/brain2labs/docstore/value"
)

// Observer receives one notification per facade call, wrapping fn so it can
// time the call and tag a span/metric with verb and collection (satisfied
// by internal/obs.Provider; kept as an interface here so store never
// imports the observability package directly).
type Observer interface {
	Observe(ctx context.Context, verb, collection string, fn func(context.Context) error) error
}

type noopObserver struct{}

func (noopObserver) Observe(ctx context.Context, verb, collection string, fn func(context.Context) error) error {
	return fn(ctx)
}

// DocumentStore is the provider-agnostic facade of spec.md §4.5/§4.9 (C9):
// every call flows through validate -> capability check -> adapter
// dispatch, whichever of the two call forms (structured Operation or
// statement text) the caller used.
type DocumentStore struct {
	adapter           Adapter
	validate          *validator.Validate
	logger            *zap.Logger
	observer          Observer
	defaultCollection string
}

// Option configures a DocumentStore at construction time.
type Option func(*DocumentStore)

// WithDefaultCollection sets the collection used when an Operation or
// statement omits INTO/FROM.
func WithDefaultCollection(name string) Option {
	return func(ds *DocumentStore) { ds.defaultCollection = name }
}

// WithLogger overrides the default no-op zap.Logger.
func WithLogger(l *zap.Logger) Option {
	return func(ds *DocumentStore) { ds.logger = l }
}

// WithObserver overrides the default no-op Observer (normally an
// internal/obs.Provider) used to record per-call metrics and tracing.
func WithObserver(o Observer) Option {
	return func(ds *DocumentStore) { ds.observer = o }
}

// New builds a facade bound to one adapter.
func New(adapter Adapter, opts ...Option) *DocumentStore {
	ds := &DocumentStore{
		adapter:  adapter,
		validate: validator.New(),
		logger:   zap.NewNop(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(ds)
	}
	return ds
}

func (ds *DocumentStore) collectionOf(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return ds.defaultCollection
}

// Execute runs one structured Operation (spec.md §4.4). BATCH/TRANSACT use
// ExecuteBatch/ExecuteTransact instead, since their input shape (a slice of
// Operations) does not fit the single-Operation struct.
func (ds *DocumentStore) Execute(ctx context.Context, op Operation) (*Response, error) {
	if op.Verb == VerbBatch || op.Verb == VerbTransact {
		return nil, docerrors.NewBadRequest("WRONG_ENTRYPOINT", "use ExecuteBatch/ExecuteTransact for "+string(op.Verb))
	}
	if err := ds.validate.Struct(&op); err != nil {
		return nil, docerrors.NewBadRequest("INVALID_OPERATION", err.Error()).WithOp(string(op.Verb))
	}

	bs, err := ds.bindOperation(&op)
	if err != nil {
		return nil, docerrors.NewBadRequest("PARSE_ERROR", err.Error()).WithOp(string(op.Verb))
	}
	if err := ds.checkCapabilities(bs.Stmt); err != nil {
		return nil, err
	}

	var resp *Response
	err = ds.observer.Observe(ctx, string(op.Verb), bs.Collection, func(ctx context.Context) error {
		var dispatchErr error
		resp, dispatchErr = ds.dispatch(ctx, op.Verb, bs)
		return dispatchErr
	})
	if err != nil {
		ds.logger.Error("operation failed", append(logging.Operation(string(op.Verb), bs.Collection), zap.Error(err))...)
		return nil, err
	}
	return resp, nil
}

// ExecuteBatch runs an independent sequence of Operations (spec.md §4.2:
// "BATCH applies independently per item").
func (ds *DocumentStore) ExecuteBatch(ctx context.Context, b Batch) (*Response, error) {
	bound, err := ds.bindOps(b.Collection, b.Ops)
	if err != nil {
		return nil, err
	}
	collection := ds.collectionOf(b.Collection)
	var results []OperationResult
	err = ds.observer.Observe(ctx, string(VerbBatch), collection, func(ctx context.Context) error {
		var batchErr error
		results, batchErr = ds.adapter.Batch(ctx, collection, bound)
		return batchErr
	})
	if err != nil {
		ds.logger.Error("batch failed", append(logging.Operation(string(VerbBatch), collection), zap.Error(err))...)
		return nil, docerrors.Wrap(err, "batch", "")
	}
	return &Response{Verb: VerbBatch, Results: results}, nil
}

// ExecuteTransact runs an all-or-nothing sequence of Operations (spec.md
// §4.2: "TRANSACT succeeds only if every item's WHERE holds at commit").
func (ds *DocumentStore) ExecuteTransact(ctx context.Context, t Transaction) (*Response, error) {
	bound, err := ds.bindOps(t.Collection, t.Ops)
	if err != nil {
		return nil, err
	}
	collection := ds.collectionOf(t.Collection)
	var results []OperationResult
	err = ds.observer.Observe(ctx, string(VerbTransact), collection, func(ctx context.Context) error {
		var transactErr error
		results, transactErr = ds.adapter.Transact(ctx, collection, bound)
		return transactErr
	})
	if err != nil {
		ds.logger.Error("transact failed", append(logging.Operation(string(VerbTransact), collection), zap.Error(err))...)
		return nil, docerrors.Wrap(err, "transact", "")
	}
	return &Response{Verb: VerbTransact, Results: results}, nil
}

func (ds *DocumentStore) bindOps(collection string, ops []Operation) ([]BoundStatement, error) {
	bound := make([]BoundStatement, len(ops))
	for i := range ops {
		op := ops[i]
		if op.Collection == "" {
			op.Collection = collection
		}
		if err := ds.validate.Struct(&op); err != nil {
			return nil, docerrors.NewBadRequest("INVALID_OPERATION", err.Error()).WithOp(string(op.Verb))
		}
		bs, err := ds.bindOperation(&op)
		if err != nil {
			return nil, docerrors.NewBadRequest("PARSE_ERROR", err.Error()).WithOp(string(op.Verb))
		}
		if err := ds.checkCapabilities(bs.Stmt); err != nil {
			return nil, err
		}
		bound[i] = *bs
	}
	return bound, nil
}

// ExecuteStatement parses and runs raw statement-language text (spec.md §6:
// "Both forms must produce identical results for equivalent inputs").
func (ds *DocumentStore) ExecuteStatement(ctx context.Context, text string, params map[string]value.Value) (*Response, error) {
	stmt, err := lang.Parse(text)
	if err != nil {
		return nil, docerrors.NewBadRequest("PARSE_ERROR", err.Error())
	}
	bound, err := lang.Bind(stmt, params)
	if err != nil {
		return nil, docerrors.NewBadRequest("BIND_ERROR", err.Error())
	}

	if bound.IsBlock() {
		ops := make([]BoundStatement, len(bound.Block))
		for i, sub := range bound.Block {
			bs, err := ds.boundStatementFromAST(sub)
			if err != nil {
				return nil, err
			}
			if err := ds.checkCapabilities(bs.Stmt); err != nil {
				return nil, err
			}
			ops[i] = *bs
		}
		collection := ds.collectionOf(bound.Collection)
		verb := VerbBatch
		if bound.Verb != lang.VerbBatch {
			verb = VerbTransact
		}
		var results []OperationResult
		err = ds.observer.Observe(ctx, string(verb), collection, func(ctx context.Context) error {
			var opErr error
			if verb == VerbBatch {
				results, opErr = ds.adapter.Batch(ctx, collection, ops)
			} else {
				results, opErr = ds.adapter.Transact(ctx, collection, ops)
			}
			return opErr
		})
		if err != nil {
			ds.logger.Error(string(verb)+" failed", append(logging.Operation(string(verb), collection), zap.Error(err))...)
			return nil, docerrors.Wrap(err, string(verb), "")
		}
		return &Response{Verb: verb, Results: results}, nil
	}

	bs, err := ds.boundStatementFromAST(bound)
	if err != nil {
		return nil, err
	}
	if err := ds.checkCapabilities(bs.Stmt); err != nil {
		return nil, err
	}
	verb := bound.Verb
	if verb == lang.VerbSelect {
		verb = lang.VerbQuery
	}
	var resp *Response
	err = ds.observer.Observe(ctx, string(verb), bs.Collection, func(ctx context.Context) error {
		var dispatchErr error
		resp, dispatchErr = ds.dispatch(ctx, verb, bs)
		return dispatchErr
	})
	if err != nil {
		ds.logger.Error("operation failed", append(logging.Operation(string(verb), bs.Collection), zap.Error(err))...)
		return nil, err
	}
	return resp, nil
}

// bindOperation converts one API-level Operation (whose clause fields are
// raw strings) into a BoundStatement by parsing each clause and resolving
// @name placeholders against op.Params (spec.md §4.2/§4.4).
func (ds *DocumentStore) bindOperation(op *Operation) (*BoundStatement, error) {
	stmt := &lang.Statement{Verb: op.Verb, Collection: op.Collection, Limit: op.Limit, Offset: op.Offset, Returning: string(op.Returning)}

	if op.Where != "" {
		where, err := lang.ParseWhere(op.Where)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}
	if op.Select != "" {
		sel, err := lang.ParseSelect(op.Select)
		if err != nil {
			return nil, err
		}
		stmt.Select = sel
	}
	if op.Set != "" {
		assigns, err := lang.ParseSet(op.Set)
		if err != nil {
			return nil, err
		}
		stmt.Assignments = assigns
	}
	if op.OrderByStr != "" {
		ob, err := lang.ParseOrderByClause(op.OrderByStr)
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = ob
	}

	bound, err := lang.Bind(stmt, op.Params)
	if err != nil {
		return nil, err
	}

	return &BoundStatement{
		Stmt:       bound,
		Key:        op.Key,
		Value:      op.Value,
		HasValue:   op.HasValue,
		Collection: ds.collectionOf(op.Collection),
		Returning:  op.Returning,
	}, nil
}

// boundStatementFromAST converts a fully bound *lang.Statement (as produced
// by parsing full statement-language text) into a BoundStatement, resolving
// KEY(...)/VALUE(...) literals to concrete Key/Value.
func (ds *DocumentStore) boundStatementFromAST(stmt *lang.Statement) (*BoundStatement, error) {
	bs := &BoundStatement{
		Stmt:       stmt,
		Collection: ds.collectionOf(stmt.Collection),
		Returning:  Returning(stmt.Returning),
	}
	if stmt.KeyPK != nil && stmt.KeyID != nil {
		pkV, err := literalToValue(stmt.KeyPK)
		if err != nil {
			return nil, err
		}
		idV, err := literalToValue(stmt.KeyID)
		if err != nil {
			return nil, err
		}
		pk, ok1 := pkV.String()
		id, ok2 := idV.String()
		if !ok1 || !ok2 {
			return nil, docerrors.NewBadRequest("INVALID_KEY", "KEY(pk, id) must be strings")
		}
		bs.Key = &Key{PK: pk, ID: id}
	}
	if stmt.Value != nil {
		v, err := literalToValue(stmt.Value)
		if err != nil {
			return nil, err
		}
		bs.Value = v
		bs.HasValue = true
	}
	return bs, nil
}

func literalToValue(e lang.Expr) (value.Value, error) {
	lit, ok := e.(*lang.LiteralExpr)
	if !ok {
		return value.Value{}, fmt.Errorf("store: expected a bound literal, got %T", e)
	}
	switch {
	case lit.Val.Null:
		return value.Null(), nil
	case lit.Val.Bool != nil:
		return value.Bool(*lit.Val.Bool), nil
	case lit.Val.Int != nil:
		return value.Int(*lit.Val.Int), nil
	case lit.Val.Float != nil:
		return value.Float(*lit.Val.Float), nil
	case lit.Val.Str != nil:
		return value.String(*lit.Val.Str), nil
	case lit.Val.IsJSON:
		return value.FromGoValue(lit.Val.JSON)
	default:
		return value.Null(), nil
	}
}

func (ds *DocumentStore) checkCapabilities(stmt *lang.Statement) error {
	if stmt == nil {
		return nil
	}
	for _, req := range whereRequirements(stmt.Where) {
		if !ds.adapter.Supports(req.Feature) {
			return docerrors.NewNotSupported("FEATURE_UNSUPPORTED", "backend does not support "+req.Name)
		}
	}
	for _, req := range setRequirements(stmt.Assignments) {
		if !ds.adapter.Supports(req.Feature) {
			return docerrors.NewNotSupported("FEATURE_UNSUPPORTED", "backend does not support "+req.Name)
		}
	}
	return nil
}

func (ds *DocumentStore) dispatch(ctx context.Context, verb Verb, bs *BoundStatement) (*Response, error) {
	switch verb {
	case VerbGet:
		item, err := ds.adapter.Get(ctx, *bs)
		if err != nil {
			return nil, err
		}
		return &Response{Verb: VerbGet, Item: item}, nil
	case VerbPut:
		item, err := ds.adapter.Put(ctx, *bs)
		if err != nil {
			return nil, err
		}
		return &Response{Verb: VerbPut, Item: item}, nil
	case VerbUpdate:
		item, err := ds.adapter.Update(ctx, *bs)
		if err != nil {
			return nil, err
		}
		return &Response{Verb: VerbUpdate, Item: item}, nil
	case VerbDelete:
		if err := ds.adapter.Delete(ctx, *bs); err != nil {
			return nil, err
		}
		return &Response{Verb: VerbDelete}, nil
	case VerbQuery:
		items, err := ds.adapter.Query(ctx, *bs)
		if err != nil {
			return nil, err
		}
		return &Response{Verb: VerbQuery, Items: items}, nil
	case VerbCount:
		n, err := ds.adapter.Count(ctx, *bs)
		if err != nil {
			return nil, err
		}
		return &Response{Verb: VerbCount, Count: n}, nil
	default:
		return nil, docerrors.NewBadRequest("UNKNOWN_VERB", fmt.Sprintf("unsupported verb %q", verb))
	}
}

// Close releases the underlying adapter's resources.
func (ds *DocumentStore) Close(ctx context.Context) error {
	return ds.adapter.Close(ctx)
}
