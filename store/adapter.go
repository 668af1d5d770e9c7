package store

import (
	"context"

	"github.com/brain2labs/docstore/lang"
	"github.com/brain2labs/docstore/value"
)

// IndexSpec describes one secondary index (spec.md §4.6 create_index).
type IndexSpec struct {
	Name    string
	Paths   []string
	Unique  bool
}

// BoundStatement is a parsed, fully parameter-bound *lang.Statement paired
// with the Key/Value/Collection/Returning metadata an Operation supplies
// but the statement grammar itself does not carry (spec.md §4.6: "each
// method receives a pre-parsed AST ... and a fully bound parameter map").
type BoundStatement struct {
	Stmt       *lang.Statement
	Key        *Key
	Value      value.Value
	HasValue   bool
	Collection string
	Returning  Returning
}

// Adapter is the contract every backend implements (spec.md §4.6, C10).
// Every method is handed an already-validated, already-bound statement;
// adapters never see raw statement-language text or unresolved @params.
type Adapter interface {
	Name() string
	Supports(f Feature) bool

	CreateCollection(ctx context.Context, name string) error
	DropCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)
	HasCollection(ctx context.Context, name string) (bool, error)

	CreateIndex(ctx context.Context, collection string, idx IndexSpec) error
	DropIndex(ctx context.Context, collection, name string) error
	ListIndexes(ctx context.Context, collection string) ([]IndexSpec, error)

	Get(ctx context.Context, bs BoundStatement) (*Item, error)
	Put(ctx context.Context, bs BoundStatement) (*Item, error)
	Update(ctx context.Context, bs BoundStatement) (*Item, error)
	Delete(ctx context.Context, bs BoundStatement) error
	Query(ctx context.Context, bs BoundStatement) ([]Item, error)
	Count(ctx context.Context, bs BoundStatement) (int64, error)
	Batch(ctx context.Context, collection string, ops []BoundStatement) ([]OperationResult, error)
	Transact(ctx context.Context, collection string, ops []BoundStatement) ([]OperationResult, error)

	Close(ctx context.Context) error
}
