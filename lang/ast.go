package lang

import "github.com/brain2labs/docstore/path"

// Verb is the statement's leading keyword (spec.md §4.2).
type Verb string

const (
	VerbSelect   Verb = "SELECT"
	VerbGet      Verb = "GET"
	VerbPut      Verb = "PUT"
	VerbUpdate   Verb = "UPDATE"
	VerbDelete   Verb = "DELETE"
	VerbQuery    Verb = "QUERY"
	VerbCount    Verb = "COUNT"
	VerbBatch    Verb = "BATCH"
	VerbTransact Verb = "TRANSACT"
)

// Expr is any WHERE-clause expression node.
type Expr interface{ exprNode() }

type LiteralExpr struct{ Val LiteralValue }
type FieldExpr struct{ Path path.Path }
type ParamExpr struct{ Name string }
type FuncExpr struct {
	Name string
	Args []Expr
}
type BinaryExpr struct {
	Op          string // = != < <= > >= and or
	Left, Right Expr
}
type NotExpr struct{ X Expr }
type InExpr struct {
	X      Expr
	List   []Expr
	Negate bool
}
type BetweenExpr struct {
	X, Lo, Hi Expr
}

// RawClauseExpr represents an @name placeholder substituted as an entire
// WHERE clause (spec.md §4.2 "whole SELECT, WHERE, and ORDER BY clauses").
type RawClauseExpr struct{ Name string }

func (LiteralExpr) exprNode()   {}
func (FieldExpr) exprNode()     {}
func (ParamExpr) exprNode()     {}
func (FuncExpr) exprNode()      {}
func (BinaryExpr) exprNode()    {}
func (NotExpr) exprNode()       {}
func (InExpr) exprNode()        {}
func (BetweenExpr) exprNode()   {}
func (RawClauseExpr) exprNode() {}

// LiteralValue carries a parsed literal (scalar or JSON object/array).
type LiteralValue struct {
	Null   bool
	Bool   *bool
	Int    *int64
	Float  *float64
	Str    *string
	JSON   interface{} // set for object/array JSON literals
	IsJSON bool
}

// SelectTerm is one projection term ("SELECT *" is represented by Star).
type SelectTerm struct{ Path path.Path }

type Select struct {
	Star  bool
	Terms []SelectTerm
	Raw   *RawClauseExpr // whole-clause @param substitution
}

// OrderTerm is one "path [ASC|DESC]" ORDER BY term.
type OrderTerm struct {
	Path path.Path
	Desc bool
}

type OrderBy struct {
	Terms []OrderTerm
	Raw   *RawClauseExpr
}

// MutatorKind enumerates UPDATE SET mutators (spec.md §4.2).
type MutatorKind string

const (
	MutPut         MutatorKind = "put"
	MutInsert      MutatorKind = "insert"
	MutDelete      MutatorKind = "delete"
	MutIncrement   MutatorKind = "increment"
	MutMove        MutatorKind = "move"
	MutAppend      MutatorKind = "append"
	MutArrayUnion  MutatorKind = "array_union"
	MutArrayRemove MutatorKind = "array_remove"
)

// Assignment is one "path = mutator(args)" SET clause entry.
type Assignment struct {
	Target  path.Path
	Mutator MutatorKind
	Args    []Expr
}

// Statement is the parsed form of any one of the four production kinds
// (spec.md §4.2): a single verb-led operation, or a BATCH/TRANSACT block.
type Statement struct {
	Verb Verb

	// Key-bearing forms (GET/PUT/UPDATE/DELETE): key is supplied via the
	// bound parameter map at bind time using KEY(pk, id) syntax.
	KeyPK, KeyID Expr

	Collection   string // INTO/FROM target; "" means facade default
	Value        Expr   // PUT VALUE(...) literal/param
	Assignments  []Assignment
	Where        Expr
	WhereRaw     *RawClauseExpr
	Select       *Select
	OrderBy      *OrderBy
	Limit        *int
	Offset       *int
	Returning    string // "old" | "new" | ""

	// BATCH/TRANSACT block form.
	Block []*Statement
}

// IsBlock reports whether this statement is a BATCH/TRANSACT wrapper.
func (s *Statement) IsBlock() bool { return s.Verb == VerbBatch || s.Verb == VerbTransact }
