// Package store implements the operation model (C7), capability registry
// (C8), the Document Store facade (C9), and the adapter contract (C10) of
// spec.md §4.4–§4.6.
package store

import (
	"github.com/brain2labs/docstore/lang"
	"github.com/brain2labs/docstore/value"
)

// Key is the {pk, id} primary key structure of spec.md §3.
type Key struct {
	PK string `validate:"required"`
	ID string `validate:"required"`
}

// Verb mirrors lang.Verb at the operation-model layer.
type Verb = lang.Verb

const (
	VerbGet      = lang.VerbGet
	VerbPut      = lang.VerbPut
	VerbUpdate   = lang.VerbUpdate
	VerbDelete   = lang.VerbDelete
	VerbQuery    = lang.VerbQuery
	VerbCount    = lang.VerbCount
	VerbBatch    = lang.VerbBatch
	VerbTransact = lang.VerbTransact
)

// Returning enumerates the RETURNING modes of spec.md §4.4.
type Returning string

const (
	ReturningNone Returning = ""
	ReturningOld  Returning = "old"
	ReturningNew  Returning = "new"
)

// Operation carries exactly the fields spec.md §4.4 enumerates. Clause
// fields are raw statement-language text so that Execute(Operation) and
// ExecuteStatement(text) share one parse-and-bind code path (§6: "Both
// forms must produce identical results for equivalent inputs").
//
// go-playground/validator struct tags enforce the cheap, pre-dispatch
// shape checks (verb present, limit/offset non-negative) that spec.md §7
// classes as BadRequest — grounded on the teacher's use of the same
// library for command DTO validation (application/commands).
type Operation struct {
	Verb Verb `validate:"required"`

	Key        *Key
	Value      value.Value
	HasValue   bool
	Set        string // UPDATE SET clause text, sans leading "SET"
	Where      string // WHERE clause text, sans leading "WHERE"
	Select     string // SELECT clause text, sans leading "SELECT"; "*" default
	OrderByStr string // "ORDER BY ..." full clause text, or ""
	Limit      *int   `validate:"omitempty,gte=0"`
	Offset     *int   `validate:"omitempty,gte=0"`

	Params     map[string]value.Value
	Collection string
	Returning  Returning
}

// Batch is an independent sequence of Operations (spec.md §4.2/§4.4):
// every item applies or fails on its own.
type Batch struct {
	Collection string
	Ops        []Operation
}

// Transaction is an all-or-nothing sequence of Operations.
type Transaction struct {
	Collection string
	Ops        []Operation
}
