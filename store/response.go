package store

import "github.com/brain2labs/docstore/value"

// Item is the document-shaped result unit spec.md §4.4 describes for
// get/put/update/query results.
type Item struct {
	Key        Key
	Value      value.Value
	HasValue   bool
	Etag       string
	HasEtag    bool
	Collection string
}

// Response is the uniform envelope every Execute call returns. At most one
// of the result fields is populated, selected by Verb (a delete populates
// none).
type Response struct {
	Verb  Verb
	Item  *Item   // get/put/update, when applicable
	Items []Item  // query
	Count int64   // count
	// Results holds one slot per input Operation for batch/transact.
	Results []OperationResult
}

// OperationResult is one slot of a batch/transact Response. OK disambiguates
// "this slot's Item is legitimately nil (a delete)" from "this slot failed"
// (spec.md §9 Open Question 1): a failed slot has OK=false and Err set; a
// successful delete has OK=true, Item=nil, Err=nil.
type OperationResult struct {
	OK   bool
	Item *Item
	Err  error
}
