// Package conformance runs the quantified invariants, boundary behaviors,
// and end-to-end scenarios against every shipped backend so their observable
// behavior matches the reference (backend/memory) adapter.
package conformance

import (
	"strconv"

	"github.com/brain2labs/docstore/store"
	"github.com/brain2labs/docstore/value"
)

// wordForms maps a fixture's integer id to the English word used for its
// "str" field; the canonical predicate recovered from the source fixture
// compares against these words directly (e.g. str in ('one','two','eight',
// 'nine')).
var wordForms = []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}

// narrLenFor returns the length of the fixture's "obj.narr" array. It tracks
// the id for every document except 8 and 9, whose lengths the canonical
// predicate pins to 7 and 8 respectively (one less than their id).
func narrLenFor(id int) int {
	switch id {
	case 8:
		return 7
	case 9:
		return 8
	default:
		return id
	}
}

// fixtureKey returns the {pk, id} key of canonical document i (0-9): ids
// 0-4 live in "pk00", ids 5-9 in "pk01".
func fixtureKey(i int) store.Key {
	pk := "pk00"
	if i >= 5 {
		pk = "pk01"
	}
	return store.Key{PK: pk, ID: strconv.Itoa(i)}
}

// canonicalDocument builds fixture document i (0-9). The shape and every
// field formula below is chosen so that, for i=8 and i=9, the document
// satisfies complex_condition_2 and complex_condition_1 respectively (the
// two multi-clause predicates reproduced verbatim in predicates_test.go)
// without needing a field-by-field special case beyond the three explicit
// overrides noted inline.
func canonicalDocument(i int) value.Value {
	key := fixtureKey(i)
	word := wordForms[i]

	// float and obj.nint need an override for id 9: the general formula
	// (id+0.1, -(id*100)) would land on the exact values the predicate
	// requires to differ from (9.1) or fall outside ([-10,10]).
	float := float64(i) + 0.1
	nint := -(i * 100)
	if i == 9 {
		float = 9.5
		nint = -3
	}
	// id 8's float is additionally pinned to 1.4 by the update-mutators
	// scenario, which reuses this same fixture as its starting document.
	if i == 8 {
		float = 1.4
	}

	nnstr := "n" + strconv.Itoa(i)
	if i == 8 {
		// complex_condition_2 requires length(obj.nobj.nnstr) == 4.
		nnstr = "nn08"
	}

	narr := make([]value.Value, narrLenFor(i))
	for j := range narr {
		narr[j] = value.Int(int64(j))
	}

	obj := value.Map().
		Set("nint", value.Int(int64(nint))).
		Set("nstr", value.String(strconv.Itoa(i))).
		Set("nobj", value.Map().
			Set("nnstr", value.String(nnstr)).
			Set("nnfloat", value.Float(-(float64(i)*100)-0.5)).
			Build()).
		Set("narr", value.Array(narr...)).
		Build()

	arrstr := value.Array(
		value.String(word+"-thousand-unit"),
		value.String("number "+word+" hundred"),
		value.String("hundred "+word),
	)
	arrint := value.Array(value.Int(int64(i*101)), value.Int(int64(i*101+1)), value.Int(int64(i*101+2)))
	arrobj := value.Array(
		value.Map().Set("ostr", value.String(word+"-is-great")).Build(),
		value.Map().Set("oint", value.Int(int64(i)*1_000_000_000)).Build(),
	)

	return value.Map().
		Set("pk", value.String(key.PK)).
		Set("id", value.String(key.ID)).
		Set("int", value.Int(int64(i))).
		Set("str", value.String(word)).
		Set("float", value.Float(float)).
		Set("bool", value.Bool(i%2 == 0)).
		Set("const", value.String(word+"-const")).
		Set("empty", value.Null()).
		Set("obj", obj).
		Set("arrstr", arrstr).
		Set("arrint", arrint).
		Set("arrobj", arrobj).
		Build()
}

// canonicalFixtures returns the ten canonical documents (pk00/id=0..4,
// pk01/id=5..9) the end-to-end scenarios in conformance_test.go seed every
// backend with.
func canonicalFixtures() []value.Value {
	docs := make([]value.Value, 10)
	for i := range docs {
		docs[i] = canonicalDocument(i)
	}
	return docs
}
