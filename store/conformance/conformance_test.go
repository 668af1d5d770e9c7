package conformance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brain2labs/docstore/backend/dynamodb"
	"github.com/brain2labs/docstore/backend/dynamodb/ddbfake"
	"github.com/brain2labs/docstore/backend/memory"
	"github.com/brain2labs/docstore/backend/sqlite"
	"github.com/brain2labs/docstore/docerrors"
	"github.com/brain2labs/docstore/store"
	"github.com/brain2labs/docstore/value"
)

const coll = "docs"

// backendCase builds one store.DocumentStore bound to a fresh, empty
// backend instance. Every scenario below runs once per case so the three
// adapters are checked for reference equivalence against backend/memory.
type backendCase struct {
	name  string
	build func(t *testing.T) *store.DocumentStore
}

func backendCases() []backendCase {
	return []backendCase{
		{name: "memory", build: func(t *testing.T) *store.DocumentStore {
			return store.New(memory.New(), store.WithDefaultCollection(coll))
		}},
		{name: "sqlite", build: func(t *testing.T) *store.DocumentStore {
			b, err := sqlite.Open(":memory:")
			require.NoError(t, err)
			require.NoError(t, b.CreateCollection(context.Background(), coll))
			return store.New(b, store.WithDefaultCollection(coll))
		}},
		{name: "dynamodb", build: func(t *testing.T) *store.DocumentStore {
			b := dynamodb.New(dynamodb.Config{Client: ddbfake.New(), TableName: "docstore-conformance"})
			return store.New(b, store.WithDefaultCollection(coll))
		}},
	}
}

func putDoc(t *testing.T, ds *store.DocumentStore, key store.Key, doc value.Value) {
	t.Helper()
	_, err := ds.Execute(context.Background(), store.Operation{
		Verb: store.VerbPut, Key: &key, Value: doc, HasValue: true,
	})
	require.NoError(t, err)
}

func seedFixtures(t *testing.T, ds *store.DocumentStore) {
	t.Helper()
	for i, doc := range canonicalFixtures() {
		putDoc(t, ds, fixtureKey(i), doc)
	}
}

// --- Quantified invariants (spec.md §8) ---

func TestInvariant_PutThenGetContainsAllFields(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			ds := bc.build(t)
			ctx := context.Background()
			key := store.Key{PK: "pkA", ID: "1"}
			doc := value.Map().Set("name", value.String("widget")).Set("qty", value.Int(3)).Build()
			putDoc(t, ds, key, doc)

			resp, err := ds.Execute(ctx, store.Operation{Verb: store.VerbGet, Key: &key})
			require.NoError(t, err)
			require.NotNil(t, resp.Item)
			n, _ := resp.Item.Value.Field("name")
			s, _ := n.String()
			assert.Equal(t, "widget", s)
			q, _ := resp.Item.Value.Field("qty")
			i, _ := q.Int()
			assert.EqualValues(t, 3, i)
			assert.NotEmpty(t, resp.Item.Etag)
		})
	}
}

func TestInvariant_ConsecutivePutsYieldDifferentEtags(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			ds := bc.build(t)
			ctx := context.Background()
			key := store.Key{PK: "pkA", ID: "2"}
			doc := value.Map().Set("v", value.Int(1)).Build()

			putDoc(t, ds, key, doc)
			first, err := ds.Execute(ctx, store.Operation{Verb: store.VerbGet, Key: &key})
			require.NoError(t, err)

			putDoc(t, ds, key, doc)
			second, err := ds.Execute(ctx, store.Operation{Verb: store.VerbGet, Key: &key})
			require.NoError(t, err)

			assert.NotEqual(t, first.Item.Etag, second.Item.Etag)
		})
	}
}

func TestInvariant_PutWhereSucceedsIffClauseHoldsOverCurrentDocument(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			ds := bc.build(t)
			ctx := context.Background()
			key := store.Key{PK: "pkA", ID: "3"}
			doc := value.Map().Set("v", value.Int(1)).Build()
			putDoc(t, ds, key, doc)

			_, err := ds.Execute(ctx, store.Operation{
				Verb: store.VerbPut, Key: &key, Value: doc, HasValue: true,
				Where: "v = 1",
			})
			assert.NoError(t, err)

			_, err = ds.Execute(ctx, store.Operation{
				Verb: store.VerbPut, Key: &key, Value: doc, HasValue: true,
				Where: "v = 2",
			})
			require.Error(t, err)
			assert.True(t, docerrors.Is(err, docerrors.PreconditionFailed))
		})
	}
}

// --- Boundary behaviors (spec.md §8) ---

func TestBoundary_UpdateOnAbsentDocumentIsNotFound(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			ds := bc.build(t)
			_, err := ds.Execute(context.Background(), store.Operation{
				Verb: store.VerbUpdate, Key: &store.Key{PK: "pkX", ID: "missing"}, Set: "v = put(1)",
			})
			require.Error(t, err)
			assert.True(t, docerrors.Is(err, docerrors.NotFound))
		})
	}
}

func TestBoundary_PutNotExistsOnPresentDocumentIsPreconditionFailed(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			ds := bc.build(t)
			ctx := context.Background()
			key := store.Key{PK: "pkX", ID: "1"}
			doc := value.Map().Set("v", value.Int(1)).Build()
			putDoc(t, ds, key, doc)

			_, err := ds.Execute(ctx, store.Operation{
				Verb: store.VerbPut, Key: &key, Value: doc, HasValue: true,
				Where: "not_exists()",
			})
			require.Error(t, err)
			assert.True(t, docerrors.Is(err, docerrors.PreconditionFailed))
		})
	}
}

func TestBoundary_DeleteEtagMismatchIsPreconditionFailed(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			ds := bc.build(t)
			ctx := context.Background()
			key := store.Key{PK: "pkX", ID: "2"}
			doc := value.Map().Set("v", value.Int(1)).Build()
			putDoc(t, ds, key, doc)

			_, err := ds.Execute(ctx, store.Operation{
				Verb: store.VerbDelete, Key: &key, Where: "$etag = 'not-the-real-etag'",
			})
			require.Error(t, err)
			assert.True(t, docerrors.Is(err, docerrors.PreconditionFailed))
		})
	}
}

func TestBoundary_TransactionConflictModifiesNothing(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			ds := bc.build(t)
			ctx := context.Background()
			good := store.Key{PK: "pkX", ID: "good"}
			bad := store.Key{PK: "pkX", ID: "bad"}
			putDoc(t, ds, good, value.Map().Set("v", value.Int(1)).Build())
			putDoc(t, ds, bad, value.Map().Set("v", value.Int(1)).Build())

			_, err := ds.ExecuteTransact(ctx, store.Transaction{
				Collection: coll,
				Ops: []store.Operation{
					{Verb: store.VerbUpdate, Key: &good, Set: "v = put(2)"},
					{Verb: store.VerbUpdate, Key: &bad, Set: "v = put(2)", Where: "v = 999"},
				},
			})
			require.Error(t, err)
			assert.True(t, docerrors.Is(err, docerrors.Conflict))

			resp, err := ds.Execute(ctx, store.Operation{Verb: store.VerbGet, Key: &good})
			require.NoError(t, err)
			v, _ := resp.Item.Value.Field("v")
			n, _ := v.Int()
			assert.EqualValues(t, 1, n, "the unconditional half of the transaction must not have applied either")
		})
	}
}

// --- End-to-end scenarios (spec.md §8) ---

// Scenario 1: conditional insert-replace cycle.
func TestScenario1_ConditionalInsertReplaceCycle(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			ds := bc.build(t)
			ctx := context.Background()
			key := store.Key{PK: "pkS1", ID: "1"}
			d := value.Map().Set("v", value.Int(1)).Build()
			dPrime := value.Map().Set("v", value.Int(2)).Build()

			putDoc(t, ds, key, d)
			resp, err := ds.Execute(ctx, store.Operation{Verb: store.VerbGet, Key: &key})
			require.NoError(t, err)
			e1 := resp.Item.Etag
			require.NotEmpty(t, e1)

			putDoc(t, ds, key, dPrime)
			resp, err = ds.Execute(ctx, store.Operation{Verb: store.VerbGet, Key: &key})
			require.NoError(t, err)
			e2 := resp.Item.Etag
			require.NotEmpty(t, e2)
			assert.NotEqual(t, e1, e2)

			_, err = ds.Execute(ctx, store.Operation{Verb: store.VerbDelete, Key: &key, Where: "$etag = '" + e1 + "'"})
			require.Error(t, err)
			assert.True(t, docerrors.Is(err, docerrors.PreconditionFailed))

			_, err = ds.Execute(ctx, store.Operation{Verb: store.VerbDelete, Key: &key, Where: "$etag = '" + e2 + "'"})
			require.NoError(t, err)

			_, err = ds.Execute(ctx, store.Operation{Verb: store.VerbGet, Key: &key})
			require.Error(t, err)
			assert.True(t, docerrors.Is(err, docerrors.NotFound))
		})
	}
}

// Scenario 2: complex predicate query over the canonical fixtures.
func TestScenario2_ComplexPredicateQueryOrdersAndCounts(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			ds := bc.build(t)
			ctx := context.Background()
			seedFixtures(t, ds)

			resp, err := ds.ExecuteStatement(ctx,
				"QUERY * FROM "+coll+" WHERE pk = 'pk00' and int between 1 and 3 ORDER BY int DESC", nil)
			require.NoError(t, err)
			require.Len(t, resp.Items, 3)
			var ids []string
			for _, it := range resp.Items {
				ids = append(ids, it.Key.ID)
			}
			assert.Equal(t, []string{"3", "2", "1"}, ids)

			countResp, err := ds.ExecuteStatement(ctx,
				"COUNT FROM "+coll+" WHERE pk = 'pk00' and int between 1 and 3", nil)
			require.NoError(t, err)
			assert.EqualValues(t, 3, countResp.Count)
		})
	}
}

// Scenario 3: parameterized complex predicate, run both with inline literals
// and with placeholders, per the parameter-equivalence invariant.
func TestScenario3_ParameterizedComplexPredicateSelectsDocumentNine(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			ds := bc.build(t)
			ctx := context.Background()
			seedFixtures(t, ds)

			inline, err := ds.ExecuteStatement(ctx, "QUERY * FROM "+coll+" WHERE "+complexCondition1, nil)
			require.NoError(t, err)
			require.Len(t, inline.Items, 1)
			assert.Equal(t, "9", inline.Items[0].Key.ID)
			assert.Equal(t, "pk01", inline.Items[0].Key.PK)

			parameterized, err := ds.ExecuteStatement(ctx,
				"QUERY * FROM "+coll+" WHERE "+complexCondition1WithParams, complexCondition1Params())
			require.NoError(t, err)
			require.Len(t, parameterized.Items, 1)
			assert.Equal(t, inline.Items[0].Key, parameterized.Items[0].Key)
		})
	}
}

// Scenario 4: update with multiple mutators in one SET clause.
func TestScenario4_UpdateWithMultipleMutators(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			ds := bc.build(t)
			ctx := context.Background()
			key := store.Key{PK: "pkS4", ID: "8"}
			doc := value.Map().
				Set("int", value.Int(8)).
				Set("str", value.String("eight")).
				Set("float", value.Float(1.4)).
				Set("obj", value.Map().Set("nint", value.Int(-800)).Build()).
				Set("bool", value.Bool(true)).
				Build()
			putDoc(t, ds, key, doc)

			set := `int=put(99), str=put('new nine'), obj.nstr=put('90'), float=insert(1.9),
				newint=insert(999), obj.nnewstr=insert(null), bool=delete(), obj.narr=delete(),
				arrint=put([1,2,3]), newobj=put({"int":90,"str":"ninety"})`
			resp, err := ds.ExecuteStatement(ctx,
				"UPDATE KEY('"+key.PK+"', '"+key.ID+"') SET "+set+" INTO "+coll+" RETURNING new", nil)
			require.NoError(t, err)
			require.NotNil(t, resp.Item)
			v := resp.Item.Value

			i, _ := v.Field("int")
			n, _ := i.Int()
			assert.EqualValues(t, 99, n, "put() overwrites unconditionally")

			s, _ := v.Field("str")
			sv, _ := s.String()
			assert.Equal(t, "new nine", sv, "put() overwrites unconditionally")

			f, _ := v.Field("float")
			fv, _ := f.Number()
			assert.Equal(t, 1.4, fv, "insert() is a no-op when the field already exists")

			ni, ok := v.Field("newint")
			require.True(t, ok)
			niv, _ := ni.Int()
			assert.EqualValues(t, 999, niv, "insert() sets an absent field")

			_, hasBool := v.Field("bool")
			assert.False(t, hasBool, "delete() removes the field")

			obj, ok := v.Field("obj")
			require.True(t, ok)
			_, hasNarr := obj.Field("narr")
			assert.False(t, hasNarr, "delete() removes a nested field")
			nstr, _ := obj.Field("nstr")
			nstrv, _ := nstr.String()
			assert.Equal(t, "90", nstrv)
			nnewstr, hasNnewstr := obj.Field("nnewstr")
			require.True(t, hasNnewstr, "insert() sets an absent nested field, even to null")
			assert.True(t, nnewstr.IsNull())

			arrint, ok := v.Field("arrint")
			require.True(t, ok)
			arr, _ := arrint.Array()
			require.Len(t, arr, 3)

			newobj, ok := v.Field("newobj")
			require.True(t, ok)
			newobjInt, _ := newobj.Field("int")
			newobjIntV, _ := newobjInt.Int()
			assert.EqualValues(t, 90, newobjIntV)
		})
	}
}

// Scenario 5: transaction atomicity when one precondition fails.
func TestScenario5_TransactionAtomicityAbortsOnFailedPrecondition(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			ds := bc.build(t)
			ctx := context.Background()

			doc7 := canonicalDocument(7)
			doc8 := canonicalDocument(8)
			doc9 := canonicalDocument(9)
			key6, key7, key8, key9 := fixtureKey(6), fixtureKey(7), fixtureKey(8), fixtureKey(9)
			putDoc(t, ds, key7, doc7)
			putDoc(t, ds, key8, doc8)
			putDoc(t, ds, key9, doc9)

			_, err := ds.ExecuteStatement(ctx, `TRANSACT
				PUT KEY('`+key6.PK+`', '`+key6.ID+`') VALUE({"v":1}) INTO `+coll+` WHERE NOT_EXISTS();
				PUT KEY('`+key7.PK+`', '`+key7.ID+`') VALUE({"v":1}) INTO `+coll+` WHERE EXISTS();
				DELETE KEY('`+key8.PK+`', '`+key8.ID+`') FROM `+coll+` WHERE `+complexCondition2+`;
				UPDATE KEY('`+key9.PK+`', '`+key9.ID+`') SET int=put(1) INTO `+coll+` WHERE `+badComplexCondition1+`
				END`, nil)
			require.Error(t, err)
			assert.True(t, docerrors.Is(err, docerrors.Conflict))

			_, err = ds.Execute(ctx, store.Operation{Verb: store.VerbGet, Key: &key6})
			assert.True(t, docerrors.Is(err, docerrors.NotFound), "document 6 must remain absent")

			for _, k := range []store.Key{key7, key8, key9} {
				resp, err := ds.Execute(ctx, store.Operation{Verb: store.VerbGet, Key: &k})
				require.NoError(t, err, "document %s must remain present, unchanged", k.ID)
				iv, _ := resp.Item.Value.Field("int")
				n, _ := iv.Int()
				assert.NotEqual(t, int64(1), n, "the transaction must not have applied its own writes")
			}
		})
	}
}

// Scenario 6: batch independence.
func TestScenario6_BatchIndependence(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			ds := bc.build(t)
			ctx := context.Background()

			var ops []store.Operation
			keys := make([]store.Key, 5)
			for i := 0; i < 5; i++ {
				k := store.Key{PK: "pkS6", ID: string(rune('0' + i))}
				keys[i] = k
				ops = append(ops, store.Operation{
					Verb: store.VerbPut, Key: &k, Value: value.Map().Set("i", value.Int(int64(i))).Build(), HasValue: true,
				})
			}

			resp, err := ds.ExecuteBatch(ctx, store.Batch{Collection: coll, Ops: ops})
			require.NoError(t, err)
			require.Len(t, resp.Results, 5)
			for _, r := range resp.Results {
				assert.True(t, r.OK)
				require.NotNil(t, r.Item)
				assert.NotEmpty(t, r.Item.Etag)
			}

			for _, k := range keys {
				_, err := ds.Execute(ctx, store.Operation{Verb: store.VerbGet, Key: &k})
				assert.NoError(t, err)
			}
		})
	}
}
