package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brain2labs/docstore/backend/memory"
	"github.com/brain2labs/docstore/docerrors"
	"github.com/brain2labs/docstore/store"
	"github.com/brain2labs/docstore/value"
)

func newStore(t *testing.T) *store.DocumentStore {
	t.Helper()
	return store.New(memory.New(), store.WithDefaultCollection("widgets"))
}

func TestExecute_PutThenGet(t *testing.T) {
	ds := newStore(t)
	ctx := context.Background()

	body := value.Map().Set("name", value.String("widget")).Build()
	_, err := ds.Execute(ctx, store.Operation{
		Verb:     store.VerbPut,
		Key:      &store.Key{PK: "pk00", ID: "id0"},
		Value:    body,
		HasValue: true,
	})
	require.NoError(t, err)

	resp, err := ds.Execute(ctx, store.Operation{
		Verb: store.VerbGet,
		Key:  &store.Key{PK: "pk00", ID: "id0"},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Item)
	n, _ := resp.Item.Value.Field("name")
	s, _ := n.String()
	assert.Equal(t, "widget", s)
}

func TestExecute_GetMissingReturnsNotFound(t *testing.T) {
	ds := newStore(t)
	_, err := ds.Execute(context.Background(), store.Operation{
		Verb: store.VerbGet,
		Key:  &store.Key{PK: "pk00", ID: "missing"},
	})
	require.Error(t, err)
	assert.True(t, docerrors.Is(err, docerrors.NotFound))
}

func TestExecute_RejectsBatchVerb(t *testing.T) {
	ds := newStore(t)
	_, err := ds.Execute(context.Background(), store.Operation{Verb: store.VerbBatch})
	require.Error(t, err)
	assert.True(t, docerrors.Is(err, docerrors.BadRequest))
}

func TestExecute_ValidationRejectsMissingVerb(t *testing.T) {
	ds := newStore(t)
	_, err := ds.Execute(context.Background(), store.Operation{})
	require.Error(t, err)
	assert.True(t, docerrors.Is(err, docerrors.BadRequest))
}

func TestExecute_QueryWithWhereAndOrderBy(t *testing.T) {
	ds := newStore(t)
	ctx := context.Background()
	for i, price := range []int64{10, 30, 20} {
		_, err := ds.Execute(ctx, store.Operation{
			Verb:     store.VerbPut,
			Key:      &store.Key{PK: "pk00", ID: idOf(i)},
			Value:    value.Map().Set("price", value.Int(price)).Build(),
			HasValue: true,
		})
		require.NoError(t, err)
	}
	resp, err := ds.Execute(ctx, store.Operation{
		Verb:       store.VerbQuery,
		Where:      "price >= 20",
		OrderByStr: "ORDER BY price ASC",
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	p0, _ := mustField(resp.Items[0].Value, "price").Int()
	p1, _ := mustField(resp.Items[1].Value, "price").Int()
	assert.Equal(t, int64(20), p0)
	assert.Equal(t, int64(30), p1)
}

func TestExecute_CountHonorsWhere(t *testing.T) {
	ds := newStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := ds.Execute(ctx, store.Operation{
			Verb:     store.VerbPut,
			Key:      &store.Key{PK: "pk00", ID: idOf(i)},
			Value:    value.Map().Set("active", value.Bool(i != 1)).Build(),
			HasValue: true,
		})
		require.NoError(t, err)
	}
	resp, err := ds.Execute(ctx, store.Operation{Verb: store.VerbCount, Where: "active = true"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Count)
}

func TestExecute_UpdateSetIncrement(t *testing.T) {
	ds := newStore(t)
	ctx := context.Background()
	_, err := ds.Execute(ctx, store.Operation{
		Verb:     store.VerbPut,
		Key:      &store.Key{PK: "pk00", ID: "id0"},
		Value:    value.Map().Set("count", value.Int(1)).Build(),
		HasValue: true,
	})
	require.NoError(t, err)

	resp, err := ds.Execute(ctx, store.Operation{
		Verb:      store.VerbUpdate,
		Key:       &store.Key{PK: "pk00", ID: "id0"},
		Set:       "count = increment(4)",
		Returning: store.ReturningNew,
	})
	require.NoError(t, err)
	n, _ := mustField(resp.Item.Value, "count").Int()
	assert.Equal(t, int64(5), n)
}

func TestExecuteBatch_PartialFailureDoesNotAbortOthers(t *testing.T) {
	ds := newStore(t)
	ctx := context.Background()
	// an UPDATE against a nonexistent key fails its own slot but must not
	// stop the PUT alongside it from committing (spec.md §4.2: BATCH items
	// apply independently).
	resp, err := ds.ExecuteBatch(ctx, store.Batch{
		Ops: []store.Operation{
			{Verb: store.VerbPut, Key: &store.Key{PK: "pk00", ID: "id0"}, Value: value.Int(1), HasValue: true},
			{Verb: store.VerbUpdate, Key: &store.Key{PK: "pk00", ID: "missing"}, Set: "n = increment(1)"},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.True(t, resp.Results[0].OK)
	assert.False(t, resp.Results[1].OK)
	assert.Error(t, resp.Results[1].Err)

	_, err = ds.Execute(ctx, store.Operation{Verb: store.VerbGet, Key: &store.Key{PK: "pk00", ID: "id0"}})
	assert.NoError(t, err, "the PUT in the same batch must have committed despite the other slot's failure")
}

func TestExecuteTransact_AbortsAllOnFailure(t *testing.T) {
	ds := newStore(t)
	ctx := context.Background()
	// the second op's WHERE can never hold against a nonexistent record, so
	// the whole transaction must abort, including the first op's PUT.
	_, err := ds.ExecuteTransact(ctx, store.Transaction{
		Ops: []store.Operation{
			{Verb: store.VerbPut, Key: &store.Key{PK: "pk00", ID: "id0"}, Value: value.Int(1), HasValue: true},
			{Verb: store.VerbDelete, Key: &store.Key{PK: "pk00", ID: "missing"}, Where: "price = 5"},
		},
	})
	require.Error(t, err)
	assert.True(t, docerrors.Is(err, docerrors.Conflict))

	// the PUT to id0 must not have committed since the transaction aborted.
	_, err = ds.Execute(ctx, store.Operation{Verb: store.VerbGet, Key: &store.Key{PK: "pk00", ID: "id0"}})
	assert.True(t, docerrors.Is(err, docerrors.NotFound))
}

func TestExecuteStatement_MatchesStructuredOperation(t *testing.T) {
	ds := newStore(t)
	ctx := context.Background()
	_, err := ds.ExecuteStatement(ctx, "PUT KEY(@pk, @id) VALUE(@v) INTO widgets", map[string]value.Value{
		"pk": value.String("pk00"),
		"id": value.String("id0"),
		"v":  value.Map().Set("name", value.String("widget")).Build(),
	})
	require.NoError(t, err)

	resp, err := ds.ExecuteStatement(ctx, "GET KEY('pk00', 'id0') FROM widgets", nil)
	require.NoError(t, err)
	s, _ := mustField(resp.Item.Value, "name").String()
	assert.Equal(t, "widget", s)
}

func TestExecuteStatement_BatchBlock(t *testing.T) {
	ds := newStore(t)
	ctx := context.Background()
	resp, err := ds.ExecuteStatement(ctx,
		"BATCH PUT KEY('pk00', 'id0') VALUE(1) INTO widgets; PUT KEY('pk00', 'id1') VALUE(2) INTO widgets END", nil)
	require.NoError(t, err)
	assert.Equal(t, store.VerbBatch, resp.Verb)
	require.Len(t, resp.Results, 2)
	assert.True(t, resp.Results[0].OK)
	assert.True(t, resp.Results[1].OK)
}

func TestExecuteStatement_ParseErrorIsBadRequest(t *testing.T) {
	ds := newStore(t)
	_, err := ds.ExecuteStatement(context.Background(), "NOT A STATEMENT", nil)
	require.Error(t, err)
	assert.True(t, docerrors.Is(err, docerrors.BadRequest))
}

func TestCheckCapabilities_RejectsUnsupportedFeature(t *testing.T) {
	ds := store.New(limitedAdapter{memory.New()}, store.WithDefaultCollection("widgets"))
	_, err := ds.Execute(context.Background(), store.Operation{
		Verb:  store.VerbCount,
		Where: "contains(name, 'wid')",
	})
	require.Error(t, err)
	assert.True(t, docerrors.Is(err, docerrors.NotSupported))
}

// limitedAdapter wraps the memory backend but reports none of its
// capabilities, exercising the facade's pre-dispatch feature check.
type limitedAdapter struct{ *memory.Backend }

func (limitedAdapter) Supports(f store.Feature) bool { return false }

func idOf(i int) string {
	return string(rune('0' + i))
}

func mustField(v value.Value, name string) value.Value {
	f, _ := v.Field(name)
	return f
}
