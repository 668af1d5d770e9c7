package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brain2labs/docstore/lang"
	"github.com/brain2labs/docstore/path"
	"github.com/brain2labs/docstore/value"
)

func pgGet(doc value.Value, dotted string) (value.Value, error) {
	return path.Get(doc, path.MustParse(dotted))
}

func mustWhere(t *testing.T, text string) lang.Expr {
	t.Helper()
	e, err := lang.ParseWhere(text)
	require.NoError(t, err)
	return e
}

func widget() value.Value {
	return value.Map().
		Set("name", value.String("widget")).
		Set("price", value.Int(25)).
		Set("tags", value.Array(value.String("red"), value.String("small"))).
		Set("active", value.Bool(true)).
		Build()
}

func TestEvalWhere_NilExprIsTrue(t *testing.T) {
	ok, err := EvalWhere(nil, widget())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalWhere_Comparison(t *testing.T) {
	ok, err := EvalWhere(mustWhere(t, "price > 10"), widget())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvalWhere(mustWhere(t, "price > 100"), widget())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalWhere_NumericCrossTypeEquality(t *testing.T) {
	doc := value.Map().Set("n", value.Float(3.0)).Build()
	ok, err := EvalWhere(mustWhere(t, "n = 3"), doc)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalWhere_TypeMismatchComparesFalse(t *testing.T) {
	ok, err := EvalWhere(mustWhere(t, "name > 10"), widget())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalWhere_UndefinedFieldEquality(t *testing.T) {
	ok, err := EvalWhere(mustWhere(t, "missing = 1"), widget())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = EvalWhere(mustWhere(t, "missing != 1"), widget())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalWhere_AndOrShortCircuit(t *testing.T) {
	ok, err := EvalWhere(mustWhere(t, "price > 10 AND active = true"), widget())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvalWhere(mustWhere(t, "price > 100 OR active = true"), widget())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalWhere_Not(t *testing.T) {
	ok, err := EvalWhere(mustWhere(t, "NOT (price > 100)"), widget())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalWhere_InAndNotIn(t *testing.T) {
	ok, err := EvalWhere(mustWhere(t, "price IN (25, 30)"), widget())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvalWhere(mustWhere(t, "price NOT IN (25, 30)"), widget())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalWhere_Between(t *testing.T) {
	ok, err := EvalWhere(mustWhere(t, "price BETWEEN 20 AND 30"), widget())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvalWhere(mustWhere(t, "price BETWEEN 30 AND 40"), widget())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalWhere_ExistsAndNotExists(t *testing.T) {
	ok, err := EvalWhere(mustWhere(t, "exists()"), widget())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvalWhere(mustWhere(t, "not_exists()"), value.Null())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalWhere_IsDefinedAndIsNotDefined(t *testing.T) {
	ok, err := EvalWhere(mustWhere(t, "is_defined(price)"), widget())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvalWhere(mustWhere(t, "is_not_defined(missing)"), widget())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalWhere_IsType(t *testing.T) {
	ok, err := EvalWhere(mustWhere(t, "is_type(price, 'number')"), widget())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvalWhere(mustWhere(t, "is_type(name, 'number')"), widget())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalWhere_ContainsAndStartsWith(t *testing.T) {
	ok, err := EvalWhere(mustWhere(t, "contains(name, 'idg')"), widget())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvalWhere(mustWhere(t, "starts_with(name, 'wid')"), widget())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvalWhere(mustWhere(t, "starts_with(name, 'dge')"), widget())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalWhere_ArrayContainsAndContainsAny(t *testing.T) {
	ok, err := EvalWhere(mustWhere(t, "array_contains(tags, 'red')"), widget())
	require.NoError(t, err)
	assert.True(t, ok)

	doc2 := value.Map().Set("tags", value.Array(value.String("blue"))).Build()
	ok, err = EvalWhere(mustWhere(t, "array_contains(tags, 'red')"), doc2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalWhere_LengthAndArrayLength(t *testing.T) {
	ok, err := EvalWhere(mustWhere(t, "length(name) = 6"), widget())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvalWhere(mustWhere(t, "array_length(tags) = 2"), widget())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestApplySet_PutAndIncrement(t *testing.T) {
	assigns, err := lang.ParseSet("name = put('gizmo'), price = increment(5)")
	require.NoError(t, err)
	out, err := ApplySet(assigns, widget())
	require.NoError(t, err)

	n, err := pathGetString(out, "name")
	require.NoError(t, err)
	assert.Equal(t, "gizmo", n)

	p, err := pathGetInt(out, "price")
	require.NoError(t, err)
	assert.Equal(t, int64(30), p)
}

func TestApplySet_PutAfterIncrementReadsOriginalSnapshot(t *testing.T) {
	// put(price) runs after price = increment(5) but reads "price" from the
	// pre-image, not the increment's output: other lands at 25, not 30.
	assigns, err := lang.ParseSet("price = increment(5), other = put(price)")
	require.NoError(t, err)
	out, err := ApplySet(assigns, widget())
	require.NoError(t, err)

	other, err := pathGetInt(out, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(25), other, "put(price) must see the pre-image price, not any earlier assignment's result")
}

func TestApplySet_IncrementProducesFloatWhenDeltaIsFloat(t *testing.T) {
	assigns, err := lang.ParseSet("price = increment(0.5)")
	require.NoError(t, err)
	out, err := ApplySet(assigns, widget())
	require.NoError(t, err)
	v, err := pathGetValue(out, "price")
	require.NoError(t, err)
	f, ok := v.Number()
	require.True(t, ok)
	assert.Equal(t, 25.5, f)
}

func TestApplySet_Delete(t *testing.T) {
	assigns, err := lang.ParseSet("price = delete()")
	require.NoError(t, err)
	out, err := ApplySet(assigns, widget())
	require.NoError(t, err)
	_, err = pathGetValue(out, "price")
	assert.Error(t, err)
}

func TestApplySet_Append(t *testing.T) {
	assigns, err := lang.ParseSet("name = append('-pro')")
	require.NoError(t, err)
	out, err := ApplySet(assigns, widget())
	require.NoError(t, err)
	n, err := pathGetString(out, "name")
	require.NoError(t, err)
	assert.Equal(t, "widget-pro", n)
}

func TestApplySet_ArrayUnionDedupes(t *testing.T) {
	assigns, err := lang.ParseSet("tags = array_union(['red', 'blue'])")
	require.NoError(t, err)
	out, err := ApplySet(assigns, widget())
	require.NoError(t, err)
	v, err := pathGetValue(out, "tags")
	require.NoError(t, err)
	arr, _ := v.Array()
	require.Len(t, arr, 3)
}

func TestApplySet_ArrayRemove(t *testing.T) {
	assigns, err := lang.ParseSet("tags = array_remove(['red'])")
	require.NoError(t, err)
	out, err := ApplySet(assigns, widget())
	require.NoError(t, err)
	v, err := pathGetValue(out, "tags")
	require.NoError(t, err)
	arr, _ := v.Array()
	require.Len(t, arr, 1)
	s, _ := arr[0].String()
	assert.Equal(t, "small", s)
}

func TestApplySet_Move(t *testing.T) {
	assigns, err := lang.ParseSet("renamed = move(name)")
	require.NoError(t, err)
	out, err := ApplySet(assigns, widget())
	require.NoError(t, err)
	_, err = pathGetValue(out, "name")
	assert.Error(t, err)
	s, err := pathGetString(out, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "widget", s)
}

func TestApplySet_MoveReadsOriginalSnapshot(t *testing.T) {
	// name is overwritten by the first assignment before the move() in the
	// second assignment runs; move() must still read name's pre-image, not
	// the first assignment's result, even though the move itself then
	// deletes whatever "name" holds in the accumulating result.
	assigns, err := lang.ParseSet("name = put('replaced'), renamed = move(name)")
	require.NoError(t, err)
	out, err := ApplySet(assigns, widget())
	require.NoError(t, err)

	_, err = pathGetValue(out, "name")
	assert.Error(t, err, "move() deletes its source path from the result")

	s, err := pathGetString(out, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "widget", s, "move() must read name's pre-image, not the earlier assignment's write")
}

func TestApplySet_InsertOnlyIfAbsent(t *testing.T) {
	assigns, err := lang.ParseSet("name = insert('ignored')")
	require.NoError(t, err)
	out, err := ApplySet(assigns, widget())
	require.NoError(t, err)
	n, err := pathGetString(out, "name")
	require.NoError(t, err)
	assert.Equal(t, "widget", n, "insert() must not overwrite an existing field")
}

// pathGet* helpers exercise ApplySet's results through the same path
// package the evaluator itself uses.
func pathGetValue(doc value.Value, dotted string) (value.Value, error) {
	return pgGet(doc, dotted)
}

func pathGetString(doc value.Value, dotted string) (string, error) {
	v, err := pgGet(doc, dotted)
	if err != nil {
		return "", err
	}
	s, _ := v.String()
	return s, nil
}

func pathGetInt(doc value.Value, dotted string) (int64, error) {
	v, err := pgGet(doc, dotted)
	if err != nil {
		return 0, err
	}
	n, _ := v.Int()
	return n, nil
}
