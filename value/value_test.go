package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual_NumericCrossesIntFloat(t *testing.T) {
	assert.True(t, Equal(Int(3), Float(3.0)))
	assert.False(t, Equal(Int(3), Float(3.5)))
}

func TestEqual_MapIgnoresKeyOrder(t *testing.T) {
	a := Map().Set("x", Int(1)).Set("y", Int(2)).Build()
	b := Map().Set("y", Int(2)).Set("x", Int(1)).Build()
	assert.True(t, Equal(a, b))
}

func TestEqual_ArrayOrderMatters(t *testing.T) {
	a := Array(Int(1), Int(2))
	b := Array(Int(2), Int(1))
	assert.False(t, Equal(a, b))
}

func TestEqual_TypeMismatchIsFalse(t *testing.T) {
	assert.False(t, Equal(String("1"), Int(1)))
	assert.False(t, Equal(Null(), Bool(false)))
}

func TestCompare_NumericCrossesIntFloat(t *testing.T) {
	cmp, ok := Compare(Int(1), Float(2.5))
	require.True(t, ok)
	assert.Equal(t, -1, cmp)
}

func TestCompare_TypeMismatchNotOK(t *testing.T) {
	_, ok := Compare(String("a"), Int(1))
	assert.False(t, ok)
}

func TestCompare_StringLexicographic(t *testing.T) {
	cmp, ok := Compare(String("apple"), String("banana"))
	require.True(t, ok)
	assert.Equal(t, -1, cmp)
}

func TestMapBuilder_PreservesInsertionOrder(t *testing.T) {
	v := Map().Set("b", Int(1)).Set("a", Int(2)).Set("b", Int(3)).Build()
	assert.Equal(t, []string{"b", "a"}, v.Keys())
	got, ok := v.Field("b")
	require.True(t, ok)
	n, _ := got.Int()
	assert.Equal(t, int64(3), n)
}

func TestWithFieldAndWithoutField(t *testing.T) {
	v := Map().Set("a", Int(1)).Build()
	v2 := v.WithField("b", Int(2))
	assert.Equal(t, []string{"a", "b"}, v2.Keys())

	v3 := v2.WithoutField("a")
	assert.Equal(t, []string{"b"}, v3.Keys())
	_, ok := v3.Field("a")
	assert.False(t, ok)
}

func TestInt_TruncatesWholeFloats(t *testing.T) {
	n, ok := Float(4.0).Int()
	require.True(t, ok)
	assert.Equal(t, int64(4), n)

	_, ok = Float(4.5).Int()
	assert.False(t, ok)
}

func TestGoValueRoundTrip(t *testing.T) {
	original := Map().
		Set("name", String("ada")).
		Set("age", Int(36)).
		Set("tags", Array(String("x"), String("y"))).
		Set("active", Bool(true)).
		Set("nil", Null()).
		Build()

	round, err := FromGoValue(GoValue(original))
	require.NoError(t, err)
	assert.True(t, Equal(original, round))
}

func TestFromGoValue_UnsupportedType(t *testing.T) {
	_, err := FromGoValue(make(chan int))
	assert.Error(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "number", KindInt.String())
	assert.Equal(t, "number", KindFloat.String())
	assert.Equal(t, "object", KindMap.String())
}
