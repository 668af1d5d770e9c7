package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brain2labs/docstore/backend/memory"
	"github.com/brain2labs/docstore/docerrors"
	"github.com/brain2labs/docstore/store"
)

func TestKV_PutGetDelete(t *testing.T) {
	ds := store.New(memory.New())
	kv := store.NewKV(ds, "blobs")
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "greeting", []byte("hello")))

	got, err := kv.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	require.NoError(t, kv.Delete(ctx, "greeting"))
	_, err = kv.Get(ctx, "greeting")
	assert.True(t, docerrors.Is(err, docerrors.NotFound))
}

func TestKV_DeleteOfAbsentKeySucceeds(t *testing.T) {
	ds := store.New(memory.New())
	kv := store.NewKV(ds, "blobs")
	assert.NoError(t, kv.Delete(context.Background(), "never-existed"))
}
