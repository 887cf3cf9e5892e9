package jsonstore_test

import (
	"context"
	"strings"
	"testing"

	"github.com/sagarc03/s3fs"
	"github.com/sagarc03/s3fs/filesystem"
	"github.com/sagarc03/s3fs/jsonstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name  string   `json:"name"`
	Tags  []string `json:"tags"`
	Count int      `json:"count"`
}

func newJSONStore(t *testing.T) (*jsonstore.Store[profile], *s3fs.Store) {
	t.Helper()

	store, err := filesystem.OpenStore("profiles", filesystem.Options{RootDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return jsonstore.New[profile](store), store
}

func TestJSONStore_CreateAndGetIfMatch(t *testing.T) {
	js, raw := newJSONStore(t)
	ctx := context.Background()

	want := profile{Name: "ada", Tags: []string{"math"}, Count: 1}

	etag, err := js.Create(ctx, "users/ada", want)
	require.NoError(t, err)
	assert.Equal(t, s3fs.ComputeEtag([]byte(`{"name":"ada","tags":["math"],"count":1}`)), etag)

	got, err := js.GetIfMatch(ctx, "users/ada", etag)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	obj, err := raw.GetObject(ctx, "users/ada")
	require.NoError(t, err)
	assert.Equal(t, jsonstore.ContentType, obj.ContentType)
	assert.Equal(t, "profiles", js.Bucket())
}

func TestJSONStore_OptimisticUpdate(t *testing.T) {
	js, _ := newJSONStore(t)
	ctx := context.Background()

	etag, err := js.Create(ctx, "p", profile{Name: "a"})
	require.NoError(t, err)

	current, currentEtag, err := js.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, etag, currentEtag)

	current.Count++
	newEtag, err := js.PutIfMatch(ctx, "p", current, currentEtag)
	require.NoError(t, err)
	assert.NotEqual(t, etag, newEtag)

	_, err = js.PutIfMatch(ctx, "p", current, etag)
	assert.ErrorIs(t, err, s3fs.ErrStale)

	_, err = js.Create(ctx, "p", current)
	assert.ErrorIs(t, err, s3fs.ErrKeyExists)

	err = js.DeleteIfMatch(ctx, "p", etag)
	assert.ErrorIs(t, err, s3fs.ErrStale)

	require.NoError(t, js.DeleteIfMatch(ctx, "p", newEtag))
	require.NoError(t, js.Delete(ctx, "p"))

	_, err = js.GetIfMatch(ctx, "p", newEtag)
	assert.ErrorIs(t, err, s3fs.ErrNotFound)
}

func TestJSONStore_Get_InvalidJSON(t *testing.T) {
	js, raw := newJSONStore(t)
	ctx := context.Background()

	_, err := raw.CreateObject(ctx, "broken", strings.NewReader("{"), "")
	require.NoError(t, err)

	_, _, err = js.Get(ctx, "broken")
	assert.Error(t, err)
	assert.Equal(t, s3fs.KindIO, s3fs.KindOf(err))
}

func TestJSONStore_Create_MarshalError(t *testing.T) {
	store, err := filesystem.OpenStore("funcs", filesystem.Options{RootDir: t.TempDir()})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	js := jsonstore.New[func()](store)

	_, err = js.Create(context.Background(), "f", func() {})
	assert.Error(t, err)
}
