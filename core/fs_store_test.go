package core

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFsStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFsStore(afero.NewMemMapFs(), "remote")
	require.NoError(t, err)

	putRemote(t, store, "b.txt", "second")
	putRemote(t, store, "a.txt", "first")

	files, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].Name)
	assert.Equal(t, "a.txt", files[0].Id)
	assert.Equal(t, int64(5), files[0].Size)
	assert.Len(t, files[0].Checksum, 64)
	assert.NotEqual(t, files[0].Checksum, files[1].Checksum)

	var buf bytes.Buffer
	require.NoError(t, store.Get(ctx, "b.txt", &buf))
	assert.Equal(t, "second", buf.String())

	require.NoError(t, store.Delete(ctx, "a.txt"))
	_, ok, err := store.FindIdByName(ctx, "a.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFsStorePutReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	putRemote(t, store, "a.txt", "a much longer first version")
	putRemote(t, store, "a.txt", "short")

	files, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "short", readRemote(t, store, "a.txt"))
}

func TestFsStoreIgnoresFolders(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("remote/folder", 0755))
	store, err := NewFsStore(fs, "remote")
	require.NoError(t, err)

	files, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, ok, err := store.FindIdByName(ctx, "folder")
	require.NoError(t, err)
	assert.False(t, ok)
}
