package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplesync/core"
)

func newCliReconciler(t *testing.T) (*core.Reconciler, core.RemoteStore, *core.LocalDir) {
	local := core.NewLocalDir(afero.NewMemMapFs(), "sync")
	require.NoError(t, local.Ensure())
	store := core.NewMemStore()
	return core.NewReconciler(store, local, nil), store, local
}

func writeFile(t *testing.T, local *core.LocalDir, name string, content string) {
	f, err := local.Create(name)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestCliMainSingleFileOperations(t *testing.T) {
	ctx := context.Background()
	r, store, local := newCliReconciler(t)
	writeFile(t, local, "save.dat", "progress")

	var out bytes.Buffer
	err := CliMain(ctx, r, &Options{UploadFile: []string{"save.dat"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Uploaded save.dat\n", out.String())

	_, ok, err := store.FindIdByName(ctx, "save.dat")
	require.NoError(t, err)
	assert.True(t, ok)

	out.Reset()
	err = CliMain(ctx, r, &Options{DeleteLocal: []string{"save.dat"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Deleted save.dat\n", out.String())

	files, err := local.List()
	require.NoError(t, err)
	assert.Empty(t, files)

	out.Reset()
	err = CliMain(ctx, r, &Options{DownloadFile: []string{"save.dat", "other.dat"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Downloaded save.dat\nNo file named other.dat in drive\n", out.String())

	files, err = local.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "save.dat", files[0].Name)

	out.Reset()
	err = CliMain(ctx, r, &Options{DeleteRemote: []string{"save.dat", "save.dat"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Deleted save.dat from drive\nNo file named save.dat in drive\n", out.String())
}

func TestCliMainStopsOnMissingLocalFile(t *testing.T) {
	r, _, _ := newCliReconciler(t)

	var out bytes.Buffer
	err := CliMain(context.Background(), r, &Options{UploadFile: []string{"missing.dat", "next.dat"}}, &out)
	assert.Error(t, err)
	assert.False(t, strings.Contains(out.String(), "Uploaded"))
}
