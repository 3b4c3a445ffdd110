package core

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

const LocalStoreDefault = "SimpleSyncLocalStore"

// FsStore keeps the remote area in a directory of an afero.Fs. It backs the
// "local" store and, over afero.NewMemMapFs(), the tests. The id of a file
// is its name since a directory cannot hold duplicates.
type FsStore struct {
	fs   afero.Fs
	root string
}

func NewFsStore(fs afero.Fs, root string) (*FsStore, error) {
	if err := fs.MkdirAll(root, os.ModePerm); err != nil {
		return nil, err
	}

	return &FsStore{
		fs:   fs,
		root: root,
	}, nil
}

func NewMemStore() *FsStore {
	store, err := NewFsStore(afero.NewMemMapFs(), "remote")
	if err != nil {
		// MkdirAll on a MemMapFs does not fail.
		panic(err)
	}

	return store
}

func DefaultLocalStoreRoot() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(cacheDir, APP_NAME, LocalStoreDefault), nil
}

func (s *FsStore) List(ctx context.Context) ([]RemoteFile, error) {
	infos, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, err
	}

	result := []RemoteFile{}
	for _, info := range infos {
		if info.IsDir() {
			continue
		}

		checksum, err := s.checksum(info.Name())
		if err != nil {
			return nil, err
		}

		result = append(result, RemoteFile{
			Id:       info.Name(),
			Name:     info.Name(),
			Checksum: checksum,
			Size:     info.Size(),
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *FsStore) FindIdByName(ctx context.Context, name string) (string, bool, error) {
	if err := checkName(name); err != nil {
		return "", false, err
	}

	info, err := s.fs.Stat(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if info.IsDir() {
		return "", false, nil
	}

	return name, true, nil
}

func (s *FsStore) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}

	out, err := s.fs.Create(s.path(name))
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return "", err
	}

	if err := out.Close(); err != nil {
		return "", err
	}

	Log.WithField("name", name).Debug("Stored file")
	return name, nil
}

func (s *FsStore) Get(ctx context.Context, id string, w io.Writer) error {
	if err := checkName(id); err != nil {
		return err
	}

	in, err := s.fs.Open(s.path(id))
	if err != nil {
		return err
	}
	defer in.Close()

	_, err = io.Copy(w, in)
	return err
}

func (s *FsStore) Delete(ctx context.Context, id string) error {
	if err := checkName(id); err != nil {
		return err
	}

	return s.fs.Remove(s.path(id))
}

func (s *FsStore) path(name string) string {
	return filepath.Join(s.root, name)
}

func (s *FsStore) checksum(name string) (string, error) {
	f, err := s.fs.Open(s.path(name))
	if err != nil {
		return "", err
	}
	defer f.Close()

	return hashReader(f)
}
