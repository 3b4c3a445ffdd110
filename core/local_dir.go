package core

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

type LocalFile struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// LocalDir is the sync directory. Only regular files directly inside it are
// considered; nested folders are not supported.
type LocalDir struct {
	fs   afero.Fs
	root string
}

func NewLocalDir(fs afero.Fs, root string) *LocalDir {
	return &LocalDir{
		fs:   fs,
		root: root,
	}
}

func NewOsLocalDir(root string) *LocalDir {
	return NewLocalDir(afero.NewOsFs(), root)
}

func (d *LocalDir) Root() string {
	return d.root
}

func (d *LocalDir) Ensure() error {
	return d.fs.MkdirAll(d.root, os.ModePerm)
}

func (d *LocalDir) Path(name string) string {
	return filepath.Join(d.root, name)
}

// List returns the files of the sync directory sorted by name.
func (d *LocalDir) List() ([]LocalFile, error) {
	infos, err := afero.ReadDir(d.fs, d.root)
	if err != nil {
		return nil, err
	}

	result := []LocalFile{}
	for _, info := range infos {
		if info.IsDir() {
			continue
		}

		result = append(result, LocalFile{
			Name:    info.Name(),
			Path:    d.Path(info.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (d *LocalDir) Stat(name string) (LocalFile, error) {
	if err := checkName(name); err != nil {
		return LocalFile{}, err
	}

	info, err := d.fs.Stat(d.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return LocalFile{}, FileNotFound{Path: d.Path(name)}
		}
		return LocalFile{}, err
	}

	return LocalFile{
		Name:    name,
		Path:    d.Path(name),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (d *LocalDir) Open(name string) (afero.File, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	return d.fs.Open(d.Path(name))
}

// Create truncates or creates the named file for writing.
func (d *LocalDir) Create(name string) (afero.File, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	return d.fs.Create(d.Path(name))
}

// Replace writes the named file through a temporary file in the sync
// directory. The existing file is only swapped out once fill succeeds.
func (d *LocalDir) Replace(name string, fill func(w io.Writer) error) error {
	if err := checkName(name); err != nil {
		return err
	}

	tmp, err := afero.TempFile(d.fs, d.root, "."+name+".*.partial")
	if err != nil {
		return err
	}

	err = fill(tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = d.fs.Rename(tmp.Name(), d.Path(name))
	}
	if err != nil {
		if removeErr := d.fs.Remove(tmp.Name()); removeErr != nil {
			Log.WithError(removeErr).WithField("path", tmp.Name()).Warn("Unable to remove partial download")
		}
		return err
	}

	return nil
}

func (d *LocalDir) Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}

	path := d.Path(name)
	if _, err := d.fs.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return FileNotFound{Path: path}
	}

	return d.fs.Remove(path)
}

func hashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsRune(name, '/') || strings.ContainsRune(name, os.PathSeparator) {
		return UnsafeNameError{Name: name}
	}

	return nil
}
