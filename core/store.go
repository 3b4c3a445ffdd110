package core

import (
	"context"
	"io"
)

// RemoteFile is one entry of the remote application data area. Names are
// not guaranteed to be unique; Id is.
type RemoteFile struct {
	Id       string
	Name     string
	Checksum string
	Size     int64
	Trashed  bool
}

// RemoteStore is the contract every backend implements. Implementations
// page, chunk and retry internally: a call either returns a complete
// result or an error.
type RemoteStore interface {
	// List enumerates every non-folder entry, ordered by name.
	List(ctx context.Context) ([]RemoteFile, error)

	// FindIdByName resolves a name to an id. ok is false when nothing
	// matches. When several entries share the name any one may be returned.
	FindIdByName(ctx context.Context, name string) (id string, ok bool, err error)

	// Put creates or updates the entry named name with the content of r.
	Put(ctx context.Context, name string, r io.Reader, size int64) (string, error)

	// Get writes the full content of the entry to w.
	Get(ctx context.Context, id string, w io.Writer) error

	Delete(ctx context.Context, id string) error
}

// liveFiles drops trashed entries, which take no part in reconciliation.
func liveFiles(files []RemoteFile) []RemoteFile {
	result := make([]RemoteFile, 0, len(files))
	for _, f := range files {
		if !f.Trashed {
			result = append(result, f)
		}
	}

	return result
}
