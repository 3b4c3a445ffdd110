package core

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	appDataFolder = "appDataFolder"
	folderMime    = "application/vnd.google-apps.folder"
	fileFields    = "id, name, md5Checksum, size, trashed"

	// Uploads larger than this are sent in resumable chunks.
	uploadChunkSize = 8 * 1024 * 1024
)

// DriveStore keeps files in the application data folder of the user's
// Google Drive, which is hidden from their normal file listing.
type DriveStore struct {
	srv *drive.Service
}

func NewDriveStore(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*DriveStore, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create drive client: %w", err)
	}

	return &DriveStore{srv: srv}, nil
}

func (d *DriveStore) List(ctx context.Context) ([]RemoteFile, error) {
	result := []RemoteFile{}
	err := d.srv.Files.List().
		Spaces(appDataFolder).
		Q(fmt.Sprintf("mimeType != '%v' and trashed = false", folderMime)).
		OrderBy("name").
		PageSize(1000).
		Fields(googleapi.Field(fmt.Sprintf("nextPageToken, files(%v)", fileFields))).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				result = append(result, toRemoteFile(f))
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (d *DriveStore) FindIdByName(ctx context.Context, name string) (string, bool, error) {
	r, err := d.srv.Files.List().
		Spaces(appDataFolder).
		Q(fmt.Sprintf("name = '%v' and mimeType != '%v' and trashed = false", escapeQuery(name), folderMime)).
		PageSize(1).
		Fields("files(id)").
		Context(ctx).
		Do()
	if err != nil {
		return "", false, err
	}

	if len(r.Files) == 0 {
		return "", false, nil
	}

	return r.Files[0].Id, true, nil
}

func (d *DriveStore) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	fileId, ok, err := d.FindIdByName(ctx, name)
	if err != nil {
		return "", err
	}

	logger := Log.WithField("name", name).WithField("size", humanize.Bytes(uint64(size)))
	if ok {
		res, err := d.srv.Files.Update(fileId, &drive.File{}).
			Media(r, googleapi.ChunkSize(uploadChunkSize)).
			Fields("id").
			Context(ctx).
			Do()
		if err != nil {
			return "", err
		}

		logger.WithField("id", res.Id).Debug("Updated drive file")
		return res.Id, nil
	}

	upload := &drive.File{
		Name:    name,
		Parents: []string{appDataFolder},
	}
	res, err := d.srv.Files.Create(upload).
		Media(r, googleapi.ChunkSize(uploadChunkSize)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}

	logger.WithField("id", res.Id).Debug("Created drive file")
	return res.Id, nil
}

func (d *DriveStore) Get(ctx context.Context, id string, w io.Writer) error {
	res, err := d.srv.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return err
	}
	defer res.Body.Close()

	_, err = io.Copy(w, res.Body)
	return err
}

func (d *DriveStore) Delete(ctx context.Context, id string) error {
	return d.srv.Files.Delete(id).Context(ctx).Do()
}

func toRemoteFile(f *drive.File) RemoteFile {
	return RemoteFile{
		Id:       f.Id,
		Name:     f.Name,
		Checksum: f.Md5Checksum,
		Size:     f.Size,
		Trashed:  f.Trashed,
	}
}

// escapeQuery quotes a value for use inside a single-quoted Drive query
// string.
func escapeQuery(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}
