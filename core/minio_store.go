package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore keeps files as objects directly under a prefix of an
// S3-compatible bucket. The object key is the id.
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinioStore(ctx context.Context, cfg *MinioConfig) (*MinioStore, error) {
	if cfg == nil || cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio store requires an endpoint and a bucket")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.Secure,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		Log.WithField("bucket", cfg.Bucket).Info("Creating bucket")
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: normalizePrefix(cfg.Prefix),
	}, nil
}

func (s *MinioStore) List(ctx context.Context) ([]RemoteFile, error) {
	result := []RemoteFile{}
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: false,
	})
	for obj := range objects {
		if obj.Err != nil {
			return nil, obj.Err
		}

		name, ok := s.nameForKey(obj.Key)
		if !ok {
			continue
		}

		result = append(result, RemoteFile{
			Id:       obj.Key,
			Name:     name,
			Checksum: strings.Trim(obj.ETag, `"`),
			Size:     obj.Size,
		})
	}

	return result, nil
}

func (s *MinioStore) FindIdByName(ctx context.Context, name string) (string, bool, error) {
	if err := checkName(name); err != nil {
		return "", false, err
	}

	key := s.prefix + name
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", false, nil
		}
		return "", false, err
	}

	return key, true, nil
}

func (s *MinioStore) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}

	key := s.prefix + name
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	Log.WithField("key", key).WithField("size", humanize.Bytes(uint64(info.Size))).Debug("Uploaded object")
	return key, nil
}

func (s *MinioStore) Get(ctx context.Context, id string, w io.Writer) error {
	obj, err := s.client.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()

	_, err = io.Copy(w, obj)
	return err
}

func (s *MinioStore) Delete(ctx context.Context, id string) error {
	return s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{})
}

// nameForKey maps an object key to a file name. Keys of nested objects and
// folder markers have no file name.
func (s *MinioStore) nameForKey(key string) (string, bool) {
	name := strings.TrimPrefix(key, s.prefix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}

	return name, true
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}

	return prefix + "/"
}
