package core

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"/", ""},
		{"sync", "sync/"},
		{"/sync/", "sync/"},
		{"a/b", "a/b/"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizePrefix(tt.input), "prefix %q", tt.input)
	}
}

func TestNameForKey(t *testing.T) {
	s := &MinioStore{prefix: "sync/"}

	name, ok := s.nameForKey("sync/a.txt")
	assert.True(t, ok)
	assert.Equal(t, "a.txt", name)

	_, ok = s.nameForKey("sync/")
	assert.False(t, ok)

	_, ok = s.nameForKey("sync/nested/")
	assert.False(t, ok)
}

func TestNewMinioStoreRequiresBucket(t *testing.T) {
	_, err := NewMinioStore(context.Background(), &MinioConfig{Endpoint: "localhost:9000"})
	assert.Error(t, err)

	_, err = NewMinioStore(context.Background(), nil)
	assert.Error(t, err)
}

// fakeS3 serves the subset of the S3 API the store uses, with path-style
// addressing and anonymous requests.
type fakeS3 struct {
	t       *testing.T
	buckets map[string]bool
	objects map[string][]byte
}

type s3Object struct {
	Key          string
	LastModified string
	ETag         string
	Size         int64
	StorageClass string
}

type s3Prefix struct {
	Prefix string
}

type s3ListResult struct {
	XMLName        xml.Name `xml:"ListBucketResult"`
	Name           string
	Prefix         string
	Delimiter      string
	KeyCount       int
	MaxKeys        int
	IsTruncated    bool
	Contents       []s3Object
	CommonPrefixes []s3Prefix
}

func etagOf(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	query := r.URL.Query()

	if key == "" {
		switch {
		case r.Method == http.MethodGet && query.Has("location"):
			w.Header().Set("Content-Type", "application/xml")
			w.Write([]byte(`<LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/"></LocationConstraint>`))
		case r.Method == http.MethodHead:
			if !f.buckets[bucket] {
				w.WriteHeader(http.StatusNotFound)
			}
		case r.Method == http.MethodPut:
			f.buckets[bucket] = true
		case r.Method == http.MethodGet:
			f.list(w, query.Get("prefix"), query.Get("delimiter"))
		default:
			f.t.Errorf("unexpected request %v %v", r.Method, r.URL)
			w.WriteHeader(http.StatusBadRequest)
		}
		return
	}

	switch r.Method {
	case http.MethodHead, http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			if r.Method == http.MethodGet {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
				return
			}
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("ETag", `"`+etagOf(data)+`"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		if r.Method == http.MethodGet {
			w.Write(data)
		}
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.objects[key] = data
		w.Header().Set("ETag", `"`+etagOf(data)+`"`)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		f.t.Errorf("unexpected request %v %v", r.Method, r.URL)
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeS3) list(w http.ResponseWriter, prefix string, delimiter string) {
	keys := []string{}
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	result := s3ListResult{Name: "sync", Prefix: prefix, Delimiter: delimiter, MaxKeys: 1000}
	seen := map[string]bool{}
	for _, key := range keys {
		rest := strings.TrimPrefix(key, prefix)
		if i := strings.Index(rest, delimiter); delimiter != "" && i >= 0 {
			common := prefix + rest[:i+len(delimiter)]
			if !seen[common] {
				seen[common] = true
				result.CommonPrefixes = append(result.CommonPrefixes, s3Prefix{Prefix: common})
			}
			continue
		}

		data := f.objects[key]
		result.Contents = append(result.Contents, s3Object{
			Key:          key,
			LastModified: "2024-01-02T03:04:05.000Z",
			ETag:         `"` + etagOf(data) + `"`,
			Size:         int64(len(data)),
			StorageClass: "STANDARD",
		})
	}
	result.KeyCount = len(result.Contents) + len(result.CommonPrefixes)

	w.Header().Set("Content-Type", "application/xml")
	xml.NewEncoder(w).Encode(result)
}

func newTestMinioStore(t *testing.T) (*MinioStore, *fakeS3) {
	fake := &fakeS3{t: t, buckets: map[string]bool{}, objects: map[string][]byte{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	store, err := NewMinioStore(context.Background(), &MinioConfig{
		Endpoint: strings.TrimPrefix(server.URL, "http://"),
		Bucket:   "sync",
		Prefix:   "/saves/",
		Region:   "us-east-1",
	})
	require.NoError(t, err)
	return store, fake
}

func TestNewMinioStoreCreatesBucket(t *testing.T) {
	_, fake := newTestMinioStore(t)
	assert.True(t, fake.buckets["sync"])
}

func TestMinioStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestMinioStore(t)
	fake.objects["saves/nested/deep.txt"] = []byte("hidden")
	fake.objects["other/outside.txt"] = []byte("outside")

	id, err := store.Put(ctx, "b.txt", strings.NewReader("beta"), 4)
	require.NoError(t, err)
	assert.Equal(t, "saves/b.txt", id)
	putRemote(t, store, "a.txt", "alpha")
	assert.Equal(t, []byte("alpha"), fake.objects["saves/a.txt"])

	files, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []RemoteFile{
		{Id: "saves/a.txt", Name: "a.txt", Checksum: etagOf([]byte("alpha")), Size: 5},
		{Id: "saves/b.txt", Name: "b.txt", Checksum: etagOf([]byte("beta")), Size: 4},
	}, files)

	assert.Equal(t, "beta", readRemote(t, store, "b.txt"))

	putRemote(t, store, "b.txt", "better")
	assert.Equal(t, "better", readRemote(t, store, "b.txt"))

	require.NoError(t, store.Delete(ctx, "saves/a.txt"))
	_, ok, err := store.FindIdByName(ctx, "a.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMinioStoreMissingKeyIsNotAnError(t *testing.T) {
	store, _ := newTestMinioStore(t)

	id, ok, err := store.FindIdByName(context.Background(), "missing.txt")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestMinioStoreRejectsNestedNames(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestMinioStore(t)
	fake.objects["saves/nested/x"] = []byte("x")

	var unsafe UnsafeNameError
	_, _, err := store.FindIdByName(ctx, "nested/x")
	assert.ErrorAs(t, err, &unsafe)

	_, err = store.Put(ctx, "../x", strings.NewReader("x"), 1)
	assert.ErrorAs(t, err, &unsafe)
	assert.Contains(t, fake.objects, "saves/nested/x")
}
