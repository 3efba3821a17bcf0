package objectstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
)

type fakeObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// fakeAPI keeps one bucket in memory. Presigned URLs point at an httptest
// server that serves the stored bytes.
type fakeAPI struct {
	mu          sync.Mutex
	bucket      string
	exists      bool
	objects     map[string]fakeObject
	failRemove  map[string]bool
	failPresign map[string]bool
	listErr     error
	made        []string
	removes     int

	srv *httptest.Server
}

func newFakeAPI(t *testing.T, bucket string) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		bucket:      bucket,
		exists:      true,
		objects:     map[string]fakeObject{},
		failRemove:  map[string]bool{},
		failPresign: map[string]bool{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		obj, ok := f.objects[strings.TrimPrefix(r.URL.Path, "/"+bucket+"/")]
		f.mu.Unlock()
		if !ok || r.URL.Query().Get("X-Amz-Signature") == "" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(obj.data)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) put(key, data string, modified time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = fakeObject{data: []byte(data), modified: modified}
}

func (f *fakeAPI) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeAPI) BucketExists(context.Context, string) (bool, error) {
	return f.exists, nil
}

func (f *fakeAPI) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	f.exists = true
	return nil
}

// ListObjects mimics a non-recursive listing: direct children plus one
// "dir/" entry per nested prefix.
func (f *fakeAPI) ListObjects(_ context.Context, _ string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(chan minio.ObjectInfo, len(f.objects)+1)
	if f.listErr != nil {
		out <- minio.ObjectInfo{Err: f.listErr}
		close(out)
		return out
	}

	seen := map[string]bool{}
	for _, key := range sortedKeys(f.objects) {
		rest, ok := strings.CutPrefix(key, opts.Prefix)
		if !ok {
			continue
		}
		if dir, _, nested := strings.Cut(rest, "/"); nested {
			if !seen[dir] {
				seen[dir] = true
				out <- minio.ObjectInfo{Key: opts.Prefix + dir + "/"}
			}
			continue
		}
		obj := f.objects[key]
		out <- minio.ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.modified}
	}
	close(out)
	return out
}

func (f *fakeAPI) StatObject(_ context.Context, _ string, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
	}
	return minio.ObjectInfo{Key: key, Size: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

func (f *fakeAPI) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = fakeObject{data: data, contentType: opts.ContentType, modified: time.Now()}
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func (f *fakeAPI) RemoveObject(_ context.Context, _ string, key string, _ minio.RemoveObjectOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes++
	if f.failRemove[key] {
		return minio.ErrorResponse{Code: "InternalError", StatusCode: http.StatusInternalServerError}
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeAPI) PresignedGetObject(_ context.Context, bucket, key string, expires time.Duration, _ url.Values) (*url.URL, error) {
	f.mu.Lock()
	fail := f.failPresign[key]
	f.mu.Unlock()
	if fail {
		return nil, errors.New("presign: no credentials")
	}
	u, err := url.Parse(f.srv.URL + "/" + bucket + "/" + key)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("X-Amz-Expires", strconv.Itoa(int(expires.Seconds())))
	q.Set("X-Amz-Signature", "sig")
	u.RawQuery = q.Encode()
	return u, nil
}

func sortedKeys(m map[string]fakeObject) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
