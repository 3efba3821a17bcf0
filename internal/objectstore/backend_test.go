package objectstore

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notedrop/service/internal/logging"
	"github.com/notedrop/service/internal/store"
)

func newTestBackend(t *testing.T) (*Backend, *fakeAPI) {
	t.Helper()
	api := newFakeAPI(t, "drop")
	b := NewBackend(api, BackendConfig{
		Bucket:     "drop",
		Root:       "uploads",
		HTTPClient: api.srv.Client(),
	})
	return b, api
}

func TestList_EmptyBucket(t *testing.T) {
	b, _ := newTestBackend(t)

	entries, err := b.List(context.Background(), store.ListOptions{IncludeContent: true})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestList_EntriesArePresignedAndSorted(t *testing.T) {
	b, api := newTestBackend(t)
	older := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	api.put("uploads/a.txt", "alpha\n", older)
	api.put("uploads/b.png", "png", newer)
	api.put("uploads/.keep", "", newer)
	api.put("uploads/nested/c.txt", "c", newer)
	api.put("other/d.txt", "d", newer)

	entries, err := b.List(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "b.png", entries[0].Name)
	assert.Equal(t, "uploads/b.png", entries[0].Path)
	assert.False(t, entries[0].IsText)
	require.NotNil(t, entries[0].UpdatedAt)
	assert.True(t, entries[0].UpdatedAt.Equal(newer))

	a := entries[1]
	assert.Equal(t, "a.txt", a.Name)
	assert.True(t, a.IsText)
	assert.Contains(t, a.DownloadURL, "/drop/uploads/a.txt?")
	assert.Contains(t, a.DownloadURL, "X-Amz-Signature=")
	assert.Equal(t, a.DownloadURL, a.PreviewURL)
	assert.Nil(t, a.TextContent)
}

func TestList_SkipsEntriesThatCannotBePresigned(t *testing.T) {
	b, api := newTestBackend(t)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	api.put("uploads/a.txt", "alpha", now)
	api.put("uploads/b.txt", "beta", now)
	api.failPresign["uploads/a.txt"] = true

	entries, err := b.List(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.txt", entries[0].Name)
	assert.NotEmpty(t, entries[0].DownloadURL)
}

func TestList_IncludeContentFetchesThroughPresignedURL(t *testing.T) {
	b, api := newTestBackend(t)
	api.put("uploads/a.md", "# hi\n", time.Now())
	api.put("uploads/b.bin", "\x00", time.Now())

	entries, err := b.List(context.Background(), store.ListOptions{IncludeContent: true})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	for _, e := range entries {
		switch e.Name {
		case "a.md":
			require.NotNil(t, e.TextContent)
			assert.Equal(t, "# hi\n", *e.TextContent)
		case "b.bin":
			assert.Nil(t, e.TextContent)
		}
	}
}

func TestList_ErrorIsMapped(t *testing.T) {
	b, api := newTestBackend(t)
	api.listErr = minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}

	_, err := b.List(context.Background(), store.ListOptions{})
	assert.ErrorIs(t, err, store.ErrPermission)
}

func TestUpload_ContentTypes(t *testing.T) {
	b, api := newTestBackend(t)
	ctx := context.Background()

	res, err := b.Upload(ctx, store.Object{Path: "uploads/x.bin", Content: []byte{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, "uploads/x.bin", res.Path)
	assert.NotEmpty(t, res.DownloadURL)
	assert.Equal(t, "application/octet-stream", api.objects["uploads/x.bin"].contentType)

	_, err = b.Upload(ctx, store.Object{Path: "uploads/n.txt", Content: []byte("hi\n"), ContentType: "text/plain; charset=utf-8"})
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", api.objects["uploads/n.txt"].contentType)

	ok, err := b.Exists(ctx, "uploads/n.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = b.Exists(ctx, "uploads/missing.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	b, api := newTestBackend(t)
	api.put("uploads/a.txt", "a", time.Now())
	ctx := context.Background()

	require.NoError(t, b.Delete(ctx, "uploads/a.txt"))
	assert.Empty(t, api.keys())

	err := b.Delete(ctx, "uploads/a.txt")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, api.removes)
}

func TestDeleteAll_SkipsFailures(t *testing.T) {
	b, api := newTestBackend(t)
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		api.put("uploads/"+k+".txt", k, time.Now())
	}
	api.failRemove["uploads/b.txt"] = true
	api.failRemove["uploads/d.txt"] = true

	n, err := b.DeleteAll(context.Background())
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, err, store.ErrPartialFailure)
	assert.Equal(t, []string{"uploads/b.txt", "uploads/d.txt"}, api.keys())
}

func TestDeleteAll_ThroughStoreReportsCount(t *testing.T) {
	b, api := newTestBackend(t)
	for _, k := range []string{"a", "b", "c"} {
		api.put("uploads/"+k+".txt", k, time.Now())
	}
	api.failRemove["uploads/c.txt"] = true
	s, err := store.New(store.Options{}, b)
	require.NoError(t, err)

	res, err := s.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.DeletedCount)
}

func TestEnsureBucket(t *testing.T) {
	api := newFakeAPI(t, "drop")
	ctx := context.Background()

	require.NoError(t, EnsureBucket(ctx, api, "drop", "us-east-1", logging.Nop()))
	assert.Empty(t, api.made)

	api.exists = false
	require.NoError(t, EnsureBucket(ctx, api, "drop", "us-east-1", logging.Nop()))
	assert.Equal(t, []string{"drop"}, api.made)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no such key", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}, store.ErrNotFound},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}, store.ErrPermission},
		{"bad signature", minio.ErrorResponse{Code: "SignatureDoesNotMatch", StatusCode: 403}, store.ErrAuth},
		{"status only", minio.ErrorResponse{Code: "Weird", StatusCode: 401}, store.ErrAuth},
		{"throttled", minio.ErrorResponse{Code: "SlowDown", StatusCode: 503}, store.ErrProtocol},
		{"transport", errors.New("dial tcp: refused"), store.ErrProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError("op", tt.err), tt.want)
		})
	}
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(ClientConfig{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", Region: "us-east-1"})
	require.NoError(t, err)
	assert.NotNil(t, c)

	var _ API = c
}
