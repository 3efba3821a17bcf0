package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notedrop/service/internal/store"
)

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, store.ErrAuth},
		{http.StatusForbidden, store.ErrPermission},
		{http.StatusInternalServerError, store.ErrProtocol},
		{http.StatusUnprocessableEntity, store.ErrProtocol},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"message":"nope"}`, tt.status)
			}))
			defer srv.Close()
			c := NewClient(Config{Owner: "o", Repo: "r", APIBase: srv.URL, Tokens: StaticToken("t")})

			_, err := c.CommitFile(context.Background(), "uploads/a.txt", []byte("a"))
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestClient_MissingCredential(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	c := NewClient(Config{Owner: "o", Repo: "r", APIBase: srv.URL})
	_, err := c.ListDirectory(context.Background(), "uploads")
	assert.ErrorIs(t, err, store.ErrConfiguration)

	c = NewClient(Config{Owner: "o", Repo: "r", APIBase: srv.URL, Tokens: StaticToken("")})
	_, err = c.FetchFile(context.Background(), "uploads/a.txt")
	assert.ErrorIs(t, err, store.ErrConfiguration)
	assert.Zero(t, calls)
}

func TestClient_SendsHeaders(t *testing.T) {
	var got http.Header
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotPath = r.URL.EscapedPath()
		http.NotFound(w, r)
	}))
	defer srv.Close()
	c := NewClient(Config{Owner: "o", Repo: "r", APIBase: srv.URL, Tokens: StaticToken("secret")})

	f, err := c.FetchFile(context.Background(), "uploads/a b#.txt")
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Equal(t, "Bearer secret", got.Get("Authorization"))
	assert.Equal(t, "application/vnd.github+json", got.Get("Accept"))
	assert.Equal(t, userAgent, got.Get("User-Agent"))
	assert.Equal(t, "/repos/o/r/contents/uploads/a%20b%23.txt", gotPath)
}

func TestClient_FetchFileOnDirectory(t *testing.T) {
	fake := newFakeGitHub()
	fake.put("uploads/a.txt", "a")
	c := fake.client(fake.start(t))

	_, err := c.FetchFile(context.Background(), "uploads")
	assert.ErrorIs(t, err, store.ErrProtocol)
}

func TestClient_ListDirectoryOnFileIsEmpty(t *testing.T) {
	fake := newFakeGitHub()
	fake.put("uploads/a.txt", "a")
	c := fake.client(fake.start(t))

	entries, err := c.ListDirectory(context.Background(), "uploads/a.txt")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClient_DecodeWrappedContent(t *testing.T) {
	fake := newFakeGitHub()
	body := make([]byte, 200)
	for i := range body {
		body[i] = byte('a' + i%26)
	}
	fake.put("uploads/long.txt", string(body))
	c := fake.client(fake.start(t))

	f, err := c.FetchFile(context.Background(), "uploads/long.txt")
	require.NoError(t, err)
	require.NotNil(t, f)
	got, err := f.Decode()
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestClient_RawURL(t *testing.T) {
	c := NewClient(Config{Owner: "o", Repo: "r"})
	assert.Equal(t, "https://raw.githubusercontent.com/o/r/main/uploads/a%20b.txt", c.RawURL("uploads/a b.txt"))
	assert.Equal(t, "main", c.Branch())
}
