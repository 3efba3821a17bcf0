package github

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	testOwner = "acme"
	testRepo  = "drop"
	testToken = "test-token"
)

type fakeFile struct {
	content []byte
	sha     string
}

type commitCall struct {
	Method  string
	Path    string
	Message string
	Branch  string
	SHA     string
}

// fakeGitHub is an in-memory stand-in for the parts of the REST API the
// backend uses.
type fakeGitHub struct {
	mu         sync.Mutex
	files      map[string]fakeFile
	dirs       map[string]bool
	commitTime map[string]time.Time
	failDelete map[string]int
	commits    []commitCall
	requests   int
	nextSHA    int
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		files:      map[string]fakeFile{},
		dirs:       map[string]bool{},
		commitTime: map[string]time.Time{},
		failDelete: map[string]int{},
	}
}

func (f *fakeGitHub) put(p, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSHA++
	f.files[p] = fakeFile{content: []byte(content), sha: fmt.Sprintf("sha%d", f.nextSHA)}
}

func (f *fakeGitHub) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeGitHub) client(srv *httptest.Server) *Client {
	return NewClient(Config{
		Owner:      testOwner,
		Repo:       testRepo,
		Branch:     "main",
		APIBase:    srv.URL,
		RawBase:    srv.URL + "/raw",
		Tokens:     StaticToken(testToken),
		HTTPClient: srv.Client(),
	})
}

func (f *fakeGitHub) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++

	if r.Header.Get("Authorization") != "Bearer "+testToken {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
		return
	}

	repoPrefix := "/repos/" + testOwner + "/" + testRepo
	switch {
	case r.URL.Path == "/rate_limit":
		writeJSON(w, http.StatusOK, map[string]any{
			"resources": map[string]any{"core": map[string]any{"limit": 5000, "remaining": 4321, "reset": 1760000000}},
		})
	case r.URL.Path == repoPrefix+"/commits":
		f.serveCommits(w, r)
	case strings.HasPrefix(r.URL.Path, repoPrefix+"/contents/"):
		f.serveContents(w, r, strings.TrimPrefix(r.URL.Path, repoPrefix+"/contents/"))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeGitHub) serveContents(w http.ResponseWriter, r *http.Request, p string) {
	switch r.Method {
	case http.MethodGet:
		if file, ok := f.files[p]; ok {
			writeJSON(w, http.StatusOK, f.entry(p, file, true))
			return
		}
		var items []map[string]any
		for fp, file := range f.files {
			if path, name, ok := strings.Cut(fp, "/"); ok && path == p && !strings.Contains(name, "/") {
				items = append(items, f.entry(fp, file, false))
			}
		}
		for d := range f.dirs {
			if strings.HasPrefix(d, p+"/") {
				items = append(items, map[string]any{"type": "dir", "name": strings.TrimPrefix(d, p+"/"), "path": d})
			}
		}
		if len(items) == 0 {
			http.NotFound(w, r)
			return
		}
		sort.Slice(items, func(i, j int) bool { return items[i]["name"].(string) < items[j]["name"].(string) })
		writeJSON(w, http.StatusOK, items)

	case http.MethodPut:
		var req commitRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if _, exists := f.files[p]; exists {
			http.Error(w, `{"message":"sha wasn't supplied"}`, http.StatusUnprocessableEntity)
			return
		}
		content, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			http.Error(w, "bad base64", http.StatusBadRequest)
			return
		}
		f.nextSHA++
		file := fakeFile{content: content, sha: fmt.Sprintf("sha%d", f.nextSHA)}
		f.files[p] = file
		f.commits = append(f.commits, commitCall{Method: r.Method, Path: p, Message: req.Message, Branch: req.Branch})
		writeJSON(w, http.StatusCreated, map[string]any{"content": f.entry(p, file, false)})

	case http.MethodDelete:
		var req commitRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if status, ok := f.failDelete[p]; ok {
			http.Error(w, `{"message":"injected"}`, status)
			return
		}
		file, ok := f.files[p]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if req.SHA != file.sha {
			http.Error(w, `{"message":"sha does not match"}`, http.StatusConflict)
			return
		}
		delete(f.files, p)
		f.commits = append(f.commits, commitCall{Method: r.Method, Path: p, Message: req.Message, Branch: req.Branch, SHA: req.SHA})
		writeJSON(w, http.StatusOK, map[string]any{"commit": map[string]any{"sha": "c1"}})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (f *fakeGitHub) serveCommits(w http.ResponseWriter, r *http.Request) {
	t, ok := f.commitTime[r.URL.Query().Get("path")]
	if !ok {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, []any{
		map[string]any{"commit": map[string]any{"committer": map[string]any{"date": t.Format(time.RFC3339)}}},
	})
}

func (f *fakeGitHub) entry(p string, file fakeFile, withContent bool) map[string]any {
	name := p[strings.LastIndex(p, "/")+1:]
	e := map[string]any{
		"type":         "file",
		"name":         name,
		"path":         p,
		"sha":          file.sha,
		"size":         len(file.content),
		"download_url": "https://raw.example/" + p,
		"html_url":     "https://github.example/" + p,
	}
	if withContent {
		enc := base64.StdEncoding.EncodeToString(file.content)
		// The API wraps base64 at 60 columns.
		var wrapped strings.Builder
		for len(enc) > 60 {
			wrapped.WriteString(enc[:60] + "\n")
			enc = enc[60:]
		}
		wrapped.WriteString(enc)
		e["content"] = wrapped.String()
		e["encoding"] = "base64"
	}
	return e
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
