// Package github talks to the GitHub repository contents API and exposes a
// repository as a store.Backend. Every upload and delete is a commit on the
// configured branch.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/notedrop/service/internal/store"
)

const (
	DefaultAPIBase = "https://api.github.com"
	DefaultRawBase = "https://raw.githubusercontent.com"
	DefaultBranch  = "main"

	userAgent  = "notedrop-service"
	apiVersion = "2022-11-28"

	// maxErrorBody bounds how much of a failed response is kept for logs.
	maxErrorBody = 4 << 10
)

// Config identifies the repository and how to reach it.
type Config struct {
	Owner   string
	Repo    string
	Branch  string
	APIBase string
	RawBase string
	Tokens  TokenSource
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

// ContentEntry is an item of the contents API.
type ContentEntry struct {
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	SHA         string  `json:"sha"`
	Size        int64   `json:"size"`
	DownloadURL *string `json:"download_url"`
	HTMLURL     string  `json:"html_url"`
	Content     string  `json:"content,omitempty"`
	Encoding    string  `json:"encoding,omitempty"`
}

// Decode returns the file body carried by a single-file response.
func (e *ContentEntry) Decode() ([]byte, error) {
	if e.Encoding != "" && e.Encoding != "base64" {
		return nil, fmt.Errorf("unsupported content encoding %q", e.Encoding)
	}
	raw := strings.NewReplacer("\n", "", "\r", "").Replace(e.Content)
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	return b, nil
}

// Client is a minimal contents API client bound to one repository branch.
type Client struct {
	owner   string
	repo    string
	branch  string
	apiBase string
	rawBase string
	tokens  TokenSource
	http    *http.Client
}

// NewClient creates a Client. A missing token source is not an error here;
// each call then fails with a ConfigurationError.
func NewClient(cfg Config) *Client {
	c := &Client{
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		branch:  cfg.Branch,
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		rawBase: strings.TrimRight(cfg.RawBase, "/"),
		tokens:  cfg.Tokens,
		http:    cfg.HTTPClient,
	}
	if c.branch == "" {
		c.branch = DefaultBranch
	}
	if c.apiBase == "" {
		c.apiBase = DefaultAPIBase
	}
	if c.rawBase == "" {
		c.rawBase = DefaultRawBase
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	return c
}

// Branch returns the branch commits are written to.
func (c *Client) Branch() string {
	return c.branch
}

// RawURL returns the raw download URL of path on the configured branch.
func (c *Client) RawURL(p string) string {
	return c.rawBase + "/" + c.owner + "/" + c.repo + "/" + c.branch + "/" + escapePath(p)
}

// ListDirectory returns the items of dir. A missing directory, or a path that
// turns out to be a single file, yields an empty slice.
func (c *Client) ListDirectory(ctx context.Context, dir string) ([]ContentEntry, error) {
	var raw json.RawMessage
	status, err := c.do(ctx, "github.ListDirectory", http.MethodGet, c.contentsURL(dir, true), nil, &raw)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound || !isArray(raw) {
		return []ContentEntry{}, nil
	}

	var entries []ContentEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, store.Wrap(store.KindProtocol, "github.ListDirectory", "unexpected GitHub response", err)
	}
	return entries, nil
}

// FetchFile returns the file at p with its content and sha, or nil when it
// does not exist.
func (c *Client) FetchFile(ctx context.Context, p string) (*ContentEntry, error) {
	const op = "github.FetchFile"

	var raw json.RawMessage
	status, err := c.do(ctx, op, http.MethodGet, c.contentsURL(p, true), nil, &raw)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if isArray(raw) {
		return nil, store.E(store.KindProtocol, op, fmt.Sprintf("path is a directory, not a file: %s", p))
	}

	var entry ContentEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, store.Wrap(store.KindProtocol, op, "unexpected GitHub response", err)
	}
	return &entry, nil
}

type commitRequest struct {
	Message string `json:"message"`
	Content string `json:"content,omitempty"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch"`
}

type commitResponse struct {
	Content *ContentEntry `json:"content"`
}

// CommitFile creates p with content in a new commit.
func (c *Client) CommitFile(ctx context.Context, p string, content []byte) (*ContentEntry, error) {
	const op = "github.CommitFile"

	body := commitRequest{
		Message: "chore: anonymous upload " + p,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  c.branch,
	}
	var out commitResponse
	status, err := c.do(ctx, op, http.MethodPut, c.contentsURL(p, false), body, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, store.E(store.KindNotFound, op, "repository or branch not found")
	}
	if out.Content == nil {
		return &ContentEntry{Type: "file", Path: p}, nil
	}
	return out.Content, nil
}

// DeleteFile removes p in a new commit. sha must be the blob sha read just
// before; GitHub rejects the delete if the file changed in between.
func (c *Client) DeleteFile(ctx context.Context, p, sha string) error {
	const op = "github.DeleteFile"

	body := commitRequest{
		Message: "chore: delete upload " + p,
		SHA:     sha,
		Branch:  c.branch,
	}
	status, err := c.do(ctx, op, http.MethodDelete, c.contentsURL(p, false), body, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return store.E(store.KindNotFound, op, "file not found")
	}
	return nil
}

type commitInfo struct {
	Commit struct {
		Committer *struct {
			Date *time.Time `json:"date"`
		} `json:"committer"`
		Author *struct {
			Date *time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// LatestCommitTime returns the time of the newest commit touching p, or nil
// when there is none.
func (c *Client) LatestCommitTime(ctx context.Context, p string) (*time.Time, error) {
	q := url.Values{}
	q.Set("path", p)
	q.Set("sha", c.branch)
	q.Set("per_page", "1")
	endpoint := "/repos/" + c.owner + "/" + c.repo + "/commits?" + q.Encode()

	var commits []commitInfo
	status, err := c.do(ctx, "github.LatestCommitTime", http.MethodGet, endpoint, nil, &commits)
	if err != nil || status == http.StatusNotFound || len(commits) == 0 {
		return nil, err
	}

	commit := commits[0].Commit
	if commit.Committer != nil && commit.Committer.Date != nil {
		return commit.Committer.Date, nil
	}
	if commit.Author != nil {
		return commit.Author.Date, nil
	}
	return nil, nil
}

type rateLimitResponse struct {
	Resources struct {
		Core struct {
			Limit     int   `json:"limit"`
			Remaining int   `json:"remaining"`
			Reset     int64 `json:"reset"`
		} `json:"core"`
	} `json:"resources"`
}

// RateLimit returns the core API budget of the credential.
func (c *Client) RateLimit(ctx context.Context) (store.RateLimit, error) {
	var out rateLimitResponse
	status, err := c.do(ctx, "github.RateLimit", http.MethodGet, "/rate_limit", nil, &out)
	if err != nil {
		return store.RateLimit{}, err
	}
	if status == http.StatusNotFound {
		return store.RateLimit{}, store.E(store.KindNotFound, "github.RateLimit", "rate limit endpoint not found")
	}
	core := out.Resources.Core
	return store.RateLimit{Limit: core.Limit, Remaining: core.Remaining, ResetAt: core.Reset}, nil
}

func (c *Client) contentsURL(p string, withRef bool) string {
	u := "/repos/" + c.owner + "/" + c.repo + "/contents/" + escapePath(p)
	if withRef {
		u += "?ref=" + url.QueryEscape(c.branch)
	}
	return u
}

// do performs one API call. 404 is returned as a status with a nil error so
// callers can decide what absence means; any other non-2xx becomes a
// categorized *store.Error.
func (c *Client) do(ctx context.Context, op, method, endpoint string, body, out any) (int, error) {
	if c.tokens == nil {
		return 0, store.E(store.KindConfiguration, op, "GitHub credential is not configured")
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, err
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+endpoint, reader)
	if err != nil {
		return 0, store.Wrap(store.KindProtocol, op, "invalid GitHub request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, store.Wrap(store.KindProtocol, op, "GitHub request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
		return resp.StatusCode, store.Wrap(store.FromStatus(resp.StatusCode), op, statusMessage(resp.StatusCode), cause)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, store.Wrap(store.KindProtocol, op, "unexpected GitHub response", err)
		}
	}
	return resp.StatusCode, nil
}

func statusMessage(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "GitHub rejected the credential"
	case http.StatusForbidden:
		return "GitHub denied the operation"
	default:
		return fmt.Sprintf("GitHub API error (%d)", status)
	}
}

func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}
