package github

import (
	"context"
	"fmt"

	"github.com/notedrop/service/internal/classify"
	"github.com/notedrop/service/internal/logging"
	"github.com/notedrop/service/internal/store"
)

// ID is the backend id of a GitHub repository.
const ID = "github"

var (
	_ store.Backend     = (*Backend)(nil)
	_ store.RateLimiter = (*Backend)(nil)
)

// BackendConfig tunes how a repository is presented as a store.
type BackendConfig struct {
	Root        string
	Concurrency int
	// CommitDates looks up the last commit of every entry during a listing.
	// It costs one API call per entry.
	CommitDates bool
	Classifier  *classify.Classifier
	Logger      logging.Logger
}

// Backend serves the store contract from a repository directory.
type Backend struct {
	client      *Client
	root        string
	concurrency int
	commitDates bool
	classifier  *classify.Classifier
	log         logging.Logger
}

// NewBackend wraps client as a store.Backend rooted at cfg.Root.
func NewBackend(client *Client, cfg BackendConfig) *Backend {
	b := &Backend{
		client:      client,
		root:        cfg.Root,
		concurrency: cfg.Concurrency,
		commitDates: cfg.CommitDates,
		classifier:  cfg.Classifier,
		log:         cfg.Logger,
	}
	if b.root == "" {
		b.root = store.DefaultRoot
	}
	if b.classifier == nil {
		b.classifier = classify.New(nil, 0)
	}
	if b.log == nil {
		b.log = logging.Nop()
	}
	b.log = b.log.With("backend", ID)
	return b
}

func (b *Backend) ID() string                       { return ID }
func (b *Backend) Label() string                    { return "GitHub repository" }
func (b *Backend) Capabilities() store.Capabilities { return store.Full }

// List returns the files under the root. Text previews and commit dates are
// fetched per entry with bounded concurrency; a failed lookup leaves the
// field empty instead of failing the listing.
func (b *Backend) List(ctx context.Context, opts store.ListOptions) ([]store.Entry, error) {
	items, err := b.client.ListDirectory(ctx, b.root)
	if err != nil {
		return nil, err
	}

	entries := make([]store.Entry, 0, len(items))
	for _, it := range items {
		if it.Type != "file" || store.Hidden(it.Name) {
			continue
		}
		downloadURL := b.client.RawURL(it.Path)
		if it.DownloadURL != nil && *it.DownloadURL != "" {
			downloadURL = *it.DownloadURL
		}
		e := store.NewEntry(b.classifier, it.Name, it.Path, it.Size, downloadURL)
		e.HTMLURL = it.HTMLURL
		entries = append(entries, e)
	}

	preview := func(e *store.Entry) bool {
		return opts.IncludeContent && b.classifier.ShouldPreview(e.Name, e.Size)
	}
	err = store.Enrich(ctx, entries, b.concurrency, func(ctx context.Context, e *store.Entry) error {
		if b.commitDates {
			t, err := b.client.LatestCommitTime(ctx, e.Path)
			if err != nil {
				b.log.Debug(ctx, "commit date lookup failed", "path", e.Path, "error", err)
			}
			e.UpdatedAt = t
		}
		if preview(e) {
			text, err := b.text(ctx, e.Path)
			if err != nil {
				b.log.Debug(ctx, "preview fetch failed", "path", e.Path, "error", err)
				return err
			}
			e.TextContent = text
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	store.SortEntries(entries)
	return entries, nil
}

func (b *Backend) text(ctx context.Context, p string) (*string, error) {
	f, err := b.client.FetchFile(ctx, p)
	if err != nil || f == nil {
		return nil, err
	}
	body, err := f.Decode()
	if err != nil {
		return nil, err
	}
	s := string(body)
	return &s, nil
}

func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	f, err := b.client.FetchFile(ctx, p)
	if err != nil {
		return false, err
	}
	return f != nil, nil
}

func (b *Backend) Upload(ctx context.Context, obj store.Object) (store.Result, error) {
	f, err := b.client.CommitFile(ctx, obj.Path, obj.Content)
	if err != nil {
		return store.Result{}, err
	}
	downloadURL := b.client.RawURL(obj.Path)
	if f.DownloadURL != nil && *f.DownloadURL != "" {
		downloadURL = *f.DownloadURL
	}
	return store.Result{Path: obj.Path, DownloadURL: downloadURL}, nil
}

// Delete reads the current sha and deletes against it.
func (b *Backend) Delete(ctx context.Context, p string) error {
	f, err := b.client.FetchFile(ctx, p)
	if err != nil {
		return err
	}
	if f == nil {
		return store.E(store.KindNotFound, "github.Delete", "file not found")
	}
	return b.client.DeleteFile(ctx, p, f.SHA)
}

// DeleteAll deletes the files of the root one commit at a time, using the
// shas from the listing.
func (b *Backend) DeleteAll(ctx context.Context) (int, error) {
	items, err := b.client.ListDirectory(ctx, b.root)
	if err != nil {
		return 0, err
	}

	var deleted, failed int
	for _, it := range items {
		if it.Type != "file" || store.Hidden(it.Name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := b.client.DeleteFile(ctx, it.Path, it.SHA); err != nil {
			b.log.Warn(ctx, "delete failed", "path", it.Path, "error", err)
			failed++
			continue
		}
		deleted++
	}

	if failed > 0 {
		return deleted, store.E(store.KindPartialFailure, "github.DeleteAll", fmt.Sprintf("%d of %d entries could not be deleted", failed, failed+deleted))
	}
	return deleted, nil
}

func (b *Backend) RateLimit(ctx context.Context) (store.RateLimit, error) {
	return b.client.RateLimit(ctx)
}
