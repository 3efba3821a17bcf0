package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/notedrop/service/internal/classify"
	"github.com/notedrop/service/internal/logging"
	"github.com/notedrop/service/internal/store"
)

// ID is the backend id of an object store.
const ID = "s3"

var _ store.Backend = (*Backend)(nil)

// BackendConfig places the store inside a bucket.
type BackendConfig struct {
	Bucket        string
	Root          string
	PresignExpiry time.Duration
	Concurrency   int
	Classifier    *classify.Classifier
	// HTTPClient fetches text previews through presigned URLs.
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Backend serves the store contract from objects under Root/ in Bucket.
type Backend struct {
	api         API
	bucket      string
	root        string
	expiry      time.Duration
	concurrency int
	classifier  *classify.Classifier
	http        *http.Client
	log         logging.Logger
}

// NewBackend creates a Backend over api.
func NewBackend(api API, cfg BackendConfig) *Backend {
	b := &Backend{
		api:         api,
		bucket:      cfg.Bucket,
		root:        strings.Trim(cfg.Root, "/"),
		expiry:      cfg.PresignExpiry,
		concurrency: cfg.Concurrency,
		classifier:  cfg.Classifier,
		http:        cfg.HTTPClient,
		log:         cfg.Logger,
	}
	if b.root == "" {
		b.root = store.DefaultRoot
	}
	if b.expiry <= 0 {
		b.expiry = DefaultPresignExpiry
	}
	if b.classifier == nil {
		b.classifier = classify.New(nil, 0)
	}
	if b.http == nil {
		b.http = &http.Client{Timeout: 30 * time.Second}
	}
	if b.log == nil {
		b.log = logging.Nop()
	}
	b.log = b.log.With("backend", ID, "bucket", b.bucket)
	return b
}

func (b *Backend) ID() string                       { return ID }
func (b *Backend) Label() string                    { return "S3 bucket " + b.bucket }
func (b *Backend) Capabilities() store.Capabilities { return store.Full }

func (b *Backend) objects(ctx context.Context) ([]minio.ObjectInfo, error) {
	opts := minio.ListObjectsOptions{Prefix: b.root + "/"}

	var objects []minio.ObjectInfo
	for obj := range b.api.ListObjects(ctx, b.bucket, opts) {
		if obj.Err != nil {
			return nil, mapError("objectstore.List", obj.Err)
		}
		name := path.Base(obj.Key)
		if strings.HasSuffix(obj.Key, "/") || store.Hidden(name) {
			continue
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// List presigns one URL per object and uses it for both download and
// preview.
func (b *Backend) List(ctx context.Context, opts store.ListOptions) ([]store.Entry, error) {
	objects, err := b.objects(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]store.Entry, len(objects))
	for i, obj := range objects {
		e := store.NewEntry(b.classifier, path.Base(obj.Key), obj.Key, obj.Size, "")
		if !obj.LastModified.IsZero() {
			t := obj.LastModified.UTC()
			e.UpdatedAt = &t
		}
		entries[i] = e
	}

	err = store.Enrich(ctx, entries, b.concurrency, func(ctx context.Context, e *store.Entry) error {
		u, err := b.api.PresignedGetObject(ctx, b.bucket, e.Path, b.expiry, nil)
		if err != nil {
			b.log.Warn(ctx, "presign failed", "key", e.Path, "error", err)
			return err
		}
		e.DownloadURL = u.String()
		e.PreviewURL = e.DownloadURL

		if opts.IncludeContent && b.classifier.ShouldPreview(e.Name, e.Size) {
			text, err := b.fetchText(ctx, e.DownloadURL)
			if err != nil {
				b.log.Debug(ctx, "preview fetch failed", "key", e.Path, "error", err)
				return err
			}
			e.TextContent = &text
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Entries without a usable link are left out of the listing.
	entries = slices.DeleteFunc(entries, func(e store.Entry) bool { return e.DownloadURL == "" })
	store.SortEntries(entries)
	return entries, nil
}

func (b *Backend) fetchText(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("preview status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, b.classifier.PreviewLimit()))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.api.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, mapError("objectstore.Exists", err)
}

func (b *Backend) Upload(ctx context.Context, obj store.Object) (store.Result, error) {
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := b.api.PutObject(ctx, b.bucket, obj.Path, bytes.NewReader(obj.Content), int64(len(obj.Content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return store.Result{}, mapError("objectstore.Upload", err)
	}

	res := store.Result{Path: obj.Path}
	if u, err := b.api.PresignedGetObject(ctx, b.bucket, obj.Path, b.expiry, nil); err == nil {
		res.DownloadURL = u.String()
	} else {
		b.log.Warn(ctx, "presign failed", "key", obj.Path, "error", err)
	}
	return res, nil
}

// Delete removes key. S3 deletes are idempotent, so the key is checked first
// to report a missing object.
func (b *Backend) Delete(ctx context.Context, key string) error {
	const op = "objectstore.Delete"

	found, err := b.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return store.E(store.KindNotFound, op, "file not found")
	}
	if err := b.api.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return mapError(op, err)
	}
	return nil
}

// DeleteAll lists the root and removes each object in turn. A failed delete
// is logged and skipped.
func (b *Backend) DeleteAll(ctx context.Context) (int, error) {
	objects, err := b.objects(ctx)
	if err != nil {
		return 0, err
	}

	var deleted, failed int
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := b.api.RemoveObject(ctx, b.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			b.log.Warn(ctx, "delete failed", "key", obj.Key, "error", err)
			failed++
			continue
		}
		deleted++
	}

	if failed > 0 {
		return deleted, store.E(store.KindPartialFailure, "objectstore.DeleteAll", fmt.Sprintf("%d of %d objects could not be deleted", failed, failed+deleted))
	}
	return deleted, nil
}
