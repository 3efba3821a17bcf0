package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/notedrop/service/internal/cache"
	"github.com/notedrop/service/internal/logging"
	"github.com/notedrop/service/internal/naming"
)

const (
	DefaultRoot        = "uploads"
	DefaultMaxFileSize = 10 << 20

	noteContentType = "text/plain; charset=utf-8"
	fileContentType = "application/octet-stream"
)

// ErrUnsupported is returned for optional operations a backend does not offer.
var ErrUnsupported = errors.New("operation not supported by backend")

// Options configures a Store.
type Options struct {
	// Root is the directory all entries live in.
	Root string
	// Active is the id of the default backend.
	Active      string
	MaxFileSize int64
	Cache       *cache.Cache[Entry]
	Resolver    *naming.Resolver
	Logger      logging.Logger
}

// Store is the virtual file store. It exposes list, upload, delete and
// deleteAll over whichever backend is active for the call.
type Store struct {
	root        string
	active      string
	maxFileSize int64
	backends    map[string]Backend
	order       []string
	cache       *cache.Cache[Entry]
	resolver    *naming.Resolver
	log         logging.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates a Store over backends. Options.Active must name one of them.
func New(opts Options, backends ...Backend) (*Store, error) {
	if len(backends) == 0 {
		return nil, errors.New("at least one backend is required")
	}

	s := &Store{
		root:        strings.Trim(opts.Root, "/"),
		active:      opts.Active,
		maxFileSize: opts.MaxFileSize,
		backends:    make(map[string]Backend, len(backends)),
		cache:       opts.Cache,
		resolver:    opts.Resolver,
		log:         opts.Logger,
		inflight:    make(map[string]struct{}),
	}
	if s.root == "" {
		s.root = DefaultRoot
	}
	if s.maxFileSize <= 0 {
		s.maxFileSize = DefaultMaxFileSize
	}
	if s.cache == nil {
		s.cache = cache.New[Entry]()
	}
	if s.resolver == nil {
		s.resolver = naming.NewResolver(s.root)
	}
	if s.log == nil {
		s.log = logging.Nop()
	}

	for _, b := range backends {
		if _, dup := s.backends[b.ID()]; dup {
			return nil, fmt.Errorf("duplicate backend %q", b.ID())
		}
		s.backends[b.ID()] = b
		s.order = append(s.order, b.ID())
	}
	if s.active == "" {
		s.active = s.order[0]
	}
	if _, ok := s.backends[s.active]; !ok {
		return nil, fmt.Errorf("active backend %q is not registered", s.active)
	}
	return s, nil
}

// Root returns the uploads root.
func (s *Store) Root() string {
	return s.root
}

// Backends describes every registered backend in registration order.
func (s *Store) Backends() []Info {
	infos := make([]Info, 0, len(s.order))
	for _, id := range s.order {
		b := s.backends[id]
		infos = append(infos, Info{
			ID:           id,
			Label:        b.Label(),
			Capabilities: b.Capabilities(),
			Active:       id == s.active,
		})
	}
	return infos
}

// List returns the entries of the selected backend, newest first.
//
// Listings are cached per backend for the cache TTL, so an entry written by
// another client may take up to one TTL to appear unless ForceRefresh is set.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}
	if !b.Capabilities().List {
		return []Entry{}, nil
	}

	fetch := func(ctx context.Context) ([]Entry, error) {
		return b.List(ctx, opts)
	}
	entries, err := s.cache.GetOrFetch(ctx, s.cacheKey(b.ID(), opts.IncludeContent), fetch, opts.ForceRefresh)
	if err != nil {
		return nil, translate("store.List", err)
	}
	return entries, nil
}

// Upload writes the note and/or file of req. All names are resolved before
// anything is written, so a name conflict leaves the backend untouched.
func (s *Store) Upload(ctx context.Context, req UploadRequest) ([]Result, error) {
	const op = "store.Upload"

	message := strings.TrimSpace(req.Message)
	if message == "" && req.File == nil {
		return nil, E(KindInvalidRequest, op, "enter a message or choose a file")
	}
	if req.File != nil && (req.File.Size > s.maxFileSize || int64(len(req.File.Content)) > s.maxFileSize) {
		return nil, E(KindInvalidRequest, op, "file exceeds the size limit")
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}
	if !b.Capabilities().Upload {
		return nil, unavailable(op, b)
	}

	custom := strings.TrimSpace(req.CustomName)
	var (
		objects  []Object
		reserved []string
	)
	defer func() { s.release(reserved...) }()
	exists := s.existsFunc(b, &reserved)

	if f := req.File; f != nil {
		src := f.Name
		if custom != "" {
			src = custom
		}
		base, _ := naming.Split(src)
		_, ext := naming.Split(f.Name)

		p, err := s.resolver.Resolve(ctx, naming.Name{Base: base, Ext: ext, Explicit: custom != ""}, exists)
		if err != nil {
			return nil, resolveError(op, err)
		}
		ct := f.ContentType
		if ct == "" {
			ct = fileContentType
		}
		objects = append(objects, Object{Path: p, Content: f.Content, ContentType: ct})
	}

	if message != "" {
		base := naming.NoteBase(message)
		if custom != "" {
			base, _ = naming.Split(custom)
		}

		p, err := s.resolver.Resolve(ctx, naming.Name{Base: base, Ext: noteExt(req.TextExt), Explicit: custom != ""}, exists)
		if err != nil {
			return nil, resolveError(op, err)
		}
		objects = append(objects, Object{Path: p, Content: []byte(message + "\n"), ContentType: noteContentType})
	}

	results := make([]Result, 0, len(objects))
	for _, obj := range objects {
		res, err := b.Upload(ctx, obj)
		if err != nil {
			if len(results) > 0 {
				s.invalidate(ctx, b.ID())
			}
			return nil, translate(op, err)
		}
		s.log.Info(ctx, "entry uploaded", "backend", b.ID(), "path", res.Path, "size", len(obj.Content))
		results = append(results, res)
	}

	s.invalidate(ctx, b.ID())
	return results, nil
}

// Delete removes a single entry. The path is validated before any backend
// call is made.
func (s *Store) Delete(ctx context.Context, path string) error {
	const op = "store.Delete"

	p, err := CleanPath(s.root, path)
	if err != nil {
		return err
	}

	b, err := s.backend(ctx)
	if err != nil {
		return err
	}
	if !b.Capabilities().Delete {
		return unavailable(op, b)
	}

	if err := b.Delete(ctx, p); err != nil {
		return translate(op, err)
	}
	s.log.Info(ctx, "entry deleted", "backend", b.ID(), "path", p)
	s.invalidate(ctx, b.ID())
	return nil
}

// DeleteAll removes every entry on a best-effort basis. Entries that fail to
// delete are skipped and logged; only the number removed is reported.
func (s *Store) DeleteAll(ctx context.Context) (DeleteAllResult, error) {
	const op = "store.DeleteAll"

	b, err := s.backend(ctx)
	if err != nil {
		return DeleteAllResult{}, err
	}
	if !b.Capabilities().DeleteAll {
		return DeleteAllResult{}, unavailable(op, b)
	}

	n, err := b.DeleteAll(ctx)
	if n > 0 {
		s.invalidate(ctx, b.ID())
	}
	if err != nil {
		if KindOf(err) != KindPartialFailure {
			return DeleteAllResult{}, translate(op, err)
		}
		s.log.Warn(ctx, "delete all skipped entries", "backend", b.ID(), "deleted", n, "error", err)
	}
	s.log.Info(ctx, "entries deleted", "backend", b.ID(), "count", n)
	return DeleteAllResult{DeletedCount: n}, nil
}

// RateLimit reports the API budget of the selected backend.
func (s *Store) RateLimit(ctx context.Context) (RateLimit, error) {
	b, err := s.backend(ctx)
	if err != nil {
		return RateLimit{}, err
	}
	rl, ok := b.(RateLimiter)
	if !ok {
		return RateLimit{}, ErrUnsupported
	}
	limit, err := rl.RateLimit(ctx)
	if err != nil {
		return RateLimit{}, translate("store.RateLimit", err)
	}
	return limit, nil
}

func (s *Store) backend(ctx context.Context) (Backend, error) {
	id := BackendFromContext(ctx)
	if id == "" {
		id = s.active
	}
	b, ok := s.backends[id]
	if !ok {
		return nil, E(KindConfiguration, "store.backend", fmt.Sprintf("unknown storage backend %q", id))
	}
	return b, nil
}

func (s *Store) cacheKey(backendID string, content bool) string {
	variant := "plain"
	if content {
		variant = "content"
	}
	return backendID + ":" + s.root + ":" + variant
}

func (s *Store) invalidate(ctx context.Context, backendID string) {
	s.cache.Invalidate(ctx, s.cacheKey(backendID, false), s.cacheKey(backendID, true))
}

// existsFunc checks the backend and claims free paths for the duration of
// the upload, so concurrent uploads in this process never pick the same path.
func (s *Store) existsFunc(b Backend, reserved *[]string) naming.ExistsFunc {
	return func(ctx context.Context, p string) (bool, error) {
		key := b.ID() + "\x00" + p

		s.mu.Lock()
		_, taken := s.inflight[key]
		s.mu.Unlock()
		if taken {
			return true, nil
		}

		found, err := b.Exists(ctx, p)
		if err != nil || found {
			return found, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if _, taken := s.inflight[key]; taken {
			return true, nil
		}
		s.inflight[key] = struct{}{}
		*reserved = append(*reserved, key)
		return false, nil
	}
}

func (s *Store) release(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.inflight, key)
	}
}

func noteExt(hint string) string {
	if strings.EqualFold(strings.TrimSpace(hint), "md") {
		return "md"
	}
	return "txt"
}

func resolveError(op string, err error) error {
	if errors.Is(err, naming.ErrConflict) {
		return Wrap(KindNameConflict, op, "file name already exists, choose another name", err)
	}
	return translate(op, err)
}

// translate keeps categorized errors and files everything else under
// ProtocolError so raw transport errors never reach callers.
func translate(op string, err error) error {
	if KindOf(err) != KindUnknown {
		return err
	}
	return Wrap(KindProtocol, op, "storage backend request failed", err)
}

type reasoner interface {
	Reason() string
}

func unavailable(op string, b Backend) error {
	msg := b.Label() + " does not support this operation"
	if r, ok := b.(reasoner); ok && r.Reason() != "" {
		msg = r.Reason()
	}
	return E(KindConfiguration, op, msg)
}
