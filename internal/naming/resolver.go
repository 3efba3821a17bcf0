package naming

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
)

// ErrConflict is returned when the target name is already taken.
var ErrConflict = errors.New("name already exists")

// ExistsFunc reports whether path is already present in the backend.
type ExistsFunc func(ctx context.Context, path string) (bool, error)

// Name is the requested file name split into its parts.
type Name struct {
	Base string
	Ext  string
	// Explicit marks a caller-chosen name. Explicit names are used verbatim
	// and are never renamed on collision.
	Explicit bool
}

// Resolver derives unique paths under a fixed root.
type Resolver struct {
	root   string
	now    func() time.Time
	suffix func() string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source used for generated names.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithSuffix overrides the random disambiguator.
func WithSuffix(fn func() string) Option {
	return func(r *Resolver) { r.suffix = fn }
}

// NewResolver creates a Resolver for paths under root.
func NewResolver(root string, opts ...Option) *Resolver {
	r := &Resolver{
		root:   root,
		now:    time.Now,
		suffix: randomSuffix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the directory every resolved path lives in.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve returns a path for n that exists reports as free.
//
// Explicit names resolve to root/base.ext and fail with ErrConflict when
// taken. Generated names resolve to root/<timestamp>-base.ext; on collision
// a random suffix is appended and checked once more before giving up.
func (r *Resolver) Resolve(ctx context.Context, n Name, exists ExistsFunc) (string, error) {
	base, ext := CleanBase(n.Base), CleanExt(n.Ext)

	if n.Explicit {
		p := path.Join(r.root, join(base, ext))
		return r.claim(ctx, p, exists)
	}

	stem := Timestamp(r.now()) + "-" + base
	p := path.Join(r.root, join(stem, ext))
	taken, err := exists(ctx, p)
	if err != nil {
		return "", fmt.Errorf("check %s: %w", p, err)
	}
	if !taken {
		return p, nil
	}

	p = path.Join(r.root, join(stem+"-"+r.suffix(), ext))
	return r.claim(ctx, p, exists)
}

func (r *Resolver) claim(ctx context.Context, p string, exists ExistsFunc) (string, error) {
	taken, err := exists(ctx, p)
	if err != nil {
		return "", fmt.Errorf("check %s: %w", p, err)
	}
	if taken {
		return "", fmt.Errorf("%s: %w", p, ErrConflict)
	}
	return p, nil
}

func randomSuffix() string {
	return uuid.NewString()[:6]
}
