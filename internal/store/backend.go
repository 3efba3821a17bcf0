package store

import "context"

// Capabilities declares which operations a backend can serve.
type Capabilities struct {
	List      bool `json:"list"`
	Upload    bool `json:"upload"`
	Delete    bool `json:"delete"`
	DeleteAll bool `json:"deleteAll"`
}

// Full is the capability set of a fully configured backend.
var Full = Capabilities{List: true, Upload: true, Delete: true, DeleteAll: true}

// Backend is a concrete storage system behind the store.
//
// Paths are root-relative slash paths such as "uploads/a.txt". Errors
// returned by a Backend should be *Error values; anything else is reported
// as a ProtocolError at the store boundary.
type Backend interface {
	// ID is the stable identifier used for selection, e.g. "github".
	ID() string
	// Label is a human-readable name.
	Label() string
	Capabilities() Capabilities

	// List returns the entries under the uploads root.
	List(ctx context.Context, opts ListOptions) ([]Entry, error)
	// Exists reports whether path is present.
	Exists(ctx context.Context, path string) (bool, error)
	// Upload writes obj at its already-resolved path.
	Upload(ctx context.Context, obj Object) (Result, error)
	// Delete removes path. A missing path is a NotFound error.
	Delete(ctx context.Context, path string) error
	// DeleteAll removes every entry under the root, one at a time, and
	// returns how many were removed. Individual failures do not stop the
	// batch; they are reported as a PartialFailure error alongside the count.
	DeleteAll(ctx context.Context) (int, error)
}

// RateLimit is the remaining request budget of a backend API.
type RateLimit struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetAt   int64 `json:"resetAt"`
}

// RateLimiter is implemented by backends that can report their API budget.
type RateLimiter interface {
	RateLimit(ctx context.Context) (RateLimit, error)
}

// Info summarizes a registered backend.
type Info struct {
	ID           string       `json:"id"`
	Label        string       `json:"label"`
	Capabilities Capabilities `json:"capabilities"`
	Active       bool         `json:"active"`
}
