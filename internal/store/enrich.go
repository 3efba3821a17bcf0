package store

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds per-entry lookups when none is configured.
const DefaultConcurrency = 4

// Enrich runs fn for every entry with at most limit calls in flight. fn
// mutates the entry in place. Enrichment is best effort: an error from fn is
// dropped and the remaining entries are still processed. Only context
// cancellation is returned.
func Enrich(ctx context.Context, entries []Entry, limit int, fn func(ctx context.Context, e *Entry) error) error {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range entries {
		e := &entries[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_ = fn(gctx, e)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
