package scrape

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"fresherwatch/internal/domain"
	"fresherwatch/internal/scrape/types"
)

// Warning records a per-source failure that did not abort the refresh.
type Warning struct {
	Source domain.Source
	Err    error
}

// Result keeps each source's postings segregated; the per-source limit has
// already been applied. A source that failed (or wasn't requested) simply
// has no entry in Lists and, when it failed, a Warning.
type Result struct {
	Lists    map[domain.Source][]domain.JobPosting
	Warnings []Warning
}

// Ordered concatenates the per-source lists in the selector's canonical
// order, each list keeping its own internal (newest-first) order.
func (r Result) Ordered(sel domain.Selector) []domain.JobPosting {
	var out []domain.JobPosting
	for _, src := range sel.Sources() {
		out = append(out, r.Lists[src]...)
	}
	return out
}

type Aggregator struct {
	fetchers map[domain.Source]types.Fetcher
	timeout  time.Duration
}

// NewAggregator bounds every source fetch by timeout. Fetchers for sources
// disabled in config are simply not passed in.
func NewAggregator(timeout time.Duration, fetchers ...types.Fetcher) *Aggregator {
	m := make(map[domain.Source]types.Fetcher, len(fetchers))
	for _, f := range fetchers {
		m[f.Source()] = f
	}
	return &Aggregator{fetchers: m, timeout: timeout}
}

type sourceResult struct {
	source   domain.Source
	postings []domain.JobPosting
	err      error
}

// Fetch retrieves the selected sources concurrently. A failed source never
// aborts the others: it contributes an empty list plus a Warning. Each
// source's list is truncated to limit entries in extractor order.
func (a *Aggregator) Fetch(ctx context.Context, sel domain.Selector, limit int) Result {
	var g errgroup.Group // one source stuck at its timeout must not block the rest

	sources := sel.Sources()
	results := make(chan sourceResult, len(sources))

	for _, src := range sources {
		f, ok := a.fetchers[src]
		if !ok {
			continue
		}
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			postings, err := f.Fetch(fctx)
			results <- sourceResult{source: src, postings: postings, err: err}
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	out := Result{Lists: make(map[domain.Source][]domain.JobPosting, len(sources))}
	for res := range results {
		if res.err != nil {
			log.Printf("[scrape:%s] fetch failed: %v", res.source, res.err)
			out.Warnings = append(out.Warnings, Warning{Source: res.source, Err: res.err})
			continue
		}
		if limit > 0 && len(res.postings) > limit {
			res.postings = res.postings[:limit]
		}
		out.Lists[res.source] = res.postings
	}
	return out
}
