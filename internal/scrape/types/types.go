package types

import (
	"context"
	"errors"

	"fresherwatch/internal/domain"
)

// ErrNoListing is returned by an extractor when the page carries no
// recognizable listing structure at all. Individually malformed entries are
// skipped, never reported.
var ErrNoListing = errors.New("no recognizable listing structure")

// Fetcher retrieves one source's page and extracts its postings,
// newest-first in document order.
type Fetcher interface {
	Source() domain.Source
	Fetch(ctx context.Context) ([]domain.JobPosting, error)
}
