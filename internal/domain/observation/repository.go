package observation

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrQueryTimeout signals that a store scan exceeded its time bound.
	ErrQueryTimeout = errors.New("store query timed out")
	// ErrStoreUnavailable signals a connection or driver level failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Repository persists observations. Find returns matches sorted by timestamp
// descending with ties broken by id ascending, and an empty slice when nothing matches.
type Repository interface {
	Insert(ctx context.Context, obs Observation) (Observation, error)
	Find(ctx context.Context, filter Filter) ([]Observation, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Locations(ctx context.Context) ([]LocationSummary, error)
	Delete(ctx context.Context, id string) (Observation, bool, error)
	DeleteMatching(ctx context.Context, filter Filter) (int64, error)
}

// SearchStats tracks how often each search query is used.
type SearchStats interface {
	Increment(ctx context.Context, query string) error
	Top(ctx context.Context, limit int) ([]SearchCount, error)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
