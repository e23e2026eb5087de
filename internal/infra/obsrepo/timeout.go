package obsrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yanqian/weather-export/internal/domain/observation"
)

// DefaultQueryTimeout bounds every store call when no explicit timeout is configured.
const DefaultQueryTimeout = 30 * time.Second

// BoundedRepository decorates a Repository so that no call outlives its time bound
// and every failure is classified as observation.ErrQueryTimeout or
// observation.ErrStoreUnavailable. Caller cancellation is returned unchanged.
type BoundedRepository struct {
	next    observation.Repository
	timeout time.Duration
}

// WithQueryTimeout wraps next with the given bound.
func WithQueryTimeout(next observation.Repository, timeout time.Duration) *BoundedRepository {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &BoundedRepository{next: next, timeout: timeout}
}

// Insert implements observation.Repository.
func (r *BoundedRepository) Insert(ctx context.Context, obs observation.Observation) (observation.Observation, error) {
	return bounded(ctx, r.timeout, func(qctx context.Context) (observation.Observation, error) {
		return r.next.Insert(qctx, obs)
	})
}

// Find implements observation.Repository.
func (r *BoundedRepository) Find(ctx context.Context, filter observation.Filter) ([]observation.Observation, error) {
	return bounded(ctx, r.timeout, func(qctx context.Context) ([]observation.Observation, error) {
		return r.next.Find(qctx, filter)
	})
}

// Count implements observation.Repository.
func (r *BoundedRepository) Count(ctx context.Context, filter observation.Filter) (int64, error) {
	return bounded(ctx, r.timeout, func(qctx context.Context) (int64, error) {
		return r.next.Count(qctx, filter)
	})
}

// Locations implements observation.Repository.
func (r *BoundedRepository) Locations(ctx context.Context) ([]observation.LocationSummary, error) {
	return bounded(ctx, r.timeout, func(qctx context.Context) ([]observation.LocationSummary, error) {
		return r.next.Locations(qctx)
	})
}

// Delete implements observation.Repository.
func (r *BoundedRepository) Delete(ctx context.Context, id string) (observation.Observation, bool, error) {
	type deleted struct {
		obs   observation.Observation
		found bool
	}
	res, err := bounded(ctx, r.timeout, func(qctx context.Context) (deleted, error) {
		obs, found, err := r.next.Delete(qctx, id)
		return deleted{obs: obs, found: found}, err
	})
	return res.obs, res.found, err
}

// DeleteMatching implements observation.Repository.
func (r *BoundedRepository) DeleteMatching(ctx context.Context, filter observation.Filter) (int64, error) {
	return bounded(ctx, r.timeout, func(qctx context.Context) (int64, error) {
		return r.next.DeleteMatching(qctx, filter)
	})
}

// bounded runs fn with a deadline and stops waiting once it passes, even when the
// underlying store ignores its context.
func bounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := fn(qctx)
		done <- result{value: value, err: err}
	}()

	var zero T
	select {
	case res := <-done:
		if res.err != nil {
			return zero, classify(ctx, qctx, res.err)
		}
		return res.value, nil
	case <-qctx.Done():
		return zero, classify(ctx, qctx, qctx.Err())
	}
}

func classify(parent, qctx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(qctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", observation.ErrQueryTimeout, err)
	}
	return fmt.Errorf("%w: %w", observation.ErrStoreUnavailable, err)
}

var _ observation.Repository = (*BoundedRepository)(nil)
