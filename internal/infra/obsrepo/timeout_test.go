package obsrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/weather-export/internal/domain/observation"
)

func TestBoundedRepositoryTimesOutSlowStore(t *testing.T) {
	repo := WithQueryTimeout(&slowRepo{delay: time.Second}, 20*time.Millisecond)

	start := time.Now()
	_, err := repo.Find(context.Background(), observation.Filter{})
	require.ErrorIs(t, err, observation.ErrQueryTimeout)
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestBoundedRepositoryClassifiesFailures(t *testing.T) {
	repo := WithQueryTimeout(&slowRepo{err: errors.New("connection refused")}, time.Second)

	_, err := repo.Count(context.Background(), observation.Filter{})
	require.ErrorIs(t, err, observation.ErrStoreUnavailable)
	require.NotErrorIs(t, err, observation.ErrQueryTimeout)
}

func TestBoundedRepositoryPassesCallerCancellation(t *testing.T) {
	repo := WithQueryTimeout(&slowRepo{delay: time.Second}, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Find(ctx, observation.Filter{})
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, observation.ErrStoreUnavailable)
}

func TestBoundedRepositoryDelegates(t *testing.T) {
	mem := NewMemoryRepository()
	repo := WithQueryTimeout(mem, 0)
	saved, err := repo.Insert(context.Background(), sample("Vienna", "AT", time.Now().UTC()))
	require.NoError(t, err)

	_, found, err := repo.Delete(context.Background(), saved.ID)
	require.NoError(t, err)
	require.True(t, found)
}

// slowRepo ignores its context, like a driver that never checks for cancellation.
type slowRepo struct {
	MemoryRepository
	delay time.Duration
	err   error
}

func (r *slowRepo) Find(_ context.Context, _ observation.Filter) ([]observation.Observation, error) {
	time.Sleep(r.delay)
	return []observation.Observation{}, r.err
}

func (r *slowRepo) Count(_ context.Context, _ observation.Filter) (int64, error) {
	time.Sleep(r.delay)
	return 0, r.err
}
