package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/weather-export/internal/domain/observation"
)

func TestRunOnceLooksUpEveryLocation(t *testing.T) {
	looker := &stubLooker{fail: map[string]bool{"Atlantis": true}}
	s := New([]string{"London", "Atlantis", "Paris"}, time.Minute, looker, discardLogger())

	s.RunOnce()

	got := looker.queries()
	sort.Strings(got)
	require.Equal(t, []string{"Atlantis", "London", "Paris"}, got)
}

func TestStartWithoutLocationsIsIdle(t *testing.T) {
	s := New(nil, time.Minute, &stubLooker{}, discardLogger())
	require.NoError(t, s.Start())
	require.False(t, s.scheduler.IsRunning())
	s.Stop()
}

func TestStartAndStop(t *testing.T) {
	looker := &stubLooker{}
	s := New([]string{"Oslo"}, time.Hour, looker, discardLogger())
	require.NoError(t, s.Start())
	require.True(t, s.scheduler.IsRunning())
	s.Stop()
	require.False(t, s.scheduler.IsRunning())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubLooker struct {
	mu   sync.Mutex
	seen []string
	fail map[string]bool
}

func (l *stubLooker) Lookup(_ context.Context, req observation.LookupRequest) (observation.Observation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, req.Query)
	if l.fail[req.Query] {
		return observation.Observation{}, errors.New("location not found")
	}
	return observation.Observation{SearchQuery: req.Query}, nil
}

func (l *stubLooker) queries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.seen...)
}
