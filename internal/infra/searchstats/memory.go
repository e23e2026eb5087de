package searchstats

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/yanqian/weather-export/internal/domain/observation"
)

// MemoryStats counts search queries in process memory for tests/dev.
type MemoryStats struct {
	mu       sync.RWMutex
	counts   map[string]int64
	displays map[string]string
}

// NewMemoryStats constructs empty statistics.
func NewMemoryStats() *MemoryStats {
	return &MemoryStats{
		counts:   make(map[string]int64),
		displays: make(map[string]string),
	}
}

// Increment implements observation.SearchStats.
func (s *MemoryStats) Increment(_ context.Context, query string) error {
	canonical := canonicalQuery(query)
	if canonical == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[canonical]++
	if _, exists := s.displays[canonical]; !exists {
		s.displays[canonical] = strings.TrimSpace(query)
	}
	return nil
}

// Top implements observation.SearchStats.
func (s *MemoryStats) Top(_ context.Context, limit int) ([]observation.SearchCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]observation.SearchCount, 0, len(s.counts))
	for canonical, count := range s.counts {
		items = append(items, observation.SearchCount{Query: s.displays[canonical], Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Query < items[j].Query
		}
		return items[i].Count > items[j].Count
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// canonicalQuery folds case and whitespace so "London" and " london " count together.
func canonicalQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

var _ observation.SearchStats = (*MemoryStats)(nil)
