package obsrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/yanqian/weather-export/internal/domain/observation"
)

// MemoryRepository is an in-memory observation.Repository used for tests/dev.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]observation.Observation
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]observation.Observation)}
}

// Insert implements observation.Repository.
func (r *MemoryRepository) Insert(ctx context.Context, obs observation.Observation) (observation.Observation, error) {
	if err := ctx.Err(); err != nil {
		return observation.Observation{}, err
	}
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[obs.ID] = clone(obs)
	return clone(obs), nil
}

// Find implements observation.Repository.
func (r *MemoryRepository) Find(ctx context.Context, filter observation.Filter) ([]observation.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches := r.matching(filter)
	sortNewestFirst(matches)
	return window(matches, filter.Offset, filter.Limit), nil
}

// Count implements observation.Repository.
func (r *MemoryRepository) Count(ctx context.Context, filter observation.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(r.matching(filter))), nil
}

// Locations implements observation.Repository.
func (r *MemoryRepository) Locations(ctx context.Context) ([]observation.LocationSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	type key struct{ name, country string }
	grouped := make(map[key]*observation.LocationSummary)
	for _, rec := range r.records {
		k := key{rec.Location.Name, rec.Location.Country}
		summary, ok := grouped[k]
		if !ok {
			summary = &observation.LocationSummary{Name: k.name, Country: k.country}
			grouped[k] = summary
		}
		summary.SearchCount++
		if rec.Timestamp.After(summary.LastUpdated) {
			summary.LastUpdated = rec.Timestamp
		}
	}
	out := make([]observation.LocationSummary, 0, len(grouped))
	for _, summary := range grouped {
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SearchCount != out[j].SearchCount {
			return out[i].SearchCount > out[j].SearchCount
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Country < out[j].Country
	})
	return out, nil
}

// Delete implements observation.Repository.
func (r *MemoryRepository) Delete(ctx context.Context, id string) (observation.Observation, bool, error) {
	if err := ctx.Err(); err != nil {
		return observation.Observation{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return observation.Observation{}, false, nil
	}
	delete(r.records, id)
	return rec, true, nil
}

// DeleteMatching implements observation.Repository.
func (r *MemoryRepository) DeleteMatching(ctx context.Context, filter observation.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, rec := range r.records {
		if filter.Matches(rec) {
			delete(r.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *MemoryRepository) matching(filter observation.Filter) []observation.Observation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]observation.Observation, 0)
	for _, rec := range r.records {
		if filter.Matches(rec) {
			out = append(out, clone(rec))
		}
	}
	return out
}

func sortNewestFirst(records []observation.Observation) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.After(records[j].Timestamp)
		}
		return records[i].ID < records[j].ID
	})
}

func window(records []observation.Observation, offset, limit int) []observation.Observation {
	if offset > 0 {
		if offset >= len(records) {
			return []observation.Observation{}
		}
		records = records[offset:]
	}
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}

// clone detaches the optional visibility pointer so callers cannot mutate stored records.
func clone(obs observation.Observation) observation.Observation {
	if obs.Weather.Visibility != nil {
		v := *obs.Weather.Visibility
		obs.Weather.Visibility = &v
	}
	return obs
}

var _ observation.Repository = (*MemoryRepository)(nil)
