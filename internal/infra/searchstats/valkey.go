package searchstats

import (
	"context"
	"fmt"
	"strings"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/weather-export/internal/domain/observation"
)

// ValkeyStats keeps query counters in a Valkey sorted set.
type ValkeyStats struct {
	client valkey.Client
	prefix string
}

// NewValkeyStats constructs statistics backed by Valkey.
func NewValkeyStats(client valkey.Client, prefix string) *ValkeyStats {
	if prefix == "" {
		prefix = "weather"
	}
	return &ValkeyStats{client: client, prefix: prefix}
}

// Increment implements observation.SearchStats.
func (s *ValkeyStats) Increment(ctx context.Context, query string) error {
	canonical := canonicalQuery(query)
	if canonical == "" {
		return nil
	}
	if err := s.client.Do(ctx, s.client.B().Zincrby().Key(s.searchesKey()).Increment(1).Member(canonical).Build()).Error(); err != nil {
		return err
	}
	err := s.client.Do(ctx, s.client.B().Set().Key(s.displayKey(canonical)).Value(strings.TrimSpace(query)).Nx().Build()).Error()
	return displayNameError(err)
}

// displayNameError ignores the nil reply SET NX gives when the display name already exists.
func displayNameError(err error) error {
	if err == nil || valkey.IsValkeyNil(err) {
		return nil
	}
	return fmt.Errorf("store display name: %w", err)
}

// Top implements observation.SearchStats.
func (s *ValkeyStats) Top(ctx context.Context, limit int) ([]observation.SearchCount, error) {
	if limit <= 0 {
		limit = 10
	}
	resp := s.client.Do(ctx, s.client.B().Zrevrange().Key(s.searchesKey()).Start(0).Stop(int64(limit-1)).Withscores().Build())
	arr, err := resp.ToArray()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return []observation.SearchCount{}, nil
		}
		return nil, err
	}
	out := make([]observation.SearchCount, 0, len(arr))
	for i := 0; i < len(arr); {
		var (
			member string
			score  float64
		)
		if tuple, tupleErr := arr[i].ToArray(); tupleErr == nil && len(tuple) == 2 {
			// RESP3 nests [member, score]
			if member, err = tuple[0].ToString(); err != nil {
				return nil, err
			}
			if score, err = tuple[1].ToFloat64(); err != nil {
				return nil, err
			}
			i++
		} else {
			if i+1 >= len(arr) {
				break
			}
			if member, err = arr[i].ToString(); err != nil {
				return nil, err
			}
			if score, err = arr[i+1].ToFloat64(); err != nil {
				return nil, err
			}
			i += 2
		}
		out = append(out, observation.SearchCount{Query: s.display(ctx, member), Count: int64(score)})
	}
	return out, nil
}

func (s *ValkeyStats) display(ctx context.Context, canonical string) string {
	value, err := s.client.Do(ctx, s.client.B().Get().Key(s.displayKey(canonical)).Build()).ToString()
	if err != nil || value == "" {
		return canonical
	}
	return value
}

func (s *ValkeyStats) searchesKey() string {
	return fmt.Sprintf("%s:searches", s.prefix)
}

func (s *ValkeyStats) displayKey(canonical string) string {
	return fmt.Sprintf("%s:search:%s", s.prefix, canonical)
}

var _ observation.SearchStats = (*ValkeyStats)(nil)
