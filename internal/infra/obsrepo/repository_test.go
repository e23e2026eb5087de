package obsrepo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/weather-export/internal/domain/export"
	"github.com/yanqian/weather-export/internal/domain/observation"
)

func TestMemoryRepositoryContract(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) observation.Repository {
		return NewMemoryRepository()
	})
}

func TestSQLiteRepositoryContract(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) observation.Repository {
		repo, err := OpenSQLite(context.Background(), ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	})
}

func TestMemoryRepositoryReturnsDetachedCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	visibility := 9000
	obs := sample("London", "GB", mustTime(t, "2024-01-01T10:00:00Z"))
	obs.Weather.Visibility = &visibility
	_, err := repo.Insert(ctx, obs)
	require.NoError(t, err)

	found, err := repo.Find(ctx, observation.Filter{})
	require.NoError(t, err)
	*found[0].Weather.Visibility = 1

	again, err := repo.Find(ctx, observation.Filter{})
	require.NoError(t, err)
	require.Equal(t, 9000, *again[0].Weather.Visibility)
}

func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) observation.Repository) {
	t.Run("empty store yields empty slice", func(t *testing.T) {
		repo := newRepo(t)
		found, err := repo.Find(context.Background(), observation.Filter{LocationContains: "nowhere"})
		require.NoError(t, err)
		require.NotNil(t, found)
		require.Empty(t, found)
	})

	t.Run("day range and location filters", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		london := insert(t, repo, sample("London", "GB", mustTime(t, "2024-01-01T10:00:00Z")))
		paris := insert(t, repo, sample("Paris", "FR", mustTime(t, "2024-01-05T10:00:00Z")))

		from := mustTime(t, "2024-01-01T00:00:00Z")
		to := time.Date(2024, 1, 1, 23, 59, 59, 999999999, time.UTC)
		found, err := repo.Find(ctx, observation.Filter{From: &from, To: &to})
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.Equal(t, london.ID, found[0].ID)

		found, err = repo.Find(ctx, observation.Filter{LocationContains: "PAR"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.Equal(t, paris.ID, found[0].ID)
		require.Equal(t, "FR", found[0].Location.Country)
		require.True(t, paris.Timestamp.Equal(found[0].Timestamp))
	})

	t.Run("day bounds include both edges of the range only", func(t *testing.T) {
		repo := newRepo(t)
		insert(t, repo, sample("Before", "GB", mustTime(t, "2024-01-01T23:59:59.999Z")))
		first := insert(t, repo, sample("First", "GB", mustTime(t, "2024-01-02T00:00:00.000Z")))
		last := insert(t, repo, sample("Last", "GB", mustTime(t, "2024-01-03T23:59:59.999Z")))
		insert(t, repo, sample("After", "GB", mustTime(t, "2024-01-04T00:00:00.000Z")))

		query, err := export.BuildQuery("2024-01-02", "2024-01-03", "", time.UTC)
		require.NoError(t, err)
		found, err := repo.Find(context.Background(), query.Filter)
		require.NoError(t, err)
		require.Len(t, found, 2)
		require.Equal(t, last.ID, found[0].ID)
		require.Equal(t, first.ID, found[1].ID)

		count, err := repo.Count(context.Background(), query.Filter)
		require.NoError(t, err)
		require.Equal(t, int64(2), count)
	})

	t.Run("location filter folds non-ascii case", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		zurich := insert(t, repo, sample("Zürich", "CH", mustTime(t, "2024-01-01T10:00:00Z")))
		insert(t, repo, sample("Zug", "CH", mustTime(t, "2024-01-01T11:00:00Z")))

		found, err := repo.Find(ctx, observation.Filter{LocationContains: "ZÜRICH"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.Equal(t, zurich.ID, found[0].ID)

		count, err := repo.DeleteMatching(ctx, observation.Filter{LocationContains: "zÜr"})
		require.NoError(t, err)
		require.Equal(t, int64(1), count)

		remaining, err := repo.Find(ctx, observation.Filter{})
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		require.Equal(t, "Zug", remaining[0].Location.Name)
	})

	t.Run("newest first with pagination", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		base := mustTime(t, "2024-03-01T08:00:00Z")
		for i := 0; i < 5; i++ {
			insert(t, repo, sample("Berlin", "DE", base.Add(time.Duration(i)*time.Hour)))
		}
		all, err := repo.Find(ctx, observation.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 5)
		for i := 1; i < len(all); i++ {
			require.True(t, all[i-1].Timestamp.After(all[i].Timestamp))
		}

		page, err := repo.Find(ctx, observation.Filter{Offset: 2, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)
		require.Equal(t, all[2].ID, page[0].ID)
		require.Equal(t, all[3].ID, page[1].ID)

		count, err := repo.Count(ctx, observation.Filter{LocationContains: "ber"})
		require.NoError(t, err)
		require.Equal(t, int64(5), count)
	})

	t.Run("optional visibility survives storage", func(t *testing.T) {
		repo := newRepo(t)
		visibility := 10000
		withVis := sample("Oslo", "NO", mustTime(t, "2024-02-01T00:00:00Z"))
		withVis.Weather.Visibility = &visibility
		insert(t, repo, withVis)
		insert(t, repo, sample("Oslo", "NO", mustTime(t, "2024-01-01T00:00:00Z")))

		found, err := repo.Find(context.Background(), observation.Filter{})
		require.NoError(t, err)
		require.Len(t, found, 2)
		require.NotNil(t, found[0].Weather.Visibility)
		require.Equal(t, 10000, *found[0].Weather.Visibility)
		require.Nil(t, found[1].Weather.Visibility)
	})

	t.Run("locations aggregate", func(t *testing.T) {
		repo := newRepo(t)
		insert(t, repo, sample("Rome", "IT", mustTime(t, "2024-01-01T00:00:00Z")))
		insert(t, repo, sample("Rome", "IT", mustTime(t, "2024-01-03T00:00:00Z")))
		insert(t, repo, sample("Madrid", "ES", mustTime(t, "2024-01-02T00:00:00Z")))

		locations, err := repo.Locations(context.Background())
		require.NoError(t, err)
		require.Len(t, locations, 2)
		require.Equal(t, "Rome", locations[0].Name)
		require.Equal(t, int64(2), locations[0].SearchCount)
		require.True(t, mustTime(t, "2024-01-03T00:00:00Z").Equal(locations[0].LastUpdated))
		require.Equal(t, "Madrid", locations[1].Name)
	})

	t.Run("delete by id and by filter", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		target := insert(t, repo, sample("Lisbon", "PT", mustTime(t, "2024-01-01T00:00:00Z")))
		insert(t, repo, sample("Lisbon", "PT", mustTime(t, "2024-01-02T00:00:00Z")))
		insert(t, repo, sample("Porto", "PT", mustTime(t, "2024-01-02T00:00:00Z")))

		deleted, found, err := repo.Delete(ctx, target.ID)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "Lisbon", deleted.Location.Name)

		_, found, err = repo.Delete(ctx, target.ID)
		require.NoError(t, err)
		require.False(t, found)

		count, err := repo.DeleteMatching(ctx, observation.Filter{LocationContains: "lis"})
		require.NoError(t, err)
		require.Equal(t, int64(1), count)

		count, err = repo.DeleteMatching(ctx, observation.Filter{})
		require.NoError(t, err)
		require.Equal(t, int64(1), count)
	})
}

func insert(t *testing.T, repo observation.Repository, obs observation.Observation) observation.Observation {
	t.Helper()
	saved, err := repo.Insert(context.Background(), obs)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	return saved
}

func sample(name, country string, ts time.Time) observation.Observation {
	return observation.Observation{
		Location: observation.Location{
			Name:        name,
			Country:     country,
			Coordinates: observation.Coordinates{Lat: 51.5, Lon: -0.12},
		},
		Weather: observation.Conditions{
			Main:        "Clouds",
			Description: "broken clouds",
			Icon:        "04d",
			Temperature: 10.5,
			FeelsLike:   9.25,
			Humidity:    70,
			Pressure:    1015,
			WindSpeed:   3.6,
		},
		Timestamp:   ts,
		SearchQuery: name,
	}
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}
