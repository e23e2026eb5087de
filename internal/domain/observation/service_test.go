package observation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/weather-export/pkg/errors"
	"github.com/yanqian/weather-export/pkg/openweather"
)

func TestServiceRecordMapsProviderPayload(t *testing.T) {
	repo := &stubRepo{}
	stats := &stubStats{}
	svc := newServiceUnderTest(repo, stats, nil)

	obs, err := svc.Record(context.Background(), RecordRequest{
		SearchQuery: "  London ",
		WeatherData: samplePayload(),
	})
	require.NoError(t, err)
	require.Equal(t, "London", obs.SearchQuery)
	require.Equal(t, "London", obs.Location.Name)
	require.Equal(t, "GB", obs.Location.Country)
	require.Equal(t, 51.5085, obs.Location.Coordinates.Lat)
	require.Equal(t, 12.5, obs.Weather.Temperature)
	require.Equal(t, 81, obs.Weather.Humidity)
	require.Equal(t, "light rain", obs.Weather.Description)
	require.Nil(t, obs.Weather.Visibility)
	require.Equal(t, fixedNow(), obs.Timestamp)
	require.Len(t, repo.inserted, 1)
	require.Equal(t, []string{"London"}, stats.queries)
}

func TestServiceRecordSurvivesStatsFailure(t *testing.T) {
	repo := &stubRepo{}
	stats := &stubStats{err: errors.New("store display name: connection reset")}
	svc := newServiceUnderTest(repo, stats, nil)

	_, err := svc.Record(context.Background(), RecordRequest{SearchQuery: "London", WeatherData: samplePayload()})
	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)
	require.Equal(t, []string{"London"}, stats.queries)
}

func TestServiceRecordRejectsIncompletePayload(t *testing.T) {
	svc := newServiceUnderTest(&stubRepo{}, nil, nil)

	payload := samplePayload()
	payload.Main.Temp = nil
	_, err := svc.Record(context.Background(), RecordRequest{SearchQuery: "London", WeatherData: payload})
	require.True(t, apperrors.IsCode(err, "invalid_input"))

	_, err = svc.Record(context.Background(), RecordRequest{SearchQuery: " ", WeatherData: samplePayload()})
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}

func TestServiceRecordKeepsVisibility(t *testing.T) {
	repo := &stubRepo{}
	svc := newServiceUnderTest(repo, nil, nil)

	payload := samplePayload()
	visibility := 10000
	payload.Visibility = &visibility
	obs, err := svc.Record(context.Background(), RecordRequest{SearchQuery: "London", WeatherData: payload})
	require.NoError(t, err)
	require.NotNil(t, obs.Weather.Visibility)
	require.Equal(t, 10000, *obs.Weather.Visibility)
}

func TestServiceLookupWithoutProvider(t *testing.T) {
	svc := newServiceUnderTest(&stubRepo{}, nil, nil)
	_, err := svc.Lookup(context.Background(), LookupRequest{Query: "Paris"})
	require.True(t, apperrors.IsCode(err, "provider_unavailable"))
}

func TestServiceLookupStoresProviderResult(t *testing.T) {
	repo := &stubRepo{}
	provider := &stubProvider{payload: *samplePayload()}
	svc := newServiceUnderTest(repo, nil, provider)

	obs, err := svc.Lookup(context.Background(), LookupRequest{Query: "london,uk"})
	require.NoError(t, err)
	require.Equal(t, "london,uk", provider.lastQuery)
	require.Equal(t, "london,uk", obs.SearchQuery)
	require.Len(t, repo.inserted, 1)
}

func TestServiceLookupProviderFailure(t *testing.T) {
	svc := newServiceUnderTest(&stubRepo{}, nil, &stubProvider{err: errors.New("boom")})
	_, err := svc.Lookup(context.Background(), LookupRequest{Query: "Paris"})
	require.True(t, apperrors.IsCode(err, "provider_error"))
}

func TestServiceLookupUnknownLocation(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("openweather: %w", openweather.ErrLocationNotFound)}
	svc := newServiceUnderTest(&stubRepo{}, nil, provider)
	_, err := svc.Lookup(context.Background(), LookupRequest{Query: "Atlantis"})
	require.True(t, apperrors.IsCode(err, "not_found"))
}

func TestServiceByLocationPaginates(t *testing.T) {
	repo := &stubRepo{count: 25}
	svc := newServiceUnderTest(repo, nil, nil)

	page, err := svc.ByLocation(context.Background(), "lon", 3, 10)
	require.NoError(t, err)
	require.Equal(t, 3, page.TotalPages)
	require.Equal(t, 3, page.CurrentPage)
	require.Equal(t, int64(25), page.Total)
	require.NotNil(t, page.Data)
	require.Equal(t, 20, repo.lastFilter.Offset)
	require.Equal(t, 10, repo.lastFilter.Limit)
	require.Equal(t, "lon", repo.lastFilter.LocationContains)
}

func TestServiceDeleteNotFound(t *testing.T) {
	svc := newServiceUnderTest(&stubRepo{}, nil, nil)
	_, err := svc.Delete(context.Background(), "missing")
	require.True(t, apperrors.IsCode(err, "not_found"))
}

func TestServiceMapsStoreTimeout(t *testing.T) {
	svc := newServiceUnderTest(&stubRepo{err: ErrQueryTimeout}, nil, nil)
	_, err := svc.Locations(context.Background())
	require.True(t, apperrors.IsCode(err, "query_timeout"))

	svc = newServiceUnderTest(&stubRepo{err: errors.New("conn reset")}, nil, nil)
	_, err = svc.DeleteAll(context.Background())
	require.True(t, apperrors.IsCode(err, "store_unavailable"))
}

func TestFilterMatches(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 23, 59, 59, 999999999, time.UTC)
	filter := Filter{From: &from, To: &to, LocationContains: "LON"}

	require.True(t, filter.Matches(Observation{Location: Location{Name: "London"}, Timestamp: from}))
	require.True(t, filter.Matches(Observation{Location: Location{Name: "London"}, Timestamp: to}))
	require.False(t, filter.Matches(Observation{Location: Location{Name: "London"}, Timestamp: to.Add(time.Nanosecond)}))
	require.False(t, filter.Matches(Observation{Location: Location{Name: "Paris"}, Timestamp: from}))
	require.True(t, Filter{}.Matches(Observation{}))
}

func newServiceUnderTest(repo Repository, stats SearchStats, provider Provider) *service {
	svc := NewService(Config{}, repo, stats, provider, slog.New(slog.NewTextHandler(io.Discard, nil))).(*service)
	svc.now = fixedNow
	return svc
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
}

func samplePayload() *openweather.CurrentWeather {
	lat, lon := 51.5085, -0.1257
	temp, feels, wind := 12.5, 11.8, 4.1
	humidity, pressure := 81, 1012
	return &openweather.CurrentWeather{
		Name:    "London",
		Coord:   openweather.Coord{Lat: &lat, Lon: &lon},
		Weather: []openweather.Condition{{Main: "Rain", Description: "light rain", Icon: "10d"}},
		Main:    openweather.MainReadings{Temp: &temp, FeelsLike: &feels, Humidity: &humidity, Pressure: &pressure},
		Wind:    openweather.Wind{Speed: &wind},
		Sys:     openweather.Sys{Country: "GB"},
	}
}

type stubRepo struct {
	inserted   []Observation
	count      int64
	lastFilter Filter
	err        error
}

func (r *stubRepo) Insert(_ context.Context, obs Observation) (Observation, error) {
	if r.err != nil {
		return Observation{}, r.err
	}
	obs.ID = "id-1"
	r.inserted = append(r.inserted, obs)
	return obs, nil
}

func (r *stubRepo) Find(_ context.Context, filter Filter) ([]Observation, error) {
	r.lastFilter = filter
	return nil, r.err
}

func (r *stubRepo) Count(_ context.Context, _ Filter) (int64, error) {
	return r.count, r.err
}

func (r *stubRepo) Locations(_ context.Context) ([]LocationSummary, error) {
	return nil, r.err
}

func (r *stubRepo) Delete(_ context.Context, _ string) (Observation, bool, error) {
	return Observation{}, false, r.err
}

func (r *stubRepo) DeleteMatching(_ context.Context, _ Filter) (int64, error) {
	return 0, r.err
}

type stubStats struct {
	queries []string
	err     error
}

func (s *stubStats) Increment(_ context.Context, query string) error {
	s.queries = append(s.queries, query)
	return s.err
}

func (s *stubStats) Top(_ context.Context, _ int) ([]SearchCount, error) {
	return nil, nil
}

type stubProvider struct {
	payload   openweather.CurrentWeather
	err       error
	lastQuery string
}

func (p *stubProvider) Current(_ context.Context, query string) (openweather.CurrentWeather, error) {
	p.lastQuery = query
	if p.err != nil {
		return openweather.CurrentWeather{}, p.err
	}
	return p.payload, nil
}
