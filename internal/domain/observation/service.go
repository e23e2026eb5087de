package observation

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/yanqian/weather-export/pkg/errors"
	"github.com/yanqian/weather-export/pkg/openweather"
	"github.com/yanqian/weather-export/pkg/util"
)

var validate = validator.New()

// Service exposes ingestion and maintenance of stored observations.
type Service interface {
	Record(ctx context.Context, req RecordRequest) (Observation, error)
	Lookup(ctx context.Context, req LookupRequest) (Observation, error)
	ByLocation(ctx context.Context, location string, page, limit int) (Page, error)
	Locations(ctx context.Context) ([]LocationSummary, error)
	TrendingSearches(ctx context.Context, limit int) ([]SearchCount, error)
	Delete(ctx context.Context, id string) (Observation, error)
	DeleteAll(ctx context.Context) (int64, error)
	DeleteByLocation(ctx context.Context, location string) (int64, error)
}

// Provider fetches current conditions for a free-text location.
type Provider interface {
	Current(ctx context.Context, query string) (openweather.CurrentWeather, error)
}

type service struct {
	cfg      Config
	repo     Repository
	stats    SearchStats
	provider Provider
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the observation domain. provider may be nil when no API key is configured.
func NewService(cfg Config, repo Repository, stats SearchStats, provider Provider, logger *slog.Logger) Service {
	return &service{
		cfg:      withDefaults(cfg),
		repo:     repo,
		stats:    stats,
		provider: provider,
		logger:   logger.With("component", "observation.service"),
		now:      util.NowUTC,
	}
}

func withDefaults(cfg Config) Config {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 10
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.TrendingLimit <= 0 {
		cfg.TrendingLimit = 10
	}
	return cfg
}

func (s *service) Record(ctx context.Context, req RecordRequest) (Observation, error) {
	req.SearchQuery = strings.TrimSpace(req.SearchQuery)
	if err := validate.Struct(req); err != nil {
		return Observation{}, apperrors.Wrap("invalid_input", "search query and weather data are required", err)
	}

	obs := FromCurrentWeather(*req.WeatherData, req.SearchQuery, s.now())
	saved, err := s.repo.Insert(ctx, obs)
	if err != nil {
		return Observation{}, storeError("failed to store weather data", err)
	}
	if s.stats != nil {
		if err := s.stats.Increment(ctx, saved.SearchQuery); err != nil {
			s.logger.Warn("search stats update failed", "query", saved.SearchQuery, "error", err)
		}
	}
	s.logger.Info("observation stored", "id", saved.ID, "location", saved.Location.Name)
	return saved, nil
}

func (s *service) Lookup(ctx context.Context, req LookupRequest) (Observation, error) {
	req.Query = strings.TrimSpace(req.Query)
	if err := validate.Struct(req); err != nil {
		return Observation{}, apperrors.Wrap("invalid_input", "query is required", err)
	}
	if s.provider == nil {
		return Observation{}, apperrors.Wrap("provider_unavailable", "weather provider is not configured", nil)
	}
	current, err := s.provider.Current(ctx, req.Query)
	if errors.Is(err, openweather.ErrLocationNotFound) {
		return Observation{}, apperrors.Wrap("not_found", "location not found", err)
	}
	if err != nil {
		return Observation{}, apperrors.Wrap("provider_error", "failed to fetch current weather", err)
	}
	return s.Record(ctx, RecordRequest{SearchQuery: req.Query, WeatherData: &current})
}

func (s *service) ByLocation(ctx context.Context, location string, page, limit int) (Page, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Page{}, apperrors.Wrap("invalid_input", "location cannot be empty", nil)
	}
	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	if page <= 0 {
		page = 1
	}

	filter := Filter{LocationContains: location}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return Page{}, storeError("failed to count weather data", err)
	}
	filter.Offset = (page - 1) * limit
	filter.Limit = limit
	data, err := s.repo.Find(ctx, filter)
	if err != nil {
		return Page{}, storeError("failed to fetch weather data", err)
	}
	if data == nil {
		data = []Observation{}
	}
	return Page{
		Data:        data,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
		CurrentPage: page,
		Total:       total,
	}, nil
}

func (s *service) Locations(ctx context.Context) ([]LocationSummary, error) {
	locations, err := s.repo.Locations(ctx)
	if err != nil {
		return nil, storeError("failed to fetch locations", err)
	}
	if locations == nil {
		locations = []LocationSummary{}
	}
	return locations, nil
}

func (s *service) TrendingSearches(ctx context.Context, limit int) ([]SearchCount, error) {
	if limit <= 0 {
		limit = s.cfg.TrendingLimit
	}
	if s.stats == nil {
		return []SearchCount{}, nil
	}
	top, err := s.stats.Top(ctx, limit)
	if err != nil {
		return nil, apperrors.Wrap("stats_error", "failed to load trending searches", err)
	}
	if top == nil {
		top = []SearchCount{}
	}
	return top, nil
}

func (s *service) Delete(ctx context.Context, id string) (Observation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Observation{}, apperrors.Wrap("invalid_input", "id cannot be empty", nil)
	}
	deleted, found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return Observation{}, storeError("failed to delete weather data", err)
	}
	if !found {
		return Observation{}, apperrors.Wrap("not_found", "weather data not found", nil)
	}
	s.logger.Info("observation deleted", "id", id)
	return deleted, nil
}

func (s *service) DeleteAll(ctx context.Context) (int64, error) {
	count, err := s.repo.DeleteMatching(ctx, Filter{})
	if err != nil {
		return 0, storeError("failed to delete data", err)
	}
	s.logger.Warn("all observations deleted", "deleted", count)
	return count, nil
}

func (s *service) DeleteByLocation(ctx context.Context, location string) (int64, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return 0, apperrors.Wrap("invalid_input", "location cannot be empty", nil)
	}
	count, err := s.repo.DeleteMatching(ctx, Filter{LocationContains: location})
	if err != nil {
		return 0, storeError("failed to delete location data", err)
	}
	s.logger.Info("observations deleted by location", "location", location, "deleted", count)
	return count, nil
}

// FromCurrentWeather maps a validated provider payload into an observation stored at ts.
func FromCurrentWeather(cw openweather.CurrentWeather, searchQuery string, ts time.Time) Observation {
	obs := Observation{
		Location: Location{
			Name:    cw.Name,
			Country: cw.Sys.Country,
			Coordinates: Coordinates{
				Lat: deref(cw.Coord.Lat),
				Lon: deref(cw.Coord.Lon),
			},
		},
		Weather: Conditions{
			Temperature: deref(cw.Main.Temp),
			FeelsLike:   deref(cw.Main.FeelsLike),
			Humidity:    derefInt(cw.Main.Humidity),
			Pressure:    derefInt(cw.Main.Pressure),
			WindSpeed:   deref(cw.Wind.Speed),
		},
		Timestamp:   ts,
		SearchQuery: searchQuery,
	}
	if len(cw.Weather) > 0 {
		obs.Weather.Main = cw.Weather[0].Main
		obs.Weather.Description = cw.Weather[0].Description
		obs.Weather.Icon = cw.Weather[0].Icon
	}
	if cw.Visibility != nil {
		v := *cw.Visibility
		obs.Weather.Visibility = &v
	}
	return obs
}

// storeError maps repository failures onto the shared error codes.
func storeError(message string, err error) error {
	if errors.Is(err, ErrQueryTimeout) {
		return apperrors.Wrap("query_timeout", "weather store query timed out", err)
	}
	return apperrors.Wrap("store_unavailable", message, err)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
