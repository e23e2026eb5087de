package obsrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/weather-export/internal/domain/observation"
)

// PostgresRepository implements observation.Repository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the observation table and its indexes when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS weather_observations (
			id TEXT PRIMARY KEY,
			location_name TEXT NOT NULL,
			country TEXT NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			lon DOUBLE PRECISION NOT NULL,
			weather_main TEXT NOT NULL,
			weather_description TEXT NOT NULL,
			weather_icon TEXT NOT NULL,
			temperature DOUBLE PRECISION NOT NULL,
			feels_like DOUBLE PRECISION NOT NULL,
			humidity INTEGER NOT NULL,
			pressure INTEGER NOT NULL,
			wind_speed DOUBLE PRECISION NOT NULL,
			visibility INTEGER,
			search_query TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_weather_observations_name_recorded
			ON weather_observations (location_name, recorded_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_weather_observations_recorded
			ON weather_observations (recorded_at DESC)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Insert stores a new observation, assigning its id.
func (r *PostgresRepository) Insert(ctx context.Context, obs observation.Observation) (observation.Observation, error) {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO weather_observations (`+observationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, obs.ID, obs.Location.Name, obs.Location.Country, obs.Location.Coordinates.Lat, obs.Location.Coordinates.Lon,
		obs.Weather.Main, obs.Weather.Description, obs.Weather.Icon, obs.Weather.Temperature, obs.Weather.FeelsLike,
		obs.Weather.Humidity, obs.Weather.Pressure, obs.Weather.WindSpeed, visibilityArg(obs.Weather.Visibility),
		obs.SearchQuery, obs.Timestamp)
	if err != nil {
		return observation.Observation{}, err
	}
	return obs, nil
}

// Find returns matching rows newest first.
func (r *PostgresRepository) Find(ctx context.Context, filter observation.Filter) ([]observation.Observation, error) {
	query, args := postgresDialect.findQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]observation.Observation, 0)
	for rows.Next() {
		obs, err := scanPostgresObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

// Count returns the number of matching rows.
func (r *PostgresRepository) Count(ctx context.Context, filter observation.Filter) (int64, error) {
	where, args := postgresDialect.where(filter)
	var count int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM weather_observations"+where, args...).Scan(&count)
	return count, err
}

// Locations aggregates observations per location.
func (r *PostgresRepository) Locations(ctx context.Context) ([]observation.LocationSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT location_name, country, COUNT(*) AS search_count, MAX(recorded_at)
		FROM weather_observations
		GROUP BY location_name, country
		ORDER BY search_count DESC, location_name ASC, country ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]observation.LocationSummary, 0)
	for rows.Next() {
		var summary observation.LocationSummary
		if err := rows.Scan(&summary.Name, &summary.Country, &summary.SearchCount, &summary.LastUpdated); err != nil {
			return nil, err
		}
		summary.LastUpdated = summary.LastUpdated.UTC()
		out = append(out, summary)
	}
	return out, rows.Err()
}

// Delete removes a single observation and returns it.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (observation.Observation, bool, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM weather_observations
		WHERE id = $1
		RETURNING `+observationColumns, id)
	obs, err := scanPostgresObservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return observation.Observation{}, false, nil
		}
		return observation.Observation{}, false, err
	}
	return obs, true, nil
}

// DeleteMatching removes every row matching the filter.
func (r *PostgresRepository) DeleteMatching(ctx context.Context, filter observation.Filter) (int64, error) {
	where, args := postgresDialect.where(filter)
	tag, err := r.pool.Exec(ctx, "DELETE FROM weather_observations"+where, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanPostgresObservation(row rowScanner) (observation.Observation, error) {
	var (
		obs        observation.Observation
		visibility sql.NullInt64
		recordedAt time.Time
	)
	err := row.Scan(&obs.ID, &obs.Location.Name, &obs.Location.Country, &obs.Location.Coordinates.Lat,
		&obs.Location.Coordinates.Lon, &obs.Weather.Main, &obs.Weather.Description, &obs.Weather.Icon,
		&obs.Weather.Temperature, &obs.Weather.FeelsLike, &obs.Weather.Humidity, &obs.Weather.Pressure,
		&obs.Weather.WindSpeed, &visibility, &obs.SearchQuery, &recordedAt)
	if err != nil {
		return observation.Observation{}, err
	}
	if visibility.Valid {
		v := int(visibility.Int64)
		obs.Weather.Visibility = &v
	}
	obs.Timestamp = recordedAt.UTC()
	return obs, nil
}

var _ observation.Repository = (*PostgresRepository)(nil)
