package obsrepo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"

	"github.com/yanqian/weather-export/internal/domain/observation"
)

// SQLiteRepository implements observation.Repository on a local SQLite file.
// recorded_at is stored as unix nanoseconds so range predicates and ordering stay numeric.
type SQLiteRepository struct {
	db *sql.DB
}

// foldFunction lowercases with Go's Unicode rules; SQLite's lower() only folds ASCII.
const foldFunction = "unicode_lower"

var (
	registerFoldOnce sync.Once
	registerFoldErr  error
)

func registerFoldFunction() error {
	registerFoldOnce.Do(func() {
		registerFoldErr = sqlite.RegisterDeterministicScalarFunction(foldFunction, 1,
			func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				switch v := args[0].(type) {
				case string:
					return strings.ToLower(v), nil
				case []byte:
					return strings.ToLower(string(v)), nil
				default:
					return v, nil
				}
			})
	})
	return registerFoldErr
}

// OpenSQLite opens (or creates) the database at path and prepares the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if err := registerFoldFunction(); err != nil {
		return nil, fmt.Errorf("register %s: %w", foldFunction, err)
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// each pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	repo := &SQLiteRepository{db: db}
	if err := repo.initDB(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// Close releases the underlying database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) initDB(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS weather_observations (
			id TEXT PRIMARY KEY,
			location_name TEXT NOT NULL,
			country TEXT NOT NULL,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			weather_main TEXT NOT NULL,
			weather_description TEXT NOT NULL,
			weather_icon TEXT NOT NULL,
			temperature REAL NOT NULL,
			feels_like REAL NOT NULL,
			humidity INTEGER NOT NULL,
			pressure INTEGER NOT NULL,
			wind_speed REAL NOT NULL,
			visibility INTEGER,
			search_query TEXT NOT NULL,
			recorded_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create weather_observations table: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_weather_observations_name_recorded ON weather_observations(location_name, recorded_at DESC)`)
	if err != nil {
		return fmt.Errorf("failed to create location index: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_weather_observations_recorded ON weather_observations(recorded_at DESC)`)
	if err != nil {
		return fmt.Errorf("failed to create recorded_at index: %w", err)
	}
	return nil
}

// Insert stores a new observation, assigning its id.
func (r *SQLiteRepository) Insert(ctx context.Context, obs observation.Observation) (observation.Observation, error) {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO weather_observations (`+observationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, obs.ID, obs.Location.Name, obs.Location.Country, obs.Location.Coordinates.Lat, obs.Location.Coordinates.Lon,
		obs.Weather.Main, obs.Weather.Description, obs.Weather.Icon, obs.Weather.Temperature, obs.Weather.FeelsLike,
		obs.Weather.Humidity, obs.Weather.Pressure, obs.Weather.WindSpeed, visibilityArg(obs.Weather.Visibility),
		obs.SearchQuery, obs.Timestamp.UnixNano())
	if err != nil {
		return observation.Observation{}, fmt.Errorf("failed to insert observation: %w", err)
	}
	return obs, nil
}

// Find returns matching rows newest first.
func (r *SQLiteRepository) Find(ctx context.Context, filter observation.Filter) ([]observation.Observation, error) {
	query, args := sqliteDialect.findQuery(filter)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]observation.Observation, 0)
	for rows.Next() {
		obs, err := scanSQLiteObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

// Count returns the number of matching rows.
func (r *SQLiteRepository) Count(ctx context.Context, filter observation.Filter) (int64, error) {
	where, args := sqliteDialect.where(filter)
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM weather_observations"+where, args...).Scan(&count)
	return count, err
}

// Locations aggregates observations per location.
func (r *SQLiteRepository) Locations(ctx context.Context) ([]observation.LocationSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
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
		var (
			summary observation.LocationSummary
			last    int64
		)
		if err := rows.Scan(&summary.Name, &summary.Country, &summary.SearchCount, &last); err != nil {
			return nil, err
		}
		summary.LastUpdated = time.Unix(0, last).UTC()
		out = append(out, summary)
	}
	return out, rows.Err()
}

// Delete removes a single observation and returns it.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) (observation.Observation, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return observation.Observation{}, false, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, "SELECT "+observationColumns+" FROM weather_observations WHERE id = ?", id)
	obs, err := scanSQLiteObservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return observation.Observation{}, false, nil
		}
		return observation.Observation{}, false, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM weather_observations WHERE id = ?", id); err != nil {
		return observation.Observation{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return observation.Observation{}, false, err
	}
	return obs, true, nil
}

// DeleteMatching removes every row matching the filter.
func (r *SQLiteRepository) DeleteMatching(ctx context.Context, filter observation.Filter) (int64, error) {
	where, args := sqliteDialect.where(filter)
	result, err := r.db.ExecContext(ctx, "DELETE FROM weather_observations"+where, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanSQLiteObservation(row rowScanner) (observation.Observation, error) {
	var (
		obs        observation.Observation
		visibility sql.NullInt64
		recordedAt int64
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
	obs.Timestamp = time.Unix(0, recordedAt).UTC()
	return obs, nil
}

var _ observation.Repository = (*SQLiteRepository)(nil)
