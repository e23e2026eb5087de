package obsrepo

import (
	"strconv"
	"strings"
	"time"

	"github.com/yanqian/weather-export/internal/domain/observation"
)

const observationColumns = `id, location_name, country, lat, lon, weather_main, weather_description, weather_icon,
	temperature, feels_like, humidity, pressure, wind_speed, visibility, search_query, recorded_at`

// dialect captures the few places where Postgres and SQLite SQL differ.
type dialect struct {
	placeholder func(n int) string
	contains    func(column, param string) string
	timeArg     func(t time.Time) any
}

var postgresDialect = dialect{
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	contains: func(column, param string) string {
		return "strpos(lower(" + column + "), lower(" + param + ")) > 0"
	},
	timeArg: func(t time.Time) any { return t },
}

var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	contains: func(column, param string) string {
		return "instr(" + foldFunction + "(" + column + "), " + foldFunction + "(" + param + ")) > 0"
	},
	timeArg: func(t time.Time) any { return t.UnixNano() },
}

// where renders the filter predicate and its arguments.
func (d dialect) where(filter observation.Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.From != nil {
		args = append(args, d.timeArg(*filter.From))
		clauses = append(clauses, "recorded_at >= "+d.placeholder(len(args)))
	}
	if filter.To != nil {
		args = append(args, d.timeArg(*filter.To))
		clauses = append(clauses, "recorded_at <= "+d.placeholder(len(args)))
	}
	if filter.LocationContains != "" {
		args = append(args, filter.LocationContains)
		clauses = append(clauses, d.contains("location_name", d.placeholder(len(args))))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// findQuery renders the ordered, optionally windowed select for Find.
func (d dialect) findQuery(filter observation.Filter) (string, []any) {
	where, args := d.where(filter)
	query := "SELECT " + observationColumns + " FROM weather_observations" + where + " ORDER BY recorded_at DESC, id ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT " + d.placeholder(len(args))
		args = append(args, filter.Offset)
		query += " OFFSET " + d.placeholder(len(args))
	}
	return query, args
}

func visibilityArg(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

type rowScanner interface {
	Scan(dest ...any) error
}
