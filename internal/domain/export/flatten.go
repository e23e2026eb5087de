package export

import (
	"strconv"
	"time"

	"github.com/yanqian/weather-export/internal/domain/observation"
)

// NotAvailable stands in for an absent optional reading.
const NotAvailable = "N/A"

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

var (
	fullFields = []string{
		"city", "country", "coordinates", "temperature", "feels_like",
		"humidity", "pressure", "wind_speed", "weather_main",
		"weather_description", "visibility", "search_query", "timestamp", "record_id",
	}
	basicFields = []string{
		"city", "country", "temperature", "feels_like", "humidity",
		"pressure", "wind_speed", "weather", "description", "timestamp",
	}
)

// Fields returns the ordered column names of the profile.
func (p Profile) Fields() []string {
	if p == ProfileFull {
		return append([]string(nil), fullFields...)
	}
	return append([]string(nil), basicFields...)
}

// FlatRecord maps field names to primitive values (string, int, float64 or time.Time).
type FlatRecord map[string]any

// Flatten projects an observation onto the field set of profile.
func Flatten(obs observation.Observation, profile Profile, pres Presentation) FlatRecord {
	if profile != ProfileFull {
		return FlatRecord{
			"city":        obs.Location.Name,
			"country":     obs.Location.Country,
			"temperature": obs.Weather.Temperature,
			"feels_like":  obs.Weather.FeelsLike,
			"humidity":    obs.Weather.Humidity,
			"pressure":    obs.Weather.Pressure,
			"wind_speed":  obs.Weather.WindSpeed,
			"weather":     obs.Weather.Main,
			"description": obs.Weather.Description,
			"timestamp":   obs.Timestamp,
		}
	}

	var visibility any = NotAvailable
	if obs.Weather.Visibility != nil {
		visibility = *obs.Weather.Visibility
	}
	return FlatRecord{
		"city":                obs.Location.Name,
		"country":             obs.Location.Country,
		"coordinates":         formatFloat(obs.Location.Coordinates.Lat) + ", " + formatFloat(obs.Location.Coordinates.Lon),
		"temperature":         obs.Weather.Temperature,
		"feels_like":          obs.Weather.FeelsLike,
		"humidity":            obs.Weather.Humidity,
		"pressure":            obs.Weather.Pressure,
		"wind_speed":          obs.Weather.WindSpeed,
		"weather_main":        obs.Weather.Main,
		"weather_description": obs.Weather.Description,
		"visibility":          visibility,
		"search_query":        obs.SearchQuery,
		"timestamp":           pres.Local(obs.Timestamp),
		"record_id":           obs.ID,
	}
}

// Values returns the record's cells in field order, formatted as text.
func (r FlatRecord) Values(fields []string) []string {
	out := make([]string, len(fields))
	for i, field := range fields {
		out[i] = formatValue(r[field])
	}
	return out
}

func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return formatFloat(value)
	case time.Time:
		return value.UTC().Format(isoMillis)
	default:
		return ""
	}
}

// formatFloat prints the shortest representation that round-trips.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
