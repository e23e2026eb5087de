package observation

import (
	"time"

	"github.com/yanqian/weather-export/pkg/openweather"
)

// Coordinates locates an observation on the globe.
type Coordinates struct {
	Lat float64 `json:"lat" xml:"lat"`
	Lon float64 `json:"lon" xml:"lon"`
}

// Location identifies where the weather was looked up.
type Location struct {
	Name        string      `json:"name" xml:"name"`
	Country     string      `json:"country" xml:"country"`
	Coordinates Coordinates `json:"coordinates" xml:"coordinates"`
}

// Conditions holds the provider readings. Visibility is optional and nil when the
// provider did not report it.
type Conditions struct {
	Main        string  `json:"main" xml:"main"`
	Description string  `json:"description" xml:"description"`
	Icon        string  `json:"icon" xml:"icon"`
	Temperature float64 `json:"temperature" xml:"temperature"`
	FeelsLike   float64 `json:"feels_like" xml:"feels_like"`
	Humidity    int     `json:"humidity" xml:"humidity"`
	Pressure    int     `json:"pressure" xml:"pressure"`
	WindSpeed   float64 `json:"wind_speed" xml:"wind_speed"`
	Visibility  *int    `json:"visibility,omitempty" xml:"visibility,omitempty"`
}

// Observation is one stored weather record. Timestamp is the time the record was
// stored, not the provider's measurement time.
type Observation struct {
	ID          string     `json:"id" xml:"id"`
	Location    Location   `json:"location" xml:"location"`
	Weather     Conditions `json:"weather" xml:"weather"`
	Timestamp   time.Time  `json:"timestamp" xml:"timestamp"`
	SearchQuery string     `json:"searchQuery" xml:"searchQuery"`
}

// Filter narrows a store scan. Nil bounds are open; an empty LocationContains matches
// every location name. Limit <= 0 means unbounded.
type Filter struct {
	From             *time.Time
	To               *time.Time
	LocationContains string
	Offset           int
	Limit            int
}

// Matches reports whether obs satisfies the filter predicate (bounds inclusive,
// location compared case-insensitively as a substring).
func (f Filter) Matches(obs Observation) bool {
	if f.From != nil && obs.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && obs.Timestamp.After(*f.To) {
		return false
	}
	if f.LocationContains != "" && !containsFold(obs.Location.Name, f.LocationContains) {
		return false
	}
	return true
}

// LocationSummary aggregates stored observations per (name, country).
type LocationSummary struct {
	Name        string    `json:"name"`
	Country     string    `json:"country"`
	SearchCount int64     `json:"searchCount"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// SearchCount is a trending search query.
type SearchCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// RecordRequest stores a provider payload under the user's raw search string.
type RecordRequest struct {
	SearchQuery string                      `json:"searchQuery" validate:"required"`
	WeatherData *openweather.CurrentWeather `json:"weatherData" validate:"required"`
}

// LookupRequest asks the provider for current weather and stores the result.
type LookupRequest struct {
	Query string `json:"query" validate:"required,max=200"`
}

// Page is a window of observations for a location listing.
type Page struct {
	Data        []Observation `json:"data"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Total       int64         `json:"total"`
}

// Config holds runtime knobs for the observation service.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
	TrendingLimit   int
}
