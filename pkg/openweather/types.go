package openweather

import "errors"

// ErrLocationNotFound is returned when the provider cannot resolve a query.
var ErrLocationNotFound = errors.New("location not found")

// Condition is one entry of the "weather" array in a current-weather response.
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main" validate:"required"`
	Description string `json:"description" validate:"required"`
	Icon        string `json:"icon" validate:"required"`
}

// Coord holds the coordinates of the resolved location.
type Coord struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lon *float64 `json:"lon" validate:"required"`
}

// MainReadings groups the thermodynamic readings.
type MainReadings struct {
	Temp      *float64 `json:"temp" validate:"required"`
	FeelsLike *float64 `json:"feels_like" validate:"required"`
	Humidity  *int     `json:"humidity" validate:"required,min=0,max=100"`
	Pressure  *int     `json:"pressure" validate:"required"`
}

// Wind holds wind readings in metric units.
type Wind struct {
	Speed *float64 `json:"speed" validate:"required"`
	Deg   int      `json:"deg"`
}

// Sys carries the country code.
type Sys struct {
	Country string `json:"country" validate:"required"`
}

// CurrentWeather mirrors the /data/2.5/weather payload with units=metric.
// Pointer fields distinguish a zero reading from a missing one.
type CurrentWeather struct {
	Name       string       `json:"name" validate:"required"`
	Coord      Coord        `json:"coord"`
	Weather    []Condition  `json:"weather" validate:"required,min=1,dive"`
	Main       MainReadings `json:"main"`
	Wind       Wind         `json:"wind"`
	Visibility *int         `json:"visibility,omitempty"`
	Sys        Sys          `json:"sys"`
	Dt         int64        `json:"dt"`
}
