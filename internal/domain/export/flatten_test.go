package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFlattenFullProfileRoundTrip(t *testing.T) {
	obs := londonRecord()
	flat := Flatten(obs, ProfileFull, utcPresentation())
	values := flat.Values(ProfileFull.Fields())
	byField := make(map[string]string, len(values))
	for i, field := range ProfileFull.Fields() {
		byField[field] = values[i]
	}

	temperature, err := strconv.ParseFloat(byField["temperature"], 64)
	require.NoError(t, err)
	require.Equal(t, obs.Weather.Temperature, temperature)
	windSpeed, err := strconv.ParseFloat(byField["wind_speed"], 64)
	require.NoError(t, err)
	require.Equal(t, obs.Weather.WindSpeed, windSpeed)
	humidity, err := strconv.Atoi(byField["humidity"])
	require.NoError(t, err)
	require.Equal(t, obs.Weather.Humidity, humidity)
	pressure, err := strconv.Atoi(byField["pressure"])
	require.NoError(t, err)
	require.Equal(t, obs.Weather.Pressure, pressure)

	require.Equal(t, "51.5085, -0.1257", byField["coordinates"])
	require.Equal(t, NotAvailable, byField["visibility"])
	require.Equal(t, "1/1/2024, 10:00:00 AM", byField["timestamp"])
	require.Equal(t, obs.ID, byField["record_id"])
}

func TestFlattenVisibilityPresent(t *testing.T) {
	obs := parisRecord()
	flat := Flatten(obs, ProfileFull, utcPresentation())
	require.Equal(t, 9000, flat["visibility"])
	require.Equal(t, "9000", formatValue(flat["visibility"]))
}

func TestFlattenBasicProfileKeepsRawTimestamp(t *testing.T) {
	flat := Flatten(londonRecord(), ProfileBasic, utcPresentation())
	require.Len(t, flat, len(ProfileBasic.Fields()))
	require.IsType(t, time.Time{}, flat["timestamp"])
	require.Equal(t, "Clouds", flat["weather"])
	require.Equal(t, "overcast clouds", flat["description"])
	require.Equal(t, "2024-01-01T10:00:00.000Z", formatValue(flat["timestamp"]))
}

func TestProfileFieldsAreCopies(t *testing.T) {
	fields := ProfileFull.Fields()
	fields[0] = "mutated"
	require.Equal(t, "city", ProfileFull.Fields()[0])
}

func TestCSVFullProfileMissingVisibilityKeepsColumns(t *testing.T) {
	obs := londonRecord()
	obs.Location.Name = "London, City of"
	obs.SearchQuery = `"London"`
	doc := testDocument(ModeAll, obs)

	payload, err := csvRenderer{}.Render(context.Background(), doc)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(payload.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	header, row := rows[0], rows[1]
	require.Equal(t, ProfileFull.Fields(), header)
	require.Len(t, row, len(header))

	col := func(name string) string {
		for i, field := range header {
			if field == name {
				return row[i]
			}
		}
		t.Fatalf("missing column %s", name)
		return ""
	}
	require.Equal(t, NotAvailable, col("visibility"))
	require.Equal(t, "London, City of", col("city"))
	require.Equal(t, `"London"`, col("search_query"))
	require.Equal(t, "12.5", col("temperature"))
	require.Equal(t, obs.ID, col("record_id"))
}
