package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/weather-export/pkg/errors"
)

func TestBuildQueryInclusiveDayBounds(t *testing.T) {
	q, err := BuildQuery("2024-01-01", "2024-01-03", " Lon ", time.UTC)
	require.NoError(t, err)
	require.Equal(t, "Lon", q.Location)
	require.Equal(t, "Lon", q.Filter.LocationContains)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *q.Filter.From)
	require.Equal(t, time.Date(2024, 1, 3, 23, 59, 59, 999999999, time.UTC), *q.Filter.To)
	require.True(t, q.HasRange())
}

func TestBuildQueryOpenEnded(t *testing.T) {
	q, err := BuildQuery("2024-01-01", "", "", time.UTC)
	require.NoError(t, err)
	require.NotNil(t, q.Filter.From)
	require.Nil(t, q.Filter.To)

	q, err = BuildQuery("", "2024-01-01", "", time.UTC)
	require.NoError(t, err)
	require.Nil(t, q.Filter.From)
	require.Equal(t, time.Date(2024, 1, 1, 23, 59, 59, 999999999, time.UTC), *q.Filter.To)

	q, err = BuildQuery("", "", "", nil)
	require.NoError(t, err)
	require.False(t, q.HasRange())
	require.Empty(t, q.Filter.LocationContains)
}

func TestBuildQueryIgnoresTimeOfDay(t *testing.T) {
	q, err := BuildQuery("2024-01-01T18:30:00Z", "2024-01-01T06:00:00Z", "", time.UTC)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *q.Filter.From)
	require.Equal(t, time.Date(2024, 1, 1, 23, 59, 59, 999999999, time.UTC), *q.Filter.To)
}

func TestBuildQueryUsesConfiguredZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	q, err := BuildQuery("2024-01-01", "2024-01-01", "", tokyo)
	require.NoError(t, err)
	require.True(t, q.Filter.From.Equal(time.Date(2023, 12, 31, 15, 0, 0, 0, time.UTC)))
}

func TestBuildQueryRejectsInvertedRange(t *testing.T) {
	_, err := BuildQuery("2024-02-01", "2024-01-01", "", time.UTC)
	require.True(t, apperrors.IsCode(err, "invalid_date_range"))
}

func TestBuildQueryRejectsMalformedDate(t *testing.T) {
	_, err := BuildQuery("01/02/2024", "", "", time.UTC)
	require.True(t, apperrors.IsCode(err, "invalid_input"))

	_, err = BuildQuery("", "2024-13-40", "", time.UTC)
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}

func TestDescribeRange(t *testing.T) {
	both, _ := BuildQuery("2024-01-01", "2024-01-02", "", time.UTC)
	from, _ := BuildQuery("2024-01-01", "", "", time.UTC)
	until, _ := BuildQuery("", "2024-01-02", "", time.UTC)
	none, _ := BuildQuery("", "", "", time.UTC)

	require.Equal(t, "2024-01-01 to 2024-01-02", describeRange(both))
	require.Equal(t, "from 2024-01-01", describeRange(from))
	require.Equal(t, "until 2024-01-02", describeRange(until))
	require.Empty(t, describeRange(none))
}
