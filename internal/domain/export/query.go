package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/yanqian/weather-export/internal/domain/observation"
	apperrors "github.com/yanqian/weather-export/pkg/errors"
)

const dateLayout = "2006-01-02"

// Query is a validated export query: the raw inputs plus the store filter they produce.
type Query struct {
	StartDate string
	EndDate   string
	Location  string
	Filter    observation.Filter
}

// HasRange reports whether any date bound was given.
func (q Query) HasRange() bool {
	return q.Filter.From != nil || q.Filter.To != nil
}

// BuildQuery turns raw inputs into a filter with inclusive whole-day bounds computed in loc.
// Absent dates leave that side of the range open; no dates at all means every record.
func BuildQuery(startDate, endDate, location string, loc *time.Location) (Query, error) {
	if loc == nil {
		loc = time.UTC
	}
	q := Query{
		StartDate: strings.TrimSpace(startDate),
		EndDate:   strings.TrimSpace(endDate),
		Location:  strings.TrimSpace(location),
	}
	q.Filter.LocationContains = q.Location

	if q.StartDate != "" {
		day, err := parseDate(q.StartDate, loc)
		if err != nil {
			return Query{}, apperrors.Wrap("invalid_input", fmt.Sprintf("invalid startDate %q, expected YYYY-MM-DD", q.StartDate), err)
		}
		from := startOfDay(day)
		q.Filter.From = &from
	}
	if q.EndDate != "" {
		day, err := parseDate(q.EndDate, loc)
		if err != nil {
			return Query{}, apperrors.Wrap("invalid_input", fmt.Sprintf("invalid endDate %q, expected YYYY-MM-DD", q.EndDate), err)
		}
		to := endOfDay(day)
		q.Filter.To = &to
	}
	if q.Filter.From != nil && q.Filter.To != nil && q.Filter.From.After(startOfDay(*q.Filter.To)) {
		return Query{}, apperrors.Wrap("invalid_date_range",
			fmt.Sprintf("startDate %s is after endDate %s", q.StartDate, q.EndDate), nil)
	}
	return q, nil
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// describeRange renders the date bounds for report headers, or "" when unbounded.
func describeRange(q Query) string {
	if !q.HasRange() {
		return ""
	}
	switch {
	case q.Filter.From != nil && q.Filter.To != nil:
		return q.Filter.From.Format(dateLayout) + " to " + q.Filter.To.Format(dateLayout)
	case q.Filter.From != nil:
		return "from " + q.Filter.From.Format(dateLayout)
	default:
		return "until " + q.Filter.To.Format(dateLayout)
	}
}
