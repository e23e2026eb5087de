package util

import (
	"strconv"
	"time"
)

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// UnixMilli renders t as milliseconds since the epoch, the unit used in generated file names.
func UnixMilli(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
