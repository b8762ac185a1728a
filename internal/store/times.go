package store

import "time"

// TimeFormat renders timestamps with fixed-width fractional seconds so the
// TEXT columns compare lexicographically in time order. RFC3339Nano trims
// trailing zeros, which breaks that property at sub-second resolution.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t in UTC using TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime reads timestamps written by FormatTime, as well as older
// variable-width values.
func ParseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}
