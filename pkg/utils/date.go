package utils

import "time"

// TimeNowUTC returns the current time in UTC truncated to millisecond precision,
// which is what every supported database can round-trip without loss.
func TimeNowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// ParseCompactTime parses timestamps in the "20060102T150405" layout used by
// several market data vendors. Values are interpreted as UTC.
func ParseCompactTime(value string) (time.Time, bool) {
	for _, layout := range []string{"20060102T150405", "20060102T1504"} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
