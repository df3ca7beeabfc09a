package model

import (
	"fmt"
	"strings"
	"time"
)

// FormatUnixMillis renders a millisecond timestamp as "DD-MM-YYYY HH:MM:SS"
// in the given location (local time when nil).
func FormatUnixMillis(ms int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc).Format("02-01-2006 15:04:05")
}

// ParseDateTime reads "YYYY-MM-DD" or "YYYY-MM-DD HH:MM:SS" in loc and
// returns milliseconds since the epoch. A missing time part means midnight.
func ParseDateTime(s string, loc *time.Location) (int64, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("%w: unrecognized date %q", ErrInvalidInput, s)
}
