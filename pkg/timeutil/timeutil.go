package timeutil

import (
	"strings"
	"time"
	"unicode"
)

const StampLayout = "20060102_150405"

// Stamp formats t for use in file and directory names.
func Stamp(t time.Time) string {
	return t.Format(StampLayout)
}

// ParseDuration parses a Go duration, allowing whitespace between units
// ("1h 15m").
func ParseDuration(s string) (time.Duration, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return time.ParseDuration(compact)
}

// Millis converts a millisecond timestamp into a time.
func Millis(ms uint64) time.Time {
	return time.UnixMilli(int64(ms))
}
