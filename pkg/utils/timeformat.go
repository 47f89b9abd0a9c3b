package utils

import (
	"strconv"
	"time"
)

// Fixed average-length divisors, in seconds.
const (
	secondsPerYear   = 31536000
	secondsPerMonth  = 2592000
	secondsPerDay    = 86400
	secondsPerHour   = 3600
	secondsPerMinute = 60
)

// TimeSince renders the elapsed time since t as a compact label ("2h", "1d", "3mo").
// A zero time renders empty.
func TimeSince(t time.Time, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	seconds := int64(now.Sub(t).Seconds())

	if interval := seconds / secondsPerYear; float64(seconds)/secondsPerYear > 1 {
		return strconv.FormatInt(interval, 10) + "y"
	}
	if interval := seconds / secondsPerMonth; float64(seconds)/secondsPerMonth > 1 {
		return strconv.FormatInt(interval, 10) + "mo"
	}
	if interval := seconds / secondsPerDay; float64(seconds)/secondsPerDay > 1 {
		return strconv.FormatInt(interval, 10) + "d"
	}
	if interval := seconds / secondsPerHour; float64(seconds)/secondsPerHour > 1 {
		return strconv.FormatInt(interval, 10) + "h"
	}
	if interval := seconds / secondsPerMinute; float64(seconds)/secondsPerMinute > 1 {
		return strconv.FormatInt(interval, 10) + "m"
	}
	return strconv.FormatInt(seconds, 10) + "s"
}
