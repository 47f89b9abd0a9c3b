package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeSince(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    string
	}{
		{"just now", 5 * time.Second, "5s"},
		{"exactly one minute stays in seconds", 60 * time.Second, "60s"},
		{"ninety seconds", 90 * time.Second, "1m"},
		{"two hours", 7200 * time.Second, "2h"},
		{"just over a day", 90000 * time.Second, "1d"},
		{"two weeks", 14 * 24 * time.Hour, "14d"},
		{"two months", 61 * 24 * time.Hour, "2mo"},
		{"years", 800 * 24 * time.Hour, "2y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeSince(now.Add(-tt.elapsed), now))
		})
	}
}

func TestTimeSinceZeroTime(t *testing.T) {
	assert.Equal(t, "", TimeSince(time.Time{}, time.Now()))
}
