package session

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpired(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	tests := []struct {
		name      string
		timestamp string
		want      bool
	}{
		{
			name:      "absent timestamp is expired",
			timestamp: "",
			want:      true,
		},
		{
			name:      "unparsable timestamp is expired",
			timestamp: "not-a-number",
			want:      true,
		},
		{
			name:      "fractional timestamp is expired",
			timestamp: "1699999999999.5",
			want:      true,
		},
		{
			name:      "one hour old is valid",
			timestamp: strconv.FormatInt(now.Add(-time.Hour).UnixMilli(), 10),
			want:      false,
		},
		{
			name:      "exactly at TTL is still valid",
			timestamp: strconv.FormatInt(now.Add(-TTL).UnixMilli(), 10),
			want:      false,
		},
		{
			name:      "one millisecond past TTL is expired",
			timestamp: strconv.FormatInt(now.Add(-TTL).Add(-time.Millisecond).UnixMilli(), 10),
			want:      true,
		},
		{
			name:      "eight days old is expired",
			timestamp: strconv.FormatInt(now.Add(-8*24*time.Hour).UnixMilli(), 10),
			want:      true,
		},
		{
			name:      "future timestamp is valid",
			timestamp: strconv.FormatInt(now.Add(time.Hour).UnixMilli(), 10),
			want:      false,
		},
		{
			name:      "surrounding whitespace is tolerated",
			timestamp: " " + strconv.FormatInt(now.Add(-time.Hour).UnixMilli(), 10) + " ",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expired(tt.timestamp, now))
		})
	}
}

func TestExpiredIsDeterministic(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	timestamp := strconv.FormatInt(now.Add(-3*24*time.Hour).UnixMilli(), 10)

	first := Expired(timestamp, now)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Expired(timestamp, now))
	}
}
