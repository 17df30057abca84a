package session

import (
	"strconv"
	"strings"
	"time"
)

// Expired decides whether a stored auth timestamp is too old to trust.
// The timestamp is the raw durable-store value: epoch milliseconds as a
// string. An absent or unparsable timestamp counts as expired.
//
// Pure function of (timestamp, now); no clock reads, no side effects.
func Expired(timestamp string, now time.Time) bool {
	timestamp = strings.TrimSpace(timestamp)
	if timestamp == "" {
		return true
	}

	ms, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return true
	}

	return now.UnixMilli()-ms > TTL.Milliseconds()
}
