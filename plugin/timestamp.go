package plugin

import (
	"fmt"
	"strconv"
	"time"
)

const timestampLayout = "20060102150405"

// TimestampOf encodes t (in UTC) as a logical timestamp, e.g. 20240131235959.
func TimestampOf(t time.Time) int64 {
	ts, _ := strconv.ParseInt(t.UTC().Format(timestampLayout), 10, 64)

	return ts
}

// TimeOf decodes a logical timestamp. It fails for values that are not in
// yyyyMMddHHmmss form.
func TimeOf(timestamp int64) (time.Time, error) {
	t, err := time.Parse(timestampLayout, strconv.FormatInt(timestamp, 10))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %d: %w", timestamp, err)
	}

	return t, nil
}
