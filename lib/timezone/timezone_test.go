package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWeekBucket(t *testing.T) {
	d := time.Date(2025, 9, 1, 12, 0, 0, 0, Location)
	require.Equal(t, "2025-W36", WeekBucket(d))

	// Jan 1st can belong to the previous ISO year.
	d = time.Date(2027, 1, 1, 12, 0, 0, 0, Location)
	require.Equal(t, "2026-W53", WeekBucket(d))
}
