package timezone

import (
	"fmt"
	"time"
)

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Yekaterinburg")
	if err != nil {
		panic(err)
	}
}

// Now returns local time pinned to the deployment timezone, so weekly
// archive buckets and screenshot timestamps don't shift when the tool
// runs on a machine configured for another zone.
func Now() time.Time {
	return time.Now().In(Location)
}

// WeekBucket formats t as the ISO year-week directory name used by the
// completed archive, e.g. "2025-W36".
func WeekBucket(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}
