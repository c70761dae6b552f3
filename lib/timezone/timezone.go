package timezone

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Location is the campus timezone, the portal renders every ledger
// timestamp as local campus time without an offset.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
}

// force timezone to be on campus because servers do not necessarily
// run on the east coast, which will cause disturbances when
// manipulating dates based on <time.Time>.Year()/Month()/Day()/Hour()/...
func Now() time.Time {
	return time.Now().In(Location)
}

// Load resolves a configured timezone name, an empty name is the campus
// timezone.
func Load(name string) (*time.Location, error) {
	if name == "" {
		return Location, nil
	}
	return time.LoadLocation(name)
}

const DateLayout = "01/02/2006"

// ParseDate parses a "MM/DD/YYYY" date as midnight in loc.
func ParseDate(text string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, text, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not MM/DD/YYYY", text)
	}
	return t, nil
}
