package piezometry

import "time"

// isoMillis matches the backend's expected ISO-8601 range bounds.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Clock supplies the wall clock and the zone reference dates are built in.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// SystemClock reads time.Now in the given zone (UTC when nil).
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Now: time.Now, Location: loc}
}

func (c Clock) now() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	nowFn := c.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return nowFn().In(loc)
}

// StartOfYear is January 1st, midnight, of now's year.
func StartOfYear(now time.Time) time.Time {
	return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
}

// HydroYearStart is the fixed start of the reference hydrological year.
func HydroYearStart(loc *time.Location) time.Time {
	return time.Date(2015, time.October, 1, 0, 0, 0, 0, loc)
}

// Last365Days moves now back 365 calendar days keeping the wall clock time.
func Last365Days(now time.Time) time.Time {
	return now.AddDate(0, 0, -365)
}

func isoString(t time.Time) string {
	return t.UTC().Format(isoMillis)
}
