package sched

import "time"

// NextDaily returns the next wall-clock hh:mm in loc strictly after now. The
// instant is rebuilt from calendar fields on every call, so the zone offset
// in effect at fire time applies and the schedule stays on local wall-clock
// time across DST transitions.
func NextDaily(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(now) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}
