package notify

import "time"

// DNDType selects how a do-not-disturb window repeats.
type DNDType int

const (
	// DNDNone means no active window.
	DNDNone DNDType = iota
	// DNDOnce is a single window anchored to the current day; only the
	// clock time-of-day of Begin/End is meaningful on write.
	DNDOnce
	// DNDClearly is an explicit absolute window.
	DNDClearly
)

func (t DNDType) String() string {
	switch t {
	case DNDOnce:
		return "once"
	case DNDClearly:
		return "clearly"
	default:
		return "none"
	}
}

// DoNotDisturbDate is one user's do-not-disturb window. Begin and End are
// epoch milliseconds; a DNDNone window carries (0, 0).
type DoNotDisturbDate struct {
	Type  DNDType `json:"type"`
	Begin int64   `json:"begin"`
	End   int64   `json:"end"`
}

// Active reports whether now (epoch ms) falls inside the window.
func (d DoNotDisturbDate) Active(nowMs int64) bool {
	if d.Type == DNDNone {
		return false
	}
	return nowMs >= d.Begin && nowMs < d.End
}

// Expired reports whether the window is behind us and should reset to none.
func (d DoNotDisturbDate) Expired(nowMs int64) bool {
	return d.Type != DNDNone && nowMs >= d.End
}

// ProjectOnce maps a DNDOnce window onto the current day: the stored
// Begin/End keep only their wall-clock time-of-day, re-anchored to today.
// If the projected window already ended, or ends before it begins, the
// whole window shifts to tomorrow. Non-once windows pass through untouched.
func (d DoNotDisturbDate) ProjectOnce(now time.Time) DoNotDisturbDate {
	if d.Type != DNDOnce {
		return d
	}
	begin := projectClock(time.UnixMilli(d.Begin), now)
	end := projectClock(time.UnixMilli(d.End), now)
	// Overnight windows (e.g. 23:00-01:00) end on the following day.
	if !end.After(begin) {
		end = end.AddDate(0, 0, 1)
	}
	// Today's occurrence is already over; the next one is tomorrow.
	if !end.After(now) {
		begin = begin.AddDate(0, 0, 1)
		end = end.AddDate(0, 0, 1)
	}
	return DoNotDisturbDate{Type: DNDOnce, Begin: begin.UnixMilli(), End: end.UnixMilli()}
}

func projectClock(src, day time.Time) time.Time {
	src = src.In(day.Location())
	return time.Date(day.Year(), day.Month(), day.Day(),
		src.Hour(), src.Minute(), src.Second(), src.Nanosecond(), day.Location())
}
