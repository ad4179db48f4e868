package calendar

import (
	"sort"

	"iltcal/internal/model"
)

// IsDayInEvent reports whether d falls on the session's start day, its end
// day, or any day in between. Only the date portion is compared.
func IsDayInEvent(s model.Session, d model.Day) bool {
	return !d.Before(s.StartDay()) && !d.After(s.EndDay())
}

// FilterEventsByDay returns the sessions touching d, in input order. The
// result is never nil.
func FilterEventsByDay(sessions []model.Session, d model.Day) []model.Session {
	out := make([]model.Session, 0)
	for _, s := range sessions {
		if IsDayInEvent(s, d) {
			out = append(out, s)
		}
	}
	return out
}

// SortByStart orders sessions by StartDate, keeping input order for ties.
func SortByStart(sessions []model.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartDate.Before(sessions[j].StartDate)
	})
}

func anyInDay(sessions []model.Session, d model.Day) bool {
	for _, s := range sessions {
		if IsDayInEvent(s, d) {
			return true
		}
	}
	return false
}
