package render

import (
	"sort"

	"iltcal/internal/model"
)

// UpcomingItem is one card slot of the upcoming list: a session on one of
// the days it spans.
type UpcomingItem struct {
	Session model.Session
	Day     model.Day
}

// ExpandUpcoming keeps sessions that have not ended before today and emits
// one item per remaining day of each, from max(today, start day) through
// the end day inclusive. Days already past never reappear. Items are
// ordered by day, then by session start, then by input order.
func ExpandUpcoming(sessions []model.Session, today model.Day) []UpcomingItem {
	items := make([]UpcomingItem, 0, len(sessions))
	for _, s := range sessions {
		end := s.EndDay()
		if end.Before(today) {
			continue
		}
		d := s.StartDay()
		if d.Before(today) {
			d = today
		}
		for ; !d.After(end); d = d.AddDays(1) {
			items = append(items, UpcomingItem{Session: s, Day: d})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if c := items[i].Day.Compare(items[j].Day); c != 0 {
			return c < 0
		}
		return items[i].Session.StartDate.Before(items[j].Session.StartDate)
	})
	return items
}
