package ics

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	appLog "iltcal/internal/log"
	"iltcal/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 1000

	wallClockLayout = "2006-01-02 15:04:05"
)

// Window is the inclusive time range feed occurrences are expanded into.
type Window struct {
	Start time.Time
	End   time.Time

	// MaxOccurrencesPerEvent caps a single RRULE. Zero means 1000.
	MaxOccurrencesPerEvent int
}

// WindowAround builds a window reaching backfillDays into the past and
// horizonDays into the future of now.
func WindowAround(now time.Time, backfillDays, horizonDays int) Window {
	return Window{
		Start: now.AddDate(0, 0, -backfillDays),
		End:   now.AddDate(0, 0, horizonDays),
	}
}

// ExpandFeeds turns parsed feed events into LMS-shaped sessions. Sessions
// of enrolled feeds land in Payload.Enrolled, the rest in
// Payload.Available. Each list is ordered by start time.
func ExpandFeeds(events []FeedEvent, w Window) (model.Payload, error) {
	var out model.Payload
	if w.End.Before(w.Start) {
		return out, errors.New("expand: window end is before start")
	}
	if w.MaxOccurrencesPerEvent <= 0 {
		w.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	type groupKey struct{ feed, uid string }
	base := make(map[groupKey][]FeedEvent)
	overrides := make(map[groupKey][]FeedEvent)
	order := make([]groupKey, 0)
	for _, ev := range events {
		k := groupKey{ev.Feed.ID, ev.UID}
		if ev.IsOverride() {
			overrides[k] = append(overrides[k], ev)
			continue
		}
		if _, seen := base[k]; !seen {
			order = append(order, k)
		}
		base[k] = append(base[k], ev)
	}

	for _, k := range order {
		for _, ev := range base[k] {
			occ, hitCap := expandEvent(ev, overrides[k], w)
			if hitCap {
				appLog.Warn("feed event truncated", "feed", k.feed, "uid", k.uid, "cap", w.MaxOccurrencesPerEvent)
			}
			for _, s := range occ {
				if ev.Feed.Enrolled {
					out.Enrolled = append(out.Enrolled, s)
				} else {
					out.Available = append(out.Available, s)
				}
			}
		}
	}

	sortByWallClock(out.Enrolled)
	sortByWallClock(out.Available)
	return out, nil
}

func expandEvent(ev FeedEvent, overrides []FeedEvent, w Window) ([]model.Session, bool) {
	if ev.RRule == "" {
		if !overlaps(ev.Start, ev.End, w.Start, w.End) {
			return nil, false
		}
		if o, ok := findOverride(overrides, ev.Start); ok {
			return []model.Session{toSession(o, o.Start, o.End, false)}, false
		}
		return []model.Session{toSession(ev, ev.Start, ev.End, false)}, false
	}

	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		appLog.Error("feed RRULE rejected", err, "uid", ev.UID, "rrule", ev.RRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	dur := ev.End.Sub(ev.Start)
	loc := ev.Start.Location()
	// Widen the lower bound by the duration so an instance already running
	// at the window start is kept.
	times := set.Between(w.Start.Add(-dur).In(loc), w.End.In(loc), true)

	hitCap := false
	if len(times) > w.MaxOccurrencesPerEvent {
		times = times[:w.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]model.Session, 0, len(times))
	for _, start := range times {
		end := start.Add(dur)
		if o, ok := findOverride(overrides, start); ok {
			out = append(out, toSession(o, o.Start, o.End, true))
			continue
		}
		out = append(out, toSession(ev, start, end, true))
	}
	return out, hitCap
}

func findOverride(overrides []FeedEvent, start time.Time) (FeedEvent, bool) {
	for _, o := range overrides {
		if o.Recurrence != nil && o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return FeedEvent{}, false
}

// toSession maps one occurrence to a session. Recurring instances get the
// start timestamp appended to the UID so every instance has its own key.
func toSession(ev FeedEvent, start, end time.Time, recurring bool) model.Session {
	if ev.AllDay && end.After(start) {
		// All-day ends are exclusive midnights; keep the instance on its
		// own days.
		end = end.Add(-time.Minute)
	}
	id := ev.UID
	if recurring {
		id = ev.UID + "@" + start.UTC().Format("20060102T150405Z")
	}
	title := ev.Summary
	if title == "" {
		title = ev.Feed.Name
	}
	return model.Session{
		ID:       model.FlexString(id),
		StartAt:  start.Format(wallClockLayout),
		EndAt:    end.Format(wallClockLayout),
		Timezone: zoneName(start),
		Title:    title,
		Course:   ev.Description,
		Location: ev.Location,
		URL:      ev.URL,
		Enrolled: ev.Feed.Enrolled,
	}
}

// zoneName returns a timezone value ResolveLocation understands: the IANA
// name when it is loadable, otherwise the numeric offset at t.
func zoneName(t time.Time) string {
	name := t.Location().String()
	if name != "" && name != "Local" {
		if _, err := time.LoadLocation(name); err == nil {
			return name
		}
	}
	_, off := t.Zone()
	sign := '+'
	if off < 0 {
		sign = '-'
		off = -off
	}
	return fmt.Sprintf("%c%02d:%02d", sign, off/3600, (off%3600)/60)
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

func sortByWallClock(sessions []model.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, errA := model.ParseWallClock(sessions[i].StartAt, mustLocation(sessions[i].Timezone))
		b, errB := model.ParseWallClock(sessions[j].StartAt, mustLocation(sessions[j].Timezone))
		if errA != nil || errB != nil {
			return false
		}
		return a.Before(b)
	})
}

func mustLocation(tz string) *time.Location {
	loc, err := model.ResolveLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
