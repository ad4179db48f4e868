package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weeklyFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//feed//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:weekly-1\r\n" +
	"DTSTAMP:20240401T000000Z\r\n" +
	"DTSTART:20240506T080000Z\r\n" +
	"DTEND:20240506T090000Z\r\n" +
	"RRULE:FREQ=WEEKLY;COUNT=4\r\n" +
	"EXDATE:20240513T080000Z\r\n" +
	"SUMMARY:Safety briefing\r\n" +
	"LOCATION:Room 2\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:weekly-1\r\n" +
	"DTSTAMP:20240401T000000Z\r\n" +
	"RECURRENCE-ID:20240520T080000Z\r\n" +
	"DTSTART:20240520T100000Z\r\n" +
	"DTEND:20240520T110000Z\r\n" +
	"SUMMARY:Safety briefing (moved)\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:single-1\r\n" +
	"DTSTAMP:20240401T000000Z\r\n" +
	"DTSTART:20240510T120000Z\r\n" +
	"DTEND:20240510T130000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTAMP:20240401T000000Z\r\n" +
	"DTSTART:20240510T120000Z\r\n" +
	"SUMMARY:no uid\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseFeed(t *testing.T) {
	feed := Feed{ID: "team", Name: "Team calendar"}
	events, err := ParseFeed(feed, []byte(weeklyFeed))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "weekly-1", events[0].UID)
	assert.Equal(t, "FREQ=WEEKLY;COUNT=4", events[0].RRule)
	require.Len(t, events[0].ExDates, 1)
	assert.True(t, events[0].ExDates[0].Equal(time.Date(2024, time.May, 13, 8, 0, 0, 0, time.UTC)))

	assert.True(t, events[1].IsOverride())
	assert.False(t, events[2].IsOverride())

	_, err = ParseFeed(feed, []byte("  "))
	assert.Error(t, err)
}

func TestExpandFeeds(t *testing.T) {
	feed := Feed{ID: "team", Name: "Team calendar", Enrolled: true}
	events, err := ParseFeed(feed, []byte(weeklyFeed))
	require.NoError(t, err)

	w := Window{
		Start: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC),
	}
	p, err := ExpandFeeds(events, w)
	require.NoError(t, err)
	assert.Empty(t, p.Available)
	require.Len(t, p.Enrolled, 4)

	starts := make([]string, 0, len(p.Enrolled))
	for _, s := range p.Enrolled {
		starts = append(starts, s.StartAt)
		assert.True(t, s.Enrolled)
		assert.Equal(t, "UTC", s.Timezone)
	}
	assert.Equal(t, []string{
		"2024-05-06 08:00:00",
		"2024-05-10 12:00:00",
		"2024-05-20 10:00:00",
		"2024-05-27 08:00:00",
	}, starts)

	assert.Equal(t, "weekly-1@20240506T080000Z", p.Enrolled[0].Key())
	assert.Equal(t, "single-1", p.Enrolled[1].Key())
	// A feed event without a summary falls back to the feed name.
	assert.Equal(t, "Team calendar", p.Enrolled[1].Title)
	assert.Equal(t, "Safety briefing (moved)", p.Enrolled[2].Title)
}

func TestExpandFeedsWindow(t *testing.T) {
	feed := Feed{ID: "team"}
	events, err := ParseFeed(feed, []byte(weeklyFeed))
	require.NoError(t, err)

	w := Window{
		Start: time.Date(2024, time.May, 21, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC),
	}
	p, err := ExpandFeeds(events, w)
	require.NoError(t, err)
	assert.Empty(t, p.Enrolled)
	require.Len(t, p.Available, 1)
	assert.Equal(t, "2024-05-27 08:00:00", p.Available[0].StartAt)

	_, err = ExpandFeeds(events, Window{Start: w.End, End: w.Start})
	assert.Error(t, err)
}

func TestWindowAround(t *testing.T) {
	now := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)
	w := WindowAround(now, 7, 30)
	assert.Equal(t, time.Date(2024, time.May, 8, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC), w.End)
}

func TestFetcherRevalidatesAndFallsBack(t *testing.T) {
	var (
		hits   int32
		broken atomic.Bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if broken.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(weeklyFeed))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	feed := Feed{ID: "team", URL: srv.URL + "/team.ics"}

	res, err := f.Fetch(context.Background(), feed)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, weeklyFeed, string(res.Body))

	res, err = f.Fetch(context.Background(), feed)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, weeklyFeed, string(res.Body))

	broken.Store(true)
	res, err = f.Fetch(context.Background(), feed)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestFetchAllReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	res, errs := f.FetchAll(context.Background(), []Feed{
		{ID: "missing", URL: srv.URL + "/x.ics"},
		{ID: "empty"},
	})
	assert.Empty(t, res)
	assert.Len(t, errs, 2)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://cal.example.com/...(redacted)", redactURL("https://cal.example.com/private/token123/basic.ics"))
	assert.Equal(t, "(redacted)", redactURL("not a url"))
}
