package ics

import (
	"context"
	"time"

	appLog "iltcal/internal/log"
	"iltcal/internal/model"
)

// Importer fetches, parses and expands every configured feed.
type Importer struct {
	Fetcher      *Fetcher
	Feeds        []Feed
	BackfillDays int
	HorizonDays  int
	Now          func() time.Time
}

// LoadFeeds returns the sessions contributed by all feeds. A feed that
// cannot be fetched or parsed contributes nothing.
func (im *Importer) LoadFeeds(ctx context.Context) model.Payload {
	var out model.Payload
	if im == nil || len(im.Feeds) == 0 {
		return out
	}
	now := time.Now
	if im.Now != nil {
		now = im.Now
	}

	results, _ := im.Fetcher.FetchAll(ctx, im.Feeds)
	events := make([]FeedEvent, 0)
	for _, res := range results {
		evs, err := ParseFeed(res.Feed, res.Body)
		if err != nil {
			appLog.Error("feed parse failed", err, "id", res.Feed.ID)
			continue
		}
		events = append(events, evs...)
	}

	p, err := ExpandFeeds(events, WindowAround(now(), im.BackfillDays, im.HorizonDays))
	if err != nil {
		appLog.Error("feed expand failed", err)
		return out
	}
	appLog.Info("feeds loaded", "feeds", len(results), "enrolled", len(p.Enrolled), "available", len(p.Available))
	return p
}
