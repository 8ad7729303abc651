package crawl

import (
	"context"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/logger"
	"github.com/hojomatch/hojocrawl/internal/textnorm"
)

// DefaultFeeds lists the subsidy-news feeds ingested when no explicit
// feed set is configured.
var DefaultFeeds = []string{
	"https://j-net21.smrj.go.jp/rss/support.xml",
}

// RSSLane ingests feed entries as minimal page records. Feed-provided
// links are trusted and bypass the host allow-list.
type RSSLane struct {
	feeds  []string
	fetch  Fetcher
	cache  CacheStore
	pages  PageStore
	runlog *RunLog
	log    logger.Interface
}

// NewRSSLane creates the RSS ingestion lane.
func NewRSSLane(
	feeds []string,
	fetch Fetcher,
	cache CacheStore,
	pages PageStore,
	runlog *RunLog,
	log logger.Interface,
) *RSSLane {
	return &RSSLane{
		feeds:  feeds,
		fetch:  fetch,
		cache:  cache,
		pages:  pages,
		runlog: runlog,
		log:    log.WithComponent("rss"),
	}
}

// Name identifies the lane in orchestrator logs.
func (l *RSSLane) Name() string {
	return "rss"
}

// Run fetches every feed and upserts its entries.
func (l *RSSLane) Run(ctx context.Context) error {
	for _, feedURL := range l.feeds {
		if timeLeft(ctx) < deadlineThreshold {
			l.log.Info("deadline reached, stopping feed ingestion")
			return nil
		}

		l.ingestFeed(ctx, feedURL)
	}

	return nil
}

func (l *RSSLane) ingestFeed(ctx context.Context, feedURL string) {
	etag, lastModified, err := l.cache.Get(ctx, feedURL)
	if err != nil {
		l.log.Warn("failed to read cache, fetching unconditionally", "url", feedURL, "error", err)
	}

	res, err := l.fetch.Fetch(ctx, feedURL, etag, lastModified)
	if err != nil {
		l.runlog.Append(ctx, feedURL, domain.StatusNG, 0, "rss error: "+err.Error())
		return
	}

	if cacheErr := l.cache.Upsert(ctx, feedURL, res.ETag, res.LastModified, res.Status); cacheErr != nil {
		l.log.Warn("failed to update cache", "url", feedURL, "error", cacheErr)
	}

	if res.NotModified {
		l.runlog.Append(ctx, feedURL, domain.StatusNotModified, res.TookMS, "rss")
		return
	}

	parsed, err := gofeed.NewParser().ParseString(res.Body)
	if err != nil {
		l.runlog.Append(ctx, feedURL, domain.StatusNG, res.TookMS, "rss error: "+err.Error())
		return
	}

	for _, entry := range parsed.Items {
		link := entryLink(entry)
		if link == "" {
			continue
		}

		page := &domain.Page{
			URL:     link,
			Title:   textnorm.NormWS(entry.Title),
			Summary: optional(textnorm.Clip(textnorm.NormWS(entry.Description), textnorm.DefaultClipLimit)),
		}
		if page.Title == "" {
			page.Title = domain.UntitledTitle
		}

		changed, upsertErr := l.pages.Upsert(ctx, page)
		if upsertErr != nil {
			l.runlog.Append(ctx, link, domain.StatusNG, 0, "rss upsert error: "+upsertErr.Error())
			continue
		}

		l.runlog.Append(ctx, link, statusFor(changed), 0, "rss")
	}
}

// entryLink returns the best available URL from a feed entry, falling
// back to the GUID when it looks like an HTTP URL.
func entryLink(entry *gofeed.Item) string {
	if entry.Link != "" {
		return entry.Link
	}
	if strings.HasPrefix(entry.GUID, "http") {
		return entry.GUID
	}

	return ""
}

// statusFor maps an upsert outcome to the log status.
func statusFor(changed bool) domain.FetchStatus {
	if changed {
		return domain.StatusOK
	}

	return domain.StatusSkip
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
