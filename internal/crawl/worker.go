package crawl

import (
	"context"

	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/extract"
)

// researchMaxChars bounds the text requested from the extraction
// provider during fallback.
const researchMaxChars = 6000

// processURL fetches one candidate and routes it by content type. All
// outcomes, including failures, end up as fetch_log rows; workers never
// propagate errors.
func (l *CrawlLane) processURL(ctx context.Context, candidate string) {
	if l.Saved() >= l.cfg.MaxPagesPerRun {
		return
	}
	if timeLeft(ctx) < deadlineThreshold {
		l.runlog.Append(ctx, candidate, domain.StatusSkip, 0, "reason=deadline")
		return
	}

	release, err := l.hosts.Acquire(ctx, hostOf(candidate))
	if err != nil {
		l.runlog.Append(ctx, candidate, domain.StatusSkip, 0, "reason=deadline")
		return
	}
	defer release()

	etag, lastModified, err := l.cache.Get(ctx, candidate)
	if err != nil {
		l.log.Warn("failed to read cache, fetching unconditionally", "url", candidate, "error", err)
	}

	res, err := l.fetch.Fetch(ctx, candidate, etag, lastModified)
	if err != nil {
		l.fallback(ctx, candidate, err)
		return
	}

	if cacheErr := l.cache.Upsert(ctx, candidate, res.ETag, res.LastModified, res.Status); cacheErr != nil {
		l.log.Warn("failed to update cache", "url", candidate, "error", cacheErr)
	}

	if res.NotModified {
		l.runlog.Append(ctx, candidate, domain.StatusNotModified, res.TookMS, "")
		return
	}

	switch res.ContentType {
	case "text/html", "application/xhtml+xml":
		l.upsertAndLog(ctx, extract.FromHTML(candidate, res.Body), res.TookMS, "")
	case "application/pdf":
		l.upsertAndLog(ctx, extract.PDFRow(candidate), res.TookMS, "")
	default:
		l.runlog.Append(ctx, candidate, domain.StatusSkip, res.TookMS, "ctype="+res.ContentType)
	}
}

func (l *CrawlLane) upsertAndLog(ctx context.Context, page *domain.Page, tookMS int, note string) {
	changed, err := l.pages.Upsert(ctx, page)
	if err != nil {
		l.runlog.Append(ctx, page.URL, domain.StatusNG, tookMS, "upsert error: "+err.Error())
		return
	}

	if changed {
		l.addSaved()
	}

	l.runlog.Append(ctx, page.URL, statusFor(changed), tookMS, note)
}

// fallback asks the text-extraction provider for raw content after a
// direct fetch failed, upserting the plaintext extraction on success.
func (l *CrawlLane) fallback(ctx context.Context, candidate string, fetchErr error) {
	if l.text == nil {
		l.runlog.Append(ctx, candidate, domain.StatusNG, 0, fetchErr.Error())
		return
	}

	text, err := l.text.FetchText(ctx, candidate, researchMaxChars)
	if err != nil {
		l.runlog.Append(ctx, candidate, domain.StatusNG, 0, "fallback error: "+err.Error())
		return
	}
	if text == "" {
		l.runlog.Append(ctx, candidate, domain.StatusNG, 0, fetchErr.Error())
		return
	}

	page := extract.FromText(candidate, text)

	changed, err := l.pages.Upsert(ctx, page)
	if err != nil {
		l.runlog.Append(ctx, candidate, domain.StatusNG, 0, "upsert error: "+err.Error())
		return
	}

	if changed {
		l.addSaved()
	}

	l.runlog.Append(ctx, candidate, statusFor(changed), 0, "fallback: raw")
}
