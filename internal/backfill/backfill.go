// Package backfill repairs deficient page records (placeholder titles or
// empty summaries) through a recovery ladder: HEAD preflight, a patient
// full-body GET, meta-refresh routing, and finally deep-research text
// extraction.
package backfill

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/hojomatch/hojocrawl/internal/config"
	"github.com/hojomatch/hojocrawl/internal/discover"
	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/extract"
	"github.com/hojomatch/hojocrawl/internal/fetcher"
	"github.com/hojomatch/hojocrawl/internal/logger"
)

// researchMaxChars bounds the text requested from the extraction provider.
const researchMaxChars = 6000

// DefaultBatch is the number of deficient rows repaired per run.
const DefaultBatch = 10

// metaRefreshRE finds an HTML meta-refresh redirect pointing at a PDF.
var metaRefreshRE = regexp.MustCompile(`(?i)http-equiv=["']refresh["'].*?url=([^";']+\.pdf)`)

// PageStore is the pages-table surface the repairer needs.
type PageStore interface {
	Upsert(ctx context.Context, page *domain.Page) (bool, error)
	PickDeficient(ctx context.Context, n int) ([]string, error)
}

// CacheStore records conditional-request metadata from stage-1 fetches.
type CacheStore interface {
	Upsert(ctx context.Context, url string, etag, lastModified *string, status int) error
}

// Fetcher issues the HEAD preflight and the patient stage-1 GET.
type Fetcher interface {
	Head(ctx context.Context, rawURL string) fetcher.Preflight
	FetchWithReadTimeout(
		ctx context.Context,
		rawURL string,
		etag, lastModified *string,
		readTimeout time.Duration,
	) (*fetcher.Result, error)
}

// RunLogger appends run-tagged fetch_log rows.
type RunLogger interface {
	Append(ctx context.Context, url string, status domain.FetchStatus, tookMS int, note string)
}

// Repairer walks a single URL through the recovery ladder.
type Repairer struct {
	cfg    config.BackfillConfig
	fetch  Fetcher
	pages  PageStore
	cache  CacheStore
	runlog RunLogger
	text   discover.TextFetcher
	log    logger.Interface
}

// NewRepairer creates a repairer. The text fetcher is optional; nil
// disables the deep-research stages.
func NewRepairer(
	cfg config.BackfillConfig,
	fetch Fetcher,
	pages PageStore,
	cache CacheStore,
	runlog RunLogger,
	text discover.TextFetcher,
	log logger.Interface,
) *Repairer {
	return &Repairer{
		cfg:    cfg,
		fetch:  fetch,
		pages:  pages,
		cache:  cache,
		runlog: runlog,
		text:   text,
		log:    log.WithComponent("backfill"),
	}
}

// ProcessOne repairs one URL, returning whether the page record changed.
func (r *Repairer) ProcessOne(ctx context.Context, url string) bool {
	// 0) HEAD preflight: route PDFs and oversized bodies without a GET.
	pre := r.fetch.Head(ctx, url)

	if pre.ContentType == "application/pdf" {
		return r.upsertAndLog(ctx, url, extract.PDFRow(url), 0, "single head: pdf")
	}

	if pre.Size >= 0 && pre.Size >= r.cfg.LargeBytes && r.text != nil {
		note := fmt.Sprintf("single head: large->%d dr-fetch", pre.Size)
		if changed, done := r.tryResearch(ctx, url, note, note+" none"); done {
			return changed
		}
		// Provider had nothing; fall through to the direct fetch.
	}

	// 1) Stage-1 GET: patient read timeout, no validators, full body.
	res, err := r.fetch.FetchWithReadTimeout(ctx, url, nil, nil, r.cfg.Stage1ReadTimeout)
	if err != nil {
		return r.recoverFetchError(ctx, url, err)
	}

	if cacheErr := r.cache.Upsert(ctx, url, res.ETag, res.LastModified, res.Status); cacheErr != nil {
		r.log.Warn("failed to update cache", "url", url, "error", cacheErr)
	}

	if res.NotModified {
		changed, _ := r.tryResearch(ctx, url, "single dr-fetch (304)", "single dr-fetch none (304)")
		return changed
	}

	switch res.ContentType {
	case "text/html", "application/xhtml+xml":
		return r.processHTML(ctx, url, res)
	case "application/pdf":
		return r.upsertAndLog(ctx, url, extract.PDFRow(url), res.TookMS, "single pdf stage1")
	default:
		changed, _ := r.tryResearch(ctx, url,
			"single dr-fetch ctype="+res.ContentType,
			"single dr-fetch none ctype="+res.ContentType)
		return changed
	}
}

// processHTML handles a stage-1 HTML body: meta-refresh to PDF first,
// then the regular extractor, then deep-research when nothing changed.
func (r *Repairer) processHTML(ctx context.Context, url string, res *fetcher.Result) bool {
	if m := metaRefreshRE.FindStringSubmatch(res.Body); m != nil {
		return r.upsertAndLog(ctx, m[1], extract.PDFRow(m[1]), res.TookMS, "single html->pdf meta refresh")
	}

	changed := r.upsertAndLog(ctx, url, extract.FromHTML(url, res.Body), res.TookMS,
		fmt.Sprintf("single html stage1 status=%d", res.Status))
	if changed {
		return true
	}

	researched, _ := r.tryResearch(ctx, url, "single dr-fetch after html", "single dr-fetch none after html")

	return researched
}

// recoverFetchError routes a failed stage-1 GET to deep-research. A
// read timeout on these hosts usually means a slow origin, not a dead
// one, so it gets its own log note.
func (r *Repairer) recoverFetchError(ctx context.Context, url string, fetchErr error) bool {
	if fetcher.IsTimeout(fetchErr) {
		changed, _ := r.tryResearch(ctx, url,
			"single stage1 ReadTimeout -> dr-fetch",
			"single stage1 ReadTimeout -> dr-fetch none")
		return changed
	}

	if r.text == nil {
		r.runlog.Append(ctx, url, domain.StatusNG, 0, "single error: "+fetchErr.Error())
		return false
	}

	text, err := r.text.FetchText(ctx, url, researchMaxChars)
	if err != nil || text == "" {
		r.runlog.Append(ctx, url, domain.StatusNG, 0, "single error: "+fetchErr.Error()+"; dr-fetch none")
		return false
	}

	return r.upsertAndLog(ctx, url, extract.FromResearchText(url, text), 0,
		"single dr-fetch after error: "+fetchErr.Error())
}

// tryResearch asks the provider for main text and upserts the synthesis.
// done reports whether the ladder should stop (text found or hard stop);
// a false done means the caller may fall through to the next stage.
func (r *Repairer) tryResearch(ctx context.Context, url, okNote, noneNote string) (changed, done bool) {
	if r.text == nil {
		return false, false
	}

	text, err := r.text.FetchText(ctx, url, researchMaxChars)
	if err != nil {
		r.log.Warn("text extraction failed", "url", url, "error", err)
		r.runlog.Append(ctx, url, domain.StatusSkip, 0, noneNote)
		return false, false
	}
	if text == "" {
		r.runlog.Append(ctx, url, domain.StatusSkip, 0, noneNote)
		return false, false
	}

	return r.upsertAndLog(ctx, url, extract.FromResearchText(url, text), 0, okNote), true
}

func (r *Repairer) upsertAndLog(ctx context.Context, url string, page *domain.Page, tookMS int, note string) bool {
	changed, err := r.pages.Upsert(ctx, page)
	if err != nil {
		r.runlog.Append(ctx, url, domain.StatusNG, tookMS, "upsert error: "+err.Error())
		return false
	}

	status := domain.StatusSkip
	if changed {
		status = domain.StatusOK
	}

	r.runlog.Append(ctx, url, status, tookMS, note)

	return changed
}
