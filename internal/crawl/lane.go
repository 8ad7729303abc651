package crawl

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hojomatch/hojocrawl/internal/config"
	"github.com/hojomatch/hojocrawl/internal/discover"
	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/hostlimit"
	"github.com/hojomatch/hojocrawl/internal/logger"
	"github.com/hojomatch/hojocrawl/internal/seeds"
)

// docTypes are the content types the crawl lane is willing to process.
var docTypes = map[string]bool{
	"text/html":             true,
	"application/xhtml+xml": true,
	"application/pdf":       true,
}

// SpendGate is the budget surface the lanes need.
type SpendGate interface {
	CanSpend(ctx context.Context, api string, n int) (bool, error)
	Spend(ctx context.Context, api string, n int) error
}

// CrawlLane expands seed list pages into candidate URLs and dispatches
// them to a bounded worker pool.
type CrawlLane struct {
	cfg       config.CrawlConfig
	seedFile  *seeds.File
	fetch     Fetcher
	hosts     *hostlimit.Registry
	pages     PageStore
	cache     CacheStore
	runlog    *RunLog
	searchers map[string]discover.Searcher
	text      discover.TextFetcher
	gate      SpendGate
	log       logger.Interface

	mu        sync.Mutex
	saved     int
	perDomain map[string]int
	seen      map[string]struct{}
}

// NewCrawlLane creates the seed-expansion lane. The text fetcher and
// searchers are optional; nil disables the corresponding fallbacks.
func NewCrawlLane(
	cfg config.CrawlConfig,
	seedFile *seeds.File,
	fetch Fetcher,
	hosts *hostlimit.Registry,
	pages PageStore,
	cache CacheStore,
	runlog *RunLog,
	searchers map[string]discover.Searcher,
	text discover.TextFetcher,
	gate SpendGate,
	log logger.Interface,
) *CrawlLane {
	return &CrawlLane{
		cfg:       cfg,
		seedFile:  seedFile,
		fetch:     fetch,
		hosts:     hosts,
		pages:     pages,
		cache:     cache,
		runlog:    runlog,
		searchers: searchers,
		text:      text,
		gate:      gate,
		log:       log.WithComponent("crawl"),
		perDomain: map[string]int{},
		seen:      map[string]struct{}{},
	}
}

// Name identifies the lane in orchestrator logs.
func (l *CrawlLane) Name() string {
	return "crawl"
}

// Saved reports how many pages this lane changed.
func (l *CrawlLane) Saved() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.saved
}

func (l *CrawlLane) addSaved() {
	l.mu.Lock()
	l.saved++
	l.mu.Unlock()
}

// Run processes every seed source until the deadline or the per-run
// page cap is reached. The lane carries its own soft time budget inside
// the run's hard deadline, leaving headroom for the later lanes.
func (l *CrawlLane) Run(ctx context.Context) error {
	if l.cfg.TimeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.TimeBudget)
		defer cancel()
	}

	for _, src := range l.seedFile.Sources {
		if timeLeft(ctx) < deadlineThreshold {
			l.log.Info("deadline reached, stopping seed expansion")
			return nil
		}
		if l.Saved() >= l.cfg.MaxPagesPerRun {
			l.log.Info("page cap reached, stopping seed expansion", "saved", l.Saved())
			return nil
		}

		l.processSource(ctx, src)
	}

	return nil
}

func (l *CrawlLane) processSource(ctx context.Context, src seeds.Source) {
	etag, lastModified, err := l.cache.Get(ctx, src.URL)
	if err != nil {
		l.log.Warn("failed to read cache, fetching unconditionally", "url", src.URL, "error", err)
	}

	res, err := l.fetch.Fetch(ctx, src.URL, etag, lastModified)
	if err != nil {
		l.runlog.Append(ctx, src.URL, domain.StatusNG, 0, err.Error())
		return
	}

	if cacheErr := l.cache.Upsert(ctx, src.URL, res.ETag, res.LastModified, res.Status); cacheErr != nil {
		l.log.Warn("failed to update cache", "url", src.URL, "error", cacheErr)
	}

	if res.NotModified {
		l.runlog.Append(ctx, src.URL, domain.StatusNotModified, res.TookMS, "")
		return
	}

	l.runlog.Append(ctx, src.URL, domain.StatusOK, res.TookMS, "")

	if !docTypes[res.ContentType] {
		return
	}

	candidates := l.buildCandidates(ctx, src, res.Body)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(l.cfg.ParallelWorkers)

	for _, candidate := range candidates {
		group.Go(func() error {
			l.processURL(groupCtx, candidate)
			return nil
		})
	}

	// Workers never return errors; failures are fetch_log rows.
	_ = group.Wait()
}

// buildCandidates concatenates anchors, harvested URLs and optional
// provider discovery, then applies the allow-list, document, source
// include/exclude, per-host and max_new filters, in that order.
func (l *CrawlLane) buildCandidates(ctx context.Context, src seeds.Source, body string) []string {
	anchors, err := discover.Anchors(src.URL, body)
	if err != nil {
		l.log.Warn("anchor extraction failed", "url", src.URL, "error", err)
	}

	harvested := discover.Harvest(body, l.seedFile.AllowedHosts)
	discovered := l.discoverCandidates(ctx, src)

	include, exclude, err := src.Matchers()
	if err != nil {
		l.log.Warn("bad source patterns, skipping include/exclude", "url", src.URL, "error", err)
	}

	merged := make([]string, 0, len(anchors)+len(harvested)+len(discovered))
	merged = append(merged, anchors...)
	merged = append(merged, harvested...)
	merged = append(merged, discovered...)

	var selected []string
	for _, u := range discover.Dedupe(merged) {
		if _, dup := l.seen[u]; dup {
			// Already dispatched for an earlier source this run.
			continue
		}
		if !l.seedFile.HostAllowed(u) || !discover.IsDocumentURL(u) {
			continue
		}
		if !pathOK(u, include, exclude) {
			continue
		}

		host := hostOf(u)
		l.perDomain[host]++
		if l.perDomain[host] > l.cfg.MaxPerDomain {
			continue
		}

		l.seen[u] = struct{}{}
		selected = append(selected, u)
		if len(selected) >= src.MaxNew {
			break
		}
	}

	stats := fmt.Sprintf("anchors=%d, regex=%d, candidates=%d", len(anchors), len(harvested), len(selected))
	l.runlog.Append(ctx, src.URL, domain.StatusList, 0, stats)

	return selected
}

// discoverCandidates asks the source's configured provider for extra
// candidate URLs, spending one budgeted call. Errors degrade to an
// empty list.
func (l *CrawlLane) discoverCandidates(ctx context.Context, src seeds.Source) []string {
	if src.Discover == "" {
		return nil
	}

	searcher, ok := l.searchers[src.Discover]
	if !ok {
		l.log.Warn("unknown discover provider", "provider", src.Discover, "url", src.URL)
		return nil
	}

	allowed, err := l.gate.CanSpend(ctx, searcher.Name(), 1)
	if err != nil || !allowed {
		l.log.Info("discovery denied by budget", "provider", searcher.Name(), "error", err)
		return nil
	}

	candidates, err := searcher.Discover(ctx, src.Query)
	if err != nil {
		l.log.Warn("discovery failed", "provider", searcher.Name(), "error", err)
		return nil
	}

	if spendErr := l.gate.Spend(ctx, searcher.Name(), 1); spendErr != nil {
		l.log.Warn("failed to record spend", "provider", searcher.Name(), "error", spendErr)
	}

	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		urls = append(urls, c.URL)
	}

	return urls
}

func pathOK(u string, include, exclude []*regexp.Regexp) bool {
	if len(include) > 0 {
		matched := false
		for _, re := range include {
			if re.MatchString(u) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, re := range exclude {
		if re.MatchString(u) {
			return false
		}
	}

	return true
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return strings.ToLower(u.Host)
}
