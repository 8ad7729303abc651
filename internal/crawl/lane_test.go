package crawl_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hojomatch/hojocrawl/internal/config"
	"github.com/hojomatch/hojocrawl/internal/crawl"
	"github.com/hojomatch/hojocrawl/internal/discover"
	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/fetcher"
	"github.com/hojomatch/hojocrawl/internal/hostlimit"
	"github.com/hojomatch/hojocrawl/internal/logger"
	"github.com/hojomatch/hojocrawl/internal/seeds"
)

const listURL = "https://www.allowed.example/list.html"

func testCrawlConfig() config.CrawlConfig {
	return config.CrawlConfig{
		RunID:           "t1",
		MaxPagesPerRun:  60,
		MaxPerDomain:    25,
		ParallelWorkers: 4,
		PerHostLimit:    2,
	}
}

func testSeedFile(src seeds.Source) *seeds.File {
	return &seeds.File{
		AllowedHosts: []string{"allowed.example"},
		Sources:      []seeds.Source{src},
	}
}

type laneFixture struct {
	fetch *fakeFetcher
	pages *fakePageStore
	cache *fakeCacheStore
	logs  *fakeLogStore
	lane  *crawl.CrawlLane
}

func newLaneFixture(
	t *testing.T,
	cfg config.CrawlConfig,
	seedFile *seeds.File,
	searchers map[string]discover.Searcher,
	text discover.TextFetcher,
) *laneFixture {
	t.Helper()

	f := &laneFixture{
		fetch: newFakeFetcher(),
		pages: newFakePageStore(),
		cache: newFakeCacheStore(),
		logs:  newFakeLogStore(),
	}

	runlog := crawl.NewRunLog(f.logs, cfg.RunID, logger.NewNoOp())
	f.lane = crawl.NewCrawlLane(
		cfg, seedFile, f.fetch, hostlimit.NewRegistry(cfg.PerHostLimit),
		f.pages, f.cache, runlog, searchers, text, newFakeGate(true), logger.NewNoOp(),
	)

	return f
}

func TestCrawlLane_NotModifiedShortCircuits(t *testing.T) {
	f := newLaneFixture(t, testCrawlConfig(), testSeedFile(seeds.Source{URL: listURL, MaxNew: 20}), nil, nil)

	f.cache.validator[listURL] = [2]*string{strp(`W/"abc"`), nil}
	f.fetch.results[listURL] = &fetcher.Result{
		NotModified: true, ETag: strp(`W/"abc"`), Status: 304, TookMS: 7,
	}

	require.NoError(t, f.lane.Run(context.Background()))

	entry := f.logs.find(listURL)
	require.NotNil(t, entry)
	assert.Equal(t, domain.StatusNotModified, entry.Status)
	assert.Contains(t, entry.Note, "run=t1;")

	assert.Empty(t, f.pages.pages)
	assert.Empty(t, f.logs.byStatus(domain.StatusList)) // no candidate stage
}

func TestCrawlLane_ExtractsAndUpserts(t *testing.T) {
	f := newLaneFixture(t, testCrawlConfig(), testSeedFile(seeds.Source{URL: listURL, MaxNew: 20}), nil, nil)

	f.fetch.results[listURL] = htmlResult(`<html><body>
		<a href="/koubo/a.html">A</a>
		<a href="https://other.example/x.html">場外</a>
	</body></html>`)
	f.fetch.results["https://www.allowed.example/koubo/a.html"] = htmlResult(
		`<html><head><title>令和6年度 第3回 ○○補助金</title></head><body><p>補助率: 2/3 上限: 1,000万円</p></body></html>`)

	require.NoError(t, f.lane.Run(context.Background()))

	page := f.pages.byURL("https://www.allowed.example/koubo/a.html")
	require.NotNil(t, page)
	assert.Equal(t, "令和6年度 第3回 ○○補助金", page.Title)
	assert.Equal(t, 1, f.lane.Saved())

	list := f.logs.byStatus(domain.StatusList)
	require.Len(t, list, 1)
	assert.Contains(t, list[0].Note, "anchors=2")
	assert.Contains(t, list[0].Note, "candidates=1")
}

func TestCrawlLane_SharedCandidateFetchedOnce(t *testing.T) {
	const otherListURL = "https://www.allowed.example/list2.html"
	const sharedURL = "https://www.allowed.example/koubo/shared.html"

	seedFile := &seeds.File{
		AllowedHosts: []string{"allowed.example"},
		Sources: []seeds.Source{
			{URL: listURL, MaxNew: 20},
			{URL: otherListURL, MaxNew: 20},
		},
	}
	f := newLaneFixture(t, testCrawlConfig(), seedFile, nil, nil)

	listBody := `<html><body><a href="/koubo/shared.html">共通</a></body></html>`
	f.fetch.results[listURL] = htmlResult(listBody)
	f.fetch.results[otherListURL] = htmlResult(listBody)
	f.fetch.results[sharedURL] = htmlResult(
		`<html><head><title>共通の公募ページ</title></head><body></body></html>`)

	require.NoError(t, f.lane.Run(context.Background()))

	// The second source lists the same URL; it must not be fetched again.
	assert.Equal(t, 1, f.fetch.fetchCount(sharedURL))
	assert.Equal(t, 1, f.lane.Saved())

	list := f.logs.byStatus(domain.StatusList)
	require.Len(t, list, 2)
	assert.Contains(t, list[0].Note, "candidates=1")
	assert.Contains(t, list[1].Note, "candidates=0")
}

func TestCrawlLane_PerHostCap(t *testing.T) {
	cfg := testCrawlConfig()
	cfg.MaxPerDomain = 10

	f := newLaneFixture(t, cfg, testSeedFile(seeds.Source{URL: listURL, MaxNew: 50}), nil, nil)

	var b strings.Builder
	b.WriteString("<html><body>")
	for i := range 50 {
		fmt.Fprintf(&b, `<a href="/koubo/p%d.html">x</a>`, i)
		f.fetch.results[fmt.Sprintf("https://www.allowed.example/koubo/p%d.html", i)] = htmlResult(
			fmt.Sprintf(`<html><head><title>公募ページその%d番目です</title></head><body></body></html>`, i))
	}
	b.WriteString("</body></html>")
	f.fetch.results[listURL] = htmlResult(b.String())

	require.NoError(t, f.lane.Run(context.Background()))

	list := f.logs.byStatus(domain.StatusList)
	require.Len(t, list, 1)
	assert.Contains(t, list[0].Note, "candidates=10")
	assert.Len(t, f.pages.pages, 10)
}

func TestCrawlLane_IncludeExclude(t *testing.T) {
	src := seeds.Source{
		URL:     listURL,
		MaxNew:  20,
		Include: []string{`/koubo/`},
		Exclude: []string{`archive`},
	}
	f := newLaneFixture(t, testCrawlConfig(), testSeedFile(src), nil, nil)

	f.fetch.results[listURL] = htmlResult(`<html><body>
		<a href="/koubo/a.html">A</a>
		<a href="/koubo/archive/old.html">古い</a>
		<a href="/news/b.html">B</a>
	</body></html>`)
	f.fetch.results["https://www.allowed.example/koubo/a.html"] = htmlResult(`<html><head><title>対象の公募ページ</title></head><body></body></html>`)

	require.NoError(t, f.lane.Run(context.Background()))

	list := f.logs.byStatus(domain.StatusList)
	require.Len(t, list, 1)
	assert.Contains(t, list[0].Note, "candidates=1")
}

func TestCrawlLane_ContentTypeRouting(t *testing.T) {
	f := newLaneFixture(t, testCrawlConfig(), testSeedFile(seeds.Source{URL: listURL, MaxNew: 20}), nil, nil)

	f.fetch.results[listURL] = htmlResult(`<html><body>
		<a href="/x/guide.pdf">PDF</a>
		<a href="/x/data.csv">CSV</a>
	</body></html>`)
	f.fetch.results["https://www.allowed.example/x/guide.pdf"] = &fetcher.Result{
		ContentType: "application/pdf", Status: 200,
	}
	f.fetch.results["https://www.allowed.example/x/data.csv"] = &fetcher.Result{
		ContentType: "text/csv", Status: 200, Body: "a,b",
	}

	require.NoError(t, f.lane.Run(context.Background()))

	pdf := f.pages.byURL("https://www.allowed.example/x/guide.pdf")
	require.NotNil(t, pdf)
	assert.Equal(t, "guide (PDF)", pdf.Title)

	csv := f.logs.find("https://www.allowed.example/x/data.csv")
	require.NotNil(t, csv)
	assert.Equal(t, domain.StatusSkip, csv.Status)
	assert.Contains(t, csv.Note, "ctype=text/csv")
}

func TestCrawlLane_FallbackToProviderText(t *testing.T) {
	text := &fakeTextFetcher{text: "抽出された公募案内のタイトル行\n本文"}
	f := newLaneFixture(t, testCrawlConfig(), testSeedFile(seeds.Source{URL: listURL, MaxNew: 20}), nil, text)

	f.fetch.results[listURL] = htmlResult(`<html><body><a href="/koubo/slow.html">遅い</a></body></html>`)
	f.fetch.errs["https://www.allowed.example/koubo/slow.html"] = errors.New("read timeout")

	require.NoError(t, f.lane.Run(context.Background()))

	entry := f.logs.find("https://www.allowed.example/koubo/slow.html")
	require.NotNil(t, entry)
	assert.Equal(t, domain.StatusOK, entry.Status)
	assert.Contains(t, entry.Note, "fallback: raw")

	page := f.pages.byURL("https://www.allowed.example/koubo/slow.html")
	require.NotNil(t, page)
	assert.Equal(t, "抽出された公募案内のタイトル行", page.Title)
}

func TestCrawlLane_FetchErrorWithoutProviderLogsNG(t *testing.T) {
	f := newLaneFixture(t, testCrawlConfig(), testSeedFile(seeds.Source{URL: listURL, MaxNew: 20}), nil, nil)

	f.fetch.results[listURL] = htmlResult(`<html><body><a href="/koubo/down.html">落ちてる</a></body></html>`)
	f.fetch.errs["https://www.allowed.example/koubo/down.html"] = errors.New("connection refused")

	require.NoError(t, f.lane.Run(context.Background()))

	entry := f.logs.find("https://www.allowed.example/koubo/down.html")
	require.NotNil(t, entry)
	assert.Equal(t, domain.StatusNG, entry.Status)
	assert.Contains(t, entry.Note, "connection refused")
}

func TestCrawlLane_SourceDiscovery(t *testing.T) {
	searcher := &fakeSearcher{name: "tavily", candidates: []domain.Candidate{
		{URL: "https://www.allowed.example/found/by-search.html"},
	}}
	src := seeds.Source{URL: listURL, MaxNew: 20, Discover: "tavily", Query: "補助金"}

	f := newLaneFixture(t, testCrawlConfig(), testSeedFile(src),
		map[string]discover.Searcher{"tavily": searcher}, nil)

	f.fetch.results[listURL] = htmlResult(`<html><body></body></html>`)
	f.fetch.results["https://www.allowed.example/found/by-search.html"] = htmlResult(
		`<html><head><title>検索で見つかった公募ページ</title></head><body></body></html>`)

	require.NoError(t, f.lane.Run(context.Background()))

	assert.Equal(t, 1, searcher.calls)
	assert.NotNil(t, f.pages.byURL("https://www.allowed.example/found/by-search.html"))
}

func TestCrawlLane_DeadlineStopsRun(t *testing.T) {
	f := newLaneFixture(t, testCrawlConfig(), testSeedFile(seeds.Source{URL: listURL, MaxNew: 20}), nil, nil)
	f.fetch.results[listURL] = htmlResult(`<html></html>`)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, f.lane.Run(ctx))
	assert.Zero(t, f.fetch.fetchCount(listURL))
}
