package crawl_test

import (
	"context"
	"errors"
	"sync"

	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/fetcher"
)

// fakeFetcher serves canned results by URL.
type fakeFetcher struct {
	mu      sync.Mutex
	results map[string]*fetcher.Result
	errs    map[string]error
	calls   []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{results: map[string]*fetcher.Result{}, errs: map[string]error{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string, _, _ *string) (*fetcher.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	f.mu.Unlock()

	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	if res, ok := f.results[rawURL]; ok {
		return res, nil
	}

	return nil, errors.New("no canned result for " + rawURL)
}

func (f *fakeFetcher) fetchCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, u := range f.calls {
		if u == rawURL {
			n++
		}
	}

	return n
}

func htmlResult(body string) *fetcher.Result {
	return &fetcher.Result{Body: body, ContentType: "text/html", Status: 200, TookMS: 12}
}

// fakePageStore records upserts; changed is keyed by URL (default true).
type fakePageStore struct {
	mu        sync.Mutex
	pages     []*domain.Page
	unchanged map[string]bool
	upsertErr error
}

func newFakePageStore() *fakePageStore {
	return &fakePageStore{unchanged: map[string]bool{}}
}

func (s *fakePageStore) Upsert(_ context.Context, page *domain.Page) (bool, error) {
	if s.upsertErr != nil {
		return false, s.upsertErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, page)

	return !s.unchanged[page.URL], nil
}

func (s *fakePageStore) CountNonSentinel(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pages), nil
}

func (s *fakePageStore) byURL(url string) *domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pages {
		if p.URL == url {
			return p
		}
	}

	return nil
}

// fakeCacheStore returns stored validators and records upserts.
type fakeCacheStore struct {
	mu        sync.Mutex
	validator map[string][2]*string
	upserts   map[string]int
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{validator: map[string][2]*string{}, upserts: map[string]int{}}
}

func (s *fakeCacheStore) Get(_ context.Context, url string) (*string, *string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.validator[url]
	return v[0], v[1], nil
}

func (s *fakeCacheStore) Upsert(_ context.Context, url string, etag, lastModified *string, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validator[url] = [2]*string{etag, lastModified}
	s.upserts[url]++

	return nil
}

// logEntry is one recorded fetch_log append.
type logEntry struct {
	URL    string
	Status domain.FetchStatus
	Note   string
}

// fakeLogStore records appends and serves canned per-run counts.
type fakeLogStore struct {
	mu      sync.Mutex
	entries []logEntry
	counts  map[string]int
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{counts: map[string]int{}}
}

func (s *fakeLogStore) Append(_ context.Context, url string, status domain.FetchStatus, _ int, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, logEntry{URL: url, Status: status, Note: note})

	return nil
}

func (s *fakeLogStore) CountByStatus(context.Context, string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}

	return out, nil
}

func (s *fakeLogStore) byStatus(status domain.FetchStatus) []logEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []logEntry
	for _, e := range s.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}

	return out
}

func (s *fakeLogStore) find(url string) *logEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].URL == url {
			return &s.entries[i]
		}
	}

	return nil
}

// fakeGate allows or denies every spend.
type fakeGate struct {
	allow  bool
	spends map[string]int
}

func newFakeGate(allow bool) *fakeGate {
	return &fakeGate{allow: allow, spends: map[string]int{}}
}

func (g *fakeGate) CanSpend(_ context.Context, _ string, _ int) (bool, error) {
	return g.allow, nil
}

func (g *fakeGate) Spend(_ context.Context, api string, n int) error {
	g.spends[api] += n
	return nil
}

// fakeSearcher returns canned candidates.
type fakeSearcher struct {
	name       string
	candidates []domain.Candidate
	err        error
	calls      int
}

func (s *fakeSearcher) Name() string { return s.name }

func (s *fakeSearcher) Discover(context.Context, string) ([]domain.Candidate, error) {
	s.calls++
	return s.candidates, s.err
}

// fakeTextFetcher returns canned text.
type fakeTextFetcher struct {
	text string
	err  error
}

func (f *fakeTextFetcher) FetchText(context.Context, string, int) (string, error) {
	return f.text, f.err
}

func strp(s string) *string { return &s }
