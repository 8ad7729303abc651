package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hojomatch/hojocrawl/internal/api"
	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/logger"
)

type fakeSearcher struct {
	pages     []domain.Page
	err       error
	lastQuery string
	lastLimit int
}

func (s *fakeSearcher) Search(_ context.Context, query string, limit int) ([]domain.Page, error) {
	s.lastQuery = query
	s.lastLimit = limit

	return s.pages, s.err
}

func doRequest(t *testing.T, searcher *fakeSearcher, target string) *httptest.ResponseRecorder {
	t.Helper()

	router := api.NewRouter(searcher, logger.NewNoOp())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	router.ServeHTTP(rec, req)

	return rec
}

func TestHealthz(t *testing.T) {
	rec := doRequest(t, &fakeSearcher{}, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRecommendPages(t *testing.T) {
	searcher := &fakeSearcher{pages: []domain.Page{
		{URL: "https://h/a.html", Title: "公募A"},
		{URL: "https://h/b.html", Title: "公募B"},
	}}

	rec := doRequest(t, searcher, "/recommend/pages?q=補助金&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "補助金", searcher.lastQuery)
	assert.Equal(t, 5, searcher.lastLimit)

	var body struct {
		Items []domain.Page `json:"items"`
		KPI   struct {
			Seeds int `json:"seeds"`
		} `json:"kpi"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Items, 2)
	assert.Equal(t, 2, body.KPI.Seeds)
}

func TestRecommendPages_DefaultLimit(t *testing.T) {
	searcher := &fakeSearcher{}

	rec := doRequest(t, searcher, "/recommend/pages")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 40, searcher.lastLimit)
	assert.Empty(t, searcher.lastQuery)

	// Empty result serialises as an array, not null.
	assert.Contains(t, rec.Body.String(), `"items":[]`)
}

func TestRecommendPages_LimitClamped(t *testing.T) {
	searcher := &fakeSearcher{}

	rec := doRequest(t, searcher, "/recommend/pages?limit=9999")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 200, searcher.lastLimit)
}

func TestRecommendPages_BadLimit(t *testing.T) {
	rec := doRequest(t, &fakeSearcher{}, "/recommend/pages?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommendPages_SearchError(t *testing.T) {
	rec := doRequest(t, &fakeSearcher{err: errors.New("db down")}, "/recommend/pages")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestIDEchoed(t *testing.T) {
	router := api.NewRouter(&fakeSearcher{}, logger.NewNoOp())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	req.Header.Set("X-Request-ID", "req-42")
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
