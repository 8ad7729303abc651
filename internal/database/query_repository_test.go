package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/hojomatch/hojocrawl/internal/database"
)

// pageColumns lists the columns returned by pages SELECT queries.
var pageColumns = []string{
	"url", "title", "summary", "rate", "cap", "target", "cost_items", "deadline",
	"fiscal_year", "call_no", "scheme_type", "period_from", "period_to",
	"content_hash", "last_fetched",
}

func newQueryRepo(t *testing.T) (*database.QueryRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	db := sqlx.NewDb(mockDB, "postgres")
	repo := database.NewQueryRepository(db)

	return repo, mock, func() { mockDB.Close() }
}

func addPageRow(rows *sqlmock.Rows, url, title string) *sqlmock.Rows {
	now := time.Now()

	return rows.AddRow(
		url, title, "概要", nil, nil, nil, nil, nil,
		nil, nil, nil, nil, nil, "hash", now,
	)
}

func TestQueryRepository_Search_WithQuery(t *testing.T) {
	repo, mock, cleanup := newQueryRepo(t)
	defer cleanup()

	mock.ExpectQuery("plainto_tsquery").
		WithArgs("補助金", 10).
		WillReturnRows(addPageRow(sqlmock.NewRows(pageColumns), "https://a.example/1", "補助金A"))

	pages, err := repo.Search(context.Background(), "補助金", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Title != "補助金A" {
		t.Errorf("unexpected title: %s", pages[0].Title)
	}
	if pages[0].LastFetched == nil {
		t.Error("expected last_fetched in the projection")
	}

	expectationsMet(t, mock)
}

func TestQueryRepository_Search_NoQueryUsesDefaultLimit(t *testing.T) {
	repo, mock, cleanup := newQueryRepo(t)
	defer cleanup()

	mock.ExpectQuery("ORDER BY last_fetched DESC").
		WithArgs(database.DefaultQueryLimit).
		WillReturnRows(addPageRow(sqlmock.NewRows(pageColumns), "https://a.example/1", "補助金A"))

	pages, err := repo.Search(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}

	expectationsMet(t, mock)
}
