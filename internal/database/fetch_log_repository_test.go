package database_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/hojomatch/hojocrawl/internal/database"
	"github.com/hojomatch/hojocrawl/internal/domain"
)

func newFetchLogRepo(t *testing.T) (*database.FetchLogRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	db := sqlx.NewDb(mockDB, "postgres")
	repo := database.NewFetchLogRepository(db)

	return repo, mock, func() { mockDB.Close() }
}

func TestFetchLogRepository_Append(t *testing.T) {
	repo, mock, cleanup := newFetchLogRepo(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO fetch_log").
		WithArgs("https://allowed.example/l", "304", 120, "run=1700000000; ").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Append(context.Background(),
		"https://allowed.example/l", domain.StatusNotModified, 120, "run=1700000000; ")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	expectationsMet(t, mock)
}

func TestFetchLogRepository_CountByStatus(t *testing.T) {
	repo, mock, cleanup := newFetchLogRepo(t)
	defer cleanup()

	mock.ExpectQuery("SELECT status, count").
		WithArgs("1700000000").
		WillReturnRows(sqlmock.NewRows([]string{"status", "n"}).
			AddRow("ok", 7).
			AddRow("304", 3).
			AddRow("ng", 1))

	counts, err := repo.CountByStatus(context.Background(), "1700000000")
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if counts["ok"] != 7 || counts["304"] != 3 || counts["ng"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
	if counts["skip"] != 0 {
		t.Errorf("absent status should count as zero, got %d", counts["skip"])
	}

	expectationsMet(t, mock)
}
