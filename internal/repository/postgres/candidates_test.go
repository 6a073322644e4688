package postgres

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/fanarena/voting-service/internal/repository"
)

func TestCandidateRepository_SetWeeklyPoints(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewCandidateRepository(mock)

	// The statement folds the weekly delta into lifetime, so replaying the
	// same total is a no-op for lifetime_points.
	mock.ExpectExec(`SET lifetime_points = lifetime_points - weekly_points \+ \$2`).
		WithArgs("cand-1", 40).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.SetWeeklyPoints(context.Background(), "cand-1", 40); err != nil {
		t.Fatalf("SetWeeklyPoints returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCandidateRepository_SetWeeklyPoints_UnknownCandidate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewCandidateRepository(mock)

	mock.ExpectExec(`SET lifetime_points = lifetime_points - weekly_points \+ \$2`).
		WithArgs("missing", 40).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.SetWeeklyPoints(context.Background(), "missing", 40)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCandidateRepository_ArchiveWeeklyPoints(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewCandidateRepository(mock)

	// Archiving only zeroes the weekly column. Lifetime totals keep the
	// completed period's contribution; touching them here would erase it.
	mock.ExpectExec(`SET weekly_points = 0\s+WHERE season_id = \$1 AND weekly_points <> 0`).
		WithArgs("season-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	if err := repo.ArchiveWeeklyPoints(context.Background(), "season-1"); err != nil {
		t.Fatalf("ArchiveWeeklyPoints returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCandidateRepository_ResetWeeklyPoints(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewCandidateRepository(mock)

	// A reset removes the invalidated contribution from lifetime as well.
	mock.ExpectExec(`SET lifetime_points = lifetime_points - weekly_points,\s+weekly_points = 0`).
		WithArgs([]string{"cand-1", "cand-2"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	if err := repo.ResetWeeklyPoints(context.Background(), []string{"cand-1", "cand-2"}); err != nil {
		t.Fatalf("ResetWeeklyPoints returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
