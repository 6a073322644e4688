package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/fanarena/voting-service/internal/repository"
)

func TestUserRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	createdAt := time.Now().UTC().Add(-30 * 24 * time.Hour)
	lastVoteAt := time.Now().UTC().Add(-2 * time.Hour)

	rows := pgxmock.NewRows([]string{
		"id", "is_active", "is_blocked", "last_vote_at", "last_bonus_at", "lifetime_points_spent", "created_at",
	}).AddRow(
		"user-1", true, false, &lastVoteAt, nil, 480, createdAt,
	)

	mock.ExpectQuery(`SELECT .*FROM fanvote\.users`).WithArgs("user-1").WillReturnRows(rows)

	user, err := repo.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if user.ID != "user-1" || !user.IsActive || user.IsBlocked {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.LastVoteAt == nil || !user.LastVoteAt.Equal(lastVoteAt) {
		t.Fatalf("expected last vote timestamp populated")
	}
	if user.LastBonusAt != nil {
		t.Fatalf("expected nil bonus timestamp")
	}
	if user.LifetimePointsSpent != 480 {
		t.Fatalf("expected 480 lifetime points, got %d", user.LifetimePointsSpent)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM fanvote\.users`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "is_active", "is_blocked", "last_vote_at", "last_bonus_at", "lifetime_points_spent", "created_at",
		}))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GrantBonus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	grantedAt := time.Now().UTC()
	dayStart := time.Date(grantedAt.Year(), grantedAt.Month(), grantedAt.Day(), 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE fanvote\.users SET last_bonus_at`).
		WithArgs(grantedAt, "user-1", dayStart).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	granted, err := repo.GrantBonus(context.Background(), "user-1", grantedAt, dayStart)
	if err != nil {
		t.Fatalf("GrantBonus returned error: %v", err)
	}
	if !granted {
		t.Fatalf("expected bonus to be granted")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GrantBonus_AlreadyGrantedToday(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	grantedAt := time.Now().UTC()
	dayStart := time.Date(grantedAt.Year(), grantedAt.Month(), grantedAt.Day(), 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE fanvote\.users SET last_bonus_at`).
		WithArgs(grantedAt, "user-1", dayStart).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	granted, err := repo.GrantBonus(context.Background(), "user-1", grantedAt, dayStart)
	if err != nil {
		t.Fatalf("GrantBonus returned error: %v", err)
	}
	if granted {
		t.Fatalf("expected grant to be rejected for the current day")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
