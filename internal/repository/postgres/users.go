package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/fanarena/voting-service/internal/core/domain"
	"github.com/fanarena/voting-service/internal/core/port"
	"github.com/fanarena/voting-service/internal/repository"
)

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a voting profile by user identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(
			"id",
			"is_active",
			"is_blocked",
			"last_vote_at",
			"last_bonus_at",
			"lifetime_points_spent",
			"created_at",
		).
		From("fanvote.users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		user        domain.User
		lastVoteAt  *time.Time
		lastBonusAt *time.Time
	)

	if err := row.Scan(
		&user.ID,
		&user.IsActive,
		&user.IsBlocked,
		&lastVoteAt,
		&lastBonusAt,
		&user.LifetimePointsSpent,
		&user.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	user.LastVoteAt = lastVoteAt
	user.LastBonusAt = lastBonusAt

	return &user, nil
}

// GrantBonus sets the daily-bonus timestamp only when no bonus has been
// granted on the current calendar day. The condition is evaluated in the
// same statement as the write, so two concurrent grants cannot both succeed.
func (r *UserRepository) GrantBonus(ctx context.Context, id string, grantedAt, dayStart time.Time) (bool, error) {
	stmt, args, err := r.builder.Update("fanvote.users").
		Set("last_bonus_at", grantedAt).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Or{
			squirrel.Eq{"last_bonus_at": nil},
			squirrel.Lt{"last_bonus_at": dayStart},
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build grant bonus sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("grant bonus: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
