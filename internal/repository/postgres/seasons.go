package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/fanarena/voting-service/internal/core/domain"
	"github.com/fanarena/voting-service/internal/core/port"
	"github.com/fanarena/voting-service/internal/repository"
)

// SeasonRepository implements port.SeasonRepository using PostgreSQL.
type SeasonRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSeasonRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewSeasonRepository(exec pgExecutor) *SeasonRepository {
	return &SeasonRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *SeasonRepository) selectColumns() squirrel.SelectBuilder {
	return r.builder.Select(
		"id",
		"name",
		"default_daily_points",
		"is_active",
		"starts_at",
		"ends_at",
	).From("fanvote.seasons")
}

func scanSeason(row pgx.Row) (*domain.Season, error) {
	var season domain.Season
	if err := row.Scan(
		&season.ID,
		&season.Name,
		&season.DefaultDailyPoints,
		&season.IsActive,
		&season.StartsAt,
		&season.EndsAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan season: %w", err)
	}
	return &season, nil
}

// GetByID retrieves a season by identifier.
func (r *SeasonRepository) GetByID(ctx context.Context, id string) (*domain.Season, error) {
	stmt, args, err := r.selectColumns().Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select season sql: %w", err)
	}

	return scanSeason(r.exec.QueryRow(ctx, stmt, args...))
}

// GetActive retrieves the single active season, if any.
func (r *SeasonRepository) GetActive(ctx context.Context) (*domain.Season, error) {
	stmt, args, err := r.selectColumns().
		Where(squirrel.Eq{"is_active": true}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select active season sql: %w", err)
	}

	return scanSeason(r.exec.QueryRow(ctx, stmt, args...))
}

var _ port.SeasonRepository = (*SeasonRepository)(nil)
