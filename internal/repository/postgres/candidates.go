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

// CandidateRepository implements port.CandidateRepository using PostgreSQL.
type CandidateRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewCandidateRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewCandidateRepository(exec pgExecutor) *CandidateRepository {
	return &CandidateRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *CandidateRepository) selectColumns() squirrel.SelectBuilder {
	return r.builder.Select(
		"id",
		"season_id",
		"name",
		"status",
		"weekly_points",
		"lifetime_points",
	).From("fanvote.candidates")
}

func scanCandidate(row pgx.Row) (*domain.Candidate, error) {
	var candidate domain.Candidate
	if err := row.Scan(
		&candidate.ID,
		&candidate.SeasonID,
		&candidate.Name,
		&candidate.Status,
		&candidate.WeeklyPoints,
		&candidate.LifetimePoints,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan candidate: %w", err)
	}
	return &candidate, nil
}

// GetByID retrieves a candidate by identifier.
func (r *CandidateRepository) GetByID(ctx context.Context, id string) (*domain.Candidate, error) {
	stmt, args, err := r.selectColumns().Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select candidate sql: %w", err)
	}

	return scanCandidate(r.exec.QueryRow(ctx, stmt, args...))
}

// ListBySeason returns the season's candidates ordered by identifier.
func (r *CandidateRepository) ListBySeason(ctx context.Context, seasonID string) ([]domain.Candidate, error) {
	stmt, args, err := r.selectColumns().
		Where(squirrel.Eq{"season_id": seasonID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list candidates sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]domain.Candidate, 0)
	for rows.Next() {
		candidate, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *candidate)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	return candidates, nil
}

// SetWeeklyPoints replaces the cached weekly total and folds the difference
// into the lifetime total in one statement, keeping repeated recomputation
// idempotent.
func (r *CandidateRepository) SetWeeklyPoints(ctx context.Context, id string, weeklyPoints int) error {
	stmt := `
		UPDATE fanvote.candidates
		   SET lifetime_points = lifetime_points - weekly_points + $2,
		       weekly_points = $2
		 WHERE id = $1
	`

	ct, err := r.exec.Exec(ctx, stmt, id, weeklyPoints)
	if err != nil {
		return fmt.Errorf("set candidate weekly points: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ResetWeeklyPoints zeroes the cached weekly totals for the given candidates,
// removing the reset period's contribution from their lifetime totals.
func (r *CandidateRepository) ResetWeeklyPoints(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	stmt := `
		UPDATE fanvote.candidates
		   SET lifetime_points = lifetime_points - weekly_points,
		       weekly_points = 0
		 WHERE id = ANY($1)
	`

	if _, err := r.exec.Exec(ctx, stmt, ids); err != nil {
		return fmt.Errorf("reset candidate weekly points: %w", err)
	}

	return nil
}

// ArchiveWeeklyPoints zeroes the season's weekly totals while leaving
// lifetime totals untouched. The completed period's contribution stays in
// lifetime_points, where the last recomputation folded it; zeroing the
// weekly column keeps the next period's fold from subtracting it again.
func (r *CandidateRepository) ArchiveWeeklyPoints(ctx context.Context, seasonID string) error {
	stmt := `
		UPDATE fanvote.candidates
		   SET weekly_points = 0
		 WHERE season_id = $1 AND weekly_points <> 0
	`

	if _, err := r.exec.Exec(ctx, stmt, seasonID); err != nil {
		return fmt.Errorf("archive candidate weekly points: %w", err)
	}

	return nil
}

var _ port.CandidateRepository = (*CandidateRepository)(nil)
