package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/fanarena/voting-service/internal/core/domain"
	"github.com/fanarena/voting-service/internal/core/port"
	"github.com/fanarena/voting-service/internal/repository"
)

// PeriodRepository implements port.PeriodRepository using PostgreSQL.
type PeriodRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPeriodRepository wires a PostgreSQL-backed voting period repository.
func NewPeriodRepository(exec pgExecutor) *PeriodRepository {
	return &PeriodRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *PeriodRepository) selectColumns() squirrel.SelectBuilder {
	return r.builder.Select(
		"id",
		"season_id",
		"number",
		"nominee_ids",
		"protected_candidate_id",
		"state",
		"is_active",
		"voting_starts_at",
		"voting_ends_at",
		"results",
	).From("fanvote.voting_periods")
}

func scanPeriod(row pgx.Row) (*domain.VotingPeriod, error) {
	var (
		period      domain.VotingPeriod
		protectedID *string
		resultsRaw  []byte
	)

	if err := row.Scan(
		&period.ID,
		&period.SeasonID,
		&period.Number,
		&period.NomineeIDs,
		&protectedID,
		&period.State,
		&period.IsActive,
		&period.VotingStartsAt,
		&period.VotingEndsAt,
		&resultsRaw,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan voting period: %w", err)
	}

	period.ProtectedCandidateID = protectedID
	if len(resultsRaw) > 0 {
		if err := json.Unmarshal(resultsRaw, &period.Results); err != nil {
			return nil, fmt.Errorf("unmarshal period results: %w", err)
		}
	}

	return &period, nil
}

// GetByID retrieves a voting period by identifier.
func (r *PeriodRepository) GetByID(ctx context.Context, id string) (*domain.VotingPeriod, error) {
	stmt, args, err := r.selectColumns().Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select period sql: %w", err)
	}

	return scanPeriod(r.exec.QueryRow(ctx, stmt, args...))
}

// GetActiveBySeason retrieves the season's currently active period, if any.
func (r *PeriodRepository) GetActiveBySeason(ctx context.Context, seasonID string) (*domain.VotingPeriod, error) {
	stmt, args, err := r.selectColumns().
		Where(squirrel.Eq{"season_id": seasonID, "is_active": true}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select active period sql: %w", err)
	}

	return scanPeriod(r.exec.QueryRow(ctx, stmt, args...))
}

// ListBySeason returns the season's periods in ordinal order.
func (r *PeriodRepository) ListBySeason(ctx context.Context, seasonID string) ([]domain.VotingPeriod, error) {
	stmt, args, err := r.selectColumns().
		Where(squirrel.Eq{"season_id": seasonID}).
		OrderBy("number ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list periods sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query periods: %w", err)
	}
	defer rows.Close()

	periods := make([]domain.VotingPeriod, 0)
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, *period)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate periods: %w", err)
	}

	return periods, nil
}

// FindScheduledContaining returns the scheduled period whose voting window
// contains the reference instant, if any.
func (r *PeriodRepository) FindScheduledContaining(ctx context.Context, seasonID string, at time.Time) (*domain.VotingPeriod, error) {
	stmt, args, err := r.selectColumns().
		Where(squirrel.Eq{"season_id": seasonID, "state": domain.PeriodStateScheduled}).
		Where(squirrel.LtOrEq{"voting_starts_at": at}).
		Where(squirrel.GtOrEq{"voting_ends_at": at}).
		OrderBy("number ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find scheduled period sql: %w", err)
	}

	return scanPeriod(r.exec.QueryRow(ctx, stmt, args...))
}

// ActivateExclusively promotes the target period to voting and completes
// every other active period of the season in one statement. Touching every
// row of the season makes concurrent activations conflict on shared row
// locks and serialize; a deactivate-then-activate statement pair would let
// two READ COMMITTED transactions miss each other's uncommitted activation
// and commit two active periods.
func (r *PeriodRepository) ActivateExclusively(ctx context.Context, seasonID, periodID string) error {
	stmt := `
		UPDATE fanvote.voting_periods
		   SET is_active = (id = $2),
		       state = CASE WHEN id = $2 THEN $3
		                    WHEN is_active THEN $4
		                    ELSE state END
		 WHERE season_id = $1
		   AND EXISTS (
		       SELECT 1 FROM fanvote.voting_periods
		        WHERE id = $2 AND season_id = $1
		   )
	`

	ct, err := r.exec.Exec(ctx, stmt,
		seasonID, periodID, domain.PeriodStateVoting, domain.PeriodStateCompleted,
	)
	if err != nil {
		return fmt.Errorf("activate period: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Complete transitions the period to completed and clears its active flag.
func (r *PeriodRepository) Complete(ctx context.Context, periodID string) error {
	stmt, args, err := r.builder.Update("fanvote.voting_periods").
		Set("state", domain.PeriodStateCompleted).
		Set("is_active", false).
		Where(squirrel.Eq{"id": periodID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build complete period sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("complete period: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SaveResults writes the aggregated snapshot onto the period.
func (r *PeriodRepository) SaveResults(ctx context.Context, periodID string, results domain.PeriodResults) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal period results: %w", err)
	}

	stmt, args, err := r.builder.Update("fanvote.voting_periods").
		Set("results", raw).
		Where(squirrel.Eq{"id": periodID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save results sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("save period results: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ClearResults zeroes the period's cached snapshot.
func (r *PeriodRepository) ClearResults(ctx context.Context, periodID string) error {
	return r.SaveResults(ctx, periodID, domain.PeriodResults{})
}

var _ port.PeriodRepository = (*PeriodRepository)(nil)
