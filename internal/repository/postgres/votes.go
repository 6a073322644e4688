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

// VoteRepository implements port.VoteRepository using PostgreSQL.
type VoteRepository struct {
	pool    pgPool
	builder squirrel.StatementBuilderType
}

// NewVoteRepository wires a PostgreSQL-backed vote repository.
func NewVoteRepository(pool pgPool) *VoteRepository {
	return &VoteRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// SpendPoints runs the budget critical section: it locks the user row,
// re-derives the points already spent inside the submission's calendar day,
// and only then writes the vote and audit rows plus the user's spend
// counters. Two concurrent submissions for the same user serialize on the
// row lock, so their combined spend can never exceed the daily budget.
func (r *VoteRepository) SpendPoints(ctx context.Context, sub port.VoteSubmission) (*port.SubmissionReceipt, error) {
	requested := 0
	for _, entry := range sub.Entries {
		requested += entry.Vote.Points
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin spend points tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var lockedID string
	if err := tx.QueryRow(ctx,
		`SELECT id FROM fanvote.users WHERE id = $1 FOR UPDATE`,
		sub.UserID,
	).Scan(&lockedID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("lock user row: %w", err)
	}

	var usedToday int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(points), 0)
		   FROM fanvote.votes
		  WHERE user_id = $1 AND is_valid AND created_at >= $2 AND created_at < $3`,
		sub.UserID, sub.DayStart, sub.DayEnd,
	).Scan(&usedToday); err != nil {
		return nil, fmt.Errorf("sum points used today: %w", err)
	}

	available := sub.Budget - usedToday
	if available < 0 {
		available = 0
	}
	if requested > available {
		return nil, &domain.InsufficientPointsError{Available: available, Requested: requested}
	}

	for _, entry := range sub.Entries {
		if err := insertVote(ctx, tx, entry.Vote); err != nil {
			return nil, err
		}
		if err := insertAudit(ctx, tx, entry.Audit); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE fanvote.users
		    SET last_vote_at = $2,
		        lifetime_points_spent = lifetime_points_spent + $3
		  WHERE id = $1`,
		sub.UserID, sub.SubmittedAt, requested,
	); err != nil {
		return nil, fmt.Errorf("update user spend counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit spend points tx: %w", err)
	}

	return &port.SubmissionReceipt{
		PointsUsed:      requested,
		UsedToday:       usedToday + requested,
		RemainingPoints: available - requested,
	}, nil
}

func insertVote(ctx context.Context, tx pgx.Tx, vote domain.Vote) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO fanvote.votes
		    (id, user_id, candidate_id, season_id, period_id, period_number, points, is_valid, ip, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		vote.ID,
		vote.UserID,
		vote.CandidateID,
		vote.SeasonID,
		vote.PeriodID,
		vote.PeriodNumber,
		vote.Points,
		vote.IsValid,
		vote.IP,
		vote.UserAgent,
		vote.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

func insertAudit(ctx context.Context, tx pgx.Tx, audit domain.VoteAuditRecord) error {
	fingerprint, err := json.Marshal(audit.Fingerprint)
	if err != nil {
		return fmt.Errorf("marshal audit fingerprint: %w", err)
	}
	factors, err := json.Marshal(audit.Factors)
	if err != nil {
		return fmt.Errorf("marshal audit factors: %w", err)
	}
	coordination, err := json.Marshal(audit.Coordination)
	if err != nil {
		return fmt.Errorf("marshal audit coordination: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO fanvote.vote_audit_log
		    (id, vote_id, user_id, candidate_id, period_id, points, fingerprint, fingerprint_hash, ip, time_on_page, factors, coordination, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		audit.ID,
		audit.VoteID,
		audit.UserID,
		audit.CandidateID,
		audit.PeriodID,
		audit.Points,
		fingerprint,
		audit.FingerprintHash,
		audit.IP,
		audit.TimeOnPage,
		factors,
		coordination,
		audit.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert vote audit record: %w", err)
	}
	return nil
}

// SumValidPoints totals the points of the user's valid votes inside [from, to).
func (r *VoteRepository) SumValidPoints(ctx context.Context, userID string, from, to time.Time) (int, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(points), 0)
		   FROM fanvote.votes
		  WHERE user_id = $1 AND is_valid AND created_at >= $2 AND created_at < $3`,
		userID, from, to,
	)

	var total int
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("scan valid points sum: %w", err)
	}

	return total, nil
}

func (r *VoteRepository) selectColumns() squirrel.SelectBuilder {
	return r.builder.Select(
		"id",
		"user_id",
		"candidate_id",
		"season_id",
		"period_id",
		"period_number",
		"points",
		"is_valid",
		"ip",
		"user_agent",
		"created_at",
	).From("fanvote.votes")
}

func scanVote(row pgx.Row) (*domain.Vote, error) {
	var vote domain.Vote
	if err := row.Scan(
		&vote.ID,
		&vote.UserID,
		&vote.CandidateID,
		&vote.SeasonID,
		&vote.PeriodID,
		&vote.PeriodNumber,
		&vote.Points,
		&vote.IsValid,
		&vote.IP,
		&vote.UserAgent,
		&vote.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan vote: %w", err)
	}
	return &vote, nil
}

// ListValidByUserAndPeriod returns the user's valid votes within the period,
// newest first.
func (r *VoteRepository) ListValidByUserAndPeriod(ctx context.Context, userID, periodID string) ([]domain.Vote, error) {
	stmt, args, err := r.selectColumns().
		Where(squirrel.Eq{"user_id": userID, "period_id": periodID, "is_valid": true}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list period votes sql: %w", err)
	}

	return r.queryVotes(ctx, stmt, args)
}

func (r *VoteRepository) queryVotes(ctx context.Context, stmt string, args []any) ([]domain.Vote, error) {
	rows, err := r.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query votes: %w", err)
	}
	defer rows.Close()

	votes := make([]domain.Vote, 0)
	for rows.Next() {
		vote, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		votes = append(votes, *vote)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate votes: %w", err)
	}

	return votes, nil
}

// TallyByPeriod groups the period's valid votes per candidate. Ordering by
// candidate id keeps result iteration deterministic.
func (r *VoteRepository) TallyByPeriod(ctx context.Context, periodID string) ([]port.CandidateTally, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT candidate_id, COALESCE(SUM(points), 0), COUNT(*)
		   FROM fanvote.votes
		  WHERE period_id = $1 AND is_valid
		  GROUP BY candidate_id
		  ORDER BY candidate_id ASC`,
		periodID,
	)
	if err != nil {
		return nil, fmt.Errorf("query period tally: %w", err)
	}
	defer rows.Close()

	tallies := make([]port.CandidateTally, 0)
	for rows.Next() {
		var tally port.CandidateTally
		if err := rows.Scan(&tally.CandidateID, &tally.Points, &tally.Votes); err != nil {
			return nil, fmt.Errorf("scan period tally: %w", err)
		}
		tallies = append(tallies, tally)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate period tally: %w", err)
	}

	return tallies, nil
}

// InvalidateByPeriod marks every vote of the period invalid without deleting
// rows, so historical totals stay reconstructable.
func (r *VoteRepository) InvalidateByPeriod(ctx context.Context, periodID string) (int, error) {
	stmt, args, err := r.builder.Update("fanvote.votes").
		Set("is_valid", false).
		Where(squirrel.Eq{"period_id": periodID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build invalidate votes sql: %w", err)
	}

	ct, err := r.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("invalidate period votes: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

var _ port.VoteRepository = (*VoteRepository)(nil)
