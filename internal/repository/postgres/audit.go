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
)

// AuditRepository implements port.AuditRepository using PostgreSQL. Writes
// to the audit log happen inside VoteRepository.SpendPoints; this type only
// serves the investigation queries.
type AuditRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAuditRepository(exec pgExecutor) *AuditRepository {
	return &AuditRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *AuditRepository) selectColumns() squirrel.SelectBuilder {
	return r.builder.Select(
		"id",
		"vote_id",
		"user_id",
		"candidate_id",
		"period_id",
		"points",
		"fingerprint",
		"fingerprint_hash",
		"ip",
		"time_on_page",
		"factors",
		"coordination",
		"created_at",
	).From("fanvote.vote_audit_log")
}

func scanAudit(row pgx.Row) (*domain.VoteAuditRecord, error) {
	var (
		record          domain.VoteAuditRecord
		fingerprintRaw  []byte
		factorsRaw      []byte
		coordinationRaw []byte
	)

	if err := row.Scan(
		&record.ID,
		&record.VoteID,
		&record.UserID,
		&record.CandidateID,
		&record.PeriodID,
		&record.Points,
		&fingerprintRaw,
		&record.FingerprintHash,
		&record.IP,
		&record.TimeOnPage,
		&factorsRaw,
		&coordinationRaw,
		&record.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan vote audit record: %w", err)
	}

	if len(fingerprintRaw) > 0 {
		if err := json.Unmarshal(fingerprintRaw, &record.Fingerprint); err != nil {
			return nil, fmt.Errorf("unmarshal audit fingerprint: %w", err)
		}
	}
	if len(factorsRaw) > 0 {
		if err := json.Unmarshal(factorsRaw, &record.Factors); err != nil {
			return nil, fmt.Errorf("unmarshal audit factors: %w", err)
		}
	}
	if len(coordinationRaw) > 0 {
		if err := json.Unmarshal(coordinationRaw, &record.Coordination); err != nil {
			return nil, fmt.Errorf("unmarshal audit coordination: %w", err)
		}
	}

	return &record, nil
}

// ListByDeviceSince returns audit rows sharing the fingerprint hash recorded
// at or after the reference instant, oldest first.
func (r *AuditRepository) ListByDeviceSince(ctx context.Context, fingerprintHash string, since time.Time) ([]domain.VoteAuditRecord, error) {
	stmt, args, err := r.selectColumns().
		Where(squirrel.Eq{"fingerprint_hash": fingerprintHash}).
		Where(squirrel.GtOrEq{"created_at": since}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list device audit sql: %w", err)
	}

	return r.queryAudit(ctx, stmt, args)
}

// ListByUser returns the user's most recent audit rows, newest first.
func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.VoteAuditRecord, error) {
	query := r.selectColumns().
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list user audit sql: %w", err)
	}

	return r.queryAudit(ctx, stmt, args)
}

func (r *AuditRepository) queryAudit(ctx context.Context, stmt string, args []any) ([]domain.VoteAuditRecord, error) {
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query vote audit log: %w", err)
	}
	defer rows.Close()

	records := make([]domain.VoteAuditRecord, 0)
	for rows.Next() {
		record, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote audit log: %w", err)
	}

	return records, nil
}

var _ port.AuditRepository = (*AuditRepository)(nil)
