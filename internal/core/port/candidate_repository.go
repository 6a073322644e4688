package port

import (
	"context"

	"github.com/fanarena/voting-service/internal/core/domain"
)

// CandidateRepository persists candidate rows and their cached totals.
type CandidateRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Candidate, error)
	ListBySeason(ctx context.Context, seasonID string) ([]domain.Candidate, error)
	// SetWeeklyPoints replaces the candidate's cached weekly total and folds
	// the difference into the lifetime total in the same statement, so the
	// operation stays idempotent under repeated recomputation.
	SetWeeklyPoints(ctx context.Context, id string, weeklyPoints int) error
	// ResetWeeklyPoints zeroes the cached weekly totals for the given
	// candidates, removing the reset period's contribution from their
	// lifetime totals.
	ResetWeeklyPoints(ctx context.Context, ids []string) error
	// ArchiveWeeklyPoints zeroes the season's cached weekly totals without
	// touching lifetime totals. Called when a period completes: the final
	// recomputation has already folded the weekly amount into lifetime, so
	// the next period's first recomputation must start from zero.
	ArchiveWeeklyPoints(ctx context.Context, seasonID string) error
}
