package port

import (
	"context"
	"time"

	"github.com/fanarena/voting-service/internal/core/domain"
)

// PeriodRepository persists voting periods and their results snapshots.
type PeriodRepository interface {
	GetByID(ctx context.Context, id string) (*domain.VotingPeriod, error)
	GetActiveBySeason(ctx context.Context, seasonID string) (*domain.VotingPeriod, error)
	ListBySeason(ctx context.Context, seasonID string) ([]domain.VotingPeriod, error)
	// FindScheduledContaining returns the scheduled period whose voting
	// window contains the reference instant, if any.
	FindScheduledContaining(ctx context.Context, seasonID string, at time.Time) (*domain.VotingPeriod, error)
	// ActivateExclusively promotes the target period to voting and forces
	// every other active period of the season to completed, as one atomic
	// unit. Concurrent activations must not leave two periods active.
	ActivateExclusively(ctx context.Context, seasonID, periodID string) error
	// Complete transitions the period to completed and clears its active flag.
	Complete(ctx context.Context, periodID string) error
	SaveResults(ctx context.Context, periodID string, results domain.PeriodResults) error
	ClearResults(ctx context.Context, periodID string) error
}
