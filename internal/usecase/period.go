package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fanarena/voting-service/internal/core/domain"
	"github.com/fanarena/voting-service/internal/core/port"
	"github.com/fanarena/voting-service/internal/repository"
)

var (
	// ErrNoActivePeriod indicates no voting period is open right now.
	ErrNoActivePeriod = errors.New("no active voting period")
	// ErrVotingNotOpen indicates the period exists but is not accepting votes.
	ErrVotingNotOpen = errors.New("voting is not open")
)

// PeriodService drives the scheduled -> voting -> completed lifecycle.
// Transitions happen lazily on read as well as through the explicit admin
// operations, so the system needs no scheduler process.
type PeriodService struct {
	periods    port.PeriodRepository
	votes      port.VoteRepository
	candidates port.CandidateRepository
	results    *ResultsService
	events     port.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewPeriodService constructs a PeriodService instance.
func NewPeriodService(periods port.PeriodRepository, votes port.VoteRepository, candidates port.CandidateRepository, results *ResultsService, events port.EventPublisher, logger *zap.Logger) *PeriodService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{
		periods:    periods,
		votes:      votes,
		candidates: candidates,
		results:    results,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *PeriodService) WithClock(now func() time.Time) *PeriodService {
	if now != nil {
		s.now = now
	}
	return s
}

// ActivePeriod resolves the period currently accepting votes for the
// season. A voting period whose window has lapsed is completed on the spot,
// and a scheduled period whose window contains now is activated, closing
// any sibling still marked active in the same step.
func (s *PeriodService) ActivePeriod(ctx context.Context, seasonID string) (*domain.VotingPeriod, error) {
	now := s.now()

	period, err := s.periods.GetActiveBySeason(ctx, seasonID)
	switch {
	case err == nil:
		if period.State == domain.PeriodStateVoting {
			if now.After(period.VotingEndsAt) {
				if _, endErr := s.End(ctx, period.ID); endErr != nil {
					return nil, fmt.Errorf("close lapsed period: %w", endErr)
				}
				break
			}
			// A manually started period is open even before its scheduled
			// window begins; only a lapsed window closes it.
			return period, nil
		}
	case errors.Is(err, repository.ErrNotFound):
		// No active row; fall through to auto-activation.
	default:
		return nil, fmt.Errorf("lookup active period: %w", err)
	}

	scheduled, err := s.periods.FindScheduledContaining(ctx, seasonID, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActivePeriod
		}
		return nil, fmt.Errorf("find scheduled period: %w", err)
	}

	if err := s.periods.ActivateExclusively(ctx, seasonID, scheduled.ID); err != nil {
		return nil, fmt.Errorf("activate period: %w", err)
	}

	s.logger.Info("voting period auto-activated",
		zap.String("season_id", seasonID),
		zap.String("period_id", scheduled.ID),
		zap.Int("period_number", scheduled.Number),
	)

	activated, err := s.periods.GetByID(ctx, scheduled.ID)
	if err != nil {
		return nil, fmt.Errorf("reload activated period: %w", err)
	}
	return activated, nil
}

// Start manually opens a period for voting regardless of its scheduled
// window, deactivating any sibling in the same transaction.
func (s *PeriodService) Start(ctx context.Context, periodID string) (*domain.VotingPeriod, error) {
	period, err := s.periods.GetByID(ctx, periodID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPeriodNotFound
		}
		return nil, fmt.Errorf("lookup period: %w", err)
	}

	if err := s.periods.ActivateExclusively(ctx, period.SeasonID, period.ID); err != nil {
		return nil, fmt.Errorf("activate period: %w", err)
	}

	// Any sibling force-completed above already has its weekly totals folded
	// into lifetime by the per-submission recomputations; the new period
	// starts from zeroed weekly columns.
	if err := s.candidates.ArchiveWeeklyPoints(ctx, period.SeasonID); err != nil {
		return nil, fmt.Errorf("archive candidate totals: %w", err)
	}

	s.logger.Info("voting period started",
		zap.String("period_id", period.ID),
		zap.Int("period_number", period.Number),
	)

	return s.periods.GetByID(ctx, period.ID)
}

// End closes a period: standings are recomputed one final time, the row
// moves to completed, and a completion event is published.
func (s *PeriodService) End(ctx context.Context, periodID string) (*domain.VotingPeriod, error) {
	period, err := s.periods.GetByID(ctx, periodID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPeriodNotFound
		}
		return nil, fmt.Errorf("lookup period: %w", err)
	}

	results, err := s.results.Recompute(ctx, period.ID)
	if err != nil {
		return nil, err
	}

	if err := s.periods.Complete(ctx, period.ID); err != nil {
		return nil, fmt.Errorf("complete period: %w", err)
	}

	// The recomputation above folded the final weekly totals into lifetime.
	// Zero the weekly column now so the next period's first recomputation
	// does not subtract this period's contribution from lifetime again.
	if err := s.candidates.ArchiveWeeklyPoints(ctx, period.SeasonID); err != nil {
		return nil, fmt.Errorf("archive candidate totals: %w", err)
	}

	event := domain.PeriodCompletedEvent{
		SeasonID:    period.SeasonID,
		PeriodID:    period.ID,
		Number:      period.Number,
		Results:     *results,
		CompletedAt: s.now(),
	}
	if err := s.events.PublishPeriodCompleted(ctx, event); err != nil {
		s.logger.Error("publish period completed event", zap.Error(err),
			zap.String("period_id", period.ID))
	}

	s.logger.Info("voting period completed",
		zap.String("period_id", period.ID),
		zap.Int("period_number", period.Number),
		zap.String("leader_id", results.LeaderID),
	)

	return s.periods.GetByID(ctx, period.ID)
}

// Reset wipes a period's outcome while preserving its lifecycle state:
// every vote in the period is invalidated (never deleted), stored results
// are cleared, and nominee weekly totals return to zero. Lifetime totals
// shed the invalidated weekly contribution through the same update.
func (s *PeriodService) Reset(ctx context.Context, periodID string) (*domain.VotingPeriod, error) {
	period, err := s.periods.GetByID(ctx, periodID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPeriodNotFound
		}
		return nil, fmt.Errorf("lookup period: %w", err)
	}

	invalidated, err := s.votes.InvalidateByPeriod(ctx, period.ID)
	if err != nil {
		return nil, fmt.Errorf("invalidate period votes: %w", err)
	}

	if len(period.NomineeIDs) > 0 {
		if err := s.candidates.ResetWeeklyPoints(ctx, period.NomineeIDs); err != nil {
			return nil, fmt.Errorf("reset candidate totals: %w", err)
		}
	}

	if err := s.periods.ClearResults(ctx, period.ID); err != nil {
		return nil, fmt.Errorf("clear period results: %w", err)
	}

	s.logger.Warn("voting period reset",
		zap.String("period_id", period.ID),
		zap.Int("votes_invalidated", invalidated),
	)

	return s.periods.GetByID(ctx, period.ID)
}

// ListBySeason returns every period of the season in schedule order.
func (s *PeriodService) ListBySeason(ctx context.Context, seasonID string) ([]domain.VotingPeriod, error) {
	periods, err := s.periods.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list season periods: %w", err)
	}
	return periods, nil
}
