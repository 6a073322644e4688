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

// ErrPeriodNotFound indicates the referenced voting period does not exist.
var ErrPeriodNotFound = errors.New("voting period not found")

// ResultsService recomputes period standings from the vote ledger. The
// computation is a pure aggregation over valid votes, so rerunning it after
// vote invalidation or a reset always converges to the ledger's truth.
type ResultsService struct {
	periods    port.PeriodRepository
	votes      port.VoteRepository
	candidates port.CandidateRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewResultsService constructs a ResultsService instance.
func NewResultsService(periods port.PeriodRepository, votes port.VoteRepository, candidates port.CandidateRepository, logger *zap.Logger) *ResultsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultsService{
		periods:    periods,
		votes:      votes,
		candidates: candidates,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *ResultsService) WithClock(now func() time.Time) *ResultsService {
	if now != nil {
		s.now = now
	}
	return s
}

// Recompute tallies every valid vote in the period, persists the standings
// on the period row, and folds each nominee's weekly total into their
// lifetime total. Standings list only nominees with valid votes; cached
// weekly totals are still written for the whole ballot.
func (s *ResultsService) Recompute(ctx context.Context, periodID string) (*domain.PeriodResults, error) {
	period, err := s.periods.GetByID(ctx, periodID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPeriodNotFound
		}
		return nil, fmt.Errorf("lookup period: %w", err)
	}

	tallies, err := s.votes.TallyByPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("tally period votes: %w", err)
	}

	results := buildResults(period.NomineeIDs, tallies, s.now())

	if err := s.periods.SaveResults(ctx, periodID, *results); err != nil {
		return nil, fmt.Errorf("save period results: %w", err)
	}

	// Weekly totals cover the full ballot: nominees without valid votes are
	// written back as zero so a reset or invalidation converges their cached
	// totals too.
	points := make(map[string]int, len(tallies))
	for _, tally := range tallies {
		points[tally.CandidateID] = tally.Points
	}
	for _, id := range period.NomineeIDs {
		if err := s.candidates.SetWeeklyPoints(ctx, id, points[id]); err != nil {
			return nil, fmt.Errorf("update candidate totals: %w", err)
		}
	}

	s.logger.Info("period results recomputed",
		zap.String("period_id", periodID),
		zap.Int("total_points", results.TotalPoints),
		zap.Int("total_votes", results.TotalVotes),
		zap.String("leader_id", results.LeaderID),
	)

	return results, nil
}

// buildResults assembles standings for the nominees that received valid
// votes; an empty ledger yields an empty list and no leader. The leader is
// the nominee with the most points; an exact tie resolves to the lowest
// candidate id so repeated recomputations stay deterministic.
func buildResults(nomineeIDs []string, tallies []port.CandidateTally, computedAt time.Time) *domain.PeriodResults {
	byCandidate := make(map[string]port.CandidateTally, len(tallies))
	totalPoints := 0
	totalVotes := 0
	for _, tally := range tallies {
		byCandidate[tally.CandidateID] = tally
		totalPoints += tally.Points
		totalVotes += tally.Votes
	}

	results := &domain.PeriodResults{
		TotalPoints: totalPoints,
		TotalVotes:  totalVotes,
		Standings:   make([]domain.CandidateStanding, 0, len(tallies)),
		ComputedAt:  computedAt,
	}

	leaderPoints := -1
	for _, id := range nomineeIDs {
		tally, voted := byCandidate[id]
		if !voted {
			continue
		}
		standing := domain.CandidateStanding{
			CandidateID: id,
			Points:      tally.Points,
			Votes:       tally.Votes,
		}
		if totalPoints > 0 {
			standing.Share = float64(tally.Points) / float64(totalPoints)
		}
		results.Standings = append(results.Standings, standing)

		if tally.Points > leaderPoints || (tally.Points == leaderPoints && id < results.LeaderID) {
			leaderPoints = tally.Points
			results.LeaderID = id
		}
	}

	return results
}
