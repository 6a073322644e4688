package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fanarena/voting-service/internal/core/domain"
	"github.com/fanarena/voting-service/internal/core/port"
	"github.com/fanarena/voting-service/internal/infra/logger"
	"github.com/fanarena/voting-service/internal/infra/security"
	"github.com/fanarena/voting-service/internal/repository"
)

var (
	// ErrEmptySubmission indicates the request carried no votes.
	ErrEmptySubmission = errors.New("submission contains no votes")
	// ErrInvalidPoints indicates a vote requested a non-positive amount.
	ErrInvalidPoints = errors.New("vote points must be positive")
	// ErrCandidateNotNominated indicates the candidate is not on the period ballot.
	ErrCandidateNotNominated = errors.New("candidate is not nominated this period")
	// ErrCandidateProtected indicates the candidate cannot receive votes this period.
	ErrCandidateProtected = errors.New("candidate is protected this period")
	// ErrChallengeRequired indicates the submission must pass an interactive
	// challenge before it is accepted.
	ErrChallengeRequired = errors.New("challenge required")
)

// VoteEntry is one candidate allocation inside a submission.
type VoteEntry struct {
	CandidateID string
	Points      int
}

// SubmissionMeta carries the request-level signals used for the audit trail
// and behavioral scoring. AccountCreatedAt comes from the access token, not
// the voting profile, so scoring works even for first-time voters.
type SubmissionMeta struct {
	IP               string
	UserAgent        string
	Fingerprint      domain.FingerprintAttributes
	TimeOnPage       float64
	AccountCreatedAt time.Time
}

// SubmissionResult reports the outcome of an accepted submission.
type SubmissionResult struct {
	PointsUsed      int
	UsedToday       int
	RemainingPoints int
	Suspicious      bool
}

// NomineeBoard is the public snapshot of the current ballot and standings.
type NomineeBoard struct {
	Season     domain.Season
	Period     domain.VotingPeriod
	Candidates []domain.Candidate
}

// VoteService orchestrates vote submission end to end: eligibility and
// ballot validation, budget enforcement, behavioral scoring, the atomic
// spend, event publication, and the standings refresh.
type VoteService struct {
	users   port.UserRepository
	seasons port.SeasonRepository
	votes   port.VoteRepository
	audit   port.AuditRepository

	periods      *PeriodService
	points       *PointsService
	results      *ResultsService
	scorer       *SuspicionScorer
	coordination *CoordinationService

	events           port.EventPublisher
	logger           *zap.Logger
	challengeEnabled bool
	now              func() time.Time
}

// NewVoteService constructs the submission orchestrator.
func NewVoteService(
	users port.UserRepository,
	seasons port.SeasonRepository,
	votes port.VoteRepository,
	audit port.AuditRepository,
	periods *PeriodService,
	points *PointsService,
	results *ResultsService,
	scorer *SuspicionScorer,
	coordination *CoordinationService,
	events port.EventPublisher,
	challengeEnabled bool,
	log *zap.Logger,
) *VoteService {
	if log == nil {
		log = zap.NewNop()
	}
	return &VoteService{
		users:            users,
		seasons:          seasons,
		votes:            votes,
		audit:            audit,
		periods:          periods,
		points:           points,
		results:          results,
		scorer:           scorer,
		coordination:     coordination,
		events:           events,
		logger:           log,
		challengeEnabled: challengeEnabled,
		now:              time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *VoteService) WithClock(now func() time.Time) *VoteService {
	if now != nil {
		s.now = now
	}
	return s
}

// SubmitVotes accepts a multi-candidate allocation against the caller's
// daily budget. Validation is ordered so the caller always learns the most
// fundamental problem first: season, then period, then ballot membership,
// then budget. The budget check here is advisory; the authoritative check
// runs inside the ledger transaction under a row lock.
func (s *VoteService) SubmitVotes(ctx context.Context, userID string, entries []VoteEntry, meta SubmissionMeta) (*SubmissionResult, error) {
	if len(entries) == 0 {
		return nil, ErrEmptySubmission
	}
	requested := 0
	for _, entry := range entries {
		if entry.Points <= 0 {
			return nil, ErrInvalidPoints
		}
		requested += entry.Points
	}

	season, err := s.seasons.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveSeason
		}
		return nil, fmt.Errorf("lookup active season: %w", err)
	}

	period, err := s.periods.ActivePeriod(ctx, season.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if period.State != domain.PeriodStateVoting || !period.IsActive {
		return nil, ErrVotingNotOpen
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.IsBlocked || !user.IsActive {
		return nil, ErrUserBlocked
	}

	for _, entry := range entries {
		if !period.IsNominee(entry.CandidateID) {
			return nil, ErrCandidateNotNominated
		}
		if period.IsProtected(entry.CandidateID) {
			return nil, ErrCandidateProtected
		}
	}

	available, err := s.points.AvailablePoints(ctx, *user, *season, now)
	if err != nil {
		return nil, err
	}
	if requested > available {
		return nil, &domain.InsufficientPointsError{Available: available, Requested: requested}
	}

	factors, flags, deviceHash := s.assess(ctx, userID, now, meta)

	if s.challengeEnabled && (factors.Any() || flags.Any()) {
		return nil, ErrChallengeRequired
	}

	dayStart, dayEnd := s.points.DayBounds(now)
	submission := port.VoteSubmission{
		UserID:       userID,
		SeasonID:     season.ID,
		PeriodID:     period.ID,
		PeriodNumber: period.Number,
		DayStart:     dayStart,
		DayEnd:       dayEnd,
		Budget:       s.points.Budget(*user, *season, now),
		Entries:      s.buildEntries(userID, season.ID, period, entries, meta, deviceHash, factors, flags, now),
		SubmittedAt:  now,
	}

	receipt, err := s.votes.SpendPoints(ctx, submission)
	if err != nil {
		var insufficient *domain.InsufficientPointsError
		if errors.As(err, &insufficient) {
			return nil, insufficient
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("spend points: %w", err)
	}

	s.publish(ctx, submission, factors, flags, deviceHash)

	if _, err := s.results.Recompute(ctx, period.ID); err != nil {
		// The votes are committed; standings will converge on the next
		// recomputation, so the submission still succeeds.
		s.logger.Error("recompute standings after submission", zap.Error(err),
			zap.String("period_id", period.ID))
	}

	s.logger.Info("votes accepted",
		zap.String("user_id", userID),
		zap.String("period_id", period.ID),
		zap.Int("points_used", receipt.PointsUsed),
		zap.Int("remaining_points", receipt.RemainingPoints),
		zap.String("ip", logger.MaskIP(meta.IP)),
	)

	return &SubmissionResult{
		PointsUsed:      receipt.PointsUsed,
		UsedToday:       receipt.UsedToday,
		RemainingPoints: receipt.RemainingPoints,
		Suspicious:      factors.Any() || flags.Any(),
	}, nil
}

// assess runs the behavioral scorer and the device coordination detector.
// Both are advisory; failures to read history degrade to a clean score
// rather than blocking the vote.
func (s *VoteService) assess(ctx context.Context, userID string, now time.Time, meta SubmissionMeta) (domain.SuspicionFactors, domain.CoordinationFlags, string) {
	recent, err := s.audit.ListByUser(ctx, userID, patternSampleSize)
	if err != nil {
		s.logger.Warn("list recent audits for scoring", zap.Error(err),
			zap.String("user_id", userID))
		recent = nil
	}

	factors := s.scorer.Score(SuspicionInput{
		SubmittedAt:      now,
		AccountCreatedAt: meta.AccountCreatedAt,
		UserAgent:        meta.UserAgent,
		TimeOnPage:       meta.TimeOnPage,
		RecentAudits:     recent,
	})

	deviceHash := security.FingerprintHash(meta.Fingerprint)

	flags, err := s.coordination.Detect(ctx, deviceHash)
	if err != nil {
		s.logger.Warn("detect device coordination", zap.Error(err),
			zap.String("user_id", userID))
		flags = domain.CoordinationFlags{}
	}

	shared, err := s.coordination.HasOtherAccountsOnDevice(ctx, deviceHash, userID)
	if err != nil {
		s.logger.Warn("check device account sharing", zap.Error(err),
			zap.String("user_id", userID))
		shared = false
	}
	if shared {
		s.logger.Warn("device shared across accounts",
			zap.String("user_id", userID),
			zap.String("device_hash", deviceHash),
		)
	}

	return factors, flags, deviceHash
}

// buildEntries materializes one vote row plus one audit row per allocation.
func (s *VoteService) buildEntries(userID, seasonID string, period *domain.VotingPeriod, entries []VoteEntry, meta SubmissionMeta, deviceHash string, factors domain.SuspicionFactors, flags domain.CoordinationFlags, now time.Time) []port.SubmissionEntry {
	out := make([]port.SubmissionEntry, 0, len(entries))
	for _, entry := range entries {
		voteID := uuid.NewString()
		out = append(out, port.SubmissionEntry{
			Vote: domain.Vote{
				ID:           voteID,
				UserID:       userID,
				CandidateID:  entry.CandidateID,
				SeasonID:     seasonID,
				PeriodID:     period.ID,
				PeriodNumber: period.Number,
				Points:       entry.Points,
				IsValid:      true,
				IP:           meta.IP,
				UserAgent:    meta.UserAgent,
				CreatedAt:    now,
			},
			Audit: domain.VoteAuditRecord{
				ID:              uuid.NewString(),
				VoteID:          voteID,
				UserID:          userID,
				CandidateID:     entry.CandidateID,
				PeriodID:        period.ID,
				Points:          entry.Points,
				Fingerprint:     meta.Fingerprint,
				FingerprintHash: deviceHash,
				IP:              meta.IP,
				TimeOnPage:      meta.TimeOnPage,
				Factors:         factors,
				Coordination:    flags,
				CreatedAt:       now,
			},
		})
	}
	return out
}

// publish emits one acceptance event per vote and a suspicion event when
// any factor or flag tripped.
func (s *VoteService) publish(ctx context.Context, submission port.VoteSubmission, factors domain.SuspicionFactors, flags domain.CoordinationFlags, deviceHash string) {
	for _, entry := range submission.Entries {
		event := domain.VoteAcceptedEvent{
			UserID:      entry.Vote.UserID,
			SeasonID:    entry.Vote.SeasonID,
			PeriodID:    entry.Vote.PeriodID,
			CandidateID: entry.Vote.CandidateID,
			Points:      entry.Vote.Points,
			AcceptedAt:  entry.Vote.CreatedAt,
			Metadata: map[string]any{
				"vote_id":       entry.Vote.ID,
				"period_number": entry.Vote.PeriodNumber,
			},
		}
		if err := s.events.PublishVoteAccepted(ctx, event); err != nil {
			s.logger.Error("publish vote accepted event", zap.Error(err),
				zap.String("vote_id", entry.Vote.ID))
		}
	}

	if factors.Any() || flags.Any() {
		event := domain.SuspicionRaisedEvent{
			VoteID:          submission.Entries[0].Vote.ID,
			UserID:          submission.UserID,
			PeriodID:        submission.PeriodID,
			FingerprintHash: deviceHash,
			Factors:         factors,
			Coordination:    flags,
			RaisedAt:        submission.SubmittedAt,
		}
		if err := s.events.PublishSuspicionRaised(ctx, event); err != nil {
			s.logger.Error("publish suspicion raised event", zap.Error(err),
				zap.String("user_id", submission.UserID))
		}
	}
}

// Nominees returns the current ballot with candidate standings. It resolves
// the active period lazily, so a stale scheduled period flips to voting on
// read here just as it does on submission.
func (s *VoteService) Nominees(ctx context.Context) (*NomineeBoard, error) {
	season, err := s.seasons.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveSeason
		}
		return nil, fmt.Errorf("lookup active season: %w", err)
	}

	period, err := s.periods.ActivePeriod(ctx, season.ID)
	if err != nil {
		return nil, err
	}

	all, err := s.candidatesBySeason(ctx, season.ID)
	if err != nil {
		return nil, err
	}

	nominated := make([]domain.Candidate, 0, len(period.NomineeIDs))
	for _, candidate := range all {
		if period.IsNominee(candidate.ID) {
			nominated = append(nominated, candidate)
		}
	}

	return &NomineeBoard{
		Season:     *season,
		Period:     *period,
		Candidates: nominated,
	}, nil
}

func (s *VoteService) candidatesBySeason(ctx context.Context, seasonID string) ([]domain.Candidate, error) {
	candidates, err := s.results.candidates.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list season candidates: %w", err)
	}
	return candidates, nil
}

// History returns the caller's valid votes in the current period, newest
// first.
func (s *VoteService) History(ctx context.Context, userID string) ([]domain.Vote, error) {
	season, err := s.seasons.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveSeason
		}
		return nil, fmt.Errorf("lookup active season: %w", err)
	}

	period, err := s.periods.ActivePeriod(ctx, season.ID)
	if err != nil {
		return nil, err
	}

	votes, err := s.votes.ListValidByUserAndPeriod(ctx, userID, period.ID)
	if err != nil {
		return nil, fmt.Errorf("list user votes: %w", err)
	}
	return votes, nil
}
