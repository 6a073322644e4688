package usecase

import (
	"context"
	"time"

	"github.com/fanarena/voting-service/internal/core/domain"
	"github.com/fanarena/voting-service/internal/core/port"
	"github.com/fanarena/voting-service/internal/repository"
)

// Function-field stubs for the repository ports. Unset fields return
// repository.ErrNotFound or zero values so tests only wire what they use.

type stubUserRepo struct {
	getByIDFn    func(ctx context.Context, id string) (*domain.User, error)
	grantBonusFn func(ctx context.Context, id string, grantedAt, dayStart time.Time) (bool, error)
}

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if s.getByIDFn == nil {
		return nil, repository.ErrNotFound
	}
	return s.getByIDFn(ctx, id)
}

func (s *stubUserRepo) GrantBonus(ctx context.Context, id string, grantedAt, dayStart time.Time) (bool, error) {
	if s.grantBonusFn == nil {
		return false, nil
	}
	return s.grantBonusFn(ctx, id, grantedAt, dayStart)
}

type stubSeasonRepo struct {
	getByIDFn   func(ctx context.Context, id string) (*domain.Season, error)
	getActiveFn func(ctx context.Context) (*domain.Season, error)
}

func (s *stubSeasonRepo) GetByID(ctx context.Context, id string) (*domain.Season, error) {
	if s.getByIDFn == nil {
		return nil, repository.ErrNotFound
	}
	return s.getByIDFn(ctx, id)
}

func (s *stubSeasonRepo) GetActive(ctx context.Context) (*domain.Season, error) {
	if s.getActiveFn == nil {
		return nil, repository.ErrNotFound
	}
	return s.getActiveFn(ctx)
}

type stubPeriodRepo struct {
	getByIDFn                 func(ctx context.Context, id string) (*domain.VotingPeriod, error)
	getActiveBySeasonFn       func(ctx context.Context, seasonID string) (*domain.VotingPeriod, error)
	listBySeasonFn            func(ctx context.Context, seasonID string) ([]domain.VotingPeriod, error)
	findScheduledContainingFn func(ctx context.Context, seasonID string, at time.Time) (*domain.VotingPeriod, error)
	activateExclusivelyFn     func(ctx context.Context, seasonID, periodID string) error
	completeFn                func(ctx context.Context, periodID string) error
	saveResultsFn             func(ctx context.Context, periodID string, results domain.PeriodResults) error
	clearResultsFn            func(ctx context.Context, periodID string) error
}

func (s *stubPeriodRepo) GetByID(ctx context.Context, id string) (*domain.VotingPeriod, error) {
	if s.getByIDFn == nil {
		return nil, repository.ErrNotFound
	}
	return s.getByIDFn(ctx, id)
}

func (s *stubPeriodRepo) GetActiveBySeason(ctx context.Context, seasonID string) (*domain.VotingPeriod, error) {
	if s.getActiveBySeasonFn == nil {
		return nil, repository.ErrNotFound
	}
	return s.getActiveBySeasonFn(ctx, seasonID)
}

func (s *stubPeriodRepo) ListBySeason(ctx context.Context, seasonID string) ([]domain.VotingPeriod, error) {
	if s.listBySeasonFn == nil {
		return nil, nil
	}
	return s.listBySeasonFn(ctx, seasonID)
}

func (s *stubPeriodRepo) FindScheduledContaining(ctx context.Context, seasonID string, at time.Time) (*domain.VotingPeriod, error) {
	if s.findScheduledContainingFn == nil {
		return nil, repository.ErrNotFound
	}
	return s.findScheduledContainingFn(ctx, seasonID, at)
}

func (s *stubPeriodRepo) ActivateExclusively(ctx context.Context, seasonID, periodID string) error {
	if s.activateExclusivelyFn == nil {
		return nil
	}
	return s.activateExclusivelyFn(ctx, seasonID, periodID)
}

func (s *stubPeriodRepo) Complete(ctx context.Context, periodID string) error {
	if s.completeFn == nil {
		return nil
	}
	return s.completeFn(ctx, periodID)
}

func (s *stubPeriodRepo) SaveResults(ctx context.Context, periodID string, results domain.PeriodResults) error {
	if s.saveResultsFn == nil {
		return nil
	}
	return s.saveResultsFn(ctx, periodID, results)
}

func (s *stubPeriodRepo) ClearResults(ctx context.Context, periodID string) error {
	if s.clearResultsFn == nil {
		return nil
	}
	return s.clearResultsFn(ctx, periodID)
}

type stubCandidateRepo struct {
	getByIDFn             func(ctx context.Context, id string) (*domain.Candidate, error)
	listBySeasonFn        func(ctx context.Context, seasonID string) ([]domain.Candidate, error)
	setWeeklyPointsFn     func(ctx context.Context, id string, weeklyPoints int) error
	resetWeeklyPointsFn   func(ctx context.Context, ids []string) error
	archiveWeeklyPointsFn func(ctx context.Context, seasonID string) error
}

func (s *stubCandidateRepo) GetByID(ctx context.Context, id string) (*domain.Candidate, error) {
	if s.getByIDFn == nil {
		return nil, repository.ErrNotFound
	}
	return s.getByIDFn(ctx, id)
}

func (s *stubCandidateRepo) ListBySeason(ctx context.Context, seasonID string) ([]domain.Candidate, error) {
	if s.listBySeasonFn == nil {
		return nil, nil
	}
	return s.listBySeasonFn(ctx, seasonID)
}

func (s *stubCandidateRepo) SetWeeklyPoints(ctx context.Context, id string, weeklyPoints int) error {
	if s.setWeeklyPointsFn == nil {
		return nil
	}
	return s.setWeeklyPointsFn(ctx, id, weeklyPoints)
}

func (s *stubCandidateRepo) ResetWeeklyPoints(ctx context.Context, ids []string) error {
	if s.resetWeeklyPointsFn == nil {
		return nil
	}
	return s.resetWeeklyPointsFn(ctx, ids)
}

func (s *stubCandidateRepo) ArchiveWeeklyPoints(ctx context.Context, seasonID string) error {
	if s.archiveWeeklyPointsFn == nil {
		return nil
	}
	return s.archiveWeeklyPointsFn(ctx, seasonID)
}

type stubVoteRepo struct {
	spendPointsFn              func(ctx context.Context, sub port.VoteSubmission) (*port.SubmissionReceipt, error)
	sumValidPointsFn           func(ctx context.Context, userID string, from, to time.Time) (int, error)
	listValidByUserAndPeriodFn func(ctx context.Context, userID, periodID string) ([]domain.Vote, error)
	tallyByPeriodFn            func(ctx context.Context, periodID string) ([]port.CandidateTally, error)
	invalidateByPeriodFn       func(ctx context.Context, periodID string) (int, error)
}

func (s *stubVoteRepo) SpendPoints(ctx context.Context, sub port.VoteSubmission) (*port.SubmissionReceipt, error) {
	if s.spendPointsFn == nil {
		return &port.SubmissionReceipt{}, nil
	}
	return s.spendPointsFn(ctx, sub)
}

func (s *stubVoteRepo) SumValidPoints(ctx context.Context, userID string, from, to time.Time) (int, error) {
	if s.sumValidPointsFn == nil {
		return 0, nil
	}
	return s.sumValidPointsFn(ctx, userID, from, to)
}

func (s *stubVoteRepo) ListValidByUserAndPeriod(ctx context.Context, userID, periodID string) ([]domain.Vote, error) {
	if s.listValidByUserAndPeriodFn == nil {
		return nil, nil
	}
	return s.listValidByUserAndPeriodFn(ctx, userID, periodID)
}

func (s *stubVoteRepo) TallyByPeriod(ctx context.Context, periodID string) ([]port.CandidateTally, error) {
	if s.tallyByPeriodFn == nil {
		return nil, nil
	}
	return s.tallyByPeriodFn(ctx, periodID)
}

func (s *stubVoteRepo) InvalidateByPeriod(ctx context.Context, periodID string) (int, error) {
	if s.invalidateByPeriodFn == nil {
		return 0, nil
	}
	return s.invalidateByPeriodFn(ctx, periodID)
}

type stubAuditRepo struct {
	listByDeviceSinceFn func(ctx context.Context, fingerprintHash string, since time.Time) ([]domain.VoteAuditRecord, error)
	listByUserFn        func(ctx context.Context, userID string, limit int) ([]domain.VoteAuditRecord, error)
}

func (s *stubAuditRepo) ListByDeviceSince(ctx context.Context, fingerprintHash string, since time.Time) ([]domain.VoteAuditRecord, error) {
	if s.listByDeviceSinceFn == nil {
		return nil, nil
	}
	return s.listByDeviceSinceFn(ctx, fingerprintHash, since)
}

func (s *stubAuditRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.VoteAuditRecord, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, limit)
}

type stubPublisher struct {
	accepted  []domain.VoteAcceptedEvent
	suspicion []domain.SuspicionRaisedEvent
	completed []domain.PeriodCompletedEvent
}

func (s *stubPublisher) PublishVoteAccepted(_ context.Context, event domain.VoteAcceptedEvent) error {
	s.accepted = append(s.accepted, event)
	return nil
}

func (s *stubPublisher) PublishSuspicionRaised(_ context.Context, event domain.SuspicionRaisedEvent) error {
	s.suspicion = append(s.suspicion, event)
	return nil
}

func (s *stubPublisher) PublishPeriodCompleted(_ context.Context, event domain.PeriodCompletedEvent) error {
	s.completed = append(s.completed, event)
	return nil
}

var (
	_ port.UserRepository      = (*stubUserRepo)(nil)
	_ port.SeasonRepository    = (*stubSeasonRepo)(nil)
	_ port.PeriodRepository    = (*stubPeriodRepo)(nil)
	_ port.CandidateRepository = (*stubCandidateRepo)(nil)
	_ port.VoteRepository      = (*stubVoteRepo)(nil)
	_ port.AuditRepository     = (*stubAuditRepo)(nil)
	_ port.EventPublisher      = (*stubPublisher)(nil)
)
