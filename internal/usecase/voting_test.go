package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fanarena/voting-service/internal/core/domain"
	"github.com/fanarena/voting-service/internal/core/port"
)

type votingFixture struct {
	users      *stubUserRepo
	seasons    *stubSeasonRepo
	periods    *stubPeriodRepo
	candidates *stubCandidateRepo
	votes      *stubVoteRepo
	audit      *stubAuditRepo
	events     *stubPublisher
	now        time.Time
}

func newVotingFixture(t *testing.T) *votingFixture {
	now := time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)
	accountAge := now.AddDate(-1, 0, 0)

	f := &votingFixture{
		users: &stubUserRepo{
			getByIDFn: func(_ context.Context, id string) (*domain.User, error) {
				return &domain.User{ID: id, IsActive: true, CreatedAt: accountAge}, nil
			},
		},
		seasons: &stubSeasonRepo{
			getActiveFn: func(_ context.Context) (*domain.Season, error) {
				return &domain.Season{ID: "s1", DefaultDailyPoints: 60, IsActive: true}, nil
			},
		},
		periods:    &stubPeriodRepo{},
		candidates: &stubCandidateRepo{},
		votes:      &stubVoteRepo{},
		audit:      &stubAuditRepo{},
		events:     &stubPublisher{},
		now:        now,
	}

	protected := "cP"
	open := domain.VotingPeriod{
		ID:                   "p1",
		SeasonID:             "s1",
		Number:               3,
		NomineeIDs:           []string{"cA", "cB", "cP"},
		ProtectedCandidateID: &protected,
		State:                domain.PeriodStateVoting,
		IsActive:             true,
		VotingStartsAt:       now.Add(-time.Hour),
		VotingEndsAt:         now.Add(time.Hour),
	}
	f.periods.getActiveBySeasonFn = func(_ context.Context, _ string) (*domain.VotingPeriod, error) {
		p := open
		return &p, nil
	}
	f.periods.getByIDFn = func(_ context.Context, _ string) (*domain.VotingPeriod, error) {
		p := open
		return &p, nil
	}

	return f
}

func (f *votingFixture) service(t *testing.T, challengeEnabled bool) *VoteService {
	log := zaptest.NewLogger(t)
	results := NewResultsService(f.periods, f.votes, f.candidates, log).WithClock(fixedClock(f.now))
	periods := NewPeriodService(f.periods, f.votes, f.candidates, results, f.events, log).WithClock(fixedClock(f.now))
	points := NewPointsService(f.users, f.votes, f.seasons, time.UTC, 50, log).WithClock(fixedClock(f.now))
	scorer := NewSuspicionScorer(time.UTC)
	coordination := NewCoordinationService(f.audit, time.Hour, 24*time.Hour, log).WithClock(fixedClock(f.now))

	return NewVoteService(
		f.users, f.seasons, f.votes, f.audit,
		periods, points, results, scorer, coordination,
		f.events, challengeEnabled, log,
	).WithClock(fixedClock(f.now))
}

func cleanMeta(now time.Time) SubmissionMeta {
	return SubmissionMeta{
		IP:        "187.190.33.10",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/124.0.0.0 Safari/537.36",
		Fingerprint: domain.FingerprintAttributes{
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/124.0.0.0 Safari/537.36",
			ScreenResolution: "1920x1080",
			Timezone:         "America/Mexico_City",
			Language:         "es-MX",
			Platform:         "Win32",
		},
		TimeOnPage:       42.5,
		AccountCreatedAt: now.AddDate(-1, 0, 0),
	}
}

func TestVoteService_SubmitVotes_FullBudget(t *testing.T) {
	f := newVotingFixture(t)

	var captured port.VoteSubmission
	f.votes.spendPointsFn = func(_ context.Context, sub port.VoteSubmission) (*port.SubmissionReceipt, error) {
		captured = sub
		return &port.SubmissionReceipt{PointsUsed: 60, UsedToday: 60, RemainingPoints: 0}, nil
	}

	recomputed := false
	f.votes.tallyByPeriodFn = func(_ context.Context, _ string) ([]port.CandidateTally, error) {
		recomputed = true
		return nil, nil
	}

	svc := f.service(t, false)

	result, err := svc.SubmitVotes(context.Background(), "u1", []VoteEntry{
		{CandidateID: "cA", Points: 40},
		{CandidateID: "cB", Points: 20},
	}, cleanMeta(f.now))
	require.NoError(t, err)
	require.Equal(t, 60, result.PointsUsed)
	require.Equal(t, 0, result.RemainingPoints)
	require.False(t, result.Suspicious)

	require.Equal(t, "u1", captured.UserID)
	require.Equal(t, "p1", captured.PeriodID)
	require.Equal(t, 60, captured.Budget)
	require.Len(t, captured.Entries, 2)

	vote := captured.Entries[0].Vote
	auditRec := captured.Entries[0].Audit
	require.Equal(t, "cA", vote.CandidateID)
	require.True(t, vote.IsValid)
	require.Equal(t, vote.ID, auditRec.VoteID)
	require.NotEmpty(t, auditRec.FingerprintHash)
	require.Equal(t, auditRec.FingerprintHash, captured.Entries[1].Audit.FingerprintHash)
	require.False(t, auditRec.Factors.Any())
	require.False(t, auditRec.Coordination.Any())

	require.Len(t, f.events.accepted, 2)
	require.Empty(t, f.events.suspicion)
	require.True(t, recomputed, "standings refresh after an accepted submission")
}

func TestVoteService_SubmitVotes_InsufficientBudget(t *testing.T) {
	f := newVotingFixture(t)

	lastVote := f.now.Add(-time.Hour)
	f.users.getByIDFn = func(_ context.Context, id string) (*domain.User, error) {
		return &domain.User{ID: id, IsActive: true, LastVoteAt: &lastVote}, nil
	}
	f.votes.sumValidPointsFn = func(_ context.Context, _ string, _, _ time.Time) (int, error) {
		return 60, nil
	}
	f.votes.spendPointsFn = func(_ context.Context, _ port.VoteSubmission) (*port.SubmissionReceipt, error) {
		t.Fatal("ledger must not be written when the precheck fails")
		return nil, nil
	}

	svc := f.service(t, false)

	_, err := svc.SubmitVotes(context.Background(), "u1", []VoteEntry{{CandidateID: "cA", Points: 1}}, cleanMeta(f.now))

	var insufficient *domain.InsufficientPointsError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, 0, insufficient.Available)
	require.Equal(t, 1, insufficient.Requested)
}

func TestVoteService_SubmitVotes_LedgerRaceSurfacesTypedError(t *testing.T) {
	f := newVotingFixture(t)

	f.votes.spendPointsFn = func(_ context.Context, _ port.VoteSubmission) (*port.SubmissionReceipt, error) {
		return nil, &domain.InsufficientPointsError{Available: 5, Requested: 10}
	}

	svc := f.service(t, false)

	_, err := svc.SubmitVotes(context.Background(), "u1", []VoteEntry{{CandidateID: "cA", Points: 10}}, cleanMeta(f.now))

	var insufficient *domain.InsufficientPointsError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, 5, insufficient.Available)
	require.Empty(t, f.events.accepted)
}

func TestVoteService_SubmitVotes_BallotValidation(t *testing.T) {
	f := newVotingFixture(t)
	svc := f.service(t, false)
	meta := cleanMeta(f.now)

	_, err := svc.SubmitVotes(context.Background(), "u1", nil, meta)
	require.ErrorIs(t, err, ErrEmptySubmission)

	_, err = svc.SubmitVotes(context.Background(), "u1", []VoteEntry{{CandidateID: "cA", Points: 0}}, meta)
	require.ErrorIs(t, err, ErrInvalidPoints)

	_, err = svc.SubmitVotes(context.Background(), "u1", []VoteEntry{{CandidateID: "ghost", Points: 10}}, meta)
	require.ErrorIs(t, err, ErrCandidateNotNominated)

	_, err = svc.SubmitVotes(context.Background(), "u1", []VoteEntry{{CandidateID: "cP", Points: 10}}, meta)
	require.ErrorIs(t, err, ErrCandidateProtected)
}

func TestVoteService_SubmitVotes_ManualEarlyStartAccepted(t *testing.T) {
	f := newVotingFixture(t)

	// Operator opened the period an hour before its scheduled window.
	early := domain.VotingPeriod{
		ID:             "p1",
		SeasonID:       "s1",
		NomineeIDs:     []string{"cA", "cB"},
		State:          domain.PeriodStateVoting,
		IsActive:       true,
		VotingStartsAt: f.now.Add(time.Hour),
		VotingEndsAt:   f.now.Add(48 * time.Hour),
	}
	f.periods.getActiveBySeasonFn = func(_ context.Context, _ string) (*domain.VotingPeriod, error) {
		p := early
		return &p, nil
	}
	f.periods.getByIDFn = func(_ context.Context, _ string) (*domain.VotingPeriod, error) {
		p := early
		return &p, nil
	}
	f.votes.spendPointsFn = func(_ context.Context, _ port.VoteSubmission) (*port.SubmissionReceipt, error) {
		return &port.SubmissionReceipt{PointsUsed: 10, UsedToday: 10, RemainingPoints: 50}, nil
	}

	svc := f.service(t, false)

	result, err := svc.SubmitVotes(context.Background(), "u1", []VoteEntry{{CandidateID: "cA", Points: 10}}, cleanMeta(f.now))
	require.NoError(t, err)
	require.Equal(t, 10, result.PointsUsed)
}

func TestVoteService_SubmitVotes_LapsedWindowClosed(t *testing.T) {
	f := newVotingFixture(t)

	f.periods.getActiveBySeasonFn = func(_ context.Context, _ string) (*domain.VotingPeriod, error) {
		return &domain.VotingPeriod{
			ID:             "p1",
			SeasonID:       "s1",
			State:          domain.PeriodStateVoting,
			IsActive:       true,
			VotingStartsAt: f.now.Add(-8 * 24 * time.Hour),
			VotingEndsAt:   f.now.Add(-time.Hour),
		}, nil
	}
	completed := false
	f.periods.completeFn = func(_ context.Context, periodID string) error {
		require.Equal(t, "p1", periodID)
		completed = true
		return nil
	}

	svc := f.service(t, false)

	_, err := svc.SubmitVotes(context.Background(), "u1", []VoteEntry{{CandidateID: "cA", Points: 10}}, cleanMeta(f.now))
	require.ErrorIs(t, err, ErrNoActivePeriod)
	require.True(t, completed)
}

func TestVoteService_SubmitVotes_BlockedUser(t *testing.T) {
	f := newVotingFixture(t)

	f.users.getByIDFn = func(_ context.Context, id string) (*domain.User, error) {
		return &domain.User{ID: id, IsActive: true, IsBlocked: true}, nil
	}

	svc := f.service(t, false)

	_, err := svc.SubmitVotes(context.Background(), "u1", []VoteEntry{{CandidateID: "cA", Points: 10}}, cleanMeta(f.now))
	require.ErrorIs(t, err, ErrUserBlocked)
}

func TestVoteService_SubmitVotes_SuspicionRecordedNotBlocking(t *testing.T) {
	f := newVotingFixture(t)

	var captured port.VoteSubmission
	f.votes.spendPointsFn = func(_ context.Context, sub port.VoteSubmission) (*port.SubmissionReceipt, error) {
		captured = sub
		return &port.SubmissionReceipt{PointsUsed: 10, UsedToday: 10, RemainingPoints: 50}, nil
	}

	meta := cleanMeta(f.now)
	meta.TimeOnPage = 0.5
	meta.UserAgent = "python-requests/2.31.0"
	meta.AccountCreatedAt = f.now.AddDate(0, 0, -2)

	svc := f.service(t, false)

	result, err := svc.SubmitVotes(context.Background(), "u1", []VoteEntry{{CandidateID: "cA", Points: 10}}, meta)
	require.NoError(t, err)
	require.True(t, result.Suspicious)

	factors := captured.Entries[0].Audit.Factors
	require.True(t, factors.RapidVoting)
	require.True(t, factors.PreciseTiming)
	require.True(t, factors.SuspiciousClient)
	require.True(t, factors.NewAccount)

	require.Len(t, f.events.suspicion, 1)
	require.Equal(t, captured.Entries[0].Vote.ID, f.events.suspicion[0].VoteID)
	require.True(t, f.events.suspicion[0].Factors.RapidVoting)
}

func TestVoteService_SubmitVotes_HistoryReadFailureDegrades(t *testing.T) {
	f := newVotingFixture(t)

	f.audit.listByUserFn = func(_ context.Context, _ string, _ int) ([]domain.VoteAuditRecord, error) {
		return nil, errors.New("audit store down")
	}
	f.audit.listByDeviceSinceFn = func(_ context.Context, _ string, _ time.Time) ([]domain.VoteAuditRecord, error) {
		return nil, errors.New("audit store down")
	}

	var captured port.VoteSubmission
	f.votes.spendPointsFn = func(_ context.Context, sub port.VoteSubmission) (*port.SubmissionReceipt, error) {
		captured = sub
		return &port.SubmissionReceipt{PointsUsed: 10, UsedToday: 10, RemainingPoints: 50}, nil
	}

	svc := f.service(t, false)

	// Scoring inputs that cannot be read degrade to a clean score instead of
	// rejecting the submission.
	result, err := svc.SubmitVotes(context.Background(), "u1", []VoteEntry{{CandidateID: "cA", Points: 10}}, cleanMeta(f.now))
	require.NoError(t, err)
	require.False(t, result.Suspicious)

	audit := captured.Entries[0].Audit
	require.False(t, audit.Factors.RapidVoting)
	require.False(t, audit.Factors.RepetitivePattern)
	require.False(t, audit.Coordination.Any())
}

func TestVoteService_SubmitVotes_ChallengeGate(t *testing.T) {
	f := newVotingFixture(t)

	f.votes.spendPointsFn = func(_ context.Context, _ port.VoteSubmission) (*port.SubmissionReceipt, error) {
		t.Fatal("challenged submission must not reach the ledger")
		return nil, nil
	}

	meta := cleanMeta(f.now)
	meta.TimeOnPage = 0.5

	svc := f.service(t, true)

	_, err := svc.SubmitVotes(context.Background(), "u1", []VoteEntry{{CandidateID: "cA", Points: 10}}, meta)
	require.ErrorIs(t, err, ErrChallengeRequired)
}

func TestVoteService_History(t *testing.T) {
	f := newVotingFixture(t)

	f.votes.listValidByUserAndPeriodFn = func(_ context.Context, userID, periodID string) ([]domain.Vote, error) {
		require.Equal(t, "u1", userID)
		require.Equal(t, "p1", periodID)
		return []domain.Vote{{ID: "v1", CandidateID: "cA", Points: 10}}, nil
	}

	svc := f.service(t, false)

	votes, err := svc.History(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, votes, 1)
	require.Equal(t, "cA", votes[0].CandidateID)
}

func TestVoteService_Nominees(t *testing.T) {
	f := newVotingFixture(t)

	f.candidates.listBySeasonFn = func(_ context.Context, seasonID string) ([]domain.Candidate, error) {
		require.Equal(t, "s1", seasonID)
		return []domain.Candidate{
			{ID: "cA", Name: "Alpha", WeeklyPoints: 30},
			{ID: "cB", Name: "Beta"},
			{ID: "cZ", Name: "Eliminated"},
		}, nil
	}

	svc := f.service(t, false)

	board, err := svc.Nominees(context.Background())
	require.NoError(t, err)
	require.Equal(t, "p1", board.Period.ID)
	require.Len(t, board.Candidates, 2)
	require.Equal(t, "cA", board.Candidates[0].ID)
	require.Equal(t, "cB", board.Candidates[1].ID)
}

func TestVoteService_SubmitVotes_NoActiveSeason(t *testing.T) {
	f := newVotingFixture(t)
	f.seasons.getActiveFn = nil

	svc := f.service(t, false)

	_, err := svc.SubmitVotes(context.Background(), "u1", []VoteEntry{{CandidateID: "cA", Points: 10}}, cleanMeta(f.now))
	require.True(t, errors.Is(err, ErrNoActiveSeason))
}
