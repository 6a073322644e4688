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
	// ErrUserNotFound indicates no voting profile exists for the caller.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserBlocked indicates the voting profile is blocked or inactive.
	ErrUserBlocked = errors.New("user is blocked from voting")
	// ErrNoActiveSeason indicates no season is currently active.
	ErrNoActiveSeason = errors.New("no active season")
	// ErrBonusAlreadyGranted indicates the daily bonus was already granted today.
	ErrBonusAlreadyGranted = errors.New("bonus already granted today")
)

// PointsSummary describes the caller's budget position for the current day.
type PointsSummary struct {
	TotalPoints     int
	AvailablePoints int
	UsedPoints      int
	LastReset       time.Time
}

// BonusGrant reports a successful daily bonus grant.
type BonusGrant struct {
	Points             int
	GrantedAt          time.Time
	NextBonusAvailable time.Time
}

// PointsService computes the renewable daily point budget. The budget is
// never persisted as a counter: it is re-derived on every call from the vote
// ledger plus the user's last-vote and last-bonus timestamps, which makes
// the daily reset implicit rather than cron-driven.
type PointsService struct {
	users       port.UserRepository
	votes       port.VoteRepository
	seasons     port.SeasonRepository
	loc         *time.Location
	bonusPoints int
	logger      *zap.Logger
	now         func() time.Time
}

// NewPointsService constructs a PointsService instance.
func NewPointsService(users port.UserRepository, votes port.VoteRepository, seasons port.SeasonRepository, loc *time.Location, bonusPoints int, logger *zap.Logger) *PointsService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PointsService{
		users:       users,
		votes:       votes,
		seasons:     seasons,
		loc:         loc,
		bonusPoints: bonusPoints,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *PointsService) WithClock(now func() time.Time) *PointsService {
	if now != nil {
		s.now = now
	}
	return s
}

// DayBounds returns the calendar-day interval [start, end) containing the
// instant, in the service's configured location.
func (s *PointsService) DayBounds(at time.Time) (time.Time, time.Time) {
	local := at.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

// sameDay reports whether both instants fall on the same calendar day.
func (s *PointsService) sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(s.loc).Date()
	by, bm, bd := b.In(s.loc).Date()
	return ay == by && am == bm && ad == bd
}

// Budget returns the user's total allowance for the calendar day containing
// now: the season's base allocation plus the one-time bonus when the bonus
// was granted on that same day.
func (s *PointsService) Budget(user domain.User, season domain.Season, now time.Time) int {
	budget := season.DefaultDailyPoints
	if user.LastBonusAt != nil && s.sameDay(*user.LastBonusAt, now) {
		budget += s.bonusPoints
	}
	return budget
}

// UsedToday returns the points spent on valid votes inside the calendar day
// containing now. When the last valid vote predates today the figure is zero
// without touching the ledger; otherwise it is summed directly from the
// ledger rather than cached, to avoid drift.
func (s *PointsService) UsedToday(ctx context.Context, user domain.User, now time.Time) (int, error) {
	if user.LastVoteAt == nil || !s.sameDay(*user.LastVoteAt, now) {
		return 0, nil
	}

	dayStart, dayEnd := s.DayBounds(now)
	used, err := s.votes.SumValidPoints(ctx, user.ID, dayStart, dayEnd)
	if err != nil {
		return 0, fmt.Errorf("sum points used today: %w", err)
	}

	return used, nil
}

// AvailablePoints returns the user's spendable points for the calendar day
// containing now. The function is total: it never returns a negative value.
func (s *PointsService) AvailablePoints(ctx context.Context, user domain.User, season domain.Season, now time.Time) (int, error) {
	used, err := s.UsedToday(ctx, user, now)
	if err != nil {
		return 0, err
	}

	available := s.Budget(user, season, now) - used
	if available < 0 {
		available = 0
	}

	return available, nil
}

// Summary resolves the caller's budget position for the current day.
func (s *PointsService) Summary(ctx context.Context, userID string) (*PointsSummary, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	season, err := s.seasons.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveSeason
		}
		return nil, fmt.Errorf("lookup active season: %w", err)
	}

	now := s.now()
	used, err := s.UsedToday(ctx, *user, now)
	if err != nil {
		return nil, err
	}

	budget := s.Budget(*user, *season, now)
	available := budget - used
	if available < 0 {
		available = 0
	}

	dayStart, _ := s.DayBounds(now)

	return &PointsSummary{
		TotalPoints:     budget,
		AvailablePoints: available,
		UsedPoints:      used,
		LastReset:       dayStart,
	}, nil
}

// GrantShareBonus grants the one-time daily bonus. A second same-day grant
// fails with ErrBonusAlreadyGranted; the next availability instant is the
// start of the following calendar day.
func (s *PointsService) GrantShareBonus(ctx context.Context, userID string) (*BonusGrant, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	now := s.now()
	dayStart, dayEnd := s.DayBounds(now)

	if user.LastBonusAt != nil && s.sameDay(*user.LastBonusAt, now) {
		return &BonusGrant{NextBonusAvailable: dayEnd}, ErrBonusAlreadyGranted
	}

	granted, err := s.users.GrantBonus(ctx, userID, now, dayStart)
	if err != nil {
		return nil, fmt.Errorf("grant bonus: %w", err)
	}
	if !granted {
		// Lost a race against a concurrent grant for the same day.
		return &BonusGrant{NextBonusAvailable: dayEnd}, ErrBonusAlreadyGranted
	}

	s.logger.Info("daily bonus granted",
		zap.String("user_id", userID),
		zap.Int("points", s.bonusPoints),
	)

	return &BonusGrant{
		Points:             s.bonusPoints,
		GrantedAt:          now,
		NextBonusAvailable: dayEnd,
	}, nil
}
