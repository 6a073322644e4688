package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fanarena/voting-service/internal/core/domain"
	"github.com/fanarena/voting-service/internal/core/port"
)

const (
	coordinationMinVotesForSkew     = 5
	coordinationSkewShare           = 0.8
	coordinationMinVotesForIdentity = 3
)

// CoordinationService inspects recent activity on a single device
// fingerprint and raises advisory flags when the pattern looks orchestrated.
// Flags never invalidate votes on their own; moderators act on them.
type CoordinationService struct {
	audit    port.AuditRepository
	window   time.Duration
	lookback time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewCoordinationService constructs a detector. Window bounds the
// coordination analysis; lookback bounds the multi-accounting check.
func NewCoordinationService(audit port.AuditRepository, window, lookback time.Duration, logger *zap.Logger) *CoordinationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoordinationService{
		audit:    audit,
		window:   window,
		lookback: lookback,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *CoordinationService) WithClock(now func() time.Time) *CoordinationService {
	if now != nil {
		s.now = now
	}
	return s
}

// Detect evaluates the coordination heuristics over all audit records that
// share the device fingerprint inside the sliding window.
func (s *CoordinationService) Detect(ctx context.Context, deviceHash string) (domain.CoordinationFlags, error) {
	if deviceHash == "" {
		return domain.CoordinationFlags{}, nil
	}

	since := s.now().Add(-s.window)
	records, err := s.audit.ListByDeviceSince(ctx, deviceHash, since)
	if err != nil {
		return domain.CoordinationFlags{}, fmt.Errorf("list device activity: %w", err)
	}

	flags := evaluateCoordination(records)
	if flags.Any() {
		s.logger.Warn("coordination pattern detected",
			zap.String("device_hash", deviceHash),
			zap.Int("votes_in_window", len(records)),
			zap.Bool("multiple_accounts", flags.MultipleAccounts),
			zap.Bool("skewed_distribution", flags.SkewedDistribution),
			zap.Bool("identical_patterns", flags.IdenticalPatterns),
		)
	}

	return flags, nil
}

// HasOtherAccountsOnDevice reports whether any user other than userID voted
// from the same device fingerprint inside the lookback horizon.
func (s *CoordinationService) HasOtherAccountsOnDevice(ctx context.Context, deviceHash, userID string) (bool, error) {
	if deviceHash == "" {
		return false, nil
	}

	since := s.now().Add(-s.lookback)
	records, err := s.audit.ListByDeviceSince(ctx, deviceHash, since)
	if err != nil {
		return false, fmt.Errorf("list device activity: %w", err)
	}

	for _, rec := range records {
		if rec.UserID != userID {
			return true, nil
		}
	}
	return false, nil
}

// evaluateCoordination applies the three heuristics to one device's window
// of activity. Each flag is computed independently.
func evaluateCoordination(records []domain.VoteAuditRecord) domain.CoordinationFlags {
	if len(records) == 0 {
		return domain.CoordinationFlags{}
	}

	users := make(map[string]struct{})
	perCandidate := make(map[string]int)
	identical := true
	for i, rec := range records {
		users[rec.UserID] = struct{}{}
		perCandidate[rec.CandidateID]++
		if i > 0 && (rec.CandidateID != records[0].CandidateID || rec.Points != records[0].Points) {
			identical = false
		}
	}

	var flags domain.CoordinationFlags

	if len(users) > 1 && len(records) > 2*len(users) {
		flags.MultipleAccounts = true
	}

	if len(records) > coordinationMinVotesForSkew {
		max := 0
		for _, count := range perCandidate {
			if count > max {
				max = count
			}
		}
		if float64(max) > coordinationSkewShare*float64(len(records)) {
			flags.SkewedDistribution = true
		}
	}

	if len(records) > coordinationMinVotesForIdentity && identical {
		flags.IdenticalPatterns = true
	}

	return flags
}
