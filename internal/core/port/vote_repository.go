package port

import (
	"context"
	"time"

	"github.com/fanarena/voting-service/internal/core/domain"
)

// SubmissionEntry pairs one vote with the audit record written alongside it.
type SubmissionEntry struct {
	Vote  domain.Vote
	Audit domain.VoteAuditRecord
}

// VoteSubmission is the atomic unit persisted by SpendPoints. DayStart and
// DayEnd bound the calendar day the budget applies to; Budget is the day's
// total allowance already including any granted bonus.
type VoteSubmission struct {
	UserID       string
	SeasonID     string
	PeriodID     string
	PeriodNumber int
	DayStart     time.Time
	DayEnd       time.Time
	Budget       int
	Entries      []SubmissionEntry
	SubmittedAt  time.Time
}

// SubmissionReceipt reports the outcome of an accepted submission.
type SubmissionReceipt struct {
	PointsUsed      int
	UsedToday       int
	RemainingPoints int
}

// CandidateTally is one row of the grouped per-candidate totals for a period.
type CandidateTally struct {
	CandidateID string
	Points      int
	Votes       int
}

// VoteRepository persists votes and answers the ledger queries the budget,
// suspicion, and aggregation logic re-derive their state from.
type VoteRepository interface {
	// SpendPoints writes the submission's vote and audit rows after
	// re-checking the budget under a per-user row lock, closing the window
	// where two concurrent submissions could both read the same available
	// figure. Returns *domain.InsufficientPointsError when the re-check
	// fails; in that case nothing is written.
	SpendPoints(ctx context.Context, sub VoteSubmission) (*SubmissionReceipt, error)
	SumValidPoints(ctx context.Context, userID string, from, to time.Time) (int, error)
	ListValidByUserAndPeriod(ctx context.Context, userID, periodID string) ([]domain.Vote, error)
	TallyByPeriod(ctx context.Context, periodID string) ([]CandidateTally, error)
	// InvalidateByPeriod flips IsValid to false on every vote of the period
	// and returns the number of rows affected. Rows are never deleted.
	InvalidateByPeriod(ctx context.Context, periodID string) (int, error)
}
