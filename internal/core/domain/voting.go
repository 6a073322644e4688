package domain

import "time"

// PeriodState enumerates the lifecycle states of a voting period.
type PeriodState string

const (
	PeriodStateScheduled PeriodState = "scheduled"
	PeriodStateVoting    PeriodState = "voting"
	PeriodStateCompleted PeriodState = "completed"
)

// CandidateStatus enumerates candidate lifecycle states within a season.
type CandidateStatus string

const (
	CandidateStatusActive     CandidateStatus = "active"
	CandidateStatusEliminated CandidateStatus = "eliminated"
	CandidateStatusWinner     CandidateStatus = "winner"
)

// Season mirrors the persisted representation in the seasons table.
// At most one season is active system-wide.
type Season struct {
	ID                 string
	Name               string
	DefaultDailyPoints int
	IsActive           bool
	StartsAt           time.Time
	EndsAt             time.Time
}

// VotingPeriod is a time-boxed voting round ("week") inside a season.
// At most one period per season carries IsActive = true.
type VotingPeriod struct {
	ID                   string
	SeasonID             string
	Number               int
	NomineeIDs           []string
	ProtectedCandidateID *string
	State                PeriodState
	IsActive             bool
	VotingStartsAt       time.Time
	VotingEndsAt         time.Time
	Results              PeriodResults
}

// IsNominee reports whether the candidate is part of the period's nominee set.
func (p VotingPeriod) IsNominee(candidateID string) bool {
	for _, id := range p.NomineeIDs {
		if id == candidateID {
			return true
		}
	}
	return false
}

// IsProtected reports whether the candidate is the period's saved candidate,
// excluded from receiving votes despite being listed among nominees.
func (p VotingPeriod) IsProtected(candidateID string) bool {
	return p.ProtectedCandidateID != nil && *p.ProtectedCandidateID == candidateID
}

// PeriodResults is the aggregated snapshot written onto a period by the
// results recomputation. It is always fully re-derived from valid votes,
// never incremented in place.
type PeriodResults struct {
	TotalPoints int                 `json:"total_points"`
	TotalVotes  int                 `json:"total_votes"`
	Standings   []CandidateStanding `json:"standings,omitempty"`
	LeaderID    string              `json:"leader_id,omitempty"`
	ComputedAt  time.Time           `json:"computed_at"`
}

// CandidateStanding describes one candidate's share of a period's results.
type CandidateStanding struct {
	CandidateID string  `json:"candidate_id"`
	Points      int     `json:"points"`
	Votes       int     `json:"votes"`
	Share       float64 `json:"share"`
}

// Candidate mirrors the persisted representation in the candidates table.
// WeeklyPoints is the cached total for the current period; LifetimePoints
// accumulates across completed periods.
type Candidate struct {
	ID             string
	SeasonID       string
	Name           string
	Status         CandidateStatus
	WeeklyPoints   int
	LifetimePoints int
}

// User holds the voting profile of a registered user. Identity and session
// provisioning live outside this service; only voting-economy fields are
// mutated here.
type User struct {
	ID                  string
	IsActive            bool
	IsBlocked           bool
	LastVoteAt          *time.Time
	LastBonusAt         *time.Time
	LifetimePointsSpent int
	CreatedAt           time.Time
}
