package domain

import "time"

// VoteAcceptedEvent is published after a submission is persisted.
type VoteAcceptedEvent struct {
	EventID     string
	UserID      string
	SeasonID    string
	PeriodID    string
	CandidateID string
	Points      int
	AcceptedAt  time.Time
	Metadata    map[string]any
}

// SuspicionRaisedEvent is published when any suspicion factor or
// coordination flag is set on an accepted vote. Consumers on the fraud-review
// side decide what to do with it; the vote has already been counted.
type SuspicionRaisedEvent struct {
	EventID         string
	VoteID          string
	UserID          string
	PeriodID        string
	FingerprintHash string
	Factors         SuspicionFactors
	Coordination    CoordinationFlags
	RaisedAt        time.Time
}

// PeriodCompletedEvent carries the final results snapshot of a completed
// voting period.
type PeriodCompletedEvent struct {
	EventID     string
	SeasonID    string
	PeriodID    string
	Number      int
	Results     PeriodResults
	CompletedAt time.Time
}
