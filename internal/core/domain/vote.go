package domain

import (
	"fmt"
	"time"
)

// Vote is an immutable spend of points against a candidate. Votes are never
// hard-deleted; a period reset flips IsValid to false so historical totals
// stay reconstructable.
type Vote struct {
	ID           string
	UserID       string
	CandidateID  string
	SeasonID     string
	PeriodID     string
	PeriodNumber int
	Points       int
	IsValid      bool
	IP           string
	UserAgent    string
	CreatedAt    time.Time
}

// FingerprintAttributes carries the client-reported device attributes used
// to derive a correlation hash. Any field may be empty; missing attributes
// only lower the hash's discriminative power.
type FingerprintAttributes struct {
	UserAgent        string `json:"user_agent"`
	ScreenResolution string `json:"screen_resolution"`
	Timezone         string `json:"timezone"`
	Language         string `json:"language"`
	Platform         string `json:"platform"`
}

// SuspicionFactors is the per-vote heuristic vector. Every factor is
// advisory; none of them individually blocks a vote.
type SuspicionFactors struct {
	RapidVoting       bool `json:"rapid_voting"`
	UnusualHour       bool `json:"unusual_hour"`
	NewAccount        bool `json:"new_account"`
	SuspiciousClient  bool `json:"suspicious_client"`
	RepetitivePattern bool `json:"repetitive_pattern"`
	PreciseTiming     bool `json:"precise_timing"`
	SequentialVoting  bool `json:"sequential_voting"`
}

// Any reports whether at least one per-vote factor is raised.
func (f SuspicionFactors) Any() bool {
	return f.RapidVoting || f.UnusualHour || f.NewAccount || f.SuspiciousClient ||
		f.RepetitivePattern || f.PreciseTiming || f.SequentialVoting
}

// CoordinationFlags is the device-level heuristic vector over a vote window
// sharing one fingerprint hash.
type CoordinationFlags struct {
	MultipleAccounts   bool `json:"multiple_accounts_coordinated"`
	SkewedDistribution bool `json:"suspicious_vote_distribution"`
	IdenticalPatterns  bool `json:"identical_voting_patterns"`
}

// Any reports whether at least one device-level flag is raised.
func (f CoordinationFlags) Any() bool {
	return f.MultipleAccounts || f.SkewedDistribution || f.IdenticalPatterns
}

// VoteAuditRecord is the append-only investigation trail written alongside
// every vote. It is never invalidated and has no effect on whether the vote
// counts.
type VoteAuditRecord struct {
	ID              string
	VoteID          string
	UserID          string
	CandidateID     string
	PeriodID        string
	Points          int
	Fingerprint     FingerprintAttributes
	FingerprintHash string
	IP              string
	TimeOnPage      float64
	Factors         SuspicionFactors
	Coordination    CoordinationFlags
	CreatedAt       time.Time
}

// InsufficientPointsError rejects a submission whose requested total exceeds
// the caller's remaining daily budget.
type InsufficientPointsError struct {
	Available int
	Requested int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: available %d, requested %d", e.Available, e.Requested)
}
