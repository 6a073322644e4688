package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fanarena/voting-service/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with the trace ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// InsufficientPointsResponse extends the error payload with the figures the
// client needs to render a useful message.
type InsufficientPointsResponse struct {
	Error     string `json:"error"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// FingerprintPayload carries the client-reported device attributes.
type FingerprintPayload struct {
	UserAgent        string `json:"userAgent"`
	ScreenResolution string `json:"screenResolution"`
	Timezone         string `json:"timezone"`
	Language         string `json:"language"`
	Platform         string `json:"platform"`
}

// VoteItem is one candidate allocation inside a submission.
type VoteItem struct {
	CandidateID string `json:"candidateId" binding:"required"`
	Points      int    `json:"points" binding:"required,min=1"`
}

// VoteRequest defines the vote submission payload.
type VoteRequest struct {
	Votes       []VoteItem         `json:"votes" binding:"required,min=1,dive"`
	Fingerprint FingerprintPayload `json:"fingerprint"`
	TimeOnPage  float64            `json:"timeOnPage"`
}

// VoteResponse reports the outcome of an accepted submission.
type VoteResponse struct {
	Success         bool `json:"success"`
	PointsUsed      int  `json:"pointsUsed"`
	UsedToday       int  `json:"usedToday"`
	RemainingPoints int  `json:"remainingPoints"`
}

// BonusResponse reports the outcome of a daily bonus grant.
type BonusResponse struct {
	Success            bool       `json:"success"`
	Points             int        `json:"points,omitempty"`
	AlreadyReceived    bool       `json:"alreadyReceived"`
	NextBonusAvailable time.Time  `json:"nextBonusAvailable"`
	GrantedAt          *time.Time `json:"grantedAt,omitempty"`
}

// PointsSummaryResponse describes the caller's budget position for today.
type PointsSummaryResponse struct {
	TotalPoints     int       `json:"totalPoints"`
	AvailablePoints int       `json:"availablePoints"`
	UsedPoints      int       `json:"usedPoints"`
	LastReset       time.Time `json:"lastReset"`
}

// CandidateView is the public projection of a candidate.
type CandidateView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	WeeklyPoints   int    `json:"weeklyPoints"`
	LifetimePoints int    `json:"lifetimePoints"`
	Protected      bool   `json:"protected"`
}

// NomineesResponse is the public snapshot of the current ballot.
type NomineesResponse struct {
	SeasonID     string                `json:"seasonId"`
	SeasonName   string                `json:"seasonName"`
	PeriodID     string                `json:"periodId"`
	PeriodNumber int                   `json:"periodNumber"`
	VotingEndsAt time.Time             `json:"votingEndsAt"`
	Candidates   []CandidateView       `json:"candidates"`
	Results      *domain.PeriodResults `json:"results,omitempty"`
}

// VoteHistoryItem is one of the caller's votes in the current period.
type VoteHistoryItem struct {
	CandidateID string    `json:"candidateId"`
	Points      int       `json:"points"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HistoryResponse lists the caller's valid votes in the current period.
type HistoryResponse struct {
	PeriodID string            `json:"periodId,omitempty"`
	Votes    []VoteHistoryItem `json:"votes"`
}

// PeriodView is the administrative projection of a voting period.
type PeriodView struct {
	ID             string                `json:"id"`
	SeasonID       string                `json:"season_id"`
	Number         int                   `json:"number"`
	State          string                `json:"state"`
	IsActive       bool                  `json:"is_active"`
	VotingStartsAt time.Time             `json:"voting_starts_at"`
	VotingEndsAt   time.Time             `json:"voting_ends_at"`
	NomineeIDs     []string             `json:"nominee_ids"`
	Results        domain.PeriodResults `json:"results"`
}

func newPeriodView(p domain.VotingPeriod) PeriodView {
	return PeriodView{
		ID:             p.ID,
		SeasonID:       p.SeasonID,
		Number:         p.Number,
		State:          string(p.State),
		IsActive:       p.IsActive,
		VotingStartsAt: p.VotingStartsAt,
		VotingEndsAt:   p.VotingEndsAt,
		NomineeIDs:     p.NomineeIDs,
		Results:        p.Results,
	}
}

// HealthResponse describes the liveness payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse describes the readiness payload with per-check results.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
