package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fanarena/voting-service/internal/core/domain"
	"github.com/fanarena/voting-service/internal/transport/http/middleware"
	"github.com/fanarena/voting-service/internal/usecase"
)

// VoteHandler exposes the voter-facing endpoints: submission, the daily
// bonus, and the read views (points, nominees, history).
type VoteHandler struct {
	votes  *usecase.VoteService
	points *usecase.PointsService
}

// NewVoteHandler builds a new vote handler instance.
func NewVoteHandler(votes *usecase.VoteService, points *usecase.PointsService) *VoteHandler {
	return &VoteHandler{votes: votes, points: points}
}

var submitErrorCases = []ErrorCase{
	{Err: usecase.ErrEmptySubmission, Status: http.StatusBadRequest, Message: "submission contains no votes"},
	{Err: usecase.ErrInvalidPoints, Status: http.StatusBadRequest, Message: "vote points must be positive"},
	{Err: usecase.ErrNoActiveSeason, Status: http.StatusNotFound, Message: "no active season"},
	{Err: usecase.ErrNoActivePeriod, Status: http.StatusNotFound, Message: "no voting period is open"},
	{Err: usecase.ErrVotingNotOpen, Status: http.StatusNotFound, Message: "voting is not open"},
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "voting profile not found"},
	{Err: usecase.ErrUserBlocked, Status: http.StatusForbidden, Message: "voting profile is blocked"},
	{Err: usecase.ErrCandidateNotNominated, Status: http.StatusBadRequest, Message: "candidate is not nominated this period"},
	{Err: usecase.ErrCandidateProtected, Status: http.StatusBadRequest, Message: "candidate cannot receive votes this period"},
	{Err: usecase.ErrChallengeRequired, Status: http.StatusPreconditionRequired, Message: "verification challenge required"},
}

// Submit handles POST /vote.
func (h *VoteHandler) Submit(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid vote payload"))
		return
	}

	entries := make([]usecase.VoteEntry, 0, len(req.Votes))
	for _, item := range req.Votes {
		entries = append(entries, usecase.VoteEntry{
			CandidateID: item.CandidateID,
			Points:      item.Points,
		})
	}

	meta := usecase.SubmissionMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Fingerprint: domain.FingerprintAttributes{
			UserAgent:        req.Fingerprint.UserAgent,
			ScreenResolution: req.Fingerprint.ScreenResolution,
			Timezone:         req.Fingerprint.Timezone,
			Language:         req.Fingerprint.Language,
			Platform:         req.Fingerprint.Platform,
		},
		TimeOnPage: req.TimeOnPage,
	}
	if claims, ok := middleware.GetVoterClaims(c); ok {
		meta.AccountCreatedAt = claims.AccountCreated()
	}
	if meta.Fingerprint.UserAgent == "" {
		meta.Fingerprint.UserAgent = meta.UserAgent
	}

	result, err := h.votes.SubmitVotes(c.Request.Context(), userID, entries, meta)
	if err != nil {
		var insufficient *domain.InsufficientPointsError
		if errors.As(err, &insufficient) {
			c.JSON(http.StatusBadRequest, InsufficientPointsResponse{
				Error:     "insufficient points",
				Available: insufficient.Available,
				Requested: insufficient.Requested,
			})
			return
		}

		RespondWithMappedError(c, err, submitErrorCases,
			http.StatusInternalServerError, "failed to submit votes")
		return
	}

	c.JSON(http.StatusOK, VoteResponse{
		Success:         true,
		PointsUsed:      result.PointsUsed,
		UsedToday:       result.UsedToday,
		RemainingPoints: result.RemainingPoints,
	})
}

// ShareBonus handles POST /vote/share-bonus.
func (h *VoteHandler) ShareBonus(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	grant, err := h.points.GrantShareBonus(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, usecase.ErrBonusAlreadyGranted) {
			resp := BonusResponse{AlreadyReceived: true}
			if grant != nil {
				resp.NextBonusAvailable = grant.NextBonusAvailable
			}
			c.JSON(http.StatusBadRequest, resp)
			return
		}

		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "voting profile not found"},
		}, http.StatusInternalServerError, "failed to grant bonus")
		return
	}

	grantedAt := grant.GrantedAt
	c.JSON(http.StatusOK, BonusResponse{
		Success:            true,
		Points:             grant.Points,
		NextBonusAvailable: grant.NextBonusAvailable,
		GrantedAt:          &grantedAt,
	})
}

// Query handles GET /vote and dispatches on the action query parameter.
func (h *VoteHandler) Query(c *gin.Context) {
	switch c.DefaultQuery("action", "points") {
	case "points":
		h.pointsSummary(c)
	case "nominees":
		h.nominees(c)
	case "history":
		h.history(c)
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown action"))
	}
}

func (h *VoteHandler) pointsSummary(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	summary, err := h.points.Summary(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "voting profile not found"},
			{Err: usecase.ErrNoActiveSeason, Status: http.StatusNotFound, Message: "no active season"},
		}, http.StatusInternalServerError, "failed to load points summary")
		return
	}

	c.JSON(http.StatusOK, PointsSummaryResponse{
		TotalPoints:     summary.TotalPoints,
		AvailablePoints: summary.AvailablePoints,
		UsedPoints:      summary.UsedPoints,
		LastReset:       summary.LastReset,
	})
}

func (h *VoteHandler) nominees(c *gin.Context) {
	board, err := h.votes.Nominees(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrNoActiveSeason, Status: http.StatusNotFound, Message: "no active season"},
			{Err: usecase.ErrNoActivePeriod, Status: http.StatusNotFound, Message: "no voting period is open"},
		}, http.StatusInternalServerError, "failed to load nominees")
		return
	}

	candidates := make([]CandidateView, 0, len(board.Candidates))
	for _, candidate := range board.Candidates {
		candidates = append(candidates, CandidateView{
			ID:             candidate.ID,
			Name:           candidate.Name,
			Status:         string(candidate.Status),
			WeeklyPoints:   candidate.WeeklyPoints,
			LifetimePoints: candidate.LifetimePoints,
			Protected:      board.Period.IsProtected(candidate.ID),
		})
	}

	resp := NomineesResponse{
		SeasonID:     board.Season.ID,
		SeasonName:   board.Season.Name,
		PeriodID:     board.Period.ID,
		PeriodNumber: board.Period.Number,
		VotingEndsAt: board.Period.VotingEndsAt,
		Candidates:   candidates,
	}
	if board.Period.Results.TotalVotes > 0 {
		results := board.Period.Results
		resp.Results = &results
	}

	c.JSON(http.StatusOK, resp)
}

func (h *VoteHandler) history(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	votes, err := h.votes.History(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrNoActiveSeason, Status: http.StatusNotFound, Message: "no active season"},
			{Err: usecase.ErrNoActivePeriod, Status: http.StatusNotFound, Message: "no voting period is open"},
		}, http.StatusInternalServerError, "failed to load vote history")
		return
	}

	items := make([]VoteHistoryItem, 0, len(votes))
	resp := HistoryResponse{Votes: items}
	for _, vote := range votes {
		resp.PeriodID = vote.PeriodID
		resp.Votes = append(resp.Votes, VoteHistoryItem{
			CandidateID: vote.CandidateID,
			Points:      vote.Points,
			CreatedAt:   vote.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, resp)
}
