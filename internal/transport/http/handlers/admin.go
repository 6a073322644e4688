package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fanarena/voting-service/internal/usecase"
)

// AdminHandler exposes the moderation endpoints for period lifecycle
// control. The routes group carrying it must enforce the admin role.
type AdminHandler struct {
	periods *usecase.PeriodService
}

// NewAdminHandler builds a new admin handler instance.
func NewAdminHandler(periods *usecase.PeriodService) *AdminHandler {
	return &AdminHandler{periods: periods}
}

// RegisterRoutes wires the period moderation endpoints onto the group.
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/periods", h.ListPeriods)
	rg.POST("/periods/:id/start", h.StartPeriod)
	rg.POST("/periods/:id/end", h.EndPeriod)
	rg.POST("/periods/:id/reset", h.ResetPeriod)
}

var periodErrorCases = []ErrorCase{
	{Err: usecase.ErrPeriodNotFound, Status: http.StatusNotFound, Message: "voting period not found"},
}

// ListPeriods handles GET /admin/periods?season_id=...
func (h *AdminHandler) ListPeriods(c *gin.Context) {
	seasonID := strings.TrimSpace(c.Query("season_id"))
	if seasonID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "season_id is required"))
		return
	}

	periods, err := h.periods.ListBySeason(c.Request.Context(), seasonID)
	if err != nil {
		RespondWithMappedError(c, err, periodErrorCases,
			http.StatusInternalServerError, "failed to list periods")
		return
	}

	views := make([]PeriodView, 0, len(periods))
	for _, period := range periods {
		views = append(views, newPeriodView(period))
	}

	c.JSON(http.StatusOK, gin.H{"periods": views})
}

// StartPeriod handles POST /admin/periods/:id/start.
func (h *AdminHandler) StartPeriod(c *gin.Context) {
	period, err := h.periods.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, periodErrorCases,
			http.StatusInternalServerError, "failed to start period")
		return
	}

	c.JSON(http.StatusOK, newPeriodView(*period))
}

// EndPeriod handles POST /admin/periods/:id/end.
func (h *AdminHandler) EndPeriod(c *gin.Context) {
	period, err := h.periods.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, periodErrorCases,
			http.StatusInternalServerError, "failed to end period")
		return
	}

	c.JSON(http.StatusOK, newPeriodView(*period))
}

// ResetPeriod handles POST /admin/periods/:id/reset.
func (h *AdminHandler) ResetPeriod(c *gin.Context) {
	period, err := h.periods.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, periodErrorCases,
			http.StatusInternalServerError, "failed to reset period")
		return
	}

	c.JSON(http.StatusOK, newPeriodView(*period))
}
