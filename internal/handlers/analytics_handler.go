package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "kharcha/internal/errors"
	"kharcha/internal/services"
)

// AnalyticsHandler handles spending analytics requests.
type AnalyticsHandler struct {
	analyticsService services.AnalyticsServicer
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService services.AnalyticsServicer) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// GetSummary returns expense and income totals over a date range
// @Summary     Get spending summary
// @Description Get total expense, total income, and net over an optional date range
// @Tags        analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       from query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param       to   query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Success     200 {object} services.Summary "Summary totals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /analytics/summary [get]
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.analyticsService.GetSummary(userID, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetCategoryBreakdown returns per-category spend totals
// @Summary     Get category breakdown
// @Description Get expense totals grouped by category over an optional date range, highest spend first
// @Tags        analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       from query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param       to   query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Success     200 {array} services.CategorySpend "Per-category totals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /analytics/categories [get]
func (h *AnalyticsHandler) GetCategoryBreakdown(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	breakdown, err := h.analyticsService.GetCategoryBreakdown(userID, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": breakdown})
}

// GetMonthlyTrend returns per-month expense/income totals
// @Summary     Get monthly trend
// @Description Get expense and income totals per calendar month for the last N months
// @Tags        analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       months query int false "Number of months to include (default 6, max 36)"
// @Success     200 {array} services.MonthlyTotal "Per-month totals, oldest first"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /analytics/monthly [get]
func (h *AnalyticsHandler) GetMonthlyTrend(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	months := 6
	if v := c.Query("months"); v != "" {
		n, parseErr := strconv.Atoi(v)
		if parseErr != nil || n < 1 || n > 36 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "months must be between 1 and 36"))
			return
		}
		months = n
	}

	trend, err := h.analyticsService.GetMonthlyTrend(userID, months)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"months": trend})
}

func parseDateRange(c *gin.Context) (*time.Time, *time.Time, error) {
	var from, to *time.Time

	if v := c.Query("from"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from format, use RFC3339 or YYYY-MM-DD")
		}
		from = &t
	}

	if v := c.Query("to"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to format, use RFC3339 or YYYY-MM-DD")
		}
		to = &t
	}

	return from, to, nil
}
