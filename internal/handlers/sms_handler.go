package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "kharcha/internal/errors"
	"kharcha/internal/services"
)

// SMSHandler handles SMS inbox refresh requests.
type SMSHandler struct {
	ingestionService services.SMSIngestionServicer
	auditService     services.AuditServicer
}

// NewSMSHandler creates a new SMSHandler.
func NewSMSHandler(ingestionService services.SMSIngestionServicer, auditService services.AuditServicer) *SMSHandler {
	return &SMSHandler{ingestionService: ingestionService, auditService: auditService}
}

// RefreshRequest carries the raw SMS inbox batch uploaded by the client.
type RefreshRequest struct {
	Messages []services.SMSMessage `json:"messages" binding:"required,dive"`
}

// RefreshResponse summarizes one SMS refresh run.
type RefreshResponse struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Refresh runs the SMS ingestion pipeline over an uploaded inbox batch
// @Summary     Refresh expenses from SMS
// @Description Parse a batch of raw SMS messages, deduplicate against existing records, auto-categorize, and persist new expenses. Re-uploading the same batch imports nothing new.
// @Tags        sms
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body RefreshRequest true "Raw SMS inbox batch"
// @Success     200 {object} RefreshResponse "Ingestion summary"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     408 {object} ErrorResponse "Request cancelled mid-run"
// @Failure     502 {object} ErrorResponse "SMS source unavailable"
// @Router      /sms/refresh [post]
func (h *SMSHandler) Refresh(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.ingestionService.Refresh(c.Request.Context(), userID, services.SliceSource(req.Messages))
	if err != nil {
		// Cancellation mid-run is the client hanging up, not a server
		// fault; records committed before the cut stay committed.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			respondWithError(c, apperrors.ErrRequestCancelled)
			return
		}
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "SMS_REFRESH", "expense", "", c.ClientIP(),
		map[string]interface{}{"imported": result.Imported, "duplicates": result.Duplicates, "skipped": result.Skipped, "failed": result.Failed})

	c.JSON(http.StatusOK, result)
}
