package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "kharcha/internal/errors"
	"kharcha/internal/models"
	"kharcha/internal/pagination"
	"kharcha/internal/services"
	"kharcha/internal/uuid"
)

// ExpenseHandler handles expense-related requests.
type ExpenseHandler struct {
	expenseService services.ExpenseServicer
	auditService   services.AuditServicer
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseService services.ExpenseServicer, auditService services.AuditServicer) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, auditService: auditService}
}

// CreateExpenseRequest represents the request payload for creating an expense
type CreateExpenseRequest struct {
	CategoryID *string          `json:"category_id"`
	Direction  models.Direction `json:"direction" binding:"required,direction"`
	Amount     int64            `json:"amount" binding:"required,gt=0"`
	Merchant   string           `json:"merchant" binding:"required,max=255"`
	Date       *string          `json:"date"`
	Notes      string           `json:"notes" binding:"max=500"`
}

// ExpenseResponse represents an expense in the response
type ExpenseResponse struct {
	ID            string               `json:"id"`
	UserID        string               `json:"user_id"`
	CategoryID    *string              `json:"category_id,omitempty"`
	Direction     models.Direction     `json:"direction"`
	Amount        int64                `json:"amount"`
	Merchant      string               `json:"merchant"`
	Date          time.Time            `json:"date"`
	Source        models.ExpenseSource `json:"source"`
	Notes         string               `json:"notes"`
	BankName      string               `json:"bank_name,omitempty"`
	AccountSuffix string               `json:"account_suffix,omitempty"`
}

// CreateExpense handles the creation of a new manual expense
// @Summary     Create an expense
// @Description Create a new manually entered expense or income record
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateExpenseRequest true "Expense details"
// @Success     201 {object} ExpenseResponse "Expense created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	expenseDate := time.Now()
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid date format, use RFC3339 or YYYY-MM-DD"))
			return
		}
		expenseDate = parsed
	}

	expense, err := h.expenseService.CreateExpense(
		userID,
		req.CategoryID,
		req.Direction,
		req.Amount,
		req.Merchant,
		expenseDate,
		req.Notes,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_EXPENSE", "expense", expense.ID, c.ClientIP(),
		map[string]interface{}{"direction": req.Direction, "amount": req.Amount, "merchant": req.Merchant})

	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// GetUserExpenses handles the retrieval of all expenses for the authenticated user
// @Summary     Get user expenses
// @Description Get a paginated list of expenses for the authenticated user with optional filters
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Param       from_date   query string false "Filter by start date (RFC3339 e.g. 2024-01-01T00:00:00Z, or YYYY-MM-DD)"
// @Param       to_date     query string false "Filter by end date (RFC3339 or YYYY-MM-DD)"
// @Param       direction   query string false "Filter by direction (income, expense)"
// @Param       category_id query string false "Filter by category ID"
// @Param       source      query string false "Filter by source (manual, sms)"
// @Param       min_amount  query int    false "Filter by minimum amount (paise)"
// @Param       max_amount  query int    false "Filter by maximum amount (paise)"
// @Success     200 {object} pagination.PageResponse[models.Expense] "Paginated expenses"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [get]
func (h *ExpenseHandler) GetUserExpenses(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseExpenseFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.expenseService.GetUserExpenses(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetExpenseByID handles the retrieval of a specific expense
// @Summary     Get expense by ID
// @Description Get a specific expense by ID
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     200 {object} ExpenseResponse "Expense details"
// @Failure     400 {object} ErrorResponse "Invalid expense ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [get]
func (h *ExpenseHandler) GetExpenseByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	expense, err := h.expenseService.GetExpenseByID(userID, expenseID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// UpdateExpenseRequest represents the request payload for updating an expense
type UpdateExpenseRequest struct {
	CategoryID *string `json:"category_id"`
	Amount     *int64  `json:"amount" binding:"omitempty,gt=0"`
	Merchant   string  `json:"merchant" binding:"max=255"`
	Date       *string `json:"date"`
	Notes      *string `json:"notes" binding:"omitempty,max=500"`
}

// UpdateExpense handles updating an existing expense
// @Summary     Update expense
// @Description Update an existing expense. Direction and source cannot be changed; SMS provenance fields are immutable.
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Expense ID"
// @Param       request body UpdateExpenseRequest true "Fields to update"
// @Success     200 {object} ExpenseResponse "Updated expense"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if req.CategoryID != nil && *req.CategoryID != "" && !uuid.IsValid(*req.CategoryID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid category_id"))
		return
	}

	var date *time.Time
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid date format, use RFC3339 or YYYY-MM-DD"))
			return
		}
		date = &parsed
	}

	expense, err := h.expenseService.UpdateExpense(userID, expenseID, req.CategoryID, req.Amount, req.Merchant, date, req.Notes)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_EXPENSE", "expense", expenseID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// DeleteExpense handles the deletion of an expense
// @Summary     Delete expense
// @Description Delete an expense by ID
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     200 {object} MessageResponse "Expense deleted"
// @Failure     400 {object} ErrorResponse "Invalid expense ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.expenseService.DeleteExpense(userID, expenseID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_EXPENSE", "expense", expenseID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully"})
}

func parseExpenseFilter(c *gin.Context) (services.ExpenseFilter, error) {
	var filter services.ExpenseFilter

	if v := c.Query("from_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.FromDate = &t
	}

	if v := c.Query("to_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.ToDate = &t
	}

	if v := c.Query("direction"); v != "" {
		direction := models.Direction(v)
		switch direction {
		case models.DirectionIncome, models.DirectionExpense:
			filter.Direction = &direction
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid direction, must be income or expense")
		}
	}

	if v := c.Query("category_id"); v != "" {
		if !uuid.IsValid(v) {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid category_id")
		}
		catID := v
		filter.CategoryID = &catID
	}

	if v := c.Query("source"); v != "" {
		source := models.ExpenseSource(v)
		switch source {
		case models.SourceManual, models.SourceSMS:
			filter.Source = &source
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid source, must be manual or sms")
		}
	}

	if v := c.Query("min_amount"); v != "" {
		amt, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid min_amount")
		}
		filter.MinAmount = &amt
	}

	if v := c.Query("max_amount"); v != "" {
		amt, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid max_amount")
		}
		filter.MaxAmount = &amt
	}

	return filter, nil
}

// MessageResponse represents a simple message response
type MessageResponse struct {
	Message string `json:"message"`
}
