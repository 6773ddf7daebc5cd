package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "kharcha/internal/errors"
	"kharcha/internal/pagination"
	"kharcha/internal/services"
	"kharcha/internal/uuid"
)

// KeywordHandler handles keyword mapping rule requests.
type KeywordHandler struct {
	keywordService services.KeywordServicer
	auditService   services.AuditServicer
}

// NewKeywordHandler creates a new KeywordHandler.
func NewKeywordHandler(keywordService services.KeywordServicer, auditService services.AuditServicer) *KeywordHandler {
	return &KeywordHandler{keywordService: keywordService, auditService: auditService}
}

// CreateKeywordRequest represents the request payload for creating a keyword rule
type CreateKeywordRequest struct {
	Keyword    string `json:"keyword" binding:"required,min=2,max=100"`
	CategoryID string `json:"category_id" binding:"required"`
	Priority   int    `json:"priority"`
}

// UpdateKeywordRequest represents the request payload for updating a keyword rule
type UpdateKeywordRequest struct {
	Keyword    *string `json:"keyword" binding:"omitempty,min=2,max=100"`
	CategoryID *string `json:"category_id"`
	Priority   *int    `json:"priority"`
}

// KeywordResponse represents a keyword rule in the response
type KeywordResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Keyword    string `json:"keyword"`
	CategoryID string `json:"category_id"`
	Priority   int    `json:"priority"`
}

// RecategorizeResponse reports how many expenses a recategorize run changed.
type RecategorizeResponse struct {
	Updated int64 `json:"updated"`
}

// CreateKeyword handles the creation of a new keyword rule
// @Summary     Create a keyword rule
// @Description Create a keyword-to-category mapping used to auto-categorize imported expenses
// @Tags        keywords
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateKeywordRequest true "Keyword rule details"
// @Success     201 {object} KeywordResponse "Keyword rule created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Keyword already exists"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /keywords [post]
func (h *KeywordHandler) CreateKeyword(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateKeywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if !uuid.IsValid(req.CategoryID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid category_id"))
		return
	}

	mapping, err := h.keywordService.CreateMapping(userID, req.Keyword, req.CategoryID, req.Priority)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_KEYWORD", "keyword_mapping", mapping.ID, c.ClientIP(),
		map[string]interface{}{"keyword": mapping.Keyword, "category_id": req.CategoryID})

	c.JSON(http.StatusCreated, gin.H{"keyword": mapping})
}

// GetUserKeywords handles the retrieval of all keyword rules for a user
// @Summary     Get keyword rules
// @Description Get a paginated list of keyword rules for the authenticated user
// @Tags        keywords
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.KeywordMapping] "Paginated keyword rules"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /keywords [get]
func (h *KeywordHandler) GetUserKeywords(c *gin.Context) {
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

	result, err := h.keywordService.GetUserMappings(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateKeyword handles updating a keyword rule
// @Summary     Update keyword rule
// @Description Update an existing keyword rule
// @Tags        keywords
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Keyword rule ID"
// @Param       request body UpdateKeywordRequest true "Fields to update"
// @Success     200 {object} KeywordResponse "Updated keyword rule"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Keyword rule not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /keywords/{id} [put]
func (h *KeywordHandler) UpdateKeyword(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	mappingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateKeywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if req.CategoryID != nil && !uuid.IsValid(*req.CategoryID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid category_id"))
		return
	}

	mapping, err := h.keywordService.UpdateMapping(userID, mappingID, req.Keyword, req.CategoryID, req.Priority)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_KEYWORD", "keyword_mapping", mappingID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"keyword": mapping})
}

// DeleteKeyword handles deleting a keyword rule
// @Summary     Delete keyword rule
// @Description Delete a keyword rule by ID
// @Tags        keywords
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Keyword rule ID"
// @Success     200 {object} MessageResponse "Keyword rule deleted"
// @Failure     400 {object} ErrorResponse "Invalid keyword rule ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Keyword rule not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /keywords/{id} [delete]
func (h *KeywordHandler) DeleteKeyword(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	mappingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.keywordService.DeleteMapping(userID, mappingID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_KEYWORD", "keyword_mapping", mappingID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Keyword rule deleted successfully"})
}

// RecategorizeByKeyword applies a keyword rule to existing expenses
// @Summary     Recategorize expenses by keyword
// @Description Reassign every expense whose merchant matches the keyword to the rule's category
// @Tags        keywords
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Keyword rule ID"
// @Success     200 {object} RecategorizeResponse "Count of updated expenses"
// @Failure     400 {object} ErrorResponse "Invalid keyword rule ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Keyword rule not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /keywords/{id}/recategorize [post]
func (h *KeywordHandler) RecategorizeByKeyword(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	mappingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	mapping, err := h.keywordService.GetMappingByID(userID, mappingID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	updated, err := h.keywordService.RecategorizeByKeyword(userID, mapping.Keyword)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "RECATEGORIZE_BY_KEYWORD", "keyword_mapping", mappingID, c.ClientIP(),
		map[string]interface{}{"keyword": mapping.Keyword, "updated": updated})

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
