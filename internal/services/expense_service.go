package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "kharcha/internal/errors"
	"kharcha/internal/models"
	"kharcha/internal/pagination"
)

// expenseService handles expense-related business logic for the manual entry
// path. SMS-sourced records are created by the ingestion pipeline.
type expenseService struct {
	db              *gorm.DB
	categoryService CategoryServicer
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(db *gorm.DB, categoryService CategoryServicer) ExpenseServicer {
	return &expenseService{
		db:              db,
		categoryService: categoryService,
	}
}

// CreateExpense creates a manually entered expense or income record.
func (s *expenseService) CreateExpense(
	userID string,
	categoryID *string,
	direction models.Direction,
	amount int64,
	merchant string,
	date time.Time,
	notes string,
) (*models.Expense, error) {
	if amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if merchant == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "merchant is required")
	}

	if date.IsZero() {
		date = time.Now()
	}

	// A provided category must exist and belong to the user.
	if categoryID != nil {
		if _, err := s.categoryService.GetCategoryByID(userID, *categoryID); err != nil {
			return nil, err
		}
	}

	expense := &models.Expense{
		UserID:     userID,
		CategoryID: categoryID,
		Direction:  direction,
		Amount:     amount,
		Merchant:   merchant,
		Date:       date,
		Source:     models.SourceManual,
		Notes:      notes,
	}

	if err := s.db.Create(expense).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return expense, nil
}

// GetUserExpenses retrieves a filtered, paginated list of a user's expenses,
// newest first.
func (s *expenseService) GetUserExpenses(userID string, page pagination.PageRequest, filter ExpenseFilter) (*pagination.PageResponse[models.Expense], error) {
	page.Defaults()

	base := s.db.Model(&models.Expense{}).Where("user_id = ?", userID)
	base = applyExpenseFilter(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var expenses []models.Expense
	if err := base.Scopes(pagination.Paginate(page)).
		Preload("Category").
		Order("date DESC, created_at DESC").
		Find(&expenses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(expenses, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// applyExpenseFilter adds the optional filter clauses to a query.
func applyExpenseFilter(q *gorm.DB, filter ExpenseFilter) *gorm.DB {
	if filter.FromDate != nil {
		q = q.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		q = q.Where("date <= ?", *filter.ToDate)
	}
	if filter.Direction != nil {
		q = q.Where("direction = ?", *filter.Direction)
	}
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Source != nil {
		q = q.Where("source = ?", *filter.Source)
	}
	if filter.MinAmount != nil {
		q = q.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		q = q.Where("amount <= ?", *filter.MaxAmount)
	}
	return q
}

// GetExpenseByID retrieves an expense by ID for a specific user
func (s *expenseService) GetExpenseByID(userID, expenseID string) (*models.Expense, error) {
	var expense models.Expense
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", expenseID, userID).First(&expense).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &expense, nil
}

// UpdateExpense updates an existing expense. The direction, source, and
// SMS audit fields are immutable after creation.
func (s *expenseService) UpdateExpense(
	userID string,
	expenseID string,
	categoryID *string,
	amount *int64,
	merchant string,
	date *time.Time,
	notes *string,
) (*models.Expense, error) {
	expense, err := s.GetExpenseByID(userID, expenseID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if categoryID != nil {
		if _, err := s.categoryService.GetCategoryByID(userID, *categoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *categoryID
	}
	if amount != nil {
		if *amount <= 0 {
			return nil, apperrors.ErrInvalidAmount
		}
		updates["amount"] = *amount
	}
	if merchant != "" {
		updates["merchant"] = merchant
	}
	if date != nil && !date.IsZero() {
		updates["date"] = *date
	}
	if notes != nil {
		updates["notes"] = *notes
	}

	if len(updates) > 0 {
		if err := s.db.Model(expense).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return expense, nil
}

// DeleteExpense deletes an expense
func (s *expenseService) DeleteExpense(userID, expenseID string) error {
	expense, err := s.GetExpenseByID(userID, expenseID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(expense).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
