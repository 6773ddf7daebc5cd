package services

import (
	"context"
	"time"

	"kharcha/internal/models"
	"kharcha/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name string, categoryType models.CategoryType, description, icon, color string) (*models.Category, error)
	GetUserCategories(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetUserCategoriesByType(userID string, categoryType models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID, name, description, icon, color string) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error

	// SeedDefaults creates the default category set for a new user and
	// returns the created categories keyed by name. It is idempotent.
	SeedDefaults(userID string) (map[string]*models.Category, error)

	// GetUncategorized returns the user's reserved fallback category.
	GetUncategorized(userID string) (*models.Category, error)
}

// ExpenseFilter holds optional filter parameters for listing expenses.
type ExpenseFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Direction  *models.Direction
	CategoryID *string
	Source     *models.ExpenseSource
	MinAmount  *int64
	MaxAmount  *int64
}

// ExpenseServicer defines the contract for expense-related business logic.
type ExpenseServicer interface {
	CreateExpense(userID string, categoryID *string, direction models.Direction, amount int64, merchant string, date time.Time, notes string) (*models.Expense, error)
	GetUserExpenses(userID string, page pagination.PageRequest, filter ExpenseFilter) (*pagination.PageResponse[models.Expense], error)
	GetExpenseByID(userID, expenseID string) (*models.Expense, error)
	UpdateExpense(userID, expenseID string, categoryID *string, amount *int64, merchant string, date *time.Time, notes *string) (*models.Expense, error)
	DeleteExpense(userID, expenseID string) error
}

// KeywordServicer defines the contract for keyword mapping rules and
// keyword-based category resolution.
type KeywordServicer interface {
	CreateMapping(userID, keyword, categoryID string, priority int) (*models.KeywordMapping, error)
	GetUserMappings(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.KeywordMapping], error)
	GetMappingByID(userID, mappingID string) (*models.KeywordMapping, error)
	UpdateMapping(userID, mappingID string, keyword *string, categoryID *string, priority *int) (*models.KeywordMapping, error)
	DeleteMapping(userID, mappingID string) error

	// ResolveCategory returns the category ID mapped by the highest-priority
	// keyword that is a case-insensitive substring of merchantText, or nil
	// when no keyword matches.
	ResolveCategory(userID, merchantText string) (*string, error)

	// RecategorizeByKeyword reassigns every expense whose merchant contains
	// the keyword to the keyword's mapped category and returns the count of
	// rows changed.
	RecategorizeByKeyword(userID, keyword string) (int64, error)

	// SeedDefaults installs the starter keyword rules for a new user, given
	// the user's seeded categories keyed by name. It is idempotent.
	SeedDefaults(userID string, categories map[string]*models.Category) error
}

// SMSMessage is one raw inbox entry handed to the ingestion pipeline.
type SMSMessage struct {
	Body       string    `json:"body" binding:"required"`
	ReceivedAt time.Time `json:"received_at" binding:"required"`
}

// SMSSource abstracts where raw SMS messages come from. In production the
// mobile client uploads its inbox; tests supply static slices.
type SMSSource interface {
	Messages(ctx context.Context) ([]SMSMessage, error)
}

// SliceSource is an SMSSource over an in-memory batch.
type SliceSource []SMSMessage

// Messages returns the batch unchanged.
func (s SliceSource) Messages(ctx context.Context) ([]SMSMessage, error) {
	return s, nil
}

// IngestResult summarizes one SMS refresh run.
type IngestResult struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// SMSIngestionServicer defines the contract for the SMS refresh pipeline.
type SMSIngestionServicer interface {
	// Refresh runs the full pipeline over the source: extract, deduplicate,
	// resolve category, persist. Per-message failures are skipped; only a
	// source read failure aborts the run. The context cancels mid-batch;
	// records already committed stay committed.
	Refresh(ctx context.Context, userID string, source SMSSource) (*IngestResult, error)
}

// Summary aggregates totals over a date range.
type Summary struct {
	TotalExpense int64 `json:"total_expense"`
	TotalIncome  int64 `json:"total_income"`
	Net          int64 `json:"net"`
	Count        int64 `json:"count"`
}

// CategorySpend is the spend aggregated for one category.
type CategorySpend struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	Total        int64  `json:"total"`
	Count        int64  `json:"count"`
}

// MonthlyTotal is the expense/income aggregate for one calendar month.
type MonthlyTotal struct {
	Month   string `json:"month"` // YYYY-MM
	Expense int64  `json:"expense"`
	Income  int64  `json:"income"`
}

// AnalyticsServicer defines the contract for spending analytics.
type AnalyticsServicer interface {
	GetSummary(userID string, from, to *time.Time) (*Summary, error)
	GetCategoryBreakdown(userID string, from, to *time.Time) ([]CategorySpend, error)
	GetMonthlyTrend(userID string, months int) ([]MonthlyTotal, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
