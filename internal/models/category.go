package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// UncategorizedName is the reserved category that SMS-imported expenses fall
// back to when no keyword rule matches. It is seeded per user and cannot be
// renamed or deleted.
const UncategorizedName = "Uncategorized"

// Category represents an expense or income category
type Category struct {
	Base
	UserID      string       `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string       `gorm:"not null" json:"name"`
	Type        CategoryType `gorm:"not null" json:"type"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Color       string       `json:"color"`

	Expenses        []Expense        `gorm:"foreignKey:CategoryID" json:"expenses,omitempty"`
	KeywordMappings []KeywordMapping `gorm:"foreignKey:CategoryID" json:"keyword_mappings,omitempty"`
}
