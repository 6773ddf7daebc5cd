package models

import "time"

// Direction represents the monetary flow of an expense record.
type Direction string

const (
	DirectionExpense Direction = "expense"
	DirectionIncome  Direction = "income"
)

// ExpenseSource records how an expense entered the system.
type ExpenseSource string

const (
	SourceManual ExpenseSource = "manual"
	SourceSMS    ExpenseSource = "sms"
)

// Expense represents a single recorded transaction. The amount is always
// positive and stored in paise; the flow is carried by Direction, not by
// the amount's sign.
//
// Fingerprint is set only for SMS-sourced rows and is unique per user, which
// is what makes re-running an SMS refresh idempotent. Manual entries leave it
// NULL so the composite unique index never applies to them.
type Expense struct {
	Base
	UserID     string        `gorm:"type:uuid;not null;index;uniqueIndex:idx_expenses_user_fingerprint" json:"user_id"`
	CategoryID *string       `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Direction  Direction     `gorm:"not null" json:"direction"`
	Amount     int64         `gorm:"type:bigint;not null" json:"amount"`
	Merchant   string        `gorm:"not null" json:"merchant"`
	Date       time.Time     `gorm:"not null" json:"date"`
	Source     ExpenseSource `gorm:"not null;default:manual" json:"source"`
	Notes      string        `json:"notes"`

	// SMS-sourced fields. Empty for manual entries.
	BankName      string  `json:"bank_name,omitempty"`
	AccountSuffix string  `gorm:"size:4" json:"account_suffix,omitempty"`
	RawText       string  `json:"raw_text,omitempty"`
	Fingerprint   *string `gorm:"size:64;uniqueIndex:idx_expenses_user_fingerprint" json:"-"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
