package models

// KeywordMapping is a user rule associating a case-insensitive keyword with a
// category. When several keywords match the same merchant text, the mapping
// with the numerically highest priority wins.
type KeywordMapping struct {
	Base
	UserID     string `gorm:"type:uuid;not null;index;uniqueIndex:idx_keywords_user_keyword" json:"user_id"`
	Keyword    string `gorm:"not null;uniqueIndex:idx_keywords_user_keyword" json:"keyword"`
	CategoryID string `gorm:"type:uuid;not null" json:"category_id"`
	Priority   int    `gorm:"not null;default:0" json:"priority"`

	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
