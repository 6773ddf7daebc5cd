package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "kharcha/internal/errors"
	"kharcha/internal/models"
	"kharcha/internal/pagination"
)

// defaultKeywords is the starter rule set installed for new users, keyed by
// the name of the seeded category each keyword maps to.
var defaultKeywords = map[string][]string{
	"Food & Dining": {"swiggy", "zomato", "dominos", "mcdonald", "kfc", "cafe"},
	"Groceries":     {"bigbasket", "blinkit", "zepto", "dmart", "grofers"},
	"Transport":     {"uber", "ola", "rapido", "irctc", "redbus", "petrol"},
	"Shopping":      {"amazon", "flipkart", "myntra", "ajio", "croma"},
	"Entertainment": {"netflix", "hotstar", "spotify", "bookmyshow", "prime video"},
	"Utilities":     {"jio", "airtel", "vi recharge", "electricity", "broadband"},
	"Health":        {"pharmacy", "apollo", "pharmeasy", "1mg", "hospital"},
	"Salary":        {"salary", "payroll"},
	"Refunds":       {"refund", "reversal", "cashback"},
}

// keywordService handles keyword mapping rules and keyword-based category
// resolution.
type keywordService struct {
	db *gorm.DB
}

// NewKeywordService creates a new KeywordServicer.
func NewKeywordService(db *gorm.DB) KeywordServicer {
	return &keywordService{db: db}
}

// CreateMapping creates a new keyword rule. Keywords are stored lowercase;
// matching is always case-insensitive.
func (s *keywordService) CreateMapping(userID, keyword, categoryID string, priority int) (*models.KeywordMapping, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "keyword is required")
	}

	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var count int64
	if err := s.db.Model(&models.KeywordMapping{}).
		Where("user_id = ? AND keyword = ?", userID, keyword).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateKeyword
	}

	mapping := &models.KeywordMapping{
		UserID:     userID,
		Keyword:    keyword,
		CategoryID: categoryID,
		Priority:   priority,
	}

	if err := s.db.Create(mapping).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return mapping, nil
}

// GetUserMappings retrieves a paginated list of a user's keyword rules,
// highest priority first.
func (s *keywordService) GetUserMappings(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.KeywordMapping], error) {
	page.Defaults()

	base := s.db.Model(&models.KeywordMapping{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var mappings []models.KeywordMapping
	if err := base.Scopes(pagination.Paginate(page)).
		Preload("Category").
		Order("priority DESC, keyword ASC").
		Find(&mappings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(mappings, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetMappingByID retrieves a keyword rule by ID for a specific user
func (s *keywordService) GetMappingByID(userID, mappingID string) (*models.KeywordMapping, error) {
	var mapping models.KeywordMapping
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", mappingID, userID).First(&mapping).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrKeywordNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &mapping, nil
}

// UpdateMapping updates an existing keyword rule.
func (s *keywordService) UpdateMapping(userID, mappingID string, keyword *string, categoryID *string, priority *int) (*models.KeywordMapping, error) {
	mapping, err := s.GetMappingByID(userID, mappingID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if keyword != nil {
		kw := strings.ToLower(strings.TrimSpace(*keyword))
		if kw == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "keyword cannot be empty")
		}
		if kw != mapping.Keyword {
			var count int64
			if err := s.db.Model(&models.KeywordMapping{}).
				Where("user_id = ? AND keyword = ?", userID, kw).
				Count(&count).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count > 0 {
				return nil, apperrors.ErrDuplicateKeyword
			}
		}
		updates["keyword"] = kw
	}
	if categoryID != nil {
		var category models.Category
		if err := s.db.Where("id = ? AND user_id = ?", *categoryID, userID).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrCategoryNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		updates["category_id"] = *categoryID
	}
	if priority != nil {
		updates["priority"] = *priority
	}

	if len(updates) > 0 {
		if err := s.db.Model(mapping).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return mapping, nil
}

// DeleteMapping deletes a keyword rule
func (s *keywordService) DeleteMapping(userID, mappingID string) error {
	mapping, err := s.GetMappingByID(userID, mappingID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(mapping).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ResolveCategory finds the best keyword match for the merchant text.
// Among matching keywords the highest priority wins; on equal priority the
// longest keyword wins, then the earliest-created rule. The tie-break keeps
// resolution deterministic across runs.
func (s *keywordService) ResolveCategory(userID, merchantText string) (*string, error) {
	if strings.TrimSpace(merchantText) == "" {
		return nil, nil
	}

	var mappings []models.KeywordMapping
	if err := s.db.Where("user_id = ?", userID).Find(&mappings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	text := strings.ToLower(merchantText)

	var best *models.KeywordMapping
	for i := range mappings {
		m := &mappings[i]
		if !strings.Contains(text, m.Keyword) {
			continue
		}
		if best == nil || betterMatch(m, best) {
			best = m
		}
	}

	if best == nil {
		return nil, nil
	}
	categoryID := best.CategoryID
	return &categoryID, nil
}

// betterMatch reports whether candidate should win over current.
func betterMatch(candidate, current *models.KeywordMapping) bool {
	if candidate.Priority != current.Priority {
		return candidate.Priority > current.Priority
	}
	if len(candidate.Keyword) != len(current.Keyword) {
		return len(candidate.Keyword) > len(current.Keyword)
	}
	return candidate.CreatedAt.Before(current.CreatedAt)
}

// RecategorizeByKeyword reassigns every persisted expense whose merchant
// contains the keyword (case-insensitive) to the keyword's mapped category.
// Returns the number of rows changed, 0 when nothing matches.
func (s *keywordService) RecategorizeByKeyword(userID, keyword string) (int64, error) {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "keyword is required")
	}

	var mapping models.KeywordMapping
	if err := s.db.Where("user_id = ? AND keyword = ?", userID, kw).First(&mapping).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.ErrKeywordNotFound
		}
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := s.db.Model(&models.Expense{}).
		Where("user_id = ? AND LOWER(merchant) LIKE ? ESCAPE '\\'", userID, "%"+escapeLike(kw)+"%").
		Update("category_id", mapping.CategoryID)
	if result.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}

	return result.RowsAffected, nil
}

// escapeLike escapes the LIKE wildcards in a keyword so user input matches
// literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// SeedDefaults installs the starter keyword rules for a new user. Keywords
// the user already has are left untouched.
func (s *keywordService) SeedDefaults(userID string, categories map[string]*models.Category) error {
	var existing []models.KeywordMapping
	if err := s.db.Where("user_id = ?", userID).Find(&existing).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	have := make(map[string]bool, len(existing))
	for _, m := range existing {
		have[m.Keyword] = true
	}

	for categoryName, keywords := range defaultKeywords {
		category, ok := categories[categoryName]
		if !ok {
			continue
		}
		for _, kw := range keywords {
			if have[kw] {
				continue
			}
			mapping := &models.KeywordMapping{
				UserID:     userID,
				Keyword:    kw,
				CategoryID: category.ID,
			}
			if err := s.db.Create(mapping).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
	}

	return nil
}
