package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "kharcha/internal/errors"
	"kharcha/internal/models"
	"kharcha/internal/pagination"
)

// defaultCategories is the starter set created for every new user. The
// Uncategorized entry is reserved: SMS imports fall back to it and it cannot
// be renamed or deleted.
var defaultCategories = []models.Category{
	{Name: models.UncategorizedName, Type: models.CategoryTypeExpense, Icon: "help-circle", Color: "#9E9E9E"},
	{Name: "Food & Dining", Type: models.CategoryTypeExpense, Icon: "utensils", Color: "#FF7043"},
	{Name: "Groceries", Type: models.CategoryTypeExpense, Icon: "cart", Color: "#66BB6A"},
	{Name: "Transport", Type: models.CategoryTypeExpense, Icon: "car", Color: "#42A5F5"},
	{Name: "Shopping", Type: models.CategoryTypeExpense, Icon: "bag", Color: "#AB47BC"},
	{Name: "Entertainment", Type: models.CategoryTypeExpense, Icon: "film", Color: "#EC407A"},
	{Name: "Utilities", Type: models.CategoryTypeExpense, Icon: "bolt", Color: "#FFA726"},
	{Name: "Health", Type: models.CategoryTypeExpense, Icon: "heart", Color: "#EF5350"},
	{Name: "Salary", Type: models.CategoryTypeIncome, Icon: "banknote", Color: "#26A69A"},
	{Name: "Refunds", Type: models.CategoryTypeIncome, Icon: "rotate-ccw", Color: "#78909C"},
}

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a new category
func (s *categoryService) CreateCategory(
	userID string,
	name string,
	categoryType models.CategoryType,
	description string,
	icon string,
	color string,
) (*models.Category, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	// Check if a category with the same name already exists for this user
	var count int64
	if err := s.db.Model(&models.Category{}).
		Where("user_id = ? AND name = ?", userID, name).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if count > 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category with this name already exists")
	}

	category := &models.Category{
		UserID:      userID,
		Name:        name,
		Type:        categoryType,
		Description: description,
		Icon:        icon,
		Color:       color,
	}

	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// GetUserCategories retrieves a paginated list of categories for a user.
func (s *categoryService) GetUserCategories(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Category{}).Where("user_id = ?", userID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := base.Scopes(pagination.Paginate(page)).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetUserCategoriesByType retrieves a paginated list of categories of a specific type for a user.
func (s *categoryService) GetUserCategoriesByType(userID string, categoryType models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Category{}).Where("user_id = ? AND type = ?", userID, categoryType)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := base.Scopes(pagination.Paginate(page)).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCategoryByID retrieves a category by ID for a specific user
func (s *categoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory updates an existing category
func (s *categoryService) UpdateCategory(
	userID string,
	categoryID string,
	name string,
	description string,
	icon string,
	color string,
) (*models.Category, error) {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return nil, err
	}

	if category.Name == models.UncategorizedName && name != "" && name != models.UncategorizedName {
		return nil, apperrors.ErrReservedCategory
	}

	// Update fields if provided
	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if description != "" {
		updates["description"] = description
	}
	if icon != "" {
		updates["icon"] = icon
	}
	if color != "" {
		updates["color"] = color
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return category, nil
}

// DeleteCategory deletes a category
func (s *categoryService) DeleteCategory(userID, categoryID string) error {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return err
	}

	if category.Name == models.UncategorizedName {
		return apperrors.ErrReservedCategory
	}

	// A category referenced by keyword rules cannot be removed; the rules
	// would silently resolve to a dangling category at ingestion time.
	var keywordCount int64
	if err := s.db.Model(&models.KeywordMapping{}).Where("category_id = ?", categoryID).Count(&keywordCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if keywordCount > 0 {
		return apperrors.ErrCategoryInUse
	}

	// Soft-delete the category. Existing expenses keep their category_id
	// reference to the soft-deleted category for historical records.
	if err := s.db.Delete(category).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// SeedDefaults creates the default category set for a new user. Categories
// the user already has (by name) are left untouched, so calling this twice
// is safe.
func (s *categoryService) SeedDefaults(userID string) (map[string]*models.Category, error) {
	var existing []models.Category
	if err := s.db.Where("user_id = ?", userID).Find(&existing).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	byName := make(map[string]*models.Category, len(defaultCategories))
	for i := range existing {
		byName[existing[i].Name] = &existing[i]
	}

	for _, def := range defaultCategories {
		if _, ok := byName[def.Name]; ok {
			continue
		}
		category := def
		category.UserID = userID
		if err := s.db.Create(&category).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		byName[category.Name] = &category
	}

	return byName, nil
}

// GetUncategorized returns the user's reserved fallback category, creating
// it if it is somehow missing.
func (s *categoryService) GetUncategorized(userID string) (*models.Category, error) {
	var category models.Category
	err := s.db.Where("user_id = ? AND name = ?", userID, models.UncategorizedName).First(&category).Error
	if err == nil {
		return &category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	category = models.Category{
		UserID: userID,
		Name:   models.UncategorizedName,
		Type:   models.CategoryTypeExpense,
	}
	if err := s.db.Create(&category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}
