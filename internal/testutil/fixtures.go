package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"kharcha/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string, categoryType models.CategoryType) *models.Category {
	t.Helper()
	return CreateTestCategoryWithName(t, db, userID, fmt.Sprintf("Test Category %d", nextID()), categoryType)
}

// CreateTestCategoryWithName creates a category with the given name and type.
func CreateTestCategoryWithName(t *testing.T, db *gorm.DB, userID, name string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   name,
		Type:   categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestExpense creates a manual expense for the given merchant and amount (in paise).
func CreateTestExpense(t *testing.T, db *gorm.DB, userID string, merchant string, amount int64) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		UserID:    userID,
		Direction: models.DirectionExpense,
		Amount:    amount,
		Merchant:  merchant,
		Date:      time.Now(),
		Source:    models.SourceManual,
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}

// CreateTestKeywordMapping creates a keyword rule pointing at the given category.
func CreateTestKeywordMapping(t *testing.T, db *gorm.DB, userID, categoryID, keyword string, priority int) *models.KeywordMapping {
	t.Helper()

	mapping := &models.KeywordMapping{
		UserID:     userID,
		Keyword:    keyword,
		CategoryID: categoryID,
		Priority:   priority,
	}
	if err := db.Create(mapping).Error; err != nil {
		t.Fatalf("failed to create test keyword mapping: %v", err)
	}
	return mapping
}
