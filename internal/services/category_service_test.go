package services

import (
	"testing"

	"kharcha/internal/models"
	"kharcha/internal/pagination"
	"kharcha/internal/testutil"
)

func TestCreateCategory(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		cat, err := svc.CreateCategory(user.ID, "Groceries", models.CategoryTypeExpense, "Food shopping", "cart", "#FF0000")
		testutil.AssertNoError(t, err)

		if cat.ID == "" {
			t.Fatal("expected non-empty category ID")
		}
		if cat.Name != "Groceries" {
			t.Errorf("expected name Groceries, got %s", cat.Name)
		}
		if cat.Type != models.CategoryTypeExpense {
			t.Errorf("expected type expense, got %s", cat.Type)
		}
	})

	t.Run("duplicate_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(user.ID, "Food", models.CategoryTypeExpense, "", "", "")
		testutil.AssertNoError(t, err)

		_, err = svc.CreateCategory(user.ID, "Food", models.CategoryTypeExpense, "", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(user.ID, "", models.CategoryTypeExpense, "", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("duplicate_name_different_users_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(user1.ID, "Salary", models.CategoryTypeIncome, "", "", "")
		testutil.AssertNoError(t, err)

		_, err = svc.CreateCategory(user2.ID, "Salary", models.CategoryTypeIncome, "", "", "")
		testutil.AssertNoError(t, err)
	})
}

func TestGetUserCategories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)
	user := testutil.CreateTestUser(t, db)

	testutil.CreateTestCategoryWithName(t, db, user.ID, "Transport", models.CategoryTypeExpense)
	testutil.CreateTestCategoryWithName(t, db, user.ID, "Salary", models.CategoryTypeIncome)

	all, err := svc.GetUserCategories(user.ID, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if all.TotalItems != 2 {
		t.Errorf("expected 2 categories, got %d", all.TotalItems)
	}

	income, err := svc.GetUserCategoriesByType(user.ID, models.CategoryTypeIncome, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if income.TotalItems != 1 {
		t.Errorf("expected 1 income category, got %d", income.TotalItems)
	}
	if len(income.Data) != 1 || income.Data[0].Name != "Salary" {
		t.Errorf("unexpected income categories: %+v", income.Data)
	}
}

func TestUpdateCategory(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		updated, err := svc.UpdateCategory(user.ID, cat.ID, "Eating Out", "restaurants", "utensils", "#AA0000")
		testutil.AssertNoError(t, err)
		if updated.Name != "Eating Out" {
			t.Errorf("expected renamed category, got %s", updated.Name)
		}
	})

	t.Run("rename_reserved_blocked", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		uncategorized, err := svc.GetUncategorized(user.ID)
		testutil.AssertNoError(t, err)

		_, err = svc.UpdateCategory(user.ID, uncategorized.ID, "Misc", "", "", "")
		testutil.AssertAppError(t, err, "RESERVED_CATEGORY")
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.UpdateCategory(user.ID, "01937d2e-0000-7000-8000-000000000000", "X", "", "", "")
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestDeleteCategory(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		testutil.AssertNoError(t, svc.DeleteCategory(user.ID, cat.ID))

		_, err := svc.GetCategoryByID(user.ID, cat.ID)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("reserved_blocked", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		uncategorized, err := svc.GetUncategorized(user.ID)
		testutil.AssertNoError(t, err)

		err = svc.DeleteCategory(user.ID, uncategorized.ID)
		testutil.AssertAppError(t, err, "RESERVED_CATEGORY")
	})

	t.Run("referenced_by_keyword_rule_blocked", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestKeywordMapping(t, db, user.ID, cat.ID, "swiggy", 0)

		err := svc.DeleteCategory(user.ID, cat.ID)
		testutil.AssertAppError(t, err, "CATEGORY_IN_USE")
	})

	t.Run("other_users_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user1.ID, models.CategoryTypeExpense)

		err := svc.DeleteCategory(user2.ID, cat.ID)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestCategorySeedDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)
	user := testutil.CreateTestUser(t, db)

	categories, err := svc.SeedDefaults(user.ID)
	testutil.AssertNoError(t, err)

	if _, ok := categories[models.UncategorizedName]; !ok {
		t.Fatal("expected Uncategorized in seeded set")
	}
	if _, ok := categories["Food & Dining"]; !ok {
		t.Fatal("expected Food & Dining in seeded set")
	}

	var count int64
	if err := db.Model(&models.Category{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}

	// Re-seeding is a no-op.
	_, err = svc.SeedDefaults(user.ID)
	testutil.AssertNoError(t, err)

	var recount int64
	if err := db.Model(&models.Category{}).Where("user_id = ?", user.ID).Count(&recount).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if recount != count {
		t.Errorf("expected %d categories after re-seed, got %d", count, recount)
	}
}

func TestGetUncategorized(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)
	user := testutil.CreateTestUser(t, db)

	// Created on first access when missing.
	first, err := svc.GetUncategorized(user.ID)
	testutil.AssertNoError(t, err)
	if first.Name != models.UncategorizedName {
		t.Errorf("expected %s, got %s", models.UncategorizedName, first.Name)
	}

	second, err := svc.GetUncategorized(user.ID)
	testutil.AssertNoError(t, err)
	if second.ID != first.ID {
		t.Error("expected the same category on subsequent calls")
	}
}
