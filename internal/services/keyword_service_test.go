package services

import (
	"testing"

	"kharcha/internal/models"
	"kharcha/internal/testutil"
)

func TestCreateMapping(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewKeywordService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		mapping, err := svc.CreateMapping(user.ID, "Swiggy", cat.ID, 5)
		testutil.AssertNoError(t, err)

		if mapping.Keyword != "swiggy" {
			t.Errorf("expected keyword stored lowercase, got %q", mapping.Keyword)
		}
		if mapping.Priority != 5 {
			t.Errorf("expected priority 5, got %d", mapping.Priority)
		}
	})

	t.Run("duplicate_keyword", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewKeywordService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		_, err := svc.CreateMapping(user.ID, "uber", cat.ID, 0)
		testutil.AssertNoError(t, err)

		// Same keyword differing only in case is still a duplicate.
		_, err = svc.CreateMapping(user.ID, "UBER", cat.ID, 3)
		testutil.AssertAppError(t, err, "DUPLICATE_KEYWORD")
	})

	t.Run("category_of_other_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewKeywordService(db)
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user1.ID, models.CategoryTypeExpense)

		_, err := svc.CreateMapping(user2.ID, "uber", cat.ID, 0)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("empty_keyword", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewKeywordService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		_, err := svc.CreateMapping(user.ID, "   ", cat.ID, 0)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestResolveCategory(t *testing.T) {
	t.Run("case_insensitive_substring", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewKeywordService(db)
		user := testutil.CreateTestUser(t, db)
		food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestKeywordMapping(t, db, user.ID, food.ID, "swiggy", 0)

		got, err := svc.ResolveCategory(user.ID, "SWIGGY INSTAMART BLR")
		testutil.AssertNoError(t, err)
		if got == nil || *got != food.ID {
			t.Fatalf("expected category %s, got %v", food.ID, got)
		}
	})

	t.Run("no_match_returns_nil", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewKeywordService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestKeywordMapping(t, db, user.ID, cat.ID, "swiggy", 0)

		got, err := svc.ResolveCategory(user.ID, "LOCAL KIRANA STORE")
		testutil.AssertNoError(t, err)
		if got != nil {
			t.Fatalf("expected nil for unmatched merchant, got %v", *got)
		}
	})

	t.Run("highest_priority_wins", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewKeywordService(db)
		user := testutil.CreateTestUser(t, db)
		transport := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		// Both keywords are substrings of the merchant text.
		testutil.CreateTestKeywordMapping(t, db, user.ID, food.ID, "eats", 1)
		testutil.CreateTestKeywordMapping(t, db, user.ID, transport.ID, "uber", 10)

		got, err := svc.ResolveCategory(user.ID, "UBER EATS ORDER")
		testutil.AssertNoError(t, err)
		if got == nil || *got != transport.ID {
			t.Fatalf("expected higher-priority category %s, got %v", transport.ID, got)
		}
	})

	t.Run("equal_priority_longest_keyword_wins", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewKeywordService(db)
		user := testutil.CreateTestUser(t, db)
		short := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		long := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		testutil.CreateTestKeywordMapping(t, db, user.ID, short.ID, "ube", 0)
		testutil.CreateTestKeywordMapping(t, db, user.ID, long.ID, "uber", 0)

		got, err := svc.ResolveCategory(user.ID, "Uber Trip BLR")
		testutil.AssertNoError(t, err)
		if got == nil || *got != long.ID {
			t.Fatalf("expected longest-keyword category %s, got %v", long.ID, got)
		}
	})

	t.Run("empty_text_returns_nil", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewKeywordService(db)
		user := testutil.CreateTestUser(t, db)

		got, err := svc.ResolveCategory(user.ID, "   ")
		testutil.AssertNoError(t, err)
		if got != nil {
			t.Fatalf("expected nil for empty merchant text, got %v", *got)
		}
	})

	t.Run("other_users_rules_ignored", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewKeywordService(db)
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user1.ID, models.CategoryTypeExpense)
		testutil.CreateTestKeywordMapping(t, db, user1.ID, cat.ID, "swiggy", 0)

		got, err := svc.ResolveCategory(user2.ID, "SWIGGY ORDER")
		testutil.AssertNoError(t, err)
		if got != nil {
			t.Fatalf("expected nil, user2 has no rules, got %v", *got)
		}
	})
}

func TestRecategorizeByKeyword(t *testing.T) {
	t.Run("updates_matching_expenses", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewKeywordService(db)
		user := testutil.CreateTestUser(t, db)
		food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestKeywordMapping(t, db, user.ID, food.ID, "swiggy", 0)

		testutil.CreateTestExpense(t, db, user.ID, "SWIGGY BANGALORE", 25000)
		testutil.CreateTestExpense(t, db, user.ID, "Swiggy Instamart", 40000)
		testutil.CreateTestExpense(t, db, user.ID, "BIG BAZAAR", 120000)

		updated, err := svc.RecategorizeByKeyword(user.ID, "swiggy")
		testutil.AssertNoError(t, err)
		if updated != 2 {
			t.Fatalf("expected 2 updated rows, got %d", updated)
		}

		var count int64
		if err := db.Model(&models.Expense{}).
			Where("user_id = ? AND category_id = ?", user.ID, food.ID).
			Count(&count).Error; err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 expenses in category, got %d", count)
		}
	})

	t.Run("no_matches_returns_zero", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewKeywordService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestKeywordMapping(t, db, user.ID, cat.ID, "zomato", 0)
		testutil.CreateTestExpense(t, db, user.ID, "BIG BAZAAR", 9900)

		updated, err := svc.RecategorizeByKeyword(user.ID, "zomato")
		testutil.AssertNoError(t, err)
		if updated != 0 {
			t.Fatalf("expected 0 updated rows, got %d", updated)
		}
	})

	t.Run("unknown_keyword", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewKeywordService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.RecategorizeByKeyword(user.ID, "nosuchkeyword")
		testutil.AssertAppError(t, err, "KEYWORD_NOT_FOUND")
	})

	t.Run("other_users_expenses_untouched", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewKeywordService(db)
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user1.ID, models.CategoryTypeExpense)
		testutil.CreateTestKeywordMapping(t, db, user1.ID, cat.ID, "swiggy", 0)

		testutil.CreateTestExpense(t, db, user1.ID, "SWIGGY ORDER", 10000)
		other := testutil.CreateTestExpense(t, db, user2.ID, "SWIGGY ORDER", 10000)

		updated, err := svc.RecategorizeByKeyword(user1.ID, "swiggy")
		testutil.AssertNoError(t, err)
		if updated != 1 {
			t.Fatalf("expected 1 updated row, got %d", updated)
		}

		var reloaded models.Expense
		if err := db.First(&reloaded, "id = ?", other.ID).Error; err != nil {
			t.Fatalf("reload failed: %v", err)
		}
		if reloaded.CategoryID != nil {
			t.Error("expected other user's expense to keep its category")
		}
	})
}

func TestKeywordSeedDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	categorySvc := NewCategoryService(db)
	svc := NewKeywordService(db)
	user := testutil.CreateTestUser(t, db)

	categories, err := categorySvc.SeedDefaults(user.ID)
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, svc.SeedDefaults(user.ID, categories))

	var count int64
	if err := db.Model(&models.KeywordMapping{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count == 0 {
		t.Fatal("expected seeded keyword rules")
	}

	// Re-seeding must not duplicate rules.
	testutil.AssertNoError(t, svc.SeedDefaults(user.ID, categories))

	var recount int64
	if err := db.Model(&models.KeywordMapping{}).Where("user_id = ?", user.ID).Count(&recount).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if recount != count {
		t.Errorf("expected %d rules after re-seed, got %d", count, recount)
	}

	// A seeded rule resolves as expected.
	got, err := svc.ResolveCategory(user.ID, "UPI-SWIGGY-ORDER-1234")
	testutil.AssertNoError(t, err)
	if got == nil || *got != categories["Food & Dining"].ID {
		t.Fatalf("expected Food & Dining for swiggy merchant, got %v", got)
	}
}
