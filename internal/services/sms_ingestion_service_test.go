package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"kharcha/internal/models"
	"kharcha/internal/smsparser"
	"kharcha/internal/testutil"
)

// failingSource simulates an unreadable SMS inbox.
type failingSource struct{}

func (failingSource) Messages(ctx context.Context) ([]SMSMessage, error) {
	return nil, errors.New("inbox read denied")
}

var ingestBatch = SliceSource{
	{
		Body:       "Dear UPI user A/C X1234 debited by 1,500.00 on date 05Jan trf to Amazon Refno 998877. If not u? call 1800111109. -SBI",
		ReceivedAt: time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC),
	},
	{
		Body:       "Sent Rs.249.00 From HDFC Bank A/C *7712 To Netflix On 04-03-24 Ref 406090012345",
		ReceivedAt: time.Date(2024, 3, 4, 20, 15, 0, 0, time.UTC),
	},
	{
		Body:       "Your OTP for login is 482913. Do not share it with anyone.",
		ReceivedAt: time.Date(2024, 3, 4, 20, 16, 0, 0, time.UTC),
	},
}

func TestRefresh(t *testing.T) {
	t.Run("imports_new_transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		categorySvc := NewCategoryService(db)
		keywordSvc := NewKeywordService(db)
		svc := NewSMSIngestionService(db, smsparser.NewDefaultExtractor(), keywordSvc, categorySvc)
		user := testutil.CreateTestUser(t, db)

		result, err := svc.Refresh(context.Background(), user.ID, ingestBatch)
		testutil.AssertNoError(t, err)

		if result.Imported != 2 {
			t.Errorf("expected 2 imported, got %d", result.Imported)
		}
		if result.Skipped != 1 {
			t.Errorf("expected 1 skipped (OTP message), got %d", result.Skipped)
		}
		if result.Duplicates != 0 || result.Failed != 0 {
			t.Errorf("expected no duplicates or failures, got %+v", result)
		}

		var expenses []models.Expense
		if err := db.Where("user_id = ?", user.ID).Order("amount DESC").Find(&expenses).Error; err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if len(expenses) != 2 {
			t.Fatalf("expected 2 persisted expenses, got %d", len(expenses))
		}
		if expenses[0].Amount != 150000 || expenses[0].Merchant != "Amazon" {
			t.Errorf("unexpected first expense: %+v", expenses[0])
		}
		if expenses[0].Source != models.SourceSMS {
			t.Errorf("expected sms source, got %s", expenses[0].Source)
		}
		if expenses[0].Fingerprint == nil || *expenses[0].Fingerprint == "" {
			t.Error("expected fingerprint on SMS expense")
		}
		if expenses[0].BankName != "State Bank of India" {
			t.Errorf("expected bank name on SMS expense, got %q", expenses[0].BankName)
		}
	})

	t.Run("rerun_is_idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		categorySvc := NewCategoryService(db)
		keywordSvc := NewKeywordService(db)
		svc := NewSMSIngestionService(db, smsparser.NewDefaultExtractor(), keywordSvc, categorySvc)
		user := testutil.CreateTestUser(t, db)

		first, err := svc.Refresh(context.Background(), user.ID, ingestBatch)
		testutil.AssertNoError(t, err)
		if first.Imported != 2 {
			t.Fatalf("expected 2 imported on first run, got %d", first.Imported)
		}

		second, err := svc.Refresh(context.Background(), user.ID, ingestBatch)
		testutil.AssertNoError(t, err)
		if second.Imported != 0 {
			t.Errorf("expected 0 imported on second run, got %d", second.Imported)
		}
		if second.Duplicates != 2 {
			t.Errorf("expected 2 duplicates on second run, got %d", second.Duplicates)
		}

		var count int64
		if err := db.Model(&models.Expense{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 expenses total after re-run, got %d", count)
		}
	})

	t.Run("keyword_rules_assign_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		categorySvc := NewCategoryService(db)
		keywordSvc := NewKeywordService(db)
		svc := NewSMSIngestionService(db, smsparser.NewDefaultExtractor(), keywordSvc, categorySvc)
		user := testutil.CreateTestUser(t, db)

		entertainment := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestKeywordMapping(t, db, user.ID, entertainment.ID, "netflix", 0)

		result, err := svc.Refresh(context.Background(), user.ID, ingestBatch)
		testutil.AssertNoError(t, err)
		if result.Imported != 2 {
			t.Fatalf("expected 2 imported, got %d", result.Imported)
		}

		var netflix models.Expense
		if err := db.Where("user_id = ? AND merchant = ?", user.ID, "Netflix").First(&netflix).Error; err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if netflix.CategoryID == nil || *netflix.CategoryID != entertainment.ID {
			t.Errorf("expected keyword-resolved category %s, got %v", entertainment.ID, netflix.CategoryID)
		}

		// The unmatched merchant falls back to Uncategorized.
		uncategorized, err := categorySvc.GetUncategorized(user.ID)
		testutil.AssertNoError(t, err)

		var amazon models.Expense
		if err := db.Where("user_id = ? AND merchant = ?", user.ID, "Amazon").First(&amazon).Error; err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if amazon.CategoryID == nil || *amazon.CategoryID != uncategorized.ID {
			t.Errorf("expected fallback category %s, got %v", uncategorized.ID, amazon.CategoryID)
		}
	})

	t.Run("malformed_amount_is_counted_and_skipped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		categorySvc := NewCategoryService(db)
		keywordSvc := NewKeywordService(db)
		svc := NewSMSIngestionService(db, smsparser.NewDefaultExtractor(), keywordSvc, categorySvc)
		user := testutil.CreateTestUser(t, db)

		// The first body matches the generic debit rule but its captured
		// amount is garbage; the second is a clean SBI debit.
		batch := SliceSource{
			{
				Body:       "Rs., debited from your account. Call the bank if this was not you.",
				ReceivedAt: time.Date(2024, 3, 4, 20, 14, 0, 0, time.UTC),
			},
			ingestBatch[0],
		}

		result, err := svc.Refresh(context.Background(), user.ID, batch)
		testutil.AssertNoError(t, err)

		if result.Failed != 1 {
			t.Errorf("expected 1 failed message, got %d", result.Failed)
		}
		if result.Imported != 1 {
			t.Errorf("expected the valid message to import, got %d", result.Imported)
		}
		if result.Skipped != 0 {
			t.Errorf("a malformed amount is a failure, not a skip; got %d skipped", result.Skipped)
		}

		var count int64
		if err := db.Model(&models.Expense{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 persisted expense, got %d", count)
		}
	})

	t.Run("storage_failure_does_not_abort_run", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		categorySvc := NewCategoryService(db)
		keywordSvc := NewKeywordService(db)
		svc := NewSMSIngestionService(db, smsparser.NewDefaultExtractor(), keywordSvc, categorySvc)
		user := testutil.CreateTestUser(t, db)

		if err := db.Migrator().DropTable(&models.Expense{}); err != nil {
			t.Fatalf("drop table failed: %v", err)
		}

		result, err := svc.Refresh(context.Background(), user.ID, ingestBatch)
		testutil.AssertNoError(t, err)

		if result.Failed != 2 {
			t.Errorf("expected both transactional messages to fail, got %d", result.Failed)
		}
		if result.Skipped != 1 {
			t.Errorf("expected the OTP message to stay skipped, got %d", result.Skipped)
		}
		if result.Imported != 0 {
			t.Errorf("expected no imports, got %d", result.Imported)
		}
	})

	t.Run("source_failure_aborts_run", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		categorySvc := NewCategoryService(db)
		keywordSvc := NewKeywordService(db)
		svc := NewSMSIngestionService(db, smsparser.NewDefaultExtractor(), keywordSvc, categorySvc)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.Refresh(context.Background(), user.ID, failingSource{})
		testutil.AssertAppError(t, err, "SMS_SOURCE_UNAVAILABLE")
	})

	t.Run("cancelled_context_keeps_committed_records", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		categorySvc := NewCategoryService(db)
		keywordSvc := NewKeywordService(db)
		svc := NewSMSIngestionService(db, smsparser.NewDefaultExtractor(), keywordSvc, categorySvc)
		user := testutil.CreateTestUser(t, db)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := svc.Refresh(ctx, user.ID, ingestBatch)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result == nil || result.Imported != 0 {
			t.Errorf("expected zero imports for pre-cancelled context, got %+v", result)
		}
	})

	t.Run("soft_deleted_import_is_not_resurrected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		categorySvc := NewCategoryService(db)
		keywordSvc := NewKeywordService(db)
		svc := NewSMSIngestionService(db, smsparser.NewDefaultExtractor(), keywordSvc, categorySvc)
		user := testutil.CreateTestUser(t, db)

		first, err := svc.Refresh(context.Background(), user.ID, ingestBatch)
		testutil.AssertNoError(t, err)
		if first.Imported != 2 {
			t.Fatalf("expected 2 imported, got %d", first.Imported)
		}

		// The user deletes one imported expense.
		var imported models.Expense
		if err := db.Where("user_id = ? AND merchant = ?", user.ID, "Netflix").First(&imported).Error; err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if err := db.Delete(&imported).Error; err != nil {
			t.Fatalf("delete failed: %v", err)
		}

		second, err := svc.Refresh(context.Background(), user.ID, ingestBatch)
		testutil.AssertNoError(t, err)
		if second.Imported != 0 {
			t.Errorf("expected deleted import to stay deleted, got %d imports", second.Imported)
		}
		if second.Duplicates != 2 {
			t.Errorf("expected 2 duplicates, got %d", second.Duplicates)
		}
	})

	t.Run("same_message_different_users_both_import", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		categorySvc := NewCategoryService(db)
		keywordSvc := NewKeywordService(db)
		svc := NewSMSIngestionService(db, smsparser.NewDefaultExtractor(), keywordSvc, categorySvc)
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)

		r1, err := svc.Refresh(context.Background(), user1.ID, ingestBatch)
		testutil.AssertNoError(t, err)
		r2, err := svc.Refresh(context.Background(), user2.ID, ingestBatch)
		testutil.AssertNoError(t, err)

		if r1.Imported != 2 || r2.Imported != 2 {
			t.Errorf("expected both users to import 2, got %d and %d", r1.Imported, r2.Imported)
		}
	})
}
