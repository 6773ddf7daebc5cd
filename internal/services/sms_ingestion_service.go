package services

import (
	"context"

	"gorm.io/gorm"

	apperrors "kharcha/internal/errors"
	"kharcha/internal/logger"
	"kharcha/internal/models"
	"kharcha/internal/smsparser"
)

// smsIngestionService runs the end-to-end SMS refresh: extract a structured
// transaction from each message, drop already-imported ones by fingerprint,
// resolve a category from the user's keyword rules, and persist the rest.
//
// Messages are handled strictly sequentially so the exists-then-insert dedup
// check never races with itself. Each record is its own commit boundary: one
// failed insert never rolls back or blocks the others.
type smsIngestionService struct {
	db              *gorm.DB
	extractor       *smsparser.Extractor
	keywordService  KeywordServicer
	categoryService CategoryServicer
}

// NewSMSIngestionService creates a new SMSIngestionServicer.
func NewSMSIngestionService(db *gorm.DB, extractor *smsparser.Extractor, keywordService KeywordServicer, categoryService CategoryServicer) SMSIngestionServicer {
	return &smsIngestionService{
		db:              db,
		extractor:       extractor,
		keywordService:  keywordService,
		categoryService: categoryService,
	}
}

// Refresh runs the pipeline over every message the source yields and returns
// the run's counters. A source read failure aborts the whole run; anything
// that goes wrong with a single message is logged, counted, and skipped.
func (s *smsIngestionService) Refresh(ctx context.Context, userID string, source SMSSource) (*IngestResult, error) {
	log := logger.Get()

	messages, err := source.Messages(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSMSSourceUnavailable, err)
	}

	fallback, err := s.categoryService.GetUncategorized(userID)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{}
	for _, msg := range messages {
		// Cancellation mid-batch keeps everything committed so far.
		if err := ctx.Err(); err != nil {
			return result, err
		}

		parsed, err := s.extractor.Extract(msg.Body, msg.ReceivedAt)
		if err != nil {
			log.Debugw("skipping unparseable message", "error", err)
			result.Failed++
			continue
		}
		if parsed == nil {
			// Most inbox traffic is not transactional.
			result.Skipped++
			continue
		}

		fingerprint := parsed.Fingerprint()

		// Unscoped: an SMS expense the user soft-deleted stays deleted;
		// a refresh must not resurrect it.
		var count int64
		if err := s.db.WithContext(ctx).Unscoped().Model(&models.Expense{}).
			Where("user_id = ? AND fingerprint = ?", userID, fingerprint).
			Count(&count).Error; err != nil {
			log.Errorw("fingerprint lookup failed", "error", err, "user_id", userID)
			result.Failed++
			continue
		}
		if count > 0 {
			result.Duplicates++
			continue
		}

		categoryID := fallback.ID
		resolved, err := s.keywordService.ResolveCategory(userID, parsed.Merchant)
		if err != nil {
			log.Errorw("category resolution failed", "error", err, "merchant", parsed.Merchant)
		} else if resolved != nil {
			categoryID = *resolved
		}

		expense := &models.Expense{
			UserID:        userID,
			CategoryID:    &categoryID,
			Direction:     parsed.Direction,
			Amount:        parsed.Amount,
			Merchant:      parsed.Merchant,
			Date:          parsed.Date,
			Source:        models.SourceSMS,
			BankName:      parsed.BankName,
			AccountSuffix: parsed.AccountSuffix,
			RawText:       parsed.RawText,
			Fingerprint:   &fingerprint,
		}

		if err := s.db.WithContext(ctx).Create(expense).Error; err != nil {
			log.Errorw("failed to persist extracted transaction",
				"error", err,
				"user_id", userID,
				"merchant", parsed.Merchant,
			)
			result.Failed++
			continue
		}

		result.Imported++
	}

	return result, nil
}
