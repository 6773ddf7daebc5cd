package services

import (
	"time"

	"gorm.io/gorm"

	apperrors "kharcha/internal/errors"
	"kharcha/internal/models"
)

// analyticsService computes spending aggregates. Monthly bucketing happens in
// Go rather than SQL so the same queries run on PostgreSQL and the SQLite
// test database.
type analyticsService struct {
	db *gorm.DB
}

// NewAnalyticsService creates a new AnalyticsServicer.
func NewAnalyticsService(db *gorm.DB) AnalyticsServicer {
	return &analyticsService{db: db}
}

// GetSummary returns expense/income totals over an optional date range.
func (s *analyticsService) GetSummary(userID string, from, to *time.Time) (*Summary, error) {
	type row struct {
		Direction models.Direction
		Total     int64
		Count     int64
	}

	q := s.db.Model(&models.Expense{}).
		Select("direction, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("direction")
	if from != nil {
		q = q.Where("date >= ?", *from)
	}
	if to != nil {
		q = q.Where("date <= ?", *to)
	}

	var rows []row
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary := &Summary{}
	for _, r := range rows {
		summary.Count += r.Count
		switch r.Direction {
		case models.DirectionExpense:
			summary.TotalExpense += r.Total
		case models.DirectionIncome:
			summary.TotalIncome += r.Total
		}
	}
	summary.Net = summary.TotalIncome - summary.TotalExpense
	return summary, nil
}

// GetCategoryBreakdown returns per-category expense totals over an optional
// date range, largest spend first. Income records are excluded.
func (s *analyticsService) GetCategoryBreakdown(userID string, from, to *time.Time) ([]CategorySpend, error) {
	q := s.db.Model(&models.Expense{}).
		Select("expenses.category_id AS category_id, categories.name AS category_name, COALESCE(SUM(expenses.amount), 0) AS total, COUNT(*) AS count").
		Joins("LEFT JOIN categories ON categories.id = expenses.category_id").
		Where("expenses.user_id = ? AND expenses.direction = ?", userID, models.DirectionExpense).
		Where("expenses.deleted_at IS NULL").
		Group("expenses.category_id, categories.name").
		Order("total DESC")
	if from != nil {
		q = q.Where("expenses.date >= ?", *from)
	}
	if to != nil {
		q = q.Where("expenses.date <= ?", *to)
	}

	var breakdown []CategorySpend
	if err := q.Find(&breakdown).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return breakdown, nil
}

// GetMonthlyTrend returns expense/income totals for the last N calendar
// months, oldest first. Months with no records are included with zeros.
func (s *analyticsService) GetMonthlyTrend(userID string, months int) ([]MonthlyTotal, error) {
	if months <= 0 {
		months = 6
	}

	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)

	type row struct {
		Date      time.Time
		Direction models.Direction
		Amount    int64
	}

	var rows []row
	if err := s.db.Model(&models.Expense{}).
		Select("date, direction, amount").
		Where("user_id = ? AND date >= ?", userID, start).
		Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	byMonth := make(map[string]*MonthlyTotal, months)
	trend := make([]MonthlyTotal, 0, months)
	for i := 0; i < months; i++ {
		month := start.AddDate(0, i, 0).Format("2006-01")
		trend = append(trend, MonthlyTotal{Month: month})
		byMonth[month] = &trend[len(trend)-1]
	}

	for _, r := range rows {
		bucket, ok := byMonth[r.Date.Format("2006-01")]
		if !ok {
			continue
		}
		switch r.Direction {
		case models.DirectionExpense:
			bucket.Expense += r.Amount
		case models.DirectionIncome:
			bucket.Income += r.Amount
		}
	}

	return trend, nil
}
