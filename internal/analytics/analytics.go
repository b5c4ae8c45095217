package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/codebugsleuth/bughunter/internal/db"
	"github.com/codebugsleuth/bughunter/internal/models"
	"github.com/codebugsleuth/bughunter/internal/store"
)

// trendDays is the fixed length of the daily trend series.
const trendDays = 30

// Overview is the admin dashboard summary.
type Overview struct {
	TotalUsers          int64   `json:"total_users"`
	ActiveSubscriptions int64   `json:"active_subscriptions"`
	TrialingUsers       int64   `json:"trialing_users"`
	MonthlyRevenue      float64 `json:"monthly_revenue"`
	TotalAnalyses       int64   `json:"total_analyses"`
	ConversionRate      float64 `json:"conversion_rate"`
}

// TrendPoint is one day in the usage trend series.
type TrendPoint struct {
	Date     string `json:"date"`
	Analyses int64  `json:"analyses"`
	NewUsers int64  `json:"new_users"`
}

// Service computes read-only admin aggregations.
type Service struct {
	db       *gorm.DB
	users    *store.UserStore
	payments *store.PaymentStore
	analyses *store.AnalysisStore
	now      func() time.Time
}

// NewService constructs an analytics Service over the shared stores.
func NewService(users *store.UserStore, payments *store.PaymentStore, analyses *store.AnalysisStore) *Service {
	return &Service{
		db:       users.DB(),
		users:    users,
		payments: payments,
		analyses: analyses,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Overview aggregates platform-wide totals. Conversion rate is the share of
// users on an active paid subscription, as a 0-100 percentage.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	var out Overview
	var err error

	if out.TotalUsers, err = s.users.CountAll(ctx); err != nil {
		return Overview{}, fmt.Errorf("analytics: count users: %w", err)
	}
	if out.ActiveSubscriptions, err = s.users.CountActivePaid(ctx); err != nil {
		return Overview{}, fmt.Errorf("analytics: count active subscriptions: %w", err)
	}
	if out.TrialingUsers, err = s.users.CountByStatus(ctx, models.StatusTrialing); err != nil {
		return Overview{}, fmt.Errorf("analytics: count trialing users: %w", err)
	}

	monthStart := s.monthStart()
	revenue, errRevenue := s.payments.SumCompleted(ctx, &monthStart)
	if errRevenue != nil {
		return Overview{}, fmt.Errorf("analytics: sum revenue: %w", errRevenue)
	}
	out.MonthlyRevenue = round2(revenue)

	if out.TotalAnalyses, err = s.analyses.CountAll(ctx, nil); err != nil {
		return Overview{}, fmt.Errorf("analytics: count analyses: %w", err)
	}

	if out.TotalUsers > 0 {
		out.ConversionRate = round2(float64(out.ActiveSubscriptions) / float64(out.TotalUsers) * 100)
	}
	return out, nil
}

// monthStart returns the first instant of the current calendar month.
func (s *Service) monthStart() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// dailyCount is one grouped-by-day row from the store.
type dailyCount struct {
	Day   string
	Count int64
}

// Trends returns exactly 30 consecutive daily entries, oldest first,
// covering the preceding 29 days plus today. Days without activity are
// zero-filled.
func (s *Service) Trends(ctx context.Context) ([]TrendPoint, error) {
	now := s.now()
	windowStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -(trendDays - 1))

	analysesByDay, errAnalyses := s.countPerDay(ctx, &models.AnalysisHistory{}, windowStart)
	if errAnalyses != nil {
		return nil, fmt.Errorf("analytics: analysis trend: %w", errAnalyses)
	}
	usersByDay, errUsers := s.countPerDay(ctx, &models.User{}, windowStart)
	if errUsers != nil {
		return nil, fmt.Errorf("analytics: signup trend: %w", errUsers)
	}

	points := make([]TrendPoint, 0, trendDays)
	for i := 0; i < trendDays; i++ {
		day := windowStart.AddDate(0, 0, i).Format("2006-01-02")
		points = append(points, TrendPoint{
			Date:     day,
			Analyses: analysesByDay[day],
			NewUsers: usersByDay[day],
		})
	}
	return points, nil
}

// countPerDay groups rows of one model by calendar day of created_at.
func (s *Service) countPerDay(ctx context.Context, model any, since time.Time) (map[string]int64, error) {
	dayExpr := db.DayExpr(s.db, "created_at")
	var rows []dailyCount
	errQuery := s.db.WithContext(ctx).Model(model).
		Select(dayExpr+" AS day, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group(dayExpr).
		Scan(&rows).Error
	if errQuery != nil {
		return nil, errQuery
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Day] = row.Count
	}
	return out, nil
}
