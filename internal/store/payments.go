package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codebugsleuth/bughunter/internal/models"
)

// ErrPaymentNotFound indicates no payment record matched the lookup.
var ErrPaymentNotFound = errors.New("store: payment not found")

// PaymentStore persists payment records via GORM.
type PaymentStore struct {
	db *gorm.DB
}

// NewPaymentStore constructs a PaymentStore.
func NewPaymentStore(db *gorm.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

// CreatePending records a newly started checkout as a pending payment.
func (s *PaymentStore) CreatePending(ctx context.Context, userID, sessionID, description string, amount float64) (*models.PaymentRecord, error) {
	record := &models.PaymentRecord{
		ID:              uuid.NewString(),
		UserID:          userID,
		StripeSessionID: sessionID,
		Amount:          amount,
		Currency:        "usd",
		Status:          models.PaymentStatusPending,
		Description:     description,
	}
	if errCreate := s.db.WithContext(ctx).Create(record).Error; errCreate != nil {
		return nil, fmt.Errorf("store: create payment: %w", errCreate)
	}
	return record, nil
}

// BySessionID fetches a payment record by its Stripe checkout session ID.
func (s *PaymentStore) BySessionID(ctx context.Context, sessionID string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	errFind := s.db.WithContext(ctx).Where("stripe_session_id = ?", sessionID).First(&record).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("store: find payment: %w", errFind)
	}
	return &record, nil
}

// MarkCompleted transitions a pending payment to completed. The conditional
// update makes replayed webhook deliveries a no-op.
func (s *PaymentStore) MarkCompleted(ctx context.Context, sessionID string) (bool, error) {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.PaymentRecord{}).
		Where("stripe_session_id = ? AND status = ?", sessionID, models.PaymentStatusPending).
		Updates(map[string]any{"status": models.PaymentStatusCompleted, "completed_at": &now})
	if result.Error != nil {
		return false, fmt.Errorf("store: complete payment: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkFailed transitions a pending payment to failed.
func (s *PaymentStore) MarkFailed(ctx context.Context, sessionID string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.PaymentRecord{}).
		Where("stripe_session_id = ? AND status = ?", sessionID, models.PaymentStatusPending).
		Update("status", models.PaymentStatusFailed)
	if result.Error != nil {
		return false, fmt.Errorf("store: fail payment: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListByUser returns a user's payments, newest first.
func (s *PaymentStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.PaymentRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []models.PaymentRecord
	errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if errFind != nil {
		return nil, fmt.Errorf("store: list payments: %w", errFind)
	}
	return records, nil
}

// SumCompleted totals all completed payments, optionally since a cutoff.
func (s *PaymentStore) SumCompleted(ctx context.Context, since *time.Time) (float64, error) {
	query := s.db.WithContext(ctx).Model(&models.PaymentRecord{}).
		Where("status = ?", models.PaymentStatusCompleted)
	if since != nil {
		query = query.Where("created_at >= ?", since.UTC())
	}
	var total float64
	errSum := query.Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	if errSum != nil {
		return 0, fmt.Errorf("store: sum payments: %w", errSum)
	}
	return total, nil
}
