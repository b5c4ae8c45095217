package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codebugsleuth/bughunter/internal/models"
)

// UsageStore persists usage events via GORM.
type UsageStore struct {
	db *gorm.DB
}

// NewUsageStore constructs a UsageStore.
func NewUsageStore(db *gorm.DB) *UsageStore {
	return &UsageStore{db: db}
}

// Append records a usage event with optional metadata.
func (s *UsageStore) Append(ctx context.Context, userID, action string, metadata map[string]any) error {
	payload := datatypes.JSON([]byte("{}"))
	if len(metadata) > 0 {
		raw, errMarshal := json.Marshal(metadata)
		if errMarshal != nil {
			return fmt.Errorf("store: marshal usage metadata: %w", errMarshal)
		}
		payload = datatypes.JSON(raw)
	}
	event := &models.UsageEvent{
		ID:       uuid.NewString(),
		UserID:   userID,
		Action:   action,
		Metadata: payload,
	}
	if errCreate := s.db.WithContext(ctx).Create(event).Error; errCreate != nil {
		return fmt.Errorf("store: append usage event: %w", errCreate)
	}
	return nil
}

// ListByUser returns a user's usage events, newest first.
func (s *UsageStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.UsageEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []models.UsageEvent
	errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if errFind != nil {
		return nil, fmt.Errorf("store: list usage events: %w", errFind)
	}
	return events, nil
}
