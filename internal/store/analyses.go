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

// ErrAnalysisNotFound indicates no analysis matched the lookup.
var ErrAnalysisNotFound = errors.New("store: analysis not found")

// AnalysisStore persists analysis results and their history trail.
type AnalysisStore struct {
	db *gorm.DB
}

// NewAnalysisStore constructs an AnalysisStore.
func NewAnalysisStore(db *gorm.DB) *AnalysisStore {
	return &AnalysisStore{db: db}
}

// SaveResult stores a finished analysis and its history entry in one
// transaction.
func (s *AnalysisStore) SaveResult(ctx context.Context, result *models.AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("store: save analysis: nil result")
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(result).Error; errCreate != nil {
			return errCreate
		}
		history := &models.AnalysisHistory{
			ID:           uuid.NewString(),
			UserID:       result.UserID,
			FileName:     result.FileName,
			FileType:     result.FileType,
			AnalysisType: result.AnalysisType,
			ResultID:     result.ID,
			Status:       "completed",
		}
		return tx.Create(history).Error
	})
	if errTx != nil {
		return fmt.Errorf("store: save analysis: %w", errTx)
	}
	return nil
}

// ResultByID fetches an analysis result scoped to its owner.
func (s *AnalysisStore) ResultByID(ctx context.Context, userID, resultID string) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	errFind := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", resultID, userID).
		First(&result).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("store: find analysis: %w", errFind)
	}
	return &result, nil
}

// HistoryByUser returns a user's analysis history, newest first.
func (s *AnalysisStore) HistoryByUser(ctx context.Context, userID string, limit int) ([]models.AnalysisHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.AnalysisHistory
	errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if errFind != nil {
		return nil, fmt.Errorf("store: list analysis history: %w", errFind)
	}
	return entries, nil
}

// CountAll counts every recorded analysis, optionally since a cutoff.
func (s *AnalysisStore) CountAll(ctx context.Context, since *time.Time) (int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AnalysisHistory{})
	if since != nil {
		query = query.Where("created_at >= ?", since.UTC())
	}
	var n int64
	if errCount := query.Count(&n).Error; errCount != nil {
		return 0, fmt.Errorf("store: count analyses: %w", errCount)
	}
	return n, nil
}
