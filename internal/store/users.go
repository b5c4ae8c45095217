package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codebugsleuth/bughunter/internal/db"
	"github.com/codebugsleuth/bughunter/internal/models"
	"github.com/codebugsleuth/bughunter/internal/plans"
)

// ErrUserNotFound indicates no user matched the lookup.
var ErrUserNotFound = errors.New("store: user not found")

// ErrEmailTaken indicates the email is already registered.
var ErrEmailTaken = errors.New("store: email already registered")

// TrialDuration is the free trial window granted to new accounts.
const TrialDuration = 7 * 24 * time.Hour

// UserStore persists user accounts via GORM.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore constructs a UserStore.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// DB exposes the underlying connection for cross-store transactions.
func (s *UserStore) DB() *gorm.DB {
	return s.db
}

// Create registers a new user on the free tier with a trial window.
func (s *UserStore) Create(ctx context.Context, email, passwordHash, displayName string, isAdmin bool) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("store: create user: empty email")
	}

	var existing int64
	if errCount := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; errCount != nil {
		return nil, fmt.Errorf("store: check email: %w", errCount)
	}
	if existing > 0 {
		return nil, ErrEmailTaken
	}

	now := time.Now().UTC()
	trialEnds := now.Add(TrialDuration)
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Password:     passwordHash,
		DisplayName:  displayName,
		IsAdmin:      isAdmin,
		Tier:         models.TierFree,
		Status:       models.StatusTrialing,
		QuotaUsed:    0,
		QuotaResetAt: now,
		TrialEndsAt:  &trialEnds,
	}
	if errCreate := s.db.WithContext(ctx).Create(user).Error; errCreate != nil {
		return nil, fmt.Errorf("store: create user: %w", errCreate)
	}
	return user, nil
}

// ByID fetches a user by primary key.
func (s *UserStore) ByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	errFind := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: find user: %w", errFind)
	}
	return &user, nil
}

// ByEmail fetches a user by email, case insensitively.
func (s *UserStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	errFind := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: find user by email: %w", errFind)
	}
	return &user, nil
}

// ByStripeCustomer fetches a user by its Stripe customer ID.
func (s *UserStore) ByStripeCustomer(ctx context.Context, customerID string) (*models.User, error) {
	if customerID == "" {
		return nil, ErrUserNotFound
	}
	var user models.User
	errFind := s.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: find user by stripe customer: %w", errFind)
	}
	return &user, nil
}

// Save persists all fields of a loaded user.
func (s *UserStore) Save(ctx context.Context, user *models.User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("store: save user: missing id")
	}
	if errSave := s.db.WithContext(ctx).Save(user).Error; errSave != nil {
		return fmt.Errorf("store: save user: %w", errSave)
	}
	return nil
}

// TouchLastLogin records a successful login timestamp.
func (s *UserStore) TouchLastLogin(ctx context.Context, id string) error {
	now := time.Now().UTC()
	errUpdate := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login_at", &now).Error
	if errUpdate != nil {
		return fmt.Errorf("store: touch last login: %w", errUpdate)
	}
	return nil
}

// CountByStatus counts users holding the given subscription status.
func (s *UserStore) CountByStatus(ctx context.Context, status models.SubscriptionStatus) (int64, error) {
	var n int64
	errCount := s.db.WithContext(ctx).Model(&models.User{}).Where("status = ?", status).Count(&n).Error
	if errCount != nil {
		return 0, fmt.Errorf("store: count users by status: %w", errCount)
	}
	return n, nil
}

// CountAll counts every registered user.
func (s *UserStore) CountAll(ctx context.Context) (int64, error) {
	var n int64
	errCount := s.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	if errCount != nil {
		return 0, fmt.Errorf("store: count users: %w", errCount)
	}
	return n, nil
}

// CountActivePaid counts users with an active subscription on a paid tier.
func (s *UserStore) CountActivePaid(ctx context.Context) (int64, error) {
	var n int64
	errCount := s.db.WithContext(ctx).Model(&models.User{}).
		Where("status = ? AND tier <> ?", models.StatusActive, models.TierFree).
		Count(&n).Error
	if errCount != nil {
		return 0, fmt.Errorf("store: count active paid users: %w", errCount)
	}
	return n, nil
}

// SearchByEmail lists users whose email contains the query, newest first.
// An empty query lists the most recent accounts.
func (s *UserStore) SearchByEmail(ctx context.Context, query string, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	scope := s.db.WithContext(ctx).Model(&models.User{})
	if trimmed := strings.TrimSpace(query); trimmed != "" {
		pattern := db.NormalizeLikePattern(s.db, "%"+trimmed+"%")
		scope = scope.Where(db.CaseInsensitiveLikeExpr(s.db, "email"), pattern)
	}
	var users []models.User
	errFind := scope.Order("created_at DESC").Limit(limit).Find(&users).Error
	if errFind != nil {
		return nil, fmt.Errorf("store: search users: %w", errFind)
	}
	return users, nil
}

// ConsumeQuota atomically increments quota usage while below the limit.
// It returns false when the user is already at or above the limit, so two
// concurrent calls near the boundary can never both succeed.
func (s *UserStore) ConsumeQuota(ctx context.Context, id string, limit int) (bool, error) {
	if limit == plans.UnlimitedQuota {
		errUpdate := s.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", id).
			Update("quota_used", gorm.Expr("quota_used + 1")).Error
		if errUpdate != nil {
			return false, fmt.Errorf("store: consume quota: %w", errUpdate)
		}
		return true, nil
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND quota_used < ?", id, limit).
		Update("quota_used", gorm.Expr("quota_used + 1"))
	if result.Error != nil {
		return false, fmt.Errorf("store: consume quota: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ResetQuota zeroes the usage counter and stamps the reset time.
func (s *UserStore) ResetQuota(ctx context.Context, id string, at time.Time) error {
	errUpdate := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"quota_used": 0, "quota_reset_at": at.UTC()}).Error
	if errUpdate != nil {
		return fmt.Errorf("store: reset quota: %w", errUpdate)
	}
	return nil
}
