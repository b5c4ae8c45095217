package models

import "time"

// Tier identifies a subscription level.
type Tier string

// Tier constants enumerate the fixed plan catalog.
const (
	// TierFree is the default, no-cost tier.
	TierFree Tier = "free"
	// TierBasic is the entry paid tier.
	TierBasic Tier = "basic"
	// TierPro is the unlimited-analysis paid tier.
	TierPro Tier = "pro"
	// TierEnterprise is the top paid tier.
	TierEnterprise Tier = "enterprise"
)

// SubscriptionStatus represents the lifecycle state of a user's subscription.
type SubscriptionStatus string

// SubscriptionStatus constants define subscription lifecycle states.
const (
	// StatusTrialing marks an account inside its free-trial window.
	StatusTrialing SubscriptionStatus = "trialing"
	// StatusActive marks a paying or free account in good standing.
	StatusActive SubscriptionStatus = "active"
	// StatusCancelled marks an account whose subscription was cancelled.
	StatusCancelled SubscriptionStatus = "cancelled"
	// StatusPastDue marks an account with a failed renewal payment.
	StatusPastDue SubscriptionStatus = "past_due"
)

// User represents a registered account with subscription and quota state.
type User struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID primary key.

	Email       string `gorm:"type:text;not null;uniqueIndex"` // Unique email address.
	Password    string `gorm:"type:text;not null"`             // Hashed password.
	DisplayName string `gorm:"type:text"`                      // Optional display name.
	IsAdmin     bool   `gorm:"not null;default:false"`         // Admin flag.

	Tier   Tier               `gorm:"type:varchar(32);not null;default:'free'"`     // Active plan tier.
	Status SubscriptionStatus `gorm:"type:varchar(32);not null;default:'trialing'"` // Subscription status.

	StripeCustomerID     string `gorm:"type:text;index"` // Stripe customer ID, empty until first checkout.
	StripeSubscriptionID string `gorm:"type:text"`       // Stripe subscription ID, empty until upgraded.

	QuotaUsed    int        `gorm:"not null;default:0"` // Analyses consumed this period.
	QuotaResetAt time.Time  `gorm:"not null"`           // Start of the current accounting period.
	TrialEndsAt  *time.Time // Trial deadline, nil once resolved.

	LastLoginAt *time.Time // Last successful login.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
