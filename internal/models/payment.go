package models

import "time"

// PaymentStatus represents the lifecycle state of a payment attempt.
type PaymentStatus string

// PaymentStatus constants define payment lifecycle states.
const (
	// PaymentStatusPending marks a payment awaiting provider confirmation.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusCompleted marks a confirmed payment.
	PaymentStatusCompleted PaymentStatus = "completed"
	// PaymentStatusFailed marks a failed or expired payment.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusRefunded marks a refunded payment.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentRecord tracks a single billing attempt against Stripe.
type PaymentRecord struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID primary key.

	UserID string `gorm:"type:varchar(36);not null;index"` // Owning user ID.

	StripeSessionID string `gorm:"type:text;index"` // Stripe Checkout session ID.

	Amount   float64 `gorm:"type:decimal(10,2);not null;default:0"`  // Charge amount.
	Currency string  `gorm:"type:varchar(8);not null;default:'usd'"` // ISO currency code.

	Status      PaymentStatus `gorm:"type:varchar(16);not null;default:'pending'"` // Current payment status.
	Description string        `gorm:"type:text"`                                   // Human-readable description.

	CreatedAt   time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
	CompletedAt *time.Time // Confirmation timestamp, nil while pending.
}
