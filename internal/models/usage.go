package models

import (
	"time"

	"gorm.io/datatypes"
)

// UsageEvent is an append-only record of a quota-consuming action.
type UsageEvent struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID primary key.

	UserID string `gorm:"type:varchar(36);not null;index"` // Acting user ID.

	Action   string         `gorm:"type:varchar(64);not null"`        // Action kind, e.g. "code_analysis".
	Metadata datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Optional event metadata.

	CreatedAt time.Time `gorm:"not null;index;autoCreateTime"` // Event timestamp.
}
