package models

import (
	"time"

	"gorm.io/datatypes"
)

// AnalysisResult stores the full output of one code analysis.
type AnalysisResult struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID primary key.

	UserID string `gorm:"type:varchar(36);not null;index"` // Owning user ID.

	FileName     string `gorm:"type:text"`                 // Original file name, "text_input" for pasted code.
	FileType     string `gorm:"type:varchar(32);not null"` // Language identifier.
	AnalysisType string `gorm:"type:varchar(32);not null"` // Requested analysis type.

	Issues      datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Detected issues list.
	Suggestions datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Improvement suggestions list.

	SecurityScore    int    `gorm:"not null;default:0"` // Security score 0-100.
	CodeQualityScore int    `gorm:"not null;default:0"` // Quality score 0-100.
	Summary          string `gorm:"type:text"`          // Analysis summary text.

	ModelUsed        string  `gorm:"type:varchar(64)"` // Model identifier or "pattern-matcher".
	ProcessingTimeMS float64 `gorm:"not null;default:0"` // Wall-clock processing time.

	CreatedAt time.Time `gorm:"not null;index;autoCreateTime"` // Analysis timestamp.
}

// AnalysisHistory is the lightweight index row shown in the history listing.
type AnalysisHistory struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID primary key.

	UserID string `gorm:"type:varchar(36);not null;index"` // Owning user ID.

	FileName     string `gorm:"type:text"`                 // Original file name.
	FileType     string `gorm:"type:varchar(32);not null"` // Language identifier.
	AnalysisType string `gorm:"type:varchar(32);not null"` // Requested analysis type.

	ResultID string `gorm:"type:varchar(36);not null;index"` // Related AnalysisResult ID.
	Status   string `gorm:"type:varchar(16);not null"`       // Processing status, "completed" on success.

	CreatedAt time.Time `gorm:"not null;index;autoCreateTime"` // Entry timestamp.
}
