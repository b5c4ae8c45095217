package db

import (
	"fmt"

	"github.com/codebugsleuth/bughunter/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.PaymentRecord{},
		&models.UsageEvent{},
		&models.AnalysisResult{},
		&models.AnalysisHistory{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	// ddl defines an index statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_users_status_tier",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_users_status_tier
				ON users (status, tier)
			`,
		},
		{
			name: "idx_payment_records_user_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_payment_records_user_id_created_at
				ON payment_records (user_id, created_at DESC)
			`,
		},
		{
			name: "idx_payment_records_status_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_payment_records_status_created_at
				ON payment_records (status, created_at DESC)
			`,
		},
		{
			name: "idx_usage_events_user_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_usage_events_user_id_created_at
				ON usage_events (user_id, created_at DESC)
			`,
		},
		{
			name: "idx_analysis_histories_user_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_analysis_histories_user_id_created_at
				ON analysis_histories (user_id, created_at DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	return nil
}
