package db

import (
	"fmt"

	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// =========================
		// Identity
		// =========================
		&types.User{},

		// =========================
		// Raw history (append-only inputs)
		// =========================
		&types.AttemptRecord{},
		&types.ExamProgress{},
		&types.QuizDocument{},

		// =========================
		// Derived views (safe to rebuild)
		// =========================
		&types.SubcategoryProgress{},
		&types.UserStatsCache{},
	); err != nil {
		return err
	}
	return EnsureProgressIndexes(db)
}

func EnsureProgressIndexes(db *gorm.DB) error {
	// Normalizer scans only need documents still carrying embedded questions.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_quiz_document_legacy
		ON quiz_document (id)
		WHERE question_ids IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_quiz_document_legacy: %w", err)
	}

	// Dashboard reads list a user's subcategories by recency.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_subcategory_progress_user_updated
		ON subcategory_progress (user_id, last_updated);
	`).Error; err != nil {
		return fmt.Errorf("create idx_subcategory_progress_user_updated: %w", err)
	}
	return nil
}
