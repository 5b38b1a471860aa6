package learning

import "time"

// UserStatsCache is the materialized dashboard summary for one user. It is a
// view over AttemptRecord + ExamProgress and is always safe to drop and rebuild.
type UserStatsCache struct {
	UserID         string    `gorm:"column:user_id;type:varchar(128);primaryKey" json:"user_id"`
	TotalQuestions int       `gorm:"column:total_questions;not null" json:"total_questions"`
	Accuracy       int       `gorm:"column:accuracy;not null" json:"accuracy"`
	LastUpdated    time.Time `gorm:"column:last_updated;not null" json:"last_updated"`
}

func (UserStatsCache) TableName() string { return "user_stats_cache" }
