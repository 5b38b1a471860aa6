package learning

import (
	"time"

	"github.com/google/uuid"
)

// ExamProgress marks that a user completed a practice exam. It is tracked as
// one unit per exam and carries no per-question correctness.
type ExamProgress struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string    `gorm:"column:user_id;type:varchar(128);not null;uniqueIndex:idx_exam_progress_user_exam,priority:1" json:"user_id"`
	ExamID      string    `gorm:"column:exam_id;not null;uniqueIndex:idx_exam_progress_user_exam,priority:2" json:"exam_id"`
	CompletedAt time.Time `gorm:"column:completed_at;not null" json:"completed_at"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (ExamProgress) TableName() string { return "exam_progress" }
