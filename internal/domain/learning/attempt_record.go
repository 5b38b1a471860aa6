package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AttemptRecord is one answered question. Rows are append-only: nothing in the
// progress engine updates or deletes them.
type AttemptRecord struct {
	ID            uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        string                      `gorm:"column:user_id;type:varchar(128);not null;index:idx_attempt_user_time,priority:1;index:idx_attempt_user_subcategory,priority:1" json:"user_id"`
	QuestionID    string                      `gorm:"column:question_id;not null" json:"question_id"`
	SubcategoryID string                      `gorm:"column:subcategory_id;not null;index:idx_attempt_user_subcategory,priority:2" json:"subcategory_id"`
	ConceptIDs    datatypes.JSONSlice[string] `gorm:"column:concept_ids" json:"concept_ids"`
	IsCorrect     bool                        `gorm:"column:is_correct;not null" json:"is_correct"`
	AnsweredAt    time.Time                   `gorm:"column:answered_at;not null;index:idx_attempt_user_time,priority:2" json:"timestamp"`
	CreatedAt     time.Time                   `gorm:"not null" json:"created_at"`
}

func (AttemptRecord) TableName() string { return "attempt_record" }

// Concepts returns the distinct, non-empty concept ids in tag order.
func (a *AttemptRecord) Concepts() []string {
	if a == nil || len(a.ConceptIDs) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(a.ConceptIDs))
	out := make([]string, 0, len(a.ConceptIDs))
	for _, c := range a.ConceptIDs {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
