package learning

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MinLevel = 1
	MaxLevel = 3
)

// SubcategoryProgress is a user's standing in one subcategory. It is derived
// entirely from that user's attempt history and can be replayed at any time.
type SubcategoryProgress struct {
	UserID        string `gorm:"column:user_id;type:varchar(128);primaryKey" json:"user_id"`
	SubcategoryID string `gorm:"column:subcategory_id;type:varchar(191);primaryKey" json:"subcategory_id"`

	Level          int                                 `gorm:"column:level;not null" json:"level"`
	Mastered       bool                                `gorm:"column:mastered;not null" json:"mastered"`
	ConceptMastery datatypes.JSONType[map[string]bool] `gorm:"column:concept_mastery" json:"concept_mastery"`
	RecentAccuracy float64                             `gorm:"column:recent_accuracy;not null" json:"recent_accuracy"`

	TotalAttempts        int     `gorm:"column:total_attempts;not null" json:"total_attempts"`
	CorrectCount         int     `gorm:"column:correct_count;not null" json:"correct_count"`
	Accuracy             float64 `gorm:"column:accuracy;not null" json:"accuracy"`
	AttemptsSinceLevelUp int     `gorm:"column:attempts_since_level_up;not null" json:"attempts_since_level_up"`

	LastUpdated time.Time `gorm:"column:last_updated;not null" json:"last_updated"`
}

func (SubcategoryProgress) TableName() string { return "subcategory_progress" }

// Concepts returns the concept mastery map, never nil.
func (p *SubcategoryProgress) Concepts() map[string]bool {
	if p == nil {
		return map[string]bool{}
	}
	m := p.ConceptMastery.Data()
	if m == nil {
		return map[string]bool{}
	}
	return m
}

// AllConceptsMastered reports whether every attempted concept is mastered.
// A subcategory with no tagged concepts is vacuously all-mastered.
func (p *SubcategoryProgress) AllConceptsMastered() bool {
	for _, ok := range p.Concepts() {
		if !ok {
			return false
		}
	}
	return true
}

// DeriveMastered recomputes Mastered from Level and ConceptMastery. Mastered is
// never set any other way.
func (p *SubcategoryProgress) DeriveMastered() {
	if p == nil {
		return
	}
	p.Mastered = p.Level == MaxLevel && p.AllConceptsMastered()
}
