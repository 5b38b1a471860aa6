package learning

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/dbctx"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

type SubcategoryProgressRepo interface {
	Get(dbc dbctx.Context, userID string, subcategoryID string) (*types.SubcategoryProgress, error)
	ListByUser(dbc dbctx.Context, userID string) ([]*types.SubcategoryProgress, error)
	Upsert(dbc dbctx.Context, rows []*types.SubcategoryProgress) error
}

type subcategoryProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubcategoryProgressRepo(db *gorm.DB, baseLog *logger.Logger) SubcategoryProgressRepo {
	return &subcategoryProgressRepo{
		db:  db,
		log: baseLog.With("repo", "SubcategoryProgressRepo"),
	}
}

func (r *subcategoryProgressRepo) Get(dbc dbctx.Context, userID string, subcategoryID string) (*types.SubcategoryProgress, error) {
	if userID == "" || subcategoryID == "" {
		return nil, nil
	}
	var rows []*types.SubcategoryProgress
	if err := dbc.Conn(r.db).
		Where("user_id = ? AND subcategory_id = ?", userID, subcategoryID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *subcategoryProgressRepo) ListByUser(dbc dbctx.Context, userID string) ([]*types.SubcategoryProgress, error) {
	out := []*types.SubcategoryProgress{}
	if userID == "" {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("user_id = ?", userID).
		Order("subcategory_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *subcategoryProgressRepo) Upsert(dbc dbctx.Context, rows []*types.SubcategoryProgress) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "subcategory_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"level", "mastered", "concept_mastery", "recent_accuracy",
				"total_attempts", "correct_count", "accuracy", "attempts_since_level_up",
				"last_updated",
			}),
		}).
		Create(&rows).Error
}
