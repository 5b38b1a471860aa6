package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/dbctx"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

type ExamProgressRepo interface {
	// Record stores a completion once per (user, exam); repeats are no-ops.
	Record(dbc dbctx.Context, row *types.ExamProgress) error
	CountByUser(dbc dbctx.Context, userID string) (int, error)
}

type examProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExamProgressRepo(db *gorm.DB, baseLog *logger.Logger) ExamProgressRepo {
	return &examProgressRepo{
		db:  db,
		log: baseLog.With("repo", "ExamProgressRepo"),
	}
}

func (r *examProgressRepo) Record(dbc dbctx.Context, row *types.ExamProgress) error {
	if row == nil || row.UserID == "" || row.ExamID == "" {
		return nil
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.CompletedAt.IsZero() {
		row.CompletedAt = now
	}
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "exam_id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *examProgressRepo) CountByUser(dbc dbctx.Context, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}
	var n int64
	if err := dbc.Conn(r.db).
		Model(&types.ExamProgress{}).
		Where("user_id = ?", userID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}
