package learning

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/dbctx"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

type UserStatsCacheRepo interface {
	Get(dbc dbctx.Context, userID string) (*types.UserStatsCache, error)
	// MergeUpsert writes only total_questions, accuracy and last_updated.
	MergeUpsert(dbc dbctx.Context, userID string, totalQuestions int, accuracy int, now time.Time) error
	ListUserIDs(dbc dbctx.Context, afterUserID string, limit int) ([]string, error)
	DeleteByUserIDs(dbc dbctx.Context, userIDs []string) (int64, error)
}

type userStatsCacheRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserStatsCacheRepo(db *gorm.DB, baseLog *logger.Logger) UserStatsCacheRepo {
	return &userStatsCacheRepo{
		db:  db,
		log: baseLog.With("repo", "UserStatsCacheRepo"),
	}
}

func (r *userStatsCacheRepo) Get(dbc dbctx.Context, userID string) (*types.UserStatsCache, error) {
	if userID == "" {
		return nil, nil
	}
	var rows []*types.UserStatsCache
	if err := dbc.Conn(r.db).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *userStatsCacheRepo) MergeUpsert(dbc dbctx.Context, userID string, totalQuestions int, accuracy int, now time.Time) error {
	if userID == "" {
		return nil
	}
	row := &types.UserStatsCache{
		UserID:         userID,
		TotalQuestions: totalQuestions,
		Accuracy:       accuracy,
		LastUpdated:    now.UTC(),
	}
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_questions", "accuracy", "last_updated"}),
		}).
		Create(row).Error
}

func (r *userStatsCacheRepo) ListUserIDs(dbc dbctx.Context, afterUserID string, limit int) ([]string, error) {
	out := []string{}
	if limit <= 0 {
		return out, nil
	}
	q := dbc.Conn(r.db).Model(&types.UserStatsCache{})
	if afterUserID != "" {
		q = q.Where("user_id > ?", afterUserID)
	}
	if err := q.Order("user_id ASC").Limit(limit).Pluck("user_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userStatsCacheRepo) DeleteByUserIDs(dbc dbctx.Context, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	res := dbc.Conn(r.db).
		Where("user_id IN ?", userIDs).
		Delete(&types.UserStatsCache{})
	return res.RowsAffected, res.Error
}
