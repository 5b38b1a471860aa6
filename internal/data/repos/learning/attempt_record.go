package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/dbctx"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

type AttemptRecordRepo interface {
	Create(dbc dbctx.Context, rows []*types.AttemptRecord) ([]*types.AttemptRecord, error)
	ListByUser(dbc dbctx.Context, userID string) ([]*types.AttemptRecord, error)
	ListByUserAndSubcategory(dbc dbctx.Context, userID string, subcategoryID string) ([]*types.AttemptRecord, error)
}

type attemptRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttemptRecordRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRecordRepo {
	return &attemptRecordRepo{
		db:  db,
		log: baseLog.With("repo", "AttemptRecordRepo"),
	}
}

// chronological is the only order windowed accuracy is defined for.
const chronological = "answered_at ASC, created_at ASC, id ASC"

func (r *attemptRecordRepo) Create(dbc dbctx.Context, rows []*types.AttemptRecord) ([]*types.AttemptRecord, error) {
	if len(rows) == 0 {
		return []*types.AttemptRecord{}, nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row == nil {
			continue
		}
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if row.AnsweredAt.IsZero() {
			row.AnsweredAt = now
		}
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *attemptRecordRepo) ListByUser(dbc dbctx.Context, userID string) ([]*types.AttemptRecord, error) {
	out := []*types.AttemptRecord{}
	if userID == "" {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("user_id = ?", userID).
		Order(chronological).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *attemptRecordRepo) ListByUserAndSubcategory(dbc dbctx.Context, userID string, subcategoryID string) ([]*types.AttemptRecord, error) {
	out := []*types.AttemptRecord{}
	if userID == "" || subcategoryID == "" {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("user_id = ? AND subcategory_id = ?", userID, subcategoryID).
		Order(chronological).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
