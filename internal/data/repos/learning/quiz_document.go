package learning

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/dbctx"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

// ErrBatchFull is returned when staging into a batch already at its ceiling.
var ErrBatchFull = errors.New("quiz patch batch is full")

const DefaultWriteCeiling = 500

type QuizDocumentRepo interface {
	Create(dbc dbctx.Context, rows []*types.QuizDocument) ([]*types.QuizDocument, error)
	GetByID(dbc dbctx.Context, id string) (*types.QuizDocument, error)
	// ListPage returns up to limit documents with id > afterID, ordered by id.
	ListPage(dbc dbctx.Context, afterID string, limit int) ([]*types.QuizDocument, error)
	NewBatch(ceiling int) QuizPatchBatch
}

// QuizPatchBatch stages patches and commits them in one transaction.
type QuizPatchBatch interface {
	Stage(p types.QuizPatch) error
	Len() int
	DocumentIDs() []string
	// Commit applies all staged patches atomically and empties the batch.
	// A document that gained an identifier list since it was read is left
	// alone and does not count as applied.
	Commit(dbc dbctx.Context) (int, error)
}

type quizDocumentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizDocumentRepo(db *gorm.DB, baseLog *logger.Logger) QuizDocumentRepo {
	return &quizDocumentRepo{
		db:  db,
		log: baseLog.With("repo", "QuizDocumentRepo"),
	}
}

func (r *quizDocumentRepo) Create(dbc dbctx.Context, rows []*types.QuizDocument) ([]*types.QuizDocument, error) {
	if len(rows) == 0 {
		return []*types.QuizDocument{}, nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row == nil {
			continue
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = now
		}
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *quizDocumentRepo) GetByID(dbc dbctx.Context, id string) (*types.QuizDocument, error) {
	if id == "" {
		return nil, nil
	}
	var rows []*types.QuizDocument
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *quizDocumentRepo) ListPage(dbc dbctx.Context, afterID string, limit int) ([]*types.QuizDocument, error) {
	out := []*types.QuizDocument{}
	if limit <= 0 {
		return out, nil
	}
	q := dbc.Conn(r.db)
	if afterID != "" {
		q = q.Where("id > ?", afterID)
	}
	if err := q.Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *quizDocumentRepo) NewBatch(ceiling int) QuizPatchBatch {
	if ceiling <= 0 {
		ceiling = DefaultWriteCeiling
	}
	return &quizPatchBatch{repo: r, ceiling: ceiling}
}

type quizPatchBatch struct {
	repo    *quizDocumentRepo
	ceiling int
	staged  []types.QuizPatch
}

func (b *quizPatchBatch) Stage(p types.QuizPatch) error {
	if p.DocumentID == "" {
		return fmt.Errorf("stage patch: missing document id")
	}
	if len(p.QuestionIDs) == 0 {
		return fmt.Errorf("stage patch %s: empty identifier list", p.DocumentID)
	}
	if len(b.staged) >= b.ceiling {
		return ErrBatchFull
	}
	b.staged = append(b.staged, p)
	return nil
}

func (b *quizPatchBatch) Len() int { return len(b.staged) }

func (b *quizPatchBatch) DocumentIDs() []string {
	out := make([]string, 0, len(b.staged))
	for _, p := range b.staged {
		out = append(out, p.DocumentID)
	}
	return out
}

func (b *quizPatchBatch) Commit(dbc dbctx.Context) (int, error) {
	if len(b.staged) == 0 {
		return 0, nil
	}
	staged := b.staged
	b.staged = nil

	applied := 0
	err := dbc.Conn(b.repo.db).Transaction(func(tx *gorm.DB) error {
		for _, p := range staged {
			ids, err := json.Marshal(p.QuestionIDs)
			if err != nil {
				return fmt.Errorf("encode question ids for %s: %w", p.DocumentID, err)
			}
			res := tx.Model(&types.QuizDocument{}).
				Where("id = ? AND question_ids IS NULL", p.DocumentID).
				Updates(map[string]interface{}{
					"question_ids":      datatypes.JSON(ids),
					"question_count":    p.QuestionCount,
					"questions":         nil,
					"migrated_at":       p.MigratedAt.UTC(),
					"migration_version": p.MigrationVersion,
					"updated_at":        p.MigratedAt.UTC(),
				})
			if res.Error != nil {
				return fmt.Errorf("patch %s: %w", p.DocumentID, res.Error)
			}
			applied += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return applied, nil
}
