package user

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/dbctx"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	GetByIDs(dbc dbctx.Context, userIDs []string) ([]*types.User, error)
	// ListIDs pages through user ids in ascending order, starting after afterID.
	ListIDs(dbc dbctx.Context, afterID string, limit int) ([]string, error)
	ListAllIDs(dbc dbctx.Context) ([]string, error)
	// EnsureIDs inserts a bare row for every id not yet known. Existing rows
	// are left untouched.
	EnsureIDs(dbc dbctx.Context, userIDs []string) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

const listAllPage = 1000

func (ur *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	now := time.Now().UTC()
	for _, u := range users {
		if u == nil {
			continue
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		if u.UpdatedAt.IsZero() {
			u.UpdatedAt = now
		}
	}
	if err := dbc.Conn(ur.db).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (ur *userRepo) GetByIDs(dbc dbctx.Context, userIDs []string) ([]*types.User, error) {
	var results []*types.User
	if len(userIDs) == 0 {
		return results, nil
	}
	if err := dbc.Conn(ur.db).
		Where("id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) ListIDs(dbc dbctx.Context, afterID string, limit int) ([]string, error) {
	out := []string{}
	if limit <= 0 {
		return out, nil
	}
	q := dbc.Conn(ur.db).Model(&types.User{})
	if afterID != "" {
		q = q.Where("id > ?", afterID)
	}
	if err := q.Order("id ASC").Limit(limit).Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (ur *userRepo) ListAllIDs(dbc dbctx.Context) ([]string, error) {
	all := []string{}
	after := ""
	for {
		page, err := ur.ListIDs(dbc, after, listAllPage)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < listAllPage {
			return all, nil
		}
		after = page[len(page)-1]
	}
}

func (ur *userRepo) EnsureIDs(dbc dbctx.Context, userIDs []string) error {
	now := time.Now().UTC()
	rows := make([]*types.User, 0, len(userIDs))
	seen := map[string]struct{}{}
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, &types.User{ID: id, CreatedAt: now, UpdatedAt: now})
	}
	if len(rows) == 0 {
		return nil
	}
	return dbc.Conn(ur.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&rows).Error
}
