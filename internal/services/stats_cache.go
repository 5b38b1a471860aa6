package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kocahmet1/ultrasat-progress/internal/data/cache"
	"github.com/kocahmet1/ultrasat-progress/internal/data/repos"
	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/apperr"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/dbctx"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

type CacheOutcome string

const (
	CacheCreated CacheOutcome = "created"
	CacheUpdated CacheOutcome = "updated"
	CacheSkipped CacheOutcome = "skipped"
)

type StatsCacheWriter interface {
	// Write stores the summary for userID. totalQuestions == 0 writes nothing
	// and leaves any existing record as it is.
	Write(ctx context.Context, userID string, totalQuestions, accuracy int, now time.Time) (CacheOutcome, error)
	// Read prefers the Redis mirror and falls back to the stored record.
	Read(ctx context.Context, userID string) (*types.UserStatsCache, error)
	// DeleteAll removes every cache record, ceiling records per transaction.
	DeleteAll(ctx context.Context, ceiling int) (int, error)
}

type statsCacheWriter struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.UserStatsCacheRepo
	mirror cache.StatsMirror
}

// NewStatsCacheWriter accepts a nil mirror.
func NewStatsCacheWriter(db *gorm.DB, log *logger.Logger, repo repos.UserStatsCacheRepo, mirror cache.StatsMirror) StatsCacheWriter {
	return &statsCacheWriter{
		db:     db,
		log:    log.With("service", "StatsCacheWriter"),
		repo:   repo,
		mirror: mirror,
	}
}

func (w *statsCacheWriter) Write(ctx context.Context, userID string, totalQuestions, accuracy int, now time.Time) (CacheOutcome, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", apperr.Validation("stats cache write", "missing user id")
	}
	if totalQuestions < 0 || accuracy < 0 || accuracy > 100 {
		return "", apperr.Validation("stats cache write", fmt.Sprintf("out of range values total=%d accuracy=%d", totalQuestions, accuracy))
	}
	if totalQuestions == 0 {
		return CacheSkipped, nil
	}

	dbc := dbctx.With(ctx)
	existing, err := w.repo.Get(dbc, userID)
	if err != nil {
		return "", apperr.Wrap(apperr.Classify(err), "stats cache lookup", err)
	}
	if err := w.repo.MergeUpsert(dbc, userID, totalQuestions, accuracy, now); err != nil {
		return "", apperr.Wrap(apperr.Classify(err), "stats cache upsert", err)
	}

	if w.mirror != nil {
		row := &types.UserStatsCache{UserID: userID, TotalQuestions: totalQuestions, Accuracy: accuracy, LastUpdated: now.UTC()}
		if err := w.mirror.Set(ctx, row); err != nil {
			// A stale hash would shadow the new row on Read; drop it.
			w.log.Warn("stats mirror write failed; invalidating", "user_id", userID, "error", err)
			if delErr := w.mirror.DeleteMany(ctx, []string{userID}); delErr != nil {
				w.log.Error("stats mirror invalidate failed", "user_id", userID, "error", delErr)
			}
		}
	}

	if existing == nil {
		return CacheCreated, nil
	}
	return CacheUpdated, nil
}

func (w *statsCacheWriter) Read(ctx context.Context, userID string) (*types.UserStatsCache, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.Validation("stats cache read", "missing user id")
	}
	if w.mirror != nil {
		row, err := w.mirror.Get(ctx, userID)
		if err != nil {
			w.log.Warn("stats mirror read failed; falling back", "user_id", userID, "error", err)
		} else if row != nil {
			return row, nil
		}
	}

	row, err := w.repo.Get(dbctx.With(ctx), userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Classify(err), "stats cache read", err)
	}
	if row != nil && w.mirror != nil {
		if err := w.mirror.Set(ctx, row); err != nil {
			w.log.Warn("stats mirror backfill failed", "user_id", userID, "error", err)
		}
	}
	return row, nil
}

func (w *statsCacheWriter) DeleteAll(ctx context.Context, ceiling int) (int, error) {
	if ceiling <= 0 {
		ceiling = repos.DefaultWriteCeiling
	}
	deleted := 0
	after := ""
	for {
		ids, err := w.repo.ListUserIDs(dbctx.With(ctx), after, ceiling)
		if err != nil {
			return deleted, apperr.Wrap(apperr.Classify(err), "list stats cache", err)
		}
		if len(ids) == 0 {
			return deleted, nil
		}

		var n int64
		if err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var txErr error
			n, txErr = w.repo.DeleteByUserIDs(dbctx.Context{Ctx: ctx, Tx: tx}, ids)
			return txErr
		}); err != nil {
			return deleted, apperr.Wrap(apperr.Classify(err), "delete stats cache batch", err)
		}
		deleted += int(n)

		if w.mirror != nil {
			if err := w.mirror.DeleteMany(ctx, ids); err != nil {
				w.log.Warn("stats mirror delete failed", "count", len(ids), "error", err)
			}
		}
		w.log.Debug("deleted stats cache batch", "count", n)

		if len(ids) < ceiling {
			return deleted, nil
		}
		after = ids[len(ids)-1]
	}
}
