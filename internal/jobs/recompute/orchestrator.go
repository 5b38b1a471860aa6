package recompute

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/kocahmet1/ultrasat-progress/internal/modules/progress"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/dbctx"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
	"github.com/kocahmet1/ultrasat-progress/internal/services"
)

var tracer = otel.Tracer("github.com/kocahmet1/ultrasat-progress/internal/jobs/recompute")

type Mode string

const (
	// ModeInitialize recomputes every user over whatever cache already exists.
	ModeInitialize Mode = "initialize"
	// ModeRecreate drops every cache record first. Use it after the
	// aggregation rules change.
	ModeRecreate Mode = "recreate"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeInitialize, ModeRecreate:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown recompute mode %q (want %s or %s)", s, ModeInitialize, ModeRecreate)
	}
}

type UserLister interface {
	ListAllIDs(dbc dbctx.Context) ([]string, error)
}

type UserRecomputer interface {
	RecomputeUser(ctx context.Context, userID string) (services.RecomputeResult, error)
}

type CacheResetter interface {
	DeleteAll(ctx context.Context, ceiling int) (int, error)
}

type Config struct {
	BatchSize     int
	Pause         time.Duration
	DeleteCeiling int
}

func ConfigFromPolicy(p progress.Policy) Config {
	return Config{
		BatchSize:     p.RecomputeBatchSize,
		Pause:         p.RecomputePause,
		DeleteCeiling: p.WriteCeiling,
	}
}

// Summary is emitted at the end of every run, whatever the mode.
type Summary struct {
	Mode         Mode              `json:"mode"`
	Users        int               `json:"users"`
	Processed    int               `json:"processed"`
	Created      int               `json:"created"`
	Updated      int               `json:"updated"`
	Skipped      int               `json:"skipped"`
	Errors       int               `json:"errors"`
	ErrorReasons map[string]string `json:"error_reasons,omitempty"`
	Deleted      int               `json:"deleted"`
	Batches      int               `json:"batches"`
	Interrupted  bool              `json:"interrupted"`
	Duration     time.Duration     `json:"duration"`
}

func (s *Summary) fail(userID, reason string) {
	s.Errors++
	if s.ErrorReasons == nil {
		s.ErrorReasons = map[string]string{}
	}
	s.ErrorReasons[userID] = reason
}

type Orchestrator struct {
	log   *logger.Logger
	users UserLister
	rec   UserRecomputer
	cache CacheResetter
	cfg   Config
	sleep func(ctx context.Context, d time.Duration) bool
}

func NewOrchestrator(log *logger.Logger, users UserLister, rec UserRecomputer, cache CacheResetter, cfg Config) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.DeleteCeiling <= 0 {
		cfg.DeleteCeiling = 500
	}
	return &Orchestrator{
		log:   log.With("job", "RecomputeOrchestrator"),
		users: users,
		rec:   rec,
		cache: cache,
		cfg:   cfg,
		sleep: sleepCtx,
	}
}

// Run recomputes every user in fixed-size batches. Users inside a batch run
// concurrently; batches run one after another with a pause in between.
// Cancellation is honored between batches only: a started batch always
// finishes. The returned error covers setup-level failures (listing users,
// clearing the cache); per-user failures land in the summary.
func (o *Orchestrator) Run(ctx context.Context, mode Mode) (Summary, error) {
	ctx, span := tracer.Start(ctx, "recompute.run")
	defer span.End()

	start := time.Now()
	sum := Summary{Mode: mode}
	finish := func() {
		sum.Duration = time.Since(start)
		span.SetAttributes(
			attribute.String("recompute.mode", string(mode)),
			attribute.Int("recompute.processed", sum.Processed),
			attribute.Int("recompute.errors", sum.Errors),
			attribute.Bool("recompute.interrupted", sum.Interrupted),
		)
	}

	switch mode {
	case ModeInitialize:
	case ModeRecreate:
		deleted, err := o.cache.DeleteAll(ctx, o.cfg.DeleteCeiling)
		sum.Deleted = deleted
		if err != nil {
			finish()
			return sum, fmt.Errorf("clear stats cache: %w", err)
		}
		o.log.Info("stats cache cleared", "deleted", deleted)
	default:
		return sum, fmt.Errorf("unknown recompute mode %q", mode)
	}

	ids, err := o.users.ListAllIDs(dbctx.With(ctx))
	if err != nil {
		finish()
		return sum, fmt.Errorf("list users: %w", err)
	}
	sum.Users = len(ids)
	o.log.Info("recompute started", "mode", mode, "users", len(ids), "batch_size", o.cfg.BatchSize)

	for offset := 0; offset < len(ids); offset += o.cfg.BatchSize {
		if offset > 0 && !o.sleep(ctx, o.cfg.Pause) {
			sum.Interrupted = true
			break
		}
		if ctx.Err() != nil {
			sum.Interrupted = true
			break
		}
		end := offset + o.cfg.BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		o.runBatch(context.WithoutCancel(ctx), sum.Batches, ids[offset:end], &sum)
		sum.Batches++
	}

	finish()
	o.log.Info("recompute finished",
		"mode", mode,
		"processed", sum.Processed,
		"created", sum.Created,
		"updated", sum.Updated,
		"skipped", sum.Skipped,
		"errors", sum.Errors,
		"deleted", sum.Deleted,
		"interrupted", sum.Interrupted,
		"duration", sum.Duration.String(),
	)
	return sum, nil
}

func (o *Orchestrator) runBatch(ctx context.Context, index int, ids []string, sum *Summary) {
	ctx, span := tracer.Start(ctx, "recompute.batch")
	span.SetAttributes(attribute.Int("recompute.batch_index", index), attribute.Int("recompute.batch_users", len(ids)))
	defer span.End()

	// A panic in a g.Go goroutine cannot be recovered here; recomputeOne
	// recovers inside each goroutine instead.
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(len(ids))
	for _, id := range ids {
		id := id
		g.Go(func() error {
			res, err := o.recomputeOne(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			sum.Processed++
			if err != nil {
				o.log.Warn("user recompute failed", "user_id", id, "error", err)
				sum.fail(id, err.Error())
				return nil
			}
			switch res.Outcome {
			case services.CacheCreated:
				sum.Created++
			case services.CacheUpdated:
				sum.Updated++
			default:
				sum.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()
	o.log.Debug("recompute batch done", "batch", index, "users", len(ids))
}

func (o *Orchestrator) recomputeOne(ctx context.Context, userID string) (res services.RecomputeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return o.rec.RecomputeUser(ctx, userID)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
