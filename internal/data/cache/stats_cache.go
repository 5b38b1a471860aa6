package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/envutil"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

// StatsMirror keeps a Redis hash per user holding the same three fields as
// the user_stats_cache row. It is a read accelerator only; the relational row
// stays authoritative.
type StatsMirror interface {
	Get(ctx context.Context, userID string) (*types.UserStatsCache, error)
	Set(ctx context.Context, row *types.UserStatsCache) error
	DeleteMany(ctx context.Context, userIDs []string) error
	Close() error
}

type redisStatsMirror struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

const (
	fieldTotalQuestions = "total_questions"
	fieldAccuracy       = "accuracy"
	fieldLastUpdated    = "last_updated"
)

// NewStatsMirrorFromEnv returns (nil, nil) when REDIS_ADDR is unset.
func NewStatsMirrorFromEnv(log *logger.Logger) (StatsMirror, error) {
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, nil
	}
	return NewRedisStatsMirror(log, addr, envutil.String("REDIS_STATS_PREFIX", "ultrasat:stats:"), envutil.Duration("REDIS_STATS_TTL", 0))
}

func NewRedisStatsMirror(log *logger.Logger, addr, prefix string, ttl time.Duration) (StatsMirror, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisStatsMirror{
		log:    log.With("service", "RedisStatsMirror"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (m *redisStatsMirror) key(userID string) string { return m.prefix + userID }

// Get returns (nil, nil) on a miss or a partially written hash.
func (m *redisStatsMirror) Get(ctx context.Context, userID string) (*types.UserStatsCache, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("redis stats mirror not initialized")
	}
	vals, err := m.rdb.HGetAll(ctx, m.key(userID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	total, err1 := strconv.Atoi(vals[fieldTotalQuestions])
	acc, err2 := strconv.Atoi(vals[fieldAccuracy])
	ts, err3 := time.Parse(time.RFC3339Nano, vals[fieldLastUpdated])
	if err1 != nil || err2 != nil || err3 != nil {
		m.log.Warn("incomplete stats hash; treating as miss", "user_id", userID)
		return nil, nil
	}
	return &types.UserStatsCache{
		UserID:         userID,
		TotalQuestions: total,
		Accuracy:       acc,
		LastUpdated:    ts.UTC(),
	}, nil
}

func (m *redisStatsMirror) Set(ctx context.Context, row *types.UserStatsCache) error {
	if m == nil || m.rdb == nil {
		return fmt.Errorf("redis stats mirror not initialized")
	}
	if row == nil || row.UserID == "" {
		return nil
	}
	key := m.key(row.UserID)
	pipe := m.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		fieldTotalQuestions, row.TotalQuestions,
		fieldAccuracy, row.Accuracy,
		fieldLastUpdated, row.LastUpdated.UTC().Format(time.RFC3339Nano),
	)
	if m.ttl > 0 {
		pipe.Expire(ctx, key, m.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (m *redisStatsMirror) DeleteMany(ctx context.Context, userIDs []string) error {
	if m == nil || m.rdb == nil {
		return fmt.Errorf("redis stats mirror not initialized")
	}
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, m.key(id))
	}
	return m.rdb.Del(ctx, keys...).Err()
}

func (m *redisStatsMirror) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}
