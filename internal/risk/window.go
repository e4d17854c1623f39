package risk

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// WindowStore counts a request against a sliding window and reports the
// resulting count plus the timestamp of the oldest request still inside the
// window (zero when the window was empty). Denied requests still count
// toward the window.
type WindowStore interface {
	Take(ctx context.Context, key string, window time.Duration) (count int64, oldest time.Time, err error)
}

// RedisWindow keeps per-key sliding windows in redis sorted sets scored by
// unix milliseconds.
type RedisWindow struct {
	rdb *redis.Client
}

func NewRedisWindow(rdb *redis.Client) *RedisWindow {
	return &RedisWindow{rdb: rdb}
}

func (w *RedisWindow) Take(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := time.Now()
	cutoff := now.Add(-window).UnixMilli()

	pipe := w.rdb.TxPipeline()

	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: uuid.NewString(),
	})
	card := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)
	// key TTL keeps idle clients from accumulating in redis
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}

	count := card.Val()

	var oldest time.Time
	if zs := oldestCmd.Val(); len(zs) > 0 {
		oldest = time.UnixMilli(int64(zs[0].Score))
	}

	return count, oldest, nil
}
