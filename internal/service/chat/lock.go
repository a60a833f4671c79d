package chat

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dpatinod/BataBot/pkg/logger"
)

// Locker 会话级互斥
// Acquire 返回释放函数，拿不到锁时降级为不加锁继续，
// 宁可偶发乱序也不能让用户消息彻底丢掉
type Locker interface {
	Acquire(ctx context.Context, key string) func()
}

const (
	lockTTL        = 30 * time.Second
	lockRetryDelay = 100 * time.Millisecond
	lockMaxWait    = 5 * time.Second
)

// redisLocker 基于 Redis SET NX 的会话锁
type redisLocker struct {
	client *redis.Client
}

// NewRedisLocker 创建 Redis 会话锁
func NewRedisLocker(client *redis.Client) Locker {
	if client == nil {
		return noopLocker{}
	}
	return &redisLocker{client: client}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) func() {
	deadline := time.Now().Add(lockMaxWait)

	for {
		ok, err := l.client.SetNX(ctx, key, "1", lockTTL).Result()
		if err != nil {
			// Redis 不可用时不阻塞回合
			logger.Warn().Str("key", key).Err(err).Msg("conversation lock unavailable, proceeding without lock")
			return func() {}
		}
		if ok {
			return func() {
				if err := l.client.Del(context.Background(), key).Err(); err != nil {
					logger.Warn().Str("key", key).Err(err).Msg("failed to release conversation lock")
				}
			}
		}
		if time.Now().After(deadline) {
			logger.Warn().Str("key", key).Msg("conversation lock wait timed out, proceeding without lock")
			return func() {}
		}

		select {
		case <-ctx.Done():
			return func() {}
		case <-time.After(lockRetryDelay):
		}
	}
}

// noopLocker 未配置 Redis 时的空实现
type noopLocker struct{}

func (noopLocker) Acquire(ctx context.Context, key string) func() {
	return func() {}
}

func lockKey(conversationID string) string {
	return "batabot:conversation_lock:" + conversationID
}
