// Package redis 提供基于 Redis 的跨进程限流计数。
//
// 仅用于限制资源消耗（如单 IP 创建邮箱的频率），不缓存任何
// 邮箱有效性状态——有效性必须每次经注册表惰性判定得出。
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter 基于 Redis INCR + EXPIRE 的固定窗口限流器。
type Limiter struct {
	client *redis.Client
}

// NewLimiter 创建 Redis 限流器并验证连接。
func NewLimiter(addr, password string, db int) (*Limiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Limiter{client: client}, nil
}

// Allow 对 key 计数一次，并判断窗口内是否仍在限额之内。
//
// 窗口以第一次计数为起点，由键的过期时间界定。
func (l *Limiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= limit, nil
}

// Health 检查 Redis 连接是否正常。
func (l *Limiter) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return l.client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接。
func (l *Limiter) Close() error {
	return l.client.Close()
}
