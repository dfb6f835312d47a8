// Package redis 游戏节点之间共享的 Redis 组件
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"sudooom.spy/internal/config"
)

// NewClient 连接 Redis 并 Ping
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
