package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCodeTaken 房间码已被其他节点占用
var ErrCodeTaken = errors.New("room code owned by another node")

// CodeStore 跨节点房间码预占
// 节点宕机后预占最多保留 ttl，存活房间通过 Refresh 续期
type CodeStore struct {
	client *redis.Client
	nodeID string
	ttl    time.Duration
	logger *slog.Logger
}

// NewCodeStore 创建房间码存储，nodeID 作为持有者写入
func NewCodeStore(client *redis.Client, nodeID string, ttl time.Duration) *CodeStore {
	return &CodeStore{
		client: client,
		nodeID: nodeID,
		ttl:    ttl,
		logger: slog.Default().With("component", "CodeStore"),
	}
}

// Reserve 预占房间码，返回是否成功
func (s *CodeStore) Reserve(ctx context.Context, code string) (bool, error) {
	ok, err := s.client.SetNX(ctx, BuildRoomCodeKey(code), s.nodeID, s.ttl).Result()
	if err != nil {
		return false, err
	}
	if !ok {
		s.logger.Debug("Room code already reserved", "roomId", code)
	}
	return ok, nil
}

// releaseScript 仅当本节点持有时删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Release 释放本节点预占的房间码
func (s *CodeStore) Release(ctx context.Context, code string) error {
	return releaseScript.Run(ctx, s.client, []string{BuildRoomCodeKey(code)}, s.nodeID).Err()
}

// refreshScript 本节点持有时续期，已过期时重新占用，被其他节点持有时返回 0
var refreshScript = redis.NewScript(`
local owner = redis.call("GET", KEYS[1])
if owner == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if not owner then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
	return 1
end
return 0
`)

// Refresh 续期本节点预占的房间码
func (s *CodeStore) Refresh(ctx context.Context, code string) error {
	n, err := refreshScript.Run(ctx, s.client, []string{BuildRoomCodeKey(code)}, s.nodeID, s.ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCodeTaken
	}
	return nil
}
