package nats

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"sudooom.spy/internal/game"
)

// SnapshotPublisher 将房间快照和对局结果发布到 NATS，供其他节点订阅
type SnapshotPublisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewSnapshotPublisher 创建发布器
func NewSnapshotPublisher(nc *nats.Conn) *SnapshotPublisher {
	return &SnapshotPublisher{
		nc:     nc,
		logger: slog.Default().With("component", "SnapshotPublisher"),
	}
}

// BroadcastToRoom 发布房间快照，info 为 nil 表示房间已解散
func (p *SnapshotPublisher) BroadcastToRoom(roomID string, info *game.GameInfo) {
	subject := BuildRoomStateSubject(roomID)
	data, err := json.Marshal(info)
	if err != nil {
		p.logger.Error("Failed to marshal snapshot", "roomId", roomID, "error", err)
		return
	}

	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Error("Failed to publish snapshot", "roomId", roomID, "error", err)
		return
	}
	p.logger.Debug("Published snapshot", "subject", subject)
}

// PublishResult 发布对局结果
func (p *SnapshotPublisher) PublishResult(result *game.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(SubjectGameFinished, data); err != nil {
		p.logger.Error("Failed to publish result", "roomId", result.RoomID, "error", err)
		return err
	}
	return nil
}
