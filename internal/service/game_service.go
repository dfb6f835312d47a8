package service

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"sudooom.spy/internal/game"
	"sudooom.spy/internal/repository"
	"sudooom.spy/internal/workerpool"
	apperr "sudooom.spy/pkg/errors"
)

const (
	CodeResultsUnavailable = 30001

	persistTimeout = 5 * time.Second
)

var ErrResultsUnavailable = apperr.NewErrorWithStatus(CodeResultsUnavailable, "game history is not enabled", http.StatusServiceUnavailable)

// Broadcaster 接收房间快照，nil 表示房间已解散
type Broadcaster interface {
	BroadcastToRoom(roomID string, info *game.GameInfo)
}

// ResultStore 对局结果存储
type ResultStore interface {
	Save(ctx context.Context, result *game.Result) (int64, error)
	Recent(ctx context.Context, limit int) ([]*repository.GameResult, error)
}

// ResultPublisher 对局结果发布
type ResultPublisher interface {
	PublishResult(result *game.Result) error
}

// Option 服务选项
type Option func(*GameService)

// WithBroadcaster 添加快照接收方
func WithBroadcaster(b Broadcaster) Option {
	return func(s *GameService) { s.broadcasters = append(s.broadcasters, b) }
}

// WithResultStore 启用对局结果存储
func WithResultStore(store ResultStore) Option {
	return func(s *GameService) { s.results = store }
}

// WithResultPublisher 启用对局结果发布
func WithResultPublisher(p ResultPublisher) Option {
	return func(s *GameService) { s.publisher = p }
}

// GameService 游戏服务，执行引擎操作后通过协程池把快照推送给所有接收方
type GameService struct {
	engine       *game.Engine
	pool         *workerpool.Pool
	broadcasters []Broadcaster
	results      ResultStore
	publisher    ResultPublisher
	logger       *slog.Logger
}

// NewGameService 创建游戏服务
func NewGameService(engine *game.Engine, pool *workerpool.Pool, opts ...Option) *GameService {
	s := &GameService{
		engine: engine,
		pool:   pool,
		logger: slog.Default().With("component", "GameService"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGame 创建房间，此时无人连接，不推送
func (s *GameService) CreateGame(ctx context.Context) (string, error) {
	return s.engine.CreateGame(ctx)
}

func (s *GameService) JoinGame(roomID, playerName string) (*game.GameInfo, error) {
	return s.publish(roomID)(s.engine.JoinGame(roomID, playerName))
}

func (s *GameService) LeaveGame(roomID, playerName string) (*game.GameInfo, error) {
	info, err := s.engine.LeaveGame(roomID, playerName)
	if err != nil {
		return nil, err
	}
	s.BroadcastToRoom(roomID, info)
	return info, nil
}

func (s *GameService) StartGame(roomID string) (*game.GameInfo, error) {
	return s.publish(roomID)(s.engine.StartGame(roomID))
}

func (s *GameService) RestartGame(ctx context.Context, roomID string) (*game.GameInfo, error) {
	return s.publish(roomID)(s.engine.RestartGame(ctx, roomID))
}

func (s *GameService) SubmitClue(roomID, playerName, text string) (*game.GameInfo, error) {
	return s.publish(roomID)(s.engine.SubmitClue(roomID, playerName, text))
}

func (s *GameService) SubmitVote(roomID, voterName, votedFor string) (*game.GameInfo, error) {
	return s.publish(roomID)(s.engine.SubmitVote(roomID, voterName, votedFor))
}

func (s *GameService) GetWord(roomID, playerName string) (string, error) {
	return s.engine.GetWord(roomID, playerName)
}

func (s *GameService) GetGameInfo(roomID string) (*game.GameInfo, bool) {
	return s.engine.GetGameInfo(roomID)
}

// publish 操作成功时推送快照
func (s *GameService) publish(roomID string) func(*game.GameInfo, error) (*game.GameInfo, error) {
	return func(info *game.GameInfo, err error) (*game.GameInfo, error) {
		if err != nil {
			return nil, err
		}
		s.BroadcastToRoom(roomID, info)
		return info, nil
	}
}

// BroadcastToRoom 通过协程池推送快照
func (s *GameService) BroadcastToRoom(roomID string, info *game.GameInfo) {
	for _, b := range s.broadcasters {
		if !s.pool.Submit(func() { b.BroadcastToRoom(roomID, info) }) {
			s.logger.Warn("Broadcast dropped, pool is closed", "roomId", roomID)
		}
	}
}

// RecordResult 对局结束回调，异步存储并发布结果
func (s *GameService) RecordResult(result *game.Result) {
	if s.results == nil && s.publisher == nil {
		return
	}

	ok := s.pool.Submit(func() {
		if s.results != nil {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			id, err := s.results.Save(ctx, result)
			if err != nil {
				s.logger.Error("Failed to save game result", "roomId", result.RoomID, "error", err)
			} else {
				s.logger.Info("Game result saved", "roomId", result.RoomID, "id", id)
			}
		}
		if s.publisher != nil {
			if err := s.publisher.PublishResult(result); err != nil {
				s.logger.Error("Failed to publish game result", "roomId", result.RoomID, "error", err)
			}
		}
	})
	if !ok {
		s.logger.Warn("Game result dropped, pool is closed", "roomId", result.RoomID)
	}
}

// RecentResults 最近的对局结果
func (s *GameService) RecentResults(ctx context.Context, limit int) ([]*repository.GameResult, error) {
	if s.results == nil {
		return nil, ErrResultsUnavailable
	}
	results, err := s.results.Recent(ctx, limit)
	if err != nil {
		return nil, apperr.ErrDBError.Wrap(err)
	}
	return results, nil
}

// HandleDisconnect 连接断开时移除玩家
func (s *GameService) HandleDisconnect(roomID, playerName string) {
	if _, err := s.LeaveGame(roomID, playerName); err != nil {
		s.logger.Debug("Leave on disconnect ignored", "roomId", roomID, "player", playerName, "error", err)
	}
}
