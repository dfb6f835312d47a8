package game

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	apperr "sudooom.spy/pkg/errors"
)

const (
	maxCodeAttempts     = 32
	maxPlayerNameLength = 32
	maxClueLength       = 120
	releaseTimeout      = 2 * time.Second
)

// CodeReserver 进程外的房间码预占，保证多节点不会分配相同的房间码
type CodeReserver interface {
	Reserve(ctx context.Context, code string) (bool, error)
	Release(ctx context.Context, code string) error
	// Refresh 为存活房间续期
	Refresh(ctx context.Context, code string) error
}

// Option 引擎选项
type Option func(*Engine)

// WithRand 设置洗牌和抽取卧底使用的随机源
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rnd = newLockedRand(r) }
}

// WithCodeReserver 启用跨节点房间码预占
func WithCodeReserver(c CodeReserver) Option {
	return func(e *Engine) { e.codes = c }
}

// WithCodeRefresh 每隔 interval 为存活房间续期，应明显小于预占过期时间
func WithCodeRefresh(interval time.Duration) Option {
	return func(e *Engine) { e.refreshInterval = interval }
}

// WithGameOverHook 对局结束回调，每局调用一次，调用时不持有房间锁
func WithGameOverHook(fn func(*Result)) Option {
	return func(e *Engine) { e.onGameOver = fn }
}

// WithLogger 设置日志
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine 游戏引擎，驱动所有房间的状态机
// 房间之间互不影响：每个操作只锁定所涉及的房间，同一房间的修改由房间锁串行化
type Engine struct {
	cfg        Config
	rooms      *Manager
	words      WordSupplier
	codes      CodeReserver
	rnd        *lockedRand
	onGameOver func(*Result)
	logger     *slog.Logger

	refreshInterval time.Duration
	stopChan        chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
}

// NewEngine 创建游戏引擎
func NewEngine(cfg Config, rooms *Manager, words WordSupplier, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		rooms:    rooms,
		words:    words,
		stopChan: make(chan struct{}),
		logger:   slog.Default().With("component", "GameEngine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rnd == nil {
		e.rnd = newLockedRand(nil)
	}
	rooms.SetOnRemove(e.releaseCode)

	if e.codes != nil && e.refreshInterval > 0 {
		e.wg.Add(1)
		go e.refreshLoop()
	}
	return e
}

// RoomCount 当前房间数
func (e *Engine) RoomCount() int {
	return e.rooms.Count()
}

// Shutdown 停止后台任务，内存中的房间不保留
func (e *Engine) Shutdown(ctx context.Context) error {
	e.stopOnce.Do(func() { close(e.stopChan) })
	e.wg.Wait()
	return e.rooms.Shutdown(ctx)
}

// CreateGame 获取词对并创建房间（WAITING）
// 词库失败时不创建房间
func (e *Engine) CreateGame(ctx context.Context) (string, error) {
	pair, err := e.fetchWords(ctx)
	if err != nil {
		e.logger.Warn("Failed to fetch word pair", "error", err)
		return "", err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := GenerateRoomCode(e.cfg.RoomCodeLength)
		if e.rooms.Exists(code) {
			continue
		}
		if !e.reserveCode(ctx, code) {
			continue
		}
		if !e.rooms.Insert(newRoom(code, pair, e.cfg.MaxRoundIndex)) {
			continue
		}

		e.logger.Info("Room created", "roomId", code, "attempts", attempt+1)
		return code, nil
	}

	e.logger.Error("Room code space exhausted", "length", e.cfg.RoomCodeLength)
	return "", ErrRoomCodeExhausted
}

// JoinGame 加入未开始的房间
func (e *Engine) JoinGame(roomID, playerName string) (*GameInfo, error) {
	name, err := normalizeName(playerName)
	if err != nil {
		return nil, err
	}

	room, err := e.lockRoom(roomID)
	if err != nil {
		return nil, err
	}

	if _, taken := room.players[name]; taken {
		room.mu.Unlock()
		return nil, ErrPlayerNameTaken
	}
	if room.status != StatusWaiting {
		room.mu.Unlock()
		return nil, ErrGameAlreadyStarted
	}

	room.addPlayer(name)
	info := e.commit(room, false)

	e.logger.Info("Player joined", "roomId", roomID, "player", name, "players", len(info.Players))
	return info, nil
}

// LeaveGame 离开房间，并清除该玩家提交的描述和投票
// 最后一人离开时房间解散，返回 nil
func (e *Engine) LeaveGame(roomID, playerName string) (*GameInfo, error) {
	name := strings.TrimSpace(playerName)

	room, err := e.lockRoom(roomID)
	if err != nil {
		return nil, err
	}

	if _, ok := room.players[name]; !ok {
		room.mu.Unlock()
		return nil, ErrPlayerNotFound
	}

	room.removePlayer(name)

	if len(room.players) == 0 {
		room.closed = true
		room.mu.Unlock()
		e.rooms.Remove(roomID)
		e.logger.Info("Last player left, room deleted", "roomId", roomID, "player", name)
		return nil, nil
	}

	finished := room.reevaluate()
	info := e.commit(room, finished)

	e.logger.Info("Player left", "roomId", roomID, "player", name, "status", info.Status)
	return info, nil
}

// StartGame 打乱发言顺序，抽取一名卧底，进入第 0 轮
func (e *Engine) StartGame(roomID string) (*GameInfo, error) {
	room, err := e.lockRoom(roomID)
	if err != nil {
		return nil, err
	}

	if room.status != StatusWaiting {
		room.mu.Unlock()
		return nil, ErrGameAlreadyStarted
	}
	if len(room.players) < e.cfg.MinPlayers {
		room.mu.Unlock()
		return nil, ErrNotEnoughPlayers
	}

	order := slices.Clone(room.joinOrder)
	shuffle(order, e.rnd)
	room.playerOrder = order

	for _, p := range room.players {
		p.Role = RoleCivilian
		p.IsActive = true
	}
	room.players[order[e.rnd.IntN(len(order))]].Role = RoleSpy

	room.beginRound()
	info := e.commit(room, false)

	e.logger.Info("Game started", "roomId", roomID, "players", len(order))
	return info, nil
}

// RestartGame 换一组词，保留玩家回到 WAITING
// 获取词对时不持有房间锁
func (e *Engine) RestartGame(ctx context.Context, roomID string) (*GameInfo, error) {
	if !e.rooms.Exists(roomID) {
		return nil, ErrUnknownRoom
	}

	pair, err := e.fetchWords(ctx)
	if err != nil {
		e.logger.Warn("Failed to fetch word pair for restart", "roomId", roomID, "error", err)
		return nil, err
	}

	room, err := e.lockRoom(roomID)
	if err != nil {
		return nil, err
	}

	room.reset(pair)
	info := e.commit(room, false)

	e.logger.Info("Game restarted", "roomId", roomID, "players", len(info.Players))
	return info, nil
}

// SubmitClue 提交或覆盖本轮描述，所有存活玩家提交后进入 VOTE
func (e *Engine) SubmitClue(roomID, playerName, text string) (*GameInfo, error) {
	name := strings.TrimSpace(playerName)

	room, err := e.lockRoom(roomID)
	if err != nil {
		return nil, err
	}

	if err := requireStatus(room, StatusClue, ErrGameNotInClueState); err != nil {
		room.mu.Unlock()
		return nil, err
	}
	p, err := requireActive(room, name)
	if err != nil {
		room.mu.Unlock()
		return nil, err
	}
	clue, err := e.validateClue(text, room.wordFor(p))
	if err != nil {
		room.mu.Unlock()
		return nil, err
	}

	room.roundClues()[name] = clue
	finished := room.advance()
	info := e.commit(room, finished)

	e.logger.Debug("Clue submitted", "roomId", roomID, "player", name, "status", info.Status)
	return info, nil
}

// SubmitVote 提交或覆盖本轮投票，所有存活玩家投票后结算
func (e *Engine) SubmitVote(roomID, voterName, votedForName string) (*GameInfo, error) {
	voter := strings.TrimSpace(voterName)
	target := strings.TrimSpace(votedForName)

	room, err := e.lockRoom(roomID)
	if err != nil {
		return nil, err
	}

	if err := requireStatus(room, StatusVote, ErrGameNotInVoteState); err != nil {
		room.mu.Unlock()
		return nil, err
	}
	if _, err := requireActive(room, voter); err != nil {
		room.mu.Unlock()
		return nil, err
	}
	if !room.isActive(target) {
		room.mu.Unlock()
		return nil, ErrInvalidVoteTarget
	}

	room.roundVotes()[voter] = target
	finished := room.advance()
	info := e.commit(room, finished)

	e.logger.Debug("Vote submitted", "roomId", roomID, "voter", voter, "target", target, "status", info.Status)
	return info, nil
}

// GetWord 获取玩家的词，开始后可用
func (e *Engine) GetWord(roomID, playerName string) (string, error) {
	name := strings.TrimSpace(playerName)

	room, ok := e.rooms.Get(roomID)
	if !ok {
		return "", ErrUnknownRoom
	}

	room.mu.RLock()
	defer room.mu.RUnlock()

	if room.closed {
		return "", ErrUnknownRoom
	}
	p, ok := room.players[name]
	if !ok {
		return "", ErrPlayerNotFound
	}
	if room.status == StatusWaiting {
		return "", ErrGameNotStarted
	}
	return room.wordFor(p), nil
}

// GetGameInfo 获取房间公开快照，房间不存在时返回 false
func (e *Engine) GetGameInfo(roomID string) (*GameInfo, bool) {
	room, ok := e.rooms.Get(roomID)
	if !ok {
		return nil, false
	}

	room.mu.RLock()
	defer room.mu.RUnlock()

	if room.closed {
		return nil, false
	}
	return room.snapshot(), true
}

// lockRoom 返回已加写锁的房间
func (e *Engine) lockRoom(roomID string) (*Room, error) {
	room, ok := e.rooms.Get(roomID)
	if !ok {
		return nil, ErrUnknownRoom
	}
	room.mu.Lock()
	if room.closed {
		room.mu.Unlock()
		return nil, ErrUnknownRoom
	}
	return room, nil
}

// commit 生成快照并解锁，对局结束时在解锁后回调
func (e *Engine) commit(room *Room, finished bool) *GameInfo {
	room.touch()
	info := room.snapshot()
	var result *Result
	if finished {
		result = room.result()
	}
	room.mu.Unlock()

	if result != nil {
		e.gameOver(result)
	}
	return info
}

func (e *Engine) gameOver(result *Result) {
	e.logger.Info("Game finished",
		"roomId", result.RoomID,
		"winner", result.Winner,
		"rounds", result.RoundsPlayed,
		"eliminated", result.Eliminated)

	if e.onGameOver != nil {
		e.onGameOver(result)
	}
}

func (e *Engine) fetchWords(ctx context.Context) (WordPair, error) {
	if e.cfg.WordTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.WordTimeout)
		defer cancel()
	}

	pair, err := e.words.FetchWordPair(ctx)
	if err != nil {
		return WordPair{}, ErrWordSupplierUnavailable.Wrap(err)
	}
	return pair, nil
}

// reserveCode 预占房间码，预占失败时退化为进程内唯一
func (e *Engine) reserveCode(ctx context.Context, code string) bool {
	if e.codes == nil {
		return true
	}
	ok, err := e.codes.Reserve(ctx, code)
	if err != nil {
		e.logger.Warn("Room code reservation failed, using local uniqueness", "roomId", code, "error", err)
		return true
	}
	return ok
}

func (e *Engine) releaseCode(roomID string) {
	if e.codes == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := e.codes.Release(ctx, roomID); err != nil {
		e.logger.Warn("Failed to release room code", "roomId", roomID, "error", err)
	}
}

func (e *Engine) refreshLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.refreshCodes()
		case <-e.stopChan:
			return
		}
	}
}

// refreshCodes 为所有存活房间续期
func (e *Engine) refreshCodes() {
	for _, roomID := range e.rooms.RoomIDs() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		err := e.codes.Refresh(ctx, roomID)
		cancel()
		if err != nil {
			e.logger.Warn("Failed to refresh room code", "roomId", roomID, "error", err)
		}
	}
}

func (e *Engine) validateClue(text, word string) (string, error) {
	clue := strings.TrimSpace(text)
	if clue == "" || utf8.RuneCountInString(clue) > maxClueLength {
		return "", ErrInvalidClue
	}
	if e.cfg.ClueMinDistance > 0 && revealsWord(clue, word, e.cfg.ClueMinDistance) {
		return "", ErrClueRevealsWord
	}
	return clue, nil
}

// revealsWord 描述包含本词，或与本词的编辑距离小于 minDistance
func revealsWord(clue, word string, minDistance int) bool {
	c, w := strings.ToLower(clue), strings.ToLower(word)
	if w == "" {
		return false
	}
	if strings.Contains(c, w) {
		return true
	}
	return levenshtein.ComputeDistance(c, w) < minDistance
}

func normalizeName(playerName string) (string, error) {
	name := strings.TrimSpace(playerName)
	if name == "" || utf8.RuneCountInString(name) > maxPlayerNameLength {
		return "", ErrInvalidPlayerName
	}
	return name, nil
}

func requireStatus(room *Room, want Status, wrong *apperr.AppError) error {
	switch {
	case room.status == want:
		return nil
	case room.status.IsTerminal():
		return ErrGameAlreadyEnded
	default:
		return wrong
	}
}

func requireActive(room *Room, name string) (*Player, error) {
	p, ok := room.players[name]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	if !p.IsActive {
		return nil, ErrPlayerNotActive
	}
	return p, nil
}
