package game

import (
	"context"
	"time"
)

// Status 游戏状态
type Status string

const (
	StatusWaiting     Status = "WAITING"
	StatusClue        Status = "CLUE"
	StatusVote        Status = "VOTE"
	StatusSpyWon      Status = "SPY_WON"
	StatusCivilianWon Status = "CIVILIAN_WON"
)

// IsTerminal 是否已结束
func (s Status) IsTerminal() bool {
	return s == StatusSpyWon || s == StatusCivilianWon
}

// InProgress 是否在对局中
func (s Status) InProgress() bool {
	return s == StatusClue || s == StatusVote
}

// Role 玩家身份
type Role string

const (
	RoleCivilian Role = "CIVILIAN"
	RoleSpy      Role = "SPY"
	// RoleHidden 结束前快照中隐藏身份
	RoleHidden Role = "HIDDEN"
)

// Player 玩家，房间内名称唯一
type Player struct {
	Name     string
	Role     Role
	IsActive bool
}

// WordPair 一局游戏的词对
type WordPair struct {
	Civilian string
	Spy      string
}

// WordSupplier 词库，每局提供一组相近但不同的词
type WordSupplier interface {
	FetchWordPair(ctx context.Context) (WordPair, error)
}

// PlayerView 客户端可见的玩家信息
type PlayerView struct {
	PlayerName string `json:"playerName"`
	Role       Role   `json:"role"`
	IsActive   bool   `json:"isActive"`
}

// GameInfo 房间公开快照，与房间不共享内存
type GameInfo struct {
	GameID            string              `json:"gameId"`
	Version           uint64              `json:"version"` // 房间每次修改递增
	Status            Status              `json:"gameStatus"`
	CurrentRoundIndex int                 `json:"currentRoundIndex"`
	MaxRoundIndex     int                 `json:"maxRoundIndex"`
	Players           []PlayerView        `json:"players"`
	PlayerOrder       []string            `json:"playerOrder"`
	Clues             []map[string]string `json:"clues"`
	Votes             []map[string]string `json:"votes"`
	EliminatedPlayers []string            `json:"eliminatedPlayers"`
	Winner            Role                `json:"winner,omitempty"`
}

// Player 查找玩家
func (g *GameInfo) Player(name string) (PlayerView, bool) {
	for _, p := range g.Players {
		if p.PlayerName == name {
			return p, true
		}
	}
	return PlayerView{}, false
}

// ActiveCount 存活玩家数
func (g *GameInfo) ActiveCount() int {
	n := 0
	for _, p := range g.Players {
		if p.IsActive {
			n++
		}
	}
	return n
}

// Result 对局结果，传给结束回调
type Result struct {
	RoomID       string       `json:"roomId"`
	CivilianWord string       `json:"civilianWord"`
	SpyWord      string       `json:"spyWord"`
	Winner       Role         `json:"winner"`
	Players      []PlayerView `json:"players"`
	Eliminated   []string     `json:"eliminatedPlayers"`
	RoundsPlayed int          `json:"roundsPlayed"`
	FinishedAt   time.Time    `json:"finishedAt"`
}

// Config 引擎配置
type Config struct {
	MaxRoundIndex   int
	MinPlayers      int
	RoomCodeLength  int
	WordTimeout     time.Duration
	ClueMinDistance int // 0 表示不检查
	EvictTimeout    time.Duration
	EvictInterval   time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		MaxRoundIndex:  2,
		MinPlayers:     3,
		RoomCodeLength: 4,
		WordTimeout:    10 * time.Second,
		EvictTimeout:   2 * time.Hour,
		EvictInterval:  time.Minute,
	}
}
