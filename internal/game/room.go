package game

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// Room 内存中的一局游戏，所有字段由 mu 保护
// 不带 Locked 后缀的方法要求调用方已持有锁
//
// 轮次记录按 currentRound 索引：该轮开始后 clues[currentRound] 和
// votes[currentRound] 一定存在
type Room struct {
	mu sync.RWMutex

	id           string
	civilianWord string
	spyWord      string
	status       Status
	currentRound int
	maxRound     int

	players     map[string]*Player
	joinOrder   []string // 加入顺序，用于快照
	playerOrder []string // 开始时打乱
	clues       []map[string]string
	votes       []map[string]string // 投票人 -> 被投票人
	eliminated  []string
	winner      Role

	version    uint64
	lastActive time.Time
	closed     bool // 已从管理器移除
}

func newRoom(id string, words WordPair, maxRound int) *Room {
	return &Room{
		id:           id,
		civilianWord: words.Civilian,
		spyWord:      words.Spy,
		status:       StatusWaiting,
		currentRound: -1,
		maxRound:     maxRound,
		players:      make(map[string]*Player),
		joinOrder:    make([]string, 0),
		playerOrder:  make([]string, 0),
		clues:        make([]map[string]string, 0),
		votes:        make([]map[string]string, 0),
		eliminated:   make([]string, 0),
		lastActive:   time.Now(),
	}
}

// ID 房间号
func (r *Room) ID() string {
	return r.id
}

// LastActiveTime 最后活跃时间
func (r *Room) LastActiveTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActive
}

// touch 记录一次修改
func (r *Room) touch() {
	r.version++
	r.lastActive = time.Now()
}

func (r *Room) addPlayer(name string) {
	r.players[name] = &Player{Name: name, Role: RoleCivilian, IsActive: true}
	r.joinOrder = append(r.joinOrder, name)
	r.playerOrder = append(r.playerOrder, name)
}

// removePlayer 移除玩家及其在各轮提交的描述和投票
// 投票阶段同时移除本轮投给该玩家的票，投票人需重新投票；已结束的轮次保持不变
func (r *Room) removePlayer(name string) {
	delete(r.players, name)
	r.joinOrder = removeName(r.joinOrder, name)
	r.playerOrder = removeName(r.playerOrder, name)

	for _, clues := range r.clues {
		delete(clues, name)
	}
	for _, votes := range r.votes {
		delete(votes, name)
	}

	if r.status != StatusVote {
		return
	}
	votes := r.roundVotes()
	for voter, target := range votes {
		if target == name {
			delete(votes, voter)
		}
	}
}

func removeName(names []string, name string) []string {
	return slices.DeleteFunc(names, func(n string) bool { return n == name })
}

func (r *Room) activeNames() map[string]struct{} {
	active := make(map[string]struct{}, len(r.players))
	for name, p := range r.players {
		if p.IsActive {
			active[name] = struct{}{}
		}
	}
	return active
}

func (r *Room) activeCount() int {
	n := 0
	for _, p := range r.players {
		if p.IsActive {
			n++
		}
	}
	return n
}

func (r *Room) hasActiveSpy() bool {
	spies := 0
	for _, p := range r.players {
		if p.IsActive && p.Role == RoleSpy {
			spies++
		}
	}
	return spies > 0
}

func (r *Room) isActive(name string) bool {
	p, ok := r.players[name]
	return ok && p.IsActive
}

// beginRound 进入下一轮
func (r *Room) beginRound() {
	r.currentRound++
	r.clues = append(r.clues, make(map[string]string))
	r.votes = append(r.votes, make(map[string]string))
	r.status = StatusClue
	r.assertRound()
}

// assertRound 轮次记录与轮次号不一致时 panic，属于内部错误
func (r *Room) assertRound() {
	if r.currentRound < 0 || r.currentRound >= len(r.clues) || r.currentRound >= len(r.votes) {
		panic(fmt.Sprintf("game: room %s round %d has %d clue and %d vote records",
			r.id, r.currentRound, len(r.clues), len(r.votes)))
	}
}

func (r *Room) roundClues() map[string]string {
	r.assertRound()
	return r.clues[r.currentRound]
}

func (r *Room) roundVotes() map[string]string {
	r.assertRound()
	return r.votes[r.currentRound]
}

// sameSet m 的 key 与 active 完全一致
func sameSet(m map[string]string, active map[string]struct{}) bool {
	if len(m) != len(active) {
		return false
	}
	for name := range active {
		if _, ok := m[name]; !ok {
			return false
		}
	}
	return true
}

func (r *Room) cluesComplete() bool {
	active := r.activeNames()
	return len(active) > 0 && sameSet(r.roundClues(), active)
}

func (r *Room) votesComplete() bool {
	active := r.activeNames()
	return len(active) > 0 && sameSet(r.roundVotes(), active)
}

// winnerAfterLeave 有玩家离开后判定胜负
func (r *Room) winnerAfterLeave() (Role, bool) {
	if !r.hasActiveSpy() {
		return RoleCivilian, true
	}
	if r.activeCount() <= 2 {
		return RoleSpy, true
	}
	return "", false
}

// winnerAfterElimination 出局后判定胜负，最后一轮结束时卧底获胜
func (r *Room) winnerAfterElimination() (Role, bool) {
	if winner, done := r.winnerAfterLeave(); done {
		return winner, true
	}
	if r.currentRound >= r.maxRound {
		return RoleSpy, true
	}
	return "", false
}

func (r *Room) finish(winner Role) {
	r.winner = winner
	if winner == RoleSpy {
		r.status = StatusSpyWon
	} else {
		r.status = StatusCivilianWon
	}
}

// advance 执行自动状态切换直到稳定，返回是否已结束
func (r *Room) advance() bool {
	for {
		switch r.status {
		case StatusClue:
			if !r.cluesComplete() {
				return false
			}
			r.status = StatusVote
		case StatusVote:
			if !r.votesComplete() {
				return false
			}
			target := plurality(r.roundVotes())
			r.players[target].IsActive = false
			r.eliminated = append(r.eliminated, target)

			if winner, done := r.winnerAfterElimination(); done {
				r.finish(winner)
				return true
			}
			r.beginRound()
		default:
			return false
		}
	}
}

// reevaluate 对局中有玩家离开后重新判定
func (r *Room) reevaluate() bool {
	if !r.status.InProgress() {
		return false
	}
	if winner, done := r.winnerAfterLeave(); done {
		r.finish(winner)
		return true
	}
	return r.advance()
}

// reset 换词并回到等待状态，保留玩家
func (r *Room) reset(words WordPair) {
	r.civilianWord = words.Civilian
	r.spyWord = words.Spy
	r.status = StatusWaiting
	r.currentRound = -1
	r.winner = ""
	r.clues = make([]map[string]string, 0)
	r.votes = make([]map[string]string, 0)
	r.eliminated = make([]string, 0)
	r.playerOrder = slices.Clone(r.joinOrder)
	for _, p := range r.players {
		p.Role = RoleCivilian
		p.IsActive = true
	}
}

func (r *Room) wordFor(p *Player) string {
	if p.Role == RoleSpy {
		return r.spyWord
	}
	return r.civilianWord
}

func (r *Room) playerViews(reveal bool) []PlayerView {
	views := make([]PlayerView, 0, len(r.joinOrder))
	for _, name := range r.joinOrder {
		p := r.players[name]
		role := RoleHidden
		if reveal {
			role = p.Role
		}
		views = append(views, PlayerView{PlayerName: p.Name, Role: role, IsActive: p.IsActive})
	}
	return views
}

func copyRounds(rounds []map[string]string) []map[string]string {
	out := make([]map[string]string, len(rounds))
	for i, m := range rounds {
		c := make(map[string]string, len(m))
		for k, v := range m {
			c[k] = v
		}
		out[i] = c
	}
	return out
}

// snapshot 深拷贝公开视图，结束前隐藏身份
func (r *Room) snapshot() *GameInfo {
	reveal := r.status.IsTerminal()
	info := &GameInfo{
		GameID:            r.id,
		Version:           r.version,
		Status:            r.status,
		CurrentRoundIndex: r.currentRound,
		MaxRoundIndex:     r.maxRound,
		Players:           r.playerViews(reveal),
		PlayerOrder:       slices.Clone(r.playerOrder),
		Clues:             copyRounds(r.clues),
		Votes:             copyRounds(r.votes),
		EliminatedPlayers: slices.Clone(r.eliminated),
	}
	if reveal {
		info.Winner = r.winner
	}
	return info
}

// SnapshotLocked 加读锁获取快照
func (r *Room) SnapshotLocked() *GameInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot()
}

func (r *Room) result() *Result {
	return &Result{
		RoomID:       r.id,
		CivilianWord: r.civilianWord,
		SpyWord:      r.spyWord,
		Winner:       r.winner,
		Players:      r.playerViews(true),
		Eliminated:   slices.Clone(r.eliminated),
		RoundsPlayed: r.currentRound + 1,
		FinishedAt:   time.Now(),
	}
}
