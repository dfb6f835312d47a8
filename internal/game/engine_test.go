package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWords struct {
	mu    sync.Mutex
	pairs []WordPair
	err   error
	calls atomic.Int32
}

func (s *stubWords) FetchWordPair(ctx context.Context) (WordPair, error) {
	n := int(s.calls.Add(1))
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return WordPair{}, s.err
	}
	if len(s.pairs) == 0 {
		return WordPair{Civilian: "apple", Spy: "pear"}, nil
	}
	return s.pairs[(n-1)%len(s.pairs)], nil
}

type recordingReserver struct {
	mu        sync.Mutex
	reject    int // 前 reject 次预占失败
	reserved  []string
	released  []string
	refreshed map[string]int
}

func (r *recordingReserver) Reserve(ctx context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject > 0 {
		r.reject--
		return false, nil
	}
	r.reserved = append(r.reserved, code)
	return true, nil
}

func (r *recordingReserver) Release(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, code)
	return nil
}

func (r *recordingReserver) Refresh(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refreshed == nil {
		r.refreshed = map[string]int{}
	}
	r.refreshed[code]++
	return nil
}

func (r *recordingReserver) refreshCount(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshed[code]
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.EvictInterval = 0
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, opts ...Option) (*Engine, *stubWords) {
	t.Helper()
	words := &stubWords{}
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	e := NewEngine(cfg, NewManager(cfg.EvictTimeout, cfg.EvictInterval), words, opts...)
	t.Cleanup(func() { _ = e.Shutdown(context.Background()) })
	return e, words
}

// startedRoom 创建房间，按顺序加入并开始游戏
func startedRoom(t *testing.T, e *Engine, names ...string) string {
	t.Helper()
	roomID, err := e.CreateGame(context.Background())
	require.NoError(t, err)
	for _, name := range names {
		_, err := e.JoinGame(roomID, name)
		require.NoError(t, err)
	}
	info, err := e.StartGame(roomID)
	require.NoError(t, err)
	require.Equal(t, StatusClue, info.Status)
	return roomID
}

// roles 返回卧底和排序后的平民
func roles(t *testing.T, e *Engine, roomID string) (string, []string) {
	t.Helper()
	room, ok := e.rooms.Get(roomID)
	require.True(t, ok)
	room.mu.RLock()
	defer room.mu.RUnlock()

	spy := ""
	civilians := []string{}
	for name, p := range room.players {
		switch p.Role {
		case RoleSpy:
			require.Empty(t, spy, "more than one spy")
			spy = name
		case RoleCivilian:
			civilians = append(civilians, name)
		}
	}
	require.NotEmpty(t, spy)
	slices.Sort(civilians)
	return spy, civilians
}

func submitAllClues(t *testing.T, e *Engine, roomID string, names ...string) *GameInfo {
	t.Helper()
	var info *GameInfo
	for _, name := range names {
		var err error
		info, err = e.SubmitClue(roomID, name, "clue from "+name)
		require.NoError(t, err)
	}
	return info
}

func TestEngine_Scenario(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	roomID := startedRoom(t, e, "Alice", "Bob", "Carol")

	info, ok := e.GetGameInfo(roomID)
	require.True(t, ok)
	assert.Equal(t, StatusClue, info.Status)
	assert.Equal(t, 0, info.CurrentRoundIndex)
	assert.ElementsMatch(t, []string{"Alice", "Bob", "Carol"}, info.PlayerOrder)

	spy, civilians := roles(t, e, roomID)
	assert.Len(t, civilians, 2)

	info = submitAllClues(t, e, roomID, "Alice", "Bob", "Carol")
	assert.Equal(t, StatusVote, info.Status)

	for _, voter := range []string{"Alice", "Bob", "Carol"} {
		_, err := e.SubmitVote(roomID, voter, "Dave")
		assert.ErrorIs(t, err, ErrInvalidVoteTarget)
	}
	after, _ := e.GetGameInfo(roomID)
	assert.Equal(t, StatusVote, after.Status)
	assert.Empty(t, after.Votes[0])

	for _, voter := range []string{"Alice", "Bob", "Carol"} {
		info, err := e.SubmitVote(roomID, voter, "Bob")
		require.NoError(t, err)
		after = info
	}

	bob, ok := after.Player("Bob")
	require.True(t, ok)
	assert.False(t, bob.IsActive)
	assert.Equal(t, []string{"Bob"}, after.EliminatedPlayers)

	if spy == "Bob" {
		assert.Equal(t, StatusCivilianWon, after.Status)
		assert.Equal(t, RoleCivilian, after.Winner)
	} else {
		// 剩两人且卧底在内
		assert.Equal(t, StatusSpyWon, after.Status)
		assert.Equal(t, RoleSpy, after.Winner)
	}
}

func TestEngine_CreateGame(t *testing.T) {
	e, words := newTestEngine(t, testConfig())

	roomID, err := e.CreateGame(context.Background())
	require.NoError(t, err)
	assert.Len(t, roomID, 4)
	assert.Equal(t, int32(1), words.calls.Load())

	info, ok := e.GetGameInfo(roomID)
	require.True(t, ok)
	assert.Equal(t, roomID, info.GameID)
	assert.Equal(t, StatusWaiting, info.Status)
	assert.Equal(t, -1, info.CurrentRoundIndex)
	assert.Equal(t, 2, info.MaxRoundIndex)
	assert.Empty(t, info.Players)
	assert.Empty(t, info.Winner)
}

func TestEngine_CreateGame_SupplierFailure(t *testing.T) {
	e, words := newTestEngine(t, testConfig())
	words.err = errors.New("upstream down")

	roomID, err := e.CreateGame(context.Background())
	assert.Empty(t, roomID)
	assert.ErrorIs(t, err, ErrWordSupplierUnavailable)
	assert.Contains(t, err.Error(), "upstream down")
	assert.Equal(t, 0, e.RoomCount())
}

func TestEngine_CreateGame_CodeReserver(t *testing.T) {
	reserver := &recordingReserver{reject: 3}
	e, _ := newTestEngine(t, testConfig(), WithCodeReserver(reserver))

	roomID, err := e.CreateGame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{roomID}, reserver.reserved)

	// 房间解散后释放房间码
	_, err = e.JoinGame(roomID, "Alice")
	require.NoError(t, err)
	info, err := e.LeaveGame(roomID, "Alice")
	require.NoError(t, err)
	assert.Nil(t, info)
	assert.Equal(t, []string{roomID}, reserver.released)
}

func TestEngine_CreateGame_CodesExhausted(t *testing.T) {
	reserver := &recordingReserver{reject: maxCodeAttempts}
	e, _ := newTestEngine(t, testConfig(), WithCodeReserver(reserver))

	_, err := e.CreateGame(context.Background())
	assert.ErrorIs(t, err, ErrRoomCodeExhausted)
	assert.Equal(t, 0, e.RoomCount())
}

func TestEngine_JoinGame(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	roomID, err := e.CreateGame(context.Background())
	require.NoError(t, err)

	names := []string{"Alice", "Bob", "Carol", "Dave"}
	for i, name := range names {
		info, err := e.JoinGame(roomID, name)
		require.NoError(t, err)
		assert.Len(t, info.Players, i+1)
		assert.Equal(t, names[:i+1], info.PlayerOrder)

		p, ok := info.Player(name)
		require.True(t, ok)
		assert.True(t, p.IsActive)
		assert.Equal(t, RoleHidden, p.Role)
	}

	tests := []struct {
		name    string
		roomID  string
		player  string
		wantErr error
	}{
		{"unknown room", "zzzz", "Eve", ErrUnknownRoom},
		{"name taken", roomID, "Alice", ErrPlayerNameTaken},
		{"name taken after trim", roomID, "  Bob ", ErrPlayerNameTaken},
		{"empty name", roomID, "   ", ErrInvalidPlayerName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.JoinGame(tt.roomID, tt.player)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	info, _ := e.GetGameInfo(roomID)
	assert.Len(t, info.Players, len(names))
}

func TestEngine_JoinGame_AfterStart(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	roomID := startedRoom(t, e, "Alice", "Bob", "Carol")

	_, err := e.JoinGame(roomID, "Dave")
	assert.ErrorIs(t, err, ErrGameAlreadyStarted)
}

func TestEngine_StartGame(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())

	_, err := e.StartGame("zzzz")
	assert.ErrorIs(t, err, ErrUnknownRoom)

	roomID, err := e.CreateGame(context.Background())
	require.NoError(t, err)
	_, err = e.JoinGame(roomID, "Alice")
	require.NoError(t, err)
	_, err = e.JoinGame(roomID, "Bob")
	require.NoError(t, err)

	_, err = e.StartGame(roomID)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	_, err = e.JoinGame(roomID, "Carol")
	require.NoError(t, err)
	info, err := e.StartGame(roomID)
	require.NoError(t, err)
	assert.Equal(t, StatusClue, info.Status)
	assert.Equal(t, 0, info.CurrentRoundIndex)
	assert.Len(t, info.Clues, 1)
	assert.Len(t, info.Votes, 1)
	for _, p := range info.Players {
		assert.Equal(t, RoleHidden, p.Role)
	}

	_, err = e.StartGame(roomID)
	assert.ErrorIs(t, err, ErrGameAlreadyStarted)
}

func TestEngine_StartGame_TwoPlayersWhenAllowed(t *testing.T) {
	cfg := testConfig()
	cfg.MinPlayers = 2
	e, _ := newTestEngine(t, cfg)

	roomID := startedRoom(t, e, "Alice", "Bob")
	spy, civilians := roles(t, e, roomID)
	assert.Contains(t, []string{"Alice", "Bob"}, spy)
	assert.Len(t, civilians, 1)
}

func TestEngine_SpyUniformity(t *testing.T) {
	const trials = 3000
	e, _ := newTestEngine(t, testConfig())
	roomID := startedRoom(t, e, "Alice", "Bob", "Carol")

	counts := map[string]int{}
	for range trials {
		_, err := e.RestartGame(context.Background(), roomID)
		require.NoError(t, err)
		_, err = e.StartGame(roomID)
		require.NoError(t, err)

		spy, civilians := roles(t, e, roomID)
		require.Len(t, civilians, 2)
		counts[spy]++
	}

	// 期望每人 1000 次，标准差约 26
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		assert.InDelta(t, trials/3, counts[name], 150, "spy count for %s", name)
	}
}

func TestEngine_SubmitClue(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	roomID := startedRoom(t, e, "Alice", "Bob", "Carol")

	info, err := e.SubmitClue(roomID, "Alice", "red")
	require.NoError(t, err)
	assert.Equal(t, StatusClue, info.Status)

	// 重复提交只覆盖，不推进
	info, err = e.SubmitClue(roomID, "Alice", "  round ")
	require.NoError(t, err)
	assert.Equal(t, StatusClue, info.Status)
	assert.Equal(t, map[string]string{"Alice": "round"}, info.Clues[0])

	info, err = e.SubmitClue(roomID, "Bob", "sweet")
	require.NoError(t, err)
	assert.Equal(t, StatusClue, info.Status)

	tests := []struct {
		name    string
		roomID  string
		player  string
		text    string
		wantErr error
	}{
		{"unknown room", "zzzz", "Carol", "tree", ErrUnknownRoom},
		{"unknown player", roomID, "Dave", "tree", ErrPlayerNotFound},
		{"empty clue", roomID, "Carol", "  ", ErrInvalidClue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.SubmitClue(tt.roomID, tt.player, tt.text)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	info, err = e.SubmitClue(roomID, "Carol", "tree")
	require.NoError(t, err)
	assert.Equal(t, StatusVote, info.Status)
	assert.Len(t, info.Clues[0], 3)

	_, err = e.SubmitClue(roomID, "Carol", "late")
	assert.ErrorIs(t, err, ErrGameNotInClueState)
}

func TestEngine_SubmitClue_NotInClueState(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	roomID, err := e.CreateGame(context.Background())
	require.NoError(t, err)
	_, err = e.JoinGame(roomID, "Alice")
	require.NoError(t, err)

	_, err = e.SubmitClue(roomID, "Alice", "red")
	assert.ErrorIs(t, err, ErrGameNotInClueState)

	_, err = e.SubmitVote(roomID, "Alice", "Alice")
	assert.ErrorIs(t, err, ErrGameNotInVoteState)
}

func TestEngine_SubmitClue_RevealsWord(t *testing.T) {
	cfg := testConfig()
	cfg.ClueMinDistance = 2
	e, _ := newTestEngine(t, cfg)
	roomID := startedRoom(t, e, "Alice", "Bob", "Carol")
	_, civilians := roles(t, e, roomID)
	civilian := civilians[0]

	// 平民的词是 "apple"
	tests := []struct {
		clue    string
		wantErr error
	}{
		{"Apple", ErrClueRevealsWord},
		{"green apples", ErrClueRevealsWord},
		{"aple", ErrClueRevealsWord},
		{"fruit", nil},
	}
	for _, tt := range tests {
		t.Run(tt.clue, func(t *testing.T) {
			_, err := e.SubmitClue(roomID, civilian, tt.clue)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEngine_SubmitClue_Concurrent(t *testing.T) {
	cfg := testConfig()
	e, _ := newTestEngine(t, cfg)
	names := make([]string, 16)
	for i := range names {
		names[i] = fmt.Sprintf("player%02d", i)
	}
	roomID := startedRoom(t, e, names...)

	var wg sync.WaitGroup
	var vote atomic.Int32
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			info, err := e.SubmitClue(roomID, name, "clue")
			if err != nil {
				t.Errorf("SubmitClue(%s) failed: %v", name, err)
				return
			}
			if info.Status == StatusVote {
				vote.Add(1)
			}
		}(name)
	}
	wg.Wait()

	// 只有最后一次提交看到状态切换
	assert.Equal(t, int32(1), vote.Load())
	info, _ := e.GetGameInfo(roomID)
	assert.Equal(t, StatusVote, info.Status)
	assert.Len(t, info.Clues[0], len(names))
}

func TestEngine_SubmitVote(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	roomID := startedRoom(t, e, "Alice", "Bob", "Carol", "Dave")
	submitAllClues(t, e, roomID, "Alice", "Bob", "Carol", "Dave")

	info, err := e.SubmitVote(roomID, "Alice", "Bob")
	require.NoError(t, err)
	assert.Equal(t, StatusVote, info.Status)

	info, err = e.SubmitVote(roomID, "Alice", "Carol")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Alice": "Carol"}, info.Votes[0])

	tests := []struct {
		name    string
		voter   string
		target  string
		wantErr error
	}{
		{"unknown voter", "Eve", "Bob", ErrPlayerNotFound},
		{"unknown target", "Bob", "Eve", ErrInvalidVoteTarget},
		{"empty target", "Bob", "", ErrInvalidVoteTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.SubmitVote(roomID, tt.voter, tt.target)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	info, _ = e.GetGameInfo(roomID)
	assert.Len(t, info.Votes[0], 1)
	assert.Empty(t, info.EliminatedPlayers)
}

func TestEngine_SubmitVote_TieBreak(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	roomID := startedRoom(t, e, "dan", "cat", "ben", "ann")
	submitAllClues(t, e, roomID, "ann", "ben", "cat", "dan")

	votes := [][2]string{{"ann", "ben"}, {"ben", "ann"}, {"cat", "ann"}, {"dan", "ben"}}
	var info *GameInfo
	for _, v := range votes {
		var err error
		info, err = e.SubmitVote(roomID, v[0], v[1])
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"ann"}, info.EliminatedPlayers)
	ann, _ := info.Player("ann")
	assert.False(t, ann.IsActive)
	ben, _ := info.Player("ben")
	assert.True(t, ben.IsActive)
}

func TestEngine_CivilianEliminated_NextRound(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	names := []string{"Alice", "Bob", "Carol", "Dave", "Erin"}
	roomID := startedRoom(t, e, names...)
	_, civilians := roles(t, e, roomID)
	victim := civilians[0]

	submitAllClues(t, e, roomID, names...)
	var info *GameInfo
	for _, voter := range names {
		var err error
		info, err = e.SubmitVote(roomID, voter, victim)
		require.NoError(t, err)
	}

	assert.Equal(t, StatusClue, info.Status)
	assert.Equal(t, 1, info.CurrentRoundIndex)
	assert.Len(t, info.Clues, 2)
	assert.Len(t, info.Votes, 2)
	assert.Empty(t, info.Clues[1])
	assert.Equal(t, []string{victim}, info.EliminatedPlayers)
	assert.Equal(t, 4, info.ActiveCount())

	_, err := e.SubmitClue(roomID, victim, "ghost")
	assert.ErrorIs(t, err, ErrPlayerNotActive)

	// 下一次切换不需要出局玩家
	remaining := slices.DeleteFunc(slices.Clone(names), func(n string) bool { return n == victim })
	info = submitAllClues(t, e, roomID, remaining...)
	assert.Equal(t, StatusVote, info.Status)

	_, err = e.SubmitVote(roomID, remaining[0], victim)
	assert.ErrorIs(t, err, ErrInvalidVoteTarget)
	_, err = e.SubmitVote(roomID, victim, remaining[0])
	assert.ErrorIs(t, err, ErrPlayerNotActive)
}

func TestEngine_WinConditions(t *testing.T) {
	t.Run("spy eliminated", func(t *testing.T) {
		var results []*Result
		e, _ := newTestEngine(t, testConfig(), WithGameOverHook(func(r *Result) { results = append(results, r) }))
		names := []string{"Alice", "Bob", "Carol", "Dave"}
		roomID := startedRoom(t, e, names...)
		spy, _ := roles(t, e, roomID)

		submitAllClues(t, e, roomID, names...)
		var info *GameInfo
		for _, voter := range names {
			var err error
			info, err = e.SubmitVote(roomID, voter, spy)
			require.NoError(t, err)
		}

		assert.Equal(t, StatusCivilianWon, info.Status)
		assert.Equal(t, RoleCivilian, info.Winner)
		require.Len(t, results, 1)
		assert.Equal(t, roomID, results[0].RoomID)
		assert.Equal(t, RoleCivilian, results[0].Winner)
		assert.Equal(t, "apple", results[0].CivilianWord)
		assert.Equal(t, "pear", results[0].SpyWord)
		assert.Equal(t, 1, results[0].RoundsPlayed)
		assert.Equal(t, []string{spy}, results[0].Eliminated)

		_, err := e.SubmitClue(roomID, "Alice", "late")
		assert.ErrorIs(t, err, ErrGameAlreadyEnded)
		_, err = e.SubmitVote(roomID, "Alice", "Bob")
		assert.ErrorIs(t, err, ErrGameAlreadyEnded)
	})

	t.Run("last round reached", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxRoundIndex = 0
		e, _ := newTestEngine(t, cfg)
		names := []string{"Alice", "Bob", "Carol", "Dave"}
		roomID := startedRoom(t, e, names...)
		_, civilians := roles(t, e, roomID)

		submitAllClues(t, e, roomID, names...)
		var info *GameInfo
		for _, voter := range names {
			var err error
			info, err = e.SubmitVote(roomID, voter, civilians[0])
			require.NoError(t, err)
		}

		assert.Equal(t, StatusSpyWon, info.Status)
		assert.Equal(t, 3, info.ActiveCount())
	})

	t.Run("two players left", func(t *testing.T) {
		e, _ := newTestEngine(t, testConfig())
		names := []string{"Alice", "Bob", "Carol"}
		roomID := startedRoom(t, e, names...)
		_, civilians := roles(t, e, roomID)

		submitAllClues(t, e, roomID, names...)
		var info *GameInfo
		for _, voter := range names {
			var err error
			info, err = e.SubmitVote(roomID, voter, civilians[0])
			require.NoError(t, err)
		}

		assert.Equal(t, StatusSpyWon, info.Status)
		assert.Equal(t, 0, info.CurrentRoundIndex)
	})
}

func TestEngine_GetGameInfo_Redaction(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	names := []string{"Alice", "Bob", "Carol"}
	roomID := startedRoom(t, e, names...)
	spy, _ := roles(t, e, roomID)

	info, ok := e.GetGameInfo(roomID)
	require.True(t, ok)
	for _, p := range info.Players {
		assert.Equal(t, RoleHidden, p.Role)
	}
	assert.Empty(t, info.Winner)

	submitAllClues(t, e, roomID, names...)
	for _, voter := range names {
		_, err := e.SubmitVote(roomID, voter, spy)
		require.NoError(t, err)
	}

	info, ok = e.GetGameInfo(roomID)
	require.True(t, ok)
	for _, p := range info.Players {
		if p.PlayerName == spy {
			assert.Equal(t, RoleSpy, p.Role)
		} else {
			assert.Equal(t, RoleCivilian, p.Role)
		}
	}

	// 快照与房间不共享内存
	info.Clues[0]["Alice"] = "tampered"
	info.PlayerOrder[0] = "tampered"
	fresh, _ := e.GetGameInfo(roomID)
	assert.NotEqual(t, "tampered", fresh.Clues[0]["Alice"])
	assert.NotEqual(t, "tampered", fresh.PlayerOrder[0])

	_, ok = e.GetGameInfo("zzzz")
	assert.False(t, ok)
}

func TestEngine_GetWord(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	roomID, err := e.CreateGame(context.Background())
	require.NoError(t, err)
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		_, err := e.JoinGame(roomID, name)
		require.NoError(t, err)
	}

	_, err = e.GetWord(roomID, "Alice")
	assert.ErrorIs(t, err, ErrGameNotStarted)
	_, err = e.GetWord(roomID, "Dave")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	_, err = e.GetWord("zzzz", "Alice")
	assert.ErrorIs(t, err, ErrUnknownRoom)

	_, err = e.StartGame(roomID)
	require.NoError(t, err)
	spy, civilians := roles(t, e, roomID)

	word, err := e.GetWord(roomID, spy)
	require.NoError(t, err)
	assert.Equal(t, "pear", word)
	for _, name := range civilians {
		word, err := e.GetWord(roomID, name)
		require.NoError(t, err)
		assert.Equal(t, "apple", word)
	}
}

func TestEngine_LeaveGame(t *testing.T) {
	t.Run("waiting room", func(t *testing.T) {
		e, _ := newTestEngine(t, testConfig())
		roomID, err := e.CreateGame(context.Background())
		require.NoError(t, err)
		for _, name := range []string{"Alice", "Bob"} {
			_, err := e.JoinGame(roomID, name)
			require.NoError(t, err)
		}

		info, err := e.LeaveGame(roomID, "Alice")
		require.NoError(t, err)
		assert.Equal(t, StatusWaiting, info.Status)
		assert.Equal(t, []string{"Bob"}, info.PlayerOrder)

		_, err = e.LeaveGame(roomID, "Alice")
		assert.ErrorIs(t, err, ErrPlayerNotFound)

		// 离开后可以重新加入
		_, err = e.JoinGame(roomID, "Alice")
		assert.NoError(t, err)
	})

	t.Run("last player deletes room", func(t *testing.T) {
		e, _ := newTestEngine(t, testConfig())
		roomID, err := e.CreateGame(context.Background())
		require.NoError(t, err)
		_, err = e.JoinGame(roomID, "Alice")
		require.NoError(t, err)

		info, err := e.LeaveGame(roomID, "Alice")
		require.NoError(t, err)
		assert.Nil(t, info)

		_, ok := e.GetGameInfo(roomID)
		assert.False(t, ok)
		_, err = e.JoinGame(roomID, "Bob")
		assert.ErrorIs(t, err, ErrUnknownRoom)
		assert.Equal(t, 0, e.RoomCount())
	})

	t.Run("purges clues and advances", func(t *testing.T) {
		e, _ := newTestEngine(t, testConfig())
		roomID := startedRoom(t, e, "Alice", "Bob", "Carol", "Dave")
		spy, civilians := roles(t, e, roomID)
		leaver := civilians[2]

		submitAllClues(t, e, roomID, spy, civilians[0], civilians[1])
		info, err := e.LeaveGame(roomID, leaver)
		require.NoError(t, err)

		assert.Equal(t, StatusVote, info.Status)
		assert.Len(t, info.Clues[0], 3)
		assert.NotContains(t, info.PlayerOrder, leaver)
		_, found := info.Player(leaver)
		assert.False(t, found)
	})

	t.Run("purges votes for and by the leaver", func(t *testing.T) {
		e, _ := newTestEngine(t, testConfig())
		names := []string{"Alice", "Bob", "Carol", "Dave", "Erin"}
		roomID := startedRoom(t, e, names...)
		spy, civilians := roles(t, e, roomID)
		leaver := civilians[0]

		submitAllClues(t, e, roomID, names...)
		_, err := e.SubmitVote(roomID, civilians[1], leaver)
		require.NoError(t, err)
		_, err = e.SubmitVote(roomID, leaver, spy)
		require.NoError(t, err)
		_, err = e.SubmitVote(roomID, civilians[2], spy)
		require.NoError(t, err)

		info, err := e.LeaveGame(roomID, leaver)
		require.NoError(t, err)
		assert.Equal(t, StatusVote, info.Status)
		assert.Equal(t, map[string]string{civilians[2]: spy}, info.Votes[0])
		assert.NotContains(t, info.Clues[0], leaver)
	})

	t.Run("eliminated player leaves", func(t *testing.T) {
		e, _ := newTestEngine(t, testConfig())
		names := []string{"Alice", "Bob", "Carol", "Dave", "Erin"}
		roomID := startedRoom(t, e, names...)
		_, civilians := roles(t, e, roomID)
		target := civilians[0]

		submitAllClues(t, e, roomID, names...)
		var info *GameInfo
		var err error
		for _, name := range names {
			info, err = e.SubmitVote(roomID, name, target)
			require.NoError(t, err)
		}
		require.Equal(t, StatusClue, info.Status)
		require.Equal(t, []string{target}, info.EliminatedPlayers)

		info, err = e.LeaveGame(roomID, target)
		require.NoError(t, err)

		want := map[string]string{}
		for _, name := range names {
			if name != target {
				want[name] = target
			}
		}
		assert.Equal(t, want, info.Votes[0])
		assert.Equal(t, []string{target}, info.EliminatedPlayers)
		assert.Equal(t, 1, info.CurrentRoundIndex)
	})

	t.Run("spy leaves", func(t *testing.T) {
		var results []*Result
		e, _ := newTestEngine(t, testConfig(), WithGameOverHook(func(r *Result) { results = append(results, r) }))
		roomID := startedRoom(t, e, "Alice", "Bob", "Carol", "Dave")
		spy, _ := roles(t, e, roomID)

		info, err := e.LeaveGame(roomID, spy)
		require.NoError(t, err)
		assert.Equal(t, StatusCivilianWon, info.Status)
		assert.Len(t, results, 1)
	})

	t.Run("down to two with spy", func(t *testing.T) {
		e, _ := newTestEngine(t, testConfig())
		roomID := startedRoom(t, e, "Alice", "Bob", "Carol")
		_, civilians := roles(t, e, roomID)

		info, err := e.LeaveGame(roomID, civilians[0])
		require.NoError(t, err)
		assert.Equal(t, StatusSpyWon, info.Status)
		assert.Equal(t, RoleSpy, info.Winner)
	})
}

func TestEngine_RestartGame(t *testing.T) {
	e, words := newTestEngine(t, testConfig())
	words.pairs = []WordPair{{Civilian: "apple", Spy: "pear"}, {Civilian: "river", Spy: "lake"}}
	names := []string{"Alice", "Bob", "Carol"}
	roomID := startedRoom(t, e, names...)
	spy, _ := roles(t, e, roomID)

	submitAllClues(t, e, roomID, names...)
	for _, voter := range names {
		_, err := e.SubmitVote(roomID, voter, spy)
		require.NoError(t, err)
	}

	info, err := e.RestartGame(context.Background(), roomID)
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, info.Status)
	assert.Equal(t, -1, info.CurrentRoundIndex)
	assert.Empty(t, info.Clues)
	assert.Empty(t, info.Votes)
	assert.Empty(t, info.EliminatedPlayers)
	assert.Empty(t, info.Winner)
	assert.Equal(t, names, info.PlayerOrder)
	for _, p := range info.Players {
		assert.True(t, p.IsActive)
	}

	_, err = e.GetWord(roomID, "Alice")
	assert.ErrorIs(t, err, ErrGameNotStarted)

	_, err = e.StartGame(roomID)
	require.NoError(t, err)
	word, err := e.GetWord(roomID, "Alice")
	require.NoError(t, err)
	assert.Contains(t, []string{"river", "lake"}, word)

	_, err = e.RestartGame(context.Background(), "zzzz")
	assert.ErrorIs(t, err, ErrUnknownRoom)

	words.mu.Lock()
	words.err = errors.New("quota exceeded")
	words.mu.Unlock()
	_, err = e.RestartGame(context.Background(), roomID)
	assert.ErrorIs(t, err, ErrWordSupplierUnavailable)

	// 重开失败不影响当前对局
	info, _ = e.GetGameInfo(roomID)
	assert.Equal(t, StatusClue, info.Status)
}

func TestEngine_EvictionReleasesCode(t *testing.T) {
	cfg := testConfig()
	reserver := &recordingReserver{}
	e, _ := newTestEngine(t, cfg, WithCodeReserver(reserver))

	roomID, err := e.CreateGame(context.Background())
	require.NoError(t, err)

	room, ok := e.rooms.Get(roomID)
	require.True(t, ok)

	evicted := e.rooms.evictInactive(room.LastActiveTime().Add(cfg.EvictTimeout + 1))
	assert.Equal(t, 1, evicted)

	_, ok = e.GetGameInfo(roomID)
	assert.False(t, ok)
	_, err = e.JoinGame(roomID, "Alice")
	assert.ErrorIs(t, err, ErrUnknownRoom)
	assert.Equal(t, []string{roomID}, reserver.released)
}

func TestEngine_RefreshesLiveCodes(t *testing.T) {
	reserver := &recordingReserver{}
	e, _ := newTestEngine(t, testConfig(), WithCodeReserver(reserver), WithCodeRefresh(5*time.Millisecond))

	live, err := e.CreateGame(context.Background())
	require.NoError(t, err)
	gone, err := e.CreateGame(context.Background())
	require.NoError(t, err)
	_, err = e.JoinGame(gone, "Alice")
	require.NoError(t, err)
	_, err = e.LeaveGame(gone, "Alice")
	require.NoError(t, err)

	waitRefreshes := func(n int) {
		start := reserver.refreshCount(live)
		require.Eventually(t, func() bool { return reserver.refreshCount(live) >= start+n }, time.Second, time.Millisecond)
	}
	// 等待离开前已开始的刷新结束
	waitRefreshes(2)
	goneBefore := reserver.refreshCount(gone)
	waitRefreshes(2)
	assert.Equal(t, goneBefore, reserver.refreshCount(gone), "deleted rooms are not refreshed")

	require.NoError(t, e.Shutdown(context.Background()))
	after := reserver.refreshCount(live)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, reserver.refreshCount(live), "refresh must stop on shutdown")
}

func TestRevealsWord(t *testing.T) {
	tests := []struct {
		clue        string
		word        string
		minDistance int
		want        bool
	}{
		{"apple", "apple", 1, true},
		{"APPLE pie", "apple", 1, true},
		{"appel", "apple", 2, false},
		{"appel", "apple", 3, true},
		{"banana", "apple", 3, false},
		{"anything", "", 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.clue, func(t *testing.T) {
			if got := revealsWord(tt.clue, tt.word, tt.minDistance); got != tt.want {
				t.Errorf("revealsWord(%q, %q, %d) = %v, want %v", tt.clue, tt.word, tt.minDistance, got, tt.want)
			}
		})
	}
}

func TestEngine_VersionGrows(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	roomID, err := e.CreateGame(context.Background())
	require.NoError(t, err)

	created, ok := e.GetGameInfo(roomID)
	require.True(t, ok)

	joined, err := e.JoinGame(roomID, "Alice")
	require.NoError(t, err)
	assert.Greater(t, joined.Version, created.Version)

	// 失败的修改和读取不改变版本
	_, err = e.JoinGame(roomID, "Alice")
	require.ErrorIs(t, err, ErrPlayerNameTaken)
	again, _ := e.GetGameInfo(roomID)
	assert.Equal(t, joined.Version, again.Version)
}
