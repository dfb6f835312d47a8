package game

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Manager 房间管理器，负责房间生命周期，清理空闲超过 evictTimeout 的房间
//
//	manager := NewManager(2*time.Hour, time.Minute)
//	defer manager.Shutdown(ctx)
type Manager struct {
	rooms sync.Map // roomId -> *Room

	evictTimeout time.Duration
	evictTicker  *time.Ticker
	stopChan     chan struct{}
	stopOnce     sync.Once

	// onRemove 房间移除后回调
	onRemove func(roomID string)

	logger *slog.Logger
}

// NewManager 创建房间管理器，evictInterval 不大于 0 时不清理
func NewManager(evictTimeout time.Duration, evictInterval time.Duration) *Manager {
	m := &Manager{
		evictTimeout: evictTimeout,
		stopChan:     make(chan struct{}),
		logger:       slog.Default().With("component", "RoomManager"),
	}

	if evictInterval > 0 && evictTimeout > 0 {
		m.evictTicker = time.NewTicker(evictInterval)
		go m.evictLoop()
	}

	return m
}

// SetOnRemove 设置移除回调
func (m *Manager) SetOnRemove(fn func(roomID string)) {
	m.onRemove = fn
}

// Insert 添加房间，房间号已存在时返回 false
func (m *Manager) Insert(room *Room) bool {
	_, loaded := m.rooms.LoadOrStore(room.id, room)
	return !loaded
}

// Get 获取房间
func (m *Manager) Get(roomID string) (*Room, bool) {
	val, ok := m.rooms.Load(roomID)
	if !ok {
		return nil, false
	}
	return val.(*Room), true
}

// Exists 房间是否存在
func (m *Manager) Exists(roomID string) bool {
	_, ok := m.rooms.Load(roomID)
	return ok
}

// Remove 移除房间
func (m *Manager) Remove(roomID string) {
	if _, loaded := m.rooms.LoadAndDelete(roomID); !loaded {
		return
	}
	m.logger.Info("Removed room", "roomId", roomID)
	if m.onRemove != nil {
		m.onRemove(roomID)
	}
}

// Count 房间数量
func (m *Manager) Count() int {
	count := 0
	m.rooms.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

// RoomIDs 所有房间号
func (m *Manager) RoomIDs() []string {
	ids := []string{}
	m.rooms.Range(func(key, value interface{}) bool {
		ids = append(ids, key.(string))
		return true
	})
	return ids
}

func (m *Manager) evictLoop() {
	for {
		select {
		case <-m.evictTicker.C:
			m.evictInactive(time.Now())
		case <-m.stopChan:
			m.logger.Info("Evict loop stopped")
			return
		}
	}
}

// evictInactive 清理空闲超时的房间
func (m *Manager) evictInactive(now time.Time) int {
	toEvict := []*Room{}

	m.rooms.Range(func(key, value interface{}) bool {
		room := value.(*Room)
		if now.Sub(room.LastActiveTime()) > m.evictTimeout {
			toEvict = append(toEvict, room)
		}
		return true
	})

	evicted := 0
	for _, room := range toEvict {
		room.mu.Lock()
		stale := !room.closed && now.Sub(room.lastActive) > m.evictTimeout
		if stale {
			room.closed = true
		}
		lastActive := room.lastActive
		room.mu.Unlock()

		if !stale {
			continue
		}
		m.Remove(room.id)
		evicted++
		m.logger.Info("Evicted inactive room", "roomId", room.id, "lastActive", lastActive)
	}
	return evicted
}

// Shutdown 停止清理，房间不做持久化
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		if m.evictTicker != nil {
			m.evictTicker.Stop()
		}
	})

	m.logger.Info("RoomManager shutdown complete", "rooms", m.Count())
	return nil
}
