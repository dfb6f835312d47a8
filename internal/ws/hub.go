// Package ws 通过 WebSocket 向玩家推送房间快照
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sudooom.spy/internal/game"
)

// DisconnectFunc 连接断开回调
type DisconnectFunc func(roomID, playerName string)

// Hub 管理所有房间的连接
// 每个连接只接收比上次更新的快照，并发推送不会回退
type Hub struct {
	mu           sync.Mutex
	rooms        map[string]map[string]*Client // roomId -> clientId -> client
	onDisconnect DisconnectFunc
	logger       *slog.Logger
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]*Client),
		logger: slog.Default().With("component", "WSHub"),
	}
}

// SetOnDisconnect 设置断开回调
func (h *Hub) SetOnDisconnect(fn DisconnectFunc) {
	h.onDisconnect = fn
}

// Register 注册连接，并发送当前快照
func (h *Hub) Register(conn *websocket.Conn, roomID, playerName string, current *game.GameInfo) *Client {
	c := &Client{
		id:         uuid.NewString(),
		roomID:     roomID,
		playerName: playerName,
		conn:       conn,
		hub:        h,
		send:       make(chan []byte, sendBuffer),
	}
	c.logger = h.logger.With("clientId", c.id, "roomId", roomID, "player", playerName)

	h.mu.Lock()
	rc, ok := h.rooms[roomID]
	if !ok {
		rc = make(map[string]*Client)
		h.rooms[roomID] = rc
	}
	rc[c.id] = c
	if current != nil {
		if data, err := json.Marshal(current); err == nil {
			c.send <- data
			c.version = current.Version
		}
	}
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()

	c.logger.Info("WebSocket connected")
	return c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	h.removeLocked(c)
	quiet := c.quiet
	h.mu.Unlock()

	c.close()
	c.logger.Info("WebSocket disconnected")

	if !quiet && h.onDisconnect != nil {
		h.onDisconnect(c.roomID, c.playerName)
	}
}

func (h *Hub) removeLocked(c *Client) {
	rc, ok := h.rooms[c.roomID]
	if !ok {
		return
	}
	delete(rc, c.id)
	if len(rc) == 0 {
		delete(h.rooms, c.roomID)
	}
}

// BroadcastToRoom 向房间内所有连接推送快照，info 为 nil 时关闭房间连接
func (h *Hub) BroadcastToRoom(roomID string, info *game.GameInfo) {
	if info == nil {
		h.closeRoom(roomID)
		return
	}

	data, err := json.Marshal(info)
	if err != nil {
		h.logger.Error("Failed to marshal snapshot", "roomId", roomID, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	rc, ok := h.rooms[roomID]
	if !ok {
		return
	}
	for id, c := range rc {
		if info.Version <= c.version {
			h.logger.Debug("Dropped stale snapshot", "roomId", roomID, "clientId", id, "version", info.Version)
			continue
		}
		select {
		case c.send <- data:
			c.version = info.Version
		default:
			// 发送过慢，断开连接但保留玩家，可重新连接
			h.logger.Warn("Client send buffer full, closing", "roomId", roomID, "clientId", id)
			c.quiet = true
			h.removeLocked(c)
			c.close()
		}
	}
}

// closeRoom 关闭已解散房间的连接，不触发断开回调
func (h *Hub) closeRoom(roomID string) {
	h.mu.Lock()
	rc, ok := h.rooms[roomID]
	delete(h.rooms, roomID)
	if ok {
		for _, c := range rc {
			c.quiet = true
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	for _, c := range rc {
		c.close()
	}
}

// ClientCount 房间连接数
func (h *Hub) ClientCount(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rc, ok := h.rooms[roomID]; ok {
		return len(rc)
	}
	return 0
}

// Close 关闭所有连接
func (h *Hub) Close() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]map[string]*Client)
	for _, rc := range rooms {
		for _, c := range rc {
			c.quiet = true
		}
	}
	h.mu.Unlock()

	for _, rc := range rooms {
		for _, c := range rc {
			c.close()
		}
	}
}
