package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"sudooom.spy/internal/config"
	"sudooom.spy/internal/game"
	"sudooom.spy/internal/middleware"
	"sudooom.spy/internal/service"
	"sudooom.spy/internal/ws"
	"sudooom.spy/pkg/response"
)

const (
	defaultResultLimit = 20
	maxResultLimit     = 100
)

type JoinRequest struct {
	PlayerName string `json:"playerName" binding:"required"`
}

type ClueRequest struct {
	PlayerName string `json:"playerName" binding:"required"`
	Text       string `json:"text" binding:"required"`
}

type VoteRequest struct {
	VoterName string `json:"voterName" binding:"required"`
	VotedFor  string `json:"votedFor" binding:"required"`
}

// GameHandler 游戏处理器
type GameHandler struct {
	gameService *service.GameService
	hub         *ws.Hub
	upgrader    websocket.Upgrader
}

// NewGameHandler 创建游戏处理器，WebSocket 来源校验沿用 CORS 配置
func NewGameHandler(gameService *service.GameService, hub *ws.Hub, corsCfg config.CORSConfig) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(corsCfg, r.Header.Get("Origin"))
			},
		},
	}
}

// CreateGame 创建房间
// POST /api/v1/games
func (h *GameHandler) CreateGame(c *gin.Context) {
	roomID, err := h.gameService.CreateGame(c.Request.Context())
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}
	response.Created(c, gin.H{"roomId": roomID})
}

// GetGame 获取房间快照
// GET /api/v1/games/:roomId
func (h *GameHandler) GetGame(c *gin.Context) {
	info, ok := h.gameService.GetGameInfo(c.Param("roomId"))
	if !ok {
		response.ErrorFromAppError(c, game.ErrUnknownRoom)
		return
	}
	response.Success(c, info)
}

// JoinGame 加入房间
// POST /api/v1/games/:roomId/players
func (h *GameHandler) JoinGame(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err.Error())
		return
	}
	h.reply(c)(h.gameService.JoinGame(c.Param("roomId"), req.PlayerName))
}

// LeaveGame 离开房间，房间解散时 data 为 null
// DELETE /api/v1/games/:roomId/players/:playerName
func (h *GameHandler) LeaveGame(c *gin.Context) {
	h.reply(c)(h.gameService.LeaveGame(c.Param("roomId"), c.Param("playerName")))
}

// StartGame 开始游戏
// POST /api/v1/games/:roomId/start
func (h *GameHandler) StartGame(c *gin.Context) {
	h.reply(c)(h.gameService.StartGame(c.Param("roomId")))
}

// RestartGame 重新开始
// POST /api/v1/games/:roomId/restart
func (h *GameHandler) RestartGame(c *gin.Context) {
	h.reply(c)(h.gameService.RestartGame(c.Request.Context(), c.Param("roomId")))
}

// SubmitClue 提交描述
// POST /api/v1/games/:roomId/clues
func (h *GameHandler) SubmitClue(c *gin.Context) {
	var req ClueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err.Error())
		return
	}
	h.reply(c)(h.gameService.SubmitClue(c.Param("roomId"), req.PlayerName, req.Text))
}

// SubmitVote 投票
// POST /api/v1/games/:roomId/votes
func (h *GameHandler) SubmitVote(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err.Error())
		return
	}
	h.reply(c)(h.gameService.SubmitVote(c.Param("roomId"), req.VoterName, req.VotedFor))
}

// GetWord 获取自己的词
// GET /api/v1/games/:roomId/players/:playerName/word
func (h *GameHandler) GetWord(c *gin.Context) {
	word, err := h.gameService.GetWord(c.Param("roomId"), c.Param("playerName"))
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}
	response.Success(c, gin.H{"word": word})
}

// ListResults 最近的对局结果
// GET /api/v1/results?limit=20
func (h *GameHandler) ListResults(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultResultLimit)))
	if err != nil || limit <= 0 || limit > maxResultLimit {
		response.InvalidParams(c, "limit must be between 1 and 100")
		return
	}

	results, err := h.gameService.RecentResults(c.Request.Context(), limit)
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}
	response.Success(c, gin.H{"list": results})
}

// Connect 建立房间 WebSocket，玩家须已在房间内，断开即离开房间
// GET /ws/:roomId/:playerName
func (h *GameHandler) Connect(c *gin.Context) {
	roomID := c.Param("roomId")
	playerName := c.Param("playerName")

	info, ok := h.gameService.GetGameInfo(roomID)
	if !ok {
		response.ErrorFromAppError(c, game.ErrUnknownRoom)
		return
	}
	if _, ok := info.Player(playerName); !ok {
		response.ErrorFromAppError(c, game.ErrPlayerNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时已写回响应
		return
	}
	h.hub.Register(conn, roomID, playerName, info)
}

func (h *GameHandler) reply(c *gin.Context) func(*game.GameInfo, error) {
	return func(info *game.GameInfo, err error) {
		if err != nil {
			response.ErrorFromAppError(c, err)
			return
		}
		response.Success(c, info)
	}
}
