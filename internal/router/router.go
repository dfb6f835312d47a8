package router

import (
	"github.com/gin-gonic/gin"

	"sudooom.spy/internal/config"
	"sudooom.spy/internal/handler"
	"sudooom.spy/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(
	cfg *config.Config,
	gameHandler *handler.GameHandler,
	healthHandler *handler.HealthHandler,
) *gin.Engine {
	gin.SetMode(cfg.App.Mode)

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS))

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)

	// 房间 WebSocket
	r.GET("/ws/:roomId/:playerName", gameHandler.Connect)

	v1 := r.Group("/api/v1")
	{
		games := v1.Group("/games")
		{
			games.POST("", gameHandler.CreateGame)
			games.GET("/:roomId", gameHandler.GetGame)
			games.POST("/:roomId/players", gameHandler.JoinGame)
			games.DELETE("/:roomId/players/:playerName", gameHandler.LeaveGame)
			games.GET("/:roomId/players/:playerName/word", gameHandler.GetWord)
			games.POST("/:roomId/start", gameHandler.StartGame)
			games.POST("/:roomId/restart", gameHandler.RestartGame)
			games.POST("/:roomId/clues", gameHandler.SubmitClue)
			games.POST("/:roomId/votes", gameHandler.SubmitVote)
		}

		v1.GET("/results", gameHandler.ListResults)
	}

	return r
}
