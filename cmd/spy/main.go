package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"sudooom.spy/internal/config"
	"sudooom.spy/internal/game"
	"sudooom.spy/internal/handler"
	"sudooom.spy/internal/health"
	spyNats "sudooom.spy/internal/nats"
	spyRedis "sudooom.spy/internal/redis"
	"sudooom.spy/internal/repository"
	"sudooom.spy/internal/router"
	"sudooom.spy/internal/service"
	"sudooom.spy/internal/word"
	"sudooom.spy/internal/workerpool"
	"sudooom.spy/internal/ws"
)

func main() {
	// 加载配置
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化词库
	words, err := newWordSupplier(cfg.Word)
	if err != nil {
		logger.Error("Failed to create word supplier", "error", err)
		os.Exit(1)
	}
	logger.Info("Word supplier ready", "provider", cfg.Word.Provider, "fallback", cfg.Word.Fallback)

	var (
		engineOpts  []game.Option
		serviceOpts []service.Option
		redisClient *redis.Client
		db          *pgxpool.Pool
		natsClient  *spyNats.Client
	)

	// 连接 Redis（跨节点房间码预占）
	if cfg.Redis.Enabled {
		redisClient, err = spyRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		codes := spyRedis.NewCodeStore(redisClient, uuid.NewString(), cfg.Redis.CodeTTL)
		engineOpts = append(engineOpts,
			game.WithCodeReserver(codes),
			game.WithCodeRefresh(cfg.Redis.CodeTTL/3))
		logger.Info("Connected to Redis", "addr", cfg.Redis.Addr())
	}

	// 连接数据库（对局历史）
	if cfg.Database.Enabled {
		db, err = connectDatabase(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		results := repository.NewResultRepository(db)
		if err := results.EnsureSchema(ctx); err != nil {
			logger.Error("Failed to create schema", "error", err)
			os.Exit(1)
		}
		serviceOpts = append(serviceOpts, service.WithResultStore(results))
		logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)
	}

	// 连接 NATS（快照与对局结果分发）
	if cfg.NATS.Enabled {
		natsClient, err = spyNats.NewClient(cfg.NATS)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher := spyNats.NewSnapshotPublisher(natsClient.Conn())
		serviceOpts = append(serviceOpts,
			service.WithBroadcaster(publisher),
			service.WithResultPublisher(publisher))
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	}

	// 初始化服务
	pool := workerpool.New(cfg.Broadcast.Workers, cfg.Broadcast.QueueSize, logger)
	hub := ws.NewHub()
	serviceOpts = append(serviceOpts, service.WithBroadcaster(hub))

	gameCfg := cfg.GameConfig()
	rooms := game.NewManager(gameCfg.EvictTimeout, gameCfg.EvictInterval)

	// 对局结束回调，两者创建后再绑定
	var gameService *service.GameService
	engineOpts = append(engineOpts, game.WithGameOverHook(func(r *game.Result) {
		gameService.RecordResult(r)
	}))
	engine := game.NewEngine(gameCfg, rooms, words, engineOpts...)
	gameService = service.NewGameService(engine, pool, serviceOpts...)
	hub.SetOnDisconnect(gameService.HandleDisconnect)

	healthChecker := health.NewChecker(natsConn(natsClient), redisClient, db, engine.RoomCount)

	// 设置路由
	r := router.SetupRouter(cfg,
		handler.NewGameHandler(gameService, hub, cfg.CORS),
		handler.NewHealthHandler(healthChecker))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Info("Spy server started", "addr", server.Addr, "mode", cfg.App.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	hub.Close()
	if err := engine.Shutdown(shutdownCtx); err != nil {
		logger.Error("Engine shutdown failed", "error", err)
	}
	// 在引擎之后关闭，保证退出期间结束的对局结果仍能写入
	pool.Shutdown()
	cancel()
	logger.Info("Server stopped")
}

// newWordSupplier 按配置创建词库
func newWordSupplier(cfg config.WordConfig) (game.WordSupplier, error) {
	static, err := word.LoadStaticSupplier(cfg.BankFile)
	if err != nil {
		return nil, err
	}
	if cfg.Provider != "groq" {
		return static, nil
	}

	groq, err := word.NewGroqSupplier(word.GroqConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Fallback {
		return word.NewFallbackSupplier(groq, static), nil
	}
	return groq, nil
}

func natsConn(c *spyNats.Client) *nats.Conn {
	if c == nil {
		return nil
	}
	return c.Conn()
}

// connectDatabase 连接 PostgreSQL
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
