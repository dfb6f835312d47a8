package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"sudooom.spy/internal/game"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Game      GameConfig      `mapstructure:"game"`
	Word      WordConfig      `mapstructure:"word"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GameConfig struct {
	MaxRoundIndex   int           `mapstructure:"max_round_index"`
	MinPlayers      int           `mapstructure:"min_players"`
	RoomCodeLength  int           `mapstructure:"room_code_length"`
	ClueMinDistance int           `mapstructure:"clue_min_distance"`
	EvictTimeout    time.Duration `mapstructure:"evict_timeout"`
	EvictInterval   time.Duration `mapstructure:"evict_interval"`
}

type WordConfig struct {
	Provider string        `mapstructure:"provider"` // groq | static
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
	BankFile string        `mapstructure:"bank_file"`
	Fallback bool          `mapstructure:"fallback"` // groq 失败时回退到内置词库
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	CodeTTL  time.Duration `mapstructure:"code_ttl"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type BroadcastConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// Load 加载配置
// 顺序：.env（可选）、YAML 配置文件（path 为空时跳过）、环境变量覆盖
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := game.DefaultConfig()

	v.SetDefault("app.name", "spy")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.mode", "release")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", 10*time.Second)

	v.SetDefault("game.max_round_index", def.MaxRoundIndex)
	v.SetDefault("game.min_players", def.MinPlayers)
	v.SetDefault("game.room_code_length", def.RoomCodeLength)
	v.SetDefault("game.clue_min_distance", def.ClueMinDistance)
	v.SetDefault("game.evict_timeout", def.EvictTimeout)
	v.SetDefault("game.evict_interval", def.EvictInterval)

	v.SetDefault("word.provider", "static")
	v.SetDefault("word.timeout", def.WordTimeout)
	v.SetDefault("word.fallback", true)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.code_ttl", 24*time.Hour)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "spy")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)

	v.SetDefault("broadcast.workers", 8)
	v.SetDefault("broadcast.queue_size", 1024)
}

// applyEnv 从环境变量覆盖配置
func (c *Config) applyEnv() {
	// App
	c.App.Port = getEnvInt("SPY_PORT", c.App.Port)
	c.App.Mode = getEnv("GIN_MODE", c.App.Mode)
	c.App.LogLevel = getEnv("LOG_LEVEL", c.App.LogLevel)

	// Game
	c.Game.MaxRoundIndex = getEnvInt("SPY_MAX_ROUND_INDEX", c.Game.MaxRoundIndex)
	c.Game.MinPlayers = getEnvInt("SPY_MIN_PLAYERS", c.Game.MinPlayers)
	c.Game.EvictTimeout = getEnvDuration("SPY_EVICT_TIMEOUT", c.Game.EvictTimeout)

	// Word
	c.Word.Provider = getEnv("WORD_PROVIDER", c.Word.Provider)
	c.Word.APIKey = getEnv("GROQ_API_KEY", c.Word.APIKey)
	c.Word.Model = getEnv("GROQ_MODEL", c.Word.Model)
	c.Word.Timeout = getEnvDuration("WORD_TIMEOUT", c.Word.Timeout)
	c.Word.BankFile = getEnv("WORD_BANK_FILE", c.Word.BankFile)

	// CORS
	c.CORS.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", c.CORS.AllowedOrigins)

	// Redis
	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnvInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	// Database
	c.Database.Enabled = getEnvBool("POSTGRES_ENABLED", c.Database.Enabled)
	c.Database.Host = getEnv("POSTGRES_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("POSTGRES_PORT", c.Database.Port)
	c.Database.User = getEnv("POSTGRES_USER", c.Database.User)
	c.Database.Password = getEnv("POSTGRES_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("POSTGRES_DB", c.Database.Name)

	// NATS
	c.NATS.Enabled = getEnvBool("NATS_ENABLED", c.NATS.Enabled)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
}

// Validate 校验配置
func (c *Config) Validate() error {
	var errs []error

	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("app.port %d out of range", c.App.Port))
	}
	if c.Game.MinPlayers < 2 {
		errs = append(errs, fmt.Errorf("game.min_players must be at least 2, got %d", c.Game.MinPlayers))
	}
	if c.Game.MaxRoundIndex < 0 {
		errs = append(errs, fmt.Errorf("game.max_round_index must not be negative, got %d", c.Game.MaxRoundIndex))
	}
	if c.Game.RoomCodeLength < 3 {
		errs = append(errs, fmt.Errorf("game.room_code_length must be at least 3, got %d", c.Game.RoomCodeLength))
	}
	if c.Game.ClueMinDistance < 0 {
		errs = append(errs, fmt.Errorf("game.clue_min_distance must not be negative, got %d", c.Game.ClueMinDistance))
	}

	switch c.Word.Provider {
	case "static":
	case "groq":
		if c.Word.APIKey == "" {
			errs = append(errs, errors.New("word.api_key (GROQ_API_KEY) is required for the groq provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("word.provider %q is not one of groq, static", c.Word.Provider))
	}

	if c.Redis.Enabled && c.Redis.CodeTTL <= 0 {
		errs = append(errs, errors.New("redis.code_ttl must be positive"))
	}

	if c.Broadcast.Workers <= 0 || c.Broadcast.QueueSize <= 0 {
		errs = append(errs, errors.New("broadcast.workers and broadcast.queue_size must be positive"))
	}

	return errors.Join(errs...)
}

// GameConfig 转换为游戏引擎配置
func (c *Config) GameConfig() game.Config {
	return game.Config{
		MaxRoundIndex:   c.Game.MaxRoundIndex,
		MinPlayers:      c.Game.MinPlayers,
		RoomCodeLength:  c.Game.RoomCodeLength,
		WordTimeout:     c.Word.Timeout,
		ClueMinDistance: c.Game.ClueMinDistance,
		EvictTimeout:    c.Game.EvictTimeout,
		EvictInterval:   c.Game.EvictInterval,
	}
}

// SlogLevel 日志级别，未知值按 info 处理
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Addr 返回 host:port
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DSN 返回 PostgreSQL 连接串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name)
}
