package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Platform  PlatformConfig  `mapstructure:"platform"`
	Sync      SyncConfig      `mapstructure:"sync"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Feed      FeedConfig      `mapstructure:"feed"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	HTTPPort       int      `mapstructure:"http_port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MySQLConfig holds MySQL configuration
type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Charset      string `mapstructure:"charset"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN returns the MySQL data source name. clientFoundRows makes the driver
// report matched rows instead of changed rows, so a guarded UPDATE whose
// values already match still counts as a hit.
func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local&clientFoundRows=true",
		c.User, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Addr returns the Redis address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// PlatformConfig holds remote messaging platform API configuration
type PlatformConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// SyncConfig holds reconciliation sweep configuration
type SyncConfig struct {
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	SweepLockTTL     time.Duration `mapstructure:"sweep_lock_ttl"`
	SweepWorkerNum   int           `mapstructure:"sweep_worker_num"`
	TaskQueueSize    int           `mapstructure:"task_queue_size"`
	TaskWorkerNum    int           `mapstructure:"task_worker_num"`
	HealthWindowSize int           `mapstructure:"health_window_size"`
	HealthMaxFailed  int           `mapstructure:"health_max_failed"`
}

// RateLimitConfig holds fixed-window rate limiter configuration
type RateLimitConfig struct {
	Window time.Duration `mapstructure:"window"`
	Max    int64         `mapstructure:"max"`
}

// FeedConfig holds live update feed configuration
type FeedConfig struct {
	MaxConnNum      int64         `mapstructure:"max_conn_num"`
	WriteWait       time.Duration `mapstructure:"write_wait"`
	PongWait        time.Duration `mapstructure:"pong_wait"`
	PingPeriod      time.Duration `mapstructure:"ping_period"`
	PushChannelSize int           `mapstructure:"push_channel_size"`
	PushWorkerNum   int           `mapstructure:"push_worker_num"`
}

// Global config instance
var GlobalConfig *Config

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	GlobalConfig = &cfg
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.MySQL.Charset == "" {
		cfg.MySQL.Charset = "utf8mb4"
	}
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 100
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 10
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "chatbridge:"
	}
	if cfg.JWT.ExpireHours == 0 {
		cfg.JWT.ExpireHours = 168 // 7 days
	}
	if cfg.Platform.DialTimeout == 0 {
		cfg.Platform.DialTimeout = 10 * time.Second
	}
	if cfg.Platform.ReadTimeout == 0 {
		cfg.Platform.ReadTimeout = 30 * time.Second
	}
	if cfg.Platform.WriteTimeout == 0 {
		cfg.Platform.WriteTimeout = 30 * time.Second
	}
	if cfg.Sync.SweepInterval == 0 {
		cfg.Sync.SweepInterval = 5 * time.Minute
	}
	if cfg.Sync.SweepLockTTL == 0 {
		cfg.Sync.SweepLockTTL = 2 * time.Minute
	}
	if cfg.Sync.SweepWorkerNum == 0 {
		cfg.Sync.SweepWorkerNum = 4
	}
	if cfg.Sync.TaskQueueSize == 0 {
		cfg.Sync.TaskQueueSize = 1024
	}
	if cfg.Sync.TaskWorkerNum == 0 {
		cfg.Sync.TaskWorkerNum = 4
	}
	if cfg.Sync.HealthWindowSize == 0 {
		cfg.Sync.HealthWindowSize = 100
	}
	if cfg.Sync.HealthMaxFailed == 0 {
		cfg.Sync.HealthMaxFailed = 10
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = time.Minute
	}
	if cfg.RateLimit.Max == 0 {
		cfg.RateLimit.Max = 300
	}
	if cfg.Feed.MaxConnNum == 0 {
		cfg.Feed.MaxConnNum = 10000
	}
	if cfg.Feed.WriteWait == 0 {
		cfg.Feed.WriteWait = 10 * time.Second
	}
	if cfg.Feed.PongWait == 0 {
		cfg.Feed.PongWait = 30 * time.Second
	}
	if cfg.Feed.PingPeriod == 0 {
		cfg.Feed.PingPeriod = 27 * time.Second
	}
	if cfg.Feed.PushChannelSize == 0 {
		cfg.Feed.PushChannelSize = 10000
	}
	if cfg.Feed.PushWorkerNum == 0 {
		cfg.Feed.PushWorkerNum = 4
	}
}
