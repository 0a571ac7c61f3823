package repository

import (
	"context"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/opencrmhq/chatbridge/internal/config"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Repositories holds all repositories
type Repositories struct {
	DB           *gorm.DB
	Redis        *redis.Client
	Tenant       *TenantRepo
	User         *UserRepo
	AgentMapping *AgentMappingRepo
	Conversation *ConversationRepo
	Stage        *StageRepo
	ApiKey       *ApiKeyRepo
}

// NewRepositories creates all repositories
func NewRepositories(cfg *config.Config) (*Repositories, error) {
	db, err := initMySQL(cfg)
	if err != nil {
		return nil, err
	}

	rdb := initRedis(cfg)

	repos := &Repositories{
		DB:    db,
		Redis: rdb,
	}

	repos.Tenant = NewTenantRepo(db)
	repos.User = NewUserRepo(db)
	repos.AgentMapping = NewAgentMappingRepo(db)
	repos.Conversation = NewConversationRepo(db)
	repos.Stage = NewStageRepo(db)
	repos.ApiKey = NewApiKeyRepo(db)

	return repos, nil
}

// initMySQL initializes MySQL connection
func initMySQL(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	} else {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// initRedis initializes Redis connection
func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// Close closes all connections
func (r *Repositories) Close() error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return err
	}
	return r.Redis.Close()
}

// CheckConnection checks if database and redis connections are alive
func (r *Repositories) CheckConnection(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		log.CtxError(ctx, "mysql ping failed: %v", err)
		return err
	}

	if err := r.Redis.Ping(ctx).Err(); err != nil {
		log.CtxError(ctx, "redis ping failed: %v", err)
		return err
	}

	return nil
}
