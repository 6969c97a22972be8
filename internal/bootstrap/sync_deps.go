package bootstrap

import (
	"context"
	"strings"
	"time"

	"sync_server/adapter/out/cache"
	"sync_server/adapter/out/mongodb"
	"sync_server/adapter/out/persistence"
	"sync_server/config"
	"sync_server/core/port/in"
	"sync_server/core/port/out"
	"sync_server/core/service/conflict"
	"sync_server/core/service/history"
	"sync_server/core/service/store"
	"sync_server/infra/database"
	"sync_server/pkg/logger"
	"sync_server/pkg/metrics"
	"sync_server/pkg/snowflake"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type Dependencies struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB
	Redis   *redis.Client
	MongoDB *mongo.Client

	// Outbound adapters
	Storage      out.Storage
	HistoryRepo  out.HistoryRepository
	VersionCache out.VersionCache

	// Consistency collaborators
	Guard    *conflict.Guard
	Slots    *conflict.Slots
	Registry *history.Registry

	// Services
	TaskService      in.TaskService
	DirectoryService in.DirectoryService
	HistoryService   in.HistoryService
	ConflictService  in.ConflictService
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	// ID generation (node ID distinguishes instances behind a balancer)
	if err := snowflake.Init(cfg.NodeID); err != nil {
		return nil, nil, err
	}

	// Database (pgxpool)
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	// Database (sqlx for the record adapters)
	sqlxURL := cfg.DatabaseURL
	if strings.Contains(sqlxURL, "?") {
		sqlxURL += "&default_query_exec_mode=simple_protocol"
	} else {
		sqlxURL += "?default_query_exec_mode=simple_protocol"
	}
	sqlDB, err := sqlx.Connect("pgx", sqlxURL)
	if err != nil {
		cleanupAll(cleanups)
		return nil, nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })
	metrics.RegisterPool("postgres", sqlDB.DB)

	// Redis (optional; version cache degrades to nil)
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis connection failed, version cache disabled: %v", err)
		} else {
			deps.Redis = redisClient
			deps.VersionCache = cache.NewVersionCache(redisClient)
			cleanups = append(cleanups, func() { redisClient.Close() })
		}
	}

	// Record storage
	deps.Storage = persistence.NewRecordRepository(sqlDB)

	// History persistence: MongoDB when configured, Postgres otherwise
	if cfg.MongoDBURL != "" {
		mongoClient, err := mongodb.NewClient(cfg.MongoDBURL)
		if err != nil {
			logger.Warn("MongoDB connection failed, falling back to Postgres history: %v", err)
		} else {
			deps.MongoDB = mongoClient
			cleanups = append(cleanups, func() {
				mongoClient.Disconnect(context.Background())
			})

			mongoDB := mongoClient.Database(cfg.MongoDBName)
			adapter := mongodb.NewHistoryAdapter(mongoDB)
			if err := adapter.EnsureIndexes(context.Background()); err != nil {
				logger.Warn("Failed to ensure MongoDB history indexes: %v", err)
			}
			deps.HistoryRepo = adapter
			logger.Info("MongoDB history backend initialized")
		}
	}
	if deps.HistoryRepo == nil {
		deps.HistoryRepo = persistence.NewHistoryRepository(sqlDB)
	}

	// Consistency collaborators
	deps.Guard = conflict.NewGuard(deps.Storage)
	deps.Slots = conflict.NewSlots()
	deps.Registry = history.NewRegistry(deps.Storage, deps.HistoryRepo, cfg.HistoryStackCap, cfg.HistoryTTL)

	// Services. No blocking resolver in HTTP mode: conflicts are parked in
	// the user's slot and handed back to the device.
	deps.TaskService = store.NewTaskStore(deps.Storage, deps.Guard, deps.Slots, nil, deps.Registry, deps.VersionCache)
	deps.DirectoryService = store.NewDirectoryStore(deps.Storage, deps.Guard, deps.Slots, nil, deps.Registry, deps.VersionCache)
	deps.HistoryService = history.NewService(deps.Registry)
	deps.ConflictService = store.NewConflictManager(deps.Guard, deps.Slots, deps.Registry, deps.VersionCache)

	cleanup := func() { cleanupAll(cleanups) }
	return deps, cleanup, nil
}

func cleanupAll(cleanups []func()) {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
