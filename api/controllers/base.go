package controllers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"SongBracket/api/cache"
	"SongBracket/api/catalog"
	"SongBracket/api/config"
	"SongBracket/api/jobs"
	"SongBracket/api/media"
	"SongBracket/api/metrics"
	"SongBracket/api/middlewares"
	"SongBracket/api/models"
	"SongBracket/api/seed"
	"SongBracket/api/stats"
	"SongBracket/api/tournament"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Server struct {
	DB          *gorm.DB
	Router      *gin.Engine
	Config      config.Config
	Logger      *slog.Logger
	Catalog     *catalog.Store
	Engine      *tournament.Engine
	Leaderboard *stats.Leaderboard
	Media       *media.Resolver
	Metrics     *metrics.Recorder
	Sweeper     *jobs.Sweeper
}

// ===============================
// SERVER INITIALIZATION
// ===============================
func (server *Server) Initialize(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	server.Logger = logger

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(models.AutoMigrateAll()...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if err := models.EnsureSessionConstraints(db); err != nil {
		logger.Warn("session constraints not ensured", "event", "ensure_constraints_failed", "module", "controllers", "error", err.Error())
	}

	// Redis init (safe failure)
	if err := cache.Init(ctx, cfg.Redis); err != nil {
		logger.Warn("could not connect to redis", "event", "redis_unavailable", "module", "controllers", "error", err.Error())
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.AppEnv}); err != nil {
			logger.Warn("sentry init failed", "event", "sentry_init_failed", "module", "controllers", "error", err.Error())
		}
	}

	resolver, err := media.New(ctx, cfg.Media, logger)
	if err != nil {
		logger.Warn("media presigning disabled", "event", "media_init_failed", "module", "controllers", "error", err.Error())
	}

	if err := server.Setup(db, cfg, resolver, nil); err != nil {
		return err
	}

	if cfg.SeedDemoSongs || !cfg.IsProduction() {
		if _, err := seed.Load(ctx, server.Catalog, cfg.SeedDemoSongs, logger); err != nil {
			logger.Error("error seeding demo songs", "event", "seed_failed", "module", "controllers", "error", err.Error())
		}
	}

	server.Sweeper = jobs.NewSweeper(server.Engine, cfg.Tournament.SweepSchedule, cfg.Tournament.StaleAfter, logger)
	if err := server.Sweeper.Start(); err != nil {
		return err
	}
	return nil
}

// Setup wires the engine, read models and router on top of an open,
// migrated database. Tests call it directly; a nil recorder gets a fresh
// registry.
func (server *Server) Setup(db *gorm.DB, cfg config.Config, resolver *media.Resolver, recorder *metrics.Recorder) error {
	if server.Logger == nil {
		server.Logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewRecorder(nil)
	}
	leaderboard, err := stats.FromGorm(db)
	if err != nil {
		return fmt.Errorf("open leaderboard: %w", err)
	}

	server.DB = db
	server.Config = cfg
	server.Media = resolver
	server.Metrics = recorder
	server.Leaderboard = leaderboard
	server.Catalog = catalog.NewStore(db)
	server.Engine = tournament.NewEngine(db, server.Catalog, tournament.Options{
		PoolSize:  cfg.Tournament.PoolSize,
		MaxRounds: cfg.Tournament.MaxRounds,
		Retry: tournament.RetryPolicy{
			MaxAttempts: cfg.Tournament.VoteAttempts,
			Backoff:     cfg.Tournament.RetryBackoff,
			Timeout:     cfg.Tournament.StorageTimeout,
		},
		Logger:   server.Logger,
		Observer: recorder,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	server.Router = gin.New()
	server.Router.Use(gin.Recovery())
	server.Router.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	server.Router.Use(middlewares.NewAPIRateLimiter().Middleware())
	server.initializeRoutes()
	return nil
}

func (server *Server) Run(addr string) error {
	server.Logger.Info("listening", "event", "server_listening", "module", "controllers", "addr", addr)
	return http.ListenAndServe(addr, server.Router)
}

// Close stops background work and flushes error reporting.
func (server *Server) Close() {
	if server.Sweeper != nil {
		<-server.Sweeper.Stop().Done()
	}
	_ = cache.Close()
	sentry.Flush(2 * time.Second)
}

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	switch cfg.Database.Type {
	case config.DatabaseSQLite:
		dsn := cfg.Database.SQLitePath
		if !strings.Contains(dsn, "?") {
			dsn += "?_busy_timeout=5000"
		}
		db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("cannot open sqlite %s: %w", cfg.Database.SQLitePath, err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite has a single writer.
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	default:
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("cannot connect to postgres: %w", err)
		}
		return db, nil
	}
}
