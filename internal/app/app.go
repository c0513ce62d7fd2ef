package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/class-schedule-api/internal/handler"
	"github.com/noah-isme/class-schedule-api/internal/repository"
	"github.com/noah-isme/class-schedule-api/internal/service"
	"github.com/noah-isme/class-schedule-api/pkg/cache"
	"github.com/noah-isme/class-schedule-api/pkg/config"
	"github.com/noah-isme/class-schedule-api/pkg/database"
	"github.com/noah-isme/class-schedule-api/pkg/export"
)

// App holds the wired services shared by the HTTP server and the CLI.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *service.MetricsService
	Schedule     *service.ScheduleService
	Sessions     *service.SessionStore
	Conversation *service.ConversationService
	Auth         *service.AuthService
	Validator    *validator.Validate

	redis     *redis.Client
	readiness map[string]handler.ReadinessCheck
	closers   []func() error
}

// New wires repositories and services for cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   service.NewMetricsService(),
		Validator: validator.New(),
		readiness: make(map[string]handler.ReadinessCheck),
	}

	repo, err := a.newRepository(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.readiness["store"] = func(ctx context.Context) error {
		_, err := repo.Load(ctx)
		return err
	}

	queryCache, err := a.newQueryCache(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	ingestor := service.NewIngestor(cfg.Ingest.HeaderOffset, logger.Named("ingestor"))
	engine := service.NewQueryEngine(service.QueryOptions{
		WindowBefore:   cfg.Query.WindowBefore,
		WindowAfter:    cfg.Query.WindowAfter,
		CandidateYears: cfg.Query.CandidateYears,
		TitlePrefixes:  cfg.Query.TitlePrefixes,
	})
	a.Schedule = service.NewScheduleService(repo, ingestor, engine, queryCache, a.Metrics, service.ScheduleServiceConfig{
		PageBudget: cfg.Query.PageBudget,
		CacheTTL:   cfg.Cache.TTL,
		Exporters: map[string]service.Exporter{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(cfg.Export.PDFFontPath),
		},
	}, logger.Named("schedule"))

	a.Sessions = service.NewSessionStore(cfg.Session.TTL)
	a.Conversation = service.NewConversationService(a.Schedule, a.Sessions, cfg.Ingest.AllowedExtensions, logger.Named("conversation"))
	a.Auth = service.NewAuthService(service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})
	return a, nil
}

// Close releases database and Redis connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) newRepository(ctx context.Context) (service.ScheduleRepository, error) {
	cfg := a.Config
	switch cfg.Store.Driver {
	case "", config.StoreDriverFile:
		return repository.NewFileScheduleRepository(cfg.Store.Path, a.Logger.Named("store"))
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return a.sqlRepository(ctx, db, "postgres")
	case config.StoreDriverSQLite:
		db, err := database.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return a.sqlRepository(ctx, db, "sqlite")
	case config.StoreDriverRedis:
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisScheduleRepository(client, cfg.Store.RedisKey, a.Logger.Named("store")), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func (a *App) sqlRepository(ctx context.Context, db *sqlx.DB, name string) (service.ScheduleRepository, error) {
	a.closers = append(a.closers, db.Close)
	a.readiness[name] = db.PingContext
	repo := repository.NewSQLScheduleRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (a *App) newQueryCache(ctx context.Context) (*service.CacheService, error) {
	if !a.Config.Cache.Enabled {
		return nil, nil
	}
	client, err := a.redisClient(ctx)
	if err != nil {
		return nil, err
	}
	return service.NewCacheService(repository.NewCacheRepository(client), a.Metrics, a.Config.Cache.TTL, a.Logger.Named("cache"), true), nil
}

// redisClient connects once and shares the client between store and cache.
func (a *App) redisClient(ctx context.Context) (*redis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	client, err := cache.NewRedis(ctx, a.Config.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.redis = client
	a.closers = append(a.closers, client.Close)
	a.readiness["redis"] = func(ctx context.Context) error { return cache.Ping(ctx, client, a.Config.Redis.Timeout) }
	return client, nil
}
