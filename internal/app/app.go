package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/kocahmet1/ultrasat-progress/internal/data/cache"
	"github.com/kocahmet1/ultrasat-progress/internal/data/db"
	"github.com/kocahmet1/ultrasat-progress/internal/data/repos"
	httpx "github.com/kocahmet1/ultrasat-progress/internal/http"
	"github.com/kocahmet1/ultrasat-progress/internal/http/handlers"
	"github.com/kocahmet1/ultrasat-progress/internal/observability"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/apperr"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/envutil"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    repos.Set
	Services Services
	Router   *gin.Engine

	store        *db.PostgresService
	mirror       cache.StatsMirror
	otelShutdown func(context.Context) error
}

// New loads configuration, opens the store and wires every service. Store
// failures come back tagged apperr.KindFatalSetup.
func New(ctx context.Context, component string) (*App, error) {
	_ = godotenv.Load()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelCfg := observability.OtelConfigFromEnv(component)
	shutdown := observability.InitOTel(ctx, log, otelCfg)

	store, err := db.NewPostgresService(ctx, cfg.DB, log)
	if err != nil {
		_ = shutdown(ctx)
		log.Sync()
		return nil, err
	}
	theDB := store.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		_ = store.Close()
		_ = shutdown(ctx)
		log.Sync()
		return nil, apperr.FatalSetup("automigrate", err)
	}

	mirror, err := cache.NewStatsMirrorFromEnv(log)
	if err != nil {
		// The mirror is optional; the store stays authoritative.
		log.Warn("Redis stats mirror disabled", "error", err)
		mirror = nil
	}

	reposet := repos.NewSet(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, mirror)
	if err != nil {
		if mirror != nil {
			_ = mirror.Close()
		}
		_ = store.Close()
		_ = shutdown(ctx)
		log.Sync()
		return nil, apperr.FatalSetup("wire services", err)
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Router:       wireRouter(theDB, log, otelCfg.ServiceName, serviceset),
		store:        store,
		mirror:       mirror,
		otelShutdown: shutdown,
	}, nil
}

// Serve starts the cron worker and the HTTP API and blocks until ctx ends.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Services.Worker != nil {
		a.Services.Worker.Start(ctx)
	}
	a.Log.Info("HTTP API listening", "addr", a.Cfg.HTTPAddr)
	srv := &httpx.Server{Engine: a.Router}
	return srv.Run(ctx, a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.mirror != nil {
		_ = a.mirror.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func pingDB(theDB *gorm.DB) handlers.Pinger {
	return func(ctx context.Context) error {
		sqlDB, err := theDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
