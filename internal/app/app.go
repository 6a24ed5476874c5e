package app

import (
	"context"
	"fmt"

	"github.com/yungbote/jobassist-backend/internal/data/db"
	httpserver "github.com/yungbote/jobassist-backend/internal/http"
	"github.com/yungbote/jobassist-backend/internal/observability"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.Service
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *httpserver.Server

	shutdownTracing func(context.Context) error
}

// Open connects to the database only. The migrate command uses it without
// wiring any clients.
func Open(cfg Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	dbs, err := db.NewService(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	return &App{Log: log, Cfg: cfg, DB: dbs}, nil
}

// New opens the app and wires everything the HTTP server needs.
func New(ctx context.Context, cfg Config) (*App, error) {
	a, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	log := a.Log

	a.shutdownTracing = observability.InitTracing(ctx, log, cfg.Tracing)

	if err := db.AutoMigrateOwned(a.DB.DB()); err != nil {
		a.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	a.Clients, err = wireClients(log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Repos = wireRepos(a.DB.DB(), log)
	a.Services, err = wireServices(ctx, a.DB.DB(), log, cfg, a.Repos, a.Clients)
	if err != nil {
		a.Close()
		return nil, err
	}
	mw, err := wireMiddleware(log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	handlers := wireHandlers(log, a.DB, a.Clients, a.Services)
	a.Server = wireServer(log, cfg, handlers, mw)
	return a, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context, addr string) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	if addr == "" {
		addr = a.Cfg.Addr
	}
	return a.Server.Run(ctx, addr, a.Cfg.ShutdownTimeout)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		if err := a.shutdownTracing(ctx); err != nil {
			a.Log.Warn("Tracing shutdown failed", "error", err)
		}
		cancel()
		a.shutdownTracing = nil
	}
	if a.Clients.Redis != nil {
		_ = a.Clients.Redis.Close()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Warn("Database close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
