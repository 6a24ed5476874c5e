package app

import (
	"context"

	"github.com/yungbote/jobassist-backend/internal/data/db"
	httpserver "github.com/yungbote/jobassist-backend/internal/http"
	httpH "github.com/yungbote/jobassist-backend/internal/http/handlers"
	httpMW "github.com/yungbote/jobassist-backend/internal/http/middleware"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

type Middleware struct {
	Identity *httpMW.IdentityMiddleware
}

type Handlers struct {
	Health    *httpH.HealthHandler
	Assistant *httpH.AssistantHandler
}

func wireMiddleware(log *logger.Logger, cfg Config) (Middleware, error) {
	log.Info("Wiring middleware...")
	id, err := httpMW.NewIdentityMiddleware(log, cfg.AuthMode, cfg.JWTSecretKey)
	if err != nil {
		return Middleware{}, err
	}
	return Middleware{Identity: id}, nil
}

func wireHandlers(log *logger.Logger, dbs *db.Service, clients Clients, services Services) Handlers {
	log.Info("Wiring handlers...")
	checks := map[string]httpH.Pinger{"db": dbs}
	if clients.Redis != nil {
		rdb := clients.Redis
		checks["redis"] = httpH.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	return Handlers{
		Health:    httpH.NewHealthHandler(checks),
		Assistant: httpH.NewAssistantHandler(services.Assistant, log),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *httpserver.Server {
	serviceName := ""
	if cfg.Tracing.Enabled {
		serviceName = cfg.Tracing.ServiceName
	}
	return httpserver.NewServer(httpserver.RouterConfig{
		Log:              log,
		ServiceName:      serviceName,
		CORSOrigins:      cfg.CORSOrigins,
		Identity:         middleware.Identity,
		AssistantHandler: handlers.Assistant,
		HealthHandler:    handlers.Health,
	})
}
