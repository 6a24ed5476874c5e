package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/jobassist-backend/internal/http/handlers"
	httpMW "github.com/yungbote/jobassist-backend/internal/http/middleware"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	Identity         *httpMW.IdentityMiddleware
	AssistantHandler *httpH.AssistantHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.TraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	protected := r.Group("/")
	{
		if cfg.Identity != nil {
			protected.Use(cfg.Identity.RequireIdentity())
		}

		// Job assistant
		if cfg.AssistantHandler != nil {
			protected.GET("/jobs/:jobId/ai/conversation", cfg.AssistantHandler.GetConversation)
			protected.POST("/jobs/:jobId/ai/chat", cfg.AssistantHandler.Chat)
		}
	}

	return r
}
