package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8081",
	"http://localhost:19006",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:8081",
	"http://127.0.0.1:19006",
}

// CORS allows the mobile dev servers by default. The conversation id header
// must be exposed so browser clients can read it on streamed responses.
func CORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = defaultOrigins
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Authorization", "Content-Type", "X-Requested-With",
			"X-Debug", "X-Tenant-Id", "X-User-Id", "X-Request-Id", "X-Trace-Id",
		},
		ExposeHeaders:    []string{"X-Conversation-Id", "X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
	})
}
