package middleware

import (
	"net/http"
	"time"

	"github.com/courselibrary/backend/internal/infrastructure/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Default CORS lists used when the configuration leaves them empty
var (
	DefaultCORSMethods = []string{
		http.MethodGet, http.MethodHead, http.MethodPost,
		http.MethodPut, http.MethodDelete, http.MethodOptions,
	}
	DefaultCORSHeaders = []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		RequestIDKey, IdempotencyKeyHeader,
	}
)

// IdempotencyKeyHeader is the request header naming a bulk create attempt
const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotentReplayedHeader marks a response served from the replay store
const IdempotentReplayedHeader = "Idempotent-Replayed"

// CORS returns the CORS middleware for cfg. With no allowed origins,
// cross-origin requests receive no CORS headers.
func CORS(cfg config.HTTPConfig) gin.HandlerFunc {
	if len(cfg.CORSAllowOrigins) == 0 {
		return func(c *gin.Context) {
			if c.Request.Method == http.MethodOptions && c.GetHeader("Origin") != "" {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
		}
	}

	methods := cfg.CORSAllowMethods
	if len(methods) == 0 {
		methods = DefaultCORSMethods
	}
	headers := cfg.CORSAllowHeaders
	if len(headers) == 0 {
		headers = DefaultCORSHeaders
	}

	corsCfg := cors.Config{
		AllowMethods:     methods,
		AllowHeaders:     headers,
		ExposeHeaders:    []string{RequestIDKey, IdempotentReplayedHeader, "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range cfg.CORSAllowOrigins {
		if origin == "*" {
			corsCfg.AllowCredentials = false
			corsCfg.AllowAllOrigins = true
			break
		}
	}
	if !corsCfg.AllowAllOrigins {
		corsCfg.AllowOrigins = cfg.CORSAllowOrigins
	}
	return cors.New(corsCfg)
}
