package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LucassCPS/private-legal-assistant/pkg/ratelimiter"
)

// SetupRouter configures and returns a Gin engine with the API routes. A nil
// limiter leaves the query endpoint unthrottled.
func SetupRouter(h *Handler, limiter ratelimiter.RateLimiter) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", h.Health)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/query", rateLimit(limiter), h.Query)
		apiV1.POST("/database/update", h.UpdateDatabase)
	}

	return r
}

// rateLimit rejects requests with 429 once the limiter runs dry.
func rateLimit(limiter ratelimiter.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
