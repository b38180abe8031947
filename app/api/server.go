package api

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer builds the gin engine. The run trigger is registered only when
// apiAccessKey is set.
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(requestLogger(), gin.Recovery(), cors())

	r.GET("/", index(apiAccessKey != ""))
	r.GET("/favicon.ico", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/digest.xml", handler.GetDigestFeed)
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	api := r.Group("/api")
	api.GET("/articles", handler.APIListArticles)
	api.GET("/digest/audio", handler.APIDigestAudio)

	if apiAccessKey != "" {
		api.POST("/runs", requireKey(apiAccessKey), handler.APITriggerRun)
		slog.Info("Run endpoint enabled with authentication")
	} else {
		slog.Info("Run endpoint disabled (API_ACCESS_KEY not set)")
	}

	return r
}

func requestLogger() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/favicon.ico"},
		Formatter: func(p gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				p.ClientIP,
				p.TimeStamp.Format(time.RFC3339),
				p.Method,
				p.Path,
				p.Request.Proto,
				p.StatusCode,
				p.Latency,
				p.Request.UserAgent(),
				p.ErrorMessage,
			)
		},
	})
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func index(runsEnabled bool) gin.HandlerFunc {
	endpoints := map[string]string{
		"digest":   "/digest.xml",
		"articles": "/api/articles?limit=<n>",
		"audio":    "/api/digest/audio",
		"health":   "/health",
		"stats":    "/stats",
	}
	if runsEnabled {
		endpoints["runs"] = "/api/runs (POST, requires X-API-Key header)"
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "Newsletter Digest",
			"description": "AI summaries of fresh newsletter articles as RSS, JSON and audio",
			"endpoints":   endpoints,
			"api_status": gin.H{
				"enabled":       runsEnabled,
				"auth_required": runsEnabled,
				"header":        "X-API-Key",
			},
		})
	}
}

// requireKey accepts the key in X-API-Key or as a Bearer token.
func requireKey(apiAccessKey string) gin.HandlerFunc {
	expected := []byte(apiAccessKey)

	return func(c *gin.Context) {
		provided := c.GetHeader("X-API-Key")
		if provided == "" {
			if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
				provided = token
			}
		}

		switch {
		case provided == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
		case subtle.ConstantTimeCompare([]byte(provided), expected) != 1:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
		default:
			c.Next()
		}
	}
}
