package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/newsletter-digest/app/ai"
	"github.com/lysyi3m/newsletter-digest/app/digest"
	"github.com/lysyi3m/newsletter-digest/app/pipeline"
	"github.com/lysyi3m/newsletter-digest/app/tasks"
)

// NewHandler wires the HTTP handlers. speaker may be nil, which disables
// the audio endpoint.
func NewHandler(articles ArticleStore, runs RunTracker, configs ConfigSource,
	scheduler tasks.TaskSchedulerInterface, runner tasks.Runner,
	generator *digest.Generator, speaker ai.Speaker) *Handler {
	return &Handler{
		articles:  articles,
		runs:      runs,
		configs:   configs,
		scheduler: scheduler,
		runner:    runner,
		generator: generator,
		speaker:   speaker,
	}
}

// WithCache adds the cache state to the health report.
func (h *Handler) WithCache(cache CacheHealth) *Handler {
	h.cache = cache
	return h
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp":             time.Now().In(time.Local).Format(time.RFC3339),
		"loaded_configurations": h.configs.GetConfigCount(),
		"run_in_progress":       h.runs.Running(),
	}

	if report, ok := h.runs.LastReport(); ok {
		health["last_run"] = reportJSON(report)
	}

	if h.cache != nil {
		health["cache"] = h.cache.Health(c.Request.Context())
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.articles.Stats(c.Request.Context())
	if err != nil {
		slog.Error("Store error", "operation", "describe_stats", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Vector store unavailable"})
		return
	}

	response := gin.H{
		"index": gin.H{
			"dimension": stats.Dimension,
			"records":   stats.TotalVectorCount,
		},
	}
	if report, ok := h.runs.LastReport(); ok {
		response["last_run"] = reportJSON(report)
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetDigestFeed(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	records, err := h.articles.Recent(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Store error", "operation", "recent", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(records)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(records)))

	c.String(http.StatusOK, rss)
}

func (h *Handler) APIListArticles(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}

	records, err := h.articles.Recent(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Store error", "operation", "recent", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Store error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"articles": records,
		"total":    len(records),
	})
}

func (h *Handler) APIDigestAudio(c *gin.Context) {
	if h.speaker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Speech synthesis not configured"})
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}

	records, err := h.articles.Recent(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Store error", "operation", "recent", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Store error"})
		return
	}

	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No articles stored yet"})
		return
	}

	script, included := digest.Script(records, speechInputLimit)
	audio, err := h.speaker.Speak(c.Request.Context(), script)
	if err != nil {
		slog.Error("Speech synthesis error", "articles", included, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Speech synthesis failed"})
		return
	}
	defer audio.Close()

	c.DataFromReader(http.StatusOK, -1, "audio/mpeg", audio, map[string]string{
		"Content-Disposition": `inline; filename="digest.mp3"`,
		"X-Digest-Articles":   strconv.Itoa(included),
	})
}

func (h *Handler) APITriggerRun(c *gin.Context) {
	if h.runs.Running() {
		c.JSON(http.StatusConflict, gin.H{"error": "A digest run is already in progress"})
		return
	}

	task := tasks.NewDigestTask(h.runner, tasks.TriggerAPI)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing digest task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue digest task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Digest run enqueued",
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultArticleLimit, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, false
	}
	return min(limit, maxArticleLimit), true
}

func reportJSON(r pipeline.Report) gin.H {
	out := gin.H{
		"run_id":       r.RunID,
		"started_at":   r.Started.UTC().Format(time.RFC3339),
		"duration":     r.Duration.String(),
		"cleared":      r.Cleared,
		"found":        r.Found,
		"processed":    r.Processed,
		"failed":       r.Failed,
		"success_rate": r.SuccessRate(),
	}
	if r.ClearErr != nil {
		out["clear_error"] = r.ClearErr.Error()
	}
	return out
}
