package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"dw-pipeline/internal/configstore"
	"dw-pipeline/internal/filepreview"
	"dw-pipeline/internal/generator"
	"dw-pipeline/internal/models"
	"dw-pipeline/internal/service"
	"dw-pipeline/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	svc     *service.PipelineService
	dataDir string
}

// NewHandler creates a new HTTP handler. dataDir is where exported data
// files land for previewing.
func NewHandler(svc *service.PipelineService, dataDir string) *Handler {
	return &Handler{svc: svc, dataDir: dataDir}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/generate", h.generate)
		v1.POST("/stages/:id/run", h.runStage)
		v1.POST("/stages/:id/cancel", h.cancelStage)
		v1.GET("/status", h.status)

		v1.POST("/verify", h.verify)
		v1.GET("/verify/report", h.verificationReport)

		v1.GET("/estimate", h.estimate)

		v1.GET("/config/database", h.getDatabaseConfig)
		v1.PUT("/config/database", h.updateDatabaseConfig)
		v1.POST("/config/database/test", h.testDatabaseConfig)
		v1.GET("/config/generation", h.getGenerationConfig)
		v1.PUT("/config/generation", h.updateGenerationConfig)

		v1.GET("/files", h.listFiles)
		v1.GET("/files/:name/preview", h.previewFile)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when the warehouse answers.
func (h *Handler) readinessCheck(c *gin.Context) {
	if err := h.svc.Ready(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// generate claims the ODS slot and starts dataset synthesis.
func (h *Handler) generate(c *gin.Context) {
	var req generator.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	runID, err := h.svc.GenerateDataset(c.Request.Context(), &req)
	if err != nil {
		h.writeStageError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"stage":  models.StageODS,
		"run_id": runID,
	})
}

func (h *Handler) runStage(c *gin.Context) {
	stage, ok := models.ParseStage(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown stage"})
		return
	}

	runID, err := h.svc.RunStage(c.Request.Context(), stage)
	if err != nil {
		h.writeStageError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"stage":  stage,
		"run_id": runID,
	})
}

func (h *Handler) cancelStage(c *gin.Context) {
	stage, ok := models.ParseStage(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown stage"})
		return
	}
	if err := h.svc.CancelStage(stage); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": stage, "cancelled": true})
}

func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stages": h.svc.Status(c.Request.Context()),
	})
}

func (h *Handler) verify(c *gin.Context) {
	runID, err := h.svc.StartVerification(c.Request.Context())
	if err != nil {
		h.writeStageError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"stage":  models.StageVerify,
		"run_id": runID,
	})
}

func (h *Handler) verificationReport(c *gin.Context) {
	report := h.svc.LatestReport(c.Request.Context())
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No verification report yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) estimate(c *gin.Context) {
	scaleName := c.Query("scale")
	storeCount, err := strconv.Atoi(c.DefaultQuery("stores", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stores parameter"})
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days parameter"})
		return
	}

	est, err := h.svc.Estimate(scaleName, storeCount, days)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, est)
}

func (h *Handler) getDatabaseConfig(c *gin.Context) {
	info, err := h.svc.DatabaseConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// The password never leaves the service.
	info.Password = ""
	c.JSON(http.StatusOK, info)
}

func (h *Handler) updateDatabaseConfig(c *gin.Context) {
	var info configstore.ConnectionInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if err := h.svc.UpdateDatabaseConfig(c.Request.Context(), info); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Connection settings rejected",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h *Handler) testDatabaseConfig(c *gin.Context) {
	var info configstore.ConnectionInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if err := h.svc.TestConnection(c.Request.Context(), info); err != nil {
		c.JSON(http.StatusOK, gin.H{"reachable": false, "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reachable": true})
}

func (h *Handler) getGenerationConfig(c *gin.Context) {
	cfg, err := h.svc.GenerationConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *Handler) updateGenerationConfig(c *gin.Context) {
	var cfg configstore.GenerationConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if err := h.svc.UpdateGenerationConfig(cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h *Handler) listFiles(c *gin.Context) {
	files, err := filepreview.List(h.dataDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *Handler) previewFile(c *gin.Context) {
	maxLines, err := strconv.Atoi(c.DefaultQuery("lines", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lines parameter"})
		return
	}
	preview, err := filepreview.Head(h.dataDir, c.Param("name"), maxLines)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, preview)
}

// writeStageError maps coordinator errors to HTTP statuses. Stage-level
// failures surface as structured results, never as crashes.
func (h *Handler) writeStageError(c *gin.Context, err error) {
	var cfgErr *models.ConfigurationError
	switch {
	case errors.Is(err, models.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrPrerequisiteNotMet):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
