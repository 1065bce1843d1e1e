package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/agent_backend/agent"
	"github.com/mmdatafocus/agent_backend/config"
	"github.com/mmdatafocus/agent_backend/models"
	"github.com/mmdatafocus/agent_backend/utils"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// agentService bundles the wired pipeline for the HTTP handlers. It is nil
// until dependencies are connected; the readiness gate returns 503 before
// that point.
type agentService struct {
	store        models.DataStore
	forecaster   *agent.Forecaster
	ranker       *agent.SupplierRanker
	engine       *agent.DecisionEngine
	orchestrator *agent.CycleOrchestrator
	cfg          agent.Config
}

var svc *agentService

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// SIGTERM handling for graceful drain on managed platforms.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP; app endpoints return 503 until DB is up.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || svc == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	r.Use(cors.New(corsConfig))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/agent/cycle/run", runCycleHandler())
	r.GET("/agent/cycle/status", cycleStatusHandler())
	r.GET("/agent/items/:itemId/forecast", forecastHandler())
	r.GET("/agent/items/:itemId/suppliers", rankSuppliersHandler())

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Wire the decision pipeline (explicit DI; no singletons).
	cfg := agent.ConfigFromEnv()
	store := models.NewGormStore(db)
	registry := agent.NewModelRegistry(cfg.ModelTTL)
	forecaster := agent.NewForecaster(cfg, logger)
	ranker := agent.NewSupplierRanker(cfg, logger, registry)
	engine := agent.NewDecisionEngine(cfg, logger)
	orchestrator := agent.NewCycleOrchestrator(store, forecaster, ranker, engine, logger, cfg)
	svc = &agentService{
		store:        store,
		forecaster:   forecaster,
		ranker:       ranker,
		engine:       engine,
		orchestrator: orchestrator,
		cfg:          cfg,
	}

	// Recurring cycle driver.
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()
	if config.AgentSchedulerEnabled() {
		go NewCycleScheduler(orchestrator, logger).Run(schedulerCtx)
	} else {
		logger.WithFields(logrus.Fields{"field": "scheduler"}).Warn("AGENT_SCHEDULER_ENABLED=false; cycles must be triggered via POST /agent/cycle/run")
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("agent backend listening on port ", port)

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop the scheduler first so no new cycle starts while draining.
	cancelScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

type runCycleRequest struct {
	ItemIds []string `json:"item_ids"`
}

func runCycleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req runCycleRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		summary, err := svc.orchestrator.RunCycle(c.Request.Context(), models.CycleTriggerManual, req.ItemIds)
		if errors.Is(err, agent.ErrCycleRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": "cycle already running"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "summary": summary})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func cycleStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if last := svc.orchestrator.LastSummary(); last != nil {
			c.JSON(http.StatusOK, last)
			return
		}
		// Fall back to the persisted record (e.g. after a restart).
		run, err := svc.store.LastCycleRun(c.Request.Context())
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"status": "no cycle has run yet"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, run)
	}
}

func forecastHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		itemId := c.Param("itemId")
		horizon := svc.cfg.ForecastHorizonDays
		if v := strings.TrimSpace(c.Query("horizon")); v != "" {
			if n, ok := parsePositiveInt(v); ok {
				horizon = n
			} else {
				c.JSON(http.StatusBadRequest, gin.H{"error": "horizon must be a positive integer"})
				return
			}
		}

		ctx := c.Request.Context()
		item, err := svc.store.FetchItem(ctx, itemId)
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		since := time.Now().UTC().AddDate(0, 0, -svc.cfg.HistoryWindowDays)
		history, err := svc.store.FetchSalesHistory(ctx, item.ID, since)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		forecast, err := svc.forecaster.Predict(ctx, item.ID, history, horizon)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, forecast)
	}
}

func rankSuppliersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		itemId := c.Param("itemId")
		urgency, err := models.ParseUrgencyLevel(strings.TrimSpace(c.Query("urgency")))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		if _, err := svc.store.FetchItem(ctx, itemId); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		suppliers, err := svc.store.FetchSuppliers(ctx, itemId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		purchases, err := svc.store.FetchPurchaseHistory(ctx, itemId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		svc.ranker.EnsureTrained(ctx, svc.store, time.Now().UTC())
		ranking, err := svc.ranker.Rank(ctx, itemId, suppliers, purchases, urgency)
		if errors.Is(err, agent.ErrNoSuppliersFound) {
			c.JSON(http.StatusOK, gin.H{"item_id": itemId, "suppliers": []any{}, "message": "no suppliers found for item"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"item_id": itemId, "urgency": urgency, "suppliers": ranking})
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parsePositiveInt(s string) (int, bool) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 0, false
	}
	return n, true
}
