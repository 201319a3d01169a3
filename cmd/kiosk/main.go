package main

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qrkiosk/internal/attendance"
	"qrkiosk/internal/auth"
	"qrkiosk/internal/config"
	"qrkiosk/internal/httpmiddleware"
	"qrkiosk/internal/queue"
	"qrkiosk/internal/report"
	"qrkiosk/internal/snapshot"
	"qrkiosk/internal/store"
)

var (
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_scans_total",
		Help: "Resolved scans by action and source.",
	}, []string{"action", "source"})
	scanDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_scan_duplicates_total",
		Help: "Scans suppressed by the debounce window.",
	})
	snapshotFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_snapshot_failures_total",
		Help: "Scans whose snapshot could not be archived.",
	})
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx := context.Background()

	var (
		eventStore attendance.Store
		db         *store.DB
	)
	if cfg.StoreBackend == "memory" {
		eventStore = store.NewMemory()
		log.Println("using in-memory event store")
	} else {
		var err error
		db, err = store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		pg := store.NewPostgres(db.Client)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		eventStore = pg
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "qrkiosk:snapshots")
	}

	archive, err := snapshot.NewDisk(cfg.SnapshotDir)
	if err != nil {
		return err
	}

	resolver := attendance.NewService(eventStore, archive)
	debounce := attendance.NewDebouncer(cfg.DebounceWindow)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", healthzHandler(db, redisClient, cfg.QueueBackend == "memory"))

	r.POST("/v1/scans", func(c *gin.Context) {
		var req struct {
			Text     string `json:"text" binding:"required"`
			Source   string `json:"source"`
			Mode     string `json:"mode"`
			Snapshot string `json:"snapshot"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if !debounce.Allow(req.Text) {
			scanDuplicates.Inc()
			c.JSON(http.StatusOK, gin.H{"duplicate": true})
			return
		}

		image, err := decodeSnapshot(req.Snapshot)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snapshot encoding"})
			return
		}

		res, err := resolver.Resolve(c.Request.Context(), attendance.ScanRequest{
			RawText:  req.Text,
			Source:   parseSource(req.Source),
			Mode:     attendance.ParseMode(req.Mode),
			Snapshot: image,
		})
		if err != nil {
			if errors.Is(err, attendance.ErrEmptyScan) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		scansTotal.WithLabelValues(string(res.Action), string(res.Record.Source)).Inc()
		if len(image) > 0 && res.Record.SnapshotFilename == nil {
			snapshotFailures.Inc()
		}
		if res.Record.SnapshotFilename != nil {
			if err := q.Publish(c.Request.Context(), queue.NewSnapshotMessage(res.Record.ID)); err != nil {
				log.Printf("queue publish failed: %v", err)
			}
		}

		c.JSON(http.StatusCreated, res)
	})

	r.GET("/v1/records", func(c *gin.Context) {
		order := attendance.OrderDesc
		if c.Query("order") == "asc" {
			order = attendance.OrderAsc
		}
		records, err := eventStore.List(c.Request.Context(), order)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
	})

	r.GET("/v1/records/count", func(c *gin.Context) {
		n, err := eventStore.Count(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": n})
	})

	r.GET("/v1/report/daily", func(c *gin.Context) {
		records, err := eventStore.List(c.Request.Context(), attendance.OrderAsc)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"days": report.BuildDailyView(records)})
	})

	r.GET("/v1/export/log.csv", func(c *gin.Context) {
		records, err := eventStore.List(c.Request.Context(), attendance.OrderAsc)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		serveCSV(c, report.ChronologicalFilename(time.Now()), report.ChronologicalCSV(records))
	})

	r.GET("/v1/export/daily.csv", func(c *gin.Context) {
		records, err := eventStore.List(c.Request.Context(), attendance.OrderAsc)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		serveCSV(c, report.MergedFilename(time.Now()), report.MergedCSV(report.BuildDailyView(records)))
	})

	r.POST("/v1/admin/login", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Username != cfg.AdminUser || req.Password != cfg.AdminPass {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		tokens, err := auth.Issue(req.Username, auth.RoleAdmin, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	adminGroup := r.Group("/v1", auth.AdminAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	adminGroup.DELETE("/records", func(c *gin.Context) {
		if err := eventStore.ClearAll(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		log.Println("all attendance records cleared by admin")
		c.JSON(http.StatusOK, gin.H{"cleared": true})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting kiosk server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// healthzHandler reports db and redis connectivity. The redis check is
// skipped when the queue runs in-process, so all-memory dev mode stays
// healthy without a broker.
func healthzHandler(db *store.DB, redisClient *store.Redis, skipRedis bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		redisHealthy := true
		if !skipRedis {
			redisHealthy = redisClient.Healthy(c.Request.Context())
		}
		dbHealthy := true
		if db != nil {
			dbHealthy = db.Client.PingContext(c.Request.Context()) == nil
		}
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	}
}

// decodeSnapshot accepts a base64 data URL or bare base64 and returns the
// image bytes. Empty input is a scan without a snapshot.
func decodeSnapshot(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if idx := strings.Index(s, ","); idx >= 0 && strings.HasPrefix(s, "data:") {
		s = s[idx+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}

func parseSource(s string) attendance.Source {
	switch attendance.Source(s) {
	case attendance.SourceImage:
		return attendance.SourceImage
	case attendance.SourceManual:
		return attendance.SourceManual
	default:
		return attendance.SourceCamera
	}
}

func serveCSV(c *gin.Context, filename, body string) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(body))
}

// CORS middleware for the browser UI.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
