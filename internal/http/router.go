// Package httpapi mounts the recently-viewed API on a Gin engine: the
// middleware chain, health probes, the catalog and per-user history routes,
// and the services behind them.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-recently-viewed/internal/auth"
	"github.com/tbourn/go-recently-viewed/internal/cache"
	"github.com/tbourn/go-recently-viewed/internal/config"
	"github.com/tbourn/go-recently-viewed/internal/http/handlers"
	"github.com/tbourn/go-recently-viewed/internal/http/middleware"
	"github.com/tbourn/go-recently-viewed/internal/services"
)

// Deps carries the long-lived collaborators built by main.
type Deps struct {
	DB       *gorm.DB
	Cache    *cache.Adapter     // nil runs without a cache
	Verifier auth.Verifier      // bearer identity verification
	Notifier services.Dispatcher // nil disables repeated-view notifications
}

// probeTimeout bounds each dependency ping of the readiness probe.
const probeTimeout = 2 * time.Second

var errNoDatabase = errors.New("database not configured")

// RegisterRoutes installs the middleware chain and mounts the API under
// cfg.APIBasePath. Tracing is outermost so rejected requests get a span too.
// The request id precedes the logger, which precedes recovery, so a
// panic is logged with its request's fields. Per-user limiting runs after
// authentication because it keys on the verified user.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// PII is scrubbed from production logs only.
	accessLog := middleware.Logger()
	if cfg.IsProduction() {
		accessLog = middleware.RedactingLogger(middleware.RedactOptions{MaskHeaders: []string{"X-API-Key"}})
	}
	r.Use(
		otelgin.Middleware(cfg.OTEL.ServiceName),
		middleware.RequestID(),
		accessLog,
		middleware.Recovery(),
	)

	// The largest accepted payload is {"productId": ...}.
	r.Use(limitBody(64 << 10))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	edge := middleware.NewRateLimiter("edge", cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP()).
		Skip("/health", "/ready", "/metrics")
	r.Use(edge.Handler())

	// No configured origins means any origin may call the API.
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		corsCfg.AllowAllOrigins = true
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	apiBase := cfg.APIBasePath
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		EnablePolicy:    true,
		PrivatePrefixes: []string{joinPath(apiBase, "/users/")},
	}))

	// promhttp negotiates its own compression.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "Route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	r.GET("/ready", readyHandler(deps))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var c services.Cache
	if deps.Cache != nil {
		c = deps.Cache
	}
	ranking := &services.RankingAggregator{
		DB:    deps.DB,
		Cache: c,
		TopN:  cfg.TopN,
		TTL:   cfg.Cache.TTL,
	}
	ledger := &services.RecencyLedger{
		DB:         deps.DB,
		Bound:      cfg.RecencyBound,
		Aggregator: ranking,
	}
	rvSvc := &services.RecentlyViewedService{
		DB:              deps.DB,
		Cache:           c,
		TTL:             cfg.Cache.TTL,
		Ledger:          ledger,
		Ranking:         ranking,
		Notifier:        deps.Notifier,
		NotifyThreshold: int64(cfg.NotifyThreshold),
	}
	productSvc := &services.ProductService{DB: deps.DB}
	h := handlers.New(rvSvc, productSvc, !cfg.IsProduction())

	// Public API
	api := groupWithPrefix(r, apiBase)
	{
		api.GET("/products", h.ListProducts)
		api.GET("/products/top-viewed", h.TopViewed)
		api.GET("/products/:productId", h.GetProduct)

		// Callers may only read and write their own history.
		users := api.Group("/users/:userId", middleware.Authenticate(deps.Verifier))
		views := middleware.NewRateLimiter("views", cfg.ViewRateRPS, cfg.ViewRateBurst, middleware.KeyByUserOrIP())
		users.GET("/recentlyViewed", h.GetRecentlyViewed)
		users.POST("/recentlyViewed", views.Handler(), h.AddRecentlyViewed)

		// Cache maintenance requires no bearer token.
		api.DELETE("/users/:userId/cache", h.ClearUserCache)
	}
}

// readyHandler reports 200 when the durable store and the cache answer a
// ping, 503 otherwise. A nil cache counts as ready.
func readyHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		defer cancel()

		checks := gin.H{"database": "ok", "cache": "ok"}
		ready := true

		if err := pingDB(ctx, deps.DB); err != nil {
			checks["database"] = err.Error()
			ready = false
		}
		if deps.Cache != nil {
			if err := deps.Cache.Ping(ctx); err != nil {
				checks["cache"] = err.Error()
				ready = false
			}
		}

		if !ready {
			middleware.LoggerFrom(c).Warn().Interface("checks", checks).Msg("not ready")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"status":     "error",
				"request_id": middleware.RequestIDFrom(c),
				"code":       handlers.ErrCodeNotReady,
				"message":    "service not ready",
				"checks":     checks,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errNoDatabase
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// joinPath concatenates a normalized base path and a rooted suffix.
func joinPath(base, suffix string) string {
	if base == "" || base == "/" {
		return suffix
	}
	return base + suffix
}
