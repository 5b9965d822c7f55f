// Command server runs the recently viewed products HTTP API.
//
// @title          Recently Viewed Products API
// @version        1.0
// @description    Per-user recently viewed history with a global most-viewed ranking.
// @BasePath       /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-recently-viewed/docs"
	"github.com/tbourn/go-recently-viewed/internal/auth"
	"github.com/tbourn/go-recently-viewed/internal/cache"
	"github.com/tbourn/go-recently-viewed/internal/config"
	httpapi "github.com/tbourn/go-recently-viewed/internal/http"
	"github.com/tbourn/go-recently-viewed/internal/notify"
	"github.com/tbourn/go-recently-viewed/internal/observability"
	"github.com/tbourn/go-recently-viewed/internal/repo"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	observability.SetupLogger(observability.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: version,
		Env:     cfg.AppEnv,
	})
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, version, cfg.AppEnv)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath,
		repo.WithMaxOpenConns(cfg.DBMaxOpenConns),
		repo.WithSlowQueryThreshold(cfg.DBSlowQuery),
	)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	if cfg.SeedProducts {
		if err := repo.SeedProducts(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("seed products")
		}
		log.Info().Msg("product catalog seeded")
	}

	store, err := cache.NewStore(ctx, cache.Options{
		Backend:    cfg.Cache.Backend,
		Addr:       cfg.Cache.RedisAddr,
		Password:   cfg.Cache.RedisPassword,
		DB:         cfg.Cache.RedisDB,
		MaxRetries: cfg.Cache.MaxRetries,
	})
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Cache.Backend).Msg("cache unavailable")
	}
	cacheAdapter := cache.NewAdapter(store, cfg.Cache.TTL)

	dispatcher := notify.NewDispatcher(newNotifier(cfg.Notify), cfg.Notify.Workers, cfg.Notify.QueueSize)

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		docs.SwaggerInfo.Version = version
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:       db,
		Cache:    cacheAdapter,
		Verifier: newVerifier(cfg),
		Notifier: dispatcher,
	}, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	// Start server in a goroutine so we can listen for shutdown signals.
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("env", cfg.AppEnv).
			Str("cache", cfg.Cache.Backend).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	// In-flight requests are done; drain pending notifications next.
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("notification queue not drained")
	}
	if err := cacheAdapter.Close(); err != nil {
		log.Warn().Err(err).Msg("cache close")
	}
	closeDB(db)
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown")
	}
	log.Info().Msg("bye")
}

// newVerifier accepts signed JWTs when a secret is configured and, outside
// production, the static test token.
func newVerifier(cfg config.Config) auth.Verifier {
	var chain auth.Chain
	if cfg.Auth.JWTSecret != "" {
		chain = append(chain, auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer))
	}
	if !cfg.IsProduction() && cfg.Auth.TestToken != "" {
		chain = append(chain, auth.StaticVerifier{
			Token: cfg.Auth.TestToken,
			Identity: auth.Identity{
				UserID: cfg.Auth.TestUserID,
				Email:  cfg.Auth.TestUserEmail,
			},
		})
		log.Warn().Str("user_id", cfg.Auth.TestUserID).Msg("static test token enabled")
	}
	if len(chain) == 0 {
		log.Warn().Msg("no token verifier configured; every user route will answer 401")
	}
	return chain
}

func newNotifier(cfg config.NotifyConfig) notify.Notifier {
	if cfg.SMTPHost == "" {
		return notify.LogNotifier{}
	}
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.From,
	}, language.English)
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("database close")
	}
}
