package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/teresa-solution/settings-management-service/internal/audit"
	"github.com/teresa-solution/settings-management-service/internal/broadcast"
	"github.com/teresa-solution/settings-management-service/internal/cache"
	"github.com/teresa-solution/settings-management-service/internal/config"
	"github.com/teresa-solution/settings-management-service/internal/crypto"
	"github.com/teresa-solution/settings-management-service/internal/httpapi"
	"github.com/teresa-solution/settings-management-service/internal/monitoring"
	"github.com/teresa-solution/settings-management-service/internal/settings"
	"github.com/teresa-solution/settings-management-service/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	// Field encryption is mandatory; refusing to start beats persisting
	// credentials in plaintext.
	enc, err := crypto.New(cfg.Encryption.Secret)
	if err != nil {
		log.Fatal().Err(err).Msg("Encryption secret is not configured")
	}

	db, err := store.Open(cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// The cache and relay degrade gracefully, so a Redis outage at
		// startup is worth a warning but not a refusal to serve.
		log.Warn().Err(err).Msg("Redis unreachable, cache and live updates degraded")
	}

	monitoring.InitMetrics()

	settingsRepo := store.NewSettingsRepository(db)
	auditRepo := store.NewAuditRepository(db)

	auditSvc := audit.NewService(auditRepo)
	sweeper := audit.NewSweeper(auditSvc, cfg.Audit.RetentionDays,
		time.Duration(cfg.Audit.CleanupIntervalHours)*time.Hour)
	sweeper.Start()
	defer sweeper.Stop()

	hub := broadcast.NewHub(broadcast.NewMemoryRegistry(), rdb)
	defer hub.Close()

	settingsCache := cache.NewSettingsCacheWithTTL(rdb, time.Duration(cfg.Cache.TTLSeconds)*time.Second)

	svc := settings.NewService(settingsRepo, settingsCache, auditSvc, hub, enc)
	svc.Register(settings.NewPaymentGatewayCategory())
	svc.Register(settings.NewEmailCategory())
	svc.Register(settings.NewSecurityCategory())
	svc.Register(settings.NewPlatformBrandingCategory())
	svc.Register(settings.NewBrandingCategory())
	svc.Register(settings.NewTeamCategory())
	svc.Register(settings.NewBillingCategory())
	svc.Register(settings.NewIntegrationsCategory())
	svc.Register(settings.NewAvailabilityCategory())
	svc.Register(settings.NewPreferencesCategory())

	api := httpapi.New(svc, auditSvc, hub, cfg.JWT.Secret)

	mux := http.NewServeMux()
	api.Routes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: httpapi.Instrument(mux),
	}

	go func() {
		log.Info().Msgf("Starting Settings Management Service on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
	log.Info().Msg("Server exiting")
}
