package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mrcreams/internal/audit"
	compliancehandler "mrcreams/internal/compliance/handler"
	complianceservice "mrcreams/internal/compliance/service"
	compliancestore "mrcreams/internal/compliance/store"
	consenthandler "mrcreams/internal/consent/handler"
	consentservice "mrcreams/internal/consent/service"
	consentstore "mrcreams/internal/consent/store"
	deletionhandler "mrcreams/internal/deletion/handler"
	deletionservice "mrcreams/internal/deletion/service"
	deletionstore "mrcreams/internal/deletion/store"
	"mrcreams/internal/export"
	"mrcreams/internal/platform/config"
	"mrcreams/internal/platform/database"
	"mrcreams/internal/platform/health"
	"mrcreams/internal/platform/kafka"
	"mrcreams/internal/platform/logger"
	"mrcreams/internal/platform/metrics"
	"mrcreams/internal/platform/middleware"
	"mrcreams/internal/platform/redis"
	"mrcreams/internal/platform/token"
	"mrcreams/internal/seeder"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal services.
func main() {
	cfg := config.Load()
	log := logger.New()

	log.Info("initializing mrcreams",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	pool, err := database.New(cfg)
	if err != nil {
		log.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	db := pool.DB()

	cache, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer cache.Close()
	}

	m := metrics.New()

	auditStore := audit.NewPostgresStore(db)
	auditOpts := []audit.PublisherOption{
		audit.WithAsyncBuffer(cfg.AuditBufferSize),
		audit.WithLogger(log),
	}
	var producer *kafka.Producer
	if cfg.KafkaBrokers != "" {
		producer, err = kafka.NewProducer(cfg.KafkaBrokers, log)
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		auditOpts = append(auditOpts, audit.WithKafkaMirror(producer, cfg.AuditTopic))
	}
	auditor := audit.NewPublisher(auditStore, auditOpts...)
	defer auditor.Close()

	consentSvc := consentservice.NewService(
		consentstore.NewPostgres(db), auditor, log,
		consentservice.WithCache(cache, cfg.ConsentCacheTTL),
		consentservice.WithMetrics(m),
	)
	exportSvc := export.NewService(
		export.NewPostgres(db), auditor, log,
		export.WithMetrics(m),
	)
	deletionSvc := deletionservice.NewService(
		deletionstore.NewPostgres(db), auditor, log,
		deletionservice.WithMetrics(m),
		deletionservice.WithGracePeriod(cfg.ErasureGracePeriod),
	)
	complianceStore := compliancestore.NewPostgres(db)
	complianceSvc := complianceservice.NewService(complianceStore, consentSvc, auditor, log)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	sd := seeder.New(complianceStore, complianceStore, log)
	if err := sd.SeedActivities(seedCtx); err != nil {
		log.Error("failed to seed processing register", "error", err)
		cancelSeed()
		os.Exit(1)
	}
	cancelSeed()

	verifier := token.NewVerifier(cfg.JWTSigningKey)

	auditH := audit.NewHandler(auditor, log)
	consentH := consenthandler.New(consentSvc, log)
	exportH := export.NewHandler(exportSvc, log)
	deletionH := deletionhandler.New(deletionSvc, log)
	complianceH := compliancehandler.New(complianceSvc, log)

	healthH := health.New(cfg.Environment)
	healthH.RegisterCheck("postgres", pool.HealthCheck)
	if cache != nil {
		healthH.RegisterCheck("redis", cache.HealthCheck)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Instrument(m))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	healthH.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(verifier, log))

		consentH.Register(r)
		exportH.Register(r)
		deletionH.Register(r)
		complianceH.Register(r)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(log))
			auditH.RegisterAdmin(r)
			deletionH.RegisterAdmin(r)
			complianceH.RegisterAdmin(r)
		})
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
