package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kinship/internal/platform/config"
	"kinship/internal/platform/database"
	"kinship/internal/platform/health"
	"kinship/internal/platform/logger"
	"kinship/internal/reminders/handler"
	"kinship/internal/reminders/lifecycle"
	"kinship/internal/reminders/metrics"
	"kinship/internal/reminders/orchestrator"
	contactstore "kinship/internal/reminders/store/contact"
	reminderstore "kinship/internal/reminders/store/reminder"
	"kinship/internal/reminders/workers/maintenance"
	"kinship/internal/seeder"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal services.
func main() {
	// Best-effort: absence of a .env file is the normal production case.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing kinship reminder service",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	pool, err := database.New(database.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    database.DefaultConfig().MaxOpenConns,
		MaxIdleConns:    database.DefaultConfig().MaxIdleConns,
		ConnMaxLifetime: database.DefaultConfig().ConnMaxLifetime,
	})
	if err != nil {
		log.Error("database initialization failed", "error", err)
		os.Exit(1)
	}

	var reminders lifecycle.Store
	var contacts orchestrator.ContactStore
	if pool != nil {
		if err := pool.Migrate(context.Background()); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		reminders = reminderstore.NewPostgres(pool.DB())
		contacts = contactstore.NewPostgres(pool.DB())
		defer pool.Close() //nolint:errcheck // best-effort close on shutdown
	} else {
		log.Warn("no database configured, using in-memory stores")
		reminders = reminderstore.New()
		memContacts := contactstore.New()
		contacts = memContacts
		if cfg.Environment == "development" {
			if err := seeder.New(memContacts, log).SeedAll(context.Background()); err != nil {
				log.Error("demo seed failed", "error", err)
			}
		}
	}

	m := metrics.New()

	lifecycleSvc, err := lifecycle.New(reminders, lifecycle.WithLogger(log))
	if err != nil {
		log.Error("lifecycle service initialization failed", "error", err)
		os.Exit(1)
	}

	orchestratorStore, ok := reminders.(orchestrator.ReminderStore)
	if !ok {
		log.Error("reminder store does not support orchestration")
		os.Exit(1)
	}
	orchestratorSvc, err := orchestrator.New(orchestratorStore, contacts, lifecycleSvc,
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(m),
		orchestrator.WithConcurrency(cfg.BatchConcurrency),
	)
	if err != nil {
		log.Error("orchestrator initialization failed", "error", err)
		os.Exit(1)
	}

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	healthHandler.Register(router)
	router.Handle("/metrics", promhttp.Handler())
	handler.New(orchestratorSvc, lifecycleSvc, log).Register(router)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	worker := maintenance.New(orchestratorSvc,
		maintenance.WithLogger(log),
		maintenance.WithInterval(cfg.MaintenanceInterval),
		maintenance.WithCleanupAgeDays(cfg.CleanupAgeDays),
		maintenance.WithMetrics(m),
	)
	go func() {
		// Fire-and-forget: the worker logs its own failures and the
		// stop error is the expected shutdown signal.
		_ = worker.Start(workerCtx)
	}()

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
