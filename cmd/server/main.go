package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grcplane/grcplane-core/internal/api"
	"github.com/grcplane/grcplane-core/internal/config"
	"github.com/grcplane/grcplane-core/internal/services"
	"github.com/grcplane/grcplane-core/internal/storage/mysql"
	"github.com/grcplane/grcplane-core/internal/tracing"
	"github.com/grcplane/grcplane-core/pkg/cache"
	"github.com/grcplane/grcplane-core/pkg/logger"
)

const version = "v1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.LogLevel)
	logger.Info("Starting GRCPLANE-CORE", "version", version, "environment", cfg.Environment)

	// Tracing is optional; the engine tracer degrades to no-op spans when no
	// provider is installed.
	if cfg.Tracing.Enabled {
		tp, err := tracing.NewTracerProvider("grcplane-core", version, cfg.Tracing.OTLPEndpoint)
		if err != nil {
			logger.Warn("Failed to initialize tracing; continuing without it", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Tracer shutdown failed", "error", err)
				}
			}()
			logger.Info("OTLP tracing initialized", "endpoint", cfg.Tracing.OTLPEndpoint)
		}
	}

	// Valkey caching with in-memory fallback for degraded operation.
	valkeyCache, err := cache.NewValkey(cfg.Cache.Addr, cfg.Cache.DB, cfg.Cache.Password,
		time.Duration(cfg.Cache.TTL)*time.Second, logger)
	if err != nil {
		logger.Warn("Valkey unavailable, falling back to in-memory cache", "error", err)
		valkeyCache = cache.NewNoopValkey(logger)
	} else {
		logger.Info("Valkey cache initialized", "addr", cfg.Cache.Addr)
	}

	db, err := mysql.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", "error", err)
	}
	defer db.Close()
	logger.Info("MySQL storage initialized", "host", cfg.Database.Host, "database", cfg.Database.Database)

	policies, err := config.LoadEscalationPolicies(cfg.Escalation.PoliciesPath)
	if err != nil {
		logger.Fatal("Failed to load escalation policies", "error", err, "path", cfg.Escalation.PoliciesPath)
	}
	logger.Info("Escalation policies loaded", "count", len(policies))

	tracer := tracing.NewEngineTracer("grcplane-core")

	alertStore := mysql.NewAlertStore(db)
	ruleStore := mysql.NewAlertRuleStore(db)
	chainStore := mysql.NewEscalationChainStore(db)
	userStore := mysql.NewUserStore(db)

	scheduler := services.NewEscalationScheduler(logger)
	workflowTrigger := services.NewHTTPWorkflowTrigger(cfg.Workflow, logger)
	escalationService := services.NewEscalationService(
		chainStore, alertStore, userStore, scheduler, workflowTrigger, valkeyCache, tracer, logger)

	notifier := services.NewNotificationService(cfg.Integrations, logger)

	alertService := services.NewAlertService(
		alertStore, escalationService, notifier, valkeyCache, policies, cfg.Escalation.DefaultPolicy, logger)
	ruleEngine := services.NewRuleEngine(ruleStore, alertStore, alertService, tracer, logger)

	// Re-arm escalation timers that were pending when the last process died.
	if err := escalationService.RecoverTimers(context.Background()); err != nil {
		logger.Error("Escalation timer recovery failed", "error", err)
	}

	apiServer := api.NewServer(cfg, logger, valkeyCache, db, alertService, ruleEngine, escalationService)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Watch the config file for live log-level and integration changes.
	watcher := config.NewConfigWatcher("./configs/config.yaml", logger)
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("Config watcher unavailable", "error", err)
	} else {
		defer watcher.Stop()
		watcher.RegisterWatcher(func(updated *config.Config) {
			logger.Info("Configuration reloaded", "log_level", updated.LogLevel)
		})
	}

	// Daily retention sweep for dismissed alerts.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := ruleEngine.CleanupOldAlerts(ctx, cfg.Retention.DismissedAlertDays); err != nil {
					logger.Error("Dismissed alert cleanup failed", "error", err)
				}
			}
		}
	}()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := apiServer.Start(ctx); err != nil {
		logger.Fatal("Server failed to start", "error", err)
	}

	logger.Info("GRCPLANE-CORE shutdown complete")
}
