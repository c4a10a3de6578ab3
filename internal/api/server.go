package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/grcplane/grcplane-core/internal/api/handlers"
	"github.com/grcplane/grcplane-core/internal/api/middleware"
	"github.com/grcplane/grcplane-core/internal/config"
	"github.com/grcplane/grcplane-core/internal/monitoring"
	"github.com/grcplane/grcplane-core/internal/services"
	"github.com/grcplane/grcplane-core/internal/storage/mysql"
	"github.com/grcplane/grcplane-core/pkg/cache"
	"github.com/grcplane/grcplane-core/pkg/logger"
)

type Server struct {
	config       *config.Config
	logger       logger.Logger
	cache        cache.Valkey
	db           *mysql.Client
	alertService *services.AlertService
	ruleEngine   *services.RuleEngine
	escalations  *services.EscalationService
	router       *gin.Engine
	httpServer   *http.Server
}

func NewServer(
	cfg *config.Config,
	log logger.Logger,
	valkeyCache cache.Valkey,
	db *mysql.Client,
	alertService *services.AlertService,
	ruleEngine *services.RuleEngine,
	escalations *services.EscalationService,
) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	server := &Server{
		config:       cfg,
		logger:       log,
		cache:        valkeyCache,
		db:           db,
		alertService: alertService,
		ruleEngine:   ruleEngine,
		escalations:  escalations,
		router:       router,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())

	s.router.Use(middleware.CORSMiddleware(s.config.CORS))
	s.router.Use(middleware.RequestLogger(s.logger))
	s.router.Use(middleware.MetricsMiddleware())
	s.router.Use(middleware.ActorMiddleware())

	// OpenAPI specification and Swagger UI at /swagger/index.html
	s.router.StaticFile("/api/openapi.yaml", "api/openapi.yaml")
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/api/openapi.yaml")))

	// Prometheus metrics endpoint
	monitoring.SetupPrometheusMetrics(s.router)
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.db, s.cache, s.logger)

	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	s.router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/swagger/index.html")
	})

	v1 := s.router.Group("/api/v1")

	// Alert lifecycle
	alertHandler := handlers.NewAlertHandler(s.alertService, s.logger)
	v1.POST("/alerts", alertHandler.CreateAlert)
	v1.GET("/alerts", alertHandler.ListAlerts)
	v1.GET("/alerts/:id", alertHandler.GetAlert)
	v1.PUT("/alerts/:id/acknowledge", alertHandler.AcknowledgeAlert)
	v1.PUT("/alerts/:id/resolve", alertHandler.ResolveAlert)
	v1.PUT("/alerts/:id/dismiss", alertHandler.DismissAlert)

	// Detection rules and evaluation
	ruleHandler := handlers.NewAlertRuleHandler(s.ruleEngine, s.logger)
	v1.POST("/alert-rules", ruleHandler.CreateRule)
	v1.GET("/alert-rules", ruleHandler.ListRules)
	v1.GET("/alert-rules/:id", ruleHandler.GetRule)
	v1.PUT("/alert-rules/:id", ruleHandler.UpdateRule)
	v1.DELETE("/alert-rules/:id", ruleHandler.DeleteRule)
	v1.POST("/rules/evaluate", ruleHandler.EvaluateEntity)
	v1.POST("/rules/evaluate-batch", ruleHandler.EvaluateBatch)
	v1.POST("/rules/auto-resolve", ruleHandler.AutoResolve)

	// Escalation chains
	escalationHandler := handlers.NewEscalationHandler(s.escalations, s.logger)
	v1.POST("/escalations", escalationHandler.CreateChain)
	v1.GET("/escalations/active", escalationHandler.GetActiveChains)
	v1.GET("/escalations/statistics", escalationHandler.Statistics)
	v1.GET("/escalations/alert/:alertId", escalationHandler.GetAlertChains)
	v1.GET("/escalations/:id", escalationHandler.GetChain)
	v1.POST("/escalations/:id/escalate", escalationHandler.Escalate)
	v1.POST("/escalations/:id/resolve", escalationHandler.Resolve)
	v1.POST("/escalations/:id/cancel", escalationHandler.Cancel)
}

func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("GRCPLANE-CORE REST API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down GRCPLANE-CORE gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
