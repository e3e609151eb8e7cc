package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/receiptorhq/receiptor/internal/analytics"
	analyticsdomain "github.com/receiptorhq/receiptor/internal/analytics/domain"
	"github.com/receiptorhq/receiptor/internal/audit"
	auditdomain "github.com/receiptorhq/receiptor/internal/audit/domain"
	"github.com/receiptorhq/receiptor/internal/config"
	"github.com/receiptorhq/receiptor/internal/extraction"
	"github.com/receiptorhq/receiptor/internal/filestore"
	"github.com/receiptorhq/receiptor/internal/keylock"
	"github.com/receiptorhq/receiptor/internal/observability"
	obsmiddleware "github.com/receiptorhq/receiptor/internal/observability/logger"
	obsmetrics "github.com/receiptorhq/receiptor/internal/observability/metrics"
	obstracing "github.com/receiptorhq/receiptor/internal/observability/tracing"
	"github.com/receiptorhq/receiptor/internal/receipt"
	receiptdomain "github.com/receiptorhq/receiptor/internal/receipt/domain"
	"github.com/receiptorhq/receiptor/internal/rule"
	ruledomain "github.com/receiptorhq/receiptor/internal/rule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	filestore.Module,
	keylock.Module,
	extraction.Module,
	audit.Module,
	rule.Module,
	receipt.Module,
	analytics.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, reg *prometheus.Registry) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// The gorm plugin registers on the default registry, so both are
	// gathered here.
	gatherers := prometheus.Gatherers{reg, prometheus.DefaultGatherer}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, reg *prometheus.Registry) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, reg)
}

func run(lc fx.Lifecycle, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", srv.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	receiptSvc   receiptdomain.Service
	ruleSvc      ruledomain.Service
	analyticsSvc analyticsdomain.Service
	auditSvc     auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	ReceiptSvc   receiptdomain.Service
	RuleSvc      ruledomain.Service
	AnalyticsSvc analyticsdomain.Service
	AuditSvc     auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		receiptSvc:   p.ReceiptSvc,
		ruleSvc:      p.RuleSvc,
		analyticsSvc: p.AnalyticsSvc,
		auditSvc:     p.AuditSvc,
	}

	s.registerRootRoutes()
	s.registerAPIRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRootRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": s.cfg.AppName,
			"version": s.cfg.AppVersion,
		})
	})
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	receipts := api.Group("/receipts")
	{
		receipts.POST("/upload", s.UploadReceipt)
		receipts.GET("", s.ListReceipts)
		receipts.GET("/:id", s.GetReceipt)
		receipts.PUT("/:id", s.UpdateReceipt)
		receipts.DELETE("/:id", s.DeleteReceipt)
		receipts.POST("/:id/reclassify", s.ReclassifyReceipt)
	}

	api.GET("/analytics/summary", s.AnalyticsSummary)
	api.GET("/categories", s.ListCategories)

	rules := api.Group("/ai-rules")
	{
		rules.POST("", s.CreateRule)
		rules.GET("", s.ListRules)
		rules.GET("/suggestions", s.RuleSuggestions)
		rules.PUT("/:id", s.UpdateRule)
		rules.DELETE("/:id", s.DeleteRule)
		rules.POST("/:id/test", s.TestRule)
	}

	api.GET("/audit/trail", s.ListAuditTrail)
}
