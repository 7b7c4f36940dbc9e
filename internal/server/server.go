package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/medicore/internal/audit"
	auditdomain "github.com/smallbiznis/medicore/internal/audit/domain"
	"github.com/smallbiznis/medicore/internal/authorization"
	"github.com/smallbiznis/medicore/internal/bill"
	billdomain "github.com/smallbiznis/medicore/internal/bill/domain"
	"github.com/smallbiznis/medicore/internal/billingmetrics"
	"github.com/smallbiznis/medicore/internal/billworkflow"
	"github.com/smallbiznis/medicore/internal/config"
	"github.com/smallbiznis/medicore/internal/invoice"
	invoicedomain "github.com/smallbiznis/medicore/internal/invoice/domain"
	"github.com/smallbiznis/medicore/internal/observability"
	obslogger "github.com/smallbiznis/medicore/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/medicore/internal/observability/metrics"
	obstracing "github.com/smallbiznis/medicore/internal/observability/tracing"
	"github.com/smallbiznis/medicore/internal/patient"
	patientdomain "github.com/smallbiznis/medicore/internal/patient/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	authorization.Module,
	audit.Module,
	patient.Module,
	bill.Module,
	billworkflow.Module,
	invoice.Module,
	billingmetrics.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

// NewEngine builds the gin engine with the shared middleware chain. The
// /metrics endpoint serves the default registry together with gatherer.
func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	if gatherer != nil {
		gatherers = append(gatherers, gatherer)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, registry)
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
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
	engine     *gin.Engine
	cfg        config.Config
	authzSvc   authorization.Service
	auditSvc   auditdomain.Service
	billSvc    billdomain.Service
	patientSvc patientdomain.Service
	invoiceSvc invoicedomain.Service
	drafts     *billworkflow.Sessions
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	AuthzSvc   authorization.Service
	AuditSvc   auditdomain.Service
	BillSvc    billdomain.Service
	PatientSvc patientdomain.Service
	InvoiceSvc invoicedomain.Service
	Drafts     *billworkflow.Sessions
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		authzSvc:   p.AuthzSvc,
		auditSvc:   p.AuditSvc,
		billSvc:    p.BillSvc,
		patientSvc: p.PatientSvc,
		invoiceSvc: p.InvoiceSvc,
		drafts:     p.Drafts,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// RegisterRoutes mounts the /api routes. Every route needs an actor; the
// bill and patient services enforce their own permissions.
func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api", s.ActorRequired())

	api.GET("/me/capabilities", s.GetCapabilities)

	// -------- Bills --------
	api.GET("/bills", s.ListBills)
	api.POST("/bills", s.CreateBill)
	api.GET("/bills/:id", s.GetBillByID)
	api.GET("/bills/:id/invoice", s.GetInvoiceHTML)
	api.GET("/bills/:id/invoice/pdf", s.GetInvoicePDF)

	// -------- Bill drafts --------
	drafts := api.Group("/bill-drafts", s.authorizeAction(authorization.ObjectBill, authorization.ActionBillCreate))
	{
		drafts.POST("", s.OpenDraft)
		drafts.GET("/:id", s.GetDraft)
		drafts.PATCH("/:id", s.UpdateDraft)
		drafts.DELETE("/:id", s.DiscardDraft)
		drafts.POST("/:id/items", s.AddDraftItem)
		drafts.PATCH("/:id/items/:index", s.UpdateDraftItem)
		drafts.DELETE("/:id/items/:index", s.RemoveDraftItem)
		drafts.POST("/:id/submit", s.SubmitDraft)
	}

	// -------- Reference data --------
	api.GET("/patients", s.ListPatients)
	api.GET("/service-templates",
		s.authorizeAction(authorization.ObjectServiceTemplate, authorization.ActionServiceTemplateView),
		s.ListServiceTemplates,
	)

	api.GET("/audit-logs",
		s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView),
		s.ListAuditLogs,
	)
}
