package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/aggregate"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/config"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/model"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/monitor"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/resolve"
)

// Surveillance is the scheduler surface the API depends on.
type Surveillance interface {
	Detect(ctx context.Context, lookback time.Duration, patterns []model.PatternType) (*aggregate.Result, error)
	Status() monitor.Status
	Config() config.MonitoringConfig
	UpdateConfig(cfg config.MonitoringConfig) error
	Lookup(id string) (model.SuspiciousActivity, error)
	Latest() []model.SuspiciousActivity
}

// ActivityResolver enriches activities with their graph entities.
type ActivityResolver interface {
	Activity(ctx context.Context, activity model.SuspiciousActivity) (resolve.ActivityDetail, error)
}

// Pinger checks graph store reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP API for one engine instance.
type Server struct {
	cfg      config.ServerConfig
	lookback time.Duration
	sched    Surveillance
	resolver ActivityResolver
	graph    Pinger
	logger   *slog.Logger

	httpSrv *http.Server
}

// New creates a Server. lookback is the default window for on-demand
// detection when the request does not override it.
func New(cfg config.ServerConfig, lookback time.Duration, sched Surveillance, resolver ActivityResolver, graph Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		lookback: lookback,
		sched:    sched,
		resolver: resolver,
		graph:    graph,
		logger:   logger,
	}
}

// Routes builds the gin engine with all endpoints registered.
func (s *Server) Routes() *gin.Engine {
	if !s.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	{
		api.GET("/patterns/detect", s.handleDetect)
		api.GET("/patterns/spoofing", s.handleDetectPattern(model.PatternSpoofing))
		api.GET("/patterns/layering", s.handleDetectPattern(model.PatternLayering))
		api.GET("/patterns/:id/details", s.handleActivityDetails)

		api.GET("/monitoring/status", s.handleMonitoringStatus)
		api.POST("/monitoring/config", s.handleMonitoringConfig)
		api.POST("/monitoring/run", s.handleMonitoringRun)

		api.GET("/dashboard/summary", s.handleDashboardSummary)
	}

	return r
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.Routes(),
	}

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "error", err)
		}
	}()

	s.logger.Info("http server started", "port", s.cfg.Port)
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	err := s.httpSrv.Shutdown(ctx)
	if err == nil {
		s.logger.Info("http server stopped")
	}
	return err
}

// requestLogger logs one line per request through the structured logger.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
