package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/aggregate"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/graph"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/model"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/monitor"
)

// MonitoringConfigRequest is the mutable monitoring config on the wire.
// Interval and patterns are required; every optional field keeps its
// current value when omitted.
type MonitoringConfigRequest struct {
	Enabled              *bool    `json:"enabled"`
	CheckIntervalMinutes int      `json:"check_interval_minutes" binding:"required,min=1"`
	CycleTimeoutSeconds  int      `json:"cycle_timeout_seconds"`
	PatternsToMonitor    []string `json:"patterns_to_monitor" binding:"required,min=1"`
	ConfidenceThreshold  *float64 `json:"confidence_threshold"`
}

// MonitoringStatusResponse reports the scheduler state.
type MonitoringStatusResponse struct {
	State                string                 `json:"state"`
	Enabled              bool                   `json:"enabled"`
	Running              bool                   `json:"running"`
	CheckIntervalMinutes int                    `json:"check_interval_minutes"`
	CycleTimeoutSeconds  int                    `json:"cycle_timeout_seconds"`
	PatternsToMonitor    []string               `json:"patterns_to_monitor"`
	ConfidenceThreshold  float64                `json:"confidence_threshold"`
	LastReport           *aggregate.CycleReport `json:"last_report,omitempty"`
	LastError            string                 `json:"last_error,omitempty"`
}

// DashboardSummary aggregates the latest committed cycle for the dashboard.
type DashboardSummary struct {
	TotalActivities   int                       `json:"total_activities"`
	ByPattern         map[model.PatternType]int `json:"by_pattern"`
	BySeverity        map[model.Severity]int    `json:"by_severity"`
	UniqueTraders     int                       `json:"unique_traders"`
	UniqueInstruments int                       `json:"unique_instruments"`
	Monitoring        MonitoringStatusResponse  `json:"monitoring"`
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	graphStatus := "up"
	code := http.StatusOK
	if err := s.graph.Ping(ctx); err != nil {
		status = "degraded"
		graphStatus = "down"
		code = http.StatusServiceUnavailable
		s.logger.Warn("graph store unreachable", "error", err)
	}

	c.JSON(code, gin.H{
		"status": status,
		"graph":  graphStatus,
		"time":   time.Now().UTC(),
	})
}

// handleDetect runs one synchronous detection cycle over the requested
// lookback window. An optional comma-separated pattern_types param
// restricts the cycle to those patterns.
func (s *Server) handleDetect(c *gin.Context) {
	lookback, ok := s.lookbackParam(c)
	if !ok {
		return
	}

	patterns, err := parsePatterns(c.Query("pattern_types"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.runDetect(c, lookback, patterns)
}

// handleDetectPattern serves the per-pattern detection routes.
func (s *Server) handleDetectPattern(pattern model.PatternType) gin.HandlerFunc {
	return func(c *gin.Context) {
		lookback, ok := s.lookbackParam(c)
		if !ok {
			return
		}
		s.runDetect(c, lookback, []model.PatternType{pattern})
	}
}

func (s *Server) runDetect(c *gin.Context, lookback time.Duration, patterns []model.PatternType) {
	res, err := s.sched.Detect(c.Request.Context(), lookback, patterns)
	if err != nil {
		s.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// lookbackParam reads lookback_hours, falling back to the server default.
// On a bad value it writes the 400 response and reports false.
func (s *Server) lookbackParam(c *gin.Context) (time.Duration, bool) {
	raw := c.Query("lookback_hours")
	if raw == "" {
		return s.lookback, true
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lookback_hours must be a positive integer"})
		return 0, false
	}
	return time.Duration(hours) * time.Hour, true
}

// parsePatterns validates a comma-separated pattern_types value. Empty
// means no restriction.
func parsePatterns(raw string) ([]model.PatternType, error) {
	if raw == "" {
		return nil, nil
	}
	var out []model.PatternType
	for _, name := range strings.Split(raw, ",") {
		switch p := model.PatternType(strings.ToUpper(strings.TrimSpace(name))); p {
		case model.PatternSpoofing, model.PatternLayering:
			out = append(out, p)
		default:
			return nil, fmt.Errorf("unknown pattern type %q", name)
		}
	}
	return out, nil
}

// handleActivityDetails resolves one previously emitted activity id into
// its full entity context.
func (s *Server) handleActivityDetails(c *gin.Context) {
	activity, err := s.sched.Lookup(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	detail, err := s.resolver.Activity(c.Request.Context(), activity)
	if err != nil {
		s.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (s *Server) handleMonitoringStatus(c *gin.Context) {
	c.JSON(http.StatusOK, statusResponse(s.sched.Status()))
}

func (s *Server) handleMonitoringConfig(c *gin.Context) {
	var req MonitoringConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := s.sched.Config()
	cfg.Interval = time.Duration(req.CheckIntervalMinutes) * time.Minute
	cfg.Patterns = req.PatternsToMonitor
	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}
	if req.ConfidenceThreshold != nil {
		cfg.ConfidenceThreshold = *req.ConfidenceThreshold
	}
	if req.CycleTimeoutSeconds > 0 {
		cfg.CycleTimeout = time.Duration(req.CycleTimeoutSeconds) * time.Second
	}

	if err := s.sched.UpdateConfig(cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, statusResponse(s.sched.Status()))
}

// handleMonitoringRun triggers one cycle with the default lookback. A
// trigger arriving while a cycle is in flight is rejected, not queued.
func (s *Server) handleMonitoringRun(c *gin.Context) {
	res, err := s.sched.Detect(c.Request.Context(), s.lookback, nil)
	if err != nil {
		s.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (s *Server) handleDashboardSummary(c *gin.Context) {
	activities := s.sched.Latest()

	summary := DashboardSummary{
		TotalActivities: len(activities),
		ByPattern:       map[model.PatternType]int{},
		BySeverity:      map[model.Severity]int{},
		Monitoring:      statusResponse(s.sched.Status()),
	}

	traders := map[string]struct{}{}
	instruments := map[string]struct{}{}
	for _, a := range activities {
		summary.ByPattern[a.PatternType]++
		summary.BySeverity[a.Severity]++
		traders[a.TraderID] = struct{}{}
		instruments[a.Instrument] = struct{}{}
	}
	summary.UniqueTraders = len(traders)
	summary.UniqueInstruments = len(instruments)

	c.JSON(http.StatusOK, summary)
}

// writeEngineError maps engine errors onto status codes.
func (s *Server) writeEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, monitor.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, monitor.ErrCycleTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case errors.Is(err, graph.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, graph.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func statusResponse(st monitor.Status) MonitoringStatusResponse {
	return MonitoringStatusResponse{
		State:                string(st.State),
		Enabled:              st.Enabled,
		Running:              st.Running,
		CheckIntervalMinutes: int(st.Config.Interval / time.Minute),
		CycleTimeoutSeconds:  int(st.Config.CycleTimeout / time.Second),
		PatternsToMonitor:    st.Config.Patterns,
		ConfidenceThreshold:  st.Config.ConfidenceThreshold,
		LastReport:           st.LastReport,
		LastError:            st.LastError,
	}
}
