package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/aggregate"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/config"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/metrics"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/model"
)

var (
	// ErrAlreadyRunning is returned when a manual trigger arrives while a
	// cycle is in flight. The trigger is dropped, never queued.
	ErrAlreadyRunning = errors.New("surveillance cycle already running")

	// ErrCycleTimeout is returned when a cycle exceeds its deadline. No
	// output from the timed-out cycle is committed.
	ErrCycleTimeout = errors.New("surveillance cycle timed out")

	// ErrUnknownActivity is returned by Lookup for identifiers that were
	// not emitted by the most recent committed cycle.
	ErrUnknownActivity = errors.New("unknown activity id")
)

// State is the scheduler's lifecycle state.
type State string

const (
	StateDisabled State = "DISABLED"
	StateIdle     State = "IDLE"
	StateRunning  State = "RUNNING"
)

// Status is a point-in-time snapshot of the scheduler, suitable for the
// monitoring status endpoint.
type Status struct {
	State      State
	Enabled    bool
	Running    bool
	Config     config.MonitoringConfig
	LastReport *aggregate.CycleReport
	LastError  string
}

// CycleRunner executes one detection cycle over a window.
type CycleRunner interface {
	Detect(ctx context.Context, from, to time.Time, enabled []model.PatternType) (*aggregate.Result, error)
}

// Scheduler drives periodic surveillance cycles and caches the latest
// committed results.
type Scheduler struct {
	agg      CycleRunner
	lookback time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	cfg        config.MonitoringConfig
	running    bool
	lastReport *aggregate.CycleReport
	lastErr    string
	activities []model.SuspiciousActivity
	index      map[string]model.SuspiciousActivity

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler. lookback is the window width used for cadence
// cycles; manual cycles may override it per call.
func New(agg CycleRunner, cfg config.MonitoringConfig, lookback time.Duration, logger *slog.Logger, m *metrics.Metrics) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		agg:      agg,
		lookback: lookback,
		logger:   logger,
		metrics:  m,
		cfg:      cfg,
		index:    map[string]model.SuspiciousActivity{},
	}
}

// Start begins the cadence loop. The loop only emits ticks; whether a tick
// starts a cycle is decided by the state machine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("monitoring scheduler started",
		"enabled", s.cfg.Enabled,
		"interval", s.cfg.Interval,
		"patterns", s.cfg.Patterns,
	)

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for an in-flight cycle.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("monitoring scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the cadence loop. The interval is re-read each iteration so config
// updates take effect on the next cycle without restarting the loop.
func (s *Scheduler) run() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		interval := s.cfg.Interval
		s.mu.Unlock()

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(interval):
			s.Tick(s.ctx)
		}
	}
}

// Tick delivers one cadence tick. A tick only starts a cycle from IDLE:
// while DISABLED it is ignored, and while RUNNING it is dropped.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	if !s.cfg.Enabled {
		s.mu.Unlock()
		return
	}
	if s.running {
		s.mu.Unlock()
		s.logger.Debug("tick dropped, cycle in flight")
		return
	}
	s.running = true
	cfg := s.cfg
	s.mu.Unlock()

	if _, err := s.runCycle(ctx, cfg, s.lookback, patternTypes(cfg.Patterns)); err != nil {
		s.logger.Error("scheduled surveillance cycle failed", "error", err)
	}
}

// Detect runs one on-demand cycle synchronously and returns its result.
// It is allowed even while monitoring is disabled, but never concurrently
// with another cycle. An empty patterns slice runs the monitored pattern
// set; a non-empty one restricts the cycle to those patterns.
func (s *Scheduler) Detect(ctx context.Context, lookback time.Duration, patterns []model.PatternType) (*aggregate.Result, error) {
	if lookback <= 0 {
		lookback = s.lookback
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.running = true
	cfg := s.cfg
	s.mu.Unlock()

	if len(patterns) == 0 {
		patterns = patternTypes(cfg.Patterns)
	}
	return s.runCycle(ctx, cfg, lookback, patterns)
}

// runCycle executes one surveillance cycle with the config snapshot taken
// at cycle start. The caller must have set running=true.
func (s *Scheduler) runCycle(ctx context.Context, cfg config.MonitoringConfig, lookback time.Duration, patterns []model.PatternType) (res *aggregate.Result, err error) {
	start := time.Now()
	defer func() {
		s.mu.Lock()
		s.running = false
		if err != nil {
			s.lastErr = err.Error()
		} else {
			s.lastErr = ""
		}
		s.mu.Unlock()

		status := "ok"
		switch {
		case errors.Is(err, ErrCycleTimeout):
			status = "timeout"
		case err != nil:
			status = "error"
		case res != nil && res.Report.Partial:
			status = "partial"
		}
		s.metrics.ObserveCycle(status, time.Since(start))
	}()

	cctx, cancel := context.WithTimeout(ctx, cfg.CycleTimeout)
	defer cancel()

	to := time.Now().UTC()
	from := to.Add(-lookback)

	res, err = s.agg.Detect(cctx, from, to, patterns)

	// A timed-out cycle counts as failed even when the aggregator degraded
	// it to a partial result: nothing from it is committed.
	if cctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w: after %s", ErrCycleTimeout, cfg.CycleTimeout)
	}
	if err != nil {
		return nil, err
	}

	s.commit(res)
	return res, nil
}

// commit replaces the cached result set with the given cycle's output.
// Identifiers absent from the new cycle expire from the cache.
func (s *Scheduler) commit(res *aggregate.Result) {
	index := make(map[string]model.SuspiciousActivity, len(res.Activities))
	for _, a := range res.Activities {
		index[a.ID] = a
	}

	s.mu.Lock()
	s.lastReport = &res.Report
	s.activities = res.Activities
	s.index = index
	s.mu.Unlock()

	s.logger.Info("surveillance cycle committed",
		"cycle_id", res.Report.CycleID,
		"activities", len(res.Activities),
		"partial", res.Report.Partial,
		"duration", res.Report.Duration,
	)
}

// Enable turns the cadence on. It has no effect on an in-flight cycle.
func (s *Scheduler) Enable() {
	s.mu.Lock()
	s.cfg.Enabled = true
	s.mu.Unlock()
	s.logger.Info("monitoring enabled")
}

// Disable turns the cadence off. An in-flight cycle completes normally;
// no new cycles start.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	s.cfg.Enabled = false
	s.mu.Unlock()
	s.logger.Info("monitoring disabled")
}

// UpdateConfig validates and applies a new monitoring config. The change
// takes effect on the next cycle; the current cycle keeps its snapshot.
func (s *Scheduler) UpdateConfig(cfg config.MonitoringConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	s.logger.Info("monitoring config updated",
		"enabled", cfg.Enabled,
		"interval", cfg.Interval,
		"patterns", cfg.Patterns,
		"confidence_threshold", cfg.ConfidenceThreshold,
	)
	return nil
}

// State reports the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Scheduler) stateLocked() State {
	switch {
	case s.running:
		return StateRunning
	case s.cfg.Enabled:
		return StateIdle
	default:
		return StateDisabled
	}
}

// Status returns a snapshot of the scheduler for the status endpoint.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:      s.stateLocked(),
		Enabled:    s.cfg.Enabled,
		Running:    s.running,
		Config:     s.cfg,
		LastReport: s.lastReport,
		LastError:  s.lastErr,
	}
}

// Config returns the current monitoring config.
func (s *Scheduler) Config() config.MonitoringConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Latest returns the activities committed by the most recent cycle,
// filtered to those at or above the monitoring confidence threshold.
func (s *Scheduler) Latest() []model.SuspiciousActivity {
	s.mu.Lock()
	threshold := s.cfg.ConfidenceThreshold
	activities := s.activities
	s.mu.Unlock()

	out := make([]model.SuspiciousActivity, 0, len(activities))
	for _, a := range activities {
		if a.ConfidenceScore >= threshold {
			out = append(out, a)
		}
	}
	return out
}

// Lookup resolves an activity identifier emitted by the latest committed
// cycle. Unknown or expired identifiers return ErrUnknownActivity.
func (s *Scheduler) Lookup(id string) (model.SuspiciousActivity, error) {
	s.mu.Lock()
	a, ok := s.index[id]
	s.mu.Unlock()
	if !ok {
		return model.SuspiciousActivity{}, fmt.Errorf("%w: %s", ErrUnknownActivity, id)
	}
	return a, nil
}

func patternTypes(names []string) []model.PatternType {
	out := make([]model.PatternType, 0, len(names))
	for _, n := range names {
		out = append(out, model.PatternType(n))
	}
	return out
}
