package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/aggregate"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/config"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/model"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/monitor"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/resolve"
)

type fakeScheduler struct {
	cfg          config.MonitoringConfig
	running      bool
	detectErr    error
	result       *aggregate.Result
	activities   map[string]model.SuspiciousActivity
	lastDetect   time.Duration
	lastPatterns []model.PatternType
}

func (f *fakeScheduler) Detect(_ context.Context, lookback time.Duration, patterns []model.PatternType) (*aggregate.Result, error) {
	f.lastDetect = lookback
	f.lastPatterns = patterns
	if f.detectErr != nil {
		return nil, f.detectErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &aggregate.Result{Report: aggregate.CycleReport{CycleID: "c1"}}, nil
}

func (f *fakeScheduler) Status() monitor.Status {
	state := monitor.StateIdle
	if f.running {
		state = monitor.StateRunning
	} else if !f.cfg.Enabled {
		state = monitor.StateDisabled
	}
	return monitor.Status{State: state, Enabled: f.cfg.Enabled, Running: f.running, Config: f.cfg}
}

func (f *fakeScheduler) Config() config.MonitoringConfig { return f.cfg }

func (f *fakeScheduler) UpdateConfig(cfg config.MonitoringConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	f.cfg = cfg
	return nil
}

func (f *fakeScheduler) Lookup(id string) (model.SuspiciousActivity, error) {
	a, ok := f.activities[id]
	if !ok {
		return model.SuspiciousActivity{}, monitor.ErrUnknownActivity
	}
	return a, nil
}

func (f *fakeScheduler) Latest() []model.SuspiciousActivity {
	var out []model.SuspiciousActivity
	for _, a := range f.activities {
		out = append(out, a)
	}
	return out
}

type fakeResolver struct {
	err error
}

func (f *fakeResolver) Activity(_ context.Context, a model.SuspiciousActivity) (resolve.ActivityDetail, error) {
	if f.err != nil {
		return resolve.ActivityDetail{}, f.err
	}
	return resolve.ActivityDetail{
		Activity: a,
		Trader:   &model.Trader{ID: a.TraderID, Name: "Test Trader"},
	}, nil
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

func newTestServer(sched *fakeScheduler, resolver *fakeResolver, pinger *fakePinger) *Server {
	if sched.cfg.Interval == 0 {
		sched.cfg = config.MonitoringConfig{
			Enabled:             true,
			Interval:            5 * time.Minute,
			CycleTimeout:        time.Minute,
			Patterns:            []string{"SPOOFING", "LAYERING"},
			ConfidenceThreshold: 0.6,
		}
	}
	return New(config.ServerConfig{Port: 8000}, 24*time.Hour, sched, resolver, pinger, nil)
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeScheduler{}, &fakeResolver{}, &fakePinger{})
	w := doRequest(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestHealthDegraded(t *testing.T) {
	srv := newTestServer(&fakeScheduler{}, &fakeResolver{}, &fakePinger{err: context.DeadlineExceeded})
	w := doRequest(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), `"graph":"down"`)
}

func TestDetect(t *testing.T) {
	sched := &fakeScheduler{result: &aggregate.Result{
		Activities: []model.SuspiciousActivity{{ID: "a1", PatternType: model.PatternSpoofing}},
		Report:     aggregate.CycleReport{CycleID: "c1"},
	}}
	srv := newTestServer(sched, &fakeResolver{}, &fakePinger{})

	w := doRequest(t, srv, http.MethodGet, "/api/patterns/detect?lookback_hours=6", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 6*time.Hour, sched.lastDetect)

	var res aggregate.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Activities, 1)
}

func TestDetectDefaultsLookback(t *testing.T) {
	sched := &fakeScheduler{}
	srv := newTestServer(sched, &fakeResolver{}, &fakePinger{})

	w := doRequest(t, srv, http.MethodGet, "/api/patterns/detect", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 24*time.Hour, sched.lastDetect)
}

func TestDetectBadLookback(t *testing.T) {
	srv := newTestServer(&fakeScheduler{}, &fakeResolver{}, &fakePinger{})

	for _, q := range []string{"lookback_hours=abc", "lookback_hours=-2", "lookback_hours=0"} {
		w := doRequest(t, srv, http.MethodGet, "/api/patterns/detect?"+q, "")
		require.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestDetectPatternTypesFilter(t *testing.T) {
	sched := &fakeScheduler{}
	srv := newTestServer(sched, &fakeResolver{}, &fakePinger{})

	w := doRequest(t, srv, http.MethodGet, "/api/patterns/detect?pattern_types=spoofing", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []model.PatternType{model.PatternSpoofing}, sched.lastPatterns)

	w = doRequest(t, srv, http.MethodGet, "/api/patterns/detect?pattern_types=SPOOFING,LAYERING", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []model.PatternType{model.PatternSpoofing, model.PatternLayering}, sched.lastPatterns)

	// No filter leaves the pattern set to the scheduler.
	w = doRequest(t, srv, http.MethodGet, "/api/patterns/detect", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, sched.lastPatterns)
}

func TestDetectUnknownPatternType(t *testing.T) {
	sched := &fakeScheduler{}
	srv := newTestServer(sched, &fakeResolver{}, &fakePinger{})

	w := doRequest(t, srv, http.MethodGet, "/api/patterns/detect?pattern_types=WASH_TRADING", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "unknown pattern type")
}

func TestDetectPerPatternRoutes(t *testing.T) {
	sched := &fakeScheduler{}
	srv := newTestServer(sched, &fakeResolver{}, &fakePinger{})

	w := doRequest(t, srv, http.MethodGet, "/api/patterns/spoofing?lookback_hours=6", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 6*time.Hour, sched.lastDetect)
	require.Equal(t, []model.PatternType{model.PatternSpoofing}, sched.lastPatterns)

	w = doRequest(t, srv, http.MethodGet, "/api/patterns/layering", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 24*time.Hour, sched.lastDetect)
	require.Equal(t, []model.PatternType{model.PatternLayering}, sched.lastPatterns)
}

func TestDetectConflictWhileRunning(t *testing.T) {
	sched := &fakeScheduler{detectErr: monitor.ErrAlreadyRunning}
	srv := newTestServer(sched, &fakeResolver{}, &fakePinger{})

	w := doRequest(t, srv, http.MethodGet, "/api/patterns/detect", "")
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestDetectTimeout(t *testing.T) {
	sched := &fakeScheduler{detectErr: monitor.ErrCycleTimeout}
	srv := newTestServer(sched, &fakeResolver{}, &fakePinger{})

	w := doRequest(t, srv, http.MethodGet, "/api/patterns/detect", "")
	require.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestActivityDetails(t *testing.T) {
	sched := &fakeScheduler{activities: map[string]model.SuspiciousActivity{
		"a1": {ID: "a1", TraderID: "TR300", PatternType: model.PatternSpoofing},
	}}
	srv := newTestServer(sched, &fakeResolver{}, &fakePinger{})

	w := doRequest(t, srv, http.MethodGet, "/api/patterns/a1/details", "")
	require.Equal(t, http.StatusOK, w.Code)

	var detail resolve.ActivityDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.Equal(t, "a1", detail.Activity.ID)
	require.NotNil(t, detail.Trader)
	require.Equal(t, "TR300", detail.Trader.ID)
}

func TestActivityDetailsUnknownID(t *testing.T) {
	srv := newTestServer(&fakeScheduler{}, &fakeResolver{}, &fakePinger{})

	w := doRequest(t, srv, http.MethodGet, "/api/patterns/nope/details", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMonitoringStatus(t *testing.T) {
	srv := newTestServer(&fakeScheduler{}, &fakeResolver{}, &fakePinger{})

	w := doRequest(t, srv, http.MethodGet, "/api/monitoring/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var st MonitoringStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.Equal(t, "IDLE", st.State)
	require.Equal(t, 5, st.CheckIntervalMinutes)
	require.ElementsMatch(t, []string{"SPOOFING", "LAYERING"}, st.PatternsToMonitor)
}

func TestMonitoringConfigUpdate(t *testing.T) {
	sched := &fakeScheduler{}
	srv := newTestServer(sched, &fakeResolver{}, &fakePinger{})

	body := `{"enabled":true,"check_interval_minutes":10,"patterns_to_monitor":["SPOOFING"],"confidence_threshold":0.8}`
	w := doRequest(t, srv, http.MethodPost, "/api/monitoring/config", body)
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, 10*time.Minute, sched.cfg.Interval)
	require.Equal(t, []string{"SPOOFING"}, sched.cfg.Patterns)
	require.Equal(t, 0.8, sched.cfg.ConfidenceThreshold)
	// Untouched fields survive the update.
	require.Equal(t, time.Minute, sched.cfg.CycleTimeout)
}

// Optional fields left out of the request keep their current values.
func TestMonitoringConfigPartialUpdate(t *testing.T) {
	sched := &fakeScheduler{}
	srv := newTestServer(sched, &fakeResolver{}, &fakePinger{})

	body := `{"check_interval_minutes":15,"patterns_to_monitor":["LAYERING"]}`
	w := doRequest(t, srv, http.MethodPost, "/api/monitoring/config", body)
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, 15*time.Minute, sched.cfg.Interval)
	require.Equal(t, []string{"LAYERING"}, sched.cfg.Patterns)
	require.True(t, sched.cfg.Enabled)
	require.Equal(t, 0.6, sched.cfg.ConfidenceThreshold)
	require.Equal(t, time.Minute, sched.cfg.CycleTimeout)
}

func TestMonitoringConfigRejected(t *testing.T) {
	srv := newTestServer(&fakeScheduler{}, &fakeResolver{}, &fakePinger{})

	tests := []string{
		`{"enabled":true}`, // missing interval and patterns
		`{"enabled":true,"check_interval_minutes":10,"patterns_to_monitor":["WASH_TRADING"]}`,
		`not json`,
	}
	for _, body := range tests {
		w := doRequest(t, srv, http.MethodPost, "/api/monitoring/config", body)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestMonitoringRun(t *testing.T) {
	sched := &fakeScheduler{}
	srv := newTestServer(sched, &fakeResolver{}, &fakePinger{})

	w := doRequest(t, srv, http.MethodPost, "/api/monitoring/run", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 24*time.Hour, sched.lastDetect)
}

func TestDashboardSummary(t *testing.T) {
	sched := &fakeScheduler{activities: map[string]model.SuspiciousActivity{
		"a1": {ID: "a1", TraderID: "TR300", Instrument: "IBM", PatternType: model.PatternSpoofing, Severity: model.SeverityHigh},
		"a2": {ID: "a2", TraderID: "TR300", Instrument: "MSFT", PatternType: model.PatternLayering, Severity: model.SeverityMedium},
		"a3": {ID: "a3", TraderID: "TR301", Instrument: "IBM", PatternType: model.PatternSpoofing, Severity: model.SeverityHigh},
	}}
	srv := newTestServer(sched, &fakeResolver{}, &fakePinger{})

	w := doRequest(t, srv, http.MethodGet, "/api/dashboard/summary", "")
	require.Equal(t, http.StatusOK, w.Code)

	var summary DashboardSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	require.Equal(t, 3, summary.TotalActivities)
	require.Equal(t, 2, summary.ByPattern[model.PatternSpoofing])
	require.Equal(t, 1, summary.ByPattern[model.PatternLayering])
	require.Equal(t, 2, summary.BySeverity[model.SeverityHigh])
	require.Equal(t, 2, summary.UniqueTraders)
	require.Equal(t, 2, summary.UniqueInstruments)
}
