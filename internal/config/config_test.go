package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-surveillance
graph:
  uri: bolt://graph.internal:7687
  username: neo4j
  password: testpass
  database: surveillance
detection:
  lookback_hours: 24
server:
  port: 8123
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-surveillance" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-surveillance")
	}
	if cfg.Graph.URI != "bolt://graph.internal:7687" {
		t.Errorf("Graph.URI = %q, want %q", cfg.Graph.URI, "bolt://graph.internal:7687")
	}
	if cfg.Detection.LookbackHours != 24 {
		t.Errorf("Detection.LookbackHours = %d, want 24", cfg.Detection.LookbackHours)
	}
	if cfg.Server.Port != 8123 {
		t.Errorf("Server.Port = %d, want 8123", cfg.Server.Port)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_GRAPH_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-surveillance
graph:
  uri: bolt://localhost:7687
  username: neo4j
  password: ${TEST_GRAPH_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Graph.Password != "secret123" {
		t.Errorf("Graph.Password = %q, want %q", cfg.Graph.Password, "secret123")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load on a missing file succeeded, want error")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Graph.QueryTimeout != DefaultQueryTimeout {
		t.Errorf("Graph.QueryTimeout = %v, want %v", cfg.Graph.QueryTimeout, DefaultQueryTimeout)
	}
	if cfg.Detection.Spoofing.MinGroupSize != DefaultMinGroupSize {
		t.Errorf("Spoofing.MinGroupSize = %d, want %d", cfg.Detection.Spoofing.MinGroupSize, DefaultMinGroupSize)
	}
	if cfg.Detection.Layering.MinChainLength != DefaultMinChainLength {
		t.Errorf("Layering.MinChainLength = %d, want %d", cfg.Detection.Layering.MinChainLength, DefaultMinChainLength)
	}
	if cfg.Detection.Scoring.SpoofingWeights != DefaultSpoofingWeights() {
		t.Errorf("Scoring.SpoofingWeights = %+v, want defaults", cfg.Detection.Scoring.SpoofingWeights)
	}
	if cfg.Monitoring.Interval != DefaultMonitorInterval {
		t.Errorf("Monitoring.Interval = %v, want %v", cfg.Monitoring.Interval, DefaultMonitorInterval)
	}
	if len(cfg.Monitoring.Patterns) != 2 {
		t.Errorf("Monitoring.Patterns = %v, want both patterns", cfg.Monitoring.Patterns)
	}
	if cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, DefaultMetricsPath)
	}
}

func TestDefaultsDoNotOverrideExplicit(t *testing.T) {
	cfg := &Config{}
	cfg.Detection.Spoofing.CancelRatio = 0.75
	cfg.Monitoring.Interval = 10 * time.Minute
	cfg.applyDefaults()

	if cfg.Detection.Spoofing.CancelRatio != 0.75 {
		t.Errorf("Spoofing.CancelRatio = %g, want 0.75", cfg.Detection.Spoofing.CancelRatio)
	}
	if cfg.Monitoring.Interval != 10*time.Minute {
		t.Errorf("Monitoring.Interval = %v, want 10m", cfg.Monitoring.Interval)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Instance.ID = "test"
		cfg.Graph.Username = "neo4j"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing instance id", func(c *Config) { c.Instance.ID = "" }, true},
		{"missing graph username", func(c *Config) { c.Graph.Username = "" }, true},
		{"zero lookback", func(c *Config) { c.Detection.LookbackHours = -1 }, true},
		{"group size below two", func(c *Config) { c.Detection.Spoofing.MinGroupSize = 1 }, true},
		{"cancel ratio above one", func(c *Config) { c.Detection.Spoofing.CancelRatio = 1.5 }, true},
		{"size outlier below one", func(c *Config) { c.Detection.Spoofing.SizeOutlierRatio = 0.5 }, true},
		{"chain length below two", func(c *Config) { c.Detection.Layering.MinChainLength = 1 }, true},
		{"quantity multiple at one", func(c *Config) { c.Detection.Layering.QuantityMultiple = 1 }, true},
		{"jaccard above one", func(c *Config) { c.Detection.DedupJaccard = 1.2 }, true},
		{"cutoffs not increasing", func(c *Config) { c.Detection.Scoring.MediumConfidence = 0.95 }, true},
		{"negative weight", func(c *Config) { c.Detection.Scoring.SpoofingWeights.SizeOutlier = -0.1 }, true},
		{"unknown monitored pattern", func(c *Config) { c.Monitoring.Patterns = []string{"WASH_TRADING"} }, true},
		{"threshold above one", func(c *Config) { c.Monitoring.ConfidenceThreshold = 1.5 }, true},
		{"server port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAndValidate(t *testing.T) {
	yaml := `
instance:
  id: test-surveillance
graph:
  uri: bolt://localhost:7687
  username: neo4j
  password: pass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if cfg.Detection.Spoofing.CancelRatio != DefaultCancelRatio {
		t.Errorf("CancelRatio = %g, want default %g", cfg.Detection.Spoofing.CancelRatio, DefaultCancelRatio)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
