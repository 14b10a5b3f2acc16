package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Graph.URI == "" {
		return errors.New("graph.uri is required")
	}
	if c.Graph.Username == "" {
		return errors.New("graph.username is required")
	}
	if c.Graph.QueryTimeout <= 0 {
		return errors.New("graph.query_timeout must be positive")
	}

	if err := c.Detection.validate(); err != nil {
		return err
	}

	if err := c.Monitoring.Validate(); err != nil {
		return err
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (d *DetectionConfig) validate() error {
	if d.LookbackHours < 1 {
		return errors.New("detection.lookback_hours must be >= 1")
	}
	if d.Spoofing.MinGroupSize < 2 {
		return errors.New("detection.spoofing.min_group_size must be >= 2")
	}
	if d.Spoofing.CancelRatio <= 0 || d.Spoofing.CancelRatio > 1 {
		return fmt.Errorf("detection.spoofing.cancel_ratio must be in (0,1], got %g", d.Spoofing.CancelRatio)
	}
	if d.Spoofing.MaxTimeToCancel <= 0 {
		return errors.New("detection.spoofing.max_time_to_cancel must be positive")
	}
	if d.Spoofing.SizeOutlierRatio < 1 {
		return errors.New("detection.spoofing.size_outlier_ratio must be >= 1")
	}
	if d.Layering.MinChainLength < 2 {
		return errors.New("detection.layering.min_chain_length must be >= 2")
	}
	if d.Layering.MaxOrderGap <= 0 {
		return errors.New("detection.layering.max_order_gap must be positive")
	}
	if d.Layering.OppositeWindow <= 0 {
		return errors.New("detection.layering.opposite_window must be positive")
	}
	if d.Layering.QuantityMultiple <= 1 {
		return errors.New("detection.layering.quantity_multiple must be > 1")
	}
	if d.DedupJaccard <= 0 || d.DedupJaccard > 1 {
		return fmt.Errorf("detection.dedup_jaccard must be in (0,1], got %g", d.DedupJaccard)
	}
	return d.Scoring.validate()
}

func (s *ScoringConfig) validate() error {
	for _, w := range []struct {
		name    string
		weights FeatureWeights
	}{
		{"spoofing_weights", s.SpoofingWeights},
		{"layering_weights", s.LayeringWeights},
	} {
		if w.weights.CancellationRatio < 0 || w.weights.TimeToCancel < 0 ||
			w.weights.ChainLength < 0 || w.weights.PriceDispersion < 0 ||
			w.weights.SizeOutlier < 0 {
			return fmt.Errorf("detection.scoring.%s must be non-negative", w.name)
		}
	}
	if s.TimeToCancelScale <= 0 || s.ChainLengthScale <= 0 ||
		s.PriceDispersionScale <= 0 || s.SizeOutlierScale <= 0 {
		return errors.New("detection.scoring normalization scales must be positive")
	}
	if !(s.MediumConfidence < s.HighConfidence && s.HighConfidence < s.CriticalConfidence) {
		return errors.New("detection.scoring severity cutoffs must be strictly increasing")
	}
	if s.CriticalConfidence > 1 {
		return errors.New("detection.scoring.critical_confidence must be <= 1")
	}
	if s.HighNotional <= 0 {
		return errors.New("detection.scoring.high_notional must be positive")
	}
	return nil
}

// Validate checks the runtime-mutable monitoring fields. It is exported
// because the scheduler re-validates updates received at runtime.
func (m *MonitoringConfig) Validate() error {
	if m.Interval <= 0 {
		return errors.New("monitoring.interval must be positive")
	}
	if m.CycleTimeout <= 0 {
		return errors.New("monitoring.cycle_timeout must be positive")
	}
	if len(m.Patterns) == 0 {
		return errors.New("monitoring.patterns must name at least one pattern")
	}
	for _, p := range m.Patterns {
		if p != "SPOOFING" && p != "LAYERING" {
			return fmt.Errorf("monitoring.patterns: unknown pattern %q", p)
		}
	}
	if m.ConfidenceThreshold < 0 || m.ConfidenceThreshold > 1 {
		return fmt.Errorf("monitoring.confidence_threshold must be in [0,1], got %g", m.ConfidenceThreshold)
	}
	return nil
}
