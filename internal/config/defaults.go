package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultGraphURI             = "bolt://localhost:7687"
	DefaultGraphDatabase        = "neo4j"
	DefaultQueryTimeout         = 15 * time.Second
	DefaultLookbackHours        = 168
	DefaultMinGroupSize         = 2
	DefaultCancelRatio          = 0.5
	DefaultMaxTimeToCancel      = 30 * time.Second
	DefaultSizeOutlierRatio     = 3.0
	DefaultMinChainLength       = 3
	DefaultMaxOrderGap          = 30 * time.Second
	DefaultOppositeWindow       = 60 * time.Second
	DefaultQuantityMultiple     = 2.0
	DefaultDedupJaccard         = 0.5
	DefaultTimeToCancelScale    = 30 * time.Second
	DefaultChainLengthScale     = 10
	DefaultPriceDispersionScale = 10
	DefaultSizeOutlierScale     = 10.0
	DefaultCriticalConfidence   = 0.9
	DefaultHighConfidence       = 0.8
	DefaultMediumConfidence     = 0.6
	DefaultHighNotional         = 1_000_000.0
	DefaultMonitorInterval      = 5 * time.Minute
	DefaultCycleTimeout         = 2 * time.Minute
	DefaultConfidenceThreshold  = 0.7
	DefaultServerPort           = 8000
	DefaultMetricsPort          = 9090
	DefaultMetricsPath          = "/metrics"
)

// DefaultSpoofingWeights weight the spoofing feature vector.
func DefaultSpoofingWeights() FeatureWeights {
	return FeatureWeights{
		CancellationRatio: 0.40,
		TimeToCancel:      0.35,
		SizeOutlier:       0.25,
	}
}

// DefaultLayeringWeights weight the layering feature vector.
func DefaultLayeringWeights() FeatureWeights {
	return FeatureWeights{
		ChainLength:     0.45,
		PriceDispersion: 0.30,
		SizeOutlier:     0.25,
	}
}

func (c *Config) applyDefaults() {
	// Graph defaults
	if c.Graph.URI == "" {
		c.Graph.URI = DefaultGraphURI
	}
	if c.Graph.Database == "" {
		c.Graph.Database = DefaultGraphDatabase
	}
	if c.Graph.QueryTimeout == 0 {
		c.Graph.QueryTimeout = DefaultQueryTimeout
	}

	// Detection defaults
	d := &c.Detection
	if d.LookbackHours == 0 {
		d.LookbackHours = DefaultLookbackHours
	}
	if d.Spoofing.MinGroupSize == 0 {
		d.Spoofing.MinGroupSize = DefaultMinGroupSize
	}
	if d.Spoofing.CancelRatio == 0 {
		d.Spoofing.CancelRatio = DefaultCancelRatio
	}
	if d.Spoofing.MaxTimeToCancel == 0 {
		d.Spoofing.MaxTimeToCancel = DefaultMaxTimeToCancel
	}
	if d.Spoofing.SizeOutlierRatio == 0 {
		d.Spoofing.SizeOutlierRatio = DefaultSizeOutlierRatio
	}
	if d.Layering.MinChainLength == 0 {
		d.Layering.MinChainLength = DefaultMinChainLength
	}
	if d.Layering.MaxOrderGap == 0 {
		d.Layering.MaxOrderGap = DefaultMaxOrderGap
	}
	if d.Layering.OppositeWindow == 0 {
		d.Layering.OppositeWindow = DefaultOppositeWindow
	}
	if d.Layering.QuantityMultiple == 0 {
		d.Layering.QuantityMultiple = DefaultQuantityMultiple
	}
	if d.DedupJaccard == 0 {
		d.DedupJaccard = DefaultDedupJaccard
	}

	// Scoring defaults
	s := &d.Scoring
	if s.SpoofingWeights == (FeatureWeights{}) {
		s.SpoofingWeights = DefaultSpoofingWeights()
	}
	if s.LayeringWeights == (FeatureWeights{}) {
		s.LayeringWeights = DefaultLayeringWeights()
	}
	if s.TimeToCancelScale == 0 {
		s.TimeToCancelScale = DefaultTimeToCancelScale
	}
	if s.ChainLengthScale == 0 {
		s.ChainLengthScale = DefaultChainLengthScale
	}
	if s.PriceDispersionScale == 0 {
		s.PriceDispersionScale = DefaultPriceDispersionScale
	}
	if s.SizeOutlierScale == 0 {
		s.SizeOutlierScale = DefaultSizeOutlierScale
	}
	if s.CriticalConfidence == 0 {
		s.CriticalConfidence = DefaultCriticalConfidence
	}
	if s.HighConfidence == 0 {
		s.HighConfidence = DefaultHighConfidence
	}
	if s.MediumConfidence == 0 {
		s.MediumConfidence = DefaultMediumConfidence
	}
	if s.HighNotional == 0 {
		s.HighNotional = DefaultHighNotional
	}

	// Monitoring defaults
	m := &c.Monitoring
	if m.Interval == 0 {
		m.Interval = DefaultMonitorInterval
	}
	if m.CycleTimeout == 0 {
		m.CycleTimeout = DefaultCycleTimeout
	}
	if len(m.Patterns) == 0 {
		m.Patterns = []string{"SPOOFING", "LAYERING"}
	}
	if m.ConfidenceThreshold == 0 {
		m.ConfidenceThreshold = DefaultConfidenceThreshold
	}

	// Server and metrics defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
