package config

import "time"

// Config is the root configuration for a surveillance engine instance.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Graph      GraphConfig      `yaml:"graph"`
	Detection  DetectionConfig  `yaml:"detection"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// InstanceConfig identifies this engine instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// GraphConfig holds the Neo4j connection settings for the graph store.
type GraphConfig struct {
	URI          string        `yaml:"uri"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Database     string        `yaml:"database"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// DetectionConfig holds thresholds for the pattern detectors and the
// aggregator. Read at cycle start, never hot-reloaded mid-cycle.
type DetectionConfig struct {
	LookbackHours int            `yaml:"lookback_hours"`
	Spoofing      SpoofingConfig `yaml:"spoofing"`
	Layering      LayeringConfig `yaml:"layering"`
	Scoring       ScoringConfig  `yaml:"scoring"`

	// DedupJaccard is the related-transaction overlap above which two
	// candidates are merged into one record.
	DedupJaccard float64 `yaml:"dedup_jaccard"`
}

// SpoofingConfig holds thresholds for the spoofing detector. All three
// conditions must hold for a group to be flagged.
type SpoofingConfig struct {
	MinGroupSize     int           `yaml:"min_group_size"`     // Skip groups with fewer transactions
	CancelRatio      float64       `yaml:"cancel_ratio"`       // Minimum cancelled/(cancelled+executed)
	MaxTimeToCancel  time.Duration `yaml:"max_time_to_cancel"` // Maximum average placement-to-cancel
	SizeOutlierRatio float64       `yaml:"size_outlier_ratio"` // Minimum size vs trailing median
}

// LayeringConfig holds thresholds for the layering detector.
type LayeringConfig struct {
	MinChainLength   int           `yaml:"min_chain_length"`  // Minimum qualifying chain length
	MaxOrderGap      time.Duration `yaml:"max_order_gap"`     // Maximum gap between chain members
	OppositeWindow   time.Duration `yaml:"opposite_window"`   // Window for the opposite-side trigger
	QuantityMultiple float64       `yaml:"quantity_multiple"` // Trigger size vs largest chain member
}

// ScoringConfig holds feature weights, normalization scales and severity
// cutoffs for the scoring function.
type ScoringConfig struct {
	SpoofingWeights FeatureWeights `yaml:"spoofing_weights"`
	LayeringWeights FeatureWeights `yaml:"layering_weights"`

	// Normalization scales map raw feature values onto [0,1].
	TimeToCancelScale    time.Duration `yaml:"time_to_cancel_scale"`
	ChainLengthScale     int           `yaml:"chain_length_scale"`
	PriceDispersionScale int           `yaml:"price_dispersion_scale"`
	SizeOutlierScale     float64       `yaml:"size_outlier_scale"`

	// Severity cutoffs.
	CriticalConfidence float64 `yaml:"critical_confidence"`
	HighConfidence     float64 `yaml:"high_confidence"`
	MediumConfidence   float64 `yaml:"medium_confidence"`
	HighNotional       float64 `yaml:"high_notional"` // Notional gate for CRITICAL
}

// FeatureWeights weights the normalized features in the confidence sum.
// Weights for features a pattern does not surface should be zero.
type FeatureWeights struct {
	CancellationRatio float64 `yaml:"cancellation_ratio"`
	TimeToCancel      float64 `yaml:"time_to_cancel"`
	ChainLength       float64 `yaml:"chain_length"`
	PriceDispersion   float64 `yaml:"price_dispersion"`
	SizeOutlier       float64 `yaml:"size_outlier"`
}

// MonitoringConfig holds the scheduler cadence and runtime-mutable
// monitoring controls. Changes take effect on the next cycle.
type MonitoringConfig struct {
	Enabled             bool          `yaml:"enabled"`
	Interval            time.Duration `yaml:"interval"`
	CycleTimeout        time.Duration `yaml:"cycle_timeout"`
	Patterns            []string      `yaml:"patterns"` // Enabled pattern types
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port  int  `yaml:"port"`
	Debug bool `yaml:"debug"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
