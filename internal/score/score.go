package score

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/config"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/model"
)

// Features is the structural/temporal evidence a detector surfaces for one
// candidate. Fields a pattern does not produce stay zero and contribute
// nothing under that pattern's weights.
type Features struct {
	Pattern model.PatternType

	CancellationRatio float64       // cancelled / (cancelled + executed), [0,1]
	AvgTimeToCancel   time.Duration // mean placement-to-cancel latency
	ChainLength       int           // members in the qualifying chain
	PriceDispersion   int           // distinct price levels touched
	SizeOutlierRatio  float64       // order size vs trailing median

	// Explicit vs inferred CONNECTED_TO counts are carried separately for
	// future calibration; both link kinds qualify a chain equally today.
	ExplicitLinks int
	InferredLinks int

	// Notional is the total value of the related transactions; it feeds
	// the severity tier, not the confidence score.
	Notional decimal.Decimal
}

// Score returns the confidence and severity for one feature vector.
func Score(f Features, cfg config.ScoringConfig) (float64, model.Severity) {
	confidence := Confidence(f, cfg)
	return confidence, Classify(confidence, f.Notional, cfg)
}

// Confidence is the weighted sum of the normalized features, clipped to [0,1].
func Confidence(f Features, cfg config.ScoringConfig) float64 {
	w := cfg.SpoofingWeights
	if f.Pattern == model.PatternLayering {
		w = cfg.LayeringWeights
	}

	sum := w.CancellationRatio*clip01(f.CancellationRatio) +
		w.TimeToCancel*cancelLatencyScore(f.AvgTimeToCancel, cfg.TimeToCancelScale) +
		w.ChainLength*clip01(float64(f.ChainLength)/float64(cfg.ChainLengthScale)) +
		w.PriceDispersion*clip01(float64(f.PriceDispersion)/float64(cfg.PriceDispersionScale)) +
		w.SizeOutlier*clip01(f.SizeOutlierRatio/cfg.SizeOutlierScale)

	return clip01(sum)
}

// Classify maps confidence and raw notional impact onto a severity tier.
func Classify(confidence float64, notional decimal.Decimal, cfg config.ScoringConfig) model.Severity {
	highNotional := notional.GreaterThanOrEqual(decimal.NewFromFloat(cfg.HighNotional))
	switch {
	case confidence >= cfg.CriticalConfidence && highNotional:
		return model.SeverityCritical
	case confidence >= cfg.HighConfidence:
		return model.SeverityHigh
	case confidence >= cfg.MediumConfidence:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// cancelLatencyScore rewards short placement-to-cancel latencies: zero
// latency scores 1, latencies at or past the scale score 0.
func cancelLatencyScore(avg, scale time.Duration) float64 {
	if avg <= 0 {
		return 1
	}
	return clip01(1 - float64(avg)/float64(scale))
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
