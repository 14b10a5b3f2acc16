// Package score computes confidence scores and severity tiers from detector
// feature vectors.
//
// Scoring is a deterministic, side-effect-free weighted sum so that the
// detection decision stays auditable and reproducible: identical features
// always yield identical (confidence, severity). Any generated explanation
// text lives elsewhere and never feeds back into the numbers.
package score
