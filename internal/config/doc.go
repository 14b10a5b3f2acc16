// Package config loads and validates the surveillance engine configuration.
//
// Configuration is YAML with ${ENV} expansion. Detection thresholds are
// deliberately configuration, not constants: the shipped defaults are a
// starting point to be tuned against labeled historical data.
package config
