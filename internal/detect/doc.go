// Package detect implements the pattern detectors.
//
// Each detector loads the lookback window through the Graph Access Layer's
// registered specs, then evaluates its heuristics over an in-memory arena of
// immutable transaction records with CONNECTED_TO edges kept as id adjacency
// (no live references, so merge/dedup stay simple set operations).
//
// Detectors are read-only and independent: a cycle may run them
// concurrently. "No candidates" is a normal outcome, never an error.
package detect
