// Package aggregate orchestrates one full detection cycle.
//
// The aggregator fans the enabled detectors out concurrently, waits for all
// of them (deduplication needs the complete candidate set), scores each
// candidate, merges overlapping candidates, and assigns stable identifiers
// so re-runs over unchanged data reproduce the same records.
//
// Failure isolation: a detector losing the graph store skips its results
// for the cycle and flags the output partial; the other detectors' results
// still come back. Malformed queries and empty related-transaction sets are
// programming errors and fail the cycle outright.
package aggregate
