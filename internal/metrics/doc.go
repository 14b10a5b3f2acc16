// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Detection cycle counts, outcomes and latencies
//   - Per-detector candidate counts
//   - Graph query counts and latencies per pattern spec
//   - Suspicious activities emitted per pattern type
package metrics
