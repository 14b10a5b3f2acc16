// Package monitor implements the Monitoring Scheduler.
//
// The scheduler is an explicit timer-driven state machine
// (DISABLED / IDLE / RUNNING), not a self-perpetuating loop: ticks are
// injectable, which makes overlap prevention and state transitions directly
// testable. A tick or manual trigger arriving while a cycle is RUNNING is
// dropped; missed ticks are never queued.
//
// The scheduler also retains the latest cycle's activities in memory so
// consumers can resolve previously emitted identifiers; identifiers from
// older cycles or other instances resolve to ErrUnknownActivity.
package monitor
