// Package model defines shared data types used across the surveillance engine.
//
// Graph entities (Trader, Account, Security, Transaction, TxnLink) mirror the
// node labels and relationship types of the upstream Neo4j store. The engine
// never writes them; they are populated by trade-capture systems.
//
// Conventions:
//   - Prices: decimal.Decimal; a zero price means the price is unknown
//   - Timestamps: time.Time, always timezone-aware
//   - IDs: opaque strings assigned upstream; SuspiciousActivity IDs are
//     deterministic digests assigned by the Detection Aggregator
package model
