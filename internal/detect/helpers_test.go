package detect

import (
	"context"
	"time"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/config"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/graph"
)

// fakeReader serves canned rows per spec, standing in for the graph store.
type fakeReader struct {
	txns  []graph.Row
	links []graph.Row
	err   error
}

func (f *fakeReader) Run(_ context.Context, spec graph.PatternSpec, _ graph.Params) ([]graph.Row, error) {
	if f.err != nil {
		return nil, f.err
	}
	switch spec.Name() {
	case graph.SpecTransactionsInWindow.Name():
		return f.txns, nil
	case graph.SpecConnectedLinks.Name():
		return f.links, nil
	}
	return nil, nil
}

type txnOpt func(graph.Row)

func cancelledAfter(d time.Duration) txnOpt {
	return func(r graph.Row) {
		r["status"] = "CANCELLED"
		r["cancelled_at"] = r["timestamp"].(time.Time).Add(d)
	}
}

func executed() txnOpt {
	return func(r graph.Row) { r["status"] = "EXECUTED" }
}

func noPrice() txnOpt {
	return func(r graph.Row) { r["price"] = nil }
}

func inAccount(account string) txnOpt {
	return func(r graph.Row) { r["account_id"] = account }
}

// txnRow builds one transaction row for trader TR300 on IBM in ACC-1,
// OPEN unless an option overrides it.
func txnRow(id string, side string, price float64, qty int64, ts time.Time, opts ...txnOpt) graph.Row {
	row := graph.Row{
		"transaction_id": id,
		"trader_id":      "TR300",
		"account_id":     "ACC-1",
		"symbol":         "IBM",
		"side":           side,
		"price":          price,
		"quantity":       qty,
		"timestamp":      ts,
		"cancelled_at":   nil,
		"venue":          "NYSE",
		"order_type":     "LIMIT",
		"status":         "OPEN",
	}
	for _, opt := range opts {
		opt(row)
	}
	return row
}

func linkRow(from, to string) graph.Row {
	return graph.Row{"from_id": from, "to_id": to, "reason": "layering"}
}

func spoofingConfig() config.SpoofingConfig {
	return config.Default().Detection.Spoofing
}

func layeringConfig() config.LayeringConfig {
	return config.Default().Detection.Layering
}

var baseTime = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
