package detect

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/model"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/score"
)

// Candidate is one raw detection before scoring and deduplication.
type Candidate struct {
	Pattern     model.PatternType
	TraderID    string
	AccountID   string
	Instrument  string
	Timestamp   time.Time // Earliest contributing transaction
	Description string

	// TransactionIDs lists every contributing transaction chronologically.
	// Never empty: an empty set is a detector bug, not a result.
	TransactionIDs []string

	// OrderIDs carries upstream order identifiers where the graph has
	// them; the current schema captures transactions only.
	OrderIDs []string

	Features score.Features
}

// Detector is the detection contract. Implementations fetch their own data
// through the Graph Access Layer and hold no session between queries.
type Detector interface {
	Pattern() model.PatternType
	Detect(ctx context.Context, from, to time.Time) ([]Candidate, error)
}

// groupKey identifies one (trader, account, security) activity group.
type groupKey struct {
	trader  string
	account string
	symbol  string
}

// groupTransactions splits window transactions into activity groups,
// preserving chronological order within each group. Keys come back sorted
// so detector output order is deterministic.
func groupTransactions(txns []model.Transaction) (map[groupKey][]model.Transaction, []groupKey) {
	groups := make(map[groupKey][]model.Transaction)
	for _, txn := range txns {
		key := groupKey{trader: txn.TraderID, account: txn.AccountID, symbol: txn.Symbol}
		groups[key] = append(groups[key], txn)
	}

	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.trader != b.trader {
			return a.trader < b.trader
		}
		if a.account != b.account {
			return a.account < b.account
		}
		return a.symbol < b.symbol
	})

	return groups, keys
}

// trailingMedian returns the median quantity of the priced transactions
// placed strictly before cutoff, and whether any baseline exists.
func trailingMedian(history []model.Transaction, cutoff time.Time) (float64, bool) {
	var sizes []int64
	for _, txn := range history {
		if !txn.HasPrice() {
			continue
		}
		if txn.Timestamp.Before(cutoff) {
			sizes = append(sizes, txn.Quantity)
		}
	}
	if len(sizes) == 0 {
		return 0, false
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	mid := len(sizes) / 2
	if len(sizes)%2 == 1 {
		return float64(sizes[mid]), true
	}
	return float64(sizes[mid-1]+sizes[mid]) / 2, true
}

// sumNotional totals the notional value of the given transactions; entries
// with an unknown price contribute zero.
func sumNotional(txns []model.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, txn := range txns {
		total = total.Add(txn.Notional())
	}
	return total
}

// transactionIDs projects transactions onto their ids, preserving order.
func transactionIDs(txns []model.Transaction) []string {
	ids := make([]string, len(txns))
	for i, txn := range txns {
		ids[i] = txn.ID
	}
	return ids
}
