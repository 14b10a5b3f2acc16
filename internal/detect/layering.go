package detect

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/config"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/graph"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/model"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/score"
)

// Layering finds chains of same-side orders stacked at successive price
// levels that precede a materially larger opposite-side execution.
type Layering struct {
	reader graph.Reader
	cfg    config.LayeringConfig
	logger *slog.Logger
}

// NewLayering creates the layering detector.
func NewLayering(reader graph.Reader, cfg config.LayeringConfig, logger *slog.Logger) *Layering {
	if logger == nil {
		logger = slog.Default()
	}
	return &Layering{reader: reader, cfg: cfg, logger: logger}
}

// Pattern implements Detector.
func (d *Layering) Pattern() model.PatternType { return model.PatternLayering }

// chain is one candidate sequence of linked same-side orders.
type chain struct {
	members  []model.Transaction
	explicit int // pairs linked by a CONNECTED_TO edge
	inferred int // pairs linked structurally
	trigger  model.Transaction
}

// Detect builds per-group order chains and keeps the ones followed by a
// qualifying opposite-side execution.
func (d *Layering) Detect(ctx context.Context, from, to time.Time) ([]Candidate, error) {
	params, err := graph.WindowParams(from, to)
	if err != nil {
		return nil, err
	}
	rows, err := d.reader.Run(ctx, graph.SpecTransactionsInWindow, params)
	if err != nil {
		return nil, fmt.Errorf("layering: %w", err)
	}
	txns, err := graph.DecodeTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("layering: %w", err)
	}

	linkRows, err := d.reader.Run(ctx, graph.SpecConnectedLinks, params)
	if err != nil {
		return nil, fmt.Errorf("layering: %w", err)
	}
	links, err := graph.DecodeLinks(linkRows)
	if err != nil {
		return nil, fmt.Errorf("layering: %w", err)
	}
	linked := make(map[[2]string]bool, len(links))
	for _, l := range links {
		linked[[2]string{l.FromID, l.ToID}] = true
	}

	// Last executed price per security, for the moving-away constraint.
	executions := make(map[string][]model.Transaction)
	for _, txn := range txns {
		if txn.Status == model.StatusExecuted && txn.HasPrice() {
			executions[txn.Symbol] = append(executions[txn.Symbol], txn)
		}
	}

	groups, keys := groupTransactions(txns)

	var candidates []Candidate
	for _, key := range keys {
		chains := d.qualifyingChains(groups[key], executions[key.symbol], linked)
		for _, ch := range chains {
			candidates = append(candidates, d.toCandidate(key, ch))
		}
	}

	d.logger.Debug("layering detection complete",
		"window_from", from,
		"window_to", to,
		"groups", len(groups),
		"candidates", len(candidates),
	)

	return candidates, nil
}

// qualifyingChains builds maximal same-side chains in one group, qualifies
// them against the trigger rule, and resolves overlaps (longest chain wins;
// equal length, higher price dispersion wins).
func (d *Layering) qualifyingChains(group, executions []model.Transaction, linked map[[2]string]bool) []chain {
	var qualified []chain
	for _, side := range []model.Side{model.SideBuy, model.SideSell} {
		var sameSide []model.Transaction
		for _, txn := range group {
			if txn.Side == side && txn.HasPrice() {
				sameSide = append(sameSide, txn)
			}
		}
		for _, ch := range d.buildChains(sameSide, executions, linked) {
			if len(ch.members) < d.cfg.MinChainLength {
				continue
			}
			trigger, ok := d.findTrigger(ch, group)
			if !ok {
				continue
			}
			ch.trigger = trigger
			qualified = append(qualified, ch)
		}
	}
	return resolveOverlaps(qualified)
}

// buildChains scans the side's transactions chronologically, extending the
// current chain while prices stay strictly monotonic away from the last
// known trade price and each member follows within the configured gap. An
// explicit CONNECTED_TO edge substitutes for the gap constraint; the price
// criterion always holds.
func (d *Layering) buildChains(sameSide, executions []model.Transaction, linked map[[2]string]bool) []chain {
	var chains []chain
	var current chain

	flush := func() {
		if len(current.members) > 0 {
			chains = append(chains, current)
		}
		current = chain{}
	}

	for _, txn := range sameSide {
		if len(current.members) == 0 {
			if d.awayFromLastTrade(txn, executions) {
				current.members = []model.Transaction{txn}
			}
			continue
		}

		prev := current.members[len(current.members)-1]
		explicit := linked[[2]string{prev.ID, txn.ID}] || linked[[2]string{txn.ID, prev.ID}]
		withinGap := txn.Timestamp.Sub(prev.Timestamp) <= d.cfg.MaxOrderGap

		if monotonic(prev, txn) && (explicit || withinGap) {
			current.members = append(current.members, txn)
			if explicit {
				current.explicit++
			} else {
				current.inferred++
			}
			continue
		}

		flush()
		if d.awayFromLastTrade(txn, executions) {
			current.members = []model.Transaction{txn}
		}
	}
	flush()

	return chains
}

// awayFromLastTrade checks a chain opener against the most recent executed
// price for the security. With no prior execution the opener is
// unconstrained.
func (d *Layering) awayFromLastTrade(txn model.Transaction, executions []model.Transaction) bool {
	var last model.Transaction
	found := false
	for _, exec := range executions {
		if exec.ID == txn.ID || !exec.Timestamp.Before(txn.Timestamp) {
			continue
		}
		if !found || exec.Timestamp.After(last.Timestamp) {
			last = exec
			found = true
		}
	}
	if !found {
		return true
	}
	if txn.Side == model.SideSell {
		return txn.Price.LessThan(last.Price)
	}
	return txn.Price.GreaterThan(last.Price)
}

// monotonic enforces the side's price direction: SELL chains strictly
// decreasing, BUY chains strictly increasing.
func monotonic(prev, next model.Transaction) bool {
	if next.Side == model.SideSell {
		return next.Price.LessThan(prev.Price)
	}
	return next.Price.GreaterThan(prev.Price)
}

// findTrigger looks for the opposite-side execution that benefits from the
// fabricated depth: placed after the chain's last member, inside the
// opposite window, with quantity at least the configured multiple of every
// chain member.
func (d *Layering) findTrigger(ch chain, group []model.Transaction) (model.Transaction, bool) {
	last := ch.members[len(ch.members)-1]
	maxQty := int64(0)
	for _, m := range ch.members {
		if m.Quantity > maxQty {
			maxQty = m.Quantity
		}
	}
	need := decimal.NewFromFloat(d.cfg.QuantityMultiple).Mul(decimal.NewFromInt(maxQty))

	want := ch.members[0].Side.Opposite()
	for _, txn := range group {
		if txn.Side != want || txn.Status != model.StatusExecuted {
			continue
		}
		if !txn.Timestamp.After(last.Timestamp) {
			continue
		}
		if txn.Timestamp.Sub(last.Timestamp) > d.cfg.OppositeWindow {
			continue
		}
		if decimal.NewFromInt(txn.Quantity).GreaterThanOrEqual(need) {
			return txn, true
		}
	}
	return model.Transaction{}, false
}

// resolveOverlaps keeps the longer of any two chains sharing a transaction;
// at equal length the one touching more price levels wins.
func resolveOverlaps(chains []chain) []chain {
	sort.SliceStable(chains, func(i, j int) bool {
		if len(chains[i].members) != len(chains[j].members) {
			return len(chains[i].members) > len(chains[j].members)
		}
		return priceDispersion(chains[i]) > priceDispersion(chains[j])
	})

	used := make(map[string]bool)
	var kept []chain
	for _, ch := range chains {
		overlap := false
		for _, m := range ch.members {
			if used[m.ID] {
				overlap = true
				break
			}
		}
		if overlap {
			continue
		}
		for _, m := range ch.members {
			used[m.ID] = true
		}
		kept = append(kept, ch)
	}

	// Chronological output regardless of selection order.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].members[0].Timestamp.Before(kept[j].members[0].Timestamp)
	})
	return kept
}

// priceDispersion counts distinct price levels touched by the chain.
func priceDispersion(ch chain) int {
	levels := make(map[string]bool, len(ch.members))
	for _, m := range ch.members {
		levels[m.Price.String()] = true
	}
	return len(levels)
}

func (d *Layering) toCandidate(key groupKey, ch chain) Candidate {
	related := append(append([]model.Transaction{}, ch.members...), ch.trigger)

	features := score.Features{
		Pattern:          model.PatternLayering,
		ChainLength:      len(ch.members),
		PriceDispersion:  priceDispersion(ch),
		SizeOutlierRatio: triggerRatio(ch),
		ExplicitLinks:    ch.explicit,
		InferredLinks:    ch.inferred,
		Notional:         sumNotional(related),
	}

	return Candidate{
		Pattern:    model.PatternLayering,
		TraderID:   key.trader,
		AccountID:  key.account,
		Instrument: key.symbol,
		Timestamp:  ch.members[0].Timestamp,
		Description: fmt.Sprintf(
			"Potential layering: %d %s orders across %d price levels followed by a %s execution of %d (%.1fx the largest layer)",
			len(ch.members), ch.members[0].Side, priceDispersion(ch),
			ch.trigger.Side, ch.trigger.Quantity, triggerRatio(ch),
		),
		TransactionIDs: transactionIDs(related),
		Features:       features,
	}
}

// triggerRatio is the trigger quantity relative to the largest chain member.
func triggerRatio(ch chain) float64 {
	maxQty := int64(0)
	for _, m := range ch.members {
		if m.Quantity > maxQty {
			maxQty = m.Quantity
		}
	}
	if maxQty == 0 {
		return 0
	}
	return float64(ch.trigger.Quantity) / float64(maxQty)
}
