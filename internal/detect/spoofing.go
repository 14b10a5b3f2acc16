package detect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/config"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/graph"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/model"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/score"
)

// Spoofing finds bait-and-switch placement: orders placed and rapidly
// cancelled at sizes out of line with the trader's normal activity.
type Spoofing struct {
	reader graph.Reader
	cfg    config.SpoofingConfig
	logger *slog.Logger
}

// NewSpoofing creates the spoofing detector.
func NewSpoofing(reader graph.Reader, cfg config.SpoofingConfig, logger *slog.Logger) *Spoofing {
	if logger == nil {
		logger = slog.Default()
	}
	return &Spoofing{reader: reader, cfg: cfg, logger: logger}
}

// Pattern implements Detector.
func (d *Spoofing) Pattern() model.PatternType { return model.PatternSpoofing }

// Detect evaluates every (trader, account, security) group in the window.
// A group is flagged only when all three conditions hold: cancellation
// ratio at or above threshold, average time-to-cancel at or below the
// short-duration threshold, and cancelled order size out of line with the
// trader's trailing median for the security.
func (d *Spoofing) Detect(ctx context.Context, from, to time.Time) ([]Candidate, error) {
	params, err := graph.WindowParams(from, to)
	if err != nil {
		return nil, err
	}
	rows, err := d.reader.Run(ctx, graph.SpecTransactionsInWindow, params)
	if err != nil {
		return nil, fmt.Errorf("spoofing: %w", err)
	}
	txns, err := graph.DecodeTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("spoofing: %w", err)
	}

	// Trailing-median baselines are trader+security scoped, across accounts.
	baselines := make(map[[2]string][]model.Transaction)
	for _, txn := range txns {
		key := [2]string{txn.TraderID, txn.Symbol}
		baselines[key] = append(baselines[key], txn)
	}

	groups, keys := groupTransactions(txns)

	var candidates []Candidate
	for _, key := range keys {
		group := groups[key]
		if len(group) < d.cfg.MinGroupSize {
			continue
		}
		c, ok := d.evaluate(key, group, baselines[[2]string{key.trader, key.symbol}])
		if !ok {
			continue
		}
		candidates = append(candidates, c)
	}

	d.logger.Debug("spoofing detection complete",
		"window_from", from,
		"window_to", to,
		"groups", len(groups),
		"candidates", len(candidates),
	)

	return candidates, nil
}

func (d *Spoofing) evaluate(key groupKey, group, history []model.Transaction) (Candidate, bool) {
	var cancelled, executed []model.Transaction
	for _, txn := range group {
		switch txn.Status {
		case model.StatusCancelled:
			cancelled = append(cancelled, txn)
		case model.StatusExecuted:
			executed = append(executed, txn)
		}
	}
	if len(cancelled) == 0 || len(cancelled)+len(executed) == 0 {
		return Candidate{}, false
	}

	ratio := float64(len(cancelled)) / float64(len(cancelled)+len(executed))
	if ratio < d.cfg.CancelRatio {
		return Candidate{}, false
	}

	avgCancel, ok := averageTimeToCancel(cancelled)
	if !ok || avgCancel > d.cfg.MaxTimeToCancel {
		return Candidate{}, false
	}

	outlier, ok := d.sizeOutlier(cancelled, history)
	if !ok {
		return Candidate{}, false
	}

	features := score.Features{
		Pattern:           model.PatternSpoofing,
		CancellationRatio: ratio,
		AvgTimeToCancel:   avgCancel,
		SizeOutlierRatio:  outlier,
		Notional:          sumNotional(group),
	}

	return Candidate{
		Pattern:    model.PatternSpoofing,
		TraderID:   key.trader,
		AccountID:  key.account,
		Instrument: key.symbol,
		Timestamp:  group[0].Timestamp,
		Description: fmt.Sprintf(
			"Potential spoofing: %d of %d orders cancelled (ratio %.2f), average time-to-cancel %s, size outlier %.1fx trailing median",
			len(cancelled), len(cancelled)+len(executed), ratio, avgCancel.Round(time.Millisecond), outlier,
		),
		TransactionIDs: transactionIDs(group),
		Features:       features,
	}, true
}

// sizeOutlier returns the largest cancelled-order size relative to the
// trader's trailing median for the security, and whether the size condition
// holds. Transactions with a missing price are excluded here (they still
// count toward the cancellation ratio). A cancelled order with no trailing
// baseline passes the condition: with no history, normality cannot be
// established.
func (d *Spoofing) sizeOutlier(cancelled, history []model.Transaction) (float64, bool) {
	maxRatio := 0.0
	noBaseline := false
	for _, txn := range cancelled {
		if !txn.HasPrice() {
			continue
		}
		median, ok := trailingMedian(history, txn.Timestamp)
		if !ok {
			noBaseline = true
			continue
		}
		if ratio := float64(txn.Quantity) / median; ratio > maxRatio {
			maxRatio = ratio
		}
	}
	if noBaseline && maxRatio < 1 {
		maxRatio = 1
	}
	return maxRatio, noBaseline || maxRatio >= d.cfg.SizeOutlierRatio
}

// averageTimeToCancel is the mean placement-to-cancel latency over the
// cancelled transactions that carry a cancellation timestamp. Reports false
// when none do: quick cancellation cannot be established.
func averageTimeToCancel(cancelled []model.Transaction) (time.Duration, bool) {
	var total time.Duration
	count := 0
	for _, txn := range cancelled {
		if txn.CancelledAt.IsZero() || txn.CancelledAt.Before(txn.Timestamp) {
			continue
		}
		total += txn.CancelledAt.Sub(txn.Timestamp)
		count++
	}
	if count == 0 {
		return 0, false
	}
	return total / time.Duration(count), true
}
