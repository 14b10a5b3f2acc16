package graph

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/model"
)

// Row is one result row keyed by the spec's RETURN aliases. Values are the
// driver's scalar and temporal types; absent graph properties come back nil.
type Row map[string]any

// String returns a required string column.
func (r Row) String(key string) (string, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", fmt.Errorf("row: missing string column %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("row: column %q is %T, want string", key, v)
	}
	return s, nil
}

// StringOr returns a string column, or fallback when absent.
func (r Row) StringOr(key, fallback string) string {
	s, err := r.String(key)
	if err != nil {
		return fallback
	}
	return s
}

// Int64 returns a required integer column.
func (r Row) Int64(key string) (int64, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("row: missing integer column %q", key)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	}
	return 0, fmt.Errorf("row: column %q is %T, want integer", key, r[key])
}

// Float returns a required float column.
func (r Row) Float(key string) (float64, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("row: missing float column %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("row: column %q is %T, want float", key, v)
}

// FloatOr returns a float column, or fallback when absent.
func (r Row) FloatOr(key string, fallback float64) float64 {
	f, err := r.Float(key)
	if err != nil {
		return fallback
	}
	return f
}

// DecimalOrZero returns a decimal column, or zero when the property is
// absent (e.g. a transaction with a missing price).
func (r Row) DecimalOrZero(key string) decimal.Decimal {
	v, ok := r[key]
	if !ok || v == nil {
		return decimal.Zero
	}
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n)
	case int64:
		return decimal.NewFromInt(n)
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero
		}
		return d
	}
	return decimal.Zero
}

// Time returns a required temporal column.
func (r Row) Time(key string) (time.Time, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return time.Time{}, fmt.Errorf("row: missing temporal column %q", key)
	}
	ts, ok := v.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("row: column %q is %T, want time.Time", key, v)
	}
	return ts, nil
}

// TimeOrZero returns a temporal column, or the zero time when absent
// (e.g. cancelled_at on a transaction that was never cancelled).
func (r Row) TimeOrZero(key string) time.Time {
	ts, err := r.Time(key)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// StringSlice returns a list column of strings. Absent lists are empty.
func (r Row) StringSlice(key string) ([]string, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("row: column %q is %T, want list", key, v)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("row: column %q holds %T, want string elements", key, item)
		}
		out = append(out, s)
	}
	return out, nil
}

// DecodeTransaction maps one transaction row onto the domain type.
func DecodeTransaction(r Row) (model.Transaction, error) {
	id, err := r.String("transaction_id")
	if err != nil {
		return model.Transaction{}, err
	}
	traderID, err := r.String("trader_id")
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, err)
	}
	accountID, err := r.String("account_id")
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, err)
	}
	symbol, err := r.String("symbol")
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, err)
	}
	side, err := r.String("side")
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, err)
	}
	quantity, err := r.Int64("quantity")
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, err)
	}
	ts, err := r.Time("timestamp")
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, err)
	}
	status, err := r.String("status")
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, err)
	}

	return model.Transaction{
		ID:          id,
		TraderID:    traderID,
		AccountID:   accountID,
		Symbol:      symbol,
		Side:        model.Side(side),
		Price:       r.DecimalOrZero("price"),
		Quantity:    quantity,
		Timestamp:   ts,
		CancelledAt: r.TimeOrZero("cancelled_at"),
		Venue:       r.StringOr("venue", ""),
		OrderType:   r.StringOr("order_type", ""),
		Status:      model.TxnStatus(status),
	}, nil
}

// DecodeTransactions maps transaction rows onto domain types, preserving
// the spec's timestamp ordering.
func DecodeTransactions(rows []Row) ([]model.Transaction, error) {
	txns := make([]model.Transaction, 0, len(rows))
	for _, r := range rows {
		txn, err := DecodeTransaction(r)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// DecodeLinks maps CONNECTED_TO rows onto domain types.
func DecodeLinks(rows []Row) ([]model.TxnLink, error) {
	links := make([]model.TxnLink, 0, len(rows))
	for _, r := range rows {
		fromID, err := r.String("from_id")
		if err != nil {
			return nil, err
		}
		toID, err := r.String("to_id")
		if err != nil {
			return nil, fmt.Errorf("link from %s: %w", fromID, err)
		}
		links = append(links, model.TxnLink{
			FromID: fromID,
			ToID:   toID,
			Reason: r.StringOr("reason", ""),
		})
	}
	return links, nil
}
