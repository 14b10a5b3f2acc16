package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/graph"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/model"
)

// fakeReader serves rows per spec; lookup specs key on the bound id.
type fakeReader struct {
	rows map[string]map[any][]graph.Row
	err  error
}

func (f *fakeReader) Run(_ context.Context, spec graph.PatternSpec, params graph.Params) ([]graph.Row, error) {
	if f.err != nil {
		return nil, f.err
	}
	bySpec, ok := f.rows[spec.Name()]
	if !ok {
		return nil, nil
	}
	var key any
	for _, v := range params {
		key = v
	}
	return bySpec[key], nil
}

func testReader() *fakeReader {
	ts := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	return &fakeReader{rows: map[string]map[any][]graph.Row{
		graph.SpecTraderByID.Name(): {
			"TR300": {{"trader_id": "TR300", "name": "J. Doe", "firm": "Acme Capital", "risk_score": 0.7}},
		},
		graph.SpecAccountByID.Name(): {
			"ACC-1": {{"account_id": "ACC-1", "type": "PROPRIETARY", "status": "ACTIVE"}},
		},
		graph.SpecAccountsForTrader.Name(): {
			"TR300": {
				{"account_id": "ACC-1", "type": "PROPRIETARY", "status": "ACTIVE"},
				{"account_id": "ACC-2", "type": "CLIENT", "status": "ACTIVE"},
			},
		},
		graph.SpecSecurityByInstrument.Name(): {
			"IBM": {{"symbol": "IBM", "cusip": "459200101", "instrument_type": "EQUITY"}},
		},
		graph.SpecTransactionByID.Name(): {
			"TX900": {{
				"transaction_id": "TX900", "trader_id": "TR300", "account_id": "ACC-1",
				"symbol": "IBM", "side": "SELL", "price": 260.50, "quantity": int64(500),
				"timestamp": ts, "cancelled_at": nil, "venue": "NYSE",
				"order_type": "LIMIT", "status": "OPEN",
			}},
		},
		graph.SpecTransactionNeighborhood.Name(): {
			"TX900": {{"connected_to": []any{"TX901"}, "connected_from": nil}},
		},
	}}
}

func TestResolverTrader(t *testing.T) {
	r := New(testReader(), nil)

	trader, err := r.Trader(context.Background(), "TR300")
	require.NoError(t, err)
	require.Equal(t, "J. Doe", trader.Name)
	require.Equal(t, 0.7, trader.RiskScore)

	_, err = r.Trader(context.Background(), "TR999")
	require.ErrorIs(t, err, graph.ErrNotFound)
}

func TestResolverTraderWithAccounts(t *testing.T) {
	r := New(testReader(), nil)

	detail, err := r.TraderWithAccounts(context.Background(), "TR300")
	require.NoError(t, err)
	require.Len(t, detail.Accounts, 2)
	require.Equal(t, "ACC-1", detail.Accounts[0].ID)
}

func TestResolverSecurity(t *testing.T) {
	r := New(testReader(), nil)

	sec, err := r.Security(context.Background(), "IBM")
	require.NoError(t, err)
	require.Equal(t, "459200101", sec.CUSIP)

	_, err = r.Security(context.Background(), "UNKNOWN")
	require.ErrorIs(t, err, graph.ErrNotFound)
}

func TestResolverTransaction(t *testing.T) {
	r := New(testReader(), nil)

	detail, err := r.Transaction(context.Background(), "TX900")
	require.NoError(t, err)
	require.Equal(t, "TX900", detail.Transaction.ID)
	require.Equal(t, model.SideSell, detail.Transaction.Side)
	require.Equal(t, []string{"TX901"}, detail.ConnectedTo)
	require.Empty(t, detail.ConnectedFrom)

	_, err = r.Transaction(context.Background(), "TX999")
	require.ErrorIs(t, err, graph.ErrNotFound)
}

func TestResolverActivity(t *testing.T) {
	r := New(testReader(), nil)

	activity := model.SuspiciousActivity{
		ID:                  "act1",
		PatternType:         model.PatternSpoofing,
		TraderID:            "TR300",
		AccountID:           "ACC-1",
		Instrument:          "IBM",
		RelatedTransactions: []string{"TX900", "TX777"},
	}

	detail, err := r.Activity(context.Background(), activity)
	require.NoError(t, err)
	require.NotNil(t, detail.Trader)
	require.NotNil(t, detail.Account)
	require.NotNil(t, detail.Security)
	require.Len(t, detail.Transactions, 1)
	// TX777 left the graph since the activity was emitted.
	require.Equal(t, []string{"TX777"}, detail.Unresolved)
}

func TestResolverActivityMissingEntitiesAreNil(t *testing.T) {
	r := New(testReader(), nil)

	activity := model.SuspiciousActivity{
		TraderID:            "TR999",
		Instrument:          "UNKNOWN",
		RelatedTransactions: []string{"TX900"},
	}

	detail, err := r.Activity(context.Background(), activity)
	require.NoError(t, err)
	require.Nil(t, detail.Trader)
	require.Nil(t, detail.Account)
	require.Nil(t, detail.Security)
	require.Len(t, detail.Transactions, 1)
}

func TestResolverPropagatesReaderError(t *testing.T) {
	r := New(&fakeReader{err: graph.ErrUnavailable}, nil)

	_, err := r.Trader(context.Background(), "TR300")
	require.ErrorIs(t, err, graph.ErrUnavailable)
}
