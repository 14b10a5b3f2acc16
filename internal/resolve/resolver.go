package resolve

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/graph"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/model"
)

// TransactionDetail is a transaction together with its immediate
// CONNECTED_TO neighborhood.
type TransactionDetail struct {
	Transaction   model.Transaction `json:"transaction"`
	ConnectedTo   []string          `json:"connected_to"`
	ConnectedFrom []string          `json:"connected_from"`
}

// TraderDetail is a trader together with the accounts it uses.
type TraderDetail struct {
	Trader   model.Trader    `json:"trader"`
	Accounts []model.Account `json:"accounts"`
}

// ActivityDetail is a suspicious activity enriched with its resolved
// entities. Entity lookups are best-effort: a transaction id that no longer
// resolves is reported in Unresolved rather than failing the whole detail.
type ActivityDetail struct {
	Activity     model.SuspiciousActivity `json:"activity"`
	Trader       *model.Trader            `json:"trader,omitempty"`
	Account      *model.Account           `json:"account,omitempty"`
	Security     *model.Security          `json:"security,omitempty"`
	Transactions []TransactionDetail      `json:"transactions"`
	Unresolved   []string                 `json:"unresolved,omitempty"`
}

// Resolver reads entities from the graph store.
type Resolver struct {
	reader graph.Reader
	logger *slog.Logger
}

// New creates a Resolver.
func New(reader graph.Reader, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{reader: reader, logger: logger}
}

// Trader resolves one trader by id.
func (r *Resolver) Trader(ctx context.Context, traderID string) (model.Trader, error) {
	rows, err := r.reader.Run(ctx, graph.SpecTraderByID, graph.Params{"trader_id": traderID})
	if err != nil {
		return model.Trader{}, err
	}
	if len(rows) == 0 {
		return model.Trader{}, fmt.Errorf("%w: trader %s", graph.ErrNotFound, traderID)
	}

	row := rows[0]
	id, err := row.String("trader_id")
	if err != nil {
		return model.Trader{}, err
	}
	return model.Trader{
		ID:        id,
		Name:      row.StringOr("name", ""),
		Firm:      row.StringOr("firm", ""),
		RiskScore: row.FloatOr("risk_score", 0),
	}, nil
}

// TraderWithAccounts resolves one trader and the accounts it uses.
func (r *Resolver) TraderWithAccounts(ctx context.Context, traderID string) (TraderDetail, error) {
	trader, err := r.Trader(ctx, traderID)
	if err != nil {
		return TraderDetail{}, err
	}
	accounts, err := r.AccountsForTrader(ctx, traderID)
	if err != nil {
		return TraderDetail{}, err
	}
	return TraderDetail{Trader: trader, Accounts: accounts}, nil
}

// Account resolves one account by id.
func (r *Resolver) Account(ctx context.Context, accountID string) (model.Account, error) {
	rows, err := r.reader.Run(ctx, graph.SpecAccountByID, graph.Params{"account_id": accountID})
	if err != nil {
		return model.Account{}, err
	}
	if len(rows) == 0 {
		return model.Account{}, fmt.Errorf("%w: account %s", graph.ErrNotFound, accountID)
	}
	return decodeAccount(rows[0])
}

// AccountsForTrader returns every account the trader uses, possibly none.
func (r *Resolver) AccountsForTrader(ctx context.Context, traderID string) ([]model.Account, error) {
	rows, err := r.reader.Run(ctx, graph.SpecAccountsForTrader, graph.Params{"trader_id": traderID})
	if err != nil {
		return nil, err
	}
	accounts := make([]model.Account, 0, len(rows))
	for _, row := range rows {
		a, err := decodeAccount(row)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// Security resolves one security by symbol or CUSIP.
func (r *Resolver) Security(ctx context.Context, instrument string) (model.Security, error) {
	rows, err := r.reader.Run(ctx, graph.SpecSecurityByInstrument, graph.Params{"instrument": instrument})
	if err != nil {
		return model.Security{}, err
	}
	if len(rows) == 0 {
		return model.Security{}, fmt.Errorf("%w: security %s", graph.ErrNotFound, instrument)
	}

	row := rows[0]
	symbol, err := row.String("symbol")
	if err != nil {
		return model.Security{}, err
	}
	return model.Security{
		Symbol: symbol,
		CUSIP:  row.StringOr("cusip", ""),
		Type:   row.StringOr("instrument_type", ""),
	}, nil
}

// Transaction resolves one transaction with its CONNECTED_TO neighborhood.
func (r *Resolver) Transaction(ctx context.Context, transactionID string) (TransactionDetail, error) {
	params := graph.Params{"transaction_id": transactionID}

	rows, err := r.reader.Run(ctx, graph.SpecTransactionByID, params)
	if err != nil {
		return TransactionDetail{}, err
	}
	if len(rows) == 0 {
		return TransactionDetail{}, fmt.Errorf("%w: transaction %s", graph.ErrNotFound, transactionID)
	}
	txn, err := graph.DecodeTransaction(rows[0])
	if err != nil {
		return TransactionDetail{}, err
	}

	nbRows, err := r.reader.Run(ctx, graph.SpecTransactionNeighborhood, params)
	if err != nil {
		return TransactionDetail{}, err
	}
	detail := TransactionDetail{Transaction: txn}
	if len(nbRows) > 0 {
		if detail.ConnectedTo, err = nbRows[0].StringSlice("connected_to"); err != nil {
			return TransactionDetail{}, err
		}
		if detail.ConnectedFrom, err = nbRows[0].StringSlice("connected_from"); err != nil {
			return TransactionDetail{}, err
		}
	}
	return detail, nil
}

// Activity enriches a suspicious activity with its resolved entities.
// Referenced transactions that have since left the graph are listed in
// Unresolved; a missing trader, account or security leaves the field nil.
func (r *Resolver) Activity(ctx context.Context, activity model.SuspiciousActivity) (ActivityDetail, error) {
	detail := ActivityDetail{Activity: activity}

	trader, err := r.Trader(ctx, activity.TraderID)
	switch {
	case err == nil:
		detail.Trader = &trader
	case !graph.IsNotFound(err):
		return ActivityDetail{}, err
	}

	if activity.AccountID != "" {
		account, err := r.Account(ctx, activity.AccountID)
		switch {
		case err == nil:
			detail.Account = &account
		case !graph.IsNotFound(err):
			return ActivityDetail{}, err
		}
	}

	security, err := r.Security(ctx, activity.Instrument)
	switch {
	case err == nil:
		detail.Security = &security
	case !graph.IsNotFound(err):
		return ActivityDetail{}, err
	}

	// Related transactions resolve independently; fan out with a bound so
	// a large activity does not flood the graph store.
	type txnResult struct {
		detail   TransactionDetail
		notFound bool
	}
	results := make([]txnResult, len(activity.RelatedTransactions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range activity.RelatedTransactions {
		g.Go(func() error {
			txn, err := r.Transaction(gctx, id)
			switch {
			case err == nil:
				results[i] = txnResult{detail: txn}
			case graph.IsNotFound(err):
				results[i] = txnResult{notFound: true}
				r.logger.Warn("related transaction no longer resolvable", "transaction_id", id)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ActivityDetail{}, err
	}

	for i, res := range results {
		if res.notFound {
			detail.Unresolved = append(detail.Unresolved, activity.RelatedTransactions[i])
			continue
		}
		detail.Transactions = append(detail.Transactions, res.detail)
	}

	return detail, nil
}

func decodeAccount(row graph.Row) (model.Account, error) {
	id, err := row.String("account_id")
	if err != nil {
		return model.Account{}, err
	}
	return model.Account{
		ID:     id,
		Type:   row.StringOr("type", ""),
		Status: row.StringOr("status", ""),
	}, nil
}
