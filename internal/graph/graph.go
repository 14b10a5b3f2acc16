package graph

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnavailable means the graph store cannot be reached. Transient;
	// callers skip the affected work for the current cycle.
	ErrUnavailable = errors.New("graph store unavailable")

	// ErrMalformedQuery means a spec was invoked with inconsistent
	// parameters. A programming error, never retried.
	ErrMalformedQuery = errors.New("malformed graph query")

	// ErrNotFound means a detail lookup matched nothing.
	ErrNotFound = errors.New("not found")
)

// IsNotFound reports whether err is a missing-entity lookup failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Params binds values to a PatternSpec's declared parameters.
type Params map[string]any

// Reader executes registered traversal specs against the graph store.
type Reader interface {
	Run(ctx context.Context, spec PatternSpec, params Params) ([]Row, error)
}

// PatternSpec is a named, declarative traversal: node-label and
// relationship-type constraints plus a fixed set of bound variables.
type PatternSpec struct {
	name     string
	cypher   string
	required []string
}

// Name returns the spec's registered name.
func (s PatternSpec) Name() string { return s.name }

// Cypher returns the spec's statement text.
func (s PatternSpec) Cypher() string { return s.cypher }

// ValidateParams checks that exactly the declared parameters are bound.
func (s PatternSpec) ValidateParams(params Params) error {
	for _, name := range s.required {
		if _, ok := params[name]; !ok {
			return fmt.Errorf("%w: spec %q missing parameter %q", ErrMalformedQuery, s.name, name)
		}
	}
	if len(params) != len(s.required) {
		for name := range params {
			if !contains(s.required, name) {
				return fmt.Errorf("%w: spec %q does not declare parameter %q", ErrMalformedQuery, s.name, name)
			}
		}
	}
	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// WindowParams builds the from/to binding for a time-window spec. An
// inverted or empty window is a programming error.
func WindowParams(from, to time.Time) (Params, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: window start %s is not before end %s", ErrMalformedQuery, from, to)
	}
	return Params{"from": from, "to": to}, nil
}

// Registered traversal specs. The property keys and relationship types
// mirror the upstream store schema: Transaction (PLACED_BY -> Trader,
// PLACED <- Account, INVOLVES -> Security, CONNECTED_TO -> Transaction),
// Trader (USES -> Account).
var (
	// SpecTransactionsInWindow returns every transaction in [from, to)
	// with its placing trader, account and security, oldest first.
	SpecTransactionsInWindow = PatternSpec{
		name:     "transactions_in_window",
		required: []string{"from", "to"},
		cypher: `MATCH (t:Transaction)-[:PLACED_BY]->(tr:Trader)
MATCH (a:Account)-[:PLACED]->(t)
MATCH (t)-[:INVOLVES]->(s:Security)
WHERE t.timestamp >= $from AND t.timestamp < $to
RETURN t.transaction_id AS transaction_id,
       tr.trader_id AS trader_id,
       a.account_id AS account_id,
       s.symbol AS symbol,
       t.side AS side,
       t.price AS price,
       t.quantity AS quantity,
       t.timestamp AS timestamp,
       t.cancelled_at AS cancelled_at,
       t.venue AS venue,
       t.order_type AS order_type,
       t.status AS status
ORDER BY t.timestamp`,
	}

	// SpecConnectedLinks returns explicit CONNECTED_TO edges whose source
	// transaction falls inside [from, to).
	SpecConnectedLinks = PatternSpec{
		name:     "connected_links_in_window",
		required: []string{"from", "to"},
		cypher: `MATCH (a:Transaction)-[c:CONNECTED_TO]->(b:Transaction)
WHERE a.timestamp >= $from AND a.timestamp < $to
RETURN a.transaction_id AS from_id,
       b.transaction_id AS to_id,
       c.reason AS reason`,
	}

	// SpecTransactionByID resolves one transaction with its relationships.
	SpecTransactionByID = PatternSpec{
		name:     "transaction_by_id",
		required: []string{"transaction_id"},
		cypher: `MATCH (t:Transaction {transaction_id: $transaction_id})-[:PLACED_BY]->(tr:Trader)
MATCH (a:Account)-[:PLACED]->(t)
MATCH (t)-[:INVOLVES]->(s:Security)
RETURN t.transaction_id AS transaction_id,
       tr.trader_id AS trader_id,
       a.account_id AS account_id,
       s.symbol AS symbol,
       t.side AS side,
       t.price AS price,
       t.quantity AS quantity,
       t.timestamp AS timestamp,
       t.cancelled_at AS cancelled_at,
       t.venue AS venue,
       t.order_type AS order_type,
       t.status AS status`,
	}

	// SpecTransactionNeighborhood returns the immediate CONNECTED_TO
	// neighborhood of one transaction.
	SpecTransactionNeighborhood = PatternSpec{
		name:     "transaction_neighborhood",
		required: []string{"transaction_id"},
		cypher: `MATCH (t:Transaction {transaction_id: $transaction_id})
OPTIONAL MATCH (t)-[:CONNECTED_TO]->(out:Transaction)
OPTIONAL MATCH (in:Transaction)-[:CONNECTED_TO]->(t)
RETURN [x IN collect(DISTINCT out.transaction_id) WHERE x IS NOT NULL] AS connected_to,
       [x IN collect(DISTINCT in.transaction_id) WHERE x IS NOT NULL] AS connected_from`,
	}

	// SpecTraderByID resolves one trader's property set.
	SpecTraderByID = PatternSpec{
		name:     "trader_by_id",
		required: []string{"trader_id"},
		cypher: `MATCH (tr:Trader {trader_id: $trader_id})
RETURN tr.trader_id AS trader_id,
       tr.name AS name,
       tr.firm AS firm,
       tr.risk_score AS risk_score`,
	}

	// SpecAccountByID resolves one account's property set.
	SpecAccountByID = PatternSpec{
		name:     "account_by_id",
		required: []string{"account_id"},
		cypher: `MATCH (a:Account {account_id: $account_id})
RETURN a.account_id AS account_id,
       a.type AS type,
       a.status AS status`,
	}

	// SpecAccountsForTrader returns the accounts a trader uses.
	SpecAccountsForTrader = PatternSpec{
		name:     "accounts_for_trader",
		required: []string{"trader_id"},
		cypher: `MATCH (tr:Trader {trader_id: $trader_id})-[:USES]->(a:Account)
RETURN a.account_id AS account_id,
       a.type AS type,
       a.status AS status`,
	}

	// SpecSecurityByInstrument resolves a security by symbol or CUSIP.
	SpecSecurityByInstrument = PatternSpec{
		name:     "security_by_instrument",
		required: []string{"instrument"},
		cypher: `MATCH (s:Security)
WHERE s.symbol = $instrument OR s.cusip = $instrument
RETURN s.symbol AS symbol,
       s.cusip AS cusip,
       s.instrument_type AS instrument_type`,
	}
)
