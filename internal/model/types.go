package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Graph Entities
// -----------------------------------------------------------------------------

// Side is the direction of a transaction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// TxnStatus is the lifecycle status of a transaction. Transitions are
// OPEN -> EXECUTED or OPEN -> CANCELLED; both are terminal.
type TxnStatus string

const (
	StatusOpen      TxnStatus = "OPEN"
	StatusExecuted  TxnStatus = "EXECUTED"
	StatusCancelled TxnStatus = "CANCELLED"
)

// Trader is an immutable reference entity created by upstream systems.
type Trader struct {
	ID        string  // Primary key (trader_id)
	Name      string  // Display name
	Firm      string  // Optional firm
	RiskScore float64 // Optional upstream risk attribute
}

// Account is a trading account; related to its traders via USES.
type Account struct {
	ID     string // Primary key (account_id)
	Type   string // e.g. "PROPRIETARY", "CLIENT"
	Status string // e.g. "ACTIVE"
}

// Security is an immutable instrument reference entity.
type Security struct {
	Symbol string // Primary key (symbol)
	CUSIP  string // Reference code
	Type   string // Instrument type (e.g. "EQUITY")
}

// Transaction is a single order placement captured in the graph.
// Relationships: PLACED_BY -> Trader, PLACED <- Account, INVOLVES -> Security.
type Transaction struct {
	ID          string          // Primary key (transaction_id)
	TraderID    string          // Placing trader
	AccountID   string          // Placing account
	Symbol      string          // Traded security
	Side        Side            // BUY or SELL
	Price       decimal.Decimal // Zero when the price is unknown
	Quantity    int64           // Positive order size
	Timestamp   time.Time       // Placement time (timezone-aware)
	CancelledAt time.Time       // Zero unless status is CANCELLED
	Venue       string
	OrderType   string
	Status      TxnStatus
}

// HasPrice reports whether the transaction carries a usable price.
func (t Transaction) HasPrice() bool {
	return t.Price.IsPositive()
}

// Notional is price * quantity, zero when the price is unknown.
func (t Transaction) Notional() decimal.Decimal {
	if !t.HasPrice() {
		return decimal.Zero
	}
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// TxnLink is a directed CONNECTED_TO relationship between two transactions,
// asserted by an analyst or an upstream system with a reason tag. Detectors
// must also infer relatedness structurally when this edge is absent.
type TxnLink struct {
	FromID string
	ToID   string
	Reason string // e.g. "layering", "spoofing"
}

// -----------------------------------------------------------------------------
// Engine Output
// -----------------------------------------------------------------------------

// PatternType identifies a manipulation pattern.
type PatternType string

const (
	PatternSpoofing PatternType = "SPOOFING"
	PatternLayering PatternType = "LAYERING"
)

// Severity is the coarse triage tier derived from confidence and notional.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// SuspiciousActivity is one detected candidate pattern. Records are immutable
// once emitted; a re-run over unchanged data reproduces the same ID.
type SuspiciousActivity struct {
	ID                  string      `json:"activity_id"`
	PatternType         PatternType `json:"pattern_type"`
	TraderID            string      `json:"trader_id"`
	AccountID           string      `json:"account_id,omitempty"`
	Instrument          string      `json:"instrument"`
	ConfidenceScore     float64     `json:"confidence_score"`
	Severity            Severity    `json:"severity"`
	Timestamp           time.Time   `json:"timestamp"` // Earliest related transaction
	Description         string      `json:"description"`
	RelatedTransactions []string    `json:"related_transactions"`
	RelatedOrders       []string    `json:"related_orders"`
}
