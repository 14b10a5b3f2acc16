package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSideOpposite(t *testing.T) {
	if got := SideBuy.Opposite(); got != SideSell {
		t.Errorf("SideBuy.Opposite() = %s, want %s", got, SideSell)
	}
	if got := SideSell.Opposite(); got != SideBuy {
		t.Errorf("SideSell.Opposite() = %s, want %s", got, SideBuy)
	}
}

func TestTransactionNotional(t *testing.T) {
	txn := Transaction{Price: decimal.NewFromFloat(470.50), Quantity: 10000}
	if !txn.HasPrice() {
		t.Fatal("expected priced transaction")
	}
	if want := decimal.NewFromInt(4705000); !txn.Notional().Equal(want) {
		t.Errorf("Notional() = %s, want %s", txn.Notional(), want)
	}

	unpriced := Transaction{Quantity: 10000}
	if unpriced.HasPrice() {
		t.Error("expected unpriced transaction")
	}
	if !unpriced.Notional().IsZero() {
		t.Errorf("Notional() = %s, want 0", unpriced.Notional())
	}
}
