package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid is an accepted bid. Immutable once appended to the ledger.
type Bid struct {
	ID          string          `json:"id"`
	Seq         uint64          `json:"seq"`
	Participant string          `json:"participant"`
	Tokens      int64           `json:"tokens"`
	Price       decimal.Decimal `json:"price"`
	Tick        int             `json:"tick"`
	PlacedAt    time.Time       `json:"placed_at"`
}

// Cost is the amount debited for this bid.
func (b Bid) Cost() decimal.Decimal {
	return Cost(b.Tokens, b.Price)
}

// PricePoint is one committed entry of the price history.
type PricePoint struct {
	Tick  int             `json:"tick"`
	Price decimal.Decimal `json:"price"`
}
