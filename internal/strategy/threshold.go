package strategy

import (
	"dutchman/internal/domain"

	"github.com/shopspring/decimal"
)

// ThresholdBidder places a single bid the first time the price falls to or
// below its maximum acceptable price.
type ThresholdBidder struct {
	participant string
	maxPrice    decimal.Decimal
	tokens      int64
	fired       bool
}

// NewThresholdBidder creates a bidder for participant.
func NewThresholdBidder(participant string, maxPrice decimal.Decimal, tokens int64) *ThresholdBidder {
	return &ThresholdBidder{participant: participant, maxPrice: maxPrice, tokens: tokens}
}

func (b *ThresholdBidder) Name() string { return b.participant }

func (b *ThresholdBidder) OnPriceUpdate(point domain.PricePoint) []Intent {
	if b.fired || point.Price.GreaterThan(b.maxPrice) {
		return nil
	}
	b.fired = true
	return []Intent{{Participant: b.participant, Tokens: b.tokens}}
}
