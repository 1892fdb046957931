package strategy

import "dutchman/internal/domain"

// ScheduledBidder places a single bid at the first price point whose tick is
// at or after atTick, whatever the price.
type ScheduledBidder struct {
	participant string
	atTick      int
	tokens      int64
	fired       bool
}

// NewScheduledBidder creates a bidder for participant.
func NewScheduledBidder(participant string, atTick int, tokens int64) *ScheduledBidder {
	return &ScheduledBidder{participant: participant, atTick: atTick, tokens: tokens}
}

func (b *ScheduledBidder) Name() string { return b.participant }

func (b *ScheduledBidder) OnPriceUpdate(point domain.PricePoint) []Intent {
	if b.fired || point.Tick < b.atTick {
		return nil
	}
	b.fired = true
	return []Intent{{Participant: b.participant, Tokens: b.tokens}}
}
