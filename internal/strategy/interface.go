package strategy

import (
	"fmt"

	"dutchman/internal/domain"
	"dutchman/internal/infra"
)

// Intent is a bid a strategy wants to place at the current price.
type Intent struct {
	Participant string
	Tokens      int64
}

// Bidder is the interface that all simulated bidders must implement.
// It is called synchronously from the auction's notification loop, once per
// committed price point, in tick order.
type Bidder interface {
	// Name identifies the participant the bidder acts for.
	Name() string
	// OnPriceUpdate returns the bids to place at point.Price.
	OnPriceUpdate(point domain.PricePoint) []Intent
}

// FromConfig builds the bidder described by cfg.
func FromConfig(cfg infra.BidderConfig) (Bidder, error) {
	switch cfg.Strategy {
	case "threshold":
		return NewThresholdBidder(cfg.Participant, cfg.MaxPrice, cfg.Tokens), nil
	case "scheduled":
		return NewScheduledBidder(cfg.Participant, cfg.AtTick, cfg.Tokens), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q for %s", cfg.Strategy, cfg.Participant)
	}
}

// FromConfigs builds every bidder in order.
func FromConfigs(cfgs []infra.BidderConfig) ([]Bidder, error) {
	bidders := make([]Bidder, 0, len(cfgs))
	for _, c := range cfgs {
		b, err := FromConfig(c)
		if err != nil {
			return nil, err
		}
		bidders = append(bidders, b)
	}
	return bidders, nil
}
