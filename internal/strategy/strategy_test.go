package strategy_test

import (
	"testing"

	"dutchman/internal/domain"
	"dutchman/internal/infra"
	"dutchman/internal/strategy"

	"github.com/shopspring/decimal"
)

func point(tick int, price int64) domain.PricePoint {
	return domain.PricePoint{Tick: tick, Price: decimal.NewFromInt(price)}
}

func TestThresholdBidder(t *testing.T) {
	b := strategy.NewThresholdBidder("Alice", decimal.NewFromInt(85), 120)

	// 100, 95, 90: above the threshold
	for i, p := range []int64{100, 95, 90} {
		if intents := b.OnPriceUpdate(point(i, p)); len(intents) != 0 {
			t.Errorf("tick %d: expected no intents, got %v", i, intents)
		}
	}

	// 85: at the threshold, fires once
	intents := b.OnPriceUpdate(point(3, 85))
	if len(intents) != 1 {
		t.Fatalf("expected 1 intent, got %d", len(intents))
	}
	if intents[0].Participant != "Alice" || intents[0].Tokens != 120 {
		t.Errorf("unexpected intent %+v", intents[0])
	}

	// 80: already fired
	if intents := b.OnPriceUpdate(point(4, 80)); len(intents) != 0 {
		t.Errorf("expected bidder to fire only once, got %v", intents)
	}
}

func TestScheduledBidder(t *testing.T) {
	b := strategy.NewScheduledBidder("Bob", 2, 60)

	if intents := b.OnPriceUpdate(point(0, 100)); len(intents) != 0 {
		t.Errorf("tick 0: expected no intents, got %v", intents)
	}
	if intents := b.OnPriceUpdate(point(1, 95)); len(intents) != 0 {
		t.Errorf("tick 1: expected no intents, got %v", intents)
	}

	intents := b.OnPriceUpdate(point(2, 90))
	if len(intents) != 1 || intents[0].Tokens != 60 {
		t.Fatalf("tick 2: expected one 60-token intent, got %v", intents)
	}

	if intents := b.OnPriceUpdate(point(3, 85)); len(intents) != 0 {
		t.Errorf("tick 3: expected bidder to fire only once, got %v", intents)
	}
}

func TestScheduledBidder_LateStart(t *testing.T) {
	// A bidder scheduled for a tick that was already committed fires at the next one.
	b := strategy.NewScheduledBidder("Bob", 0, 10)
	if intents := b.OnPriceUpdate(point(4, 80)); len(intents) != 1 {
		t.Errorf("expected late bidder to fire, got %v", intents)
	}
}

func TestFromConfigs(t *testing.T) {
	bidders, err := strategy.FromConfigs([]infra.BidderConfig{
		{Participant: "Alice", Strategy: "threshold", Tokens: 120, MaxPrice: decimal.NewFromInt(85)},
		{Participant: "Bob", Strategy: "scheduled", Tokens: 60, AtTick: 2},
	})
	if err != nil {
		t.Fatalf("FromConfigs failed: %v", err)
	}
	if len(bidders) != 2 {
		t.Fatalf("expected 2 bidders, got %d", len(bidders))
	}
	if _, ok := bidders[0].(*strategy.ThresholdBidder); !ok {
		t.Errorf("expected ThresholdBidder, got %T", bidders[0])
	}
	if bidders[1].Name() != "Bob" {
		t.Errorf("expected Bob, got %s", bidders[1].Name())
	}

	if _, err := strategy.FromConfig(infra.BidderConfig{Participant: "Eve", Strategy: "sniper"}); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
