package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an auction.
type Status int

const (
	StatusWaiting Status = iota
	StatusRunning
	StatusCompleted
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// MarshalText lets Status render as its name in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for _, v := range []Status{StatusWaiting, StatusRunning, StatusCompleted} {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown auction status %q", text)
}

// CompletionReason records why an auction left the Running state.
type CompletionReason string

const (
	ReasonNone         CompletionReason = ""
	ReasonFloorReached CompletionReason = "floor_reached"
	ReasonGoalReached  CompletionReason = "goal_reached"
	ReasonCancelled    CompletionReason = "cancelled"
)

// AuctionConfig is immutable for the lifetime of one auction run.
type AuctionConfig struct {
	StartPrice       decimal.Decimal
	MinPrice         decimal.Decimal
	PriceDecrement   decimal.Decimal
	TickInterval     time.Duration
	FundingGoal      decimal.Decimal
	TotalTokenSupply int64
	Participants     []Participant
}

// Validate fails fast on configuration that would break the auction invariants.
func (c AuctionConfig) Validate() error {
	money := []struct {
		field string
		value decimal.Decimal
	}{
		{"start_price", c.StartPrice},
		{"min_price", c.MinPrice},
		{"price_decrement", c.PriceDecrement},
		{"funding_goal", c.FundingGoal},
	}
	for _, m := range money {
		if !IsCentPrecise(m.value) {
			return configErrorf(m.field, "%s has more than %d decimal places", m.value.String(), MoneyPrecision)
		}
	}

	if c.MinPrice.IsNegative() {
		return configErrorf("min_price", "must be non-negative, got %s", c.MinPrice.String())
	}
	if c.MinPrice.GreaterThan(c.StartPrice) {
		return configErrorf("min_price", "%s exceeds start_price %s", c.MinPrice.String(), c.StartPrice.String())
	}
	if !c.PriceDecrement.IsPositive() {
		return configErrorf("price_decrement", "must be positive, got %s", c.PriceDecrement.String())
	}
	if c.TickInterval <= 0 {
		return configErrorf("tick_interval", "must be positive, got %s", c.TickInterval)
	}
	if !c.FundingGoal.IsPositive() {
		return configErrorf("funding_goal", "must be positive, got %s", c.FundingGoal.String())
	}
	if c.TotalTokenSupply <= 0 {
		return configErrorf("total_token_supply", "must be positive, got %d", c.TotalTokenSupply)
	}

	seen := make(map[string]bool, len(c.Participants))
	for _, p := range c.Participants {
		if p.ID == "" {
			return &ConfigError{Field: "participants", Err: errors.New("participant name is required")}
		}
		if seen[p.ID] {
			return configErrorf("participants", "duplicate participant %q", p.ID)
		}
		seen[p.ID] = true
		if p.Budget.IsNegative() {
			return configErrorf("participants", "participant %q has negative budget %s", p.ID, p.Budget.String())
		}
		if !IsCentPrecise(p.Budget) {
			return configErrorf("participants", "participant %q budget %s has more than %d decimal places",
				p.ID, p.Budget.String(), MoneyPrecision)
		}
	}
	return nil
}

// Snapshot is a consistent copy of the auction state for external readers.
type Snapshot struct {
	Status       Status           `json:"status"`
	CurrentPrice decimal.Decimal  `json:"current_price"`
	TotalRaised  decimal.Decimal  `json:"total_raised"`
	PriceHistory []PricePoint     `json:"price_history"`
	Bids         []Bid            `json:"bids"`
	Participants []Participant    `json:"participants"`
	Reason       CompletionReason `json:"reason,omitempty"`
	Settlement   *Settlement      `json:"settlement,omitempty"`
}
