package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunRecord is the journal row describing one auction run.
type RunRecord struct {
	ID               string          `gorm:"primaryKey" json:"id"`
	StartPrice       decimal.Decimal `gorm:"type:text" json:"start_price"`
	MinPrice         decimal.Decimal `gorm:"type:text" json:"min_price"`
	PriceDecrement   decimal.Decimal `gorm:"type:text" json:"price_decrement"`
	FundingGoal      decimal.Decimal `gorm:"type:text" json:"funding_goal"`
	TotalTokenSupply int64           `json:"total_token_supply"`
	TickIntervalMS   int64           `json:"tick_interval_ms"`
	Status           string          `gorm:"index" json:"status"`
	Reason           string          `json:"reason"`
	FinalPrice       decimal.Decimal `gorm:"type:text" json:"final_price"`
	TotalRaised      decimal.Decimal `gorm:"type:text" json:"total_raised"`
	StartedAt        time.Time       `json:"started_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

// PricePointRecord is one journaled price point.
type PricePointRecord struct {
	RunID string          `gorm:"primaryKey" json:"run_id"`
	Tick  int             `gorm:"primaryKey;autoIncrement:false" json:"tick"`
	Price decimal.Decimal `gorm:"type:text" json:"price"`
}

// BidRecord is one journaled accepted bid.
type BidRecord struct {
	ID          string          `gorm:"primaryKey" json:"id"`
	RunID       string          `gorm:"index" json:"run_id"`
	Seq         uint64          `json:"seq"`
	Participant string          `gorm:"index" json:"participant"`
	Tokens      int64           `json:"tokens"`
	Price       decimal.Decimal `gorm:"type:text" json:"price"`
	Tick        int             `json:"tick"`
	PlacedAt    time.Time       `json:"placed_at"`
}

// AllocationRecord is one journaled row of the final allocation table.
type AllocationRecord struct {
	RunID           string          `gorm:"primaryKey" json:"run_id"`
	Participant     string          `gorm:"primaryKey" json:"participant"`
	TokensAllocated int64           `json:"tokens_allocated"`
	PricePaid       decimal.Decimal `gorm:"type:text" json:"price_paid"`
	TotalCost       decimal.Decimal `gorm:"type:text" json:"total_cost"`
	Refund          decimal.Decimal `gorm:"type:text" json:"refund"`
}
