package domain

import "github.com/shopspring/decimal"

// Allocation is one row of the final allocation table.
type Allocation struct {
	Participant     string          `json:"participant"`
	TokensAllocated int64           `json:"tokens_allocated"`
	PricePaid       decimal.Decimal `json:"price_paid"`
	TotalCost       decimal.Decimal `json:"total_cost"`
}

// Refund is the difference between what a bidder paid while bidding and
// what their allocation costs at the clearing price.
type Refund struct {
	Participant string          `json:"participant"`
	Paid        decimal.Decimal `json:"paid"`
	Amount      decimal.Decimal `json:"amount"`
}

// Settlement is the immutable outcome of a finalized auction.
type Settlement struct {
	FinalPrice        decimal.Decimal `json:"final_price"`
	Ratio             decimal.Decimal `json:"ratio"`
	TokensRequested   int64           `json:"tokens_requested"`
	TokensAllocated   int64           `json:"tokens_allocated"`
	UnallocatedTokens int64           `json:"unallocated_tokens"`
	Allocations       []Allocation    `json:"allocations"`
	Refunds           []Refund        `json:"refunds"`
}

// Oversubscribed reports whether demand exceeded the token supply.
func (s Settlement) Oversubscribed() bool {
	return s.TokensRequested > s.TokensAllocated+s.UnallocatedTokens
}

// AllocationFor returns the allocation of participant, if any.
func (s Settlement) AllocationFor(participant string) (Allocation, bool) {
	for _, a := range s.Allocations {
		if a.Participant == participant {
			return a, true
		}
	}
	return Allocation{}, false
}
