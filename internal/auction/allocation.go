package auction

import (
	"math/big"

	"dutchman/internal/domain"

	"github.com/shopspring/decimal"
)

const ratioPrecision int32 = 6

// Finalize computes the settlement of an auction from its ledger snapshot.
// It is pure: identical bids, price and supply always produce identical output.
//
// Processing flow:
//  1. Group bids by participant in order of first bid
//  2. Sum requested tokens; no bids means an empty allocation set
//  3. ratio = min(1, supply / requested)
//  4. allocated = floor(requested[p] * ratio), computed exactly as requested[p]*supply/total
//  5. Drop participants with a zero allocation
func Finalize(bids []domain.Bid, finalPrice decimal.Decimal, totalTokenSupply int64) domain.Settlement {
	requested := make(map[string]int64)
	paid := make(map[string]decimal.Decimal)
	bidderOrder := make([]string, 0)

	var totalRequested int64
	for _, bid := range bids {
		if _, seen := requested[bid.Participant]; !seen {
			bidderOrder = append(bidderOrder, bid.Participant)
		}
		requested[bid.Participant] += bid.Tokens
		paid[bid.Participant] = paid[bid.Participant].Add(bid.Cost())
		totalRequested += bid.Tokens
	}

	settlement := domain.Settlement{
		FinalPrice:        finalPrice,
		Ratio:             decimal.NewFromInt(1),
		TokensRequested:   totalRequested,
		UnallocatedTokens: totalTokenSupply,
		Allocations:       make([]domain.Allocation, 0, len(bidderOrder)),
		Refunds:           make([]domain.Refund, 0, len(bidderOrder)),
	}

	if totalRequested == 0 {
		return settlement
	}

	oversubscribed := totalRequested > totalTokenSupply
	if oversubscribed {
		settlement.Ratio = decimal.NewFromInt(totalTokenSupply).
			DivRound(decimal.NewFromInt(totalRequested), ratioPrecision)
	}

	var allocatedSum int64
	for _, participant := range bidderOrder {
		tokens := requested[participant]
		if oversubscribed {
			tokens = rationedShare(tokens, totalTokenSupply, totalRequested)
		}

		cost := domain.Cost(tokens, finalPrice)
		settlement.Refunds = append(settlement.Refunds, domain.Refund{
			Participant: participant,
			Paid:        paid[participant],
			Amount:      paid[participant].Sub(cost),
		})

		if tokens == 0 {
			continue
		}

		allocatedSum += tokens
		settlement.Allocations = append(settlement.Allocations, domain.Allocation{
			Participant:     participant,
			TokensAllocated: tokens,
			PricePaid:       finalPrice,
			TotalCost:       cost,
		})
	}

	settlement.TokensAllocated = allocatedSum
	settlement.UnallocatedTokens = totalTokenSupply - allocatedSum
	return settlement
}

// rationedShare returns floor(requested * supply / total) without overflow.
func rationedShare(requested, supply, total int64) int64 {
	n := new(big.Int).Mul(big.NewInt(requested), big.NewInt(supply))
	return n.Quo(n, big.NewInt(total)).Int64()
}
