package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Participant is a bidder registered at auction setup.
// Budget is mutated only by the bid ledger.
type Participant struct {
	ID     string          `json:"id" yaml:"name"`
	Budget decimal.Decimal `json:"budget" yaml:"budget"`
}

// Debit removes amount from the budget. Panics if the budget would go negative;
// callers are expected to check CanAfford first.
func (p *Participant) Debit(amount decimal.Decimal) {
	if amount.GreaterThan(p.Budget) {
		panic(fmt.Sprintf("BUDGET_INSUFFICIENT: %s need %s, available %s",
			p.ID, amount.String(), p.Budget.String()))
	}
	p.Budget = p.Budget.Sub(amount)
}

// CanAfford reports whether the remaining budget covers amount.
func (p *Participant) CanAfford(amount decimal.Decimal) bool {
	return p.Budget.GreaterThanOrEqual(amount)
}

// VerifyInvariant checks that the budget is non-negative.
func (p *Participant) VerifyInvariant() {
	if p.Budget.IsNegative() {
		panic(fmt.Sprintf("BUDGET_INVARIANT_NEGATIVE: %s = %s", p.ID, p.Budget.String()))
	}
}
