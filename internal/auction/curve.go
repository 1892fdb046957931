package auction

import (
	"dutchman/internal/domain"

	"github.com/shopspring/decimal"
)

// NextPrice returns max(current - decrement, floor).
// It never returns a value below floor.
func NextPrice(current, decrement, floor decimal.Decimal) decimal.Decimal {
	return decimal.Max(current.Sub(decrement), floor)
}

// ShouldFinalize is the termination predicate checked before every price commit:
// the price has reached the floor or the funding goal has been met.
func ShouldFinalize(current, floor, raised, goal decimal.Decimal) bool {
	return current.LessThanOrEqual(floor) || raised.GreaterThanOrEqual(goal)
}

// TerminationReason explains a state in which ShouldFinalize holds.
// A met funding goal takes precedence over the price floor.
func TerminationReason(current, floor, raised, goal decimal.Decimal) domain.CompletionReason {
	switch {
	case raised.GreaterThanOrEqual(goal):
		return domain.ReasonGoalReached
	case current.LessThanOrEqual(floor):
		return domain.ReasonFloorReached
	default:
		return domain.ReasonNone
	}
}
