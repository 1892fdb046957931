package auction

import (
	"testing"

	"dutchman/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNextPrice(t *testing.T) {
	tests := []struct {
		name                      string
		current, decrement, floor string
		want                      string
	}{
		{"regular step", "100", "5", "50", "95"},
		{"lands on floor", "55", "5", "50", "50"},
		{"clamped to floor", "52", "5", "50", "50"},
		{"already at floor", "50", "5", "50", "50"},
		{"cent precision", "0.15", "0.01", "0.10", "0.14"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextPrice(d(tt.current), d(tt.decrement), d(tt.floor))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestNextPrice_MonotonicAndFloored(t *testing.T) {
	floor := d("50")
	price := d("100")
	for i := 0; i < 40; i++ {
		next := NextPrice(price, d("3.33"), floor)
		assert.True(t, next.LessThanOrEqual(price))
		assert.True(t, next.GreaterThanOrEqual(floor))
		price = next
	}
	assert.True(t, price.Equal(floor))
}

func TestShouldFinalize(t *testing.T) {
	floor, goal := d("50"), d("20000")

	assert.False(t, ShouldFinalize(d("55"), floor, d("19999.99"), goal))
	assert.True(t, ShouldFinalize(d("50"), floor, decimal.Zero, goal))
	assert.True(t, ShouldFinalize(d("100"), floor, d("20000"), goal))

	assert.Equal(t, domain.ReasonGoalReached, TerminationReason(d("50"), floor, d("25000"), goal))
	assert.Equal(t, domain.ReasonFloorReached, TerminationReason(d("50"), floor, decimal.Zero, goal))
	assert.Equal(t, domain.ReasonNone, TerminationReason(d("60"), floor, decimal.Zero, goal))
}
