package auction

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"dutchman/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger() *Ledger {
	l := NewLedger([]domain.Participant{
		{ID: "Alice", Budget: d("15000")},
		{ID: "Bob", Budget: d("10000")},
	})
	n := 0
	l.newID = func() string {
		n++
		return fmt.Sprintf("bid-%d", n)
	}
	return l
}

func TestLedger_SubmitAccepted(t *testing.T) {
	l := newTestLedger()
	at := time.Unix(0, 0)

	bid, err := l.Submit("Alice", 100, d("95"), 1, at)
	require.NoError(t, err)

	assert.Equal(t, "bid-1", bid.ID)
	assert.Equal(t, uint64(1), bid.Seq)
	assert.True(t, bid.Price.Equal(d("95")))
	assert.True(t, l.TotalRaised().Equal(d("9500")))

	alice, _ := l.Participant("Alice")
	assert.True(t, alice.Budget.Equal(d("5500")))
	require.NoError(t, l.VerifyConservation())
}

func TestLedger_RejectsInvalidQuantity(t *testing.T) {
	l := newTestLedger()

	for _, qty := range []int64{0, -5} {
		_, err := l.Submit("Alice", qty, d("100"), 0, time.Time{})
		require.ErrorIs(t, err, domain.ErrInvalidBidQuantity)
	}

	assert.Equal(t, 0, l.Len())
	assert.True(t, l.TotalRaised().IsZero())
	alice, _ := l.Participant("Alice")
	assert.True(t, alice.Budget.Equal(d("15000")))
}

func TestLedger_RejectsInsufficientBudget(t *testing.T) {
	l := newTestLedger()

	_, err := l.Submit("Bob", 101, d("100"), 0, time.Time{})
	require.ErrorIs(t, err, domain.ErrInsufficientBudget)

	var rejection *domain.BidRejection
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, "Bob", rejection.Participant)
	assert.Equal(t, int64(101), rejection.Tokens)

	bob, _ := l.Participant("Bob")
	assert.True(t, bob.Budget.Equal(d("10000")))
	assert.Equal(t, 0, l.Len())

	// Spending the exact remaining budget is allowed.
	_, err = l.Submit("Bob", 100, d("100"), 0, time.Time{})
	require.NoError(t, err)
	bob, _ = l.Participant("Bob")
	assert.True(t, bob.Budget.IsZero())
}

func TestLedger_RejectsUnknownParticipant(t *testing.T) {
	l := newTestLedger()

	_, err := l.Submit("Mallory", 1, d("100"), 0, time.Time{})
	require.ErrorIs(t, err, domain.ErrUnknownParticipant)
	assert.Equal(t, 0, l.Len())
}

func TestLedger_BudgetConservation(t *testing.T) {
	l := newTestLedger()
	prices := []string{"100", "95", "90", "85.50", "80.25"}

	for i, p := range prices {
		_, _ = l.Submit("Alice", int64(10+i), d(p), i, time.Time{})
		_, _ = l.Submit("Bob", int64(30*i), d(p), i, time.Time{})
	}

	require.NoError(t, l.VerifyConservation())

	total := decimal.Zero
	for _, b := range l.Bids() {
		total = total.Add(b.Cost())
	}
	assert.True(t, total.Equal(l.TotalRaised()))

	for _, p := range l.Participants() {
		assert.False(t, p.Budget.IsNegative(), "%s budget negative", p.ID)
	}
}

func TestLedger_BidsReturnsCopy(t *testing.T) {
	l := newTestLedger()
	_, err := l.Submit("Alice", 1, d("100"), 0, time.Time{})
	require.NoError(t, err)

	bids := l.Bids()
	bids[0].Tokens = 999

	assert.Equal(t, int64(1), l.Bids()[0].Tokens)
}
