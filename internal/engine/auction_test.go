package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"dutchman/internal/clock"
	"dutchman/internal/domain"
	"dutchman/internal/event"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const waitTimeout = 2 * time.Second

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func baseConfig(participants ...domain.Participant) domain.AuctionConfig {
	return domain.AuctionConfig{
		StartPrice:       d("100"),
		MinPrice:         d("50"),
		PriceDecrement:   d("5"),
		TickInterval:     5 * time.Second,
		FundingGoal:      d("20000"),
		TotalTokenSupply: 1000,
		Participants:     participants,
	}
}

type harness struct {
	a         *Auction
	clk       *clock.Fake
	prices    chan domain.PricePoint
	bids      chan domain.Bid
	completed chan domain.Settlement
	events    chan event.Event
}

func newHarness(t *testing.T, cfg domain.AuctionConfig) *harness {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	a, err := New(cfg, WithClock(clk))
	require.NoError(t, err)

	h := &harness{
		a:         a,
		clk:       clk,
		prices:    make(chan domain.PricePoint, 256),
		bids:      make(chan domain.Bid, 256),
		completed: make(chan domain.Settlement, 1),
		events:    make(chan event.Event, 512),
	}
	a.OnPriceUpdate(func(p domain.PricePoint) { h.prices <- p })
	a.OnBidAccepted(func(b domain.Bid) { h.bids <- b })
	a.OnCompleted(func(s domain.Settlement) { h.completed <- s })
	a.OnEvent(func(ev event.Event) { h.events <- ev })
	return h
}

func (h *harness) expectPrice(t *testing.T) domain.PricePoint {
	t.Helper()
	require.True(t, h.clk.Tick(), "tick not delivered")
	select {
	case p := <-h.prices:
		return p
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for price update")
	}
	return domain.PricePoint{}
}

func (h *harness) expectCompletion(t *testing.T) domain.Settlement {
	t.Helper()
	select {
	case s := <-h.completed:
		select {
		case <-h.a.Done():
		case <-time.After(waitTimeout):
			t.Fatal("Done not closed after completion")
		}
		return s
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for completion")
	}
	return domain.Settlement{}
}

func TestNew_RejectsMalformedConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.MinPrice = d("150")

	_, err := New(cfg)
	var cfgErr *domain.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "min_price", cfgErr.Field)
}

func TestAuction_InitialState(t *testing.T) {
	a, err := New(baseConfig(domain.Participant{ID: "Alice", Budget: d("15000")}))
	require.NoError(t, err)

	s := a.State()
	assert.Equal(t, domain.StatusWaiting, s.Status)
	assert.True(t, s.CurrentPrice.Equal(d("100")))
	assert.True(t, s.TotalRaised.IsZero())
	require.Len(t, s.PriceHistory, 1)
	assert.Equal(t, 0, s.PriceHistory[0].Tick)
	assert.Nil(t, s.Settlement)
}

func TestAuction_BidBeforeStartIsInactive(t *testing.T) {
	a, err := New(baseConfig(domain.Participant{ID: "Alice", Budget: d("15000")}))
	require.NoError(t, err)

	_, err = a.SubmitBid("Alice", 10)
	require.ErrorIs(t, err, domain.ErrAuctionInactive)
	assert.Empty(t, a.State().Bids)
}

// No bids: the price walks down to the floor and the auction completes empty.
func TestAuction_FloorReachedWithoutBids(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, baseConfig())
	require.NoError(t, h.a.Start(context.Background()))

	want := []string{"95", "90", "85", "80", "75", "70", "65", "60", "55", "50"}
	for i, p := range want {
		point := h.expectPrice(t)
		assert.Equal(t, i+1, point.Tick)
		assert.True(t, point.Price.Equal(d(p)), "tick %d: got %s want %s", i+1, point.Price, p)
	}

	// The tick after reaching the floor finalizes instead of advancing.
	require.True(t, h.clk.Tick())
	settlement := h.expectCompletion(t)

	assert.Empty(t, settlement.Allocations)
	assert.True(t, settlement.FinalPrice.Equal(d("50")))

	s := h.a.State()
	assert.Equal(t, domain.StatusCompleted, s.Status)
	assert.Equal(t, domain.ReasonFloorReached, s.Reason)
	assert.Len(t, s.PriceHistory, 11)
	assert.True(t, h.clk.Stopped())
	assert.False(t, h.clk.Tick(), "ticker fired after completion")
}

// Oversubscription at the starting price triggers the goal on the next tick.
func TestAuction_GoalReachedOversubscribed(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, baseConfig(
		domain.Participant{ID: "A", Budget: d("60000")},
		domain.Participant{ID: "B", Budget: d("60000")},
	))
	require.NoError(t, h.a.Start(context.Background()))

	for _, p := range []string{"A", "B"} {
		bid, err := h.a.SubmitBid(p, 600)
		require.NoError(t, err)
		assert.True(t, bid.Price.Equal(d("100")))
	}

	require.True(t, h.clk.Tick())
	settlement := h.expectCompletion(t)

	require.Len(t, settlement.Allocations, 2)
	for _, alloc := range settlement.Allocations {
		assert.Equal(t, int64(500), alloc.TokensAllocated)
		assert.True(t, alloc.PricePaid.Equal(d("100")))
		assert.True(t, alloc.TotalCost.Equal(d("50000")))
	}
	assert.Equal(t, int64(1000), settlement.TokensAllocated)

	s := h.a.State()
	assert.Equal(t, domain.ReasonGoalReached, s.Reason)
	assert.True(t, s.CurrentPrice.Equal(d("100")), "price must freeze at last committed value")
	assert.True(t, s.TotalRaised.Equal(d("120000")))
	require.NoError(t, h.a.VerifyLedger())
}

// Rejected bids leave every piece of state untouched.
func TestAuction_RejectionPurity(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, baseConfig(domain.Participant{ID: "Alice", Budget: d("15000")}))
	require.NoError(t, h.a.Start(context.Background()))
	defer h.a.Stop()

	_, err := h.a.SubmitBid("Alice", 10)
	require.NoError(t, err)
	before := h.a.State()

	_, err = h.a.SubmitBid("Alice", 0)
	require.ErrorIs(t, err, domain.ErrInvalidBidQuantity)

	_, err = h.a.SubmitBid("Alice", 200) // 200 * 100 > 14000 remaining
	require.ErrorIs(t, err, domain.ErrInsufficientBudget)

	_, err = h.a.SubmitBid("Nobody", 1)
	require.ErrorIs(t, err, domain.ErrUnknownParticipant)

	assert.Equal(t, before, h.a.State())
}

func TestAuction_StartTwiceIsInvalidTransition(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, baseConfig())
	require.NoError(t, h.a.Start(context.Background()))

	err := h.a.Start(context.Background())
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.StatusRunning, h.a.Status())

	_, err = h.a.Stop()
	require.NoError(t, err)
	h.expectCompletion(t)

	err = h.a.Start(context.Background())
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.StatusCompleted, h.a.Status())
}

func TestAuction_StopFinalizesAtCommittedPrice(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, baseConfig(domain.Participant{ID: "Alice", Budget: d("15000")}))
	require.NoError(t, h.a.Start(context.Background()))

	h.expectPrice(t)
	h.expectPrice(t) // 90
	_, err := h.a.SubmitBid("Alice", 100)
	require.NoError(t, err)

	settlement, err := h.a.Stop()
	require.NoError(t, err)
	assert.True(t, h.clk.Stopped(), "ticker must be stopped before Stop returns")
	assert.True(t, settlement.FinalPrice.Equal(d("90")))

	delivered := h.expectCompletion(t)
	assert.Equal(t, settlement, delivered)
	assert.Equal(t, domain.ReasonCancelled, h.a.State().Reason)

	_, err = h.a.SubmitBid("Alice", 1)
	require.ErrorIs(t, err, domain.ErrAuctionInactive)

	_, err = h.a.Stop()
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestAuction_ContextCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, baseConfig())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.a.Start(ctx))

	h.expectPrice(t)
	cancel()

	settlement := h.expectCompletion(t)
	assert.True(t, settlement.FinalPrice.Equal(d("95")))
	assert.Equal(t, domain.ReasonCancelled, h.a.State().Reason)
	assert.True(t, h.clk.Stopped())
}

func TestAuction_EventsAreSequenced(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, baseConfig(domain.Participant{ID: "Alice", Budget: d("15000")}))
	require.NoError(t, h.a.Start(context.Background()))

	h.expectPrice(t)
	_, err := h.a.SubmitBid("Alice", 10)
	require.NoError(t, err)
	h.expectPrice(t)
	_, err = h.a.Stop()
	require.NoError(t, err)
	h.expectCompletion(t)

	close(h.events)
	var types []event.Type
	seq := uint64(1)
	for ev := range h.events {
		assert.Equal(t, seq, ev.GetSeq())
		seq++
		types = append(types, ev.GetType())
	}
	assert.Equal(t, []event.Type{
		event.TypePriceUpdate, event.TypeBidAccepted, event.TypePriceUpdate, event.TypeCompleted,
	}, types)
}

func TestAuction_CallbackMaySubmitBids(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, baseConfig(domain.Participant{ID: "Bot", Budget: d("20000")}))
	h.a.OnPriceUpdate(func(p domain.PricePoint) {
		if p.Price.LessThanOrEqual(d("80")) && len(h.a.State().Bids) == 0 {
			_, _ = h.a.SubmitBid("Bot", 250)
		}
	})
	require.NoError(t, h.a.Start(context.Background()))

	for i := 0; i < 4; i++ {
		h.expectPrice(t)
	}
	bid := <-h.bids
	assert.True(t, bid.Price.Equal(d("80")))
	assert.Equal(t, 4, bid.Tick)

	// 250 * 80 = 20000 meets the goal.
	require.True(t, h.clk.Tick())
	settlement := h.expectCompletion(t)
	assert.Equal(t, domain.ReasonGoalReached, h.a.State().Reason)
	require.Len(t, settlement.Allocations, 1)
	assert.Equal(t, int64(250), settlement.Allocations[0].TokensAllocated)
}

func TestAuction_ConcurrentBidsKeepInvariants(t *testing.T) {
	defer goleak.VerifyNone(t)

	participants := make([]domain.Participant, 0, 8)
	for i := 0; i < 8; i++ {
		participants = append(participants, domain.Participant{ID: fmt.Sprintf("p%d", i), Budget: d("3000")})
	}
	cfg := baseConfig(participants...)
	cfg.FundingGoal = d("1000000")
	h := newHarness(t, cfg)
	require.NoError(t, h.a.Start(context.Background()))

	var wg sync.WaitGroup
	for _, p := range participants {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = h.a.SubmitBid(id, 3)
			}
		}(p.ID)
	}

	for i := 0; i < 10; i++ {
		h.expectPrice(t)
	}
	wg.Wait()

	_, err := h.a.Stop()
	require.NoError(t, err)
	h.expectCompletion(t)

	s := h.a.State()
	require.NoError(t, h.a.VerifyLedger())
	for _, p := range s.Participants {
		assert.False(t, p.Budget.IsNegative(), "%s went negative", p.ID)
	}
	for i := 1; i < len(s.PriceHistory); i++ {
		assert.True(t, s.PriceHistory[i].Price.LessThanOrEqual(s.PriceHistory[i-1].Price))
		assert.True(t, s.PriceHistory[i].Price.GreaterThanOrEqual(cfg.MinPrice))
	}
	for _, b := range s.Bids {
		assert.True(t, b.Price.Equal(s.PriceHistory[b.Tick].Price), "bid %s priced off-curve", b.ID)
	}
}

func TestAuction_DumpState(t *testing.T) {
	a, err := New(baseConfig(domain.Participant{ID: "Alice", Budget: d("15000")}))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, a.DumpState(&buf))
	assert.Contains(t, buf.String(), `"status": "waiting"`)
	assert.Contains(t, buf.String(), `"current_price": "100"`)
}
