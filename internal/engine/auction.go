package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"dutchman/internal/auction"
	"dutchman/internal/clock"
	"dutchman/internal/domain"
	"dutchman/internal/event"

	"github.com/shopspring/decimal"
)

// Auction is the Dutch auction state machine: Waiting -> Running -> Completed.
// All state lives behind one mutex; ticks and bid submissions are each a single
// critical section. A single loop goroutine, started by Start, consumes ticks
// and delivers notifications in commit order outside the lock.
type Auction struct {
	cfg   domain.AuctionConfig
	clock clock.Clock

	mu           sync.RWMutex
	status       domain.Status
	currentPrice decimal.Decimal
	history      []domain.PricePoint
	ledger       *auction.Ledger
	ticker       clock.Ticker
	reason       domain.CompletionReason
	settlement   *domain.Settlement
	nextSeq      uint64
	outbox       []event.Event

	wake chan struct{}
	done chan struct{}

	// Boundary: used to notify presentation and other collaborators
	listenersMu sync.RWMutex
	onPrice     []func(domain.PricePoint)
	onBid       []func(domain.Bid)
	onCompleted []func(domain.Settlement)
	onEvent     []func(event.Event)
}

// Option customizes an Auction.
type Option func(*Auction)

// WithClock replaces the wall clock, typically with a clock.Fake in tests.
func WithClock(c clock.Clock) Option {
	return func(a *Auction) { a.clock = c }
}

// New validates cfg and creates an auction in the Waiting state. The price
// history starts with {tick 0, startPrice}.
func New(cfg domain.AuctionConfig, opts ...Option) (*Auction, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Auction{
		cfg:          cfg,
		clock:        clock.Real(),
		status:       domain.StatusWaiting,
		currentPrice: cfg.StartPrice,
		history:      []domain.PricePoint{{Tick: 0, Price: cfg.StartPrice}},
		ledger:       auction.NewLedger(cfg.Participants),
		nextSeq:      1,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns the immutable configuration of this auction.
func (a *Auction) Config() domain.AuctionConfig {
	return a.cfg
}

// OnPriceUpdate registers a callback for every committed price point.
func (a *Auction) OnPriceUpdate(fn func(domain.PricePoint)) {
	a.listenersMu.Lock()
	defer a.listenersMu.Unlock()
	a.onPrice = append(a.onPrice, fn)
}

// OnBidAccepted registers a callback for every accepted bid.
func (a *Auction) OnBidAccepted(fn func(domain.Bid)) {
	a.listenersMu.Lock()
	defer a.listenersMu.Unlock()
	a.onBid = append(a.onBid, fn)
}

// OnCompleted registers a callback for the final settlement.
func (a *Auction) OnCompleted(fn func(domain.Settlement)) {
	a.listenersMu.Lock()
	defer a.listenersMu.Unlock()
	a.onCompleted = append(a.onCompleted, fn)
}

// OnEvent registers a callback receiving every event in sequence order.
func (a *Auction) OnEvent(fn func(event.Event)) {
	a.listenersMu.Lock()
	defer a.listenersMu.Unlock()
	a.onEvent = append(a.onEvent, fn)
}

// Done is closed once the auction has completed and the completion
// notification has been delivered. It never closes for an auction that was
// not started.
func (a *Auction) Done() <-chan struct{} {
	return a.done
}

// Start moves the auction from Waiting to Running and starts the ticker.
// Cancelling ctx ends the auction at the last committed price.
func (a *Auction) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.status != domain.StatusWaiting {
		status := a.status
		a.mu.Unlock()
		slog.Warn("Auction start rejected", slog.String("status", status.String()))
		return fmt.Errorf("start while %s: %w", status, domain.ErrInvalidTransition)
	}
	a.status = domain.StatusRunning
	a.ticker = a.clock.NewTicker(a.cfg.TickInterval)
	ticker := a.ticker
	a.mu.Unlock()

	slog.Info("Auction started",
		slog.String("start_price", a.cfg.StartPrice.String()),
		slog.String("min_price", a.cfg.MinPrice.String()),
		slog.Duration("tick_interval", a.cfg.TickInterval))

	go a.run(ctx, ticker)
	return nil
}

// Stop ends a running auction at the last committed price. The ticker is
// stopped and the settlement computed before Stop returns; the completion
// notification is delivered asynchronously.
func (a *Auction) Stop() (domain.Settlement, error) {
	a.mu.Lock()
	if a.status != domain.StatusRunning {
		status := a.status
		a.mu.Unlock()
		return domain.Settlement{}, fmt.Errorf("stop while %s: %w", status, domain.ErrInvalidTransition)
	}
	a.finalizeLocked(domain.ReasonCancelled)
	settlement := *a.settlement
	a.mu.Unlock()

	a.signal()
	return settlement, nil
}

// SubmitBid records a bid for tokens at the current committed price.
// Rejections are returned as *domain.BidRejection and leave all state untouched.
func (a *Auction) SubmitBid(participantID string, tokens int64) (domain.Bid, error) {
	a.mu.Lock()
	if a.status != domain.StatusRunning {
		status := a.status
		a.mu.Unlock()
		return domain.Bid{}, domain.NewBidRejection(domain.ReasonAuctionInactive, participantID, tokens,
			"auction is "+status.String())
	}

	now := a.clock.Now()
	bid, err := a.ledger.Submit(participantID, tokens, a.currentPrice, a.lastTickLocked(), now)
	if err != nil {
		a.mu.Unlock()
		slog.Debug("Bid rejected", slog.String("participant", participantID), slog.Any("error", err))
		return domain.Bid{}, err
	}

	raised := a.ledger.TotalRaised()
	a.enqueueLocked(&event.BidAcceptedEvent{
		BaseEvent:   event.BaseEvent{Seq: a.nextSeq, Ts: now},
		Bid:         bid,
		TotalRaised: raised,
	})
	a.mu.Unlock()

	slog.Info("Bid accepted",
		slog.String("participant", participantID),
		slog.Int64("tokens", tokens),
		slog.String("price", bid.Price.String()),
		slog.String("total_raised", raised.String()))

	a.signal()
	return bid, nil
}

// Status returns the current lifecycle state.
func (a *Auction) Status() domain.Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// State returns a consistent snapshot of the auction (external read).
func (a *Auction) State() domain.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	history := make([]domain.PricePoint, len(a.history))
	copy(history, a.history)

	snap := domain.Snapshot{
		Status:       a.status,
		CurrentPrice: a.currentPrice,
		TotalRaised:  a.ledger.TotalRaised(),
		PriceHistory: history,
		Bids:         a.ledger.Bids(),
		Participants: a.ledger.Participants(),
		Reason:       a.reason,
	}
	if a.settlement != nil {
		s := *a.settlement
		snap.Settlement = &s
	}
	return snap
}

// VerifyLedger checks budget conservation across the ledger.
func (a *Auction) VerifyLedger() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ledger.VerifyConservation()
}

// DumpState writes the current snapshot as indented JSON.
func (a *Auction) DumpState(w io.Writer) error {
	b, err := json.MarshalIndent(a.State(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// run is the auction loop. It MUST be the only goroutine consuming ticks.
func (a *Auction) run(ctx context.Context, ticker clock.Ticker) {
	defer close(a.done)

	for {
		select {
		case <-ticker.C():
			a.tick()
		case <-ctx.Done():
			a.cancel()
		case <-a.wake:
		}

		if a.drain() {
			return
		}
	}
}

// tick applies one step of the price curve, or finalizes when the
// termination predicate holds.
func (a *Auction) tick() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != domain.StatusRunning {
		return
	}

	raised := a.ledger.TotalRaised()
	if auction.ShouldFinalize(a.currentPrice, a.cfg.MinPrice, raised, a.cfg.FundingGoal) {
		a.finalizeLocked(auction.TerminationReason(a.currentPrice, a.cfg.MinPrice, raised, a.cfg.FundingGoal))
		return
	}

	a.currentPrice = auction.NextPrice(a.currentPrice, a.cfg.PriceDecrement, a.cfg.MinPrice)
	point := domain.PricePoint{Tick: len(a.history), Price: a.currentPrice}
	a.history = append(a.history, point)

	a.enqueueLocked(&event.PriceUpdateEvent{
		BaseEvent: event.BaseEvent{Seq: a.nextSeq, Ts: a.clock.Now()},
		Point:     point,
	})
	slog.Debug("Price committed", slog.Int("tick", point.Tick), slog.String("price", point.Price.String()))
}

func (a *Auction) cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == domain.StatusRunning {
		a.finalizeLocked(domain.ReasonCancelled)
	}
}

// finalizeLocked stops the ticker, freezes the price and settles the ledger.
// Must be called with mu held while Running.
func (a *Auction) finalizeLocked(reason domain.CompletionReason) {
	a.ticker.Stop()
	a.status = domain.StatusCompleted
	a.reason = reason

	settlement := auction.Finalize(a.ledger.Bids(), a.currentPrice, a.cfg.TotalTokenSupply)
	a.settlement = &settlement

	a.enqueueLocked(&event.CompletedEvent{
		BaseEvent:   event.BaseEvent{Seq: a.nextSeq, Ts: a.clock.Now()},
		Reason:      reason,
		TotalRaised: a.ledger.TotalRaised(),
		Settlement:  settlement,
	})

	slog.Info("Auction completed",
		slog.String("reason", string(reason)),
		slog.String("final_price", a.currentPrice.String()),
		slog.String("total_raised", a.ledger.TotalRaised().String()),
		slog.Int("allocations", len(settlement.Allocations)))
}

func (a *Auction) lastTickLocked() int {
	return a.history[len(a.history)-1].Tick
}

func (a *Auction) enqueueLocked(ev event.Event) {
	a.outbox = append(a.outbox, ev)
	a.nextSeq++
}

func (a *Auction) signal() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// drain delivers pending events in sequence order. Callbacks run without the
// state lock held, so they may read state or submit bids. It reports whether
// the completion event has been delivered.
func (a *Auction) drain() bool {
	for {
		a.mu.Lock()
		pending := a.outbox
		a.outbox = nil
		a.mu.Unlock()

		if len(pending) == 0 {
			return false
		}

		completed := false
		for _, ev := range pending {
			a.dispatch(ev)
			if ev.GetType() == event.TypeCompleted {
				completed = true
			}
		}
		if completed {
			return true
		}
	}
}

func (a *Auction) dispatch(ev event.Event) {
	a.listenersMu.RLock()
	onEvent := a.onEvent
	onPrice := a.onPrice
	onBid := a.onBid
	onCompleted := a.onCompleted
	a.listenersMu.RUnlock()

	for _, fn := range onEvent {
		fn(ev)
	}

	switch e := ev.(type) {
	case *event.PriceUpdateEvent:
		for _, fn := range onPrice {
			fn(e.Point)
		}
	case *event.BidAcceptedEvent:
		for _, fn := range onBid {
			fn(e.Bid)
		}
	case *event.CompletedEvent:
		for _, fn := range onCompleted {
			fn(e.Settlement)
		}
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}
}
