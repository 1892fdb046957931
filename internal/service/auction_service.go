package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"dutchman/internal/domain"
	"dutchman/internal/engine"
	"dutchman/internal/event"
	"dutchman/internal/infra"
	"dutchman/internal/strategy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Journal persists the audit trail of a run. *storage.Journal implements it.
type Journal interface {
	BeginRun(runID string, cfg domain.AuctionConfig, startedAt time.Time) error
	RecordPrice(runID string, point domain.PricePoint) error
	RecordBid(runID string, bid domain.Bid) error
	CompleteRun(runID string, reason domain.CompletionReason, totalRaised decimal.Decimal, settlement domain.Settlement, completedAt time.Time) error
}

// Broadcaster receives every event for presentation. *ws.Hub implements it.
type Broadcaster interface {
	Broadcast(ev event.Event)
}

// AuctionService owns one auction run and fans its events out to the
// journal, metrics, presentation and simulated bidders.
type AuctionService struct {
	auction *engine.Auction
	runID   string
	journal Journal
	metrics *infra.Metrics

	mu           sync.Mutex
	started      bool
	lastSeq      uint64
	broadcasters []Broadcaster

	biddersMu sync.Mutex
	bidders   []strategy.Bidder
}

// Option customizes an AuctionService.
type Option func(*AuctionService)

// WithJournal records the run in j.
func WithJournal(j Journal) Option {
	return func(s *AuctionService) { s.journal = j }
}

// WithMetrics records counters in m.
func WithMetrics(m *infra.Metrics) Option {
	return func(s *AuctionService) { s.metrics = m }
}

// WithBidders adds simulated bidders.
func WithBidders(bidders ...strategy.Bidder) Option {
	return func(s *AuctionService) { s.bidders = append(s.bidders, bidders...) }
}

// WithRunID overrides the generated run ID.
func WithRunID(id string) Option {
	return func(s *AuctionService) { s.runID = id }
}

// NewAuctionService wraps a and subscribes to its events.
func NewAuctionService(a *engine.Auction, opts ...Option) *AuctionService {
	s := &AuctionService{
		auction: a,
		runID:   uuid.NewString(),
		metrics: &infra.Metrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	a.OnEvent(s.handleEvent)
	return s
}

// RunID identifies this run in the journal.
func (s *AuctionService) RunID() string {
	return s.runID
}

// Metrics returns the counters of this run.
func (s *AuctionService) Metrics() *infra.Metrics {
	return s.metrics
}

// AddBroadcaster registers a presentation sink. It only receives events
// committed after registration.
func (s *AuctionService) AddBroadcaster(b Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcasters = append(s.broadcasters, b)
}

// Start opens the run in the journal and starts the auction. Simulated
// bidders see the opening price before the first tick.
func (s *AuctionService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("run %s already started: %w", s.runID, domain.ErrInvalidTransition)
	}
	s.started = true
	s.mu.Unlock()

	cfg := s.auction.Config()
	if s.journal != nil {
		if err := s.journal.BeginRun(s.runID, cfg, time.Now()); err != nil {
			s.journalError("begin run", err)
		}
	}

	if err := s.auction.Start(ctx); err != nil {
		return err
	}
	slog.Info("Run started", slog.String("run_id", s.runID))

	s.runBidders(domain.PricePoint{Tick: 0, Price: cfg.StartPrice})
	return nil
}

// Stop ends the run at the last committed price.
func (s *AuctionService) Stop() (domain.Settlement, error) {
	return s.auction.Stop()
}

// SubmitBid places a bid for participantID and counts rejections by reason.
func (s *AuctionService) SubmitBid(participantID string, tokens int64) (domain.Bid, error) {
	bid, err := s.auction.SubmitBid(participantID, tokens)
	if err != nil {
		if reason, ok := domain.IsRejection(err); ok {
			s.metrics.RecordRejection(reason)
		}
		return domain.Bid{}, err
	}
	return bid, nil
}

// State returns the current auction snapshot.
func (s *AuctionService) State() domain.Snapshot {
	return s.auction.State()
}

// Wait blocks until the auction has completed or ctx is done.
func (s *AuctionService) Wait(ctx context.Context) (domain.Snapshot, error) {
	select {
	case <-s.auction.Done():
		return s.auction.State(), nil
	case <-ctx.Done():
		return domain.Snapshot{}, ctx.Err()
	}
}

// Done is closed after the completion event has been handled.
func (s *AuctionService) Done() <-chan struct{} {
	return s.auction.Done()
}

// handleEvent runs on the auction loop goroutine, once per event, in sequence order.
func (s *AuctionService) handleEvent(ev event.Event) {
	s.mu.Lock()
	if expected := s.lastSeq + 1; ev.GetSeq() != expected {
		slog.Error("Event sequence gap",
			slog.Uint64("expected", expected),
			slog.Uint64("got", ev.GetSeq()))
	}
	s.lastSeq = ev.GetSeq()
	broadcasters := s.broadcasters
	s.mu.Unlock()

	switch e := ev.(type) {
	case *event.PriceUpdateEvent:
		s.metrics.RecordPriceUpdate()
		if s.journal != nil {
			if err := s.journal.RecordPrice(s.runID, e.Point); err != nil {
				s.journalError("record price", err)
			}
		}
	case *event.BidAcceptedEvent:
		s.metrics.RecordBidAccepted()
		if s.journal != nil {
			if err := s.journal.RecordBid(s.runID, e.Bid); err != nil {
				s.journalError("record bid", err)
			}
		}
	case *event.CompletedEvent:
		s.metrics.RecordCompletion()
		if s.journal != nil {
			if err := s.journal.CompleteRun(s.runID, e.Reason, e.TotalRaised, e.Settlement, e.Ts); err != nil {
				s.journalError("complete run", err)
			}
		}
	}

	for _, b := range broadcasters {
		b.Broadcast(ev)
	}

	if e, ok := ev.(*event.PriceUpdateEvent); ok {
		s.runBidders(e.Point)
	}
}

func (s *AuctionService) runBidders(point domain.PricePoint) {
	s.biddersMu.Lock()
	defer s.biddersMu.Unlock()

	for _, b := range s.bidders {
		for _, intent := range b.OnPriceUpdate(point) {
			if _, err := s.SubmitBid(intent.Participant, intent.Tokens); err != nil {
				slog.Info("Simulated bid rejected",
					slog.String("bidder", b.Name()),
					slog.Int("tick", point.Tick),
					slog.Any("error", err))
			}
		}
	}
}

func (s *AuctionService) journalError(op string, err error) {
	s.metrics.RecordJournalError()
	slog.Error("Journal write failed",
		slog.String("run_id", s.runID),
		slog.String("op", op),
		slog.Any("error", err))
}

// DumpState writes the current snapshot as indented JSON.
func (s *AuctionService) DumpState(w io.Writer) error {
	return s.auction.DumpState(w)
}
