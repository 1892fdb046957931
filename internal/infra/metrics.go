package infra

import (
	"sync/atomic"
	"time"

	"dutchman/internal/domain"
)

// Metrics provides lightweight observability of one auction run.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	priceUpdates     atomic.Uint64
	bidsAccepted     atomic.Uint64
	rejectedInactive atomic.Uint64
	rejectedQuantity atomic.Uint64
	rejectedBudget   atomic.Uint64
	rejectedUnknown  atomic.Uint64
	journalErrors    atomic.Uint64
	completions      atomic.Uint64

	// Gauges
	activeClients atomic.Int32
}

// RecordPriceUpdate records a committed price point.
func (m *Metrics) RecordPriceUpdate() {
	m.priceUpdates.Add(1)
}

// RecordBidAccepted records an accepted bid.
func (m *Metrics) RecordBidAccepted() {
	m.bidsAccepted.Add(1)
}

// RecordRejection records a rejected bid by reason.
func (m *Metrics) RecordRejection(reason domain.RejectionReason) {
	switch reason {
	case domain.ReasonAuctionInactive:
		m.rejectedInactive.Add(1)
	case domain.ReasonInvalidQuantity:
		m.rejectedQuantity.Add(1)
	case domain.ReasonInsufficientBudget:
		m.rejectedBudget.Add(1)
	case domain.ReasonUnknownParticipant:
		m.rejectedUnknown.Add(1)
	}
}

// RecordJournalError records a failed journal write.
func (m *Metrics) RecordJournalError() {
	m.journalErrors.Add(1)
}

// RecordCompletion records an auction completion.
func (m *Metrics) RecordCompletion() {
	m.completions.Add(1)
}

// IncrementClients increments connected presentation clients by 1.
func (m *Metrics) IncrementClients() {
	m.activeClients.Add(1)
}

// DecrementClients decrements connected presentation clients by 1.
func (m *Metrics) DecrementClients() {
	m.activeClients.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	PriceUpdates  uint64                            `json:"price_updates"`
	BidsAccepted  uint64                            `json:"bids_accepted"`
	BidsRejected  map[domain.RejectionReason]uint64 `json:"bids_rejected"`
	JournalErrors uint64                            `json:"journal_errors"`
	Completions   uint64                            `json:"completions"`
	ActiveClients int32                             `json:"active_clients"`
	Timestamp     time.Time                         `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		PriceUpdates: m.priceUpdates.Load(),
		BidsAccepted: m.bidsAccepted.Load(),
		BidsRejected: map[domain.RejectionReason]uint64{
			domain.ReasonAuctionInactive:    m.rejectedInactive.Load(),
			domain.ReasonInvalidQuantity:    m.rejectedQuantity.Load(),
			domain.ReasonInsufficientBudget: m.rejectedBudget.Load(),
			domain.ReasonUnknownParticipant: m.rejectedUnknown.Load(),
		},
		JournalErrors: m.journalErrors.Load(),
		Completions:   m.completions.Load(),
		ActiveClients: m.activeClients.Load(),
		Timestamp:     time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.priceUpdates.Store(0)
	m.bidsAccepted.Store(0)
	m.rejectedInactive.Store(0)
	m.rejectedQuantity.Store(0)
	m.rejectedBudget.Store(0)
	m.rejectedUnknown.Store(0)
	m.journalErrors.Store(0)
	m.completions.Store(0)
	m.activeClients.Store(0)
}
