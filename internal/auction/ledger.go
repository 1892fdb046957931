package auction

import (
	"fmt"
	"time"

	"dutchman/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger is the append-only record of accepted bids together with the
// participant budgets it debits. It is not safe for concurrent use; the
// engine serializes every call under its own lock.
type Ledger struct {
	participants map[string]*domain.Participant
	order        []string
	initial      map[string]decimal.Decimal
	bids         []domain.Bid
	totalRaised  decimal.Decimal
	newID        func() string
}

// NewLedger registers the participants with their starting budgets.
func NewLedger(participants []domain.Participant) *Ledger {
	l := &Ledger{
		participants: make(map[string]*domain.Participant, len(participants)),
		order:        make([]string, 0, len(participants)),
		initial:      make(map[string]decimal.Decimal, len(participants)),
		totalRaised:  decimal.Zero,
		newID:        uuid.NewString,
	}
	for _, p := range participants {
		cp := p
		l.participants[p.ID] = &cp
		l.order = append(l.order, p.ID)
		l.initial[p.ID] = p.Budget
	}
	return l
}

// Submit validates and records a bid at price. Either the bid is appended,
// the budget debited and the raised total increased, or nothing changes and a
// *domain.BidRejection is returned.
func (l *Ledger) Submit(participantID string, tokens int64, price decimal.Decimal, tick int, at time.Time) (domain.Bid, error) {
	if tokens <= 0 {
		return domain.Bid{}, domain.NewBidRejection(domain.ReasonInvalidQuantity, participantID, tokens,
			"token quantity must be a positive integer")
	}

	p, ok := l.participants[participantID]
	if !ok {
		return domain.Bid{}, domain.NewBidRejection(domain.ReasonUnknownParticipant, participantID, tokens, "")
	}

	cost := domain.Cost(tokens, price)
	if !p.CanAfford(cost) {
		return domain.Bid{}, domain.NewBidRejection(domain.ReasonInsufficientBudget, participantID, tokens,
			fmt.Sprintf("cost %s exceeds budget %s", domain.FormatMoney(cost), domain.FormatMoney(p.Budget)))
	}

	bid := domain.Bid{
		ID:          l.newID(),
		Seq:         uint64(len(l.bids) + 1),
		Participant: participantID,
		Tokens:      tokens,
		Price:       price,
		Tick:        tick,
		PlacedAt:    at,
	}

	p.Debit(cost)
	p.VerifyInvariant()
	l.bids = append(l.bids, bid)
	l.totalRaised = l.totalRaised.Add(cost)

	return bid, nil
}

// TotalRaised is the sum of tokens*price over all accepted bids.
func (l *Ledger) TotalRaised() decimal.Decimal {
	return l.totalRaised
}

// Bids returns a copy of the accepted bids in insertion order.
func (l *Ledger) Bids() []domain.Bid {
	out := make([]domain.Bid, len(l.bids))
	copy(out, l.bids)
	return out
}

// Len returns the number of accepted bids.
func (l *Ledger) Len() int {
	return len(l.bids)
}

// Participant returns a copy of the participant's current state.
func (l *Ledger) Participant(id string) (domain.Participant, bool) {
	p, ok := l.participants[id]
	if !ok {
		return domain.Participant{}, false
	}
	return *p, true
}

// Participants returns copies of all participants in registration order.
func (l *Ledger) Participants() []domain.Participant {
	out := make([]domain.Participant, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.participants[id])
	}
	return out
}

// VerifyConservation checks that every participant's budget delta equals the
// cost of their bids and that the deltas sum to the raised total.
func (l *Ledger) VerifyConservation() error {
	spent := make(map[string]decimal.Decimal, len(l.participants))
	for _, b := range l.bids {
		spent[b.Participant] = spent[b.Participant].Add(b.Cost())
	}

	sum := decimal.Zero
	for _, id := range l.order {
		delta := l.initial[id].Sub(l.participants[id].Budget)
		if !delta.Equal(spent[id]) {
			return fmt.Errorf("participant %s: budget delta %s != bid cost %s", id, delta, spent[id])
		}
		sum = sum.Add(delta)
	}
	if !sum.Equal(l.totalRaised) {
		return fmt.Errorf("budget deltas %s != total raised %s", sum, l.totalRaised)
	}
	return nil
}
