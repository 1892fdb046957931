package event

import (
	"time"

	"dutchman/internal/domain"

	"github.com/shopspring/decimal"
)

// Type identifies the kind of auction event.
type Type string

const (
	TypePriceUpdate Type = "price_update"
	TypeBidAccepted Type = "bid_accepted"
	TypeCompleted   Type = "completed"
)

// Event is a sequenced notification emitted by the auction engine.
// Sequence numbers start at 1 and increase by one per event.
type Event interface {
	GetSeq() uint64
	GetType() Type
	GetTs() time.Time
}

// BaseEvent carries the fields shared by every event.
type BaseEvent struct {
	Seq uint64    `json:"seq"`
	Ts  time.Time `json:"ts"`
}

func (e BaseEvent) GetSeq() uint64   { return e.Seq }
func (e BaseEvent) GetTs() time.Time { return e.Ts }

// PriceUpdateEvent is emitted for every committed price point.
type PriceUpdateEvent struct {
	BaseEvent
	Point domain.PricePoint `json:"point"`
}

func (*PriceUpdateEvent) GetType() Type { return TypePriceUpdate }

// BidAcceptedEvent is emitted after a bid has been appended to the ledger.
type BidAcceptedEvent struct {
	BaseEvent
	Bid         domain.Bid      `json:"bid"`
	TotalRaised decimal.Decimal `json:"total_raised"`
}

func (*BidAcceptedEvent) GetType() Type { return TypeBidAccepted }

// CompletedEvent is emitted exactly once, after the ticker has stopped and
// the settlement has been computed.
type CompletedEvent struct {
	BaseEvent
	Reason      domain.CompletionReason `json:"reason"`
	TotalRaised decimal.Decimal         `json:"total_raised"`
	Settlement  domain.Settlement       `json:"settlement"`
}

func (*CompletedEvent) GetType() Type { return TypeCompleted }

// Envelope is the wire form of an event: {"type": ..., "data": {...}}.
type Envelope struct {
	Type Type  `json:"type"`
	Data Event `json:"data"`
}

// Wrap builds the wire envelope for ev.
func Wrap(ev Event) Envelope {
	return Envelope{Type: ev.GetType(), Data: ev}
}
