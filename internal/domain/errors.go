package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when Start is called outside the Waiting state.
	ErrInvalidTransition = errors.New("invalid auction state transition")

	// ErrAuctionInactive is returned when a bid arrives while the auction is not Running.
	ErrAuctionInactive = errors.New("auction not active")

	// ErrInvalidBidQuantity is returned for a non-positive token count.
	ErrInvalidBidQuantity = errors.New("invalid bid quantity")

	// ErrInsufficientBudget is returned when the bid cost exceeds the remaining budget.
	ErrInsufficientBudget = errors.New("insufficient budget")

	// ErrUnknownParticipant is returned when the bidder was not registered at setup.
	ErrUnknownParticipant = errors.New("unknown participant")
)

// RejectionReason is the machine-readable cause of a rejected bid.
type RejectionReason string

const (
	ReasonAuctionInactive    RejectionReason = "auction_inactive"
	ReasonInvalidQuantity    RejectionReason = "invalid_quantity"
	ReasonInsufficientBudget RejectionReason = "insufficient_budget"
	ReasonUnknownParticipant RejectionReason = "unknown_participant"
)

// Sentinel maps the reason back to its sentinel error.
func (r RejectionReason) Sentinel() error {
	switch r {
	case ReasonAuctionInactive:
		return ErrAuctionInactive
	case ReasonInvalidQuantity:
		return ErrInvalidBidQuantity
	case ReasonInsufficientBudget:
		return ErrInsufficientBudget
	case ReasonUnknownParticipant:
		return ErrUnknownParticipant
	default:
		return nil
	}
}

// BidRejection describes a bid that was refused without touching the ledger.
type BidRejection struct {
	Reason      RejectionReason
	Participant string
	Tokens      int64
	Detail      string
}

func (e *BidRejection) Error() string {
	msg := fmt.Sprintf("bid rejected [%s] participant=%s tokens=%d", e.Reason, e.Participant, e.Tokens)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *BidRejection) Unwrap() error {
	return e.Reason.Sentinel()
}

// NewBidRejection creates a rejection for the given reason.
func NewBidRejection(reason RejectionReason, participant string, tokens int64, detail string) *BidRejection {
	return &BidRejection{Reason: reason, Participant: participant, Tokens: tokens, Detail: detail}
}

// IsRejection reports whether err is a bid rejection and returns its reason.
func IsRejection(err error) (RejectionReason, bool) {
	var br *BidRejection
	if errors.As(err, &br) {
		return br.Reason, true
	}
	return "", false
}

// ConfigError represents a malformed auction configuration. It is never recoverable.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}
