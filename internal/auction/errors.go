package auction

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error for callers and transport layers.
type Kind string

// Error kinds.
const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindState         Kind = "state"
	KindAuthorization Kind = "authorization"
	KindPersistence   Kind = "persistence"
)

// Reason is the machine-readable cause within a kind.
type Reason string

// Error reasons.
const (
	ReasonInvalidAmount   Reason = "invalid_amount"
	ReasonInvalidBidder   Reason = "invalid_bidder"
	ReasonInvalidListing  Reason = "invalid_listing"
	ReasonAuctionNotFound Reason = "auction_not_found"
	ReasonItemNotFound    Reason = "item_not_found"
	ReasonAuctionClosed   Reason = "auction_closed"
	ReasonSelfBid         Reason = "self_bid"
	ReasonStoreFailure    Reason = "store_failure"
)

// Error is the domain error returned by the auction engine.
type Error struct {
	Kind      Kind
	Reason    Reason
	Message   string
	AuctionID string
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches target by kind, and by reason when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Reason == "" || e.Reason == t.Reason
}

// Kind-level sentinels for errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation, Message: "validation error"}
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "not found"}
	ErrState         = &Error{Kind: KindState, Message: "invalid auction state"}
	ErrAuthorization = &Error{Kind: KindAuthorization, Message: "not authorized"}
	ErrPersistence   = &Error{Kind: KindPersistence, Message: "persistence error"}
)

// Reason-level sentinels for errors.Is.
var (
	ErrInvalidAmount   = &Error{Kind: KindValidation, Reason: ReasonInvalidAmount, Message: "invalid bid amount"}
	ErrAuctionNotFound = &Error{Kind: KindNotFound, Reason: ReasonAuctionNotFound, Message: "auction not found"}
	ErrItemNotFound    = &Error{Kind: KindNotFound, Reason: ReasonItemNotFound, Message: "item not found"}
	ErrAuctionClosed   = &Error{Kind: KindState, Reason: ReasonAuctionClosed, Message: "auction is closed"}
	ErrSelfBid         = &Error{Kind: KindAuthorization, Reason: ReasonSelfBid, Message: "owner cannot bid on own item"}
)

func newError(kind Kind, reason Reason, auctionID, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Reason:    reason,
		Message:   message,
		AuctionID: auctionID,
		Cause:     cause,
	}
}

func persistenceError(auctionID, message string, cause error) *Error {
	return newError(KindPersistence, ReasonStoreFailure, auctionID, message, cause)
}

// HTTPStatus maps an error to the HTTP status a transport should return.
// Persistence failures are retryable and map to 503.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindState:
		return http.StatusConflict
	case KindAuthorization:
		return http.StatusForbidden
	case KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
