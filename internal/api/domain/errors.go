package domain

import (
	"errors"
)

// Lifecycle error taxonomy. Handlers map these to HTTP statuses; services
// return them verbatim so callers can distinguish an expected race loss
// (ErrBidAlreadyDecided) from an integration bug (ErrInvalidTransition).
var (
	ErrJobNotFound          = errors.New("job not found")
	ErrBidNotFound          = errors.New("bid not found")
	ErrEscrowNotFound       = errors.New("escrow not found")
	ErrConversationNotFound = errors.New("conversation not found")

	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrJobNotOpenForBids    = errors.New("job not open for bids")
	ErrDuplicateActiveBid   = errors.New("bidder already has an active bid on this job")
	ErrBidNotWithdrawable   = errors.New("bid is no longer withdrawable")
	ErrBidAlreadyDecided    = errors.New("bid acceptance already decided")
	ErrEscrowNotFunded      = errors.New("escrow is not funded")
	ErrConversationArchived = errors.New("conversation is archived")
	ErrReviewWindowClosed   = errors.New("review window is closed")

	ErrForbidden = errors.New("actor is not allowed to perform this operation")

	// ErrInternalInconsistency marks an invariant violation detected inside a
	// locked critical section. The triggering transaction must be rolled back
	// in full; nothing is ever partially committed past this error.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)
