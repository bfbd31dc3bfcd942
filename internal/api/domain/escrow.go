package domain

// Escrow statuses. A hold is opened as PENDING_FUNDING when a bid is
// accepted; external payment capture confirms it to FUNDED. RELEASED and
// REFUNDED are terminal and reachable only from FUNDED. UNFUNDED marks a
// hold whose funding window elapsed before capture.
const (
	EscrowStatusUnfunded       = "UNFUNDED"
	EscrowStatusPendingFunding = "PENDING_FUNDING"
	EscrowStatusFunded         = "FUNDED"
	EscrowStatusReleased       = "RELEASED"
	EscrowStatusRefunded       = "REFUNDED"
)

// EscrowHeld reports whether the hold currently reserves funds, i.e. the
// held-amount-equals-accepted-bid invariant must hold.
func EscrowHeld(status string) bool {
	return status == EscrowStatusPendingFunding || status == EscrowStatusFunded
}

// Payment kinds recorded by escrow release and refund.
const (
	PaymentKindPayout = "PAYOUT"
	PaymentKindRefund = "REFUND"
)
