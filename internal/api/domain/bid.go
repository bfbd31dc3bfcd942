package domain

// Bid statuses. PENDING is the only non-terminal status: every other status
// is a final decision and no bid ever leaves it.
const (
	BidStatusPending   = "PENDING"
	BidStatusAccepted  = "ACCEPTED"
	BidStatusRejected  = "REJECTED"
	BidStatusWithdrawn = "WITHDRAWN"
)

// BidActive reports whether a bid still counts against the one-active-bid-
// per-bidder-per-job rule. ACCEPTED bids stay active: the bidder cannot
// resubmit on a job they already won.
func BidActive(status string) bool {
	return status == BidStatusPending || status == BidStatusAccepted
}

// BidDecided reports whether a bid has reached a terminal status.
func BidDecided(status string) bool {
	return status != BidStatusPending
}
