package domain

// Job lifecycle statuses. BIDDING is an informational sub-state of OPEN:
// it flips automatically when the first bid arrives and does not restrict
// further submissions.
const (
	JobStatusOpen       = "OPEN"
	JobStatusBidding    = "BIDDING"
	JobStatusInProgress = "IN_PROGRESS"
	JobStatusCompleted  = "COMPLETED"
	JobStatusCancelled  = "CANCELLED"
)

// Urgency levels accepted on job creation.
const (
	UrgencyLow    = "LOW"
	UrgencyNormal = "NORMAL"
	UrgencyHigh   = "HIGH"
)

// jobTransitions is the reachability table for job statuses. Terminal
// statuses have no outgoing edges.
var jobTransitions = map[string][]string{
	JobStatusOpen:       {JobStatusBidding, JobStatusInProgress, JobStatusCancelled},
	JobStatusBidding:    {JobStatusInProgress, JobStatusCancelled},
	JobStatusInProgress: {JobStatusCompleted, JobStatusCancelled},
	JobStatusCompleted:  {},
	JobStatusCancelled:  {},
}

// JobStatusTerminal reports whether a job status has no outgoing transitions.
func JobStatusTerminal(status string) bool {
	return status == JobStatusCompleted || status == JobStatusCancelled
}

// JobCanTransition reports whether target is directly reachable from current.
func JobCanTransition(current, target string) bool {
	for _, next := range jobTransitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// JobOpenForBids reports whether a job in the given status accepts new bids
// and bid acceptance.
func JobOpenForBids(status string) bool {
	return status == JobStatusOpen || status == JobStatusBidding
}

// ValidUrgency reports whether the urgency level is an accepted value.
func ValidUrgency(urgency string) bool {
	switch urgency {
	case UrgencyLow, UrgencyNormal, UrgencyHigh:
		return true
	}
	return false
}
