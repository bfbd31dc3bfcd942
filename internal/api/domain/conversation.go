package domain

// Conversation statuses. A conversation exists only while its job has an
// ACCEPTED bid; completion and cancellation archive it rather than delete
// it, so the history stays readable while new messages are rejected.
const (
	ConversationStatusActive   = "ACTIVE"
	ConversationStatusArchived = "ARCHIVED"
)

// Actor roles carried in the auth token.
const (
	RoleCitizen     = "citizen"
	RoleElectrician = "electrician"
	RoleAdmin       = "admin"
)
