package handler

import (
	"log/slog"

	"github.com/voltmatch/voltmatch-be/internal/api/service"
	"github.com/voltmatch/voltmatch-be/internal/notifier/push"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger              *slog.Logger
	Service             *service.Service
	Tokens              *push.DeviceTokens
	EscrowWebhookSecret string
	AuthSecret          string
}

// JobHandler handles job lifecycle HTTP requests
type JobHandler struct {
	logger        *slog.Logger
	service       *service.Service
	webhookSecret string
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:        deps.Logger,
		service:       deps.Service,
		webhookSecret: deps.EscrowWebhookSecret,
	}
}

// BidHandler handles bid ledger HTTP requests
type BidHandler struct {
	logger  *slog.Logger
	service *service.Service
}

// NewBidHandler creates a new BidHandler instance
func NewBidHandler(deps *Dependencies) *BidHandler {
	return &BidHandler{
		logger:  deps.Logger,
		service: deps.Service,
	}
}

// ConversationHandler handles messaging HTTP requests
type ConversationHandler struct {
	logger  *slog.Logger
	service *service.Service
}

// NewConversationHandler creates a new ConversationHandler instance
func NewConversationHandler(deps *Dependencies) *ConversationHandler {
	return &ConversationHandler{
		logger:  deps.Logger,
		service: deps.Service,
	}
}

// DeviceHandler handles push device registration requests
type DeviceHandler struct {
	logger *slog.Logger
	tokens *push.DeviceTokens
}

// NewDeviceHandler creates a new DeviceHandler instance
func NewDeviceHandler(deps *Dependencies) *DeviceHandler {
	return &DeviceHandler{
		logger: deps.Logger,
		tokens: deps.Tokens,
	}
}
