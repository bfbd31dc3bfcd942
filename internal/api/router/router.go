package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
	"github.com/voltmatch/voltmatch-be/internal/api/handler"
	"github.com/voltmatch/voltmatch-be/internal/auth"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "voltmatch-api-service",
		})
	})

	jobHandler := handler.NewJobHandler(deps)
	bidHandler := handler.NewBidHandler(deps)
	conversationHandler := handler.NewConversationHandler(deps)
	deviceHandler := handler.NewDeviceHandler(deps)

	// The escrow funding webhook is called by the payment provider, not
	// by a logged-in user. It authenticates with a shared secret header
	// inside the handler and must stay outside the JWT group.
	r.POST("/api/v1/jobs/:job_id/escrow/fund", jobHandler.FundEscrow)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(auth.Middleware(deps.AuthSecret, deps.Logger))
	{
		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Create a new job
			jobs.POST("", auth.RequireRole(domain.RoleCitizen), jobHandler.CreateJob)

			// GET /api/v1/jobs - List jobs with filtering and pagination
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Get job details
			jobs.GET("/:job_id", jobHandler.GetJob)

			// POST /api/v1/jobs/:job_id/complete - Mark work done and release escrow
			jobs.POST("/:job_id/complete", auth.RequireRole(domain.RoleCitizen), jobHandler.CompleteJob)

			// POST /api/v1/jobs/:job_id/cancel - Cancel a job
			jobs.POST("/:job_id/cancel", auth.RequireRole(domain.RoleCitizen), jobHandler.CancelJob)

			// GET /api/v1/jobs/:job_id/escrow - Get the job's escrow hold
			jobs.GET("/:job_id/escrow", jobHandler.GetEscrow)

			// POST /api/v1/jobs/:job_id/reviews - Review a completed job
			jobs.POST("/:job_id/reviews", auth.RequireRole(domain.RoleCitizen), jobHandler.CreateReview)

			// POST /api/v1/jobs/:job_id/bids - Submit a bid
			jobs.POST("/:job_id/bids", auth.RequireRole(domain.RoleElectrician), bidHandler.SubmitBid)

			// GET /api/v1/jobs/:job_id/bids - List a job's bids
			jobs.GET("/:job_id/bids", bidHandler.ListBids)
		}

		bids := v1.Group("/bids")
		{
			// GET /api/v1/bids/:bid_id - Get bid details
			bids.GET("/:bid_id", bidHandler.GetBid)

			// POST /api/v1/bids/:bid_id/accept - Accept a bid
			bids.POST("/:bid_id/accept", auth.RequireRole(domain.RoleCitizen), bidHandler.AcceptBid)

			// DELETE /api/v1/bids/:bid_id - Withdraw a pending bid
			bids.DELETE("/:bid_id", auth.RequireRole(domain.RoleElectrician), bidHandler.WithdrawBid)
		}

		conversations := v1.Group("/conversations")
		{
			// GET /api/v1/conversations/:conversation_id - Get conversation details
			conversations.GET("/:conversation_id", conversationHandler.GetConversation)

			// POST /api/v1/conversations/:conversation_id/messages - Send a message
			conversations.POST("/:conversation_id/messages", conversationHandler.SendMessage)

			// GET /api/v1/conversations/:conversation_id/messages - List messages
			conversations.GET("/:conversation_id/messages", conversationHandler.ListMessages)
		}

		devices := v1.Group("/devices")
		{
			// POST /api/v1/devices - Register a push token
			devices.POST("", deviceHandler.RegisterDevice)

			// DELETE /api/v1/devices/:token - Remove a push token
			devices.DELETE("/:token", deviceHandler.RemoveDevice)
		}

		admin := v1.Group("/admin")
		admin.Use(auth.RequireRole(domain.RoleAdmin))
		{
			// DELETE /api/v1/admin/jobs/:job_id - Purge a job and its dependents
			admin.DELETE("/jobs/:job_id", jobHandler.PurgeJob)
		}
	}

	return r
}
