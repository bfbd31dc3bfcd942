package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voltmatch/voltmatch-be/internal/api/dto"
	"github.com/voltmatch/voltmatch-be/internal/api/service"
	"github.com/voltmatch/voltmatch-be/internal/api/storage"
	"github.com/voltmatch/voltmatch-be/internal/auth"
)

// CreateJob handles POST /api/v1/jobs
// Creates a new OPEN job owned by the authenticated citizen
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	job, err := h.service.CreateJob(c.Request.Context(), service.CreateJobInput{
		OwnerID:     auth.UserID(c),
		Category:    req.Category,
		Urgency:     req.Urgency,
		Description: req.Description,
		BudgetCents: req.BudgetCents,
		City:        req.City,
		District:    req.District,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.JobFromModel(job))
}

// GetJob handles GET /api/v1/jobs/:job_id
// Retrieves a job snapshot; never takes the per-job lock
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.service.GetJob(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.JobFromModel(job))
}

// ListJobs handles GET /api/v1/jobs
// Lists jobs with optional filtering and keyset pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.JobFilter{
		OwnerID:  req.OwnerID,
		Category: req.Category,
		Status:   req.Status,
		City:     req.City,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	jobs, err := h.service.ListJobs(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i := range jobs {
		jobResponse[i] = dto.JobFromModel(&jobs[i])
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		nextCursor, err = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.JobID,
		})
		if err != nil {
			h.logger.Error("Failed to encode next cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to encode next cursor",
			})
			return
		}
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

// CompleteJob handles POST /api/v1/jobs/:job_id/complete
// Finalizes an in-progress job and releases escrow
func (h *JobHandler) CompleteJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.service.CompleteJob(c.Request.Context(), jobID, auth.UserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.JobFromModel(job))
}

// CancelJob handles POST /api/v1/jobs/:job_id/cancel
// Cancels a job from any non-terminal state
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	var req dto.CancelJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	job, err := h.service.CancelJob(c.Request.Context(), jobID, auth.UserID(c), req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.JobFromModel(job))
}

// FundEscrow handles POST /api/v1/jobs/:job_id/escrow/fund
// Payment-capture webhook boundary; authenticated by shared secret header
func (h *JobHandler) FundEscrow(c *gin.Context) {
	if c.GetHeader("X-Webhook-Secret") != h.webhookSecret {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid webhook secret",
		})
		return
	}

	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	esc, err := h.service.ConfirmFunding(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.EscrowFromModel(esc))
}

// GetEscrow handles GET /api/v1/jobs/:job_id/escrow
// Snapshot read of a job's escrow hold
func (h *JobHandler) GetEscrow(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	esc, err := h.service.GetEscrow(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.EscrowFromModel(esc))
}

// CreateReview handles POST /api/v1/jobs/:job_id/reviews
// Records the citizen's rating while the review window is open
func (h *JobHandler) CreateReview(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	review, err := h.service.CreateReview(c.Request.Context(), jobID, auth.UserID(c), req.Rating, req.Comment)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ReviewFromModel(review))
}

// PurgeJob handles DELETE /api/v1/admin/jobs/:job_id
// Ordered transactional teardown of a job and all dependent rows
func (h *JobHandler) PurgeJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	h.logger.Info("Purging job",
		slog.String("job_id", jobID),
		slog.String("actor_id", auth.UserID(c)),
	)

	if err := h.service.PurgeJob(c.Request.Context(), jobID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
